package schema

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/ib-77/chatflow/pkg/flow"
	"github.com/ib-77/chatflow/pkg/flow/bus"
	"gopkg.in/yaml.v3"
)

// Schema describes a pipeline to assemble from registered stages.
type Schema struct {
	// Version tracks the schema version for change management
	Version string  `json:"version,omitempty" yaml:"version,omitempty"`
	Bus     Bus     `json:"bus,omitempty" yaml:"bus,omitempty"`
	Stages  []Stage `json:"stages" yaml:"stages"`
}

// Bus holds the bus knobs. Durations use time.ParseDuration syntax.
type Bus struct {
	RetentionBound int    `json:"retention_bound,omitempty" yaml:"retention_bound,omitempty"`
	WaitTimeout    string `json:"wait_timeout,omitempty" yaml:"wait_timeout,omitempty"`
}

// Stage is one pipeline entry. Ref selects the registered stage; Name is what
// the stage is registered and announced as, defaulting to Ref.
type Stage struct {
	Name string `json:"name,omitempty" yaml:"name,omitempty"`
	Ref  string `json:"ref" yaml:"ref"`
}

func (s Stage) StageName() string {
	if s.Name != "" {
		return s.Name
	}
	return s.Ref
}

// Load reads a schema file. The format follows the extension: .json, .yaml
// or .yml.
func Load(path string) (Schema, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Schema{}, fmt.Errorf("failed to read file: %w", err)
	}

	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".json":
		var s Schema
		if err := json.Unmarshal(data, &s); err != nil {
			return Schema{}, fmt.Errorf("failed to parse JSON: %w", err)
		}
		return s, nil
	case ".yaml", ".yml":
		return Parse(data)
	default:
		return Schema{}, fmt.Errorf("unsupported file format: %s", ext)
	}
}

// Parse decodes a YAML schema. JSON input is accepted as well, being a
// subset of YAML.
func Parse(data []byte) (Schema, error) {
	var s Schema
	if err := yaml.Unmarshal(data, &s); err != nil {
		return Schema{}, fmt.Errorf("failed to parse YAML: %w", err)
	}
	return s, nil
}

// BusConfig converts the bus section. Zero values keep the bus defaults.
func (s Schema) BusConfig() (bus.Config, error) {
	cfg := bus.Config{RetentionBound: s.Bus.RetentionBound}
	if s.Bus.WaitTimeout != "" {
		d, err := time.ParseDuration(s.Bus.WaitTimeout)
		if err != nil {
			return bus.Config{}, fmt.Errorf("invalid wait_timeout: %w", err)
		}
		cfg.WaitTimeout = d
	}
	return cfg, nil
}

// Build validates s against r and assembles the engine. A non-empty bus
// section replaces any bus configuration passed in opts. A nil r means
// DefaultRegistry.
func Build(s Schema, r *Registry, opts ...flow.Option) (*flow.Engine, error) {
	if r == nil {
		r = DefaultRegistry()
	}
	if err := Validate(s, r); err != nil {
		return nil, err
	}

	if s.Bus != (Bus{}) {
		busConfig, err := s.BusConfig()
		if err != nil {
			return nil, err
		}
		opts = append(slices.Clip(opts), flow.WithBusConfig(busConfig))
	}

	b := flow.NewBuilder(opts...)
	for _, st := range s.Stages {
		ctor, _ := r.Lookup(st.Ref)
		name := st.StageName()
		if err := b.AddStage(name, ctor(name)); err != nil {
			return nil, err
		}
	}
	return b.Build()
}

// LoadAndBuild is Load followed by Build.
func LoadAndBuild(path string, r *Registry, opts ...flow.Option) (*flow.Engine, error) {
	s, err := Load(path)
	if err != nil {
		return nil, err
	}
	return Build(s, r, opts...)
}
