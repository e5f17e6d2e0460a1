package cli

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/ib-77/chatflow/pkg/flow/bus"
	"gopkg.in/yaml.v3"
)

const (
	FormatText    = "text"
	FormatJSON    = "json"
	FormatMsgpack = "msgpack"

	// EnvPrefix starts every environment override, e.g. CHATFLOW_LOG_LEVEL.
	EnvPrefix = "CHATFLOW"
)

// Config holds the command line settings. Values are layered: defaults, the
// YAML file, CHATFLOW_* environment variables, then flags.
type Config struct {
	// Format of the results: text, json or msgpack. Empty picks text for
	// the demo and interactive modes and json for pipe mode.
	Format   string    `yaml:"format"`
	NoColor  bool      `yaml:"no_color"`
	Pipeline string    `yaml:"pipeline"` // schema file, the chat pipeline when empty
	Trace    string    `yaml:"trace"`    // file for lifecycle events, "-" for stderr
	LogLevel string    `yaml:"log_level"`
	Bus      BusConfig `yaml:"bus"`
}

type BusConfig struct {
	RetentionBound int           `yaml:"retention_bound"`
	WaitTimeout    time.Duration `yaml:"wait_timeout"`
}

func DefaultConfig() Config {
	return Config{
		LogLevel: "warn",
		Bus: BusConfig{
			RetentionBound: bus.DefaultRetentionBound,
			WaitTimeout:    bus.DefaultWaitTimeout,
		},
	}
}

// LoadConfig reads a YAML file over the defaults.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse config: %w", err)
	}
	return cfg, nil
}

// ApplyEnv overlays the CHATFLOW_* variables found by lookup. Variables
// that are not set leave their field untouched.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	if lookup == nil {
		lookup = os.LookupEnv
	}

	strs := map[string]*string{
		"FORMAT":    &c.Format,
		"PIPELINE":  &c.Pipeline,
		"TRACE":     &c.Trace,
		"LOG_LEVEL": &c.LogLevel,
	}
	for name, dst := range strs {
		if v, ok := lookup(envKey(name)); ok {
			*dst = v
		}
	}

	if v, ok := lookup(envKey("NO_COLOR")); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("config: %s: %w", envKey("NO_COLOR"), err)
		}
		c.NoColor = b
	}
	if v, ok := lookup(envKey("BUS_RETENTION_BOUND")); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("config: %s: %w", envKey("BUS_RETENTION_BOUND"), err)
		}
		c.Bus.RetentionBound = n
	}
	if v, ok := lookup(envKey("BUS_WAIT_TIMEOUT")); ok {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("config: %s: %w", envKey("BUS_WAIT_TIMEOUT"), err)
		}
		c.Bus.WaitTimeout = d
	}
	return nil
}

func envKey(name string) string {
	return EnvPrefix + "_" + name
}

// Validate checks the settings
func (c *Config) Validate() error {
	switch c.Format {
	case "", FormatText, FormatJSON, FormatMsgpack:
	default:
		return fmt.Errorf("format must be one of text, json, msgpack, got %q", c.Format)
	}
	if _, err := c.Level(); err != nil {
		return err
	}
	if c.Bus.RetentionBound < 0 {
		return fmt.Errorf("bus.retention_bound must be >= 0")
	}
	if c.Bus.WaitTimeout < 0 {
		return fmt.Errorf("bus.wait_timeout must be >= 0")
	}
	return nil
}

// Level parses LogLevel. Empty means info.
func (c *Config) Level() (slog.Level, error) {
	var level slog.Level
	if c.LogLevel == "" {
		return slog.LevelInfo, nil
	}
	if err := level.UnmarshalText([]byte(strings.TrimSpace(c.LogLevel))); err != nil {
		return level, fmt.Errorf("log_level: %w", err)
	}
	return level, nil
}

// BusConfig returns the bus configuration for the engine.
func (c *Config) BusConfig(logger *slog.Logger) bus.Config {
	return bus.Config{
		RetentionBound: c.Bus.RetentionBound,
		WaitTimeout:    c.Bus.WaitTimeout,
		Logger:         logger,
	}
}

// FormatFor returns the effective format for a mode.
func (c *Config) FormatFor(pipe bool) string {
	if c.Format != "" {
		return c.Format
	}
	if pipe {
		return FormatJSON
	}
	return FormatText
}
