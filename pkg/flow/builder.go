package flow

import (
	"log/slog"
	"slices"
	"strings"

	"github.com/google/uuid"
	"github.com/ib-77/chatflow/pkg/flow/bus"
)

// Option configures the engines a Builder produces.
type Option func(*options)

type options struct {
	busConfig bus.Config
	logger    *slog.Logger
}

// WithBusConfig sets the configuration of the engine's bus.
func WithBusConfig(cfg bus.Config) Option {
	return func(o *options) {
		o.busConfig = cfg
	}
}

// WithLogger sets the logger of the engine, its bus and its stages.
// slog.Default() is used otherwise.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

type namedFactory struct {
	name    string
	factory StageFactory
}

// Builder accumulates stage factories. It holds no instantiated stages, so
// it can be reused after Build without affecting engines already built.
type Builder struct {
	opts      []Option
	factories []namedFactory
}

func NewBuilder(opts ...Option) *Builder {
	return &Builder{opts: opts}
}

// AddStage appends a stage. It returns ErrInvalidConfig when name is empty or
// blank, or when factory is nil.
func (b *Builder) AddStage(name string, factory StageFactory) error {
	if strings.TrimSpace(name) == "" {
		return invalidConfig("stage name must be a non-empty string")
	}
	if factory == nil {
		return invalidConfig("stage factory for %q must be a function", name)
	}
	b.factories = append(b.factories, namedFactory{name: name, factory: factory})
	return nil
}

// MustAddStage is AddStage for chained construction. It panics with the
// AddStage error.
func (b *Builder) MustAddStage(name string, factory StageFactory) *Builder {
	if err := b.AddStage(name, factory); err != nil {
		panic(err)
	}
	return b
}

// Build creates a bus and instantiates every registered stage against it.
func (b *Builder) Build() (*Engine, error) {
	if len(b.factories) == 0 {
		return nil, ErrEmptyPipeline
	}

	o := options{}
	for _, opt := range b.opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}
	busConfig := o.busConfig
	if busConfig.Logger == nil {
		busConfig.Logger = o.logger
	}

	messageBus := bus.New(busConfig)
	factories := slices.Clone(b.factories)

	e := &Engine{
		id:     uuid.New(),
		bus:    messageBus,
		stages: make([]Stage, 0, len(factories)),
		names:  make([]string, 0, len(factories)),
	}
	e.logger = o.logger.With("engine", e.id)

	for _, f := range factories {
		s := f.factory(messageBus)
		if s == nil {
			return nil, invalidConfig("stage factory for %q returned nil", f.name)
		}
		e.stages = append(e.stages, s)
		e.names = append(e.names, f.name)
	}

	e.logger.Debug("flow: engine built", "stages", e.names)
	return e, nil
}
