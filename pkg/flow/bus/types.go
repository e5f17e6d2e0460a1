package bus

import (
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

const (
	// DefaultRetentionBound is the number of undelivered entries a bus keeps
	// before it starts dropping the oldest one.
	DefaultRetentionBound = 1000
	// DefaultWaitTimeout is used by WaitFor when no positive timeout is given.
	DefaultWaitTimeout = 5 * time.Second
)

// ErrTimeout is returned by Waiter.Wait when the awaited topic was not
// delivered before the deadline.
var ErrTimeout = errors.New("bus: wait timed out")

// Topic names an event stream on the bus.
type Topic string

// Phase is the lifecycle step a stage announces.
type Phase string

const (
	PhaseStart Phase = "start"
	PhaseEnd   Phase = "end"
)

// Lifecycle returns the topic "<stage>:<phase>".
func Lifecycle(stage string, phase Phase) Topic {
	return Topic(stage + ":" + string(phase))
}

// Handler receives the payload of a delivered event.
type Handler func(payload any)

// Subscription identifies a registered handler.
type Subscription struct {
	id    uuid.UUID
	topic Topic
}

// ID returns the unique subscription id.
func (s Subscription) ID() uuid.UUID {
	return s.id
}

// Topic returns the topic the handler listens on.
func (s Subscription) Topic() Topic {
	return s.topic
}

// Stats is a point-in-time snapshot of bus counters.
type Stats struct {
	// Dispatched counts every Dispatch call.
	Dispatched uint64
	// Delivered counts entries handed to their subscribers (zero or more).
	Delivered uint64
	// Dropped counts entries evicted by the retention bound.
	Dropped uint64
	// Panics counts handler invocations that panicked.
	Panics uint64
	// Pending is the current queue length.
	Pending int
}

// Config configures a Bus.
type Config struct {
	// RetentionBound is the maximum number of undelivered entries.
	// Default: DefaultRetentionBound.
	RetentionBound int

	// WaitTimeout is the WaitFor deadline used when the caller passes zero.
	// Default: DefaultWaitTimeout.
	WaitTimeout time.Duration

	// Scheduler runs flush tasks. Default: GoScheduler.
	Scheduler Scheduler

	// Logger receives handler panics and drop reports. Default: slog.Default().
	Logger *slog.Logger
}

func (c *Config) defaults() Config {
	cfg := *c
	if cfg.RetentionBound <= 0 {
		cfg.RetentionBound = DefaultRetentionBound
	}
	if cfg.WaitTimeout <= 0 {
		cfg.WaitTimeout = DefaultWaitTimeout
	}
	if cfg.Scheduler == nil {
		cfg.Scheduler = GoScheduler
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return cfg
}
