package flow

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"
	"github.com/ib-77/chatflow/pkg/flow/bus"
	"github.com/ib-77/chatflow/pkg/flow/core"
)

// Stage is one step of an engine. Run consumes results from in one at a
// time and returns the channel its outcomes are handed to; that channel is
// closed when the stage stops.
type Stage interface {
	Name() string
	Run(ctx context.Context, in <-chan Result[Item]) <-chan Result[Item]
}

// StageFactory produces a stage bound to the engine's bus.
type StageFactory func(b *bus.Bus) Stage

// TransformFunc derives the next item from item.
type TransformFunc func(ctx context.Context, item Item) (Item, error)

// StartPayload is dispatched on "<stage>:start".
type StartPayload struct {
	ID    int       `json:"id"`
	Text  string    `json:"text"`
	RunID uuid.UUID `json:"run_id"`
}

// EndPayload is dispatched on "<stage>:end".
type EndPayload struct {
	ID    int       `json:"id"`
	RunID uuid.UUID `json:"run_id"`
}

type stage struct {
	name      string
	bus       *bus.Bus
	transform TransformFunc
	logger    *slog.Logger

	// held from the start event to the end event of one item
	mu sync.Mutex
}

// NewStage wraps transform into a Stage that announces every item on b.
//
// For each item the stage dispatches "<name>:start", runs transform and, on
// success, dispatches "<name>:end" and hands the new item on. A failing
// transform produces a failed result carrying a *StageFailure and no end
// event. Failed results from upstream are passed on untouched. The stage
// stops after it has passed on a failure.
//
// One stage instance never has two items between their start and end events,
// even when it serves several runs at once.
func NewStage(name string, b *bus.Bus, transform TransformFunc) Stage {
	return &stage{
		name:      name,
		bus:       b,
		transform: transform,
		logger:    b.Logger().With("stage", name),
	}
}

// StageFunc returns a factory building NewStage(name, bus, transform).
func StageFunc(name string, transform TransformFunc) StageFactory {
	return func(b *bus.Bus) Stage {
		return NewStage(name, b, transform)
	}
}

func (s *stage) Name() string {
	return s.name
}

func (s *stage) Run(ctx context.Context, in <-chan Result[Item]) <-chan Result[Item] {
	return core.Turnout(ctx, in, s.process, core.CancellationHandlers[Result[Item], Result[Item]]{
		OnCancelProcessed: func(ctx context.Context, in Result[Item], _ Result[Item]) {
			s.logger.Debug("flow: processed item discarded on cancel",
				"item", in.Value().ID(), "run", core.GetRunID(ctx))
		},
	}, 1)
}

func (s *stage) process(ctx context.Context, in Result[Item]) (Result[Item], bool) {
	if !in.IsSuccess() {
		return in, true
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	item := in.Value()
	runID := core.GetRunID(ctx)

	s.bus.Dispatch(bus.Lifecycle(s.name, bus.PhaseStart),
		StartPayload{ID: item.ID(), Text: item.Text(), RunID: runID})

	out, err := s.try(ctx, item)
	if err == nil && out.ID() != item.ID() {
		err = fmt.Errorf("transform changed item id from %d to %d", item.ID(), out.ID())
	}
	if err != nil {
		s.logger.Warn("flow: stage failed", "item", item.ID(), "run", runID, "error", err)
		return Fail[Item](&StageFailure{Stage: s.name, ItemID: item.ID(), Err: err}), true
	}

	s.bus.Dispatch(bus.Lifecycle(s.name, bus.PhaseEnd),
		EndPayload{ID: item.ID(), RunID: runID})

	return Success(out), false
}

func (s *stage) try(ctx context.Context, item Item) (out Item, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &RecoveryError{PanicValue: r}
		}
	}()
	return s.transform(ctx, item)
}
