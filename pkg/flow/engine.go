package flow

import (
	"context"
	"log/slog"
	"slices"

	"github.com/google/uuid"
	"github.com/ib-77/chatflow/pkg/flow/bus"
	"github.com/ib-77/chatflow/pkg/flow/core"
)

// Engine is an assembled pipeline: its stages in registration order and the
// bus they publish to. It is immutable and safe for concurrent use.
type Engine struct {
	id     uuid.UUID
	bus    *bus.Bus
	stages []Stage
	names  []string
	logger *slog.Logger
}

func (e *Engine) ID() uuid.UUID {
	return e.id
}

// Bus returns the bus owned by the engine.
func (e *Engine) Bus() *bus.Bus {
	return e.bus
}

// Stages returns the registered stage names in order.
func (e *Engine) Stages() []string {
	return slices.Clone(e.names)
}

func (e *Engine) run(ctx context.Context, in <-chan Result[Item]) <-chan Result[Item] {
	out := in
	for _, s := range e.stages {
		out = s.Run(ctx, out)
	}
	return out
}

// ProcessBatch runs texts through every stage and returns the resulting items
// in input order; result i has id i. The first stage failure aborts the batch
// and is returned.
func (e *Engine) ProcessBatch(ctx context.Context, texts []string) ([]Item, error) {
	runID := uuid.New()
	ctx, cancel := context.WithCancel(core.WithRunID(ctx, runID))
	defer cancel()

	inputs := make([]Result[Item], len(texts))
	for i, text := range texts {
		inputs[i] = Success(NewItem(i, text))
	}

	e.logger.Debug("flow: batch started", "run", runID, "items", len(texts))

	results := core.FromChanMany(ctx, e.run(ctx, core.ToChanMany(ctx, inputs)))

	items := make([]Item, 0, len(results))
	for _, r := range results {
		if !r.IsSuccess() {
			e.logger.Warn("flow: batch aborted", "run", runID, "error", r.Err())
			return nil, r.Err()
		}
		items = append(items, r.Value())
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	e.logger.Debug("flow: batch finished", "run", runID, "items", len(items))
	return items, nil
}
