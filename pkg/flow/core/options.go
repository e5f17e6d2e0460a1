package core

import (
	"context"

	"github.com/google/uuid"
)

type OptionKey string

const RunOptionKey OptionKey = "run_options"

// RunOptions describe the run a context belongs to.
type RunOptions struct {
	RunID uuid.UUID
}

func WithRunID(ctx context.Context, runID uuid.UUID) context.Context {
	return context.WithValue(ctx, RunOptionKey, RunOptions{RunID: runID})
}

// GetRunID returns the run id stored in ctx, or uuid.Nil.
func GetRunID(ctx context.Context) uuid.UUID {
	options, ok := ctx.Value(RunOptionKey).(RunOptions)
	if ok {
		return options.RunID
	}
	return uuid.Nil
}
