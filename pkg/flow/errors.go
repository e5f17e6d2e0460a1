package flow

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrInvalidConfig is returned for a bad stage name or factory.
	ErrInvalidConfig = errors.New("flow: invalid config")
	// ErrEmptyPipeline is returned by Build when no stage was added.
	ErrEmptyPipeline = errors.New("flow: cannot build engine with empty pipeline, add at least one stage")
	// ErrStageFailure matches every *StageFailure.
	ErrStageFailure = errors.New("flow: stage failed")
	// ErrChannelClosed is returned when writing to or closing a closed Channel.
	ErrChannelClosed = errors.New("flow: channel closed")
)

// StageFailure reports the item a stage transform failed on.
type StageFailure struct {
	Stage  string
	ItemID int
	Err    error
}

func (e *StageFailure) Error() string {
	return fmt.Sprintf("flow: stage %q failed on item %d: %v", e.Stage, e.ItemID, e.Err)
}

func (e *StageFailure) Unwrap() error {
	return e.Err
}

func (e *StageFailure) Is(target error) bool {
	return target == ErrStageFailure
}

// RecoveryError wraps a value a transform panicked with.
type RecoveryError struct {
	PanicValue any
}

func (e *RecoveryError) Error() string {
	return fmt.Sprintf("panic recovered: %v", e.PanicValue)
}

func invalidConfig(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidConfig, fmt.Sprintf(format, args...))
}

// IsCancellationError reports whether err comes from a cancelled or expired
// context rather than from a stage.
func IsCancellationError(err error) bool {
	return errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled)
}
