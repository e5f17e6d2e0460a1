package flow

import (
	"context"
	"io"
	"iter"
	"log/slog"
	"sync"

	"github.com/google/uuid"
	"github.com/ib-77/chatflow/pkg/flow/core"
)

// Channel is the continuous mode of an Engine: texts are written one at a
// time and the resulting items are read back in write order.
//
// A Channel must be closed, or its context cancelled, to release its
// goroutines.
type Channel struct {
	runID  uuid.UUID
	ctx    context.Context
	cancel context.CancelFunc
	logger *slog.Logger

	mu     sync.Mutex
	nextID int
	closed bool
	input  chan Result[Item]

	results chan Item
	done    chan struct{}
	err     error
}

// OpenChannel starts a run fed by the returned Channel. Cancelling ctx
// terminates the channel with ctx's error.
func (e *Engine) OpenChannel(ctx context.Context) *Channel {
	runID := uuid.New()
	ctx, cancel := context.WithCancel(core.WithRunID(ctx, runID))

	c := &Channel{
		runID:   runID,
		ctx:     ctx,
		cancel:  cancel,
		logger:  e.logger.With("run", runID),
		input:   make(chan Result[Item]),
		results: make(chan Item),
		done:    make(chan struct{}),
	}

	c.logger.Debug("flow: channel opened")
	go c.pump(e.run(ctx, c.input))
	return c
}

func (c *Channel) RunID() uuid.UUID {
	return c.runID
}

func (c *Channel) pump(out <-chan Result[Item]) {
	var err error

loop:
	for r := range out {
		if !r.IsSuccess() {
			err = r.Err()
			break
		}
		select {
		case c.results <- r.Value():
		case <-c.ctx.Done():
			break loop
		}
	}
	if err == nil {
		err = c.ctx.Err()
	}

	c.err = err
	c.cancel()
	close(c.done)
	close(c.results)

	if err != nil {
		c.logger.Warn("flow: channel terminated", "error", err)
	} else {
		c.logger.Debug("flow: channel drained")
	}
}

// Write submits text under the next id. It blocks until the first stage
// accepts the item. After Close it returns ErrChannelClosed; once the run has
// terminated it returns the error that terminated it.
func (c *Channel) Write(ctx context.Context, text string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return ErrChannelClosed
	}
	if c.ctx.Err() != nil {
		<-c.done
		return c.terminalErr()
	}

	select {
	case c.input <- Success(NewItem(c.nextID, text)):
		c.nextID++
		return nil
	case <-c.ctx.Done():
		<-c.done
		return c.terminalErr()
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *Channel) terminalErr() error {
	if c.err != nil {
		return c.err
	}
	return ErrChannelClosed
}

// Close ends the input. Items already written still drain to the output,
// which then ends.
func (c *Channel) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return ErrChannelClosed
	}
	c.closed = true
	close(c.input)
	return nil
}

// Read returns the next item. At the end of the output it returns io.EOF,
// or the error that terminated the run.
func (c *Channel) Read(ctx context.Context) (Item, error) {
	select {
	case item, ok := <-c.results:
		if !ok {
			if c.err != nil {
				return Item{}, c.err
			}
			return Item{}, io.EOF
		}
		return item, nil
	case <-ctx.Done():
		return Item{}, ctx.Err()
	}
}

// Results exposes the output. It is closed at the end of the run; Err then
// tells a clean end from a failure.
func (c *Channel) Results() <-chan Item {
	return c.results
}

// Done is closed when the run has terminated.
func (c *Channel) Done() <-chan struct{} {
	return c.done
}

// Err returns the error that terminated the run, or nil while the run is
// active or after a clean end.
func (c *Channel) Err() error {
	select {
	case <-c.done:
		return c.err
	default:
		return nil
	}
}

// All iterates the output. A failure is yielded last, with a zero Item.
func (c *Channel) All() iter.Seq2[Item, error] {
	return func(yield func(Item, error) bool) {
		for item := range c.results {
			if !yield(item, nil) {
				return
			}
		}
		if err := c.Err(); err != nil {
			yield(Item{}, err)
		}
	}
}
