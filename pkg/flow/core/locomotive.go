package core

import (
	"context"
	"sync"
)

// CancellationHandlers are invoked when ctx ends while a locomotive holds a
// value it could not hand on.
type CancellationHandlers[In, Out any] struct {
	OnCancelUnprocessed func(ctx context.Context, unprocessed In)
	OnCancelProcessed   func(ctx context.Context, in In, processed Out)
}

// Locomotive pulls values from inputCh one at a time, runs engine on each and
// hands the outcome to outCh before it pulls the next one. The handoff is the
// only buffer between stages, so a slow consumer holds the locomotive back.
//
// Engine reports last=true to stop the locomotive right after its outcome has
// been handed on.
func Locomotive[In, Out any](ctx context.Context, inputCh <-chan In, outCh chan<- Out,
	engine func(ctx context.Context, in In) (out Out, last bool),
	handlers CancellationHandlers[In, Out], wg *sync.WaitGroup) {
	defer wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case in, ok := <-inputCh:
			if !ok {
				return
			}

			if ctx.Err() != nil {
				if handlers.OnCancelUnprocessed != nil {
					handlers.OnCancelUnprocessed(ctx, in)
				}
				return
			}

			out, last := engine(ctx, in)

			select {
			case <-ctx.Done():
				if handlers.OnCancelProcessed != nil {
					handlers.OnCancelProcessed(ctx, in, out)
				}
				return
			case outCh <- out:
			}

			if last {
				return
			}
		}
	}
}

// Turnout runs lines locomotives over inputCh and returns their shared output
// channel, closed once every locomotive has stopped. With a single line the
// output keeps the input order.
func Turnout[In, Out any](ctx context.Context, inputCh <-chan In,
	engine func(ctx context.Context, in In) (out Out, last bool),
	handlers CancellationHandlers[In, Out], lines int) <-chan Out {

	out := make(chan Out)
	wg := &sync.WaitGroup{}

	for range max(lines, 1) {
		wg.Add(1)
		go Locomotive(ctx, inputCh, out, engine, handlers, wg)
	}

	go func() {
		wg.Wait()
		close(out)
	}()

	return out
}
