package bus

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// Waiter resolves once: with the payload of the next delivery of its topic,
// or with an error when the timeout fires or the wait is abandoned.
type Waiter struct {
	bus   *Bus
	topic Topic

	mu      sync.Mutex
	sub     Subscription
	timer   *time.Timer
	done    chan struct{}
	payload any
	err     error
}

// WaitFor registers a one-shot handler for topic and returns its Waiter.
// The registration is in place when WaitFor returns, so an event dispatched
// right after the call is observed. A timeout <= 0 uses Config.WaitTimeout.
// On timeout the handler is removed; a later dispatch of topic does not
// resolve the Waiter.
func (b *Bus) WaitFor(topic Topic, timeout time.Duration) *Waiter {
	if timeout <= 0 {
		timeout = b.config.WaitTimeout
	}
	w := &Waiter{bus: b, topic: topic, done: make(chan struct{})}

	w.mu.Lock()
	defer w.mu.Unlock()
	w.sub = b.SubscribeOnce(topic, func(payload any) {
		w.resolve(payload, nil)
	})
	w.timer = time.AfterFunc(timeout, func() {
		b.Unsubscribe(w.sub)
		w.resolve(nil, fmt.Errorf("%w: %q after %s", ErrTimeout, topic, timeout))
	})
	return w
}

func (w *Waiter) resolve(payload any, err error) bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	select {
	case <-w.done:
		return false
	default:
	}
	w.payload, w.err = payload, err
	w.timer.Stop()
	close(w.done)
	return true
}

// Done is closed once the Waiter has resolved.
func (w *Waiter) Done() <-chan struct{} {
	return w.done
}

// Wait blocks until the Waiter resolves or ctx is done. Abandoning the wait
// through ctx removes the handler as a timeout would.
func (w *Waiter) Wait(ctx context.Context) (any, error) {
	select {
	case <-w.done:
	case <-ctx.Done():
		if w.resolve(nil, ctx.Err()) {
			w.bus.Unsubscribe(w.sub)
		}
		<-w.done
	}
	return w.payload, w.err
}
