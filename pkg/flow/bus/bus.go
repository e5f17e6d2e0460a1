package bus

import (
	"context"
	"log/slog"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
)

type entry struct {
	topic   Topic
	payload any
}

type subscriber struct {
	id      uuid.UUID
	handler Handler
	once    bool
	fired   atomic.Bool
}

// Bus is a process-local publish/subscribe broker. Dispatched events are
// queued and delivered later, in enqueue order, by a flush task handed to the
// configured Scheduler.
type Bus struct {
	config Config

	mu        sync.Mutex
	queue     []entry
	scheduled bool
	accepted  uint64 // entries ever enqueued
	settled   uint64 // entries delivered or dropped
	progress  chan struct{}

	subsMu sync.RWMutex
	subs   map[Topic][]*subscriber

	dispatched atomic.Uint64
	delivered  atomic.Uint64
	dropped    atomic.Uint64
	panics     atomic.Uint64
}

// New creates a Bus with the given configuration.
func New(config Config) *Bus {
	return &Bus{
		config:   config.defaults(),
		progress: make(chan struct{}),
		subs:     make(map[Topic][]*subscriber),
	}
}

// Logger returns the logger the bus was configured with.
func (b *Bus) Logger() *slog.Logger {
	return b.config.Logger
}

// Subscribe registers handler for topic. Handlers of one topic are invoked in
// registration order.
func (b *Bus) Subscribe(topic Topic, handler Handler) Subscription {
	return b.subscribe(topic, handler, false)
}

// SubscribeOnce registers handler for the next delivery of topic only.
func (b *Bus) SubscribeOnce(topic Topic, handler Handler) Subscription {
	return b.subscribe(topic, handler, true)
}

func (b *Bus) subscribe(topic Topic, handler Handler, once bool) Subscription {
	if handler == nil {
		panic("bus: nil handler")
	}
	s := &subscriber{id: uuid.New(), handler: handler, once: once}

	b.subsMu.Lock()
	defer b.subsMu.Unlock()
	b.subs[topic] = append(b.subs[topic], s)
	return Subscription{id: s.id, topic: topic}
}

// Unsubscribe removes the handler behind sub. It reports whether the handler
// was still registered.
func (b *Bus) Unsubscribe(sub Subscription) bool {
	return b.remove(sub.topic, sub.id)
}

func (b *Bus) remove(topic Topic, id uuid.UUID) bool {
	b.subsMu.Lock()
	defer b.subsMu.Unlock()

	subs := b.subs[topic]
	i := slices.IndexFunc(subs, func(s *subscriber) bool { return s.id == id })
	if i < 0 {
		return false
	}
	subs = slices.Delete(slices.Clone(subs), i, i+1)
	if len(subs) == 0 {
		delete(b.subs, topic)
	} else {
		b.subs[topic] = subs
	}
	return true
}

// SubscriberCount returns the number of handlers registered for topic.
func (b *Bus) SubscriberCount(topic Topic) int {
	b.subsMu.RLock()
	defer b.subsMu.RUnlock()
	return len(b.subs[topic])
}

// Dispatch enqueues an event for deferred delivery and returns immediately.
// Handlers never run inside Dispatch.
//
// The queue is bounded by Config.RetentionBound. When it is full the oldest
// undelivered entry is discarded to make room, so under sustained overload
// subscribers can silently miss events. The bound keeps memory in check; it
// is not a delivery guarantee.
func (b *Bus) Dispatch(topic Topic, payload any) {
	b.dispatched.Add(1)

	b.mu.Lock()
	if len(b.queue) >= b.config.RetentionBound {
		evicted := b.queue[0]
		b.queue[0] = entry{}
		b.queue = b.queue[1:]
		b.settled++
		b.dropped.Add(1)
		b.config.Logger.Debug("bus: dropped oldest pending event",
			"topic", evicted.topic, "bound", b.config.RetentionBound)
	}
	b.queue = append(b.queue, entry{topic: topic, payload: payload})
	b.accepted++
	schedule := !b.scheduled
	b.scheduled = true
	b.mu.Unlock()

	if schedule {
		b.config.Scheduler.Schedule(b.flush)
	}
}

// flush delivers the entries pending when it starts. Entries dispatched
// meanwhile are left for a fresh flush so that a cycle always terminates.
func (b *Bus) flush() {
	b.mu.Lock()
	batch := b.queue
	b.queue = nil
	b.mu.Unlock()

	for _, e := range batch {
		b.deliver(e)
	}

	b.mu.Lock()
	b.settled += uint64(len(batch))
	close(b.progress)
	b.progress = make(chan struct{})
	again := len(b.queue) > 0
	if !again {
		b.scheduled = false
	}
	b.mu.Unlock()

	if again {
		b.config.Scheduler.Schedule(b.flush)
	}
}

func (b *Bus) deliver(e entry) {
	b.subsMu.RLock()
	subs := slices.Clone(b.subs[e.topic])
	b.subsMu.RUnlock()

	for _, s := range subs {
		if s.once {
			if !s.fired.CompareAndSwap(false, true) {
				continue
			}
			b.remove(e.topic, s.id)
		}
		b.invoke(e, s)
	}
	b.delivered.Add(1)
}

func (b *Bus) invoke(e entry, s *subscriber) {
	defer func() {
		if r := recover(); r != nil {
			b.panics.Add(1)
			b.config.Logger.Error("bus: handler panicked",
				"topic", e.topic, "subscription", s.id, "panic", r)
		}
	}()
	s.handler(e.payload)
}

// Sync blocks until every entry dispatched before the call has been delivered
// or dropped. It must not be called from a handler, and with a
// ManualScheduler it only returns once the pending tasks have been run.
func (b *Bus) Sync(ctx context.Context) error {
	b.mu.Lock()
	target := b.accepted
	b.mu.Unlock()

	for {
		b.mu.Lock()
		if b.settled >= target {
			b.mu.Unlock()
			return nil
		}
		progress := b.progress
		b.mu.Unlock()

		select {
		case <-progress:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// Stats returns a snapshot of the bus counters.
func (b *Bus) Stats() Stats {
	b.mu.Lock()
	pending := len(b.queue)
	b.mu.Unlock()

	return Stats{
		Dispatched: b.dispatched.Load(),
		Delivered:  b.delivered.Load(),
		Dropped:    b.dropped.Load(),
		Panics:     b.panics.Load(),
		Pending:    pending,
	}
}
