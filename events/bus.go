package events

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/sirupsen/logrus"
)

// Handler processes one event.
type Handler interface {
	Handle(ctx context.Context, event Event) error
}

// HandlerFunc is a function adapter for Handler.
type HandlerFunc func(ctx context.Context, event Event) error

func (f HandlerFunc) Handle(ctx context.Context, event Event) error {
	return f(ctx, event)
}

// Stats contains bus counters.
type Stats struct {
	Emitted   uint64
	Delivered uint64
	Failed    uint64
}

type queued struct {
	ctx   context.Context
	event Event
}

// Bus dispatches events synchronously to the handlers subscribed to their
// kind, in registration order. Emit returns once every handler of the event
// has run. An event emitted by a handler, with the context it was given, is
// queued and handled after the current event's handlers have all returned.
// Top-level emits from other goroutines wait for the dispatch in progress.
type Bus struct {
	mu       sync.Mutex
	handlers map[Kind][]Handler
	queue    []queued

	draining bool

	// dispatching is held by the goroutine draining the queue.
	dispatching sync.Mutex

	emitted   atomic.Uint64
	delivered atomic.Uint64
	failed    atomic.Uint64
}

// dispatchKey marks contexts handed to handlers during a dispatch.
type dispatchKey struct{}

func NewBus() *Bus {
	return &Bus{handlers: make(map[Kind][]Handler)}
}

// Subscribe registers h for every event of the given kind.
func (b *Bus) Subscribe(kind Kind, h Handler) {
	b.mu.Lock()
	b.handlers[kind] = append(b.handlers[kind], h)
	b.mu.Unlock()
}

// SubscribeFunc registers fn for every event of the given kind.
func (b *Bus) SubscribeFunc(kind Kind, fn HandlerFunc) {
	b.Subscribe(kind, fn)
}

// On registers a typed handler for the variant T.
func On[T Event](b *Bus, fn func(ctx context.Context, event T) error) {
	var zero T
	b.Subscribe(zero.Kind(), HandlerFunc(func(ctx context.Context, event Event) error {
		typed, ok := event.(T)
		if !ok {
			return nil
		}
		return fn(ctx, typed)
	}))
}

// Emit delivers event to its subscribers. Emitting an event nobody listens to
// is a no-op. Handlers receive a context that is not cancelled with ctx.
func (b *Bus) Emit(ctx context.Context, event Event) {
	if event == nil {
		return
	}
	b.emitted.Add(1)

	if ctx.Value(dispatchKey{}) == b {
		b.mu.Lock()
		if b.draining {
			b.queue = append(b.queue, queued{ctx: ctx, event: event})
			b.mu.Unlock()
			return
		}
		b.mu.Unlock()
	}

	b.dispatching.Lock()
	defer b.dispatching.Unlock()

	dctx := context.WithValue(context.WithoutCancel(ctx), dispatchKey{}, b)
	b.mu.Lock()
	b.draining = true
	b.queue = append(b.queue, queued{ctx: dctx, event: event})
	for len(b.queue) > 0 {
		next := b.queue[0]
		b.queue[0] = queued{}
		b.queue = b.queue[1:]
		handlers := b.handlers[next.event.Kind()]
		b.mu.Unlock()

		b.dispatch(next.ctx, next.event, handlers)

		b.mu.Lock()
	}
	b.queue = nil
	b.draining = false
	b.mu.Unlock()
}

// Stats returns a snapshot of the bus counters.
func (b *Bus) Stats() Stats {
	return Stats{
		Emitted:   b.emitted.Load(),
		Delivered: b.delivered.Load(),
		Failed:    b.failed.Load(),
	}
}

func (b *Bus) dispatch(ctx context.Context, event Event, handlers []Handler) {
	for i, h := range handlers {
		if err := b.invoke(ctx, event, h); err != nil {
			b.failed.Add(1)
			logrus.WithFields(logrus.Fields{
				"event":   event.Name(),
				"handler": i,
			}).WithError(err).Warn("Event handler failed")
			continue
		}
		b.delivered.Add(1)
	}
}

func (b *Bus) invoke(ctx context.Context, event Event, h Handler) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler panicked: %v", r)
		}
	}()
	return h.Handle(ctx, event)
}
