package bus

import (
	"context"
	"log"
	"sync"
)

// Transport pushes hub events beyond the local process and relays remote
// ones back in. The in-process case needs no transport at all: the hub's
// own subscriber registry is the native event bus.
type Transport interface {
	// Start opens the transport and begins delivering remote events
	// through deliver. Called at most once per hub lifetime.
	Start(ctx context.Context, deliver func(Event)) error
	// Publish pushes a locally published event to remote consumers.
	Publish(ctx context.Context, ev Event) error
	Close() error
}

// Hub is the fan-out point between the pipelines and their consumers.
// Publish invokes every live subscriber synchronously in subscription
// order; a panicking subscriber is isolated so the rest still receive the
// event. The transport, when one is configured, is set up lazily on the
// first Subscribe and exactly once, and torn down only by Close.
type Hub struct {
	ctx       context.Context
	transport Transport

	mu      sync.Mutex
	subs    []*subscriber
	started bool
	closed  bool
}

type subscriber struct {
	fn func(Event)
}

// New returns a hub. transport may be nil for in-process-only fan-out.
// ctx bounds the transport's lifetime.
func New(ctx context.Context, transport Transport) *Hub {
	if ctx == nil {
		ctx = context.Background()
	}
	return &Hub{ctx: ctx, transport: transport}
}

// Subscribe registers fn and returns its unsubscribe function, which is
// safe to call repeatedly and never affects other subscribers.
func (h *Hub) Subscribe(fn func(Event)) func() {
	sub := &subscriber{fn: fn}

	h.mu.Lock()
	h.subs = append(h.subs, sub)
	h.startTransportLocked()
	h.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			h.mu.Lock()
			defer h.mu.Unlock()
			for i, have := range h.subs {
				if have == sub {
					h.subs = append(h.subs[:i], h.subs[i+1:]...)
					break
				}
			}
		})
	}
}

// Publish delivers ev to every subscriber, then forwards it to the
// transport. Local delivery is synchronous and ordered.
func (h *Hub) Publish(ev Event) {
	h.dispatch(ev)

	h.mu.Lock()
	t := h.transport
	started := h.started
	h.mu.Unlock()
	if t == nil || !started {
		return
	}
	if err := t.Publish(h.ctx, ev); err != nil {
		log.Printf("bus: transport publish failed: %v", err)
	}
}

// Close tears the transport down. Subscribers stay registered; a closed
// hub still fans out locally.
func (h *Hub) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return nil
	}
	h.closed = true
	if h.transport == nil || !h.started {
		return nil
	}
	return h.transport.Close()
}

// dispatch invokes subscribers against a snapshot of the registry so a
// callback may subscribe or unsubscribe without deadlocking.
func (h *Hub) dispatch(ev Event) {
	h.mu.Lock()
	subs := make([]*subscriber, len(h.subs))
	copy(subs, h.subs)
	h.mu.Unlock()

	for _, sub := range subs {
		invoke(sub.fn, ev)
	}
}

func invoke(fn func(Event), ev Event) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("bus: subscriber panicked: %v", r)
		}
	}()
	fn(ev)
}

// startTransportLocked opens the transport on first use. Repeated
// Subscribe calls are no-ops here; a failed start is logged and the hub
// degrades to in-process delivery.
func (h *Hub) startTransportLocked() {
	if h.transport == nil || h.started || h.closed {
		return
	}
	h.started = true
	if err := h.transport.Start(h.ctx, h.dispatch); err != nil {
		log.Printf("bus: transport start failed, running in-process only: %v", err)
		h.transport = nil
		h.started = false
	}
}
