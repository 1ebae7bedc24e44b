package core

import (
	"context"
	"slices"
	"sync"

	"github.com/rs/zerolog"
)

// Hub fans domain events out to listeners. Emit never blocks; a single dispatcher
// goroutine started by Run delivers events in emission order, so listeners may call
// back into the gateway without stalling frame processing. Listeners share that
// goroutine: a slow listener delays every later event, so long work belongs elsewhere.
type Hub struct {
	log *zerolog.Logger

	mu        sync.Mutex
	listeners map[string][]listener
	queue     []Event
	nextID    uint64
	wake      chan struct{}
}

type listener struct {
	id uint64
	fn func(Event)
}

// anyEvent keys listeners that receive every event.
const anyEvent = ""

// NewHub creates a hub; call Run to start delivery.
func NewHub(logger *zerolog.Logger) *Hub {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &Hub{
		log:       logger,
		listeners: make(map[string][]listener),
		wake:      make(chan struct{}, 1),
	}
}

// On registers fn for events of type E and returns a function that removes it.
func On[E Event](h *Hub, fn func(E)) func() {
	var zero E
	return h.add(zero.Name(), func(ev Event) {
		if e, ok := ev.(E); ok {
			fn(e)
		}
	})
}

// OnAny registers fn for every event.
func (h *Hub) OnAny(fn func(Event)) func() {
	return h.add(anyEvent, fn)
}

// Emit queues ev for delivery.
func (h *Hub) Emit(ev Event) {
	h.mu.Lock()
	h.queue = append(h.queue, ev)
	h.mu.Unlock()

	select {
	case h.wake <- struct{}{}:
	default:
	}
}

// Run delivers queued events until ctx is done.
func (h *Hub) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-h.wake:
		}
		for {
			ev, ok := h.pop()
			if !ok {
				break
			}
			h.dispatch(ev)
		}
	}
}

func (h *Hub) add(name string, fn func(Event)) func() {
	h.mu.Lock()
	h.nextID++
	id := h.nextID
	h.listeners[name] = append(h.listeners[name], listener{id: id, fn: fn})
	h.mu.Unlock()

	return func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		h.listeners[name] = slices.DeleteFunc(h.listeners[name], func(l listener) bool { return l.id == id })
	}
}

func (h *Hub) pop() (Event, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.queue) == 0 {
		return nil, false
	}
	ev := h.queue[0]
	h.queue[0] = nil
	h.queue = h.queue[1:]
	return ev, true
}

func (h *Hub) dispatch(ev Event) {
	h.mu.Lock()
	targets := slices.Concat(h.listeners[ev.Name()], h.listeners[anyEvent])
	h.mu.Unlock()

	for _, l := range targets {
		h.call(l, ev)
	}
}

func (h *Hub) call(l listener, ev Event) {
	defer func() {
		if r := recover(); r != nil {
			h.log.Error().Str("event", ev.Name()).Interface("panic", r).Msg("event listener panicked")
		}
	}()
	l.fn(ev)
}
