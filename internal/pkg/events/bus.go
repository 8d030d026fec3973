// Package events implements the synchronous publish/subscribe bus that
// decouples the storefront state holders from the rendering boundary.
//
// The bus is deliberately in-process and synchronous: Emit invokes every
// handler registered for the event name before returning, in registration
// order. There is no ordering guarantee across different event names.
package events

import (
	"log/slog"
	"reflect"
	"sync"
)

// Handler receives the payload published with an event.
type Handler func(payload any)

// CatchAllHandler receives every emission with its event name. It exists
// for diagnostics (tracing, debug logging), never for business wiring.
type CatchAllHandler func(event string, payload any)

// Bus routes named events to their subscribed handlers.
type Bus struct {
	mu       sync.Mutex
	handlers map[string][]Handler
	catchAll []CatchAllHandler
	logger   *slog.Logger
}

// NewBus returns an empty bus. The logger records handler panics; it must
// not be nil.
func NewBus(logger *slog.Logger) *Bus {
	return &Bus{
		handlers: make(map[string][]Handler),
		logger:   logger,
	}
}

// On registers a handler for the named event. Multiple handlers per name
// are allowed and run in registration order.
func (b *Bus) On(event string, h Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[event] = append(b.handlers[event], h)
}

// Off removes a previously registered handler for the named event.
// Handlers are matched by function identity, so the same value passed to
// On must be passed to Off. Unknown handlers are ignored.
func (b *Bus) Off(event string, h Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()

	hs := b.handlers[event]
	ptr := reflect.ValueOf(h).Pointer()
	for i, registered := range hs {
		if reflect.ValueOf(registered).Pointer() == ptr {
			b.handlers[event] = append(hs[:i:i], hs[i+1:]...)
			return
		}
	}
}

// OnAll registers a catch-all handler invoked for every emission.
func (b *Bus) OnAll(h CatchAllHandler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.catchAll = append(b.catchAll, h)
}

// Emit invokes every handler currently registered for the event name,
// synchronously and in registration order, then the catch-all handlers.
// A panicking handler is recovered and logged; it never prevents the
// remaining handlers of the same emission from running.
func (b *Bus) Emit(event string, payload any) {
	b.mu.Lock()
	hs := make([]Handler, len(b.handlers[event]))
	copy(hs, b.handlers[event])
	all := make([]CatchAllHandler, len(b.catchAll))
	copy(all, b.catchAll)
	b.mu.Unlock()

	for _, h := range hs {
		b.invoke(event, h, payload)
	}
	for _, h := range all {
		h := h
		b.invoke(event, func(p any) { h(event, p) }, payload)
	}
}

func (b *Bus) invoke(event string, h Handler, payload any) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("event handler panicked",
				slog.String("event", event),
				slog.Any("panic", r),
			)
		}
	}()
	h(payload)
}
