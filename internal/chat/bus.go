package chat

import (
	"sync"

	"go.uber.org/zap"
)

// Handler receives one host event.
type Handler func(Event)

// Bus is a synchronous in-process event bus matching the host runtime's
// on/off subscription surface. Emit calls every handler for the event
// type in subscription order before returning; a panicking handler is
// logged and skipped.
type Bus struct {
	mu       sync.Mutex
	handlers map[EventType][]busEntry
	nextID   int
	logger   *zap.Logger
}

type busEntry struct {
	id int
	fn Handler
}

// NewBus returns an empty bus.
func NewBus(logger *zap.Logger) *Bus {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Bus{handlers: map[EventType][]busEntry{}, logger: logger}
}

// On subscribes a handler and returns its unsubscribe function.
func (b *Bus) On(t EventType, fn Handler) func() {
	b.mu.Lock()
	defer b.mu.Unlock()
	id := b.nextID
	b.nextID++
	b.handlers[t] = append(b.handlers[t], busEntry{id: id, fn: fn})
	return func() { b.off(t, id) }
}

func (b *Bus) off(t EventType, id int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	entries := b.handlers[t]
	for i, e := range entries {
		if e.id == id {
			b.handlers[t] = append(entries[:i:i], entries[i+1:]...)
			return
		}
	}
}

// Emit delivers the event synchronously to all subscribers.
func (b *Bus) Emit(ev Event) {
	b.mu.Lock()
	entries := append([]busEntry(nil), b.handlers[ev.Type]...)
	b.mu.Unlock()

	for _, e := range entries {
		func() {
			defer func() {
				if r := recover(); r != nil {
					b.logger.Error("chat event handler panicked",
						zap.String("event", string(ev.Type)), zap.Any("panic", r))
				}
			}()
			e.fn(ev)
		}()
	}
}
