// Package events fans engine state changes out to in-process subscribers
// such as the WebSocket hub and the NATS bridge.
package events

import (
	"encoding/json"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
)

// EventType identifies the kind of event.
type EventType string

const (
	// AreaStateChanged follows every applied command.
	AreaStateChanged EventType = "area.state_changed"
	// EffectStarted is published when an effect is bound to an area.
	EffectStarted EventType = "effect.started"
	// EffectCompleted is published when an effect finishes on its own.
	EffectCompleted EventType = "effect.completed"
)

// Event is a single event emitted by a producer.
type Event struct {
	ID        string          `json:"id"`
	Type      EventType       `json:"type"`
	Area      string          `json:"area,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
	Data      json.RawMessage `json:"data"`
}

// NewEvent creates an Event for an area, marshaling data to JSON.
// If marshaling fails the Data field is set to null.
func NewEvent(t EventType, area string, data any) Event {
	raw, err := json.Marshal(data)
	if err != nil {
		raw = []byte("null")
	}
	return Event{
		ID:        uuid.NewString(),
		Type:      t,
		Area:      area,
		Timestamp: time.Now(),
		Data:      raw,
	}
}

// SubscriberFunc is a callback invoked for each event.
// Implementations must not block: they run on the engine's tick.
type SubscriberFunc func(Event)

// Bus is a synchronous fan-out event bus.
type Bus struct {
	mu          sync.RWMutex
	subscribers map[int]SubscriberFunc
	nextID      int
}

// NewBus creates a new event bus.
func NewBus() *Bus {
	return &Bus{
		subscribers: make(map[int]SubscriberFunc),
	}
}

// Subscribe registers a callback and returns an unsubscribe function.
func (b *Bus) Subscribe(fn SubscriberFunc) func() {
	b.mu.Lock()
	id := b.nextID
	b.nextID++
	b.subscribers[id] = fn
	b.mu.Unlock()

	return func() {
		b.mu.Lock()
		delete(b.subscribers, id)
		b.mu.Unlock()
	}
}

// SubscribeTypes registers a callback that only sees the listed types.
func (b *Bus) SubscribeTypes(fn SubscriberFunc, types ...EventType) func() {
	return b.Subscribe(func(e Event) {
		if slices.Contains(types, e.Type) {
			fn(e)
		}
	})
}

// Publish sends an event to all current subscribers.
func (b *Bus) Publish(e Event) {
	b.mu.RLock()
	subs := make([]SubscriberFunc, 0, len(b.subscribers))
	for _, fn := range b.subscribers {
		subs = append(subs, fn)
	}
	b.mu.RUnlock()

	for _, fn := range subs {
		fn(e)
	}
}

// Len returns the number of subscribers.
func (b *Bus) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subscribers)
}
