// Package events provides the event bus connecting the wizard core to its
// consumers (CLI progress output and the interactive terminal UI).
package events

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/openvstorage/vpool-wizard/internal/constants"
)

// EventType defines the types of events that can be emitted
type EventType string

const (
	EventFieldChanged       EventType = "field_changed"
	EventSelectionChanged   EventType = "selection_changed"
	EventScopeReset         EventType = "scope_reset"
	EventDiscoveryStarted   EventType = "discovery_started"
	EventDiscoveryProgress  EventType = "discovery_progress"
	EventDiscoveryCompleted EventType = "discovery_completed"
	EventDiscoveryFailed    EventType = "discovery_failed"
)

// Event is the base interface for all events
type Event interface {
	Type() EventType
	Timestamp() time.Time
}

// BaseEvent provides common event fields
type BaseEvent struct {
	EventType EventType
	Time      time.Time
}

func (e BaseEvent) Type() EventType      { return e.EventType }
func (e BaseEvent) Timestamp() time.Time { return e.Time }

// FieldChangedEvent is published whenever a raw wizard field mutates.
type FieldChangedEvent struct {
	BaseEvent
	Scope string
	Field string
}

// SelectionChangedEvent is published when the chosen backend or preset of a
// scope changes (including auto-repair to the first available preset).
type SelectionChangedEvent struct {
	BaseEvent
	Scope       string
	BackendGUID string
	PresetName  string
}

// ScopeResetEvent is published when a scope's backend list and selection are
// invalidated after a connection-parameter change.
type ScopeResetEvent struct {
	BaseEvent
	Scope string
}

// DiscoveryEvent carries the progress of a backend discovery run.
type DiscoveryEvent struct {
	BaseEvent
	Scope      string
	Generation uint64
	Done       int // detail calls settled so far
	Total      int // detail calls issued
	Error      error
}

// Bus manages event subscriptions and publishing.
type Bus struct {
	subscribers   map[EventType][]chan Event
	all           []chan Event // subscribers to all events
	mu            sync.RWMutex
	bufferSize    int
	closed        bool
	droppedEvents atomic.Int64 // count of events dropped due to full buffers
}

// NewBus creates a new event bus with the specified per-subscriber buffer.
func NewBus(bufferSize int) *Bus {
	if bufferSize <= 0 {
		bufferSize = constants.EventBusDefaultBuffer
	}
	if bufferSize > constants.EventBusMaxBuffer {
		bufferSize = constants.EventBusMaxBuffer
	}
	return &Bus{
		subscribers: make(map[EventType][]chan Event),
		all:         make([]chan Event, 0),
		bufferSize:  bufferSize,
	}
}

// Subscribe creates a subscription to a specific event type.
func (b *Bus) Subscribe(eventType EventType) <-chan Event {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		ch := make(chan Event)
		close(ch)
		return ch
	}

	ch := make(chan Event, b.bufferSize)
	b.subscribers[eventType] = append(b.subscribers[eventType], ch)
	return ch
}

// SubscribeAll creates a subscription to all events.
func (b *Bus) SubscribeAll() <-chan Event {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		ch := make(chan Event)
		close(ch)
		return ch
	}

	ch := make(chan Event, b.bufferSize)
	b.all = append(b.all, ch)
	return ch
}

// Publish sends an event to all subscribers. Publishing never blocks: if a
// subscriber's buffer is full the event is dropped and counted.
func (b *Bus) Publish(event Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return
	}

	for _, ch := range b.subscribers[event.Type()] {
		select {
		case ch <- event:
		default:
			b.droppedEvents.Add(1)
		}
	}

	for _, ch := range b.all {
		select {
		case ch <- event:
		default:
			b.droppedEvents.Add(1)
		}
	}
}

// PublishFieldChanged is a convenience method for field mutation events.
func (b *Bus) PublishFieldChanged(scope, field string) {
	b.Publish(&FieldChangedEvent{
		BaseEvent: BaseEvent{EventType: EventFieldChanged, Time: time.Now()},
		Scope:     scope,
		Field:     field,
	})
}

// PublishSelectionChanged is a convenience method for selection events.
func (b *Bus) PublishSelectionChanged(scope, backendGUID, presetName string) {
	b.Publish(&SelectionChangedEvent{
		BaseEvent:   BaseEvent{EventType: EventSelectionChanged, Time: time.Now()},
		Scope:       scope,
		BackendGUID: backendGUID,
		PresetName:  presetName,
	})
}

// PublishScopeReset is a convenience method for scope invalidation events.
func (b *Bus) PublishScopeReset(scope string) {
	b.Publish(&ScopeResetEvent{
		BaseEvent: BaseEvent{EventType: EventScopeReset, Time: time.Now()},
		Scope:     scope,
	})
}

// PublishDiscovery is a convenience method for discovery lifecycle events.
func (b *Bus) PublishDiscovery(eventType EventType, scope string, generation uint64, done, total int, err error) {
	b.Publish(&DiscoveryEvent{
		BaseEvent:  BaseEvent{EventType: eventType, Time: time.Now()},
		Scope:      scope,
		Generation: generation,
		Done:       done,
		Total:      total,
		Error:      err,
	})
}

// Unsubscribe removes a subscription channel from a specific event type.
func (b *Bus) Unsubscribe(eventType EventType, ch <-chan Event) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}

	subscribers := b.subscribers[eventType]
	for i, subCh := range subscribers {
		if subCh == ch {
			subscribers[i] = subscribers[len(subscribers)-1]
			b.subscribers[eventType] = subscribers[:len(subscribers)-1]
			break
		}
	}
}

// Close shuts down the event bus and closes all subscriber channels.
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}
	b.closed = true

	for _, channels := range b.subscribers {
		for _, ch := range channels {
			close(ch)
		}
	}
	for _, ch := range b.all {
		close(ch)
	}
}

// DroppedEventCount returns the number of events dropped due to full buffers.
func (b *Bus) DroppedEventCount() int64 {
	return b.droppedEvents.Load()
}
