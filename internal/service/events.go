package service

import "sync"

// EventType defines the type of event
type EventType string

const (
	EventSweepStarted    EventType = "sweep_started"
	EventHostClassified  EventType = "host_classified"
	EventDiscoveryFailed EventType = "discovery_failed"
	EventSweepCompleted  EventType = "sweep_completed"
)

// Event represents something that happened during a sweep
type Event struct {
	Type    EventType   `json:"type"`
	SweepID string      `json:"sweep_id"`
	Payload interface{} `json:"payload,omitempty"`
}

// SweepStartedPayload accompanies EventSweepStarted
type SweepStartedPayload struct {
	Target string `json:"target"`
	Force  bool   `json:"force"`
}

// DiscoveryFailedPayload accompanies EventDiscoveryFailed
type DiscoveryFailedPayload struct {
	Target string `json:"target"`
	Error  string `json:"error"`
}

// SweepCompletedPayload accompanies EventSweepCompleted
type SweepCompletedPayload struct {
	Target        string `json:"target"`
	Hosts         int    `json:"hosts"`
	Cached        int    `json:"cached"`
	Skipped       int    `json:"skipped"`
	PersistErrors int    `json:"persist_errors"`
	DurationMS    int64  `json:"duration_ms"`
}

// EventBus allows publishing and subscribing to events
type EventBus struct {
	mu          sync.RWMutex
	subscribers []chan<- Event
}

// NewEventBus creates a new event bus
func NewEventBus() *EventBus {
	return &EventBus{
		subscribers: make([]chan<- Event, 0),
	}
}

// Subscribe adds a subscriber to receive events
func (eb *EventBus) Subscribe(ch chan<- Event) {
	eb.mu.Lock()
	defer eb.mu.Unlock()
	eb.subscribers = append(eb.subscribers, ch)
}

// Unsubscribe removes a subscriber. The channel is not closed.
func (eb *EventBus) Unsubscribe(ch chan<- Event) {
	eb.mu.Lock()
	defer eb.mu.Unlock()
	for i, sub := range eb.subscribers {
		if sub == ch {
			eb.subscribers = append(eb.subscribers[:i], eb.subscribers[i+1:]...)
			return
		}
	}
}

// Publish sends an event to all subscribers
func (eb *EventBus) Publish(event Event) {
	if eb == nil {
		return
	}
	eb.mu.RLock()
	defer eb.mu.RUnlock()
	for _, ch := range eb.subscribers {
		select {
		case ch <- event:
		default:
			// Subscriber is slow, skip
		}
	}
}
