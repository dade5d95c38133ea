// Package events carries sequenced job progress to subscribers without tying
// the orchestrator to a particular notification mechanism.
package events

import (
	"sync"
	"time"
)

// Type classifies messages emitted during variation jobs.
type Type string

const (
	TypeStatus   Type = "status"
	TypeProgress Type = "progress"
	TypeResult   Type = "result"
	TypeError    Type = "error"
)

// Event is a sequenced payload consumed by pollers and stream subscribers.
type Event struct {
	Seq       int64     `json:"seq"`
	Timestamp time.Time `json:"timestamp"`
	JobID     string    `json:"jobId"`
	Type      Type      `json:"type"`
	// VariationIndex is 1-based and monotonically non-decreasing within a job.
	VariationIndex int     `json:"variationIndex,omitempty"`
	Percent        float64 `json:"percent,omitempty"`
	Status         string  `json:"status,omitempty"`
	Message        string  `json:"message,omitempty"`
}

// Bus stores recent events for incremental reads and fans them out to live
// subscriber channels.
type Bus struct {
	mu          sync.RWMutex
	nextSeq     int64
	maxEvents   int
	events      []Event
	subscribers map[int]chan Event
	nextSubID   int
}

// NewBus creates a bounded in-memory event buffer.
func NewBus(maxEvents int) *Bus {
	if maxEvents <= 0 {
		maxEvents = 500
	}

	return &Bus{
		maxEvents:   maxEvents,
		events:      make([]Event, 0, maxEvents),
		subscribers: make(map[int]chan Event),
	}
}

// Publish appends one event, assigns sequence and timestamp, and delivers it
// to live subscribers. A slow subscriber loses events rather than blocking the
// publisher.
func (b *Bus) Publish(event Event) Event {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextSeq++
	event.Seq = b.nextSeq
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}

	b.events = append(b.events, event)
	if len(b.events) > b.maxEvents {
		trim := len(b.events) - b.maxEvents
		b.events = append([]Event(nil), b.events[trim:]...)
	}

	for _, ch := range b.subscribers {
		select {
		case ch <- event:
		default:
		}
	}

	return event
}

// Since returns events with sequence strictly greater than seq.
func (b *Bus) Since(seq int64) []Event {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if len(b.events) == 0 {
		return nil
	}

	out := make([]Event, 0, len(b.events))
	for _, event := range b.events {
		if event.Seq > seq {
			out = append(out, event)
		}
	}
	return out
}

// Subscribe returns a buffered channel of future events and a cancel function
// that must be called to release it.
func (b *Bus) Subscribe() (<-chan Event, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.nextSubID
	b.nextSubID++

	ch := make(chan Event, 256)
	b.subscribers[id] = ch

	cancel := func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if sub, ok := b.subscribers[id]; ok {
			delete(b.subscribers, id)
			close(sub)
		}
	}
	return ch, cancel
}
