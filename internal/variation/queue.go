package variation

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"video-variator/internal/engine"
	"video-variator/internal/events"
	"video-variator/internal/params"
)

// ErrItemNotFound is returned when an operation names an unknown queue item.
var ErrItemNotFound = errors.New("queue item not found")

// ErrItemNotPending is returned when removing an item that already started.
var ErrItemNotPending = errors.New("only pending items can be removed")

// Status is a queue item's lifecycle stage.
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusError      Status = "error"
)

// Item is one queued input video and its produced variations.
type Item struct {
	ID         string
	Name       string
	Input      []byte
	Status     Status
	Progress   float64 // 0..100 across all variations of this item
	Variations []*engine.Result
	Err        string
}

// Queue holds batch-mode items. Items advance pending → processing →
// {completed | error}; a failing item never affects its siblings.
type Queue struct {
	mu    sync.Mutex
	items []*Item
}

// NewQueue creates an empty queue.
func NewQueue() *Queue {
	return &Queue{}
}

// Add appends a pending item and returns its snapshot.
func (q *Queue) Add(name string, input []byte) Item {
	q.mu.Lock()
	defer q.mu.Unlock()

	item := &Item{
		ID:     uuid.NewString(),
		Name:   name,
		Input:  input,
		Status: StatusPending,
	}
	q.items = append(q.items, item)
	return *item
}

// Remove deletes an item by ID. Only pending items are removable.
func (q *Queue) Remove(id string) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	for i, item := range q.items {
		if item.ID != id {
			continue
		}
		if item.Status != StatusPending {
			return errors.Wrapf(ErrItemNotPending, "item %s is %s", id, item.Status)
		}
		q.items = append(q.items[:i], q.items[i+1:]...)
		return nil
	}
	return errors.Wrapf(ErrItemNotFound, "id %s", id)
}

// Clear releases every item's results and empties the queue.
func (q *Queue) Clear() {
	q.mu.Lock()
	defer q.mu.Unlock()

	for _, item := range q.items {
		for _, res := range item.Variations {
			res.Release()
		}
	}
	q.items = nil
}

// Items returns snapshots of all queued items, without the input payloads.
func (q *Queue) Items() []Item {
	q.mu.Lock()
	defer q.mu.Unlock()

	out := make([]Item, 0, len(q.items))
	for _, item := range q.items {
		snapshot := *item
		snapshot.Input = nil
		out = append(out, snapshot)
	}
	return out
}

// Get returns a snapshot of one item, including results, by ID.
func (q *Queue) Get(id string) (Item, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	for _, item := range q.items {
		if item.ID == id {
			snapshot := *item
			snapshot.Input = nil
			return snapshot, true
		}
	}
	return Item{}, false
}

// Process runs every pending item through the orchestrator, one at a time.
// An item whose job fails moves to error status and processing continues with
// the next item. Per-item progress is aggregated from the orchestrator's
// progress events.
func (q *Queue) Process(ctx context.Context, o *Orchestrator, bus *events.Bus, spec *params.Spec, count int) {
	for {
		item := q.nextPending()
		if item == nil {
			return
		}

		q.setStatus(item.ID, StatusProcessing, "")

		stop := q.trackProgress(bus, item.ID, count)
		results, err := o.GenerateVariations(ctx, item.ID, item.Input, spec, count)
		stop()

		if err != nil {
			q.setStatus(item.ID, StatusError, err.Error())
			continue
		}

		q.mu.Lock()
		for _, it := range q.items {
			if it.ID == item.ID {
				it.Variations = results
				it.Status = StatusCompleted
				it.Progress = 100
				break
			}
		}
		q.mu.Unlock()
	}
}

// trackProgress subscribes to the item's progress events and folds them into
// a single 0..100 figure across all of its variations.
func (q *Queue) trackProgress(bus *events.Bus, itemID string, count int) func() {
	ch, cancel := bus.Subscribe()
	done := make(chan struct{})

	go func() {
		defer close(done)
		for ev := range ch {
			if ev.JobID != itemID || ev.Type != events.TypeProgress || count < 1 {
				continue
			}
			overall := (float64(ev.VariationIndex-1) + ev.Percent/100) / float64(count) * 100
			q.setProgress(itemID, overall)
		}
	}()

	return func() {
		cancel()
		<-done
	}
}

func (q *Queue) nextPending() *Item {
	q.mu.Lock()
	defer q.mu.Unlock()

	for _, item := range q.items {
		if item.Status == StatusPending {
			return item
		}
	}
	return nil
}

func (q *Queue) setStatus(id string, status Status, errMsg string) {
	q.mu.Lock()
	defer q.mu.Unlock()

	for _, item := range q.items {
		if item.ID == id {
			item.Status = status
			item.Err = errMsg
			return
		}
	}
}

func (q *Queue) setProgress(id string, progress float64) {
	q.mu.Lock()
	defer q.mu.Unlock()

	for _, item := range q.items {
		if item.ID == id && progress > item.Progress {
			item.Progress = progress
		}
	}
}
