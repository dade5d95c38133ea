package events

import "testing"

// TestPublishAssignsSequence verifies monotonically increasing sequences.
func TestPublishAssignsSequence(t *testing.T) {
	b := NewBus(10)

	first := b.Publish(Event{Type: TypeStatus})
	second := b.Publish(Event{Type: TypeProgress})

	if first.Seq != 1 || second.Seq != 2 {
		t.Fatalf("sequences = %d, %d, want 1, 2", first.Seq, second.Seq)
	}
	if first.Timestamp.IsZero() {
		t.Fatal("timestamp not assigned")
	}
}

// TestSinceReturnsOnlyNewer checks incremental reads.
func TestSinceReturnsOnlyNewer(t *testing.T) {
	b := NewBus(10)
	for i := 0; i < 5; i++ {
		b.Publish(Event{Type: TypeProgress})
	}

	got := b.Since(3)
	if len(got) != 2 {
		t.Fatalf("events since 3 = %d, want 2", len(got))
	}
	if got[0].Seq != 4 || got[1].Seq != 5 {
		t.Fatalf("sequences = %d, %d, want 4, 5", got[0].Seq, got[1].Seq)
	}
}

// TestBusBounded checks the buffer trims oldest events.
func TestBusBounded(t *testing.T) {
	b := NewBus(3)
	for i := 0; i < 10; i++ {
		b.Publish(Event{Type: TypeProgress})
	}

	got := b.Since(0)
	if len(got) != 3 {
		t.Fatalf("retained events = %d, want 3", len(got))
	}
	if got[0].Seq != 8 {
		t.Fatalf("oldest retained seq = %d, want 8", got[0].Seq)
	}
}

// TestSubscribeReceivesPublished checks live delivery and cancel.
func TestSubscribeReceivesPublished(t *testing.T) {
	b := NewBus(10)
	ch, cancel := b.Subscribe()

	b.Publish(Event{Type: TypeStatus, Status: "processing"})

	got := <-ch
	if got.Status != "processing" {
		t.Fatalf("status = %q, want processing", got.Status)
	}

	cancel()
	if _, ok := <-ch; ok {
		t.Fatal("channel still open after cancel")
	}
}
