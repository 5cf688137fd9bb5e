package events

import (
	"testing"
	"time"
)

func TestPublishFansOutToSubscribers(t *testing.T) {
	t.Parallel()

	h := NewHub(8)
	ch, cancel := h.Subscribe()
	defer cancel()

	h.Publish("message.enqueued", map[string]any{"sid": 7})

	select {
	case ev := <-ch:
		if ev.Type != "message.enqueued" {
			t.Fatalf("unexpected event type %q", ev.Type)
		}
		if ev.ID == 0 {
			t.Fatal("event ID not assigned")
		}
	case <-time.After(time.Second):
		t.Fatal("no event delivered")
	}
}

func TestSnapshotSinceSkipsSeenEvents(t *testing.T) {
	t.Parallel()

	h := NewHub(4)
	h.Publish("a", nil)
	h.Publish("b", nil)
	h.Publish("c", nil)

	all := h.SnapshotSince(0)
	if len(all) != 3 {
		t.Fatalf("expected 3 events, got %d", len(all))
	}

	rest := h.SnapshotSince(all[1].ID)
	if len(rest) != 1 || rest[0].Type != "c" {
		t.Fatalf("unexpected tail: %#v", rest)
	}
}

func TestRingOverwritesOldest(t *testing.T) {
	t.Parallel()

	h := NewHub(2)
	h.Publish("a", nil)
	h.Publish("b", nil)
	h.Publish("c", nil)

	got := h.SnapshotSince(0)
	if len(got) != 2 || got[0].Type != "b" || got[1].Type != "c" {
		t.Fatalf("unexpected ring contents: %#v", got)
	}
}
