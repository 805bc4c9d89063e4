package daemon

import (
	"context"
	"testing"
	"time"

	"conveyor/internal/pipeline"
)

func TestHubStampsMonotonicSequences(t *testing.T) {
	hub := NewUpdateHub(8)
	for i := 0; i < 3; i++ {
		hub.Publish(pipeline.StepUpdate{StepID: "extraction", Progress: float64(i)})
	}

	updates, next := hub.Tail(10)
	if len(updates) != 3 {
		t.Fatalf("expected 3 updates, got %d", len(updates))
	}
	for i, update := range updates {
		if update.Sequence != uint64(i+1) {
			t.Fatalf("sequence %d at index %d", update.Sequence, i)
		}
	}
	if next != 3 {
		t.Fatalf("expected cursor 3, got %d", next)
	}
}

func TestHubBoundedBufferDropsOldest(t *testing.T) {
	hub := NewUpdateHub(2)
	for i := 1; i <= 3; i++ {
		hub.Publish(pipeline.StepUpdate{StepID: "extraction", Progress: float64(i)})
	}

	updates, _ := hub.Tail(10)
	if len(updates) != 2 {
		t.Fatalf("expected capacity-bounded buffer, got %d entries", len(updates))
	}
	if updates[0].Sequence != 2 || updates[1].Sequence != 3 {
		t.Fatalf("oldest update should be dropped: %+v", updates)
	}
	if got := hub.FirstSequence(); got != 2 {
		t.Fatalf("first sequence should be 2, got %d", got)
	}
}

func TestHubFetchSince(t *testing.T) {
	hub := NewUpdateHub(8)
	for i := 1; i <= 4; i++ {
		hub.Publish(pipeline.StepUpdate{StepID: "extraction", Progress: float64(i)})
	}

	updates, next, err := hub.Fetch(context.Background(), 2, 10, false)
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if len(updates) != 2 || updates[0].Sequence != 3 {
		t.Fatalf("unexpected updates: %+v", updates)
	}
	if next != 4 {
		t.Fatalf("unexpected cursor %d", next)
	}
}

func TestHubFetchLimitKeepsCursorAtDeliveredTail(t *testing.T) {
	hub := NewUpdateHub(256)
	for i := 1; i <= 100; i++ {
		hub.Publish(pipeline.StepUpdate{StepID: "extraction", Progress: float64(i)})
	}

	var got []pipeline.StepUpdate
	since := uint64(0)
	for {
		updates, next, err := hub.Fetch(context.Background(), since, 30, false)
		if err != nil {
			t.Fatalf("fetch: %v", err)
		}
		if len(updates) == 0 {
			break
		}
		if next != updates[len(updates)-1].Sequence {
			t.Fatalf("cursor %d ran ahead of delivered tail %d", next, updates[len(updates)-1].Sequence)
		}
		got = append(got, updates...)
		since = next
	}

	if len(got) != 100 {
		t.Fatalf("paging lost updates: delivered %d of 100", len(got))
	}
	for i, update := range got {
		if update.Sequence != uint64(i+1) {
			t.Fatalf("gap at index %d: sequence %d", i, update.Sequence)
		}
	}
}

func TestHubFetchBlocksUntilPublish(t *testing.T) {
	hub := NewUpdateHub(8)
	done := make(chan []pipeline.StepUpdate, 1)

	go func() {
		updates, _, _ := hub.Fetch(context.Background(), 0, 10, true)
		done <- updates
	}()

	time.Sleep(20 * time.Millisecond)
	hub.Publish(pipeline.StepUpdate{StepID: "extraction", Status: pipeline.StepInProgress})

	select {
	case updates := <-done:
		if len(updates) != 1 {
			t.Fatalf("expected 1 update, got %d", len(updates))
		}
	case <-time.After(2 * time.Second):
		t.Fatal("fetch did not wake on publish")
	}
}

func TestHubFetchUnblocksOnCancel(t *testing.T) {
	hub := NewUpdateHub(8)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)

	go func() {
		_, _, err := hub.Fetch(ctx, 0, 10, true)
		done <- err
	}()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err == nil {
			t.Fatal("expected context error")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("fetch did not wake on cancel")
	}
}

func TestHubCloseDrainsWaiters(t *testing.T) {
	hub := NewUpdateHub(8)
	done := make(chan struct{})

	go func() {
		_, _, _ = hub.Fetch(context.Background(), 0, 10, true)
		close(done)
	}()

	time.Sleep(20 * time.Millisecond)
	hub.Close()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("fetch did not wake on close")
	}

	hub.Publish(pipeline.StepUpdate{StepID: "extraction"})
	if updates, _ := hub.Tail(10); len(updates) != 0 {
		t.Fatalf("publish after close should be dropped, got %+v", updates)
	}
}
