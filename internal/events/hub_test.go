package events

import (
	"context"
	"fmt"
	"testing"
	"time"
)

func TestPublishAssignsSequence(t *testing.T) {
	hub := NewHub(8)
	hub.Publish(JobEvent{JobID: "job-1", Action: "create"})
	hub.Publish(JobEvent{JobID: "job-1", Action: "start"})

	events, next := hub.Tail(10)
	if len(events) != 2 {
		t.Fatalf("tail count = %d, want 2", len(events))
	}
	if events[0].Sequence != 1 || events[1].Sequence != 2 {
		t.Fatalf("sequences = %d, %d", events[0].Sequence, events[1].Sequence)
	}
	if next != 2 {
		t.Fatalf("next = %d, want 2", next)
	}
	if events[0].Timestamp.IsZero() {
		t.Fatal("timestamp should be stamped on publish")
	}
}

func TestFetchSince(t *testing.T) {
	hub := NewHub(8)
	for i := 0; i < 5; i++ {
		hub.Publish(JobEvent{JobID: "job-1", Action: fmt.Sprintf("a%d", i)})
	}

	events, next, err := hub.Fetch(context.Background(), 3, 0, false)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("events = %d, want 2", len(events))
	}
	if events[0].Sequence != 4 {
		t.Fatalf("first sequence = %d, want 4", events[0].Sequence)
	}
	if next != 5 {
		t.Fatalf("next = %d, want 5", next)
	}
}

func TestRingDropsOldest(t *testing.T) {
	hub := NewHub(3)
	for i := 0; i < 5; i++ {
		hub.Publish(JobEvent{JobID: "job-1"})
	}
	if first := hub.FirstSequence(); first != 3 {
		t.Fatalf("first sequence = %d, want 3", first)
	}
	events, _ := hub.Tail(10)
	if len(events) != 3 {
		t.Fatalf("tail count = %d, want 3", len(events))
	}
}

func TestFetchWaitWakesOnPublish(t *testing.T) {
	hub := NewHub(8)
	done := make(chan []JobEvent, 1)
	go func() {
		events, _, _ := hub.Fetch(context.Background(), 0, 0, true)
		done <- events
	}()

	time.Sleep(20 * time.Millisecond)
	hub.Publish(JobEvent{JobID: "job-1", Action: "create"})

	select {
	case events := <-done:
		if len(events) != 1 || events[0].Action != "create" {
			t.Fatalf("events = %+v", events)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("waiter never woke")
	}
}

func TestFetchWaitHonorsContext(t *testing.T) {
	hub := NewHub(8)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, _, err := hub.Fetch(ctx, 0, 0, true)
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
		t.Fatal("waiter never returned after cancel")
	}
}
