package events

import (
	"context"
	"testing"
	"time"
)

func TestPublishReachesSubscribers(t *testing.T) {
	s := New()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch := s.Subscribe(ctx)
	s.Publish(Event{Name: LinkTransferred, LinkID: 42, Organization: "co", Actor: "bob@co.example"})

	select {
	case evt := <-ch:
		if evt.Name != LinkTransferred || evt.LinkID != 42 {
			t.Fatalf("unexpected event: %+v", evt)
		}
		if evt.Timestamp.IsZero() {
			t.Fatalf("expected timestamp to be set")
		}
	case <-time.After(time.Second):
		t.Fatalf("event not delivered")
	}
}

func TestSubscribeClosesOnContextDone(t *testing.T) {
	s := New()
	ctx, cancel := context.WithCancel(context.Background())
	ch := s.Subscribe(ctx)
	cancel()

	select {
	case _, ok := <-ch:
		if ok {
			t.Fatalf("expected closed channel")
		}
	case <-time.After(time.Second):
		t.Fatalf("channel not closed after context cancel")
	}
}

func TestPublishDoesNotBlockOnSlowSubscriber(t *testing.T) {
	s := New()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Fill the subscriber buffer and never drain it.
	s.Subscribe(ctx)
	done := make(chan struct{})
	go func() {
		for i := 0; i < 100; i++ {
			s.Publish(Event{Name: LinkCreated, LinkID: int64(i)})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("Publish blocked on slow subscriber")
	}
}
