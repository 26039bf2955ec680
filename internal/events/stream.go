package events

import (
	"context"
	"sync"
	"time"
)

// Event names emitted after successful link mutations.
const (
	LinkCreated     = "link.created"
	LinkDeleted     = "link.deleted"
	LinkTransferred = "link.transferred"
)

// Event describes a completed link mutation for downstream consumers.
type Event struct {
	Name         string         `json:"name"`
	LinkID       int64          `json:"link_id"`
	Organization string         `json:"organization"`
	Actor        string         `json:"actor"`
	Payload      map[string]any `json:"payload,omitempty"`
	Timestamp    time.Time      `json:"timestamp"`
}

// Stream fan-outs link events to all active subscribers (SSE clients,
// audit consumers). Publishing never blocks on a slow subscriber.
type Stream struct {
	mu   sync.RWMutex
	subs map[int]chan Event
	next int
}

// New initialises an empty stream.
func New() *Stream {
	return &Stream{subs: make(map[int]chan Event)}
}

// Subscribe registers a subscriber and returns a channel which will receive
// events. The channel is closed when the provided context ends.
func (s *Stream) Subscribe(ctx context.Context) <-chan Event {
	ch := make(chan Event, 16)

	s.mu.Lock()
	id := s.next
	s.next++
	s.subs[id] = ch
	s.mu.Unlock()

	go func() {
		<-ctx.Done()
		s.mu.Lock()
		delete(s.subs, id)
		close(ch)
		s.mu.Unlock()
	}()

	return ch
}

// Publish fan-outs the event to all subscribers.
func (s *Stream) Publish(evt Event) {
	if evt.Timestamp.IsZero() {
		evt.Timestamp = time.Now().UTC()
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, ch := range s.subs {
		select {
		case ch <- evt:
		default:
			// Drop when subscriber is slow to avoid blocking.
		}
	}
}
