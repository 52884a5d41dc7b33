package activity

import (
	"log/slog"
	"sync"
	"time"
)

// Hub forwards events to the next logger and broadcasts them to live
// subscribers. Slow subscribers lose events rather than block writers.
type Hub struct {
	next EventLogger

	mu     sync.Mutex
	subs   map[int]chan Event
	nextID int
}

// NewHub creates a hub in front of next. A nil next discards events after broadcast.
func NewHub(next EventLogger) *Hub {
	if next == nil {
		next = NopEventLogger{}
	}
	return &Hub{next: next, subs: make(map[int]chan Event)}
}

func (h *Hub) LogEvent(event Event) error {
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now()
	}
	err := h.next.LogEvent(event)

	h.mu.Lock()
	defer h.mu.Unlock()
	for id, ch := range h.subs {
		select {
		case ch <- event:
		default:
			slog.Warn("activity subscriber is behind, dropping event", "subscriber", id, "type", event.EventType)
		}
	}
	return err
}

// Subscribe registers a live subscriber. The returned cancel func
// unregisters it and closes the channel.
func (h *Hub) Subscribe(buffer int) (<-chan Event, func()) {
	if buffer <= 0 {
		buffer = 16
	}
	ch := make(chan Event, buffer)

	h.mu.Lock()
	id := h.nextID
	h.nextID++
	h.subs[id] = ch
	h.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subs, id)
			h.mu.Unlock()
			close(ch)
		})
	}
}

// Subscribers returns the number of live subscribers.
func (h *Hub) Subscribers() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}
