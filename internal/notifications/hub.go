package notifications

import (
	"errors"
	"sync"

	"mumble/internal/observability"
)

const (
	// Max concurrent SSE subscribers.
	maxSubscribers = 10000
	// Buffered events per subscriber before we start dropping.
	subscriberBuffer = 16
)

// ErrHubFull is returned when the subscriber limit is reached.
var ErrHubFull = errors.New("subscriber limit reached")

// Subscriber is one SSE connection's view of the stream.
type Subscriber struct {
	ch   chan Event
	done chan struct{}
	once sync.Once
}

// Events returns the channel the subscriber reads events from.
func (s *Subscriber) Events() <-chan Event {
	return s.ch
}

// Done is closed when the subscriber has been removed from the hub.
func (s *Subscriber) Done() <-chan struct{} {
	return s.done
}

func (s *Subscriber) stop() {
	s.once.Do(func() { close(s.done) })
}

// Hub fans events out to all registered subscribers. Slow subscribers do
// not block the hub: events that do not fit their buffer are dropped.
type Hub struct {
	mu   sync.RWMutex
	subs map[*Subscriber]struct{}
}

// NewHub creates a new Hub instance.
func NewHub() *Hub {
	return &Hub{
		subs: make(map[*Subscriber]struct{}),
	}
}

// Subscribe registers a new subscriber, or returns ErrHubFull.
func (h *Hub) Subscribe() (*Subscriber, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if len(h.subs) >= maxSubscribers {
		return nil, ErrHubFull
	}

	sub := &Subscriber{
		ch:   make(chan Event, subscriberBuffer),
		done: make(chan struct{}),
	}
	h.subs[sub] = struct{}{}
	observability.EventSubscribers.Inc()
	return sub, nil
}

// Unsubscribe removes the subscriber and signals its Done channel.
func (h *Hub) Unsubscribe(sub *Subscriber) {
	h.mu.Lock()
	if _, ok := h.subs[sub]; ok {
		delete(h.subs, sub)
		observability.EventSubscribers.Dec()
	}
	h.mu.Unlock()

	sub.stop()
}

// Broadcast delivers the event to every subscriber that has buffer room.
func (h *Hub) Broadcast(event Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for sub := range h.subs {
		select {
		case sub.ch <- event:
		case <-sub.done:
		default:
			observability.EventsDropped.WithLabelValues("slow_subscriber").Inc()
		}
	}
}

// Len returns the number of active subscribers.
func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}

// Close removes all subscribers.
func (h *Hub) Close() {
	h.mu.Lock()
	subs := h.subs
	h.subs = make(map[*Subscriber]struct{})
	h.mu.Unlock()

	for sub := range subs {
		observability.EventSubscribers.Dec()
		sub.stop()
	}
}
