package records

import (
	"log"
	"sync"

	"github.com/ppc-network/tasklist/internal/domain"
	"github.com/ppc-network/tasklist/internal/infra/metrics"
)

const defaultSubscriberCapacity = 64

// Hub fans committed records out to live observers. Publish never blocks:
// a full subscriber queue drops its oldest record.
type Hub struct {
	mu       sync.RWMutex
	subs     map[*subscriber]struct{}
	capacity int
	closed   bool
}

// Subscription is an active observer registration.
type Subscription struct {
	Records <-chan domain.Record
	cancel  func()
}

// Close terminates the subscription and closes Records.
func (s Subscription) Close() {
	if s.cancel != nil {
		s.cancel()
	}
}

// NewHub creates a hub whose subscribers buffer up to capacity records.
func NewHub(capacity int) *Hub {
	if capacity <= 0 {
		capacity = defaultSubscriberCapacity
	}
	return &Hub{subs: map[*subscriber]struct{}{}, capacity: capacity}
}

// Subscribe registers a new observer.
func (h *Hub) Subscribe() Subscription {
	sub := &subscriber{ch: make(chan domain.Record, h.capacity)}

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		sub.close()
		return Subscription{Records: sub.ch}
	}
	h.subs[sub] = struct{}{}
	n := len(h.subs)
	h.mu.Unlock()
	metrics.RecordSubscribers.Set(float64(n))

	var once sync.Once
	return Subscription{
		Records: sub.ch,
		cancel: func() {
			once.Do(func() {
				h.mu.Lock()
				delete(h.subs, sub)
				n := len(h.subs)
				h.mu.Unlock()
				metrics.RecordSubscribers.Set(float64(n))
				sub.close()
			})
		},
	}
}

// Publish implements domain.RecordSink.
func (h *Hub) Publish(recs ...domain.Record) {
	h.mu.RLock()
	subs := make([]*subscriber, 0, len(h.subs))
	for s := range h.subs {
		subs = append(subs, s)
	}
	h.mu.RUnlock()

	for _, r := range recs {
		for _, s := range subs {
			s.deliver(r)
		}
	}
}

// Close ends every subscription. Later subscriptions are closed on arrival.
func (h *Hub) Close() {
	h.mu.Lock()
	subs := h.subs
	h.subs = map[*subscriber]struct{}{}
	h.closed = true
	h.mu.Unlock()

	for s := range subs {
		s.close()
	}
	metrics.RecordSubscribers.Set(0)
}

// Subscribers returns the number of live observers.
func (h *Hub) Subscribers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}

type subscriber struct {
	mu     sync.Mutex
	ch     chan domain.Record
	closed bool
}

func (s *subscriber) deliver(r domain.Record) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	select {
	case s.ch <- r:
		return
	default:
	}
	// Queue full. The reader may drain concurrently, so neither step blocks.
	select {
	case dropped := <-s.ch:
		log.Printf("[records] subscriber queue full, dropped seq %d", dropped.Seq)
	default:
	}
	select {
	case s.ch <- r:
	default:
	}
}

func (s *subscriber) close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	close(s.ch)
}
