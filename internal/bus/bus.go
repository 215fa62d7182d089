// Package bus implements the in-process change bus: at-least-once
// fan-out of committed state deltas to every live subscriber scoped to
// the delta's venue.  Publishing never blocks; a subscriber that falls
// behind its retention window is marked gapped and must resync from a
// snapshot instead of receiving further deltas.
package bus

import (
	"sync"

	"github.com/iliyamo/venue-occupancy/internal/model"
)

// DefaultRetention is the per-subscriber buffered delta window.  A
// subscriber whose transport stalls past this many undelivered deltas
// receives a Gap signal.
const DefaultRetention = 256

// Bus fans committed deltas out to venue-scoped subscribers.
type Bus struct {
	mu        sync.RWMutex
	retention int
	venues    map[uint64][]*Subscription
}

// New constructs a Bus.  A non-positive retention falls back to
// DefaultRetention.
func New(retention int) *Bus {
	if retention <= 0 {
		retention = DefaultRetention
	}
	return &Bus{
		retention: retention,
		venues:    make(map[uint64][]*Subscription),
	}
}

// Subscription is one subscriber's view of the bus.  Deltas published
// after Subscribe arrive on Deltas; when the buffer overflows, Gap
// fires once and delivery stops until Resume is called.  Close is
// immediate and leaves no registration behind on the bus.
type Subscription struct {
	bus     *Bus
	venueID uint64
	deltas  chan model.StateDelta
	gap     chan struct{}

	mu     sync.Mutex
	gapped bool
	closed bool
}

// Subscribe registers a new subscriber for venueID.  The subscriber
// receives only deltas published after this call; it must establish a
// baseline via a store snapshot before applying the stream.
func (b *Bus) Subscribe(venueID uint64) *Subscription {
	s := &Subscription{
		bus:     b,
		venueID: venueID,
		deltas:  make(chan model.StateDelta, b.retention),
		gap:     make(chan struct{}, 1),
	}
	b.mu.Lock()
	b.venues[venueID] = append(b.venues[venueID], s)
	b.mu.Unlock()
	return s
}

// Publish delivers delta to every live subscriber of delta.VenueID.
// The send is non-blocking: a full subscriber buffer marks that
// subscriber gapped instead of stalling the publisher.
func (b *Bus) Publish(delta model.StateDelta) {
	b.mu.RLock()
	subs := b.venues[delta.VenueID]
	b.mu.RUnlock()
	for _, s := range subs {
		s.offer(delta)
	}
}

func (s *Subscription) offer(delta model.StateDelta) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || s.gapped {
		return
	}
	select {
	case s.deltas <- delta:
	default:
		// Retention exceeded: stop delivering and signal the gap.  The
		// subscriber resyncs from a snapshot and calls Resume.
		s.gapped = true
		select {
		case s.gap <- struct{}{}:
		default:
		}
	}
}

// Deltas returns the stream of committed deltas for this subscriber.
func (s *Subscription) Deltas() <-chan model.StateDelta { return s.deltas }

// Gap fires when the subscriber has fallen behind the retention window.
// It is a resync signal, not an error state.
func (s *Subscription) Gap() <-chan struct{} { return s.gap }

// Resume re-enables delivery after a gap.  The caller must fetch a
// fresh snapshot after calling Resume so that deltas dropped while
// gapped are covered by the snapshot baseline.
func (s *Subscription) Resume() {
	s.mu.Lock()
	if !s.closed {
		s.gapped = false
	}
	s.mu.Unlock()
}

// Close removes the subscription from the bus.  It is safe to call
// more than once and safe to call concurrently with Publish.
func (s *Subscription) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.mu.Unlock()

	b := s.bus
	b.mu.Lock()
	subs := b.venues[s.venueID]
	for i, sub := range subs {
		if sub == s {
			b.venues[s.venueID] = append(subs[:i], subs[i+1:]...)
			break
		}
	}
	if len(b.venues[s.venueID]) == 0 {
		delete(b.venues, s.venueID)
	}
	b.mu.Unlock()
	close(s.deltas)
}

// SubscriberCount reports how many live subscribers a venue has.
func (b *Bus) SubscriberCount(venueID uint64) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.venues[venueID])
}
