// Package session bridges one viewer's transport lifecycle to a change
// bus subscription.  A session delivers a full venue snapshot, then
// forwards deltas as they arrive; when it falls behind the bus
// retention window it resyncs from a fresh snapshot instead of
// replaying what was lost.
package session

import (
	"context"
	"fmt"
	"strconv"
	"sync"

	"github.com/google/uuid"

	"github.com/iliyamo/venue-occupancy/internal/bus"
	"github.com/iliyamo/venue-occupancy/internal/model"
)

// Session states.  Transitions:
// Connecting -> Synced -> (Stalled -> Resyncing -> Synced)* -> Closed.
const (
	StateConnecting = "CONNECTING"
	StateSynced     = "SYNCED"
	StateStalled    = "STALLED"
	StateResyncing  = "RESYNCING"
	StateClosed     = "CLOSED"
)

// Snapshot is the full current state of one venue, used to establish
// or re-establish a viewer's baseline.
type Snapshot struct {
	VenueID uint64         `json:"venue_id"`
	Seats   []model.Seat   `json:"seats"`
	Tickets []model.Ticket `json:"tickets"`
}

// Transport is the viewer-facing side of a session: an ordered,
// at-least-once delivery channel capable of pushing JSON-shaped
// payloads.  The SSE handler implements it; tests use a recording
// fake.  A send error is treated as a disconnect and closes the
// session.
type Transport interface {
	SendSnapshot(snap Snapshot) error
	SendDelta(delta model.StateDelta) error
	SendGapNotice() error
}

// SeatSource lists the seats of a venue.  *repository.SeatRepo
// satisfies it.
type SeatSource interface {
	ListByVenue(ctx context.Context, venueID uint64) ([]model.Seat, error)
}

// TicketSource lists the tickets of a venue.  *repository.TicketRepo
// satisfies it.
type TicketSource interface {
	ListByVenue(ctx context.Context, venueID uint64) ([]model.Ticket, error)
}

// Session is one viewer's subscription lifecycle.  It is not safe for
// concurrent use except for Close, which may be called from any
// goroutine and is immediate.
type Session struct {
	ID      string
	VenueID uint64

	sub       *bus.Subscription
	transport Transport
	seats     SeatSource
	tickets   TicketSource

	// watermarks holds the highest version delivered (or reflected by
	// the latest snapshot) per entity, keyed kind:id.  Deltas at or
	// below the watermark are suppressed, which both deduplicates the
	// resync overlap and enforces strictly increasing versions per
	// entity toward the viewer.
	watermarks map[string]uint64

	mu    sync.Mutex
	state string
	done  chan struct{}
	once  sync.Once
}

// New subscribes to the bus and returns a session in the Connecting
// state.  Run drives it; Close releases it.
func New(b *bus.Bus, venueID uint64, transport Transport, seats SeatSource, tickets TicketSource) *Session {
	return &Session{
		ID:         uuid.NewString(),
		VenueID:    venueID,
		sub:        b.Subscribe(venueID),
		transport:  transport,
		seats:      seats,
		tickets:    tickets,
		watermarks: make(map[string]uint64),
		state:      StateConnecting,
		done:       make(chan struct{}),
	}
}

// State reports the session's current lifecycle state.
func (s *Session) State() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Session) setState(state string) {
	s.mu.Lock()
	s.state = state
	s.mu.Unlock()
}

// Run delivers the initial snapshot and then forwards deltas until the
// context is cancelled, the transport fails, or Close is called.  It
// always leaves the session Closed with its bus subscription released.
func (s *Session) Run(ctx context.Context) error {
	defer s.Close()

	if err := s.syncSnapshot(ctx); err != nil {
		return fmt.Errorf("initial snapshot: %w", err)
	}
	s.setState(StateSynced)

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-s.done:
			return nil
		case <-s.sub.Gap():
			// Fell behind the retention window.  Resume delivery
			// before fetching the snapshot so nothing published in
			// between can be missed: it is either in the snapshot or
			// in the resumed stream, and the watermark drops the
			// overlap.
			s.setState(StateStalled)
			if err := s.transport.SendGapNotice(); err != nil {
				return nil
			}
			s.setState(StateResyncing)
			s.sub.Resume()
			if err := s.syncSnapshot(ctx); err != nil {
				return fmt.Errorf("resync snapshot: %w", err)
			}
			s.setState(StateSynced)
		case delta, ok := <-s.sub.Deltas():
			if !ok {
				return nil
			}
			key := delta.EntityKind + ":" + delta.EntityID
			if delta.Version <= s.watermarks[key] {
				continue
			}
			if err := s.transport.SendDelta(delta); err != nil {
				return nil
			}
			s.watermarks[key] = delta.Version
		}
	}
}

// syncSnapshot fetches the venue's full state, resets the watermarks
// to what the snapshot reflects, and delivers it to the transport.
func (s *Session) syncSnapshot(ctx context.Context) error {
	seats, err := s.seats.ListByVenue(ctx, s.VenueID)
	if err != nil {
		return err
	}
	tickets, err := s.tickets.ListByVenue(ctx, s.VenueID)
	if err != nil {
		return err
	}
	s.watermarks = make(map[string]uint64, len(seats)+len(tickets))
	for _, seat := range seats {
		s.watermarks[model.EntityKindSeat+":"+strconv.FormatUint(seat.ID, 10)] = seat.Version
	}
	for _, t := range tickets {
		s.watermarks[model.EntityKindTicket+":"+t.ID] = t.Version
	}
	return s.transport.SendSnapshot(Snapshot{VenueID: s.VenueID, Seats: seats, Tickets: tickets})
}

// Close tears the session down: it unsubscribes from the bus and wakes
// Run.  Closing twice is a no-op.
func (s *Session) Close() {
	s.once.Do(func() {
		s.setState(StateClosed)
		s.sub.Close()
		close(s.done)
	})
}
