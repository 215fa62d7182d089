// Package service contains the arbitration services that turn client
// intents into atomic state transitions.  Each successful transition
// produces exactly one StateDelta, published to the in-process bus and
// mirrored to the message broker for out-of-process consumers.
package service

import (
	"context"
	"errors"
	"log"
	"strings"

	"github.com/iliyamo/venue-occupancy/internal/bus"
	"github.com/iliyamo/venue-occupancy/internal/model"
	"github.com/iliyamo/venue-occupancy/internal/repository"
)

// Arbitration outcomes.  These are user-facing terminal results, never
// silently retried and never recovered into a different outcome (a
// failed claim must not fall back to another seat).
var (
	// ErrSeatAlreadyTaken is returned when a claim loses the race: the
	// seat was occupied at the instant of the conditional update.
	ErrSeatAlreadyTaken = errors.New("seat already taken")
	// ErrUnknownSeat is returned when the claimed seat does not exist.
	ErrUnknownSeat = errors.New("unknown seat")
	// ErrEmptyClaimant is returned when a claim carries no claimant
	// reference.
	ErrEmptyClaimant = errors.New("claimant ref is required")
)

// SeatStore is the slice of the resource store the booking arbiter
// needs.  *repository.SeatRepo satisfies it; tests substitute an
// in-memory implementation.
type SeatStore interface {
	GetByID(ctx context.Context, id uint64) (*model.Seat, error)
	ListByVenue(ctx context.Context, venueID uint64) ([]model.Seat, error)
	ClaimIfFree(ctx context.Context, id uint64, claimantRef string) (*model.Seat, error)
	ReleaseIfOccupied(ctx context.Context, id uint64) (*model.Seat, bool, error)
}

// DeltaPublisher mirrors committed deltas to the message broker.  It is
// best effort: failures are logged by the implementation and never
// affect the arbitration result.
type DeltaPublisher func(ctx context.Context, delta model.StateDelta)

// BookingService arbitrates seat claims and releases.  Correctness
// rests entirely on the store's conditional update: no lock is held
// here, yet exactly one of any number of concurrent claimants wins.
type BookingService struct {
	seats   SeatStore
	bus     *bus.Bus
	publish DeltaPublisher
}

// NewBookingService constructs a BookingService.  publish may be nil
// when no broker is configured.
func NewBookingService(seats SeatStore, b *bus.Bus, publish DeltaPublisher) *BookingService {
	if seats == nil || b == nil {
		panic("nil dependency passed to NewBookingService")
	}
	return &BookingService{seats: seats, bus: b, publish: publish}
}

// Claim attempts to transition one seat FREE -> OCCUPIED on behalf of
// claimantRef.  On success the committed delta is fanned out before
// returning.  A lost race surfaces as ErrSeatAlreadyTaken; the caller
// must not retry automatically.
func (s *BookingService) Claim(ctx context.Context, seatID uint64, claimantRef string) (*model.Seat, error) {
	claimantRef = strings.TrimSpace(claimantRef)
	if claimantRef == "" {
		return nil, ErrEmptyClaimant
	}
	seat, err := s.seats.ClaimIfFree(ctx, seatID, claimantRef)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrPredicateFailed):
			return nil, ErrSeatAlreadyTaken
		case errors.Is(err, repository.ErrSeatNotFound):
			return nil, ErrUnknownSeat
		}
		return nil, err
	}
	s.emit(ctx, model.SeatDelta(seat))
	return seat, nil
}

// Release clears a seat back to FREE.  It is idempotent: releasing an
// already-free seat succeeds without emitting a delta.
func (s *BookingService) Release(ctx context.Context, seatID uint64) (*model.Seat, error) {
	seat, changed, err := s.seats.ReleaseIfOccupied(ctx, seatID)
	if err != nil {
		if errors.Is(err, repository.ErrSeatNotFound) {
			return nil, ErrUnknownSeat
		}
		return nil, err
	}
	if changed {
		s.emit(ctx, model.SeatDelta(seat))
	}
	return seat, nil
}

// Snapshot returns all seats of a venue, used by sync sessions and the
// public floor-map endpoint to establish a baseline.
func (s *BookingService) Snapshot(ctx context.Context, venueID uint64) ([]model.Seat, error) {
	return s.seats.ListByVenue(ctx, venueID)
}

func (s *BookingService) emit(ctx context.Context, delta model.StateDelta) {
	s.bus.Publish(delta)
	if s.publish != nil {
		s.publish(ctx, delta)
	}
	log.Printf("delta committed: kind=%s id=%s venue=%d version=%d",
		delta.EntityKind, delta.EntityID, delta.VenueID, delta.Version)
}
