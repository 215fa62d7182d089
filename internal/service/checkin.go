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

// Check-in denial reasons reported to the scanning client.
const (
	ReasonAlreadyUsed = "already_used"
	ReasonInvalidCode = "invalid_code"
)

// TicketStore is the slice of the resource store the check-in arbiter
// needs.  *repository.TicketRepo satisfies it.
type TicketStore interface {
	GetByID(ctx context.Context, id string) (*model.Ticket, error)
	ListByVenue(ctx context.Context, venueID uint64) ([]model.Ticket, error)
	RedeemIfIssued(ctx context.Context, id string) (*model.Ticket, error)
}

// CheckinResult is the admission decision returned to the scanner.  A
// denial is an expected steady-state outcome, not an error: duplicate
// scans and malformed codes resolve deterministically without side
// effects.
type CheckinResult struct {
	Admitted   bool   `json:"admitted"`
	Reason     string `json:"reason,omitempty"`
	HolderName string `json:"holder_name,omitempty"`
	AdmitCount uint32 `json:"admit_count,omitempty"`
	VenueID    uint64 `json:"venue_id,omitempty"`
}

// CheckinService arbitrates ticket redemption.  The first scan of a
// code always admits; every subsequent scan reports already_used, no
// matter how many scanners query concurrently.  The store-level
// conditional update is the sole correctness mechanism; any client-side
// duplicate-frame suppression is a network optimization only.
type CheckinService struct {
	tickets TicketStore
	bus     *bus.Bus
	publish DeltaPublisher
}

// NewCheckinService constructs a CheckinService.  publish may be nil
// when no broker is configured.
func NewCheckinService(tickets TicketStore, b *bus.Bus, publish DeltaPublisher) *CheckinService {
	if tickets == nil || b == nil {
		panic("nil dependency passed to NewCheckinService")
	}
	return &CheckinService{tickets: tickets, bus: b, publish: publish}
}

// ParseCode extracts the ticket ID from a raw scanned payload.  Codes
// arrive as `ID: <uuid>` or as a bare UUID, with arbitrary surrounding
// whitespace from the camera pipeline.
func ParseCode(raw string) string {
	code := strings.TrimSpace(raw)
	if strings.HasPrefix(code, "ID:") {
		code = strings.TrimSpace(strings.TrimPrefix(code, "ID:"))
	}
	return code
}

// Redeem attempts to transition the ticket named by rawCode from
// ISSUED to USED, exactly once.  The returned result always carries an
// admission decision; only infrastructure failures return an error.
func (s *CheckinService) Redeem(ctx context.Context, rawCode string) (*CheckinResult, error) {
	id := ParseCode(rawCode)
	if id == "" {
		return &CheckinResult{Admitted: false, Reason: ReasonInvalidCode}, nil
	}
	ticket, err := s.tickets.RedeemIfIssued(ctx, id)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrPredicateFailed):
			log.Printf("check-in denied: ticket=%s reason=%s", id, ReasonAlreadyUsed)
			return &CheckinResult{Admitted: false, Reason: ReasonAlreadyUsed}, nil
		case errors.Is(err, repository.ErrTicketNotFound):
			log.Printf("check-in denied: ticket=%s reason=%s", id, ReasonInvalidCode)
			return &CheckinResult{Admitted: false, Reason: ReasonInvalidCode}, nil
		}
		return nil, err
	}
	delta := model.TicketDelta(ticket)
	s.bus.Publish(delta)
	if s.publish != nil {
		s.publish(ctx, delta)
	}
	log.Printf("check-in admitted: ticket=%s venue=%d holder=%q count=%d",
		ticket.ID, ticket.VenueID, ticket.HolderName, ticket.AdmitCount)
	return &CheckinResult{
		Admitted:   true,
		HolderName: ticket.HolderName,
		AdmitCount: ticket.AdmitCount,
		VenueID:    ticket.VenueID,
	}, nil
}

// Snapshot returns all tickets of a venue for the staff listing and
// the sync session baseline.
func (s *CheckinService) Snapshot(ctx context.Context, venueID uint64) ([]model.Ticket, error) {
	return s.tickets.ListByVenue(ctx, venueID)
}
