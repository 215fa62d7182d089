package model

import (
	"strconv"
	"time"
)

// Entity kinds carried by a StateDelta.
const (
	EntityKindSeat   = "seat"
	EntityKindTicket = "ticket"
)

// StateDelta is a single committed state change, produced once per
// successful arbitration and broadcast to every sync session scoped to
// its venue.  Deltas are immutable after construction.  Ordering is
// per entity by Version; no global ordering across entities exists.
type StateDelta struct {
	EntityKind  string         `json:"entity_kind"`  // "seat" or "ticket"
	EntityID    string         `json:"entity_id"`    // stringified entity identifier
	VenueID     uint64         `json:"venue_id"`     // scope for fan-out
	NewFields   map[string]any `json:"new_fields"`   // partial post-update snapshot
	Version     uint64         `json:"version"`      // per-entity change counter
	CommittedAt time.Time      `json:"committed_at"` // commit timestamp (UTC)
}

// SeatDelta builds the StateDelta for a committed seat transition.
func SeatDelta(s *Seat) StateDelta {
	fields := map[string]any{
		"status":       s.Status,
		"occupant_ref": s.OccupantRef,
	}
	return StateDelta{
		EntityKind:  EntityKindSeat,
		EntityID:    strconv.FormatUint(s.ID, 10),
		VenueID:     s.VenueID,
		NewFields:   fields,
		Version:     s.Version,
		CommittedAt: s.UpdatedAt.UTC(),
	}
}

// TicketDelta builds the StateDelta for a committed ticket transition.
func TicketDelta(t *Ticket) StateDelta {
	fields := map[string]any{
		"status": t.Status,
	}
	return StateDelta{
		EntityKind:  EntityKindTicket,
		EntityID:    t.ID,
		VenueID:     t.VenueID,
		NewFields:   fields,
		Version:     t.Version,
		CommittedAt: t.UpdatedAt.UTC(),
	}
}
