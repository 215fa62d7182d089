package model

import "time"

// Seat statuses.  A seat is either free or occupied; there is no
// intermediate hold state.  A claim either wins immediately or fails
// immediately.
const (
	SeatStatusFree     = "FREE"
	SeatStatusOccupied = "OCCUPIED"
)

// Seat describes a single seat on a venue's floor plan.  Seats are
// created in bulk during floor-plan setup and are never deleted during
// normal operation.  Status and OccupantRef are mutated only through
// the booking arbitration path or a manual staff release.
//
// Invariant: Status == OCCUPIED implies OccupantRef is non-nil, and
// Status == FREE implies OccupantRef is nil.  Both columns are written
// in the same conditional update so the invariant cannot be observed
// broken.
//
// Fields:
//  ID          – primary key identifier.
//  VenueID     – venue the seat belongs to (scope for sync sessions).
//  Label       – display label, unique only within a venue by convention.
//  PosX, PosY  – advisory rendering coordinates on the floor map.
//  Status      – FREE or OCCUPIED.
//  OccupantRef – reference to the booking holder when occupied.
//  Category    – advisory pricing/seating tag (STANDARD, VIP, ...).
//  Version     – per-seat monotonically increasing change counter.
//  CreatedAt   – creation timestamp.
//  UpdatedAt   – last update timestamp.
type Seat struct {
	ID          uint64    `json:"id"`           // seats.id
	VenueID     uint64    `json:"venue_id"`     // seats.venue_id
	Label       string    `json:"label"`        // seats.label
	PosX        int32     `json:"pos_x"`        // seats.pos_x
	PosY        int32     `json:"pos_y"`        // seats.pos_y
	Status      string    `json:"status"`       // seats.status
	OccupantRef *string   `json:"occupant_ref"` // seats.occupant_ref (nullable)
	Category    string    `json:"category"`     // seats.category
	Version     uint64    `json:"version"`      // seats.version
	CreatedAt   time.Time `json:"created_at"`   // seats.created_at
	UpdatedAt   time.Time `json:"updated_at"`   // seats.updated_at
}
