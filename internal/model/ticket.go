package model

import "time"

// Ticket statuses.  A ticket moves from ISSUED to USED exactly once;
// the transition is irreversible through this service.
const (
	TicketStatusIssued = "ISSUED"
	TicketStatusUsed   = "USED"
)

// Ticket is an admission ticket whose ID is embedded in a scannable
// code.  Tickets are created at purchase confirmation and are mutated
// exclusively by the check-in arbitration path.
//
// Fields:
//  ID         – opaque unique identifier (UUID string), embedded in the code.
//  VenueID    – venue the ticket admits to.
//  HolderName – name shown to door staff on admission.
//  AdmitCount – number of guests this ticket admits (positive).
//  Date       – validity day in YYYY-MM-DD form.
//  Status     – ISSUED or USED.
//  Version    – per-ticket monotonically increasing change counter.
//  CreatedAt  – creation timestamp.
//  UpdatedAt  – last update timestamp.
type Ticket struct {
	ID         string    `json:"id"`          // tickets.id
	VenueID    uint64    `json:"venue_id"`    // tickets.venue_id
	HolderName string    `json:"holder_name"` // tickets.holder_name
	AdmitCount uint32    `json:"admit_count"` // tickets.admit_count
	Date       string    `json:"date"`        // tickets.date
	Status     string    `json:"status"`      // tickets.status
	Version    uint64    `json:"version"`     // tickets.version
	CreatedAt  time.Time `json:"created_at"`  // tickets.created_at
	UpdatedAt  time.Time `json:"updated_at"`  // tickets.updated_at
}
