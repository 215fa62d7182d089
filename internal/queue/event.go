// Package queue defines message payloads exchanged over the message
// broker and the background consumer that audits them.
package queue

import "github.com/iliyamo/venue-occupancy/internal/model"

const deltaQueueName = "occupancy.delta"

// DeltaEvent is published once per committed state transition.  It
// carries the full delta so downstream consumers (audit log, analytics,
// notification fan-out) never need to query the primary database.
type DeltaEvent struct {
	EntityKind  string         `json:"entity_kind"`
	EntityID    string         `json:"entity_id"`
	VenueID     uint64         `json:"venue_id"`
	NewFields   map[string]any `json:"new_fields"`
	Version     uint64         `json:"version"`
	CommittedAt string         `json:"committed_at"`
}

// NewDeltaEvent converts a committed StateDelta into its wire payload.
func NewDeltaEvent(d model.StateDelta) DeltaEvent {
	return DeltaEvent{
		EntityKind:  d.EntityKind,
		EntityID:    d.EntityID,
		VenueID:     d.VenueID,
		NewFields:   d.NewFields,
		Version:     d.Version,
		CommittedAt: d.CommittedAt.Format("2006-01-02T15:04:05Z07:00"),
	}
}
