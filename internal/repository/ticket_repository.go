package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/iliyamo/venue-occupancy/internal/model"
)

// TicketRepo provides methods to work with tickets in the database.
// Like SeatRepo, its state transition is a single conditional UPDATE so
// concurrent redemptions of the same ticket resolve to exactly one
// winner at the store level.
type TicketRepo struct {
	db *sql.DB
}

// NewTicketRepo constructs a TicketRepo with the given DB handle.
func NewTicketRepo(db *sql.DB) *TicketRepo {
	return &TicketRepo{db: db}
}

const ticketColumns = `id, venue_id, holder_name, admit_count, date, status, version, created_at, updated_at`

func scanTicket(row interface{ Scan(...any) error }) (*model.Ticket, error) {
	var t model.Ticket
	err := row.Scan(
		&t.ID, &t.VenueID, &t.HolderName, &t.AdmitCount, &t.Date,
		&t.Status, &t.Version, &t.CreatedAt, &t.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// Create inserts a single ticket record.  The caller supplies the ID
// (a UUID embedded in the scannable code); status defaults to ISSUED in
// the schema.
func (r *TicketRepo) Create(ctx context.Context, t *model.Ticket) error {
	const q = `INSERT INTO tickets (id, venue_id, holder_name, admit_count, date)
	           VALUES (?, ?, ?, ?, ?)`
	if _, err := r.db.ExecContext(ctx, q, t.ID, t.VenueID, t.HolderName, t.AdmitCount, t.Date); err != nil {
		return storeErr("ticket insert", err)
	}
	return nil
}

// GetByID retrieves a ticket by its id.
func (r *TicketRepo) GetByID(ctx context.Context, id string) (*model.Ticket, error) {
	const q = `SELECT ` + ticketColumns + ` FROM tickets WHERE id = ?`
	t, err := scanTicket(r.db.QueryRowContext(ctx, q, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTicketNotFound
		}
		return nil, storeErr("ticket select", err)
	}
	return t, nil
}

// ListByVenue retrieves all tickets of a venue ordered by creation
// time.  Used for the staff ticket snapshot.
func (r *TicketRepo) ListByVenue(ctx context.Context, venueID uint64) ([]model.Ticket, error) {
	const q = `SELECT ` + ticketColumns + ` FROM tickets WHERE venue_id = ? ORDER BY created_at`
	rows, err := r.db.QueryContext(ctx, q, venueID)
	if err != nil {
		return nil, storeErr("tickets select", err)
	}
	defer rows.Close()

	var result []model.Ticket
	for rows.Next() {
		t, err := scanTicket(rows)
		if err != nil {
			return nil, storeErr("tickets scan", err)
		}
		result = append(result, *t)
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr("tickets rows", err)
	}
	return result, nil
}

// RedeemIfIssued transitions a ticket ISSUED -> USED in one conditional
// update.  Exactly one of any number of concurrent callers observes the
// predicate as satisfied.  Returns ErrPredicateFailed when the ticket
// was already used and ErrTicketNotFound when no such ticket exists.
func (r *TicketRepo) RedeemIfIssued(ctx context.Context, id string) (*model.Ticket, error) {
	const q = `UPDATE tickets
	           SET status = ?, version = version + 1, updated_at = CURRENT_TIMESTAMP
	           WHERE id = ? AND status = ?`
	res, err := r.db.ExecContext(ctx, q, model.TicketStatusUsed, id, model.TicketStatusIssued)
	if err != nil {
		return nil, storeErr("ticket redeem", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		if _, err := r.GetByID(ctx, id); err != nil {
			return nil, err
		}
		return nil, ErrPredicateFailed
	}
	return r.GetByID(ctx, id)
}
