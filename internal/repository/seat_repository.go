package repository // repository defines data access for seats

import (
	"context"      // context allows query cancellation and timeouts
	"database/sql" // sql provides DB primitives
	"errors"       // errors for sentinel comparisons

	"github.com/iliyamo/venue-occupancy/internal/model"
)

// SeatRepo provides methods to work with seats in the database.  The
// state-changing methods are single conditional UPDATE statements: the
// predicate is part of the WHERE clause, so the check and the write are
// one atomic operation against the row.  Two concurrent claimants can
// never both observe a seat as FREE, because the row lock taken by the
// first UPDATE forces the second to re-evaluate against the committed
// state.
type SeatRepo struct {
	db *sql.DB
}

// NewSeatRepo constructs a SeatRepo with the given DB handle.
func NewSeatRepo(db *sql.DB) *SeatRepo {
	return &SeatRepo{db: db}
}

const seatColumns = `id, venue_id, label, pos_x, pos_y, status, occupant_ref, category, version, created_at, updated_at`

func scanSeat(row interface{ Scan(...any) error }) (*model.Seat, error) {
	var s model.Seat
	var occupant sql.NullString
	err := row.Scan(
		&s.ID, &s.VenueID, &s.Label, &s.PosX, &s.PosY, &s.Status,
		&occupant, &s.Category, &s.Version, &s.CreatedAt, &s.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if occupant.Valid {
		ref := occupant.String
		s.OccupantRef = &ref
	}
	return &s, nil
}

// CreateBulk inserts multiple seats in a single statement.  Used during
// floor-plan setup.  Status defaults to FREE and version to zero in the
// schema; only identity and layout columns are supplied.
func (r *SeatRepo) CreateBulk(ctx context.Context, seats []model.Seat) error {
	if len(seats) == 0 {
		return nil
	}
	query := `INSERT INTO seats (venue_id, label, pos_x, pos_y, category) VALUES `
	args := make([]interface{}, 0, len(seats)*5)
	for i, seat := range seats {
		if i > 0 {
			query += ","
		}
		query += "(?, ?, ?, ?, ?)"
		args = append(args, seat.VenueID, seat.Label, seat.PosX, seat.PosY, seat.Category)
	}
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return storeErr("seats insert", err)
	}
	return nil
}

// GetByID retrieves a seat by its id.
func (r *SeatRepo) GetByID(ctx context.Context, id uint64) (*model.Seat, error) {
	const q = `SELECT ` + seatColumns + ` FROM seats WHERE id = ?`
	s, err := scanSeat(r.db.QueryRowContext(ctx, q, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrSeatNotFound
		}
		return nil, storeErr("seat select", err)
	}
	return s, nil
}

// ListByVenue retrieves all seats of a venue ordered by label.  Used to
// build the full snapshot a sync session delivers before streaming
// deltas.
func (r *SeatRepo) ListByVenue(ctx context.Context, venueID uint64) ([]model.Seat, error) {
	const q = `SELECT ` + seatColumns + ` FROM seats WHERE venue_id = ? ORDER BY label`
	rows, err := r.db.QueryContext(ctx, q, venueID)
	if err != nil {
		return nil, storeErr("seats select", err)
	}
	defer rows.Close()

	var result []model.Seat
	for rows.Next() {
		s, err := scanSeat(rows)
		if err != nil {
			return nil, storeErr("seats scan", err)
		}
		result = append(result, *s)
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr("seats rows", err)
	}
	return result, nil
}

// ClaimIfFree transitions a seat FREE -> OCCUPIED for the given
// claimant in one conditional update.  On success the updated row is
// returned with its new version.  Returns ErrPredicateFailed when the
// seat exists but is not FREE, and ErrSeatNotFound when no such seat
// exists.
func (r *SeatRepo) ClaimIfFree(ctx context.Context, id uint64, claimantRef string) (*model.Seat, error) {
	const q = `UPDATE seats
	           SET status = ?, occupant_ref = ?, version = version + 1, updated_at = CURRENT_TIMESTAMP
	           WHERE id = ? AND status = ?`
	res, err := r.db.ExecContext(ctx, q, model.SeatStatusOccupied, claimantRef, id, model.SeatStatusFree)
	if err != nil {
		return nil, storeErr("seat claim", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		// Distinguish a lost race from a missing row.
		if _, err := r.GetByID(ctx, id); err != nil {
			return nil, err
		}
		return nil, ErrPredicateFailed
	}
	return r.GetByID(ctx, id)
}

// ReleaseIfOccupied transitions a seat OCCUPIED -> FREE and clears its
// occupant.  The second return value reports whether a transition
// actually happened: releasing an already-free seat is a no-op success
// and emits no delta.
func (r *SeatRepo) ReleaseIfOccupied(ctx context.Context, id uint64) (*model.Seat, bool, error) {
	const q = `UPDATE seats
	           SET status = ?, occupant_ref = NULL, version = version + 1, updated_at = CURRENT_TIMESTAMP
	           WHERE id = ? AND status = ?`
	res, err := r.db.ExecContext(ctx, q, model.SeatStatusFree, id, model.SeatStatusOccupied)
	if err != nil {
		return nil, false, storeErr("seat release", err)
	}
	n, _ := res.RowsAffected()
	s, err := r.GetByID(ctx, id)
	if err != nil {
		return nil, false, err
	}
	return s, n > 0, nil
}
