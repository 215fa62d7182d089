package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/iliyamo/venue-occupancy/internal/bus"
	"github.com/iliyamo/venue-occupancy/internal/model"
	"github.com/iliyamo/venue-occupancy/internal/repository"
)

// fakeSeatStore is an in-memory SeatStore whose conditional updates
// are linearized by a mutex, mirroring the row-level atomicity the
// MySQL repository provides.
type fakeSeatStore struct {
	mu    sync.Mutex
	seats map[uint64]*model.Seat
}

func newFakeSeatStore(seats ...model.Seat) *fakeSeatStore {
	f := &fakeSeatStore{seats: make(map[uint64]*model.Seat)}
	for i := range seats {
		s := seats[i]
		f.seats[s.ID] = &s
	}
	return f
}

func (f *fakeSeatStore) GetByID(_ context.Context, id uint64) (*model.Seat, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.seats[id]
	if !ok {
		return nil, repository.ErrSeatNotFound
	}
	cp := *s
	return &cp, nil
}

func (f *fakeSeatStore) ListByVenue(_ context.Context, venueID uint64) ([]model.Seat, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.Seat
	for _, s := range f.seats {
		if s.VenueID == venueID {
			out = append(out, *s)
		}
	}
	return out, nil
}

func (f *fakeSeatStore) ClaimIfFree(_ context.Context, id uint64, claimantRef string) (*model.Seat, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.seats[id]
	if !ok {
		return nil, repository.ErrSeatNotFound
	}
	if s.Status != model.SeatStatusFree {
		return nil, repository.ErrPredicateFailed
	}
	ref := claimantRef
	s.Status = model.SeatStatusOccupied
	s.OccupantRef = &ref
	s.Version++
	s.UpdatedAt = time.Now().UTC()
	cp := *s
	return &cp, nil
}

func (f *fakeSeatStore) ReleaseIfOccupied(_ context.Context, id uint64) (*model.Seat, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.seats[id]
	if !ok {
		return nil, false, repository.ErrSeatNotFound
	}
	changed := false
	if s.Status == model.SeatStatusOccupied {
		s.Status = model.SeatStatusFree
		s.OccupantRef = nil
		s.Version++
		s.UpdatedAt = time.Now().UTC()
		changed = true
	}
	cp := *s
	return &cp, changed, nil
}

func freeSeat(id, venueID uint64) model.Seat {
	return model.Seat{ID: id, VenueID: venueID, Label: "A1", Status: model.SeatStatusFree, Category: "STANDARD"}
}

func TestBookingService_Claim(t *testing.T) {
	t.Run("claims a free seat and emits a delta", func(t *testing.T) {
		store := newFakeSeatStore(freeSeat(1, 7))
		b := bus.New(8)
		sub := b.Subscribe(7)
		defer sub.Close()
		svc := NewBookingService(store, b, nil)

		seat, err := svc.Claim(context.Background(), 1, "guest-42")
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if seat.Status != model.SeatStatusOccupied {
			t.Fatalf("expected OCCUPIED, got %s", seat.Status)
		}
		if seat.OccupantRef == nil || *seat.OccupantRef != "guest-42" {
			t.Fatalf("expected occupant guest-42, got %v", seat.OccupantRef)
		}

		select {
		case d := <-sub.Deltas():
			if d.EntityKind != model.EntityKindSeat || d.EntityID != "1" || d.Version != 1 {
				t.Fatalf("unexpected delta %+v", d)
			}
			if d.NewFields["status"] != model.SeatStatusOccupied {
				t.Fatalf("delta does not reflect new status: %+v", d.NewFields)
			}
		case <-time.After(time.Second):
			t.Fatal("no delta published")
		}
	})

	t.Run("rejects an empty claimant", func(t *testing.T) {
		svc := NewBookingService(newFakeSeatStore(freeSeat(1, 7)), bus.New(8), nil)
		if _, err := svc.Claim(context.Background(), 1, "   "); !errors.Is(err, ErrEmptyClaimant) {
			t.Fatalf("expected ErrEmptyClaimant, got %v", err)
		}
	})

	t.Run("unknown seat", func(t *testing.T) {
		svc := NewBookingService(newFakeSeatStore(), bus.New(8), nil)
		if _, err := svc.Claim(context.Background(), 99, "guest"); !errors.Is(err, ErrUnknownSeat) {
			t.Fatalf("expected ErrUnknownSeat, got %v", err)
		}
	})

	t.Run("occupied seat reports already taken", func(t *testing.T) {
		store := newFakeSeatStore(freeSeat(1, 7))
		svc := NewBookingService(store, bus.New(8), nil)
		if _, err := svc.Claim(context.Background(), 1, "first"); err != nil {
			t.Fatalf("setup claim failed: %v", err)
		}
		if _, err := svc.Claim(context.Background(), 1, "second"); !errors.Is(err, ErrSeatAlreadyTaken) {
			t.Fatalf("expected ErrSeatAlreadyTaken, got %v", err)
		}
	})
}

func TestBookingService_ConcurrentClaimsSingleWinner(t *testing.T) {
	const claimants = 32
	store := newFakeSeatStore(freeSeat(1, 7))
	svc := NewBookingService(store, bus.New(64), nil)

	var wg sync.WaitGroup
	results := make([]error, claimants)
	winners := make([]string, claimants)
	start := make(chan struct{})
	for i := 0; i < claimants; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			<-start
			ref := "guest-" + string(rune('a'+n%26)) + "-" + string(rune('0'+n/26))
			winners[n] = ref
			_, results[n] = svc.Claim(context.Background(), 1, ref)
		}(i)
	}
	close(start)
	wg.Wait()

	var wins, losses int
	var winnerRef string
	for i, err := range results {
		switch {
		case err == nil:
			wins++
			winnerRef = winners[i]
		case errors.Is(err, ErrSeatAlreadyTaken):
			losses++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if wins != 1 || losses != claimants-1 {
		t.Fatalf("expected exactly 1 winner and %d losses, got %d/%d", claimants-1, wins, losses)
	}

	seat, err := store.GetByID(context.Background(), 1)
	if err != nil {
		t.Fatalf("reload seat: %v", err)
	}
	if seat.OccupantRef == nil || *seat.OccupantRef != winnerRef {
		t.Fatalf("final occupant %v does not match winner %q", seat.OccupantRef, winnerRef)
	}
}

func TestBookingService_Release(t *testing.T) {
	t.Run("releases an occupied seat and emits a delta", func(t *testing.T) {
		store := newFakeSeatStore(freeSeat(1, 7))
		b := bus.New(8)
		svc := NewBookingService(store, b, nil)
		if _, err := svc.Claim(context.Background(), 1, "guest"); err != nil {
			t.Fatalf("setup claim failed: %v", err)
		}

		sub := b.Subscribe(7)
		defer sub.Close()

		seat, err := svc.Release(context.Background(), 1)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if seat.Status != model.SeatStatusFree || seat.OccupantRef != nil {
			t.Fatalf("expected free unoccupied seat, got %+v", seat)
		}
		select {
		case d := <-sub.Deltas():
			if d.Version != 2 {
				t.Fatalf("expected version 2 after claim+release, got %d", d.Version)
			}
		case <-time.After(time.Second):
			t.Fatal("no delta published for release")
		}
	})

	t.Run("releasing a free seat is a silent no-op", func(t *testing.T) {
		store := newFakeSeatStore(freeSeat(1, 7))
		b := bus.New(8)
		sub := b.Subscribe(7)
		defer sub.Close()
		svc := NewBookingService(store, b, nil)

		seat, err := svc.Release(context.Background(), 1)
		if err != nil {
			t.Fatalf("expected idempotent success, got %v", err)
		}
		if seat.Status != model.SeatStatusFree || seat.Version != 0 {
			t.Fatalf("no-op release must not change the seat: %+v", seat)
		}
		select {
		case d := <-sub.Deltas():
			t.Fatalf("no delta expected for a no-op release, got %+v", d)
		default:
		}
	})

	t.Run("unknown seat", func(t *testing.T) {
		svc := NewBookingService(newFakeSeatStore(), bus.New(8), nil)
		if _, err := svc.Release(context.Background(), 99); !errors.Is(err, ErrUnknownSeat) {
			t.Fatalf("expected ErrUnknownSeat, got %v", err)
		}
	})
}
