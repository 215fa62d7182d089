package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/iliyamo/venue-occupancy/internal/bus"
	"github.com/iliyamo/venue-occupancy/internal/model"
	"github.com/iliyamo/venue-occupancy/internal/repository"
	"github.com/iliyamo/venue-occupancy/internal/service"
)

// memTicketStore is a minimal linearizable TicketStore for handler tests.
type memTicketStore struct {
	mu      sync.Mutex
	tickets map[string]*model.Ticket
}

func newMemTicketStore(tickets ...model.Ticket) *memTicketStore {
	m := &memTicketStore{tickets: make(map[string]*model.Ticket)}
	for i := range tickets {
		t := tickets[i]
		m.tickets[t.ID] = &t
	}
	return m
}

func (m *memTicketStore) GetByID(_ context.Context, id string) (*model.Ticket, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tickets[id]
	if !ok {
		return nil, repository.ErrTicketNotFound
	}
	cp := *t
	return &cp, nil
}

func (m *memTicketStore) ListByVenue(_ context.Context, venueID uint64) ([]model.Ticket, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.Ticket
	for _, t := range m.tickets {
		if t.VenueID == venueID {
			out = append(out, *t)
		}
	}
	return out, nil
}

func (m *memTicketStore) RedeemIfIssued(_ context.Context, id string) (*model.Ticket, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tickets[id]
	if !ok {
		return nil, repository.ErrTicketNotFound
	}
	if t.Status != model.TicketStatusIssued {
		return nil, repository.ErrPredicateFailed
	}
	t.Status = model.TicketStatusUsed
	t.Version++
	t.UpdatedAt = time.Now().UTC()
	cp := *t
	return &cp, nil
}

func newCheckinHandler(tickets ...model.Ticket) *CheckinHandler {
	svc := service.NewCheckinService(newMemTicketStore(tickets...), bus.New(8), nil)
	return NewCheckinHandler(svc)
}

func TestCheckinHandler_Redeem(t *testing.T) {
	issued := model.Ticket{
		ID: "11111111-2222-3333-4444-555555555555", VenueID: 7,
		HolderName: "Dana Vale", AdmitCount: 2, Date: "2026-09-01",
		Status: model.TicketStatusIssued,
	}

	t.Run("admits on first scan", func(t *testing.T) {
		h := newCheckinHandler(issued)
		rec := doJSON(t, h.Redeem, http.MethodPost, "/v1/checkin",
			`{"code":"ID: `+issued.ID+`"}`, nil)
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}
		var res service.CheckinResult
		if err := json.Unmarshal(rec.Body.Bytes(), &res); err != nil {
			t.Fatalf("bad response body: %v", err)
		}
		if !res.Admitted || res.HolderName != "Dana Vale" || res.AdmitCount != 2 || res.VenueID != 7 {
			t.Fatalf("unexpected admission result %+v", res)
		}
	})

	t.Run("reports already used on second scan", func(t *testing.T) {
		h := newCheckinHandler(issued)
		doJSON(t, h.Redeem, http.MethodPost, "/v1/checkin", `{"code":"`+issued.ID+`"}`, nil)
		rec := doJSON(t, h.Redeem, http.MethodPost, "/v1/checkin", `{"code":"`+issued.ID+`"}`, nil)
		if rec.Code != http.StatusOK {
			t.Fatalf("a duplicate scan is not a server error; got %d", rec.Code)
		}
		var res service.CheckinResult
		if err := json.Unmarshal(rec.Body.Bytes(), &res); err != nil {
			t.Fatalf("bad response body: %v", err)
		}
		if res.Admitted || res.Reason != service.ReasonAlreadyUsed {
			t.Fatalf("expected already_used denial, got %+v", res)
		}
	})

	t.Run("reports invalid code for unknown ticket", func(t *testing.T) {
		h := newCheckinHandler()
		rec := doJSON(t, h.Redeem, http.MethodPost, "/v1/checkin", `{"code":"ID: nope"}`, nil)
		var res service.CheckinResult
		if err := json.Unmarshal(rec.Body.Bytes(), &res); err != nil {
			t.Fatalf("bad response body: %v", err)
		}
		if res.Admitted || res.Reason != service.ReasonInvalidCode {
			t.Fatalf("expected invalid_code denial, got %+v", res)
		}
	})
}
