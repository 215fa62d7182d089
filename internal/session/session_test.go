package session

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/iliyamo/venue-occupancy/internal/bus"
	"github.com/iliyamo/venue-occupancy/internal/model"
)

// fakeFloor is a mutable in-memory seat/ticket source standing in for
// the store a live session snapshots from.
type fakeFloor struct {
	mu      sync.Mutex
	seats   []model.Seat
	tickets []model.Ticket
}

func (f *fakeFloor) ListByVenue(_ context.Context, venueID uint64) ([]model.Seat, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]model.Seat, 0, len(f.seats))
	for _, s := range f.seats {
		if s.VenueID == venueID {
			out = append(out, s)
		}
	}
	return out, nil
}

func (f *fakeFloor) setSeat(s model.Seat) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.seats {
		if f.seats[i].ID == s.ID {
			f.seats[i] = s
			return
		}
	}
	f.seats = append(f.seats, s)
}

// fakeTicketFloor satisfies TicketSource for the same venue.
type fakeTicketFloor struct{}

func (fakeTicketFloor) ListByVenue(context.Context, uint64) ([]model.Ticket, error) {
	return nil, nil
}

// fakeViewer records what the session pushes over the transport.
// When gate is non-nil every delta send waits on it, simulating a
// stalled viewer connection.
type fakeViewer struct {
	snaps  chan Snapshot
	deltas chan model.StateDelta
	gaps   chan struct{}
	gate   chan struct{}
}

func newFakeViewer(gate chan struct{}) *fakeViewer {
	return &fakeViewer{
		snaps:  make(chan Snapshot, 8),
		deltas: make(chan model.StateDelta, 64),
		gaps:   make(chan struct{}, 8),
		gate:   gate,
	}
}

func (v *fakeViewer) SendSnapshot(snap Snapshot) error {
	v.snaps <- snap
	return nil
}

func (v *fakeViewer) SendDelta(delta model.StateDelta) error {
	if v.gate != nil {
		<-v.gate
	}
	v.deltas <- delta
	return nil
}

func (v *fakeViewer) SendGapNotice() error {
	v.gaps <- struct{}{}
	return nil
}

func seatV(id, venueID, version uint64) model.Seat {
	status := model.SeatStatusFree
	if version%2 == 1 {
		status = model.SeatStatusOccupied
	}
	return model.Seat{ID: id, VenueID: venueID, Label: "A1", Status: status, Version: version}
}

func deltaV(id string, venueID, version uint64) model.StateDelta {
	return model.StateDelta{
		EntityKind:  model.EntityKindSeat,
		EntityID:    id,
		VenueID:     venueID,
		NewFields:   map[string]any{"status": model.SeatStatusOccupied},
		Version:     version,
		CommittedAt: time.Now().UTC(),
	}
}

func waitSnapshot(t *testing.T, v *fakeViewer) Snapshot {
	t.Helper()
	select {
	case snap := <-v.snaps:
		return snap
	case <-time.After(2 * time.Second):
		t.Fatal("no snapshot delivered")
		return Snapshot{}
	}
}

func TestSession_SnapshotThenDeltas(t *testing.T) {
	floor := &fakeFloor{}
	floor.setSeat(seatV(1, 7, 2))
	b := bus.New(16)
	viewer := newFakeViewer(nil)
	sess := New(b, 7, viewer, floor, fakeTicketFloor{})
	defer sess.Close()

	done := make(chan error, 1)
	go func() { done <- sess.Run(context.Background()) }()

	snap := waitSnapshot(t, viewer)
	if len(snap.Seats) != 1 || snap.Seats[0].Version != 2 {
		t.Fatalf("unexpected snapshot %+v", snap)
	}
	if sess.State() != StateSynced {
		t.Fatalf("expected SYNCED, got %s", sess.State())
	}

	// A delta already reflected by the snapshot must be suppressed;
	// newer ones are forwarded in version order.
	b.Publish(deltaV("1", 7, 2))
	b.Publish(deltaV("1", 7, 3))
	b.Publish(deltaV("1", 7, 4))

	for _, want := range []uint64{3, 4} {
		select {
		case d := <-viewer.deltas:
			if d.Version != want {
				t.Fatalf("expected version %d, got %d", want, d.Version)
			}
		case <-time.After(2 * time.Second):
			t.Fatalf("delta %d not forwarded", want)
		}
	}
	select {
	case d := <-viewer.deltas:
		t.Fatalf("stale delta forwarded: %+v", d)
	case <-time.After(50 * time.Millisecond):
	}

	sess.Close()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run returned error: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not stop after Close")
	}
	if sess.State() != StateClosed {
		t.Fatalf("expected CLOSED, got %s", sess.State())
	}
	if got := b.SubscriberCount(7); got != 0 {
		t.Fatalf("dangling bus subscription after close: %d", got)
	}
}

func TestSession_VersionsStrictlyIncreasing(t *testing.T) {
	floor := &fakeFloor{}
	floor.setSeat(seatV(1, 7, 0))
	b := bus.New(16)
	viewer := newFakeViewer(nil)
	sess := New(b, 7, viewer, floor, fakeTicketFloor{})
	defer sess.Close()
	go func() { _ = sess.Run(context.Background()) }()
	waitSnapshot(t, viewer)

	// Out-of-order republication of an older version must not reach
	// the viewer.
	b.Publish(deltaV("1", 7, 1))
	b.Publish(deltaV("1", 7, 3))
	b.Publish(deltaV("1", 7, 2))
	b.Publish(deltaV("1", 7, 4))

	var got []uint64
	deadline := time.After(2 * time.Second)
	for len(got) < 3 {
		select {
		case d := <-viewer.deltas:
			got = append(got, d.Version)
		case <-deadline:
			t.Fatalf("timed out, forwarded so far: %v", got)
		}
	}
	want := []uint64{1, 3, 4}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("forwarded versions %v, want %v", got, want)
		}
	}
}

func TestSession_GapResyncConverges(t *testing.T) {
	floor := &fakeFloor{}
	floor.setSeat(seatV(1, 7, 0))
	b := bus.New(1) // tiny retention forces the gap
	gate := make(chan struct{})
	viewer := newFakeViewer(gate)
	sess := New(b, 7, viewer, floor, fakeTicketFloor{})
	defer sess.Close()
	go func() { _ = sess.Run(context.Background()) }()
	waitSnapshot(t, viewer)

	// Three commits while the viewer's transport is stalled: the first
	// occupies the session, the second fills the retention window, the
	// third overflows it.  The floor reflects every commit, as the real
	// store would.
	for v := uint64(1); v <= 3; v++ {
		floor.setSeat(seatV(1, 7, v))
		b.Publish(deltaV("1", 7, v))
	}

	// Unblock the transport; the session must announce the gap and
	// deliver a fresh snapshot.
	close(gate)

	select {
	case <-viewer.gaps:
	case <-time.After(2 * time.Second):
		t.Fatal("no gap notice delivered")
	}
	resnap := waitSnapshot(t, viewer)
	if len(resnap.Seats) != 1 || resnap.Seats[0].Version != 3 {
		t.Fatalf("resync snapshot stale: %+v", resnap)
	}

	// The combined view (snapshot + any forwarded deltas) must equal
	// that of a viewer that never stalled: latest version 3, never
	// regressing.
	highest := resnap.Seats[0].Version
	timeout := time.After(200 * time.Millisecond)
drain:
	for {
		select {
		case d := <-viewer.deltas:
			if d.Version > 3 {
				t.Fatalf("delta beyond committed state: %+v", d)
			}
			if d.Version > highest {
				highest = d.Version
			}
		case <-timeout:
			break drain
		}
	}
	if highest != 3 {
		t.Fatalf("viewer converged at version %d, want 3", highest)
	}
}

func TestSession_ContextCancelStopsRun(t *testing.T) {
	floor := &fakeFloor{}
	floor.setSeat(seatV(1, 7, 0))
	b := bus.New(16)
	viewer := newFakeViewer(nil)
	sess := New(b, 7, viewer, floor, fakeTicketFloor{})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- sess.Run(ctx) }()
	waitSnapshot(t, viewer)

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run returned error: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not stop on context cancellation")
	}
	if got := b.SubscriberCount(7); got != 0 {
		t.Fatalf("dangling bus subscription after cancellation: %d", got)
	}
}
