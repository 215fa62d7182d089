package handler

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/venue-occupancy/internal/bus"
	"github.com/iliyamo/venue-occupancy/internal/model"
	"github.com/iliyamo/venue-occupancy/internal/repository"
	"github.com/iliyamo/venue-occupancy/internal/session"
)

// StreamHandler attaches viewer transports (guest booking screen,
// manager floor map, kitchen display) to sync sessions over
// server-sent events.
type StreamHandler struct {
	Bus     *bus.Bus
	Seats   *repository.SeatRepo
	Tickets *repository.TicketRepo
}

// NewStreamHandler constructs a StreamHandler.
func NewStreamHandler(b *bus.Bus, seats *repository.SeatRepo, tickets *repository.TicketRepo) *StreamHandler {
	if b == nil || seats == nil || tickets == nil {
		panic("nil dependency passed to NewStreamHandler")
	}
	return &StreamHandler{Bus: b, Seats: seats, Tickets: tickets}
}

// Stream handles GET /v1/venues/:id/stream.  It upgrades the response
// to an SSE stream, delivers the venue snapshot as the first event and
// then one event per committed delta.  A "gap" event tells the client
// a fresh snapshot follows.  The session ends when the client
// disconnects (request context cancellation).
func (h *StreamHandler) Stream(c echo.Context) error {
	venueID, err := parseVenueID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid venue id"})
	}

	resp := c.Response()
	resp.Header().Set(echo.HeaderContentType, "text/event-stream")
	resp.Header().Set("Cache-Control", "no-cache")
	resp.Header().Set("Connection", "keep-alive")
	resp.WriteHeader(http.StatusOK)
	resp.Flush()

	sess := session.New(h.Bus, venueID, &sseTransport{resp: resp}, h.Seats, h.Tickets)
	defer sess.Close()
	return sess.Run(c.Request().Context())
}

// sseTransport writes session payloads as server-sent events.  The
// session forwards serially, so no locking is needed here.
type sseTransport struct {
	resp *echo.Response
}

func (t *sseTransport) send(event string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(t.resp, "event: %s\ndata: %s\n\n", event, data); err != nil {
		return err
	}
	t.resp.Flush()
	return nil
}

func (t *sseTransport) SendSnapshot(snap session.Snapshot) error {
	return t.send("snapshot", snap)
}

func (t *sseTransport) SendDelta(delta model.StateDelta) error {
	return t.send("delta", delta)
}

func (t *sseTransport) SendGapNotice() error {
	return t.send("gap", echo.Map{"resync": true})
}
