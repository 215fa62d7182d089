package handler

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/venue-occupancy/internal/model"
	"github.com/iliyamo/venue-occupancy/internal/repository"
)

// TicketHandler serves ticket issuance and the staff ticket listing.
// In production issuance is driven by the booking-confirmation
// collaborator; the endpoint exists so the system is complete on its
// own and for operator tooling.
type TicketHandler struct {
	Tickets *repository.TicketRepo
}

// NewTicketHandler constructs a TicketHandler.
func NewTicketHandler(tickets *repository.TicketRepo) *TicketHandler {
	if tickets == nil {
		panic("nil repository passed to NewTicketHandler")
	}
	return &TicketHandler{Tickets: tickets}
}

// IssueTicket handles POST /v1/venues/:id/tickets.  It creates an
// ISSUED ticket with a fresh UUID and returns the scannable code.
func (h *TicketHandler) IssueTicket(c echo.Context) error {
	venueID, err := parseVenueID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid venue id"})
	}
	var body struct {
		HolderName string `json:"holder_name"`
		AdmitCount uint32 `json:"admit_count"`
		Date       string `json:"date"`
	}
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if body.HolderName == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "holder_name is required"})
	}
	if body.AdmitCount == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "admit_count must be positive"})
	}
	if body.Date == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "date is required"})
	}
	ticket := &model.Ticket{
		ID:         uuid.NewString(),
		VenueID:    venueID,
		HolderName: body.HolderName,
		AdmitCount: body.AdmitCount,
		Date:       body.Date,
		Status:     model.TicketStatusIssued,
	}
	if err := h.Tickets.Create(c.Request().Context(), ticket); err != nil {
		return storeFailure(c, err, "failed to issue ticket")
	}
	return c.JSON(http.StatusCreated, echo.Map{
		"ticket_id": ticket.ID,
		"code":      "ID: " + ticket.ID,
	})
}

// ListTickets handles GET /v1/venues/:id/tickets.  It returns all
// tickets of a venue for the staff view.
func (h *TicketHandler) ListTickets(c echo.Context) error {
	venueID, err := parseVenueID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid venue id"})
	}
	tickets, err := h.Tickets.ListByVenue(c.Request().Context(), venueID)
	if err != nil {
		return storeFailure(c, err, "failed to load tickets")
	}
	if tickets == nil {
		tickets = []model.Ticket{}
	}
	return c.JSON(http.StatusOK, echo.Map{"items": tickets})
}
