package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/venue-occupancy/internal/model"
	"github.com/iliyamo/venue-occupancy/internal/repository"
	"github.com/iliyamo/venue-occupancy/internal/service"
)

// FloorPlanHandler serves floor-plan setup and the public seat
// snapshot.  Seat creation is a staff operation performed during
// re-authoring; the snapshot is the baseline every viewer loads before
// applying the delta stream.
type FloorPlanHandler struct {
	Seats   *repository.SeatRepo
	Booking *service.BookingService
}

// NewFloorPlanHandler constructs a FloorPlanHandler.
func NewFloorPlanHandler(seats *repository.SeatRepo, booking *service.BookingService) *FloorPlanHandler {
	if seats == nil || booking == nil {
		panic("nil dependency passed to NewFloorPlanHandler")
	}
	return &FloorPlanHandler{Seats: seats, Booking: booking}
}

// seatInput is one seat in a bulk floor-plan request.
type seatInput struct {
	Label    string `json:"label"`
	PosX     int32  `json:"pos_x"`
	PosY     int32  `json:"pos_y"`
	Category string `json:"category"`
}

// CreateSeats handles POST /v1/venues/:id/seats.  Staff submit the
// whole floor plan as an array of seats; rows are inserted in a single
// bulk statement.  Returns 201 with the number of seats created.
func (h *FloorPlanHandler) CreateSeats(c echo.Context) error {
	venueID, err := parseVenueID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid venue id"})
	}
	var body struct {
		Seats []seatInput `json:"seats"`
	}
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if len(body.Seats) == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "seats is required"})
	}
	seats := make([]model.Seat, 0, len(body.Seats))
	for _, in := range body.Seats {
		if in.Label == "" {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "seat label is required"})
		}
		category := in.Category
		if category == "" {
			category = "STANDARD"
		}
		seats = append(seats, model.Seat{
			VenueID:  venueID,
			Label:    in.Label,
			PosX:     in.PosX,
			PosY:     in.PosY,
			Category: category,
		})
	}
	if err := h.Seats.CreateBulk(c.Request().Context(), seats); err != nil {
		return storeFailure(c, err, "failed to create seats")
	}
	return c.JSON(http.StatusCreated, echo.Map{"created": len(seats)})
}

// ListSeats handles GET /v1/venues/:id/seats.  It returns the current
// seat snapshot for a venue.  The route sits behind the short-TTL
// Redis cache; clients needing live state attach to the stream.
func (h *FloorPlanHandler) ListSeats(c echo.Context) error {
	venueID, err := parseVenueID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid venue id"})
	}
	seats, err := h.Booking.Snapshot(c.Request().Context(), venueID)
	if err != nil {
		return storeFailure(c, err, "failed to load seats")
	}
	if seats == nil {
		seats = []model.Seat{}
	}
	return c.JSON(http.StatusOK, echo.Map{"items": seats})
}

func parseVenueID(c echo.Context) (uint64, error) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		return 0, errors.New("invalid venue id")
	}
	return id, nil
}

// storeFailure maps infrastructure errors onto 503 so that callers can
// tell a retryable outage apart from terminal arbitration outcomes.
func storeFailure(c echo.Context, err error, msg string) error {
	if errors.Is(err, repository.ErrStoreUnavailable) {
		return c.JSON(http.StatusServiceUnavailable, echo.Map{"error": "store unavailable"})
	}
	return c.JSON(http.StatusInternalServerError, echo.Map{"error": msg})
}
