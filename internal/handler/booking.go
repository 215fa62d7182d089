package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/venue-occupancy/internal/service"
)

// BookingHandler exposes the booking intent boundary: seat claims from
// guest clients and manual releases by staff.  A lost claim is an
// expected steady-state outcome and maps to 409, clearly separated
// from the 503 an infrastructure failure produces.
type BookingHandler struct {
	Booking *service.BookingService
}

// NewBookingHandler constructs a BookingHandler.
func NewBookingHandler(booking *service.BookingService) *BookingHandler {
	if booking == nil {
		panic("nil service passed to NewBookingHandler")
	}
	return &BookingHandler{Booking: booking}
}

// ClaimSeat handles POST /v1/seats/:id/claim.  The body carries the
// claimant reference of the guest whose booking flow verified them
// upstream.  Exactly one of any number of concurrent claims on the
// same seat succeeds; the rest receive 409 and must not be retried
// automatically or redirected to a different seat.
func (h *BookingHandler) ClaimSeat(c echo.Context) error {
	seatID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || seatID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid seat id"})
	}
	var body struct {
		ClaimantRef string `json:"claimant_ref"`
	}
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	seat, err := h.Booking.Claim(c.Request().Context(), seatID, body.ClaimantRef)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrEmptyClaimant):
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "claimant_ref is required"})
		case errors.Is(err, service.ErrSeatAlreadyTaken):
			return c.JSON(http.StatusConflict, echo.Map{"error": "seat already taken"})
		case errors.Is(err, service.ErrUnknownSeat):
			return c.JSON(http.StatusNotFound, echo.Map{"error": "seat not found"})
		}
		return storeFailure(c, err, "failed to claim seat")
	}
	return c.JSON(http.StatusOK, echo.Map{"seat": seat})
}

// ReleaseSeat handles POST /v1/seats/:id/release.  Staff clear a seat
// back to free; releasing an already-free seat is a no-op success.
func (h *BookingHandler) ReleaseSeat(c echo.Context) error {
	seatID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || seatID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid seat id"})
	}
	seat, err := h.Booking.Release(c.Request().Context(), seatID)
	if err != nil {
		if errors.Is(err, service.ErrUnknownSeat) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "seat not found"})
		}
		return storeFailure(c, err, "failed to release seat")
	}
	return c.JSON(http.StatusOK, echo.Map{"seat": seat})
}
