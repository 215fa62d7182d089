package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/venue-occupancy/internal/service"
)

// CheckinHandler exposes the scan input boundary.  Raw code payloads
// arrive from camera scanners at arbitrary frequency; the service's
// conditional update is the sole mechanism that makes the first scan
// admit and every later scan report already_used.
type CheckinHandler struct {
	Checkin *service.CheckinService
}

// NewCheckinHandler constructs a CheckinHandler.
func NewCheckinHandler(checkin *service.CheckinService) *CheckinHandler {
	if checkin == nil {
		panic("nil service passed to NewCheckinHandler")
	}
	return &CheckinHandler{Checkin: checkin}
}

// Redeem handles POST /v1/checkin.  The body carries the raw scanned
// code (`ID: <uuid>` or a bare UUID).  Denials are 200 responses with
// admitted=false: a duplicate scan is not a server error.
func (h *CheckinHandler) Redeem(c echo.Context) error {
	var body struct {
		Code string `json:"code"`
	}
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	result, err := h.Checkin.Redeem(c.Request().Context(), body.Code)
	if err != nil {
		return storeFailure(c, err, "failed to process check-in")
	}
	return c.JSON(http.StatusOK, result)
}
