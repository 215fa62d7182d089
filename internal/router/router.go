package router // package router defines how HTTP routes are registered for the API

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/venue-occupancy/internal/handler"
	"github.com/iliyamo/venue-occupancy/internal/middleware"
)

// RegisterRoutes registers routes that do not require authentication on
// the provided Echo instance.  Currently it exposes only a health check
// used by load balancers and monitoring systems.
func RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", handler.Health)
}

// RegisterPublic registers guest-facing endpoints: the seat snapshot,
// the live delta stream and the claim intent.  Guests are verified by
// an upstream collaborator before reaching the claim endpoint, so no
// JWT applies here; the rate limiter still guards the claim path.
// The cache middleware applies only to the seat snapshot, which is the
// one response that is both hot and rebuildable from the stream.
func RegisterPublic(e *echo.Echo, fp *handler.FloorPlanHandler, st *handler.StreamHandler, bk *handler.BookingHandler, cache echo.MiddlewareFunc, ratelimit echo.MiddlewareFunc) {
	e.GET("/v1/venues/:id/seats", fp.ListSeats, cache)
	e.GET("/v1/venues/:id/stream", st.Stream)
	e.POST("/v1/seats/:id/claim", bk.ClaimSeat, ratelimit)
}

// RegisterStaff registers endpoints for venue staff: floor-plan setup,
// ticket issuance and listing, and manual seat release.  All routes
// require a valid JWT with the STAFF role; token issuance lives in the
// operator's identity service.
func RegisterStaff(e *echo.Echo, fp *handler.FloorPlanHandler, tk *handler.TicketHandler, bk *handler.BookingHandler, jwtSecret string) {
	g := e.Group(
		"/v1",
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole("STAFF"),
	)
	g.POST("/venues/:id/seats", fp.CreateSeats)
	g.POST("/venues/:id/tickets", tk.IssueTicket)
	g.GET("/venues/:id/tickets", tk.ListTickets)
	g.POST("/seats/:id/release", bk.ReleaseSeat)
}

// RegisterScanner registers the check-in endpoint for door scanner
// devices.  Scanners present a provisioned key rather than a JWT, and
// the rate limiter caps the sustained scan rate per device.
func RegisterScanner(e *echo.Echo, ck *handler.CheckinHandler, scannerKeyHash string, ratelimit echo.MiddlewareFunc) {
	e.POST("/v1/checkin", ck.Redeem, middleware.ScannerAuth(scannerKeyHash), ratelimit)
}
