package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/venue-occupancy/internal/utils"
)

// scannerKeyHeader carries the shared key provisioned to door scanner
// devices.  Only the bcrypt hash of the key is configured server-side.
const scannerKeyHeader = "X-Scanner-Key"

// ScannerAuth returns a middleware that authenticates camera scanner
// devices on the check-in route.  The device presents its provisioned
// key in the X-Scanner-Key header; the middleware compares it against
// the configured bcrypt hash.  On success the scanner identity is
// stored in the context under "scanner_id" (the device may optionally
// identify itself via X-Scanner-ID for rate-limit keying and logs).
func ScannerAuth(keyHash string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			key := c.Request().Header.Get(scannerKeyHeader)
			if key == "" || !utils.VerifyAPIKey(keyHash, key) {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid scanner key"})
			}
			if id := c.Request().Header.Get("X-Scanner-ID"); id != "" {
				c.Set("scanner_id", id)
			}
			return next(c)
		}
	}
}
