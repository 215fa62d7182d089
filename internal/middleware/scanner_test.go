package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"golang.org/x/crypto/bcrypt"

	"github.com/iliyamo/venue-occupancy/internal/utils"
)

func callScannerAuth(t *testing.T, keyHash string, headers map[string]string) (*httptest.ResponseRecorder, echo.Context) {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/v1/checkin", nil)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	h := ScannerAuth(keyHash)(func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	})
	if err := h(c); err != nil {
		t.Fatalf("middleware returned error: %v", err)
	}
	return rec, c
}

func TestScannerAuth(t *testing.T) {
	hash, err := utils.HashAPIKey("door-key-1", bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash key: %v", err)
	}

	t.Run("accepts the provisioned key", func(t *testing.T) {
		rec, c := callScannerAuth(t, hash, map[string]string{
			"X-Scanner-Key": "door-key-1",
			"X-Scanner-ID":  "gate-west",
		})
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}
		if got := c.Get("scanner_id"); got != "gate-west" {
			t.Fatalf("expected scanner_id gate-west in context, got %v", got)
		}
	})

	t.Run("rejects a wrong key", func(t *testing.T) {
		rec, _ := callScannerAuth(t, hash, map[string]string{"X-Scanner-Key": "not-the-key"})
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("expected 401, got %d", rec.Code)
		}
	})

	t.Run("rejects a missing key", func(t *testing.T) {
		rec, _ := callScannerAuth(t, hash, nil)
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("expected 401, got %d", rec.Code)
		}
	})
}
