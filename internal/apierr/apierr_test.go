package apierr

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"

	"github.com/congo-pay/walletd/internal/logging"
)

func TestHandlerRendersEnvelope(t *testing.T) {
	app := fiber.New(fiber.Config{ErrorHandler: Handler(logging.Discard())})
	app.Get("/api", func(c *fiber.Ctx) error {
		return New(http.StatusPaymentRequired, CodeInsufficientFunds, "insufficient funds")
	})
	app.Get("/fiber", func(c *fiber.Ctx) error {
		return fiber.NewError(http.StatusTeapot, "short and stout")
	})
	app.Get("/plain", func(c *fiber.Ctx) error {
		return errors.New("boom")
	})

	tests := []struct {
		path   string
		status int
		code   string
	}{
		{path: "/api", status: http.StatusPaymentRequired, code: CodeInsufficientFunds},
		{path: "/fiber", status: http.StatusTeapot, code: CodeRequestError},
		{path: "/plain", status: http.StatusInternalServerError, code: CodeInternal},
		{path: "/missing", status: http.StatusNotFound, code: CodeRequestError},
	}
	for _, tt := range tests {
		resp, err := app.Test(httptest.NewRequest(http.MethodGet, tt.path, nil))
		if err != nil {
			t.Fatalf("%s: %v", tt.path, err)
		}
		if resp.StatusCode != tt.status {
			t.Fatalf("%s: expected status %d, got %d", tt.path, tt.status, resp.StatusCode)
		}
		var body envelope
		if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
			t.Fatalf("%s: decode: %v", tt.path, err)
		}
		resp.Body.Close()
		if body.Code != tt.code {
			t.Fatalf("%s: expected code %s, got %s", tt.path, tt.code, body.Code)
		}
	}
}
