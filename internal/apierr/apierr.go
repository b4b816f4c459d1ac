// Package apierr carries the error envelope returned by the HTTP API. Each
// failure kind has a stable code; the message is informational only.
package apierr

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/gofiber/fiber/v2"
)

// Stable error codes.
const (
	CodeNotFound              = "not_found"
	CodeAlreadyExists         = "already_exists"
	CodeInvalidAmount         = "invalid_amount"
	CodeInvalidOperation      = "invalid_operation"
	CodeInsufficientFunds     = "insufficient_funds"
	CodeConflict              = "conflict"
	CodeInvalidWalletID       = "invalid_wallet_id"
	CodeInvalidRequest        = "invalid_request"
	CodeIdempotencyInProgress = "idempotency_in_progress"
	CodeRequestError          = "request_error"
	CodeInternal              = "internal"
)

// Error is an API failure with an HTTP status and a stable code.
type Error struct {
	Status  int
	Code    string
	Message string
}

// New builds an API error.
func New(status int, code, message string) *Error {
	return &Error{Status: status, Code: code, Message: message}
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

type envelope struct {
	Code  string `json:"code"`
	Error string `json:"error"`
}

// Handler renders errors returned by handlers and middleware as the JSON
// envelope. Errors that are neither *Error nor *fiber.Error become 500s.
func Handler(logger *slog.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		var apiErr *Error
		var fiberErr *fiber.Error
		switch {
		case errors.As(err, &apiErr):
		case errors.As(err, &fiberErr):
			apiErr = New(fiberErr.Code, CodeRequestError, fiberErr.Message)
		default:
			if logger != nil {
				logger.Error("unhandled error",
					slog.String("method", c.Method()),
					slog.String("path", c.Path()),
					slog.Any("error", err),
				)
			}
			apiErr = New(http.StatusInternalServerError, CodeInternal, "internal server error")
		}
		return c.Status(apiErr.Status).JSON(envelope{Code: apiErr.Code, Error: apiErr.Message})
	}
}
