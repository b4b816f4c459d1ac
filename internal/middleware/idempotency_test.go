package middleware

import (
	"io"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"

	"github.com/congo-pay/walletd/internal/apierr"
	"github.com/congo-pay/walletd/internal/logging"
)

func setupTestApp(t *testing.T) (*fiber.App, *int64, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("start miniredis: %v", err)
	}

	cache := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		cache.Close()
		mr.Close()
	})

	var calls int64
	app := fiber.New(fiber.Config{ErrorHandler: apierr.Handler(logging.Discard())})
	app.Use(Idempotency(cache, time.Minute, logging.Discard()))
	app.Post("/wallets/:walletId/operation", func(c *fiber.Ctx) error {
		n := atomic.AddInt64(&calls, 1)
		if c.Params("walletId") == "broke" {
			return apierr.New(fiber.StatusPaymentRequired, apierr.CodeInsufficientFunds, "insufficient funds")
		}
		return c.Status(fiber.StatusOK).JSON(fiber.Map{"call": n})
	})

	return app, &calls, mr
}

func post(t *testing.T, app *fiber.App, path, key string) (int, string) {
	t.Helper()
	req := httptest.NewRequest(fiber.MethodPost, path, strings.NewReader("{}"))
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	if key != "" {
		req.Header.Set(idempotencyKeyHeader, key)
	}
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()
	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return resp.StatusCode, string(payload)
}

func TestIdempotencyWithoutHeaderPassesThrough(t *testing.T) {
	app, calls, _ := setupTestApp(t)

	post(t, app, "/wallets/w1/operation", "")
	post(t, app, "/wallets/w1/operation", "")

	if *calls != 2 {
		t.Fatalf("expected handler to run twice, ran %d", *calls)
	}
}

func TestIdempotencyReturnsCachedResponse(t *testing.T) {
	app, calls, _ := setupTestApp(t)

	status, first := post(t, app, "/wallets/w1/operation", "abc123")
	if status != fiber.StatusOK {
		t.Fatalf("expected status %d got %d", fiber.StatusOK, status)
	}

	// Second request should return the cached response without invoking the handler again.
	status, second := post(t, app, "/wallets/w1/operation", "abc123")
	if status != fiber.StatusOK {
		t.Fatalf("expected cached status %d got %d", fiber.StatusOK, status)
	}
	if second != first {
		t.Fatalf("expected cached payload %s got %s", first, second)
	}
	if *calls != 1 {
		t.Fatalf("expected handler to run once, ran %d", *calls)
	}
}

func TestIdempotencyKeyScopedToPath(t *testing.T) {
	app, calls, _ := setupTestApp(t)

	post(t, app, "/wallets/w1/operation", "same")
	post(t, app, "/wallets/w2/operation", "same")

	if *calls != 2 {
		t.Fatalf("expected key reuse on another wallet to run the handler, ran %d", *calls)
	}
}

func TestIdempotencyFailedRequestReleasesKey(t *testing.T) {
	app, calls, mr := setupTestApp(t)

	status, _ := post(t, app, "/wallets/broke/operation", "retry-me")
	if status != fiber.StatusPaymentRequired {
		t.Fatalf("expected 402, got %d", status)
	}
	if len(mr.Keys()) != 0 {
		t.Fatalf("expected reservation to be released, keys=%v", mr.Keys())
	}

	post(t, app, "/wallets/broke/operation", "retry-me")
	if *calls != 2 {
		t.Fatalf("expected failed request to be retryable, ran %d", *calls)
	}
}

func TestIdempotencyInProgressConflict(t *testing.T) {
	app, calls, mr := setupTestApp(t)

	mr.Set(idempotencyPrefix+"POST:/wallets/w1/operation:busy", inProgressMarker)

	status, _ := post(t, app, "/wallets/w1/operation", "busy")
	if status != fiber.StatusConflict {
		t.Fatalf("expected 409 while in progress, got %d", status)
	}
	if *calls != 0 {
		t.Fatalf("handler must not run while key is in progress, ran %d", *calls)
	}
}
