package middleware

import (
	"context"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v3"

	"github.com/linktally/linktally/internal/core/domain"
)

type stubLimiter struct {
	dec      domain.RateDecision
	err      error
	identity string
}

func (s *stubLimiter) Check(_ context.Context, identity string, _ int, _ time.Duration) (domain.RateDecision, error) {
	s.identity = identity
	return s.dec, s.err
}

func newTestApp(limiter *stubLimiter) *fiber.App {
	app := fiber.New()
	rl := NewRateLimitMiddleware(limiter, 10, time.Minute)
	app.Get("/ping", func(c fiber.Ctx) error { return c.SendString("pong") }, rl.Handle)
	return app
}

func TestHandleAdmits(t *testing.T) {
	limiter := &stubLimiter{dec: domain.RateDecision{Allowed: true, Remaining: 7}}
	app := newTestApp(limiter)

	resp, err := app.Test(httptest.NewRequest("GET", "/ping", nil))
	if err != nil {
		t.Fatalf("Test: %v", err)
	}
	if resp.StatusCode != 200 {
		t.Errorf("status %d, want 200", resp.StatusCode)
	}
	if got := resp.Header.Get("X-RateLimit-Remaining"); got != "7" {
		t.Errorf("X-RateLimit-Remaining = %q, want 7", got)
	}
}

func TestHandleDenies(t *testing.T) {
	limiter := &stubLimiter{dec: domain.RateDecision{Allowed: false}}
	app := newTestApp(limiter)

	resp, err := app.Test(httptest.NewRequest("GET", "/ping", nil))
	if err != nil {
		t.Fatalf("Test: %v", err)
	}
	if resp.StatusCode != 429 {
		t.Errorf("status %d, want 429", resp.StatusCode)
	}
	if resp.Header.Get("Retry-After") == "" {
		t.Error("Retry-After header missing on denial")
	}
}

func TestHandleFailsClosedOnStoreError(t *testing.T) {
	limiter := &stubLimiter{err: domain.ErrStoreUnavailable}
	app := newTestApp(limiter)

	resp, err := app.Test(httptest.NewRequest("GET", "/ping", nil))
	if err != nil {
		t.Fatalf("Test: %v", err)
	}
	if resp.StatusCode != 500 {
		t.Errorf("status %d, want 500 (deny on outage)", resp.StatusCode)
	}
}

func TestIdentityPrefersForwardedFor(t *testing.T) {
	limiter := &stubLimiter{dec: domain.RateDecision{Allowed: true}}
	app := newTestApp(limiter)

	req := httptest.NewRequest("GET", "/ping", nil)
	req.Header.Set("X-Forwarded-For", "203.0.113.9, 10.0.0.1")
	if _, err := app.Test(req); err != nil {
		t.Fatalf("Test: %v", err)
	}
	if limiter.identity != "203.0.113.9" {
		t.Errorf("identity = %q, want first forwarded hop", limiter.identity)
	}
}
