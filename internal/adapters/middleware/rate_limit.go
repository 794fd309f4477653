package middleware

import (
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v3"

	"github.com/linktally/linktally/internal/core/ports"
)

type RateLimitMiddleware struct {
	limiter ports.RateLimiter
	limit   int
	window  time.Duration
}

func NewRateLimitMiddleware(limiter ports.RateLimiter, limit int, window time.Duration) *RateLimitMiddleware {
	return &RateLimitMiddleware{limiter: limiter, limit: limit, window: window}
}

// Handle gates the request on the caller's sliding window. A store error
// denies the request: failing open during an outage would make the limiter
// worthless exactly when it is needed most.
func (rl *RateLimitMiddleware) Handle(c fiber.Ctx) error {
	identity := ClientIP(c)

	decision, err := rl.limiter.Check(c.Context(), identity, rl.limit, rl.window)
	if err != nil {
		return c.Status(500).JSON(fiber.Map{
			"error": "Rate limiter unavailable, request denied",
		})
	}
	if !decision.Allowed {
		c.Set("Retry-After", strconv.Itoa(int(rl.window/time.Second)))
		c.Set("X-RateLimit-Remaining", "0")
		return c.Status(429).JSON(fiber.Map{
			"error": "Too many requests",
		})
	}

	c.Set("X-RateLimit-Remaining", strconv.Itoa(decision.Remaining))
	return c.Next()
}

// ClientIP prefers the first X-Forwarded-For hop so identities survive a
// reverse proxy, falling back to the connection address.
func ClientIP(c fiber.Ctx) string {
	if fwd := c.Get("X-Forwarded-For"); fwd != "" {
		if idx := strings.IndexByte(fwd, ','); idx != -1 {
			return strings.TrimSpace(fwd[:idx])
		}
		return strings.TrimSpace(fwd)
	}
	return c.IP()
}
