package relay

import (
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/helmet"
)

// securityHeaders returns the fixed security-header middleware.
// helmet only emits Strict-Transport-Security on TLS connections, and
// the relay listens on plain HTTP behind a terminating proxy, so that
// header is set unconditionally here.
func securityHeaders() fiber.Handler {
	h := helmet.New(helmet.Config{
		XFrameOptions:         "DENY",
		ContentSecurityPolicy: "default-src 'self'",
	})
	return func(c *fiber.Ctx) error {
		c.Set(fiber.HeaderStrictTransportSecurity, "max-age=31536000; includeSubDomains")
		return h(c)
	}
}

// corsHeaders returns CORS middleware restricted to an origin whitelist.
// Whitelisted origins are echoed back; anything else gets the first
// allowed origin, so browsers on unknown origins fail the CORS check.
func corsHeaders(allowed []string) fiber.Handler {
	allowedSet := make(map[string]struct{}, len(allowed))
	for _, o := range allowed {
		allowedSet[o] = struct{}{}
	}

	return func(c *fiber.Ctx) error {
		origin := c.Get(fiber.HeaderOrigin)
		if _, ok := allowedSet[origin]; !ok {
			origin = allowed[0]
		}

		c.Set(fiber.HeaderAccessControlAllowOrigin, origin)
		c.Set(fiber.HeaderAccessControlAllowMethods, "GET, POST, OPTIONS")
		c.Set(fiber.HeaderAccessControlAllowHeaders, "Content-Type")

		if c.Method() == fiber.MethodOptions {
			return c.SendStatus(fiber.StatusNoContent)
		}
		return c.Next()
	}
}

// rateLimit enforces the per-client sliding window and exposes the
// standard rate-limit headers on every response.
func (s *Server) rateLimit() fiber.Handler {
	return func(c *fiber.Ctx) error {
		key := c.IP()

		if !s.limiter.Allow(key) {
			retry := s.limiter.RetryAfter(key)
			c.Set("X-RateLimit-Limit", fmt.Sprintf("%d", s.cfg.RateLimitMax))
			c.Set("X-RateLimit-Remaining", "0")
			c.Set(fiber.HeaderRetryAfter, fmt.Sprintf("%d", int(retry/time.Second)+1))
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"error": "Too many requests",
			})
		}

		c.Set("X-RateLimit-Limit", fmt.Sprintf("%d", s.cfg.RateLimitMax))
		c.Set("X-RateLimit-Remaining", fmt.Sprintf("%d", s.limiter.Remaining(key)))
		return c.Next()
	}
}
