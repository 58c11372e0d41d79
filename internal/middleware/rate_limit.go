package middleware

import (
	"math"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/assignment-portal-api/internal/ratelimit"
	"github.com/noah-isme/assignment-portal-api/internal/utils"
)

// Admission gates requests through a per-address sliding window limiter.
func Admission(limiter *ratelimit.Limiter, logger zerolog.Logger) fiber.Handler {
	log := logger.With().Str("component", "admission").Str("policy", limiter.Name()).Logger()

	return func(c *fiber.Ctx) error {
		decision := limiter.Allow(c.IP())

		c.Set("X-RateLimit-Limit", strconv.Itoa(decision.Limit))
		c.Set("X-RateLimit-Remaining", strconv.Itoa(decision.Remaining))
		c.Set("X-RateLimit-Reset", decision.ResetAt.UTC().Format(time.RFC3339))

		if decision.Allowed {
			return c.Next()
		}

		retryAfter := int(math.Ceil(time.Until(decision.ResetAt).Seconds()))
		if retryAfter < 1 {
			retryAfter = 1
		}
		c.Set(fiber.HeaderRetryAfter, strconv.Itoa(retryAfter))

		log.Warn().
			Str("correlation_id", GetCorrelationID(c)).
			Str("address", c.IP()).
			Str("path", c.Path()).
			Msg("request rejected by rate limit")

		return utils.Fail(c, fiber.StatusTooManyRequests, "Too many requests, please try again later", fiber.Map{
			"retry_after": retryAfter,
		})
	}
}
