package middleware

import (
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/assignment-portal-api/internal/observability"
)

// slowRequest marks the latency above which a successful request is logged at warn.
const slowRequest = 500 * time.Millisecond

// Observability records per-surface request metrics and logs one line for
// every admin or student request. Public reads are counted but not logged.
func Observability(logger zerolog.Logger) fiber.Handler {
	observability.RegisterMetrics()

	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()
		elapsed := time.Since(start)

		surface := observability.SurfaceOf(c.Path())
		if surface == observability.SurfaceOther {
			return err
		}

		route := routeTemplate(c)
		method := c.Method()
		status := c.Response().StatusCode()

		observability.Requests().WithLabelValues(surface, method, route, strconv.Itoa(status)).Inc()
		observability.RequestLatency().WithLabelValues(surface, method, route).Observe(elapsed.Seconds())

		if surface == observability.SurfacePublic {
			return err
		}

		var event *zerolog.Event
		switch {
		case status >= fiber.StatusInternalServerError:
			event = logger.Error()
		case status >= fiber.StatusBadRequest, elapsed > slowRequest:
			event = logger.Warn()
		default:
			event = logger.Info()
		}
		event.
			Str("correlation_id", GetCorrelationID(c)).
			Str("surface", surface).
			Str("method", method).
			Str("route", route).
			Str("ip", c.IP()).
			Int("status", status).
			Dur("latency", elapsed).
			Msg("request completed")

		return err
	}
}

func routeTemplate(c *fiber.Ctx) string {
	if route := c.Route(); route != nil && route.Path != "" {
		return route.Path
	}
	return c.Path()
}
