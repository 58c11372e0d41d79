package observability

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Route prefixes of the three API surfaces.
const (
	AdminPathPrefix   = "/admin/api"
	StudentPathPrefix = "/student/api"
	PublicPathPrefix  = "/api"
)

// Surface labels used on request metrics.
const (
	SurfaceAdmin   = "admin"
	SurfaceStudent = "student"
	SurfacePublic  = "public"
	SurfaceOther   = "other"
)

// SurfaceOf classifies a request path by API surface.
func SurfaceOf(path string) string {
	switch {
	case hasPrefix(path, AdminPathPrefix):
		return SurfaceAdmin
	case hasPrefix(path, StudentPathPrefix):
		return SurfaceStudent
	case hasPrefix(path, PublicPathPrefix):
		return SurfacePublic
	default:
		return SurfaceOther
	}
}

func hasPrefix(path, prefix string) bool {
	return path == prefix || strings.HasPrefix(path, prefix+"/")
}

// MetricsHandler exposes the Prometheus scrape endpoint via Fiber.
func MetricsHandler() fiber.Handler {
	RegisterMetrics()
	return adaptor.HTTPHandler(promhttp.HandlerFor(prometheus.DefaultGatherer, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	}))
}
