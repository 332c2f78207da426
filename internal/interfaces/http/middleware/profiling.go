package middleware

import (
	"context"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/erp/ordersync/internal/infrastructure/telemetry"
)

// ProfilingConfig holds configuration for the profiling middleware.
type ProfilingConfig struct {
	Enabled bool
	// SkipPaths are exact paths left unlabelled (health checks).
	SkipPaths []string
	// SkipPathPrefixes are path prefixes left unlabelled.
	SkipPathPrefixes []string
}

// DefaultProfilingConfig returns default profiling middleware configuration.
func DefaultProfilingConfig() ProfilingConfig {
	return ProfilingConfig{
		Enabled:          true,
		SkipPaths:        []string{"/health", "/ping"},
		SkipPathPrefixes: []string{"/swagger"},
	}
}

// Profiling attaches Pyroscope labels to the request goroutine so CPU and
// allocation profiles can be sliced by route, method and channel:
//   - route: matched route pattern, e.g. "/api/v1/orders/:order_id"
//   - method: HTTP method
//   - channel_id: the :channel_id path parameter, when the route has one
func Profiling(cfg ProfilingConfig) gin.HandlerFunc {
	if !cfg.Enabled {
		return func(c *gin.Context) {
			c.Next()
		}
	}

	return func(c *gin.Context) {
		if skipProfiling(cfg, c.Request.URL.Path) {
			c.Next()
			return
		}

		labels := map[string]string{
			telemetry.ProfilingLabelMethod:    c.Request.Method,
			telemetry.ProfilingLabelRoute:     c.FullPath(),
			telemetry.ProfilingLabelChannelID: c.Param("channel_id"),
		}
		telemetry.WithProfilingLabels(c.Request.Context(), labels, func(ctx context.Context) {
			c.Request = c.Request.WithContext(ctx)
			c.Next()
		})
	}
}

func skipProfiling(cfg ProfilingConfig, path string) bool {
	for _, p := range cfg.SkipPaths {
		if path == p {
			return true
		}
	}
	for _, prefix := range cfg.SkipPathPrefixes {
		if strings.HasPrefix(path, prefix) {
			return true
		}
	}
	return false
}
