package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/metric"

	"github.com/erp/ordersync/internal/infrastructure/telemetry"
)

// HTTPMetrics returns a middleware counting requests by method, route and
// status and recording their latency. A nil meter disables it.
func HTTPMetrics(meter metric.Meter) (gin.HandlerFunc, error) {
	if meter == nil {
		return func(c *gin.Context) { c.Next() }, nil
	}

	b := telemetry.NewInstruments(meter)
	requests := b.Counter("http_server_request_total", "Total number of HTTP requests", "{request}")
	latency := b.Seconds("http_server_request_duration_seconds", "HTTP request latency in seconds", telemetry.HTTPDurationBuckets)
	inFlight := b.UpDownCounter("http_server_active_requests", "HTTP requests in flight", "{request}")
	if err := b.Err(); err != nil {
		return nil, err
	}

	return func(c *gin.Context) {
		ctx := c.Request.Context()
		start := time.Now()

		inFlight.Add(ctx, 1)
		defer inFlight.Add(ctx, -1)
		c.Next()

		// Route pattern, not the raw path, bounds cardinality.
		route := c.FullPath()
		if route == "" {
			route = "unknown"
		}
		method := telemetry.AttrHTTPMethod.String(c.Request.Method)
		routeAttr := telemetry.AttrHTTPRoute.String(route)

		requests.Add(ctx, 1, metric.WithAttributes(method, routeAttr, telemetry.AttrHTTPStatusCode.Int(c.Writer.Status())))
		latency.Record(ctx, time.Since(start).Seconds(), metric.WithAttributes(method, routeAttr))
	}, nil
}
