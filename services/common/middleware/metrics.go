package middleware

import (
	"context"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	awspkg "github.com/yashrajoria/tailoring-backend/pkg/aws"
)

// Metrics records request count, latency and error class per route. Route
// templates (c.FullPath) are used as the dimension so ids do not explode
// cardinality.
func Metrics(metricsClient *awspkg.MetricsClient, serviceName string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !metricsClient.IsEnabled() {
			c.Next()
			return
		}

		start := time.Now()
		c.Next()
		duration := time.Since(start)
		status := c.Writer.Status()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		dims := map[string]string{
			"Service": serviceName,
			"Method":  c.Request.Method,
			"Route":   route,
			"Status":  statusClass(status),
		}

		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()

			_ = metricsClient.RecordCount(ctx, awspkg.MetricHTTPRequests, 1, dims)
			_ = metricsClient.RecordLatency(ctx, awspkg.MetricHTTPLatency, duration, dims)
			switch {
			case status >= 500:
				_ = metricsClient.RecordCount(ctx, awspkg.MetricHTTP5xx, 1, dims)
			case status >= 400:
				_ = metricsClient.RecordCount(ctx, awspkg.MetricHTTP4xx, 1, dims)
			}
		}()
	}
}

func statusClass(status int) string {
	if status < 100 || status > 599 {
		return "unknown"
	}
	return strconv.Itoa(status/100) + "xx"
}
