package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/hostelhq/maintenance-api/internal/service"
)

// Metrics records one observation per request against the route template,
// falling back to the raw path for unmatched routes.
func Metrics(metricsSvc *service.MetricsService) gin.HandlerFunc {
	if metricsSvc == nil {
		return func(c *gin.Context) { c.Next() }
	}
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}
		metricsSvc.ObserveHTTPRequest(c.Request.Method, path, c.Writer.Status(), time.Since(start))
	}
}
