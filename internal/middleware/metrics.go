package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/pjecz/hercules/internal/access"
	"github.com/pjecz/hercules/internal/service"
)

const (
	unmatchedRoute = "unmatched"
	noModule       = "ninguno"
)

// Metrics records every request under its route template and owning module so
// ids do not explode label cardinality. Unmatched routes share one label.
func Metrics(metricsSvc *service.MetricsService) gin.HandlerFunc {
	return func(c *gin.Context) {
		if metricsSvc == nil {
			c.Next()
			return
		}
		start := time.Now()
		c.Next()
		path := c.FullPath()
		if path == "" {
			path = unmatchedRoute
		}
		module := noModule
		if m, ok := access.ModuleForURL(path); ok {
			module = m.String()
		}
		metricsSvc.ObserveHTTPRequest(c.Request.Method, module, path, c.Writer.Status(), time.Since(start))
	}
}
