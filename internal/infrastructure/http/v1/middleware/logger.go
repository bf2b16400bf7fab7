package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"oficina/pkg/logger"
	"oficina/pkg/metrics"
)

// Logger middleware logs every request with timing and status and feeds
// the HTTP metrics. Server errors log at Error, client errors at Warn.
func Logger(log *logger.Logger, m *metrics.HTTP) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		latency := time.Since(start)
		status := c.Writer.Status()
		route := c.FullPath()
		m.ObserveRequest(c.Request.Method, route, status, latency)

		fields := []any{
			"method", c.Request.Method,
			"route", route,
			"path", c.Request.URL.Path,
			"status", status,
			"latency_ms", latency.Milliseconds(),
			"client_ip", c.ClientIP(),
		}
		if len(c.Errors) > 0 {
			fields = append(fields, "error", c.Errors.Last().Error())
		}

		l := log.WithContext(c.Request.Context())
		switch {
		case status >= 500:
			l.Errorw("http request", fields...)
		case status >= 400:
			l.Warnw("http request", fields...)
		default:
			l.Infow("http request", fields...)
		}
	}
}
