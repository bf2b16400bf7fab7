package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	appctx "oficina/internal/core/context"
)

const HeaderRequestID = "X-Request-ID"

var tracer = otel.Tracer("oficina/http")

// Trace opens a server span per request and stores trace and request ids in
// the context so logs and error bodies can be correlated. Without a tracer
// provider only the request id is set.
func Trace() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader(HeaderRequestID)
		if requestID == "" {
			requestID = uuid.New().String()
		}

		ctx, span := tracer.Start(c.Request.Context(), c.Request.Method+" "+c.FullPath(),
			trace.WithSpanKind(trace.SpanKindServer),
			trace.WithAttributes(
				attribute.String("http.method", c.Request.Method),
				attribute.String("http.route", c.FullPath()),
				attribute.String("request.id", requestID),
			),
		)
		defer span.End()

		rt := appctx.RequestTrace{RequestID: requestID}
		if sc := span.SpanContext(); sc.IsValid() {
			rt.TraceID, rt.SpanID = sc.TraceID().String(), sc.SpanID().String()
		}

		c.Request = c.Request.WithContext(appctx.WithRequestTrace(ctx, rt))
		c.Set("request_id", requestID)
		c.Header(HeaderRequestID, requestID)

		c.Next()

		span.SetAttributes(attribute.Int("http.status_code", c.Writer.Status()))
	}
}
