package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	appctx "stockledger/internal/core/context"
)

const (
	HeaderRequestID = "X-Request-ID"
	HeaderTraceID   = "X-Trace-ID"
)

// Trace propagates request and trace identifiers. Incoming header
// values are honored so a caller's correlation ids survive; missing
// ones are generated. Both are echoed back in the response headers.
func Trace() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := headerOrNew(c, HeaderRequestID)
		traceID := headerOrNew(c, HeaderTraceID)

		ctx := appctx.WithTrace(c.Request.Context(), &appctx.TraceContext{
			TraceID:   traceID,
			SpanID:    uuid.New().String()[:16],
			RequestID: requestID,
		})
		c.Request = c.Request.WithContext(ctx)

		c.Set("trace_id", traceID)
		c.Set("request_id", requestID)
		c.Header(HeaderRequestID, requestID)
		c.Header(HeaderTraceID, traceID)

		c.Next()
	}
}

func headerOrNew(c *gin.Context, header string) string {
	if v := c.GetHeader(header); v != "" {
		return v
	}
	return uuid.New().String()
}
