// Package ctxmanage carries the per-request trace id through gin contexts.
package ctxmanage

import (
	"github.com/gin-gonic/gin"
)

const TraceIDKey = "trace_id"

// GetTraceIdOfRequest returns the trace id attached by the logging middleware,
// or "unknown" when the middleware did not run (e.g. in tests).
func GetTraceIdOfRequest(c *gin.Context) string {
	traceId, ok := c.Value(TraceIDKey).(string)
	if !ok {
		return "unknown"
	}
	return traceId
}
