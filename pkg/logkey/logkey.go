// Package logkey holds the shared slog attribute keys so log output stays
// consistent across packages.
package logkey

const (
	TraceID = "trace_id"
	ERROR   = "error"
	UserID  = "user_id"
	OrderID = "order_id"
)
