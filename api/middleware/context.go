package middleware

import "context"

type contextKey string

const (
	ctxAdminID    contextKey = "admin_id"
	ctxAdminEmail contextKey = "admin_email"
)

// AdminIDFromContext returns the authenticated admin's id, empty when the
// request is unauthenticated.
func AdminIDFromContext(ctx context.Context) string {
	if value, ok := ctx.Value(ctxAdminID).(string); ok {
		return value
	}
	return ""
}

// AdminEmailFromContext returns the authenticated admin's email.
func AdminEmailFromContext(ctx context.Context) string {
	if value, ok := ctx.Value(ctxAdminEmail).(string); ok {
		return value
	}
	return ""
}
