package tenantx

import "context"

type contextKey struct{}

// WithTenant stamps the tenant id on the context. The worker does this before
// handing a message to the service so log lines carry the tenant.
func WithTenant(ctx context.Context, tenantID string) context.Context {
	return context.WithValue(ctx, contextKey{}, tenantID)
}

func TenantIDFromContext(ctx context.Context) string {
	if v := ctx.Value(contextKey{}); v != nil {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}
