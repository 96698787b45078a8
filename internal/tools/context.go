package tools

import "context"

// userIDKey is the context key for the authenticated user.
// Unexported type prevents collisions with keys from other packages.
type userIDKey struct{}

// DefaultUserID is used when no user travels in the context, matching the
// single-user CLI and MCP modes.
const DefaultUserID = "default"

// WithUserID returns a context carrying the user whose cart the tools
// operate on. The agent loop sets this once per invocation.
func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userIDKey{}, userID)
}

// UserIDFromContext returns the user carried in the context, or
// DefaultUserID when none is set.
func UserIDFromContext(ctx context.Context) string {
	if id, ok := ctx.Value(userIDKey{}).(string); ok && id != "" {
		return id
	}
	return DefaultUserID
}
