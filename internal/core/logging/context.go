package logging

import "context"

type contextKey string

const (
	changeIDKey contextKey = "change_id"
	gateKey     contextKey = "gate"
)

// WithChangeID adds a change id to the context.
func WithChangeID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, changeIDKey, id)
}

// WithGate adds a gate name to the context.
func WithGate(ctx context.Context, gate string) context.Context {
	return context.WithValue(ctx, gateKey, gate)
}

// GetChangeID retrieves the change id from the context.
// Returns empty string if not present.
func GetChangeID(ctx context.Context) string {
	if id, ok := ctx.Value(changeIDKey).(string); ok {
		return id
	}
	return ""
}

// GetGate retrieves the gate name from the context.
// Returns empty string if not present.
func GetGate(ctx context.Context) string {
	if g, ok := ctx.Value(gateKey).(string); ok {
		return g
	}
	return ""
}
