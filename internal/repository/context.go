package repository

import "context"

type clientIDKey struct{}

// WithClientID attaches the writing client's instance ID to the context so
// stores can attribute accepted writes.
func WithClientID(ctx context.Context, clientID string) context.Context {
	return context.WithValue(ctx, clientIDKey{}, clientID)
}

// ClientIDFromContext returns the client ID from context, if present.
func ClientIDFromContext(ctx context.Context) (string, bool) {
	clientID, ok := ctx.Value(clientIDKey{}).(string)
	return clientID, ok
}
