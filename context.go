package goRefresh

import "context"

type correlationIDContextKey struct{}
type clientIPContextKey struct{}

// WithCorrelationID attaches a request correlation identifier to ctx. The
// Engine copies it into every security event emitted for the request so that
// downstream consumers can join events to the originating call.
func WithCorrelationID(ctx context.Context, correlationID string) context.Context {
	return context.WithValue(ctx, correlationIDContextKey{}, correlationID)
}

// WithClientIP attaches the caller's IP address to ctx for audit logging.
func WithClientIP(ctx context.Context, ip string) context.Context {
	return context.WithValue(ctx, clientIPContextKey{}, ip)
}

func correlationIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}

	correlationID, _ := ctx.Value(correlationIDContextKey{}).(string)
	return correlationID
}

func clientIPFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}

	ip, _ := ctx.Value(clientIPContextKey{}).(string)
	return ip
}
