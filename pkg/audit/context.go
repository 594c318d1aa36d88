package audit

import "context"

// contextKey is a private type for context keys.
type contextKey int

const requestInfoKey contextKey = iota

// RequestInfo identifies the inbound request that triggered a query run.
type RequestInfo struct {
	RequestID string
	UserID    string
	Target    string
}

// WithRequestInfo adds request info to the context.
func WithRequestInfo(ctx context.Context, info RequestInfo) context.Context {
	return context.WithValue(ctx, requestInfoKey, info)
}

// GetRequestInfo retrieves request info from the context.
func GetRequestInfo(ctx context.Context) RequestInfo {
	info, _ := ctx.Value(requestInfoKey).(RequestInfo)
	return info
}

// WithTarget returns ctx with the target field of its request info replaced.
func WithTarget(ctx context.Context, target string) context.Context {
	info := GetRequestInfo(ctx)
	info.Target = target
	return WithRequestInfo(ctx, info)
}
