package audit

import "context"

// NoopLogger discards events. It is used when no audit database is configured.
type NoopLogger struct{}

// Log does nothing.
func (NoopLogger) Log(_ context.Context, _ Event) error { return nil }

// Query returns no events.
func (NoopLogger) Query(_ context.Context, _ QueryFilter) ([]Event, error) { return []Event{}, nil }

// Close does nothing.
func (NoopLogger) Close() error { return nil }

var _ Logger = (*NoopLogger)(nil)
