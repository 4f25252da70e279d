package llm

import "context"

// LoadMonitor reports whether the host is too busy to hold a streaming connection open.
// The answer is a fresh, best-effort sample and only applies to the current request.
type LoadMonitor interface {
	IsOverloaded(ctx context.Context) bool
}
