package presence

import "context"

// OnlineChecker is the pluggable presence predicate: "is user X online".
// The registry-backed implementation derives it from live connections; the
// session-backed one from session-store liveness, which survives process
// restarts and works across instances.
type OnlineChecker interface {
	IsOnline(ctx context.Context, userID uint) bool
}
