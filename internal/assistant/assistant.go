// Package assistant defines the contract between the relay and a
// conversational assistant backend. The concrete implementation lives in
// modules/assistant/google, which speaks the Google Assistant Service
// gRPC protocol.
package assistant

import "context"

// Assistant answers a single conversational turn.
type Assistant interface {
	// Assist sends one query and returns the assistant's reply.
	// The call blocks until the backend's response stream is drained or
	// ctx expires.
	Assist(ctx context.Context, q Query) (Reply, error)
}

// HealthChecker is an optional interface assistants may implement to
// support active health probing (used by the cron health job and the
// gateway /health endpoint).
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}
