package assistant

import "errors"

// Sentinel errors for assistant operations.
var (
	// ErrUnavailable indicates the backend is temporarily unreachable.
	ErrUnavailable = errors.New("assistant unavailable")

	// ErrDeadline indicates the call exceeded its gRPC deadline.
	ErrDeadline = errors.New("assistant deadline exceeded")

	// ErrUnauthenticated indicates the OAuth credentials were rejected.
	ErrUnauthenticated = errors.New("assistant credentials rejected")

	// ErrQuota indicates the project's Assistant API quota is exhausted.
	ErrQuota = errors.New("assistant quota exhausted")

	// ErrEmptyQuery indicates an Assist call with no query text.
	ErrEmptyQuery = errors.New("assistant query is empty")
)

// IsRetryable reports whether the error is transient and the query can be
// retried on a later turn without operator intervention.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrUnavailable) || errors.Is(err, ErrDeadline) || errors.Is(err, ErrQuota)
}
