package google

import (
	"context"
	"errors"
	"fmt"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/Simonx22/telegram-assistant/internal/assistant"
)

// mapError translates gRPC status codes into the assistant sentinel errors
// the relay keys its user-facing fallback messages on.
func mapError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", assistant.ErrDeadline, err)
	}

	st, ok := status.FromError(err)
	if !ok {
		return fmt.Errorf("google: assist: %w", err)
	}

	switch st.Code() {
	case codes.Unavailable:
		return fmt.Errorf("%w: %s", assistant.ErrUnavailable, st.Message())
	case codes.DeadlineExceeded:
		return fmt.Errorf("%w: %s", assistant.ErrDeadline, st.Message())
	case codes.Unauthenticated, codes.PermissionDenied:
		return fmt.Errorf("%w: %s", assistant.ErrUnauthenticated, st.Message())
	case codes.ResourceExhausted:
		return fmt.Errorf("%w: %s", assistant.ErrQuota, st.Message())
	}
	return fmt.Errorf("google: assist: %w", err)
}
