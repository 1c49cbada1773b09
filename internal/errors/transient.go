package errors

import (
	"context"
	"errors"
	"net"
	"strings"
)

// abortedSignatures matches the provider's habit of surfacing its own signal
// cancellation as an opaque error string rather than a typed cancellation.
// Structured checks run first; this fallback exists only for errors that
// arrive untyped over the wire.
var abortedSignatures = []string{
	"aborted",
	"operation was aborted",
}

// IsTransient reports whether an error should be treated as a transient
// network failure and retried under the bounded retry policy.
//
// Covered signatures:
//   - AppError with code transient or timeout
//   - context.DeadlineExceeded (a timed-out round trip is not a definitive miss)
//   - net.Error timeouts
//   - the provider's "aborted" message surface, as a last-resort fallback
//
// context.Canceled is deliberately excluded: a canceled caller context means
// the caller has moved on, not that the operation should be retried.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if isCode(err, ErrCodeTransient) || isCode(err, ErrCodeTimeout) {
		return true
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	msg := strings.ToLower(err.Error())
	for _, sig := range abortedSignatures {
		if strings.Contains(msg, sig) {
			return true
		}
	}
	return false
}
