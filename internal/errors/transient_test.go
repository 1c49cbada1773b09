package errors

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

type fakeNetError struct{ timeout bool }

func (e fakeNetError) Error() string   { return "dial tcp: i/o failure" }
func (e fakeNetError) Timeout() bool   { return e.timeout }
func (e fakeNetError) Temporary() bool { return false }

func TestIsTransient(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"transient code", Transient("flaky"), true},
		{"timeout code", Timeout("slow"), true},
		{"wrapped transient", fmt.Errorf("load: %w", Transient("flaky")), true},
		{"deadline exceeded", context.DeadlineExceeded, true},
		{"canceled is not retryable", context.Canceled, false},
		{"wrapped canceled", fmt.Errorf("load: %w", context.Canceled), false},
		{"net timeout", fakeNetError{timeout: true}, true},
		{"net non-timeout", fakeNetError{timeout: false}, false},
		{"untyped aborted message", errors.New("FetchError: The operation was aborted"), true},
		{"plain error", errors.New("no such table"), false},
		{"validation code", Validation("bad input"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsTransient(tt.err))
		})
	}
}
