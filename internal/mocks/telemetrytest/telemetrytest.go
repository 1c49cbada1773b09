package telemetrytest

// Package telemetrytest provides a capturing telemetry recorder for
// asserting on emitted events in unit tests.

import (
	"context"
	"sync"

	"github.com/agrilink/sessiongate/internal/observability/telemetry"
)

var _ telemetry.Recorder = (*Capture)(nil)

// Capture records every telemetry event it receives.
type Capture struct {
	mu     sync.Mutex
	events []telemetry.Event
}

func (c *Capture) Record(_ context.Context, ev telemetry.Event) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, ev)
}

// Events returns a snapshot of everything recorded so far.
func (c *Capture) Events() []telemetry.Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]telemetry.Event, len(c.events))
	copy(out, c.events)
	return out
}

// ByMessage returns the recorded events whose message matches exactly.
func (c *Capture) ByMessage(msg string) []telemetry.Event {
	var out []telemetry.Event
	for _, ev := range c.Events() {
		if ev.Message == msg {
			out = append(out, ev)
		}
	}
	return out
}

// ByCategory returns the recorded events in the given category.
func (c *Capture) ByCategory(cat telemetry.Category) []telemetry.Event {
	var out []telemetry.Event
	for _, ev := range c.Events() {
		if ev.Category == cat {
			out = append(out, ev)
		}
	}
	return out
}
