package telemetry

// Package telemetry is the fire-and-forget structured event side channel for
// the session bootstrap subsystem. Events are recorded through slog and
// mirrored as counters/timings to the StatsD sink when one is configured.

import (
	"context"
	"log/slog"
	"time"

	"github.com/agrilink/sessiongate/internal/observability/statsd"
)

// Category groups telemetry events by subsystem concern.
type Category string

const (
	CategoryAuth    Category = "AUTH"
	CategoryProfile Category = "PROFILE"
	CategoryError   Category = "ERROR"
	CategoryPerf    Category = "PERF"
)

// Event is a single structured telemetry record.
type Event struct {
	Level     slog.Level
	Category  Category
	Message   string
	Data      map[string]any
	Timestamp time.Time
}

// Recorder consumes telemetry events. Implementations must be safe for
// concurrent use and must never block the caller on sink latency.
type Recorder interface {
	Record(ctx context.Context, ev Event)
}

// RecorderFunc adapts a function to the Recorder interface (useful for tests).
type RecorderFunc func(ctx context.Context, ev Event)

// Record implements the Recorder interface.
func (f RecorderFunc) Record(ctx context.Context, ev Event) {
	if f == nil {
		return
	}
	f(ctx, ev)
}

// Nop returns a recorder that discards every event.
func Nop() Recorder {
	return RecorderFunc(func(context.Context, Event) {})
}

// SlogRecorder writes events through a structured logger and mirrors them to
// an optional metrics sink.
type SlogRecorder struct {
	logger *slog.Logger
	sink   statsd.Sink
}

// Options groups dependencies for NewRecorder.
type Options struct {
	Logger *slog.Logger
	Sink   statsd.Sink // optional
}

// NewRecorder constructs a SlogRecorder.
func NewRecorder(opts Options) *SlogRecorder {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &SlogRecorder{logger: logger, sink: opts.Sink}
}

// Record implements the Recorder interface.
func (r *SlogRecorder) Record(ctx context.Context, ev Event) {
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now()
	}

	attrs := make([]any, 0, 2+2*len(ev.Data))
	attrs = append(attrs, "category", string(ev.Category))
	for k, v := range ev.Data {
		attrs = append(attrs, k, v)
	}
	r.logger.LogAttrs(ctx, ev.Level, ev.Message, slog.Group("telemetry", attrs...))

	if r.sink != nil {
		r.sink.Count("sessiongate.events", 1, map[string]string{
			"category": string(ev.Category),
			"level":    ev.Level.String(),
		})
	}
}

// Timing records a duration metric under the PERF category.
func (r *SlogRecorder) Timing(ctx context.Context, name string, d time.Duration) {
	r.Record(ctx, Event{
		Level:    slog.LevelDebug,
		Category: CategoryPerf,
		Message:  name,
		Data:     map[string]any{"duration_ms": d.Milliseconds()},
	})
	if r.sink != nil {
		r.sink.Timing("sessiongate."+name, d, nil)
	}
}
