// Package corelog provides the logging and error primitives shared by every
// orchestrator component: a minimal structured Logger, a component-aware
// wrapper so each package tags its own log lines, and the small set of
// sentinel errors the orchestrator is allowed to raise directly.
package corelog

import (
	"context"
	"time"
)

// Logger is the minimal structured logging interface used throughout the
// orchestrator. Fields are passed as a flat map so JSON and text renderers
// can both consume them without reflection.
type Logger interface {
	Info(msg string, fields map[string]interface{})
	Warn(msg string, fields map[string]interface{})
	Error(msg string, fields map[string]interface{})
	Debug(msg string, fields map[string]interface{})

	InfoWithContext(ctx context.Context, msg string, fields map[string]interface{})
	WarnWithContext(ctx context.Context, msg string, fields map[string]interface{})
	ErrorWithContext(ctx context.Context, msg string, fields map[string]interface{})
	DebugWithContext(ctx context.Context, msg string, fields map[string]interface{})
}

// ComponentAwareLogger lets a package obtain a logger tagged with its own
// component name (e.g. "fetcher") while sharing one underlying
// sink and configuration with the rest of the orchestrator.
type ComponentAwareLogger interface {
	Logger
	WithComponent(component string) Logger
}

// Clock abstracts time so the circuit breaker and halt records can be
// driven deterministically in tests instead of sleeping on a wall clock.
type Clock interface {
	Now() time.Time
}

// SystemClock is the default Clock backed by time.Now.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }

// NoOpLogger discards everything. It is the default when a caller wires
// nothing in, matching the rest of the dependency-injection surface
// (HaltStore, UsageLogger, ...) which also default to inert no-ops.
type NoOpLogger struct{}

func (NoOpLogger) Info(string, map[string]interface{})  {}
func (NoOpLogger) Warn(string, map[string]interface{})  {}
func (NoOpLogger) Error(string, map[string]interface{}) {}
func (NoOpLogger) Debug(string, map[string]interface{}) {}

func (NoOpLogger) InfoWithContext(context.Context, string, map[string]interface{})  {}
func (NoOpLogger) WarnWithContext(context.Context, string, map[string]interface{})  {}
func (NoOpLogger) ErrorWithContext(context.Context, string, map[string]interface{}) {}
func (NoOpLogger) DebugWithContext(context.Context, string, map[string]interface{}) {}

func (n NoOpLogger) WithComponent(string) Logger { return n }

var _ ComponentAwareLogger = NoOpLogger{}
