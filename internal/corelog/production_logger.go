package corelog

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"sync"
	"time"
)

// levelOrder gives each log level a rank so Level filtering is a simple
// integer comparison instead of a string switch at every call site.
var levelOrder = map[string]int{
	"DEBUG": 0,
	"INFO":  1,
	"WARN":  2,
	"ERROR": 3,
}

// ProductionLogger is a small structured logger with two render modes: JSON
// (the default, meant for log aggregation) and text (meant for local
// development). It rate-limits error lines so a failing tier doesn't spam
// stdout with a burst of identical failures.
type ProductionLogger struct {
	component    string
	level        string
	format       string // "json" | "text"
	output       io.Writer
	mu           sync.Mutex
	errorLimiter *RateLimiter
}

// NewProductionLogger builds a logger. format is "json" or "text"; level is
// one of DEBUG/INFO/WARN/ERROR (case-insensitive), defaulting to INFO.
func NewProductionLogger(format, level string) *ProductionLogger {
	if format == "" {
		format = "json"
	}
	if level == "" {
		level = "INFO"
	}
	return &ProductionLogger{
		component:    "",
		level:        strings.ToUpper(level),
		format:       format,
		output:       os.Stdout,
		errorLimiter: NewRateLimiter(time.Second),
	}
}

func (l *ProductionLogger) WithComponent(component string) Logger {
	clone := *l
	clone.component = component
	clone.errorLimiter = NewRateLimiter(time.Second)
	return &clone
}

func (l *ProductionLogger) shouldLog(level string) bool {
	want, ok := levelOrder[level]
	if !ok {
		return true
	}
	have, ok := levelOrder[l.level]
	if !ok {
		have = levelOrder["INFO"]
	}
	return want >= have
}

func (l *ProductionLogger) Info(msg string, fields map[string]interface{}) {
	l.log("INFO", msg, fields)
}
func (l *ProductionLogger) Warn(msg string, fields map[string]interface{}) {
	l.log("WARN", msg, fields)
}
func (l *ProductionLogger) Error(msg string, fields map[string]interface{}) {
	if l.errorLimiter != nil && !l.errorLimiter.Allow() {
		return
	}
	l.log("ERROR", msg, fields)
}
func (l *ProductionLogger) Debug(msg string, fields map[string]interface{}) {
	l.log("DEBUG", msg, fields)
}

func (l *ProductionLogger) InfoWithContext(ctx context.Context, msg string, fields map[string]interface{}) {
	l.Info(msg, withTraceFields(ctx, fields))
}
func (l *ProductionLogger) WarnWithContext(ctx context.Context, msg string, fields map[string]interface{}) {
	l.Warn(msg, withTraceFields(ctx, fields))
}
func (l *ProductionLogger) ErrorWithContext(ctx context.Context, msg string, fields map[string]interface{}) {
	l.Error(msg, withTraceFields(ctx, fields))
}
func (l *ProductionLogger) DebugWithContext(ctx context.Context, msg string, fields map[string]interface{}) {
	l.Debug(msg, withTraceFields(ctx, fields))
}

func (l *ProductionLogger) log(level, msg string, fields map[string]interface{}) {
	if !l.shouldLog(level) {
		return
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	ts := time.Now().Format(time.RFC3339Nano)
	if l.format == "json" {
		l.logJSON(ts, level, msg, fields)
	} else {
		l.logText(ts, level, msg, fields)
	}
}

func (l *ProductionLogger) logJSON(ts, level, msg string, fields map[string]interface{}) {
	entry := map[string]interface{}{
		"timestamp": ts,
		"level":     level,
		"message":   msg,
	}
	if l.component != "" {
		entry["component"] = l.component
	}
	for k, v := range fields {
		entry[k] = v
	}
	b, err := json.Marshal(entry)
	if err != nil {
		fmt.Fprintf(l.output, "%s [%s] %s (log marshal error: %v)\n", ts, level, msg, err)
		return
	}
	fmt.Fprintln(l.output, string(b))
}

func (l *ProductionLogger) logText(ts, level, msg string, fields map[string]interface{}) {
	var sb strings.Builder
	sb.WriteString(ts)
	sb.WriteString(" [")
	sb.WriteString(level)
	sb.WriteString("] ")
	if l.component != "" {
		sb.WriteString(l.component)
		sb.WriteString(": ")
	}
	sb.WriteString(msg)

	if len(fields) > 0 {
		keys := make([]string, 0, len(fields))
		for k := range fields {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Fprintf(&sb, " %s=%v", k, fields[k])
		}
	}
	fmt.Fprintln(l.output, sb.String())
}

// traceFieldKey is unexported so only this package can stamp/read it,
// keeping the context-key convention local instead of leaking a string key.
type traceFieldKey struct{}

// WithRunID attaches a run correlation id to ctx so *WithContext logging
// calls automatically include it without every call site threading it
// through by hand.
func WithRunID(ctx context.Context, runID string) context.Context {
	return context.WithValue(ctx, traceFieldKey{}, runID)
}

func withTraceFields(ctx context.Context, fields map[string]interface{}) map[string]interface{} {
	runID, _ := ctx.Value(traceFieldKey{}).(string)
	if runID == "" {
		return fields
	}
	merged := make(map[string]interface{}, len(fields)+1)
	for k, v := range fields {
		merged[k] = v
	}
	merged["run_id"] = runID
	return merged
}

var _ ComponentAwareLogger = (*ProductionLogger)(nil)
