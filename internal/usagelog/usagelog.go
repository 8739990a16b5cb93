// Package usagelog implements the Usage Logger (C8): an append-only sink
// for per-call cost/latency records and consent events, grounded on
// original_source/.../api_logger.py's log_api_usage/log_consent_event
// pair — including its swallow-on-failure policy.
package usagelog

import (
	"context"
	"time"

	"github.com/shopaway/orchestrator/internal/corelog"
	"github.com/shopaway/orchestrator/internal/fetcher"
)

// CallRecord is one API-call outcome, per spec.md §4.8.
type CallRecord struct {
	Timestamp time.Time
	UserID    string
	SessionID string
	APIName   string
	Tier      int
	CostUnits int
	Latency   time.Duration
	Success   bool
	Error     string
}

// ConsentEventType names which consent layer fired, used to build the
// synthetic api_name = "consent_<type>" record spec.md §4.8 calls for.
type ConsentEventType string

const (
	ConsentEventAccountToggle ConsentEventType = "account_toggle"
	ConsentEventPerQuery      ConsentEventType = "per_query"
)

// ConsentEvent is the synthetic, zero-cost record logged whenever the
// consent gate fires, per spec.md §4.8. RunID and TierRequested mirror
// original_source/.../api_logger.py's log_consent_event, which stamps the
// run id and passes tier=tier_requested alongside the consent type.
type ConsentEvent struct {
	Timestamp     time.Time
	UserID        string
	SessionID     string
	Type          ConsentEventType
	RunID         string
	TierRequested int
}

// Sink is where finished records land. Append is expected never to
// block the caller for long; slow sinks should buffer internally.
type Sink interface {
	Append(ctx context.Context, rec CallRecord) error
	AppendConsentEvent(ctx context.Context, rec ConsentEvent) error
}

// Logger is the Usage Logger component. It wraps a Sink and guarantees
// spec.md §4.8's "logging failures never propagate to the orchestrator"
// rule: every Sink error is caught, logged as a warning, and swallowed.
type Logger struct {
	sink   Sink
	logger corelog.Logger
	clock  corelog.Clock
}

// New builds a Logger. A nil sink makes every record silently no-op
// (useful when usage logging is entirely disabled); logger/clock default
// to no-op/system clock.
func New(sink Sink, logger corelog.ComponentAwareLogger, clock corelog.Clock) *Logger {
	if logger == nil {
		logger = corelog.NoOpLogger{}
	}
	if clock == nil {
		clock = corelog.SystemClock{}
	}
	return &Logger{sink: sink, logger: logger.WithComponent("usagelog"), clock: clock}
}

// LogCall records one API call outcome. ctx is best-effort: a Sink that
// respects ctx cancellation is fine, but a failure here is always
// swallowed, never returned to the caller.
func (l *Logger) LogCall(ctx context.Context, rec CallRecord) {
	if l.sink == nil {
		return
	}
	if rec.Timestamp.IsZero() {
		rec.Timestamp = l.clock.Now()
	}
	if err := l.sink.Append(ctx, rec); err != nil {
		l.logger.Warn("usage log append failed, dropping record", map[string]interface{}{
			"api_name": rec.APIName,
			"error":    err.Error(),
		})
	}
}

// LogConsentEvent records a consent-gate firing as a synthetic,
// zero-cost, always-successful usage record, per spec.md §4.8.
func (l *Logger) LogConsentEvent(ctx context.Context, rec ConsentEvent) {
	if l.sink == nil {
		return
	}
	if rec.Timestamp.IsZero() {
		rec.Timestamp = l.clock.Now()
	}
	if err := l.sink.AppendConsentEvent(ctx, rec); err != nil {
		l.logger.Warn("consent event log append failed, dropping record", map[string]interface{}{
			"consent_type": string(rec.Type),
			"error":        err.Error(),
		})
	}
}

// RecordCall adapts Logger to fetcher.UsageRecorder, translating the
// fetcher's call-completion notification into a CallRecord. This is the
// one place usagelog depends on fetcher's types; fetcher itself stays
// decoupled via its own local UsageRecorder interface.
func (l *Logger) RecordCall(info fetcher.UsageCallInfo) {
	l.LogCall(context.Background(), CallRecord{
		UserID:    info.UserID,
		SessionID: info.SessionID,
		APIName:   info.APIName,
		Tier:      info.Tier,
		CostUnits: info.CostUnits,
		Latency:   info.Latency,
		Success:   info.Success,
		Error:     info.Error,
	})
}

var _ fetcher.UsageRecorder = (*Logger)(nil)
