package usagelog

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sync"
)

// MemorySink is an in-process Sink, useful for tests. Safe for
// concurrent use.
type MemorySink struct {
	mu            sync.Mutex
	calls         []CallRecord
	consentEvents []ConsentEvent
}

func NewMemorySink() *MemorySink { return &MemorySink{} }

func (m *MemorySink) Append(_ context.Context, rec CallRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, rec)
	return nil
}

func (m *MemorySink) AppendConsentEvent(_ context.Context, rec ConsentEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.consentEvents = append(m.consentEvents, rec)
	return nil
}

// Calls returns a snapshot copy of every call recorded so far.
func (m *MemorySink) Calls() []CallRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]CallRecord, len(m.calls))
	copy(out, m.calls)
	return out
}

// ConsentEvents returns a snapshot copy of every consent event recorded
// so far.
func (m *MemorySink) ConsentEvents() []ConsentEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]ConsentEvent, len(m.consentEvents))
	copy(out, m.consentEvents)
	return out
}

var _ Sink = (*MemorySink)(nil)

// jsonCallLine and jsonConsentLine are the on-wire shapes StdoutSink
// writes — one JSON object per line, matching the teacher's JSON logger
// line format (telemetry.TelemetryLogger) rather than inventing a new
// encoding convention for this one sink.
type jsonCallLine struct {
	Timestamp string  `json:"timestamp"`
	UserID    string  `json:"user_id,omitempty"`
	SessionID string  `json:"session_id,omitempty"`
	APIName   string  `json:"api_name"`
	Tier      int     `json:"tier"`
	CostUnits int     `json:"cost_units"`
	LatencyMS float64 `json:"latency_ms"`
	Success   bool    `json:"success"`
	Error     string  `json:"error,omitempty"`
}

type jsonConsentLine struct {
	Timestamp     string `json:"timestamp"`
	UserID        string `json:"user_id,omitempty"`
	SessionID     string `json:"session_id,omitempty"`
	APIName       string `json:"api_name"`
	CostUnits     int    `json:"cost_units"`
	Success       bool   `json:"success"`
	RunID         string `json:"run_id,omitempty"`
	TierRequested int    `json:"tier_requested"`
}

// StdoutSink writes one JSON line per record to an io.Writer (typically
// os.Stdout), the append-only sink shape spec.md §4.8 calls for absent
// a real accounting database.
type StdoutSink struct {
	mu sync.Mutex
	w  io.Writer
}

func NewStdoutSink(w io.Writer) *StdoutSink { return &StdoutSink{w: w} }

func (s *StdoutSink) Append(_ context.Context, rec CallRecord) error {
	line := jsonCallLine{
		Timestamp: rec.Timestamp.UTC().Format("2006-01-02T15:04:05.000Z07:00"),
		UserID:    rec.UserID,
		SessionID: rec.SessionID,
		APIName:   rec.APIName,
		Tier:      rec.Tier,
		CostUnits: rec.CostUnits,
		LatencyMS: float64(rec.Latency.Microseconds()) / 1000.0,
		Success:   rec.Success,
		Error:     rec.Error,
	}
	return s.writeLine(line)
}

func (s *StdoutSink) AppendConsentEvent(_ context.Context, rec ConsentEvent) error {
	line := jsonConsentLine{
		Timestamp:     rec.Timestamp.UTC().Format("2006-01-02T15:04:05.000Z07:00"),
		UserID:        rec.UserID,
		SessionID:     rec.SessionID,
		APIName:       fmt.Sprintf("consent_%s", rec.Type),
		CostUnits:     0,
		Success:       true,
		RunID:         rec.RunID,
		TierRequested: rec.TierRequested,
	}
	return s.writeLine(line)
}

func (s *StdoutSink) writeLine(v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err = s.w.Write(append(data, '\n'))
	return err
}

var _ Sink = (*StdoutSink)(nil)
