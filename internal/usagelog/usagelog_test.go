package usagelog

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogger_LogCall_StampsTimestampAndForwards(t *testing.T) {
	sink := NewMemorySink()
	logger := New(sink, nil, nil)

	logger.LogCall(context.Background(), CallRecord{APIName: "amazon_affiliate", Tier: 1, Success: true})

	calls := sink.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, "amazon_affiliate", calls[0].APIName)
	assert.False(t, calls[0].Timestamp.IsZero())
}

func TestLogger_LogConsentEvent_RecordsZeroCostSuccess(t *testing.T) {
	sink := NewMemorySink()
	logger := New(sink, nil, nil)

	logger.LogConsentEvent(context.Background(), ConsentEvent{SessionID: "sess1", Type: ConsentEventPerQuery})

	events := sink.ConsentEvents()
	require.Len(t, events, 1)
	assert.Equal(t, ConsentEventPerQuery, events[0].Type)
}

type failingSink struct{}

func (failingSink) Append(context.Context, CallRecord) error             { return errors.New("disk full") }
func (failingSink) AppendConsentEvent(context.Context, ConsentEvent) error { return errors.New("disk full") }

func TestLogger_SwallowsSinkFailures(t *testing.T) {
	logger := New(failingSink{}, nil, nil)
	assert.NotPanics(t, func() {
		logger.LogCall(context.Background(), CallRecord{APIName: "serpapi"})
		logger.LogConsentEvent(context.Background(), ConsentEvent{Type: ConsentEventAccountToggle})
	})
}

func TestLogger_NilSinkIsNoOp(t *testing.T) {
	logger := New(nil, nil, nil)
	assert.NotPanics(t, func() {
		logger.LogCall(context.Background(), CallRecord{APIName: "serpapi"})
	})
}

func TestStdoutSink_WritesOneJSONLinePerCall(t *testing.T) {
	var buf bytes.Buffer
	sink := NewStdoutSink(&buf)

	require.NoError(t, sink.Append(context.Background(), CallRecord{
		APIName: "bing_search", Tier: 2, CostUnits: 1, Latency: 150 * time.Millisecond, Success: true,
	}))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 1)
	assert.Contains(t, lines[0], `"api_name":"bing_search"`)
	assert.Contains(t, lines[0], `"latency_ms":150`)
}

func TestStdoutSink_ConsentEventUsesSyntheticAPIName(t *testing.T) {
	var buf bytes.Buffer
	sink := NewStdoutSink(&buf)

	require.NoError(t, sink.AppendConsentEvent(context.Background(), ConsentEvent{Type: ConsentEventAccountToggle}))
	assert.Contains(t, buf.String(), `"api_name":"consent_account_toggle"`)
	assert.Contains(t, buf.String(), `"cost_units":0`)
}

func TestStdoutSink_ConsentEventIncludesRunIDAndTierRequested(t *testing.T) {
	var buf bytes.Buffer
	sink := NewStdoutSink(&buf)

	require.NoError(t, sink.AppendConsentEvent(context.Background(), ConsentEvent{
		Type: ConsentEventPerQuery, RunID: "run-123", TierRequested: 3,
	}))
	assert.Contains(t, buf.String(), `"run_id":"run-123"`)
	assert.Contains(t, buf.String(), `"tier_requested":3`)
}
