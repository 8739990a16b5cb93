// Package fetcher implements the Parallel Fetcher (C4): bounded-parallel
// fan-out over one tier's APIs, each call guarded by its own timeout and
// reported back as a CallEnvelope, grounded on
// original_source/.../parallel_fetcher.py's asyncio.gather-based
// _fetch_single/fetch_tier pair.
package fetcher

import (
	"context"
	"sync"
	"time"

	"github.com/shopaway/orchestrator/internal/corelog"
	"github.com/shopaway/orchestrator/internal/registry"
)

// Status is the outcome of one API call, per spec.md §3's CallEnvelope.
type Status string

const (
	StatusSuccess     Status = "success"
	StatusTimeout     Status = "timeout"
	StatusError       Status = "error"
	StatusCircuitOpen Status = "circuit_open"
)

// Payload is the normalized result bag a provider adapter returns.
// Exactly one of these is typically populated per call, matching which
// adapter_key answered it; the orchestrator only cares about the union.
type Payload struct {
	Products []Item
	Hotels   []Item
	Flights  []Item
	Snippets []Snippet
}

// Item is one normalized product/hotel/flight result. Model and SKU are
// optional; when present they sharpen the dedup key computed downstream
// by the orchestrator (spec.md §4.6).
type Item struct {
	Name  string
	Model string
	SKU   string
	Extra map[string]string
}

// Snippet is one normalized text excerpt (review quote, destination
// fact, etc.) attributed to the API that produced it.
type Snippet struct {
	Text   string
	Source string
}

// CallEnvelope is the result of one API call, per spec.md §3.
type CallEnvelope struct {
	APIName      string
	Status       Status
	Payload      Payload
	Latency      time.Duration
	ErrorMessage string
}

// CircuitGate is the subset of *resilience.Manager the fetcher needs.
// Declared locally, mirroring routing.BreakerGate, so this package
// doesn't depend on how breaker state is implemented.
type CircuitGate interface {
	IsOpen(apiName string) bool
	RecordSuccess(apiName string)
	RecordFailure(apiName string)
}

// UsageRecorder is the subset of usagelog.Logger the fetcher needs,
// declared locally for the same decoupling reason as CircuitGate.
type UsageRecorder interface {
	RecordCall(rec UsageCallInfo)
}

// UsageCallInfo is what the fetcher reports to the usage logger after
// every call, independent of usagelog's on-disk/wire record shape.
type UsageCallInfo struct {
	UserID    string
	SessionID string
	APIName   string
	Tier      int
	CostUnits int
	Latency   time.Duration
	Success   bool
	Error     string
}

// ProviderAdapter invokes one concrete upstream API. providerTag
// parameterizes adapters that front multiple providers through one
// adapter_key (e.g. "amazon" vs "walmart" through the shopping adapter),
// matching spec.md §3's adapter_key/provider_tag split.
type ProviderAdapter interface {
	Call(ctx context.Context, providerTag, query string) (Payload, error)
}

// AdapterRegistry resolves an adapter_key to the ProviderAdapter that
// implements it.
type AdapterRegistry interface {
	Adapter(adapterKey string) (ProviderAdapter, bool)
}

// DescriptorSource is the subset of *registry.Registry the fetcher needs.
type DescriptorSource interface {
	Lookup(name string) (registry.APIDescriptor, bool)
}

// TierCallRecorder is the subset of telemetry.Provider the fetcher needs,
// declared locally so this leaf package doesn't import internal/telemetry.
type TierCallRecorder interface {
	RecordTierCall(apiName string, tier int, status string, latency time.Duration)
}

type noOpTierCallRecorder struct{}

func (noOpTierCallRecorder) RecordTierCall(string, int, string, time.Duration) {}

// ParallelFetcher is the Parallel Fetcher component (C4).
type ParallelFetcher struct {
	descriptors DescriptorSource
	adapters    AdapterRegistry
	breaker     CircuitGate
	usage       UsageRecorder
	logger      corelog.Logger
	clock       corelog.Clock
	telemetry   TierCallRecorder
}

// New builds a ParallelFetcher. logger and clock default to no-ops /
// the system clock when nil, matching the rest of this module's
// dependency-injection convention.
func New(descriptors DescriptorSource, adapters AdapterRegistry, breaker CircuitGate, usage UsageRecorder, logger corelog.ComponentAwareLogger, clock corelog.Clock) *ParallelFetcher {
	if logger == nil {
		logger = corelog.NoOpLogger{}
	}
	if clock == nil {
		clock = corelog.SystemClock{}
	}
	return &ParallelFetcher{
		descriptors: descriptors,
		adapters:    adapters,
		breaker:     breaker,
		usage:       usage,
		logger:      logger.WithComponent("fetcher"),
		clock:       clock,
		telemetry:   noOpTierCallRecorder{},
	}
}

// SetTelemetry wires a metrics recorder for per-call latency/status,
// mirroring resilience.Manager's SetLogger opt-in pattern. A nil recorder
// restores the no-op default.
func (f *ParallelFetcher) SetTelemetry(t TierCallRecorder) {
	if t == nil {
		t = noOpTierCallRecorder{}
	}
	f.telemetry = t
}

// FetchTier fans out to every name in names concurrently and returns once
// all have completed (gather-all, never fail-fast), per spec.md §4.4.
// Cancelling ctx cancels every in-flight call; each then reports status
// error with an interrupted reason rather than being silently dropped.
func (f *ParallelFetcher) FetchTier(ctx context.Context, names []string, tier int, query string, userID, sessionID string) map[string]CallEnvelope {
	out := make(map[string]CallEnvelope, len(names))
	var mu sync.Mutex
	var wg sync.WaitGroup

	for _, name := range names {
		if f.breaker != nil && f.breaker.IsOpen(name) {
			mu.Lock()
			out[name] = CallEnvelope{APIName: name, Status: StatusCircuitOpen}
			mu.Unlock()
			continue
		}

		desc, ok := f.descriptors.Lookup(name)
		if !ok {
			// Feature-flag disabled or unknown between routing and now;
			// treat like an already-skipped API rather than erroring the
			// whole tier.
			mu.Lock()
			out[name] = CallEnvelope{APIName: name, Status: StatusCircuitOpen}
			mu.Unlock()
			continue
		}

		wg.Add(1)
		go func(name string, desc registry.APIDescriptor) {
			defer wg.Done()
			env := f.callOne(ctx, name, desc, tier, query, userID, sessionID)
			mu.Lock()
			out[name] = env
			mu.Unlock()
		}(name, desc)
	}

	wg.Wait()
	return out
}

func (f *ParallelFetcher) callOne(ctx context.Context, name string, desc registry.APIDescriptor, tier int, query, userID, sessionID string) CallEnvelope {
	adapter, ok := f.adapters.Adapter(desc.AdapterKey)
	if !ok {
		return f.finish(name, tier, desc.CostUnits, 0, userID, sessionID, CallEnvelope{
			APIName: name, Status: StatusError, ErrorMessage: "no adapter registered for " + desc.AdapterKey,
		})
	}

	callCtx, cancel := context.WithTimeout(ctx, desc.Timeout)
	defer cancel()

	start := f.clock.Now()
	payload, err := adapter.Call(callCtx, desc.ProviderTag, query)
	latency := f.clock.Now().Sub(start)

	if err == nil {
		f.breakerSuccess(name)
		return f.finish(name, tier, desc.CostUnits, latency, userID, sessionID, CallEnvelope{
			APIName: name, Status: StatusSuccess, Payload: payload, Latency: latency,
		})
	}

	f.breakerFailure(name)

	if callCtx.Err() == context.DeadlineExceeded {
		return f.finish(name, tier, 0, latency, userID, sessionID, CallEnvelope{
			APIName: name, Status: StatusTimeout, Latency: latency, ErrorMessage: "timed out after " + desc.Timeout.String(),
		})
	}
	if ctx.Err() != nil {
		return f.finish(name, tier, 0, latency, userID, sessionID, CallEnvelope{
			APIName: name, Status: StatusError, Latency: latency, ErrorMessage: "interrupted: " + ctx.Err().Error(),
		})
	}
	return f.finish(name, tier, 0, latency, userID, sessionID, CallEnvelope{
		APIName: name, Status: StatusError, Latency: latency, ErrorMessage: err.Error(),
	})
}

func (f *ParallelFetcher) breakerSuccess(name string) {
	if f.breaker != nil {
		f.breaker.RecordSuccess(name)
	}
}

func (f *ParallelFetcher) breakerFailure(name string) {
	if f.breaker != nil {
		f.breaker.RecordFailure(name)
	}
}

func (f *ParallelFetcher) finish(name string, tier, costUnits int, latency time.Duration, userID, sessionID string, env CallEnvelope) CallEnvelope {
	if f.usage != nil {
		f.usage.RecordCall(UsageCallInfo{
			UserID:    userID,
			SessionID: sessionID,
			APIName:   name,
			Tier:      tier,
			CostUnits: costUnits,
			Latency:   latency,
			Success:   env.Status == StatusSuccess,
			Error:     env.ErrorMessage,
		})
	}
	f.logger.Debug("api call completed", map[string]interface{}{
		"api_name":   name,
		"tier":       tier,
		"status":     string(env.Status),
		"latency_ms": latency.Milliseconds(),
	})
	f.telemetry.RecordTierCall(name, tier, string(env.Status), latency)
	return env
}
