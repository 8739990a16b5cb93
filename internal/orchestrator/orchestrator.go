// Package orchestrator implements the Tiered Orchestrator (C6): the main
// tier-escalation loop that drives the Parallel Fetcher and Data
// Validator, merges and deduplicates results across tiers, and mediates
// consent/halt-resume via the Consent Gate (C7), grounded on
// original_source/.../tiered_executor.py's orchestration loop.
package orchestrator

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/shopaway/orchestrator/internal/consent"
	"github.com/shopaway/orchestrator/internal/corelog"
	"github.com/shopaway/orchestrator/internal/fetcher"
	"github.com/shopaway/orchestrator/internal/registry"
	"github.com/shopaway/orchestrator/internal/resilience"
	"github.com/shopaway/orchestrator/internal/routing"
	"github.com/shopaway/orchestrator/internal/usagelog"
	"github.com/shopaway/orchestrator/internal/validator"
)

// Status is the terminal outcome of one orchestration run, per spec.md §3.
type Status string

const (
	StatusSuccess         Status = "success"
	StatusPartial         Status = "partial"
	StatusConsentRequired Status = "consent_required"
)

// ConsentPrompt describes why an orchestration run halted, per spec.md §3.
type ConsentPrompt struct {
	Type     validator.ConsentType
	Message  string
	NextTier int
}

// UserHint is a stable, caller-facing key describing how to frame a
// partial or degraded result, folding the caller-facing half of
// original_source/.../services/degradation_policy.py (the logging/retry
// half is out of scope here; only the hint string it hands back to the
// caller is reproduced).
type UserHint string

const (
	UserHintPartialSources UserHint = "partial_sources"
	UserHintNone           UserHint = "none"
)

// OrchestrationResult is the terminal result returned to the caller, per
// spec.md §3.
type OrchestrationResult struct {
	RunID              string
	Status             Status
	Items              []fetcher.Item
	Snippets           []fetcher.Snippet
	SourcesUsed        []string
	SourcesUnavailable []string
	TierReached        int
	ConsentPrompt      *ConsentPrompt
	UserHint           UserHint
}

// Fetcher is the subset of *fetcher.ParallelFetcher the orchestrator
// needs.
type Fetcher interface {
	FetchTier(ctx context.Context, names []string, tier int, query string, userID, sessionID string) map[string]fetcher.CallEnvelope
}

// Clock lets tests drive halt-record timestamps deterministically.
type Clock interface {
	Now() time.Time
}

// Tracer is the subset of telemetry.Provider the orchestrator needs,
// declared locally so this package doesn't import internal/telemetry
// directly for a single-method dependency.
type Tracer interface {
	StartSpan(ctx context.Context, name string, attrs map[string]string) (context.Context, Span)
}

// Span is the minimal span surface the orchestrator needs, mirroring
// telemetry.Span.
type Span interface {
	End()
	SetAttribute(key, value string)
	RecordError(err error)
}

type noOpTracer struct{}
type noOpSpan struct{}

func (noOpTracer) StartSpan(ctx context.Context, _ string, _ map[string]string) (context.Context, Span) {
	return ctx, noOpSpan{}
}
func (noOpSpan) End()                    {}
func (noOpSpan) SetAttribute(_, _ string) {}
func (noOpSpan) RecordError(error)       {}

// Config bundles the Orchestrator's tunables.
type Config struct {
	Thresholds  map[string]validator.Thresholds
	MaxAutoTier int
	HaltTTL     time.Duration
}

// DefaultConfig mirrors spec.md §4.5's defaults.
func DefaultConfig() Config {
	return Config{
		Thresholds:  validator.DefaultThresholds(),
		MaxAutoTier: validator.MaxAutoTier,
		HaltTTL:     consent.MinHaltTTL,
	}
}

// Orchestrator is the Tiered Orchestrator component (C6).
type Orchestrator struct {
	router       *routing.Table
	fetcher      Fetcher
	availability *registry.Registry
	breaker      *resilience.Manager
	halts        consent.HaltStore
	usage        *usagelog.Logger
	logger       corelog.Logger
	clock        corelog.Clock
	cfg          Config
	tracer       Tracer
}

// New builds an Orchestrator. logger/clock default to no-op/system clock.
func New(router *routing.Table, f Fetcher, availability *registry.Registry, breaker *resilience.Manager, halts consent.HaltStore, usage *usagelog.Logger, logger corelog.ComponentAwareLogger, clock corelog.Clock, cfg Config) *Orchestrator {
	if logger == nil {
		logger = corelog.NoOpLogger{}
	}
	if clock == nil {
		clock = corelog.SystemClock{}
	}
	if cfg.Thresholds == nil {
		cfg.Thresholds = validator.DefaultThresholds()
	}
	if cfg.MaxAutoTier == 0 {
		cfg.MaxAutoTier = validator.MaxAutoTier
	}
	if cfg.HaltTTL == 0 {
		cfg.HaltTTL = consent.MinHaltTTL
	}
	return &Orchestrator{
		router: router, fetcher: f, availability: availability, breaker: breaker,
		halts: halts, usage: usage, logger: logger.WithComponent("orchestrator"), clock: clock, cfg: cfg,
		tracer: noOpTracer{},
	}
}

// SetTracer wires a span provider for the run/tier loop, mirroring
// resilience.Manager's SetLogger opt-in pattern. A nil tracer restores the
// no-op default.
func (o *Orchestrator) SetTracer(t Tracer) {
	if t == nil {
		t = noOpTracer{}
	}
	o.tracer = t
}

// TurnRequest is one inbound request to HandleTurn.
type TurnRequest struct {
	Intent                string
	Query                 string
	UserID                string
	SessionID             string
	RequestedProductNames []string
	AccountToggleOn       bool
	InboundMessage        string
	ActionConsentConfirm  bool
}

// accumulator holds the orchestration's merged, deduplicated state across
// tiers, plus the dedup indices used to enforce first-contributor-wins.
type accumulator struct {
	items       []fetcher.Item
	snippets    []fetcher.Snippet
	sourcesUsed []string
	itemKeys    map[string]struct{}
	snippetKeys map[string]struct{}
	sourceSeen  map[string]struct{}
}

func newAccumulator() *accumulator {
	return &accumulator{
		itemKeys:    map[string]struct{}{},
		snippetKeys: map[string]struct{}{},
		sourceSeen:  map[string]struct{}{},
	}
}

// HandleTurn is the public entry point: it implements spec.md §4.7's
// halt-check-then-resume-or-fresh-start protocol, then drives the core
// tier-escalation loop.
func (o *Orchestrator) HandleTurn(ctx context.Context, req TurnRequest) (OrchestrationResult, error) {
	halt, found, err := o.loadHalt(ctx, req.SessionID)
	if err != nil {
		o.logger.Warn("halt record lookup failed, starting fresh", map[string]interface{}{
			"session_id": req.SessionID, "error": err.Error(),
		})
		found = false
	}

	if found {
		if consent.IsConfirmation(req.InboundMessage, req.ActionConsentConfirm) {
			return o.resume(ctx, req, halt)
		}
		// Abandoned prompt: discard the halt and start fresh, per spec.md §4.7.
		o.deleteHalt(ctx, req.SessionID)
	}

	acc := newAccumulator()
	return o.run(ctx, req, acc, 1, validator.ConsentState{AccountToggleOn: req.AccountToggleOn})
}

func (o *Orchestrator) resume(ctx context.Context, req TurnRequest, halt consent.HaltRecord) (OrchestrationResult, error) {
	acc := newAccumulator()
	for _, name := range halt.AccumulatedItems {
		acc.items = append(acc.items, fetcher.Item{Name: name})
		acc.itemKeys[dedupItemKey(fetcher.Item{Name: name})] = struct{}{}
	}
	for _, text := range halt.AccumulatedSnippets {
		acc.snippets = append(acc.snippets, fetcher.Snippet{Text: text})
		acc.snippetKeys[snippetKey(text)] = struct{}{}
	}
	for _, src := range halt.SourcesUsedSoFar {
		acc.sourcesUsed = append(acc.sourcesUsed, src)
		acc.sourceSeen[src] = struct{}{}
	}

	consentState := validator.ConsentState{AccountToggleOn: req.AccountToggleOn, PerQueryConfirmed: true}
	return o.run(ctx, req, acc, halt.TierReached+1, consentState)
}

// run is the core tier-escalation loop, reproducing spec.md §4.6's
// pseudocode: fetch a tier, merge, validate, and either return, escalate,
// or halt.
func (o *Orchestrator) run(ctx context.Context, req TurnRequest, acc *accumulator, startTier int, consentState validator.ConsentState) (OrchestrationResult, error) {
	runID := uuid.NewString()
	tier := startTier
	var sourcesUnavailable []string
	unavailableSeen := map[string]struct{}{}

	runCtx, runSpan := o.tracer.StartSpan(ctx, "orchestrator.run", map[string]string{
		"run_id": runID, "intent": req.Intent, "session_id": req.SessionID,
	})
	defer runSpan.End()

	for {
		names, err := o.router.ApisFor(req.Intent, tier, o.availability, o.breaker)
		if err != nil {
			runSpan.RecordError(err)
			return OrchestrationResult{}, err
		}

		tierCtx, tierSpan := o.tracer.StartSpan(runCtx, "orchestrator.tier", map[string]string{
			"tier": fmt.Sprintf("%d", tier),
		})
		envelopes := o.fetcher.FetchTier(tierCtx, names, tier, req.Query, req.UserID, req.SessionID)
		tierSpan.End()
		// Merge in routing-table order so first-contributor-wins dedup is
		// deterministic rather than following map iteration order.
		for _, name := range names {
			env, ok := envelopes[name]
			if !ok {
				continue
			}
			if env.Status == fetcher.StatusSuccess {
				mergeEnvelope(acc, env)
				continue
			}
			if _, seen := unavailableSeen[env.APIName]; !seen {
				unavailableSeen[env.APIName] = struct{}{}
				sourcesUnavailable = append(sourcesUnavailable, env.APIName)
			}
		}

		snapshot := validator.Snapshot{
			Items:                 itemNames(acc.items),
			Snippets:              snippetTexts(acc.snippets),
			SourcesUsed:           acc.sourcesUsed,
			RequestedProductNames: req.RequestedProductNames,
		}
		decision := validator.Validate(req.Intent, tier, snapshot, consentState, o.cfg.Thresholds, o.cfg.MaxAutoTier)

		switch decision.Decision {
		case validator.DecisionSufficient:
			o.deleteHalt(ctx, req.SessionID)
			return o.finish(runID, StatusSuccess, acc, sourcesUnavailable, tier, nil), nil

		case validator.DecisionEscalate:
			tier = decision.NextTier
			continue

		case validator.DecisionConsentRequired:
			prompt := o.buildPrompt(decision)
			o.persistHalt(ctx, req, acc, tier, decision.ConsentType)
			o.logConsent(ctx, req, runID, decision.ConsentType, decision.NextTier)
			return o.finish(runID, StatusConsentRequired, acc, sourcesUnavailable, tier, &prompt), nil

		case validator.DecisionExhausted:
			o.deleteHalt(ctx, req.SessionID)
			return o.finish(runID, StatusPartial, acc, sourcesUnavailable, tier, nil), nil

		default:
			return OrchestrationResult{}, fmt.Errorf("orchestrator: unhandled decision %q", decision.Decision)
		}
	}
}

func (o *Orchestrator) buildPrompt(decision validator.Result) ConsentPrompt {
	switch decision.ConsentType {
	case validator.ConsentAccountToggle:
		return ConsentPrompt{Type: decision.ConsentType, Message: "Enable Extended Search in Settings to search more sources", NextTier: decision.NextTier}
	default:
		return ConsentPrompt{Type: decision.ConsentType, Message: "Search deeper?", NextTier: decision.NextTier}
	}
}

func (o *Orchestrator) finish(runID string, status Status, acc *accumulator, sourcesUnavailable []string, tier int, prompt *ConsentPrompt) OrchestrationResult {
	hint := UserHintNone
	if len(sourcesUnavailable) > 0 {
		hint = UserHintPartialSources
	}
	return OrchestrationResult{
		RunID:              runID,
		Status:             status,
		Items:              acc.items,
		Snippets:           acc.snippets,
		SourcesUsed:        acc.sourcesUsed,
		SourcesUnavailable: sourcesUnavailable,
		TierReached:        tier,
		ConsentPrompt:      prompt,
		UserHint:           hint,
	}
}

func (o *Orchestrator) loadHalt(ctx context.Context, sessionID string) (consent.HaltRecord, bool, error) {
	if o.halts == nil || sessionID == "" {
		return consent.HaltRecord{}, false, nil
	}
	return o.halts.Load(ctx, sessionID)
}

func (o *Orchestrator) deleteHalt(ctx context.Context, sessionID string) {
	if o.halts == nil || sessionID == "" {
		return
	}
	if err := o.halts.Delete(ctx, sessionID); err != nil {
		o.logger.Warn("failed to delete halt record", map[string]interface{}{"session_id": sessionID, "error": err.Error()})
	}
}

func (o *Orchestrator) persistHalt(ctx context.Context, req TurnRequest, acc *accumulator, tier int, consentType validator.ConsentType) {
	if o.halts == nil || req.SessionID == "" {
		return
	}
	rec := consent.HaltRecord{
		SessionID:           req.SessionID,
		Intent:              req.Intent,
		Query:               req.Query,
		AccumulatedItems:    itemNames(acc.items),
		AccumulatedSnippets: snippetTexts(acc.snippets),
		SourcesUsedSoFar:    acc.sourcesUsed,
		TierReached:         tier,
		PendingConsentType:  string(consentType),
		CreatedAt:           o.clock.Now(),
	}
	// Per spec.md §4.7's failure semantics: a persistence failure
	// degrades gracefully — the consent_required result is still
	// returned, the next turn just won't auto-resume.
	if err := o.halts.Save(ctx, rec, o.cfg.HaltTTL); err != nil {
		o.logger.Warn("failed to persist halt record, next turn will not auto-resume", map[string]interface{}{
			"session_id": req.SessionID, "error": err.Error(),
		})
	}
}

func (o *Orchestrator) logConsent(ctx context.Context, req TurnRequest, runID string, consentType validator.ConsentType, tierRequested int) {
	if o.usage == nil {
		return
	}
	o.usage.LogConsentEvent(ctx, usagelog.ConsentEvent{
		UserID:        req.UserID,
		SessionID:     req.SessionID,
		Type:          usagelog.ConsentEventType(consentType),
		RunID:         runID,
		TierRequested: tierRequested,
	})
}

// mergeEnvelope folds one successful CallEnvelope into acc, applying
// spec.md §4.6's first-contributor-wins dedup rule for both items and
// snippets.
func mergeEnvelope(acc *accumulator, env fetcher.CallEnvelope) {
	if _, seen := acc.sourceSeen[env.APIName]; !seen {
		acc.sourceSeen[env.APIName] = struct{}{}
		acc.sourcesUsed = append(acc.sourcesUsed, env.APIName)
	}

	for _, group := range [][]fetcher.Item{env.Payload.Products, env.Payload.Hotels, env.Payload.Flights} {
		for _, item := range group {
			key := dedupItemKey(item)
			if _, dup := acc.itemKeys[key]; dup {
				continue
			}
			acc.itemKeys[key] = struct{}{}
			acc.items = append(acc.items, item)
		}
	}

	for _, snip := range env.Payload.Snippets {
		key := snippetKey(snip.Text)
		if _, dup := acc.snippetKeys[key]; dup {
			continue
		}
		acc.snippetKeys[key] = struct{}{}
		acc.snippets = append(acc.snippets, snip)
	}
}

// dedupItemKey is spec.md §4.6's canonical key: normalized lowercase
// "name|model|sku" when model/sku are present, else just name.
func dedupItemKey(item fetcher.Item) string {
	if item.Model == "" && item.SKU == "" {
		return strings.ToLower(strings.TrimSpace(item.Name))
	}
	return strings.ToLower(strings.TrimSpace(fmt.Sprintf("%s|%s|%s", item.Name, item.Model, item.SKU)))
}

// snippetKey is a SHA-1-derived short hash of the snippet text, per
// spec.md §4.6's "SHA-like short hash" dedup rule.
func snippetKey(text string) string {
	sum := sha1.Sum([]byte(strings.ToLower(strings.TrimSpace(text))))
	return hex.EncodeToString(sum[:])[:12]
}

func itemNames(items []fetcher.Item) []string {
	out := make([]string, len(items))
	for i, it := range items {
		out[i] = it.Name
	}
	return out
}

func snippetTexts(snippets []fetcher.Snippet) []string {
	out := make([]string, len(snippets))
	for i, s := range snippets {
		out[i] = s.Text
	}
	return out
}
