// Package validator implements the Data Validator (C5): the
// intent-specific sufficiency evaluator that decides whether an
// orchestration run should stop, escalate, or wait on consent, grounded
// on original_source/.../data_validator.py's DataValidator.validate.
package validator

import (
	"fmt"
	"strings"
)

// Decision is the outcome of one validation pass, per spec.md §4.5.
type Decision string

const (
	DecisionSufficient      Decision = "SUFFICIENT"
	DecisionEscalate        Decision = "ESCALATE"
	DecisionConsentRequired Decision = "CONSENT_REQUIRED"
	DecisionExhausted       Decision = "EXHAUSTED"
)

// ConsentType distinguishes which consent layer is blocking escalation.
type ConsentType string

const (
	ConsentAccountToggle ConsentType = "account_toggle"
	ConsentPerQuery      ConsentType = "per_query"
)

// Thresholds are the per-intent sufficiency bounds, all inclusive lower
// bounds, per spec.md §4.5's table.
type Thresholds struct {
	MinItems        int
	MinSnippets     int
	MinSources      int
	RequireAllNames bool // comparison intent: must cover every requested product name
}

// DefaultThresholds reproduces original_source/.../data_validator.py's
// INTENT_THRESHOLDS verbatim.
func DefaultThresholds() map[string]Thresholds {
	return map[string]Thresholds{
		"product":          {MinItems: 3},
		"comparison":       {RequireAllNames: true},
		"price_check":      {MinItems: 1},
		"review_deep_dive": {MinSnippets: 5, MinSources: 2},
		"travel":           {MinItems: 1, MinSnippets: 3},
	}
}

// Snapshot is the accumulated state a validation pass inspects:
// everything merged so far across every tier of the current run.
type Snapshot struct {
	Items                 []string // normalized item names seen so far
	Snippets              []string
	SourcesUsed           []string // API names that have contributed a success envelope
	RequestedProductNames []string // only meaningful for the comparison intent
}

// ConsentState is the two-layer consent state the validator consults
// once auto-escalation is exhausted, per spec.md §3.
type ConsentState struct {
	AccountToggleOn    bool
	PerQueryConfirmed  bool
}

// Result is what Validate returns.
type Result struct {
	Decision    Decision
	NextTier    int // meaningful for ESCALATE and CONSENT_REQUIRED (both consent types)
	ConsentType ConsentType
	SourcesUsed []string
}

// MaxAutoTier is spec.md §4.5's default auto-escalation ceiling: tiers up
// to and including this one escalate without any consent check.
const MaxAutoTier = 2

// Validate runs the sufficiency decision procedure for intent against
// snapshot at currentTier, consulting consent only once auto-escalation
// is exhausted. maxAutoTier lets callers override MaxAutoTier (e.g. for
// a stricter deployment); pass 0 to use the default.
func Validate(intent string, currentTier int, snapshot Snapshot, consent ConsentState, thresholds map[string]Thresholds, maxAutoTier int) Result {
	if maxAutoTier <= 0 {
		maxAutoTier = MaxAutoTier
	}

	th := thresholds[intent]
	if meetsThresholds(intent, th, snapshot) {
		return Result{Decision: DecisionSufficient, SourcesUsed: snapshot.SourcesUsed}
	}

	nextTier := currentTier + 1
	if nextTier > 4 {
		return Result{Decision: DecisionExhausted, SourcesUsed: snapshot.SourcesUsed}
	}
	if nextTier <= maxAutoTier {
		return Result{Decision: DecisionEscalate, NextTier: nextTier, SourcesUsed: snapshot.SourcesUsed}
	}

	if !consent.AccountToggleOn {
		return Result{Decision: DecisionConsentRequired, ConsentType: ConsentAccountToggle, NextTier: nextTier, SourcesUsed: snapshot.SourcesUsed}
	}
	if !consent.PerQueryConfirmed {
		return Result{Decision: DecisionConsentRequired, ConsentType: ConsentPerQuery, NextTier: nextTier, SourcesUsed: snapshot.SourcesUsed}
	}
	return Result{Decision: DecisionEscalate, NextTier: nextTier, SourcesUsed: snapshot.SourcesUsed}
}

func meetsThresholds(intent string, th Thresholds, snapshot Snapshot) bool {
	if th.RequireAllNames {
		return coversAllRequestedNames(snapshot.RequestedProductNames, snapshot.Items)
	}
	if th.MinItems > 0 && len(snapshot.Items) < th.MinItems {
		return false
	}
	if th.MinSnippets > 0 && len(snapshot.Snippets) < th.MinSnippets {
		return false
	}
	if th.MinSources > 0 && len(snapshot.SourcesUsed) < th.MinSources {
		return false
	}
	// An intent with no thresholds configured at all (unknown intent
	// slipping through) is never "sufficient" by default — it always
	// escalates until EXHAUSTED, which is the safer failure mode.
	if th == (Thresholds{}) {
		return false
	}
	return true
}

func coversAllRequestedNames(requested, items []string) bool {
	if len(requested) == 0 {
		// No specific products named: original_source/.../data_validator.py
		// falls back to "at least 2 items" rather than vacuously true, so a
		// bare comparison intent still requires something to compare.
		return len(items) >= 2
	}
	for _, name := range requested {
		if !anyFuzzyMatch(name, items) {
			return false
		}
	}
	return true
}

func anyFuzzyMatch(requested string, items []string) bool {
	for _, item := range items {
		if jaccard(tokenSet(requested), tokenSet(item)) >= 0.45 {
			return true
		}
	}
	return false
}

// tokenSet lowercases and splits on non-alphanumeric runs, per spec.md
// §4.5's "token-set Jaccard, case-insensitive" rule.
func tokenSet(s string) map[string]struct{} {
	set := map[string]struct{}{}
	for _, tok := range strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !(r >= 'a' && r <= 'z' || r >= '0' && r <= '9')
	}) {
		if tok != "" {
			set[tok] = struct{}{}
		}
	}
	return set
}

func jaccard(a, b map[string]struct{}) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 1
	}
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	intersection := 0
	for tok := range a {
		if _, ok := b[tok]; ok {
			intersection++
		}
	}
	union := len(a) + len(b) - intersection
	return float64(intersection) / float64(union)
}

// String satisfies fmt.Stringer for error messages and logging.
func (r Result) String() string {
	switch r.Decision {
	case DecisionEscalate:
		return fmt.Sprintf("ESCALATE(tier=%d)", r.NextTier)
	case DecisionConsentRequired:
		return fmt.Sprintf("CONSENT_REQUIRED(type=%s, next_tier=%d)", r.ConsentType, r.NextTier)
	default:
		return string(r.Decision)
	}
}
