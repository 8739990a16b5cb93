// Package routing implements the Routing Table (C2): a static,
// intent-and-tier keyed lookup of which APIs the orchestrator may call at
// each escalation step, reproducing original_source/.../router.py's
// TIER_ROUTING_TABLE verbatim.
package routing

import (
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/shopaway/orchestrator/internal/corelog"
)

// BreakerGate reports whether an API's circuit is currently open,
// satisfied by *resilience.Manager. Declared here instead of importing
// the resilience package directly so routing stays a leaf package with
// no dependency on how breaker state is tracked.
type BreakerGate interface {
	IsOpen(apiName string) bool
}

// AvailabilityGate reports whether an API is currently enabled, i.e. not
// gated off by a disabled feature flag. Satisfied by *registry.Registry.
// Declared here for the same leaf-package reason as BreakerGate.
type AvailabilityGate interface {
	Available(apiName string) bool
}

// Table is the tier-escalation routing table: intent -> tier -> ordered
// list of API names. Order is significant — it is the tie-break order
// for dedup's first-contributor-wins rule (spec.md §4.2's "stable by
// routing-table declaration order").
type Table struct {
	rules map[string]map[int][]string
}

// New builds a Table from a raw intent->tier->names map. The caller owns
// validating API names against a registry; New itself only copies the
// data so later mutation of the input doesn't alias the Table.
func New(rules map[string]map[int][]string) *Table {
	t := &Table{rules: make(map[string]map[int][]string, len(rules))}
	for intent, tiers := range rules {
		tCopy := make(map[int][]string, len(tiers))
		for tier, names := range tiers {
			namesCopy := make([]string, len(names))
			copy(namesCopy, names)
			tCopy[tier] = namesCopy
		}
		t.rules[intent] = tCopy
	}
	return t
}

// KnownIntents returns every intent the table has rules for, used by
// Validate and diagnostics.
func (t *Table) KnownIntents() []string {
	out := make([]string, 0, len(t.rules))
	for intent := range t.rules {
		out = append(out, intent)
	}
	return out
}

// ApisFor returns the APIs available for intent at tier, in declaration
// order, per spec.md §4.2's three-step filter: unknown intent fails,
// feature-flag-disabled descriptors are dropped, then open-circuit APIs
// are dropped — the same filter original_source/.../router.py's
// get_apis_for_tier applies, preserved here rather than left to the
// caller so neither filter can be forgotten at a call site. Either gate
// may be nil, in which case that filter is skipped (treated as
// always-available / never-open) — convenient for tests that only care
// about one dimension.
//
// An unknown intent returns corelog.ErrUnknownIntent wrapped with the
// intent name. An unknown tier (or a tier with no rows) returns an
// empty, non-error slice — tiers 3 and 4 are legitimately empty for
// price_check and travel in the default table.
func (t *Table) ApisFor(intent string, tier int, availability AvailabilityGate, breaker BreakerGate) ([]string, error) {
	tiers, ok := t.rules[intent]
	if !ok {
		return nil, corelog.NewError("routing.ApisFor", "unknown_intent", intent, corelog.ErrUnknownIntent)
	}

	names := tiers[tier]
	if len(names) == 0 {
		return nil, nil
	}

	out := make([]string, 0, len(names))
	for _, name := range names {
		if availability != nil && !availability.Available(name) {
			continue
		}
		if breaker != nil && breaker.IsOpen(name) {
			continue
		}
		out = append(out, name)
	}
	return out, nil
}

// MaxTier returns the highest tier number with any rule for intent, for
// diagnostics. The orchestrator does not consult it: exhaustion is
// decided by the validator's fixed tier-4 ceiling. Returns 0 for an
// unknown intent.
func (t *Table) MaxTier(intent string) int {
	tiers, ok := t.rules[intent]
	if !ok {
		return 0
	}
	max := 0
	for tier := range tiers {
		if tier > max {
			max = tier
		}
	}
	return max
}

// Validate checks that every API name referenced by the table exists in
// a registry, per SPEC_FULL.md §4.2a's startup validation requirement.
// It returns one corelog.ErrInvalidRegistry-wrapped error describing
// every bad reference, not just the first, so a config fix doesn't
// require multiple restart/discover cycles.
func (t *Table) Validate(exists func(apiName string) bool) error {
	var bad []string
	for intent, tiers := range t.rules {
		for tier, names := range tiers {
			for _, name := range names {
				if !exists(name) {
					bad = append(bad, fmt.Sprintf("%s/tier%d/%s", intent, tier, name))
				}
			}
		}
	}
	if len(bad) == 0 {
		return nil
	}
	return corelog.NewError("routing.Validate", "invalid_registry",
		fmt.Sprintf("%v", bad), corelog.ErrInvalidRegistry)
}

// yamlDoc is the on-disk shape for LoadYAML.
type yamlDoc map[string]map[int][]string

// LoadYAML parses a routing table from YAML, keeping the table a data
// artifact rather than compiled-in logic (spec.md §6).
func LoadYAML(data []byte) (*Table, error) {
	var doc yamlDoc
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parsing routing table yaml: %w", err)
	}
	return New(doc), nil
}
