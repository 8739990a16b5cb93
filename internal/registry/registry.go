// Package registry implements the API Registry (C1): a static, read-only
// catalog mapping each logical API name to the provider adapter, cost,
// timeout, and consent/feature-flag gates needed to call it.
package registry

import (
	"fmt"
	"time"

	"gopkg.in/yaml.v3"
)

// APIDescriptor is the static configuration for one logical API, per
// spec.md §3. Field names follow the original Python APIConfig dataclass
// (adapter_key/provider_tag renamed from mcp_tool/provider to stay
// transport-agnostic, since this module has no MCP tool surface).
type APIDescriptor struct {
	Name            string        `yaml:"name"`
	AdapterKey      string        `yaml:"adapter_key"`
	ProviderTag     string        `yaml:"provider_tag"`
	CostUnits       int           `yaml:"cost_units"`
	Timeout         time.Duration `yaml:"timeout"`
	RequiresConsent bool          `yaml:"requires_consent"`
	FeatureFlag     string        `yaml:"feature_flag,omitempty"`
}

// DefaultTimeout is spec.md §3's default per-call timeout.
const DefaultTimeout = 5 * time.Second

// Registry is the read-only, startup-built API catalog (C1). It is safe
// for concurrent, lock-free reads once built, since it is never mutated
// after construction — the same immutability spec.md §5 calls for.
type Registry struct {
	descriptors  map[string]APIDescriptor
	featureFlags map[string]bool
}

// New builds a Registry from a list of descriptors, applying
// DefaultTimeout to any descriptor that didn't specify one. It validates
// that every referenced feature flag exists in flags (SPEC_FULL.md §4.2a);
// an unknown flag name is logged by the caller and the descriptor is
// treated as permanently disabled rather than rejected outright, so one
// typo in a flag name doesn't fail the whole registry to build.
func New(descriptors []APIDescriptor, flags map[string]bool) (*Registry, []string) {
	r := &Registry{
		descriptors:  make(map[string]APIDescriptor, len(descriptors)),
		featureFlags: flags,
	}
	if r.featureFlags == nil {
		r.featureFlags = map[string]bool{}
	}

	var warnings []string
	for _, d := range descriptors {
		if d.Timeout <= 0 {
			d.Timeout = DefaultTimeout
		}
		if d.FeatureFlag != "" {
			if _, known := r.featureFlags[d.FeatureFlag]; !known {
				warnings = append(warnings, fmt.Sprintf(
					"descriptor %q references unknown feature flag %q; treating as disabled",
					d.Name, d.FeatureFlag))
				r.featureFlags[d.FeatureFlag] = false
			}
		}
		r.descriptors[d.Name] = d
	}
	return r, warnings
}

// Lookup returns name's descriptor, or (zero, false) if the API does not
// exist or its feature flag is disabled — per spec.md §4.1, a
// feature-flagged-off descriptor is reported as not-found so routing
// cleanly skips it without special-casing flags at every call site.
func (r *Registry) Lookup(name string) (APIDescriptor, bool) {
	d, ok := r.descriptors[name]
	if !ok {
		return APIDescriptor{}, false
	}
	if d.FeatureFlag != "" && !r.featureFlags[d.FeatureFlag] {
		return APIDescriptor{}, false
	}
	return d, true
}

// Available reports whether name is a known, feature-flag-enabled
// descriptor. It is Lookup's boolean half, exposed standalone so the
// routing package can filter on availability without importing
// APIDescriptor (see routing.AvailabilityGate).
func (r *Registry) Available(name string) bool {
	_, ok := r.Lookup(name)
	return ok
}

// Exists reports whether name is a known descriptor at all, ignoring
// feature-flag state. Used by routing-table validation (ErrInvalidRegistry)
// so a disabled-but-typo'd name is distinguished from a genuinely unknown
// one.
func (r *Registry) Exists(name string) bool {
	_, ok := r.descriptors[name]
	return ok
}

// All returns every descriptor, ignoring feature-flag gating. Used by
// diagnostics/tests, never by the routing path.
func (r *Registry) All() map[string]APIDescriptor {
	out := make(map[string]APIDescriptor, len(r.descriptors))
	for k, v := range r.descriptors {
		out[k] = v
	}
	return out
}

// yamlDoc is the on-disk shape for LoadYAML: a list of descriptors plus the
// feature flag table, so the API catalog really is "data, not code" per
// spec.md §6.
type yamlDoc struct {
	Flags       map[string]bool `yaml:"feature_flags"`
	Descriptors []struct {
		Name            string `yaml:"name"`
		AdapterKey      string `yaml:"adapter_key"`
		ProviderTag     string `yaml:"provider_tag"`
		CostUnits       int    `yaml:"cost_units"`
		TimeoutMS       int    `yaml:"timeout_ms"`
		RequiresConsent bool   `yaml:"requires_consent"`
		FeatureFlag     string `yaml:"feature_flag"`
	} `yaml:"apis"`
}

// LoadYAML parses a registry definition from YAML, the serialization
// spec.md §6 recommends so the catalog is replaceable without recompiling
// logic.
func LoadYAML(data []byte) (*Registry, []string, error) {
	var doc yamlDoc
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, nil, fmt.Errorf("parsing registry yaml: %w", err)
	}

	descriptors := make([]APIDescriptor, 0, len(doc.Descriptors))
	for _, d := range doc.Descriptors {
		timeout := DefaultTimeout
		if d.TimeoutMS > 0 {
			timeout = time.Duration(d.TimeoutMS) * time.Millisecond
		}
		descriptors = append(descriptors, APIDescriptor{
			Name:            d.Name,
			AdapterKey:      d.AdapterKey,
			ProviderTag:     d.ProviderTag,
			CostUnits:       d.CostUnits,
			Timeout:         timeout,
			RequiresConsent: d.RequiresConsent,
			FeatureFlag:     d.FeatureFlag,
		})
	}

	reg, warnings := New(descriptors, doc.Flags)
	return reg, warnings, nil
}
