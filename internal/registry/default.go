package registry

// DefaultFeatureFlags mirrors the original source's environment-variable
// gates (original_source/.../api_registry.py), which read these from
// os.environ at process start with no hardcoded default. This dataset
// turns all three on so the full 16-API registry — and every tier that
// depends on a flagged API — is reachable out of the box for the demo
// binary and the scenario tests in spec.md §8. Deployments that want the
// conservative posture set these false via their own config layer.
func DefaultFeatureFlags() map[string]bool {
	return map[string]bool{
		"ENABLE_YOUTUBE_TRANSCRIPTS": true,
		"ENABLE_REDDIT_API":         true,
		"ENABLE_SERPAPI":            true,
	}
}

// DefaultDescriptors reproduces original_source/.../api_registry.py's
// API_REGISTRY verbatim: same 16 API names, same adapter/provider pairs,
// same costs, same consent/feature-flag gates. This is the dataset the
// scenarios in spec.md §8 (S1-S6) and the property tests run against.
func DefaultDescriptors() []APIDescriptor {
	return []APIDescriptor{
		// Tier 1 — affiliates (free, revenue share)
		{Name: "amazon_affiliate", AdapterKey: "product_affiliate", ProviderTag: "amazon", CostUnits: 0, Timeout: DefaultTimeout},
		{Name: "ebay_affiliate", AdapterKey: "product_affiliate", ProviderTag: "ebay", CostUnits: 0, Timeout: DefaultTimeout},
		{Name: "walmart_affiliate", AdapterKey: "product_affiliate", ProviderTag: "walmart", CostUnits: 0, Timeout: DefaultTimeout},
		{Name: "bestbuy_affiliate", AdapterKey: "product_affiliate", ProviderTag: "bestbuy", CostUnits: 0, Timeout: DefaultTimeout},

		// Tier 1 — search (low cost)
		{Name: "google_cse_product", AdapterKey: "product_search", ProviderTag: "google_cse", CostUnits: 1, Timeout: DefaultTimeout},
		{Name: "google_cse_travel", AdapterKey: "travel_search", ProviderTag: "google_cse", CostUnits: 1, Timeout: DefaultTimeout},

		// Tier 2 — extended search
		{Name: "bing_search", AdapterKey: "product_search", ProviderTag: "bing", CostUnits: 1, Timeout: DefaultTimeout},
		{Name: "youtube_transcripts", AdapterKey: "product_evidence", ProviderTag: "youtube", CostUnits: 0, Timeout: DefaultTimeout, FeatureFlag: "ENABLE_YOUTUBE_TRANSCRIPTS"},
		{Name: "google_shopping", AdapterKey: "product_search", ProviderTag: "google_shopping", CostUnits: 1, Timeout: DefaultTimeout},

		// Tier 3 — consent required
		{Name: "reddit_api", AdapterKey: "product_evidence", ProviderTag: "reddit", CostUnits: 1, Timeout: DefaultTimeout, RequiresConsent: true, FeatureFlag: "ENABLE_REDDIT_API"},

		// Tier 2/4 — review search (core feature)
		{Name: "serpapi", AdapterKey: "review_search", ProviderTag: "serpapi", CostUnits: 1, Timeout: DefaultTimeout, FeatureFlag: "ENABLE_SERPAPI"},

		// Travel APIs
		{Name: "amadeus", AdapterKey: "travel_search_flights", ProviderTag: "amadeus", CostUnits: 0, Timeout: DefaultTimeout},
		{Name: "booking", AdapterKey: "travel_search_hotels", ProviderTag: "booking", CostUnits: 0, Timeout: DefaultTimeout},
		{Name: "expedia", AdapterKey: "travel_search_hotels", ProviderTag: "expedia", CostUnits: 0, Timeout: DefaultTimeout},
		{Name: "skyscanner", AdapterKey: "travel_search_flights", ProviderTag: "skyscanner", CostUnits: 0, Timeout: DefaultTimeout},
		{Name: "tripadvisor", AdapterKey: "travel_destination_facts", ProviderTag: "tripadvisor", CostUnits: 0, Timeout: DefaultTimeout},
	}
}

// DefaultRegistry builds the Registry from DefaultDescriptors and
// DefaultFeatureFlags. warnings is always empty for this dataset; it is
// returned anyway so callers use the same error-handling shape as LoadYAML.
func DefaultRegistry() (*Registry, []string) {
	return New(DefaultDescriptors(), DefaultFeatureFlags())
}
