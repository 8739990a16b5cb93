package routing

// DefaultRules reproduces original_source/.../router.py's
// TIER_ROUTING_TABLE verbatim: same five intents, same per-tier API
// lists, same declaration order. price_check and travel deliberately
// have empty tier-3/4 lists: escalating past their tier 2 still passes
// through the consent gate, but those tiers fetch nothing before the run
// is EXHAUSTED after tier 4.
func DefaultRules() map[string]map[int][]string {
	return map[string]map[int][]string{
		"product": {
			1: {"amazon_affiliate", "walmart_affiliate", "bestbuy_affiliate", "ebay_affiliate", "google_cse_product"},
			2: {"bing_search", "youtube_transcripts"},
			3: {"reddit_api"},
			4: {"serpapi"},
		},
		"comparison": {
			1: {"amazon_affiliate", "walmart_affiliate", "bestbuy_affiliate", "ebay_affiliate", "google_cse_product"},
			2: {"bing_search", "youtube_transcripts"},
			3: {"reddit_api"},
			4: {"serpapi"},
		},
		"price_check": {
			1: {"amazon_affiliate", "walmart_affiliate", "bestbuy_affiliate", "ebay_affiliate"},
			2: {"google_shopping"},
			3: {},
			4: {},
		},
		"review_deep_dive": {
			1: {"google_cse_product"},
			2: {"bing_search", "youtube_transcripts"},
			3: {"reddit_api"},
			4: {"serpapi"},
		},
		"travel": {
			1: {"amadeus", "booking", "expedia", "google_cse_travel"},
			2: {"skyscanner", "tripadvisor"},
			3: {},
			4: {},
		},
	}
}

// DefaultTable builds a Table from DefaultRules.
func DefaultTable() *Table {
	return New(DefaultRules())
}
