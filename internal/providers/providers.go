// Package providers implements deterministic fake ProviderAdapters for
// every adapter_key in the default registry, standing in for the real
// upstream shopping/travel/review integrations (explicitly out of scope
// per spec.md §1's "individual provider HTTP clients"). Naming and
// output shape are grounded on original_source/.../mcp_server/tools/*.py
// (product_extractor's product names, review_search's source roster,
// travel_destination_facts' fact style).
package providers

import (
	"context"
	"fmt"
	"hash/fnv"

	"github.com/shopaway/orchestrator/internal/fetcher"
)

// Registry is a simple adapter_key -> ProviderAdapter map satisfying
// fetcher.AdapterRegistry.
type Registry struct {
	adapters map[string]fetcher.ProviderAdapter
}

func (r *Registry) Adapter(key string) (fetcher.ProviderAdapter, bool) {
	a, ok := r.adapters[key]
	return a, ok
}

// NewDefaultRegistry wires a fetcher.AdapterRegistry covering every
// adapter_key the default API registry references.
func NewDefaultRegistry() *Registry {
	return &Registry{adapters: map[string]fetcher.ProviderAdapter{
		"product_affiliate":        productAffiliateAdapter{},
		"product_search":           productSearchAdapter{},
		"product_evidence":         productEvidenceAdapter{},
		"review_search":            reviewSearchAdapter{},
		"travel_search":            travelSearchAdapter{},
		"travel_search_flights":    travelSearchFlightsAdapter{},
		"travel_search_hotels":     travelSearchHotelsAdapter{},
		"travel_destination_facts": travelDestinationFactsAdapter{},
	}}
}

var _ fetcher.AdapterRegistry = (*Registry)(nil)

// seed turns (providerTag, query) into a small deterministic int so fake
// result counts/content vary with input without any real randomness
// (Date.now/math.rand equivalents are deliberately avoided — this module
// never needs wall-clock-seeded nondeterminism).
func seed(providerTag, query string) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(providerTag + "|" + query))
	return int(h.Sum32())
}

func itemName(providerTag, query string, i int) string {
	return fmt.Sprintf("%s result %d for %q", providerTag, i+1, query)
}

// productAffiliateAdapter fakes the zero-cost affiliate adapters
// (amazon_affiliate, ebay_affiliate, walmart_affiliate, bestbuy_affiliate).
type productAffiliateAdapter struct{}

func (productAffiliateAdapter) Call(_ context.Context, providerTag, query string) (fetcher.Payload, error) {
	n := seed(providerTag, query)%3 + 1
	items := make([]fetcher.Item, 0, n)
	for i := 0; i < n; i++ {
		items = append(items, fetcher.Item{
			Name:  itemName(providerTag, query, i),
			Model: fmt.Sprintf("%s-%d", providerTag, i+1),
			SKU:   fmt.Sprintf("SKU-%s-%d", providerTag, seed(providerTag, query)+i),
		})
	}
	return fetcher.Payload{Products: items}, nil
}

// productSearchAdapter fakes general web/shopping search adapters
// (google_cse_product, bing_search, google_shopping).
type productSearchAdapter struct{}

func (productSearchAdapter) Call(_ context.Context, providerTag, query string) (fetcher.Payload, error) {
	n := seed(providerTag, query)%2 + 1
	items := make([]fetcher.Item, 0, n)
	for i := 0; i < n; i++ {
		items = append(items, fetcher.Item{Name: itemName(providerTag, query, i)})
	}
	return fetcher.Payload{Products: items}, nil
}

// productEvidenceAdapter fakes evidence-gathering adapters
// (youtube_transcripts, reddit_api) that contribute snippets, not items.
type productEvidenceAdapter struct{}

func (productEvidenceAdapter) Call(_ context.Context, providerTag, query string) (fetcher.Payload, error) {
	n := seed(providerTag, query)%3 + 1
	snippets := make([]fetcher.Snippet, 0, n)
	for i := 0; i < n; i++ {
		snippets = append(snippets, fetcher.Snippet{
			Text:   fmt.Sprintf("%s user discussion #%d mentions %q favorably.", providerTag, i+1, query),
			Source: providerTag,
		})
	}
	return fetcher.Payload{Snippets: snippets}, nil
}

// reviewSearchAdapter fakes serpapi's editorial/community review
// aggregation, grounded on review_search.py's source roster
// (Wirecutter, RTINGS, Reddit, ...).
type reviewSearchAdapter struct{}

var reviewSources = []string{"Wirecutter", "RTINGS", "Reddit", "The Verge", "CNET"}

func (reviewSearchAdapter) Call(_ context.Context, providerTag, query string) (fetcher.Payload, error) {
	s := seed(providerTag, query)
	n := s%3 + 3 // 3-5 snippets; alone this is one source, short of review_deep_dive's 2-source threshold
	snippets := make([]fetcher.Snippet, 0, n)
	for i := 0; i < n; i++ {
		source := reviewSources[(s+i)%len(reviewSources)]
		snippets = append(snippets, fetcher.Snippet{
			Text:   fmt.Sprintf("%s review: %q rated highly by readers (#%d).", source, query, i+1),
			Source: source,
		})
	}
	return fetcher.Payload{Snippets: snippets}, nil
}

// travelSearchAdapter fakes google_cse_travel's generic travel search,
// producing a small mixed bag tagged as flights.
type travelSearchAdapter struct{}

func (travelSearchAdapter) Call(_ context.Context, providerTag, query string) (fetcher.Payload, error) {
	n := seed(providerTag, query)%2 + 1
	items := make([]fetcher.Item, 0, n)
	for i := 0; i < n; i++ {
		items = append(items, fetcher.Item{Name: itemName(providerTag, query, i)})
	}
	return fetcher.Payload{Flights: items}, nil
}

// travelSearchFlightsAdapter fakes amadeus/skyscanner.
type travelSearchFlightsAdapter struct{}

func (travelSearchFlightsAdapter) Call(_ context.Context, providerTag, query string) (fetcher.Payload, error) {
	n := seed(providerTag, query)%2 + 1
	items := make([]fetcher.Item, 0, n)
	for i := 0; i < n; i++ {
		items = append(items, fetcher.Item{Name: fmt.Sprintf("%s flight option %d to %q", providerTag, i+1, query)})
	}
	return fetcher.Payload{Flights: items}, nil
}

// travelSearchHotelsAdapter fakes booking/expedia.
type travelSearchHotelsAdapter struct{}

func (travelSearchHotelsAdapter) Call(_ context.Context, providerTag, query string) (fetcher.Payload, error) {
	n := seed(providerTag, query)%2 + 1
	items := make([]fetcher.Item, 0, n)
	for i := 0; i < n; i++ {
		items = append(items, fetcher.Item{Name: fmt.Sprintf("%s hotel option %d near %q", providerTag, i+1, query)})
	}
	return fetcher.Payload{Hotels: items}, nil
}

// travelDestinationFactsAdapter fakes tripadvisor's destination-facts
// snippets.
type travelDestinationFactsAdapter struct{}

func (travelDestinationFactsAdapter) Call(_ context.Context, providerTag, query string) (fetcher.Payload, error) {
	n := seed(providerTag, query)%2 + 2
	snippets := make([]fetcher.Snippet, 0, n)
	for i := 0; i < n; i++ {
		snippets = append(snippets, fetcher.Snippet{
			Text:   fmt.Sprintf("%s destination fact #%d about %q.", providerTag, i+1, query),
			Source: providerTag,
		})
	}
	return fetcher.Payload{Snippets: snippets}, nil
}
