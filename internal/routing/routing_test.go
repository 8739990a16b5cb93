package routing

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shopaway/orchestrator/internal/corelog"
)

type fakeBreaker struct{ open map[string]bool }

func (f fakeBreaker) IsOpen(name string) bool { return f.open[name] }

type fakeAvailability struct{ disabled map[string]bool }

func (f fakeAvailability) Available(name string) bool { return !f.disabled[name] }

func TestApisFor_UnknownIntentReturnsSentinel(t *testing.T) {
	table := DefaultTable()
	_, err := table.ApisFor("bogus_intent", 1, nil, nil)
	require.Error(t, err)
	assert.True(t, corelog.IsUnknownIntent(err))
}

func TestApisFor_PreservesDeclarationOrder(t *testing.T) {
	table := DefaultTable()
	apis, err := table.ApisFor("product", 1, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{
		"amazon_affiliate", "walmart_affiliate", "bestbuy_affiliate", "ebay_affiliate", "google_cse_product",
	}, apis)
}

func TestApisFor_FiltersOpenCircuits(t *testing.T) {
	table := DefaultTable()
	breaker := fakeBreaker{open: map[string]bool{"walmart_affiliate": true}}

	apis, err := table.ApisFor("product", 1, nil, breaker)
	require.NoError(t, err)
	assert.NotContains(t, apis, "walmart_affiliate")
	assert.Contains(t, apis, "amazon_affiliate")
}

func TestApisFor_FiltersFeatureFlaggedOffAPIs(t *testing.T) {
	table := DefaultTable()
	availability := fakeAvailability{disabled: map[string]bool{"youtube_transcripts": true}}

	apis, err := table.ApisFor("product", 2, availability, nil)
	require.NoError(t, err)
	assert.NotContains(t, apis, "youtube_transcripts")
	assert.Contains(t, apis, "bing_search")
}

func TestApisFor_EmptyTierReturnsNilNoError(t *testing.T) {
	table := DefaultTable()
	apis, err := table.ApisFor("price_check", 3, nil, nil)
	require.NoError(t, err)
	assert.Empty(t, apis)
}

func TestMaxTier_MatchesOriginalTable(t *testing.T) {
	table := DefaultTable()
	assert.Equal(t, 4, table.MaxTier("product"))
	assert.Equal(t, 4, table.MaxTier("comparison"))
	assert.Equal(t, 2, table.MaxTier("price_check"))
	assert.Equal(t, 4, table.MaxTier("review_deep_dive"))
	assert.Equal(t, 2, table.MaxTier("travel"))
	assert.Equal(t, 0, table.MaxTier("bogus"))
}

func TestValidate_ReportsEveryUnknownReference(t *testing.T) {
	table := New(map[string]map[int][]string{
		"product": {1: {"amazon_affiliate", "not_a_real_api"}},
	})
	known := map[string]bool{"amazon_affiliate": true}

	err := table.Validate(func(name string) bool { return known[name] })
	require.Error(t, err)
	assert.True(t, corelog.IsConfigurationError(err))
	assert.Contains(t, err.Error(), "not_a_real_api")
}

func TestValidate_PassesWhenAllReferencesKnown(t *testing.T) {
	table := DefaultTable()
	known := map[string]bool{}
	for _, name := range []string{
		"amazon_affiliate", "walmart_affiliate", "bestbuy_affiliate", "ebay_affiliate",
		"google_cse_product", "bing_search", "youtube_transcripts", "reddit_api", "serpapi",
		"google_shopping", "amadeus", "booking", "expedia", "google_cse_travel",
		"skyscanner", "tripadvisor",
	} {
		known[name] = true
	}
	assert.NoError(t, table.Validate(func(name string) bool { return known[name] }))
}

func TestLoadYAML_ParsesIntentTierTable(t *testing.T) {
	doc := []byte(`
price_check:
  1:
    - amazon_affiliate
  2:
    - google_shopping
`)
	table, err := LoadYAML(doc)
	require.NoError(t, err)

	apis, err := table.ApisFor("price_check", 2, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"google_shopping"}, apis)
}
