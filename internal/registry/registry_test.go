package registry

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLookup_AppliesDefaultTimeout(t *testing.T) {
	reg, warnings := New([]APIDescriptor{
		{Name: "amazon_affiliate", AdapterKey: "product_affiliate", ProviderTag: "amazon"},
	}, nil)
	assert.Empty(t, warnings)

	d, ok := reg.Lookup("amazon_affiliate")
	require.True(t, ok)
	assert.Equal(t, DefaultTimeout, d.Timeout)
}

func TestLookup_FeatureFlagDisabledReportsNotFound(t *testing.T) {
	reg, warnings := New([]APIDescriptor{
		{Name: "reddit_api", AdapterKey: "product_evidence", ProviderTag: "reddit", RequiresConsent: true, FeatureFlag: "ENABLE_REDDIT_API"},
	}, map[string]bool{"ENABLE_REDDIT_API": false})
	assert.Empty(t, warnings)

	_, ok := reg.Lookup("reddit_api")
	assert.False(t, ok, "feature-flagged-off descriptor must be reported as not-found")
	assert.True(t, reg.Exists("reddit_api"), "but it still exists for registry validation purposes")
}

func TestLookup_UnknownFeatureFlagWarnsAndDisables(t *testing.T) {
	reg, warnings := New([]APIDescriptor{
		{Name: "serpapi", AdapterKey: "review_search", ProviderTag: "serpapi", FeatureFlag: "ENABLE_TYPO"},
	}, map[string]bool{})

	require.Len(t, warnings, 1)
	_, ok := reg.Lookup("serpapi")
	assert.False(t, ok)
}

func TestLookup_UnknownAPIReturnsFalse(t *testing.T) {
	reg, _ := New(nil, nil)
	_, ok := reg.Lookup("does_not_exist")
	assert.False(t, ok)
	assert.False(t, reg.Exists("does_not_exist"))
}

func TestDefaultRegistry_ContainsOriginalSixteenAPIs(t *testing.T) {
	reg, warnings := DefaultRegistry()
	assert.Empty(t, warnings)

	expected := []string{
		"amazon_affiliate", "ebay_affiliate", "walmart_affiliate", "bestbuy_affiliate",
		"google_cse_product", "google_cse_travel", "bing_search", "youtube_transcripts",
		"google_shopping", "reddit_api", "serpapi", "amadeus", "booking", "expedia",
		"skyscanner", "tripadvisor",
	}
	require.Len(t, DefaultDescriptors(), len(expected))
	for _, name := range expected {
		assert.True(t, reg.Exists(name), "missing descriptor %q", name)
	}
}

func TestLoadYAML_RoundTripsDescriptors(t *testing.T) {
	doc := []byte(`
feature_flags:
  ENABLE_SERPAPI: true
apis:
  - name: serpapi
    adapter_key: review_search
    provider_tag: serpapi
    cost_units: 1
    timeout_ms: 4000
    feature_flag: ENABLE_SERPAPI
`)
	reg, warnings, err := LoadYAML(doc)
	require.NoError(t, err)
	assert.Empty(t, warnings)

	d, ok := reg.Lookup("serpapi")
	require.True(t, ok)
	assert.Equal(t, 4*time.Second, d.Timeout)
	assert.Equal(t, 1, d.CostUnits)
}
