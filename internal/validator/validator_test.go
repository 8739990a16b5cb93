package validator

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidate_ProductSufficientAtThreeItems(t *testing.T) {
	snap := Snapshot{Items: []string{"a", "b", "c"}, SourcesUsed: []string{"amazon_affiliate"}}
	r := Validate("product", 1, snap, ConsentState{}, DefaultThresholds(), 0)
	assert.Equal(t, DecisionSufficient, r.Decision)
}

func TestValidate_ProductEscalatesWithinAutoTierCeiling(t *testing.T) {
	snap := Snapshot{Items: []string{"a"}}
	r := Validate("product", 1, snap, ConsentState{}, DefaultThresholds(), 0)
	assert.Equal(t, DecisionEscalate, r.Decision)
	assert.Equal(t, 2, r.NextTier)
}

func TestValidate_RequiresAccountToggleBeforeTier3(t *testing.T) {
	snap := Snapshot{Items: []string{"a"}}
	r := Validate("product", 2, snap, ConsentState{AccountToggleOn: false}, DefaultThresholds(), 0)
	assert.Equal(t, DecisionConsentRequired, r.Decision)
	assert.Equal(t, ConsentAccountToggle, r.ConsentType)
}

func TestValidate_RequiresPerQueryConfirmationAfterAccountToggle(t *testing.T) {
	snap := Snapshot{Items: []string{"a"}}
	r := Validate("product", 2, snap, ConsentState{AccountToggleOn: true, PerQueryConfirmed: false}, DefaultThresholds(), 0)
	assert.Equal(t, DecisionConsentRequired, r.Decision)
	assert.Equal(t, ConsentPerQuery, r.ConsentType)
	assert.Equal(t, 3, r.NextTier)
}

func TestValidate_EscalatesPastTier2WhenBothConsentsGiven(t *testing.T) {
	snap := Snapshot{Items: []string{"a"}}
	r := Validate("product", 2, snap, ConsentState{AccountToggleOn: true, PerQueryConfirmed: true}, DefaultThresholds(), 0)
	assert.Equal(t, DecisionEscalate, r.Decision)
	assert.Equal(t, 3, r.NextTier)
}

func TestValidate_ExhaustedPastTier4(t *testing.T) {
	snap := Snapshot{Items: []string{"a"}}
	r := Validate("product", 4, snap, ConsentState{AccountToggleOn: true, PerQueryConfirmed: true}, DefaultThresholds(), 0)
	assert.Equal(t, DecisionExhausted, r.Decision)
}

func TestValidate_PriceCheckSufficientAtOneItem(t *testing.T) {
	snap := Snapshot{Items: []string{"a"}}
	r := Validate("price_check", 1, snap, ConsentState{}, DefaultThresholds(), 0)
	assert.Equal(t, DecisionSufficient, r.Decision)
}

func TestValidate_ReviewDeepDiveNeedsSnippetsAndSources(t *testing.T) {
	th := DefaultThresholds()
	insufficient := Snapshot{Snippets: []string{"s1", "s2", "s3", "s4", "s5"}, SourcesUsed: []string{"only_one"}}
	r := Validate("review_deep_dive", 2, insufficient, ConsentState{}, th, 0)
	assert.NotEqual(t, DecisionSufficient, r.Decision, "only one source, needs 2")

	sufficient := Snapshot{Snippets: []string{"s1", "s2", "s3", "s4", "s5"}, SourcesUsed: []string{"bing_search", "reddit_api"}}
	r = Validate("review_deep_dive", 2, sufficient, ConsentState{}, th, 0)
	assert.Equal(t, DecisionSufficient, r.Decision)
}

func TestValidate_ComparisonCoversRequestedNamesViaFuzzyMatch(t *testing.T) {
	snap := Snapshot{
		Items:                  []string{"Sony WH-1000XM5", "Bose QuietComfort Ultra"},
		RequestedProductNames:  []string{"sony wh-1000xm5", "bose quietcomfort"},
	}
	r := Validate("comparison", 1, snap, ConsentState{}, DefaultThresholds(), 0)
	assert.Equal(t, DecisionSufficient, r.Decision)
}

func TestValidate_ComparisonMissingOneRequestedNameEscalates(t *testing.T) {
	snap := Snapshot{
		Items:                 []string{"Sony WH-1000XM5"},
		RequestedProductNames: []string{"sony wh-1000xm5", "bose quietcomfort"},
	}
	r := Validate("comparison", 1, snap, ConsentState{}, DefaultThresholds(), 0)
	assert.Equal(t, DecisionEscalate, r.Decision)
}

func TestValidate_ComparisonWithNoRequestedNamesDefaultsToTwoItems(t *testing.T) {
	one := Snapshot{Items: []string{"a"}}
	r := Validate("comparison", 1, one, ConsentState{}, DefaultThresholds(), 0)
	assert.NotEqual(t, DecisionSufficient, r.Decision)

	two := Snapshot{Items: []string{"a", "b"}}
	r = Validate("comparison", 1, two, ConsentState{}, DefaultThresholds(), 0)
	assert.Equal(t, DecisionSufficient, r.Decision)
}

func TestValidate_TravelNeedsItemsAndSnippets(t *testing.T) {
	snap := Snapshot{Items: []string{"flight1"}, Snippets: []string{"s1", "s2", "s3"}}
	r := Validate("travel", 1, snap, ConsentState{}, DefaultThresholds(), 0)
	assert.Equal(t, DecisionSufficient, r.Decision)
}

func TestJaccard_RejectsDissimilarTokenSets(t *testing.T) {
	assert.False(t, anyFuzzyMatch("iphone 15 pro", []string{"samsung galaxy s24"}))
}
