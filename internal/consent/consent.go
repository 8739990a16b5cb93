// Package consent implements the Consent Gate and Halt/Resume protocol
// (C7): matching confirmation replies against a fixed vocabulary, and
// persisting/resuming paused orchestration runs keyed by session.
package consent

import (
	"strings"
	"time"
)

// confirmationVocabulary is spec.md §4.7's fixed set of phrases that
// count as an affirmative per-query confirmation. Order doesn't matter;
// matching is "trimmed, lowercased input starts with one of these".
var confirmationVocabulary = []string{
	"yes", "ok", "okay", "sure", "proceed", "continue", "go ahead", "search deeper",
}

// IsConfirmation reports whether input counts as a per-query consent
// confirmation: an explicit actionConsentConfirm flag, or the trimmed,
// lowercased message starting with a word in confirmationVocabulary.
// Matching is prefix-at-start-after-trim, so "say yes to this" does NOT
// match — the vocabulary word must open the message, not appear inside
// it.
func IsConfirmation(message string, actionConsentConfirm bool) bool {
	if actionConsentConfirm {
		return true
	}
	trimmed := strings.ToLower(strings.TrimSpace(message))
	if trimmed == "" {
		return false
	}
	for _, word := range confirmationVocabulary {
		if trimmed == word || strings.HasPrefix(trimmed, word+" ") || strings.HasPrefix(trimmed, word+",") {
			return true
		}
	}
	return false
}

// HaltRecord is the durable, cross-request state persisted while an
// orchestration run waits on consent, per spec.md §3.
type HaltRecord struct {
	SessionID           string
	Intent              string
	Query               string
	AccumulatedItems    []string
	AccumulatedSnippets []string
	SourcesUsedSoFar    []string
	TierReached         int
	PendingConsentType  string
	CreatedAt           time.Time
}

// MinHaltTTL is spec.md §4.7's floor on how long a halt record must
// survive: "TTL ≥ 10 minutes (consent windows)".
const MinHaltTTL = 10 * time.Minute
