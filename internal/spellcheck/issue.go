// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package spellcheck

// TypeCacheHit marks an Issue synthesized from the persistent cache rather
// than returned by the service.
const TypeCacheHit = "cacheHit"

// Issue is a flagged token as reported by the service.
type Issue struct {
	Offset      int          `json:"offset" yaml:"offset"`
	Token       string       `json:"token" yaml:"token"`
	Type        string       `json:"type" yaml:"type"`
	Suggestions []Suggestion `json:"suggestions" yaml:"suggestions"`
}

// Suggestion is a candidate correction with the service's confidence score.
type Suggestion struct {
	Suggestion string  `json:"suggestion" yaml:"suggestion"`
	Score      float64 `json:"score" yaml:"score"`
}

// FirstSuggestion returns the highest ranked suggestion, if any.
func (i Issue) FirstSuggestion() (string, bool) {
	if len(i.Suggestions) == 0 {
		return "", false
	}
	return i.Suggestions[0].Suggestion, true
}

type response struct {
	FlaggedTokens []Issue `json:"flaggedTokens"`
}
