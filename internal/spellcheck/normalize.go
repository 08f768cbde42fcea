// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package spellcheck

import (
	"regexp"
	"strings"
)

var (
	// Greedy on purpose: "{a} and {b}" loses " and " as well. Template
	// tokens are removed as one run per line.
	templateRe = regexp.MustCompile(`\{.+\}`)
	nonProseRe = regexp.MustCompile(`[^a-zA-Z ]`)
)

// ignoreMatcher compiles the ignore list into a single case-insensitive
// alternation. It returns nil when there is nothing to ignore.
func ignoreMatcher(words []string) *regexp.Regexp {
	var alts []string
	for _, w := range words {
		if w == "" {
			continue
		}
		alts = append(alts, regexp.QuoteMeta(w))
	}
	if len(alts) == 0 {
		return nil
	}
	return regexp.MustCompile(`(?i)(?:` + strings.Join(alts, "|") + `)`)
}

// Normalize strips what the service should not see: ignored words, template
// tokens like {KeyWord:Default}, and anything that is not an ASCII letter or
// a space.
func (c *Client) Normalize(text string) string {
	return normalize(text, c.ignore)
}

func normalize(text string, ignore *regexp.Regexp) string {
	if ignore != nil {
		text = ignore.ReplaceAllString(text, "")
	}
	text = templateRe.ReplaceAllString(text, "")
	text = nonProseRe.ReplaceAllString(text, "")
	return strings.TrimSpace(text)
}
