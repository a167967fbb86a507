// Package htmlsanitize strips markup from user-supplied text fields
// (display names, descriptions, tags) before they are stored.
package htmlsanitize

import (
	"html"
	"strings"
	"sync"

	"github.com/microcosm-cc/bluemonday"
)

var (
	// policy strips every element and attribute.
	policy     *bluemonday.Policy
	policyOnce sync.Once
)

func getPolicy() *bluemonday.Policy {
	policyOnce.Do(func() {
		policy = bluemonday.StrictPolicy()
	})
	return policy
}

// maxPasses bounds the unescape/sanitize loop for nested entity encodings.
const maxPasses = 4

// plain sanitizes and unescapes s until the result no longer changes, so
// entity-encoded markup ("&lt;img&gt;") cannot come back to life after the
// policy has run. Angle brackets left after maxPasses are dropped.
func plain(s string) string {
	p := getPolicy()
	for i := 0; i < maxPasses; i++ {
		next := html.UnescapeString(p.Sanitize(s))
		if next == s {
			return s
		}
		s = next
	}
	return strings.NewReplacer("<", "", ">", "").Replace(s)
}

// StripText removes all markup from s, including markup hidden behind
// entities, and collapses runs of whitespace. Newlines are kept when
// multiline is true.
func StripText(s string, multiline bool) string {
	if s == "" {
		return ""
	}
	out := plain(s)
	if !multiline {
		return strings.Join(strings.Fields(out), " ")
	}

	lines := strings.Split(strings.ReplaceAll(out, "\r\n", "\n"), "\n")
	for i, l := range lines {
		lines[i] = strings.Join(strings.Fields(l), " ")
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}

// CleanTags strips markup from each tag, lowercases it, and drops empty and
// duplicate tags while preserving first-seen order.
func CleanTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	seen := make(map[string]bool, len(tags))
	for _, t := range tags {
		t = strings.ToLower(StripText(t, false))
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	return out
}
