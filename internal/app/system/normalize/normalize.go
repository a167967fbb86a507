// Package normalize canonicalizes user-supplied strings (share recipients,
// folder names, roles, query parameters) before they are stored or compared.
package normalize

import (
	"strings"

	"github.com/dalemusser/stratafiles/internal/domain/models"
)

// Email trims and lowercases an address. Share allow-lists and resolve
// requests both pass through it so comparisons match.
func Email(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// Emails normalizes a list of addresses, dropping empties and duplicates
// while keeping first-seen order. The result is never nil.
func Emails(in []string) []string {
	out := make([]string, 0, len(in))
	seen := make(map[string]bool, len(in))
	for _, e := range in {
		e = Email(e)
		if e == "" || seen[e] {
			continue
		}
		seen[e] = true
		out = append(out, e)
	}
	return out
}

// Name trims a display name. Case is kept; stores derive their
// case-insensitive keys with text.Fold.
func Name(s string) string {
	return strings.TrimSpace(s)
}

// Role normalizes a permission role by trimming whitespace and converting to lowercase.
func Role(s string) models.Role {
	return models.Role(strings.ToLower(strings.TrimSpace(s)))
}

// QueryParam normalizes a query parameter by trimming whitespace.
func QueryParam(s string) string {
	return strings.TrimSpace(s)
}
