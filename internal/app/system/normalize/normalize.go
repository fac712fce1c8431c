// Package normalize trims and canonicalizes user-supplied form values before
// they reach the stores.
package normalize

import (
	"strings"

	"github.com/dalemusser/jobhub/internal/domain/models"
)

// Email lowercases and trims an email address.
func Email(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// Name trims surrounding whitespace and collapses inner runs of whitespace.
// Case is preserved.
func Name(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// RequestKind parses a kind query parameter. Unknown values yield "".
func RequestKind(s string) models.RequestKind {
	k := models.RequestKind(strings.ToLower(strings.TrimSpace(s)))
	if k.Valid() {
		return k
	}
	return ""
}
