// Package htmlsanitize cleans operator- and requester-supplied free text
// (decline reasons, info questions, replies) before it is stored on a request
// or placed into a notification.
package htmlsanitize

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// MaxNoteLength bounds a stored note, in runes.
const MaxNoteLength = 2000

var strict = bluemonday.StrictPolicy()

// PlainText strips all markup, unescapes entities bluemonday introduced,
// collapses surrounding whitespace and truncates to MaxNoteLength runes.
func PlainText(s string) string {
	if s == "" {
		return ""
	}
	out := html.UnescapeString(strict.Sanitize(s))
	out = strings.TrimSpace(out)
	if r := []rune(out); len(r) > MaxNoteLength {
		out = string(r[:MaxNoteLength])
	}
	return out
}

// IsPlainText reports whether s contains no markup at all.
func IsPlainText(s string) bool {
	return !strings.ContainsAny(s, "<>")
}
