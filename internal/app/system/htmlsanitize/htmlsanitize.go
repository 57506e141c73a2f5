// Package htmlsanitize strips markup from user-supplied display text.
package htmlsanitize

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// strict removes every element. Script and style bodies are dropped along
// with their tags.
var strict = bluemonday.StrictPolicy()

// PlainText returns s with all markup removed, entities decoded and runs of
// whitespace collapsed to single spaces.
func PlainText(s string) string {
	if s == "" {
		return ""
	}
	out := html.UnescapeString(strict.Sanitize(s))
	return strings.Join(strings.Fields(out), " ")
}

// IsPlainText reports whether s contains no tag-like sequences.
func IsPlainText(s string) bool {
	return !strings.Contains(s, "<")
}
