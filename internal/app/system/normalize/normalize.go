// Package normalize canonicalizes identifiers and free text before they
// are stored or compared.
package normalize

import (
	"strings"
	"unicode"
)

// Enrollment canonicalizes a student enrollment number.
func Enrollment(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}

// Enrollments canonicalizes a list, dropping blanks. Order is preserved and
// duplicates are kept so callers can report them.
func Enrollments(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if n := Enrollment(s); n != "" {
			out = append(out, n)
		}
	}
	return out
}

// Email lowercases and trims an email address.
func Email(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// Name trims surrounding whitespace and collapses inner runs.
func Name(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// Class trims a class label, keeping its punctuation ("TY-CS-1").
func Class(s string) string {
	return strings.ToUpper(strings.Join(strings.Fields(s), " "))
}

// ClassPrefix derives the group-id prefix for a class label: hyphens and
// whitespace are removed and letters upper-cased. A trailing numeric
// division segment ("-1" in "TY-CS-1") is dropped so every division of a
// class shares one sequence.
func ClassPrefix(class string) string {
	segs := strings.FieldsFunc(class, func(r rune) bool {
		return r == '-' || unicode.IsSpace(r)
	})
	if len(segs) > 1 && isDigits(segs[len(segs)-1]) {
		segs = segs[:len(segs)-1]
	}
	return strings.ToUpper(strings.Join(segs, ""))
}

// Decision canonicalizes an invitation response ("Accepted" → "accepted").
func Decision(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
