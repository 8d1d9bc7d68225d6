// Package textnorm canonicalizes Vietnamese free text for lexical comparison.
package textnorm

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// đ/Đ carry a stroke, not a combining mark, so NFD leaves them intact.
var strokeReplacer = strings.NewReplacer("đ", "d", "Đ", "d")

// Normalize lowercases text, strips diacritics, drops everything that is not a
// letter, digit or space and collapses whitespace.
func Normalize(text string) string {
	if text == "" {
		return ""
	}

	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	stripped, _, err := transform.String(t, strokeReplacer.Replace(strings.ToLower(text)))
	if err != nil {
		stripped = strings.ToLower(text)
	}

	cleaned := strings.Map(func(r rune) rune {
		switch {
		case unicode.IsLetter(r), unicode.IsDigit(r):
			return r
		case unicode.IsSpace(r):
			return ' '
		default:
			return -1
		}
	}, stripped)

	return strings.Join(strings.Fields(cleaned), " ")
}

// NormalizeAll normalizes every element, preserving order.
func NormalizeAll(texts []string) []string {
	if texts == nil {
		return nil
	}
	out := make([]string, len(texts))
	for i, t := range texts {
		out[i] = Normalize(t)
	}
	return out
}

// Words returns the set of whitespace-separated tokens of the normalized text.
func Words(text string) map[string]struct{} {
	fields := strings.Fields(Normalize(text))
	set := make(map[string]struct{}, len(fields))
	for _, f := range fields {
		set[f] = struct{}{}
	}
	return set
}
