package index

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

type Field int

const (
	FieldTitle Field = iota
	FieldContent
)

func (f Field) String() string {
	if f == FieldTitle {
		return "title"
	}
	return "content"
}

// Tokens longer than this are dropped; they are hashes and base64 blobs.
const maxTokenLength = 40

// Terms splits text into its distinct lowercase alphanumeric tokens.
func Terms(text string) []string {
	seen := make(map[string]struct{})
	out := make([]string, 0, 64)
	for _, tok := range splitTokens(text) {
		if _, ok := seen[tok]; ok {
			continue
		}
		seen[tok] = struct{}{}
		out = append(out, tok)
	}
	return out
}

func splitWords(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

// splitTokens is splitWords minus the words too long to index.
func splitTokens(text string) []string {
	fields := splitWords(text)
	out := fields[:0]
	for _, f := range fields {
		if utf8.RuneCountInString(f) > maxTokenLength {
			continue
		}
		out = append(out, f)
	}
	return out
}

// ParseQuery turns raw user input into required terms. Whitespace separates
// terms; punctuation inside a term splits it further, every piece required.
// Terms are not length-capped: one longer than any indexed token still
// constrains the result, usually to nothing.
func ParseQuery(raw string) []string {
	parts := strings.Fields(strings.ToLower(strings.TrimSpace(raw)))
	out := make([]string, 0, len(parts))
	seen := make(map[string]struct{}, len(parts))
	for _, p := range parts {
		p = strings.Trim(p, "`\"'.,:;!?()[]{}<>|")
		for _, tok := range splitWords(p) {
			if _, ok := seen[tok]; ok {
				continue
			}
			seen[tok] = struct{}{}
			out = append(out, tok)
		}
	}
	return out
}
