// Package highlight marks query terms in text that may already carry ANSI
// styling.
package highlight

import (
	"regexp"
	"sort"
	"strings"
)

var ansiCSI = regexp.MustCompile(`\x1b\[[0-?]*[ -/]*[@-~]`)

type Result struct {
	Text      string
	Count     int
	LineIndex []int
}

// Matcher finds any of a set of terms, case-insensitively. Longer terms win
// when two start at the same position.
type Matcher struct {
	re *regexp.Regexp
}

// NewMatcher returns nil when terms holds nothing to match.
func NewMatcher(terms []string) *Matcher {
	uniq := make([]string, 0, len(terms))
	seen := make(map[string]bool, len(terms))
	for _, t := range terms {
		t = strings.ToLower(strings.TrimSpace(t))
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		uniq = append(uniq, regexp.QuoteMeta(t))
	}
	if len(uniq) == 0 {
		return nil
	}
	sort.SliceStable(uniq, func(i, j int) bool { return len(uniq[i]) > len(uniq[j]) })
	return &Matcher{re: regexp.MustCompile(`(?i)` + strings.Join(uniq, "|"))}
}

func ApplyANSI(input string, terms []string, wrap func(string) string) Result {
	m := NewMatcher(terms)
	if m == nil {
		return Result{Text: input}
	}
	return m.ApplyANSI(input, wrap)
}

func (m *Matcher) ApplyANSI(input string, wrap func(string) string) Result {
	if wrap == nil {
		wrap = func(s string) string { return s }
	}

	lines := strings.SplitAfter(input, "\n")

	var out strings.Builder
	lineMatches := make([]int, 0, 64)
	total := 0

	for lineNo, line := range lines {
		hasNewline := strings.HasSuffix(line, "\n")
		core := strings.TrimSuffix(line, "\n")

		rendered, count := m.applyToANSIText(core, wrap)
		out.WriteString(rendered)
		if hasNewline {
			out.WriteByte('\n')
		}
		if count > 0 {
			lineMatches = append(lineMatches, lineNo)
			total += count
		}
	}

	return Result{
		Text:      out.String(),
		Count:     total,
		LineIndex: lineMatches,
	}
}

func (m *Matcher) applyToANSIText(s string, wrap func(string) string) (string, int) {
	indices := ansiCSI.FindAllStringIndex(s, -1)
	if len(indices) == 0 {
		return m.applyToPlain(s, wrap)
	}

	var out strings.Builder
	total := 0
	pos := 0
	for _, idx := range indices {
		if idx[0] > pos {
			plain, count := m.applyToPlain(s[pos:idx[0]], wrap)
			out.WriteString(plain)
			total += count
		}
		out.WriteString(s[idx[0]:idx[1]])
		pos = idx[1]
	}
	if pos < len(s) {
		plain, count := m.applyToPlain(s[pos:], wrap)
		out.WriteString(plain)
		total += count
	}
	return out.String(), total
}

func (m *Matcher) applyToPlain(s string, wrap func(string) string) (string, int) {
	if s == "" {
		return s, 0
	}
	matches := m.re.FindAllStringIndex(s, -1)
	if len(matches) == 0 {
		return s, 0
	}

	var out strings.Builder
	start := 0
	for _, idx := range matches {
		out.WriteString(s[start:idx[0]])
		out.WriteString(wrap(s[idx[0]:idx[1]]))
		start = idx[1]
	}
	out.WriteString(s[start:])
	return out.String(), len(matches)
}
