package ui

import (
	"strconv"
	"strings"
	"unicode/utf8"

	"agent-resume/internal/report"
	"agent-resume/internal/session"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
)

const (
	maxLineChars    = 8000
	maxDisplayChars = 1_000_000
	// Glamour gets slow on very large documents; past this the markdown is
	// shown as is.
	maxGlamourChars = 500_000
)

func renderSessionCmd(s session.Session, commandLine string, k session.Key, cacheKey, style string, wrap, nonce int) tea.Cmd {
	return func() tea.Msg {
		md := sanitizeMarkdownForDisplay(report.SessionMarkdown(s, commandLine))
		if strings.TrimSpace(s.Content) == "" {
			md += "\n_No conversational content was recorded for this session._\n"
		}
		out := renderMsg{key: k, cacheKey: cacheKey, rendered: md, nonce: nonce}
		if len(md) > maxGlamourChars {
			return out
		}
		r, err := glamour.NewTermRenderer(
			glamour.WithStandardStyle(style),
			glamour.WithWordWrap(wrap),
		)
		if err != nil {
			return out
		}
		if rendered, err := r.Render(md); err == nil {
			out.rendered = rendered
		}
		return out
	}
}

func sanitizeMarkdownForDisplay(md string) string {
	md = clampLongLines(md, maxLineChars)
	if len(md) <= maxDisplayChars {
		return md
	}
	trimmed := strings.TrimRight(session.TruncateBytes(md, maxDisplayChars), "\n")
	return trimmed + "\n\n... [session truncated for display] ...\n"
}

func clampLongLines(s string, max int) string {
	if max <= 0 || len(s) == 0 {
		return s
	}
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		if len(line) <= max {
			continue
		}
		head := session.TruncateBytes(line, max/2)
		tail := line[len(line)-max/2:]
		for len(tail) > 0 && !utf8.RuneStart(tail[0]) {
			tail = tail[1:]
		}
		lines[i] = head + "... [line truncated " + strconv.Itoa(len(line)-max) + " chars] ..." + tail
	}
	return strings.Join(lines, "\n")
}

func shorten(s string, n int) string {
	s = strings.TrimSpace(s)
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	if n <= 3 {
		return string(r[:n])
	}
	return string(r[:n-3]) + "..."
}
