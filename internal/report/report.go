// Package report renders search results and statistics for the terminal.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"agent-resume/internal/index"
	"agent-resume/internal/session"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/charmbracelet/x/ansi"
	"gopkg.in/yaml.v3"
)

type Format string

const (
	FormatTable Format = "table"
	FormatJSON  Format = "json"
	FormatYAML  Format = "yaml"
)

func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case "", FormatTable:
		return FormatTable, nil
	case FormatJSON, FormatYAML:
		return f, nil
	default:
		return "", fmt.Errorf("unknown format %q (want table, json or yaml)", s)
	}
}

var sourceColors = map[session.Source]lipgloss.Color{
	session.Claude:   "#E87B35",
	session.Codex:    "#00A67E",
	session.Copilot:  "#9CA3AF",
	session.Crush:    "#6B51FF",
	session.OpenCode: "#CFCECD",
	session.Vibe:     "#FF6B35",
}

// SourceColor is the badge color of a tool.
func SourceColor(src session.Source) lipgloss.Color {
	if c, ok := sourceColors[src]; ok {
		return c
	}
	return "#888888"
}

func Badge(src session.Source) string {
	return lipgloss.NewStyle().Foreground(SourceColor(src)).Bold(true).Render(string(src))
}

// Entry is the machine-readable form of one result.
type Entry struct {
	Source    session.Source `json:"source" yaml:"source"`
	ID        string         `json:"id" yaml:"id"`
	Title     string         `json:"title" yaml:"title"`
	Directory string         `json:"directory" yaml:"directory"`
	Timestamp time.Time      `json:"timestamp" yaml:"timestamp"`
	Turns     int            `json:"turns" yaml:"turns"`
	Preview   string         `json:"preview,omitempty" yaml:"preview,omitempty"`
	Score     float64        `json:"score,omitempty" yaml:"score,omitempty"`
	Resume    string         `json:"resume" yaml:"resume"`
}

// Entries pairs hits with their resume command line.
func Entries(hits []index.Hit, resume func(session.Session) string) []Entry {
	out := make([]Entry, 0, len(hits))
	for _, h := range hits {
		e := Entry{
			Source:    h.Source,
			ID:        h.ID,
			Title:     h.Title,
			Directory: h.Directory,
			Timestamp: h.Timestamp,
			Turns:     h.TurnCount,
			Preview:   h.Preview,
			Score:     h.Score,
		}
		if resume != nil {
			e.Resume = resume(h.Session)
		}
		out = append(out, e)
	}
	return out
}

// WriteJSON encodes v as indented JSON.
func WriteJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encode json: %w", err)
	}
	return nil
}

func WriteYAML(w io.Writer, v any) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encode yaml: %w", err)
	}
	return enc.Close()
}

type TableOptions struct {
	// Width bounds the table; zero leaves it unbounded.
	Width int
	Now   time.Time
}

const (
	maxTitleCell = 60
	maxDirCell   = 40
)

func Table(entries []Entry, opts TableOptions) string {
	if opts.Now.IsZero() {
		opts.Now = time.Now()
	}
	header := lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cell := lipgloss.NewStyle().Padding(0, 1)

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(lipgloss.Color("240"))).
		Headers("AGENT", "TITLE", "DIRECTORY", "TURNS", "UPDATED").
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return header
			}
			return cell
		})
	if opts.Width > 0 {
		t = t.Width(opts.Width)
	}
	for _, e := range entries {
		t.Row(
			Badge(e.Source),
			ansi.Truncate(e.Title, maxTitleCell, "…"),
			truncateLeft(e.Directory, maxDirCell),
			fmt.Sprintf("%d", e.Turns),
			Age(opts.Now, e.Timestamp),
		)
	}
	return t.String()
}

// truncateLeft keeps the end of s, which is the informative part of a path.
func truncateLeft(s string, width int) string {
	if ansi.StringWidth(s) <= width {
		return s
	}
	r := []rune(s)
	keep := min(max(width-1, 0), len(r))
	return "…" + string(r[len(r)-keep:])
}

// Age formats the distance between now and t the way a session list reads.
func Age(now, t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	d := now.Sub(t)
	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		return fmt.Sprintf("%dm ago", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(d.Hours()))
	case d < 30*24*time.Hour:
		return fmt.Sprintf("%dd ago", int(d.Hours()/24))
	default:
		return t.Local().Format("2006-01-02")
	}
}
