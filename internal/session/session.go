package session

import (
	"math"
	"strings"
	"time"
	"unicode/utf8"
)

const (
	MaxTitleLength   = 100
	MaxPreviewLength = 500
	MaxContentLength = 200_000

	// DefaultTokenEpsilon absorbs float noise in stored modification times.
	DefaultTokenEpsilon = 0.001
)

type Source string

const (
	Claude   Source = "claude"
	Codex    Source = "codex"
	Copilot  Source = "copilot"
	Crush    Source = "crush"
	OpenCode Source = "opencode"
	Vibe     Source = "vibe"
)

// Sources lists every supported tool in display order.
var Sources = []Source{Claude, Codex, Copilot, Crush, OpenCode, Vibe}

func ParseSource(s string) (Source, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	for _, src := range Sources {
		if string(src) == s {
			return src, true
		}
	}
	return "", false
}

type Session struct {
	ID          string    `json:"id" yaml:"id"`
	Source      Source    `json:"source" yaml:"source"`
	Title       string    `json:"title" yaml:"title"`
	Directory   string    `json:"directory" yaml:"directory"`
	Timestamp   time.Time `json:"timestamp" yaml:"timestamp"`
	Preview     string    `json:"preview" yaml:"preview"`
	Content     string    `json:"-" yaml:"-"`
	TurnCount   int       `json:"turns" yaml:"turns"`
	ChangeToken float64   `json:"-" yaml:"-"`
}

type Key struct {
	Source Source
	ID     string
}

func (s Session) Key() Key {
	return Key{Source: s.Source, ID: s.ID}
}

func (k Key) String() string {
	return string(k.Source) + ":" + k.ID
}

// Known maps session IDs of one source to the change token stored for them.
type Known map[string]float64

// TokenChanged reports whether an artifact must be re-derived. Moving
// backwards counts as a change so restored or clock-skewed files are picked up.
func TokenChanged(known, current, epsilon float64) bool {
	return math.Abs(current-known) > epsilon
}

// TokenFromTime converts a modification time to a change token.
func TokenFromTime(t time.Time) float64 {
	return float64(t.UnixNano()) / 1e9
}

// Normalize enforces the length bounds on title, preview and content.
func (s Session) Normalize() Session {
	s.Title = strings.TrimSpace(s.Title)
	if utf8.RuneCountInString(s.Title) > MaxTitleLength {
		s.Title = TruncateTitle(s.Title)
	}
	s.Content = TruncateBytes(s.Content, MaxContentLength)
	if s.Preview == "" {
		s.Preview = s.Content
	}
	s.Preview = TruncateRunes(s.Preview, MaxPreviewLength)
	if s.TurnCount < 0 {
		s.TurnCount = 0
	}
	return s
}

// TruncateTitle cuts at the last word boundary that fits and appends "...".
func TruncateTitle(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	if utf8.RuneCountInString(s) <= MaxTitleLength {
		return s
	}
	cut := TruncateRunes(s, MaxTitleLength-3)
	if idx := strings.LastIndex(cut, " "); idx > 0 {
		cut = cut[:idx]
	}
	return cut + "..."
}

func TruncateRunes(s string, n int) string {
	if n <= 0 {
		return ""
	}
	count := 0
	for i := range s {
		if count == n {
			return s[:i]
		}
		count++
	}
	return s
}

// TruncateBytes cuts s to at most n bytes without splitting a rune.
func TruncateBytes(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
