package report

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"agent-resume/internal/index"
	"agent-resume/internal/session"

	"gopkg.in/yaml.v3"
)

func sampleHits() []index.Hit {
	ts := time.Date(2025, 1, 2, 15, 4, 5, 0, time.UTC)
	return []index.Hit{
		{Session: session.Session{ID: "a1", Source: session.Claude, Title: "Fix auth middleware", Directory: "/src/api", Timestamp: ts, TurnCount: 3}, Score: 6},
		{Session: session.Session{ID: "b2", Source: session.Vibe, Title: "Plot loss curves", Directory: "/src/ml", Timestamp: ts.Add(-time.Hour), TurnCount: 1}, Score: 2},
	}
}

func resumeLine(s session.Session) string { return string(s.Source) + " --resume " + s.ID }

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    Format
		wantErr bool
	}{
		{in: "", want: FormatTable},
		{in: "JSON", want: FormatJSON},
		{in: " yaml ", want: FormatYAML},
		{in: "csv", wantErr: true},
	}
	for _, tc := range tests {
		got, err := ParseFormat(tc.in)
		if (err != nil) != tc.wantErr || got != tc.want {
			t.Errorf("ParseFormat(%q)=%q,%v", tc.in, got, err)
		}
	}
}

func TestWriteJSON(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteJSON(&buf, Entries(sampleHits(), resumeLine)); err != nil {
		t.Fatal(err)
	}
	var got []map[string]any
	if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v\n%s", err, buf.String())
	}
	if len(got) != 2 || got[0]["id"] != "a1" || got[0]["resume"] != "claude --resume a1" || got[0]["source"] != "claude" {
		t.Fatalf("got %v", got)
	}
	if _, ok := got[0]["content"]; ok {
		t.Fatal("content must not be exported")
	}
}

func TestWriteYAML(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteYAML(&buf, Entries(sampleHits(), nil)); err != nil {
		t.Fatal(err)
	}
	var got []Entry
	if err := yaml.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v\n%s", err, buf.String())
	}
	if len(got) != 2 || got[1].Title != "Plot loss curves" || got[1].Turns != 1 {
		t.Fatalf("got %+v", got)
	}
}

func TestTableListsEveryEntry(t *testing.T) {
	now := time.Date(2025, 1, 2, 17, 4, 5, 0, time.UTC)
	out := Table(Entries(sampleHits(), nil), TableOptions{Now: now})
	for _, want := range []string{"AGENT", "Fix auth middleware", "/src/ml", "2h ago", "3h ago", "vibe"} {
		if !strings.Contains(out, want) {
			t.Errorf("table missing %q:\n%s", want, out)
		}
	}
}

func TestTruncateLeft(t *testing.T) {
	if got := truncateLeft("/a/very/long/path/to/project", 10); got != "…o/project" {
		t.Fatalf("got %q", got)
	}
	if got := truncateLeft("/short", 10); got != "/short" {
		t.Fatalf("got %q", got)
	}
}

func TestAge(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	tests := []struct {
		at   time.Time
		want string
	}{
		{at: now.Add(-10 * time.Second), want: "just now"},
		{at: now.Add(-5 * time.Minute), want: "5m ago"},
		{at: now.Add(-3 * time.Hour), want: "3h ago"},
		{at: now.Add(-72 * time.Hour), want: "3d ago"},
		{at: time.Time{}, want: "-"},
	}
	for _, tc := range tests {
		if got := Age(now, tc.at); got != tc.want {
			t.Errorf("Age(%v)=%q, want %q", tc.at, got, tc.want)
		}
	}
}

func TestStatsMarkdown(t *testing.T) {
	st := index.Stats{
		Total:      4,
		TotalTurns: 9,
		BySource: []index.SourceCount{
			{Source: session.Claude, Count: 3, Turns: 7},
			{Source: session.Codex, Count: 1, Turns: 2},
		},
		TopDirectories: []index.DirectoryCount{{Directory: "/src/api", Count: 3}},
		Oldest:         time.Date(2025, 1, 1, 0, 0, 0, 0, time.Local),
		Newest:         time.Date(2025, 2, 1, 0, 0, 0, 0, time.Local),
		IndexBytes:     2048,
	}
	st.ByWeekday[time.Monday] = 4
	st.ByHour[9] = 4
	md := StatsMarkdown(st)
	for _, want := range []string{"**4** sessions", "2.0 KiB", "| claude | 3 | 7 | 75% |", "`/src/api`", "Mon " + strings.Repeat("█", barWidth) + " 4", "2025-01-01"} {
		if !strings.Contains(md, want) {
			t.Errorf("markdown missing %q:\n%s", want, md)
		}
	}
	if !strings.Contains(StatsMarkdown(index.Stats{}), "No sessions") {
		t.Error("empty stats")
	}
}

func TestTranscriptMarkdown(t *testing.T) {
	content := "» fix the build\nit fails on CI\n\n  Updated the workflow.\n\n» thanks"
	want := "> fix the build\n> it fails on CI\n\nUpdated the workflow.\n\n> thanks\n"
	if got := TranscriptMarkdown(content); got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestSessionMarkdown(t *testing.T) {
	s := sampleHits()[0].Session
	s.Content = "» hello"
	md := SessionMarkdown(s, "claude --resume a1")
	for _, want := range []string{"# Fix auth middleware", "agent: claude", "resume: claude --resume a1", "> hello"} {
		if !strings.Contains(md, want) {
			t.Errorf("missing %q:\n%s", want, md)
		}
	}
}
