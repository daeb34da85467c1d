package report

import (
	"fmt"
	"strings"
	"time"

	"agent-resume/internal/index"
	"agent-resume/internal/session"
)

const barWidth = 30

// StatsMarkdown renders index statistics as markdown for glamour.
func StatsMarkdown(st index.Stats) string {
	var b strings.Builder
	b.WriteString("# Session index\n\n")
	if st.Total == 0 {
		b.WriteString("No sessions indexed yet.\n")
		return b.String()
	}

	fmt.Fprintf(&b, "**%d** sessions, **%d** user turns", st.Total, st.TotalTurns)
	if st.IndexBytes > 0 {
		fmt.Fprintf(&b, ", index size %s", humanBytes(st.IndexBytes))
	}
	b.WriteString("\n\n")
	if !st.Oldest.IsZero() {
		fmt.Fprintf(&b, "From %s to %s\n\n", st.Oldest.Local().Format(time.DateOnly), st.Newest.Local().Format(time.DateOnly))
	}

	b.WriteString("## By agent\n\n")
	b.WriteString("| Agent | Sessions | Turns | Share |\n|---|---:|---:|---:|\n")
	for _, sc := range st.BySource {
		fmt.Fprintf(&b, "| %s | %d | %d | %.0f%% |\n", sc.Source, sc.Count, sc.Turns, 100*float64(sc.Count)/float64(st.Total))
	}

	if len(st.TopDirectories) > 0 {
		b.WriteString("\n## Top directories\n\n")
		b.WriteString("| Directory | Sessions |\n|---|---:|\n")
		for _, dc := range st.TopDirectories {
			fmt.Fprintf(&b, "| `%s` | %d |\n", dc.Directory, dc.Count)
		}
	}

	b.WriteString("\n## Activity by weekday\n\n```text\n")
	weekday := make([]int, 0, 7)
	labels := make([]string, 0, 7)
	for d := time.Monday; ; d = (d + 1) % 7 {
		weekday = append(weekday, st.ByWeekday[d])
		labels = append(labels, d.String()[:3])
		if d == time.Sunday {
			break
		}
	}
	writeBars(&b, labels, weekday)
	b.WriteString("```\n\n## Activity by hour\n\n```text\n")
	hours := make([]string, 24)
	for h := range hours {
		hours[h] = fmt.Sprintf("%02d", h)
	}
	writeBars(&b, hours, st.ByHour[:])
	b.WriteString("```\n")
	return b.String()
}

func writeBars(b *strings.Builder, labels []string, counts []int) {
	peak := 0
	for _, c := range counts {
		peak = max(peak, c)
	}
	for i, c := range counts {
		n := 0
		if peak > 0 {
			n = c * barWidth / peak
		}
		if c > 0 && n == 0 {
			n = 1
		}
		fmt.Fprintf(b, "%s %s %d\n", labels[i], strings.Repeat("█", n), c)
	}
}

func humanBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for v := n / unit; v >= unit; v /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}

// SessionMarkdown renders a record for the preview pane. User turns become
// block quotes; assistant text is kept as is.
func SessionMarkdown(s session.Session, resume string) string {
	var b strings.Builder
	b.WriteString("# " + safeValue(s.Title) + "\n\n")
	b.WriteString("```text\n")
	b.WriteString("agent: " + string(s.Source) + "\n")
	b.WriteString("id: " + s.ID + "\n")
	b.WriteString("directory: " + safeValue(s.Directory) + "\n")
	fmt.Fprintf(&b, "turns: %d\n", s.TurnCount)
	if !s.Timestamp.IsZero() {
		b.WriteString("updated: " + s.Timestamp.Local().Format(time.DateTime) + "\n")
	}
	if resume != "" {
		b.WriteString("resume: " + resume + "\n")
	}
	b.WriteString("```\n\n")
	b.WriteString(TranscriptMarkdown(s.Content))
	return b.String()
}

func TranscriptMarkdown(content string) string {
	content = strings.TrimSpace(content)
	if content == "" {
		return ""
	}
	var b strings.Builder
	for _, para := range strings.Split(content, "\n\n") {
		if rest, ok := strings.CutPrefix(para, session.UserPrefix); ok {
			for _, line := range strings.Split(rest, "\n") {
				b.WriteString("> " + line + "\n")
			}
			b.WriteString("\n")
			continue
		}
		b.WriteString(strings.TrimPrefix(para, session.AssistantPrefix) + "\n\n")
	}
	return strings.TrimSpace(b.String()) + "\n"
}

func safeValue(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return "n/a"
	}
	return s
}
