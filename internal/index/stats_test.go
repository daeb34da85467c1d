package index

import (
	"context"
	"testing"
	"time"

	"agent-resume/internal/session"
)

func TestStatsAggregates(t *testing.T) {
	s := newTestStore(t)
	monday9 := time.Date(2025, 3, 3, 9, 15, 0, 0, time.Local)
	monday10 := time.Date(2025, 3, 3, 10, 0, 0, 0, time.Local)
	friday9 := time.Date(2025, 3, 7, 9, 45, 0, 0, time.Local)

	mk := func(src session.Source, id, dir string, ts time.Time, turns int) session.Session {
		return session.Session{ID: id, Source: src, Title: id, Directory: dir, Timestamp: ts, TurnCount: turns}
	}
	mustApply(t, s, Batch{Source: session.Claude, Upserts: []session.Session{
		mk(session.Claude, "a", "/repo/api", monday9, 3),
		mk(session.Claude, "b", "/repo/api", friday9, 2),
	}})
	mustApply(t, s, Batch{Source: session.Codex, Upserts: []session.Session{
		mk(session.Codex, "c", "/repo/web", monday10, 5),
	}})

	st, err := s.Stats(context.Background(), 1)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if st.Total != 3 || st.TotalTurns != 10 {
		t.Fatalf("total=%d turns=%d", st.Total, st.TotalTurns)
	}
	if len(st.BySource) != 2 || st.BySource[0].Source != session.Claude || st.BySource[0].Count != 2 {
		t.Fatalf("by source=%+v", st.BySource)
	}
	if st.ByWeekday[time.Monday] != 2 || st.ByWeekday[time.Friday] != 1 {
		t.Fatalf("by weekday=%v", st.ByWeekday)
	}
	if st.ByHour[9] != 2 || st.ByHour[10] != 1 {
		t.Fatalf("by hour=%v", st.ByHour)
	}
	if len(st.TopDirectories) != 1 || st.TopDirectories[0].Directory != "/repo/api" || st.TopDirectories[0].Count != 2 {
		t.Fatalf("top dirs=%+v", st.TopDirectories)
	}
	if !st.Oldest.Equal(monday9) || !st.Newest.Equal(friday9) {
		t.Fatalf("oldest=%v newest=%v", st.Oldest, st.Newest)
	}
	if st.IndexBytes <= 0 {
		t.Fatalf("index bytes=%d", st.IndexBytes)
	}
}

func TestStatsEmptyIndex(t *testing.T) {
	s := newTestStore(t)
	st, err := s.Stats(context.Background(), 0)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if st.Total != 0 || len(st.BySource) != 0 || len(st.TopDirectories) != 0 {
		t.Fatalf("unexpected stats: %+v", st)
	}
}
