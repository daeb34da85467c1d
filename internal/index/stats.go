package index

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"agent-resume/internal/session"
)

const DefaultTopDirectories = 10

type SourceCount struct {
	Source session.Source `json:"source" yaml:"source"`
	Count  int            `json:"count" yaml:"count"`
	Turns  int            `json:"turns" yaml:"turns"`
}

type DirectoryCount struct {
	Directory string `json:"directory" yaml:"directory"`
	Count     int    `json:"count" yaml:"count"`
}

type Stats struct {
	Total          int              `json:"total" yaml:"total"`
	TotalTurns     int              `json:"total_turns" yaml:"total_turns"`
	BySource       []SourceCount    `json:"by_source" yaml:"by_source"`
	ByWeekday      [7]int           `json:"by_weekday" yaml:"by_weekday"`
	ByHour         [24]int          `json:"by_hour" yaml:"by_hour"`
	TopDirectories []DirectoryCount `json:"top_directories" yaml:"top_directories"`
	Oldest         time.Time        `json:"oldest" yaml:"oldest"`
	Newest         time.Time        `json:"newest" yaml:"newest"`
	IndexBytes     int64            `json:"index_bytes" yaml:"index_bytes"`
}

// Stats aggregates the committed records. Weekday and hour buckets use the
// local time zone; ByWeekday is indexed by time.Weekday.
func (s *Store) Stats(ctx context.Context, topDirs int) (Stats, error) {
	if s.closed.Load() {
		return Stats{}, ErrClosed
	}
	if topDirs <= 0 {
		topDirs = DefaultTopDirectories
	}

	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{ReadOnly: true})
	if err != nil {
		return Stats{}, fmt.Errorf("begin stats tx: %w", err)
	}
	defer tx.Rollback()

	rows, err := tx.QueryContext(ctx, `SELECT source, directory, timestamp, turn_count FROM sessions`)
	if err != nil {
		return Stats{}, fmt.Errorf("query stats: %w", err)
	}
	defer rows.Close()

	var st Stats
	bySource := map[session.Source]*SourceCount{}
	byDir := map[string]int{}
	for rows.Next() {
		var (
			src, dir string
			tsNano   int64
			turns    int
		)
		if err := rows.Scan(&src, &dir, &tsNano, &turns); err != nil {
			return Stats{}, fmt.Errorf("scan stats row: %w", err)
		}
		st.Total++
		st.TotalTurns += turns

		sc := bySource[session.Source(src)]
		if sc == nil {
			sc = &SourceCount{Source: session.Source(src)}
			bySource[session.Source(src)] = sc
		}
		sc.Count++
		sc.Turns += turns

		ts := time.Unix(0, tsNano).Local()
		st.ByWeekday[ts.Weekday()]++
		st.ByHour[ts.Hour()]++
		if st.Oldest.IsZero() || ts.Before(st.Oldest) {
			st.Oldest = ts
		}
		if ts.After(st.Newest) {
			st.Newest = ts
		}
		if dir != "" {
			byDir[dir]++
		}
	}
	if err := rows.Err(); err != nil {
		return Stats{}, fmt.Errorf("iterate stats rows: %w", err)
	}

	for _, sc := range bySource {
		st.BySource = append(st.BySource, *sc)
	}
	sort.Slice(st.BySource, func(i, j int) bool {
		if st.BySource[i].Count != st.BySource[j].Count {
			return st.BySource[i].Count > st.BySource[j].Count
		}
		return st.BySource[i].Source < st.BySource[j].Source
	})

	for dir, n := range byDir {
		st.TopDirectories = append(st.TopDirectories, DirectoryCount{Directory: dir, Count: n})
	}
	sort.Slice(st.TopDirectories, func(i, j int) bool {
		if st.TopDirectories[i].Count != st.TopDirectories[j].Count {
			return st.TopDirectories[i].Count > st.TopDirectories[j].Count
		}
		return st.TopDirectories[i].Directory < st.TopDirectories[j].Directory
	})
	if len(st.TopDirectories) > topDirs {
		st.TopDirectories = st.TopDirectories[:topDirs]
	}

	st.IndexBytes = dirSize(s.dir)
	return st, nil
}

func dirSize(dir string) int64 {
	var total int64
	_ = filepath.WalkDir(dir, func(_ string, d os.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return nil
		}
		if info, err := d.Info(); err == nil {
			total += info.Size()
		}
		return nil
	})
	return total
}
