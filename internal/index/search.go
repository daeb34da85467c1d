package index

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strings"

	"agent-resume/internal/session"
)

const DefaultLimit = 100

// postingsChunk bounds the number of bound parameters per IN clause.
const postingsChunk = 500

type Query struct {
	Text      string
	Source    session.Source
	Directory string
	Limit     int
}

// Hit is a ranked search result. Content is not loaded; use Store.Get.
type Hit struct {
	session.Session
	Score float64
}

// Search ranks records against q. Every term must match the title or the
// content of a record; an empty query lists records newest first.
func (s *Store) Search(ctx context.Context, q Query) ([]Hit, error) {
	if s.closed.Load() {
		return nil, ErrClosed
	}
	limit := q.Limit
	if limit <= 0 {
		limit = DefaultLimit
	}
	terms := ParseQuery(q.Text)

	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{ReadOnly: true})
	if err != nil {
		return nil, fmt.Errorf("begin search tx: %w", err)
	}
	defer tx.Rollback()

	if len(terms) == 0 {
		return s.recent(ctx, tx, q, limit)
	}

	gen, err := generationTx(ctx, tx)
	if err != nil {
		return nil, err
	}
	vocab, err := s.vocabularyTx(ctx, tx, gen)
	if err != nil {
		return nil, err
	}

	var (
		acc      map[session.Key]float64
		wildcard []termScores
	)
	for _, term := range terms {
		ts, err := s.scoreTerm(ctx, tx, vocab, term)
		if err != nil {
			return nil, err
		}
		if ts.everything {
			wildcard = append(wildcard, ts)
			continue
		}
		if acc == nil {
			acc = ts.scores
			continue
		}
		for key, score := range acc {
			add, ok := ts.scores[key]
			if !ok {
				delete(acc, key)
				continue
			}
			acc[key] = score + add
		}
		if len(acc) == 0 {
			return []Hit{}, nil
		}
	}

	hits, err := s.collect(ctx, tx, q, acc, wildcard)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(hits, func(i, j int) bool {
		return hitLess(hits[i], hits[j])
	})
	if len(hits) > limit {
		hits = hits[:limit]
	}
	return hits, nil
}

func hitLess(a, b Hit) bool {
	if a.Score != b.Score {
		return a.Score > b.Score
	}
	if !a.Timestamp.Equal(b.Timestamp) {
		return a.Timestamp.After(b.Timestamp)
	}
	if a.Source != b.Source {
		return a.Source < b.Source
	}
	return a.ID < b.ID
}

type termScores struct {
	scores map[session.Key]float64
	// everything marks a term short enough to match every record; scores
	// then only holds the records with a better-than-fuzzy match.
	everything bool
}

func (s *Store) scoreTerm(ctx context.Context, tx *sql.Tx, vocab *vocabulary, term string) (termScores, error) {
	out := termScores{scores: map[session.Key]float64{}, everything: matchesEverything(term)}

	expanded := vocab.expand(term)
	if out.everything {
		for tok, kind := range expanded {
			if kind < matchPrefix {
				delete(expanded, tok)
			}
		}
	}
	if len(expanded) == 0 {
		return out, nil
	}

	tokens := make([]string, 0, len(expanded))
	for tok := range expanded {
		tokens = append(tokens, tok)
	}

	// A term scores its single best posting across both fields.
	best := out.scores
	for start := 0; start < len(tokens); start += postingsChunk {
		end := start + postingsChunk
		if end > len(tokens) {
			end = len(tokens)
		}
		chunk := tokens[start:end]
		args := make([]any, len(chunk))
		for i, tok := range chunk {
			args[i] = tok
		}
		rows, err := tx.QueryContext(ctx,
			`SELECT term, field, source, id FROM postings WHERE term IN (`+placeholders(len(chunk))+`)`,
			args...)
		if err != nil {
			return out, fmt.Errorf("query postings: %w", err)
		}
		for rows.Next() {
			var (
				tok, src, id string
				field        int
			)
			if err := rows.Scan(&tok, &field, &src, &id); err != nil {
				rows.Close()
				return out, fmt.Errorf("scan posting: %w", err)
			}
			key := session.Key{Source: session.Source(src), ID: id}
			score := s.weights.kind(expanded[tok]) * s.weights.field(Field(field))
			best[key] = max(best[key], score)
		}
		if err := rows.Err(); err != nil {
			rows.Close()
			return out, fmt.Errorf("iterate postings: %w", err)
		}
		rows.Close()
	}

	return out, nil
}

// collect loads the metadata of the surviving candidates and applies the
// hard filters. A nil acc means no term constrained the candidate set.
func (s *Store) collect(ctx context.Context, tx *sql.Tx, q Query, acc map[session.Key]float64, wildcard []termScores) ([]Hit, error) {
	rows, err := s.queryList(ctx, tx, q.Source, "")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	base := s.weights.Fuzzy * s.weights.Content
	hits := make([]Hit, 0, 64)
	for rows.Next() {
		rec, err := scanSession(rows, false)
		if err != nil {
			return nil, fmt.Errorf("scan session row: %w", err)
		}
		key := rec.Key()
		score := 0.0
		if acc != nil {
			var ok bool
			score, ok = acc[key]
			if !ok {
				continue
			}
		}
		if !matchesDirectory(rec.Directory, q.Directory) {
			continue
		}
		for _, ts := range wildcard {
			if add, ok := ts.scores[key]; ok {
				score += add
			} else {
				score += base
			}
		}
		hits = append(hits, Hit{Session: rec, Score: score})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate session rows: %w", err)
	}
	return hits, nil
}

func (s *Store) recent(ctx context.Context, tx *sql.Tx, q Query, limit int) ([]Hit, error) {
	rows, err := s.queryList(ctx, tx, q.Source, "ORDER BY timestamp DESC, source, id")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	hits := make([]Hit, 0, min(limit, 256))
	for rows.Next() {
		rec, err := scanSession(rows, false)
		if err != nil {
			return nil, fmt.Errorf("scan session row: %w", err)
		}
		if !matchesDirectory(rec.Directory, q.Directory) {
			continue
		}
		hits = append(hits, Hit{Session: rec})
		if len(hits) == limit {
			break
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate session rows: %w", err)
	}
	return hits, nil
}

func (s *Store) queryList(ctx context.Context, tx *sql.Tx, src session.Source, order string) (*sql.Rows, error) {
	query := `SELECT ` + listColumns + ` FROM sessions`
	var args []any
	if src != "" {
		query += ` WHERE source = ?`
		args = append(args, string(src))
	}
	if order != "" {
		query += " " + order
	}
	rows, err := tx.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	return rows, nil
}

func matchesDirectory(dir, filter string) bool {
	filter = strings.TrimSpace(filter)
	if filter == "" {
		return true
	}
	return strings.Contains(strings.ToLower(dir), strings.ToLower(filter))
}

func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}
