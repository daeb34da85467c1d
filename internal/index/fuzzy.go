package index

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/xrash/smetrics"
)

// maxEdits is the edit distance tolerated between a query term and some
// prefix of an indexed token.
const maxEdits = 1

type matchKind int

const (
	noMatch matchKind = iota
	matchFuzzy
	matchPrefix
	matchExact
)

// Weights tune ranking. Kind weights order exact over prefix over fuzzy
// matches; field boosts order title over content.
type Weights struct {
	Exact   float64
	Prefix  float64
	Fuzzy   float64
	Title   float64
	Content float64
}

func DefaultWeights() Weights {
	return Weights{Exact: 3, Prefix: 2, Fuzzy: 1, Title: 2, Content: 1}
}

// Validate checks the ordering ranking relies on: exact over prefix over
// fuzzy, and title at least as strong as content. Under it an exact title
// match outscores every other posting.
func (w Weights) Validate() error {
	switch {
	case w.Fuzzy <= 0 || w.Content <= 0:
		return fmt.Errorf("fuzzy and content weights must be positive, got %v and %v", w.Fuzzy, w.Content)
	case w.Prefix <= w.Fuzzy:
		return fmt.Errorf("prefix weight %v must exceed fuzzy weight %v", w.Prefix, w.Fuzzy)
	case w.Exact <= w.Prefix:
		return fmt.Errorf("exact weight %v must exceed prefix weight %v", w.Exact, w.Prefix)
	case w.Title < w.Content:
		return fmt.Errorf("title boost %v must not be below content weight %v", w.Title, w.Content)
	}
	return nil
}

func (w Weights) kind(k matchKind) float64 {
	switch k {
	case matchExact:
		return w.Exact
	case matchPrefix:
		return w.Prefix
	case matchFuzzy:
		return w.Fuzzy
	default:
		return 0
	}
}

func (w Weights) field(f Field) float64 {
	if f == FieldTitle {
		return w.Title
	}
	return w.Content
}

// classify reports how an indexed token matches a query term.
func classify(term, token string) matchKind {
	if token == term {
		return matchExact
	}
	if strings.HasPrefix(token, term) {
		return matchPrefix
	}
	qLen := utf8.RuneCountInString(term)
	tRunes := []rune(token)
	if len(tRunes) < qLen-maxEdits {
		return noMatch
	}
	for n := qLen - maxEdits; n <= qLen+maxEdits; n++ {
		if n < 0 || n > len(tRunes) {
			continue
		}
		if smetrics.WagnerFischer(term, string(tRunes[:n]), 1, 1, 1) <= maxEdits {
			return matchFuzzy
		}
	}
	return noMatch
}

// matchesEverything is true when the empty prefix of any token is already
// within maxEdits of the term.
func matchesEverything(term string) bool {
	return utf8.RuneCountInString(term) <= maxEdits
}

type vocabulary struct {
	generation uint64
	terms      []string
}

func (v *vocabulary) expand(term string) map[string]matchKind {
	out := make(map[string]matchKind)
	for _, tok := range v.terms {
		if k := classify(term, tok); k != noMatch {
			out[tok] = k
		}
	}
	return out
}

// vocabularyTx returns the cached token list when it was built at
// generation gen, and otherwise reloads it inside tx.
func (s *Store) vocabularyTx(ctx context.Context, tx *sql.Tx, gen uint64) (*vocabulary, error) {
	s.vocabMu.Lock()
	defer s.vocabMu.Unlock()
	if s.vocab != nil && s.vocab.generation == gen {
		return s.vocab, nil
	}

	rows, err := tx.QueryContext(ctx, `SELECT DISTINCT term FROM postings`)
	if err != nil {
		return nil, fmt.Errorf("load vocabulary: %w", err)
	}
	defer rows.Close()

	v := &vocabulary{generation: gen, terms: make([]string, 0, 4096)}
	for rows.Next() {
		var term string
		if err := rows.Scan(&term); err != nil {
			return nil, fmt.Errorf("scan vocabulary term: %w", err)
		}
		v.terms = append(v.terms, term)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate vocabulary: %w", err)
	}
	s.vocab = v
	return v, nil
}
