package index

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"agent-resume/internal/session"

	_ "github.com/mattn/go-sqlite3"
)

// SchemaVersion is bumped whenever the on-disk layout or tokenization
// changes. A mismatch discards the whole index directory.
const SchemaVersion = 5

const (
	dbFileName      = "index.sqlite"
	versionFileName = ".schema_version"
)

var ErrClosed = errors.New("index closed")

type Options struct {
	Weights Weights
	// Rebuild discards any existing index before opening.
	Rebuild bool
}

// Store is the durable session index. Writers are serialized; readers run
// inside read transactions and never observe a partially applied batch.
type Store struct {
	dir     string
	db      *sql.DB
	weights Weights
	rebuilt bool
	closed  atomic.Bool

	mu sync.Mutex

	vocabMu sync.Mutex
	vocab   *vocabulary
}

// Batch is the complete change set of one source for one sync.
type Batch struct {
	Source  session.Source
	Upserts []session.Session
	Deletes []string
}

func (b Batch) Empty() bool {
	return len(b.Upserts) == 0 && len(b.Deletes) == 0
}

func Open(dir string, opts Options) (*Store, error) {
	if opts.Weights == (Weights{}) {
		opts.Weights = DefaultWeights()
	}
	if dir == "" {
		return nil, errors.New("index directory is empty")
	}

	rebuilt := false
	if opts.Rebuild {
		rebuilt = dirHasEntries(dir)
		if err := os.RemoveAll(dir); err != nil {
			return nil, fmt.Errorf("remove index dir: %w", err)
		}
	} else if !versionMatches(dir) && dirHasEntries(dir) {
		rebuilt = true
		if err := os.RemoveAll(dir); err != nil {
			return nil, fmt.Errorf("remove stale index dir: %w", err)
		}
	}

	db, err := openDB(dir)
	if err != nil {
		// A database we cannot read is rebuilt from scratch, once.
		if rmErr := os.RemoveAll(dir); rmErr != nil {
			return nil, fmt.Errorf("remove corrupt index dir: %w", rmErr)
		}
		rebuilt = true
		db, err = openDB(dir)
		if err != nil {
			return nil, err
		}
	}
	if err := writeVersion(dir); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Store{dir: dir, db: db, weights: opts.Weights, rebuilt: rebuilt}, nil
}

func openDB(dir string) (*sql.DB, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create index dir: %w", err)
	}
	dsn := filepath.Join(dir, dbFileName) + "?_journal_mode=WAL&_busy_timeout=5000&_synchronous=NORMAL"
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	var n int
	if err := db.QueryRow(`SELECT COUNT(*) FROM sessions`).Scan(&n); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("probe sessions table: %w", err)
	}
	return db, nil
}

func initSchema(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS sessions (
			source TEXT NOT NULL,
			id TEXT NOT NULL,
			title TEXT NOT NULL DEFAULT '',
			directory TEXT NOT NULL DEFAULT '',
			timestamp INTEGER NOT NULL DEFAULT 0,
			preview TEXT NOT NULL DEFAULT '',
			content TEXT NOT NULL DEFAULT '',
			turn_count INTEGER NOT NULL DEFAULT 0,
			change_token REAL NOT NULL DEFAULT 0,
			PRIMARY KEY (source, id)
		);`,
		`CREATE INDEX IF NOT EXISTS idx_sessions_timestamp ON sessions(timestamp DESC);`,
		`CREATE TABLE IF NOT EXISTS postings (
			term TEXT NOT NULL,
			field INTEGER NOT NULL,
			source TEXT NOT NULL,
			id TEXT NOT NULL,
			PRIMARY KEY (term, field, source, id)
		) WITHOUT ROWID;`,
		`CREATE INDEX IF NOT EXISTS idx_postings_session ON postings(source, id);`,
		`CREATE TABLE IF NOT EXISTS meta (
			key TEXT PRIMARY KEY,
			value INTEGER NOT NULL
		);`,
	}
	for _, stmt := range stmts {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("init schema: %w", err)
		}
	}
	return nil
}

func versionMatches(dir string) bool {
	raw, err := os.ReadFile(filepath.Join(dir, versionFileName))
	if err != nil {
		return false
	}
	v, err := strconv.Atoi(strings.TrimSpace(string(raw)))
	return err == nil && v == SchemaVersion
}

func writeVersion(dir string) error {
	path := filepath.Join(dir, versionFileName)
	if err := os.WriteFile(path, []byte(strconv.Itoa(SchemaVersion)+"\n"), 0o644); err != nil {
		return fmt.Errorf("write schema version: %w", err)
	}
	return nil
}

func dirHasEntries(dir string) bool {
	entries, err := os.ReadDir(dir)
	return err == nil && len(entries) > 0
}

func (s *Store) Dir() string { return s.dir }

// Rebuilt reports whether Open discarded an existing index.
func (s *Store) Rebuilt() bool { return s.rebuilt }

func (s *Store) Weights() Weights { return s.weights }

func (s *Store) Close() error {
	if !s.closed.CompareAndSwap(false, true) {
		return nil
	}
	return s.db.Close()
}

// Apply writes one source's batch in a single transaction.
func (s *Store) Apply(ctx context.Context, b Batch) error {
	if s.closed.Load() {
		return ErrClosed
	}
	if b.Empty() {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin apply tx: %w", err)
	}
	defer tx.Rollback()

	delPostings, err := tx.PrepareContext(ctx, `DELETE FROM postings WHERE source = ? AND id = ?`)
	if err != nil {
		return fmt.Errorf("prepare postings delete: %w", err)
	}
	defer delPostings.Close()

	delSession, err := tx.PrepareContext(ctx, `DELETE FROM sessions WHERE source = ? AND id = ?`)
	if err != nil {
		return fmt.Errorf("prepare session delete: %w", err)
	}
	defer delSession.Close()

	upsert, err := tx.PrepareContext(ctx, `
		INSERT INTO sessions(source, id, title, directory, timestamp, preview, content, turn_count, change_token)
		VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(source, id) DO UPDATE SET
			title=excluded.title,
			directory=excluded.directory,
			timestamp=excluded.timestamp,
			preview=excluded.preview,
			content=excluded.content,
			turn_count=excluded.turn_count,
			change_token=excluded.change_token
	`)
	if err != nil {
		return fmt.Errorf("prepare session upsert: %w", err)
	}
	defer upsert.Close()

	insPosting, err := tx.PrepareContext(ctx, `INSERT OR IGNORE INTO postings(term, field, source, id) VALUES(?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare posting insert: %w", err)
	}
	defer insPosting.Close()

	src := string(b.Source)
	for _, id := range b.Deletes {
		if _, err := delPostings.ExecContext(ctx, src, id); err != nil {
			return fmt.Errorf("delete postings %s:%s: %w", src, id, err)
		}
		if _, err := delSession.ExecContext(ctx, src, id); err != nil {
			return fmt.Errorf("delete session %s:%s: %w", src, id, err)
		}
	}

	for _, rec := range b.Upserts {
		if err := ctx.Err(); err != nil {
			return err
		}
		rec.Source = b.Source
		rec = rec.Normalize()
		if _, err := delPostings.ExecContext(ctx, src, rec.ID); err != nil {
			return fmt.Errorf("clear postings %s:%s: %w", src, rec.ID, err)
		}
		if _, err := upsert.ExecContext(ctx,
			src,
			rec.ID,
			rec.Title,
			rec.Directory,
			rec.Timestamp.UnixNano(),
			rec.Preview,
			rec.Content,
			rec.TurnCount,
			rec.ChangeToken,
		); err != nil {
			return fmt.Errorf("upsert session %s:%s: %w", src, rec.ID, err)
		}
		for field, text := range map[Field]string{FieldTitle: rec.Title, FieldContent: rec.Content} {
			for _, term := range Terms(text) {
				if _, err := insPosting.ExecContext(ctx, term, int(field), src, rec.ID); err != nil {
					return fmt.Errorf("insert posting %s:%s: %w", src, rec.ID, err)
				}
			}
		}
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO meta(key, value) VALUES('generation', 1)
		ON CONFLICT(key) DO UPDATE SET value = value + 1
	`); err != nil {
		return fmt.Errorf("bump generation: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit apply %s: %w", src, err)
	}
	return nil
}

// generationTx returns the write counter as seen by tx's snapshot.
func generationTx(ctx context.Context, tx *sql.Tx) (uint64, error) {
	var gen int64
	err := tx.QueryRowContext(ctx, `SELECT value FROM meta WHERE key = 'generation'`).Scan(&gen)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("read generation: %w", err)
	}
	return uint64(gen), nil
}

// Known returns the stored change tokens of one source.
func (s *Store) Known(ctx context.Context, src session.Source) (session.Known, error) {
	if s.closed.Load() {
		return nil, ErrClosed
	}
	rows, err := s.db.QueryContext(ctx, `SELECT id, change_token FROM sessions WHERE source = ?`, string(src))
	if err != nil {
		return nil, fmt.Errorf("query known tokens: %w", err)
	}
	defer rows.Close()

	known := session.Known{}
	for rows.Next() {
		var id string
		var token float64
		if err := rows.Scan(&id, &token); err != nil {
			return nil, fmt.Errorf("scan known token: %w", err)
		}
		known[id] = token
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate known tokens: %w", err)
	}
	return known, nil
}

// Get loads one record including its content.
func (s *Store) Get(ctx context.Context, key session.Key) (session.Session, bool, error) {
	if s.closed.Load() {
		return session.Session{}, false, ErrClosed
	}
	row := s.db.QueryRowContext(ctx, `
		SELECT source, id, title, directory, timestamp, preview, content, turn_count, change_token
		FROM sessions WHERE source = ? AND id = ?
	`, string(key.Source), key.ID)
	rec, err := scanSession(row, true)
	if errors.Is(err, sql.ErrNoRows) {
		return session.Session{}, false, nil
	}
	if err != nil {
		return session.Session{}, false, fmt.Errorf("get session %s: %w", key, err)
	}
	return rec, true, nil
}

func (s *Store) Count(ctx context.Context) (int, error) {
	if s.closed.Load() {
		return 0, ErrClosed
	}
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM sessions`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count sessions: %w", err)
	}
	return n, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

const listColumns = `source, id, title, directory, timestamp, preview, turn_count, change_token`

func scanSession(row rowScanner, withContent bool) (session.Session, error) {
	var (
		rec    session.Session
		src    string
		tsNano int64
	)
	dest := []any{&src, &rec.ID, &rec.Title, &rec.Directory, &tsNano, &rec.Preview}
	if withContent {
		dest = append(dest, &rec.Content)
	}
	dest = append(dest, &rec.TurnCount, &rec.ChangeToken)
	if err := row.Scan(dest...); err != nil {
		return session.Session{}, err
	}
	rec.Source = session.Source(src)
	rec.Timestamp = time.Unix(0, tsNano)
	return rec, nil
}
