package adapters

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"agent-resume/internal/session"

	_ "github.com/mattn/go-sqlite3"
)

// Crush reads the per-project crush.db databases listed in
// ~/.local/share/crush/projects.json. Sessions are rows, so the change
// token is the row's updated_at.
type Crush struct {
	projectsFile string
	opts         Options
}

func NewCrush(projectsFile string, opts Options) *Crush {
	return &Crush{projectsFile: projectsFile, opts: opts.withDefaults(session.Crush)}
}

func (c *Crush) Source() session.Source { return session.Crush }

func (c *Crush) Available() bool {
	info, err := os.Stat(c.projectsFile)
	return err == nil && !info.IsDir()
}

// ResumeCommand has no session argument: crush offers its own picker when
// started inside the project directory.
func (c *Crush) ResumeCommand(session.Session) []string {
	return []string{"crush"}
}

func (c *Crush) ListAll(ctx context.Context) ([]session.Session, error) {
	changed, _, err := c.ListIncremental(ctx, nil)
	return changed, err
}

type crushProject struct {
	Path    string `json:"path"`
	DataDir string `json:"data_dir"`
}

func (c *Crush) projects() ([]crushProject, error) {
	if !c.Available() {
		return nil, nil
	}
	var doc struct {
		Projects []crushProject `json:"projects"`
	}
	if err := readJSONFile(c.projectsFile, &doc); err != nil {
		return nil, &ScanError{Source: session.Crush, Path: c.projectsFile, Err: err}
	}
	return doc.Projects, nil
}

func (c *Crush) ListIncremental(ctx context.Context, known session.Known) ([]session.Session, []string, error) {
	projects, err := c.projects()
	if err != nil {
		return nil, nil, err
	}

	present := map[string]struct{}{}
	var changed []session.Session
	complete := true
	for _, p := range projects {
		if p.DataDir == "" {
			continue
		}
		dbPath := filepath.Join(p.DataDir, "crush.db")
		if _, err := os.Stat(dbPath); err != nil {
			continue
		}
		got, seen, err := c.scanDB(ctx, dbPath, p.Path, known)
		if err != nil {
			if ctx.Err() != nil {
				return nil, nil, ctx.Err()
			}
			// Rows of an unreadable database cannot be told apart from
			// deleted ones, so deletions are held back this round.
			complete = false
			c.opts.Logger.Warn("skipping unreadable crush database", "path", dbPath, "err", err)
			continue
		}
		changed = append(changed, got...)
		for id := range seen {
			present[id] = struct{}{}
		}
	}

	var deleted []string
	if complete {
		for id := range known {
			if _, ok := present[id]; !ok {
				deleted = append(deleted, id)
			}
		}
		sort.Strings(deleted)
	}
	return changed, deleted, nil
}

type crushRow struct {
	id      string
	title   string
	updated float64
}

func (c *Crush) scanDB(ctx context.Context, dbPath, projectDir string, known session.Known) ([]session.Session, map[string]struct{}, error) {
	db, err := sql.Open("sqlite3", "file:"+filepath.ToSlash(dbPath)+"?mode=ro&_busy_timeout=5000")
	if err != nil {
		return nil, nil, fmt.Errorf("open crush db: %w", err)
	}
	defer db.Close()

	rows, err := db.QueryContext(ctx, `
		SELECT id, COALESCE(title, ''), updated_at
		FROM sessions
		WHERE message_count > 0
		ORDER BY updated_at DESC
	`)
	if err != nil {
		return nil, nil, fmt.Errorf("query crush sessions: %w", err)
	}
	var list []crushRow
	for rows.Next() {
		var r crushRow
		if err := rows.Scan(&r.id, &r.title, &r.updated); err != nil {
			rows.Close()
			return nil, nil, fmt.Errorf("scan crush session: %w", err)
		}
		list = append(list, r)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, nil, fmt.Errorf("iterate crush sessions: %w", err)
	}
	rows.Close()

	seen := make(map[string]struct{}, len(list))
	var out []session.Session
	for _, r := range list {
		token := r.updated
		if token > 100_000_000_000 {
			token /= 1000
		}
		if tok, ok := known[r.id]; ok && !session.TokenChanged(tok, token, c.opts.Epsilon) {
			seen[r.id] = struct{}{}
			continue
		}
		s, ok, err := c.loadSession(ctx, db, r, token, projectDir)
		if err != nil {
			c.opts.Logger.Warn("skipping unreadable crush session", "id", r.id, "err", err)
			seen[r.id] = struct{}{}
			continue
		}
		if !ok {
			continue
		}
		seen[r.id] = struct{}{}
		out = append(out, s)
	}
	return out, seen, nil
}

func (c *Crush) loadSession(ctx context.Context, db *sql.DB, r crushRow, token float64, projectDir string) (session.Session, bool, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT role, parts FROM messages
		WHERE session_id = ?
		ORDER BY created_at ASC
	`, r.id)
	if err != nil {
		return session.Session{}, false, fmt.Errorf("query crush messages: %w", err)
	}
	defer rows.Close()

	var tr session.Transcript
	for rows.Next() {
		var role, parts string
		if err := rows.Scan(&role, &parts); err != nil {
			return session.Session{}, false, fmt.Errorf("scan crush message: %w", err)
		}
		text := joinNonEmpty(crushTextParts(parts))
		switch role {
		case "user":
			tr.AddUser(text)
		case "assistant":
			tr.AddAssistant(text)
		}
	}
	if err := rows.Err(); err != nil {
		return session.Session{}, false, fmt.Errorf("iterate crush messages: %w", err)
	}
	if tr.FirstUser() == "" {
		return session.Session{}, false, nil
	}

	title := strings.TrimSpace(r.title)
	if title == "" {
		title = session.TruncateTitle(tr.FirstUser())
	}
	sec := int64(token)
	s := session.Session{
		ID:          r.id,
		Source:      session.Crush,
		Title:       title,
		Directory:   projectDir,
		Timestamp:   time.Unix(sec, int64((token-float64(sec))*1e9)),
		Content:     tr.String(),
		TurnCount:   tr.UserTurns(),
		ChangeToken: token,
	}
	return s.Normalize(), true, nil
}

// crushTextParts keeps the text parts of a message; tool calls and tool
// results are not conversation.
func crushTextParts(raw string) []string {
	var parts []struct {
		Type string          `json:"type"`
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal([]byte(raw), &parts); err != nil {
		return nil
	}
	var out []string
	for _, p := range parts {
		if p.Type != "text" {
			continue
		}
		var data struct {
			Text string `json:"text"`
		}
		if err := json.Unmarshal(p.Data, &data); err != nil {
			continue
		}
		if t := strings.TrimSpace(data.Text); t != "" {
			out = append(out, t)
		}
	}
	return out
}
