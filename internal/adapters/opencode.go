package adapters

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"agent-resume/internal/session"
)

// OpenCode reads the storage tree of opencode:
//
//	storage/session/<project>/ses_<id>.json
//	storage/message/<session id>/msg_<id>.json
//	storage/part/<message id>/prt_<id>.json
type OpenCode struct {
	files fileSource
}

func NewOpenCode(storage string, opts Options) *OpenCode {
	o := &OpenCode{}
	o.files = fileSource{
		source: session.OpenCode,
		opts:   opts.withDefaults(session.OpenCode),
		root:   storage,
		list:   o.list,
		parse:  o.parse,
	}
	return o
}

func (o *OpenCode) Source() session.Source { return session.OpenCode }

func (o *OpenCode) Available() bool { return o.files.available() }

func (o *OpenCode) ListAll(ctx context.Context) ([]session.Session, error) {
	return o.files.listAll(ctx)
}

func (o *OpenCode) ListIncremental(ctx context.Context, known session.Known) ([]session.Session, []string, error) {
	return o.files.listIncremental(ctx, known)
}

func (o *OpenCode) ResumeCommand(s session.Session) []string {
	return []string{"opencode", s.Directory, "--session", s.ID}
}

func (o *OpenCode) list(_ context.Context) ([]artifact, error) {
	paths, err := walkFiles(session.OpenCode, filepath.Join(o.files.root, "session"), 1, func(name string) bool {
		return strings.HasPrefix(name, "ses_") && strings.HasSuffix(name, ".json")
	})
	if err != nil {
		return nil, err
	}
	arts := statArtifacts(paths, fileStem)
	// New messages land in their own files; the message directory's mtime
	// moves with them even when the session file is untouched.
	for i := range arts {
		if info, err := os.Stat(filepath.Join(o.files.root, "message", arts[i].ID)); err == nil {
			arts[i].Token = max(arts[i].Token, session.TokenFromTime(info.ModTime()))
		}
	}
	return arts, nil
}

type opencodeSession struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	Directory string `json:"directory"`
	Time      struct {
		Created float64 `json:"created"`
		Updated float64 `json:"updated"`
	} `json:"time"`
}

type opencodeMessage struct {
	ID   string `json:"id"`
	Role string `json:"role"`
	Time struct {
		Created float64 `json:"created"`
	} `json:"time"`
}

type opencodePart struct {
	Type      string `json:"type"`
	Text      string `json:"text"`
	Synthetic bool   `json:"synthetic"`
}

func (o *OpenCode) parse(ctx context.Context, a artifact) (session.Session, bool, error) {
	info, err := os.Stat(a.Path)
	if err != nil {
		return session.Session{}, false, err
	}
	var meta opencodeSession
	if err := readJSONFile(a.Path, &meta); err != nil {
		return session.Session{}, false, err
	}

	msgs := o.messages(a.ID)
	var tr session.Transcript
	for _, m := range msgs {
		if err := ctx.Err(); err != nil {
			return session.Session{}, false, err
		}
		text := joinNonEmpty(o.partTexts(m.ID))
		switch m.Role {
		case "user":
			tr.AddUser(text)
		case "assistant":
			tr.AddAssistant(text)
		}
	}
	if tr.FirstUser() == "" {
		return session.Session{}, false, nil
	}

	title := strings.TrimSpace(meta.Title)
	if title == "" || strings.HasPrefix(title, "New session - ") {
		title = session.TruncateTitle(tr.FirstUser())
	}
	ts := info.ModTime()
	if updated, ok := parseTime(meta.Time.Updated); ok && updated.After(ts) {
		ts = updated
	}
	return session.Session{
		Title:     title,
		Directory: meta.Directory,
		Timestamp: ts,
		Content:   tr.String(),
		TurnCount: tr.UserTurns(),
	}, true, nil
}

// messages loads a session's messages in creation order. Unreadable
// message files are skipped.
func (o *OpenCode) messages(sessionID string) []opencodeMessage {
	paths, _ := filepath.Glob(filepath.Join(o.files.root, "message", sessionID, "msg_*.json"))
	out := make([]opencodeMessage, 0, len(paths))
	for _, p := range paths {
		var m opencodeMessage
		if err := readJSONFile(p, &m); err != nil || m.ID == "" {
			continue
		}
		out = append(out, m)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Time.Created != out[j].Time.Created {
			return out[i].Time.Created < out[j].Time.Created
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func (o *OpenCode) partTexts(messageID string) []string {
	paths, _ := filepath.Glob(filepath.Join(o.files.root, "part", messageID, "*.json"))
	sort.Strings(paths)
	var out []string
	for _, p := range paths {
		var part opencodePart
		if err := readJSONFile(p, &part); err != nil {
			continue
		}
		if part.Type != "text" || part.Synthetic {
			continue
		}
		if t := strings.TrimSpace(part.Text); t != "" {
			out = append(out, t)
		}
	}
	return out
}
