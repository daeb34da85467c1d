package adapters

import (
	"context"
	"os"
	"strings"

	"agent-resume/internal/session"
)

// Vibe reads ~/.vibe/logs/session/session_*.json documents.
type Vibe struct {
	files fileSource
}

func NewVibe(root string, opts Options) *Vibe {
	v := &Vibe{}
	v.files = fileSource{
		source: session.Vibe,
		opts:   opts.withDefaults(session.Vibe),
		root:   root,
		list:   v.list,
		parse:  v.parse,
	}
	return v
}

func (v *Vibe) Source() session.Source { return session.Vibe }

func (v *Vibe) Available() bool { return v.files.available() }

func (v *Vibe) ListAll(ctx context.Context) ([]session.Session, error) {
	return v.files.listAll(ctx)
}

func (v *Vibe) ListIncremental(ctx context.Context, known session.Known) ([]session.Session, []string, error) {
	return v.files.listIncremental(ctx, known)
}

// ResumeCommand passes the short session ID that vibe embeds as the last
// segment of the file name; vibe resolves it by prefix.
func (v *Vibe) ResumeCommand(s session.Session) []string {
	id := s.ID
	if i := strings.LastIndex(id, "_"); i >= 0 && i < len(id)-1 {
		id = id[i+1:]
	}
	return []string{"vibe", "--resume", id}
}

func (v *Vibe) list(_ context.Context) ([]artifact, error) {
	paths, err := walkFiles(session.Vibe, v.files.root, 0, func(name string) bool {
		return strings.HasPrefix(name, "session_") && strings.HasSuffix(name, ".json")
	})
	if err != nil {
		return nil, err
	}
	return statArtifacts(paths, fileStem), nil
}

type vibeDocument struct {
	Metadata struct {
		SessionID   string `json:"session_id"`
		StartTime   string `json:"start_time"`
		Environment struct {
			WorkingDirectory string `json:"working_directory"`
		} `json:"environment"`
	} `json:"metadata"`
	Messages []struct {
		Role    string `json:"role"`
		Content any    `json:"content"`
	} `json:"messages"`
}

func (v *Vibe) parse(_ context.Context, a artifact) (session.Session, bool, error) {
	info, err := os.Stat(a.Path)
	if err != nil {
		return session.Session{}, false, err
	}
	var doc vibeDocument
	if err := readJSONFile(a.Path, &doc); err != nil {
		return session.Session{}, false, err
	}

	var tr session.Transcript
	for _, m := range doc.Messages {
		text := joinNonEmpty(textBlocks(m.Content))
		switch strings.ToLower(m.Role) {
		case "user":
			tr.AddUser(text)
		case "assistant":
			tr.AddAssistant(text)
		}
	}
	if tr.FirstUser() == "" {
		return session.Session{}, false, nil
	}
	return session.Session{
		Title:     session.TruncateTitle(tr.FirstUser()),
		Directory: doc.Metadata.Environment.WorkingDirectory,
		Timestamp: info.ModTime(),
		Content:   tr.String(),
		TurnCount: tr.UserTurns(),
	}, true, nil
}
