package adapters

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"agent-resume/internal/session"
)

// Claude reads ~/.claude/projects/<encoded-dir>/<uuid>.jsonl.
type Claude struct {
	files fileSource
}

func NewClaude(root string, opts Options) *Claude {
	c := &Claude{}
	c.files = fileSource{
		source: session.Claude,
		opts:   opts.withDefaults(session.Claude),
		root:   root,
		list:   c.list,
		parse:  c.parse,
	}
	return c
}

func (c *Claude) Source() session.Source { return session.Claude }

func (c *Claude) Available() bool { return c.files.available() }

func (c *Claude) ListAll(ctx context.Context) ([]session.Session, error) {
	return c.files.listAll(ctx)
}

func (c *Claude) ListIncremental(ctx context.Context, known session.Known) ([]session.Session, []string, error) {
	return c.files.listIncremental(ctx, known)
}

func (c *Claude) ResumeCommand(s session.Session) []string {
	return []string{"claude", "--resume", s.ID}
}

func (c *Claude) list(_ context.Context) ([]artifact, error) {
	paths, err := walkFiles(session.Claude, c.files.root, 1, func(name string) bool {
		// agent-*.jsonl are sub-agent transcripts, not resumable sessions.
		return strings.HasSuffix(name, ".jsonl") && !strings.HasPrefix(name, "agent-")
	})
	if err != nil {
		return nil, err
	}
	return statArtifacts(paths, fileStem), nil
}

func (c *Claude) parse(_ context.Context, a artifact) (session.Session, bool, error) {
	info, err := os.Stat(a.Path)
	if err != nil {
		return session.Session{}, false, err
	}

	var (
		tr      session.Transcript
		summary string
		workdir string
	)
	err = eachJSONLine(a.Path, func(obj map[string]any) {
		switch asString(obj["type"]) {
		case "summary":
			if s := asString(obj["summary"]); s != "" {
				summary = s
			}
		case "user":
			if workdir == "" {
				workdir = asString(obj["cwd"])
			}
			if isMeta, _ := obj["isMeta"].(bool); isMeta {
				return
			}
			tr.AddUser(joinNonEmpty(conversational(textBlocks(firstByPath(obj, []string{"message", "content"})))))
		case "assistant":
			tr.AddAssistant(joinNonEmpty(textBlocks(firstByPath(obj, []string{"message", "content"}))))
		}
	})
	if err != nil {
		return session.Session{}, false, err
	}
	if tr.FirstUser() == "" {
		return session.Session{}, false, nil
	}

	if workdir == "" {
		workdir = workdirFromClaudePath(a.Path)
	}
	title := summary
	if title == "" {
		title = session.TruncateTitle(tr.FirstUser())
	}
	return session.Session{
		Title:     title,
		Directory: workdir,
		Timestamp: info.ModTime(),
		Content:   tr.String(),
		TurnCount: tr.UserTurns(),
	}, true, nil
}

// conversational drops injected blocks such as system reminders that share a
// user message with the real prompt.
func conversational(blocks []string) []string {
	out := blocks[:0]
	for _, b := range blocks {
		if !session.IsNonConversational(b) {
			out = append(out, b)
		}
	}
	return out
}

// workdirFromClaudePath decodes the project directory name, in which path
// separators were replaced by dashes: -Users-eric-proj is /Users/eric/proj.
func workdirFromClaudePath(path string) string {
	dir := filepath.Base(filepath.Dir(path))
	if dir == "" || dir == "." || dir == "/" || dir == "projects" {
		return ""
	}
	if !strings.HasPrefix(dir, "-") {
		return ""
	}
	decoded := strings.ReplaceAll(dir, "-", "/")
	if decoded == "/" {
		return ""
	}
	return filepath.Clean(decoded)
}
