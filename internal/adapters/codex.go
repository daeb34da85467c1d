package adapters

import (
	"context"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"agent-resume/internal/session"
)

var rolloutFilenameSessionIDRe = regexp.MustCompile(`rollout-.*-([0-9a-fA-F-]{36})\.jsonl$`)

// Codex reads ~/.codex/sessions/YYYY/MM/DD/rollout-<ts>-<uuid>.jsonl.
type Codex struct {
	files fileSource
}

func NewCodex(root string, opts Options) *Codex {
	c := &Codex{}
	c.files = fileSource{
		source: session.Codex,
		opts:   opts.withDefaults(session.Codex),
		root:   root,
		list:   c.list,
		parse:  c.parse,
	}
	return c
}

func (c *Codex) Source() session.Source { return session.Codex }

func (c *Codex) Available() bool { return c.files.available() }

func (c *Codex) ListAll(ctx context.Context) ([]session.Session, error) {
	return c.files.listAll(ctx)
}

func (c *Codex) ListIncremental(ctx context.Context, known session.Known) ([]session.Session, []string, error) {
	return c.files.listIncremental(ctx, known)
}

func (c *Codex) ResumeCommand(s session.Session) []string {
	return []string{"codex", "resume", s.ID}
}

func (c *Codex) list(_ context.Context) ([]artifact, error) {
	paths, err := walkFiles(session.Codex, c.files.root, 4, func(name string) bool {
		name = strings.ToLower(name)
		return strings.HasPrefix(name, "rollout-") && strings.HasSuffix(name, ".jsonl")
	})
	if err != nil {
		return nil, err
	}
	return statArtifacts(paths, codexSessionID), nil
}

func codexSessionID(path string) string {
	if m := rolloutFilenameSessionIDRe.FindStringSubmatch(filepath.Base(path)); len(m) == 2 {
		return strings.ToLower(m[1])
	}
	return fileStem(path)
}

type codexTurn struct {
	role   string
	text   string
	prompt bool
}

func (c *Codex) parse(_ context.Context, a artifact) (session.Session, bool, error) {
	info, err := os.Stat(a.Path)
	if err != nil {
		return session.Session{}, false, err
	}

	var (
		turns      []codexTurn
		workdir    string
		hasPrompts bool
	)
	err = eachJSONLine(a.Path, func(obj map[string]any) {
		payload := asMap(obj["payload"])
		switch asString(obj["type"]) {
		case "session_meta", "turn_context":
			if workdir == "" {
				workdir = asString(firstByPath(obj, []string{"payload", "cwd"}, []string{"payload", "workdir"}))
			}
		case "response_item":
			if asString(payload["type"]) != "message" {
				return
			}
			role := strings.ToLower(asString(payload["role"]))
			if role != "user" && role != "assistant" {
				return
			}
			turns = append(turns, codexTurn{role: role, text: joinNonEmpty(textBlocks(payload["content"]))})
		case "event_msg":
			// user_message events carry exactly what the person typed.
			if asString(payload["type"]) != "user_message" {
				return
			}
			hasPrompts = true
			turns = append(turns, codexTurn{role: "user", text: asString(payload["message"]), prompt: true})
		}
	})
	if err != nil {
		return session.Session{}, false, err
	}

	// Newer rollouts log every prompt twice; prefer the event copy when
	// present so turns are not double counted.
	var tr session.Transcript
	for _, t := range turns {
		switch {
		case t.role == "assistant":
			tr.AddAssistant(t.text)
		case t.prompt == hasPrompts:
			tr.AddUser(t.text)
		}
	}
	if tr.FirstUser() == "" {
		return session.Session{}, false, nil
	}
	return session.Session{
		Title:     session.TruncateTitle(tr.FirstUser()),
		Directory: workdir,
		Timestamp: info.ModTime(),
		Content:   tr.String(),
		TurnCount: tr.UserTurns(),
	}, true, nil
}
