package adapters

import (
	"context"
	"os"
	"regexp"
	"strings"

	"agent-resume/internal/session"
)

var copilotFolderRe = regexp.MustCompile(`Folder (/[^\s]+)`)

// Copilot reads ~/.copilot/session-state/<id>.jsonl event logs.
type Copilot struct {
	files fileSource
}

func NewCopilot(root string, opts Options) *Copilot {
	c := &Copilot{}
	c.files = fileSource{
		source: session.Copilot,
		opts:   opts.withDefaults(session.Copilot),
		root:   root,
		list:   c.list,
		parse:  c.parse,
	}
	return c
}

func (c *Copilot) Source() session.Source { return session.Copilot }

func (c *Copilot) Available() bool { return c.files.available() }

func (c *Copilot) ListAll(ctx context.Context) ([]session.Session, error) {
	return c.files.listAll(ctx)
}

func (c *Copilot) ListIncremental(ctx context.Context, known session.Known) ([]session.Session, []string, error) {
	return c.files.listIncremental(ctx, known)
}

func (c *Copilot) ResumeCommand(s session.Session) []string {
	return []string{"copilot", "--resume", s.ID}
}

func (c *Copilot) list(_ context.Context) ([]artifact, error) {
	paths, err := walkFiles(session.Copilot, c.files.root, 0, func(name string) bool {
		return strings.HasSuffix(name, ".jsonl")
	})
	if err != nil {
		return nil, err
	}
	return statArtifacts(paths, fileStem), nil
}

func (c *Copilot) parse(_ context.Context, a artifact) (session.Session, bool, error) {
	info, err := os.Stat(a.Path)
	if err != nil {
		return session.Session{}, false, err
	}

	var (
		tr      session.Transcript
		workdir string
	)
	err = eachJSONLine(a.Path, func(obj map[string]any) {
		data := asMap(obj["data"])
		switch asString(obj["type"]) {
		case "session.info":
			if workdir != "" || asString(data["infoType"]) != "folder_trust" {
				return
			}
			if m := copilotFolderRe.FindStringSubmatch(asString(data["message"])); len(m) == 2 {
				workdir = m[1]
			}
		case "session.start":
			if workdir == "" {
				workdir = asString(firstByPath(data, []string{"context", "cwd"}, []string{"cwd"}))
			}
		case "user.message":
			tr.AddUser(asString(data["content"]))
		case "assistant.message":
			tr.AddAssistant(asString(data["content"]))
		}
	})
	if err != nil {
		return session.Session{}, false, err
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
