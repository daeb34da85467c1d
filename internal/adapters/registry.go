package adapters

import "agent-resume/internal/session"

// Paths locates the history of every supported tool.
type Paths struct {
	Claude        string
	Codex         string
	Copilot       string
	CrushProjects string
	OpenCode      string
	Vibe          string
}

// All builds one adapter per supported tool, skipping disabled sources.
func All(p Paths, disabled []session.Source, opts Options) []Adapter {
	off := make(map[session.Source]bool, len(disabled))
	for _, src := range disabled {
		off[src] = true
	}

	candidates := []Adapter{
		NewClaude(p.Claude, opts),
		NewCodex(p.Codex, opts),
		NewCopilot(p.Copilot, opts),
		NewCrush(p.CrushProjects, opts),
		NewOpenCode(p.OpenCode, opts),
		NewVibe(p.Vibe, opts),
	}
	out := make([]Adapter, 0, len(candidates))
	for _, a := range candidates {
		if off[a.Source()] {
			continue
		}
		out = append(out, a)
	}
	return out
}

// ForSource returns the adapter that produced records of src, or nil.
func ForSource(list []Adapter, src session.Source) Adapter {
	for _, a := range list {
		if a.Source() == src {
			return a
		}
	}
	return nil
}
