package adapters

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"agent-resume/internal/session"
)

// artifact is one on-disk session whose ID and change token are known
// without parsing it.
type artifact struct {
	ID    string
	Path  string
	Token float64
}

// fileSource implements the incremental protocol for tools that keep one
// file per session.
type fileSource struct {
	source session.Source
	opts   Options
	root   string
	list   func(ctx context.Context) ([]artifact, error)
	// parse returns ok=false for files that hold no real conversation.
	parse func(ctx context.Context, a artifact) (s session.Session, ok bool, err error)
}

func (f *fileSource) available() bool {
	info, err := os.Stat(f.root)
	return err == nil && info.IsDir()
}

func (f *fileSource) listAll(ctx context.Context) ([]session.Session, error) {
	changed, _, err := f.listIncremental(ctx, nil)
	return changed, err
}

func (f *fileSource) listIncremental(ctx context.Context, known session.Known) ([]session.Session, []string, error) {
	arts, err := f.list(ctx)
	if err != nil {
		return nil, nil, err
	}

	present := make(map[string]struct{}, len(arts))
	changed := make([]session.Session, 0, len(arts))
	var gone []string
	for _, a := range dedupeArtifacts(arts) {
		if err := ctx.Err(); err != nil {
			return nil, nil, err
		}
		present[a.ID] = struct{}{}
		if tok, ok := known[a.ID]; ok && !session.TokenChanged(tok, a.Token, f.opts.Epsilon) {
			continue
		}
		s, ok, err := f.parse(ctx, a)
		if err != nil {
			f.opts.Logger.Warn("skipping unreadable session", "path", a.Path, "err", err)
			continue
		}
		if !ok {
			if _, wasKnown := known[a.ID]; wasKnown {
				gone = append(gone, a.ID)
			}
			continue
		}
		s.ID = a.ID
		s.Source = f.source
		s.ChangeToken = a.Token
		changed = append(changed, s.Normalize())
	}

	deleted := gone
	for id := range known {
		if _, ok := present[id]; !ok {
			deleted = append(deleted, id)
		}
	}
	sort.Strings(deleted)
	return changed, deleted, nil
}

// dedupeArtifacts keeps the newest artifact for every ID.
func dedupeArtifacts(arts []artifact) []artifact {
	byID := make(map[string]int, len(arts))
	out := make([]artifact, 0, len(arts))
	for _, a := range arts {
		if i, ok := byID[a.ID]; ok {
			if a.Token > out[i].Token {
				out[i] = a
			}
			continue
		}
		byID[a.ID] = len(out)
		out = append(out, a)
	}
	return out
}

// walkFiles returns the files under root whose base name satisfies match,
// descending at most maxDepth directory levels. A missing root yields no
// files; any other failure to read root is a source-level error.
func walkFiles(src session.Source, root string, maxDepth int, match func(name string) bool) ([]string, error) {
	if _, err := os.Stat(root); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, &ScanError{Source: src, Path: root, Err: err}
	}
	if _, err := os.ReadDir(root); err != nil {
		return nil, &ScanError{Source: src, Path: root, Err: err}
	}

	var out []string
	_ = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() {
			if path != root && depth(root, path) > maxDepth {
				return filepath.SkipDir
			}
			return nil
		}
		if depth(root, path)-1 > maxDepth {
			return nil
		}
		if match(d.Name()) {
			out = append(out, path)
		}
		return nil
	})
	sort.Strings(out)
	return out, nil
}

func depth(root, path string) int {
	rel, err := filepath.Rel(root, path)
	if err != nil || rel == "." {
		return 0
	}
	return strings.Count(filepath.ToSlash(rel), "/") + 1
}

// statArtifacts stats each path and derives its ID. Files that vanish
// between listing and stat are ignored.
func statArtifacts(paths []string, id func(path string) string) []artifact {
	out := make([]artifact, 0, len(paths))
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			continue
		}
		out = append(out, artifact{ID: id(p), Path: p, Token: session.TokenFromTime(info.ModTime())})
	}
	return out
}

func fileStem(path string) string {
	return strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
}
