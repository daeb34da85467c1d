package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"agent-resume/internal/session"
)

func isolate(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	for _, env := range []string{
		"XDG_CONFIG_HOME", "XDG_CACHE_HOME", "XDG_DATA_HOME",
		"CLAUDE_HOME", "CODEX_HOME", "COPILOT_HOME", "VIBE_HOME",
		"CRUSH_GLOBAL_DATA", "OPENCODE_DATA_DIR",
	} {
		t.Setenv(env, "")
	}
	return home
}

func TestLoadWithoutFileUsesDefaults(t *testing.T) {
	home := isolate(t)
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.IndexDir != filepath.Join(home, ".cache", "agent-resume", "index") {
		t.Errorf("index dir=%q", cfg.IndexDir)
	}
	if cfg.Search.TokenEpsilon != session.DefaultTokenEpsilon || cfg.Search.Limit != 100 {
		t.Errorf("search=%+v", cfg.Search)
	}
	w := cfg.Weights()
	if w.Exact != 3 || w.Prefix != 2 || w.Fuzzy != 1 || w.Title != 2 || w.Content != 1 {
		t.Errorf("weights=%+v", w)
	}
}

func TestLoadFileOverridesDefaults(t *testing.T) {
	home := isolate(t)
	path := filepath.Join(t.TempDir(), "config.toml")
	body := `
index_dir = "~/idx"

[search]
token_epsilon = 0.5
title_boost = 4.0
limit = 20

[sources]
disabled = ["crush", "Vibe"]
claude_home = "/opt/claude"
`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.IndexDir != filepath.Join(home, "idx") {
		t.Errorf("index dir=%q", cfg.IndexDir)
	}
	if cfg.Search.TokenEpsilon != 0.5 || cfg.Search.Limit != 20 || cfg.Weights().Title != 4 {
		t.Errorf("search=%+v", cfg.Search)
	}
	if cfg.Search.ExactWeight != 3 {
		t.Errorf("unset weight lost its default: %v", cfg.Search.ExactWeight)
	}
	disabled, err := cfg.DisabledSources()
	if err != nil || len(disabled) != 2 || disabled[0] != session.Crush || disabled[1] != session.Vibe {
		t.Errorf("disabled=%v err=%v", disabled, err)
	}
	paths, err := cfg.AdapterPaths()
	if err != nil {
		t.Fatal(err)
	}
	if paths.Claude != filepath.Join("/opt/claude", "projects") {
		t.Errorf("claude=%q", paths.Claude)
	}
}

func TestLoadRejectsBadInput(t *testing.T) {
	isolate(t)
	dir := t.TempDir()
	tests := []struct {
		name string
		body string
		want string
	}{
		{name: "syntax", body: "index_dir = ", want: "parse config"},
		{name: "unknown source", body: "[sources]\ndisabled = [\"emacs\"]", want: "unknown source"},
		{name: "negative epsilon", body: "[search]\ntoken_epsilon = -1.0", want: "token_epsilon"},
		{name: "prefix above exact", body: "[search]\nprefix_weight = 5.0", want: "exact weight"},
		{name: "title below content", body: "[search]\ntitle_boost = 0.5", want: "title boost"},
		{name: "negative fuzzy", body: "[search]\nfuzzy_weight = -1.0", want: "search weights"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			path := filepath.Join(dir, tc.name+".toml")
			if err := os.WriteFile(path, []byte(tc.body), 0o644); err != nil {
				t.Fatal(err)
			}
			if _, err := Load(path); err == nil || !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("err=%v, want %q", err, tc.want)
			}
		})
	}
}

func TestExplicitMissingConfigIsError(t *testing.T) {
	isolate(t)
	if _, err := Load(filepath.Join(t.TempDir(), "absent.toml")); err == nil {
		t.Fatal("expected error")
	}
}

func TestAdapterPathsFromEnvironment(t *testing.T) {
	home := isolate(t)
	t.Setenv("CODEX_HOME", "/env/codex")
	t.Setenv("XDG_DATA_HOME", "/env/data")
	cfg, err := Load("")
	if err != nil {
		t.Fatal(err)
	}
	p, err := cfg.AdapterPaths()
	if err != nil {
		t.Fatal(err)
	}
	tests := []struct{ got, want string }{
		{p.Codex, filepath.Join("/env/codex", "sessions")},
		{p.Claude, filepath.Join(home, ".claude", "projects")},
		{p.Copilot, filepath.Join(home, ".copilot", "session-state")},
		{p.CrushProjects, filepath.Join("/env/data", "crush", "projects.json")},
		{p.OpenCode, filepath.Join("/env/data", "opencode", "storage")},
		{p.Vibe, filepath.Join(home, ".vibe", "logs", "session")},
	}
	for _, tc := range tests {
		if tc.got != tc.want {
			t.Errorf("got %q, want %q", tc.got, tc.want)
		}
	}
}
