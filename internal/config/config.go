package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"agent-resume/internal/adapters"
	"agent-resume/internal/index"
	"agent-resume/internal/session"

	"github.com/pelletier/go-toml/v2"
)

const (
	DefaultGlamourStyle = "dark"
	appName             = "agent-resume"
)

// AppConfig is the merged result of defaults, the config file and flags.
type AppConfig struct {
	IndexDir string        `toml:"index_dir"`
	LogFile  string        `toml:"log_file"`
	Search   SearchConfig  `toml:"search"`
	Sources  SourcesConfig `toml:"sources"`
}

type SearchConfig struct {
	TokenEpsilon float64 `toml:"token_epsilon"`
	TitleBoost   float64 `toml:"title_boost"`
	ExactWeight  float64 `toml:"exact_weight"`
	PrefixWeight float64 `toml:"prefix_weight"`
	FuzzyWeight  float64 `toml:"fuzzy_weight"`
	Limit        int     `toml:"limit"`
}

// SourcesConfig holds the home directory of each tool. Empty values fall
// back to the tool's environment variable and then its usual location.
type SourcesConfig struct {
	Disabled     []string `toml:"disabled"`
	ClaudeHome   string   `toml:"claude_home"`
	CodexHome    string   `toml:"codex_home"`
	CopilotHome  string   `toml:"copilot_home"`
	CrushData    string   `toml:"crush_data"`
	OpenCodeData string   `toml:"opencode_data"`
	VibeHome     string   `toml:"vibe_home"`
}

// Default returns the configuration used when no file is present.
func Default() (AppConfig, error) {
	cacheDir, err := DetectCacheDir("")
	if err != nil {
		return AppConfig{}, err
	}
	w := index.DefaultWeights()
	return AppConfig{
		IndexDir: filepath.Join(cacheDir, "index"),
		LogFile:  filepath.Join(cacheDir, appName+".log"),
		Search: SearchConfig{
			TokenEpsilon: session.DefaultTokenEpsilon,
			TitleBoost:   w.Title,
			ExactWeight:  w.Exact,
			PrefixWeight: w.Prefix,
			FuzzyWeight:  w.Fuzzy,
			Limit:        index.DefaultLimit,
		},
	}, nil
}

// Load reads path over the defaults. An empty path means the default
// location, which may be absent; an explicit path must exist.
func Load(path string) (AppConfig, error) {
	cfg, err := Default()
	if err != nil {
		return cfg, err
	}
	explicit := path != ""
	if !explicit {
		path, err = DefaultConfigPath()
		if err != nil {
			return cfg, err
		}
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		if !explicit && errors.Is(err, os.ErrNotExist) {
			return cfg, cfg.Validate()
		}
		return cfg, fmt.Errorf("read config: %w", err)
	}
	var file AppConfig
	if err := toml.Unmarshal(raw, &file); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	cfg.merge(file)
	return cfg, cfg.Validate()
}

func (c *AppConfig) merge(o AppConfig) {
	setString(&c.IndexDir, o.IndexDir)
	setString(&c.LogFile, o.LogFile)
	setFloat(&c.Search.TokenEpsilon, o.Search.TokenEpsilon)
	setFloat(&c.Search.TitleBoost, o.Search.TitleBoost)
	setFloat(&c.Search.ExactWeight, o.Search.ExactWeight)
	setFloat(&c.Search.PrefixWeight, o.Search.PrefixWeight)
	setFloat(&c.Search.FuzzyWeight, o.Search.FuzzyWeight)
	if o.Search.Limit != 0 {
		c.Search.Limit = o.Search.Limit
	}
	if len(o.Sources.Disabled) > 0 {
		c.Sources.Disabled = o.Sources.Disabled
	}
	setString(&c.Sources.ClaudeHome, o.Sources.ClaudeHome)
	setString(&c.Sources.CodexHome, o.Sources.CodexHome)
	setString(&c.Sources.CopilotHome, o.Sources.CopilotHome)
	setString(&c.Sources.CrushData, o.Sources.CrushData)
	setString(&c.Sources.OpenCodeData, o.Sources.OpenCodeData)
	setString(&c.Sources.VibeHome, o.Sources.VibeHome)
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = expandHome(v)
	}
}

func setFloat(dst *float64, v float64) {
	if v != 0 {
		*dst = v
	}
}

func (c AppConfig) Validate() error {
	if c.IndexDir == "" {
		return errors.New("index_dir is empty")
	}
	if c.Search.TokenEpsilon < 0 {
		return fmt.Errorf("search.token_epsilon must not be negative, got %v", c.Search.TokenEpsilon)
	}
	if c.Search.Limit < 0 {
		return fmt.Errorf("search.limit must not be negative, got %d", c.Search.Limit)
	}
	if err := c.Weights().Validate(); err != nil {
		return fmt.Errorf("search weights: %w", err)
	}
	_, err := c.DisabledSources()
	return err
}

func (c AppConfig) Weights() index.Weights {
	return index.Weights{
		Exact:   c.Search.ExactWeight,
		Prefix:  c.Search.PrefixWeight,
		Fuzzy:   c.Search.FuzzyWeight,
		Title:   c.Search.TitleBoost,
		Content: 1,
	}
}

func (c AppConfig) DisabledSources() ([]session.Source, error) {
	out := make([]session.Source, 0, len(c.Sources.Disabled))
	for _, name := range c.Sources.Disabled {
		src, ok := session.ParseSource(name)
		if !ok {
			return nil, fmt.Errorf("sources.disabled: unknown source %q", name)
		}
		out = append(out, src)
	}
	return out, nil
}

// AdapterPaths resolves where each tool keeps its history.
func (c AppConfig) AdapterPaths() (adapters.Paths, error) {
	claude, err := DetectClaudeHome(c.Sources.ClaudeHome)
	if err != nil {
		return adapters.Paths{}, err
	}
	codex, err := DetectCodexHome(c.Sources.CodexHome)
	if err != nil {
		return adapters.Paths{}, err
	}
	copilot, err := DetectCopilotHome(c.Sources.CopilotHome)
	if err != nil {
		return adapters.Paths{}, err
	}
	crush, err := detectDataDir(c.Sources.CrushData, "CRUSH_GLOBAL_DATA", "crush")
	if err != nil {
		return adapters.Paths{}, err
	}
	opencode, err := detectDataDir(c.Sources.OpenCodeData, "OPENCODE_DATA_DIR", "opencode")
	if err != nil {
		return adapters.Paths{}, err
	}
	vibe, err := detectHome(c.Sources.VibeHome, "VIBE_HOME", ".vibe")
	if err != nil {
		return adapters.Paths{}, err
	}
	return adapters.Paths{
		Claude:        filepath.Join(claude, "projects"),
		Codex:         filepath.Join(codex, "sessions"),
		Copilot:       filepath.Join(copilot, "session-state"),
		CrushProjects: filepath.Join(crush, "projects.json"),
		OpenCode:      filepath.Join(opencode, "storage"),
		Vibe:          filepath.Join(vibe, "logs", "session"),
	}, nil
}

func DetectCodexHome(explicit string) (string, error) {
	return detectHome(explicit, "CODEX_HOME", ".codex")
}

func DetectClaudeHome(explicit string) (string, error) {
	return detectHome(explicit, "CLAUDE_HOME", ".claude")
}

func DetectCopilotHome(explicit string) (string, error) {
	return detectHome(explicit, "COPILOT_HOME", ".copilot")
}

func detectHome(explicit, env, dotDir string) (string, error) {
	if explicit != "" {
		return filepath.Clean(expandHome(explicit)), nil
	}
	if fromEnv := os.Getenv(env); fromEnv != "" {
		return filepath.Clean(fromEnv), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home directory: %w", err)
	}
	return filepath.Join(home, dotDir), nil
}

// detectDataDir follows the XDG data directory convention used by tools
// that keep state under ~/.local/share.
func detectDataDir(explicit, env, name string) (string, error) {
	if explicit != "" {
		return filepath.Clean(expandHome(explicit)), nil
	}
	if fromEnv := os.Getenv(env); fromEnv != "" {
		return filepath.Clean(fromEnv), nil
	}
	if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
		return filepath.Join(xdg, name), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home directory: %w", err)
	}
	return filepath.Join(home, ".local", "share", name), nil
}

func DetectCacheDir(explicit string) (string, error) {
	if explicit != "" {
		return filepath.Clean(expandHome(explicit)), nil
	}
	if xdg := os.Getenv("XDG_CACHE_HOME"); xdg != "" {
		return filepath.Join(xdg, appName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home directory: %w", err)
	}
	return filepath.Join(home, ".cache", appName), nil
}

func DefaultConfigPath() (string, error) {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, appName, "config.toml"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home directory: %w", err)
	}
	return filepath.Join(home, ".config", appName, "config.toml"), nil
}

func expandHome(p string) string {
	if p != "~" && !strings.HasPrefix(p, "~/") {
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return p
	}
	return filepath.Join(home, strings.TrimPrefix(p, "~"))
}
