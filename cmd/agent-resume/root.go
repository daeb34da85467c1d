package main

import (
	"context"
	"fmt"
	"io"
	"strings"

	"agent-resume/internal/adapters"
	"agent-resume/internal/config"
	"agent-resume/internal/index"
	"agent-resume/internal/indexsync"
	"agent-resume/internal/logging"
	"agent-resume/internal/report"
	"agent-resume/internal/resume"
	"agent-resume/internal/session"
	"agent-resume/internal/ui"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
)

type rootOptions struct {
	agent      string
	directory  string
	limit      int
	list       bool
	noTUI      bool
	format     string
	rebuild    bool
	stats      bool
	verbose    bool
	configPath string
	indexDir   string
}

func newRootCommand(version string) *cobra.Command {
	var opts rootOptions
	cmd := &cobra.Command{
		Use:   "agent-resume [query...]",
		Short: "Search and resume coding agent sessions",
		Long: "agent-resume indexes the session history of claude, codex, copilot, crush,\n" +
			"opencode and vibe, searches it with typo-tolerant matching, and resumes the\n" +
			"chosen session in its original directory.",
		Args:          cobra.ArbitraryArgs,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("limit") {
				opts.limit = 0
			}
			return runRoot(cmd.Context(), opts, args, cmd.OutOrStdout(), cmd.ErrOrStderr())
		},
	}

	f := cmd.Flags()
	f.StringVarP(&opts.agent, "agent", "a", "", "only show sessions of this agent ("+sourceNames()+")")
	f.StringVarP(&opts.directory, "directory", "d", "", "only show sessions whose directory contains this text")
	f.IntVarP(&opts.limit, "limit", "n", index.DefaultLimit, "maximum number of results")
	f.BoolVar(&opts.list, "list", false, "print results instead of opening the picker")
	f.BoolVar(&opts.noTUI, "no-tui", false, "alias for --list")
	f.StringVar(&opts.format, "format", "table", "output format for --list and --stats: table, json or yaml")
	f.BoolVar(&opts.rebuild, "rebuild", false, "discard the index and re-read every agent's history")
	f.BoolVar(&opts.stats, "stats", false, "print index statistics")
	f.BoolVarP(&opts.verbose, "verbose", "v", false, "log per-source sync details")
	f.StringVar(&opts.configPath, "config", "", "path to config file")
	f.StringVar(&opts.indexDir, "index-dir", "", "override the index directory")
	return cmd
}

func sourceNames() string {
	names := make([]string, 0, len(session.Sources))
	for _, src := range session.Sources {
		names = append(names, string(src))
	}
	return strings.Join(names, ", ")
}

// app bundles what every mode needs once configuration is resolved.
type app struct {
	cfg      config.AppConfig
	logger   *log.Logger
	store    *index.Store
	adapters []adapters.Adapter
	orch     *indexsync.Orchestrator
	closers  []io.Closer
}

func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		_ = a.closers[i].Close()
	}
	a.closers = nil
}

func (a *app) resumeArgv(s session.Session) []string {
	if ad := adapters.ForSource(a.adapters, s.Source); ad != nil {
		return ad.ResumeCommand(s)
	}
	return nil
}

func (a *app) resumeLine(s session.Session) string {
	argv := a.resumeArgv(s)
	if len(argv) == 0 {
		return ""
	}
	return resume.CommandLine(s.Directory, argv)
}

func (a *app) sources() []session.Source {
	out := make([]session.Source, 0, len(a.adapters))
	for _, ad := range a.adapters {
		out = append(out, ad.Source())
	}
	return out
}

func openApp(opts rootOptions, interactive bool, stderr io.Writer) (*app, error) {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return nil, err
	}
	if opts.indexDir != "" {
		cfg.IndexDir = opts.indexDir
	}
	if opts.limit > 0 {
		cfg.Search.Limit = opts.limit
	}

	a := &app{cfg: cfg}
	if interactive {
		logger, closer, err := logging.OpenFile(cfg.LogFile, opts.verbose)
		if err != nil {
			return nil, err
		}
		a.logger = logger
		a.closers = append(a.closers, closer)
	} else {
		a.logger = logging.New(stderr, opts.verbose)
	}

	store, err := index.Open(cfg.IndexDir, index.Options{Weights: cfg.Weights(), Rebuild: opts.rebuild})
	if err != nil {
		a.Close()
		return nil, err
	}
	a.closers = append(a.closers, store)
	a.store = store
	if store.Rebuilt() {
		a.logger.Info("index rebuilt", "dir", store.Dir())
	}

	paths, err := cfg.AdapterPaths()
	if err != nil {
		a.Close()
		return nil, err
	}
	disabled, err := cfg.DisabledSources()
	if err != nil {
		a.Close()
		return nil, err
	}
	a.adapters = adapters.All(paths, disabled, adapters.Options{Logger: a.logger, Epsilon: cfg.Search.TokenEpsilon})
	a.orch = indexsync.New(store, a.adapters, indexsync.Options{Epsilon: cfg.Search.TokenEpsilon, Logger: a.logger})
	return a, nil
}

func runRoot(ctx context.Context, opts rootOptions, args []string, stdout, stderr io.Writer) error {
	if ctx == nil {
		ctx = context.Background()
	}
	var src session.Source
	if opts.agent != "" {
		var ok bool
		if src, ok = session.ParseSource(opts.agent); !ok {
			return fmt.Errorf("unknown agent %q (want one of %s)", opts.agent, sourceNames())
		}
	}
	format, err := report.ParseFormat(opts.format)
	if err != nil {
		return err
	}
	query := strings.TrimSpace(strings.Join(args, " "))
	listOnly := opts.list || opts.noTUI
	interactive := !listOnly && !opts.stats

	a, err := openApp(opts, interactive, stderr)
	if err != nil {
		return err
	}
	defer a.Close()

	ro := indexsync.RunOptions{Full: opts.rebuild}
	if interactive && !(opts.rebuild && query == "") {
		return runPicker(ctx, a, ro, query, src, opts.directory)
	}

	sum := a.orch.Run(ctx, ro, nil)
	a.logger.Debug("sync finished",
		"added", sum.Added,
		"changed", sum.Changed,
		"deleted", sum.Deleted,
		"elapsed", sum.Elapsed,
	)
	if len(sum.Failed) > 0 {
		a.logger.Warn("some agents could not be read", "sources", sum.Failed)
	}

	switch {
	case opts.stats:
		return printStats(ctx, a.store, format, stdout)
	case listOnly:
		return printList(ctx, a, index.Query{
			Text:      query,
			Source:    src,
			Directory: opts.directory,
			Limit:     a.cfg.Search.Limit,
		}, format, stdout)
	default:
		n, err := a.store.Count(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintf(stdout, "Index rebuilt: %d sessions.\n", n)
		return nil
	}
}

func printList(ctx context.Context, a *app, q index.Query, format report.Format, w io.Writer) error {
	hits, err := a.store.Search(ctx, q)
	if err != nil {
		return err
	}
	entries := report.Entries(hits, a.resumeLine)
	switch format {
	case report.FormatJSON:
		return report.WriteJSON(w, entries)
	case report.FormatYAML:
		return report.WriteYAML(w, entries)
	}
	if len(entries) == 0 {
		fmt.Fprintln(w, "No sessions found.")
		return nil
	}
	fmt.Fprintln(w, report.Table(entries, report.TableOptions{Width: terminalWidth(w)}))
	return nil
}

func printStats(ctx context.Context, store *index.Store, format report.Format, w io.Writer) error {
	st, err := store.Stats(ctx, index.DefaultTopDirectories)
	if err != nil {
		return err
	}
	switch format {
	case report.FormatJSON:
		return report.WriteJSON(w, st)
	case report.FormatYAML:
		return report.WriteYAML(w, st)
	}
	md := report.StatsMarkdown(st)
	if !isTerminal(w) {
		_, err := io.WriteString(w, md)
		return err
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle(config.DefaultGlamourStyle),
		glamour.WithWordWrap(max(terminalWidth(w)-4, 40)),
	)
	if err != nil {
		return fmt.Errorf("create markdown renderer: %w", err)
	}
	out, err := r.Render(md)
	if err != nil {
		return fmt.Errorf("render stats: %w", err)
	}
	_, err = io.WriteString(w, out)
	return err
}

// runPicker opens the TUI while the index syncs in the background, then
// hands the terminal to the chosen session's agent.
func runPicker(ctx context.Context, a *app, ro indexsync.RunOptions, query string, src session.Source, dir string) error {
	m := ui.NewModel(ui.Options{
		Store:         a.store,
		Sync:          a.orch,
		SyncOptions:   ro,
		ResumeCommand: a.resumeArgv,
		Query:         query,
		Source:        src,
		Directory:     dir,
		Limit:         a.cfg.Search.Limit,
		Sources:       a.sources(),
		GlamourStyle:  config.DefaultGlamourStyle,
	})
	final, err := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx)).Run()
	if err != nil {
		return fmt.Errorf("run picker: %w", err)
	}
	fm, ok := final.(ui.Model)
	if !ok {
		return nil
	}
	sel, ok := fm.Selection()
	if !ok {
		return nil
	}
	a.logger.Info("resuming session", "session", sel.Session.Key().String(), "dir", sel.Session.Directory)
	// Exec does not return on success, so release the index first.
	a.Close()
	return resume.Exec(sel.Session.Directory, sel.Argv)
}
