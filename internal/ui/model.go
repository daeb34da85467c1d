package ui

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"agent-resume/internal/clipboard"
	"agent-resume/internal/config"
	"agent-resume/internal/highlight"
	"agent-resume/internal/index"
	"agent-resume/internal/indexsync"
	"agent-resume/internal/report"
	"agent-resume/internal/resume"
	"agent-resume/internal/session"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// Searcher is the read side of the index.
type Searcher interface {
	Search(ctx context.Context, q index.Query) ([]index.Hit, error)
	Get(ctx context.Context, key session.Key) (session.Session, bool, error)
}

// Syncer refreshes the index in the background.
type Syncer interface {
	Start(ctx context.Context, ro indexsync.RunOptions) <-chan indexsync.Progress
}

type Options struct {
	Store Searcher
	// Sync may be nil when the index is already fresh.
	Sync        Syncer
	SyncOptions indexsync.RunOptions
	// ResumeCommand returns the argv that resumes a session.
	ResumeCommand func(session.Session) []string

	Query     string
	Source    session.Source
	Directory string
	Limit     int
	// Sources are the agent filters tab cycles through after "all".
	Sources      []session.Source
	GlamourStyle string
}

// Selection is the session the user chose to resume.
type Selection struct {
	Session session.Session
	Argv    []string
}

type Model struct {
	opts   Options
	ctx    context.Context
	cancel context.CancelFunc

	list     list.Model
	viewport viewport.Model
	help     help.Model
	spinner  spinner.Model
	search   textinput.Model
	keys     keyMap

	width  int
	height int

	syncing         bool
	progress        <-chan indexsync.Progress
	synced          indexsync.Delta
	sourcesDone     int
	searchMode      bool
	searchQuery     string
	source          session.Source
	focusOnList     bool
	showPreview     bool
	sortOldestFirst bool
	groupByDir      bool
	rendering       bool
	renderNonce     int
	searchSeq       int

	selected    session.Key
	hits        map[session.Key]index.Hit
	full        map[session.Key]session.Session
	rendered    map[string]string
	highlighted map[string]highlight.Result
	matchLines  []int
	matchCount  int
	matchIndex  int

	chosen *Selection
	status string
	err    error
}

type syncStartedMsg struct{ ch <-chan indexsync.Progress }
type progressMsg struct{ p indexsync.Progress }
type syncDoneMsg struct{}
type resultsMsg struct {
	seq  int
	hits []index.Hit
	err  error
}
type sessionMsg struct {
	key     session.Key
	session session.Session
	found   bool
	err     error
}
type renderMsg struct {
	key      session.Key
	cacheKey string
	rendered string
	nonce    int
}
type copyMsg struct {
	text string
	err  error
}

type sessionItem struct {
	hit index.Hit
	now time.Time
}

func (i sessionItem) Title() string {
	title := i.hit.Title
	if title == "" {
		title = shorten(i.hit.ID, 28)
	}
	return report.Badge(i.hit.Source) + " " + title
}

func (i sessionItem) Description() string {
	dir := "-"
	if i.hit.Directory != "" {
		dir = filepath.Base(i.hit.Directory)
	}
	return fmt.Sprintf("%s | %s | %d turns", dir, report.Age(i.now, i.hit.Timestamp), i.hit.TurnCount)
}

func (i sessionItem) FilterValue() string {
	return strings.ToLower(i.hit.Title + " " + i.hit.Directory)
}

func NewModel(opts Options) Model {
	if opts.GlamourStyle == "" {
		opts.GlamourStyle = config.DefaultGlamourStyle
	}
	if opts.Limit <= 0 {
		opts.Limit = index.DefaultLimit
	}
	if len(opts.Sources) == 0 {
		opts.Sources = session.Sources
	}

	l := list.New([]list.Item{}, list.NewDefaultDelegate(), 40, 20)
	l.Title = "Sessions"
	l.SetShowFilter(false)
	l.SetFilteringEnabled(false)
	l.SetShowStatusBar(false)
	l.SetShowHelp(false)
	l.DisableQuitKeybindings()

	vp := viewport.New(60, 20)
	vp.SetContent("Loading sessions...")

	h := help.New()
	h.ShowAll = false

	sp := spinner.New()
	sp.Spinner = spinner.Points

	ti := textinput.New()
	ti.Placeholder = "Search across sessions..."
	ti.Prompt = "/ "
	ti.CharLimit = 256

	ctx, cancel := context.WithCancel(context.Background())
	query := strings.TrimSpace(opts.Query)
	ti.SetValue(query)

	return Model{
		opts:     opts,
		ctx:      ctx,
		cancel:   cancel,
		list:     l,
		viewport: vp,
		help:     h,
		spinner:  sp,
		search:   ti,
		keys:     defaultKeys(),

		syncing:     opts.Sync != nil,
		searchQuery: query,
		source:      opts.Source,
		focusOnList: true,
		showPreview: true,
		hits:        make(map[session.Key]index.Hit),
		full:        make(map[session.Key]session.Session),
		rendered:    make(map[string]string),
		highlighted: make(map[string]highlight.Result),
		matchIndex:  -1,
	}
}

// Selection reports the session chosen with enter, if any.
func (m Model) Selection() (Selection, bool) {
	if m.chosen == nil {
		return Selection{}, false
	}
	return *m.chosen, true
}

func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{m.searchCmd(m.searchSeq)}
	if m.syncing {
		cmds = append(cmds, m.spinner.Tick, m.startSyncCmd())
	}
	return tea.Batch(cmds...)
}

func (m Model) startSyncCmd() tea.Cmd {
	return func() tea.Msg {
		return syncStartedMsg{ch: m.opts.Sync.Start(m.ctx, m.opts.SyncOptions)}
	}
}

func waitProgress(ch <-chan indexsync.Progress) tea.Cmd {
	return func() tea.Msg {
		p, ok := <-ch
		if !ok {
			return syncDoneMsg{}
		}
		return progressMsg{p: p}
	}
}

func (m Model) query() index.Query {
	return index.Query{
		Text:      m.searchQuery,
		Source:    m.source,
		Directory: m.opts.Directory,
		Limit:     m.opts.Limit,
	}
}

func (m Model) searchCmd(seq int) tea.Cmd {
	q := m.query()
	return func() tea.Msg {
		hits, err := m.opts.Store.Search(m.ctx, q)
		return resultsMsg{seq: seq, hits: hits, err: err}
	}
}

// requery issues a search whose results supersede any still in flight.
func (m *Model) requery() tea.Cmd {
	m.searchSeq++
	return m.searchCmd(m.searchSeq)
}

func (m Model) sessionCmd(k session.Key) tea.Cmd {
	if k.ID == "" {
		return nil
	}
	return func() tea.Msg {
		s, ok, err := m.opts.Store.Get(m.ctx, k)
		return sessionMsg{key: k, session: s, found: ok, err: err}
	}
}

func (m Model) resumeArgv(s session.Session) []string {
	if m.opts.ResumeCommand == nil {
		return nil
	}
	return m.opts.ResumeCommand(s)
}

func (m Model) copyCmd(k session.Key) tea.Cmd {
	hit, ok := m.hits[k]
	if !ok {
		return nil
	}
	argv := m.resumeArgv(hit.Session)
	if len(argv) == 0 {
		return func() tea.Msg { return copyMsg{err: resume.ErrNoCommand} }
	}
	text := resume.CommandLine(hit.Directory, argv)
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(m.ctx, 3*time.Second)
		defer cancel()
		return copyMsg{text: text, err: clipboard.Copy(ctx, text)}
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.resize()
		cmds = append(cmds, m.renderSelected(true))

	case syncStartedMsg:
		m.progress = msg.ch
		cmds = append(cmds, waitProgress(msg.ch))

	case progressMsg:
		m.sourcesDone++
		p := msg.p
		switch {
		case p.Err != nil:
			m.status = fmt.Sprintf("%s: %v", p.Source, p.Err)
		case p.Total() > 0:
			m.synced.Added += p.Added
			m.synced.Changed += p.Changed
			m.synced.Deleted += p.Deleted
			m.status = fmt.Sprintf("%s: +%d ~%d -%d", p.Source, p.Added, p.Changed, p.Deleted)
		}
		cmds = append(cmds, waitProgress(m.progress), m.requery())

	case syncDoneMsg:
		m.syncing = false
		m.progress = nil
		if m.synced.Total() > 0 {
			m.status = fmt.Sprintf("Index updated: %d new, %d changed, %d removed", m.synced.Added, m.synced.Changed, m.synced.Deleted)
		} else if m.status == "" {
			m.status = "Index up to date"
		}

	case resultsMsg:
		if msg.seq != m.searchSeq {
			break
		}
		if msg.err != nil {
			m.err = msg.err
			m.status = "Search failed"
			break
		}
		m.err = nil
		m.applyHits(msg.hits)
		if m.selected.ID != "" {
			if _, ok := m.full[m.selected]; ok {
				cmds = append(cmds, m.renderSelected(false))
			} else {
				cmds = append(cmds, m.sessionCmd(m.selected))
			}
		}

	case sessionMsg:
		if msg.err != nil {
			m.err = msg.err
			m.status = "Session load failed"
			break
		}
		if !msg.found {
			break
		}
		m.full[msg.key] = msg.session
		if m.selected == msg.key {
			cmds = append(cmds, m.renderSelected(true))
		}

	case copyMsg:
		if msg.err != nil {
			m.err = msg.err
			if errors.Is(msg.err, clipboard.ErrToolNotFound) {
				m.status = "Could not copy: clipboard tool not found"
			} else {
				m.status = "Could not copy: " + msg.err.Error()
			}
		} else {
			m.err = nil
			m.status = "Copied: " + msg.text
		}

	case renderMsg:
		if msg.nonce != m.renderNonce {
			break
		}
		m.rendering = false
		m.rendered[msg.cacheKey] = msg.rendered
		if m.selected == msg.key {
			m.setViewportFromRendered(msg.cacheKey, msg.rendered, true)
		}

	case tea.KeyMsg:
		if m.searchMode {
			return m.updateSearch(msg)
		}

		switch {
		case key.Matches(msg, m.keys.Quit):
			m.cancel()
			return m, tea.Quit
		case key.Matches(msg, m.keys.Resume):
			hit, ok := m.hits[m.selected]
			if !ok {
				return m, nil
			}
			argv := m.resumeArgv(hit.Session)
			if len(argv) == 0 {
				m.status = "No resume command for " + string(hit.Source)
				return m, nil
			}
			m.chosen = &Selection{Session: hit.Session, Argv: argv}
			m.cancel()
			return m, tea.Quit
		case key.Matches(msg, m.keys.Search):
			m.searchMode = true
			m.search.SetValue(m.searchQuery)
			m.search.CursorEnd()
			return m, m.search.Focus()
		case key.Matches(msg, m.keys.Esc):
			if m.searchQuery == "" {
				return m, nil
			}
			m.searchQuery = ""
			m.search.SetValue("")
			m.refreshViewportFromCache()
			return m, m.requery()
		case key.Matches(msg, m.keys.CycleSource):
			m.source = nextSource(m.source, m.opts.Sources)
			return m, m.requery()
		case key.Matches(msg, m.keys.TogglePreview):
			m.showPreview = !m.showPreview
			if !m.showPreview {
				m.focusOnList = true
			}
			m.resize()
			return m, m.renderSelected(false)
		case key.Matches(msg, m.keys.ToggleOrder):
			m.sortOldestFirst = !m.sortOldestFirst
			return m, m.requery()
		case key.Matches(msg, m.keys.ToggleGroup):
			m.groupByDir = !m.groupByDir
			return m, m.requery()
		case key.Matches(msg, m.keys.FocusLeft):
			m.focusOnList = true
			return m, nil
		case key.Matches(msg, m.keys.FocusRight):
			if m.showPreview {
				m.focusOnList = false
			}
			return m, nil
		case key.Matches(msg, m.keys.PageUp):
			if !m.focusOnList {
				m.viewport.HalfViewUp()
			}
			return m, nil
		case key.Matches(msg, m.keys.PageDown):
			if !m.focusOnList {
				m.viewport.HalfViewDown()
			}
			return m, nil
		case key.Matches(msg, m.keys.PrevMatch):
			m.jumpToMatch(-1)
			return m, nil
		case key.Matches(msg, m.keys.NextMatch):
			m.jumpToMatch(1)
			return m, nil
		case key.Matches(msg, m.keys.Copy):
			return m, m.copyCmd(m.selected)
		}

		if m.focusOnList {
			prev := m.selected
			var cmd tea.Cmd
			m.list, cmd = m.list.Update(msg)
			cmds = append(cmds, cmd)
			m.selected = m.currentSelected()
			if m.selected != prev {
				cmds = append(cmds, m.loadSelected())
			}
		} else {
			switch msg.String() {
			case "up", "k":
				m.viewport.LineUp(1)
			case "down", "j":
				m.viewport.LineDown(1)
			}
		}
	}

	if m.syncing {
		var spin tea.Cmd
		m.spinner, spin = m.spinner.Update(msg)
		cmds = append(cmds, spin)
	}

	return m, tea.Batch(cmds...)
}

// updateSearch handles keys while the search input has focus. Every edit
// re-runs the query.
func (m Model) updateSearch(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.searchMode = false
		m.searchQuery = ""
		m.search.SetValue("")
		m.search.Blur()
		m.refreshViewportFromCache()
		return m, m.requery()
	case "enter":
		m.searchMode = false
		m.search.Blur()
		return m, nil
	case "ctrl+c":
		m.cancel()
		return m, tea.Quit
	case "up", "down":
		prev := m.selected
		var cmd tea.Cmd
		m.list, cmd = m.list.Update(msg)
		m.selected = m.currentSelected()
		if m.selected != prev {
			return m, tea.Batch(cmd, m.loadSelected())
		}
		return m, cmd
	}

	before := strings.TrimSpace(m.search.Value())
	var cmds []tea.Cmd
	var cmd tea.Cmd
	m.search, cmd = m.search.Update(msg)
	cmds = append(cmds, cmd)
	if after := strings.TrimSpace(m.search.Value()); after != before {
		m.searchQuery = after
		m.refreshViewportFromCache()
		cmds = append(cmds, m.requery())
	}
	return m, tea.Batch(cmds...)
}

func nextSource(cur session.Source, all []session.Source) session.Source {
	if cur == "" {
		if len(all) == 0 {
			return ""
		}
		return all[0]
	}
	for i, src := range all {
		if src == cur && i+1 < len(all) {
			return all[i+1]
		}
	}
	return ""
}

// orderedHits applies the list's display order. Ranked search results keep
// their order; browsing is by recency, optionally grouped by directory with
// the most recently active group first.
func (m Model) orderedHits(in []index.Hit) []index.Hit {
	out := append([]index.Hit(nil), in...)
	if strings.TrimSpace(m.searchQuery) != "" {
		return out
	}
	newer := func(a, b index.Hit) bool {
		if m.sortOldestFirst {
			return a.Timestamp.Before(b.Timestamp)
		}
		return a.Timestamp.After(b.Timestamp)
	}
	if !m.groupByDir {
		sort.SliceStable(out, func(i, j int) bool { return newer(out[i], out[j]) })
		return out
	}

	groupTime := make(map[string]time.Time)
	for _, h := range out {
		t, ok := groupTime[h.Directory]
		if !ok || newer(h, index.Hit{Session: session.Session{Timestamp: t}}) {
			groupTime[h.Directory] = h.Timestamp
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Directory != b.Directory {
			// Sessions without a directory go last.
			if a.Directory == "" || b.Directory == "" {
				return b.Directory == ""
			}
			ta, tb := groupTime[a.Directory], groupTime[b.Directory]
			if !ta.Equal(tb) {
				if m.sortOldestFirst {
					return ta.Before(tb)
				}
				return ta.After(tb)
			}
			return a.Directory < b.Directory
		}
		return newer(a, b)
	})
	return out
}

func (m *Model) applyHits(in []index.Hit) {
	ordered := m.orderedHits(in)
	now := time.Now()
	items := make([]list.Item, 0, len(ordered))
	m.hits = make(map[session.Key]index.Hit, len(ordered))
	for _, h := range ordered {
		m.hits[h.Key()] = h
		items = append(items, sessionItem{hit: h, now: now})
	}
	m.list.SetItems(items)
	m.list.Title = m.listTitle(len(ordered))

	if len(ordered) == 0 {
		m.selected = session.Key{}
		m.clearMatches()
		switch {
		case m.syncing:
			m.viewport.SetContent("Indexing sessions...")
		case strings.TrimSpace(m.searchQuery) == "":
			m.viewport.SetContent("No sessions found.\n\nTip: run with --rebuild to re-read every agent's history.")
		default:
			m.viewport.SetContent("No sessions matched your search.")
		}
		return
	}

	selectIdx := 0
	for idx, h := range ordered {
		if h.Key() == m.selected {
			selectIdx = idx
			break
		}
	}
	m.list.Select(selectIdx)
	m.selected = ordered[selectIdx].Key()
}

func (m Model) listTitle(n int) string {
	scope := "all agents"
	if m.source != "" {
		scope = string(m.source)
	}
	return fmt.Sprintf("Sessions (%d, %s)", n, scope)
}

func (m *Model) currentSelected() session.Key {
	item, ok := m.list.SelectedItem().(sessionItem)
	if !ok {
		return session.Key{}
	}
	return item.hit.Key()
}

func (m *Model) loadSelected() tea.Cmd {
	if _, ok := m.full[m.selected]; ok {
		return m.renderSelected(false)
	}
	m.viewport.SetContent("Loading session...")
	m.clearMatches()
	return m.sessionCmd(m.selected)
}

func (m *Model) renderSelected(force bool) tea.Cmd {
	if !m.showPreview {
		return nil
	}
	if m.selected.ID == "" {
		m.viewport.SetContent("No session selected")
		m.clearMatches()
		return nil
	}

	s, ok := m.full[m.selected]
	if !ok {
		m.viewport.SetContent("Loading session...")
		m.clearMatches()
		return nil
	}

	cacheKey := m.renderCacheKey(m.selected)
	if !force {
		if rendered, ok := m.rendered[cacheKey]; ok {
			m.setViewportFromRendered(cacheKey, rendered, false)
			return nil
		}
	}
	m.rendering = true
	m.renderNonce++
	m.viewport.SetContent("Rendering session...")

	commandLine := ""
	if argv := m.resumeArgv(s); len(argv) > 0 {
		commandLine = resume.Join(argv)
	}
	return renderSessionCmd(s, commandLine, m.selected, cacheKey, m.opts.GlamourStyle, max(m.viewport.Width-2, 20), m.renderNonce)
}

func (m Model) renderCacheKey(k session.Key) string {
	return fmt.Sprintf("%s|w=%d", k, m.viewport.Width)
}

func (m Model) highlightCacheKey(cacheKey, query string) string {
	return cacheKey + "|q=" + strings.ToLower(strings.TrimSpace(query))
}

func (m *Model) refreshViewportFromCache() {
	if m.selected.ID == "" {
		m.clearMatches()
		return
	}
	cacheKey := m.renderCacheKey(m.selected)
	rendered, ok := m.rendered[cacheKey]
	if !ok {
		return
	}
	oldOffset := m.viewport.YOffset
	m.setViewportFromRendered(cacheKey, rendered, false)
	m.viewport.SetYOffset(m.clampViewportOffset(oldOffset))
}

func (m *Model) setViewportFromRendered(cacheKey, rendered string, gotoTop bool) {
	content := rendered
	terms := index.ParseQuery(m.searchQuery)
	if len(terms) > 0 {
		hKey := m.highlightCacheKey(cacheKey, m.searchQuery)
		res, ok := m.highlighted[hKey]
		if !ok {
			res = highlight.ApplyANSI(rendered, terms, func(s string) string {
				return searchMatchStyle.Render(s)
			})
			m.highlighted[hKey] = res
		}
		content = res.Text
		m.setMatchMeta(res)
	} else {
		m.clearMatches()
	}

	m.viewport.SetContent(content)
	if gotoTop {
		m.viewport.GotoTop()
		if len(m.matchLines) > 0 {
			m.matchIndex = 0
			m.viewport.SetYOffset(m.clampViewportOffset(m.matchLines[0]))
		}
	}
}

func (m *Model) setMatchMeta(res highlight.Result) {
	if res.Count == 0 || len(res.LineIndex) == 0 {
		m.clearMatches()
		return
	}
	m.matchCount = res.Count
	m.matchLines = append(m.matchLines[:0], res.LineIndex...)
	if m.matchIndex < 0 || m.matchIndex >= len(m.matchLines) {
		m.matchIndex = 0
	}
}

func (m *Model) clearMatches() {
	m.matchLines = nil
	m.matchCount = 0
	m.matchIndex = -1
}

func (m *Model) jumpToMatch(delta int) {
	if len(m.matchLines) == 0 {
		m.status = "No search matches in preview"
		return
	}

	if m.matchIndex < 0 || m.matchIndex >= len(m.matchLines) {
		m.matchIndex = 0
	} else if delta > 0 {
		m.matchIndex = (m.matchIndex + 1) % len(m.matchLines)
	} else if delta < 0 {
		m.matchIndex = (m.matchIndex - 1 + len(m.matchLines)) % len(m.matchLines)
	}

	line := m.matchLines[m.matchIndex]
	m.viewport.SetYOffset(m.clampViewportOffset(line))
	m.status = fmt.Sprintf("Match %d/%d", m.matchIndex+1, len(m.matchLines))
}

func (m *Model) clampViewportOffset(offset int) int {
	if offset < 0 {
		return 0
	}
	maxOffset := max(m.viewport.TotalLineCount()-m.viewport.Height, 0)
	return min(offset, maxOffset)
}

func (m *Model) resize() {
	if m.width <= 0 || m.height <= 0 {
		return
	}
	left, right := m.paneWidths()
	bodyHeight := max(m.height-3, 8)

	m.list.SetSize(left-2, bodyHeight-2)
	m.viewport.Width = right - 2
	m.viewport.Height = bodyHeight - 2
}

func (m Model) View() string {
	if m.width == 0 || m.height == 0 {
		return "Starting..."
	}

	left, right := m.paneWidths()
	bodyHeight := max(m.height-3, 8)
	body := panelStyle(m.focusOnList).Width(left).Height(bodyHeight).Render(m.list.View())
	if m.showPreview {
		rightPane := panelStyle(!m.focusOnList).Width(right).Height(bodyHeight).Render(m.viewport.View())
		body = lipgloss.JoinHorizontal(lipgloss.Top, body, rightPane)
	}

	searchLine := m.search.View()
	if !m.searchMode {
		searchLine = "search: " + m.searchQuery
		if m.searchQuery == "" {
			searchLine = "press / to search"
		}
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		m.statusLine(),
		searchLine,
		body,
		m.help.View(m.keys),
	)
}

func (m Model) statusLine() string {
	var parts []string
	if m.syncing {
		parts = append(parts, fmt.Sprintf("%s indexing %d/%d", m.spinner.View(), m.sourcesDone, len(m.opts.Sources)))
	}
	if hit, ok := m.hits[m.selected]; ok {
		parts = append(parts, fmt.Sprintf("%s  %s", hit.Source, shorten(hit.ID, 18)))
	}
	if m.source != "" {
		parts = append(parts, "[agent "+string(m.source)+"]")
	}
	if m.opts.Directory != "" {
		parts = append(parts, "[dir "+m.opts.Directory+"]")
	}
	if strings.TrimSpace(m.searchQuery) != "" && m.matchCount > 0 {
		parts = append(parts, fmt.Sprintf("[match %d/%d]", max(m.matchIndex+1, 1), len(m.matchLines)))
	}
	if m.sortOldestFirst {
		parts = append(parts, "[oldest first]")
	}
	if m.groupByDir {
		parts = append(parts, "[grouped]")
	}
	if m.rendering {
		parts = append(parts, "[rendering]")
	}
	if s := strings.TrimSpace(m.status); s != "" {
		parts = append(parts, shorten(s, 80))
	}
	if m.err != nil {
		parts = append(parts, "err="+m.err.Error())
	}
	return statusStyle.Render(strings.Join(parts, "  "))
}

func (m *Model) paneWidths() (int, int) {
	if !m.showPreview {
		return m.width, 0
	}
	left := m.width / 3
	if left < 32 {
		left = 32
	}
	if left > m.width-32 {
		left = m.width - 32
	}
	if left < 20 {
		left = 20
	}
	right := max(m.width-left-1, 20)
	return left, right
}

var (
	statusStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("252")).
			Background(lipgloss.Color("24")).
			Padding(0, 1)
	searchMatchStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("16")).
				Background(lipgloss.Color("220"))
)

func panelStyle(active bool) lipgloss.Style {
	border := lipgloss.NormalBorder()
	if active {
		return lipgloss.NewStyle().
			Border(border, true).
			BorderForeground(lipgloss.Color("39")).
			Padding(0, 1)
	}
	return lipgloss.NewStyle().
		Border(border, true).
		BorderForeground(lipgloss.Color("240")).
		Padding(0, 1)
}
