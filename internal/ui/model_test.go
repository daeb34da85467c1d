package ui

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"sync"
	"testing"
	"time"

	"agent-resume/internal/index"
	"agent-resume/internal/indexsync"
	"agent-resume/internal/resume"
	"agent-resume/internal/session"

	"github.com/charmbracelet/bubbles/cursor"
	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
)

type fakeStore struct {
	mu      sync.Mutex
	hits    []index.Hit
	queries []index.Query
}

func (f *fakeStore) Search(_ context.Context, q index.Query) ([]index.Hit, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queries = append(f.queries, q)
	var out []index.Hit
	for _, h := range f.hits {
		if q.Source != "" && h.Source != q.Source {
			continue
		}
		if q.Text != "" && !strings.Contains(strings.ToLower(h.Title), strings.ToLower(q.Text)) {
			continue
		}
		out = append(out, h)
	}
	return out, nil
}

func (f *fakeStore) Get(_ context.Context, k session.Key) (session.Session, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, h := range f.hits {
		if h.Key() == k {
			s := h.Session
			s.Content = "» " + s.Title
			return s, true, nil
		}
	}
	return session.Session{}, false, nil
}

func (f *fakeStore) lastQuery() index.Query {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.queries[len(f.queries)-1]
}

func hit(src session.Source, id, dir string, ts int64) index.Hit {
	return index.Hit{Session: session.Session{
		ID:        id,
		Source:    src,
		Title:     "title " + id,
		Directory: dir,
		Timestamp: time.Unix(ts, 0),
		TurnCount: 1,
	}}
}

func argvFor(s session.Session) []string {
	return []string{string(s.Source), "--resume", s.ID}
}

func newTestModel(t *testing.T, opts Options) Model {
	t.Helper()
	m := NewModel(opts)
	// A blinking cursor schedules timers that would slow every keypress.
	m.search.Cursor.SetMode(cursor.CursorStatic)
	m, _ = pump(t, m, m.Init())
	return m
}

// pump runs cmd and feeds every resulting message back into the model until
// nothing is left, the way the bubbletea runtime would.
func pump(t *testing.T, m Model, cmd tea.Cmd) (Model, bool) {
	t.Helper()
	queue := []tea.Cmd{cmd}
	quit := false
	for steps := 0; len(queue) > 0; steps++ {
		if steps > 200 {
			t.Fatal("command loop did not settle")
		}
		c := queue[0]
		queue = queue[1:]
		if c == nil {
			continue
		}
		switch msg := c().(type) {
		case nil:
		case tea.BatchMsg:
			queue = append(queue, msg...)
		case tea.QuitMsg:
			quit = true
		default:
			next, nextCmd := m.Update(msg)
			m = next.(Model)
			queue = append(queue, nextCmd)
		}
	}
	return m, quit
}

func press(t *testing.T, m Model, msg tea.KeyMsg) (Model, bool) {
	t.Helper()
	next, cmd := m.Update(msg)
	return pump(t, next.(Model), cmd)
}

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func keys(in []index.Hit) []string {
	out := make([]string, 0, len(in))
	for _, h := range in {
		out = append(out, h.ID)
	}
	return out
}

func TestOrderedHitsModes(t *testing.T) {
	in := []index.Hit{
		hit(session.Claude, "s1", "/tmp/beta", 20),
		hit(session.Claude, "s2", "/tmp/alpha", 10),
		hit(session.Codex, "s3", "/tmp/alpha", 30),
		hit(session.Vibe, "s4", "", 40),
	}

	m := Model{}
	if got, want := keys(m.orderedHits(in)), []string{"s4", "s3", "s1", "s2"}; !reflect.DeepEqual(got, want) {
		t.Fatalf("default newest order mismatch: got=%v want=%v", got, want)
	}

	m.sortOldestFirst = true
	if got, want := keys(m.orderedHits(in)), []string{"s2", "s1", "s3", "s4"}; !reflect.DeepEqual(got, want) {
		t.Fatalf("oldest order mismatch: got=%v want=%v", got, want)
	}

	m.groupByDir = true
	if got, want := keys(m.orderedHits(in)), []string{"s2", "s3", "s1", "s4"}; !reflect.DeepEqual(got, want) {
		t.Fatalf("grouped+oldest order mismatch: got=%v want=%v", got, want)
	}
}

func TestGroupedModeOrdersGroupsByRecency(t *testing.T) {
	in := []index.Hit{
		hit(session.Claude, "a-old", "/tmp/alpha", 100),
		hit(session.Claude, "a-new", "/tmp/alpha", 200),
		hit(session.Claude, "z-new", "/tmp/zulu", 300),
		hit(session.Claude, "z-old", "/tmp/zulu", 250),
	}
	m := Model{groupByDir: true}
	got := keys(m.orderedHits(in))
	want := []string{"z-new", "z-old", "a-new", "a-old"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("grouped newest should prioritize most recently active group: got=%v want=%v", got, want)
	}
}

func TestOrderedHitsPreservesSearchRanking(t *testing.T) {
	in := []index.Hit{
		hit(session.Claude, "a", "", 1),
		hit(session.Claude, "b", "", 999),
		hit(session.Claude, "c", "", 5),
	}
	m := Model{sortOldestFirst: true, groupByDir: true, searchQuery: "needle"}
	got := keys(m.orderedHits(in))
	if want := []string{"a", "b", "c"}; !reflect.DeepEqual(got, want) {
		t.Fatalf("search ordering should preserve ranking: got=%v want=%v", got, want)
	}
}

func TestApplyHitsPreservesSelection(t *testing.T) {
	m := Model{list: list.New([]list.Item{}, list.NewDefaultDelegate(), 40, 20)}
	m.applyHits([]index.Hit{
		hit(session.Claude, "a", "/x", 30),
		hit(session.Claude, "b", "/x", 20),
		hit(session.Claude, "c", "/x", 10),
	})
	m.list.Select(1)
	m.selected = m.currentSelected()

	m.sortOldestFirst = true
	m.applyHits([]index.Hit{
		hit(session.Claude, "a", "/x", 30),
		hit(session.Claude, "b", "/x", 20),
		hit(session.Claude, "c", "/x", 10),
	})
	if m.selected.ID != "b" || m.currentSelected().ID != "b" {
		t.Fatalf("selection moved to %v", m.selected)
	}
	if m.list.Index() != 1 {
		t.Fatalf("list index=%d", m.list.Index())
	}
}

func TestEnterSelectsSessionForResume(t *testing.T) {
	store := &fakeStore{hits: []index.Hit{
		hit(session.Claude, "newest", "/w/a", 30),
		hit(session.Codex, "older", "/w/b", 20),
	}}
	m := newTestModel(t, Options{Store: store, ResumeCommand: argvFor})
	if len(m.list.Items()) != 2 {
		t.Fatalf("items=%d", len(m.list.Items()))
	}

	m, _ = press(t, m, tea.KeyMsg{Type: tea.KeyDown})
	if m.selected.ID != "older" {
		t.Fatalf("selected=%v", m.selected)
	}
	if _, ok := m.full[m.selected]; !ok {
		t.Fatal("selected session content not loaded")
	}

	m, quit := press(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	if !quit {
		t.Fatal("enter should quit the picker")
	}
	sel, ok := m.Selection()
	if !ok {
		t.Fatal("no selection")
	}
	if sel.Session.ID != "older" || strings.Join(sel.Argv, " ") != "codex --resume older" {
		t.Fatalf("selection=%+v", sel)
	}
}

func TestQuitWithoutSelection(t *testing.T) {
	store := &fakeStore{hits: []index.Hit{hit(session.Claude, "a", "", 1)}}
	m := newTestModel(t, Options{Store: store, ResumeCommand: argvFor})
	m, quit := press(t, m, runes("q"))
	if !quit {
		t.Fatal("q should quit")
	}
	if _, ok := m.Selection(); ok {
		t.Fatal("quit must not select a session")
	}
}

func TestTabCyclesSourceFilter(t *testing.T) {
	store := &fakeStore{hits: []index.Hit{
		hit(session.Claude, "c1", "", 3),
		hit(session.Codex, "x1", "", 2),
	}}
	m := newTestModel(t, Options{Store: store, Sources: []session.Source{session.Claude, session.Codex}})

	m, _ = press(t, m, tea.KeyMsg{Type: tea.KeyTab})
	if m.source != session.Claude || store.lastQuery().Source != session.Claude {
		t.Fatalf("source=%q query=%+v", m.source, store.lastQuery())
	}
	if len(m.list.Items()) != 1 {
		t.Fatalf("items=%d", len(m.list.Items()))
	}

	m, _ = press(t, m, tea.KeyMsg{Type: tea.KeyTab})
	m, _ = press(t, m, tea.KeyMsg{Type: tea.KeyTab})
	if m.source != "" || len(m.list.Items()) != 2 {
		t.Fatalf("source=%q items=%d", m.source, len(m.list.Items()))
	}
}

func TestLiveSearchRequeriesOnEveryEdit(t *testing.T) {
	store := &fakeStore{hits: []index.Hit{
		hit(session.Claude, "auth", "", 3),
		hit(session.Claude, "deploy", "", 2),
	}}
	m := newTestModel(t, Options{Store: store, ResumeCommand: argvFor})

	m, _ = press(t, m, runes("/"))
	if !m.searchMode {
		t.Fatal("slash should focus search")
	}
	m, _ = press(t, m, runes("a"))
	m, _ = press(t, m, runes("u"))
	if m.searchQuery != "au" || store.lastQuery().Text != "au" {
		t.Fatalf("query=%q last=%+v", m.searchQuery, store.lastQuery())
	}
	if len(m.list.Items()) != 1 || m.selected.ID != "auth" {
		t.Fatalf("items=%d selected=%v", len(m.list.Items()), m.selected)
	}

	m, _ = press(t, m, tea.KeyMsg{Type: tea.KeyEsc})
	if m.searchMode || m.searchQuery != "" || len(m.list.Items()) != 2 {
		t.Fatalf("esc should clear search: mode=%v query=%q items=%d", m.searchMode, m.searchQuery, len(m.list.Items()))
	}
}

func TestProgressEventsRefreshResults(t *testing.T) {
	store := &fakeStore{}
	ch := make(chan indexsync.Progress, 1)
	m := NewModel(Options{Store: store})
	m.syncing = true
	m.progress = ch
	m, _ = pump(t, m, m.searchCmd(m.searchSeq))
	if len(m.list.Items()) != 0 {
		t.Fatal("expected empty list before sync")
	}

	store.hits = []index.Hit{hit(session.Vibe, "v1", "", 1)}
	ch <- indexsync.Progress{Source: session.Vibe, Delta: indexsync.Delta{Added: 1}}
	close(ch)
	m, _ = pump(t, m, waitProgress(ch))

	if len(m.list.Items()) != 1 {
		t.Fatalf("items=%d after progress", len(m.list.Items()))
	}
	if m.syncing {
		t.Fatal("sync should be done after the channel closes")
	}
	if m.synced.Added != 1 || !strings.Contains(m.status, "1 new") {
		t.Fatalf("synced=%+v status=%q", m.synced, m.status)
	}
}

func TestStaleResultsAreIgnored(t *testing.T) {
	m := NewModel(Options{Store: &fakeStore{}})
	m.searchSeq = 3
	next, _ := m.Update(resultsMsg{seq: 2, hits: []index.Hit{hit(session.Claude, "old", "", 1)}})
	if got := next.(Model); len(got.list.Items()) != 0 {
		t.Fatal("stale results applied")
	}
}

func TestCopyWithoutResumeCommand(t *testing.T) {
	store := &fakeStore{hits: []index.Hit{hit(session.Crush, "c", "", 1)}}
	m := newTestModel(t, Options{Store: store})
	m, _ = press(t, m, runes("c"))
	if !errors.Is(m.err, resume.ErrNoCommand) {
		t.Fatalf("err=%v", m.err)
	}
}

func TestNextSource(t *testing.T) {
	all := []session.Source{session.Claude, session.Codex}
	tests := []struct {
		cur, want session.Source
	}{
		{cur: "", want: session.Claude},
		{cur: session.Claude, want: session.Codex},
		{cur: session.Codex, want: ""},
		{cur: session.Vibe, want: ""},
	}
	for _, tc := range tests {
		if got := nextSource(tc.cur, all); got != tc.want {
			t.Errorf("nextSource(%q)=%q, want %q", tc.cur, got, tc.want)
		}
	}
}

func TestClampLongLines(t *testing.T) {
	line := strings.Repeat("é", 50)
	out := clampLongLines("short\n"+line, 20)
	if !strings.HasPrefix(out, "short\n") || !strings.Contains(out, "[line truncated") {
		t.Fatalf("got %q", out)
	}
	if !strings.HasSuffix(out, "éééé") {
		t.Fatalf("tail cut inside a rune: %q", out)
	}
}

func TestShorten(t *testing.T) {
	if got := shorten("abcdefghij", 6); got != "abc..." {
		t.Fatalf("got %q", got)
	}
	if got := shorten("  ok  ", 6); got != "ok" {
		t.Fatalf("got %q", got)
	}
}
