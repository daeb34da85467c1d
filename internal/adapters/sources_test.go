package adapters

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"agent-resume/internal/session"
)

func TestCodexPrefersPromptEvents(t *testing.T) {
	root := t.TempDir()
	path := filepath.Join(root, "2025", "11", "27", "rollout-2025-11-27T09-23-19-019ac5e9-684f-7741-9974-4246554edb05.jsonl")
	writeFile(t, path, lines(
		`{"timestamp":"2025-11-27T15:23:19.000Z","type":"session_meta","payload":{"id":"019ac5e9-684f-7741-9974-4246554edb05","cwd":"/Users/dev/svc"}}`,
		`{"type":"response_item","payload":{"type":"message","role":"user","content":[{"type":"input_text","text":"<environment_context>\n<cwd>/Users/dev/svc</cwd>\n</environment_context>"}]}}`,
		`{"type":"response_item","payload":{"type":"message","role":"user","content":[{"type":"input_text","text":"begin phase 4 of the migration"}]}}`,
		`{"type":"event_msg","payload":{"type":"user_message","message":"begin phase 4 of the migration","images":[]}}`,
		`{"type":"event_msg","payload":{"type":"agent_reasoning","text":"private chain of thought"}}`,
		`{"type":"response_item","payload":{"type":"function_call","name":"shell","arguments":"{\"cmd\":\"ls\"}"}}`,
		`{"type":"response_item","payload":{"type":"message","role":"assistant","content":[{"type":"output_text","text":"Phase 4 is done."}]}}`,
	))

	c := NewCodex(root, Options{})
	got, err := c.ListAll(context.Background())
	if err != nil || len(got) != 1 {
		t.Fatalf("got=%v err=%v", got, err)
	}
	s := got[0]
	if s.ID != "019ac5e9-684f-7741-9974-4246554edb05" {
		t.Errorf("id=%q", s.ID)
	}
	if s.Directory != "/Users/dev/svc" {
		t.Errorf("directory=%q", s.Directory)
	}
	if s.TurnCount != 1 {
		t.Errorf("turns=%d, want 1", s.TurnCount)
	}
	if strings.Count(s.Content, "begin phase 4") != 1 {
		t.Errorf("prompt should appear once: %q", s.Content)
	}
	for _, banned := range []string{"environment_context", "chain of thought", "shell"} {
		if strings.Contains(s.Content, banned) {
			t.Errorf("content contains %q", banned)
		}
	}
	if !strings.Contains(s.Content, "Phase 4 is done.") {
		t.Errorf("assistant text missing: %q", s.Content)
	}
	if cmd := strings.Join(c.ResumeCommand(s), " "); cmd != "codex resume "+s.ID {
		t.Errorf("resume=%q", cmd)
	}
}

func TestCodexFallsBackToResponseItems(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "rollout-old.jsonl"), lines(
		`{"type":"response_item","payload":{"type":"message","role":"user","content":[{"type":"input_text","text":"legacy prompt"}]}}`,
	))
	got, err := NewCodex(root, Options{}).ListAll(context.Background())
	if err != nil || len(got) != 1 {
		t.Fatalf("got=%v err=%v", got, err)
	}
	if got[0].ID != "rollout-old" || got[0].Title != "legacy prompt" {
		t.Fatalf("got %+v", got[0])
	}
}

func TestCopilotSession(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "c0ffee.jsonl"), lines(
		`{"type":"session.start","data":{"sessionId":"c0ffee"}}`,
		`{"type":"session.info","data":{"infoType":"folder_trust","message":"Folder /home/me/site has been added to trusted folders."}}`,
		`{"type":"user.message","data":{"content":"make the navbar sticky"}}`,
		`{"type":"tool.execution_start","data":{"toolName":"bash"}}`,
		`{"type":"assistant.message","data":{"content":"Added position: sticky."}}`,
		`{"type":"user.message","data":{"content":"and a shadow"}}`,
	))
	c := NewCopilot(root, Options{})
	got, err := c.ListAll(context.Background())
	if err != nil || len(got) != 1 {
		t.Fatalf("got=%v err=%v", got, err)
	}
	s := got[0]
	if s.Directory != "/home/me/site" || s.TurnCount != 2 || s.Title != "make the navbar sticky" {
		t.Fatalf("got %+v", s)
	}
	if cmd := strings.Join(c.ResumeCommand(s), " "); cmd != "copilot --resume c0ffee" {
		t.Errorf("resume=%q", cmd)
	}
}

func TestVibeSession(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "session_20250101_120000_ab12cd34.json"), `{
		"metadata": {"session_id": "ab12cd34-full", "environment": {"working_directory": "/code/ml"}},
		"messages": [
			{"role": "system", "content": "you are vibe"},
			{"role": "user", "content": "train a tiny model"},
			{"role": "assistant", "content": [{"type": "text", "text": "Training now."}]},
			{"role": "tool", "content": "epoch 1 loss 0.3"}
		]
	}`)
	writeFile(t, filepath.Join(root, "notes.json"), `{}`)

	v := NewVibe(root, Options{})
	got, err := v.ListAll(context.Background())
	if err != nil || len(got) != 1 {
		t.Fatalf("got=%v err=%v", got, err)
	}
	s := got[0]
	if s.ID != "session_20250101_120000_ab12cd34" || s.Directory != "/code/ml" {
		t.Fatalf("got %+v", s)
	}
	if strings.Contains(s.Content, "you are vibe") || strings.Contains(s.Content, "epoch") {
		t.Errorf("content=%q", s.Content)
	}
	if cmd := strings.Join(v.ResumeCommand(s), " "); cmd != "vibe --resume ab12cd34" {
		t.Errorf("resume=%q", cmd)
	}
}

func TestVibeMalformedFileIsSkipped(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "session_bad.json"), `{"messages": [`)
	got, err := NewVibe(root, Options{}).ListAll(context.Background())
	if err != nil {
		t.Fatalf("malformed artifact must not fail the source: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("got %v", got)
	}
}

func TestOpenCodeSession(t *testing.T) {
	storage := t.TempDir()
	writeFile(t, filepath.Join(storage, "session", "proj1", "ses_1.json"),
		`{"id":"ses_1","title":"Fix flaky CI","directory":"/repos/ci","time":{"created":1735732800000,"updated":1735736400000}}`)
	writeFile(t, filepath.Join(storage, "message", "ses_1", "msg_b.json"), `{"id":"msg_b","role":"assistant","time":{"created":2}}`)
	writeFile(t, filepath.Join(storage, "message", "ses_1", "msg_a.json"), `{"id":"msg_a","role":"user","time":{"created":1}}`)
	writeFile(t, filepath.Join(storage, "part", "msg_a", "prt_1.json"), `{"type":"text","text":"why does CI time out"}`)
	writeFile(t, filepath.Join(storage, "part", "msg_a", "prt_2.json"), `{"type":"text","text":"injected file list","synthetic":true}`)
	writeFile(t, filepath.Join(storage, "part", "msg_b", "prt_1.json"), `{"type":"tool","tool":"bash"}`)
	writeFile(t, filepath.Join(storage, "part", "msg_b", "prt_2.json"), `{"type":"text","text":"The cache step hangs."}`)

	o := NewOpenCode(storage, Options{})
	got, err := o.ListAll(context.Background())
	if err != nil || len(got) != 1 {
		t.Fatalf("got=%v err=%v", got, err)
	}
	s := got[0]
	if s.ID != "ses_1" || s.Title != "Fix flaky CI" || s.Directory != "/repos/ci" {
		t.Fatalf("got %+v", s)
	}
	want := "» why does CI time out\n\n  The cache step hangs."
	if s.Content != want {
		t.Errorf("content=%q, want %q", s.Content, want)
	}
	if cmd := strings.Join(o.ResumeCommand(s), " "); cmd != "opencode /repos/ci --session ses_1" {
		t.Errorf("resume=%q", cmd)
	}
}

func TestAllHonorsDisabledSources(t *testing.T) {
	list := All(Paths{}, []session.Source{session.Crush, session.Vibe}, Options{})
	if len(list) != 4 {
		t.Fatalf("got %d adapters", len(list))
	}
	if ForSource(list, session.Crush) != nil {
		t.Fatal("disabled adapter present")
	}
	if a := ForSource(list, session.Codex); a == nil || a.Source() != session.Codex {
		t.Fatal("codex adapter missing")
	}
}

func TestParseTime(t *testing.T) {
	tests := []struct {
		in   any
		want int64
	}{
		{in: float64(1735732800), want: 1735732800},
		{in: float64(1735732800000), want: 1735732800},
		{in: "2025-01-01T12:00:00Z", want: 1735732800},
		{in: "1735732800", want: 1735732800},
	}
	for _, tc := range tests {
		got, ok := parseTime(tc.in)
		if !ok || got.Unix() != tc.want {
			t.Errorf("parseTime(%v)=%v,%v want %d", tc.in, got, ok, tc.want)
		}
	}
	if _, ok := parseTime(nil); ok {
		t.Error("nil parsed")
	}
}
