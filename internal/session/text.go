package session

import (
	"strconv"
	"strings"
)

// Speaker markers at the start of each transcript paragraph.
const (
	UserPrefix      = "» "
	AssistantPrefix = "  "
)

// Transcript accumulates the searchable text of one session. Only user and
// assistant turns are accepted; everything else is the caller's to drop.
type Transcript struct {
	parts      []string
	size       int
	firstUser  string
	userTurns  int
	fullCapped bool
}

func (t *Transcript) AddUser(text string) {
	text = strings.TrimSpace(text)
	if text == "" || IsNonConversational(text) {
		return
	}
	t.userTurns++
	if t.firstUser == "" {
		t.firstUser = text
	}
	t.add(UserPrefix + text)
}

func (t *Transcript) AddAssistant(text string) {
	text = strings.TrimSpace(text)
	if text == "" {
		return
	}
	t.add(AssistantPrefix + text)
}

func (t *Transcript) add(s string) {
	if t.fullCapped {
		return
	}
	s = stripEmbeddedImageData(s)
	t.parts = append(t.parts, s)
	t.size += len(s) + 2
	if t.size >= MaxContentLength {
		t.fullCapped = true
	}
}

// FirstUser returns the first real human prompt, or "".
func (t *Transcript) FirstUser() string { return t.firstUser }

func (t *Transcript) UserTurns() int { return t.userTurns }

func (t *Transcript) Empty() bool { return len(t.parts) == 0 }

func (t *Transcript) String() string {
	return TruncateBytes(strings.Join(t.parts, "\n\n"), MaxContentLength)
}

// IsNonConversational reports text injected by a tool rather than typed by a
// person: environment context blocks, aborted-turn markers, slash-command
// echoes and AGENTS.md instruction dumps.
func IsNonConversational(content string) bool {
	c := strings.ToLower(strings.TrimSpace(content))
	if c == "" {
		return true
	}
	for _, prefix := range []string{
		"<environment_context>",
		"<turn_aborted>",
		"<user_instructions>",
		"<command-name>",
		"<command-message>",
		"<command-args>",
		"<local-command-stdout>",
		"<local-command-stderr>",
		"<system-reminder>",
		"caveat: the messages below were generated by the user while running local commands",
		"# agents.md instructions for ",
	} {
		if strings.HasPrefix(c, prefix) {
			return true
		}
	}
	return strings.Contains(c, "<environment_context>") && strings.Contains(c, "<cwd>")
}

func stripEmbeddedImageData(s string) string {
	if !strings.Contains(s, "data:image/") {
		return s
	}
	var b strings.Builder
	pos := 0
	for {
		i := strings.Index(s[pos:], "data:image/")
		if i < 0 {
			b.WriteString(s[pos:])
			break
		}
		start := pos + i
		b.WriteString(s[pos:start])

		marker := strings.Index(s[start:], ";base64,")
		if marker < 0 {
			b.WriteString("data:image/")
			pos = start + len("data:image/")
			continue
		}
		payloadStart := start + marker + len(";base64,")
		j := payloadStart
		for j < len(s) && isBase64Byte(s[j]) {
			j++
		}
		b.WriteString("[image omitted: ")
		b.WriteString(strconv.Itoa(j - payloadStart))
		b.WriteString(" bytes]")
		pos = j
	}
	return b.String()
}

func isBase64Byte(c byte) bool {
	switch {
	case c >= 'A' && c <= 'Z', c >= 'a' && c <= 'z', c >= '0' && c <= '9':
		return true
	case c == '+' || c == '/' || c == '=':
		return true
	default:
		return false
	}
}
