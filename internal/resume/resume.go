// Package resume hands the terminal over to a coding agent's resume command.
package resume

import (
	"errors"
	"os"
	"strings"
)

var ErrNoCommand = errors.New("no resume command")

// Quote returns s in a form a POSIX shell reads back as one word.
func Quote(s string) string {
	if s == "" {
		return "''"
	}
	if !strings.ContainsAny(s, " \t\n'\"\\$&;|<>*?()[]{}!`#~") {
		return s
	}
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}

func Join(argv []string) string {
	quoted := make([]string, 0, len(argv))
	for _, arg := range argv {
		quoted = append(quoted, Quote(arg))
	}
	return strings.Join(quoted, " ")
}

// CommandLine is the shell form of resuming argv inside dir.
func CommandLine(dir string, argv []string) string {
	if dir == "" {
		return Join(argv)
	}
	return "cd " + Quote(dir) + " && " + Join(argv)
}

// Exec changes into dir when it still exists and replaces the current
// process with argv. It only returns on failure.
func Exec(dir string, argv []string) error {
	if len(argv) == 0 {
		return ErrNoCommand
	}
	if usableDir(dir) {
		if err := os.Chdir(dir); err != nil {
			return err
		}
	}
	return execProcess(argv)
}

func usableDir(dir string) bool {
	if dir == "" {
		return false
	}
	st, err := os.Stat(dir)
	return err == nil && st.IsDir()
}
