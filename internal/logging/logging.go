package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/charmbracelet/log"
)

// Level returns the level for the verbosity flag.
func Level(verbose bool) log.Level {
	if verbose {
		return log.DebugLevel
	}
	return log.InfoLevel
}

// New returns a logger writing to w. Warnings and errors are always shown;
// verbose adds per-source sync details.
func New(w io.Writer, verbose bool) *log.Logger {
	return log.NewWithOptions(w, log.Options{
		Level:           Level(verbose),
		ReportTimestamp: verbose,
		TimeFormat:      time.TimeOnly,
		Prefix:          "agent-resume",
	})
}

// OpenFile returns a logger appending to path, for runs where the terminal
// belongs to the TUI.
func OpenFile(path string, verbose bool) (*log.Logger, io.Closer, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, nil, fmt.Errorf("create log dir: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("open log file: %w", err)
	}
	logger := log.NewWithOptions(f, log.Options{
		Level:           Level(verbose),
		ReportTimestamp: true,
		TimeFormat:      time.DateTime,
		Formatter:       log.LogfmtFormatter,
	})
	return logger, f, nil
}
