// Package adapters turns each coding agent's on-disk history into normalized
// session records.
package adapters

import (
	"context"
	"fmt"
	"io"

	"agent-resume/internal/session"

	"github.com/charmbracelet/log"
)

// Adapter enumerates the sessions of one tool. ListIncremental must return
// the same records as ListAll filtered by the change-token rule, plus the
// known IDs whose artifacts no longer exist.
type Adapter interface {
	Source() session.Source
	Available() bool
	ListAll(ctx context.Context) ([]session.Session, error)
	ListIncremental(ctx context.Context, known session.Known) (changed []session.Session, deleted []string, err error)
	ResumeCommand(s session.Session) []string
}

type Options struct {
	Logger  *log.Logger
	Epsilon float64
}

func (o Options) withDefaults(src session.Source) Options {
	if o.Logger == nil {
		o.Logger = log.New(io.Discard)
	}
	o.Logger = o.Logger.With("source", string(src))
	if o.Epsilon <= 0 {
		o.Epsilon = session.DefaultTokenEpsilon
	}
	return o
}

// ScanError reports a failure that prevented a whole source from being read.
// Single unreadable artifacts are logged and skipped instead.
type ScanError struct {
	Source session.Source
	Path   string
	Err    error
}

func (e *ScanError) Error() string {
	return fmt.Sprintf("%s: scan %s: %v", e.Source, e.Path, e.Err)
}

func (e *ScanError) Unwrap() error {
	return e.Err
}
