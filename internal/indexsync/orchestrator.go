package indexsync

import (
	"context"
	"io"
	"time"

	"agent-resume/internal/adapters"
	"agent-resume/internal/session"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"
)

// Progress is emitted once per source, in completion order.
type Progress struct {
	Source session.Source
	Delta
	Unavailable bool
	Err         error
	Elapsed     time.Duration
}

type Summary struct {
	Delta
	Sources int
	Failed  []session.Source
	Elapsed time.Duration
}

type Options struct {
	Epsilon float64
	Logger  *log.Logger
}

type RunOptions struct {
	// Full lists every artifact instead of asking for changes only.
	Full bool
}

type Orchestrator struct {
	store    Store
	adapters []adapters.Adapter
	coord    Coordinator
	logger   *log.Logger
}

func New(store Store, list []adapters.Adapter, opts Options) *Orchestrator {
	logger := opts.Logger
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &Orchestrator{
		store:    store,
		adapters: list,
		coord:    Coordinator{Epsilon: opts.Epsilon},
		logger:   logger,
	}
}

// Start syncs every adapter concurrently. Each source's batch is applied as
// soon as that source finishes, so the index is queryable throughout. The
// returned channel is closed after the last source reports.
func (o *Orchestrator) Start(ctx context.Context, ro RunOptions) <-chan Progress {
	ch := make(chan Progress, len(o.adapters))
	go func() {
		defer close(ch)
		var g errgroup.Group
		g.SetLimit(max(len(o.adapters), 1))
		for _, a := range o.adapters {
			a := a
			g.Go(func() error {
				ch <- o.syncOne(ctx, a, ro)
				return nil
			})
		}
		_ = g.Wait()
	}()
	return ch
}

// Run is the blocking form of Start. observer may be nil.
func (o *Orchestrator) Run(ctx context.Context, ro RunOptions, observer func(Progress)) Summary {
	start := time.Now()
	var sum Summary
	for p := range o.Start(ctx, ro) {
		sum.Sources++
		sum.add(p.Delta)
		if p.Err != nil {
			sum.Failed = append(sum.Failed, p.Source)
		}
		if observer != nil {
			observer(p)
		}
	}
	sum.Elapsed = time.Since(start)
	return sum
}

func (o *Orchestrator) syncOne(ctx context.Context, a adapters.Adapter, ro RunOptions) Progress {
	start := time.Now()
	src := a.Source()
	logger := o.logger.With("source", string(src))

	out, err := o.coord.Sync(ctx, o.store, a, ro.Full)
	p := Progress{Source: src, Delta: out.Delta, Unavailable: out.Unavailable, Err: err, Elapsed: time.Since(start)}
	switch {
	case err != nil:
		p.Delta = Delta{}
		logger.Warn("source sync failed", "err", err)
	case out.Unavailable && out.Total() == 0:
		logger.Debug("source not installed")
	default:
		logger.Debug("source synced",
			"added", p.Added,
			"changed", p.Changed,
			"deleted", p.Deleted,
			"elapsed", p.Elapsed.Round(time.Millisecond),
		)
	}
	return p
}
