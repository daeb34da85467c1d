// Package indexsync keeps the index in step with the adapters' artifacts.
package indexsync

import (
	"context"
	"fmt"
	"sort"

	"agent-resume/internal/adapters"
	"agent-resume/internal/index"
	"agent-resume/internal/session"
)

// Store is the part of the index the sync protocol needs.
type Store interface {
	Known(ctx context.Context, src session.Source) (session.Known, error)
	Apply(ctx context.Context, b index.Batch) error
}

type Delta struct {
	Added   int
	Changed int
	Deleted int
}

func (d Delta) Total() int { return d.Added + d.Changed + d.Deleted }

func (d *Delta) add(o Delta) {
	d.Added += o.Added
	d.Changed += o.Changed
	d.Deleted += o.Deleted
}

// Coordinator computes and applies the per-source delta.
type Coordinator struct {
	Epsilon float64
}

func (c Coordinator) epsilon() float64 {
	if c.Epsilon <= 0 {
		return session.DefaultTokenEpsilon
	}
	return c.Epsilon
}

// Scan asks the adapter for changes. With nothing known, or when full is
// set, every artifact is listed and deletions are derived from known.
func (c Coordinator) Scan(ctx context.Context, a adapters.Adapter, known session.Known, full bool) ([]session.Session, []string, error) {
	if len(known) > 0 && !full {
		return a.ListIncremental(ctx, known)
	}
	all, err := a.ListAll(ctx)
	if err != nil {
		return nil, nil, err
	}
	listed := make(map[string]struct{}, len(all))
	for _, s := range all {
		listed[s.ID] = struct{}{}
	}
	var deleted []string
	for id := range known {
		if _, ok := listed[id]; !ok {
			deleted = append(deleted, id)
		}
	}
	sort.Strings(deleted)
	return all, deleted, nil
}

// Plan turns scan output into a batch. Records whose token did not move
// are dropped, duplicate IDs keep the last record, and deletions of
// unknown or re-emitted IDs are ignored.
func (c Coordinator) Plan(src session.Source, known session.Known, changed []session.Session, deleted []string) (index.Batch, Delta) {
	b := index.Batch{Source: src}
	var d Delta
	pos := make(map[string]int, len(changed))
	for _, s := range changed {
		if s.ID == "" {
			continue
		}
		s.Source = src
		prev, wasKnown := known[s.ID]
		if wasKnown && !session.TokenChanged(prev, s.ChangeToken, c.epsilon()) {
			continue
		}
		s = s.Normalize()
		if i, dup := pos[s.ID]; dup {
			b.Upserts[i] = s
			continue
		}
		pos[s.ID] = len(b.Upserts)
		b.Upserts = append(b.Upserts, s)
		if wasKnown {
			d.Changed++
		} else {
			d.Added++
		}
	}

	dropped := make(map[string]struct{}, len(deleted))
	for _, id := range deleted {
		if _, ok := known[id]; !ok {
			continue
		}
		if _, ok := pos[id]; ok {
			continue
		}
		if _, ok := dropped[id]; ok {
			continue
		}
		dropped[id] = struct{}{}
		b.Deletes = append(b.Deletes, id)
		d.Deleted++
	}
	return b, d
}

// Outcome is the result of syncing one source.
type Outcome struct {
	Delta
	Unavailable bool
}

// Sync runs one source end to end: load known tokens, scan, plan, apply.
// Nothing is written unless the whole batch is.
func (c Coordinator) Sync(ctx context.Context, store Store, a adapters.Adapter, full bool) (Outcome, error) {
	src := a.Source()
	known, err := store.Known(ctx, src)
	if err != nil {
		return Outcome{}, fmt.Errorf("load known tokens: %w", err)
	}
	if !a.Available() && len(known) == 0 {
		return Outcome{Unavailable: true}, nil
	}

	changed, deleted, err := c.Scan(ctx, a, known, full)
	if err != nil {
		return Outcome{}, err
	}
	batch, delta := c.Plan(src, known, changed, deleted)
	if err := store.Apply(ctx, batch); err != nil {
		return Outcome{}, fmt.Errorf("apply batch: %w", err)
	}
	return Outcome{Delta: delta, Unavailable: !a.Available()}, nil
}
