// Package analytics turns a flat ledger into the derived views of the
// finance dashboard: summary, monthly trend, category breakdown, money flow
// graph and weekday heatmap.
//
// The engine is pure. Every call normalizes the full ledger once, fans the
// normalized entries out to independent builders and assembles a fresh
// Snapshot. Nothing is cached or shared between calls, so concurrent calls
// for different ledgers are safe.
package analytics

import (
	"fmt"

	"golang.org/x/sync/errgroup"

	"fluxo/internal/core"
)

// Engine computes snapshots with a fixed, validated set of options.
type Engine struct {
	opts Options
}

// NewEngine validates opts and returns an engine bound to them.
func NewEngine(opts Options) (*Engine, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	dest := make(map[string]Subtype, len(opts.Destinations))
	for k, v := range opts.Destinations {
		dest[k] = v
	}
	opts.Destinations = dest
	opts.Palette = append([]string(nil), opts.Palette...)
	return &Engine{opts: opts}, nil
}

// Options returns a copy of the engine options.
func (e *Engine) Options() Options {
	o := e.opts
	o.Palette = append([]string(nil), e.opts.Palette...)
	o.Destinations = make(map[string]Subtype, len(e.opts.Destinations))
	for k, v := range e.opts.Destinations {
		o.Destinations[k] = v
	}
	return o
}

// Compute builds one snapshot from raw ledger entries and an optional goal.
//
// A negative goal amount is a caller error and rejects the call before any
// work is done. Malformed entries are skipped and reported in the result.
// If any builder fails the whole snapshot is discarded; partial snapshots
// are never returned.
func (e *Engine) Compute(raw []core.RawTransaction, goal *core.GoalDescriptor) (*Result, error) {
	if goal != nil {
		if err := goal.Validate(); err != nil {
			return nil, newConfigError(ErrInvalidGoal, "goal", err.Error())
		}
	}

	norm := Normalize(raw, e.opts)
	entries := norm.Entries

	var (
		snap Snapshot
		g    errgroup.Group
	)
	g.Go(func() error {
		snap.Summary = Summarize(entries, goal)
		return nil
	})
	g.Go(func() error {
		snap.Monthly = BucketMonths(entries, e.opts.WindowMonths)
		return nil
	})
	g.Go(func() error {
		snap.Categories = AggregateCategories(entries, e.opts.Palette, e.opts.ColorPolicy)
		return nil
	})
	g.Go(func() error {
		flow, err := BuildMoneyFlow(entries, e.opts.Destinations)
		if err != nil {
			return fmt.Errorf("money flow: %w", err)
		}
		snap.MoneyFlow = flow
		return nil
	})
	g.Go(func() error {
		snap.Heatmap = BuildHeatmap(entries, e.opts.TopCategories, e.opts.OtherLabel, e.opts.WeekStart)
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return &Result{Snapshot: snap, Skipped: norm.Skipped}, nil
}

// ComputeSnapshot runs the engine with DefaultOptions.
func ComputeSnapshot(raw []core.RawTransaction, goal *core.GoalDescriptor) (*Result, error) {
	e, err := NewEngine(DefaultOptions())
	if err != nil {
		return nil, err
	}
	return e.Compute(raw, goal)
}
