// Copyright 2024 Adxquery. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

// Package query implements a streaming filter-driven search over a decoded
// snapshot: evaluate the filter tree against each entry in storage order,
// yield matches lazily, and record statistics when each search completes.
package query

import (
	"context"
	"iter"
	"strings"
	"time"

	"github.com/adxquery/adxquery/filter"
	"github.com/adxquery/adxquery/internal/logging"
	"github.com/adxquery/adxquery/snapshot"
)

// Stats is a snapshot of the counters produced by the most recently
// completed call to Search. It is not updated while a search is in
// progress; callers that need partial progress should count matches
// themselves while ranging over Search's sequence.
type Stats struct {
	EntriesEvaluated int
	Matches          int
	Duration         time.Duration
}

// Engine binds a decoded snapshot, a parsed filter tree, and a set of
// search options (attribute selection, result limit, case-folding flag)
// into a single reusable query.
type Engine struct {
	dec  *snapshot.Decoder
	root filter.Node

	ignoreCase bool
	limit      int

	selectedAttributes []string
	unknownAttributes  []string

	log   *logging.Helper
	stats Stats
}

// Option configures an Engine at construction time.
type Option func(*engineOptions)

type engineOptions struct {
	ignoreCase bool
	limit      int
	attributes []string
	logger     *logging.Helper
}

// WithIgnoreCase stores the case-insensitivity flag on the evaluation
// context threaded through every Evaluate call. See filter.EvalContext's
// doc comment: it does not change comparison behavior, since string
// comparisons are already unconditionally case-folded.
func WithIgnoreCase(ignoreCase bool) Option {
	return func(o *engineOptions) { o.ignoreCase = ignoreCase }
}

// WithLimit stops Search after n matches. A limit of 0 (the default) means
// unlimited.
func WithLimit(n int) Option {
	return func(o *engineOptions) { o.limit = n }
}

// WithAttributes restricts materialisation to the named attributes.
// Names that do not resolve against the snapshot's schema are collected
// into UnknownAttributes rather than rejected outright.
func WithAttributes(attrs []string) Option {
	return func(o *engineOptions) { o.attributes = attrs }
}

// WithLogger attaches a logging.Helper for diagnostic output.
func WithLogger(log *logging.Helper) Option {
	return func(o *engineOptions) { o.logger = log }
}

// New constructs an Engine over dec using root as the filter to evaluate
// against every entry.
func New(dec *snapshot.Decoder, root filter.Node, opts ...Option) *Engine {
	o := &engineOptions{}
	for _, opt := range opts {
		opt(o)
	}
	if o.logger == nil {
		o.logger = logging.NewNop()
	}

	selected, unknown := normaliseAttributes(dec, o.attributes)

	return &Engine{
		dec:                dec,
		root:               root,
		ignoreCase:         o.ignoreCase,
		limit:              o.limit,
		selectedAttributes: selected,
		unknownAttributes:  unknown,
		log:                o.logger,
	}
}

// normaliseAttributes resolves each requested attribute name against the
// schema, splitting it into the canonical on-disk names to select and the
// names that did not resolve. Names that resolve to the same property
// (e.g. "cn" and "CN") collapse to a single selection entry, keeping the
// order of first occurrence. An empty or all-unknown request yields a nil
// selection, meaning "materialise every attribute".
func normaliseAttributes(dec *snapshot.Decoder, attrs []string) (selected, unknown []string) {
	seen := make(map[int]bool)
	for _, attr := range attrs {
		attr = strings.TrimSpace(attr)
		if attr == "" {
			continue
		}
		prop, ok := dec.GetProperty(attr)
		if !ok {
			unknown = append(unknown, attr)
			continue
		}
		if seen[prop.Index] {
			continue
		}
		seen[prop.Index] = true
		selected = append(selected, prop.Name)
	}
	return selected, unknown
}

// SelectedAttributes returns the canonical attribute names Materialise will
// project, or nil if every attribute is projected.
func (e *Engine) SelectedAttributes() []string {
	return e.selectedAttributes
}

// UnknownAttributes returns the requested attribute names that did not
// resolve against the snapshot's schema.
func (e *Engine) UnknownAttributes() []string {
	return e.unknownAttributes
}

// Stats returns the counters recorded by the most recently completed
// Search call.
func (e *Engine) Stats() Stats {
	return e.stats
}

// Search evaluates the filter tree against every entry in the snapshot, in
// storage order, yielding only entries that match. It is a lazy
// range-over-func sequence: nothing is evaluated until the caller ranges
// over it, and the caller abandoning the loop (a plain break) is the only
// cancellation protocol needed. ctx is checked for cancellation between
// entries, following the convention of threading a context.Context
// through anything that could run long, even though no network I/O is
// actually involved here.
func (e *Engine) Search(ctx context.Context) iter.Seq[*snapshot.Entry] {
	return func(yield func(*snapshot.Entry) bool) {
		start := time.Now()
		evaluated := 0
		matches := 0

		resolver := resolverAdapter{dec: e.dec}

		defer func() {
			e.stats = Stats{
				EntriesEvaluated: evaluated,
				Matches:          matches,
				Duration:         time.Since(start),
			}
		}()

		for entry := range e.dec.Entries() {
			if ctx.Err() != nil {
				return
			}

			evaluated++
			evalCtx := &filter.EvalContext{
				Schema:     resolver,
				Entry:      entryAdapter{entry: entry},
				IgnoreCase: e.ignoreCase,
			}
			if !e.root.Evaluate(evalCtx) {
				continue
			}

			matches++
			if !yield(entry) {
				return
			}
			if e.limit > 0 && matches >= e.limit {
				return
			}
		}
	}
}

// Materialise projects entry's attributes as an ordered name/value list,
// honoring the engine's attribute selection (selection order when one was
// given, storage order otherwise) and the per-attribute value-collapse
// policy (single value, scalar; multiple, slice; absent, omitted).
func (e *Engine) Materialise(entry *snapshot.Entry) []snapshot.Attribute {
	return entry.Project(e.selectedAttributes)
}

// resolverAdapter makes *snapshot.Decoder satisfy filter.PropertyResolver.
type resolverAdapter struct {
	dec *snapshot.Decoder
}

func (r resolverAdapter) Resolve(attr string) (string, bool) {
	prop, ok := r.dec.GetProperty(attr)
	if !ok {
		return "", false
	}
	return prop.Name, true
}

// entryAdapter makes *snapshot.Entry satisfy filter.Entry: the two Values
// methods have identical underlying element types ([]any) but distinct
// named return types, so a direct method-set match isn't possible across
// package boundaries.
type entryAdapter struct {
	entry *snapshot.Entry
}

func (e entryAdapter) Values(name string) (filter.Values, error) {
	values, err := e.entry.Values(name)
	if err != nil {
		return nil, err
	}
	return filter.Values(values), nil
}
