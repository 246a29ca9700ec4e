// Package intervals answers "does this range touch any requested span"
// against the spans of one reduction request.
package intervals

import (
	"sort"

	"github.com/emirpasic/gods/trees/redblacktree"

	"github.com/standardbeagle/lcr/internal/syntax"
)

// Index is an immutable set of disjoint spans ordered by start offset.
// Overlapping input spans are merged on construction.
type Index struct {
	tree  *redblacktree.Tree
	spans []syntax.Span
}

// New builds the index once per request
func New(spans []syntax.Span) *Index {
	merged := merge(spans)
	tree := redblacktree.NewWithIntComparator()
	for _, s := range merged {
		tree.Put(s.Start, s)
	}
	return &Index{tree: tree, spans: merged}
}

func merge(spans []syntax.Span) []syntax.Span {
	if len(spans) == 0 {
		return nil
	}
	sorted := make([]syntax.Span, 0, len(spans))
	for _, s := range spans {
		if s.Length >= 0 && s.Start >= 0 {
			sorted = append(sorted, s)
		}
	}
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Start < sorted[j].Start })

	var out []syntax.Span
	for _, s := range sorted {
		if n := len(out); n > 0 && (s.Start < out[n-1].End() || s.Start == out[n-1].Start) {
			last := out[n-1]
			out[n-1] = syntax.NewSpan(last.Start, max(last.End(), s.End()))
			continue
		}
		out = append(out, s)
	}
	return out
}

// Empty reports whether no spans were requested
func (ix *Index) Empty() bool {
	return ix == nil || ix.tree.Size() == 0
}

// Len returns the number of disjoint spans
func (ix *Index) Len() int {
	if ix == nil {
		return 0
	}
	return ix.tree.Size()
}

// Spans returns the merged spans in order
func (ix *Index) Spans() []syntax.Span {
	if ix == nil {
		return nil
	}
	return ix.spans
}

// Overlaps reports whether [start, start+length) shares a character with
// any span. Empty queries and empty spans count when they touch.
func (ix *Index) Overlaps(start, length int) bool {
	if ix.Empty() {
		return false
	}
	q := syntax.Span{Start: start, Length: length}

	if node, ok := ix.tree.Floor(start); ok {
		if hits(node.Value.(syntax.Span), q) {
			return true
		}
	}
	if node, ok := ix.tree.Ceiling(start); ok {
		if hits(node.Value.(syntax.Span), q) {
			return true
		}
	}
	return false
}

// IsOutside reports whether span lies outside every requested span
func (ix *Index) IsOutside(span syntax.Span) bool {
	return !ix.Overlaps(span.Start, span.Length)
}

func hits(s, q syntax.Span) bool {
	if s.IsEmpty() || q.IsEmpty() {
		return s.IntersectsWith(q)
	}
	return s.OverlapsWith(q)
}
