package semantic

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/standardbeagle/lcr/internal/debug"
	"github.com/standardbeagle/lcr/internal/document"
	"github.com/standardbeagle/lcr/internal/syntax"
)

var (
	// ErrNotInTree is returned when speculation is asked to replace an
	// element the model does not contain.
	ErrNotInTree = errors.New("element is not part of the analyzed tree")
	// ErrUnsupported is returned for replacements that cannot be bound.
	ErrUnsupported = errors.New("speculative binding not supported here")
)

// Analyzer performs real binding of source units
type Analyzer struct {
	Catalog *Catalog
	// OnAnalyze is called after every real analysis
	OnAnalyze func(u *document.Unit)
}

// NewAnalyzer creates an analyzer over the well-known catalog
func NewAnalyzer() *Analyzer {
	return &Analyzer{Catalog: NewCatalog()}
}

// Analyze binds u and returns its real model
func (a *Analyzer) Analyze(ctx context.Context, u *document.Unit) (*Model, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	catalog := a.Catalog
	if catalog == nil {
		catalog = NewCatalog()
	}
	m := &Model{
		unit:    u,
		catalog: catalog,
		index:   u.Index(),
	}
	m.decls = collectDeclarations(m)
	if a.OnAnalyze != nil {
		a.OnAnalyze(u)
	}
	return m, nil
}

// Model is an Analysis Context: the binding of one tree snapshot. A real
// model covers a whole unit. A speculative model answers for one
// replacement subtree placed where anchor sits in its base model, and
// defers to the base for everything outside that subtree.
type Model struct {
	unit    *document.Unit
	catalog *Catalog
	index   *syntax.Index
	decls   *declarations

	base        *Model
	anchor      syntax.Element
	replacement syntax.Element

	symbols sync.Map
	types   sync.Map
}

// Unit returns the unit the model was built from
func (m *Model) Unit() *document.Unit {
	if m.base != nil {
		return m.base.unit
	}
	return m.unit
}

// Root returns the root of the real tree
func (m *Model) Root() *syntax.Node {
	return m.Unit().Root
}

// Tree returns the tree this model binds: the unit root for a real model,
// the replacement subtree for a speculative one.
func (m *Model) Tree() syntax.Element {
	return m.index.Root()
}

// IsSpeculative reports whether the model was derived by Speculate
func (m *Model) IsSpeculative() bool {
	return m.base != nil
}

// Base returns the real model of a speculative model
func (m *Model) Base() *Model {
	return m.base
}

// Anchor returns the element a speculative model replaces
func (m *Model) Anchor() syntax.Element {
	return m.anchor
}

// Replacement returns the subtree a speculative model binds
func (m *Model) Replacement() syntax.Element {
	return m.replacement
}

// Contains reports whether el is in the tree bound by this model
func (m *Model) Contains(el syntax.Element) bool {
	return m.index.Contains(el)
}

// SameTree reports whether two models bind the same tree instance
func (m *Model) SameTree(o *Model) bool {
	return o != nil && m.Tree() == o.Tree()
}

// Parent returns the parent of el as seen by this model
func (m *Model) Parent(el syntax.Element) (*syntax.Node, bool) {
	if p, ok := m.index.Parent(el); ok {
		return p, true
	}
	if m.base == nil {
		return nil, false
	}
	if el == m.replacement {
		return m.base.Parent(m.anchor)
	}
	if m.index.Contains(el) {
		return nil, false
	}
	return m.base.Parent(el)
}

// Ancestors returns the parents of el from the nearest outwards
func (m *Model) Ancestors(el syntax.Element) []*syntax.Node {
	var out []*syntax.Node
	for {
		p, ok := m.Parent(el)
		if !ok {
			return out
		}
		out = append(out, p)
		el = p
	}
}

// Span returns the span of el; elements of a speculative replacement get
// the positions they would have in place.
func (m *Model) Span(el syntax.Element) (syntax.Span, bool) {
	if s, ok := m.index.Span(el); ok {
		return s, true
	}
	if m.base != nil {
		return m.base.Span(el)
	}
	return syntax.Span{}, false
}

// indexIn returns the position of child in parent, mapping a speculative
// replacement to the position of its anchor.
func (m *Model) indexIn(parent *syntax.Node, child syntax.Element) int {
	if i := parent.IndexOf(child); i >= 0 {
		return i
	}
	if m.base != nil && child == m.replacement {
		return parent.IndexOf(m.anchor)
	}
	return -1
}

// Speculate binds replacement as if it stood where anchor stands. Only real
// models can be speculated against.
func (m *Model) Speculate(anchor, replacement syntax.Element) (*Model, error) {
	if m.base != nil {
		panic("semantic: cannot derive a speculative model from a speculative model")
	}
	if replacement == nil {
		return nil, fmt.Errorf("%w: nil replacement", ErrUnsupported)
	}
	span, ok := m.index.FullSpan(anchor)
	if !ok {
		return nil, ErrNotInTree
	}
	if _, ok := m.index.Parent(anchor); !ok {
		return nil, fmt.Errorf("%w: cannot replace the root", ErrUnsupported)
	}
	if replacement.Kind() == "ERROR" {
		return nil, fmt.Errorf("%w: replacement does not parse", ErrUnsupported)
	}
	debug.LogSpeculate("speculating %s at %s\n", replacement.Kind(), span)
	return &Model{
		unit:        m.unit,
		catalog:     m.catalog,
		index:       syntax.NewIndexAt(replacement, span.Start),
		decls:       m.decls,
		base:        m,
		anchor:      anchor,
		replacement: replacement,
	}, nil
}

// inOverlay reports elements that belong to a speculative replacement
func (m *Model) inOverlay(el syntax.Element) bool {
	return m.base != nil && m.index.Contains(el)
}
