// Package speculate produces analysis models for rewritten elements that
// are not part of any analyzed tree yet.
package speculate

import (
	"context"
	"errors"
	"fmt"

	"github.com/standardbeagle/lcr/internal/annotate"
	"github.com/standardbeagle/lcr/internal/debug"
	"github.com/standardbeagle/lcr/internal/document"
	lcrerrors "github.com/standardbeagle/lcr/internal/errors"
	"github.com/standardbeagle/lcr/internal/semantic"
	"github.com/standardbeagle/lcr/internal/syntax"
)

// ErrNoContext reports that no model could be bound for a candidate. The
// rewrite that produced the candidate should be abandoned.
var ErrNoContext = errors.New("speculate: no analysis context for candidate")

// Hooks observe how models are obtained
type Hooks struct {
	OnSpeculation  func(anchor syntax.Element)
	OnRealAnalysis func(u *document.Unit)
}

// Manager derives models for candidates. It is safe for concurrent use as
// long as its collaborators are.
type Manager struct {
	Analyzer *semantic.Analyzer
	Tags     *annotate.Store
	Language document.Language
	Hooks    Hooks
}

// Request describes one candidate to bind
type Request struct {
	// Candidate is the rewritten element
	Candidate syntax.Element
	// Current is the model the element Replaced belongs to
	Current *semantic.Model
	// Replaced is the element Candidate stands in for
	Replaced syntax.Element
	// RequiresRealBinding forces a full re-analysis instead of speculation
	RequiresRealBinding bool
}

// Model binds req.Candidate as if it replaced req.Replaced and returns the
// model together with the element that represents the candidate in the
// model's tree. Speculation always happens against a real model: when
// Current is speculative the candidate is first folded into its
// replacement.
func (mgr *Manager) Model(ctx context.Context, req Request) (*semantic.Model, syntax.Element, error) {
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}
	if req.Candidate == nil || req.Current == nil {
		return nil, nil, ErrNoContext
	}

	marker := annotate.NewRelocationTag()
	tagged := mgr.Tags.WithAdditionalTags(req.Candidate, marker)

	base := req.Current
	anchor, replacement := req.Replaced, tagged
	if base.IsSpeculative() {
		if !base.Contains(req.Replaced) {
			return nil, nil, fmt.Errorf("%w: replaced element is not in the current model", ErrNoContext)
		}
		anchor = base.Anchor()
		if base.Replacement() == req.Replaced {
			replacement = tagged
		} else {
			replacement = syntax.Replace(base.Replacement(), req.Replaced, tagged)
		}
		base = base.Base()
	} else if !base.Contains(req.Replaced) {
		return nil, nil, fmt.Errorf("%w: replaced element is not in the current model", ErrNoContext)
	}

	if req.RequiresRealBinding {
		return mgr.reanalyze(ctx, base, anchor, replacement, marker)
	}

	if anchor == req.Replaced && mgr.Language != nil && mgr.Language.NeedsParent(tagged) {
		parent, ok := base.Parent(anchor)
		if !ok {
			return nil, nil, ErrNoContext
		}
		spliced, _ := syntax.ReplaceChild(parent, anchor, tagged)
		anchor, replacement = parent, spliced
	}

	model, err := base.Speculate(anchor, replacement)
	if err != nil {
		debug.LogSpeculate("speculation failed: %v\n", err)
		return nil, nil, fmt.Errorf("%w: %v", ErrNoContext, err)
	}
	if mgr.Hooks.OnSpeculation != nil {
		mgr.Hooks.OnSpeculation(anchor)
	}
	found := mgr.Tags.FindTagged(replacement, marker)
	if found == nil {
		return nil, nil, ErrNoContext
	}
	return model, found, nil
}

// reanalyze substitutes the replacement into the whole tree, analyzes the
// resulting unit and relocates the candidate by its marker.
func (mgr *Manager) reanalyze(ctx context.Context, base *semantic.Model, anchor, replacement syntax.Element, marker annotate.Tag) (*semantic.Model, syntax.Element, error) {
	var root *syntax.Node
	switch a := anchor.(type) {
	case *syntax.Node:
		root = syntax.ReplaceAll(base.Root(), map[*syntax.Node]syntax.Element{a: replacement}, nil, nil, mgr.Tags.CarryForward)
	case *syntax.Token:
		root = syntax.ReplaceAll(base.Root(), nil, map[*syntax.Token]syntax.Element{a: replacement}, nil, mgr.Tags.CarryForward)
	}
	if root == nil || root == base.Root() {
		return nil, nil, ErrNoContext
	}

	unit := base.Unit().WithRoot(root)
	model, err := mgr.Analyzer.Analyze(ctx, unit)
	if err != nil {
		if ctx.Err() != nil {
			return nil, nil, err
		}
		return nil, nil, fmt.Errorf("%w: %v", ErrNoContext, lcrerrors.NewSpeculateError("reanalyze", err).WithPath(unit.Path))
	}
	if mgr.Hooks.OnRealAnalysis != nil {
		mgr.Hooks.OnRealAnalysis(unit)
	}
	found := mgr.Tags.FindTagged(root, marker)
	if found == nil {
		return nil, nil, ErrNoContext
	}
	debug.LogSpeculate("re-analyzed %s for %s\n", unit.Path, found.Kind())
	return model, found, nil
}
