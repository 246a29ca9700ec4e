// Package reducers holds the concrete reduction rules run by the engine.
package reducers

import (
	"context"
	"errors"

	"github.com/standardbeagle/lcr/internal/annotate"
	"github.com/standardbeagle/lcr/internal/csharp"
	"github.com/standardbeagle/lcr/internal/reduce"
	"github.com/standardbeagle/lcr/internal/semantic"
	"github.com/standardbeagle/lcr/internal/speculate"
	"github.com/standardbeagle/lcr/internal/syntax"
)

// rewriter carries the state shared by the rewriters in this package: the
// context handed over by the engine, a skip set of targets that could not
// be rewritten and the answer for HasMoreWork.
type rewriter struct {
	rc   reduce.RewriteContext
	skip map[syntax.Element]bool
	more bool
}

func (r *rewriter) Initialize(rc reduce.RewriteContext) {
	r.rc = rc
	r.skip = make(map[syntax.Element]bool)
	r.more = true
}

func (r *rewriter) HasMoreWork() bool {
	return r.more
}

// done ends the visit loop and returns el unchanged
func (r *rewriter) done(el syntax.Element) (syntax.Element, error) {
	r.more = false
	return el, nil
}

// targets returns the elements under el that match pred and may be
// rewritten, in document order. Guarded subtrees, subtrees outside the
// requested spans and previously skipped targets are left out; when the
// unit was not tagged as a whole only tagged parts are eligible.
func (r *rewriter) targets(el syntax.Element, model *semantic.Model, pred func(syntax.Element) bool) []syntax.Element {
	var out []syntax.Element
	var visit func(e syntax.Element, eligible bool)
	visit = func(e syntax.Element, eligible bool) {
		if r.rc.Tags.Has(e, annotate.DoNotSimplify) || e.Kind() == csharp.ErrorKind {
			return
		}
		if r.rc.Outside != nil {
			if span, ok := model.Span(e); ok && r.rc.Outside(span) {
				return
			}
		}
		eligible = eligible || r.rc.Tags.Has(e, annotate.SimplifyCandidate)
		if eligible && !r.skip[e] && pred(e) {
			out = append(out, e)
		}
		if n, ok := e.(*syntax.Node); ok {
			for _, c := range n.Children() {
				visit(c, eligible)
			}
		}
	}
	visit(el, r.rc.SimplifyAllDescendants)
	return out
}

// splice replaces old under root with repl. Nodes rebuilt on the way keep
// the tags of the nodes they stand in for.
func (r *rewriter) splice(root, old, repl syntax.Element) syntax.Element {
	if root == old {
		return r.rc.Tags.CarryForward(old, repl)
	}
	n, ok := root.(*syntax.Node)
	if !ok {
		return root
	}
	for i, c := range n.Children() {
		if nc := r.splice(c, old, repl); nc != c {
			return r.rc.Tags.CarryForward(n, n.WithChild(i, nc))
		}
	}
	return root
}

// verified speculates on the unit with target replaced and checks that the
// replacement still means what target meant. It returns the unit as found
// in the new model, or nil when the rewrite must be dropped.
func (r *rewriter) verified(ctx context.Context, held, target, repl syntax.Element, same func(model *semantic.Model, el syntax.Element) bool) (syntax.Element, error) {
	repl = r.rc.Tags.CarryForward(target, repl)
	marker := annotate.NewRelocationTag()
	repl = r.rc.Tags.WithAdditionalTags(repl, marker)
	candidate := r.splice(held, target, repl)

	model, found, err := r.rc.Speculate(ctx, candidate)
	if errors.Is(err, speculate.ErrNoContext) {
		r.skip[target] = true
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	check := r.rc.Tags.FindTagged(found, marker)
	if check == nil || !same(model, check) {
		r.skip[target] = true
		return nil, nil
	}
	return found, nil
}

// capture records the symbol el binds to before it is rewritten
func (r *rewriter) capture(model *semantic.Model, el syntax.Element) (string, bool) {
	t, ok := r.rc.Tags.Capture(el, annotate.ResolvedSymbol, func() (string, bool) {
		s := model.Symbol(el)
		if s == nil {
			return "", false
		}
		return s.ID(), true
	})
	return t.Data, ok
}

// bindsTo reports whether el binds to the symbol with the given id
func bindsTo(id string) func(*semantic.Model, syntax.Element) bool {
	return func(model *semantic.Model, el syntax.Element) bool {
		s := model.Symbol(el)
		return s != nil && s.ID() == id
	}
}

// enclosingInvocationOverloaded reports whether original sits in, or
// contains, a call whose method group has several overloads. Speculative
// binding keeps the overload chosen for the unchanged call, so such
// rewrites are checked against a full analysis.
func enclosingInvocationOverloaded(original syntax.Element, model *semantic.Model) bool {
	overloaded := func(el syntax.Element) bool {
		return el.Kind() == csharp.Invocation && len(model.MethodGroup(el)) > 1
	}
	if syntax.Find(original, overloaded) != nil {
		return true
	}
	inArguments := false
	for _, a := range model.Ancestors(original) {
		if a.Kind() == csharp.ArgumentList {
			inArguments = true
			continue
		}
		if inArguments && overloaded(a) {
			return true
		}
	}
	return false
}

// previousToken returns the token right before el in the model's tree
func previousToken(model *semantic.Model, el syntax.Element) *syntax.Token {
	child := el
	for {
		parent, ok := model.Parent(child)
		if !ok {
			return nil
		}
		children := parent.Children()
		i := indexOf(children, child)
		for j := i - 1; j >= 0; j-- {
			if t := syntax.LastToken(children[j]); t != nil {
				return t
			}
		}
		child = parent
	}
}

func indexOf(children []syntax.Element, el syntax.Element) int {
	for i, c := range children {
		if c == el {
			return i
		}
	}
	return -1
}

func isWordByte(b byte) bool {
	return b == '_' || b == '@' || b >= '0' && b <= '9' || b >= 'a' && b <= 'z' || b >= 'A' && b <= 'Z' || b >= 0x80
}
