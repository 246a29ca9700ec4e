package reducers

import (
	"context"

	"github.com/standardbeagle/lcr/internal/csharp"
	"github.com/standardbeagle/lcr/internal/reduce"
	"github.com/standardbeagle/lcr/internal/semantic"
	"github.com/standardbeagle/lcr/internal/syntax"
)

// ThisQualifier drops `this.` from member accesses whose member still binds
// the same way without it.
type ThisQualifier struct{}

func (ThisQualifier) Name() string { return "this-qualifier" }

func (ThisQualifier) IsApplicable(opts reduce.Options) bool {
	return !opts.QualifyFieldAccess
}

func (ThisQualifier) CreateRewriter() reduce.Rewriter {
	return &thisRewriter{}
}

func (ThisQualifier) RequiresRealBinding(original syntax.Element, model *semantic.Model) bool {
	return enclosingInvocationOverloaded(original, model)
}

type thisRewriter struct {
	rewriter
}

func (r *thisRewriter) Visit(ctx context.Context, el syntax.Element, model *semantic.Model) (syntax.Element, error) {
	targets := r.targets(el, model, func(e syntax.Element) bool {
		if e.Kind() != csharp.MemberAccess {
			return false
		}
		q, name, ok := csharp.QualifierAndName(e)
		if !ok || !csharp.IsThis(q) || name.Kind() != csharp.Identifier {
			return false
		}
		s := model.Symbol(e)
		if s == nil {
			return false
		}
		switch s.Kind {
		case semantic.FieldSymbol, semantic.PropertySymbol, semantic.MethodSymbol:
			return true
		}
		return false
	})
	for _, target := range targets {
		id, ok := r.capture(model, target)
		if !ok {
			r.skip[target] = true
			continue
		}
		_, name, _ := csharp.QualifierAndName(target)
		lead, trail := syntax.OuterTrivia(target)
		repl := syntax.WithOuterTrivia(syntax.Clone(name), lead, trail)
		found, err := r.verified(ctx, el, target, repl, bindsTo(id))
		if err != nil {
			return nil, err
		}
		if found != nil {
			return found, nil
		}
	}
	return r.done(el)
}
