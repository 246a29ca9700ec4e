package reducers

import (
	"context"

	"github.com/standardbeagle/lcr/internal/csharp"
	"github.com/standardbeagle/lcr/internal/reduce"
	"github.com/standardbeagle/lcr/internal/semantic"
	"github.com/standardbeagle/lcr/internal/syntax"
)

// Name shortens qualified type names. A name denoting a type with a
// keyword becomes the keyword (System.String to string); otherwise the
// qualifier is dropped when the simple name binds to the same type at that
// position.
type Name struct{}

func (Name) Name() string { return "name" }

func (Name) IsApplicable(opts reduce.Options) bool {
	return opts.PreferSimpleNames || opts.PreferIntrinsicKeywords
}

func (Name) CreateRewriter() reduce.Rewriter {
	return &nameRewriter{}
}

// RequiresRealBinding is true for names that take part in overload
// resolution.
func (Name) RequiresRealBinding(original syntax.Element, model *semantic.Model) bool {
	return enclosingInvocationOverloaded(original, model)
}

type nameRewriter struct {
	rewriter
}

func (r *nameRewriter) Visit(ctx context.Context, el syntax.Element, model *semantic.Model) (syntax.Element, error) {
	targets := r.targets(el, model, func(e syntax.Element) bool {
		if e.Kind() != csharp.QualifiedName && e.Kind() != csharp.MemberAccess {
			return false
		}
		s := model.Symbol(e)
		return s != nil && s.Kind == semantic.TypeSymbol
	})
	for _, target := range targets {
		repl := r.shorter(model, target)
		if repl == nil {
			r.skip[target] = true
			continue
		}
		id, ok := r.capture(model, target)
		if !ok {
			r.skip[target] = true
			continue
		}
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

// shorter returns the reduced form of a qualified type name, or nil
func (r *nameRewriter) shorter(model *semantic.Model, target syntax.Element) syntax.Element {
	lead, trail := syntax.OuterTrivia(target)
	s := model.Symbol(target)
	if r.rc.Options.PreferIntrinsicKeywords && s.Keyword != "" {
		return syntax.NewToken(csharp.PredefinedType, s.Keyword, lead, trail)
	}
	if !r.rc.Options.PreferSimpleNames {
		return nil
	}
	_, name, ok := csharp.QualifierAndName(target)
	if !ok {
		return nil
	}
	return syntax.WithOuterTrivia(syntax.Clone(name), lead, trail)
}
