package reducers

import (
	"context"

	"github.com/standardbeagle/lcr/internal/csharp"
	"github.com/standardbeagle/lcr/internal/reduce"
	"github.com/standardbeagle/lcr/internal/semantic"
	"github.com/standardbeagle/lcr/internal/syntax"
)

// Var replaces the explicit type of a local declaration with var when the
// initializer already has that type.
type Var struct{}

func (Var) Name() string { return "var" }

func (Var) IsApplicable(opts reduce.Options) bool {
	return opts.PreferVar
}

func (Var) CreateRewriter() reduce.Rewriter {
	return &varRewriter{}
}

func (Var) RequiresRealBinding(syntax.Element, *semantic.Model) bool {
	return false
}

type varRewriter struct {
	rewriter
}

func (r *varRewriter) Visit(ctx context.Context, el syntax.Element, model *semantic.Model) (syntax.Element, error) {
	targets := r.targets(el, model, func(e syntax.Element) bool {
		return r.replaceable(model, e)
	})
	for _, target := range targets {
		id, ok := r.capture(model, target)
		if !ok {
			r.skip[target] = true
			continue
		}
		lead, trail := syntax.OuterTrivia(target)
		repl := syntax.NewToken(csharp.ImplicitType, "var", lead, trail)
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

// replaceable reports the type of a local declaration with one declarator
// whose initializer has exactly the declared type.
func (r *varRewriter) replaceable(model *semantic.Model, typ syntax.Element) bool {
	if typ.Kind() == csharp.ImplicitType {
		return false
	}
	decl, ok := model.Parent(typ)
	if !ok || decl.Kind() != csharp.VariableDeclaration {
		return false
	}
	declared, declarators := csharp.DeclarationType(decl)
	if declared != typ || len(declarators) != 1 {
		return false
	}
	stmt, ok := model.Parent(decl)
	if !ok || stmt.Kind() != csharp.LocalDeclarationStatement {
		return false
	}
	for _, c := range stmt.Children() {
		if c == syntax.Element(decl) {
			continue
		}
		for _, t := range syntax.Tokens(c) {
			if t.Text() == "const" {
				return false
			}
		}
	}
	_, init := csharp.Declarator(declarators[0])
	if init == nil || init.Kind() == csharp.NullLiteral {
		return false
	}
	want := model.TypeName(typ)
	return want != "" && model.TypeOf(init) == want
}
