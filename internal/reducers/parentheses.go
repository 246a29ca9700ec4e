package reducers

import (
	"context"
	"strings"

	"github.com/standardbeagle/lcr/internal/csharp"
	"github.com/standardbeagle/lcr/internal/reduce"
	"github.com/standardbeagle/lcr/internal/semantic"
	"github.com/standardbeagle/lcr/internal/syntax"
)

// primary expressions never need parentheses of their own
var primary = map[syntax.Kind]bool{
	csharp.Identifier:           true,
	csharp.GenericName:          true,
	csharp.MemberAccess:         true,
	csharp.Invocation:           true,
	csharp.ThisExpression:       true,
	csharp.ThisKeyword:          true,
	csharp.ObjectCreation:       true,
	csharp.Parenthesized:        true,
	csharp.StringLiteral:        true,
	csharp.VerbatimString:       true,
	csharp.IntegerLiteral:       true,
	csharp.RealLiteral:          true,
	csharp.BooleanLiteral:       true,
	csharp.CharacterLiteral:     true,
	csharp.NullLiteral:          true,
	csharp.Interpolated:         true,
	"element_access_expression": true,
	"typeof_expression":         true,
	"default_expression":        true,
	"raw_string_literal":        true,
}

// Parentheses removes parentheses around primary expressions
type Parentheses struct{}

func (Parentheses) Name() string { return "parentheses" }

func (Parentheses) IsApplicable(opts reduce.Options) bool {
	return opts.RemoveUnnecessaryParens
}

func (Parentheses) CreateRewriter() reduce.Rewriter {
	return &parenRewriter{}
}

func (Parentheses) RequiresRealBinding(syntax.Element, *semantic.Model) bool {
	return false
}

type parenRewriter struct {
	rewriter
}

func (r *parenRewriter) Visit(ctx context.Context, el syntax.Element, model *semantic.Model) (syntax.Element, error) {
	targets := r.targets(el, model, func(e syntax.Element) bool {
		n, ok := e.(*syntax.Node)
		if !ok || n.Kind() != csharp.Parenthesized {
			return false
		}
		inner := csharp.Inner(n)
		return inner != nil && primary[inner.Kind()]
	})
	for _, target := range targets {
		n := target.(*syntax.Node)
		inner := csharp.Inner(n)
		want := model.TypeOf(inner)
		lead, trail := syntax.OuterTrivia(n)
		if lead == "" {
			// keep `return(x)` from turning into `returnx`
			if prev := previousToken(model, n); prev != nil && prev.TrailingTrivia() == "" {
				if text := prev.Text(); text != "" && isWordByte(text[len(text)-1]) {
					lead = " "
				}
			}
		}
		if _, innerTrail := syntax.OuterTrivia(inner); strings.TrimSpace(innerTrail) != "" {
			trail = innerTrail + trail
		}
		repl := syntax.WithOuterTrivia(inner, lead, trail)

		found, err := r.verified(ctx, el, target, repl, func(m *semantic.Model, e syntax.Element) bool {
			return m.TypeOf(e) == want
		})
		if err != nil {
			return nil, err
		}
		if found != nil {
			return found, nil
		}
	}
	return r.done(el)
}
