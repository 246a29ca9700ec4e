package reducers

import (
	"context"
	"strings"

	"github.com/standardbeagle/lcr/internal/csharp"
	"github.com/standardbeagle/lcr/internal/reduce"
	"github.com/standardbeagle/lcr/internal/semantic"
	"github.com/standardbeagle/lcr/internal/syntax"
)

// contextual keywords that change meaning when an escaped identifier
// loses its @
var contextual = map[string]bool{
	"var": true, "dynamic": true, "nameof": true, "_": true, "value": true,
	"await": true, "yield": true, "async": true, "record": true,
}

// Escaping removes the @ from verbatim identifiers that are not keywords
type Escaping struct{}

func (Escaping) Name() string { return "escaping" }

func (Escaping) IsApplicable(reduce.Options) bool { return true }

func (Escaping) CreateRewriter() reduce.Rewriter {
	return &escapeRewriter{}
}

func (Escaping) RequiresRealBinding(syntax.Element, *semantic.Model) bool {
	return false
}

type escapeRewriter struct {
	rewriter
}

// Visit rewrites every escaped identifier of the unit in one pass. The
// change is lexical, so no speculation is needed.
func (r *escapeRewriter) Visit(_ context.Context, el syntax.Element, model *semantic.Model) (syntax.Element, error) {
	targets := r.targets(el, model, func(e syntax.Element) bool {
		t, ok := e.(*syntax.Token)
		if !ok || t.Kind() != csharp.Identifier || !strings.HasPrefix(t.Text(), "@") {
			return false
		}
		word := csharp.Unescape(t.Text())
		return word != "" && !csharp.IsReservedKeyword(word) && !contextual[word]
	})
	r.more = false
	out := el
	for _, target := range targets {
		t := target.(*syntax.Token)
		out = r.splice(out, t, t.WithText(csharp.Unescape(t.Text())))
	}
	return out, nil
}
