package reduce

import (
	"context"

	"github.com/standardbeagle/lcr/internal/annotate"
	"github.com/standardbeagle/lcr/internal/semantic"
	"github.com/standardbeagle/lcr/internal/syntax"
)

// Options is the flat option bundle consulted for reducer applicability and
// by the reducers themselves.
type Options struct {
	PreferVar               bool
	QualifyFieldAccess      bool
	PreferSimpleNames       bool
	PreferIntrinsicKeywords bool
	RemoveUnnecessaryParens bool
	// Extra holds options for reducers outside this module
	Extra map[string]bool
}

// DefaultOptions returns the options used when nothing is configured
func DefaultOptions() Options {
	return Options{
		PreferSimpleNames:       true,
		PreferIntrinsicKeywords: true,
		RemoveUnnecessaryParens: true,
	}
}

// Enabled reports an extra option
func (o Options) Enabled(name string) bool {
	return o.Extra[name]
}

// Reducer is a stateless rewrite rule. Its rewriters are created per unit
// of work and never shared between goroutines.
type Reducer interface {
	Name() string
	IsApplicable(opts Options) bool
	CreateRewriter() Rewriter
	// RequiresRealBinding reports positions that speculative binding cannot
	// answer correctly; candidates there are bound by re-analyzing the unit.
	RequiresRealBinding(original syntax.Element, model *semantic.Model) bool
}

// Rewriter visits one unit of work. Visit returns the rewritten element, or
// el itself when nothing changed; HasMoreWork asks for another visit of the
// returned element.
type Rewriter interface {
	Initialize(rc RewriteContext)
	Visit(ctx context.Context, el syntax.Element, model *semantic.Model) (syntax.Element, error)
	HasMoreWork() bool
}

// SpeculateFunc binds a proposed replacement for the element being visited.
// It returns the model and the element standing for candidate in that
// model's tree.
type SpeculateFunc func(ctx context.Context, candidate syntax.Element) (*semantic.Model, syntax.Element, error)

// RewriteContext is handed to every rewriter before its first visit
type RewriteContext struct {
	Options Options
	Tags    *annotate.Store
	// Outside reports spans that lie outside every requested span
	Outside func(syntax.Span) bool
	// SimplifyAllDescendants is false when the unit was chosen only because
	// tagged elements lie inside it; then only those may be rewritten.
	SimplifyAllDescendants bool
	Speculate              SpeculateFunc
}
