package reduce

import (
	"context"

	"github.com/standardbeagle/lcr/internal/annotate"
	"github.com/standardbeagle/lcr/internal/debug"
	"github.com/standardbeagle/lcr/internal/document"
	lcrerrors "github.com/standardbeagle/lcr/internal/errors"
	"github.com/standardbeagle/lcr/internal/semantic"
	"github.com/standardbeagle/lcr/internal/syntax"
)

// Sweep removes the imports of u that are tagged RemoveIfUnused and that a
// fresh analysis reports as unused. Other imports are never touched. When
// nothing qualifies u is returned as is.
func Sweep(ctx context.Context, analyzer *semantic.Analyzer, lang document.Language, u *document.Unit) (*document.Unit, int, error) {
	var marked []*syntax.Node
	for _, imp := range lang.Imports(u.Root) {
		if u.Tags.Has(imp, annotate.RemoveIfUnused) {
			marked = append(marked, imp)
		}
	}
	if len(marked) == 0 {
		return u, 0, nil
	}

	model, err := analyzer.Analyze(ctx, u)
	if err != nil {
		return u, 0, err
	}
	unused, err := model.UnusedImports(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return u, 0, err
		}
		return u, 0, lcrerrors.NewReduceError("sweep", err).WithPath(u.Path)
	}

	remove := make(map[*syntax.Node]bool)
	for _, imp := range unused {
		if u.Tags.Has(imp, annotate.RemoveIfUnused) {
			remove[imp] = true
		}
	}
	if len(remove) == 0 {
		return u, 0, nil
	}
	debug.LogSweep("%s: removing %d of %d marked imports\n", u.Path, len(remove), len(marked))
	return u.WithRoot(syntax.RemoveNodes(u.Root, remove, u.Tags.CarryForward)), len(remove), nil
}
