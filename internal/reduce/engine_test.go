package reduce_test

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/standardbeagle/lcr/internal/annotate"
	"github.com/standardbeagle/lcr/internal/csharp"
	"github.com/standardbeagle/lcr/internal/document"
	lcrerrors "github.com/standardbeagle/lcr/internal/errors"
	"github.com/standardbeagle/lcr/internal/reduce"
	"github.com/standardbeagle/lcr/internal/reducers"
	"github.com/standardbeagle/lcr/internal/semantic"
	"github.com/standardbeagle/lcr/internal/syntax"
)

const declaration = `using System;

class C
{
    void M()
    {
        System.String s = System.String.Empty;
    }
}
`

func parse(t *testing.T, src string) *document.Unit {
	t.Helper()
	u, err := csharp.NewParser().ParseString(context.Background(), "test.cs", src)
	require.NoError(t, err)
	return u
}

func newEngine(cfg reduce.Config) *reduce.Engine {
	return &reduce.Engine{
		Analyzer: semantic.NewAnalyzer(),
		Language: csharp.Language{},
		Reducers: reducers.Default(),
		Config:   cfg,
	}
}

func wholeFile(u *document.Unit) []syntax.Span {
	csharp.MarkAll(u)
	return []syntax.Span{syntax.NewSpan(0, len(u.Text()))}
}

func spanOf(t *testing.T, text, part string) syntax.Span {
	t.Helper()
	i := strings.Index(text, part)
	require.GreaterOrEqual(t, i, 0, "%q not in text", part)
	return syntax.NewSpan(i, i+len(part))
}

func TestReduceWholeDeclaration(t *testing.T) {
	u := parse(t, declaration)
	spans := wholeFile(u)

	out, res, err := newEngine(reduce.Config{}).ReduceWithStats(context.Background(), u, spans, reduce.DefaultOptions(), nil)
	require.NoError(t, err)

	assert.Contains(t, out.Text(), "string s = string.Empty;")
	assert.NotContains(t, out.Text(), "using System;", "System is no longer needed")
	assert.Equal(t, 1, res.RemovedImports)
	assert.GreaterOrEqual(t, res.NodeEdits+res.TokenEdits, 2)
	assert.Positive(t, res.Speculations)

	// the input is left as it was
	assert.Equal(t, declaration, u.Text())
}

func TestReduceDeclaredTypeOnly(t *testing.T) {
	u := parse(t, declaration)
	span := spanOf(t, u.Text(), "System.String")
	csharp.MarkSpans(u, []syntax.Span{span})

	out, err := newEngine(reduce.Config{}).Reduce(context.Background(), u, []syntax.Span{span}, reduce.DefaultOptions(), nil)
	require.NoError(t, err)

	assert.Contains(t, out.Text(), "string s = System.String.Empty;")
	assert.Contains(t, out.Text(), "using System;", "imports outside the span stay")

	// text before the span is untouched
	assert.Equal(t, u.Text()[:span.Start], out.Text()[:span.Start])
}

func TestReduceOverloadedCallUsesRealAnalysis(t *testing.T) {
	src := `using System;

class C
{
    void M()
    {
        Console.WriteLine(System.String.Empty);
    }
}
`
	u := parse(t, src)
	spans := wholeFile(u)

	var real, speculative atomic.Int32
	eng := newEngine(reduce.Config{Hooks: reduce.Hooks{
		OnRealAnalysis: func(*document.Unit) { real.Add(1) },
		OnSpeculation:  func(syntax.Element) { speculative.Add(1) },
	}})
	out, err := eng.Reduce(context.Background(), u, spans, reduce.DefaultOptions(), nil)
	require.NoError(t, err)

	assert.Contains(t, out.Text(), "Console.WriteLine(string.Empty);")
	assert.Contains(t, out.Text(), "using System;", "Console still needs System")
	assert.Positive(t, real.Load(), "the call is re-analyzed for real")
}

func TestReduceCancelledBeforeMerge(t *testing.T) {
	src := `using System;

class C
{
    System.String a = System.String.Empty;
    System.Int32 b = System.Int32.MaxValue;
}
`
	u := parse(t, src)
	spans := wholeFile(u)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	var committed atomic.Int32
	eng := newEngine(reduce.Config{
		Serial: true,
		Hooks: reduce.Hooks{AfterUnit: func(reduce.UnitOfWork) {
			committed.Add(1)
			cancel()
		}},
	})

	out, err := eng.Reduce(ctx, u, spans, reduce.DefaultOptions(), nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, reduce.ErrCancelled))
	assert.True(t, errors.Is(err, context.Canceled))
	assert.Same(t, u, out, "the original unit comes back")
	assert.Equal(t, src, out.Text())
	assert.Equal(t, int32(1), committed.Load())
}

func TestReduceAlreadyCancelled(t *testing.T) {
	u := parse(t, declaration)
	spans := wholeFile(u)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	out, err := newEngine(reduce.Config{}).Reduce(ctx, u, spans, reduce.DefaultOptions(), nil)
	assert.ErrorIs(t, err, reduce.ErrCancelled)
	assert.Same(t, u, out)
}

func TestReduceNoSpans(t *testing.T) {
	u := parse(t, declaration)
	csharp.MarkAll(u)

	out, res, err := newEngine(reduce.Config{}).ReduceWithStats(context.Background(), u, nil, reduce.DefaultOptions(), nil)
	require.NoError(t, err)
	assert.Same(t, u, out)
	assert.Zero(t, res.Units)
}

func TestReduceIdempotent(t *testing.T) {
	eng := newEngine(reduce.Config{})
	u := parse(t, declaration)
	once, err := eng.Reduce(context.Background(), u, wholeFile(u), reduce.DefaultOptions(), nil)
	require.NoError(t, err)

	again := parse(t, once.Text())
	twice, res, err := eng.ReduceWithStats(context.Background(), again, wholeFile(again), reduce.DefaultOptions(), nil)
	require.NoError(t, err)
	assert.Equal(t, once.Text(), twice.Text())
	assert.Zero(t, res.NodeEdits+res.TokenEdits)
}

func TestReduceDeterministic(t *testing.T) {
	src := `using System;
using System.Text;

class C
{
    private int count;

    void M(int n)
    {
        System.Int32 x = (n);
        System.Text.StringBuilder sb = new System.Text.StringBuilder();
        this.count = System.Math.Max(x, this.count);
        System.Console.WriteLine((sb));
    }
}
`
	var texts []string
	for _, serial := range []bool{true, false, false} {
		u := parse(t, src)
		out, err := newEngine(reduce.Config{Serial: serial}).Reduce(context.Background(), u, wholeFile(u), reduce.DefaultOptions(), nil)
		require.NoError(t, err)
		texts = append(texts, out.Text())
	}
	assert.Equal(t, texts[0], texts[1])
	assert.Equal(t, texts[0], texts[2])
	assert.Contains(t, texts[0], "int x = n;")
	assert.Contains(t, texts[0], "StringBuilder sb = new StringBuilder();")
	assert.Contains(t, texts[0], "count = Math.Max(x, count);")
}

func TestReduceKeepsUsedAndUnknownImports(t *testing.T) {
	src := `using System;
using System.Text;
using Contoso.Widgets;

class C
{
    StringBuilder b = new StringBuilder();
}
`
	u := parse(t, src)
	out, res, err := newEngine(reduce.Config{}).ReduceWithStats(context.Background(), u, wholeFile(u), reduce.DefaultOptions(), nil)
	require.NoError(t, err)

	assert.Contains(t, out.Text(), "using System.Text;")
	assert.Contains(t, out.Text(), "using Contoso.Widgets;", "unknown namespaces are kept")
	assert.NotContains(t, out.Text(), "using System;")
	assert.Equal(t, 1, res.RemovedImports)
}

func TestReduceKeepsImportsOfExtensionMethods(t *testing.T) {
	src := `using System.Collections.Generic;
using System.Linq;

class C
{
    bool M(List<int> items)
    {
        return items.Any();
    }
}
`
	u := parse(t, src)
	out, res, err := newEngine(reduce.Config{}).ReduceWithStats(context.Background(), u, wholeFile(u), reduce.DefaultOptions(), nil)
	require.NoError(t, err)

	assert.Contains(t, out.Text(), "using System.Linq;")
	assert.Contains(t, out.Text(), "using System.Collections.Generic;")
	assert.Equal(t, 0, res.RemovedImports)
}

func TestReduceCarriesTagsToRebuiltAncestors(t *testing.T) {
	u := parse(t, declaration)
	spans := wholeFile(u)

	formatter := annotate.New(annotate.Kind("formatter"))
	ofKind := func(kind syntax.Kind) func(syntax.Element) bool {
		return func(el syntax.Element) bool { return el.Kind() == kind }
	}
	stmt := syntax.Find(u.Root, ofKind(csharp.LocalDeclarationStatement))
	class := syntax.Find(u.Root, ofKind(csharp.ClassDeclaration))
	require.NotNil(t, stmt)
	require.NotNil(t, class)
	for _, el := range []syntax.Element{u.Root, class, stmt} {
		u.Tags.Attach(el, formatter)
	}

	out, res, err := newEngine(reduce.Config{}).ReduceWithStats(context.Background(), u, spans, reduce.DefaultOptions(), nil)
	require.NoError(t, err)
	require.Equal(t, 1, res.RemovedImports)

	newStmt := syntax.Find(out.Root, ofKind(csharp.LocalDeclarationStatement))
	newClass := syntax.Find(out.Root, ofKind(csharp.ClassDeclaration))
	assert.NotSame(t, stmt, newStmt)
	assert.NotSame(t, class, newClass)
	assert.True(t, out.Tags.HasTag(newStmt, formatter), "statement rebuilt by the merge")
	assert.True(t, out.Tags.HasTag(newClass, formatter), "declaration rebuilt by the merge")
	assert.True(t, out.Tags.HasTag(out.Root, formatter), "root rebuilt by the sweep")
	assert.True(t, out.Tags.Has(newClass, annotate.SimplifyCandidate))
}

func TestReducePreservesBindings(t *testing.T) {
	src := `using System;
using System.Text;

class C
{
    int count;

    void M(int n)
    {
        System.Int32 x = n;
        System.Text.StringBuilder sb = new System.Text.StringBuilder();
        this.count = System.Math.Max(x, this.count);
    }

    void N()
    {
        int count = this.count;
    }
}
`
	u := parse(t, src)
	opts := reduce.DefaultOptions()
	opts.PreferVar = true
	out, err := newEngine(reduce.Config{}).Reduce(context.Background(), u, wholeFile(u), opts, nil)
	require.NoError(t, err)
	require.NotEqual(t, src, out.Text())
	assert.Contains(t, out.Text(), "int count = this.count;")

	fresh, err := semantic.NewAnalyzer().Analyze(context.Background(), out)
	require.NoError(t, err)

	rewritten := out.Tags.Tagged(out.Root, annotate.ResolvedSymbol)
	require.NotEmpty(t, rewritten)
	for _, el := range rewritten {
		captured, _ := out.Tags.Resolved(el)
		sym := fresh.Symbol(el)
		if assert.NotNil(t, sym, "%q no longer binds", syntax.TrimmedText(el)) {
			assert.Equal(t, captured, sym.ID(), "%q binds elsewhere", syntax.TrimmedText(el))
		}
	}
}

func TestReduceEditsStayInsideSpans(t *testing.T) {
	src := `using System;

class C
{
    System.String a = System.String.Empty;

    void M()
    {
        System.String b = System.String.Empty;
    }

    System.Int32 c = System.Int32.MaxValue;
}
`
	u := parse(t, src)
	span := spanOf(t, src, "void M()\n    {\n        System.String b = System.String.Empty;\n    }")
	csharp.MarkSpans(u, []syntax.Span{span})

	var mu sync.Mutex
	var edited []syntax.Element
	record := func(el syntax.Element) {
		mu.Lock()
		defer mu.Unlock()
		edited = append(edited, el)
	}
	eng := newEngine(reduce.Config{Hooks: reduce.Hooks{
		AfterUnit:   func(w reduce.UnitOfWork) { record(w.Original) },
		OnTransform: func(original, _ syntax.Element) { record(original) },
	}})
	out, err := eng.Reduce(context.Background(), u, []syntax.Span{span}, reduce.DefaultOptions(), nil)
	require.NoError(t, err)

	assert.Contains(t, out.Text(), "string b = string.Empty;")
	assert.Contains(t, out.Text(), "System.String a = System.String.Empty;")
	assert.Contains(t, out.Text(), "System.Int32 c = System.Int32.MaxValue;")
	assert.Contains(t, out.Text(), "using System;")

	require.NotEmpty(t, edited)
	for _, el := range edited {
		es, ok := u.Span(el)
		require.True(t, ok, "edited element is not part of the input")
		assert.True(t, es.IntersectsWith(span), "%q is outside the requested span", syntax.TrimmedText(el))
	}
}

func TestReduceRespectsDoNotSimplify(t *testing.T) {
	u := parse(t, declaration)
	spans := wholeFile(u)
	for _, el := range syntax.FindAll(u.Root, func(el syntax.Element) bool {
		return el.Kind() == csharp.VariableDeclaration
	}) {
		u.Tags.Attach(el, annotate.New(annotate.DoNotSimplify))
	}

	out, err := newEngine(reduce.Config{}).Reduce(context.Background(), u, spans, reduce.DefaultOptions(), nil)
	require.NoError(t, err)
	assert.Contains(t, out.Text(), "System.String s = System.String.Empty;")
}

func TestReduceTransformHook(t *testing.T) {
	u := parse(t, declaration)
	spans := wholeFile(u)

	var seen atomic.Int32
	transform := func(orig, repl syntax.Element) syntax.Element {
		seen.Add(1)
		return repl
	}
	out, res, err := newEngine(reduce.Config{}).ReduceWithStats(context.Background(), u, spans, reduce.DefaultOptions(), transform)
	require.NoError(t, err)
	assert.Equal(t, int32(res.NodeEdits+res.TokenEdits), seen.Load())
	assert.NotEqual(t, u.Text(), out.Text())
}

func TestReduceVarAndEscaping(t *testing.T) {
	src := `class C
{
    void M()
    {
        int @count = 1;
        System.Int32 @class = @count;
    }
}
`
	u := parse(t, src)
	opts := reduce.DefaultOptions()
	opts.PreferVar = true

	out, res, err := newEngine(reduce.Config{}).ReduceWithStats(context.Background(), u, wholeFile(u), opts, nil)
	require.NoError(t, err)
	assert.Contains(t, out.Text(), "var count = 1;")
	assert.Contains(t, out.Text(), "var @class = count;", "reserved words keep their escape")
	assert.Positive(t, res.TokenEdits)
}

func TestReduceIterationLimitIsLocal(t *testing.T) {
	u := parse(t, declaration)
	spans := wholeFile(u)
	eng := newEngine(reduce.Config{MaxIterations: 1})

	out, res, err := eng.ReduceWithStats(context.Background(), u, spans, reduce.DefaultOptions(), nil)
	require.NoError(t, err)
	assert.Positive(t, res.Abandoned)
	assert.Contains(t, out.Text(), "System.String s = System.String.Empty;")
}

func TestReduceReportsAbandonedUnitsAsRecoverable(t *testing.T) {
	u := parse(t, declaration)
	u.Path = "C.cs"

	var mu sync.Mutex
	var abandoned []error
	eng := newEngine(reduce.Config{MaxIterations: 1, Hooks: reduce.Hooks{
		OnAbandon: func(_ reduce.UnitOfWork, err error) {
			mu.Lock()
			defer mu.Unlock()
			abandoned = append(abandoned, err)
		},
	}})
	_, res, err := eng.ReduceWithStats(context.Background(), u, wholeFile(u), reduce.DefaultOptions(), nil)
	require.NoError(t, err)

	require.Len(t, abandoned, res.Abandoned)
	require.NotEmpty(t, abandoned)
	for _, err := range abandoned {
		var rerr *lcrerrors.ReduceError
		require.ErrorAs(t, err, &rerr)
		assert.True(t, rerr.IsRecoverable())
		assert.NotEmpty(t, rerr.Reducer)
		assert.Equal(t, "C.cs", rerr.Path)
	}
}
