package reducers

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/standardbeagle/lcr/internal/annotate"
	"github.com/standardbeagle/lcr/internal/csharp"
	"github.com/standardbeagle/lcr/internal/reduce"
	"github.com/standardbeagle/lcr/internal/semantic"
	"github.com/standardbeagle/lcr/internal/syntax"
)

func TestRegistryOrder(t *testing.T) {
	reg := Builtin()
	assert.Equal(t, []string{"var", "name", "parentheses", "this-qualifier", "escaping"}, reg.Names())

	all := Default()
	require.Len(t, all, 5)
	assert.Equal(t, "var", all[0].Name())

	r, ok := reg.Get(" name ")
	require.True(t, ok)
	assert.Equal(t, "name", r.Name())
}

func TestRegistrySelect(t *testing.T) {
	tests := []struct {
		name    string
		names   []string
		want    []string
		wantErr string
	}{
		{name: "empty selects all", names: nil, want: Builtin().Names()},
		{name: "keeps given order", names: []string{"escaping", "name"}, want: []string{"escaping", "name"}},
		{name: "drops duplicates", names: []string{"name", "name", ""}, want: []string{"name"}},
		{name: "suggests close names", names: []string{"nmae"}, wantErr: `did you mean "name"`},
		{name: "unknown", names: []string{"inline-everything"}, wantErr: `unknown reducer "inline-everything"`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Select(tt.names)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			var names []string
			for _, r := range got {
				names = append(names, r.Name())
			}
			assert.Equal(t, tt.want, names)
		})
	}
}

func TestApplicability(t *testing.T) {
	opts := reduce.DefaultOptions()
	assert.False(t, Var{}.IsApplicable(opts))
	assert.True(t, Name{}.IsApplicable(opts))
	assert.True(t, Parentheses{}.IsApplicable(opts))
	assert.True(t, ThisQualifier{}.IsApplicable(opts))
	assert.True(t, Escaping{}.IsApplicable(opts))

	opts.PreferVar = true
	opts.QualifyFieldAccess = true
	opts.PreferSimpleNames = false
	opts.PreferIntrinsicKeywords = false
	opts.RemoveUnnecessaryParens = false
	assert.True(t, Var{}.IsApplicable(opts))
	assert.False(t, Name{}.IsApplicable(opts))
	assert.False(t, Parentheses{}.IsApplicable(opts))
	assert.False(t, ThisQualifier{}.IsApplicable(opts))
}

// reduceWith runs the named reducers over the whole of src
func reduceWith(t *testing.T, src string, opts reduce.Options, names ...string) string {
	t.Helper()
	u, err := csharp.NewParser().ParseString(context.Background(), "test.cs", src)
	require.NoError(t, err)
	csharp.MarkAll(u)

	rs, err := Select(names)
	require.NoError(t, err)
	eng := &reduce.Engine{
		Analyzer: semantic.NewAnalyzer(),
		Language: csharp.Language{},
		Reducers: rs,
		Config:   reduce.Config{Serial: true},
	}
	out, err := eng.Reduce(context.Background(), u, []syntax.Span{syntax.NewSpan(0, len(u.Text()))}, opts, nil)
	require.NoError(t, err)
	return out.Text()
}

func TestNameReducer(t *testing.T) {
	src := `using System;
using System.Collections.Generic;

class C
{
    System.Collections.Generic.List<System.Int32> items;
    System.Guid id;
}
`
	t.Run("keywords and simple names", func(t *testing.T) {
		out := reduceWith(t, src, reduce.DefaultOptions(), "name")
		assert.Contains(t, out, "List<int> items;")
		assert.Contains(t, out, "Guid id;")
	})

	t.Run("simple names only", func(t *testing.T) {
		opts := reduce.DefaultOptions()
		opts.PreferIntrinsicKeywords = false
		out := reduceWith(t, src, opts, "name")
		assert.Contains(t, out, "List<Int32> items;")
	})

	t.Run("keeps the qualifier when the simple name is not imported", func(t *testing.T) {
		out := reduceWith(t, "class C\n{\n    System.Guid id;\n}\n", reduce.DefaultOptions(), "name")
		assert.Contains(t, out, "System.Guid id;")
	})

	t.Run("keeps the qualifier when the simple name is shadowed", func(t *testing.T) {
		shadowed := `using System;

class Guid { }

class C
{
    System.Guid id;
}
`
		out := reduceWith(t, shadowed, reduce.DefaultOptions(), "name")
		assert.Contains(t, out, "System.Guid id;")
	})
}

func TestThisQualifierReducer(t *testing.T) {
	src := `class C
{
    int count;

    void M(int count)
    {
        this.count = count;
    }

    void N()
    {
        this.count = 1;
    }
}
`
	out := reduceWith(t, src, reduce.DefaultOptions(), "this-qualifier")
	assert.Contains(t, out, "this.count = count;", "the parameter shadows the field")
	assert.Contains(t, out, "        count = 1;")

	opts := reduce.DefaultOptions()
	opts.QualifyFieldAccess = true
	out = reduceWith(t, src, opts, "this-qualifier")
	assert.NotContains(t, out, "        count = 1;")
}

func TestThisQualifierKeepsFieldsShadowedByLocals(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want string
	}{
		{
			name: "local initialized from the field",
			src:  "class C\n{\n    private int x;\n    void M()\n    {\n        int x = this.x;\n    }\n}\n",
			want: "int x = this.x;",
		},
		{
			name: "implicitly typed local initialized from the field",
			src:  "class C\n{\n    private int x;\n    void M()\n    {\n        var x = this.x;\n    }\n}\n",
			want: "var x = this.x;",
		},
		{
			name: "local declared after the access",
			src:  "class C\n{\n    int x;\n    void M()\n    {\n        this.x = 1;\n        int x = 2;\n    }\n}\n",
			want: "this.x = 1;",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := reduceWith(t, tt.src, reduce.DefaultOptions(), "this-qualifier")
			assert.Contains(t, out, tt.want)
		})
	}
}

func TestParenthesesReducer(t *testing.T) {
	src := `class C
{
    int M(int a, int b)
    {
        int x = (a);
        int y = (a + b) * 2;
        return(x);
    }
}
`
	out := reduceWith(t, src, reduce.DefaultOptions(), "parentheses")
	assert.Contains(t, out, "int x = a;")
	assert.Contains(t, out, "int y = (a + b) * 2;", "non-primary expressions keep their parentheses")
	assert.Contains(t, out, "return x;")
}

func TestVarReducer(t *testing.T) {
	src := `class C
{
    void M()
    {
        string s = "a";
        object o = "b";
        const int k = 1;
        int a = 1, b = 2;
    }
}
`
	opts := reduce.DefaultOptions()
	opts.PreferVar = true
	out := reduceWith(t, src, opts, "var")
	assert.Contains(t, out, `var s = "a";`)
	assert.Contains(t, out, `object o = "b";`, "the initializer has another type")
	assert.Contains(t, out, "const int k = 1;")
	assert.Contains(t, out, "int a = 1, b = 2;")
}

func TestEscapingReducer(t *testing.T) {
	src := `class C
{
    void M()
    {
        int @value2 = 1;
        int @int = @value2;
    }
}
`
	out := reduceWith(t, src, reduce.DefaultOptions(), "escaping")
	assert.Contains(t, out, "int value2 = 1;")
	assert.Contains(t, out, "int @int = value2;")
}

func TestSplicePreservesTags(t *testing.T) {
	a := syntax.NewToken(csharp.Identifier, "a", "", "")
	b := syntax.NewToken(csharp.Identifier, "b", "", "")
	inner := syntax.NewNode(csharp.Parenthesized, []syntax.Element{a}, nil)
	root := syntax.NewNode(csharp.Block, []syntax.Element{inner}, nil)

	r := &rewriter{}
	r.Initialize(reduce.RewriteContext{Tags: newStoreWith(inner)})

	out := r.splice(root, a, b)
	require.NotSame(t, root, out)
	rebuilt := out.(*syntax.Node).Child(0)
	assert.True(t, r.rc.Tags.Has(rebuilt, annotate.SimplifyCandidate), "rebuilt nodes keep their tags")
	assert.Same(t, root, r.splice(root, syntax.NewToken(csharp.Identifier, "z", "", ""), b))
}

func newStoreWith(el syntax.Element) *annotate.Store {
	s := annotate.NewStore()
	s.Attach(el, annotate.New(annotate.SimplifyCandidate))
	return s
}
