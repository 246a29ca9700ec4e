package document

import (
	"testing"

	"github.com/standardbeagle/lcr/internal/annotate"
	"github.com/standardbeagle/lcr/internal/syntax"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUnitWithRoot(t *testing.T) {
	x := syntax.NewToken("identifier", "x", "", ";")
	root := syntax.NewNode("compilation_unit", []syntax.Element{x}, nil)
	u := New("a.cs", root, nil)
	require.NotNil(t, u.Tags)

	u.Tags.Attach(x, annotate.New(annotate.SimplifyCandidate))
	y := x.WithText("y")
	next := u.WithRoot(syntax.NewNode("compilation_unit", []syntax.Element{y}, nil))

	assert.Equal(t, "x;", u.Text())
	assert.Equal(t, "y;", next.Text())
	assert.Same(t, u.Tags, next.Tags)
	assert.Equal(t, "a.cs", next.Path)
	assert.False(t, u.SameText(next))
	assert.NotEqual(t, u.Fingerprint(), next.Fingerprint())

	span, ok := u.Span(x)
	require.True(t, ok)
	assert.Equal(t, syntax.NewSpan(0, 1), span)
	assert.False(t, next.Index().Contains(x))
}

func TestSameText(t *testing.T) {
	mk := func() *Unit {
		return New("", syntax.NewNode("compilation_unit", []syntax.Element{
			syntax.NewToken("identifier", "a", "", ""),
		}, nil), nil)
	}
	assert.True(t, mk().SameText(mk()))
	var nilUnit *Unit
	assert.False(t, mk().SameText(nilUnit))
}
