package syntax

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// buildDecl builds "System.String s;\n" as
// (decl (qualified_name System . String) s ;)
func buildDecl() (root *Node, qualified *Node, name *Token) {
	system := NewToken("identifier", "System", "", "")
	dot := NewToken(".", ".", "", "")
	str := NewToken("identifier", "String", "", " ")
	qualified = NewNode("qualified_name", []Element{system, dot, str}, map[string]int{"qualifier": 0, "name": 2})
	name = NewToken("identifier", "s", "", "")
	semi := NewToken(";", ";", "", "\n")
	root = NewNode("decl", []Element{qualified, name, semi}, map[string]int{"type": 0})
	return root, qualified, name
}

func TestTextRoundTrip(t *testing.T) {
	root, qualified, _ := buildDecl()

	assert.Equal(t, "System.String s;\n", Text(root))
	assert.Equal(t, "System.String ", Text(qualified))
	assert.Equal(t, "System.String", TrimmedText(qualified))
	assert.Equal(t, len("System.String s;\n"), root.FullWidth())
	assert.Same(t, qualified, root.Field("type"))
	assert.Equal(t, "type", root.FieldOf(qualified))
}

func TestIndex(t *testing.T) {
	root, qualified, name := buildDecl()
	ix := NewIndex(root)

	t.Run("parents", func(t *testing.T) {
		p, ok := ix.Parent(qualified)
		require.True(t, ok)
		assert.Same(t, root, p)

		_, ok = ix.Parent(root)
		assert.False(t, ok, "root has no parent")
	})

	t.Run("spans exclude outer trivia", func(t *testing.T) {
		full, ok := ix.FullSpan(qualified)
		require.True(t, ok)
		assert.Equal(t, Span{Start: 0, Length: 14}, full)

		span, ok := ix.Span(qualified)
		require.True(t, ok)
		assert.Equal(t, Span{Start: 0, Length: 13}, span)

		span, ok = ix.Span(name)
		require.True(t, ok)
		assert.Equal(t, Span{Start: 14, Length: 1}, span)
	})

	t.Run("membership", func(t *testing.T) {
		assert.True(t, ix.Contains(name))
		assert.False(t, ix.Contains(NewToken("identifier", "s", "", "")))
	})

	t.Run("offset base", func(t *testing.T) {
		sub := NewIndexAt(qualified, 100)
		span, ok := sub.Span(qualified)
		require.True(t, ok)
		assert.Equal(t, 100, span.Start)
	})

	t.Run("enclosing", func(t *testing.T) {
		first := FirstToken(qualified)
		assert.Same(t, qualified, ix.Enclosing(first, "qualified_name"))
		assert.Same(t, root, ix.Enclosing(first, "decl"))
		assert.Nil(t, ix.Enclosing(first, "class_declaration"))
	})
}

func TestReplaceAll(t *testing.T) {
	root, qualified, name := buildDecl()

	keyword := NewToken("predefined_type", "string", "", " ")
	renamed := name.WithText("t")

	var seen [][2]Element
	out := ReplaceAll(root,
		map[*Node]Element{qualified: keyword},
		map[*Token]Element{name: renamed},
		func(orig, repl Element) Element {
			seen = append(seen, [2]Element{orig, repl})
			return repl
		}, nil)

	assert.Equal(t, "string t;\n", Text(out))
	assert.Len(t, seen, 2, "hook runs once per substitution")
	assert.Equal(t, "System.String s;\n", Text(root), "original is untouched")
	assert.Same(t, root.Child(2), out.Child(2), "unchanged children are shared")
	assert.Same(t, out.Field("type"), keyword, "fields survive rebuilds")
}

func TestReplaceAllRebuildCallback(t *testing.T) {
	root, _, name := buildDecl()

	rebuiltFrom := map[Element]Element{}
	out := ReplaceAll(root, nil, map[*Token]Element{name: name.WithText("t")}, nil,
		func(original, rebuilt Element) Element {
			rebuiltFrom[rebuilt] = original
			return rebuilt
		})

	require.NotSame(t, root, out)
	assert.Same(t, root, rebuiltFrom[out], "the root is rebuilt from the original root")
	assert.Len(t, rebuiltFrom, 1, "only ancestors of an edit are rebuilt")
}

func TestReplaceAllNoEdits(t *testing.T) {
	root, _, _ := buildDecl()
	assert.Same(t, root, ReplaceAll(root, nil, nil, nil, nil))
}

func TestReplaceIn(t *testing.T) {
	root, qualified, _ := buildDecl()

	_, found := ReplaceIn(root, NewToken("x", "x", "", ""), qualified)
	assert.False(t, found)

	str := qualified.Child(2)
	out, found := ReplaceIn(root, str, NewToken("identifier", "Int32", "", " "))
	assert.True(t, found)
	assert.Equal(t, "System.Int32 s;\n", Text(out))
}

func TestWithOuterTrivia(t *testing.T) {
	_, qualified, _ := buildDecl()
	out := WithOuterTrivia(qualified, "  ", "\n")
	assert.Equal(t, "  System.String\n", Text(out))

	single := NewToken("identifier", "x", "", "")
	assert.Equal(t, "(x)", Text(WithOuterTrivia(single, "(", ")")))
}

func TestRemoveNodes(t *testing.T) {
	using1 := NewNode("using_directive", []Element{
		NewToken("using", "using", "// header\n", " "),
		NewToken("identifier", "System", "", ""),
		NewToken(";", ";", "", "\n"),
	}, nil)
	using2 := NewNode("using_directive", []Element{
		NewToken("using", "using", "", " "),
		NewToken("identifier", "Text", "", ""),
		NewToken(";", ";", "", "\n"),
	}, nil)
	class := NewNode("class_declaration", []Element{
		NewToken("class", "class", "", " "),
		NewToken("identifier", "C", "", " "),
		NewToken("{", "{", "", ""),
		NewToken("}", "}", "", "\n"),
	}, map[string]int{"name": 1})
	root := NewNode("compilation_unit", []Element{using1, using2, class}, nil)

	t.Run("comment trivia moves forward", func(t *testing.T) {
		out := RemoveNodes(root, map[*Node]bool{using1: true}, nil)
		assert.Equal(t, "// header\nusing Text;\nclass C {}\n", Text(out))
	})

	t.Run("fields are remapped", func(t *testing.T) {
		inner := NewNode("wrapper", []Element{using2, class}, map[string]int{"body": 1})
		out := RemoveNodes(NewNode("compilation_unit", []Element{inner}, nil), map[*Node]bool{using2: true}, nil)
		wrapper := out.Child(0).(*Node)
		assert.Same(t, class, wrapper.Field("body"))
	})

	t.Run("empty set is identity", func(t *testing.T) {
		assert.Same(t, root, RemoveNodes(root, nil, nil))
	})
}

func TestSpan(t *testing.T) {
	a := NewSpan(0, 5)
	assert.True(t, a.OverlapsWith(NewSpan(4, 9)))
	assert.False(t, a.OverlapsWith(NewSpan(5, 9)))
	assert.True(t, a.IntersectsWith(NewSpan(5, 9)))
	assert.True(t, a.ContainsSpan(NewSpan(1, 3)))
	assert.Equal(t, "[0..5)", a.String())
	assert.Equal(t, 0, NewSpan(3, 1).Length)
}

func TestFindAndWalk(t *testing.T) {
	root, _, name := buildDecl()
	found := Find(root, func(el Element) bool {
		tok, ok := el.(*Token)
		return ok && tok.Text() == "s"
	})
	assert.Same(t, name, found)

	idents := FindAll(root, func(el Element) bool { return el.Kind() == "identifier" })
	assert.Len(t, idents, 3)
	assert.Len(t, Tokens(root), 5)
}
