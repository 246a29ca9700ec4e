package syntax

// Index is the positional view of one tree snapshot: parent links and
// absolute offsets for every element under a root. It is built once and is
// read-only afterwards, so it can be shared between goroutines.
type Index struct {
	root    Element
	base    int
	parents map[Element]*Node
	offsets map[Element]int
}

// NewIndex indexes root at offset zero
func NewIndex(root Element) *Index {
	return NewIndexAt(root, 0)
}

// NewIndexAt indexes a subtree that starts at offset base of some larger
// document. Speculative overlays use this to give a detached subtree the
// positions it would have in place.
func NewIndexAt(root Element, base int) *Index {
	ix := &Index{
		root:    root,
		base:    base,
		parents: make(map[Element]*Node),
		offsets: make(map[Element]int),
	}
	if root == nil {
		return ix
	}

	type frame struct {
		el     Element
		offset int
	}
	stack := []frame{{root, base}}
	for len(stack) > 0 {
		f := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		ix.offsets[f.el] = f.offset

		n, ok := f.el.(*Node)
		if !ok {
			continue
		}
		offset := f.offset
		for _, c := range n.children {
			ix.parents[c] = n
			stack = append(stack, frame{c, offset})
			offset += c.FullWidth()
		}
	}
	return ix
}

// Root returns the indexed root
func (ix *Index) Root() Element {
	return ix.root
}

// Len returns the number of indexed elements
func (ix *Index) Len() int {
	return len(ix.offsets)
}

// Contains reports whether el belongs to this snapshot
func (ix *Index) Contains(el Element) bool {
	if el == nil {
		return false
	}
	_, ok := ix.offsets[el]
	return ok
}

// Parent returns the parent of el within the snapshot. The root has none.
func (ix *Index) Parent(el Element) (*Node, bool) {
	p, ok := ix.parents[el]
	return p, ok
}

// FullSpan returns the span of el including its outer trivia
func (ix *Index) FullSpan(el Element) (Span, bool) {
	off, ok := ix.offsets[el]
	if !ok {
		return Span{}, false
	}
	return Span{Start: off, Length: el.FullWidth()}, true
}

// Span returns the span of el without the leading trivia of its first
// token and the trailing trivia of its last token.
func (ix *Index) Span(el Element) (Span, bool) {
	full, ok := ix.FullSpan(el)
	if !ok {
		return Span{}, false
	}
	leading, trailing := OuterTrivia(el)
	start := full.Start + len(leading)
	end := full.End() - len(trailing)
	return NewSpan(start, end), true
}

// Ancestors returns the parents of el from the nearest outwards
func (ix *Index) Ancestors(el Element) []*Node {
	var out []*Node
	for {
		p, ok := ix.parents[el]
		if !ok {
			return out
		}
		out = append(out, p)
		el = p
	}
}

// Enclosing returns the nearest ancestor of el (or el itself) whose kind is
// one of kinds.
func (ix *Index) Enclosing(el Element, kinds ...Kind) *Node {
	if n, ok := el.(*Node); ok && hasKind(n.kind, kinds) {
		return n
	}
	for _, a := range ix.Ancestors(el) {
		if hasKind(a.kind, kinds) {
			return a
		}
	}
	return nil
}

func hasKind(k Kind, kinds []Kind) bool {
	for _, c := range kinds {
		if k == c {
			return true
		}
	}
	return false
}
