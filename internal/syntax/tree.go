// Package syntax provides the immutable tree the reduction engine rewrites.
//
// Trees are green-style values: a Node owns its children and never changes
// after construction, and identity is pointer identity. Positions and parent
// links are not stored on elements; they belong to a snapshot and are
// computed by Index. Replacing an element rebuilds only its ancestors, so
// unchanged subtrees are shared between snapshots and keep their identity.
package syntax

import "strings"

// Kind is a grammar kind name, e.g. "qualified_name" or "identifier".
type Kind string

// Element is either a *Node or a *Token.
type Element interface {
	Kind() Kind
	// FullWidth is the number of characters the element covers, trivia included.
	FullWidth() int
	IsToken() bool
	writeTo(b *strings.Builder)
}

// Token is a leaf element. Whitespace and comments around a token are kept
// as trivia so that the concatenated text of a tree reproduces its source.
type Token struct {
	kind     Kind
	text     string
	leading  string
	trailing string
}

// NewToken creates a token
func NewToken(kind Kind, text, leading, trailing string) *Token {
	return &Token{kind: kind, text: text, leading: leading, trailing: trailing}
}

func (t *Token) Kind() Kind             { return t.kind }
func (t *Token) Text() string           { return t.text }
func (t *Token) LeadingTrivia() string  { return t.leading }
func (t *Token) TrailingTrivia() string { return t.trailing }
func (t *Token) IsToken() bool          { return true }

func (t *Token) FullWidth() int {
	return len(t.leading) + len(t.text) + len(t.trailing)
}

// WithText returns a new token with the same kind and trivia
func (t *Token) WithText(text string) *Token {
	return &Token{kind: t.kind, text: text, leading: t.leading, trailing: t.trailing}
}

// WithKind returns a new token with the same text and trivia
func (t *Token) WithKind(kind Kind) *Token {
	return &Token{kind: kind, text: t.text, leading: t.leading, trailing: t.trailing}
}

// WithTrivia returns a new token with replaced trivia
func (t *Token) WithTrivia(leading, trailing string) *Token {
	return &Token{kind: t.kind, text: t.text, leading: leading, trailing: trailing}
}

func (t *Token) writeTo(b *strings.Builder) {
	b.WriteString(t.leading)
	b.WriteString(t.text)
	b.WriteString(t.trailing)
}

func (t *Token) String() string {
	return t.text
}

// Node is an interior element.
type Node struct {
	kind     Kind
	children []Element
	fields   map[string]int
	width    int
}

// NewNode creates a node. fields maps grammar field names to child indexes
// and may be nil; the map is owned by the node afterwards.
func NewNode(kind Kind, children []Element, fields map[string]int) *Node {
	n := &Node{kind: kind, children: children, fields: fields}
	for _, c := range children {
		n.width += c.FullWidth()
	}
	return n
}

func (n *Node) Kind() Kind     { return n.kind }
func (n *Node) FullWidth() int { return n.width }
func (n *Node) IsToken() bool  { return false }

// Children returns the child slice. Callers must not modify it.
func (n *Node) Children() []Element {
	return n.children
}

func (n *Node) ChildCount() int {
	return len(n.children)
}

// Child returns the i-th child or nil when out of range
func (n *Node) Child(i int) Element {
	if i < 0 || i >= len(n.children) {
		return nil
	}
	return n.children[i]
}

// Field returns the child bound to a grammar field name, or nil
func (n *Node) Field(name string) Element {
	if i, ok := n.fields[name]; ok {
		return n.Child(i)
	}
	return nil
}

// FieldOf returns the field name under which child is stored, or "".
func (n *Node) FieldOf(child Element) string {
	for name, i := range n.fields {
		if n.Child(i) == child {
			return name
		}
	}
	return ""
}

// IndexOf returns the position of child, or -1
func (n *Node) IndexOf(child Element) int {
	for i, c := range n.children {
		if c == child {
			return i
		}
	}
	return -1
}

// WithChildren returns a new node of the same kind. Field bindings are kept
// when the arity is unchanged.
func (n *Node) WithChildren(children []Element) *Node {
	fields := n.fields
	if len(children) != len(n.children) {
		fields = nil
	}
	return NewNode(n.kind, children, fields)
}

// WithChild returns a new node with the i-th child replaced
func (n *Node) WithChild(i int, child Element) *Node {
	children := make([]Element, len(n.children))
	copy(children, n.children)
	children[i] = child
	return NewNode(n.kind, children, n.fields)
}

func (n *Node) writeTo(b *strings.Builder) {
	for _, c := range n.children {
		c.writeTo(b)
	}
}

func (n *Node) String() string {
	return Text(n)
}

// Clone returns a shallow copy of el with a fresh identity
func Clone(el Element) Element {
	switch e := el.(type) {
	case *Token:
		c := *e
		return &c
	case *Node:
		c := *e
		return &c
	}
	return el
}

// Text returns the full text of el, trivia included
func Text(el Element) string {
	if el == nil {
		return ""
	}
	var b strings.Builder
	b.Grow(el.FullWidth())
	el.writeTo(&b)
	return b.String()
}

// TrimmedText returns the text of el without its outer trivia.
func TrimmedText(el Element) string {
	text := Text(el)
	first, last := FirstToken(el), LastToken(el)
	if first == nil {
		return ""
	}
	return text[len(first.leading) : len(text)-len(last.trailing)]
}

// FirstToken returns the first token under el, or nil for empty nodes
func FirstToken(el Element) *Token {
	switch e := el.(type) {
	case *Token:
		return e
	case *Node:
		for _, c := range e.children {
			if t := FirstToken(c); t != nil {
				return t
			}
		}
	}
	return nil
}

// LastToken returns the last token under el, or nil for empty nodes
func LastToken(el Element) *Token {
	switch e := el.(type) {
	case *Token:
		return e
	case *Node:
		for i := len(e.children) - 1; i >= 0; i-- {
			if t := LastToken(e.children[i]); t != nil {
				return t
			}
		}
	}
	return nil
}

// Tokens returns every token under el in document order
func Tokens(el Element) []*Token {
	var out []*Token
	Walk(el, func(e Element) bool {
		if t, ok := e.(*Token); ok {
			out = append(out, t)
		}
		return true
	})
	return out
}

// WithOuterTrivia returns el with the leading trivia of its first token and
// the trailing trivia of its last token replaced.
func WithOuterTrivia(el Element, leading, trailing string) Element {
	first, last := FirstToken(el), LastToken(el)
	if first == nil {
		return el
	}
	if first == last {
		return Replace(el, first, first.WithTrivia(leading, trailing))
	}
	el = Replace(el, first, first.WithTrivia(leading, first.trailing))
	return Replace(el, last, last.WithTrivia(last.leading, trailing))
}

// OuterTrivia returns the leading trivia of the first token and the trailing
// trivia of the last token of el.
func OuterTrivia(el Element) (leading, trailing string) {
	if first := FirstToken(el); first != nil {
		leading = first.leading
	}
	if last := LastToken(el); last != nil {
		trailing = last.trailing
	}
	return leading, trailing
}
