package syntax

import "strings"

// ReplaceFunc is called once for every substitution made by ReplaceAll. It
// receives the original element and the element mapped for it and returns
// what is actually placed in the tree.
type ReplaceFunc func(original, replacement Element) Element

// RebuildFunc is called for every ancestor ReplaceAll or RemoveNodes
// rebuilds on the way to an edit. It receives the node being replaced and
// its rebuilt copy and returns what is placed in the tree. Callers use it
// to carry side-channel state keyed by identity over to the new node.
type RebuildFunc func(original, rebuilt Element) Element

// ReplaceAll substitutes every mapped node and token in one pass over root.
// Substitutions are simultaneous: a mapped element is not searched for
// further mapped descendants, and offsets are never consulted, so edits
// cannot interfere with each other. A nil hook places replacements as is;
// a nil rebuild places rebuilt ancestors as is.
//
// The result is always a node; a mapping for root itself is honoured only
// when the replacement is a node.
func ReplaceAll(root *Node, nodes map[*Node]Element, tokens map[*Token]Element, hook ReplaceFunc, rebuild RebuildFunc) *Node {
	if len(nodes) == 0 && len(tokens) == 0 {
		return root
	}
	lookup := func(el Element) (Element, bool) {
		switch e := el.(type) {
		case *Node:
			r, ok := nodes[e]
			return r, ok && r != nil
		case *Token:
			r, ok := tokens[e]
			return r, ok && r != nil
		}
		return nil, false
	}
	out, _ := replace(root, lookup, hook, rebuild)
	if n, ok := out.(*Node); ok {
		return n
	}
	return root
}

// Replace substitutes one element anywhere under root. When old is not
// found root is returned unchanged.
func Replace(root, old, replacement Element) Element {
	out, _ := ReplaceIn(root, old, replacement)
	return out
}

// ReplaceIn is Replace reporting whether old was found
func ReplaceIn(root, old, replacement Element) (Element, bool) {
	lookup := func(el Element) (Element, bool) {
		if el == old {
			return replacement, true
		}
		return nil, false
	}
	return replace(root, lookup, nil, nil)
}

// ReplaceChild splices replacement into parent in place of its direct child
// old. The parent keeps its field bindings.
func ReplaceChild(parent *Node, old, replacement Element) (*Node, bool) {
	i := parent.IndexOf(old)
	if i < 0 {
		return parent, false
	}
	return parent.WithChild(i, replacement), true
}

func replace(el Element, lookup func(Element) (Element, bool), hook ReplaceFunc, rebuild RebuildFunc) (Element, bool) {
	if r, ok := lookup(el); ok {
		if hook != nil {
			r = hook(el, r)
		}
		return r, true
	}
	n, ok := el.(*Node)
	if !ok {
		return el, false
	}
	var children []Element
	for i, c := range n.children {
		nc, changed := replace(c, lookup, hook, rebuild)
		if !changed {
			continue
		}
		if children == nil {
			children = make([]Element, len(n.children))
			copy(children, n.children)
		}
		children[i] = nc
	}
	if children == nil {
		return n, false
	}
	return rebuilt(n, NewNode(n.kind, children, n.fields), rebuild), true
}

func rebuilt(original Element, out *Node, rebuild RebuildFunc) Element {
	if rebuild == nil {
		return out
	}
	return rebuild(original, out)
}

// RemoveNodes deletes the given subtrees. Leading trivia of a removed node
// that carries more than whitespace (comments, directives) moves to the
// next surviving token so that file headers are not lost. rebuild, when
// set, sees every node and token rebuilt on the way.
func RemoveNodes(root *Node, remove map[*Node]bool, rebuild RebuildFunc) *Node {
	if len(remove) == 0 {
		return root
	}
	out, _ := removeFrom(root, remove, "", rebuild)
	if n, ok := out.(*Node); ok {
		return n
	}
	return root
}

// removeFrom returns the rebuilt node and any orphaned leading trivia that
// still needs a home after the last child.
func removeFrom(n *Node, remove map[*Node]bool, carry string, rebuild RebuildFunc) (Element, string) {
	var (
		children []Element
		kept     []int
		changed  bool
	)
	for i, c := range n.children {
		if cn, ok := c.(*Node); ok && remove[cn] {
			changed = true
			if lead, _ := OuterTrivia(cn); strings.TrimSpace(lead) != "" {
				carry += lead
			}
			continue
		}
		if carry != "" {
			c = prependTrivia(c, carry, rebuild)
			carry = ""
			changed = true
		}
		if cn, ok := c.(*Node); ok && containsAny(cn, remove) {
			c, carry = removeFrom(cn, remove, carry, rebuild)
			changed = true
		}
		children = append(children, c)
		kept = append(kept, i)
	}
	if !changed {
		return n, carry
	}
	return rebuilt(n, NewNode(n.kind, children, remapFields(n.fields, kept)), rebuild), carry
}

func containsAny(n *Node, set map[*Node]bool) bool {
	found := false
	Walk(n, func(el Element) bool {
		if found {
			return false
		}
		if cn, ok := el.(*Node); ok && set[cn] {
			found = true
		}
		return !found
	})
	return found
}

func prependTrivia(el Element, lead string, rebuild RebuildFunc) Element {
	first := FirstToken(el)
	if first == nil {
		return el
	}
	lookup := func(e Element) (Element, bool) {
		if e == Element(first) {
			return first.WithTrivia(lead+first.leading, first.trailing), true
		}
		return nil, false
	}
	var hook ReplaceFunc
	if rebuild != nil {
		hook = func(original, replacement Element) Element { return rebuild(original, replacement) }
	}
	out, _ := replace(el, lookup, hook, rebuild)
	return out
}

func remapFields(fields map[string]int, kept []int) map[string]int {
	if len(fields) == 0 {
		return nil
	}
	pos := make(map[int]int, len(kept))
	for newIdx, oldIdx := range kept {
		pos[oldIdx] = newIdx
	}
	out := make(map[string]int, len(fields))
	for name, oldIdx := range fields {
		if newIdx, ok := pos[oldIdx]; ok {
			out[name] = newIdx
		}
	}
	return out
}

// Walk visits el and its descendants in document order. Returning false
// from fn skips the children of the visited element.
func Walk(el Element, fn func(Element) bool) {
	if el == nil || !fn(el) {
		return
	}
	if n, ok := el.(*Node); ok {
		for _, c := range n.children {
			Walk(c, fn)
		}
	}
}

// Find returns the first element in document order satisfying pred
func Find(root Element, pred func(Element) bool) Element {
	var found Element
	Walk(root, func(el Element) bool {
		if found != nil {
			return false
		}
		if pred(el) {
			found = el
			return false
		}
		return true
	})
	return found
}

// FindAll returns every element satisfying pred
func FindAll(root Element, pred func(Element) bool) []Element {
	var out []Element
	Walk(root, func(el Element) bool {
		if pred(el) {
			out = append(out, el)
		}
		return true
	})
	return out
}
