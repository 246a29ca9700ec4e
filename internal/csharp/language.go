package csharp

import (
	"strings"

	"github.com/standardbeagle/lcr/internal/annotate"
	"github.com/standardbeagle/lcr/internal/document"
	"github.com/standardbeagle/lcr/internal/syntax"
)

// Language provides the C# traversal rules used by the reduction engine.
type Language struct{}

var _ document.Language = Language{}

// Candidates walks u collecting units of work. Expression and type nodes
// are maximal units; identifier and keyword tokens outside them are token
// units. Using directives belong to the import sweep, and subtrees guarded
// with DoNotSimplify or lying outside the requested spans are not entered.
func (Language) Candidates(u *document.Unit, outside func(syntax.Span) bool) []document.Candidate {
	var out []document.Candidate
	ix := u.Index()
	tags := u.Tags

	var visit func(el syntax.Element, inherited bool)
	visit = func(el syntax.Element, inherited bool) {
		if tags.Has(el, annotate.DoNotSimplify) || el.Kind() == ErrorKind || el.Kind() == UsingDirective {
			return
		}
		if span, ok := ix.Span(el); ok && outside != nil && outside(span) {
			return
		}
		tagged := inherited || tags.Has(el, annotate.SimplifyCandidate)

		switch e := el.(type) {
		case *syntax.Token:
			if tagged && unitTokens[e.Kind()] {
				out = append(out, document.Candidate{Element: e, SimplifyAllDescendants: true})
			}
		case *syntax.Node:
			if IsExpressionOrType(e.Kind()) {
				if tagged {
					out = append(out, document.Candidate{Element: e, SimplifyAllDescendants: true})
				} else if hasTaggedDescendant(tags, e) {
					out = append(out, document.Candidate{Element: e})
				}
				return
			}
			for _, c := range e.Children() {
				visit(c, tagged)
			}
		}
	}
	visit(u.Root, false)
	return out
}

func hasTaggedDescendant(tags *annotate.Store, n *syntax.Node) bool {
	found := false
	syntax.Walk(n, func(el syntax.Element) bool {
		if found || tags.Has(el, annotate.DoNotSimplify) {
			return false
		}
		if el != syntax.Element(n) && tags.Has(el, annotate.SimplifyCandidate) {
			found = true
		}
		return !found
	})
	return found
}

// IsImport reports using directives
func (Language) IsImport(el syntax.Element) bool {
	return el != nil && el.Kind() == UsingDirective
}

// Imports returns every using directive under root
func (Language) Imports(root *syntax.Node) []*syntax.Node {
	var out []*syntax.Node
	syntax.Walk(root, func(el syntax.Element) bool {
		n, ok := el.(*syntax.Node)
		if !ok {
			return false
		}
		if n.Kind() == UsingDirective {
			out = append(out, n)
			return false
		}
		// using directives only appear at compilation unit and namespace level
		return n.Kind() == CompilationUnit || IsNamespace(n.Kind()) || n.Kind() == DeclarationList
	})
	return out
}

// NeedsParent reports simple names and keyword tokens, whose meaning
// depends on where they sit.
func (Language) NeedsParent(el syntax.Element) bool {
	if el == nil {
		return false
	}
	return el.IsToken() || el.Kind() == GenericName
}

// MarkSpans tags the elements of u covered by spans as Simplify-Candidate.
// Elements wholly inside a span are tagged whole; partially covered nodes
// are descended into so that only the covered parts are marked.
func MarkSpans(u *document.Unit, spans []syntax.Span) int {
	ix := u.Index()
	marked := 0
	var visit func(el syntax.Element)
	visit = func(el syntax.Element) {
		span, ok := ix.Span(el)
		if !ok {
			return
		}
		covered, touched := false, false
		for _, s := range spans {
			if s.ContainsSpan(span) {
				covered = true
				break
			}
			if s.IntersectsWith(span) {
				touched = true
			}
		}
		switch {
		case covered && el.Kind() != CompilationUnit:
			u.Tags.Attach(el, annotate.New(annotate.SimplifyCandidate))
			marked++
		case covered || touched:
			n, ok := el.(*syntax.Node)
			if !ok {
				if span.Length > 0 {
					u.Tags.Attach(el, annotate.New(annotate.SimplifyCandidate))
					marked++
				}
				return
			}
			for _, c := range n.Children() {
				visit(c)
			}
		}
	}
	visit(u.Root)
	return marked
}

// MarkAll tags every top-level member of u as Simplify-Candidate
func MarkAll(u *document.Unit) int {
	return MarkSpans(u, []syntax.Span{syntax.NewSpan(0, len(u.Text()))})
}

// UsingInfo describes a using directive
type UsingInfo struct {
	Alias  string
	Static bool
	Global bool
	Target syntax.Element
}

// Using decodes a using directive. The alias is found through the '='
// token because grammar versions disagree on the field name.
func Using(n *syntax.Node) UsingInfo {
	var info UsingInfo
	children := n.Children()
	eq := -1
	for i, c := range children {
		if t, ok := c.(*syntax.Token); ok {
			switch t.Text() {
			case "static":
				info.Static = true
			case "global":
				if i == 0 {
					info.Global = true
				}
			case "=":
				eq = i
			}
		}
	}
	if eq > 0 {
		for i := eq - 1; i >= 0; i-- {
			if IsName(children[i]) {
				info.Alias = NameText(children[i])
				break
			}
			if n, ok := children[i].(*syntax.Node); ok {
				if id := syntax.Find(n, func(e syntax.Element) bool { return e.Kind() == Identifier }); id != nil {
					info.Alias = NameText(id)
					break
				}
			}
		}
	}
	for i := eq + 1; i < len(children); i++ {
		if IsName(children[i]) || children[i].Kind() == PredefinedType {
			info.Target = children[i]
			break
		}
	}
	return info
}

// NameText returns the dotted text of a name without trivia or escapes,
// e.g. "System.Collections.Generic.List<int>".
func NameText(el syntax.Element) string {
	var b strings.Builder
	for _, t := range syntax.Tokens(el) {
		if t.Kind() == Comment {
			continue
		}
		b.WriteString(Unescape(t.Text()))
	}
	return b.String()
}

// QualifierAndName splits a qualified name or member access into its left
// and right parts. ok is false for other shapes.
func QualifierAndName(el syntax.Element) (qualifier, name syntax.Element, ok bool) {
	n, isNode := el.(*syntax.Node)
	if !isNode || n.ChildCount() < 3 {
		return nil, nil, false
	}
	switch n.Kind() {
	case QualifiedName:
		qualifier = n.Field("qualifier")
	case MemberAccess:
		qualifier = n.Field("expression")
	case AliasQualified:
		qualifier = n.Field("alias")
	default:
		return nil, nil, false
	}
	if qualifier == nil {
		qualifier = n.Child(0)
	}
	name = n.Field("name")
	if name == nil {
		name = n.Child(n.ChildCount() - 1)
	}
	return qualifier, name, true
}

// Declarator returns the name and initializer of a variable declarator
func Declarator(n *syntax.Node) (name *syntax.Token, init syntax.Element) {
	if f, ok := n.Field("name").(*syntax.Token); ok {
		name = f
	}
	children := n.Children()
	for i, c := range children {
		if t, ok := c.(*syntax.Token); ok {
			if name == nil && t.Kind() == Identifier {
				name = t
			}
			if t.Text() == "=" && i+1 < len(children) {
				init = children[i+1]
			}
			continue
		}
		if c.Kind() == EqualsValueClause {
			cn := c.(*syntax.Node)
			init = cn.Child(cn.ChildCount() - 1)
		}
	}
	return name, init
}

// DeclarationType returns the declared type of a variable declaration and
// its declarators.
func DeclarationType(n *syntax.Node) (typ syntax.Element, declarators []*syntax.Node) {
	typ = n.Field("type")
	for _, c := range n.Children() {
		if cn, ok := c.(*syntax.Node); ok && cn.Kind() == VariableDeclarator {
			declarators = append(declarators, cn)
		} else if typ == nil && c.Kind() != VariableDeclarator && !isPunct(c) {
			typ = c
		}
	}
	return typ, declarators
}

// TypeDeclarationName returns the declared name of a type, method or
// namespace declaration.
func TypeDeclarationName(n *syntax.Node) string {
	if f := n.Field("name"); f != nil {
		return NameText(f)
	}
	for _, c := range n.Children() {
		if c.Kind() == Identifier || c.Kind() == QualifiedName {
			return NameText(c)
		}
	}
	return ""
}

// Body returns the member list or block of a declaration, if any
func Body(n *syntax.Node) *syntax.Node {
	if b, ok := n.Field("body").(*syntax.Node); ok {
		return b
	}
	for _, c := range n.Children() {
		if cn, ok := c.(*syntax.Node); ok && (cn.Kind() == DeclarationList || cn.Kind() == Block) {
			return cn
		}
	}
	return nil
}

// Arguments returns the argument expressions of an argument list
func Arguments(list *syntax.Node) []syntax.Element {
	var out []syntax.Element
	for _, c := range list.Children() {
		an, ok := c.(*syntax.Node)
		if !ok || an.Kind() != Argument {
			continue
		}
		if e := an.Field("expression"); e != nil {
			out = append(out, e)
			continue
		}
		out = append(out, an.Child(an.ChildCount()-1))
	}
	return out
}

// Inner returns the expression inside parentheses
func Inner(paren *syntax.Node) syntax.Element {
	for _, c := range paren.Children() {
		if !isPunct(c) {
			return c
		}
	}
	return nil
}

func isPunct(el syntax.Element) bool {
	t, ok := el.(*syntax.Token)
	if !ok {
		return false
	}
	switch t.Text() {
	case "(", ")", ",", ";", "=", ".", "{", "}", "[", "]":
		return true
	}
	return false
}
