package semantic

import (
	"context"

	"github.com/standardbeagle/lcr/internal/csharp"
	"github.com/standardbeagle/lcr/internal/debug"
	"github.com/standardbeagle/lcr/internal/syntax"
)

// UnusedImports returns the using directives that no name in the unit
// depends on. The answer is conservative: directives naming an unknown
// namespace are kept, and when some simple name does not bind at all no
// directive is reported, since the missing name could come from any of
// them. The same holds for a member of a value that its type does not
// declare, which may be an extension method. Only real models can answer.
func (m *Model) UnusedImports(ctx context.Context) ([]*syntax.Node, error) {
	if m.base != nil {
		panic("semantic: UnusedImports requires a real model")
	}
	used := make(map[*syntax.Node]bool)
	unresolved := 0
	extensions := 0
	visited := 0

	var walkErr error
	syntax.Walk(m.unit.Root, func(el syntax.Element) bool {
		if walkErr != nil {
			return false
		}
		if visited++; visited%512 == 0 {
			if err := ctx.Err(); err != nil {
				walkErr = err
				return false
			}
		}
		switch el.Kind() {
		case csharp.UsingDirective, csharp.Comment, csharp.ErrorKind:
			return false
		case csharp.Identifier, csharp.GenericName:
		default:
			return true
		}
		if m.mayBeExtension(el) {
			extensions++
		}
		if !m.isSimpleNameUse(el) {
			return el.Kind() == csharp.GenericName
		}
		name, arity := simpleName(el)
		syms, via := m.lookup(el, name, arity)
		for _, u := range via {
			used[u] = true
		}
		if len(syms) == 0 && !m.isMemberName(el) {
			unresolved++
		}
		return el.Kind() == csharp.GenericName
	})
	if walkErr != nil {
		return nil, walkErr
	}
	if unresolved > 0 {
		debug.LogSweep("%s: %d names do not bind, keeping all imports\n", m.unit.Path, unresolved)
		return nil, nil
	}
	if extensions > 0 {
		debug.LogSweep("%s: %d possible extension calls, keeping all imports\n", m.unit.Path, extensions)
		return nil, nil
	}

	var unused []*syntax.Node
	for _, u := range (csharp.Language{}).Imports(m.unit.Root) {
		if used[u] || !m.knownImport(u) {
			continue
		}
		unused = append(unused, u)
	}
	return unused, nil
}

// knownImport reports whether the target of a using directive is known, so
// that its members can be accounted for.
func (m *Model) knownImport(u *syntax.Node) bool {
	info := csharp.Using(u)
	if info.Target == nil {
		return false
	}
	if info.Alias != "" {
		return m.resolveGlobal(info.Target) != nil
	}
	s := m.resolveGlobal(info.Target)
	if info.Static {
		return s != nil && s.Kind == TypeSymbol
	}
	return s != nil && s.Kind == NamespaceSymbol
}

// isSimpleNameUse reports identifiers that are looked up by simple name:
// not the right-hand side of a qualified name or member access, and not
// the name a declaration introduces.
func (m *Model) isSimpleNameUse(el syntax.Element) bool {
	parent, ok := m.Parent(el)
	if !ok {
		return false
	}
	switch parent.Kind() {
	case csharp.QualifiedName, csharp.MemberAccess, csharp.AliasQualified:
		if q, _, ok := csharp.QualifierAndName(parent); ok && q != el {
			return false
		}
		if parent.Kind() == csharp.AliasQualified {
			return false
		}
	case csharp.GenericName:
		return false
	case csharp.VariableDeclarator, csharp.Parameter, csharp.MethodDeclaration,
		csharp.PropertyDeclaration, csharp.NamespaceDeclaration, csharp.FileScopedNamespace,
		csharp.LocalFunctionStatement, csharp.ConstructorDeclaration,
		"enum_member_declaration", "type_parameter", "name_colon", "name_equals",
		"labeled_statement", "foreach_statement", "catch_declaration":
		if t, ok := el.(*syntax.Token); ok && t.Text() == "var" {
			return false
		}
		return declaredNameOf(parent) != el
	case csharp.VariableDeclaration:
		if t, ok := el.(*syntax.Token); ok && t.Text() == "var" {
			return false
		}
	}
	if csharp.IsTypeDeclaration(parent.Kind()) {
		return parent.Field("name") != el
	}
	return true
}

// mayBeExtension reports the name of a member access on a value when no
// member of the value's type binds it. Extension methods are looked up
// through every using directive in scope.
func (m *Model) mayBeExtension(el syntax.Element) bool {
	parent, ok := m.Parent(el)
	if !ok || parent.Kind() != csharp.MemberAccess {
		return false
	}
	q, nm, ok := csharp.QualifierAndName(parent)
	if !ok || nm != el {
		return false
	}
	if qs := m.Symbol(q); qs != nil && (qs.Kind == NamespaceSymbol || qs.Kind == TypeSymbol) {
		return false
	}
	return m.Symbol(parent) == nil
}

// isMemberName reports identifiers whose binding depends on an object
// initializer or assignment target we do not model.
func (m *Model) isMemberName(el syntax.Element) bool {
	parent, ok := m.Parent(el)
	if !ok {
		return false
	}
	if parent.Kind() == "assignment_expression" {
		if gp, ok := m.Parent(parent); ok && gp.Kind() == "initializer_expression" {
			return true
		}
	}
	return false
}

// declaredNameOf returns the identifier a declaration introduces
func declaredNameOf(n *syntax.Node) syntax.Element {
	if f := n.Field("name"); f != nil {
		return f
	}
	if f := n.Field("left"); f != nil {
		return f
	}
	var first, last syntax.Element
	for _, c := range n.Children() {
		if c.Kind() == csharp.Identifier {
			if first == nil {
				first = c
			}
			last = c
		}
	}
	if n.Kind() == csharp.Parameter {
		return last
	}
	return first
}
