package semantic

import (
	"strings"

	"github.com/standardbeagle/lcr/internal/csharp"
	"github.com/standardbeagle/lcr/internal/syntax"
)

type typeDecl struct {
	sym     *Symbol
	node    *syntax.Node
	members map[string][]*Symbol
}

// declarations are the namespaces, types and members declared in a unit.
// They are collected once per real model and shared with its speculative
// models.
type declarations struct {
	namespaces map[string]bool
	types      map[string]*typeDecl
	byNode     map[*syntax.Node]*typeDecl
	methods    map[*syntax.Node]*Symbol
}

type pendingMember struct {
	sym    *Symbol
	typ    syntax.Element
	params []syntax.Element
}

// collectDeclarations runs in two passes: declared types are registered
// first so that member types can be bound against them afterwards.
func collectDeclarations(m *Model) *declarations {
	d := &declarations{
		namespaces: make(map[string]bool),
		types:      make(map[string]*typeDecl),
		byNode:     make(map[*syntax.Node]*typeDecl),
		methods:    make(map[*syntax.Node]*Symbol),
	}
	m.decls = d

	var pending []pendingMember
	var visit func(el syntax.Element, ns, outer string)
	visit = func(el syntax.Element, ns, outer string) {
		n, ok := el.(*syntax.Node)
		if !ok {
			return
		}
		switch {
		case n.Kind() == csharp.NamespaceDeclaration || n.Kind() == csharp.FileScopedNamespace:
			full := joinName(ns, csharp.TypeDeclarationName(n))
			for p := full; p != ""; p, _ = splitName(p) {
				d.namespaces[p] = true
			}
			if n.Kind() == csharp.FileScopedNamespace {
				ns = full
				// members following a file-scoped namespace are siblings
				if parent, ok := m.Parent(n); ok {
					for _, c := range parent.Children()[parent.IndexOf(n)+1:] {
						visit(c, full, "")
					}
				}
			}
			for _, c := range n.Children() {
				visit(c, full, "")
			}
			return
		case csharp.IsTypeDeclaration(n.Kind()):
			name := genericName(csharp.TypeDeclarationName(n), typeArity(n))
			container := ns
			if outer != "" {
				container = outer
			}
			full := joinName(container, name)
			td := &typeDecl{
				sym:     &Symbol{Kind: TypeSymbol, Name: name, FullName: full, Container: container, Type: full},
				node:    n,
				members: make(map[string][]*Symbol),
			}
			if _, dup := d.types[full]; !dup {
				d.types[full] = td
			}
			d.byNode[n] = td
			pending = append(pending, membersOf(td)...)
			if body := csharp.Body(n); body != nil {
				for _, c := range body.Children() {
					visit(c, ns, full)
				}
			}
			return
		case n.Kind() == csharp.CompilationUnit || n.Kind() == csharp.DeclarationList:
			for _, c := range n.Children() {
				if c.Kind() == csharp.FileScopedNamespace {
					visit(c, ns, outer)
					return
				}
				visit(c, ns, outer)
			}
		}
	}
	visit(m.unit.Root, "", "")

	for _, p := range pending {
		if p.typ != nil {
			p.sym.Type = m.typeName(p.typ)
		}
		for _, param := range p.params {
			p.sym.Params = append(p.sym.Params, m.typeName(param))
		}
	}
	return d
}

func typeArity(n *syntax.Node) int {
	for _, c := range n.Children() {
		if c.Kind() == "type_parameter_list" {
			count := 0
			for _, tp := range c.(*syntax.Node).Children() {
				if tp.Kind() == "type_parameter" {
					count++
				}
			}
			return count
		}
	}
	return 0
}

func isStatic(n *syntax.Node) bool {
	for _, c := range n.Children() {
		if c.Kind() == "modifier" && strings.TrimSpace(syntax.TrimmedText(c)) == "static" {
			return true
		}
		if t, ok := c.(*syntax.Token); ok && t.Text() == "static" {
			return true
		}
	}
	return false
}

func (td *typeDecl) add(sym *Symbol) {
	sym.Container = td.sym.FullName
	sym.FullName = td.sym.FullName + "." + sym.Name
	td.members[sym.Name] = append(td.members[sym.Name], sym)
}

// membersOf registers the fields, properties and methods of a type
// declaration. Their types are bound later.
func membersOf(td *typeDecl) []pendingMember {
	body := csharp.Body(td.node)
	if body == nil {
		return nil
	}
	var out []pendingMember
	for _, c := range body.Children() {
		n, ok := c.(*syntax.Node)
		if !ok {
			continue
		}
		switch n.Kind() {
		case csharp.FieldDeclaration:
			static := isStatic(n)
			for _, vc := range n.Children() {
				vd, ok := vc.(*syntax.Node)
				if !ok || vd.Kind() != csharp.VariableDeclaration {
					continue
				}
				typ, declarators := csharp.DeclarationType(vd)
				for _, decl := range declarators {
					name, _ := csharp.Declarator(decl)
					if name == nil {
						continue
					}
					sym := &Symbol{Kind: FieldSymbol, Name: csharp.Unescape(name.Text()), Static: static}
					td.add(sym)
					out = append(out, pendingMember{sym: sym, typ: typ})
				}
			}
		case csharp.PropertyDeclaration:
			sym := &Symbol{Kind: PropertySymbol, Name: csharp.TypeDeclarationName(n), Static: isStatic(n)}
			td.add(sym)
			out = append(out, pendingMember{sym: sym, typ: n.Field("type")})
		case csharp.MethodDeclaration:
			sym := &Symbol{Kind: MethodSymbol, Name: csharp.TypeDeclarationName(n), Static: isStatic(n)}
			td.add(sym)
			ret := n.Field("returns")
			if ret == nil {
				ret = n.Field("type")
			}
			out = append(out, pendingMember{sym: sym, typ: ret, params: parameterTypes(n)})
		case "enum_member_declaration_list":
			for _, ec := range n.Children() {
				if en, ok := ec.(*syntax.Node); ok && en.Kind() == "enum_member_declaration" {
					td.add(&Symbol{Kind: FieldSymbol, Name: csharp.TypeDeclarationName(en), Type: td.sym.FullName, Static: true})
				}
			}
		}
	}
	return out
}

func parameterList(n *syntax.Node) *syntax.Node {
	if pl, ok := n.Field("parameters").(*syntax.Node); ok {
		return pl
	}
	for _, c := range n.Children() {
		if pl, ok := c.(*syntax.Node); ok && pl.Kind() == csharp.ParameterList {
			return pl
		}
	}
	return nil
}

func parameterTypes(n *syntax.Node) []syntax.Element {
	pl := parameterList(n)
	if pl == nil {
		return nil
	}
	var out []syntax.Element
	for _, c := range pl.Children() {
		if p, ok := c.(*syntax.Node); ok && p.Kind() == csharp.Parameter {
			if t := p.Field("type"); t != nil {
				out = append(out, t)
			}
		}
	}
	return out
}

// enclosingType returns the innermost declared type around el
func (m *Model) enclosingType(el syntax.Element) *typeDecl {
	for _, a := range m.Ancestors(el) {
		if td, ok := m.decls.byNode[a]; ok {
			return td
		}
	}
	return nil
}

// enclosingMember names the method or type that owns locals around el
func (m *Model) enclosingMember(el syntax.Element) string {
	for _, a := range m.Ancestors(el) {
		if csharp.IsMemberBody(a.Kind()) {
			name := csharp.TypeDeclarationName(a)
			if td := m.enclosingType(a); td != nil {
				return td.sym.FullName + "." + name
			}
			return name
		}
	}
	if td := m.enclosingType(el); td != nil {
		return td.sym.FullName
	}
	return "<top>"
}

// declaredType returns a type declared in the unit
func (m *Model) declaredType(full string) *Symbol {
	if td, ok := m.decls.types[full]; ok {
		return td.sym
	}
	return nil
}

// typeByName finds a declared or catalog type
func (m *Model) typeByName(full string) *Symbol {
	if t := m.declaredType(full); t != nil {
		return t
	}
	return m.catalog.Type(full)
}

func (m *Model) isNamespace(full string) bool {
	return m.decls.namespaces[full] || m.catalog.IsNamespace(full)
}

// membersOfType returns the members named name of a declared or catalog type
func (m *Model) membersOfType(full, name string) []*Symbol {
	if td, ok := m.decls.types[full]; ok {
		if ms := td.members[name]; len(ms) > 0 {
			return ms
		}
		if nested, ok := m.decls.types[full+"."+name]; ok {
			return []*Symbol{nested.sym}
		}
		return m.catalog.Members(objectType, name)
	}
	return m.catalog.Members(full, name)
}
