package semantic

import (
	"strconv"
	"strings"

	"github.com/standardbeagle/lcr/internal/csharp"
	"github.com/standardbeagle/lcr/internal/syntax"
)

// Lookup returns what a simple name would bind to at the position of at.
// Several symbols are returned for method groups and ambiguous imports.
func (m *Model) Lookup(at syntax.Element, name string) []*Symbol {
	syms, _ := m.lookup(at, name, 0)
	return syms
}

// lookup searches scopes from the innermost outwards and stops at the first
// scope with a match: locals and parameters, members of enclosing types,
// then for each enclosing namespace its members, its using aliases and the
// types its using directives import. via lists the using directives that
// produced the result.
func (m *Model) lookup(at syntax.Element, name string, arity int) (syms []*Symbol, via []*syntax.Node) {
	full := genericName(name, arity)

	if arity == 0 {
		if s := m.lookupLocal(at, name); s != nil {
			return []*Symbol{s}, nil
		}
	}

	for _, a := range m.Ancestors(at) {
		td, ok := m.decls.byNode[a]
		if !ok {
			continue
		}
		if ms := td.members[full]; len(ms) > 0 {
			return ms, nil
		}
		if nested, ok := m.decls.types[td.sym.FullName+"."+full]; ok {
			return []*Symbol{nested.sym}, nil
		}
	}

	for _, lvl := range m.namespaceLevels(at) {
		if s := m.namespaceMember(lvl.name, full); s != nil {
			return []*Symbol{s}, nil
		}
		if lvl.usings == nil {
			continue
		}
		usings := usingsIn(lvl.usings)
		for _, u := range usings {
			info := csharp.Using(u)
			if info.Alias == "" || info.Alias != name || arity != 0 {
				continue
			}
			if s := m.resolveGlobal(info.Target); s != nil {
				return []*Symbol{s}, []*syntax.Node{u}
			}
		}

		seen := make(map[string]bool)
		for _, u := range usings {
			info := csharp.Using(u)
			if info.Alias != "" || info.Target == nil {
				continue
			}
			target := strings.TrimPrefix(csharp.NameText(info.Target), "global::")
			var found []*Symbol
			if info.Static {
				for _, s := range m.membersOfType(target, full) {
					if s.Static || s.Kind == TypeSymbol {
						found = append(found, s)
					}
				}
			} else if t := m.typeByName(joinName(target, full)); t != nil {
				found = append(found, t)
			}
			if len(found) == 0 {
				continue
			}
			via = append(via, u)
			for _, s := range found {
				if !seen[s.ID()] {
					seen[s.ID()] = true
					syms = append(syms, s)
				}
			}
		}
		if len(syms) > 0 {
			return syms, via
		}
	}
	return nil, nil
}

// resolveGlobal binds a fully qualified name from the global namespace
func (m *Model) resolveGlobal(el syntax.Element) *Symbol {
	if el == nil {
		return nil
	}
	if el.Kind() == csharp.PredefinedType {
		full, _ := csharp.SpecialType(csharp.NameText(el))
		return m.typeSymbol(full)
	}
	text := strings.TrimPrefix(csharp.NameText(el), "global::")
	if i := strings.IndexByte(text, '<'); i >= 0 {
		text = text[:i] + "`" + itoaArity(text[i:])
	}
	if t := m.typeByName(text); t != nil {
		return t
	}
	if m.isNamespace(text) {
		ns, name := splitName(text)
		return &Symbol{Kind: NamespaceSymbol, Name: name, FullName: text, Container: ns}
	}
	return nil
}

func itoaArity(args string) string {
	depth, arity := 0, 1
	for _, r := range args {
		switch r {
		case '<':
			depth++
		case '>':
			depth--
		case ',':
			if depth == 1 {
				arity++
			}
		}
	}
	return strconv.Itoa(arity)
}

type nsLevel struct {
	name   string
	usings *syntax.Node
}

// namespaceLevels lists the namespaces enclosing at from the innermost out,
// each with the node holding its using directives. `namespace A.B` opens
// two levels, A.B and A.
func (m *Model) namespaceLevels(at syntax.Element) []nsLevel {
	var nodes []*syntax.Node
	var unit *syntax.Node
	var top syntax.Element = at
	for _, a := range m.Ancestors(at) {
		switch {
		case csharp.IsNamespace(a.Kind()):
			nodes = append(nodes, a)
		case a.Kind() == csharp.CompilationUnit:
			unit = a
		}
		if a.Kind() != csharp.CompilationUnit {
			top = a
		}
	}

	// a file-scoped namespace before the top-level member applies to it
	var fileScoped string
	if unit != nil {
		limit := m.indexIn(unit, top)
		for i, c := range unit.Children() {
			if limit >= 0 && i >= limit {
				break
			}
			if c.Kind() == csharp.FileScopedNamespace {
				fileScoped = csharp.TypeDeclarationName(c.(*syntax.Node))
			}
		}
	}

	prefix := fileScoped
	names := make([]string, len(nodes))
	for i := len(nodes) - 1; i >= 0; i-- {
		if nodes[i].Kind() == csharp.FileScopedNamespace {
			names[i] = csharp.TypeDeclarationName(nodes[i])
			prefix = names[i]
			continue
		}
		names[i] = joinName(prefix, csharp.TypeDeclarationName(nodes[i]))
		prefix = names[i]
	}

	var levels []nsLevel
	for i, n := range nodes {
		levels = append(levels, nsLevel{name: names[i], usings: csharp.Body(n)})
		outer := ""
		if i+1 < len(nodes) {
			outer = names[i+1]
		} else {
			outer = fileScoped
			if n.Kind() == csharp.FileScopedNamespace {
				outer = ""
			}
		}
		for p, _ := splitName(names[i]); p != "" && p != outer && strings.HasPrefix(p, outer); p, _ = splitName(p) {
			levels = append(levels, nsLevel{name: p})
		}
	}
	if fileScoped != "" && (len(nodes) == 0 || nodes[len(nodes)-1].Kind() != csharp.FileScopedNamespace) {
		levels = append(levels, nsLevel{name: fileScoped})
		for p, _ := splitName(fileScoped); p != ""; p, _ = splitName(p) {
			levels = append(levels, nsLevel{name: p})
		}
	}
	levels = append(levels, nsLevel{name: "", usings: unit})
	return levels
}

func usingsIn(n *syntax.Node) []*syntax.Node {
	if n == nil {
		return nil
	}
	var out []*syntax.Node
	for _, c := range n.Children() {
		if u, ok := c.(*syntax.Node); ok && u.Kind() == csharp.UsingDirective {
			out = append(out, u)
		}
	}
	return out
}

// lookupLocal finds locals and parameters of the enclosing members,
// stopping at the enclosing type. A local is in scope in its whole block,
// so it shadows members even where it cannot be used yet.
func (m *Model) lookupLocal(at syntax.Element, name string) *Symbol {
	var child syntax.Element = at
	for _, a := range m.Ancestors(at) {
		switch a.Kind() {
		case csharp.Block, "switch_section", csharp.CompilationUnit:
			own := m.indexIn(a, child)
			for i, c := range a.Children() {
				if s := m.localIn(c, name, own >= 0 && i >= own); s != nil {
					return s
				}
			}
		case csharp.MethodDeclaration, csharp.ConstructorDeclaration, csharp.LocalFunctionStatement,
			"lambda_expression", "anonymous_method_expression":
			if s := m.parameterIn(a, name); s != nil {
				return s
			}
		case "for_statement", "using_statement", "fixed_statement":
			for _, c := range a.Children() {
				if vd, ok := c.(*syntax.Node); ok && vd.Kind() == csharp.VariableDeclaration {
					if s := m.declaredIn(vd, name); s != nil {
						return s
					}
				}
			}
		case "foreach_statement":
			if id, ok := a.Field("left").(*syntax.Token); ok && csharp.Unescape(id.Text()) == name {
				return &Symbol{Kind: LocalSymbol, Name: name, Type: m.typeName(a.Field("type")), Container: m.enclosingMember(a)}
			}
		}
		if csharp.IsTypeDeclaration(a.Kind()) {
			return nil
		}
		child = a
	}
	return nil
}

// localIn looks for a declaration of name in one statement. notBefore
// marks statements at or after the use: an implicitly typed local is not
// usable there yet, so its type is left unknown.
func (m *Model) localIn(stmt syntax.Element, name string, notBefore bool) *Symbol {
	n, ok := stmt.(*syntax.Node)
	if !ok {
		return nil
	}
	if n.Kind() == csharp.GlobalStatement && n.ChildCount() > 0 {
		if inner, ok := n.Child(0).(*syntax.Node); ok {
			n = inner
		}
	}
	switch n.Kind() {
	case csharp.LocalDeclarationStatement:
		for _, c := range n.Children() {
			vd, ok := c.(*syntax.Node)
			if !ok || vd.Kind() != csharp.VariableDeclaration {
				continue
			}
			if notBefore && isImplicitlyTyped(vd) {
				if declarator(vd, name) == nil {
					return nil
				}
				return &Symbol{Kind: LocalSymbol, Name: name, Container: m.enclosingMember(vd)}
			}
			return m.declaredIn(vd, name)
		}
	case csharp.LocalFunctionStatement:
		if csharp.TypeDeclarationName(n) == name {
			ret := n.Field("type")
			if ret == nil {
				ret = n.Field("returns")
			}
			sym := &Symbol{Kind: MethodSymbol, Name: name, Type: m.typeName(ret), Static: true}
			sym.FullName = m.enclosingMember(n) + "." + name
			for _, p := range parameterTypes(n) {
				sym.Params = append(sym.Params, m.typeName(p))
			}
			return sym
		}
	}
	return nil
}

func (m *Model) declaredIn(vd *syntax.Node, name string) *Symbol {
	if d := declarator(vd, name); d != nil {
		return m.localSymbol(vd, d, name)
	}
	return nil
}

// declarator returns the declarator of vd that introduces name
func declarator(vd *syntax.Node, name string) *syntax.Node {
	_, declarators := csharp.DeclarationType(vd)
	for _, d := range declarators {
		if id, _ := csharp.Declarator(d); id != nil && csharp.Unescape(id.Text()) == name {
			return d
		}
	}
	return nil
}

func isImplicitlyTyped(vd *syntax.Node) bool {
	typ, _ := csharp.DeclarationType(vd)
	return typ != nil && (typ.Kind() == csharp.ImplicitType || csharp.NameText(typ) == "var")
}

func (m *Model) localSymbol(vd, declarator *syntax.Node, name string) *Symbol {
	typ, _ := csharp.DeclarationType(vd)
	var t string
	if isImplicitlyTyped(vd) {
		_, init := csharp.Declarator(declarator)
		t = m.TypeOf(init)
	} else {
		t = m.typeName(typ)
	}
	return &Symbol{Kind: LocalSymbol, Name: name, Type: t, Container: m.enclosingMember(vd)}
}

func (m *Model) parameterIn(member *syntax.Node, name string) *Symbol {
	pl := parameterList(member)
	if pl == nil {
		return nil
	}
	for _, c := range pl.Children() {
		if p, ok := c.(*syntax.Node); ok && p.Kind() == csharp.Parameter {
			if csharp.NameText(p.Field("name")) == name {
				return m.parameterSymbol(p, name)
			}
		}
	}
	return nil
}

func (m *Model) parameterSymbol(p *syntax.Node, name string) *Symbol {
	return &Symbol{Kind: ParameterSymbol, Name: name, Type: m.typeName(p.Field("type")), Container: m.enclosingMember(p)}
}
