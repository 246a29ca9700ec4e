package semantic

import (
	"strings"

	"github.com/standardbeagle/lcr/internal/csharp"
	"github.com/standardbeagle/lcr/internal/syntax"
)

// Symbol returns what el denotes. It is nil when el binds to nothing or
// the binding is ambiguous. A speculative model answers for elements of
// its replacement and defers to its base for everything else; in
// particular invocations enclosing the replacement keep the overload the
// real model chose.
func (m *Model) Symbol(el syntax.Element) *Symbol {
	if el == nil {
		return nil
	}
	if m.base != nil && !m.index.Contains(el) {
		return m.base.Symbol(el)
	}
	if v, ok := m.symbols.Load(el); ok {
		return v.(*Symbol)
	}
	s := m.bind(el)
	m.symbols.Store(el, s)
	return s
}

func (m *Model) bind(el syntax.Element) *Symbol {
	if csharp.IsThis(el) {
		return m.thisSymbol(el)
	}
	switch el.Kind() {
	case csharp.Identifier:
		if t, ok := el.(*syntax.Token); ok {
			return m.bindIdentifier(t)
		}
		return m.bindSimple(el, csharp.NameText(el), 0)
	case csharp.PredefinedType:
		full, ok := csharp.SpecialType(csharp.NameText(el))
		if !ok {
			return nil
		}
		return m.typeSymbol(full)
	case csharp.ImplicitType:
		return m.implicitType(el)
	case csharp.QualifiedName, csharp.MemberAccess, csharp.AliasQualified:
		return m.bindQualified(el.(*syntax.Node))
	case csharp.GenericName:
		name, arity := simpleName(el)
		return m.bindSimple(el, name, arity)
	case csharp.Invocation:
		n := el.(*syntax.Node)
		return m.Symbol(invocationTarget(n))
	case csharp.ObjectCreation:
		return m.Symbol(el.(*syntax.Node).Field("type"))
	case csharp.Parenthesized:
		return m.Symbol(csharp.Inner(el.(*syntax.Node)))
	case csharp.ArrayType, csharp.NullableType:
		return m.typeSymbol(m.typeName(el))
	}
	return nil
}

func invocationTarget(n *syntax.Node) syntax.Element {
	if f := n.Field("function"); f != nil {
		return f
	}
	return n.Child(0)
}

func (m *Model) thisSymbol(el syntax.Element) *Symbol {
	td := m.enclosingType(el)
	if td == nil {
		return nil
	}
	return &Symbol{Kind: ParameterSymbol, Name: "this", Type: td.sym.FullName, Container: td.sym.FullName}
}

// typeSymbol returns a known type or a placeholder for an unknown one
func (m *Model) typeSymbol(full string) *Symbol {
	if full == "" {
		return nil
	}
	if t := m.typeByName(full); t != nil {
		return t
	}
	ns, name := splitName(full)
	return &Symbol{Kind: TypeSymbol, Name: name, FullName: full, Container: ns, Type: full}
}

// implicitType binds `var` to the type of the first initializer
func (m *Model) implicitType(el syntax.Element) *Symbol {
	parent, ok := m.Parent(el)
	if !ok || parent.Kind() != csharp.VariableDeclaration {
		return nil
	}
	_, declarators := csharp.DeclarationType(parent)
	if len(declarators) == 0 {
		return nil
	}
	_, init := csharp.Declarator(declarators[0])
	return m.typeSymbol(m.TypeOf(init))
}

func (m *Model) bindIdentifier(t *syntax.Token) *Symbol {
	name := csharp.Unescape(t.Text())
	parent, ok := m.Parent(t)
	if ok {
		switch parent.Kind() {
		case csharp.QualifiedName, csharp.MemberAccess, csharp.AliasQualified:
			if q, nm, ok := csharp.QualifierAndName(parent); ok && nm == syntax.Element(t) {
				return m.Symbol(parent)
			} else if ok && q == syntax.Element(t) && parent.Kind() == csharp.AliasQualified {
				return nil
			}
		case csharp.GenericName:
			return m.Symbol(parent)
		case csharp.VariableDeclaration:
			if t.Text() == "var" {
				return m.implicitType(t)
			}
		}
		if sym, declared := m.declaredName(parent, t); declared {
			return sym
		}
	}
	return m.bindSimple(t, name, 0)
}

// declaredName binds identifiers that introduce a declaration
func (m *Model) declaredName(parent *syntax.Node, t *syntax.Token) (*Symbol, bool) {
	name := csharp.Unescape(t.Text())
	switch parent.Kind() {
	case csharp.VariableDeclarator:
		if n, _ := csharp.Declarator(parent); n != t {
			return nil, false
		}
		vd, ok := m.Parent(parent)
		if !ok {
			return nil, true
		}
		if owner, ok := m.Parent(vd); ok && owner.Kind() == csharp.FieldDeclaration {
			if td := m.enclosingType(owner); td != nil {
				return first(td.members[name]), true
			}
			return nil, true
		}
		return m.localSymbol(vd, parent, name), true
	case csharp.Parameter:
		if parent.Field("name") != syntax.Element(t) {
			return nil, false
		}
		return m.parameterSymbol(parent, name), true
	case csharp.MethodDeclaration, csharp.PropertyDeclaration:
		if parent.Field("name") != syntax.Element(t) {
			return nil, false
		}
		if td := m.enclosingType(parent); td != nil {
			if parent.Kind() == csharp.MethodDeclaration {
				for _, s := range td.members[name] {
					if s.Kind == MethodSymbol {
						return s, true
					}
				}
			}
			return first(td.members[name]), true
		}
		return nil, true
	}
	if csharp.IsTypeDeclaration(parent.Kind()) && parent.Field("name") == syntax.Element(t) {
		if td, ok := m.decls.byNode[parent]; ok {
			return td.sym, true
		}
		return nil, true
	}
	return nil, false
}

func first(syms []*Symbol) *Symbol {
	if len(syms) == 0 {
		return nil
	}
	return syms[0]
}

// simpleName returns the identifier and generic arity of a simple name
func simpleName(el syntax.Element) (string, int) {
	n, ok := el.(*syntax.Node)
	if !ok || n.Kind() != csharp.GenericName {
		return csharp.NameText(el), 0
	}
	name, arity := "", 0
	for _, c := range n.Children() {
		switch c.Kind() {
		case csharp.Identifier:
			name = csharp.NameText(c)
		case "type_argument_list":
			arity = 1
			for _, tc := range c.(*syntax.Node).Children() {
				if t, ok := tc.(*syntax.Token); ok && t.Text() == "," {
					arity++
				}
			}
		}
	}
	return name, arity
}

func (m *Model) bindSimple(at syntax.Element, name string, arity int) *Symbol {
	syms, _ := m.lookup(at, name, arity)
	return m.choose(at, syms)
}

// choose picks one symbol out of a lookup result. Method groups in call
// position go through overload resolution.
func (m *Model) choose(at syntax.Element, syms []*Symbol) *Symbol {
	if len(syms) == 0 {
		return nil
	}
	if syms[0].Kind == MethodSymbol {
		if parent, ok := m.Parent(at); ok && parent.Kind() == csharp.Invocation && invocationTarget(parent) == at {
			if m.base != nil && !m.index.Contains(parent) {
				return m.base.Symbol(parent)
			}
			return m.resolveOverload(parent, syms)
		}
	}
	if len(syms) == 1 {
		return syms[0]
	}
	return nil
}

func (m *Model) bindQualified(n *syntax.Node) *Symbol {
	q, nm, ok := csharp.QualifierAndName(n)
	if !ok {
		return nil
	}
	name, arity := simpleName(nm)
	full := genericName(name, arity)

	if n.Kind() == csharp.AliasQualified {
		if csharp.NameText(q) != "global" {
			return nil
		}
		return m.namespaceMember("", full)
	}

	qs := m.Symbol(q)
	if qs == nil {
		return nil
	}
	var cands []*Symbol
	switch qs.Kind {
	case NamespaceSymbol:
		return m.namespaceMember(qs.FullName, full)
	case TypeSymbol:
		cands = m.membersOfType(qs.FullName, full)
	case MethodSymbol:
		return nil
	default:
		if qs.Type != "" {
			cands = m.membersOfType(qs.Type, full)
		}
	}
	return m.choose(n, cands)
}

// namespaceMember finds a type or namespace called name inside ns
func (m *Model) namespaceMember(ns, name string) *Symbol {
	full := joinName(ns, name)
	if t := m.typeByName(full); t != nil {
		return t
	}
	if m.isNamespace(full) {
		return &Symbol{Kind: NamespaceSymbol, Name: name, FullName: full, Container: ns}
	}
	return nil
}

func (m *Model) resolveOverload(inv *syntax.Node, methods []*Symbol) *Symbol {
	var args []syntax.Element
	if al, ok := inv.Field("arguments").(*syntax.Node); ok {
		args = csharp.Arguments(al)
	} else if al, ok := inv.Child(inv.ChildCount() - 1).(*syntax.Node); ok && al.Kind() == csharp.ArgumentList {
		args = csharp.Arguments(al)
	}
	argTypes := make([]string, len(args))
	for i, a := range args {
		argTypes[i] = m.TypeOf(a)
	}

	var best *Symbol
	bestScore := -1
	for _, meth := range methods {
		if meth.Kind != MethodSymbol || len(meth.Params) != len(args) {
			continue
		}
		score, ok := 0, true
		for i, p := range meth.Params {
			switch {
			case argTypes[i] == p:
				score += 2
			case convertible(argTypes[i], p):
				score++
			default:
				ok = false
			}
		}
		if ok && score > bestScore {
			best, bestScore = meth, score
		}
	}
	return best
}

var implicitNumeric = map[string][]string{
	intType:    {longType, singleType, doubleType, decimalType},
	longType:   {singleType, doubleType, decimalType},
	singleType: {doubleType},
	charType:   {intType, longType, doubleType},
	uintType:   {longType, ulongType, doubleType},
}

func convertible(from, to string) bool {
	if to == objectType {
		return true
	}
	if from == "" {
		// null and expressions of unknown type
		return to == stringType || strings.HasSuffix(to, "[]") || !strings.HasPrefix(to, "System.")
	}
	for _, t := range implicitNumeric[from] {
		if t == to {
			return true
		}
	}
	return false
}

// TypeOf returns the full name of the type of expr, or "" when unknown
func (m *Model) TypeOf(expr syntax.Element) string {
	if expr == nil {
		return ""
	}
	if m.base != nil && !m.index.Contains(expr) {
		return m.base.TypeOf(expr)
	}
	if v, ok := m.types.Load(expr); ok {
		return v.(string)
	}
	t := m.typeOf(expr)
	m.types.Store(expr, t)
	return t
}

func (m *Model) typeOf(expr syntax.Element) string {
	if csharp.IsThis(expr) {
		if s := m.thisSymbol(expr); s != nil {
			return s.Type
		}
		return ""
	}
	if csharp.IsLiteral(expr.Kind()) {
		return literalType(expr)
	}
	n, _ := expr.(*syntax.Node)
	switch expr.Kind() {
	case csharp.Identifier, csharp.MemberAccess, csharp.QualifiedName, csharp.GenericName:
		if s := m.Symbol(expr); s.IsValue() {
			return s.Type
		}
		return ""
	case csharp.Invocation:
		if s := m.Symbol(expr); s != nil && s.Kind == MethodSymbol {
			return s.Type
		}
		return ""
	case csharp.ObjectCreation, csharp.CastExpression:
		return m.typeName(n.Field("type"))
	case csharp.Parenthesized:
		return m.TypeOf(csharp.Inner(n))
	case "binary_expression":
		return m.binaryType(n)
	case "prefix_unary_expression", "postfix_unary_expression":
		if strings.HasPrefix(syntax.TrimmedText(n), "!") {
			return boolType
		}
		for _, c := range n.Children() {
			if !c.IsToken() || c.Kind() == csharp.Identifier {
				return m.TypeOf(c)
			}
		}
	case "conditional_expression":
		if c := n.Field("consequence"); c != nil {
			return m.TypeOf(c)
		}
	case "typeof_expression":
		return "System.Type"
	case "is_expression":
		return boolType
	case "as_expression":
		return m.typeName(n.Field("right"))
	}
	return ""
}

func literalType(el syntax.Element) string {
	text := strings.ToLower(syntax.TrimmedText(el))
	switch el.Kind() {
	case csharp.StringLiteral, csharp.VerbatimString, csharp.Interpolated, "raw_string_literal":
		return stringType
	case csharp.BooleanLiteral:
		return boolType
	case csharp.CharacterLiteral:
		return charType
	case csharp.IntegerLiteral:
		switch {
		case strings.HasSuffix(text, "ul") || strings.HasSuffix(text, "lu"):
			return ulongType
		case strings.HasSuffix(text, "l"):
			return longType
		case strings.HasSuffix(text, "u"):
			return uintType
		}
		return intType
	case csharp.RealLiteral:
		switch {
		case strings.HasSuffix(text, "f"):
			return singleType
		case strings.HasSuffix(text, "m"):
			return decimalType
		}
		return doubleType
	}
	return ""
}

func (m *Model) binaryType(n *syntax.Node) string {
	op := ""
	if o, ok := n.Field("operator").(*syntax.Token); ok {
		op = o.Text()
	} else if n.ChildCount() == 3 {
		if o, ok := n.Child(1).(*syntax.Token); ok {
			op = o.Text()
		}
	}
	switch op {
	case "==", "!=", "<", ">", "<=", ">=", "&&", "||":
		return boolType
	}
	left, right := n.Field("left"), n.Field("right")
	if left == nil && n.ChildCount() == 3 {
		left, right = n.Child(0), n.Child(2)
	}
	lt, rt := m.TypeOf(left), m.TypeOf(right)
	switch {
	case op == "+" && (lt == stringType || rt == stringType):
		return stringType
	case lt == rt:
		return lt
	case lt == doubleType || rt == doubleType:
		return doubleType
	case lt == longType || rt == longType:
		return longType
	}
	return lt
}

// typeName returns the full name of the type a type syntax denotes,
// falling back to its text when it does not bind.
func (m *Model) typeName(el syntax.Element) string {
	if el == nil {
		return ""
	}
	if n, ok := el.(*syntax.Node); ok {
		switch n.Kind() {
		case csharp.ArrayType:
			elem := n.Field("type")
			if elem == nil {
				elem = n.Child(0)
			}
			return m.typeName(elem) + "[]"
		case csharp.NullableType:
			return m.typeName(n.Child(0)) + "?"
		}
	}
	if s := m.Symbol(el); s != nil && s.Kind == TypeSymbol {
		return s.FullName
	}
	return csharp.NameText(el)
}

// TypeName is the exported form of typeName for reducers comparing types
func (m *Model) TypeName(el syntax.Element) string {
	return m.typeName(el)
}

// MethodGroup returns every method the target of an invocation could
// denote before overload resolution.
func (m *Model) MethodGroup(inv syntax.Element) []*Symbol {
	n, ok := inv.(*syntax.Node)
	if !ok || n.Kind() != csharp.Invocation {
		return nil
	}
	if m.base != nil && !m.index.Contains(n) {
		return m.base.MethodGroup(n)
	}
	target := invocationTarget(n)
	var cands []*Symbol
	switch target.Kind() {
	case csharp.Identifier, csharp.GenericName:
		name, arity := simpleName(target)
		cands, _ = m.lookup(target, name, arity)
	case csharp.QualifiedName, csharp.MemberAccess:
		q, nm, ok := csharp.QualifierAndName(target)
		if !ok {
			return nil
		}
		name, arity := simpleName(nm)
		qs := m.Symbol(q)
		switch {
		case qs == nil:
		case qs.Kind == TypeSymbol:
			cands = m.membersOfType(qs.FullName, genericName(name, arity))
		case qs.Type != "" && qs.Kind != NamespaceSymbol && qs.Kind != MethodSymbol:
			cands = m.membersOfType(qs.Type, genericName(name, arity))
		}
	}
	var out []*Symbol
	for _, s := range cands {
		if s.Kind == MethodSymbol {
			out = append(out, s)
		}
	}
	return out
}
