// Package semantic binds C# syntax trees to program entities.
//
// The binder is deliberately small: it knows the declarations of the unit
// being analyzed plus a catalog of well-known framework types, and answers
// the questions the reducers ask ("what does this name denote here", "what
// type does this expression have", "which using directives are unused").
package semantic

import (
	"strconv"
	"strings"
)

// SymbolKind classifies a symbol
type SymbolKind int

const (
	NamespaceSymbol SymbolKind = iota
	TypeSymbol
	FieldSymbol
	PropertySymbol
	MethodSymbol
	LocalSymbol
	ParameterSymbol
)

func (k SymbolKind) String() string {
	switch k {
	case NamespaceSymbol:
		return "namespace"
	case TypeSymbol:
		return "type"
	case FieldSymbol:
		return "field"
	case PropertySymbol:
		return "property"
	case MethodSymbol:
		return "method"
	case LocalSymbol:
		return "local"
	case ParameterSymbol:
		return "parameter"
	}
	return "unknown(" + strconv.Itoa(int(k)) + ")"
}

// Symbol is a program entity. Type is the value type of fields,
// properties, locals and parameters and the return type of methods.
// Generic types carry their arity in Name and FullName ("List`1").
type Symbol struct {
	Kind      SymbolKind
	Name      string
	FullName  string
	Type      string
	Container string
	Params    []string
	Static    bool
	Keyword   string
}

// ID returns a stable identity string, e.g. "T:System.String" or
// "M:System.Console.WriteLine(System.String)".
func (s *Symbol) ID() string {
	if s == nil {
		return ""
	}
	switch s.Kind {
	case NamespaceSymbol:
		return "N:" + s.FullName
	case TypeSymbol:
		return "T:" + s.FullName
	case FieldSymbol:
		return "F:" + s.FullName
	case PropertySymbol:
		return "P:" + s.FullName
	case MethodSymbol:
		return "M:" + s.FullName + "(" + strings.Join(s.Params, ",") + ")"
	}
	return "L:" + s.Container + "." + s.Name
}

func (s *Symbol) String() string {
	return s.ID()
}

// IsValue reports symbols that denote a value rather than a type,
// namespace or method group.
func (s *Symbol) IsValue() bool {
	if s == nil {
		return false
	}
	switch s.Kind {
	case FieldSymbol, PropertySymbol, LocalSymbol, ParameterSymbol:
		return true
	}
	return false
}

// SameSymbol compares symbols by identity string
func SameSymbol(a, b *Symbol) bool {
	return a != nil && b != nil && a.ID() == b.ID()
}

func genericName(name string, arity int) string {
	if arity == 0 {
		return name
	}
	return name + "`" + strconv.Itoa(arity)
}

func joinName(container, name string) string {
	if container == "" {
		return name
	}
	return container + "." + name
}

func splitName(full string) (container, name string) {
	if i := strings.LastIndexByte(full, '.'); i >= 0 {
		return full[:i], full[i+1:]
	}
	return "", full
}
