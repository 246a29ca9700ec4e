package semantic

import (
	"github.com/standardbeagle/lcr/internal/csharp"
)

const (
	objectType  = "System.Object"
	stringType  = "System.String"
	intType     = "System.Int32"
	longType    = "System.Int64"
	doubleType  = "System.Double"
	boolType    = "System.Boolean"
	charType    = "System.Char"
	voidType    = "System.Void"
	singleType  = "System.Single"
	decimalType = "System.Decimal"
	uintType    = "System.UInt32"
	ulongType   = "System.UInt64"
)

// Catalog holds namespaces, types and members that are not declared in
// the unit being analyzed. It is populated before use and read-only
// afterwards.
type Catalog struct {
	namespaces map[string]bool
	types      map[string]*Symbol
	members    map[string]map[string][]*Symbol
}

// NewEmptyCatalog creates a catalog with nothing in it
func NewEmptyCatalog() *Catalog {
	return &Catalog{
		namespaces: make(map[string]bool),
		types:      make(map[string]*Symbol),
		members:    make(map[string]map[string][]*Symbol),
	}
}

// NewCatalog creates a catalog of well-known framework types
func NewCatalog() *Catalog {
	c := NewEmptyCatalog()
	c.addWellKnown()
	return c
}

// AddNamespace registers a namespace and all of its parents
func (c *Catalog) AddNamespace(full string) {
	for full != "" {
		c.namespaces[full] = true
		full, _ = splitName(full)
	}
}

// AddType registers a type. The keyword is filled in for special types.
func (c *Catalog) AddType(full string) *Symbol {
	if t, ok := c.types[full]; ok {
		return t
	}
	ns, name := splitName(full)
	c.AddNamespace(ns)
	kw, _ := csharp.KeywordFor(full)
	t := &Symbol{Kind: TypeSymbol, Name: name, FullName: full, Container: ns, Type: full, Keyword: kw}
	c.types[full] = t
	return t
}

func (c *Catalog) addMember(typ string, m *Symbol) *Symbol {
	c.AddType(typ)
	m.Container = typ
	m.FullName = typ + "." + m.Name
	byName, ok := c.members[typ]
	if !ok {
		byName = make(map[string][]*Symbol)
		c.members[typ] = byName
	}
	byName[m.Name] = append(byName[m.Name], m)
	return m
}

// AddField registers a field of typ
func (c *Catalog) AddField(typ, name, fieldType string, static bool) *Symbol {
	return c.addMember(typ, &Symbol{Kind: FieldSymbol, Name: name, Type: fieldType, Static: static})
}

// AddProperty registers a property of typ
func (c *Catalog) AddProperty(typ, name, propType string, static bool) *Symbol {
	return c.addMember(typ, &Symbol{Kind: PropertySymbol, Name: name, Type: propType, Static: static})
}

// AddMethod registers one overload of a method of typ
func (c *Catalog) AddMethod(typ, name, returns string, static bool, params ...string) *Symbol {
	return c.addMember(typ, &Symbol{Kind: MethodSymbol, Name: name, Type: returns, Static: static, Params: params})
}

// IsNamespace reports a known namespace
func (c *Catalog) IsNamespace(full string) bool {
	return c.namespaces[full]
}

// Type returns a known type
func (c *Catalog) Type(full string) *Symbol {
	return c.types[full]
}

// Members returns the members of typ called name; System.Object members
// are visible on every type.
func (c *Catalog) Members(typ, name string) []*Symbol {
	if ms := c.members[typ][name]; len(ms) > 0 {
		return ms
	}
	if typ != objectType {
		return c.members[objectType][name]
	}
	return nil
}

// Len returns the number of known types
func (c *Catalog) Len() int {
	return len(c.types)
}

func (c *Catalog) addWellKnown() {
	for _, ns := range []string{
		"System", "System.Text", "System.Collections", "System.Collections.Generic",
		"System.IO", "System.Linq", "System.Threading", "System.Threading.Tasks",
	} {
		c.AddNamespace(ns)
	}
	for _, t := range []string{
		objectType, stringType, intType, longType, doubleType, boolType, charType,
		voidType, singleType, decimalType, uintType, ulongType,
		"System.Byte", "System.SByte", "System.Int16", "System.UInt16",
		"System.Type", "System.Exception", "System.DateTime", "System.Guid",
	} {
		c.AddType(t)
	}

	c.AddMethod(objectType, "ToString", stringType, false)
	c.AddMethod(objectType, "GetHashCode", intType, false)
	c.AddMethod(objectType, "Equals", boolType, false, objectType)
	c.AddMethod(objectType, "GetType", "System.Type", false)

	c.AddField(stringType, "Empty", stringType, true)
	c.AddProperty(stringType, "Length", intType, false)
	c.AddMethod(stringType, "IsNullOrEmpty", boolType, true, stringType)
	c.AddMethod(stringType, "Concat", stringType, true, stringType, stringType)
	c.AddMethod(stringType, "Format", stringType, true, stringType, objectType)
	c.AddMethod(stringType, "Join", stringType, true, stringType, "System.String[]")
	c.AddMethod(stringType, "Trim", stringType, false)
	c.AddMethod(stringType, "ToUpper", stringType, false)
	c.AddMethod(stringType, "Contains", boolType, false, stringType)

	c.AddField(intType, "MaxValue", intType, true)
	c.AddField(intType, "MinValue", intType, true)
	c.AddMethod(intType, "Parse", intType, true, stringType)
	c.AddField(longType, "MaxValue", longType, true)
	c.AddField(doubleType, "NaN", doubleType, true)
	c.AddMethod(doubleType, "Parse", doubleType, true, stringType)
	c.AddField(boolType, "TrueString", stringType, true)
	c.AddField(boolType, "FalseString", stringType, true)
	c.AddField(charType, "MaxValue", charType, true)

	const console = "System.Console"
	c.AddMethod(console, "WriteLine", voidType, true)
	c.AddMethod(console, "WriteLine", voidType, true, stringType)
	c.AddMethod(console, "WriteLine", voidType, true, intType)
	c.AddMethod(console, "WriteLine", voidType, true, boolType)
	c.AddMethod(console, "WriteLine", voidType, true, doubleType)
	c.AddMethod(console, "WriteLine", voidType, true, objectType)
	c.AddMethod(console, "WriteLine", voidType, true, stringType, objectType)
	c.AddMethod(console, "Write", voidType, true, stringType)
	c.AddMethod(console, "Write", voidType, true, objectType)
	c.AddMethod(console, "ReadLine", stringType, true)

	const math = "System.Math"
	c.AddField(math, "PI", doubleType, true)
	c.AddMethod(math, "Max", intType, true, intType, intType)
	c.AddMethod(math, "Max", doubleType, true, doubleType, doubleType)
	c.AddMethod(math, "Min", intType, true, intType, intType)
	c.AddMethod(math, "Abs", intType, true, intType)
	c.AddMethod(math, "Abs", doubleType, true, doubleType)
	c.AddMethod(math, "Sqrt", doubleType, true, doubleType)

	c.AddProperty("System.Environment", "NewLine", stringType, true)
	c.AddMethod("System.Environment", "Exit", voidType, true, intType)
	c.AddProperty("System.DateTime", "Now", "System.DateTime", true)
	c.AddMethod("System.Guid", "NewGuid", "System.Guid", true)
	c.AddProperty("System.Exception", "Message", stringType, false)

	const sb = "System.Text.StringBuilder"
	c.AddMethod(sb, "Append", sb, false, stringType)
	c.AddMethod(sb, "Append", sb, false, objectType)
	c.AddMethod(sb, "AppendLine", sb, false, stringType)
	c.AddProperty(sb, "Length", intType, false)

	c.AddMethod("System.IO.File", "ReadAllText", stringType, true, stringType)
	c.AddMethod("System.IO.File", "Exists", boolType, true, stringType)
	c.AddMethod("System.IO.Path", "Combine", stringType, true, stringType, stringType)

	const list = "System.Collections.Generic.List`1"
	c.AddMethod(list, "Add", voidType, false, objectType)
	c.AddProperty(list, "Count", intType, false)
	c.AddType("System.Collections.Generic.Dictionary`2")
	c.AddType("System.Collections.Generic.IEnumerable`1")

	c.AddProperty("System.Threading.Tasks.Task", "CompletedTask", "System.Threading.Tasks.Task", true)
	c.AddMethod("System.Threading.Tasks.Task", "Delay", "System.Threading.Tasks.Task", true, intType)
	c.AddType("System.Threading.CancellationToken")
}
