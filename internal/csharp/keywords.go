package csharp

import "strings"

// reserved are the C# keywords that can only be used as identifiers when
// escaped with '@'. Contextual keywords (var, async, nameof, ...) are not
// listed because they are valid identifiers.
var reserved = map[string]bool{
	"abstract": true, "as": true, "base": true, "bool": true, "break": true,
	"byte": true, "case": true, "catch": true, "char": true, "checked": true,
	"class": true, "const": true, "continue": true, "decimal": true, "default": true,
	"delegate": true, "do": true, "double": true, "else": true, "enum": true,
	"event": true, "explicit": true, "extern": true, "false": true, "finally": true,
	"fixed": true, "float": true, "for": true, "foreach": true, "goto": true,
	"if": true, "implicit": true, "in": true, "int": true, "interface": true,
	"internal": true, "is": true, "lock": true, "long": true, "namespace": true,
	"new": true, "null": true, "object": true, "operator": true, "out": true,
	"override": true, "params": true, "private": true, "protected": true, "public": true,
	"readonly": true, "ref": true, "return": true, "sbyte": true, "sealed": true,
	"short": true, "sizeof": true, "stackalloc": true, "static": true, "string": true,
	"struct": true, "switch": true, "this": true, "throw": true, "true": true,
	"try": true, "typeof": true, "uint": true, "ulong": true, "unchecked": true,
	"unsafe": true, "ushort": true, "using": true, "virtual": true, "void": true,
	"volatile": true, "while": true,
}

// IsReservedKeyword reports whether word needs '@' to be used as an identifier
func IsReservedKeyword(word string) bool {
	return reserved[word]
}

// specialTypes maps predefined type keywords to their framework type names.
var specialTypes = map[string]string{
	"bool":    "System.Boolean",
	"byte":    "System.Byte",
	"sbyte":   "System.SByte",
	"char":    "System.Char",
	"decimal": "System.Decimal",
	"double":  "System.Double",
	"float":   "System.Single",
	"int":     "System.Int32",
	"uint":    "System.UInt32",
	"long":    "System.Int64",
	"ulong":   "System.UInt64",
	"short":   "System.Int16",
	"ushort":  "System.UInt16",
	"object":  "System.Object",
	"string":  "System.String",
	"void":    "System.Void",
}

var keywordOf = func() map[string]string {
	m := make(map[string]string, len(specialTypes))
	for kw, full := range specialTypes {
		m[full] = kw
	}
	return m
}()

// SpecialType returns the framework type a predefined keyword denotes
func SpecialType(keyword string) (string, bool) {
	full, ok := specialTypes[keyword]
	return full, ok
}

// KeywordFor returns the predefined keyword for a framework type name
func KeywordFor(fullName string) (string, bool) {
	kw, ok := keywordOf[fullName]
	return kw, ok
}

// Unescape strips the verbatim prefix from an identifier
func Unescape(ident string) string {
	return strings.TrimPrefix(ident, "@")
}
