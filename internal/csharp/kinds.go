package csharp

import "github.com/standardbeagle/lcr/internal/syntax"

// Grammar kinds of tree-sitter-c-sharp that the binder and reducers rely on.
const (
	CompilationUnit           syntax.Kind = "compilation_unit"
	UsingDirective            syntax.Kind = "using_directive"
	NamespaceDeclaration      syntax.Kind = "namespace_declaration"
	FileScopedNamespace       syntax.Kind = "file_scoped_namespace_declaration"
	DeclarationList           syntax.Kind = "declaration_list"
	ClassDeclaration          syntax.Kind = "class_declaration"
	StructDeclaration         syntax.Kind = "struct_declaration"
	InterfaceDeclaration      syntax.Kind = "interface_declaration"
	RecordDeclaration         syntax.Kind = "record_declaration"
	EnumDeclaration           syntax.Kind = "enum_declaration"
	FieldDeclaration          syntax.Kind = "field_declaration"
	PropertyDeclaration       syntax.Kind = "property_declaration"
	MethodDeclaration         syntax.Kind = "method_declaration"
	ConstructorDeclaration    syntax.Kind = "constructor_declaration"
	LocalFunctionStatement    syntax.Kind = "local_function_statement"
	ParameterList             syntax.Kind = "parameter_list"
	Parameter                 syntax.Kind = "parameter"
	Block                     syntax.Kind = "block"
	GlobalStatement           syntax.Kind = "global_statement"
	LocalDeclarationStatement syntax.Kind = "local_declaration_statement"
	VariableDeclaration       syntax.Kind = "variable_declaration"
	VariableDeclarator        syntax.Kind = "variable_declarator"
	EqualsValueClause         syntax.Kind = "equals_value_clause"
	ExpressionStatement       syntax.Kind = "expression_statement"

	Identifier       syntax.Kind = "identifier"
	QualifiedName    syntax.Kind = "qualified_name"
	AliasQualified   syntax.Kind = "alias_qualified_name"
	GenericName      syntax.Kind = "generic_name"
	PredefinedType   syntax.Kind = "predefined_type"
	ImplicitType     syntax.Kind = "implicit_type"
	NullableType     syntax.Kind = "nullable_type"
	ArrayType        syntax.Kind = "array_type"
	MemberAccess     syntax.Kind = "member_access_expression"
	Invocation       syntax.Kind = "invocation_expression"
	ArgumentList     syntax.Kind = "argument_list"
	Argument         syntax.Kind = "argument"
	Parenthesized    syntax.Kind = "parenthesized_expression"
	ThisExpression   syntax.Kind = "this_expression"
	ThisKeyword      syntax.Kind = "this"
	ObjectCreation   syntax.Kind = "object_creation_expression"
	CastExpression   syntax.Kind = "cast_expression"
	StringLiteral    syntax.Kind = "string_literal"
	VerbatimString   syntax.Kind = "verbatim_string_literal"
	IntegerLiteral   syntax.Kind = "integer_literal"
	RealLiteral      syntax.Kind = "real_literal"
	BooleanLiteral   syntax.Kind = "boolean_literal"
	CharacterLiteral syntax.Kind = "character_literal"
	NullLiteral      syntax.Kind = "null_literal"
	Interpolated     syntax.Kind = "interpolated_string_expression"
	Comment          syntax.Kind = "comment"
	ErrorKind        syntax.Kind = "ERROR"
)

var typeDeclarations = kindSet(ClassDeclaration, StructDeclaration, InterfaceDeclaration, RecordDeclaration, EnumDeclaration)

var memberBodies = kindSet(MethodDeclaration, ConstructorDeclaration, LocalFunctionStatement)

var namespaces = kindSet(NamespaceDeclaration, FileScopedNamespace)

// expressionKinds are the expression and type nodes that form units of work.
var expressionKinds = kindSet(
	QualifiedName, AliasQualified, GenericName, NullableType, ArrayType,
	MemberAccess, Invocation, Parenthesized, ThisExpression, ObjectCreation,
	CastExpression, Interpolated,
	"binary_expression", "assignment_expression", "conditional_expression",
	"element_access_expression", "prefix_unary_expression",
	"postfix_unary_expression", "typeof_expression", "default_expression",
	"lambda_expression", "array_creation_expression", "is_expression",
	"as_expression", "await_expression", "conditional_access_expression",
	"tuple_expression", "initializer_expression",
)

// unitTokens are leaf kinds that may form a unit of work on their own.
var unitTokens = kindSet(Identifier, PredefinedType, ImplicitType)

// containers are descended into by MarkSpans rather than tagged whole.
var containers = kindSet(
	CompilationUnit, NamespaceDeclaration, FileScopedNamespace, DeclarationList,
	ClassDeclaration, StructDeclaration, InterfaceDeclaration, RecordDeclaration,
	MethodDeclaration, ConstructorDeclaration, LocalFunctionStatement, Block,
)

var literalKinds = kindSet(StringLiteral, VerbatimString, IntegerLiteral, RealLiteral,
	BooleanLiteral, CharacterLiteral, NullLiteral, Interpolated, "raw_string_literal")

func kindSet(kinds ...syntax.Kind) map[syntax.Kind]bool {
	m := make(map[syntax.Kind]bool, len(kinds))
	for _, k := range kinds {
		m[k] = true
	}
	return m
}

// IsExpressionOrType reports whether kind is an expression or type node
func IsExpressionOrType(kind syntax.Kind) bool {
	return expressionKinds[kind]
}

// IsTypeDeclaration reports class, struct, interface, record and enum declarations
func IsTypeDeclaration(kind syntax.Kind) bool {
	return typeDeclarations[kind]
}

// IsMemberBody reports methods, constructors and local functions
func IsMemberBody(kind syntax.Kind) bool {
	return memberBodies[kind]
}

// IsNamespace reports block and file-scoped namespace declarations
func IsNamespace(kind syntax.Kind) bool {
	return namespaces[kind]
}

// IsLiteral reports literal expression kinds
func IsLiteral(kind syntax.Kind) bool {
	return literalKinds[kind]
}

// IsThis reports the `this` expression in either grammar shape
func IsThis(el syntax.Element) bool {
	if el == nil {
		return false
	}
	if el.Kind() == ThisExpression || el.Kind() == ThisKeyword {
		return true
	}
	t, ok := el.(*syntax.Token)
	return ok && t.Text() == "this"
}

// IsName reports simple and qualified name shapes
func IsName(el syntax.Element) bool {
	if el == nil {
		return false
	}
	switch el.Kind() {
	case Identifier, QualifiedName, GenericName, AliasQualified, MemberAccess:
		return true
	}
	return false
}
