package document

import "github.com/standardbeagle/lcr/internal/syntax"

// Candidate is one unit of work found in a unit: an element to reduce and
// whether everything beneath it may be simplified. When the flag is false
// the element was chosen only because tagged elements lie inside it.
type Candidate struct {
	Element                syntax.Element
	SimplifyAllDescendants bool
}

// Language is the language-specific knowledge the engine relies on.
type Language interface {
	// Candidates enumerates units of work in u, skipping every element
	// whose span satisfies outside.
	Candidates(u *Unit, outside func(syntax.Span) bool) []Candidate
	// IsImport reports import declarations
	IsImport(el syntax.Element) bool
	// Imports returns every import declaration under root
	Imports(root *syntax.Node) []*syntax.Node
	// NeedsParent reports elements that cannot be bound on their own.
	NeedsParent(el syntax.Element) bool
}
