package reduce

import (
	"sync"

	"github.com/standardbeagle/lcr/internal/syntax"
)

// EditMap collects original→final replacements from concurrent units.
// Entries are written once; absence means unchanged.
type EditMap[K comparable] struct {
	mu    sync.Mutex
	edits map[K]syntax.Element
}

// NewEditMap creates an empty map
func NewEditMap[K comparable]() *EditMap[K] {
	return &EditMap[K]{edits: make(map[K]syntax.Element)}
}

// Record stores an edit. It returns false when original already has one,
// which means two units overlapped.
func (e *EditMap[K]) Record(original K, final syntax.Element) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, dup := e.edits[original]; dup {
		return false
	}
	e.edits[original] = final
	return true
}

// Get returns the edit recorded for original
func (e *EditMap[K]) Get(original K) (syntax.Element, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	final, ok := e.edits[original]
	return final, ok
}

// Len returns the number of edits
func (e *EditMap[K]) Len() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.edits)
}

// Snapshot copies the edits for the merge
func (e *EditMap[K]) Snapshot() map[K]syntax.Element {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make(map[K]syntax.Element, len(e.edits))
	for k, v := range e.edits {
		out[k] = v
	}
	return out
}
