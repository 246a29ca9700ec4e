// Package document defines the Source Unit: one parsed piece of program
// text as an immutable value.
package document

import (
	"sync"

	"github.com/cespare/xxhash/v2"

	"github.com/standardbeagle/lcr/internal/annotate"
	"github.com/standardbeagle/lcr/internal/syntax"
)

// Unit is a tree root plus its tag sidecar. Replacing the root yields a new
// Unit; nothing about an existing Unit ever changes.
type Unit struct {
	Path string
	Root *syntax.Node
	Tags *annotate.Store

	indexOnce sync.Once
	index     *syntax.Index
	textOnce  sync.Once
	text      string
}

// New creates a unit. A nil store gets a fresh one.
func New(path string, root *syntax.Node, tags *annotate.Store) *Unit {
	if tags == nil {
		tags = annotate.NewStore()
	}
	return &Unit{Path: path, Root: root, Tags: tags}
}

// WithRoot returns a new unit for root sharing the tag store
func (u *Unit) WithRoot(root *syntax.Node) *Unit {
	return New(u.Path, root, u.Tags)
}

// WithTags returns a new unit with the same tree and another store
func (u *Unit) WithTags(tags *annotate.Store) *Unit {
	return New(u.Path, u.Root, tags)
}

// Text returns the source text of the unit
func (u *Unit) Text() string {
	u.textOnce.Do(func() {
		u.text = syntax.Text(u.Root)
	})
	return u.text
}

// Index returns the positional view of this snapshot, built on first use
func (u *Unit) Index() *syntax.Index {
	u.indexOnce.Do(func() {
		u.index = syntax.NewIndex(u.Root)
	})
	return u.index
}

// Span returns the span of el in this snapshot
func (u *Unit) Span(el syntax.Element) (syntax.Span, bool) {
	return u.Index().Span(el)
}

// Fingerprint hashes the unit text
func (u *Unit) Fingerprint() uint64 {
	return xxhash.Sum64String(u.Text())
}

// SameText reports whether two units have identical text
func (u *Unit) SameText(o *Unit) bool {
	if u == nil || o == nil {
		return u == o
	}
	return u.Fingerprint() == o.Fingerprint() && u.Text() == o.Text()
}
