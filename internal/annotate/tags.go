// Package annotate keeps side-channel metadata ("tags") on syntax elements.
//
// Tags are never stored on the elements themselves: a Store maps element
// identity to an immutable tag Set. Because trees share unchanged subtrees
// between snapshots, a tag attached to an element stays visible in every
// snapshot that still contains that element.
package annotate

import (
	"sort"
	"strconv"
	"sync/atomic"
)

// Kind names a tag. The set is open-ended; the constants below are the
// kinds the reduction engine itself understands.
type Kind string

const (
	// SimplifyCandidate marks an element (and its descendants) for reduction.
	SimplifyCandidate Kind = "simplify"
	// RemoveIfUnused marks an import the sweeper may delete.
	RemoveIfUnused Kind = "remove-if-unused"
	// DoNotSimplify stops enumeration and rewriters from touching an element.
	DoNotSimplify Kind = "do-not-simplify"
	// ResolvedSymbol records the symbol an element bound to before rewriting.
	ResolvedSymbol Kind = "resolved-symbol"
	// ResolvedSpecialType records the special type a keyword or name denoted.
	ResolvedSpecialType Kind = "resolved-special-type"
	// Relocation is a unique marker used to find an element again after it
	// has been spliced into another tree.
	Relocation Kind = "relocation"
)

// Tag is one piece of metadata. Data is kind specific and may be empty.
type Tag struct {
	Kind Kind
	Data string
}

// New creates a tag without data
func New(kind Kind) Tag {
	return Tag{Kind: kind}
}

// WithData creates a tag carrying data
func WithData(kind Kind, data string) Tag {
	return Tag{Kind: kind, Data: data}
}

func (t Tag) String() string {
	if t.Data == "" {
		return string(t.Kind)
	}
	return string(t.Kind) + "=" + t.Data
}

var relocationSeq atomic.Uint64

// NewRelocationTag returns a relocation marker unique within the process
func NewRelocationTag() Tag {
	return Tag{Kind: Relocation, Data: strconv.FormatUint(relocationSeq.Add(1), 10)}
}

// Set is an immutable, sorted collection of tags without duplicates.
type Set []Tag

// NewSet builds a set from tags
func NewSet(tags ...Tag) Set {
	return Set(nil).Union(tags...)
}

// Has reports whether t is in the set
func (s Set) Has(t Tag) bool {
	i := s.search(t)
	return i < len(s) && s[i] == t
}

// HasKind reports whether any tag of the given kind is present
func (s Set) HasKind(kind Kind) bool {
	_, ok := s.Get(kind)
	return ok
}

// Get returns the first tag of a kind
func (s Set) Get(kind Kind) (Tag, bool) {
	for _, t := range s {
		if t.Kind == kind {
			return t, true
		}
	}
	return Tag{}, false
}

// Union returns a new set holding s and tags
func (s Set) Union(tags ...Tag) Set {
	if len(tags) == 0 {
		return s
	}
	out := make(Set, 0, len(s)+len(tags))
	out = append(out, s...)
	for _, t := range tags {
		if !out.Has(t) {
			out = append(out, t)
			sort.Slice(out, func(i, j int) bool { return less(out[i], out[j]) })
		}
	}
	return out
}

// Without returns a new set with every tag of the given kinds dropped
func (s Set) Without(kinds ...Kind) Set {
	out := make(Set, 0, len(s))
	for _, t := range s {
		drop := false
		for _, k := range kinds {
			if t.Kind == k {
				drop = true
				break
			}
		}
		if !drop {
			out = append(out, t)
		}
	}
	return out
}

func (s Set) search(t Tag) int {
	return sort.Search(len(s), func(i int) bool { return !less(s[i], t) })
}

func less(a, b Tag) bool {
	if a.Kind != b.Kind {
		return a.Kind < b.Kind
	}
	return a.Data < b.Data
}
