package annotate

import (
	"sync"

	"github.com/standardbeagle/lcr/internal/syntax"
)

// Store is the identity-keyed tag sidecar. It is safe for concurrent use.
// Queries never change the elements they are asked about.
type Store struct {
	mu   sync.RWMutex
	tags map[syntax.Element]Set
}

// NewStore creates an empty store
func NewStore() *Store {
	return &Store{tags: make(map[syntax.Element]Set)}
}

// Fork copies the store. Requests work on a fork so that the caller's
// store is left as it was.
func (s *Store) Fork() *Store {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := &Store{tags: make(map[syntax.Element]Set, len(s.tags))}
	for el, set := range s.tags {
		out.tags[el] = set
	}
	return out
}

// Len returns the number of tagged elements
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.tags)
}

// Tags returns the tag set of el (GetTags)
func (s *Store) Tags(el syntax.Element) Set {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.tags[el]
}

// Has reports whether el carries a tag of kind (HasTag)
func (s *Store) Has(el syntax.Element, kind Kind) bool {
	return s.Tags(el).HasKind(kind)
}

// HasTag reports whether el carries exactly t
func (s *Store) HasTag(el syntax.Element, t Tag) bool {
	return s.Tags(el).Has(t)
}

// Get returns the tag of kind on el
func (s *Store) Get(el syntax.Element, kind Kind) (Tag, bool) {
	return s.Tags(el).Get(kind)
}

// Attach adds tags to el in place, keeping its identity. It is meant for
// preparing input before a request (marking candidates) and for parsers.
func (s *Store) Attach(el syntax.Element, tags ...Tag) {
	if el == nil || len(tags) == 0 {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tags[el] = s.tags[el].Union(tags...)
}

// WithAdditionalTags returns a clone of el carrying el's tags plus tags.
// el itself is not modified.
func (s *Store) WithAdditionalTags(el syntax.Element, tags ...Tag) syntax.Element {
	if el == nil {
		return nil
	}
	clone := syntax.Clone(el)
	s.mu.Lock()
	defer s.mu.Unlock()
	if set := s.tags[el].Union(tags...); len(set) > 0 {
		s.tags[clone] = set
	}
	return clone
}

// CopyTags carries the tags of from forward onto a clone of to. Unless to
// already requests simplification it is also guarded with DoNotSimplify, so
// that a replacement is never queued for reduction again. Relocation
// markers identify one specific element and are not copied.
func (s *Store) CopyTags(from, to syntax.Element) syntax.Element {
	tags := s.Tags(from).Without(Relocation)
	if !s.Has(to, SimplifyCandidate) {
		tags = tags.Union(New(DoNotSimplify))
	}
	if len(tags) == 0 {
		return to
	}
	return s.WithAdditionalTags(to, tags...)
}

// CarryForward copies the tags of from onto to without the guard. It is
// used when a node is rebuilt rather than replaced. Elements that already
// have tags of their own are returned unchanged.
func (s *Store) CarryForward(from, to syntax.Element) syntax.Element {
	if from == to || len(s.Tags(to)) > 0 {
		return to
	}
	tags := s.Tags(from).Without(Relocation)
	if len(tags) == 0 {
		return to
	}
	return s.WithAdditionalTags(to, tags...)
}

// Capture records the identity el resolves to, once. If a tag of kind is
// already present it is returned and resolve is not called; otherwise
// resolve is asked for the current binding and the answer is stored. The
// boolean is false when nothing could be recorded.
func (s *Store) Capture(el syntax.Element, kind Kind, resolve func() (string, bool)) (Tag, bool) {
	if t, ok := s.Get(el, kind); ok {
		return t, true
	}
	data, ok := resolve()
	if !ok {
		return Tag{}, false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if t, ok := s.tags[el].Get(kind); ok {
		return t, true
	}
	t := WithData(kind, data)
	s.tags[el] = s.tags[el].Union(t)
	return t, true
}

// Resolved returns the captured symbol and special type of el, if any
func (s *Store) Resolved(el syntax.Element) (symbol, special string) {
	set := s.Tags(el)
	if t, ok := set.Get(ResolvedSymbol); ok {
		symbol = t.Data
	}
	if t, ok := set.Get(ResolvedSpecialType); ok {
		special = t.Data
	}
	return symbol, special
}

// FindTagged returns the first element under root carrying t
func (s *Store) FindTagged(root syntax.Element, t Tag) syntax.Element {
	return syntax.Find(root, func(el syntax.Element) bool {
		return s.HasTag(el, t)
	})
}

// Tagged returns every element under root carrying a tag of kind
func (s *Store) Tagged(root syntax.Element, kind Kind) []syntax.Element {
	return syntax.FindAll(root, func(el syntax.Element) bool {
		return s.Has(el, kind)
	})
}
