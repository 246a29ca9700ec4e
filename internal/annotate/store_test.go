package annotate

import (
	"sync"
	"testing"

	"github.com/standardbeagle/lcr/internal/syntax"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ident(text string) *syntax.Token {
	return syntax.NewToken("identifier", text, "", "")
}

func TestSet(t *testing.T) {
	s := NewSet(New(SimplifyCandidate), WithData(ResolvedSymbol, "T:System.String"), New(SimplifyCandidate))

	assert.Len(t, s, 2, "duplicates collapse")
	assert.True(t, s.HasKind(ResolvedSymbol))
	assert.True(t, s.Has(New(SimplifyCandidate)))
	assert.False(t, s.Has(WithData(ResolvedSymbol, "T:System.Int32")))

	got, ok := s.Get(ResolvedSymbol)
	require.True(t, ok)
	assert.Equal(t, "T:System.String", got.Data)

	without := s.Without(SimplifyCandidate)
	assert.Len(t, without, 1)
	assert.Len(t, s, 2, "sets are immutable")
}

func TestWithAdditionalTagsIsPure(t *testing.T) {
	store := NewStore()
	tok := ident("x")
	store.Attach(tok, New(SimplifyCandidate))

	tagged := store.WithAdditionalTags(tok, New(RemoveIfUnused))

	assert.NotSame(t, tok, tagged)
	assert.Equal(t, "x", syntax.Text(tagged))
	assert.True(t, store.Has(tagged, SimplifyCandidate))
	assert.True(t, store.Has(tagged, RemoveIfUnused))
	assert.False(t, store.Has(tok, RemoveIfUnused), "original keeps its tags")
}

func TestCopyTags(t *testing.T) {
	t.Run("guard added when replacement does not request simplification", func(t *testing.T) {
		store := NewStore()
		from, to := ident("a"), ident("b")
		store.Attach(from, WithData(ResolvedSymbol, "F:C.a"), NewRelocationTag())

		out := store.CopyTags(from, to)

		assert.True(t, store.Has(out, DoNotSimplify))
		assert.True(t, store.Has(out, ResolvedSymbol))
		assert.False(t, store.Has(out, Relocation), "relocation markers are unique")
		assert.False(t, store.Has(to, DoNotSimplify))
	})

	t.Run("no guard when replacement requests simplification", func(t *testing.T) {
		store := NewStore()
		from, to := ident("a"), ident("b")
		store.Attach(from, New(SimplifyCandidate))
		store.Attach(to, New(SimplifyCandidate))

		out := store.CopyTags(from, to)

		assert.False(t, store.Has(out, DoNotSimplify))
		assert.True(t, store.Has(out, SimplifyCandidate))
	})
}

func TestCarryForward(t *testing.T) {
	store := NewStore()
	from, to := ident("a"), ident("b")
	store.Attach(from, New(SimplifyCandidate))

	out := store.CarryForward(from, to)
	assert.True(t, store.Has(out, SimplifyCandidate))
	assert.False(t, store.Has(out, DoNotSimplify))

	own := ident("c")
	store.Attach(own, New("format"))
	assert.Same(t, own, store.CarryForward(from, own))
}

func TestCaptureIsWriteOnce(t *testing.T) {
	store := NewStore()
	tok := ident("String")
	calls := 0

	first, ok := store.Capture(tok, ResolvedSymbol, func() (string, bool) {
		calls++
		return "T:System.String", true
	})
	require.True(t, ok)
	assert.Equal(t, "T:System.String", first.Data)

	second, ok := store.Capture(tok, ResolvedSymbol, func() (string, bool) {
		calls++
		return "T:MyApp.String", true
	})
	require.True(t, ok)
	assert.Equal(t, "T:System.String", second.Data)
	assert.Equal(t, 1, calls)

	symbol, special := store.Resolved(tok)
	assert.Equal(t, "T:System.String", symbol)
	assert.Empty(t, special)

	_, ok = store.Capture(ident("y"), ResolvedSymbol, func() (string, bool) { return "", false })
	assert.False(t, ok)
}

func TestFindTagged(t *testing.T) {
	store := NewStore()
	a, b := ident("a"), ident("b")
	root := syntax.NewNode("pair", []syntax.Element{a, b}, nil)
	marker := NewRelocationTag()
	store.Attach(b, marker)

	assert.Same(t, b, store.FindTagged(root, marker))
	assert.Nil(t, store.FindTagged(root, NewRelocationTag()))
	assert.Len(t, store.Tagged(root, Relocation), 1)
}

func TestForkIsolation(t *testing.T) {
	store := NewStore()
	tok := ident("a")
	store.Attach(tok, New(SimplifyCandidate))

	fork := store.Fork()
	fork.Attach(tok, New(RemoveIfUnused))

	assert.True(t, fork.Has(tok, SimplifyCandidate))
	assert.False(t, store.Has(tok, RemoveIfUnused))
}

func TestStoreConcurrentUse(t *testing.T) {
	store := NewStore()
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			tok := ident("x")
			store.Attach(tok, New(SimplifyCandidate))
			_ = store.WithAdditionalTags(tok, New(DoNotSimplify))
		}()
	}
	wg.Wait()
	assert.Equal(t, 32, store.Len())
}
