package syntax

import "fmt"

// Span is a half-open character range [Start, Start+Length) within a source unit.
type Span struct {
	Start  int
	Length int
}

// NewSpan creates a span from start and end offsets
func NewSpan(start, end int) Span {
	if end < start {
		end = start
	}
	return Span{Start: start, Length: end - start}
}

// End returns the exclusive end offset
func (s Span) End() int {
	return s.Start + s.Length
}

// IsEmpty reports whether the span covers no characters
func (s Span) IsEmpty() bool {
	return s.Length == 0
}

// Contains reports whether pos lies inside the span
func (s Span) Contains(pos int) bool {
	return pos >= s.Start && pos < s.End()
}

// ContainsSpan reports whether o lies entirely inside s
func (s Span) ContainsSpan(o Span) bool {
	return o.Start >= s.Start && o.End() <= s.End()
}

// OverlapsWith reports whether the two spans share at least one character.
func (s Span) OverlapsWith(o Span) bool {
	return max(s.Start, o.Start) < min(s.End(), o.End())
}

// IntersectsWith is OverlapsWith extended to touching spans, so that empty
// spans intersect anything they sit on the edge of.
func (s Span) IntersectsWith(o Span) bool {
	return max(s.Start, o.Start) <= min(s.End(), o.End())
}

func (s Span) String() string {
	return fmt.Sprintf("[%d..%d)", s.Start, s.End())
}
