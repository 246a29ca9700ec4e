// Package pipeline runs whole-file reductions: parse, tag the selected
// spans, reduce and report. It is shared by the command line and the MCP
// server.
package pipeline

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/standardbeagle/lcr/internal/config"
	"github.com/standardbeagle/lcr/internal/csharp"
	"github.com/standardbeagle/lcr/internal/debug"
	lcrerrors "github.com/standardbeagle/lcr/internal/errors"
	"github.com/standardbeagle/lcr/internal/reduce"
	"github.com/standardbeagle/lcr/internal/security"
	"github.com/standardbeagle/lcr/internal/semantic"
	"github.com/standardbeagle/lcr/internal/syntax"
)

// Selection chooses the text to reduce. With All set the whole file is
// reduced; otherwise the union of Spans and Lines.
type Selection struct {
	All   bool
	Spans []syntax.Span
	Lines []LineRange
}

// LineRange is an inclusive range of 1-based line numbers
type LineRange struct {
	First int
	Last  int
}

// Outcome is the result of reducing one file
type Outcome struct {
	Path     string        `json:"path"`
	Changed  bool          `json:"changed"`
	Original string        `json:"-"`
	Reduced  string        `json:"reduced,omitempty"`
	Stats    reduce.Result `json:"stats"`
	Written  bool          `json:"written,omitempty"`
}

// Runner reduces files with one configuration
type Runner struct {
	Parser  *csharp.Parser
	Engine  *reduce.Engine
	Options reduce.Options
	// Validator screens input before parsing; nil accepts anything
	Validator *security.SourceValidator
}

// New builds a runner from cfg
func New(cfg *config.Config) (*Runner, error) {
	rs, err := cfg.SelectReducers()
	if err != nil {
		return nil, lcrerrors.NewConfigError("reducers", strings.Join(cfg.Reducers, ","), err)
	}
	return &Runner{
		Parser: csharp.NewParser(),
		Engine: &reduce.Engine{
			Analyzer: &semantic.Analyzer{Catalog: cfg.NewCatalog()},
			Language: csharp.Language{},
			Reducers: rs,
			Config:   cfg.EngineConfig(),
		},
		Options:   cfg.ReduceOptions(),
		Validator: security.NewSourceValidator(security.DefaultMaxSourceKB),
	}, nil
}

// Reduce reduces the selected parts of src
func (r *Runner) Reduce(ctx context.Context, path string, src []byte, sel Selection) (*Outcome, error) {
	if r.Validator != nil {
		if err := r.Validator.Validate(path, src); err != nil {
			return nil, err
		}
	}
	u, err := r.Parser.Parse(ctx, path, src)
	if err != nil {
		return nil, err
	}
	text := u.Text()

	spans := sel.Spans
	if sel.All {
		spans = []syntax.Span{syntax.NewSpan(0, len(text))}
	}
	for _, lr := range sel.Lines {
		s, err := LineSpan(text, lr)
		if err != nil {
			return nil, err
		}
		spans = append(spans, s)
	}
	for _, s := range spans {
		if s.Start < 0 || s.End() > len(text) {
			return nil, fmt.Errorf("span %s is outside %s (%d characters)", s, path, len(text))
		}
	}
	marked := csharp.MarkSpans(u, spans)
	debug.LogReduce("%s: %d spans, %d elements marked\n", path, len(spans), marked)

	out, stats, err := r.Engine.ReduceWithStats(ctx, u, spans, r.Options, nil)
	if err != nil {
		return nil, err
	}
	reduced := out.Text()
	return &Outcome{
		Path:     path,
		Changed:  reduced != text,
		Original: text,
		Reduced:  reduced,
		Stats:    stats,
	}, nil
}

// ReduceFile reads, reduces and optionally rewrites the file at path
func (r *Runner) ReduceFile(ctx context.Context, path string, sel Selection, write bool) (*Outcome, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, lcrerrors.NewFileError("stat", path, err)
	}
	if r.Validator != nil {
		if err := r.Validator.ValidateSize(path, info.Size()); err != nil {
			return nil, err
		}
	}
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, lcrerrors.NewFileError("read", path, err)
	}
	out, err := r.Reduce(ctx, path, src, sel)
	if err != nil {
		return nil, err
	}
	if write && out.Changed {
		if err := os.WriteFile(path, []byte(out.Reduced), info.Mode().Perm()); err != nil {
			return nil, lcrerrors.NewFileError("write", path, err)
		}
		out.Written = true
	}
	return out, nil
}

// ParseSpan parses "start:length" or "start-end" character offsets
func ParseSpan(s string) (syntax.Span, error) {
	if a, b, ok := strings.Cut(s, ":"); ok {
		start, err1 := strconv.Atoi(strings.TrimSpace(a))
		length, err2 := strconv.Atoi(strings.TrimSpace(b))
		if err1 != nil || err2 != nil || start < 0 || length < 0 {
			return syntax.Span{}, fmt.Errorf("invalid span %q, want start:length", s)
		}
		return syntax.Span{Start: start, Length: length}, nil
	}
	if a, b, ok := strings.Cut(s, "-"); ok {
		start, err1 := strconv.Atoi(strings.TrimSpace(a))
		end, err2 := strconv.Atoi(strings.TrimSpace(b))
		if err1 != nil || err2 != nil || start < 0 || end < start {
			return syntax.Span{}, fmt.Errorf("invalid span %q, want start-end", s)
		}
		return syntax.NewSpan(start, end), nil
	}
	return syntax.Span{}, fmt.Errorf("invalid span %q, want start:length or start-end", s)
}

// ParseLines parses "a-b" or a single line number "a"
func ParseLines(s string) (LineRange, error) {
	a, b, ranged := strings.Cut(s, "-")
	first, err := strconv.Atoi(strings.TrimSpace(a))
	if err != nil || first < 1 {
		return LineRange{}, fmt.Errorf("invalid line range %q", s)
	}
	last := first
	if ranged {
		if last, err = strconv.Atoi(strings.TrimSpace(b)); err != nil || last < first {
			return LineRange{}, fmt.Errorf("invalid line range %q", s)
		}
	}
	return LineRange{First: first, Last: last}, nil
}

// LineSpan returns the character span of the lines in lr, line breaks
// included
func LineSpan(text string, lr LineRange) (syntax.Span, error) {
	start, line := -1, 1
	if lr.First == 1 {
		start = 0
	}
	for i := 0; i < len(text); i++ {
		if text[i] != '\n' {
			continue
		}
		if line == lr.Last {
			return syntax.NewSpan(start, i+1), nil
		}
		line++
		if line == lr.First {
			start = i + 1
		}
	}
	if start < 0 || line < lr.Last {
		return syntax.Span{}, fmt.Errorf("lines %d-%d are past the end (%d lines)", lr.First, lr.Last, line)
	}
	return syntax.NewSpan(start, len(text)), nil
}
