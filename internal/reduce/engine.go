// Package reduce drives reducers over the tagged regions of a source unit
// and merges their edits in one pass.
package reduce

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/standardbeagle/lcr/internal/annotate"
	"github.com/standardbeagle/lcr/internal/debug"
	"github.com/standardbeagle/lcr/internal/document"
	lcrerrors "github.com/standardbeagle/lcr/internal/errors"
	"github.com/standardbeagle/lcr/internal/intervals"
	"github.com/standardbeagle/lcr/internal/semantic"
	"github.com/standardbeagle/lcr/internal/speculate"
	"github.com/standardbeagle/lcr/internal/syntax"
)

// DefaultMaxIterations bounds how often one rewriter may revisit a unit
const DefaultMaxIterations = 32

// ErrCancelled is wrapped together with the context error when a request
// is abandoned. The original unit is returned alongside it.
var ErrCancelled = errors.New("reduce: operation cancelled")

var errIterationLimit = errors.New("reduce: rewriter did not settle")

// TransformFunc is applied to every substitution of the terminal merge
type TransformFunc func(original, replacement syntax.Element) syntax.Element

// Hooks observe a request. They may be called from several goroutines.
type Hooks struct {
	OnSpeculation  func(anchor syntax.Element)
	OnRealAnalysis func(u *document.Unit)
	// AfterUnit runs once a unit of work has recorded its edit
	AfterUnit func(w UnitOfWork)
	// OnTransform sees every substitution of the terminal merge
	OnTransform func(original, replacement syntax.Element)
	// OnAbandon sees a recoverable failure that left a unit unchanged by
	// one reducer. err is a *errors.ReduceError.
	OnAbandon func(w UnitOfWork, err error)
}

// UnitOfWork is one maximal candidate and the latest rewrite of it
type UnitOfWork struct {
	Original               syntax.Element
	SimplifyAllDescendants bool
	Current                syntax.Element
}

// Config tunes scheduling
type Config struct {
	// Serial processes units one after another in document order
	Serial        bool
	MaxIterations int
	// MaxParallel bounds concurrent units; zero means GOMAXPROCS
	MaxParallel int
	Hooks       Hooks
}

// Result reports what a request did
type Result struct {
	Units          int `json:"units"`
	NodeEdits      int `json:"node_edits"`
	TokenEdits     int `json:"token_edits"`
	RemovedImports int `json:"removed_imports"`
	Speculations   int `json:"speculations"`
	RealAnalyses   int `json:"real_analyses"`
	Abandoned      int `json:"abandoned"`
}

// Engine is the reduction orchestrator
type Engine struct {
	Analyzer *semantic.Analyzer
	Language document.Language
	Reducers []Reducer
	Config   Config
}

// Reduce simplifies the parts of u covered by spans. On cancellation the
// original unit is returned with an error wrapping ErrCancelled and the
// context error; no partially merged tree is ever produced.
func (e *Engine) Reduce(ctx context.Context, u *document.Unit, spans []syntax.Span, opts Options, transform TransformFunc) (*document.Unit, error) {
	out, _, err := e.ReduceWithStats(ctx, u, spans, opts, transform)
	return out, err
}

// request is the per-call state shared by all units
type request struct {
	engine   *Engine
	unit     *document.Unit
	real     *semantic.Model
	reducers []Reducer
	opts     Options
	outside  func(syntax.Span) bool
	manager  *speculate.Manager
	nodes    *EditMap[*syntax.Node]
	tokens   *EditMap[*syntax.Token]

	speculations atomic.Int64
	analyses     atomic.Int64
	abandoned    atomic.Int64
}

// ReduceWithStats is Reduce returning statistics
func (e *Engine) ReduceWithStats(ctx context.Context, u *document.Unit, spans []syntax.Span, opts Options, transform TransformFunc) (*document.Unit, Result, error) {
	var res Result
	original := u
	if err := ctx.Err(); err != nil {
		return original, res, cancelled(err)
	}
	index := intervals.New(spans)
	if index.Empty() {
		return original, res, nil
	}

	var reducers []Reducer
	for _, r := range e.Reducers {
		if r.IsApplicable(opts) {
			reducers = append(reducers, r)
		}
	}

	tags := u.Tags.Fork()
	u = u.WithTags(tags)
	u, tagged := e.tagImports(u, index)

	analyzer := e.analyzer()
	req := &request{
		engine:   e,
		unit:     u,
		reducers: reducers,
		opts:     opts,
		outside:  index.IsOutside,
		nodes:    NewEditMap[*syntax.Node](),
		tokens:   NewEditMap[*syntax.Token](),
	}
	req.manager = &speculate.Manager{
		Analyzer: analyzer,
		Tags:     tags,
		Language: e.Language,
		Hooks: speculate.Hooks{
			OnSpeculation: func(anchor syntax.Element) {
				req.speculations.Add(1)
				if e.Config.Hooks.OnSpeculation != nil {
					e.Config.Hooks.OnSpeculation(anchor)
				}
			},
			OnRealAnalysis: func(ru *document.Unit) {
				req.analyses.Add(1)
				if e.Config.Hooks.OnRealAnalysis != nil {
					e.Config.Hooks.OnRealAnalysis(ru)
				}
			},
		},
	}

	merged := u
	candidates := e.Language.Candidates(u, index.IsOutside)
	res.Units = len(candidates)
	if len(candidates) > 0 && len(reducers) > 0 {
		model, err := analyzer.Analyze(ctx, u)
		if err != nil {
			return original, res, e.fail(ctx, u, err)
		}
		req.real = model

		if err := req.run(ctx, candidates); err != nil {
			return original, res, e.fail(ctx, u, err)
		}
		if err := ctx.Err(); err != nil {
			return original, res, cancelled(err)
		}

		res.NodeEdits, res.TokenEdits = req.nodes.Len(), req.tokens.Len()
		if res.NodeEdits+res.TokenEdits > 0 {
			root := syntax.ReplaceAll(u.Root, req.nodes.Snapshot(), req.tokens.Snapshot(), func(orig, repl syntax.Element) syntax.Element {
				repl = tags.CopyTags(orig, repl)
				if transform != nil {
					repl = transform(orig, repl)
				}
				if h := e.Config.Hooks.OnTransform; h != nil {
					h(orig, repl)
				}
				return repl
			}, tags.CarryForward)
			merged = u.WithRoot(root)
		}
	}
	res.Speculations = int(req.speculations.Load())
	res.RealAnalyses = int(req.analyses.Load())
	res.Abandoned = int(req.abandoned.Load())

	if tagged > 0 {
		swept, removed, err := Sweep(ctx, analyzer, e.Language, merged)
		if err != nil {
			return original, res, e.fail(ctx, merged, err)
		}
		merged, res.RemovedImports = swept, removed
	}
	debug.LogReduce("%s: %d units, %d node edits, %d token edits, %d imports removed\n",
		u.Path, res.Units, res.NodeEdits, res.TokenEdits, res.RemovedImports)
	return merged, res, nil
}

func (e *Engine) analyzer() *semantic.Analyzer {
	if e.Analyzer != nil {
		return e.Analyzer
	}
	return semantic.NewAnalyzer()
}

func (e *Engine) fail(ctx context.Context, u *document.Unit, err error) error {
	if ctx.Err() != nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		if cerr := ctx.Err(); cerr != nil {
			return cancelled(cerr)
		}
		return cancelled(err)
	}
	var re *lcrerrors.ReduceError
	if errors.As(err, &re) {
		return re
	}
	return lcrerrors.NewReduceError("reduce", err).WithPath(u.Path)
}

func cancelled(cause error) error {
	return fmt.Errorf("%w: %w", ErrCancelled, cause)
}

// tagImports marks candidate imports inside the spans as removable. The
// marked imports are clones, so the result is a new unit.
func (e *Engine) tagImports(u *document.Unit, index *intervals.Index) (*document.Unit, int) {
	nodes := make(map[*syntax.Node]syntax.Element)
	for _, imp := range e.Language.Imports(u.Root) {
		if !u.Tags.Has(imp, annotate.SimplifyCandidate) {
			continue
		}
		if span, ok := u.Span(imp); !ok || index.IsOutside(span) {
			continue
		}
		nodes[imp] = u.Tags.WithAdditionalTags(imp, annotate.New(annotate.RemoveIfUnused))
	}
	if len(nodes) == 0 {
		return u, 0
	}
	return u.WithRoot(syntax.ReplaceAll(u.Root, nodes, nil, nil, u.Tags.CarryForward)), len(nodes)
}

func (r *request) run(ctx context.Context, candidates []document.Candidate) error {
	if r.engine.Config.Serial {
		for _, c := range candidates {
			if err := r.reduceUnit(ctx, c); err != nil {
				return err
			}
		}
		return nil
	}

	limit := r.engine.Config.MaxParallel
	if limit <= 0 {
		limit = runtime.GOMAXPROCS(0)
	}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)
	for _, c := range candidates {
		g.Go(func() error {
			return r.reduceUnit(gctx, c)
		})
	}
	return g.Wait()
}

// reduceUnit runs every reducer over one unit of work in order and records
// the result when it differs from the original.
func (r *request) reduceUnit(ctx context.Context, c document.Candidate) error {
	w := UnitOfWork{
		Original:               c.Element,
		SimplifyAllDescendants: c.SimplifyAllDescendants,
		Current:                c.Element,
	}
	for _, red := range r.reducers {
		if err := ctx.Err(); err != nil {
			return err
		}
		next, err := r.runReducer(ctx, red, w)
		if err == nil {
			w.Current = next
			continue
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		rerr := lcrerrors.NewReduceError("visit", err).
			WithReducer(red.Name()).
			WithPath(r.unit.Path).
			WithRecoverable(errors.Is(err, speculate.ErrNoContext) || errors.Is(err, errIterationLimit))
		if !rerr.IsRecoverable() {
			return rerr
		}
		// The unit keeps whatever earlier reducers produced.
		r.abandoned.Add(1)
		if debug.IsDebugEnabled() {
			debug.LogReduce("%s abandoned on %q: %v\n", red.Name(), syntax.TrimmedText(w.Original), err)
		}
		if h := r.engine.Config.Hooks.OnAbandon; h != nil {
			h(w, rerr)
		}
	}

	if w.Current == w.Original {
		return nil
	}
	recorded := false
	switch orig := w.Original.(type) {
	case *syntax.Node:
		recorded = r.nodes.Record(orig, w.Current)
	case *syntax.Token:
		recorded = r.tokens.Record(orig, w.Current)
	}
	if !recorded {
		if debug.IsDebugEnabled() {
			debug.LogReduce("overlapping unit %q ignored\n", syntax.TrimmedText(w.Original))
		}
		return nil
	}
	if h := r.engine.Config.Hooks.AfterUnit; h != nil {
		h(w)
	}
	return nil
}

// session tracks the model one rewriter is working against. inModel is the
// element of the model's tree that the held candidate stands in for.
type session struct {
	req          *request
	requiresReal bool
	model        *semantic.Model
	inModel      syntax.Element
	lastModel    *semantic.Model
}

func (s *session) speculate(ctx context.Context, candidate syntax.Element) (*semantic.Model, syntax.Element, error) {
	model, found, err := s.req.manager.Model(ctx, speculate.Request{
		Candidate:           candidate,
		Current:             s.model,
		Replaced:            s.inModel,
		RequiresRealBinding: s.requiresReal,
	})
	if err != nil {
		return nil, nil, err
	}
	s.lastModel = model
	return model, found, nil
}

// runReducer drives one rewriter to a fixed point. Whenever the held
// candidate is not part of the active model's tree a model is obtained for
// it first.
func (r *request) runReducer(ctx context.Context, red Reducer, w UnitOfWork) (syntax.Element, error) {
	max := r.engine.Config.MaxIterations
	if max <= 0 {
		max = DefaultMaxIterations
	}
	s := &session{
		req:          r,
		requiresReal: red.RequiresRealBinding(w.Original, r.real),
		model:        r.real,
		inModel:      w.Original,
	}
	rw := red.CreateRewriter()
	rw.Initialize(RewriteContext{
		Options:                r.opts,
		Tags:                   r.unit.Tags,
		Outside:                r.outside,
		SimplifyAllDescendants: w.SimplifyAllDescendants,
		Speculate:              s.speculate,
	})

	held := w.Current
	for i := 0; ; i++ {
		if i >= max {
			return nil, errIterationLimit
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if !s.model.Contains(held) {
			if s.lastModel != nil && s.lastModel.Contains(held) {
				s.model = s.lastModel
			} else {
				model, found, err := s.speculate(ctx, held)
				if err != nil {
					return nil, err
				}
				s.model, held = model, found
			}
			s.inModel = held
		}
		s.lastModel = nil

		next, err := rw.Visit(ctx, held, s.model)
		if err != nil {
			return nil, err
		}
		if next != nil {
			held = next
		}
		if !rw.HasMoreWork() {
			return held, nil
		}
	}
}
