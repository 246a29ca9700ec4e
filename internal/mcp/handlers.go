package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/standardbeagle/lcr/internal/cache"
	lcrdebug "github.com/standardbeagle/lcr/internal/debug"
	lcrerrors "github.com/standardbeagle/lcr/internal/errors"
	"github.com/standardbeagle/lcr/internal/pipeline"
	"github.com/standardbeagle/lcr/internal/reduce"
	"github.com/standardbeagle/lcr/internal/version"
)

// ReduceResponse is the result of the reduce tool
type ReduceResponse struct {
	Path     string         `json:"path,omitempty"`
	Changed  bool           `json:"changed"`
	Reduced  string         `json:"reduced"`
	Written  bool           `json:"written,omitempty"`
	Cached   bool           `json:"cached,omitempty"`
	Stats    reduce.Result  `json:"stats"`
	Warnings []UnknownField `json:"warnings,omitempty"`
}

// ReducerInfo describes one reducer for the reducers tool
type ReducerInfo struct {
	Name       string `json:"name"`
	Order      int    `json:"order"`
	Selected   bool   `json:"selected"`
	Applicable bool   `json:"applicable"`
}

// ReducersResponse is the result of the reducers tool
type ReducersResponse struct {
	Reducers []ReducerInfo `json:"reducers"`
}

func (s *Server) handleInfo(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return s.recoverFromPanic("info", func() (*mcp.CallToolResult, error) {
		return createJSONResponse(map[string]interface{}{
			"name":     "lcr",
			"version":  version.FullInfo(),
			"build_id": version.BuildID(),
			"root":     s.cfg.Project.Root,
			"cache":    s.outcomes.Stats(),
			"tools": map[string]string{
				"reduce":   getOperationHelp("reduce"),
				"reducers": getOperationHelp("reducers"),
			},
		})
	})
}

func (s *Server) handleReduce(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return s.recoverFromPanic("reduce", func() (*mcp.CallToolResult, error) {
		var params ReduceParams
		if err := json.Unmarshal(req.Params.Arguments, &params); err != nil {
			return nil, fmt.Errorf("invalid parameters: %w", err)
		}
		if err := params.Validate(); err != nil {
			return nil, err
		}
		sel, err := params.Selection()
		if err != nil {
			return nil, err
		}

		cfg := *s.cfg
		if len(params.Reducers) > 0 {
			cfg.Reducers = params.Reducers
		}
		if params.Serial {
			cfg.Performance.Serial = true
		}
		runner, err := pipeline.New(&cfg)
		if err != nil {
			return nil, err
		}
		runner.Options = params.ApplyOptions(runner.Options)

		var out *pipeline.Outcome
		cached := false
		if params.Path != "" {
			out, err = s.reduceFile(ctx, runner, params.Path, sel, params.Write)
		} else {
			out, cached, err = s.reduceSource(ctx, runner, cfg.Reducers, params.Source, sel)
		}
		if err != nil {
			return nil, err
		}
		lcrdebug.LogMCP("reduce %s spans=[%s] lines=%d changed=%v\n", out.Path, spanList(sel.Spans), len(sel.Lines), out.Changed)

		s.stats.mu.Lock()
		s.stats.Requests++
		if out.Changed {
			s.stats.Changed++
		}
		if out.Written {
			s.stats.Written++
		}
		s.stats.mu.Unlock()

		resp := &ReduceResponse{
			Changed:  out.Changed,
			Reduced:  out.Reduced,
			Written:  out.Written,
			Cached:   cached,
			Stats:    out.Stats,
			Warnings: params.Warnings,
		}
		if params.Path != "" {
			resp.Path = out.Path
		}
		return createJSONResponse(resp)
	})
}

// reduceSource reduces inline source text, reusing the outcome of an
// identical earlier request
func (s *Server) reduceSource(ctx context.Context, runner *pipeline.Runner, names []string, source string, sel pipeline.Selection) (*pipeline.Outcome, bool, error) {
	key := cache.Key([]byte(source),
		strings.Join(names, ","),
		fmt.Sprintf("%+v", runner.Options),
		fmt.Sprintf("%+v", sel))
	if out, ok := s.outcomes.Get(key); ok {
		return out, true, nil
	}
	out, err := runner.Reduce(ctx, "source.cs", []byte(source), sel)
	if err != nil {
		return nil, false, err
	}
	s.outcomes.Put(key, out)
	return out, false, nil
}

func (s *Server) reduceFile(ctx context.Context, runner *pipeline.Runner, path string, sel pipeline.Selection, write bool) (*pipeline.Outcome, error) {
	abs, err := s.resolvePath(path)
	if err != nil {
		return nil, err
	}
	if info, err := os.Stat(abs); err != nil {
		return nil, lcrerrors.NewFileError("stat", abs, err)
	} else if info.IsDir() {
		return nil, fmt.Errorf("%s is a directory", path)
	}
	if write {
		s.writeMu.Lock()
		defer s.writeMu.Unlock()
	}
	return runner.ReduceFile(ctx, abs, sel, write)
}

func (s *Server) handleReducers(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return s.recoverFromPanic("reducers", func() (*mcp.CallToolResult, error) {
		selected := make(map[string]bool)
		for _, name := range s.cfg.Reducers {
			selected[name] = true
		}
		opts := s.cfg.ReduceOptions()

		resp := &ReducersResponse{}
		for i, r := range s.registry.All() {
			resp.Reducers = append(resp.Reducers, ReducerInfo{
				Name:       r.Name(),
				Order:      i + 1,
				Selected:   len(selected) == 0 || selected[r.Name()],
				Applicable: r.IsApplicable(opts),
			})
		}
		return createJSONResponse(resp)
	})
}
