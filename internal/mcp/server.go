package mcp

import (
	"context"
	"fmt"
	"path/filepath"
	"runtime"
	"runtime/debug"
	"strings"
	"sync"
	"time"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/standardbeagle/lcr/internal/cache"
	"github.com/standardbeagle/lcr/internal/config"
	lcrdebug "github.com/standardbeagle/lcr/internal/debug"
	"github.com/standardbeagle/lcr/internal/pipeline"
	"github.com/standardbeagle/lcr/internal/reducers"
	"github.com/standardbeagle/lcr/internal/version"
)

// Server exposes the reducer as MCP tools over stdio
type Server struct {
	cfg              *config.Config
	server           *mcp.Server
	diagnosticLogger *DiagnosticLogger
	registry         *reducers.Registry
	outcomes         *cache.Cache[*pipeline.Outcome]

	// guards writes to files under the project root
	writeMu sync.Mutex

	stats serverStats
}

type serverStats struct {
	mu       sync.Mutex
	Requests int `json:"requests"`
	Changed  int `json:"changed"`
	Written  int `json:"written"`
	Failures int `json:"failures"`
}

// NewServer creates the server for cfg. The configuration is validated by
// building a runner from it once.
func NewServer(cfg *config.Config) (*Server, error) {
	if cfg == nil {
		return nil, fmt.Errorf("mcp server needs a configuration")
	}
	return newServer(cfg, NewDiagnosticLogger(true))
}

func newServer(cfg *config.Config, logger *DiagnosticLogger) (*Server, error) {
	if _, err := pipeline.New(cfg); err != nil {
		return nil, err
	}
	s := &Server{
		cfg:              cfg,
		diagnosticLogger: logger,
		registry:         reducers.Builtin(),
		outcomes:         cache.New[*pipeline.Outcome](cache.DefaultConfig()),
	}
	s.server = mcp.NewServer(&mcp.Implementation{
		Name:    "lcr-mcp-server",
		Version: version.Info(),
	}, nil)
	s.registerTools()

	logger.Printf("MCP server initialized for %s", cfg.Project.Root)
	lcrdebug.LogMCP("server initialized, root %s\n", cfg.Project.Root)
	return s, nil
}

func (s *Server) registerTools() {
	s.server.AddTool(&mcp.Tool{
		Name:        "info",
		Description: "Describe the lcr server, its version and its tools.",
		InputSchema: &jsonschema.Schema{
			Type:       "object",
			Properties: map[string]*jsonschema.Schema{},
		},
	}, s.handleInfo)

	s.server.AddTool(&mcp.Tool{
		Name:        "reduce",
		Description: "Simplify C# code without changing its meaning. Pass source text or a project file path; restrict the rewrite with spans or lines, otherwise the whole text is reduced.",
		InputSchema: &jsonschema.Schema{
			Type: "object",
			Properties: map[string]*jsonschema.Schema{
				"source": {
					Type:        "string",
					Description: "C# source text to reduce",
				},
				"path": {
					Type:        "string",
					Description: "File to reduce, relative to the project root",
				},
				"spans": {
					Type:        "array",
					Items:       &jsonschema.Schema{Type: "string"},
					Description: `Character ranges to reduce: "start:length" or "start-end"`,
				},
				"lines": {
					Type:        "array",
					Items:       &jsonschema.Schema{Type: "string"},
					Description: `1-based inclusive line ranges: "12-20" or "12"`,
				},
				"all": {
					Type:        "boolean",
					Description: "Reduce the whole text (the default when no spans or lines are given)",
				},
				"write": {
					Type:        "boolean",
					Description: "Write the result back to path",
				},
				"reducers": {
					Type:        "array",
					Items:       &jsonschema.Schema{Type: "string"},
					Description: "Reducers to run, in order. Default: every configured reducer",
				},
				"serial": {
					Type:        "boolean",
					Description: "Process units of work one at a time",
				},
				"prefer_var": {
					Type:        "boolean",
					Description: "Replace explicit local types with var when the initializer has the same type",
				},
				"qualify_field_access": {
					Type:        "boolean",
					Description: "Keep this. on member access",
				},
				"prefer_simple_names": {
					Type:        "boolean",
					Description: "Shorten qualified names that bind to the same symbol",
				},
				"prefer_intrinsic_keywords": {
					Type:        "boolean",
					Description: "Use int, string and the other keywords for predefined types",
				},
				"remove_unnecessary_parens": {
					Type:        "boolean",
					Description: "Remove parentheses that do not change evaluation",
				},
				"extra": {
					Type:        "object",
					Description: "Options for reducers outside the built-in set",
				},
			},
		},
	}, s.handleReduce)

	s.server.AddTool(&mcp.Tool{
		Name:        "reducers",
		Description: "List reducers in the order they run and whether the configured options enable them.",
		InputSchema: &jsonschema.Schema{
			Type:       "object",
			Properties: map[string]*jsonschema.Schema{},
		},
	}, s.handleReducers)
}

// resolvePath maps a tool path argument to a file under the project root
func (s *Server) resolvePath(p string) (string, error) {
	root := s.cfg.Project.Root
	if !filepath.IsAbs(p) {
		p = filepath.Join(root, p)
	}
	p = filepath.Clean(p)
	rel, err := filepath.Rel(root, p)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%s is outside the project root %s", p, root)
	}
	return p, nil
}

// recoverFromPanic runs handler, turning errors and panics into error
// results
func (s *Server) recoverFromPanic(operation string, handler func() (*mcp.CallToolResult, error)) (result *mcp.CallToolResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			s.diagnosticLogger.Printf("PANIC RECOVERED in %s: %v", operation, r)
			s.diagnosticLogger.Printf("Stack trace: %s", debug.Stack())

			var m runtime.MemStats
			runtime.ReadMemStats(&m)
			s.diagnosticLogger.Printf("Memory stats - Alloc: %d KB, Sys: %d KB, NumGC: %d",
				m.Alloc/1024, m.Sys/1024, m.NumGC)

			s.countFailure()
			result, err = createErrorResponse(operation, fmt.Errorf("internal error: %v", r))
		}
	}()

	result, err = handler()
	if err != nil {
		s.diagnosticLogger.Printf("Error in %s: %v", operation, err)
		s.countFailure()
		return createSmartErrorResponse(operation, err, map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
		})
	}
	return result, nil
}

func (s *Server) countFailure() {
	s.stats.mu.Lock()
	s.stats.Failures++
	s.stats.mu.Unlock()
}

// Start serves the tools over stdio until ctx is done or the client
// disconnects
func (s *Server) Start(ctx context.Context) error {
	s.diagnosticLogger.Printf("Starting MCP server with stdio transport")
	return s.server.Run(ctx, &mcp.StdioTransport{})
}

// Shutdown flushes the diagnostic log
func (s *Server) Shutdown(ctx context.Context) error {
	s.stats.mu.Lock()
	s.diagnosticLogger.Printf("Shutting down MCP server: %d requests, %d changed, %d written, %d failed",
		s.stats.Requests, s.stats.Changed, s.stats.Written, s.stats.Failures)
	s.stats.mu.Unlock()
	cs := s.outcomes.Stats()
	s.diagnosticLogger.Printf("Outcome cache: %d entries, %d hits, %d misses", cs.Entries, cs.Hits, cs.Misses)
	return s.diagnosticLogger.Close()
}

// GetHandlerForTesting returns a handler function for testing purposes
func (s *Server) GetHandlerForTesting(toolName string) func(context.Context, *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	switch toolName {
	case "info":
		return s.handleInfo
	case "reduce":
		return s.handleReduce
	case "reducers":
		return s.handleReducers
	default:
		return func(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return createErrorResponse("GetHandlerForTesting", fmt.Errorf("unknown tool: %s", toolName))
		}
	}
}
