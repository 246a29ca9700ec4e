package mcp

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/standardbeagle/lcr/internal/config"
)

const orderSource = `using System;
using System.IO;

class Order
{
    System.Int32 count = System.Int32.MaxValue;
    System.String Name() { return (System.String.Empty); }
}
`

func newTestServer(t *testing.T) (*Server, string) {
	t.Helper()
	root := t.TempDir()
	s, err := newServer(config.Default(root), NoOpLogger)
	require.NoError(t, err)
	return s, root
}

func callTool(t *testing.T, s *Server, tool string, args interface{}) (*mcp.CallToolResult, map[string]interface{}) {
	t.Helper()
	raw, err := json.Marshal(args)
	require.NoError(t, err)
	result, err := s.GetHandlerForTesting(tool)(context.Background(), &mcp.CallToolRequest{
		Params: &mcp.CallToolParamsRaw{Arguments: raw},
	})
	require.NoError(t, err)
	require.NotNil(t, result)
	require.Len(t, result.Content, 1)

	text, ok := result.Content[0].(*mcp.TextContent)
	require.True(t, ok)
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(text.Text), &body))
	return result, body
}

func TestNewServer(t *testing.T) {
	s, root := newTestServer(t)
	assert.NotNil(t, s.server)
	assert.Equal(t, root, s.cfg.Project.Root)

	_, err := NewServer(nil)
	assert.Error(t, err)

	cfg := config.Default(root)
	cfg.Reducers = []string{"nmae"}
	_, err = newServer(cfg, NoOpLogger)
	assert.ErrorContains(t, err, "did you mean")
}

func TestHandleReduceSource(t *testing.T) {
	s, _ := newTestServer(t)

	result, body := callTool(t, s, "reduce", map[string]interface{}{"source": orderSource})
	assert.False(t, result.IsError)
	assert.Equal(t, true, body["changed"])

	reduced := body["reduced"].(string)
	assert.Contains(t, reduced, "int count = int.MaxValue;")
	assert.Contains(t, reduced, "string Name() { return string.Empty; }")
	assert.NotContains(t, reduced, "using System.IO;")

	stats := body["stats"].(map[string]interface{})
	assert.Equal(t, float64(2), stats["removed_imports"])
}

func TestHandleReduceReusesCachedOutcome(t *testing.T) {
	s, _ := newTestServer(t)

	_, first := callTool(t, s, "reduce", map[string]interface{}{"source": orderSource})
	assert.Nil(t, first["cached"])

	_, second := callTool(t, s, "reduce", map[string]interface{}{"source": orderSource})
	assert.Equal(t, true, second["cached"])
	assert.Equal(t, first["reduced"], second["reduced"])

	_, other := callTool(t, s, "reduce", map[string]interface{}{
		"source":     orderSource,
		"prefer_var": true,
	})
	assert.Nil(t, other["cached"], "different options miss the cache")

	_, info := callTool(t, s, "info", map[string]interface{}{})
	cacheStats := info["cache"].(map[string]interface{})
	assert.Equal(t, float64(1), cacheStats["hits"])
	assert.Equal(t, float64(2), cacheStats["entries"])
}

func TestHandleReduceOptionOverrides(t *testing.T) {
	s, _ := newTestServer(t)

	_, body := callTool(t, s, "reduce", map[string]interface{}{
		"source":                    orderSource,
		"prefer_intrinsic_keywords": false,
		"remove_unnecessary_parens": false,
	})
	reduced := body["reduced"].(string)
	assert.Contains(t, reduced, "Int32 count = Int32.MaxValue;")
	assert.Contains(t, reduced, "return (String.Empty);")
	assert.Contains(t, reduced, "using System;")
}

func TestHandleReduceReducerSelection(t *testing.T) {
	s, _ := newTestServer(t)

	_, body := callTool(t, s, "reduce", map[string]interface{}{
		"source":   orderSource,
		"reducers": []string{"parentheses"},
	})
	assert.Contains(t, body["reduced"].(string), "return System.String.Empty;")
	assert.Contains(t, body["reduced"].(string), "System.Int32 count")

	result, body := callTool(t, s, "reduce", map[string]interface{}{
		"source":   orderSource,
		"reducers": []string{"parenthesis"},
	})
	assert.True(t, result.IsError)
	assert.Contains(t, body["error"], `did you mean "parentheses"?`)
	assert.NotEmpty(t, body["suggestions"])
}

func TestHandleReduceLines(t *testing.T) {
	s, _ := newTestServer(t)

	_, body := callTool(t, s, "reduce", map[string]interface{}{
		"source": orderSource,
		"lines":  []string{"7"},
	})
	reduced := body["reduced"].(string)
	assert.Contains(t, reduced, "System.Int32 count = System.Int32.MaxValue;")
	assert.Contains(t, reduced, "string Name() { return string.Empty; }")
}

func TestHandleReduceUnknownFieldsWarn(t *testing.T) {
	s, _ := newTestServer(t)

	result, body := callTool(t, s, "reduce", map[string]interface{}{
		"source":  "class C { }",
		"verbose": true,
	})
	assert.False(t, result.IsError)
	assert.Equal(t, false, body["changed"])
	warnings := body["warnings"].([]interface{})
	require.Len(t, warnings, 1)
	assert.Equal(t, "verbose", warnings[0].(map[string]interface{})["name"])
}

func TestHandleReduceErrors(t *testing.T) {
	s, _ := newTestServer(t)

	tests := []struct {
		name string
		args map[string]interface{}
		want string
	}{
		{"no input", map[string]interface{}{}, "one of source or path"},
		{"both inputs", map[string]interface{}{"source": "class C {}", "path": "C.cs"}, "mutually exclusive"},
		{"write without path", map[string]interface{}{"source": "class C {}", "write": true}, "write needs a path"},
		{"bad span", map[string]interface{}{"source": "class C {}", "spans": []string{"x"}}, "invalid span"},
		{"span past end", map[string]interface{}{"source": "class C {}", "spans": []string{"5:100"}}, "outside"},
		{"escaping root", map[string]interface{}{"path": "../Other.cs"}, "outside the project root"},
		{"missing file", map[string]interface{}{"path": "Missing.cs"}, "Missing.cs"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, body := callTool(t, s, "reduce", tt.args)
			assert.True(t, result.IsError)
			assert.Contains(t, body["error"], tt.want)
			assert.Equal(t, "reduce", body["operation"])
		})
	}
}

func TestHandleReducePath(t *testing.T) {
	s, root := newTestServer(t)
	path := filepath.Join(root, "Orders", "Order.cs")
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(orderSource), 0o644))

	_, body := callTool(t, s, "reduce", map[string]interface{}{"path": "Orders/Order.cs"})
	assert.Equal(t, path, body["path"])
	assert.Nil(t, body["written"])
	data, _ := os.ReadFile(path)
	assert.Equal(t, orderSource, string(data))

	_, body = callTool(t, s, "reduce", map[string]interface{}{"path": "Orders/Order.cs", "write": true})
	assert.Equal(t, true, body["written"])
	data, _ = os.ReadFile(path)
	assert.Equal(t, body["reduced"], string(data))
	assert.Equal(t, 1, s.stats.Written)
}

func TestHandleReducers(t *testing.T) {
	s, _ := newTestServer(t)

	_, body := callTool(t, s, "reducers", map[string]interface{}{})
	list := body["reducers"].([]interface{})
	require.Len(t, list, 5)

	byName := map[string]map[string]interface{}{}
	var order []string
	for _, item := range list {
		r := item.(map[string]interface{})
		name := r["name"].(string)
		byName[name] = r
		order = append(order, name)
	}
	assert.Equal(t, []string{"var", "name", "parentheses", "this-qualifier", "escaping"}, order)
	assert.Equal(t, false, byName["var"]["applicable"], "prefer_var is off by default")
	assert.Equal(t, true, byName["name"]["applicable"])
	assert.Equal(t, true, byName["escaping"]["selected"])
}

func TestHandleInfo(t *testing.T) {
	s, root := newTestServer(t)
	_, body := callTool(t, s, "info", map[string]interface{}{})
	assert.Equal(t, "lcr", body["name"])
	assert.Equal(t, root, body["root"])
	assert.Contains(t, body["tools"], "reduce")
}

func TestRecoverFromPanic(t *testing.T) {
	s, _ := newTestServer(t)
	result, err := s.recoverFromPanic("reduce", func() (*mcp.CallToolResult, error) {
		panic("boom")
	})
	require.NoError(t, err)
	assert.True(t, result.IsError)
	assert.Equal(t, 1, s.stats.Failures)
}

func TestUnknownTool(t *testing.T) {
	s, _ := newTestServer(t)
	result, body := callTool(t, s, "search", map[string]interface{}{})
	assert.True(t, result.IsError)
	assert.Contains(t, body["error"], "unknown tool: search")
}
