package debug

import (
	"bytes"
	"os"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// enable turns debug output on into a buffer and restores the package state
// when the test ends.
func enable(t *testing.T) *bytes.Buffer {
	t.Helper()
	prevDebug, prevMode := EnableDebug, MCPMode
	mu.Lock()
	prevOut, prevFile := output, logFile
	mu.Unlock()
	t.Cleanup(func() {
		EnableDebug, MCPMode = prevDebug, prevMode
		mu.Lock()
		output, logFile = prevOut, prevFile
		mu.Unlock()
	})

	t.Setenv("DEBUG", "")
	EnableDebug = "true"
	MCPMode = false
	var buf bytes.Buffer
	SetDebugOutput(&buf)
	return &buf
}

func TestIsDebugEnabled(t *testing.T) {
	enable(t)

	EnableDebug = "false"
	assert.False(t, IsDebugEnabled())

	t.Setenv("DEBUG", "1")
	assert.True(t, IsDebugEnabled())

	t.Setenv("DEBUG", "")
	EnableDebug = "true"
	assert.True(t, IsDebugEnabled())

	SetMCPMode(true)
	assert.False(t, IsDebugEnabled(), "stdio belongs to the protocol")
}

func TestComponentLoggers(t *testing.T) {
	tests := []struct {
		log    func(string, ...any)
		prefix string
	}{
		{LogReduce, "[DEBUG:REDUCE] "},
		{LogSpeculate, "[DEBUG:SPECULATE] "},
		{LogSweep, "[DEBUG:SWEEP] "},
		{LogParse, "[DEBUG:PARSE] "},
		{LogMCP, "[DEBUG:MCP] "},
		{LogCLI, "[DEBUG:CLI] "},
	}
	for _, tt := range tests {
		t.Run(tt.prefix, func(t *testing.T) {
			buf := enable(t)
			tt.log("name-reducer abandoned on %s\n", "qualified_name")
			assert.Equal(t, tt.prefix+"name-reducer abandoned on qualified_name\n", buf.String())
		})
	}
}

func TestLogSilentInMCPMode(t *testing.T) {
	buf := enable(t)
	SetMCPMode(true)

	LogReduce("overlapping unit at %s ignored\n", "member_access_expression")
	_ = Fatal("config: %v\n", "bad")
	assert.Empty(t, buf.String())
}

func TestLogWithoutWriter(t *testing.T) {
	enable(t)
	SetDebugOutput(nil)

	assert.NotPanics(t, func() {
		LogSweep("removed %d imports\n", 2)
		Log(Speculate, "anchor %s\n", "block")
	})
}

func TestFatal(t *testing.T) {
	buf := enable(t)

	err := Fatal("failed to load config: %v\n", "missing file")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to load config: missing file")
	assert.Equal(t, "[FATAL] failed to load config: missing file\n", buf.String())
}

func TestConcurrentLogging(t *testing.T) {
	enable(t)
	var sink syncBuffer
	SetDebugOutput(&sink)

	var wg sync.WaitGroup
	for i := range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			LogReduce("unit %d\n", i)
			LogSpeculate("unit %d\n", i)
		}()
	}
	wg.Wait()
	assert.Equal(t, 16, bytes.Count(sink.Bytes(), []byte("\n")))
}

func TestInitDebugLogFile(t *testing.T) {
	enable(t)

	path, err := InitDebugLogFile()
	require.NoError(t, err)
	t.Cleanup(func() { os.Remove(path) })

	LogSweep("kept using System.Linq;\n")
	require.NoError(t, CloseDebugLog())
	require.NoError(t, CloseDebugLog(), "closing twice is harmless")

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "[DEBUG:SWEEP] kept using System.Linq;\n", string(content))
}

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) Bytes() []byte {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Bytes()
}
