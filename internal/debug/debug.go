// Package debug writes optional diagnostics from the reduction pipeline.
// Nothing is written unless debug mode is on and a writer is configured, and
// nothing is ever written while serving MCP over stdio.
package debug

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// EnableDebug can be set at build time:
// go build -ldflags "-X github.com/standardbeagle/lcr/internal/debug.EnableDebug=true"
var EnableDebug = "false"

// MCPMode is set by the serve command; stdout belongs to the protocol then.
var MCPMode = false

// Component names the part of the pipeline a line came from.
type Component string

const (
	Parse     Component = "PARSE"
	Reduce    Component = "REDUCE"
	Speculate Component = "SPECULATE"
	Sweep     Component = "SWEEP"
	MCP       Component = "MCP"
	CLI       Component = "CLI"
)

var (
	mu      sync.Mutex
	output  io.Writer
	logFile *os.File
)

func SetMCPMode(enabled bool) {
	MCPMode = enabled
}

// SetDebugOutput replaces the writer. nil disables output.
func SetDebugOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	output = w
}

// InitDebugLogFile sends output to a timestamped file under the temp dir and
// returns its path. CloseDebugLog releases it.
func InitDebugLogFile() (string, error) {
	mu.Lock()
	defer mu.Unlock()

	dir := filepath.Join(os.TempDir(), "lcr-debug-logs")
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create debug log directory: %w", err)
	}
	path := filepath.Join(dir, fmt.Sprintf("reduce-%s.log", time.Now().Format("2006-01-02T150405")))
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return "", fmt.Errorf("failed to create debug log file: %w", err)
	}
	logFile = f
	output = f
	return path, nil
}

func CloseDebugLog() error {
	mu.Lock()
	defer mu.Unlock()
	if logFile == nil {
		return nil
	}
	err := logFile.Close()
	logFile = nil
	output = nil
	return err
}

// IsDebugEnabled reports whether diagnostics are on. Callers use it to skip
// building expensive arguments such as element text.
func IsDebugEnabled() bool {
	if MCPMode {
		return false
	}
	if EnableDebug == "true" {
		return true
	}
	v := os.Getenv("DEBUG")
	return v == "1" || v == "true"
}

func writer() io.Writer {
	mu.Lock()
	defer mu.Unlock()
	return output
}

// Log writes one line tagged with its component.
func Log(c Component, format string, args ...any) {
	if !IsDebugEnabled() {
		return
	}
	if w := writer(); w != nil {
		fmt.Fprintf(w, "[DEBUG:%s] "+format, append([]any{c}, args...)...)
	}
}

func LogReduce(format string, args ...any)    { Log(Reduce, format, args...) }
func LogSpeculate(format string, args ...any) { Log(Speculate, format, args...) }
func LogSweep(format string, args ...any)     { Log(Sweep, format, args...) }
func LogParse(format string, args ...any)     { Log(Parse, format, args...) }
func LogMCP(format string, args ...any)       { Log(MCP, format, args...) }
func LogCLI(format string, args ...any)       { Log(CLI, format, args...) }

// Fatal records an unrecoverable startup failure and returns it as an error.
// The caller decides how to exit.
func Fatal(format string, args ...any) error {
	msg := fmt.Sprintf(format, args...)
	if !MCPMode {
		if w := writer(); w != nil {
			fmt.Fprintf(w, "[FATAL] %s", msg)
		}
	}
	return fmt.Errorf("fatal error: %s", msg)
}
