package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/standardbeagle/lcr/internal/debug"
	"github.com/standardbeagle/lcr/internal/mcp"
	"github.com/standardbeagle/lcr/internal/pipeline"
	"github.com/standardbeagle/lcr/internal/watch"
)

func watchCommand(c *cli.Context) error {
	if dir := c.Args().First(); dir != "" {
		if err := c.Set("root", dir); err != nil {
			return err
		}
	}
	cfg, err := loadConfigWithOverrides(c)
	if err != nil {
		return err
	}
	runner, err := pipeline.New(cfg)
	if err != nil {
		return err
	}

	dryRun := c.Bool("dry-run")
	w, err := watch.New(cfg, runner, !dryRun)
	if err != nil {
		return err
	}
	w.OnOutcome = func(out *pipeline.Outcome) {
		switch {
		case out.Written:
			fmt.Fprintf(c.App.Writer, "reduced %s\n", out.Path)
		case out.Changed:
			fmt.Fprintf(c.App.Writer, "would reduce %s\n", out.Path)
		}
	}
	w.OnError = func(path string, err error) {
		fmt.Fprintf(c.App.ErrWriter, "%s: %v\n", path, err)
	}

	ctx, stop := signal.NotifyContext(c.Context, syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	fmt.Fprintf(c.App.ErrWriter, "watching %s (ctrl-c to stop)\n", cfg.Project.Root)
	return w.Run(ctx)
}

func mcpCommand(c *cli.Context) error {
	// stdio belongs to the protocol
	debug.SetMCPMode(true)

	cfg, err := loadConfigWithOverrides(c)
	if err != nil {
		return debug.Fatal("failed to load config: %v\n", err)
	}
	server, err := mcp.NewServer(cfg)
	if err != nil {
		return debug.Fatal("failed to create MCP server: %v\n", err)
	}

	ctx, cancel := context.WithCancel(c.Context)
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	errChan := make(chan error, 1)
	go func() {
		debug.LogMCP("Starting MCP server with stdio transport...\n")
		errChan <- server.Start(ctx)
	}()

	shutdown := func() {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		server.Shutdown(shutdownCtx)
	}

	select {
	case err := <-errChan:
		shutdown()
		if err != nil {
			return debug.Fatal("MCP server error: %v\n", err)
		}
		return nil
	case sig := <-sigChan:
		debug.LogMCP("Received signal %v, shutting down gracefully...\n", sig)
		cancel()

		timer := time.NewTimer(2 * time.Second)
		defer timer.Stop()
		select {
		case err := <-errChan:
			shutdown()
			return err
		case <-timer.C:
			// break the stdio transport loop
			os.Stdin.Close()
			shutdown()
			return nil
		}
	}
}

// isMCPMode reports whether lcr was started by an MCP client without the
// mcp subcommand
func isMCPMode() bool {
	if v := os.Getenv("LCR_MCP_MODE"); v == "1" || v == "true" {
		return true
	}
	stat, err := os.Stdin.Stat()
	if err == nil && (stat.Mode()&os.ModeCharDevice) == 0 {
		return true
	}
	if len(os.Args) > 0 && strings.Contains(strings.ToLower(filepath.Base(os.Args[0])), "mcp") {
		return true
	}
	return false
}
