package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/urfave/cli/v2"

	"github.com/standardbeagle/lcr/internal/config"
	"github.com/standardbeagle/lcr/internal/debug"
	"github.com/standardbeagle/lcr/internal/version"
)

// loadConfigWithOverrides loads the configuration of the --root directory
// and applies the global flag overrides
func loadConfigWithOverrides(c *cli.Context) (*config.Config, error) {
	root := c.String("root")
	if root == "" {
		root = "."
	}
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve root path %q: %w", root, err)
	}

	cfg, err := config.LoadWithRoot("", absRoot)
	if err != nil {
		return nil, fmt.Errorf("failed to load config from %s: %w", absRoot, err)
	}

	if includeFlags := c.StringSlice("include"); len(includeFlags) > 0 {
		cfg.Include = includeFlags
	}
	if excludeFlags := c.StringSlice("exclude"); len(excludeFlags) > 0 {
		cfg.Exclude = append(cfg.Exclude, excludeFlags...)
	}
	if err := config.ValidateConfig(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func newApp(stdout, stderr io.Writer) *cli.App {
	var cleanupFuncs []func()

	return &cli.App{
		Name:                   "lcr",
		Usage:                  "Simplify C# code without changing what it means",
		Version:                version.Version,
		UseShortOptionHandling: true,
		Writer:                 stdout,
		ErrWriter:              stderr,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "root",
				Aliases: []string{"r"},
				Usage:   "Project root; .lcr.kdl or lcr.toml there is loaded",
			},
			&cli.StringSliceFlag{
				Name:  "include",
				Usage: "Only reduce files matching these globs (replaces the configured ones)",
			},
			&cli.StringSliceFlag{
				Name:  "exclude",
				Usage: "Skip files matching these globs (added to the configured ones)",
			},
			&cli.BoolFlag{
				Name:  "debug",
				Usage: "Write component debug output to stderr",
			},
			&cli.BoolFlag{
				Name:  "debug-log",
				Usage: "Write component debug output to a file in the temp dir",
			},
		},
		Commands: []*cli.Command{
			reduceCommandSpec(),
			{
				Name:   "reducers",
				Usage:  "List reducers in the order they run",
				Action: reducersCommand,
			},
			{
				Name:      "watch",
				Usage:     "Reduce C# files under the root as they change",
				ArgsUsage: "[dir]",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "dry-run",
						Usage: "Report what would change without writing",
					},
				},
				Action: watchCommand,
			},
			{
				Name:   "mcp",
				Usage:  "Start MCP (Model Context Protocol) server with stdio transport",
				Action: mcpCommand,
			},
			{
				Name:  "config",
				Usage: "Configuration management",
				Subcommands: []*cli.Command{
					{
						Name:    "validate",
						Aliases: []string{"v"},
						Usage:   "Validate the configuration of the root",
						Action:  configValidateCommand,
					},
				},
			},
			{
				Name:  "version",
				Usage: "Show detailed version information",
				Action: func(c *cli.Context) error {
					fmt.Fprintf(c.App.Writer, "%s\nbuild %s\n", version.FullInfo(), version.BuildID())
					return nil
				},
			},
		},
		Before: func(c *cli.Context) error {
			if c.Bool("debug") {
				debug.EnableDebug = "true"
				debug.SetDebugOutput(c.App.ErrWriter)
			}
			if c.Bool("debug-log") {
				debug.EnableDebug = "true"
				path, err := debug.InitDebugLogFile()
				if err != nil {
					return err
				}
				fmt.Fprintf(c.App.ErrWriter, "debug log: %s\n", path)
				cleanupFuncs = append(cleanupFuncs, func() { debug.CloseDebugLog() })
			}
			return nil
		},
		After: func(c *cli.Context) error {
			for _, cleanup := range cleanupFuncs {
				cleanup()
			}
			return nil
		},
		Action: func(c *cli.Context) error {
			if isMCPMode() {
				debug.LogMCP("Auto-detected MCP mode, entering MCP server\n")
				return mcpCommand(c)
			}
			return cli.ShowAppHelp(c)
		},
	}
}

func main() {
	if err := newApp(os.Stdout, os.Stderr).Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Fatal error: %v\n", err)
		os.Exit(1)
	}
}

func configValidateCommand(c *cli.Context) error {
	cfg, err := loadConfigWithOverrides(c)
	if err != nil {
		fmt.Fprintf(c.App.Writer, "Configuration validation failed: %v\n", err)
		return err
	}

	var warnings []string
	if len(cfg.Include) == 0 {
		warnings = append(warnings, "no include patterns, every file under the root is reduced")
	}
	if cfg.Performance.MaxIterations > 0 && cfg.Performance.MaxIterations < 4 {
		warnings = append(warnings, "max_iterations below 4 may stop reducers before nested rewrites finish")
	}

	fmt.Fprintf(c.App.Writer, "Configuration is valid\n")
	fmt.Fprintf(c.App.Writer, "Root: %s\n", cfg.Project.Root)
	reducers := "all"
	if len(cfg.Reducers) > 0 {
		reducers = fmt.Sprint(cfg.Reducers)
	}
	fmt.Fprintf(c.App.Writer, "Reducers: %s, catalog entries: %d, exclusions: %d\n",
		reducers, len(cfg.Catalog), len(cfg.Exclude))
	for _, w := range warnings {
		fmt.Fprintf(c.App.Writer, "  warning: %s\n", w)
	}
	return nil
}
