package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/standardbeagle/lcr/internal/config"
	"github.com/standardbeagle/lcr/internal/debug"
	lcrerrors "github.com/standardbeagle/lcr/internal/errors"
	"github.com/standardbeagle/lcr/internal/pipeline"
	"github.com/standardbeagle/lcr/internal/reducers"
)

func reduceCommandSpec() *cli.Command {
	return &cli.Command{
		Name:      "reduce",
		Aliases:   []string{"r"},
		Usage:     "Reduce C# files, globs or directories (- reads stdin)",
		ArgsUsage: "[files|globs|dirs...]",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:    "all",
				Aliases: []string{"a"},
				Usage:   "Reduce whole files (the default without --span or --lines)",
			},
			&cli.StringSliceFlag{
				Name:    "span",
				Aliases: []string{"s"},
				Usage:   "Reduce only a character range: start:length or start-end",
			},
			&cli.StringSliceFlag{
				Name:    "lines",
				Aliases: []string{"l"},
				Usage:   "Reduce only 1-based lines: a-b or a",
			},
			&cli.BoolFlag{
				Name:    "write",
				Aliases: []string{"w"},
				Usage:   "Write results back instead of printing them",
			},
			&cli.BoolFlag{
				Name:  "check",
				Usage: "Exit with an error when any file would change",
			},
			&cli.StringSliceFlag{
				Name:  "reducers",
				Usage: "Reducers to run, in order (default: configured or all)",
			},
			&cli.BoolFlag{
				Name:  "serial",
				Usage: "Process units of work one at a time",
			},
			&cli.BoolFlag{
				Name:    "json",
				Aliases: []string{"j"},
				Usage:   "Print outcomes and statistics as JSON",
			},
			&cli.BoolFlag{
				Name:  "prefer-var",
				Usage: "Replace explicit local types with var",
			},
			&cli.BoolFlag{
				Name:  "qualify-field-access",
				Usage: "Keep this. on member access",
			},
			&cli.BoolFlag{
				Name:  "no-simple-names",
				Usage: "Keep qualified names",
			},
			&cli.BoolFlag{
				Name:  "no-keywords",
				Usage: "Keep framework names for predefined types",
			},
			&cli.BoolFlag{
				Name:  "no-parens",
				Usage: "Keep redundant parentheses",
			},
		},
		Action: reduceCommand,
	}
}

// applyReduceFlags overlays the reduce command flags on cfg
func applyReduceFlags(c *cli.Context, cfg *config.Config) {
	if names := c.StringSlice("reducers"); len(names) > 0 {
		cfg.Reducers = splitNames(names)
	}
	if c.Bool("serial") {
		cfg.Performance.Serial = true
	}
	if c.Bool("prefer-var") {
		cfg.Options.PreferVar = true
	}
	if c.Bool("qualify-field-access") {
		cfg.Options.QualifyFieldAccess = true
	}
	if c.Bool("no-simple-names") {
		cfg.Options.PreferSimpleNames = false
	}
	if c.Bool("no-keywords") {
		cfg.Options.PreferIntrinsicKeywords = false
	}
	if c.Bool("no-parens") {
		cfg.Options.RemoveUnnecessaryParens = false
	}
}

// splitNames accepts both repeated flags and comma separated lists
func splitNames(values []string) []string {
	var out []string
	for _, v := range values {
		for _, name := range strings.Split(v, ",") {
			if name = strings.TrimSpace(name); name != "" {
				out = append(out, name)
			}
		}
	}
	return out
}

func selectionFromFlags(c *cli.Context) (pipeline.Selection, error) {
	sel := pipeline.Selection{All: c.Bool("all")}
	for _, s := range c.StringSlice("span") {
		span, err := pipeline.ParseSpan(s)
		if err != nil {
			return sel, err
		}
		sel.Spans = append(sel.Spans, span)
	}
	for _, l := range c.StringSlice("lines") {
		lr, err := pipeline.ParseLines(l)
		if err != nil {
			return sel, err
		}
		sel.Lines = append(sel.Lines, lr)
	}
	if len(sel.Spans) == 0 && len(sel.Lines) == 0 {
		sel.All = true
	}
	return sel, nil
}

func reduceCommand(c *cli.Context) error {
	cfg, err := loadConfigWithOverrides(c)
	if err != nil {
		return err
	}
	applyReduceFlags(c, cfg)

	runner, err := pipeline.New(cfg)
	if err != nil {
		return err
	}
	sel, err := selectionFromFlags(c)
	if err != nil {
		return err
	}
	write := c.Bool("write")

	var outcomes []*pipeline.Outcome
	var failures []error

	args := c.Args().Slice()
	if len(args) == 1 && args[0] == "-" {
		if write {
			return fmt.Errorf("--write cannot be used with stdin")
		}
		src, err := io.ReadAll(c.App.Reader)
		if err != nil {
			return err
		}
		out, err := runner.Reduce(c.Context, "stdin.cs", src, sel)
		if err != nil {
			return err
		}
		outcomes = append(outcomes, out)
	} else {
		files, err := cfg.Files(c.Context, args)
		if err != nil {
			return err
		}
		if len(files) == 0 {
			return fmt.Errorf("no C# files found under %s", cfg.Project.Root)
		}
		if len(files) > 1 && (len(sel.Spans) > 0 || len(sel.Lines) > 0) {
			return fmt.Errorf("--span and --lines apply to a single file, got %d", len(files))
		}
		for _, path := range files {
			out, err := runner.ReduceFile(c.Context, path, sel, write)
			if err != nil {
				if c.Context.Err() != nil {
					return err
				}
				failures = append(failures, err)
				fmt.Fprintf(c.App.ErrWriter, "%s: %v\n", path, err)
				continue
			}
			debug.LogCLI("%s: changed=%v %+v\n", path, out.Changed, out.Stats)
			outcomes = append(outcomes, out)
		}
	}

	if err := printOutcomes(c, outcomes, write); err != nil {
		return err
	}

	if c.Bool("check") {
		for _, out := range outcomes {
			if out.Changed && !out.Written {
				failures = append(failures, fmt.Errorf("%s is not reduced", out.Path))
			}
		}
	}
	return lcrerrors.NewMultiError(failures).ErrorOrNil()
}

func printOutcomes(c *cli.Context, outcomes []*pipeline.Outcome, write bool) error {
	w := c.App.Writer
	if c.Bool("json") {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(outcomes)
	}

	for _, out := range outcomes {
		switch {
		case write && out.Written:
			fmt.Fprintf(w, "reduced %s (%d node edits, %d token edits, %d usings removed)\n",
				out.Path, out.Stats.NodeEdits, out.Stats.TokenEdits, out.Stats.RemovedImports)
		case write || c.Bool("check"):
			if out.Changed {
				fmt.Fprintf(w, "would reduce %s\n", out.Path)
			}
		case len(outcomes) > 1:
			fmt.Fprintf(w, "// %s\n%s", out.Path, out.Reduced)
		default:
			fmt.Fprint(w, out.Reduced)
		}
	}
	return nil
}

func reducersCommand(c *cli.Context) error {
	cfg, err := loadConfigWithOverrides(c)
	if err != nil {
		return err
	}
	selected := make(map[string]bool)
	for _, name := range cfg.Reducers {
		selected[name] = true
	}
	opts := cfg.ReduceOptions()

	for i, r := range reducers.Builtin().All() {
		state := "applicable"
		switch {
		case len(selected) > 0 && !selected[r.Name()]:
			state = "not selected"
		case !r.IsApplicable(opts):
			state = "disabled by options"
		}
		fmt.Fprintf(c.App.Writer, "%d. %-16s %s\n", i+1, r.Name(), state)
	}
	return nil
}
