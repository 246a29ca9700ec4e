package config

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// Matches reports whether path, absolute or relative to the project
// root, is selected by the include globs and not excluded. A file is
// excluded when it or any directory above it matches an exclusion.
func (c *Config) Matches(path string) bool {
	rel := c.relative(path)
	if rel == "" {
		return false
	}
	for dir := rel; dir != "." && dir != ""; dir = parentDir(dir) {
		if matchAny(c.Exclude, dir) {
			return false
		}
	}
	if len(c.Include) == 0 {
		return true
	}
	return matchAny(c.Include, rel)
}

func (c *Config) relative(path string) string {
	if filepath.IsAbs(path) && c.Project.Root != "" {
		rel, err := filepath.Rel(c.Project.Root, path)
		if err != nil || strings.HasPrefix(rel, "..") {
			return strings.TrimPrefix(filepath.ToSlash(filepath.Clean(path)), "/")
		}
		path = rel
	}
	return filepath.ToSlash(filepath.Clean(path))
}

func parentDir(p string) string {
	if i := strings.LastIndexByte(p, '/'); i >= 0 {
		return p[:i]
	}
	return ""
}

func matchAny(patterns []string, path string) bool {
	for _, p := range patterns {
		if ok, _ := doublestar.Match(p, path); ok {
			return true
		}
		// "**/x/**" also names the directory x itself
		if strings.HasSuffix(p, "/**") {
			if ok, _ := doublestar.Match(strings.TrimSuffix(p, "/**"), path); ok {
				return true
			}
		}
	}
	return false
}

// Files expands args into the source files to reduce. Files are taken
// as given, directories are walked through the include and exclude
// globs, and anything else is treated as a glob. The result is sorted.
func (c *Config) Files(ctx context.Context, args []string) ([]string, error) {
	if len(args) == 0 {
		args = []string{c.Project.Root}
	}
	seen := make(map[string]bool)
	var out []string
	add := func(p string) {
		if !seen[p] {
			seen[p] = true
			out = append(out, p)
		}
	}

	for _, arg := range args {
		info, err := os.Stat(arg)
		switch {
		case err == nil && !info.IsDir():
			add(arg)
		case err == nil:
			err := filepath.WalkDir(arg, func(path string, d fs.DirEntry, err error) error {
				if err != nil {
					return err
				}
				if err := ctx.Err(); err != nil {
					return err
				}
				if d.IsDir() {
					if path != arg && !c.walkable(path) {
						return filepath.SkipDir
					}
					return nil
				}
				if c.Matches(absDir(path)) {
					add(path)
				}
				return nil
			})
			if err != nil {
				return nil, err
			}
		case doublestar.ValidatePattern(filepath.ToSlash(arg)):
			matches, err := doublestar.FilepathGlob(arg, doublestar.WithFilesOnly())
			if err != nil {
				return nil, fmt.Errorf("expanding %s: %w", arg, err)
			}
			if len(matches) == 0 {
				return nil, fmt.Errorf("%s: no such file", arg)
			}
			for _, m := range matches {
				add(m)
			}
		default:
			return nil, err
		}
	}
	sort.Strings(out)
	return out, nil
}

// walkable reports directories that are not excluded
func (c *Config) walkable(dir string) bool {
	rel := c.relative(absDir(dir))
	return rel == "." || !matchAny(c.Exclude, rel)
}
