package config

import (
	"bufio"
	"os"
	"path/filepath"
	"strings"
)

// GitignorePatterns reads root/.gitignore and returns its patterns as
// exclusion globs. Negations are skipped since exclusions cannot
// re-include.
func GitignorePatterns(root string) []string {
	f, err := os.Open(filepath.Join(root, ".gitignore"))
	if err != nil {
		return nil
	}
	defer f.Close()

	var out []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		if p := gitignoreGlob(scanner.Text()); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// gitignoreGlob converts one .gitignore line
func gitignoreGlob(line string) string {
	line = strings.TrimRight(line, " \t\r")
	if line == "" || strings.HasPrefix(line, "#") || strings.HasPrefix(line, "!") {
		return ""
	}
	line = strings.TrimPrefix(line, `\`)

	dir := strings.HasSuffix(line, "/")
	line = strings.TrimSuffix(line, "/")
	// a slash at the start or in the middle anchors the pattern to the root
	anchored := strings.Contains(line, "/")
	line = strings.TrimPrefix(line, "/")
	if line == "" {
		return ""
	}

	glob := line
	if !anchored && !strings.HasPrefix(glob, "**/") {
		glob = "**/" + glob
	}
	if dir {
		return glob + "/**"
	}
	return glob
}
