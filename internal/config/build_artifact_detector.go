// Build artifact detection from MSBuild project files
// Parses *.csproj and Directory.Build.props to find custom output directories
package config

import (
	"encoding/xml"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// BuildArtifactDetector finds build output directories of .NET projects
type BuildArtifactDetector struct {
	projectRoot string
	maxDepth    int
}

// NewBuildArtifactDetector creates a new build artifact detector
func NewBuildArtifactDetector(projectRoot string) *BuildArtifactDetector {
	return &BuildArtifactDetector{projectRoot: projectRoot, maxDepth: 4}
}

// msbuildProject holds the output properties of a project file
type msbuildProject struct {
	PropertyGroups []struct {
		OutputPath                 string `xml:"OutputPath"`
		BaseOutputPath             string `xml:"BaseOutputPath"`
		BaseIntermediateOutputPath string `xml:"BaseIntermediateOutputPath"`
		IntermediateOutputPath     string `xml:"IntermediateOutputPath"`
	} `xml:"PropertyGroup"`
}

// DetectOutputDirectories returns exclusion globs for the output
// directories that project files configure away from bin/ and obj/
func (bad *BuildArtifactDetector) DetectOutputDirectories() []string {
	var patterns []string
	root := filepath.Clean(bad.projectRoot)
	_ = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() {
			if path != root && (strings.HasPrefix(d.Name(), ".") || strings.Count(strings.TrimPrefix(path, root), string(filepath.Separator)) > bad.maxDepth) {
				return filepath.SkipDir
			}
			return nil
		}
		name := d.Name()
		if !strings.HasSuffix(name, ".csproj") && name != "Directory.Build.props" {
			return nil
		}
		patterns = append(patterns, bad.outputsOf(root, path)...)
		return nil
	})
	return DeduplicatePatterns(patterns)
}

func (bad *BuildArtifactDetector) outputsOf(root, projectFile string) []string {
	data, err := os.ReadFile(projectFile)
	if err != nil {
		return nil
	}
	var proj msbuildProject
	if err := xml.Unmarshal(data, &proj); err != nil {
		return nil
	}
	dir := filepath.Dir(projectFile)
	var out []string
	for _, pg := range proj.PropertyGroups {
		for _, p := range []string{pg.OutputPath, pg.BaseOutputPath, pg.BaseIntermediateOutputPath, pg.IntermediateOutputPath} {
			if g := outputGlob(root, dir, p); g != "" {
				out = append(out, g)
			}
		}
	}
	return out
}

// outputGlob turns an MSBuild path into a glob relative to root. Paths
// with property references keep only their literal prefix.
func outputGlob(root, dir, p string) string {
	p = strings.ReplaceAll(strings.TrimSpace(p), `\`, "/")
	if i := strings.Index(p, "$("); i >= 0 {
		p = p[:i]
	}
	p = strings.Trim(p, "/")
	if p == "" || p == "." {
		return ""
	}
	abs := filepath.Join(dir, filepath.FromSlash(p))
	rel, err := filepath.Rel(root, abs)
	if err != nil || rel == "." || strings.HasPrefix(rel, "..") {
		return ""
	}
	return filepath.ToSlash(rel) + "/**"
}

// EnrichExclusionsWithBuildArtifacts adds the output directories that
// project files declare to the exclusions
func (c *Config) EnrichExclusionsWithBuildArtifacts() {
	if c.Project.Root == "" {
		return
	}
	if detected := NewBuildArtifactDetector(c.Project.Root).DetectOutputDirectories(); len(detected) > 0 {
		c.Exclude = DeduplicatePatterns(append(c.Exclude, detected...))
	}
}

// DeduplicatePatterns removes duplicate exclusion patterns
func DeduplicatePatterns(patterns []string) []string {
	seen := make(map[string]bool)
	result := make([]string, 0, len(patterns))

	for _, pattern := range patterns {
		if !seen[pattern] {
			seen[pattern] = true
			result = append(result, pattern)
		}
	}

	return result
}
