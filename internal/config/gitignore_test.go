package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGitignoreGlob(t *testing.T) {
	tests := []struct {
		line string
		want string
	}{
		{"bin/", "**/bin/**"},
		{"*.user", "**/*.user"},
		{"/artifacts", "artifacts"},
		{"docs/generated/", "docs/generated/**"},
		{"**/TestResults/", "**/TestResults/**"},
		{"# comment", ""},
		{"!keep.cs", ""},
		{"", ""},
		{"   ", ""},
		{`\#file.cs`, "**/#file.cs"},
	}
	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			assert.Equal(t, tt.want, gitignoreGlob(tt.line))
		})
	}
}

func TestGitignorePatterns(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".gitignore"), []byte("bin/\n# build\n*.user\n!important.user\n"), 0o644))
	assert.Equal(t, []string{"**/bin/**", "**/*.user"}, GitignorePatterns(dir))
	assert.Nil(t, GitignorePatterns(t.TempDir()))
}

func TestMatches(t *testing.T) {
	cfg := Default("/src/shop")
	cfg.Exclude = append(cfg.Exclude, "artifacts", "**/*.user")

	tests := []struct {
		path string
		want bool
	}{
		{"Program.cs", true},
		{"/src/shop/Orders/Order.cs", true},
		{"Orders/Order.g.cs", false},
		{"obj/Debug/AssemblyInfo.cs", false},
		{"Orders/obj/x.cs", false},
		{".vs/cache.cs", false},
		{"artifacts/out.cs", false},
		{"README.md", false},
		{"Shop.csproj.user", false},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			assert.Equal(t, tt.want, cfg.Matches(tt.path))
		})
	}
}

func TestFiles(t *testing.T) {
	root := t.TempDir()
	write := func(rel string) {
		p := filepath.Join(root, rel)
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, []byte("class C { }\n"), 0o644))
	}
	write("Program.cs")
	write("Orders/Order.cs")
	write("Orders/notes.txt")
	write("obj/Debug/Gen.cs")

	cfg := Default(root)

	files, err := cfg.Files(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(root, "Orders", "Order.cs"),
		filepath.Join(root, "Program.cs"),
	}, files)

	t.Run("explicit files are taken as given", func(t *testing.T) {
		notes := filepath.Join(root, "Orders", "notes.txt")
		files, err := cfg.Files(context.Background(), []string{notes})
		require.NoError(t, err)
		assert.Equal(t, []string{notes}, files)
	})

	t.Run("globs", func(t *testing.T) {
		files, err := cfg.Files(context.Background(), []string{filepath.Join(root, "Orders", "*.cs")})
		require.NoError(t, err)
		assert.Equal(t, []string{filepath.Join(root, "Orders", "Order.cs")}, files)
	})

	t.Run("missing", func(t *testing.T) {
		_, err := cfg.Files(context.Background(), []string{filepath.Join(root, "Nope.cs")})
		assert.Error(t, err)
	})
}

func TestBuildArtifactDetector(t *testing.T) {
	root := t.TempDir()
	proj := `<Project Sdk="Microsoft.NET.Sdk">
  <PropertyGroup>
    <OutputPath>..\artifacts\$(Configuration)</OutputPath>
    <BaseIntermediateOutputPath>build\obj\</BaseIntermediateOutputPath>
  </PropertyGroup>
</Project>
`
	require.NoError(t, os.MkdirAll(filepath.Join(root, "src", "Shop"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "src", "Shop", "Shop.csproj"), []byte(proj), 0o644))

	got := NewBuildArtifactDetector(root).DetectOutputDirectories()
	assert.ElementsMatch(t, []string{"src/artifacts/**", "src/Shop/build/obj/**"}, got)

	cfg := Default(root)
	cfg.EnrichExclusionsWithBuildArtifacts()
	assert.False(t, cfg.Matches(filepath.Join(root, "src", "artifacts", "Debug", "x.cs")))
}

func TestDeduplicatePatterns(t *testing.T) {
	assert.Equal(t, []string{"a", "b"}, DeduplicatePatterns([]string{"a", "b", "a"}))
}
