package config

import (
	"os"
	"path/filepath"

	"github.com/standardbeagle/lcr/internal/reduce"
	"github.com/standardbeagle/lcr/internal/reducers"
	"github.com/standardbeagle/lcr/internal/semantic"
)

const (
	// KDLFile is the name of the KDL config file, both in the project and
	// in the home directory
	KDLFile = ".lcr.kdl"
	// TOMLFile is the name of the TOML config file
	TOMLFile = "lcr.toml"
)

type Config struct {
	Version     int
	Project     Project
	Options     Options
	Reducers    []string
	Performance Performance
	Catalog     []CatalogEntry
	Include     []string
	Exclude     []string
}

type Project struct {
	Root             string
	Name             string
	RespectGitignore bool // Add .gitignore patterns to the exclusions
}

// Options mirror the reduction options a reducer can consult
type Options struct {
	PreferVar               bool
	QualifyFieldAccess      bool
	PreferSimpleNames       bool
	PreferIntrinsicKeywords bool
	RemoveUnnecessaryParens bool
	Extra                   map[string]bool
}

type Performance struct {
	Serial        bool // Reduce units one after another
	MaxIterations int  // Rewriter passes per unit, 0 = engine default
	MaxParallel   int  // Concurrent units, 0 = GOMAXPROCS
	DebounceMs    int  // Debounce time for watch mode file events
}

// CatalogEntry adds a namespace, type or member to the binder's catalog
// of types not declared in the reduced source.
type CatalogEntry struct {
	Kind    string // namespace, type, field, property or method
	Type    string // full name of the namespace or type, or the declaring type of a member
	Name    string // member name
	Returns string // member type, return type for methods
	Static  bool
	Params  []string
}

func Load(path string) (*Config, error) {
	return LoadWithRoot(path, "")
}

// LoadWithRoot loads the global config from the home directory and the
// project config from rootDir and merges them, the project winning.
func LoadWithRoot(path string, rootDir string) (*Config, error) {
	searchDir := "."
	if rootDir != "" {
		searchDir = rootDir
	} else if path != "" {
		searchDir = path
	}

	var baseConfig *Config
	if homeDir, err := os.UserHomeDir(); err == nil {
		if abs, _ := filepath.Abs(homeDir); abs != "" && !sameDir(abs, searchDir) {
			if globalCfg, err := loadDir(homeDir); err == nil && globalCfg != nil {
				baseConfig = globalCfg
			}
		}
	}

	projectConfig, err := loadDir(searchDir)
	if err != nil {
		return nil, err
	}

	var cfg *Config
	switch {
	case baseConfig != nil && projectConfig != nil:
		cfg = mergeConfigs(baseConfig, projectConfig)
	case projectConfig != nil:
		cfg = projectConfig
	case baseConfig != nil:
		baseConfig.Project.Root = absDir(searchDir)
		cfg = baseConfig
	default:
		cfg = Default(absDir(searchDir))
	}

	if cfg.Project.RespectGitignore {
		cfg.Exclude = DeduplicatePatterns(append(cfg.Exclude, GitignorePatterns(cfg.Project.Root)...))
	}
	cfg.EnrichExclusionsWithBuildArtifacts()
	return cfg, nil
}

// loadDir reads the KDL config of dir, falling back to the TOML one
func loadDir(dir string) (*Config, error) {
	cfg, err := LoadKDL(dir)
	if err != nil || cfg != nil {
		return cfg, err
	}
	return LoadTOML(dir)
}

// Default returns the configuration used when no config file exists
func Default(root string) *Config {
	opts := reduce.DefaultOptions()
	return &Config{
		Version: 1,
		Project: Project{
			Root:             root,
			RespectGitignore: true,
		},
		Options: Options{
			PreferVar:               opts.PreferVar,
			QualifyFieldAccess:      opts.QualifyFieldAccess,
			PreferSimpleNames:       opts.PreferSimpleNames,
			PreferIntrinsicKeywords: opts.PreferIntrinsicKeywords,
			RemoveUnnecessaryParens: opts.RemoveUnnecessaryParens,
		},
		Performance: Performance{
			DebounceMs: 300,
		},
		Include: []string{"**/*.cs"},
		Exclude: []string{
			"**/.git/**",
			"**/.*/**",
			"**/bin/**",
			"**/obj/**",
			"**/*.g.cs",
			"**/*.Designer.cs",
			"**/*.generated.cs",
		},
	}
}

// mergeConfigs merges a base config with a project config. The project
// wins, but base exclusions and catalog entries are kept.
func mergeConfigs(base, project *Config) *Config {
	merged := *project

	if len(base.Exclude) > 0 {
		merged.Exclude = DeduplicatePatterns(append(append([]string(nil), base.Exclude...), project.Exclude...))
	}
	if len(project.Include) == 0 && len(base.Include) > 0 {
		merged.Include = base.Include
	}
	if len(project.Reducers) == 0 && len(base.Reducers) > 0 {
		merged.Reducers = base.Reducers
	}
	if len(base.Catalog) > 0 {
		merged.Catalog = append(append([]CatalogEntry(nil), base.Catalog...), project.Catalog...)
	}
	return &merged
}

// ReduceOptions converts the configured options for the engine
func (c *Config) ReduceOptions() reduce.Options {
	return reduce.Options{
		PreferVar:               c.Options.PreferVar,
		QualifyFieldAccess:      c.Options.QualifyFieldAccess,
		PreferSimpleNames:       c.Options.PreferSimpleNames,
		PreferIntrinsicKeywords: c.Options.PreferIntrinsicKeywords,
		RemoveUnnecessaryParens: c.Options.RemoveUnnecessaryParens,
		Extra:                   c.Options.Extra,
	}
}

// EngineConfig returns the engine settings from the performance section
func (c *Config) EngineConfig() reduce.Config {
	return reduce.Config{
		Serial:        c.Performance.Serial,
		MaxIterations: c.Performance.MaxIterations,
		MaxParallel:   c.Performance.MaxParallel,
	}
}

// SelectReducers returns the configured reducers in order, every
// built-in reducer when none are named.
func (c *Config) SelectReducers() ([]reduce.Reducer, error) {
	return reducers.Select(c.Reducers)
}

// NewCatalog returns the well-known catalog extended with the configured
// entries
func (c *Config) NewCatalog() *semantic.Catalog {
	cat := semantic.NewCatalog()
	for _, e := range c.Catalog {
		e.apply(cat)
	}
	return cat
}

func (e CatalogEntry) apply(cat *semantic.Catalog) {
	switch e.Kind {
	case "namespace":
		cat.AddNamespace(e.Type)
	case "type":
		cat.AddType(e.Type)
	case "field":
		cat.AddField(e.Type, e.Name, e.Returns, e.Static)
	case "property":
		cat.AddProperty(e.Type, e.Name, e.Returns, e.Static)
	case "method":
		cat.AddMethod(e.Type, e.Name, e.Returns, e.Static, e.Params...)
	}
}

func absDir(dir string) string {
	if abs, err := filepath.Abs(dir); err == nil {
		return abs
	}
	return dir
}

func sameDir(a, b string) bool {
	return filepath.Clean(a) == absDir(b)
}
