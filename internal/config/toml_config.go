package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"
)

// tomlFile is the layout of lcr.toml. Pointers tell unset keys from
// false or zero so the defaults survive.
type tomlFile struct {
	Version int `toml:"version"`
	Project struct {
		Root             string `toml:"root"`
		Name             string `toml:"name"`
		RespectGitignore *bool  `toml:"respect_gitignore"`
	} `toml:"project"`
	Options struct {
		PreferVar               *bool           `toml:"prefer_var"`
		QualifyFieldAccess      *bool           `toml:"qualify_field_access"`
		PreferSimpleNames       *bool           `toml:"prefer_simple_names"`
		PreferIntrinsicKeywords *bool           `toml:"prefer_intrinsic_keywords"`
		RemoveUnnecessaryParens *bool           `toml:"remove_unnecessary_parens"`
		Extra                   map[string]bool `toml:"extra"`
	} `toml:"options"`
	Reducers    []string `toml:"reducers"`
	Performance struct {
		Serial        *bool `toml:"serial"`
		MaxIterations *int  `toml:"max_iterations"`
		MaxParallel   *int  `toml:"max_parallel"`
		DebounceMs    *int  `toml:"debounce_ms"`
	} `toml:"performance"`
	Catalog []struct {
		Kind    string   `toml:"kind"`
		Type    string   `toml:"type"`
		Name    string   `toml:"name"`
		Returns string   `toml:"returns"`
		Static  bool     `toml:"static"`
		Params  []string `toml:"params"`
	} `toml:"catalog"`
	Include []string `toml:"include"`
	Exclude []string `toml:"exclude"`
}

// LoadTOML attempts to load configuration from the lcr.toml file in dir
func LoadTOML(projectRoot string) (*Config, error) {
	path := filepath.Join(projectRoot, TOMLFile)
	content, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", TOMLFile, err)
	}
	cfg, err := parseTOML(content)
	if err != nil {
		return nil, err
	}
	resolveRoot(cfg, projectRoot)
	return cfg, nil
}

func parseTOML(content []byte) (*Config, error) {
	var f tomlFile
	dec := toml.NewDecoder(bytes.NewReader(content))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&f); err != nil {
		return nil, fmt.Errorf("failed to parse TOML config: %w", err)
	}

	cfg := Default("")
	if f.Version != 0 {
		cfg.Version = f.Version
	}
	cfg.Project.Root = f.Project.Root
	cfg.Project.Name = f.Project.Name
	setBool(&cfg.Project.RespectGitignore, f.Project.RespectGitignore)

	setBool(&cfg.Options.PreferVar, f.Options.PreferVar)
	setBool(&cfg.Options.QualifyFieldAccess, f.Options.QualifyFieldAccess)
	setBool(&cfg.Options.PreferSimpleNames, f.Options.PreferSimpleNames)
	setBool(&cfg.Options.PreferIntrinsicKeywords, f.Options.PreferIntrinsicKeywords)
	setBool(&cfg.Options.RemoveUnnecessaryParens, f.Options.RemoveUnnecessaryParens)
	cfg.Options.Extra = f.Options.Extra

	cfg.Reducers = f.Reducers

	setBool(&cfg.Performance.Serial, f.Performance.Serial)
	setInt(&cfg.Performance.MaxIterations, f.Performance.MaxIterations)
	setInt(&cfg.Performance.MaxParallel, f.Performance.MaxParallel)
	setInt(&cfg.Performance.DebounceMs, f.Performance.DebounceMs)

	for _, c := range f.Catalog {
		cfg.Catalog = append(cfg.Catalog, CatalogEntry{
			Kind:    c.Kind,
			Type:    c.Type,
			Name:    c.Name,
			Returns: c.Returns,
			Static:  c.Static,
			Params:  c.Params,
		})
	}
	if len(f.Include) > 0 {
		cfg.Include = f.Include
	}
	cfg.Exclude = append(cfg.Exclude, f.Exclude...)
	return cfg, nil
}

func setBool(dst *bool, v *bool) {
	if v != nil {
		*dst = *v
	}
}

func setInt(dst *int, v *int) {
	if v != nil {
		*dst = *v
	}
}
