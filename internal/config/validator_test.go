package config

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	lcrerrors "github.com/standardbeagle/lcr/internal/errors"
)

func TestValidateAndSetDefaults(t *testing.T) {
	cfg := &Config{
		Project:  Project{Root: "/src/shop"},
		Reducers: []string{"var", "name"},
	}

	require.NoError(t, NewValidator().ValidateAndSetDefaults(cfg))
	assert.Equal(t, 1, cfg.Version)
	assert.Equal(t, 300, cfg.Performance.DebounceMs)
}

func TestValidateRejects(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		field   string
		message string
	}{
		{
			name:    "misspelled reducer",
			mutate:  func(c *Config) { c.Reducers = []string{"parenthesis"} },
			field:   "reducers",
			message: `did you mean "parentheses"?`,
		},
		{
			name:    "unknown reducer",
			mutate:  func(c *Config) { c.Reducers = []string{"inline-methods"} },
			field:   "reducers",
			message: "known reducers: var, name",
		},
		{
			name:    "negative parallelism",
			mutate:  func(c *Config) { c.Performance.MaxParallel = -1 },
			field:   "performance",
			message: "MaxParallel cannot be negative",
		},
		{
			name:    "bad glob",
			mutate:  func(c *Config) { c.Exclude = []string{"src/[a"} },
			field:   "exclude",
			message: "invalid glob",
		},
		{
			name:    "untyped member",
			mutate:  func(c *Config) { c.Catalog = []CatalogEntry{{Kind: "field", Type: "Acme.W", Name: "X"}} },
			field:   "catalog[0]",
			message: "has no type",
		},
		{
			name:    "empty root",
			mutate:  func(c *Config) { c.Project.Root = "" },
			field:   "project.root",
			message: "cannot be empty",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default("/src/shop")
			tt.mutate(cfg)

			err := ValidateConfig(cfg)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.message)

			var ce *lcrerrors.ConfigError
			require.True(t, errors.As(err, &ce))
			assert.Equal(t, tt.field, ce.Field)
		})
	}
}

func TestValidateCollectsAllErrors(t *testing.T) {
	cfg := Default("/src/shop")
	cfg.Reducers = []string{"nmae", "vra"}
	cfg.Performance.MaxIterations = -2

	err := ValidateConfig(cfg)
	var multi *lcrerrors.MultiError
	require.True(t, errors.As(err, &multi))
	assert.Len(t, multi.Errors, 3)
}
