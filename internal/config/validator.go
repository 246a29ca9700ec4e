package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	lcrerrors "github.com/standardbeagle/lcr/internal/errors"
	"github.com/standardbeagle/lcr/internal/reducers"
)

// Validator validates configuration and sets smart defaults
type Validator struct {
	Registry *reducers.Registry
}

// NewValidator creates a validator that knows the built-in reducers
func NewValidator() *Validator {
	return &Validator{Registry: reducers.Builtin()}
}

// ValidateAndSetDefaults validates configuration and applies defaults.
// All problems are reported together.
func (v *Validator) ValidateAndSetDefaults(cfg *Config) error {
	var errs []error

	if cfg.Project.Root == "" {
		errs = append(errs, lcrerrors.NewConfigError("project.root", "", errors.New("project root cannot be empty")))
	}
	errs = append(errs, v.validateReducers(cfg.Reducers)...)
	if err := v.validatePerformanceConfig(&cfg.Performance); err != nil {
		errs = append(errs, lcrerrors.NewConfigError("performance", "", err))
	}
	errs = append(errs, validateGlobs("include", cfg.Include)...)
	errs = append(errs, validateGlobs("exclude", cfg.Exclude)...)
	for i, e := range cfg.Catalog {
		if err := validateCatalogEntry(e); err != nil {
			errs = append(errs, lcrerrors.NewConfigError(fmt.Sprintf("catalog[%d]", i), e.Type, err))
		}
	}

	if err := lcrerrors.NewMultiError(errs).ErrorOrNil(); err != nil {
		return err
	}
	v.setSmartDefaults(cfg)
	return nil
}

// validateReducers rejects unknown reducer names, suggesting the closest
// known one
func (v *Validator) validateReducers(names []string) []error {
	var errs []error
	for _, name := range names {
		if _, ok := v.Registry.Get(name); ok {
			continue
		}
		err := lcrerrors.NewConfigError("reducers", name, errors.New("unknown reducer"))
		if s := v.Registry.Suggest(name); s != "" {
			err = err.WithHint(fmt.Sprintf("did you mean %q?", s))
		} else {
			err = err.WithHint("known reducers: " + strings.Join(v.Registry.Names(), ", "))
		}
		errs = append(errs, err)
	}
	return errs
}

func (v *Validator) validatePerformanceConfig(perf *Performance) error {
	if perf.MaxIterations < 0 {
		return fmt.Errorf("MaxIterations cannot be negative, got %d", perf.MaxIterations)
	}
	if perf.MaxParallel < 0 {
		return fmt.Errorf("MaxParallel cannot be negative, got %d", perf.MaxParallel)
	}
	if perf.DebounceMs < 0 {
		return fmt.Errorf("DebounceMs cannot be negative, got %d", perf.DebounceMs)
	}
	return nil
}

func validateGlobs(field string, globs []string) []error {
	var errs []error
	for _, g := range globs {
		if !doublestar.ValidatePattern(g) {
			errs = append(errs, lcrerrors.NewConfigError(field, g, errors.New("invalid glob")))
		}
	}
	return errs
}

func validateCatalogEntry(e CatalogEntry) error {
	switch e.Kind {
	case "namespace", "type":
		if e.Type == "" {
			return errors.New("missing name")
		}
	case "field", "property", "method":
		if e.Type == "" || e.Name == "" {
			return fmt.Errorf("%s needs a declaring type and a name", e.Kind)
		}
		if e.Returns == "" {
			return fmt.Errorf("%s %s.%s has no type", e.Kind, e.Type, e.Name)
		}
	default:
		return fmt.Errorf("unknown catalog entry kind %q", e.Kind)
	}
	return nil
}

// setSmartDefaults fills in values left at zero
func (v *Validator) setSmartDefaults(cfg *Config) {
	if cfg.Version == 0 {
		cfg.Version = 1
	}
	if cfg.Performance.DebounceMs == 0 {
		cfg.Performance.DebounceMs = 300
	}
}

// ValidateConfig is a convenience function for quick validation
func ValidateConfig(cfg *Config) error {
	return NewValidator().ValidateAndSetDefaults(cfg)
}
