package smetana

import (
	"fmt"

	"github.com/go-logr/logr"
)

type Options struct {
	// MinGrowth is the growth rate an organism must reach in every
	// sub-problem that asks it to grow.
	MinGrowth float64 `mapstructure:"min_growth" yaml:"min_growth"`
	// MaxUptake caps the uptake of a single metabolite in minimal media.
	MaxUptake float64 `mapstructure:"max_uptake" yaml:"max_uptake"`
	// NSolutions caps the alternative solutions enumerated per sub-problem.
	NSolutions int     `mapstructure:"n_solutions" yaml:"n_solutions"`
	AbsTol     float64 `mapstructure:"abs_tol" yaml:"abs_tol"`
	// SafetyFactor sizes the big-M standing in for infinite bounds, as in
	// community.Community.BigM.
	SafetyFactor float64 `mapstructure:"safety_factor" yaml:"safety_factor"`
	// IncludeSuboptimal keeps enumerating after the optimal cardinality is
	// exhausted instead of stopping there.
	IncludeSuboptimal bool `mapstructure:"include_suboptimal" yaml:"include_suboptimal"`

	Logger logr.Logger `mapstructure:"-" yaml:"-"`
}

func DefaultOptions() Options {
	return Options{
		MinGrowth:    0.1,
		MaxUptake:    10,
		NSolutions:   100,
		AbsTol:       1e-6,
		SafetyFactor: 10,
	}
}

func (o Options) Validate() error {
	if o.MinGrowth <= 0 {
		return fmt.Errorf("min_growth must be positive, got %g", o.MinGrowth)
	}
	if o.MaxUptake <= 0 {
		return fmt.Errorf("max_uptake must be positive, got %g", o.MaxUptake)
	}
	if o.NSolutions <= 0 {
		return fmt.Errorf("n_solutions must be positive, got %d", o.NSolutions)
	}
	if o.AbsTol <= 0 {
		return fmt.Errorf("abs_tol must be positive, got %g", o.AbsTol)
	}
	if o.SafetyFactor <= 0 {
		return fmt.Errorf("safety_factor must be positive, got %g", o.SafetyFactor)
	}
	return nil
}
