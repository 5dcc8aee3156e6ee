package steadycom

import (
	"fmt"

	"github.com/go-logr/logr"

	"microcom/src/community"
)

type Options struct {
	// ObjFrac discounts the maximum growth rate before abundances are
	// computed, in (0, 1].
	ObjFrac float64 `mapstructure:"obj_frac" yaml:"obj_frac"`
	AbsTol  float64 `mapstructure:"abs_tol" yaml:"abs_tol"`
	RelTol  float64 `mapstructure:"rel_tol" yaml:"rel_tol"`
	// MaxIters caps the LP solves of the growth rate search.
	MaxIters int `mapstructure:"max_iters" yaml:"max_iters"`
	// BigM replaces infinite reaction bounds. Zero picks it from the
	// community's finite bounds scaled by SafetyFactor.
	BigM         float64 `mapstructure:"big_m" yaml:"big_m"`
	SafetyFactor float64 `mapstructure:"safety_factor" yaml:"safety_factor"`
	// FixAbundance pins every abundance to the community's current vector
	// instead of optimizing it.
	FixAbundance bool `mapstructure:"fix_abundance" yaml:"fix_abundance"`

	Logger logr.Logger `mapstructure:"-" yaml:"-"`
}

func DefaultOptions() Options {
	return Options{
		ObjFrac:      1,
		AbsTol:       1e-3,
		RelTol:       1e-4,
		MaxIters:     50,
		SafetyFactor: 10,
	}
}

func (o Options) Validate() error {
	if o.ObjFrac <= 0 || o.ObjFrac > 1 {
		return fmt.Errorf("obj_frac %g outside (0, 1]", o.ObjFrac)
	}
	if o.AbsTol <= 0 {
		return fmt.Errorf("abs_tol must be positive, got %g", o.AbsTol)
	}
	if o.RelTol < 0 {
		return fmt.Errorf("rel_tol must not be negative, got %g", o.RelTol)
	}
	if o.MaxIters <= 0 {
		return fmt.Errorf("max_iters must be positive, got %d", o.MaxIters)
	}
	if o.BigM != 0 && (o.BigM < community.MinBigM || o.BigM > community.MaxBigM) {
		return fmt.Errorf("%w: %g not in [%g, %g]", ErrBigM, o.BigM, community.MinBigM, community.MaxBigM)
	}
	if o.BigM == 0 && o.SafetyFactor <= 0 {
		return fmt.Errorf("safety_factor must be positive, got %g", o.SafetyFactor)
	}
	return nil
}

func (o Options) bigM(c *community.Community) float64 {
	if o.BigM != 0 {
		return o.BigM
	}
	return c.BigM(o.SafetyFactor)
}
