package smetana

import (
	"errors"
	"fmt"
	"math"
	"slices"

	"golang.org/x/exp/maps"

	"microcom/src/community"
	"microcom/src/lp"
)

func binaryVar(name string) string {
	return "y:" + name
}

// scope is what every score formulates against: the merged community with
// independent organism growth, no objective and every biomass free to be
// zero.
type scope struct {
	community *community.Community
	merged    *community.Merged
	base      *lp.Problem
	bigM      float64
	opts      Options
}

func newScope(c *community.Community, opts Options, needTransports bool) (*scope, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	merged, err := c.Merged()
	if err != nil {
		return nil, err
	}
	if needTransports && !merged.AddCompartments() {
		return nil, fmt.Errorf("%w: scores over organism transports need per-organism compartments", community.ErrConfig)
	}
	p, err := merged.Problem(true)
	if err != nil {
		return nil, err
	}
	if err := p.SetObjective(nil, false); err != nil {
		return nil, err
	}
	for _, org := range merged.Organisms() {
		bio := merged.Biomass(org)
		_, upper, err := p.Bounds(bio)
		if err != nil {
			return nil, err
		}
		if err := p.SetBounds(bio, 0, upper); err != nil {
			return nil, err
		}
	}
	return &scope{
		community: c,
		merged:    merged,
		base:      p,
		bigM:      c.BigM(opts.SafetyFactor),
		opts:      opts,
	}, nil
}

func (sc *scope) finite(bound float64) float64 {
	switch {
	case math.IsInf(bound, 1):
		return sc.bigM
	case math.IsInf(bound, -1):
		return -sc.bigM
	default:
		return bound
	}
}

// requireGrowth sets the minimum growth of an organism in p.
func (sc *scope) requireGrowth(p *lp.Problem, org string) error {
	bio := sc.merged.Biomass(org)
	_, upper, err := p.Bounds(bio)
	if err != nil {
		return err
	}
	if upper < sc.opts.MinGrowth {
		return fmt.Errorf("organism %s: biomass upper bound %g below minimum growth %g", org, upper, sc.opts.MinGrowth)
	}
	return p.SetBounds(bio, sc.opts.MinGrowth, upper)
}

// gate ties the flux of rxn to binary y with the reaction's own bounds:
// lb·y <= v <= ub·y. The variable itself is relaxed to include zero, so a
// forced flux (lb > 0 or ub < 0) holds only while y = 1.
func (sc *scope) gate(p *lp.Problem, rxn, y string) error {
	lower, upper, err := p.Bounds(rxn)
	if err != nil {
		return err
	}
	if err := p.SetBounds(rxn, math.Min(lower, 0), math.Max(upper, 0)); err != nil {
		return err
	}
	if lower != 0 {
		if err := p.AddConstraint("gate_lb:"+rxn, lp.Expr{rxn: 1, y: -sc.finite(lower)}, lp.GE, 0); err != nil {
			return err
		}
	}
	if upper != 0 {
		if err := p.AddConstraint("gate_ub:"+rxn, lp.Expr{rxn: 1, y: -sc.finite(upper)}, lp.LE, 0); err != nil {
			return err
		}
	}
	return nil
}

// uptakeSwitch lets rxn take up at most maxUptake, and only when the new
// binary y is 1. Uptake is dir times the flux, dir being -1 or 1. It reports
// false, adding nothing, when rxn cannot take up at all.
func uptakeSwitch(p *lp.Problem, rxn, y string, dir, maxUptake float64) (bool, error) {
	lower, upper, err := p.Bounds(rxn)
	if err != nil {
		return false, err
	}
	capacity := upper
	if dir < 0 {
		capacity = -lower
	}
	if capacity <= 0 {
		return false, nil
	}
	capacity = math.Min(capacity, maxUptake)
	if err := p.AddVar(y, 0, 1, lp.Binary); err != nil {
		return false, err
	}
	if err := p.AddConstraint("uptake:"+rxn, lp.Expr{rxn: dir, y: -capacity}, lp.LE, 0); err != nil {
		return false, err
	}
	return true, nil
}

// supplied reports whether the environment can provide met.
func (sc *scope) supplied(met string) bool {
	rxn, ok := sc.merged.EnvironmentExchanges()[met]
	if !ok {
		return false
	}
	lower, _, err := sc.base.Bounds(rxn)
	return err == nil && lower < 0
}

// infeasibleOr marks an infeasible sub-problem of a metric and passes other
// errors through.
func infeasibleOr(metric, org string, err error) error {
	if errors.Is(err, lp.ErrInfeasible) {
		return &InfeasibleError{Metric: metric, Organism: org, Err: err}
	}
	return err
}

func sortedKeys[V any](m map[string]V) []string {
	keys := maps.Keys(m)
	slices.Sort(keys)
	return keys
}
