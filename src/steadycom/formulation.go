package steadycom

import (
	"math"

	"microcom/src/community"
	"microcom/src/lp"
)

const abundanceRow = "abundance"

func abundanceVar(org string) string {
	return "X:" + org
}

func growthRow(org string) string {
	return "growth:" + org
}

// formulation is the SteadyCom LP at a fixed growth rate mu:
//
//	Σ X_i = 1
//	S_i · v_i = 0
//	v_i^biomass - mu X_i = 0
//	lb_ij X_i <= v_ij <= ub_ij X_i
//
// Organism flux bounds are scaled through X_i, never through the
// stoichiometry. Environment exchanges keep their own bounds.
type formulation struct {
	problem   *lp.Problem
	merged    *community.Merged
	organisms []string
	bigM      float64
}

func formulate(c *community.Community, opts Options) (*formulation, error) {
	merged, err := c.Merged()
	if err != nil {
		return nil, err
	}
	p, err := merged.Problem(true)
	if err != nil {
		return nil, err
	}
	f := &formulation{
		problem:   p,
		merged:    merged,
		organisms: merged.Organisms(),
		bigM:      opts.bigM(c),
	}

	abundance := c.Abundance()
	sum := make(lp.Expr, len(f.organisms))
	for _, org := range f.organisms {
		x := abundanceVar(org)
		lower, upper := 0.0, 1.0
		if opts.FixAbundance {
			lower, upper = abundance[org], abundance[org]
		}
		if err := p.AddVar(x, lower, upper, lp.Continuous); err != nil {
			return nil, err
		}
		sum[x] = 1

		for _, rxn := range merged.OrganismReactions(org) {
			if err := f.scaleBounds(rxn, x); err != nil {
				return nil, err
			}
		}
		if err := p.AddConstraint(growthRow(org), lp.Expr{merged.Biomass(org): 1}, lp.EQ, 0); err != nil {
			return nil, err
		}
	}
	if err := p.AddConstraint(abundanceRow, sum, lp.EQ, 1); err != nil {
		return nil, err
	}
	if err := p.SetObjective(nil, false); err != nil {
		return nil, err
	}
	return f, nil
}

// scaleBounds moves the bounds of rxn onto rows proportional to x. Zero
// bounds stay plain variable bounds.
func (f *formulation) scaleBounds(rxn, x string) error {
	lower, upper, err := f.problem.Bounds(rxn)
	if err != nil {
		return err
	}
	lower, upper = f.finite(lower), f.finite(upper)

	varLower, varUpper := math.Inf(-1), math.Inf(1)
	if lower == 0 {
		varLower = 0
	} else if err := f.problem.AddConstraint("lb:"+rxn, lp.Expr{rxn: 1, x: -lower}, lp.GE, 0); err != nil {
		return err
	}
	if upper == 0 {
		varUpper = 0
	} else if err := f.problem.AddConstraint("ub:"+rxn, lp.Expr{rxn: 1, x: -upper}, lp.LE, 0); err != nil {
		return err
	}
	return f.problem.SetBounds(rxn, varLower, varUpper)
}

func (f *formulation) finite(bound float64) float64 {
	switch {
	case math.IsInf(bound, 1):
		return f.bigM
	case math.IsInf(bound, -1):
		return -f.bigM
	default:
		return bound
	}
}

func (f *formulation) setGrowth(mu float64) error {
	for _, org := range f.organisms {
		if err := f.problem.SetCoefficient(growthRow(org), abundanceVar(org), -mu); err != nil {
			return err
		}
	}
	return nil
}

// feasibleAt reports whether the community can grow at mu. Backend errors
// and unexpected statuses are returned as errors.
func (f *formulation) feasibleAt(s lp.Solver, mu float64) (bool, *lp.Solution, error) {
	if err := f.setGrowth(mu); err != nil {
		return false, nil, err
	}
	sol, err := s.Solve(f.problem)
	if err != nil {
		return false, nil, err
	}
	switch sol.Status {
	case lp.Optimal:
		return true, sol, nil
	case lp.Infeasible, lp.InfeasibleOrUnbounded:
		return false, sol, nil
	default:
		return false, sol, sol.Err()
	}
}

// closestToUniform picks, among the abundance vectors feasible at the
// current growth rate, one with least L1 distance to the uniform vector.
func (f *formulation) closestToUniform() error {
	uniform := 1 / float64(len(f.organisms))
	objective := make(lp.Expr, len(f.organisms))
	for _, org := range f.organisms {
		d, x := "d:"+org, abundanceVar(org)
		if err := f.problem.AddVar(d, 0, math.Inf(1), lp.Continuous); err != nil {
			return err
		}
		if err := f.problem.AddConstraint("d+:"+org, lp.Expr{d: 1, x: -1}, lp.GE, -uniform); err != nil {
			return err
		}
		if err := f.problem.AddConstraint("d-:"+org, lp.Expr{d: 1, x: 1}, lp.GE, uniform); err != nil {
			return err
		}
		objective[d] = 1
	}
	return f.problem.SetObjective(objective, false)
}
