// Package steadycom finds the maximum growth rate of a community at steady
// state together with the organism abundances that sustain it.
package steadycom

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"

	"microcom/src/community"
	"microcom/src/lp"
	"microcom/src/model"
)

// balanceTol bounds |S·v| of returned fluxes relative to the largest flux.
const balanceTol = 1e-5

type Result struct {
	// GrowthRate is the rate abundances and fluxes were computed at,
	// ObjFrac times MaxGrowthRate.
	GrowthRate    float64
	MaxGrowthRate float64
	Abundance     map[string]float64
	// Fluxes are absolute community fluxes keyed by merged reaction id.
	Fluxes     map[string]float64
	BigM       float64
	Iterations int
}

// Range is the interval an organism's abundance can take at a fixed growth
// rate. Ranges of different organisms are not jointly achievable in general.
type Range struct {
	Min float64
	Max float64
}

// Solve runs SteadyCom on c. The search solves one LP per trial growth rate
// on s; s is used sequentially and never closed here.
func Solve(c *community.Community, s lp.Solver, opts Options) (*Result, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	f, err := formulate(c, opts)
	if err != nil {
		return nil, err
	}
	opts.Logger.Info("Formulated SteadyCom", "community", c.ID(), "bigM", f.bigM,
		"maxFiniteBound", c.MaxFiniteBound(), "variables", f.problem.NumVars(), "constraints", f.problem.NumConstraints())

	mu, iterations, err := f.maxGrowth(s, opts)
	if err != nil {
		return nil, fmt.Errorf("community %s: %w", c.ID(), err)
	}

	growth := opts.ObjFrac * mu
	if err := f.setGrowth(growth); err != nil {
		return nil, err
	}
	if !opts.FixAbundance {
		if err := f.closestToUniform(); err != nil {
			return nil, err
		}
	}
	sol, err := s.Solve(f.problem)
	if err != nil {
		return nil, err
	}
	if err := sol.Err(); err != nil {
		return nil, fmt.Errorf("community %s: abundance at growth rate %g: %w", c.ID(), growth, err)
	}

	res := &Result{
		GrowthRate:    growth,
		MaxGrowthRate: mu,
		Abundance:     make(map[string]float64, len(f.organisms)),
		Fluxes:        make(map[string]float64),
		BigM:          f.bigM,
		Iterations:    iterations,
	}
	xs := make([]float64, len(f.organisms))
	for i, org := range f.organisms {
		xs[i] = sol.Value(abundanceVar(org))
	}
	total := floats.Sum(xs)
	for i, org := range f.organisms {
		res.Abundance[org] = xs[i] / total
	}
	for _, rxn := range f.merged.Model().Reactions() {
		if f.problem.HasVar(rxn) {
			res.Fluxes[rxn] = sol.Value(rxn)
		}
	}
	if err := f.checkSteadyState(res.Fluxes); err != nil {
		return nil, fmt.Errorf("community %s: %w", c.ID(), err)
	}
	opts.Logger.Info("SteadyCom converged", "community", c.ID(), "growthRate", growth,
		"maxGrowthRate", mu, "iterations", iterations, "abundance", res.Abundance)
	return res, nil
}

// checkSteadyState recomputes S·v on the merged model for every metabolite
// the LP balanced. Rows left out of the LP, the biomass pseudo-metabolites of
// merged biomasses, are skipped.
func (f *formulation) checkSteadyState(fluxes map[string]float64) error {
	m := f.merged.Model()
	sv := model.MassBalance(m, fluxes)
	if sv == nil {
		return nil
	}
	scale := 1.0
	for _, v := range fluxes {
		scale = math.Max(scale, math.Abs(v))
	}
	tol := balanceTol * scale
	for i, met := range m.Metabolites() {
		if !f.problem.HasConstraint(model.BalanceRow(met)) {
			continue
		}
		if r := math.Abs(sv.AtVec(i)); r > tol {
			return fmt.Errorf("%w: metabolite %s has residual %g, tolerance %g", ErrSteadyState, met, r, tol)
		}
	}
	return nil
}

func (f *formulation) maxGrowth(s lp.Solver, opts Options) (float64, int, error) {
	ok, _, err := f.feasibleAt(s, 0)
	if err != nil {
		return 0, 0, err
	}
	if !ok {
		return 0, 0, fmt.Errorf("%w: zero growth is infeasible", ErrNoViableGrowth)
	}

	sr := newSearch(opts)
	for sr.running() {
		trial, phase := sr.trial, sr.phase
		ok, _, err := f.feasibleAt(s, trial)
		if err != nil {
			return 0, sr.iterations, err
		}
		sr.step(ok)
		opts.Logger.V(1).Info("Growth rate trial", "phase", phase, "mu", trial, "feasible", ok,
			"lastFeasible", sr.lastFeasible, "gap", sr.gap())
	}
	if sr.phase == failed {
		return 0, sr.iterations, sr.err()
	}
	if sr.lastFeasible <= opts.AbsTol {
		return 0, sr.iterations, fmt.Errorf("%w: maximum growth rate %g within tolerance %g of zero",
			ErrNoViableGrowth, sr.lastFeasible, opts.AbsTol)
	}
	return sr.lastFeasible, sr.iterations, nil
}

// VA computes the abundance range of every organism at ObjFrac times the
// maximum growth rate.
func VA(c *community.Community, s lp.Solver, opts Options) (map[string]Range, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	if opts.FixAbundance {
		return nil, fmt.Errorf("%w: variability analysis needs free abundances", community.ErrConfig)
	}
	f, err := formulate(c, opts)
	if err != nil {
		return nil, err
	}
	mu, _, err := f.maxGrowth(s, opts)
	if err != nil {
		return nil, fmt.Errorf("community %s: %w", c.ID(), err)
	}
	growth := opts.ObjFrac * mu
	if err := f.setGrowth(growth); err != nil {
		return nil, err
	}

	ranges := make(map[string]Range, len(f.organisms))
	for _, org := range f.organisms {
		var r Range
		for _, maximize := range []bool{false, true} {
			if err := f.problem.SetObjective(lp.Expr{abundanceVar(org): 1}, maximize); err != nil {
				return nil, err
			}
			sol, err := s.Solve(f.problem)
			if err != nil {
				return nil, err
			}
			if !sol.IsOptimal() {
				return nil, &InfeasibleError{Organism: org, Maximize: maximize, Status: sol.Status}
			}
			if maximize {
				r.Max = sol.Objective
			} else {
				r.Min = sol.Objective
			}
		}
		ranges[org] = r
	}
	opts.Logger.V(1).Info("SteadyCom variability", "community", c.ID(), "growthRate", growth, "ranges", ranges)
	return ranges, nil
}
