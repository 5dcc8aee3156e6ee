package model

import (
	"fmt"

	"microcom/src/lp"
)

// BalanceRow names the steady-state row of a metabolite in a flux problem.
func BalanceRow(met string) string {
	return "mb:" + met
}

// FluxProblem formulates the flux balance LP of a: one variable per reaction
// named after it, bounded by the reaction bounds, and S·v = 0 for every
// metabolite that takes part in a reaction. The objective is the adapter's,
// maximized.
func FluxProblem(a OrganismAdapter) (*lp.Problem, error) {
	p := lp.NewProblem()
	for _, rxn := range a.Reactions() {
		lower, upper, err := a.Bounds(rxn)
		if err != nil {
			return nil, err
		}
		if err := p.AddVar(rxn, lower, upper, lp.Continuous); err != nil {
			return nil, err
		}
	}
	table := a.MetaboliteReactions()
	for _, met := range a.Metabolites() {
		row := table[met]
		if len(row) == 0 {
			continue
		}
		if err := p.AddConstraint(BalanceRow(met), lp.Expr(row), lp.EQ, 0); err != nil {
			return nil, err
		}
	}
	if err := p.SetObjective(lp.Expr(a.Objective()), true); err != nil {
		return nil, err
	}
	return p, nil
}

// MaxGrowth maximizes the adapter's objective on its own.
func MaxGrowth(s lp.Solver, a OrganismAdapter) (float64, error) {
	p, err := FluxProblem(a)
	if err != nil {
		return 0, err
	}
	sol, err := s.Solve(p)
	if err != nil {
		return 0, err
	}
	if err := sol.Err(); err != nil {
		return 0, fmt.Errorf("organism %s: %w", a.ID(), err)
	}
	return sol.Objective, nil
}
