package smetana

import (
	"fmt"
	"math"

	"microcom/src/community"
	"microcom/src/lp"
)

type Production struct {
	// Feasible is false when the organism's part of the community LP has no
	// solution at all.
	Feasible bool
	// Metabolites maps every candidate metabolite to whether the organism
	// can export it to the shared pool. Metabolites the environment supplies
	// are not candidates.
	Metabolites map[string]bool
}

// MP computes the metabolite production score of every organism.
func MP(c *community.Community, s lp.Solver, opts Options) (map[string]Production, error) {
	sc, err := newScope(c, opts, true)
	if err != nil {
		return nil, err
	}
	result := make(map[string]Production)
	for _, org := range sc.merged.Organisms() {
		production, err := sc.production(s, org)
		if err != nil {
			return nil, err
		}
		result[org] = production
	}
	return result, nil
}

// production first maximizes the joint export of every candidate not yet
// known to be producible, repeating while that finds new ones. Candidates
// still at zero are then maximized one by one, since mutually exclusive
// pathways can hide each other in the joint objective.
func (sc *scope) production(s lp.Solver, org string) (Production, error) {
	p := sc.base.Clone()
	transports := sc.merged.OrganismExchanges(org)
	producible := make(map[string]bool)
	var remaining []string
	for _, rxn := range sortedKeys(transports) {
		met := transports[rxn]
		lower, upper, err := p.Bounds(rxn)
		if err != nil {
			return Production{}, err
		}
		if upper <= 0 || sc.supplied(met) {
			continue
		}
		if err := p.SetBounds(rxn, lower, math.Min(upper, sc.bigM)); err != nil {
			return Production{}, err
		}
		producible[met] = false
		remaining = append(remaining, rxn)
	}

	for first := true; len(remaining) > 0; first = false {
		objective := make(lp.Expr, len(remaining))
		for _, rxn := range remaining {
			objective[rxn] = 1
		}
		if err := p.SetObjective(objective, true); err != nil {
			return Production{}, err
		}
		sol, err := s.Solve(p)
		if err != nil {
			return Production{}, err
		}
		if sol.IsInfeasible() {
			if first {
				sc.opts.Logger.V(1).Info("Export problem has no solution", "metric", "MP", "organism", org, "status", sol.Status)
				return Production{Feasible: false}, nil
			}
			break
		}
		if err := sol.Err(); err != nil {
			return Production{}, fmt.Errorf("MP for %s: %w", org, err)
		}

		var rest []string
		for _, rxn := range remaining {
			if sol.Value(rxn) > sc.opts.AbsTol {
				producible[transports[rxn]] = true
			} else {
				rest = append(rest, rxn)
			}
		}
		if len(rest) == len(remaining) {
			break
		}
		remaining = rest
	}

	for _, rxn := range remaining {
		if producible[transports[rxn]] {
			continue
		}
		if err := p.SetObjective(lp.Expr{rxn: 1}, true); err != nil {
			return Production{}, err
		}
		sol, err := s.Solve(p)
		if err != nil {
			return Production{}, err
		}
		if !sol.IsOptimal() && !sol.IsInfeasible() {
			return Production{}, fmt.Errorf("MP for %s: %w", org, sol.Err())
		}
		if sol.IsOptimal() && sol.Objective > sc.opts.AbsTol {
			producible[transports[rxn]] = true
		}
	}
	return Production{Feasible: true, Metabolites: producible}, nil
}
