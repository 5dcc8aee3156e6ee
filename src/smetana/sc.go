package smetana

import (
	"errors"

	"microcom/src/community"
	"microcom/src/lp"
)

// Coupling is how one organism depends on the rest of the community.
type Coupling struct {
	// Feasible is false when the organism cannot reach the minimum growth
	// rate even with every other organism switched on.
	Feasible bool
	// Donors maps every other organism to the share of alternative minimal
	// donor sets it belongs to.
	Donors    map[string]float64
	Solutions int
}

// SC computes the species coupling score of every organism: which others it
// needs switched on to grow, over alternative minimal sets of donors.
func SC(c *community.Community, s lp.Solver, opts Options) (map[string]Coupling, error) {
	sc, err := newScope(c, opts, false)
	if err != nil {
		return nil, err
	}
	result := make(map[string]Coupling)
	for _, target := range sc.merged.Organisms() {
		coupling, err := sc.coupling(s, target)
		if err != nil {
			return nil, err
		}
		result[target] = coupling
	}
	return result, nil
}

// coupling switches every other organism k on or off with a binary y_k
// gating k's internal reactions by their own bounds, then minimizes the
// number of organisms on while target grows.
func (sc *scope) coupling(s lp.Solver, target string) (Coupling, error) {
	p := sc.base.Clone()
	if err := sc.requireGrowth(p, target); err != nil {
		return Coupling{}, err
	}

	var ys []string
	name := make(map[string]string)
	objective := make(lp.Expr)
	for _, org := range sc.merged.Organisms() {
		if org == target {
			continue
		}
		y := binaryVar(org)
		if err := p.AddVar(y, 0, 1, lp.Binary); err != nil {
			return Coupling{}, err
		}
		ys = append(ys, y)
		name[y] = org
		objective[y] = 1

		transports := sc.merged.OrganismExchanges(org)
		biomass := sc.merged.Biomass(org)
		for _, rxn := range sc.merged.OrganismReactions(org) {
			if _, ok := transports[rxn]; ok || rxn == biomass {
				continue
			}
			if err := sc.gate(p, rxn, y); err != nil {
				return Coupling{}, err
			}
		}
	}
	if err := p.SetObjective(objective, false); err != nil {
		return Coupling{}, err
	}

	supports, err := enumerate(s, p, ys, integerCut, sc.opts)
	if errors.Is(err, lp.ErrInfeasible) {
		sc.opts.Logger.V(1).Info("Organism cannot grow in community", "metric", "SC", "organism", target, "reason", err.Error())
		return Coupling{Feasible: false}, nil
	}
	if err != nil {
		return Coupling{}, err
	}
	return Coupling{
		Feasible:  true,
		Donors:    frequency(supports, name),
		Solutions: len(supports),
	}, nil
}
