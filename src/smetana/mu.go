package smetana

import (
	"errors"

	"microcom/src/community"
	"microcom/src/lp"
)

type Uptake struct {
	// Feasible is false when the organism cannot grow in the community at
	// all.
	Feasible bool
	// Metabolites maps every shared metabolite the organism can take up to
	// the share of alternative minimal media containing it.
	Metabolites map[string]float64
	Solutions   int
}

// MU computes the metabolite uptake score of every organism from the
// alternative minimal sets of metabolites it takes up from the shared pool
// while growing in the community.
func MU(c *community.Community, s lp.Solver, opts Options) (map[string]Uptake, error) {
	sc, err := newScope(c, opts, true)
	if err != nil {
		return nil, err
	}
	result := make(map[string]Uptake)
	for _, org := range sc.merged.Organisms() {
		uptake, err := sc.uptake(s, org)
		if err != nil {
			return nil, err
		}
		result[org] = uptake
	}
	return result, nil
}

func (sc *scope) uptake(s lp.Solver, org string) (Uptake, error) {
	p := sc.base.Clone()
	if err := sc.requireGrowth(p, org); err != nil {
		return Uptake{}, err
	}

	var ys []string
	name := make(map[string]string)
	objective := make(lp.Expr)
	transports := sc.merged.OrganismExchanges(org)
	for _, rxn := range sortedKeys(transports) {
		y := binaryVar(rxn)
		ok, err := uptakeSwitch(p, rxn, y, -1, sc.opts.MaxUptake)
		if err != nil {
			return Uptake{}, err
		}
		if ok {
			ys = append(ys, y)
			name[y] = transports[rxn]
			objective[y] = 1
		}
	}
	if err := p.SetObjective(objective, false); err != nil {
		return Uptake{}, err
	}

	supports, err := enumerate(s, p, ys, subsetCut, sc.opts)
	if errors.Is(err, lp.ErrInfeasible) {
		sc.opts.Logger.V(1).Info("Organism cannot grow in community", "metric", "MU", "organism", org, "reason", err.Error())
		return Uptake{Feasible: false}, nil
	}
	if err != nil {
		return Uptake{}, err
	}
	return Uptake{
		Feasible:    true,
		Metabolites: frequency(supports, name),
		Solutions:   len(supports),
	}, nil
}
