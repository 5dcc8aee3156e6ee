package community

import (
	"microcom/src/lp"
	"microcom/src/model"
)

// Problem formulates the flux balance LP of the merged model: one variable per
// reaction named after it and one steady-state row per metabolite, rows named
// by model.BalanceRow.
//
// With independentGrowth the community growth reaction, its sink and the
// biomass pseudo-metabolites are left out, so every organism's biomass flux
// is free, and the objective is the sum of organism biomass fluxes.
// Otherwise the objective is the merged model's.
func (m *Merged) Problem(independentGrowth bool) (*lp.Problem, error) {
	skipRxn := make(map[string]bool)
	skipMet := make(map[string]bool)
	if independentGrowth && m.mergeBiomasses {
		skipRxn[GrowthReaction] = true
		skipRxn[BiomassSink] = true
		skipMet[CommunityBiomass] = true
		for _, org := range m.organisms {
			skipMet[BiomassMetabolite(org)] = true
		}
	}

	p := lp.NewProblem()
	for _, rxn := range m.model.Reactions() {
		if skipRxn[rxn] {
			continue
		}
		lower, upper, err := m.model.Bounds(rxn)
		if err != nil {
			return nil, err
		}
		if err := p.AddVar(rxn, lower, upper, lp.Continuous); err != nil {
			return nil, err
		}
	}

	table := m.model.MetaboliteReactions()
	for _, met := range m.model.Metabolites() {
		if skipMet[met] {
			continue
		}
		row := make(lp.Expr, len(table[met]))
		for rxn, coef := range table[met] {
			if !skipRxn[rxn] && coef != 0 {
				row[rxn] = coef
			}
		}
		if len(row) == 0 {
			continue
		}
		if err := p.AddConstraint(model.BalanceRow(met), row, lp.EQ, 0); err != nil {
			return nil, err
		}
	}

	objective := lp.Expr(m.model.Objective())
	if independentGrowth {
		objective = make(lp.Expr, len(m.organisms))
		for _, org := range m.organisms {
			objective[m.biomass[org]] = 1
		}
	}
	if err := p.SetObjective(objective, true); err != nil {
		return nil, err
	}
	return p, nil
}
