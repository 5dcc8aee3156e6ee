// Package smetana scores metabolic interactions in a community: species
// coupling (SC), metabolite uptake (MU) and production (MP), metabolic
// interaction potential (MIP) and metabolic resource overlap (MRO).
//
// Every score builds its own problems on the merged community and solves
// them in sequence on the given solver. A sub-problem without solution is
// reported as such: Feasible false in per-organism results, an
// *InfeasibleError for MIP and MRO.
package smetana

import (
	"cmp"
	"slices"

	"microcom/src/community"
	"microcom/src/lp"
)

// Interaction is one receiver taking up a metabolite a donor can produce
// while depending on that donor. Score is SC·MU·MP.
type Interaction struct {
	Receiver   string
	Donor      string
	Metabolite string
	SC         float64
	MU         float64
	MP         float64
	Score      float64
}

// Detailed combines per-organism scores into receiver, donor, metabolite
// interactions, dropping the ones that score zero. The result is sorted by
// receiver, donor and metabolite.
func Detailed(sc map[string]Coupling, mu map[string]Uptake, mp map[string]Production) []Interaction {
	var interactions []Interaction
	for receiver, coupling := range sc {
		uptake := mu[receiver]
		if !coupling.Feasible || !uptake.Feasible {
			continue
		}
		for donor, dependency := range coupling.Donors {
			production := mp[donor]
			if dependency == 0 || !production.Feasible {
				continue
			}
			for met, frequency := range uptake.Metabolites {
				if frequency == 0 || !production.Metabolites[met] {
					continue
				}
				interactions = append(interactions, Interaction{
					Receiver:   receiver,
					Donor:      donor,
					Metabolite: met,
					SC:         dependency,
					MU:         frequency,
					MP:         1,
					Score:      dependency * frequency,
				})
			}
		}
	}
	slices.SortFunc(interactions, func(a, b Interaction) int {
		return cmp.Or(
			cmp.Compare(a.Receiver, b.Receiver),
			cmp.Compare(a.Donor, b.Donor),
			cmp.Compare(a.Metabolite, b.Metabolite),
		)
	})
	return interactions
}

type Report struct {
	SC           map[string]Coupling
	MU           map[string]Uptake
	MP           map[string]Production
	MIP          *MIPResult
	MRO          *MROResult
	Interactions []Interaction
}

// All computes every score and the detailed interactions.
func All(c *community.Community, s lp.Solver, opts Options) (*Report, error) {
	var (
		r   Report
		err error
	)
	if r.SC, err = SC(c, s, opts); err != nil {
		return nil, err
	}
	if r.MU, err = MU(c, s, opts); err != nil {
		return nil, err
	}
	if r.MP, err = MP(c, s, opts); err != nil {
		return nil, err
	}
	if r.MIP, err = MIP(c, s, opts); err != nil {
		return nil, err
	}
	if r.MRO, err = MRO(c, s, opts); err != nil {
		return nil, err
	}
	r.Interactions = Detailed(r.SC, r.MU, r.MP)
	opts.Logger.Info("Computed SMETANA scores", "community", c.ID(), "interactions", len(r.Interactions), "mip", r.MIP.Score)
	return &r, nil
}
