package smetana

import (
	"fmt"
	"slices"

	mapset "github.com/deckarep/golang-set/v2"

	"microcom/src/community"
	"microcom/src/lp"
	"microcom/src/model"
)

type MIPResult struct {
	// Score is the number of metabolites the organisms need on their own
	// but not together.
	Score      int
	Individual map[string][]string
	Joint      []string
}

type Pair struct {
	A string
	B string
}

type MROResult struct {
	// Score is the mean pairwise overlap of minimal media over their mean
	// size. It is nil when undefined: fewer than two organisms or only empty
	// media.
	Score      *float64
	Individual map[string][]string
	Overlap    map[Pair]int
}

// MIP computes the metabolic interaction potential: the size of the union
// of the organisms' individual minimal media minus the size of the minimal
// medium of the community.
func MIP(c *community.Community, s lp.Solver, opts Options) (*MIPResult, error) {
	sc, err := newScope(c, opts, false)
	if err != nil {
		return nil, err
	}
	media, err := sc.individualMedia(s, "MIP")
	if err != nil {
		return nil, err
	}
	union := mapset.NewSet[string]()
	for _, medium := range media {
		union = union.Union(medium)
	}
	joint, err := sc.jointMedium(s)
	if err != nil {
		return nil, err
	}

	res := &MIPResult{
		Score:      union.Cardinality() - joint.Cardinality(),
		Individual: make(map[string][]string, len(media)),
		Joint:      sorted(joint),
	}
	for org, medium := range media {
		res.Individual[org] = sorted(medium)
	}
	sc.opts.Logger.V(1).Info("Computed MIP", "community", c.ID(), "score", res.Score, "union", union.Cardinality(), "joint", joint.Cardinality())
	return res, nil
}

// MRO computes the metabolic resource overlap: the mean size of pairwise
// intersections of individual minimal media over their mean size.
func MRO(c *community.Community, s lp.Solver, opts Options) (*MROResult, error) {
	sc, err := newScope(c, opts, false)
	if err != nil {
		return nil, err
	}
	media, err := sc.individualMedia(s, "MRO")
	if err != nil {
		return nil, err
	}

	res := &MROResult{
		Individual: make(map[string][]string, len(media)),
		Overlap:    make(map[Pair]int),
	}
	orgs := sc.merged.Organisms()
	size := 0.0
	for _, org := range orgs {
		res.Individual[org] = sorted(media[org])
		size += float64(media[org].Cardinality())
	}
	overlap := 0.0
	for i, a := range orgs {
		for _, b := range orgs[i+1:] {
			n := media[a].Intersect(media[b]).Cardinality()
			res.Overlap[Pair{A: a, B: b}] = n
			overlap += float64(n)
		}
	}
	size /= float64(len(orgs))
	if len(res.Overlap) > 0 && size > 0 {
		score := overlap / float64(len(res.Overlap)) / size
		res.Score = &score
	}
	sc.opts.Logger.V(1).Info("Computed MRO", "community", c.ID(), "pairs", len(res.Overlap), "meanMediumSize", size)
	return res, nil
}

func (sc *scope) individualMedia(s lp.Solver, metric string) (map[string]mapset.Set[string], error) {
	media := make(map[string]mapset.Set[string])
	for _, org := range sc.merged.Organisms() {
		medium, err := sc.organismMedium(s, org)
		if err != nil {
			return nil, infeasibleOr(metric, org, err)
		}
		media[org] = medium
	}
	return media, nil
}

// organismMedium is a minimal medium of one organism growing alone, from its
// own model and exchange bounds.
func (sc *scope) organismMedium(s lp.Solver, org string) (mapset.Set[string], error) {
	o, _ := sc.community.Organism(org)
	a := o.Adapter
	p, err := model.FluxProblem(a)
	if err != nil {
		return nil, err
	}
	if err := p.SetObjective(nil, false); err != nil {
		return nil, err
	}
	_, upper, err := p.Bounds(o.Biomass)
	if err != nil {
		return nil, err
	}
	if upper < sc.opts.MinGrowth {
		return nil, fmt.Errorf("organism %s: biomass upper bound %g below minimum growth %g", org, upper, sc.opts.MinGrowth)
	}
	if err := p.SetBounds(o.Biomass, sc.opts.MinGrowth, upper); err != nil {
		return nil, err
	}

	var ys []string
	name := make(map[string]string)
	objective := make(lp.Expr)
	for _, rxn := range a.ExchangeReactions() {
		r, _ := a.Reaction(rxn)
		var met string
		dir := -1.0
		for id, coef := range r.Stoichiometry {
			met = id
			if coef > 0 {
				dir = 1
			}
		}
		y := binaryVar(rxn)
		ok, err := uptakeSwitch(p, rxn, y, dir, sc.opts.MaxUptake)
		if err != nil {
			return nil, err
		}
		if ok {
			ys = append(ys, y)
			name[y] = met
			objective[y] = 1
		}
	}
	return sc.minimalMedium(s, p, ys, name, objective)
}

// jointMedium is a minimal medium on which every organism of the community
// grows at once, drawn through the environment exchanges with the bounds the
// organisms allow, whatever the current environment. Each organism may take
// up MaxUptake of a metabolite, so the community may take up that many times
// more.
func (sc *scope) jointMedium(s lp.Solver) (mapset.Set[string], error) {
	p := sc.base.Clone()
	orgs := sc.merged.Organisms()
	for _, org := range orgs {
		if err := sc.requireGrowth(p, org); err != nil {
			return nil, err
		}
	}
	var ys []string
	name := make(map[string]string)
	objective := make(lp.Expr)
	exchanges := sc.merged.EnvironmentExchanges()
	for _, met := range sc.merged.ExtMets() {
		rxn := exchanges[met]
		lower, upper := sc.merged.ExchangeBounds(met)
		if err := p.SetBounds(rxn, lower, upper); err != nil {
			return nil, err
		}
		y := binaryVar(rxn)
		ok, err := uptakeSwitch(p, rxn, y, -1, sc.opts.MaxUptake*float64(len(orgs)))
		if err != nil {
			return nil, err
		}
		if ok {
			ys = append(ys, y)
			name[y] = met
			objective[y] = 1
		}
	}
	medium, err := sc.minimalMedium(s, p, ys, name, objective)
	if err != nil {
		return nil, infeasibleOr("MIP", "", err)
	}
	return medium, nil
}

func (sc *scope) minimalMedium(s lp.Solver, p *lp.Problem, ys []string, name map[string]string, objective lp.Expr) (mapset.Set[string], error) {
	if err := p.SetObjective(objective, false); err != nil {
		return nil, err
	}
	opts := sc.opts
	opts.NSolutions = 1
	supports, err := enumerate(s, p, ys, subsetCut, opts)
	if err != nil {
		return nil, err
	}
	medium := mapset.NewSet[string]()
	for _, y := range supports[0] {
		medium.Add(name[y])
	}
	return medium, nil
}

func sorted(set mapset.Set[string]) []string {
	items := set.ToSlice()
	slices.Sort(items)
	return items
}
