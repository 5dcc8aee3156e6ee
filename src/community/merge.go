package community

import (
	"fmt"
	"math"
	"slices"

	"golang.org/x/exp/maps"

	"microcom/src/model"
)

// Merged is one build of a community: the merged model and the maps from
// organism identifiers into it. It stays valid until a structural flag of
// the Community changes.
type Merged struct {
	model           *model.Model
	organisms       []string
	mergeBiomasses  bool
	addCompartments bool

	reactionMap   map[Key]string
	metaboliteMap map[Key]string
	geneMap       map[Key]string

	extMets      []string
	envExchanges map[string]string
	envBounds    map[string][2]float64

	biomass   map[string]string
	reactions map[string][]string
	exchanges map[string]map[string]string
}

func (c *Community) merge() (*Merged, error) {
	m := &Merged{
		model:           model.New(c.ID()),
		organisms:       c.Organisms(),
		mergeBiomasses:  c.mergeBiomasses,
		addCompartments: c.addCompartments,
		reactionMap:     make(map[Key]string),
		metaboliteMap:   make(map[Key]string),
		geneMap:         make(map[Key]string),
		envExchanges:    make(map[string]string),
		envBounds:       make(map[string][2]float64),
		biomass:         make(map[string]string),
		reactions:       make(map[string][]string),
		exchanges:       make(map[string]map[string]string),
	}
	shared := model.Compartment{ID: SharedCompartment, Name: "shared environment", External: true}
	if err := m.addCompartment(shared, "community"); err != nil {
		return nil, err
	}
	if c.mergeBiomasses {
		if err := m.addCompartment(model.Compartment{ID: BiomassCompartment, Name: "biomass"}, "community"); err != nil {
			return nil, err
		}
		if err := m.addMetabolite(model.Metabolite{ID: CommunityBiomass, Compartment: BiomassCompartment}, "community"); err != nil {
			return nil, err
		}
	}

	for _, org := range c.organisms {
		if err := m.addOrganism(org); err != nil {
			return nil, fmt.Errorf("merge organism %s: %w", org.ID, err)
		}
	}

	for _, met := range m.extMets {
		bounds := m.envBounds[met]
		rxn := model.Reaction{
			ID:            ExchangeID(met),
			Stoichiometry: map[string]float64{met: -1},
			Lower:         bounds[0],
			Upper:         bounds[1],
		}
		if err := m.addReaction(rxn, "environment"); err != nil {
			return nil, err
		}
		m.envExchanges[met] = rxn.ID
	}

	objective := make(map[string]float64)
	if c.mergeBiomasses {
		growth := model.Reaction{ID: GrowthReaction, Name: "community growth", Lower: 0, Upper: math.Inf(1)}
		sink := model.Reaction{
			ID:            BiomassSink,
			Stoichiometry: map[string]float64{CommunityBiomass: -1},
			Lower:         0,
			Upper:         math.Inf(1),
		}
		for _, rxn := range []model.Reaction{growth, sink} {
			if err := m.addReaction(rxn, "community"); err != nil {
				return nil, err
			}
		}
		if err := m.setGrowthStoichiometry(c.abundance); err != nil {
			return nil, err
		}
		objective[GrowthReaction] = 1
	} else {
		for _, org := range m.organisms {
			objective[m.biomass[org]] = 1
		}
	}
	if err := m.model.SetObjective(objective); err != nil {
		return nil, err
	}
	return m, nil
}

// addReaction, addMetabolite and addCompartment add an identifier that must
// be new to the merged model. Prefixing and suffixing organism identifiers is
// not injective, so two organisms can still map onto the same one. owner
// names whoever asked for the identifier.
func (m *Merged) addReaction(r model.Reaction, owner string) error {
	if _, ok := m.model.Reaction(r.ID); ok {
		return configError("%s: reaction %q is already taken in the merged model", owner, r.ID)
	}
	return m.model.AddReaction(r)
}

func (m *Merged) addMetabolite(met model.Metabolite, owner string) error {
	if _, ok := m.model.Metabolite(met.ID); ok {
		return configError("%s: metabolite %q is already taken in the merged model", owner, met.ID)
	}
	return m.model.AddMetabolite(met)
}

func (m *Merged) addCompartment(comp model.Compartment, owner string) error {
	if slices.ContainsFunc(m.model.Compartments(), func(c model.Compartment) bool { return c.ID == comp.ID }) {
		return configError("%s: compartment %q is already taken in the merged model", owner, comp.ID)
	}
	return m.model.AddCompartment(comp)
}

func (m *Merged) addShared(met model.Metabolite, owner string) error {
	if existing, ok := m.model.Metabolite(met.ID); ok {
		if existing.Compartment != SharedCompartment {
			return configError("%s: shared metabolite %q is already taken in the merged model", owner, met.ID)
		}
		return nil
	}
	return m.model.AddMetabolite(model.Metabolite{ID: met.ID, Name: met.Name, Compartment: SharedCompartment})
}

func (m *Merged) addOrganism(org *Organism) error {
	a := org.Adapter
	owner := "organism " + org.ID
	external := make(map[string]bool)
	for _, comp := range a.Compartments() {
		if comp.External {
			external[comp.ID] = true
			if !m.addCompartments {
				continue
			}
		}
		private := model.Compartment{ID: org.metaboliteID(comp.ID), Name: comp.Name}
		if err := m.addCompartment(private, owner); err != nil {
			return err
		}
	}

	for _, id := range a.Metabolites() {
		met, _ := a.Metabolite(id)
		if external[met.Compartment] && !m.addCompartments {
			if err := m.addShared(met, owner); err != nil {
				return err
			}
			m.metaboliteMap[Key{org.ID, id}] = id
			continue
		}
		gid := org.metaboliteID(id)
		private := model.Metabolite{ID: gid, Name: met.Name, Compartment: org.metaboliteID(met.Compartment)}
		if err := m.addMetabolite(private, owner); err != nil {
			return err
		}
		m.metaboliteMap[Key{org.ID, id}] = gid
	}
	if m.mergeBiomasses {
		pseudo := model.Metabolite{ID: BiomassMetabolite(org.ID), Compartment: BiomassCompartment}
		if err := m.addMetabolite(pseudo, owner); err != nil {
			return err
		}
	}

	for _, g := range a.Genes() {
		gid := org.geneID(g)
		if m.model.HasGene(gid) {
			return configError("%s: gene %q is already taken in the merged model", owner, gid)
		}
		m.model.AddGene(gid)
		m.geneMap[Key{org.ID, g}] = gid
	}

	exchanges := make(map[string]bool)
	for _, rxn := range a.ExchangeReactions() {
		exchanges[rxn] = true
	}
	m.exchanges[org.ID] = make(map[string]string)

	for _, id := range a.Reactions() {
		r, _ := a.Reaction(id)
		lower, upper, err := a.Bounds(id)
		if err != nil {
			return err
		}
		if exchanges[id] {
			if err := m.addExchange(org, r, lower, upper); err != nil {
				return err
			}
			continue
		}

		rxn := model.Reaction{
			ID:            org.reactionID(id),
			Name:          r.Name,
			Stoichiometry: make(map[string]float64, len(r.Stoichiometry)+1),
			Lower:         lower,
			Upper:         upper,
		}
		for met, coef := range r.Stoichiometry {
			rxn.Stoichiometry[m.metaboliteMap[Key{org.ID, met}]] = coef
		}
		for _, g := range r.Genes {
			rxn.Genes = append(rxn.Genes, m.geneMap[Key{org.ID, g}])
		}
		if id == org.Biomass {
			if m.mergeBiomasses {
				rxn.Stoichiometry[BiomassMetabolite(org.ID)] = 1
			}
			m.biomass[org.ID] = rxn.ID
		}
		if err := m.addReaction(rxn, owner); err != nil {
			return err
		}
		m.reactionMap[Key{org.ID, id}] = rxn.ID
		m.reactions[org.ID] = append(m.reactions[org.ID], rxn.ID)
	}
	return nil
}

// addExchange routes an organism's exchange reaction into the shared pool.
// With private compartments it becomes a 1:1 transport whose positive flux
// moves the metabolite into the shared compartment; otherwise it is replaced
// by the environment exchange. Either way the environment exchange bounds
// widen to cover the organism's.
func (m *Merged) addExchange(org *Organism, r model.Reaction, lower, upper float64) error {
	var met string
	var coef float64
	for id, c := range r.Stoichiometry {
		met, coef = id, c
	}
	if coef > 0 {
		lower, upper = -upper, -lower
	}
	scale := math.Abs(coef)

	local, _ := org.Adapter.Metabolite(met)
	if err := m.addShared(local, "organism "+org.ID); err != nil {
		return err
	}
	if bounds, ok := m.envBounds[met]; ok {
		m.envBounds[met] = [2]float64{math.Min(bounds[0], scale*lower), math.Max(bounds[1], scale*upper)}
	} else {
		m.envBounds[met] = [2]float64{scale * lower, scale * upper}
		m.extMets = append(m.extMets, met)
	}

	if !m.addCompartments {
		m.reactionMap[Key{org.ID, r.ID}] = ExchangeID(met)
		return nil
	}
	transport := model.Reaction{
		ID:   org.reactionID(r.ID),
		Name: r.Name,
		Stoichiometry: map[string]float64{
			m.metaboliteMap[Key{org.ID, met}]: -scale,
			met:                               scale,
		},
		Lower: lower,
		Upper: upper,
	}
	for _, g := range r.Genes {
		transport.Genes = append(transport.Genes, m.geneMap[Key{org.ID, g}])
	}
	if err := m.addReaction(transport, "organism "+org.ID); err != nil {
		return err
	}
	m.reactionMap[Key{org.ID, r.ID}] = transport.ID
	m.reactions[org.ID] = append(m.reactions[org.ID], transport.ID)
	m.exchanges[org.ID][transport.ID] = met
	return nil
}

// setGrowthStoichiometry points the community growth reaction at the current
// abundance. Organisms with zero abundance drop out of it, which pins their
// biomass flux to zero.
func (m *Merged) setGrowthStoichiometry(abundance map[string]float64) error {
	if !m.mergeBiomasses {
		return nil
	}
	stoich := map[string]float64{CommunityBiomass: 1}
	for _, org := range m.organisms {
		if x := abundance[org]; x > 0 {
			stoich[BiomassMetabolite(org)] = -x
		}
	}
	return m.model.SetStoichiometry(GrowthReaction, stoich)
}

func (m *Merged) applyEnvironment(env map[string]float64) error {
	for _, met := range m.extMets {
		bounds := m.envBounds[met]
		lower := bounds[0]
		if env != nil {
			lower = -env[met]
		}
		if err := m.model.SetBounds(m.envExchanges[met], lower, math.Max(lower, bounds[1])); err != nil {
			return err
		}
	}
	return nil
}

// Model is the merged stoichiometric model. Callers must treat it as read
// only; bounds and abundance change through the Community.
func (m *Merged) Model() *model.Model {
	return m.model
}

func (m *Merged) Organisms() []string {
	return slices.Clone(m.organisms)
}

func (m *Merged) MergeBiomasses() bool {
	return m.mergeBiomasses
}

func (m *Merged) AddCompartments() bool {
	return m.addCompartments
}

func (m *Merged) ReactionMap() map[Key]string {
	return maps.Clone(m.reactionMap)
}

func (m *Merged) MetaboliteMap() map[Key]string {
	return maps.Clone(m.metaboliteMap)
}

func (m *Merged) GeneMap() map[Key]string {
	return maps.Clone(m.geneMap)
}

// ExtMets returns the shared metabolites exchanged with the environment in
// the order they were first seen.
func (m *Merged) ExtMets() []string {
	return slices.Clone(m.extMets)
}

// EnvironmentExchanges maps every shared metabolite to its environment
// exchange reaction.
func (m *Merged) EnvironmentExchanges() map[string]string {
	return maps.Clone(m.envExchanges)
}

// ExchangeBounds are the bounds of a shared metabolite's environment
// exchange derived from the organisms, before any environment is applied.
func (m *Merged) ExchangeBounds(met string) (lower, upper float64) {
	bounds := m.envBounds[met]
	return bounds[0], bounds[1]
}

func (m *Merged) Biomass(org string) string {
	return m.biomass[org]
}

func (m *Merged) OrganismsBiomass() map[string]string {
	return maps.Clone(m.biomass)
}

// OrganismReactions returns the merged reactions owned by one organism,
// transports included and environment exchanges excluded.
func (m *Merged) OrganismReactions(org string) []string {
	return slices.Clone(m.reactions[org])
}

// OrganismExchanges maps an organism's transport reactions to the shared
// metabolite they move. It is empty without private compartments.
func (m *Merged) OrganismExchanges(org string) map[string]string {
	return maps.Clone(m.exchanges[org])
}
