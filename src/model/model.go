package model

import (
	"fmt"
	"maps"
	"math"
	"slices"
	"strings"
)

// OrganismAdapter is the capability the community core needs from one
// organism's genome-scale model.
type OrganismAdapter interface {
	ID() string
	Reactions() []string
	Metabolites() []string
	Genes() []string
	Compartments() []Compartment
	Reaction(id string) (Reaction, bool)
	Metabolite(id string) (Metabolite, bool)
	Bounds(rxn string) (lower, upper float64, err error)
	SetBounds(rxn string, lower, upper float64) error
	ExchangeReactions() []string
	Objective() map[string]float64
	SetObjective(objective map[string]float64) error
	// MetaboliteReactions maps every metabolite to the reactions it takes
	// part in and its stoichiometric coefficient there.
	MetaboliteReactions() map[string]map[string]float64
}

type Compartment struct {
	ID       string `yaml:"id"`
	Name     string `yaml:"name,omitempty"`
	External bool   `yaml:"external,omitempty"`
}

type Metabolite struct {
	ID          string `yaml:"id"`
	Name        string `yaml:"name,omitempty"`
	Compartment string `yaml:"compartment"`
}

type Reaction struct {
	ID            string
	Name          string
	Stoichiometry map[string]float64
	Lower         float64
	Upper         float64
	Genes         []string
}

// Model is an in-memory constraint-based model. Every listing keeps insertion
// order so formulations built from it are deterministic.
type Model struct {
	id           string
	compartments []Compartment
	compIndex    map[string]int
	metabolites  []Metabolite
	metIndex     map[string]int
	reactions    []*Reaction
	rxnIndex     map[string]int
	genes        []string
	geneIndex    map[string]bool
	objective    map[string]float64
}

func New(id string) *Model {
	return &Model{
		id:        id,
		compIndex: make(map[string]int),
		metIndex:  make(map[string]int),
		rxnIndex:  make(map[string]int),
		geneIndex: make(map[string]bool),
		objective: make(map[string]float64),
	}
}

func (m *Model) ID() string {
	return m.id
}

func (m *Model) AddCompartment(c Compartment) error {
	if c.ID == "" {
		return fmt.Errorf("model %s: empty compartment id", m.id)
	}
	if _, ok := m.compIndex[c.ID]; ok {
		return fmt.Errorf("model %s: duplicate compartment %q", m.id, c.ID)
	}
	m.compIndex[c.ID] = len(m.compartments)
	m.compartments = append(m.compartments, c)
	return nil
}

func (m *Model) AddMetabolite(met Metabolite) error {
	if met.ID == "" {
		return fmt.Errorf("model %s: empty metabolite id", m.id)
	}
	if _, ok := m.metIndex[met.ID]; ok {
		return fmt.Errorf("model %s: duplicate metabolite %q", m.id, met.ID)
	}
	if _, ok := m.compIndex[met.Compartment]; !ok {
		return fmt.Errorf("model %s: metabolite %q in unknown compartment %q", m.id, met.ID, met.Compartment)
	}
	m.metIndex[met.ID] = len(m.metabolites)
	m.metabolites = append(m.metabolites, met)
	return nil
}

func (m *Model) AddGene(id string) {
	if id == "" || m.geneIndex[id] {
		return
	}
	m.geneIndex[id] = true
	m.genes = append(m.genes, id)
}

func (m *Model) HasGene(id string) bool {
	return m.geneIndex[id]
}

func (m *Model) AddReaction(r Reaction) error {
	if r.ID == "" {
		return fmt.Errorf("model %s: empty reaction id", m.id)
	}
	if _, ok := m.rxnIndex[r.ID]; ok {
		return fmt.Errorf("model %s: duplicate reaction %q", m.id, r.ID)
	}
	if r.Lower > r.Upper || math.IsNaN(r.Lower) || math.IsNaN(r.Upper) {
		return fmt.Errorf("model %s: reaction %q has invalid bounds [%g, %g]", m.id, r.ID, r.Lower, r.Upper)
	}
	for met := range r.Stoichiometry {
		if _, ok := m.metIndex[met]; !ok {
			return fmt.Errorf("model %s: reaction %q uses unknown metabolite %q", m.id, r.ID, met)
		}
	}
	r.Stoichiometry = maps.Clone(r.Stoichiometry)
	r.Genes = slices.Clone(r.Genes)
	for _, g := range r.Genes {
		m.AddGene(g)
	}
	m.rxnIndex[r.ID] = len(m.reactions)
	m.reactions = append(m.reactions, &r)
	return nil
}

// SetStoichiometry replaces the coefficients of an existing reaction.
func (m *Model) SetStoichiometry(rxn string, stoichiometry map[string]float64) error {
	i, ok := m.rxnIndex[rxn]
	if !ok {
		return fmt.Errorf("model %s: unknown reaction %q", m.id, rxn)
	}
	for met := range stoichiometry {
		if _, ok := m.metIndex[met]; !ok {
			return fmt.Errorf("model %s: reaction %q uses unknown metabolite %q", m.id, rxn, met)
		}
	}
	m.reactions[i].Stoichiometry = maps.Clone(stoichiometry)
	return nil
}

func (m *Model) Reactions() []string {
	ids := make([]string, len(m.reactions))
	for i, r := range m.reactions {
		ids[i] = r.ID
	}
	return ids
}

func (m *Model) Metabolites() []string {
	ids := make([]string, len(m.metabolites))
	for i, met := range m.metabolites {
		ids[i] = met.ID
	}
	return ids
}

func (m *Model) Genes() []string {
	return slices.Clone(m.genes)
}

func (m *Model) Compartments() []Compartment {
	return slices.Clone(m.compartments)
}

func (m *Model) Reaction(id string) (Reaction, bool) {
	i, ok := m.rxnIndex[id]
	if !ok {
		return Reaction{}, false
	}
	r := *m.reactions[i]
	r.Stoichiometry = maps.Clone(r.Stoichiometry)
	r.Genes = slices.Clone(r.Genes)
	return r, true
}

func (m *Model) Metabolite(id string) (Metabolite, bool) {
	i, ok := m.metIndex[id]
	if !ok {
		return Metabolite{}, false
	}
	return m.metabolites[i], true
}

func (m *Model) Bounds(rxn string) (lower, upper float64, err error) {
	i, ok := m.rxnIndex[rxn]
	if !ok {
		return 0, 0, fmt.Errorf("model %s: unknown reaction %q", m.id, rxn)
	}
	return m.reactions[i].Lower, m.reactions[i].Upper, nil
}

func (m *Model) SetBounds(rxn string, lower, upper float64) error {
	i, ok := m.rxnIndex[rxn]
	if !ok {
		return fmt.Errorf("model %s: unknown reaction %q", m.id, rxn)
	}
	if lower > upper {
		return fmt.Errorf("model %s: reaction %q: lower bound %g exceeds upper bound %g", m.id, rxn, lower, upper)
	}
	m.reactions[i].Lower = lower
	m.reactions[i].Upper = upper
	return nil
}

func (m *Model) isExternal(met string) bool {
	i, ok := m.metIndex[met]
	if !ok {
		return false
	}
	return m.compartments[m.compIndex[m.metabolites[i].Compartment]].External
}

// ExchangeReactions returns the reactions touching exactly one metabolite
// when that metabolite sits in an external compartment.
func (m *Model) ExchangeReactions() []string {
	var ids []string
	for _, r := range m.reactions {
		if len(r.Stoichiometry) != 1 {
			continue
		}
		for met := range r.Stoichiometry {
			if m.isExternal(met) {
				ids = append(ids, r.ID)
			}
		}
	}
	return ids
}

func (m *Model) Objective() map[string]float64 {
	return maps.Clone(m.objective)
}

func (m *Model) SetObjective(objective map[string]float64) error {
	for rxn := range objective {
		if _, ok := m.rxnIndex[rxn]; !ok {
			return fmt.Errorf("model %s: objective references unknown reaction %q", m.id, rxn)
		}
	}
	m.objective = make(map[string]float64, len(objective))
	for rxn, coef := range objective {
		if coef != 0 {
			m.objective[rxn] = coef
		}
	}
	return nil
}

func (m *Model) MetaboliteReactions() map[string]map[string]float64 {
	table := make(map[string]map[string]float64, len(m.metabolites))
	for _, met := range m.metabolites {
		table[met.ID] = make(map[string]float64)
	}
	for _, r := range m.reactions {
		for met, coef := range r.Stoichiometry {
			table[met][r.ID] = coef
		}
	}
	return table
}

func (m *Model) String() string {
	s := new(strings.Builder)
	fmt.Fprintf(s, "Model: %s\n", m.id)
	fmt.Fprintf(s, "N. compartments: %d\n", len(m.compartments))
	fmt.Fprintf(s, "N. metabolites: %d\n", len(m.metabolites))
	fmt.Fprintf(s, "N. reactions: %d\n", len(m.reactions))
	fmt.Fprintf(s, "N. genes: %d\n", len(m.genes))
	fmt.Fprintf(s, "Objective: %v", m.objective)
	return s.String()
}

// Biomass returns the reaction an organism grows by: the objective reaction
// with the largest coefficient, ties broken by identifier.
func Biomass(a OrganismAdapter) (string, error) {
	objective := a.Objective()
	if len(objective) == 0 {
		return "", fmt.Errorf("organism %s has no objective", a.ID())
	}
	ids := make([]string, 0, len(objective))
	for rxn := range objective {
		ids = append(ids, rxn)
	}
	slices.Sort(ids)
	best := ids[0]
	for _, rxn := range ids[1:] {
		if objective[rxn] > objective[best] {
			best = rxn
		}
	}
	return best, nil
}
