// Package community merges several organism models into one community model
// sharing a common environment.
package community

import (
	"math"
	"slices"
	"strings"

	"github.com/go-logr/logr"
	"golang.org/x/exp/maps"

	"microcom/src/model"
)

const (
	// SharedCompartment holds the metabolites organisms exchange with the
	// environment and with each other.
	SharedCompartment = "e"
	// BiomassCompartment holds the biomass pseudo-metabolites. It is not
	// external, so the community biomass sink is not an exchange reaction.
	BiomassCompartment = "bm"
	CommunityBiomass   = "community_biomass"
	GrowthReaction     = "community_growth"
	BiomassSink        = "EX_community_biomass"

	// AbundanceTol is how far from 1 an abundance map may sum when it is not
	// normalized on the way in.
	AbundanceTol = 1e-6
)

// ExchangeID is the environment exchange of a shared metabolite.
func ExchangeID(met string) string {
	return "EX_" + met
}

// BiomassMetabolite is the pseudo-metabolite an organism's biomass reaction
// produces when biomasses are merged.
func BiomassMetabolite(org string) string {
	return "Biomass_" + org
}

// Key identifies a reaction, metabolite or gene of one organism.
type Key struct {
	Org string
	ID  string
}

// Organism is one member of the community and the identifier transform that
// keeps its reactions, metabolites and genes apart from the others'.
type Organism struct {
	ID      string
	Adapter model.OrganismAdapter
	// Reaction and gene identifiers become Prefix+id, metabolites and
	// compartments id+Suffix.
	Prefix  string
	Suffix  string
	Biomass string
}

func (o *Organism) reactionID(id string) string {
	return o.Prefix + id
}

func (o *Organism) geneID(id string) string {
	return o.Prefix + id
}

func (o *Organism) metaboliteID(id string) string {
	return id + o.Suffix
}

// Community is a set of organisms merged into one model. It is not safe for
// concurrent use; every computation owns its Community.
type Community struct {
	organisms []*Organism
	byID      map[string]*Organism

	mergeBiomasses  bool
	addCompartments bool

	abundance   map[string]float64
	environment map[string]float64

	merged *Merged
	logger logr.Logger
}

type Option func(*Community)

// WithMergeBiomasses adds a community growth reaction consuming every
// organism's biomass in proportion to its abundance.
func WithMergeBiomasses(merge bool) Option {
	return func(c *Community) {
		c.mergeBiomasses = merge
	}
}

// WithAddCompartments keeps a private external compartment per organism
// connected to the shared one by transport reactions.
func WithAddCompartments(add bool) Option {
	return func(c *Community) {
		c.addCompartments = add
	}
}

func WithLogger(logger logr.Logger) Option {
	return func(c *Community) {
		c.logger = logger
	}
}

// Build merges the organisms into a community. Organisms are identified by
// their adapter ID, which must be unique and non-empty, and every organism
// needs an objective naming its biomass reaction. Abundance starts uniform.
func Build(organisms []model.OrganismAdapter, opts ...Option) (*Community, error) {
	if len(organisms) == 0 {
		return nil, configError("no organisms")
	}
	c := &Community{
		byID:   make(map[string]*Organism, len(organisms)),
		logger: logr.Discard(),
	}
	for _, opt := range opts {
		opt(c)
	}

	for _, a := range organisms {
		if a == nil {
			return nil, configError("nil organism")
		}
		id := a.ID()
		if id == "" {
			return nil, configError("organism with empty id")
		}
		if _, ok := c.byID[id]; ok {
			return nil, configError("duplicate organism %q", id)
		}
		biomass, err := model.Biomass(a)
		if err != nil {
			return nil, configError("%v", err)
		}
		org := &Organism{
			ID:      id,
			Adapter: a,
			Prefix:  id + "_",
			Suffix:  "_" + id,
			Biomass: biomass,
		}
		c.organisms = append(c.organisms, org)
		c.byID[id] = org
	}

	c.abundance = make(map[string]float64, len(c.organisms))
	for _, org := range c.organisms {
		c.abundance[org.ID] = 1 / float64(len(c.organisms))
	}

	if _, err := c.Merged(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Community) ID() string {
	return strings.Join(c.Organisms(), "+")
}

// Organisms returns the organism identifiers in construction order.
func (c *Community) Organisms() []string {
	ids := make([]string, len(c.organisms))
	for i, org := range c.organisms {
		ids[i] = org.ID
	}
	return ids
}

func (c *Community) Organism(id string) (Organism, bool) {
	org, ok := c.byID[id]
	if !ok {
		return Organism{}, false
	}
	return *org, true
}

func (c *Community) MergeBiomasses() bool {
	return c.mergeBiomasses
}

func (c *Community) AddCompartments() bool {
	return c.addCompartments
}

// SetMergeBiomasses changes a structural flag. The merged model is rebuilt on
// next use when the value differs.
func (c *Community) SetMergeBiomasses(merge bool) {
	if merge != c.mergeBiomasses {
		c.mergeBiomasses = merge
		c.Invalidate()
	}
}

func (c *Community) SetAddCompartments(add bool) {
	if add != c.addCompartments {
		c.addCompartments = add
		c.Invalidate()
	}
}

// Invalidate drops the merged model. It is rebuilt from scratch on next use.
func (c *Community) Invalidate() {
	c.merged = nil
}

// Merged returns the merged model, rebuilding it first if a structural flag
// changed since it was last built.
func (c *Community) Merged() (*Merged, error) {
	if c.merged != nil {
		return c.merged, nil
	}
	m, err := c.merge()
	if err != nil {
		return nil, err
	}
	if err := m.applyEnvironment(c.environment); err != nil {
		return nil, err
	}
	c.merged = m
	c.logger.V(1).Info("Merged community model",
		"community", c.ID(),
		"reactions", len(m.model.Reactions()),
		"metabolites", len(m.model.Metabolites()),
		"sharedMetabolites", len(m.extMets),
		"mergeBiomasses", c.mergeBiomasses,
		"addCompartments", c.addCompartments)
	return m, nil
}

func (c *Community) Abundance() map[string]float64 {
	return maps.Clone(c.abundance)
}

// SetAbundance replaces the abundance vector. Organisms missing from the map
// get zero. Without normalize the values must already sum to 1.
func (c *Community) SetAbundance(abundance map[string]float64, normalize bool) error {
	var unknown []string
	for id := range abundance {
		if _, ok := c.byID[id]; !ok {
			unknown = append(unknown, id)
		}
	}
	if len(unknown) > 0 {
		slices.Sort(unknown)
		return &UnknownOrganismError{Unknown: unknown, Valid: c.Organisms()}
	}

	total := 0.0
	for id, x := range abundance {
		if x < 0 || math.IsNaN(x) || math.IsInf(x, 0) {
			return configError("abundance of %s is %g", id, x)
		}
		total += x
	}
	if total < AbundanceTol {
		return configError("abundance values sum to %g", total)
	}
	if !normalize && math.Abs(total-1) > AbundanceTol {
		return configError("abundance values sum to %g, not 1", total)
	}

	next := make(map[string]float64, len(c.organisms))
	for _, org := range c.organisms {
		next[org.ID] = abundance[org.ID] / total
	}
	c.abundance = next
	if c.merged != nil {
		return c.merged.setGrowthStoichiometry(c.abundance)
	}
	return nil
}

// Environment returns the medium set with SetEnvironment, nil if none.
func (c *Community) Environment() map[string]float64 {
	if c.environment == nil {
		return nil
	}
	return maps.Clone(c.environment)
}

// SetEnvironment sets the medium as the maximum uptake rate of each shared
// metabolite. Shared metabolites absent from env cannot be taken up. A nil
// env restores the uptake bounds derived from the organisms.
func (c *Community) SetEnvironment(env map[string]float64) error {
	m, err := c.Merged()
	if err != nil {
		return err
	}
	var unknown []string
	for met, uptake := range env {
		if _, ok := m.envExchanges[met]; !ok {
			unknown = append(unknown, met)
			continue
		}
		if uptake < 0 || math.IsNaN(uptake) {
			return configError("uptake of %s is %g", met, uptake)
		}
	}
	if len(unknown) > 0 {
		slices.Sort(unknown)
		return configError("environment references metabolites not exchanged by any organism: %s",
			strings.Join(unknown, ", "))
	}
	if env != nil {
		env = maps.Clone(env)
	}
	if err := m.applyEnvironment(env); err != nil {
		return err
	}
	c.environment = env
	return nil
}

// MaxFiniteBound is the largest finite reaction bound magnitude across all
// organisms, 0 if there is none.
func (c *Community) MaxFiniteBound() float64 {
	largest := 0.0
	for _, org := range c.organisms {
		for _, rxn := range org.Adapter.Reactions() {
			lower, upper, err := org.Adapter.Bounds(rxn)
			if err != nil {
				continue
			}
			for _, b := range []float64{lower, upper} {
				if !math.IsInf(b, 0) {
					largest = math.Max(largest, math.Abs(b))
				}
			}
		}
	}
	return largest
}

const (
	MinBigM = 1e3
	MaxBigM = 1e6
)

// BigM is the finite surrogate for infinite bounds in this community:
// safety times the largest finite bound, clamped to [MinBigM, MaxBigM].
func (c *Community) BigM(safety float64) float64 {
	return math.Min(math.Max(safety*c.MaxFiniteBound(), MinBigM), MaxBigM)
}
