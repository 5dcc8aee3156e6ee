package community_test

import (
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"microcom/src/community"
	"microcom/src/lp"
	"microcom/src/model"
	"microcom/src/model/modeltest"
)

func growers(uptakes ...float64) []model.OrganismAdapter {
	ids := []string{"A", "B", "C"}
	var orgs []model.OrganismAdapter
	for i, u := range uptakes {
		orgs = append(orgs, modeltest.Grower(ids[i], u))
	}
	return orgs
}

func TestBuildConfigErrors(t *testing.T) {
	_, err := community.Build(nil)
	assert.ErrorIs(t, err, community.ErrConfig)

	_, err = community.Build([]model.OrganismAdapter{modeltest.Grower("A", 10), modeltest.Grower("A", 5)})
	assert.ErrorIs(t, err, community.ErrConfig)

	_, err = community.Build([]model.OrganismAdapter{modeltest.Grower("A", 10), modeltest.NoObjective("B")})
	assert.ErrorIs(t, err, community.ErrConfig)
}

func TestMergedIdentifierCollisions(t *testing.T) {
	// a + b_Biomass and a_b + Biomass both become a_b_Biomass
	a := modeltest.Grower("a", 10)
	require.NoError(t, a.AddReaction(model.Reaction{ID: "b_Biomass", Stoichiometry: map[string]float64{"glc_c": -1}, Upper: 1}))
	_, err := community.Build([]model.OrganismAdapter{a, modeltest.Grower("a_b", 10)})
	assert.ErrorIs(t, err, community.ErrConfig)
	assert.ErrorContains(t, err, `"a_b_Biomass"`)

	// a metabolite named Biomass in A is suffixed into A's biomass pseudo-metabolite
	g := modeltest.Grower("A", 10)
	require.NoError(t, g.AddMetabolite(model.Metabolite{ID: "Biomass", Compartment: modeltest.Cytosol}))
	_, err = community.Build([]model.OrganismAdapter{g}, community.WithMergeBiomasses(true))
	assert.ErrorIs(t, err, community.ErrConfig)
	assert.ErrorContains(t, err, community.BiomassMetabolite("A"))

	_, err = community.Build([]model.OrganismAdapter{g}, community.WithMergeBiomasses(false))
	assert.NoError(t, err)
}

func TestBuildIsIdempotent(t *testing.T) {
	for _, add := range []bool{false, true} {
		orgs := []model.OrganismAdapter{modeltest.CrossFeeder("A", "m", "n"), modeltest.CrossFeeder("B", "n", "m")}
		first, err := community.Build(orgs, community.WithMergeBiomasses(true), community.WithAddCompartments(add))
		require.NoError(t, err)
		second, err := community.Build(orgs, community.WithMergeBiomasses(true), community.WithAddCompartments(add))
		require.NoError(t, err)

		m1, err := first.Merged()
		require.NoError(t, err)
		m2, err := second.Merged()
		require.NoError(t, err)
		assert.Empty(t, cmp.Diff(m1.ReactionMap(), m2.ReactionMap()))
		assert.Empty(t, cmp.Diff(m1.MetaboliteMap(), m2.MetaboliteMap()))
		assert.Empty(t, cmp.Diff(m1.GeneMap(), m2.GeneMap()))
		assert.Equal(t, m1.Model().Reactions(), m2.Model().Reactions())
	}
}

func TestPrefixTransform(t *testing.T) {
	c, err := community.Build(growers(10, 10), community.WithAddCompartments(true))
	require.NoError(t, err)
	m, err := c.Merged()
	require.NoError(t, err)

	rxns := m.ReactionMap()
	assert.Equal(t, "A_T_glc", rxns[community.Key{Org: "A", ID: "T_glc"}])
	assert.Equal(t, "B_Biomass", rxns[community.Key{Org: "B", ID: "Biomass"}])
	assert.Equal(t, "A_EX_glc_e", rxns[community.Key{Org: "A", ID: "EX_glc_e"}])

	mets := m.MetaboliteMap()
	assert.Equal(t, "glc_c_A", mets[community.Key{Org: "A", ID: "glc_c"}])
	assert.Equal(t, "glc_e_B", mets[community.Key{Org: "B", ID: "glc_e"}])
	assert.Equal(t, "B_g_T_glc", m.GeneMap()[community.Key{Org: "B", ID: "g_T_glc"}])

	met, ok := m.Model().Metabolite("glc_e_A")
	require.True(t, ok)
	assert.Equal(t, "e_A", met.Compartment)

	assert.Equal(t, []string{"glc_e"}, m.ExtMets())
	assert.Equal(t, map[string]string{"A_EX_glc_e": "glc_e"}, m.OrganismExchanges("A"))
	assert.Equal(t, map[string]string{"A": "A_Biomass", "B": "B_Biomass"}, m.OrganismsBiomass())
	assert.Equal(t, []string{"A_EX_glc_e", "A_T_glc", "A_Biomass"}, m.OrganismReactions("A"))
}

func TestTransportIsMassPreserving(t *testing.T) {
	c, err := community.Build(growers(10), community.WithAddCompartments(true), community.WithMergeBiomasses(true))
	require.NoError(t, err)
	m, err := c.Merged()
	require.NoError(t, err)

	r, ok := m.Model().Reaction("A_EX_glc_e")
	require.True(t, ok)
	assert.Equal(t, map[string]float64{"glc_e_A": -1, "glc_e": 1}, r.Stoichiometry)
	assert.Equal(t, -10.0, r.Lower)
	assert.Equal(t, 1000.0, r.Upper)

	require.NoError(t, c.SetAbundance(map[string]float64{"A": 1}, false))
	r, _ = m.Model().Reaction("A_EX_glc_e")
	assert.Equal(t, map[string]float64{"glc_e_A": -1, "glc_e": 1}, r.Stoichiometry)
}

func TestWithoutCompartmentsExchangesAreShared(t *testing.T) {
	c, err := community.Build(growers(5, 10))
	require.NoError(t, err)
	m, err := c.Merged()
	require.NoError(t, err)

	assert.Equal(t, "EX_glc_e", m.ReactionMap()[community.Key{Org: "A", ID: "EX_glc_e"}])
	assert.Equal(t, "glc_e", m.MetaboliteMap()[community.Key{Org: "B", ID: "glc_e"}])
	assert.Empty(t, m.OrganismExchanges("A"))

	lower, upper, err := m.Model().Bounds("EX_glc_e")
	require.NoError(t, err)
	assert.Equal(t, -10.0, lower)
	assert.Equal(t, 1000.0, upper)
	assert.Equal(t, []string{"EX_glc_e"}, m.Model().ExchangeReactions())
}

func TestGrowthReactionFollowsAbundance(t *testing.T) {
	c, err := community.Build(growers(10, 10), community.WithMergeBiomasses(true))
	require.NoError(t, err)
	m, err := c.Merged()
	require.NoError(t, err)

	r, _ := m.Model().Reaction(community.GrowthReaction)
	assert.Equal(t, map[string]float64{"Biomass_A": -0.5, "Biomass_B": -0.5, community.CommunityBiomass: 1}, r.Stoichiometry)

	require.NoError(t, c.SetAbundance(map[string]float64{"A": 3, "B": 1}, true))
	again, err := c.Merged()
	require.NoError(t, err)
	assert.Same(t, m, again)
	r, _ = again.Model().Reaction(community.GrowthReaction)
	assert.Equal(t, map[string]float64{"Biomass_A": -0.75, "Biomass_B": -0.25, community.CommunityBiomass: 1}, r.Stoichiometry)

	biomass, _ := again.Model().Reaction("A_Biomass")
	assert.Equal(t, 1.0, biomass.Stoichiometry["Biomass_A"])
	assert.NotContains(t, again.Model().ExchangeReactions(), community.BiomassSink)
}

func TestStructuralFlagsRebuild(t *testing.T) {
	c, err := community.Build(growers(10, 10))
	require.NoError(t, err)
	before, err := c.Merged()
	require.NoError(t, err)

	c.SetAddCompartments(false)
	same, err := c.Merged()
	require.NoError(t, err)
	assert.Same(t, before, same)

	c.SetMergeBiomasses(true)
	after, err := c.Merged()
	require.NoError(t, err)
	assert.NotSame(t, before, after)
	assert.True(t, after.MergeBiomasses())
	assert.Equal(t, map[string]float64{community.GrowthReaction: 1}, after.Model().Objective())
	assert.Equal(t, map[string]float64{"A_Biomass": 1, "B_Biomass": 1}, before.Model().Objective())
}

func TestSetAbundance(t *testing.T) {
	c, err := community.Build(growers(10, 10, 10))
	require.NoError(t, err)

	valid := []map[string]float64{
		{"A": 1, "B": 1, "C": 2},
		{"A": 1e-3, "B": 5e-3, "C": 1e3},
		{"A": 0.1},
	}
	for _, abundance := range valid {
		require.NoError(t, c.SetAbundance(abundance, true))
		total := 0.0
		for _, x := range c.Abundance() {
			total += x
		}
		assert.InDelta(t, 1, total, 1e-12)
	}
	assert.Equal(t, map[string]float64{"A": 1, "B": 0, "C": 0}, c.Abundance())

	err = c.SetAbundance(map[string]float64{"A": 0.5, "X": 0.25, "Y": 0.25}, true)
	var unknown *community.UnknownOrganismError
	require.ErrorAs(t, err, &unknown)
	assert.Equal(t, []string{"X", "Y"}, unknown.Unknown)
	assert.Equal(t, []string{"A", "B", "C"}, unknown.Valid)
	assert.ErrorIs(t, err, community.ErrConfig)
	assert.Contains(t, err.Error(), "X")

	assert.ErrorIs(t, c.SetAbundance(map[string]float64{"A": 0, "B": 0}, true), community.ErrConfig)
	assert.ErrorIs(t, c.SetAbundance(map[string]float64{"A": -1, "B": 2}, true), community.ErrConfig)
	assert.ErrorIs(t, c.SetAbundance(map[string]float64{"A": 0.5, "B": 0.2}, false), community.ErrConfig)
	assert.ErrorIs(t, c.SetAbundance(map[string]float64{"A": math.NaN()}, true), community.ErrConfig)
	assert.Equal(t, map[string]float64{"A": 1, "B": 0, "C": 0}, c.Abundance())
}

func TestSetEnvironment(t *testing.T) {
	c, err := community.Build(growers(10, 10), community.WithAddCompartments(true))
	require.NoError(t, err)

	require.NoError(t, c.SetEnvironment(map[string]float64{"glc_e": 4}))
	m, err := c.Merged()
	require.NoError(t, err)
	lower, _, _ := m.Model().Bounds("EX_glc_e")
	assert.Equal(t, -4.0, lower)

	// survives a rebuild
	c.SetMergeBiomasses(true)
	m, err = c.Merged()
	require.NoError(t, err)
	lower, _, _ = m.Model().Bounds("EX_glc_e")
	assert.Equal(t, -4.0, lower)

	require.NoError(t, c.SetEnvironment(map[string]float64{}))
	lower, _, _ = m.Model().Bounds("EX_glc_e")
	assert.Equal(t, 0.0, lower)

	require.NoError(t, c.SetEnvironment(nil))
	lower, _, _ = m.Model().Bounds("EX_glc_e")
	assert.Equal(t, -10.0, lower)
	assert.Nil(t, c.Environment())

	assert.ErrorIs(t, c.SetEnvironment(map[string]float64{"o2_e": 10}), community.ErrConfig)
}

func TestBigM(t *testing.T) {
	c, err := community.Build(growers(10, 10))
	require.NoError(t, err)
	assert.Equal(t, 1000.0, c.MaxFiniteBound())
	assert.Equal(t, 1e4, c.BigM(10))
	assert.Equal(t, community.MinBigM, c.BigM(0.1))
	assert.Equal(t, community.MaxBigM, c.BigM(1e4))
}

func TestProblemGrowth(t *testing.T) {
	s, err := lp.Open(lp.Config{Backend: lp.BackendHighs})
	require.NoError(t, err)
	defer s.Close()

	c, err := community.Build(growers(10, 10), community.WithMergeBiomasses(true), community.WithAddCompartments(true))
	require.NoError(t, err)
	m, err := c.Merged()
	require.NoError(t, err)

	p, err := m.Problem(false)
	require.NoError(t, err)
	sol, err := s.Solve(p)
	require.NoError(t, err)
	require.True(t, sol.IsOptimal())
	assert.InDelta(t, 1.0, sol.Objective, 1e-6)
	assert.InDelta(t, 0.5, sol.Value("A_Biomass"), 1e-6)
	assert.InDelta(t, 0, mat.Norm(model.MassBalance(m.Model(), sol.Values()), math.Inf(1)), 1e-6)

	p, err = m.Problem(true)
	require.NoError(t, err)
	assert.False(t, p.HasVar(community.GrowthReaction))
	sol, err = s.Solve(p)
	require.NoError(t, err)
	require.True(t, sol.IsOptimal())
	assert.InDelta(t, 1.0, sol.Objective, 1e-6)

	require.NoError(t, c.SetEnvironment(map[string]float64{"glc_e": 5}))
	p, err = m.Problem(false)
	require.NoError(t, err)
	sol, err = s.Solve(p)
	require.NoError(t, err)
	assert.InDelta(t, 0.5, sol.Objective, 1e-6)
}
