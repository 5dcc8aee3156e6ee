package model_test

import (
	"bytes"
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"microcom/src/lp"
	"microcom/src/model"
	"microcom/src/model/modeltest"
)

func TestExchangeReactionsNeedOneExternalMetabolite(t *testing.T) {
	m := modeltest.CrossFeeder("A", "m", "n")
	assert.Equal(t, []string{"EX_glc_e", "EX_m_e", "EX_n_e"}, m.ExchangeReactions())
}

func TestBiomassUsesObjective(t *testing.T) {
	m := modeltest.Grower("G", 10)
	id, err := model.Biomass(m)
	require.NoError(t, err)
	assert.Equal(t, "Biomass", id)

	_, err = model.Biomass(modeltest.NoObjective("N"))
	assert.Error(t, err)
}

func TestAddReactionValidates(t *testing.T) {
	m := modeltest.Grower("G", 10)
	assert.Error(t, m.AddReaction(model.Reaction{ID: "Biomass"}))
	assert.Error(t, m.AddReaction(model.Reaction{ID: "R", Lower: 1, Upper: 0}))
	assert.Error(t, m.AddReaction(model.Reaction{ID: "R", Stoichiometry: map[string]float64{"x": 1}}))
	assert.Error(t, m.SetObjective(map[string]float64{"missing": 1}))
	assert.Error(t, m.SetBounds("Biomass", 2, 1))
}

func TestReactionIsACopy(t *testing.T) {
	m := modeltest.Grower("G", 10)
	r, ok := m.Reaction("Biomass")
	require.True(t, ok)
	r.Stoichiometry["glc_c"] = 0
	again, _ := m.Reaction("Biomass")
	assert.Equal(t, -modeltest.GlucosePerBiomass, again.Stoichiometry["glc_c"])
}

func TestMetaboliteReactions(t *testing.T) {
	table := modeltest.Grower("G", 10).MetaboliteReactions()
	assert.Equal(t, map[string]float64{"EX_glc_e": -1, "T_glc": -1}, table["glc_e"])
	assert.Equal(t, map[string]float64{"T_glc": 1, "Biomass": -modeltest.GlucosePerBiomass}, table["glc_c"])
}

func TestMassBalance(t *testing.T) {
	m := modeltest.Grower("G", 10)
	steady := map[string]float64{"EX_glc_e": -10, "T_glc": 10, "Biomass": 1}
	assert.InDelta(t, 0, mat.Norm(model.MassBalance(m, steady), math.Inf(1)), 1e-12)

	broken := map[string]float64{"EX_glc_e": -10, "T_glc": 10, "Biomass": 2}
	sv := model.MassBalance(m, broken)
	for i, met := range m.Metabolites() {
		want := 0.0
		if met == "glc_c" {
			want = -10
		}
		assert.InDelta(t, want, sv.AtVec(i), 1e-12, met)
	}
}

func TestMaxGrowth(t *testing.T) {
	s, err := lp.Open(lp.Config{Backend: lp.BackendHighs})
	require.NoError(t, err)
	defer s.Close()

	mu, err := model.MaxGrowth(s, modeltest.Grower("G", 8))
	require.NoError(t, err)
	assert.InDelta(t, 0.8, mu, 1e-6)

	mu, err = model.MaxGrowth(s, modeltest.Flexible("F", "s1", "s2"))
	require.NoError(t, err)
	assert.InDelta(t, 2.0, mu, 1e-6)
}

const fileModel = `
id: tiny
compartments:
  - {id: c}
  - {id: e, external: true}
metabolites:
  - {id: a_e, compartment: e}
  - {id: a_c, compartment: c}
reactions:
  - id: EX_a
    stoichiometry: {a_e: -1}
    lower: -5
    upper: 1000
  - id: T_a
    stoichiometry: {a_e: -1, a_c: 1}
    reversible: true
    genes: [g1]
  - id: Growth
    stoichiometry: {a_c: -1}
objective: {Growth: 1}
`

func TestDecode(t *testing.T) {
	m, err := model.Decode(strings.NewReader(fileModel))
	require.NoError(t, err)
	assert.Equal(t, "tiny", m.ID())
	assert.Equal(t, []string{"EX_a"}, m.ExchangeReactions())
	assert.Equal(t, []string{"g1"}, m.Genes())

	lower, upper, err := m.Bounds("T_a")
	require.NoError(t, err)
	assert.True(t, math.IsInf(lower, -1))
	assert.True(t, math.IsInf(upper, 1))
	lower, _, _ = m.Bounds("Growth")
	assert.Equal(t, 0.0, lower)

	var buf bytes.Buffer
	require.NoError(t, model.Encode(&buf, m))
	again, err := model.Decode(&buf)
	require.NoError(t, err)
	assert.Equal(t, m.Reactions(), again.Reactions())
	lower, _, _ = again.Bounds("T_a")
	assert.True(t, math.IsInf(lower, -1))
}

func TestDecodeRejectsUnknownFields(t *testing.T) {
	_, err := model.Decode(strings.NewReader("id: x\nreactionz: []\n"))
	assert.Error(t, err)
	_, err = model.Decode(strings.NewReader("compartments: []\n"))
	assert.Error(t, err)
}
