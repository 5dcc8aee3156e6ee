// Package modeltest builds small organism models with known growth behavior
// for tests across the module.
package modeltest

import (
	"math"

	"microcom/src/model"
)

const (
	Cytosol  = "c"
	External = "e"
	// Glucose units consumed per unit of biomass.
	GlucosePerBiomass = 10.0
)

var inf = math.Inf(1)

type builder struct {
	m *model.Model
}

func newBuilder(id string) *builder {
	m := model.New(id)
	must(m.AddCompartment(model.Compartment{ID: Cytosol, Name: "cytosol"}))
	must(m.AddCompartment(model.Compartment{ID: External, Name: "extracellular", External: true}))
	return &builder{m: m}
}

func (b *builder) met(id, comp string) *builder {
	if _, ok := b.m.Metabolite(id); !ok {
		must(b.m.AddMetabolite(model.Metabolite{ID: id, Compartment: comp}))
	}
	return b
}

func (b *builder) rxn(id string, lower, upper float64, stoich map[string]float64, genes ...string) *builder {
	must(b.m.AddReaction(model.Reaction{ID: id, Stoichiometry: stoich, Lower: lower, Upper: upper, Genes: genes}))
	return b
}

// nutrient adds an external metabolite, its exchange and the transport into
// the cytosol.
func (b *builder) nutrient(name string, maxUptake float64) *builder {
	ext, cyt := name+"_e", name+"_c"
	b.met(ext, External).met(cyt, Cytosol)
	b.rxn("EX_"+ext, -maxUptake, 1000, map[string]float64{ext: -1})
	b.rxn("T_"+name, 0, 1000, map[string]float64{ext: -1, cyt: 1}, "g_T_"+name)
	return b
}

// secretion adds a cytosolic synthesis of name from glucose, its export and
// an exchange that can only export.
func (b *builder) secretion(name string) *builder {
	ext, cyt := name+"_e", name+"_c"
	b.met(ext, External).met(cyt, Cytosol)
	b.rxn("SYN_"+name, 0, 1000, map[string]float64{"glc_c": -1, cyt: 1}, "g_SYN_"+name)
	b.rxn("SEC_"+name, 0, 1000, map[string]float64{cyt: -1, ext: 1})
	b.rxn("EX_"+ext, -1000, 1000, map[string]float64{ext: -1})
	return b
}

func (b *builder) biomass(stoich map[string]float64) *model.Model {
	b.rxn("Biomass", 0, inf, stoich)
	must(b.m.SetObjective(map[string]float64{"Biomass": 1}))
	return b.m
}

// Grower lives on glucose alone; its standalone maximum growth rate is
// maxUptake / GlucosePerBiomass.
func Grower(id string, maxUptake float64) *model.Model {
	return newBuilder(id).
		nutrient("glc", maxUptake).
		biomass(map[string]float64{"glc_c": -GlucosePerBiomass})
}

// Producer grows on glucose and can secrete m, which it does not need.
func Producer(id string) *model.Model {
	return newBuilder(id).
		nutrient("glc", 10).
		secretion("m").
		biomass(map[string]float64{"glc_c": -GlucosePerBiomass})
}

// Consumer needs m for biomass and cannot make it.
func Consumer(id string) *model.Model {
	return newBuilder(id).
		nutrient("glc", 10).
		nutrient("m", 1000).
		biomass(map[string]float64{"glc_c": -GlucosePerBiomass, "m_c": -1})
}

// CrossFeeder needs need for biomass and secretes give, making give from
// glucose. Two cross feeders with swapped arguments depend on each other.
func CrossFeeder(id, need, give string) *model.Model {
	return newBuilder(id).
		nutrient("glc", 10).
		nutrient(need, 1000).
		secretion(give).
		biomass(map[string]float64{"glc_c": -GlucosePerBiomass, need + "_c": -1})
}

// Maintained is a Grower with a maintenance reaction that burns at least
// maintenance glucose whether it grows or not.
func Maintained(id string, maintenance float64) *model.Model {
	return newBuilder(id).
		nutrient("glc", 10).
		rxn("ATPM", maintenance, 1000, map[string]float64{"glc_c": -1}).
		biomass(map[string]float64{"glc_c": -GlucosePerBiomass})
}

// Swapper grows on glucose and turns two units of in, which it cannot make,
// into one unit of out that it secretes. Exporting out always costs twice as
// much uptake of in.
func Swapper(id, in, out string) *model.Model {
	b := newBuilder(id).nutrient("glc", 10).nutrient(in, 1000)
	ext, cyt := out+"_e", out+"_c"
	b.met(ext, External).met(cyt, Cytosol)
	b.rxn("SWAP_"+out, 0, 1000, map[string]float64{in + "_c": -2, cyt: 1})
	b.rxn("SEC_"+out, 0, 1000, map[string]float64{cyt: -1, ext: 1})
	b.rxn("EX_"+ext, 0, 1000, map[string]float64{ext: -1})
	return b.biomass(map[string]float64{"glc_c": -GlucosePerBiomass})
}

// SugarEater grows on the single sugar it is given.
func SugarEater(id, sugar string) *model.Model {
	return newBuilder(id).
		nutrient(sugar, 10).
		biomass(map[string]float64{sugar + "_c": -GlucosePerBiomass})
}

// Flexible grows on either of two sugars.
func Flexible(id, sugar1, sugar2 string) *model.Model {
	b := newBuilder(id).nutrient(sugar1, 10).nutrient(sugar2, 10)
	b.met("pre_c", Cytosol)
	b.rxn("CONV_"+sugar1, 0, 1000, map[string]float64{sugar1 + "_c": -1, "pre_c": 1})
	b.rxn("CONV_"+sugar2, 0, 1000, map[string]float64{sugar2 + "_c": -1, "pre_c": 1})
	return b.biomass(map[string]float64{"pre_c": -GlucosePerBiomass})
}

// NoObjective is a grower whose objective was never set.
func NoObjective(id string) *model.Model {
	m := Grower(id, 10)
	must(m.SetObjective(nil))
	return m
}

func must(err error) {
	if err != nil {
		panic(err)
	}
}
