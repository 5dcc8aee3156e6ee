package main

import (
	"fmt"
	"math"
	"math/rand"
	"os"

	"github.com/spf13/pflag"

	"microcom/src/model"
)

// GenerateOrganism builds a random organism growing on glucose. Its biomass
// needs every one of numBlocks building blocks; each block is imported with
// probability auxotrophy, otherwise synthesized from glucose and secreted
// with probability secretion.
func GenerateOrganism(rng *rand.Rand, id string, numBlocks int, auxotrophy, secretion float64) (*model.Model, error) {
	m := model.New(id)
	mets := []model.Metabolite{}
	rxns := []model.Reaction{}
	addNutrient := func(name string, maxUptake float64) {
		ext, cyt := name+"_e", name+"_c"
		mets = append(mets, model.Metabolite{ID: ext, Compartment: "e"}, model.Metabolite{ID: cyt, Compartment: "c"})
		rxns = append(rxns,
			model.Reaction{ID: "EX_" + ext, Stoichiometry: map[string]float64{ext: -1}, Lower: -maxUptake, Upper: 1000},
			model.Reaction{ID: "T_" + name, Stoichiometry: map[string]float64{ext: -1, cyt: 1}, Lower: 0, Upper: 1000, Genes: []string{"g_T_" + name}},
		)
	}

	addNutrient("glc", 10)
	biomass := map[string]float64{"glc_c": -float64(1 + rng.Intn(10))}
	for i := range numBlocks {
		name := fmt.Sprintf("b%d", i)
		cyt := name + "_c"
		coef := math.Round(10*(0.1+rng.Float64())) / 10
		biomass[cyt] = -coef
		if rng.Float64() < auxotrophy {
			addNutrient(name, 10)
			continue
		}
		mets = append(mets, model.Metabolite{ID: cyt, Compartment: "c"})
		rxns = append(rxns, model.Reaction{ID: "SYN_" + name, Stoichiometry: map[string]float64{"glc_c": -1, cyt: 1}, Lower: 0, Upper: 1000, Genes: []string{"g_SYN_" + name}})
		if rng.Float64() < secretion {
			ext := name + "_e"
			mets = append(mets, model.Metabolite{ID: ext, Compartment: "e"})
			rxns = append(rxns,
				model.Reaction{ID: "SEC_" + name, Stoichiometry: map[string]float64{cyt: -1, ext: 1}, Lower: 0, Upper: 1000},
				model.Reaction{ID: "EX_" + ext, Stoichiometry: map[string]float64{ext: -1}, Lower: 0, Upper: 1000},
			)
		}
	}
	rxns = append(rxns, model.Reaction{ID: "Biomass", Stoichiometry: biomass, Lower: 0, Upper: math.Inf(1)})

	for _, c := range []model.Compartment{{ID: "c", Name: "cytosol"}, {ID: "e", Name: "extracellular", External: true}} {
		if err := m.AddCompartment(c); err != nil {
			return nil, err
		}
	}
	for _, met := range mets {
		if err := m.AddMetabolite(met); err != nil {
			return nil, err
		}
	}
	for _, r := range rxns {
		if err := m.AddReaction(r); err != nil {
			return nil, err
		}
	}
	if err := m.SetObjective(map[string]float64{"Biomass": 1}); err != nil {
		return nil, err
	}
	return m, nil
}

func main() {
	var outPath, id string
	var numBlocks int
	var auxotrophy, secretion float64
	var seed int64

	pflag.StringVar(&outPath, "out", "", "The output file")
	pflag.StringVar(&id, "id", "", "The organism id")
	pflag.IntVar(&numBlocks, "blocks", 0, "The number of biomass building blocks")
	pflag.Float64Var(&auxotrophy, "auxotrophy", 0.2, "The probability of a building block to be imported")
	pflag.Float64Var(&secretion, "secretion", 0.3, "The probability of a synthesized building block to be secreted")
	pflag.Int64Var(&seed, "seed", 1, "The random seed")

	pflag.Parse()

	err := false
	if id == "" {
		fmt.Fprintln(os.Stderr, "Must specify the organism id")
		err = true
	}
	if numBlocks == 0 {
		fmt.Fprintln(os.Stderr, "Must specify the number of building blocks")
		err = true
	}
	if auxotrophy < 0 || auxotrophy > 1 || secretion < 0 || secretion > 1 {
		fmt.Fprintln(os.Stderr, "Probabilities must be in [0, 1]")
		err = true
	}

	if err {
		os.Exit(1)
	}
	if outPath == "" {
		outPath = id + ".yaml"
	}

	m, genErr := GenerateOrganism(rand.New(rand.NewSource(seed)), id, numBlocks, auxotrophy, secretion)
	if genErr != nil {
		fmt.Fprintln(os.Stderr, genErr)
		os.Exit(1)
	}
	f, fErr := os.Create(outPath)
	if fErr != nil {
		fmt.Fprintln(os.Stderr, fErr)
		os.Exit(1)
	}
	defer f.Close()
	if encErr := model.Encode(f, m); encErr != nil {
		fmt.Fprintln(os.Stderr, encErr)
		os.Exit(1)
	}
}
