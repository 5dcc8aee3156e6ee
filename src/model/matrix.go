package model

import (
	"gonum.org/v1/gonum/mat"
)

// Stoichiometry returns S with one row per metabolite and one column per
// reaction, both in model order. It returns nil for an empty model.
func Stoichiometry(a OrganismAdapter) *mat.Dense {
	mets := a.Metabolites()
	rxns := a.Reactions()
	if len(mets) == 0 || len(rxns) == 0 {
		return nil
	}
	row := make(map[string]int, len(mets))
	for i, m := range mets {
		row[m] = i
	}
	s := mat.NewDense(len(mets), len(rxns), nil)
	for j, id := range rxns {
		r, _ := a.Reaction(id)
		for met, coef := range r.Stoichiometry {
			s.Set(row[met], j, coef)
		}
	}
	return s
}

// MassBalance returns S·v, one entry per metabolite in model order, where
// reactions missing from flux carry zero. It returns nil for an empty model.
func MassBalance(a OrganismAdapter, flux map[string]float64) *mat.VecDense {
	s := Stoichiometry(a)
	if s == nil {
		return nil
	}
	rxns := a.Reactions()
	v := mat.NewVecDense(len(rxns), nil)
	for j, id := range rxns {
		v.SetVec(j, flux[id])
	}
	rows, _ := s.Dims()
	sv := mat.NewVecDense(rows, nil)
	sv.MulVec(s, v)
	return sv
}
