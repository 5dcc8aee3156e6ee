package lp

import (
	"github.com/lanl/highs"
)

type highsBackend struct{}

func (be *highsBackend) solve(p *Problem) (*Solution, error) {
	lp := defHighsModel(p)
	solution, err := lp.Solve()
	if err != nil {
		return nil, err
	}

	sol := &Solution{Status: highsStatus(solution.Status)}
	if sol.Status != Optimal {
		sol.Detail = solution.Status.String()
		return sol, nil
	}
	sol.Objective = solution.Objective
	sol.values = p.valuesFrom(solution.ColumnPrimal)
	return sol, nil
}

func (be *highsBackend) close() error {
	return nil
}

func highsStatus(status highs.ModelStatus) Status {
	switch status {
	case highs.Optimal:
		return Optimal
	case highs.Infeasible:
		return Infeasible
	case highs.Unbounded:
		return Unbounded
	case highs.UnboundedOrInfeasible:
		return InfeasibleOrUnbounded
	}
	return Error
}

func defHighsModel(p *Problem) *highs.Model {
	numCols := len(p.vars)
	lp := &highs.Model{
		Maximize: p.Maximize,
		ColCosts: p.costs(),
		ColLower: make([]float64, numCols),
		ColUpper: make([]float64, numCols),
	}

	integral := p.IsMIP()
	if integral {
		lp.VarTypes = make([]highs.VariableType, numCols)
	}
	for j, v := range p.vars {
		lp.ColLower[j] = v.lower
		lp.ColUpper[j] = v.upper
		if integral && v.kind != Continuous {
			lp.VarTypes[j] = highs.IntegerType
		}
	}

	defHighsRows(lp, p)
	return lp
}

func defHighsRows(lp *highs.Model, p *Problem) {
	lp.RowLower = make([]float64, len(p.rows))
	lp.RowUpper = make([]float64, len(p.rows))
	for i := range p.rows {
		r := &p.rows[i]
		for _, t := range p.terms(r) {
			lp.ConstMatrix = append(lp.ConstMatrix, highs.Nonzero{Row: i, Col: t.col, Val: t.val})
		}
		lo, hi := r.bounds()
		lp.RowLower[i] = lo
		lp.RowUpper[i] = hi
	}
}
