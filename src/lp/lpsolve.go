package lp

import (
	"fmt"
	"math"

	"github.com/draffensperger/golp"
)

// lp_solve treats any magnitude at or above this as infinite.
const lpSolveInfinity = 1e30

type lpSolveBackend struct {
	verbose bool
}

func (be *lpSolveBackend) solve(p *Problem) (*Solution, error) {
	lp, err := be.defLpSolveModel(p)
	if err != nil {
		return nil, err
	}

	sol := &Solution{}
	sol.Status, sol.Detail = lpSolveStatus(lp.Solve())
	if sol.Status != Optimal {
		return sol, nil
	}
	sol.Objective = lp.Objective()
	sol.values = p.valuesFrom(lp.Variables())
	return sol, nil
}

// lpSolveStatus maps an lp_solve result. SUBOPTIMAL is a feasible point that
// lp_solve stopped on before proving it optimal.
func lpSolveStatus(status golp.SolutionType) (Status, string) {
	switch status {
	case golp.OPTIMAL:
		return Optimal, ""
	case golp.INFEASIBLE:
		return Infeasible, ""
	case golp.UNBOUNDED:
		return Unbounded, ""
	case golp.SUBOPTIMAL:
		return Error, "lp_solve stopped before proving optimality"
	}
	return Error, fmt.Sprintf("lp_solve status %v", status)
}

func (be *lpSolveBackend) close() error {
	return nil
}

func (be *lpSolveBackend) defLpSolveModel(p *Problem) (*golp.LP, error) {
	lp := golp.NewLP(0, len(p.vars))
	if !be.verbose {
		lp.SetVerboseLevel(golp.NEUTRAL)
	}

	for j, v := range p.vars {
		lp.SetColName(j, v.name)
		switch v.kind {
		case Binary:
			lp.SetBinary(j, true)
		case Integer:
			lp.SetInt(j, true)
		}
		lp.SetBounds(j, clampInfinity(v.lower), clampInfinity(v.upper))
	}

	for i := range p.rows {
		r := &p.rows[i]
		ts := p.terms(r)
		entries := make([]golp.Entry, len(ts))
		for k, t := range ts {
			entries[k] = golp.Entry{Col: t.col, Val: t.val}
		}
		var ct golp.ConstraintType
		switch r.sense {
		case LE:
			ct = golp.LE
		case GE:
			ct = golp.GE
		default:
			ct = golp.EQ
		}
		if err := lp.AddConstraintSparse(entries, ct, r.rhs); err != nil {
			return nil, fmt.Errorf("constraint %q: %w", r.name, err)
		}
	}

	lp.SetObjFn(p.costs())
	if p.Maximize {
		lp.SetMaximize()
	}
	return lp, nil
}

func clampInfinity(x float64) float64 {
	return math.Max(-lpSolveInfinity, math.Min(lpSolveInfinity, x))
}
