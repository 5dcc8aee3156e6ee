package smetana

import (
	"fmt"
	"math"

	"microcom/src/lp"
)

const (
	// Binary values above this count as 1.
	onThreshold = 0.5
	// Objective slack within which a later solution is still optimal.
	optimalityTol = 1e-6
)

type cutFunc func(p *lp.Problem, name string, vars, ones []string) error

func integerCut(p *lp.Problem, name string, vars, ones []string) error {
	return p.AddIntegerCut(name, vars, ones)
}

func subsetCut(p *lp.Problem, name string, _, ones []string) error {
	return p.AddSubsetCut(name, ones)
}

// enumerate minimizes p repeatedly and returns the support of every optimum
// over the binary vars, cutting each support off before the next solve.
// It stops after NSolutions solutions, when a cut makes p infeasible, when
// the support is empty, or, unless IncludeSuboptimal is set, when the
// objective worsens. p is modified.
//
// An infeasible first solve is returned as an error wrapping
// lp.ErrInfeasible. Any other non-optimal status, on any solve, is returned
// as an error wrapping lp.ErrSolverStatus.
func enumerate(s lp.Solver, p *lp.Problem, vars []string, cut cutFunc, opts Options) ([][]string, error) {
	var supports [][]string
	best := math.Inf(1)
	for i := 0; i < opts.NSolutions; i++ {
		sol, err := s.Solve(p)
		if err != nil {
			return nil, err
		}
		if !sol.IsOptimal() {
			if i == 0 || !sol.IsInfeasible() {
				return nil, sol.Err()
			}
			break
		}
		if i == 0 {
			best = sol.Objective
		} else if !opts.IncludeSuboptimal && sol.Objective > best+optimalityTol {
			break
		}

		var support []string
		for _, v := range vars {
			if sol.Value(v) > onThreshold {
				support = append(support, v)
			}
		}
		supports = append(supports, support)
		opts.Logger.V(2).Info("Enumerated solution", "index", i, "objective", sol.Objective, "support", support)
		if len(support) == 0 {
			break
		}
		if err := cut(p, fmt.Sprintf("cut:%d", i), vars, support); err != nil {
			return nil, err
		}
	}
	return supports, nil
}

// frequency counts, for every name, the share of supports it appears in.
// Supports hold binary variable names; name maps them back.
func frequency(supports [][]string, name map[string]string) map[string]float64 {
	freq := make(map[string]float64, len(name))
	for _, n := range name {
		freq[n] = 0
	}
	if len(supports) == 0 {
		return freq
	}
	for _, support := range supports {
		for _, v := range support {
			freq[name[v]]++
		}
	}
	for n := range freq {
		freq[n] /= float64(len(supports))
	}
	return freq
}
