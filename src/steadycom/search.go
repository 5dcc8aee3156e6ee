package steadycom

import (
	"fmt"
	"math"
)

type phase int

const (
	searchingUp phase = iota
	bisecting
	converged
	failed
)

func (p phase) String() string {
	switch p {
	case searchingUp:
		return "searching up"
	case bisecting:
		return "bisecting"
	case converged:
		return "converged"
	case failed:
		return "failed"
	}
	return fmt.Sprintf("phase(%d)", int(p))
}

// search brackets the maximum growth rate. While every trial is feasible the
// trial doubles; the first infeasible trial closes the bracket, which is then
// bisected until it is narrower than max(AbsTol, RelTol * lastFeasible).
type search struct {
	phase        phase
	trial        float64
	lastFeasible float64
	infeasible   float64
	iterations   int

	absTol   float64
	relTol   float64
	maxIters int
}

func newSearch(opts Options) *search {
	return &search{
		phase:      searchingUp,
		trial:      1,
		infeasible: math.Inf(1),
		absTol:     opts.AbsTol,
		relTol:     opts.RelTol,
		maxIters:   opts.MaxIters,
	}
}

func (s *search) running() bool {
	return s.phase == searchingUp || s.phase == bisecting
}

func (s *search) gap() float64 {
	return s.infeasible - s.lastFeasible
}

func (s *search) tolerance() float64 {
	return math.Max(s.absTol, s.relTol*s.lastFeasible)
}

// step records whether the current trial was feasible and moves to the next
// trial or to a terminal phase.
func (s *search) step(feasible bool) {
	s.iterations++
	switch s.phase {
	case searchingUp:
		if feasible {
			s.lastFeasible = s.trial
			s.trial *= 2
		} else {
			s.infeasible = s.trial
			s.phase = bisecting
		}
	case bisecting:
		if feasible {
			s.lastFeasible = s.trial
		} else {
			s.infeasible = s.trial
		}
	default:
		return
	}

	if s.phase == bisecting {
		if s.gap() < s.tolerance() {
			s.phase = converged
			return
		}
		s.trial = (s.lastFeasible + s.infeasible) / 2
	}
	if s.iterations >= s.maxIters {
		s.phase = failed
	}
}

func (s *search) err() error {
	return &ConvergenceError{
		LastFeasible: s.lastFeasible,
		Gap:          s.gap(),
		AbsTol:       s.absTol,
		RelTol:       s.relTol,
		Iterations:   s.iterations,
	}
}
