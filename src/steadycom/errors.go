package steadycom

import (
	"errors"
	"fmt"

	"microcom/src/lp"
)

var (
	// ErrNoViableGrowth means the community cannot grow at all: either zero
	// growth is already infeasible or the search converged to zero.
	ErrNoViableGrowth = errors.New("no viable community growth")
	// ErrBigM is returned for an explicit big-M outside the numerically safe
	// range.
	ErrBigM = errors.New("big-M outside the safe range")
	// ErrSteadyState means the solver returned fluxes that do not balance
	// the community's metabolites.
	ErrSteadyState = errors.New("fluxes are not at steady state")
)

// ConvergenceError is returned when the growth rate search hits its
// iteration cap before the bracket closes.
type ConvergenceError struct {
	LastFeasible float64
	// Gap is the width of the remaining bracket, +Inf if no infeasible
	// growth rate was found yet.
	Gap        float64
	AbsTol     float64
	RelTol     float64
	Iterations int
}

func (e *ConvergenceError) Error() string {
	return fmt.Sprintf("growth rate search did not converge after %d iterations: last feasible %g, gap %g, tolerances abs %g rel %g",
		e.Iterations, e.LastFeasible, e.Gap, e.AbsTol, e.RelTol)
}

// InfeasibleError reports a variability LP that was not solved to optimality.
// It wraps lp.ErrInfeasible when the LP was proven infeasible and
// lp.ErrSolverStatus for any other status.
type InfeasibleError struct {
	Organism string
	Maximize bool
	Status   lp.Status
}

func (e *InfeasibleError) Error() string {
	direction := "minimum"
	if e.Maximize {
		direction = "maximum"
	}
	return fmt.Sprintf("%s abundance of %s: %v", direction, e.Organism, e.Status)
}

func (e *InfeasibleError) Unwrap() error {
	if e.Status == lp.Infeasible || e.Status == lp.InfeasibleOrUnbounded {
		return lp.ErrInfeasible
	}
	return lp.ErrSolverStatus
}
