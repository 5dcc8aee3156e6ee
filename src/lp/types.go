package lp

import (
	"errors"
	"fmt"
	"maps"
)

var (
	ErrInfeasible    = errors.New("infeasible problem")
	ErrSolverStatus  = errors.New("solver did not reach optimality")
	ErrClosed        = errors.New("solver is closed")
	ErrConcurrentUse = errors.New("solver is already solving another problem")
	ErrNoBackend     = errors.New("no solver backend configured")
)

type VarType int

const (
	Continuous VarType = iota
	Binary
	Integer
)

type Sense int

const (
	LE Sense = iota
	GE
	EQ
)

func (s Sense) String() string {
	switch s {
	case LE:
		return "<="
	case GE:
		return ">="
	case EQ:
		return "="
	}
	return fmt.Sprintf("Sense(%d)", int(s))
}

type Status int

const (
	Optimal Status = iota
	Infeasible
	Unbounded
	InfeasibleOrUnbounded
	Error
)

func (s Status) String() string {
	switch s {
	case Optimal:
		return "optimal"
	case Infeasible:
		return "infeasible"
	case Unbounded:
		return "unbounded"
	case InfeasibleOrUnbounded:
		return "infeasible or unbounded"
	case Error:
		return "error"
	}
	return fmt.Sprintf("Status(%d)", int(s))
}

// Expr is a linear expression, variable name to coefficient.
type Expr map[string]float64

type Solution struct {
	Status    Status
	Objective float64
	// Detail holds the backend's own status text when Status is not Optimal.
	Detail string
	values map[string]float64
}

// NewSolution builds a solution for Solver implementations outside this
// package.
func NewSolution(status Status, objective float64, values map[string]float64) *Solution {
	return &Solution{Status: status, Objective: objective, values: maps.Clone(values)}
}

func (sol *Solution) IsOptimal() bool {
	return sol.Status == Optimal
}

func (sol *Solution) IsInfeasible() bool {
	return sol.Status == Infeasible || sol.Status == InfeasibleOrUnbounded
}

func (sol *Solution) IsUnbounded() bool {
	return sol.Status == Unbounded || sol.Status == InfeasibleOrUnbounded
}

// Value returns the primal value of a variable, or 0 when the solution
// carries no value for it.
func (sol *Solution) Value(name string) float64 {
	return sol.values[name]
}

func (sol *Solution) Values() map[string]float64 {
	return maps.Clone(sol.values)
}

// Err returns nil for an optimal solution, an error wrapping ErrInfeasible
// when the problem was proven infeasible and one wrapping ErrSolverStatus for
// every other status.
func (sol *Solution) Err() error {
	if sol.IsOptimal() {
		return nil
	}
	sentinel := ErrSolverStatus
	if sol.IsInfeasible() {
		sentinel = ErrInfeasible
	}
	if sol.Detail != "" {
		return fmt.Errorf("%w: status %v (%s)", sentinel, sol.Status, sol.Detail)
	}
	return fmt.Errorf("%w: status %v", sentinel, sol.Status)
}

func (sol *Solution) String() string {
	if !sol.IsOptimal() {
		return fmt.Sprintf("Status: %v", sol.Status)
	}
	return fmt.Sprintf("Status: %v, objective: %f", sol.Status, sol.Objective)
}
