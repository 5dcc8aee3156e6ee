package smetana

import (
	"fmt"
)

// InfeasibleError reports a sub-problem of a metric that has no solution.
// It wraps lp.ErrInfeasible.
type InfeasibleError struct {
	Metric string
	// Organism is empty for community-wide sub-problems.
	Organism string
	Err      error
}

func (e *InfeasibleError) Error() string {
	if e.Organism == "" {
		return fmt.Sprintf("%s: community: %v", e.Metric, e.Err)
	}
	return fmt.Sprintf("%s: organism %s: %v", e.Metric, e.Organism, e.Err)
}

func (e *InfeasibleError) Unwrap() error {
	return e.Err
}
