package lp

import (
	"fmt"
	"sync/atomic"
	"time"
)

const (
	BackendHighs   = "highs"
	BackendLpSolve = "lpsolve"
)

// checkTol is the relative tolerance an optimal backend solution must meet
// against the problem it was returned for.
const checkTol = 1e-5

// Solver solves problems on one backend. A Solver is owned by a single
// computation: it is opened for it, used sequentially and closed on every
// exit path.
type Solver interface {
	Name() string
	// Solve returns the solution status as part of the Solution. The error is
	// reserved for backend failures and is passed through unmodified.
	Solve(p *Problem) (*Solution, error)
	Close() error
}

type Config struct {
	Backend string `mapstructure:"backend" yaml:"backend"`
	// Verbose lets lp_solve write its own log to stdout.
	Verbose bool `mapstructure:"verbose" yaml:"verbose"`
}

func (c Config) Validate() error {
	switch c.Backend {
	case BackendHighs, BackendLpSolve:
		return nil
	case "":
		return ErrNoBackend
	}
	return fmt.Errorf("unknown solver backend %q, valid backends are %q and %q", c.Backend, BackendHighs, BackendLpSolve)
}

type backend interface {
	solve(p *Problem) (*Solution, error)
	close() error
}

// Open acquires a solver for the configured backend.
func Open(cfg Config) (Solver, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	var be backend
	switch cfg.Backend {
	case BackendHighs:
		be = &highsBackend{}
	case BackendLpSolve:
		be = &lpSolveBackend{verbose: cfg.Verbose}
	}
	return &scopedSolver{name: cfg.Backend, be: be}, nil
}

type scopedSolver struct {
	name   string
	be     backend
	busy   atomic.Bool
	closed atomic.Bool
}

func (s *scopedSolver) Name() string {
	return s.name
}

func (s *scopedSolver) Solve(p *Problem) (*Solution, error) {
	if s.closed.Load() {
		return nil, ErrClosed
	}
	if !s.busy.CompareAndSwap(false, true) {
		return nil, ErrConcurrentUse
	}
	defer s.busy.Store(false)

	start := time.Now()
	sol, err := s.be.solve(p)
	if err == nil && sol.IsOptimal() {
		if cerr := p.Check(sol.values, checkTol); cerr != nil {
			sol = &Solution{Status: Error, Detail: "optimal solution fails check: " + cerr.Error()}
		}
	}
	recordSolve(s.name, sol, err, time.Since(start))
	return sol, err
}

func (s *scopedSolver) Close() error {
	if s.closed.Swap(true) {
		return nil
	}
	return s.be.close()
}
