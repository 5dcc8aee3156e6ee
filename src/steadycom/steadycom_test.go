package steadycom_test

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"microcom/src/community"
	"microcom/src/lp"
	"microcom/src/model"
	"microcom/src/model/modeltest"
	"microcom/src/steadycom"
)

func openSolver(t *testing.T, backend string) lp.Solver {
	t.Helper()
	s, err := lp.Open(lp.Config{Backend: backend})
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func build(t *testing.T, orgs ...model.OrganismAdapter) *community.Community {
	t.Helper()
	c, err := community.Build(orgs, community.WithAddCompartments(true))
	require.NoError(t, err)
	return c
}

func crossFeeders(t *testing.T) *community.Community {
	t.Helper()
	c := build(t, modeltest.CrossFeeder("A", "m", "n"), modeltest.CrossFeeder("B", "n", "m"))
	require.NoError(t, c.SetEnvironment(map[string]float64{"glc_e": 10}))
	return c
}

func TestIdenticalOrganismsShareEvenly(t *testing.T) {
	for _, backend := range []string{lp.BackendHighs, lp.BackendLpSolve} {
		t.Run(backend, func(t *testing.T) {
			s := openSolver(t, backend)
			c := build(t, modeltest.Grower("A", 10), modeltest.Grower("B", 10))

			res, err := steadycom.Solve(c, s, steadycom.DefaultOptions())
			require.NoError(t, err)
			assert.InDelta(t, 1.0, res.MaxGrowthRate, 2e-3)
			assert.Equal(t, res.MaxGrowthRate, res.GrowthRate)
			assert.InDelta(t, 0.5, res.Abundance["A"], 1e-6)
			assert.InDelta(t, 0.5, res.Abundance["B"], 1e-6)
			assert.Equal(t, 1e4, res.BigM)

			m, err := c.Merged()
			require.NoError(t, err)
			assert.InDelta(t, 0, mat.Norm(model.MassBalance(m.Model(), res.Fluxes), math.Inf(1)), 1e-6)
			assert.InDelta(t, res.GrowthRate*0.5, res.Fluxes["A_Biomass"], 1e-6)
		})
	}
}

func TestStableUnderBigM(t *testing.T) {
	s := openSolver(t, lp.BackendHighs)
	c := crossFeeders(t)

	auto, err := steadycom.Solve(c, s, steadycom.DefaultOptions())
	require.NoError(t, err)

	opts := steadycom.DefaultOptions()
	opts.BigM = 2 * auto.BigM
	doubled, err := steadycom.Solve(c, s, opts)
	require.NoError(t, err)
	assert.InDelta(t, auto.MaxGrowthRate, doubled.MaxGrowthRate, opts.AbsTol)
}

func TestCrossFeedersGrowTogether(t *testing.T) {
	s := openSolver(t, lp.BackendHighs)
	c := crossFeeders(t)

	res, err := steadycom.Solve(c, s, steadycom.DefaultOptions())
	require.NoError(t, err)
	assert.InDelta(t, 10.0/11, res.MaxGrowthRate, 2e-3)
	assert.InDelta(t, 0.5, res.Abundance["A"], 1e-3)
	assert.InDelta(t, 0.5, res.Abundance["B"], 1e-3)
	assert.Greater(t, res.Fluxes["A_Biomass"], 0.0)
	assert.Greater(t, res.Fluxes["B_Biomass"], 0.0)

	for _, alone := range []map[string]float64{{"A": 1}, {"B": 1}} {
		require.NoError(t, c.SetAbundance(alone, false))
		opts := steadycom.DefaultOptions()
		opts.FixAbundance = true
		_, err := steadycom.Solve(c, s, opts)
		assert.ErrorIs(t, err, steadycom.ErrNoViableGrowth)
	}
}

func TestSlowerOrganismIsOutgrown(t *testing.T) {
	s := openSolver(t, lp.BackendHighs)
	c := build(t, modeltest.Grower("A", 10), modeltest.Grower("B", 5))

	res, err := steadycom.Solve(c, s, steadycom.DefaultOptions())
	require.NoError(t, err)
	assert.InDelta(t, 1.0, res.MaxGrowthRate, 2e-3)
	assert.InDelta(t, 0, res.Abundance["B"], 1e-6)
}

func TestZeroGrowthInfeasible(t *testing.T) {
	s := openSolver(t, lp.BackendHighs)
	g := modeltest.Grower("A", 10)
	require.NoError(t, g.SetBounds("Biomass", 0.5, math.Inf(1)))
	c := build(t, g)
	require.NoError(t, c.SetEnvironment(map[string]float64{}))

	_, err := steadycom.Solve(c, s, steadycom.DefaultOptions())
	assert.ErrorIs(t, err, steadycom.ErrNoViableGrowth)
}

func TestIterationCap(t *testing.T) {
	s := openSolver(t, lp.BackendHighs)
	c := build(t, modeltest.Grower("A", 10), modeltest.Grower("B", 10))

	opts := steadycom.DefaultOptions()
	opts.MaxIters = 3
	_, err := steadycom.Solve(c, s, opts)
	var conv *steadycom.ConvergenceError
	require.True(t, errors.As(err, &conv))
	assert.Equal(t, 3, conv.Iterations)
	assert.Equal(t, 1.0, conv.LastFeasible)
	assert.Equal(t, 0.5, conv.Gap)
	assert.Equal(t, opts.AbsTol, conv.AbsTol)
}

func TestBigMOutOfRange(t *testing.T) {
	s := openSolver(t, lp.BackendHighs)
	c := build(t, modeltest.Grower("A", 10))

	opts := steadycom.DefaultOptions()
	opts.BigM = 10
	_, err := steadycom.Solve(c, s, opts)
	assert.ErrorIs(t, err, steadycom.ErrBigM)
	opts.BigM = 1e9
	_, err = steadycom.VA(c, s, opts)
	assert.ErrorIs(t, err, steadycom.ErrBigM)
}

func TestVA(t *testing.T) {
	s := openSolver(t, lp.BackendHighs)
	c := crossFeeders(t)

	opts := steadycom.DefaultOptions()
	opts.ObjFrac = 0.55
	ranges, err := steadycom.VA(c, s, opts)
	require.NoError(t, err)
	require.Len(t, ranges, 2)
	for _, org := range []string{"A", "B"} {
		assert.InDelta(t, 1.0/11, ranges[org].Min, 2e-3, org)
		assert.InDelta(t, 10.0/11, ranges[org].Max, 2e-3, org)
	}

	ranges, err = steadycom.VA(c, s, steadycom.DefaultOptions())
	require.NoError(t, err)
	assert.InDelta(t, 0.5, ranges["A"].Min, 1e-2)
	assert.InDelta(t, 0.5, ranges["A"].Max, 1e-2)

	opts.FixAbundance = true
	_, err = steadycom.VA(c, s, opts)
	assert.ErrorIs(t, err, community.ErrConfig)
}

func TestOptionsValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*steadycom.Options)
	}{
		{"zero obj frac", func(o *steadycom.Options) { o.ObjFrac = 0 }},
		{"obj frac above one", func(o *steadycom.Options) { o.ObjFrac = 1.5 }},
		{"zero abs tol", func(o *steadycom.Options) { o.AbsTol = 0 }},
		{"negative rel tol", func(o *steadycom.Options) { o.RelTol = -1 }},
		{"no iterations", func(o *steadycom.Options) { o.MaxIters = 0 }},
		{"no safety factor", func(o *steadycom.Options) { o.SafetyFactor = 0 }},
	}
	require.NoError(t, steadycom.DefaultOptions().Validate())
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := steadycom.DefaultOptions()
			tt.modify(&opts)
			assert.Error(t, opts.Validate())
		})
	}
}

// corruptingSolver shifts one flux of the abundance solve, the only LP that
// carries the distance variables of closestToUniform.
type corruptingSolver struct {
	lp.Solver
	rxn   string
	shift float64
}

func (s *corruptingSolver) Solve(p *lp.Problem) (*lp.Solution, error) {
	sol, err := s.Solver.Solve(p)
	if err != nil || !sol.IsOptimal() || !p.HasVar("d:A") {
		return sol, err
	}
	values := sol.Values()
	values[s.rxn] += s.shift
	return lp.NewSolution(sol.Status, sol.Objective, values), nil
}

func TestUnbalancedFluxesAreRejected(t *testing.T) {
	c := build(t, modeltest.Grower("A", 10), modeltest.Grower("B", 10))
	s := &corruptingSolver{Solver: openSolver(t, lp.BackendHighs), rxn: "A_T_glc", shift: 1}

	_, err := steadycom.Solve(c, s, steadycom.DefaultOptions())
	assert.ErrorIs(t, err, steadycom.ErrSteadyState)
	assert.ErrorContains(t, err, "_A has residual")

	s.shift = 0
	_, err = steadycom.Solve(c, s, steadycom.DefaultOptions())
	assert.NoError(t, err)
}

func TestMergedBiomassesPassSteadyStateCheck(t *testing.T) {
	s := openSolver(t, lp.BackendHighs)
	c, err := community.Build([]model.OrganismAdapter{modeltest.Grower("A", 10), modeltest.Grower("B", 10)},
		community.WithAddCompartments(true), community.WithMergeBiomasses(true))
	require.NoError(t, err)

	res, err := steadycom.Solve(c, s, steadycom.DefaultOptions())
	require.NoError(t, err)
	assert.InDelta(t, 1.0, res.MaxGrowthRate, 2e-3)
	assert.NotContains(t, res.Fluxes, community.GrowthReaction)
}

type failingSolver struct {
	status lp.Status
}

func (s failingSolver) Name() string {
	return "failing"
}

func (s failingSolver) Solve(*lp.Problem) (*lp.Solution, error) {
	return lp.NewSolution(s.status, 0, nil), nil
}

func (s failingSolver) Close() error {
	return nil
}

func TestSolverFailureIsNotInfeasibility(t *testing.T) {
	c := build(t, modeltest.Grower("A", 10))
	for _, status := range []lp.Status{lp.Error, lp.Unbounded} {
		_, err := steadycom.Solve(c, failingSolver{status: status}, steadycom.DefaultOptions())
		assert.ErrorIs(t, err, lp.ErrSolverStatus, status.String())
		assert.NotErrorIs(t, err, steadycom.ErrNoViableGrowth, status.String())
		assert.NotErrorIs(t, err, lp.ErrInfeasible, status.String())
	}

	err := &steadycom.InfeasibleError{Organism: "A", Status: lp.Error}
	assert.ErrorIs(t, err, lp.ErrSolverStatus)
	err.Status = lp.Infeasible
	assert.ErrorIs(t, err, lp.ErrInfeasible)
}
