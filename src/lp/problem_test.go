package lp

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProblemRejectsBadNames(t *testing.T) {
	p := NewProblem()
	require.NoError(t, p.AddVar("x", 0, 1, Continuous))
	assert.Error(t, p.AddVar("x", 0, 1, Continuous))
	assert.Error(t, p.AddVar("", 0, 1, Continuous))
	assert.Error(t, p.AddVar("y", 2, 1, Continuous))
	assert.Error(t, p.AddConstraint("c", Expr{"z": 1}, LE, 1))
	assert.Error(t, p.SetObjective(Expr{"z": 1}, true))
	assert.Error(t, p.SetBounds("z", 0, 1))

	require.NoError(t, p.AddConstraint("c", Expr{"x": 1}, LE, 1))
	assert.Error(t, p.AddConstraint("c", Expr{"x": 1}, LE, 1))
}

func TestBinaryBoundsAreClamped(t *testing.T) {
	p := NewProblem()
	require.NoError(t, p.AddVar("y", -5, 5, Binary))
	lo, hi, err := p.Bounds("y")
	require.NoError(t, err)
	assert.Equal(t, 0.0, lo)
	assert.Equal(t, 1.0, hi)
	assert.True(t, p.IsMIP())
}

func TestSetCoefficient(t *testing.T) {
	p := NewProblem()
	require.NoError(t, p.AddVar("x", 0, 10, Continuous))
	require.NoError(t, p.AddConstraint("c", Expr{"x": 1}, LE, 5))
	assert.True(t, p.HasConstraint("c"))
	assert.False(t, p.HasConstraint("d"))
	require.NoError(t, p.SetCoefficient("c", "x", 2))
	assert.Equal(t, 2.0, p.rows[p.rowIndex["c"]].expr["x"])
	assert.Error(t, p.SetCoefficient("d", "x", 2))
}

func TestCheckScalesWithRowMagnitude(t *testing.T) {
	p := NewProblem()
	require.NoError(t, p.AddVar("v", 0, 1e6, Continuous))
	require.NoError(t, p.AddVar("y", 0, 1, Binary))
	require.NoError(t, p.AddConstraint("gate", Expr{"v": 1, "y": -1e6}, LE, 0))

	// off by 1e-3 on a row whose terms are 1e6 in size
	assert.NoError(t, p.Check(map[string]float64{"v": 1e6 + 1e-3, "y": 1}, 1e-6))
	assert.Error(t, p.Check(map[string]float64{"v": 1, "y": 0}, 1e-6))
}

func TestIntegerCuts(t *testing.T) {
	p := NewProblem()
	vars := []string{"y1", "y2", "y3"}
	for _, v := range vars {
		require.NoError(t, p.AddVar(v, 0, 1, Binary))
	}
	require.NoError(t, p.AddIntegerCut("cut", vars, []string{"y1", "y3"}))
	require.NoError(t, p.AddSubsetCut("subset", []string{"y2"}))

	assert.Error(t, p.Check(map[string]float64{"y1": 1, "y3": 1}, 1e-9))
	assert.NoError(t, p.Check(map[string]float64{"y1": 1, "y2": 0, "y3": 0}, 1e-9))
	assert.Error(t, p.Check(map[string]float64{"y2": 1}, 1e-9))
}

func TestCloneIsIndependent(t *testing.T) {
	p := NewProblem()
	require.NoError(t, p.AddVar("x", 0, math.Inf(1), Continuous))
	require.NoError(t, p.AddConstraint("c", Expr{"x": 1}, GE, 1))

	c := p.Clone()
	require.NoError(t, c.SetCoefficient("c", "x", 3))
	require.NoError(t, c.SetBounds("x", 0, 2))
	require.NoError(t, c.AddConstraint("d", Expr{"x": 1}, LE, 4))

	assert.Equal(t, 1.0, p.rows[0].expr["x"])
	_, hi, _ := p.Bounds("x")
	assert.True(t, math.IsInf(hi, 1))
	assert.Equal(t, 1, p.NumConstraints())
}

func TestTermsAreOrderedByColumn(t *testing.T) {
	p := NewProblem()
	for _, v := range []string{"a", "b", "c", "d"} {
		require.NoError(t, p.AddVar(v, 0, 1, Continuous))
	}
	require.NoError(t, p.AddConstraint("r", Expr{"d": 4, "a": 1, "c": 3, "b": 0}, EQ, 1))
	ts := p.terms(&p.rows[0])
	assert.Equal(t, []term{{col: 0, val: 1}, {col: 2, val: 3}, {col: 3, val: 4}}, ts)
}

func TestConfigValidate(t *testing.T) {
	assert.ErrorIs(t, Config{}.Validate(), ErrNoBackend)
	assert.Error(t, Config{Backend: "cplex"}.Validate())
	assert.NoError(t, Config{Backend: BackendHighs}.Validate())
	assert.NoError(t, Config{Backend: BackendLpSolve}.Validate())
}
