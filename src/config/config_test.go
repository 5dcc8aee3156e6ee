package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"microcom/src/config"
	"microcom/src/lp"
	"microcom/src/steadycom"
)

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "microcom.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := config.Load(config.New(), "")
	require.NoError(t, err)
	assert.Equal(t, config.Default(), *cfg)
}

func TestLoadFile(t *testing.T) {
	path := writeFile(t, `
solver:
  backend: lpsolve
steadycom:
  obj_frac: 0.9
  big_m: 5000
smetana:
  n_solutions: 10
batch:
  workers: 2
`)
	cfg, err := config.Load(config.New(), path)
	require.NoError(t, err)
	assert.Equal(t, lp.BackendLpSolve, cfg.Solver.Backend)
	assert.Equal(t, 0.9, cfg.SteadyCom.ObjFrac)
	assert.Equal(t, 5000.0, cfg.SteadyCom.BigM)
	assert.Equal(t, steadycom.DefaultOptions().MaxIters, cfg.SteadyCom.MaxIters)
	assert.Equal(t, 10, cfg.Smetana.NSolutions)
	assert.Equal(t, 2, cfg.Batch.Workers)
	assert.Equal(t, "microcom.db", cfg.Batch.DB)
}

func TestEnvironmentOverridesFile(t *testing.T) {
	path := writeFile(t, "batch:\n  workers: 2\n")
	t.Setenv("MICROCOM_BATCH_WORKERS", "8")
	t.Setenv("MICROCOM_SOLVER_BACKEND", "lpsolve")

	cfg, err := config.Load(config.New(), path)
	require.NoError(t, err)
	assert.Equal(t, 8, cfg.Batch.Workers)
	assert.Equal(t, lp.BackendLpSolve, cfg.Solver.Backend)
}

func TestLoadRejectsInvalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
		is      error
	}{
		{name: "unknown backend", content: "solver:\n  backend: glpk\n"},
		{name: "empty backend", content: "solver:\n  backend: \"\"\n", is: lp.ErrNoBackend},
		{name: "big m", content: "steadycom:\n  big_m: 10\n", is: steadycom.ErrBigM},
		{name: "obj frac", content: "steadycom:\n  obj_frac: 1.5\n"},
		{name: "smetana", content: "smetana:\n  min_growth: 0\n"},
		{name: "workers", content: "batch:\n  workers: 0\n"},
		{name: "verbosity", content: "log:\n  verbosity: -1\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := config.Load(config.New(), writeFile(t, tt.content))
			require.Error(t, err)
			if tt.is != nil {
				assert.ErrorIs(t, err, tt.is)
			}
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := config.Load(config.New(), filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}
