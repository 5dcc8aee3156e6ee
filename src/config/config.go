// Package config loads the settings shared by the command line tools from a
// YAML file, MICROCOM_* environment variables and bound flags, in increasing
// order of precedence.
package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"microcom/src/lp"
	"microcom/src/smetana"
	"microcom/src/steadycom"
)

const EnvPrefix = "MICROCOM"

type Batch struct {
	// Workers is the number of communities solved at once.
	Workers int    `mapstructure:"workers" yaml:"workers"`
	DB      string `mapstructure:"db" yaml:"db"`
}

type Log struct {
	Verbosity   int  `mapstructure:"verbosity" yaml:"verbosity"`
	Development bool `mapstructure:"development" yaml:"development"`
}

type Config struct {
	Solver    lp.Config         `mapstructure:"solver" yaml:"solver"`
	SteadyCom steadycom.Options `mapstructure:"steadycom" yaml:"steadycom"`
	Smetana   smetana.Options   `mapstructure:"smetana" yaml:"smetana"`
	Batch     Batch             `mapstructure:"batch" yaml:"batch"`
	Log       Log               `mapstructure:"log" yaml:"log"`
}

func Default() Config {
	return Config{
		Solver:    lp.Config{Backend: lp.BackendHighs},
		SteadyCom: steadycom.DefaultOptions(),
		Smetana:   smetana.DefaultOptions(),
		Batch:     Batch{Workers: 4, DB: "microcom.db"},
	}
}

// New returns a viper instance carrying the defaults and reading the
// environment. Every key has a default so that environment overrides reach
// Unmarshal.
func New() *viper.Viper {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	d := Default()
	v.SetDefault("solver.backend", d.Solver.Backend)
	v.SetDefault("solver.verbose", d.Solver.Verbose)

	v.SetDefault("steadycom.obj_frac", d.SteadyCom.ObjFrac)
	v.SetDefault("steadycom.abs_tol", d.SteadyCom.AbsTol)
	v.SetDefault("steadycom.rel_tol", d.SteadyCom.RelTol)
	v.SetDefault("steadycom.max_iters", d.SteadyCom.MaxIters)
	v.SetDefault("steadycom.big_m", d.SteadyCom.BigM)
	v.SetDefault("steadycom.safety_factor", d.SteadyCom.SafetyFactor)
	v.SetDefault("steadycom.fix_abundance", d.SteadyCom.FixAbundance)

	v.SetDefault("smetana.min_growth", d.Smetana.MinGrowth)
	v.SetDefault("smetana.max_uptake", d.Smetana.MaxUptake)
	v.SetDefault("smetana.n_solutions", d.Smetana.NSolutions)
	v.SetDefault("smetana.abs_tol", d.Smetana.AbsTol)
	v.SetDefault("smetana.safety_factor", d.Smetana.SafetyFactor)
	v.SetDefault("smetana.include_suboptimal", d.Smetana.IncludeSuboptimal)

	v.SetDefault("batch.workers", d.Batch.Workers)
	v.SetDefault("batch.db", d.Batch.DB)

	v.SetDefault("log.verbosity", d.Log.Verbosity)
	v.SetDefault("log.development", d.Log.Development)
	return v
}

// Load reads the file at path into v, when path is set, and decodes the
// result. The returned config is validated.
func Load(v *viper.Viper, path string) (*Config, error) {
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %q: %w", path, err)
		}
	}
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	if err := c.Solver.Validate(); err != nil {
		return fmt.Errorf("solver: %w", err)
	}
	if err := c.SteadyCom.Validate(); err != nil {
		return fmt.Errorf("steadycom: %w", err)
	}
	if err := c.Smetana.Validate(); err != nil {
		return fmt.Errorf("smetana: %w", err)
	}
	if c.Batch.Workers < 1 {
		return fmt.Errorf("invalid value %d for %q: must be >= 1", c.Batch.Workers, "batch.workers")
	}
	if c.Log.Verbosity < 0 {
		return fmt.Errorf("invalid value %d for %q: must be >= 0", c.Log.Verbosity, "log.verbosity")
	}
	return nil
}
