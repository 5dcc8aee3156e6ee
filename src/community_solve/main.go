package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"

	"github.com/go-logr/logr"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"microcom/src/batch"
	"microcom/src/community"
	"microcom/src/config"
	"microcom/src/logging"
	"microcom/src/lp"
	"microcom/src/model"
	"microcom/src/smetana"
	"microcom/src/steadycom"
	"microcom/src/store"
)

type options struct {
	configPath      string
	batchPath       string
	models          []string
	environment     map[string]string
	steadyCom       bool
	va              bool
	smetana         bool
	mergeBiomasses  bool
	addCompartments bool
	metricsAddr     string
}

func main() {
	var opts options
	fs := pflag.NewFlagSet(os.Args[0], pflag.ExitOnError)
	fs.StringVar(&opts.configPath, "config", "", "YAML configuration file")
	fs.StringVar(&opts.batchPath, "batch", "", "YAML file listing the communities to analyze")
	fs.StringArrayVar(&opts.models, "model", nil, "Organism model file, repeat once per organism of the community")
	fs.StringToStringVar(&opts.environment, "env", nil, "Maximum uptake of shared metabolites, as met=rate pairs")
	fs.BoolVar(&opts.steadyCom, "steadycom", false, "Compute growth rate and abundances with SteadyCom")
	fs.BoolVar(&opts.va, "va", false, "Compute abundance ranges with SteadyComVA")
	fs.BoolVar(&opts.smetana, "smetana", false, "Compute the SMETANA scores")
	fs.BoolVar(&opts.mergeBiomasses, "merge-biomasses", false, "Add the abundance weighted community growth reaction")
	fs.BoolVar(&opts.addCompartments, "add-compartments", false, "Keep private external compartments linked by transports")
	fs.StringVar(&opts.metricsAddr, "metrics-addr", "", "Serve solver metrics on this address")
	fs.String("backend", lp.BackendHighs, "Solver backend, highs or lpsolve")
	fs.Int("workers", 0, "Communities solved at once in batch mode")
	fs.String("db", "", "Result database of batch mode")
	fs.IntP("v", "v", 0, "Log verbosity")
	_ = fs.Parse(os.Args[1:])

	v := config.New()
	for key, flag := range map[string]string{
		"solver.backend": "backend",
		"batch.workers":  "workers",
		"batch.db":       "db",
		"log.verbosity":  "v",
	} {
		if err := bindChanged(v, fs, key, flag); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
	}
	cfg, err := config.Load(v, opts.configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	if opts.batchPath == "" && len(opts.models) == 0 {
		fmt.Fprintln(os.Stderr, "Must specify a batch file or at least a model")
		os.Exit(1)
	}
	if opts.batchPath == "" && !opts.steadyCom && !opts.va && !opts.smetana {
		fmt.Fprintln(os.Stderr, "Must specify an analysis")
		os.Exit(1)
	}

	logger, sync, err := logging.New(cfg.Log.Verbosity, cfg.Log.Development)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer sync()

	if opts.metricsAddr != "" {
		serveMetrics(opts.metricsAddr, logger)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if opts.batchPath != "" {
		err = runBatch(ctx, cfg, opts.batchPath, logger)
	} else {
		err = runCommunity(cfg, opts, logger)
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		stop()
		sync()
		os.Exit(1)
	}
}

// bindChanged lets a flag override the configuration only when given, so
// that file and environment values are not shadowed by flag defaults.
func bindChanged(v *viper.Viper, fs *pflag.FlagSet, key, name string) error {
	flag := fs.Lookup(name)
	if flag == nil || !flag.Changed {
		return nil
	}
	return v.BindPFlag(key, flag)
}

func serveMetrics(addr string, logger logr.Logger) {
	reg := prometheus.NewRegistry()
	lp.RegisterMetrics(reg)
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	go func() {
		if err := http.ListenAndServe(addr, mux); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error(err, "Metrics server stopped", "addr", addr)
		}
	}()
}

func runBatch(ctx context.Context, cfg *config.Config, path string, logger logr.Logger) error {
	jobs, err := batch.LoadJobs(path)
	if err != nil {
		return err
	}
	results, err := store.Open(cfg.Batch.DB)
	if err != nil {
		return err
	}
	defer results.Close()

	runner := &batch.Runner{Config: cfg, Store: results, Logger: logger}
	runID, err := runner.Run(ctx, jobs)
	if err != nil {
		return fmt.Errorf("run %s: %w", runID, err)
	}
	records, err := results.ListRun(ctx, runID)
	if err != nil {
		return err
	}
	fmt.Printf("Run %v (%v):\n", runID, results.Path())
	for _, rec := range records {
		fmt.Printf("  %-20v %-10v %v\n", rec.Community, rec.Metric, rec.Status)
	}
	return nil
}

func runCommunity(cfg *config.Config, opts options, logger logr.Logger) error {
	var organisms []model.OrganismAdapter
	for _, p := range opts.models {
		m, err := model.LoadFile(p)
		if err != nil {
			return err
		}
		organisms = append(organisms, m)
	}
	c, err := community.Build(organisms,
		community.WithMergeBiomasses(opts.mergeBiomasses),
		community.WithAddCompartments(opts.addCompartments),
		community.WithLogger(logger),
	)
	if err != nil {
		return err
	}
	if opts.environment != nil {
		env := make(map[string]float64, len(opts.environment))
		for met, rate := range opts.environment {
			if env[met], err = strconv.ParseFloat(rate, 64); err != nil {
				return fmt.Errorf("uptake of %s: %w", met, err)
			}
		}
		if err := c.SetEnvironment(env); err != nil {
			return err
		}
	}

	s, err := lp.Open(cfg.Solver)
	if err != nil {
		return err
	}
	defer s.Close()

	scOpts := cfg.SteadyCom
	scOpts.Logger = logger
	smOpts := cfg.Smetana
	smOpts.Logger = logger

	enc := yaml.NewEncoder(os.Stdout)
	defer enc.Close()
	fmt.Printf("Community %v:\n", c.ID())
	if opts.steadyCom {
		res, err := steadycom.Solve(c, s, scOpts)
		if err != nil {
			return fmt.Errorf("steadycom: %w", err)
		}
		alone := standaloneGrowth(s, organisms, logger)
		if err := enc.Encode(map[string]any{"steadycom": res, "alone": alone}); err != nil {
			return err
		}
	}
	if opts.va {
		ranges, err := steadycom.VA(c, s, scOpts)
		if err != nil {
			return fmt.Errorf("steadycom va: %w", err)
		}
		if err := enc.Encode(map[string]any{"va": ranges}); err != nil {
			return err
		}
	}
	if opts.smetana {
		report, err := smetana.All(c, s, smOpts)
		if err != nil {
			return fmt.Errorf("smetana: %w", err)
		}
		if err := enc.Encode(map[string]any{"smetana": report.Interactions, "mip": report.MIP.Score, "mro": report.MRO.Score}); err != nil {
			return err
		}
	}
	return nil
}

// standaloneGrowth is each organism's maximum growth rate on its own
// exchange bounds. Organisms that cannot grow alone are left out.
func standaloneGrowth(s lp.Solver, organisms []model.OrganismAdapter, logger logr.Logger) map[string]float64 {
	alone := make(map[string]float64, len(organisms))
	for _, m := range organisms {
		mu, err := model.MaxGrowth(s, m)
		if err != nil {
			logger.V(1).Info("Organism does not grow alone", "organism", m.ID(), "reason", err.Error())
			continue
		}
		alone[m.ID()] = mu
	}
	return alone
}
