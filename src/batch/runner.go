// Package batch analyzes many communities in parallel and records every
// outcome in a result store.
package batch

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-logr/logr"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"gopkg.in/dnaeon/go-priorityqueue.v1"
	"gopkg.in/yaml.v3"

	"microcom/src/community"
	"microcom/src/config"
	"microcom/src/lp"
	"microcom/src/model"
	"microcom/src/smetana"
	"microcom/src/steadycom"
	"microcom/src/store"
)

type ResultStore interface {
	Put(ctx context.Context, r store.Record) error
}

type Runner struct {
	Config *config.Config
	Store  ResultStore
	Logger logr.Logger
}

type loaded struct {
	job    Job
	models []model.OrganismAdapter
	size   int
}

// Run analyzes jobs with at most Config.Batch.Workers running at once, the
// largest communities first. Each job owns its solver and community. Job
// failures are recorded and do not stop the run; the returned error reports
// a cancelled context or a store that could not be written.
func (r *Runner) Run(ctx context.Context, jobs []Job) (string, error) {
	runID := uuid.NewString()
	logger := r.Logger.WithValues("run", runID)

	pq := priorityqueue.New[int, float64](priorityqueue.MaxHeap)
	ready := make([]loaded, 0, len(jobs))
	for _, job := range jobs {
		l, err := load(job)
		if err != nil {
			logger.Error(err, "Skipping job", "job", job.Name)
			if err := r.put(ctx, runID, job.Name, "load", err, nil); err != nil {
				return runID, err
			}
			continue
		}
		pq.Put(len(ready), float64(l.size))
		ready = append(ready, l)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.Config.Batch.Workers)
	for pq.Len() > 0 {
		l := ready[pq.Get().Value]
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			return r.runJob(gctx, runID, l, logger.WithValues("job", l.job.Name))
		})
	}
	if err := g.Wait(); err != nil {
		return runID, err
	}
	if err := ctx.Err(); err != nil {
		return runID, err
	}
	logger.Info("Finished batch", "jobs", len(jobs))
	return runID, nil
}

func load(job Job) (loaded, error) {
	if err := job.validate(); err != nil {
		return loaded{}, err
	}
	l := loaded{job: job}
	for _, path := range job.Organisms {
		m, err := model.LoadFile(path)
		if err != nil {
			return loaded{}, err
		}
		l.models = append(l.models, m)
		l.size += len(m.Reactions())
	}
	return l, nil
}

func (r *Runner) runJob(ctx context.Context, runID string, l loaded, logger logr.Logger) error {
	s, err := lp.Open(r.Config.Solver)
	if err != nil {
		return r.put(ctx, runID, l.job.Name, "solver", err, nil)
	}
	defer s.Close()

	c, err := community.Build(l.models,
		community.WithMergeBiomasses(l.job.MergeBiomasses),
		community.WithAddCompartments(l.job.AddCompartments),
		community.WithLogger(logger),
	)
	if err == nil && l.job.Environment != nil {
		err = c.SetEnvironment(l.job.Environment)
	}
	if err != nil {
		return r.put(ctx, runID, l.job.Name, "build", err, nil)
	}

	scOpts := r.Config.SteadyCom
	scOpts.Logger = logger
	smOpts := r.Config.Smetana
	smOpts.Logger = logger
	for _, metric := range l.job.Metrics {
		if err := ctx.Err(); err != nil {
			return err
		}
		result, err := compute(c, s, metric, scOpts, smOpts)
		if err != nil {
			logger.Info("Metric failed", "metric", metric, "error", err.Error())
		} else {
			logger.V(1).Info("Computed metric", "metric", metric)
		}
		if err := r.put(ctx, runID, l.job.Name, metric, err, result); err != nil {
			return err
		}
	}
	return nil
}

func compute(c *community.Community, s lp.Solver, metric string, scOpts steadycom.Options, smOpts smetana.Options) (any, error) {
	switch metric {
	case MetricSteadyCom:
		return steadycom.Solve(c, s, scOpts)
	case MetricVA:
		return steadycom.VA(c, s, scOpts)
	case MetricSC:
		return smetana.SC(c, s, smOpts)
	case MetricMU:
		return smetana.MU(c, s, smOpts)
	case MetricMP:
		return smetana.MP(c, s, smOpts)
	case MetricMIP:
		return smetana.MIP(c, s, smOpts)
	case MetricMRO:
		mro, err := smetana.MRO(c, s, smOpts)
		if err != nil {
			return nil, err
		}
		return mroPayload(mro), nil
	case MetricSmetana:
		report, err := smetana.All(c, s, smOpts)
		if err != nil {
			return nil, err
		}
		return reportPayload(report), nil
	}
	return nil, fmt.Errorf("unknown metric %q", metric)
}

// Status classifies the outcome of a metric.
func Status(err error) store.Status {
	switch {
	case err == nil:
		return store.StatusOK
	case errors.Is(err, lp.ErrInfeasible), errors.Is(err, steadycom.ErrNoViableGrowth):
		return store.StatusInfeasible
	}
	return store.StatusError
}

func (r *Runner) put(ctx context.Context, runID, job, metric string, err error, result any) error {
	rec := store.Record{RunID: runID, Community: job, Metric: metric, Status: Status(err)}
	if err != nil {
		rec.Payload = []byte(err.Error())
	} else {
		data, mErr := yaml.Marshal(result)
		if mErr != nil {
			rec.Status, rec.Payload = store.StatusError, []byte(mErr.Error())
		} else {
			rec.Payload = data
		}
	}
	if err := r.Store.Put(ctx, rec); err != nil {
		return fmt.Errorf("store %s/%s: %w", job, metric, err)
	}
	return nil
}
