package pipeline

import (
	"context"
	"log"
	"sync"
	"time"

	"emfit/domain/target"
	"emfit/internal/bestfit"
	"emfit/internal/errors"
	"emfit/ports"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"
)

// RunnerConfig bounds a batch run
type RunnerConfig struct {
	Workers    int
	MonteCarlo MonteCarloConfig
	// Timeout bounds each target; zero disables
	Timeout time.Duration
}

// TargetResult is the outcome for one target; Err is set instead of Fit when
// the target could not be fitted.
type TargetResult struct {
	Target   target.Target
	Fit      *Fit
	Err      error
	Duration time.Duration
}

// Sink receives each finished target, e.g. to write a per-target file
type Sink func(TargetResult) error

// Runner fits many targets in parallel with a bounded number of workers
type Runner struct {
	source   ports.SpectrumSource
	selector *bestfit.Selector
	config   RunnerConfig
	sink     Sink
	sinkMu   sync.Mutex
	runID    string
}

// NewRunner creates a runner with a fresh run identifier
func NewRunner(source ports.SpectrumSource, selector *bestfit.Selector, config RunnerConfig) *Runner {
	if config.Workers <= 0 {
		config.Workers = 1
	}
	return &Runner{
		source:   source,
		selector: selector,
		config:   config,
		runID:    uuid.New().String(),
	}
}

// WithSink registers a per-target callback; calls are serialized
func (r *Runner) WithSink(s Sink) *Runner {
	r.sink = s
	return r
}

// RunID identifies this batch in logs and output headers
func (r *Runner) RunID() string {
	return r.runID
}

// Run fits every target. Per-target failures are recorded in the result and
// do not stop the batch; only cancellation of ctx does. Results keep the
// order of targets.
func (r *Runner) Run(ctx context.Context, targets []target.Target) ([]TargetResult, error) {
	log.Printf("[Runner] run %s: %d targets, %d workers, %d Monte Carlo iterations",
		r.runID, len(targets), r.config.Workers, r.config.MonteCarlo.Iterations)

	start := time.Now()
	results := make([]TargetResult, len(targets))
	err := r.forEach(ctx, len(targets), func(ctx context.Context, i int) {
		results[i] = r.runOne(ctx, targets[i])
		r.emit(results[i])
	})
	if err != nil {
		return results, err
	}

	failed := 0
	for _, res := range results {
		if res.Err != nil {
			failed++
		}
	}
	log.Printf("[Runner] run %s finished in %v (%d ok, %d failed)",
		r.runID, time.Since(start).Round(time.Millisecond), len(targets)-failed, failed)
	return results, nil
}

// forEach runs fn for 0..n-1 with at most Workers calls in flight
func (r *Runner) forEach(ctx context.Context, n int, fn func(context.Context, int)) error {
	sem := semaphore.NewWeighted(int64(r.config.Workers))
	g, gctx := errgroup.WithContext(ctx)

	for i := 0; i < n; i++ {
		if err := sem.Acquire(gctx, 1); err != nil {
			break
		}
		g.Go(func() error {
			defer sem.Release(1)
			fn(gctx, i)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}
	return ctx.Err()
}

func (r *Runner) runOne(ctx context.Context, t target.Target) TargetResult {
	start := time.Now()
	if r.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.config.Timeout)
		defer cancel()
	}
	res := TargetResult{Target: t}

	spec, err := r.source.Spectrum(ctx, t)
	if err != nil {
		res.Err = errors.Wrapf(err, "load spectrum of %d", t.TargetID)
	} else {
		cfg := r.config.MonteCarlo
		cfg.Seed ^= uint64(t.TargetID)
		res.Fit, err = MonteCarlo(ctx, r.selector, spec.RestFrame(t.Z), cfg)
		if err != nil {
			res.Err = errors.Wrapf(err, "fit %d", t.TargetID)
		}
	}
	res.Duration = time.Since(start)

	if res.Err != nil {
		log.Printf("[Runner] ❌ %s failed after %v: %v", t, res.Duration.Round(time.Millisecond), res.Err)
	} else {
		log.Printf("[Runner] ✅ %s done in %v", t, res.Duration.Round(time.Millisecond))
	}
	return res
}

func (r *Runner) emit(res TargetResult) {
	if r.sink == nil || res.Err != nil {
		return
	}
	r.sinkMu.Lock()
	defer r.sinkMu.Unlock()
	if err := r.sink(res); err != nil {
		// output problems are per target too
		log.Printf("[Runner] sink failed for %d: %v", res.Target.TargetID, err)
	}
}
