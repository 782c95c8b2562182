package pipeline

import (
	"context"
	"log"
	"math/rand/v2"

	"emfit/domain/lines"
	"emfit/domain/model"
	"emfit/domain/spectrum"
	"emfit/internal/bestfit"
	"emfit/internal/errors"
	"emfit/internal/params"

	"gonum.org/v1/gonum/stat/distuv"
)

// MonteCarloConfig controls error propagation
type MonteCarloConfig struct {
	Iterations int
	Seed       uint64
}

// Fit is the complete outcome of fitting one spectrum
type Fit struct {
	Original       *IterationResult
	Iterations     []params.Iteration
	Summary        params.Summary
	Models         map[lines.Complex]*model.Model
	RChi2          map[lines.Complex]float64
	PercentHbBroad float64
	PercentHaBroad float64
	Failed         int
}

// MonteCarlo fits the rest-frame spectrum once, then refits it Iterations
// times with noise drawn from the error spectrum and passed through the
// resolution matrix. [SII] and [OIII] keep the complexity of the first fit;
// the Balmer lines are reselected each time.
func MonteCarlo(ctx context.Context, sel *bestfit.Selector, spec *spectrum.Spectrum, cfg MonteCarloConfig) (*Fit, error) {
	orig, err := FitIteration(sel, spec, Forced{})
	if err != nil {
		return nil, err
	}
	forced := Forced{
		SII:  orig.Selections[lines.ComplexSII].NComponents,
		OIII: orig.Selections[lines.ComplexOIII].NComponents,
	}

	fit := &Fit{Original: orig}
	errSpec := spec.ErrorSpectrum()
	norm := distuv.Normal{Mu: 0, Sigma: 1, Src: rand.NewPCG(cfg.Seed, cfg.Seed^0x9e3779b97f4a7c15)}

	for k := 0; k < cfg.Iterations; k++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		flux, err := perturb(spec, errSpec, norm)
		if err != nil {
			return nil, err
		}
		res, err := FitIteration(sel, spec.WithFlux(flux), forced)
		if err != nil {
			fit.Failed++
			log.Printf("[MonteCarlo] iteration %d failed: %v", k, err)
			continue
		}
		fit.Iterations = append(fit.Iterations, res.Iteration)
	}

	if len(fit.Iterations) == 0 {
		// nothing to propagate; report the single fit
		if cfg.Iterations > 0 {
			log.Printf("[MonteCarlo] all %d iterations failed, using the original fit", cfg.Iterations)
		}
		fit.Iterations = []params.Iteration{orig.Iteration}
	}

	fit.Summary = params.Summarize(fit.Iterations)
	params.FixSwapped(fit.Summary)
	fit.Models = params.FinalModels(fit.Summary)
	fit.RChi2 = params.FinalRChi2(spec, fit.Summary)
	fit.PercentHbBroad = params.PercentBroad(fit.Iterations, lines.ComplexHb, lines.HbBroad)
	fit.PercentHaBroad = params.PercentBroad(fit.Iterations, lines.ComplexNIIHa, lines.HaBroad)
	return fit, nil
}

func perturb(spec *spectrum.Spectrum, errSpec []float64, norm distuv.Normal) ([]float64, error) {
	noise := make([]float64, len(errSpec))
	for i, e := range errSpec {
		noise[i] = norm.Rand() * e
	}
	if spec.Res != nil {
		var err error
		noise, err = spec.Res.Apply(noise)
		if err != nil {
			return nil, errors.Wrap(err, "resolution")
		}
	}
	out := make([]float64, len(noise))
	for i := range noise {
		out[i] = spec.Flam[i] + noise[i]
	}
	return out, nil
}
