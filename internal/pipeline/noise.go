package pipeline

import (
	"context"
	"log"

	"emfit/domain/lines"
	"emfit/domain/measure"
	"emfit/domain/spectrum"
	"emfit/domain/target"
	"emfit/internal/errors"
)

// NoiseResult is the continuum noise of each complex of one target
type NoiseResult struct {
	Target target.Target
	Noise  map[lines.Complex]float64
	Err    error
}

// SpectrumNoise measures the line-masked, sigma-clipped noise of every
// complex of a rest-frame spectrum.
func SpectrumNoise(spec *spectrum.Spectrum) map[lines.Complex]float64 {
	out := make(map[lines.Complex]float64, len(lines.Complexes))
	for _, c := range lines.Complexes {
		win := spec.WindowFor(c)
		out[c] = measure.Noise(win.Lam, win.Flam, c)
	}
	return out
}

// Noise measures every target with the runner's worker pool
func (r *Runner) Noise(ctx context.Context, targets []target.Target) ([]NoiseResult, error) {
	log.Printf("[Runner] noise %s: %d targets", r.runID, len(targets))

	results := make([]NoiseResult, len(targets))
	err := r.forEach(ctx, len(targets), func(ctx context.Context, i int) {
		t := targets[i]
		results[i].Target = t
		spec, err := r.source.Spectrum(ctx, t)
		if err != nil {
			results[i].Err = errors.Wrapf(err, "load spectrum of %d", t.TargetID)
			log.Printf("[Runner] ❌ noise %s: %v", t, results[i].Err)
			return
		}
		results[i].Noise = SpectrumNoise(spec.RestFrame(t.Z))
	})
	return results, err
}
