package measure

import (
	"math"

	"emfit/domain/lines"

	"github.com/montanaflynn/stats"
)

// LineMask is the half width in Angstrom masked around each line center when
// estimating continuum noise.
const LineMask = 20.0

// ClippedStats is the result of iterative sigma clipping
type ClippedStats struct {
	Mean   float64 `json:"mean"`
	Median float64 `json:"median"`
	StdDev float64 `json:"std_dev"`
	N      int     `json:"n"`
}

// SigmaClip iteratively rejects values further than nSigma standard deviations
// from the median until nothing changes or maxIters is reached.
func SigmaClip(data []float64, nSigma float64, maxIters int) ClippedStats {
	kept := make([]float64, 0, len(data))
	for _, v := range data {
		if !math.IsNaN(v) && !math.IsInf(v, 0) {
			kept = append(kept, v)
		}
	}
	if len(kept) == 0 {
		return ClippedStats{Mean: math.NaN(), Median: math.NaN(), StdDev: math.NaN()}
	}

	for iter := 0; iter < maxIters; iter++ {
		median, _ := stats.Median(kept)
		std, _ := stats.StandardDeviationPopulation(kept)
		next := kept[:0:0]
		for _, v := range kept {
			if math.Abs(v-median) <= nSigma*std {
				next = append(next, v)
			}
		}
		if len(next) == len(kept) || len(next) == 0 {
			break
		}
		kept = next
	}

	mean, _ := stats.Mean(kept)
	median, _ := stats.Median(kept)
	std, _ := stats.StandardDeviationPopulation(kept)
	return ClippedStats{Mean: mean, Median: median, StdDev: std, N: len(kept)}
}

// Noise estimates the continuum noise of a complex's fit window: the
// sigma-clipped standard deviation of the flux with the lines masked.
func Noise(lam, flam []float64, c lines.Complex) float64 {
	w := lines.FitWindow(c)
	centers := lines.Centers(c)

	var sample []float64
	for i, l := range lam {
		if !w.Contains(l) {
			continue
		}
		masked := false
		for _, c0 := range centers {
			if math.Abs(l-c0) < LineMask {
				masked = true
				break
			}
		}
		if !masked {
			sample = append(sample, flam[i])
		}
	}
	if len(sample) == 0 {
		return math.NaN()
	}
	return SigmaClip(sample, 3, 5).StdDev
}
