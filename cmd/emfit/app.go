package main

import (
	"context"
	"fmt"
	"strings"

	"emfit/adapters/desi"
	"emfit/adapters/fitting"
	"emfit/domain/spectrum"
	"emfit/domain/target"
	"emfit/internal/bestfit"
	"emfit/internal/complexes"
	"emfit/internal/config"
	"emfit/internal/pipeline"
	"emfit/ports"

	"github.com/spf13/cobra"
)

// application carries the loaded configuration into the commands
type application struct {
	cfg *config.Config

	threshold  float64
	width      string
	iterations int
	seed       uint64
	workers    int
	maxIter    int
	spectra    string
}

func (a *application) bindFlags(cmd *cobra.Command) {
	f := cmd.PersistentFlags()
	f.Float64Var(&a.threshold, "threshold", 20, "Reduced chi-square improvement (percent) required for a more complex model")
	f.StringVar(&a.width, "width", "free", "Narrow Balmer width mode: free|fixed")
	f.IntVar(&a.iterations, "iterations", 100, "Monte Carlo iterations per target")
	f.Uint64Var(&a.seed, "seed", 1, "Random seed for Monte Carlo noise")
	f.IntVar(&a.workers, "workers", 0, "Parallel targets (default: number of CPUs)")
	f.IntVar(&a.maxIter, "max-iter", 1000, "Levenberg-Marquardt iteration limit")
	f.StringVar(&a.spectra, "spectra", "", "Root of the spectroscopic productions, or a directory of <TARGETID>.csv files")
}

// applyFlags overrides configuration values with explicitly set flags
func (a *application) applyFlags(cmd *cobra.Command) error {
	changed := cmd.Flags().Changed
	if changed("threshold") {
		a.cfg.Fit.Threshold = a.threshold
	}
	if changed("width") {
		a.cfg.Fit.WidthMode = strings.ToLower(a.width)
	}
	if changed("iterations") {
		a.cfg.MonteCarlo.Iterations = a.iterations
	}
	if changed("seed") {
		a.cfg.MonteCarlo.Seed = a.seed
	}
	if changed("workers") {
		a.cfg.Runner.Workers = a.workers
	}
	if changed("max-iter") {
		a.cfg.Fit.MaxIterations = a.maxIter
	}
	if changed("spectra") {
		a.cfg.Paths.SpectraRoot = a.spectra
	}
	return a.cfg.Validate()
}

func (a *application) selector() (*bestfit.Selector, error) {
	width, err := complexes.ParseWidth(a.cfg.Fit.WidthMode)
	if err != nil {
		return nil, err
	}
	opts := bestfit.Options{
		Complex: complexes.Options{
			FitContinuum:    a.cfg.Fit.FitContinuum,
			ContinuumDegree: a.cfg.Fit.ContinuumDegree,
			WidthFraction:   a.cfg.Fit.WidthFraction,
		},
		Threshold: a.cfg.Fit.Threshold,
		Width:     width,
	}
	return bestfit.NewSelector(fitting.NewLevMar(a.cfg.Fit.MaxIterations), opts), nil
}

func (a *application) monteCarlo() pipeline.MonteCarloConfig {
	return pipeline.MonteCarloConfig{Iterations: a.cfg.MonteCarlo.Iterations, Seed: a.cfg.MonteCarlo.Seed}
}

func (a *application) runner() (*pipeline.Runner, error) {
	sel, err := a.selector()
	if err != nil {
		return nil, err
	}
	return pipeline.NewRunner(a.source(), sel, pipeline.RunnerConfig{
		Workers:    a.cfg.Runner.Workers,
		MonteCarlo: a.monteCarlo(),
		Timeout:    a.cfg.Runner.Timeout,
	}), nil
}

// source reads text spectra when the root holds CSV files, coadds otherwise
func (a *application) source() ports.SpectrumSource {
	if isTextDir(a.cfg.Paths.SpectraRoot) {
		return &desi.TextSource{Dir: a.cfg.Paths.SpectraRoot}
	}
	return desi.NewCoaddReader(a.cfg.Paths.SpectraRoot)
}

// targets reads target tables in CSV, XLSX or FITS
func (a *application) targets() ports.TargetReader {
	return desi.NewTargetReader()
}

// targetFlags identify a single DESI target on the command line
type targetFlags struct {
	target.Target
}

func (t *targetFlags) bind(cmd *cobra.Command) {
	f := cmd.Flags()
	f.Int64Var(&t.TargetID, "targetid", 0, "DESI TARGETID")
	f.StringVar(&t.SpecProd, "specprod", "iron", "Spectroscopic production")
	f.StringVar(&t.Survey, "survey", "main", "Survey")
	f.StringVar(&t.Program, "program", "dark", "Program")
	f.IntVar(&t.Healpix, "healpix", 0, "HEALPix pixel")
	f.Float64Var(&t.Z, "z", 0, "Redshift")
}

// spectrum loads the rest-frame spectrum named by a CSV argument or by the
// target flags
func (a *application) spectrum(ctx context.Context, args []string, t targetFlags) (*spectrum.Spectrum, target.Target, error) {
	var (
		spec *spectrum.Spectrum
		err  error
	)
	if len(args) > 0 && strings.HasSuffix(strings.ToLower(args[0]), ".csv") {
		spec, err = desi.ReadText(args[0])
	} else {
		if t.TargetID == 0 {
			return nil, t.Target, fmt.Errorf("give a CSV spectrum or --targetid with --healpix and --z")
		}
		spec, err = a.source().Spectrum(ctx, t.Target)
	}
	if err != nil {
		return nil, t.Target, err
	}
	return spec.RestFrame(t.Z), t.Target, nil
}
