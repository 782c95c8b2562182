package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"emfit/adapters/desi"
	"emfit/adapters/output"
	"emfit/adapters/plot"
	"emfit/domain/lines"
	"emfit/domain/target"
	"emfit/internal/pipeline"
	"emfit/internal/testkit"

	"github.com/spf13/cobra"
)

func newRunCmd(app *application) *cobra.Command {
	var perTarget bool

	cmd := &cobra.Command{
		Use:   "run [targets] [output]",
		Short: "Fit every target of a target table",
		Long: `Fit every target of a CSV, XLSX or FITS table with TARGETID, SPECPROD, SURVEY,
PROGRAM, HEALPIX and Z columns. One row per target is written to the output,
whose format follows its extension (.fits, .csv or .xlsx).

Example: emfit run targets.fits emfit-iron.fits --workers 32 --iterations 100`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("per-target") {
				app.cfg.Paths.PerTarget = perTarget
			}
			return runBatch(cmd.Context(), app, args[0], args[1])
		},
	}

	cmd.Flags().BoolVar(&perTarget, "per-target", false, "Also write emfit-<TARGETID>.fits for each target")
	return cmd
}

func runBatch(ctx context.Context, app *application, targetsPath, outPath string) error {
	targets, err := app.targets().ReadTargets(targetsPath)
	if err != nil {
		return err
	}
	runner, err := app.runner()
	if err != nil {
		return err
	}

	if app.cfg.Paths.PerTarget {
		dir := filepath.Join(app.cfg.Paths.OutputDir, "single_files")
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create %s: %w", dir, err)
		}
		runner.WithSink(func(res pipeline.TargetResult) error {
			path := filepath.Join(dir, fmt.Sprintf("emfit-%d.fits", res.Target.TargetID))
			return output.Write(path, pipeline.ResultTable([]pipeline.TargetResult{res}))
		})
	}

	fmt.Printf("🔬 Fitting %d targets (run %s)...\n", len(targets), runner.RunID())
	start := time.Now()
	results, err := runner.Run(ctx, targets)
	if err != nil {
		return err
	}

	w, err := output.ForPath(outPath)
	if err != nil {
		return err
	}
	if fw, ok := w.(*output.FITSWriter); ok {
		fw.Keywords = map[string]string{"RUNID": runner.RunID()}
	}
	if err := w.Write(outPath, pipeline.ResultTable(results)); err != nil {
		return err
	}

	failed := 0
	for _, r := range results {
		if r.Err != nil {
			failed++
		}
	}
	fmt.Printf("✅ %d fitted, %d failed in %v → %s\n", len(results)-failed, failed, time.Since(start).Round(time.Second), outPath)
	return nil
}

func newFitCmd(app *application) *cobra.Command {
	var t targetFlags
	var outPath string

	cmd := &cobra.Command{
		Use:   "fit [spectrum.csv]",
		Short: "Fit one spectrum and print the best-fit parameters",
		Long: `Fit a single spectrum, either a CSV file with lam, flam and ivar columns or a
DESI target given by flags.

Example: emfit fit --targetid 39627652595714901 --healpix 27256 --z 0.081
Example: emfit fit synthetic.csv --z 0.05 --out fit.csv`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			spec, tg, err := app.spectrum(cmd.Context(), args, t)
			if err != nil {
				return err
			}
			sel, err := app.selector()
			if err != nil {
				return err
			}
			fit, err := pipeline.MonteCarlo(cmd.Context(), sel, spec, app.monteCarlo())
			if err != nil {
				return err
			}
			printFit(tg, fit)
			if outPath != "" {
				return output.Write(outPath, pipeline.ResultTable([]pipeline.TargetResult{{Target: tg, Fit: fit}}))
			}
			return nil
		},
	}

	t.bind(cmd)
	cmd.Flags().StringVar(&outPath, "out", "", "Write the result row to a .fits, .csv or .xlsx file")
	return cmd
}

func printFit(t target.Target, fit *pipeline.Fit) {
	fmt.Printf("\n📊 EMISSION-LINE FIT: TARGETID %d, z = %.4f\n", t.TargetID, t.Z)
	fmt.Printf("Monte Carlo iterations: %d (%d failed)\n", len(fit.Iterations), fit.Failed)
	for _, c := range lines.Complexes {
		sel := fit.Original.Selections[c]
		cs := fit.Summary[c]
		if sel == nil || cs == nil {
			continue
		}
		fmt.Printf("\n%s  rχ² = %.3f  dof = %d  flags = %d\n", c.Label(), fit.RChi2[c], cs.DOF, sel.FlagMask())
		for _, name := range lines.Components(c) {
			p := cs.Components[name]
			if p.Flux.Value == 0 {
				continue
			}
			fmt.Printf("  %-13s flux %10.3f ± %-8.3f σ %7.1f ± %-6.1f km/s  λ %9.3f\n",
				name, p.Flux.Value, p.Flux.Err, p.Sigma.Value, p.Sigma.Err, p.Mean.Value)
		}
	}
	fmt.Printf("\nBroad Hβ in %.0f%% of iterations, broad Hα in %.0f%%\n", fit.PercentHbBroad, fit.PercentHaBroad)
}

func newPlotCmd(app *application) *cobra.Command {
	var t targetFlags

	cmd := &cobra.Command{
		Use:   "plot [spectrum.csv] [output.png]",
		Short: "Plot the best fits of one spectrum",
		Long: `Fit one spectrum and draw data, model, components and residuals for the four
complexes.

Example: emfit plot synthetic.csv fits.png --z 0.05`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			pngPath := args[len(args)-1]
			spec, tg, err := app.spectrum(cmd.Context(), args[:len(args)-1], t)
			if err != nil {
				return err
			}
			sel, err := app.selector()
			if err != nil {
				return err
			}
			fit, err := pipeline.MonteCarlo(cmd.Context(), sel, spec, app.monteCarlo())
			if err != nil {
				return err
			}
			title := fmt.Sprintf("TARGETID %d  z = %.3f", tg.TargetID, tg.Z)
			cfg := plot.Config{Width: app.cfg.Plot.Width, Height: app.cfg.Plot.Height}
			if err := plot.Fits(pngPath, spec, fit.Models, fit.RChi2, title, cfg); err != nil {
				return err
			}
			fmt.Printf("✅ Plot written to %s\n", pngPath)
			return nil
		},
	}

	t.bind(cmd)
	return cmd
}

func newNoiseCmd(app *application) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "noise [targets] [output]",
		Short: "Measure the continuum noise of each complex for every target",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			targets, err := app.targets().ReadTargets(args[0])
			if err != nil {
				return err
			}
			runner, err := app.runner()
			if err != nil {
				return err
			}
			results, err := runner.Noise(cmd.Context(), targets)
			if err != nil {
				return err
			}
			if err := output.Write(args[1], pipeline.NoiseTable(results)); err != nil {
				return err
			}
			fmt.Printf("✅ Noise of %d targets written to %s\n", len(results), args[1])
			return nil
		},
	}
	return cmd
}

func newSynthCmd() *cobra.Command {
	cfg := testkit.DefaultSpectrumConfig()

	cmd := &cobra.Command{
		Use:   "synth [output.csv]",
		Short: "Write a synthetic emission-line spectrum",
		Long: `Write a seeded synthetic spectrum with narrow, outflow and broad components,
useful for trying the fitter without survey data.

Example: emfit synth agn.csv --z 0.05 --outflow 0.4 --broad 0.3`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			spec := testkit.NewSpectrumGenerator(cfg).Generate()
			if err := desi.WriteText(args[0], spec); err != nil {
				return err
			}
			fmt.Printf("✅ %d pixels written to %s (z = %g)\n", spec.Len(), args[0], cfg.Redshift)
			return nil
		},
	}

	f := cmd.Flags()
	f.Float64Var(&cfg.Redshift, "z", 0, "Redshift")
	f.Float64Var(&cfg.Noise, "noise", cfg.Noise, "Gaussian noise level")
	f.Float64Var(&cfg.NarrowSigma, "sigma", cfg.NarrowSigma, "Narrow line width (km/s)")
	f.Float64Var(&cfg.OutflowFrac, "outflow", 0, "Outflow amplitude as a fraction of the narrow lines")
	f.Float64Var(&cfg.BroadFrac, "broad", 0, "Broad Balmer amplitude as a fraction of the narrow lines")
	f.Int64Var(&cfg.Seed, "seed", cfg.Seed, "Random seed")
	return cmd
}

// isTextDir reports whether dir holds CSV spectra
func isTextDir(dir string) bool {
	matches, err := filepath.Glob(filepath.Join(dir, "*.csv"))
	return err == nil && len(matches) > 0
}
