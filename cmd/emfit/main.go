package main

import (
	"fmt"
	"log"
	"os"

	"emfit/internal/config"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

func main() {
	app := &application{}

	rootCmd := &cobra.Command{
		Use:   "emfit",
		Short: "Emission-line fitting of DESI spectra",
		Long: `Fit Hβ, [OIII], [NII]+Hα and [SII] with one- and multi-component Gaussian
models, select the best model per complex and propagate errors by Monte Carlo.

Settings are read from the environment (and a .env file when present); flags
override them. See internal/config for the variable names.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := godotenv.Load(); err != nil {
				log.Println("No .env file found, using system environment variables")
			}
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			app.cfg = cfg
			return app.applyFlags(cmd)
		},
	}

	app.bindFlags(rootCmd)
	rootCmd.AddCommand(
		newRunCmd(app),
		newFitCmd(app),
		newPlotCmd(app),
		newNoiseCmd(app),
		newSynthCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
