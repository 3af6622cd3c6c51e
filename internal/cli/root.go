// Package cli provides the command-line interface for domcolour.
package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/hashicorp/go-hclog"
	"github.com/spf13/cobra"

	"github.com/jmylchreest/domcolour/internal/config"
	"github.com/jmylchreest/domcolour/internal/version"
)

// dotEnvFile is read from the working directory when present.
const dotEnvFile = ".env"

var (
	// Global flags
	configFile string
	verbose    bool
	quiet      bool

	// rootCmd represents the base command when called without any subcommands
	rootCmd = &cobra.Command{
		Use:   "domcolour",
		Short: "Extract a luminance-ordered colour ramp from an image",
		Long: `domcolour finds the dominant colours of an image with k-means clustering,
orders them from darkest to lightest and writes them out as a colour ramp.

Clustering runs off the main loop; the command polls for the result once per
tick and reports Standby, Processing, then Ready or Failed.`,
		Version:      version.Short(),
		SilenceUsage: true,
	}
)

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "suppress non-error output")
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "YAML config file")

	rootCmd.SetVersionTemplate(version.String() + "\n")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(extractCmd)
	rootCmd.AddCommand(checkCmd)
}

// newLogger builds the command logger from the global verbosity flags.
func newLogger(w io.Writer) hclog.Logger {
	level := hclog.Info
	switch {
	case verbose:
		level = hclog.Debug
	case quiet:
		level = hclog.Error
	}
	return hclog.New(&hclog.LoggerOptions{
		Name:   "domcolour",
		Output: w,
		Level:  level,
	})
}

// loadConfig reads defaults, the --config file, .env and the environment.
// Command flags are applied on top by the caller.
func loadConfig() (config.Config, error) {
	cfg, err := config.Load(config.LoadOptions{
		File:   configFile,
		DotEnv: dotEnvFile,
	})
	if err != nil {
		return cfg, fmt.Errorf("failed to load configuration: %w", err)
	}
	return cfg, nil
}

// versionCmd represents the version command
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Long:  `Print detailed version information including build date, commit hash, and Go version.`,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintln(cmd.OutOrStdout(), version.String())
	},
}
