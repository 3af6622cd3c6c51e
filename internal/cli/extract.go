package cli

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/hashicorp/go-hclog"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"golang.org/x/term"

	"github.com/jmylchreest/domcolour/internal/colour"
	"github.com/jmylchreest/domcolour/internal/config"
	"github.com/jmylchreest/domcolour/internal/extract"
	"github.com/jmylchreest/domcolour/internal/image"
	"github.com/jmylchreest/domcolour/internal/seed"
)

var (
	// Extract command flags
	extractClusters  int
	extractBounds    = colour.FullRange
	extractCacheDir  string
	extractAlgorithm string
	extractSeedMode  string
	extractSeedValue int64
	extractFormat    string
	extractOutput    string
	extractPreview   bool
)

// extractCmd represents the extract command
var extractCmd = &cobra.Command{
	Use:   "extract <image>",
	Short: "Extract a luminance-ordered colour ramp from an image",
	Long: `Extract the dominant colours of an image and write them as a colour ramp.

The image is saved as a sample in the cache directory and clustered in the
background. Colours are sorted by luminance, those outside --lbounds are
dropped, and the rest are spread evenly from position 0 to 1.

Supported image formats: JPEG, PNG, GIF, WebP, BMP, TIFF

Examples:
  # Extract 5 colours (default) as a table
  domcolour extract wallpaper.jpg

  # Keep only the mid tones of 8 clusters
  domcolour extract -c 8 --lbounds 0.2,0.8 wallpaper.png

  # Write a DAT style ramp file
  domcolour extract --format tsv --output ramp.dat wallpaper.jpg

  # Use the Lloyd engine with a fixed seed
  domcolour extract --algorithm lloyd --seed-value 42 wallpaper.jpg`,
	Args: cobra.ExactArgs(1),
	RunE: runExtract,
}

func init() {
	extractCmd.Flags().IntVarP(&extractClusters, "clusters", "c", 5, fmt.Sprintf("number of clusters (1-%d)", colour.MaxClusters))
	extractCmd.Flags().Var(&boundsValue{bounds: &extractBounds}, "lbounds", "inclusive normalised luminance bounds")
	extractCmd.Flags().StringVar(&extractCacheDir, "cache-dir", "", "directory samples are saved in (default: user cache dir)")
	extractCmd.Flags().StringVarP(&extractAlgorithm, "algorithm", "a", string(colour.AlgorithmKMeans), "clustering engine (kmeans, lloyd)")
	extractCmd.Flags().StringVar(&extractSeedMode, "seed-mode", string(seed.ModeContent), "seed mode (content, filepath, manual, random)")
	extractCmd.Flags().Int64Var(&extractSeedValue, "seed-value", 0, "seed value, implies --seed-mode manual")
	extractCmd.Flags().StringVarP(&extractFormat, "format", "f", formatTable, "output format (table, tsv, json)")
	extractCmd.Flags().StringVarP(&extractOutput, "output", "o", "", "output file (default: stdout)")
	extractCmd.Flags().BoolVar(&extractPreview, "preview", false, "show colour swatches (default: on when stdout is a terminal)")
}

// boundsValue is a pflag.Value for "lo,hi" luminance bounds.
type boundsValue struct {
	bounds *colour.Bounds
}

var _ pflag.Value = (*boundsValue)(nil)

func (v *boundsValue) String() string {
	if v.bounds == nil {
		return ""
	}
	return fmt.Sprintf("%g,%g", v.bounds.Lo, v.bounds.Hi)
}

func (v *boundsValue) Set(s string) error {
	b, err := config.ParseBounds(s)
	if err != nil {
		return err
	}
	if err := b.Validate(); err != nil {
		return err
	}
	*v.bounds = b
	return nil
}

func (v *boundsValue) Type() string {
	return "lo,hi"
}

// applyExtractFlags overrides cfg with the flags the user set explicitly.
func applyExtractFlags(flags *pflag.FlagSet, cfg *config.Config) error {
	if flags.Changed("clusters") {
		cfg.ClusterCount = extractClusters
	}
	if flags.Changed("lbounds") {
		cfg.LuminosityBounds = extractBounds
	}
	if flags.Changed("cache-dir") {
		cfg.TempImageCachePath = extractCacheDir
	}
	if flags.Changed("algorithm") {
		cfg.Algorithm = colour.Algorithm(extractAlgorithm)
	}
	if flags.Changed("seed-mode") {
		mode, err := seed.ParseMode(extractSeedMode)
		if err != nil {
			return err
		}
		cfg.Seed.Mode = mode
	}
	if flags.Changed("seed-value") {
		v := extractSeedValue
		cfg.Seed.Value = &v
		if !flags.Changed("seed-mode") {
			cfg.Seed.Mode = seed.ModeManual
		}
	}
	return nil
}

// runExtract executes the extract command.
func runExtract(cmd *cobra.Command, args []string) error {
	imagePath := args[0]
	logger := newLogger(cmd.ErrOrStderr())

	if err := image.ValidateImagePath(imagePath); err != nil {
		return fmt.Errorf("invalid image path: %w", err)
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if err := applyExtractFlags(cmd.Flags(), &cfg); err != nil {
		return err
	}

	preview := extractPreview
	if !cmd.Flags().Changed("preview") {
		preview = extractOutput == "" && term.IsTerminal(int(os.Stdout.Fd()))
	}
	sink, err := newRampWriter(extractFormat, preview)
	if err != nil {
		return err
	}

	ex, err := extract.NewBuilder(cfg).
		WithLogger(logger).
		WithSink(sink).
		Build()
	if err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	defer func() {
		if err := ex.Close(); err != nil {
			logger.Warn("failed to clean up sample", "error", err)
		}
	}()

	logger.Debug("extracting", "image", imagePath, "clusters", cfg.ClusterCount,
		"algorithm", cfg.Algorithm, "bounds", cfg.LuminosityBounds)

	if err := ex.TriggerFile(imagePath); err != nil {
		return fmt.Errorf("failed to start extraction: %w", err)
	}
	if err := waitForResult(cmd.Context(), ex, cfg.TickInterval, logger); err != nil {
		return err
	}

	if ex.ClustersWithinBounds() == 0 {
		logger.Warn("no colours within luminosity bounds", "bounds", cfg.LuminosityBounds)
	} else {
		logger.Info("ramp ready", "colours", ex.ClustersWithinBounds(), "clusters", cfg.ClusterCount)
	}

	if extractOutput == "" {
		return sink.Render(cmd.OutOrStdout())
	}

	f, err := os.Create(extractOutput) // #nosec G304 - User-specified output path
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	if err := sink.Render(f); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to write output file: %w", err)
	}
	logger.Debug("wrote ramp", "path", extractOutput)
	return nil
}

// waitForResult is the host loop: it ticks the extractor once per interval
// until the session is over. A Failed session is returned as an error.
func waitForResult(ctx context.Context, ex *extract.Extractor, interval time.Duration, logger hclog.Logger) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	last := ex.Status()
	for {
		status, err := ex.Tick()
		if status != last {
			logger.Debug("status", "from", last, "to", status)
			last = status
		}
		if err != nil {
			return err
		}
		if !ex.Busy() {
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}
