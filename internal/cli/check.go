package cli

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jmylchreest/domcolour/internal/colour"
	"github.com/jmylchreest/domcolour/internal/config"
	"github.com/jmylchreest/domcolour/internal/image"
)

var errCheckFailed = errors.New("one or more checks failed")

// Check command flags
var checkCacheDirFlag string

// checkCmd represents the check command
var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Verify that extraction can run",
	Long: `Check the configuration, cache directory, externals path and clustering
engines without extracting from a real image.`,
	Args: cobra.NoArgs,
	RunE: runCheck,
}

func init() {
	checkCmd.Flags().StringVar(&checkCacheDirFlag, "cache-dir", "", "directory samples are saved in (default: user cache dir)")
}

// checkResult is one line of check output.
type checkResult struct {
	name   string
	detail string
	err    error
}

func runCheck(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("cache-dir") {
		cfg.TempImageCachePath = checkCacheDirFlag
	}

	results := runChecks(cfg)

	table := NewTable([]string{"CHECK", "STATUS", "DETAIL"})
	failed := false
	for _, r := range results {
		status, detail := "ok", r.detail
		if r.err != nil {
			status, detail = "FAIL", r.err.Error()
			failed = true
		}
		table.AddRow([]string{r.name, status, detail})
	}
	fmt.Fprint(cmd.OutOrStdout(), table.Render())

	if failed {
		return errCheckFailed
	}
	return nil
}

// runChecks runs every check against cfg in a fixed order.
func runChecks(cfg config.Config) []checkResult {
	results := []checkResult{
		{name: "config", detail: "valid", err: cfg.Validate()},
		checkCacheDir(cfg.TempImageCachePath),
		checkExternals(cfg.ExternalsPath),
		{name: "formats", detail: strings.Join(image.SupportedImageExtensions(), " ")},
	}
	for _, alg := range colour.ValidAlgorithms() {
		results = append(results, checkEngine(alg))
	}
	return results
}

func checkCacheDir(dir string) checkResult {
	r := checkResult{name: "cache dir", detail: dir}
	r.err = image.EnsureDir(dir)
	return r
}

func checkExternals(path string) checkResult {
	r := checkResult{name: "externals", detail: path}
	if path == "" {
		r.detail = "not configured"
		return r
	}
	info, err := os.Stat(path)
	switch {
	case err != nil:
		r.err = err
	case !info.IsDir():
		r.err = fmt.Errorf("%s is not a directory", path)
	}
	return r
}

// checkEngine clusters a fixed three-colour sample with alg.
func checkEngine(alg colour.Algorithm) checkResult {
	r := checkResult{name: "engine " + string(alg)}

	tones := []colour.RGB{{R: 20, G: 20, B: 20}, {R: 200, G: 40, B: 40}, {R: 240, G: 240, B: 240}}
	pixels := make([]colour.RGB, 0, len(tones)*16)
	for _, c := range tones {
		for i := 0; i < 16; i++ {
			pixels = append(pixels, c)
		}
	}

	engine, err := colour.NewEngine(alg, 1)
	if err != nil {
		r.err = err
		return r
	}
	centroids, err := engine.Cluster(pixels, len(tones))
	if err != nil {
		r.err = err
		return r
	}
	if len(centroids) != len(tones) {
		r.err = fmt.Errorf("got %d centroids, want %d", len(centroids), len(tones))
		return r
	}

	sorted := colour.Annotate(centroids)
	colour.SortByLuminance(sorted)
	r.detail = fmt.Sprintf("%d centroids, darkest %s", len(sorted), sorted[0].RGB.Hex())
	return r
}
