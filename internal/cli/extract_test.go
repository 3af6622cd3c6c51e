package cli

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/pflag"

	"github.com/jmylchreest/domcolour/internal/colour"
	"github.com/jmylchreest/domcolour/internal/config"
	"github.com/jmylchreest/domcolour/internal/seed"
)

// writeTwoTonePNG writes a PNG whose halves are (10,10,10) and (250,250,250).
func writeTwoTonePNG(t *testing.T, dir string) string {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 20, 10))
	for y := 0; y < 10; y++ {
		for x := 0; x < 20; x++ {
			c := color.RGBA{R: 10, G: 10, B: 10, A: 255}
			if x >= 10 {
				c = color.RGBA{R: 250, G: 250, B: 250, A: 255}
			}
			img.Set(x, y, c)
		}
	}

	path := filepath.Join(dir, "two-tone.png")
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("Failed to create image: %v", err)
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		t.Fatalf("Failed to encode image: %v", err)
	}
	return path
}

func TestBoundsValue(t *testing.T) {
	tests := []struct {
		input   string
		want    colour.Bounds
		wantErr bool
	}{
		{input: "0.2,0.8", want: colour.Bounds{Lo: 0.2, Hi: 0.8}},
		{input: " 0 , 1 ", want: colour.FullRange},
		{input: "0.9,0.1", wantErr: true},
		{input: "0.5", wantErr: true},
		{input: "a,b", wantErr: true},
		{input: "NaN,NaN", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			b := colour.FullRange
			v := &boundsValue{bounds: &b}
			err := v.Set(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Set(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if !tt.wantErr && b != tt.want {
				t.Errorf("Set(%q) = %+v, want %+v", tt.input, b, tt.want)
			}
		})
	}

	b := colour.Bounds{Lo: 0.25, Hi: 0.75}
	if got := (&boundsValue{bounds: &b}).String(); got != "0.25,0.75" {
		t.Errorf("String() = %q", got)
	}
}

func TestApplyExtractFlagsOnlyOverridesChanged(t *testing.T) {
	cfg := config.Default()
	cfg.ClusterCount = 7
	cfg.Algorithm = colour.AlgorithmLloyd

	// A fresh flag set sharing the command's values, without Changed state
	// left over from other tests.
	fresh := pflag.NewFlagSet("extract", pflag.ContinueOnError)
	extractCmd.Flags().VisitAll(func(f *pflag.Flag) {
		fresh.AddFlag(&pflag.Flag{Name: f.Name, Shorthand: f.Shorthand, Usage: f.Usage, Value: f.Value, DefValue: f.DefValue})
	})

	if err := fresh.Parse([]string{"--seed-value", "42", "--lbounds", "0.1,0.9"}); err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if err := applyExtractFlags(fresh, &cfg); err != nil {
		t.Fatalf("applyExtractFlags() error = %v", err)
	}

	if cfg.ClusterCount != 7 || cfg.Algorithm != colour.AlgorithmLloyd {
		t.Errorf("unset flags overrode config: clusters=%d algorithm=%s", cfg.ClusterCount, cfg.Algorithm)
	}
	if cfg.Seed.Mode != seed.ModeManual || cfg.Seed.Value == nil || *cfg.Seed.Value != 42 {
		t.Errorf("seed = %+v, want manual 42", cfg.Seed)
	}
	if cfg.LuminosityBounds != (colour.Bounds{Lo: 0.1, Hi: 0.9}) {
		t.Errorf("bounds = %+v", cfg.LuminosityBounds)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() error = %v", err)
	}
}

func TestExtractCommand(t *testing.T) {
	dir := t.TempDir()
	t.Setenv(config.EnvCacheDir, filepath.Join(dir, "cache"))
	t.Setenv(config.EnvClusters, "2")

	imagePath := writeTwoTonePNG(t, dir)
	outPath := filepath.Join(dir, "ramp.dat")

	var stdout bytes.Buffer
	rootCmd.SetOut(&stdout)
	rootCmd.SetErr(io.Discard)
	rootCmd.SetArgs([]string{"extract", "--quiet", "--format", "tsv", "--preview=false", "--output", outPath, imagePath})
	t.Cleanup(func() {
		rootCmd.SetArgs(nil)
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
	})

	if err := rootCmd.Execute(); err != nil {
		t.Fatalf("extract failed: %v", err)
	}

	data, err := os.ReadFile(outPath)
	if err != nil {
		t.Fatalf("Failed to read output: %v", err)
	}
	lines := strings.Split(strings.TrimSuffix(string(data), "\n"), "\n")
	if len(lines) != 3 {
		t.Fatalf("Expected header and 2 rows, got %q", data)
	}
	if !strings.HasPrefix(lines[1], "0\t") || !strings.HasPrefix(lines[2], "1\t") {
		t.Errorf("rows not positioned 0 and 1: %q", lines[1:])
	}
	if stdout.Len() != 0 {
		t.Errorf("Expected nothing on stdout with --output, got %q", stdout.String())
	}

	if _, err := os.Stat(filepath.Join(dir, "cache", "temp_img.png")); !os.IsNotExist(err) {
		t.Errorf("sample not cleaned up: %v", err)
	}
}

func TestExtractCommandRejectsNonImage(t *testing.T) {
	dir := t.TempDir()
	t.Setenv(config.EnvCacheDir, filepath.Join(dir, "cache"))

	notImage := filepath.Join(dir, "notes.txt")
	if err := os.WriteFile(notImage, []byte("not an image"), 0o644); err != nil {
		t.Fatalf("Failed to write file: %v", err)
	}

	rootCmd.SetOut(io.Discard)
	rootCmd.SetErr(io.Discard)
	rootCmd.SetArgs([]string{"extract", "--quiet", notImage})
	t.Cleanup(func() {
		rootCmd.SetArgs(nil)
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
	})

	if err := rootCmd.Execute(); err == nil {
		t.Error("Expected error for a non-image file")
	}
}
