// Package config holds the extraction settings and loads them from defaults,
// a YAML file, a .env file and DOMCOLOUR_* environment variables.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/jmylchreest/domcolour/internal/colour"
	imageutil "github.com/jmylchreest/domcolour/internal/image"
	"github.com/jmylchreest/domcolour/internal/seed"
)

// Environment variable names.
const (
	EnvClusters           = "DOMCOLOUR_CLUSTERS"
	EnvLuminosityBounds   = "DOMCOLOUR_LBOUNDS"
	EnvCacheDir           = "DOMCOLOUR_CACHE_DIR"
	EnvExternalsPath      = "DOMCOLOUR_EXTERNALS_PATH"
	EnvAlgorithm          = "DOMCOLOUR_ALGORITHM"
	EnvSeedMode           = "DOMCOLOUR_SEED_MODE"
	EnvSeedValue          = "DOMCOLOUR_SEED_VALUE"
	EnvSampleMaxDimension = "DOMCOLOUR_SAMPLE_MAX_DIMENSION"
	EnvTickInterval       = "DOMCOLOUR_TICK_INTERVAL"
	EnvResultCacheBytes   = "DOMCOLOUR_RESULT_CACHE_BYTES"
)

// Config holds everything needed to run an extraction session.
type Config struct {
	// ClusterCount is the number of centroids requested from clustering.
	ClusterCount int `yaml:"clusters"`

	// LuminosityBounds is the inclusive normalised luminance range kept in the ramp.
	LuminosityBounds colour.Bounds `yaml:"luminosity_bounds"`

	// TempImageCachePath is where samples are persisted before a worker reads them.
	// It is created if absent.
	TempImageCachePath string `yaml:"cache_dir"`

	// ExternalsPath is an optional directory of external dependencies. It is
	// only checked for existence.
	ExternalsPath string `yaml:"externals_path"`

	Algorithm colour.Algorithm `yaml:"algorithm"`
	Seed      seed.Config      `yaml:"seed"`

	// SampleMaxDimension caps the longest side of a persisted sample. 0 keeps full size.
	SampleMaxDimension int `yaml:"sample_max_dimension"`

	// TickInterval is how often the host loop polls for results.
	TickInterval time.Duration `yaml:"tick_interval"`

	// ResultCacheBytes bounds the result cache. 0 disables it.
	ResultCacheBytes int64 `yaml:"result_cache_bytes"`
}

// Default returns the default configuration.
func Default() Config {
	cacheDir, err := imageutil.DefaultCacheDir()
	if err != nil {
		cacheDir = filepath.Join(os.TempDir(), "domcolour")
	}
	return Config{
		ClusterCount:       5,
		LuminosityBounds:   colour.FullRange,
		TempImageCachePath: cacheDir,
		Algorithm:          colour.AlgorithmKMeans,
		Seed:               seed.Config{Mode: seed.ModeContent},
		SampleMaxDimension: 256,
		TickInterval:       16 * time.Millisecond,
		ResultCacheBytes:   1 << 20,
	}
}

// ValidationError reports an invalid configuration field.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// Validate checks every field.
func (c Config) Validate() error {
	if c.ClusterCount < 1 {
		return &ValidationError{Field: "clusters", Reason: fmt.Sprintf("must be at least 1, got %d", c.ClusterCount)}
	}
	if c.ClusterCount > colour.MaxClusters {
		return &ValidationError{Field: "clusters", Reason: fmt.Sprintf("too large: %d (maximum: %d)", c.ClusterCount, colour.MaxClusters)}
	}
	if err := c.LuminosityBounds.Validate(); err != nil {
		return &ValidationError{Field: "luminosity_bounds", Reason: err.Error()}
	}
	if c.TempImageCachePath == "" {
		return &ValidationError{Field: "cache_dir", Reason: "must not be empty"}
	}
	if c.ExternalsPath != "" {
		info, err := os.Stat(c.ExternalsPath)
		if err != nil {
			return &ValidationError{Field: "externals_path", Reason: err.Error()}
		}
		if !info.IsDir() {
			return &ValidationError{Field: "externals_path", Reason: "not a directory"}
		}
	}
	if !colour.IsValidAlgorithm(c.Algorithm) {
		return &ValidationError{Field: "algorithm", Reason: fmt.Sprintf("unknown algorithm %q (valid: %v)", c.Algorithm, colour.ValidAlgorithms())}
	}
	if err := c.Seed.Validate(); err != nil {
		return &ValidationError{Field: "seed", Reason: err.Error()}
	}
	if c.SampleMaxDimension < 0 {
		return &ValidationError{Field: "sample_max_dimension", Reason: "must not be negative"}
	}
	if c.TickInterval <= 0 {
		return &ValidationError{Field: "tick_interval", Reason: "must be positive"}
	}
	if c.ResultCacheBytes < 0 {
		return &ValidationError{Field: "result_cache_bytes", Reason: "must not be negative"}
	}
	return nil
}

// LoadOptions selects the sources Load reads.
type LoadOptions struct {
	// File is an optional YAML config file.
	File string
	// DotEnv is an optional .env file. A missing file is ignored.
	DotEnv string
}

// Load builds a Config from defaults, then File, then DotEnv and the process
// environment. Variables already set in the environment win over DotEnv.
// The result is not validated.
func Load(opts LoadOptions) (Config, error) {
	cfg := Default()

	if opts.File != "" {
		if err := cfg.mergeFile(opts.File); err != nil {
			return cfg, err
		}
	}

	if opts.DotEnv != "" {
		if err := godotenv.Load(opts.DotEnv); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return cfg, fmt.Errorf("failed to load %s: %w", opts.DotEnv, err)
		}
	}

	if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func (c *Config) mergeFile(path string) error {
	data, err := os.ReadFile(path) // #nosec G304 - User-specified config path, intended to be read
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(c); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

// ApplyEnv overrides fields from environment variables looked up with lookup.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	if v, ok := lookup(EnvClusters); ok {
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("%s: %w", EnvClusters, err)
		}
		c.ClusterCount = n
	}
	if v, ok := lookup(EnvLuminosityBounds); ok {
		b, err := ParseBounds(v)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvLuminosityBounds, err)
		}
		c.LuminosityBounds = b
	}
	if v, ok := lookup(EnvCacheDir); ok {
		c.TempImageCachePath = v
	}
	if v, ok := lookup(EnvExternalsPath); ok {
		c.ExternalsPath = v
	}
	if v, ok := lookup(EnvAlgorithm); ok {
		c.Algorithm = colour.Algorithm(strings.TrimSpace(v))
	}
	if v, ok := lookup(EnvSeedMode); ok {
		c.Seed.Mode = seed.Mode(strings.TrimSpace(v))
	}
	if v, ok := lookup(EnvSeedValue); ok {
		n, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvSeedValue, err)
		}
		c.Seed.Value = &n
	}
	if v, ok := lookup(EnvSampleMaxDimension); ok {
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("%s: %w", EnvSampleMaxDimension, err)
		}
		c.SampleMaxDimension = n
	}
	if v, ok := lookup(EnvTickInterval); ok {
		d, err := time.ParseDuration(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("%s: %w", EnvTickInterval, err)
		}
		c.TickInterval = d
	}
	if v, ok := lookup(EnvResultCacheBytes); ok {
		n, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvResultCacheBytes, err)
		}
		c.ResultCacheBytes = n
	}
	return nil
}

// ParseBounds parses "lo,hi" into inclusive luminance bounds.
func ParseBounds(s string) (colour.Bounds, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 2 {
		return colour.Bounds{}, fmt.Errorf("expected lo,hi, got %q", s)
	}
	lo, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	if err != nil {
		return colour.Bounds{}, fmt.Errorf("invalid lower bound: %w", err)
	}
	hi, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil {
		return colour.Bounds{}, fmt.Errorf("invalid upper bound: %w", err)
	}
	return colour.Bounds{Lo: lo, Hi: hi}, nil
}
