package extract

import (
	"errors"
	"fmt"
	"image"

	"github.com/hashicorp/go-hclog"

	"github.com/jmylchreest/domcolour/internal/colour"
	imageutil "github.com/jmylchreest/domcolour/internal/image"
	"github.com/jmylchreest/domcolour/internal/palettecache"
	"github.com/jmylchreest/domcolour/internal/seed"
)

// EngineFactory creates a clustering engine for one run.
type EngineFactory func(alg colour.Algorithm, seed int64) (colour.ClusterEngine, error)

// Job is the only input a worker receives from the caller.
type Job struct {
	// Path is the persisted sample the worker reads.
	Path string
	// Source is the caller's original image path, empty when the caller
	// handed over an in-memory image. It feeds filepath seeding.
	Source string
	K      int
}

// Worker turns a persisted sample into a luminance-sorted centroid list.
// A Worker holds only collaborators that are safe to share across goroutines;
// it never reads or writes the Extractor that started it.
type Worker struct {
	loader    imageutil.Loader
	engines   EngineFactory
	algorithm colour.Algorithm
	seed      seed.Config
	cache     *palettecache.Cache
	logger    hclog.Logger
}

// Run executes job and reports through out: a Processing marker first, then
// either a Result or a Failed message. Run is intended to be started with go.
func (w *Worker) Run(job Job, out *Mailbox) {
	w.put(out, Processing())

	colours, err := w.extract(job)
	if err != nil {
		w.logger.Warn("extraction failed", "path", job.Path, "k", job.K, "error", err)
		w.put(out, Failed(err))
		return
	}

	w.logger.Debug("extraction complete", "path", job.Path, "k", job.K, "colours", len(colours))
	w.put(out, Result(colours))
}

func (w *Worker) put(out *Mailbox, msg Message) {
	if err := out.Put(msg); err != nil {
		w.logger.Error("dropping message", "kind", msg.Kind, "error", err)
	}
}

func (w *Worker) extract(job Job) ([]colour.LuminanceColour, error) {
	img, pixels, err := imageutil.ReadPixels(w.loader, job.Path)
	if err != nil {
		return nil, err
	}
	w.logger.Debug("sample loaded", "path", job.Path, "pixels", len(pixels))

	s, err := w.seedFor(img, job)
	if err != nil {
		return nil, fmt.Errorf("failed to derive clustering seed: %w", err)
	}

	// Random seeds never repeat, so their results are neither looked up nor stored.
	var key string
	if w.cache != nil && w.seed.Mode != seed.ModeRandom {
		if key, err = palettecache.Key(img, pixels, job.K, w.algorithm, s); err != nil {
			w.logger.Debug("result cache disabled for sample", "error", err)
			key = ""
		} else if cached, ok := w.cache.Get(key); ok {
			w.logger.Debug("result cache hit", "key", key)
			return cached, nil
		}
	}

	engine, err := w.engines(w.algorithm, s)
	if err != nil {
		return nil, &colour.ClusteringError{K: job.K, Reason: "no engine", Err: err}
	}

	centroids, err := cluster(engine, pixels, job.K)
	if err != nil {
		return nil, err
	}

	colours := colour.Annotate(centroids)
	colour.SortByLuminance(colours)

	if key != "" {
		if err := w.cache.Put(key, colours); err != nil {
			w.logger.Debug("result not cached", "error", err)
		}
	}

	return colours, nil
}

// seedFor derives the clustering seed. Filepath seeding uses the caller's
// source path; an in-memory image has none and is seeded from its content.
func (w *Worker) seedFor(img image.Image, job Job) (int64, error) {
	cfg := w.seed
	if cfg.Mode == seed.ModeFilepath && job.Source == "" {
		w.logger.Debug("no source path for filepath seed, using content", "path", job.Path)
		cfg.Mode = seed.ModeContent
	}
	return seed.Calculate(img, job.Source, cfg)
}

// cluster runs the engine and reports every engine failure, including a
// panic inside it, as a *colour.ClusteringError.
func cluster(engine colour.ClusterEngine, pixels []colour.RGB, k int) (centroids []colour.RGB, err error) {
	defer func() {
		if r := recover(); r != nil {
			centroids = nil
			err = &colour.ClusteringError{K: k, Reason: fmt.Sprintf("panic: %v", r)}
		}
	}()

	centroids, err = engine.Cluster(pixels, k)
	if err != nil {
		var clusterErr *colour.ClusteringError
		if errors.As(err, &clusterErr) {
			return nil, err
		}
		return nil, &colour.ClusteringError{K: k, Reason: "engine failed", Err: err}
	}
	if len(centroids) != k {
		return nil, &colour.ClusteringError{K: k, Reason: fmt.Sprintf("engine returned %d centroids", len(centroids))}
	}
	return centroids, nil
}
