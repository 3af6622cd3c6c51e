package extract

import (
	"errors"
	"fmt"
	"image"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/hashicorp/go-hclog"
	"golang.org/x/sync/semaphore"

	"github.com/jmylchreest/domcolour/internal/colour"
	"github.com/jmylchreest/domcolour/internal/config"
	imageutil "github.com/jmylchreest/domcolour/internal/image"
	"github.com/jmylchreest/domcolour/internal/palettecache"
)

// session is the state of one trigger, from snapshot to consumed result.
type session struct {
	id       uint64
	mailbox  *Mailbox
	snapshot string
	started  time.Time
}

// Builder provides a fluent interface for constructing an Extractor.
type Builder struct {
	config  config.Config
	logger  hclog.Logger
	loader  imageutil.Loader
	engines EngineFactory
	cache   *palettecache.Cache
	sink    RampSink
}

// NewBuilder creates a new Extractor builder for cfg.
func NewBuilder(cfg config.Config) *Builder {
	return &Builder{
		config:  cfg,
		logger:  hclog.NewNullLogger(),
		loader:  imageutil.NewFileLoader(),
		engines: colour.NewEngine,
	}
}

// WithLogger sets the logger. Sub-loggers are derived from it.
func (b *Builder) WithLogger(logger hclog.Logger) *Builder {
	b.logger = logger
	return b
}

// WithLoader replaces the image loader used by workers.
func (b *Builder) WithLoader(loader imageutil.Loader) *Builder {
	b.loader = loader
	return b
}

// WithEngineFactory replaces how workers create clustering engines.
func (b *Builder) WithEngineFactory(engines EngineFactory) *Builder {
	b.engines = engines
	return b
}

// WithCache sets the result cache. By default one is created from the config.
func (b *Builder) WithCache(cache *palettecache.Cache) *Builder {
	b.cache = cache
	return b
}

// WithSink sets where finished ramps are delivered.
func (b *Builder) WithSink(sink RampSink) *Builder {
	b.sink = sink
	return b
}

// Build validates the configuration and constructs the Extractor.
func (b *Builder) Build() (*Extractor, error) {
	if err := b.config.Validate(); err != nil {
		return nil, err
	}

	cache := b.cache
	if cache == nil {
		cache = palettecache.New(b.config.ResultCacheBytes, 0)
	}

	logger := b.logger.Named("extract")
	return &Extractor{
		config: b.config,
		logger: logger,
		worker: Worker{
			loader:    b.loader,
			engines:   b.engines,
			algorithm: b.config.Algorithm,
			seed:      b.config.Seed,
			cache:     cache,
			logger:    logger.Named("worker"),
		},
		poller: NewPoller(b.config.LuminosityBounds, b.sink, logger.Named("poller")),
		guard:  semaphore.NewWeighted(1),
	}, nil
}

// Extractor owns the extraction status and at most one in-flight session.
// Trigger, Tick and Close must be called from the same goroutine.
type Extractor struct {
	config config.Config
	logger hclog.Logger
	worker Worker
	poller *Poller
	guard  *semaphore.Weighted

	session *session
	seq     uint64
}

// Trigger persists img into the cache directory and starts a background
// worker on it. It returns ErrBusy while a previous session is unfinished and
// a *image.PathError when the cache directory cannot be created.
func (e *Extractor) Trigger(img image.Image) error {
	return e.trigger(img, "")
}

func (e *Extractor) trigger(img image.Image, source string) error {
	if !e.guard.TryAcquire(1) {
		return ErrBusy
	}
	started := false
	defer func() {
		if !started {
			e.guard.Release(1)
		}
	}()

	dir := e.config.TempImageCachePath
	if err := imageutil.EnsureDir(dir); err != nil {
		return err
	}

	path, err := imageutil.SaveSnapshot(img, dir, e.config.SampleMaxDimension)
	if err != nil {
		return fmt.Errorf("failed to save sample: %w", err)
	}

	e.seq++
	s := &session{
		id:       e.seq,
		mailbox:  NewMailbox(),
		snapshot: path,
		started:  time.Now(),
	}
	if err := e.poller.Arm(s.mailbox); err != nil {
		return err
	}
	e.session = s

	job := Job{Path: path, Source: source, K: e.config.ClusterCount}
	worker := e.worker
	go worker.Run(job, s.mailbox)
	started = true

	e.logger.Debug("session started", "session", s.id, "snapshot", path, "k", job.K)
	return nil
}

// TriggerFile loads the image at path on the caller's goroutine and triggers on it.
// path is also what filepath seeding hashes.
func (e *Extractor) TriggerFile(path string) error {
	img, err := e.worker.loader.Load(path)
	if err != nil {
		return err
	}
	return e.trigger(img, path)
}

// Tick polls the current session once without blocking. When the session
// reaches Ready or Failed it is disposed and a new Trigger is accepted.
func (e *Extractor) Tick() (Status, error) {
	status, err := e.poller.Poll()

	if e.session != nil && !e.poller.Polling() {
		e.logger.Debug("session finished",
			"session", e.session.id,
			"status", status,
			"elapsed", time.Since(e.session.started))
		e.session = nil
		e.guard.Release(1)
	}

	return status, err
}

// Status returns the current extraction status.
func (e *Extractor) Status() Status {
	return e.poller.Status()
}

// Busy reports whether a session is in flight.
func (e *Extractor) Busy() bool {
	return e.session != nil
}

// Ramp returns the last delivered ramp, or nil.
func (e *Extractor) Ramp() *colour.Ramp {
	return e.poller.Ramp()
}

// ClustersWithinBounds returns how many colours survived the last filtering.
func (e *Extractor) ClustersWithinBounds() int {
	if r := e.poller.Ramp(); r != nil {
		return r.Len()
	}
	return 0
}

// Err returns the failure of the last session, or nil.
func (e *Extractor) Err() error {
	return e.poller.Err()
}

// Close removes the cached snapshot. It returns ErrBusy while a session is in flight.
func (e *Extractor) Close() error {
	if e.session != nil {
		return ErrBusy
	}
	path := filepath.Join(e.config.TempImageCachePath, imageutil.SnapshotName)
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to remove snapshot: %w", err)
	}
	return nil
}
