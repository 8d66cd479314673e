package gate

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/threadwork-cc/threadwork/internal/gitutil"
	"github.com/threadwork-cc/threadwork/internal/procexec"
	"github.com/threadwork-cc/threadwork/internal/storage"
	"github.com/threadwork-cc/threadwork/internal/worker"
)

// VersionProvider returns an opaque content version used in cache keys.
type VersionProvider interface {
	ContentVersion(ctx context.Context) string
}

// Options controls a single run.
type Options struct {
	// SkipCache forces a fresh run and overwrites the cache entry.
	SkipCache bool

	// IncludeBuild runs the build gate even when it is disabled in config.
	IncludeBuild bool
}

// Runner executes the configured gates for one project directory.
type Runner struct {
	dir            string
	store          *storage.FileStore
	exec           procexec.Runner
	version        VersionProvider
	logger         *slog.Logger
	parallel       bool
	maxDiagnostics int
	now            func() time.Time
	checks         map[Kind]checkFunc
}

// RunnerOption configures a Runner.
type RunnerOption func(*Runner)

// WithExec sets the command runner.
func WithExec(x procexec.Runner) RunnerOption {
	return func(r *Runner) { r.exec = x }
}

// WithVersion sets the content-version provider.
func WithVersion(v VersionProvider) RunnerOption {
	return func(r *Runner) { r.version = v }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) RunnerOption {
	return func(r *Runner) {
		if l != nil {
			r.logger = l
		}
	}
}

// WithParallel runs enabled gates concurrently.
func WithParallel(on bool) RunnerOption {
	return func(r *Runner) { r.parallel = on }
}

// WithMaxDiagnostics caps diagnostic lines per gate.
func WithMaxDiagnostics(n int) RunnerOption {
	return func(r *Runner) { r.maxDiagnostics = n }
}

// WithClock overrides the clock used for ranAt.
func WithClock(now func() time.Time) RunnerOption {
	return func(r *Runner) { r.now = now }
}

// NewRunner creates a gate runner for the project rooted at dir, persisting
// its cache and reading its configuration through store.
func NewRunner(dir string, store *storage.FileStore, opts ...RunnerOption) *Runner {
	r := &Runner{
		dir:            dir,
		store:          store,
		exec:           procexec.NewShell(procexec.DefaultTimeout),
		version:        gitutil.Versioner{Dir: dir},
		logger:         slog.New(slog.NewTextHandler(io.Discard, nil)),
		maxDiagnostics: DefaultMaxDiagnostics,
		now:            time.Now,
		checks:         defaultChecks,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Config returns the effective quality-gate configuration.
func (r *Runner) Config() (Config, error) {
	return LoadConfig(r.store)
}

// CacheKey derives the cache key from content version, the build flag and
// the configuration fingerprint.
func CacheKey(version string, includeBuild bool, cfg Config) string {
	build := "nobuild"
	if includeBuild {
		build = "build"
	}
	return fmt.Sprintf("%s-%s-%s", version, build, cfg.Fingerprint())
}

// Run executes the gates or returns the cached result for the current key.
// An error means the run could not be completed; callers on the hot path must
// fail open. When a check faults the result is still returned alongside an
// ErrCheckFault error, with the faulted gate recorded as failed, and it is
// not cached.
func (r *Runner) Run(ctx context.Context, opts Options) (*RunResult, error) {
	cfg, err := LoadConfig(r.store)
	if err != nil {
		return nil, err
	}
	key := CacheKey(r.version.ContentVersion(ctx), opts.IncludeBuild, cfg)

	if !opts.SkipCache {
		if hit, ok := r.loadCache().Get(key); ok {
			r.logger.Debug("gate cache hit", "key", key)
			return hit, nil
		}
	}

	results, fault := r.execute(ctx, cfg, opts)
	res := &RunResult{
		ID:      ulid.Make().String(),
		Key:     key,
		Passed:  aggregate(results),
		Results: results,
		RanAt:   r.now().UTC(),
	}
	if fault != nil {
		r.logger.Warn("gate run faulted, result not cached", "error", fault)
		return res, fault
	}

	cache := r.loadCache()
	cache.Put(*res, MaxCacheEntries)
	if err := r.store.Write(storage.GateCacheFile, cache); err != nil {
		r.logger.Warn("gate cache not saved", "error", err)
	}
	return res, nil
}

// Latest returns the most recent cached run, if any.
func (r *Runner) Latest() (*RunResult, bool) {
	return r.loadCache().Latest()
}

func (r *Runner) loadCache() *Cache {
	c := newCache()
	if _, err := r.store.Read(storage.GateCacheFile, c); err != nil {
		r.logger.Warn("gate cache unreadable, starting empty", "error", err)
		return newCache()
	}
	if c.Entries == nil {
		c.Entries = map[string]RunResult{}
	}
	return c
}

// execute runs every enabled gate and returns outcomes in canonical order.
// Faulted gates still get an outcome; their errors are joined into the
// returned error.
func (r *Runner) execute(ctx context.Context, cfg Config, opts Options) ([]Outcome, error) {
	e := &env{
		dir:            r.dir,
		fsys:           os.DirFS(r.dir),
		exec:           r.exec,
		maxDiagnostics: r.maxDiagnostics,
		minCoverage:    cfg.MinCoverage(),
	}

	results := make([]Outcome, len(Kinds))
	var planned []Kind
	for i, k := range Kinds {
		s := cfg.Setting(k)
		if !s.Enabled && !(k == Build && opts.IncludeBuild) {
			results[i] = skipped(k, "disabled in quality config")
			results[i].Blocking = s.Blocking
			continue
		}
		planned = append(planned, k)
	}

	concurrency := 1
	if r.parallel {
		concurrency = len(planned)
	}
	pool := worker.NewPool[Kind, Outcome](concurrency)
	done := pool.Process(ctx, planned, func(ctx context.Context, k Kind) (Outcome, error) {
		return r.checks[k](ctx, e)
	})

	byKind := make(map[Kind]worker.Result[Outcome], len(done))
	for i, res := range done {
		byKind[planned[i]] = res
	}
	var faults []error
	for i, k := range Kinds {
		res, ok := byKind[k]
		if !ok {
			continue
		}
		if res.Err != nil {
			err := res.Err
			if !errors.Is(err, ErrCheckFault) {
				err = fmt.Errorf("%w: %s: %w", ErrCheckFault, k, err)
			}
			faults = append(faults, err)
			results[i] = Outcome{
				Gate:        k,
				Blocking:    cfg.Setting(k).Blocking,
				Reason:      "check could not run",
				Command:     res.Value.Command,
				Diagnostics: []string{err.Error()},
			}
			continue
		}
		o := res.Value
		o.Gate = k
		o.Blocking = cfg.Setting(k).Blocking
		if o.Diagnostics == nil {
			o.Diagnostics = []string{}
		}
		results[i] = o
	}
	return results, errors.Join(faults...)
}
