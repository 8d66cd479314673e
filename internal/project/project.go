// Package project holds the per-invocation handle every threadwork operation
// receives: project root, state directory, effective configuration, the
// record store and the hook logger.
package project

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/threadwork-cc/threadwork/internal/config"
	"github.com/threadwork-cc/threadwork/internal/storage"
	"github.com/threadwork-cc/threadwork/internal/tier"
)

// Context is constructed once per process and passed to every ledger, gate
// and retry operation.
type Context struct {
	Root     string
	StateDir string
	Config   *config.Config
	Store    *storage.FileStore
	Logger   *slog.Logger

	logFile io.Closer
	now     func() time.Time
}

// Option configures a Context.
type Option func(*Context)

// WithClock overrides the clock used for records.
func WithClock(now func() time.Time) Option {
	return func(c *Context) { c.now = now }
}

// WithLogger replaces the hook-log logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Context) {
		if l != nil {
			c.Logger = l
		}
	}
}

// Open loads configuration for root (flags may be nil) and builds a Context.
func Open(root string, flags *config.Config, opts ...Option) (*Context, error) {
	cfg, err := config.Load(root, flags)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return New(root, cfg, opts...), nil
}

// New builds a Context from an already resolved configuration. It never
// fails: when the state directory is missing the logger discards output.
func New(root string, cfg *config.Config, opts ...Option) *Context {
	if cfg == nil {
		cfg = config.Default()
	}
	if abs, err := filepath.Abs(root); err == nil {
		root = abs
	}
	c := &Context{
		Root:     root,
		StateDir: cfg.StatePath(root),
		Config:   cfg,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.Store = storage.NewFileStore(storage.WithDir(c.StateDir), storage.WithClock(c.now))
	if c.Logger == nil {
		c.Logger = c.openLogger()
	}
	return c
}

// openLogger appends JSON lines to the hook log when the state directory exists.
func (c *Context) openLogger() *slog.Logger {
	level := slog.LevelInfo
	if c.Config.Verbose {
		level = slog.LevelDebug
	}
	if info, err := os.Stat(c.StateDir); err != nil || !info.IsDir() {
		return slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	f, err := c.Store.OpenAppend(storage.HookLogFile)
	if err != nil {
		return slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	c.logFile = f
	return slog.New(slog.NewJSONHandler(f, &slog.HandlerOptions{Level: level}))
}

// Log returns the logger tagged with a component name.
func (c *Context) Log(component string) *slog.Logger {
	return c.Logger.With("component", component)
}

// Now returns the context clock's current time.
func (c *Context) Now() time.Time { return c.now() }

// Close releases the hook log.
func (c *Context) Close() error {
	if c.logFile == nil {
		return nil
	}
	err := c.logFile.Close()
	c.logFile = nil
	return err
}

// Initialized reports whether the project record exists.
func (c *Context) Initialized() bool {
	return c.Store.Exists(storage.ProjectFile)
}

// Require returns ErrNotInitialized unless the project record exists.
func (c *Context) Require() error {
	if !c.Initialized() {
		return fmt.Errorf("%w: %s", ErrNotInitialized, c.Store.Path(storage.ProjectFile))
	}
	return nil
}

// Tier returns the configured presentation tier. Absent, unreadable or
// invalid values yield the default.
func (c *Context) Tier() tier.Tier {
	rec, err := c.Record()
	if err != nil {
		c.Log("project").Warn("project record unreadable, using default tier", "error", err)
		return tier.Default
	}
	return rec.SkillTier.Normalize()
}

// SetTier validates and persists the tier.
func (c *Context) SetTier(s string) (tier.Tier, error) {
	t, err := tier.Parse(s)
	if err != nil {
		return "", err
	}
	if err := c.Require(); err != nil {
		return "", err
	}
	_, err = c.UpdateRecord(func(r *Record) { r.SkillTier = t })
	if err != nil {
		return "", err
	}
	return t, nil
}
