package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync/atomic"

	"github.com/gofrs/flock"
	"golang.org/x/sync/errgroup"

	"downsort/internal/classify"
	"downsort/internal/config"
	"downsort/internal/history"
	"downsort/internal/logging"
	"downsort/internal/mover"
	"downsort/internal/preflight"
	"downsort/internal/stability"
	"downsort/internal/watcher"
)

// ErrAlreadyRunning is returned when another instance holds the lock.
var ErrAlreadyRunning = errors.New("another downsort instance is already running")

// Daemon runs the watch pipeline and enforces single-instance execution.
type Daemon struct {
	cfg        *config.Config
	logger     *slog.Logger
	store      *history.Store
	controller *watcher.Controller

	lockPath string
	instance *InstanceLock

	running atomic.Bool
}

// Option customizes a Daemon.
type Option func(*Daemon)

// WithInstanceLock hands the daemon a lock the caller already holds. Run
// then skips acquiring its own, and the caller stays responsible for
// releasing it.
func WithInstanceLock(lock *InstanceLock) Option {
	return func(d *Daemon) {
		d.instance = lock
	}
}

// InstanceLock is the single-instance flock on state_dir/downsort.lock.
type InstanceLock struct {
	path string
	lock *flock.Flock
}

// AcquireLock takes the instance lock for cfg without blocking. A lock held
// by another process yields ErrAlreadyRunning.
func AcquireLock(cfg *config.Config) (*InstanceLock, error) {
	if cfg == nil {
		return nil, errors.New("instance lock requires config")
	}
	if err := os.MkdirAll(cfg.Paths.StateDir, 0o755); err != nil {
		return nil, fmt.Errorf("create state directory: %w", err)
	}
	path := cfg.LockPath()
	lock := flock.New(path)
	ok, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("%w (lock %s)", ErrAlreadyRunning, path)
	}
	return &InstanceLock{path: path, lock: lock}, nil
}

// Path returns the lock file location.
func (l *InstanceLock) Path() string {
	return l.path
}

// Release drops the lock.
func (l *InstanceLock) Release() error {
	return l.lock.Unlock()
}

// Status represents daemon runtime information.
type Status struct {
	Running      bool
	WatchDir     string
	Stats        watcher.Stats
	HistoryPath  string
	LockFilePath string
}

// New constructs a daemon. store may be nil when the journal is disabled.
func New(cfg *config.Config, store *history.Store, logger *slog.Logger, opts ...Option) (*Daemon, error) {
	if cfg == nil {
		return nil, errors.New("daemon requires config")
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	table, err := classify.NewTable(cfg.Categories)
	if err != nil {
		return nil, fmt.Errorf("category table: %w", err)
	}
	filter, err := watcher.NewFilter(watcher.FilterOptions{
		WatchDir:         cfg.Paths.WatchDir,
		IgnoreSuffixes:   cfg.Ignore.Suffixes,
		LockPatterns:     cfg.Ignore.LockPatterns,
		ExistsRetries:    cfg.Stability.ExistsRetries,
		ExistsRetryDelay: cfg.Stability.ExistsRetryDelay(),
	})
	if err != nil {
		return nil, err
	}
	monitor := stability.New(stability.Options{
		Interval:  cfg.Stability.PollInterval(),
		Threshold: cfg.Stability.StablePolls,
		MaxWait:   cfg.Stability.MaxWait(),
	})

	opts := watcher.Options{
		Filter:      filter,
		Monitor:     monitor,
		Mover:       mover.New(table, logger),
		Logger:      logger,
		Concurrency: cfg.Workflow.Concurrency,
	}
	if store != nil {
		opts.Recorder = store
	}
	controller, err := watcher.NewController(opts)
	if err != nil {
		return nil, err
	}

	d := &Daemon{
		cfg:        cfg,
		logger:     logging.NewComponentLogger(logger, "daemon"),
		store:      store,
		controller: controller,
		lockPath:   cfg.LockPath(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d, nil
}

// Run acquires the instance lock, unless one was handed over with
// WithInstanceLock, and watches until ctx is cancelled. A missing watch
// directory is reported as watcher.ErrWatchDirMissing.
func (d *Daemon) Run(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	if d.instance == nil {
		lock, err := AcquireLock(d.cfg)
		if err != nil {
			return err
		}
		defer func() {
			if err := lock.Release(); err != nil {
				d.logger.Warn("failed to release daemon lock", logging.Error(err))
			}
		}()
	}

	source, err := watcher.NewSource(d.cfg.Paths.WatchDir, d.controller, d.logger)
	if err != nil {
		return err
	}
	if err := d.preflight(); err != nil {
		return err
	}
	d.pruneHistory(ctx)

	d.running.Store(true)
	defer d.running.Store(false)

	d.logger.Info("watching for new files",
		logging.String(logging.FieldEventType, "watch_started"),
		logging.String(logging.FieldPath, d.cfg.Paths.WatchDir),
		logging.Int("concurrency", d.cfg.Workflow.Concurrency),
		logging.Int("categories", len(d.cfg.Categories)),
		logging.String("lock", d.lockPath),
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return source.Run(gctx) })
	g.Go(func() error { return d.controller.Run(gctx) })
	err = g.Wait()

	stats := d.controller.Stats()
	d.logger.Info("stopping",
		logging.String(logging.FieldEventType, "watch_stopped"),
		logging.Int64("moved", stats.Moved),
		logging.Int64("skipped", stats.Skipped),
		logging.Int64("timed_out", stats.TimedOut),
		logging.Int64("failed", stats.Failed),
		logging.Int64("ignored", stats.Ignored),
	)
	return err
}

func (d *Daemon) preflight() error {
	for _, result := range preflight.RunAll(d.cfg) {
		if result.Passed {
			continue
		}
		if result.Name == preflight.WatchDirName {
			return fmt.Errorf("watch directory not usable: %s", result.Detail)
		}
		logging.WarnWithContext(d.logger, "preflight check failed", "preflight_failed",
			logging.String("check", result.Name),
			logging.String(logging.FieldPath, result.Path),
			logging.String("detail", result.Detail),
			logging.String(logging.FieldErrorHint, "fix permissions or the path in the config, then run downsort check"),
			logging.String(logging.FieldImpact, "files for this location will fail to move"),
		)
	}
	return nil
}

func (d *Daemon) pruneHistory(ctx context.Context) {
	if d.store == nil {
		return
	}
	removed, err := d.store.PruneOlderThan(ctx, d.cfg.History.RetentionDays)
	if err != nil {
		logging.WarnWithContext(d.logger, "history prune failed", "history_prune_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "journal keeps growing"),
		)
		return
	}
	if removed > 0 {
		d.logger.Debug("history pruned", logging.Int64("removed", removed))
	}
}

// Stats returns the current session counters.
func (d *Daemon) Stats() watcher.Stats {
	return d.controller.Stats()
}

// Status returns the current daemon status.
func (d *Daemon) Status() Status {
	status := Status{
		Running:      d.running.Load(),
		WatchDir:     d.cfg.Paths.WatchDir,
		Stats:        d.controller.Stats(),
		LockFilePath: d.lockPath,
	}
	if d.store != nil {
		status.HistoryPath = d.store.Path()
	}
	return status
}
