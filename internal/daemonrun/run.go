// Package daemonrun hosts the process-level setup for "downsort watch":
// signal handling, per-run log files, and the history journal.
package daemonrun

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"downsort/internal/config"
	"downsort/internal/daemon"
	"downsort/internal/history"
	"downsort/internal/logging"
)

// Options configures daemon process runtime behavior.
type Options struct {
	// LogLevel overrides logging.level when set.
	LogLevel    string
	Development bool
}

// Run starts the watch loop and blocks until SIGINT or SIGTERM. An interrupt
// is a clean exit and returns nil.
func Run(cmdCtx context.Context, cfg *config.Config, opts Options) error {
	if cfg == nil {
		return fmt.Errorf("config is required")
	}

	signalCtx, cancel := signal.NotifyContext(cmdCtx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := cfg.EnsureDirectories(); err != nil {
		return err
	}

	// Lock before touching the log pointer, old logs or the pid file, all of
	// which belong to a running instance.
	lock, err := daemon.AcquireLock(cfg)
	if err != nil {
		return err
	}
	defer lock.Release() //nolint:errcheck

	runID := time.Now().UTC().Format("20060102T150405.000Z")
	logPath := filepath.Join(cfg.Paths.LogDir, fmt.Sprintf("downsort-%s.log", runID))
	logger, err := buildLogger(cfg, opts, logPath)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	logger = logger.With(logging.String(logging.FieldRunID, runID))

	if err := ensureCurrentLogPointer(cfg.Paths.LogDir, logPath); err != nil {
		fmt.Fprintf(os.Stderr, "warn: unable to update downsort.log link: %v\n", err)
	}
	logging.CleanupOldLogs(logger, cfg.Paths.LogDir, "downsort-*.log", cfg.Logging.RetentionDays, logPath)

	var store *history.Store
	if cfg.History.Enabled {
		store, err = history.Open(cfg.HistoryPath())
		if err != nil {
			logger.Error("open history journal", logging.Error(err))
			return err
		}
		defer store.Close()
	}

	d, err := daemon.New(cfg, store, logger, daemon.WithInstanceLock(lock))
	if err != nil {
		return fmt.Errorf("create daemon: %w", err)
	}

	pidPath := filepath.Join(cfg.Paths.StateDir, "downsort.pid")
	if err := writePIDFile(pidPath); err != nil {
		return fmt.Errorf("write pid file: %w", err)
	}
	defer os.Remove(pidPath)

	err = d.Run(signalCtx)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func buildLogger(cfg *config.Config, opts Options, logPath string) (*slog.Logger, error) {
	level := cfg.Logging.Level
	if strings.TrimSpace(opts.LogLevel) != "" {
		level = opts.LogLevel
	}
	console, err := logging.New(logging.Options{
		Level:       level,
		Format:      cfg.Logging.Format,
		OutputPaths: []string{"stdout"},
		Development: opts.Development,
	})
	if err != nil {
		return nil, err
	}
	file, err := logging.New(logging.Options{
		Level:       "debug",
		Format:      "json",
		OutputPaths: []string{logPath},
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "warn: unable to open run log %s: %v\n", logPath, err)
		return console, nil
	}
	return logging.TeeLogger(console, file), nil
}

func ensureCurrentLogPointer(logDir, target string) error {
	if logDir == "" || target == "" {
		return nil
	}
	current := filepath.Join(logDir, "downsort.log")
	if err := os.Remove(current); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove existing log pointer: %w", err)
	}
	if err := os.Symlink(target, current); err == nil {
		return nil
	}
	if err := os.Link(target, current); err != nil {
		return fmt.Errorf("link log pointer: %w", err)
	}
	return nil
}

func writePIDFile(path string) error {
	if path == "" {
		return nil
	}
	value := strconv.Itoa(os.Getpid()) + "\n"
	return os.WriteFile(path, []byte(value), 0o644)
}
