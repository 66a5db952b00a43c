package daemon_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"downsort/internal/daemon"
	"downsort/internal/history"
	"downsort/internal/logging"
	"downsort/internal/testsupport"
	"downsort/internal/watcher"
)

func startDaemon(t *testing.T, d *daemon.Daemon) (context.CancelFunc, chan error) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- d.Run(ctx) }()

	deadline := time.Now().Add(5 * time.Second)
	for !d.Status().Running {
		if time.Now().After(deadline) {
			cancel()
			t.Fatalf("daemon did not start: %v", <-done)
		}
		time.Sleep(5 * time.Millisecond)
	}
	return cancel, done
}

func TestDaemonMovesNewFile(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenHistory(t, cfg)
	d, err := daemon.New(cfg, store, logging.NewNop())
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	cancel, done := startDaemon(t, d)

	testsupport.WriteFile(t, filepath.Join(cfg.Paths.WatchDir, "invoice.pdf"), 256)
	want := filepath.Join(testsupport.Destination(t, cfg, "docs"), "invoice.pdf")

	deadline := time.Now().Add(10 * time.Second)
	for {
		if _, err := os.Stat(want); err == nil {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("file was not moved, stats %+v", d.Stats())
		}
		time.Sleep(10 * time.Millisecond)
	}

	cancel()
	if err := <-done; err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if d.Status().Running {
		t.Fatal("expected daemon to report stopped")
	}
	if d.Stats().Moved != 1 {
		t.Fatalf("unexpected stats %+v", d.Stats())
	}

	entries, err := store.List(context.Background(), history.Filter{})
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 || entries[0].Status != history.StatusMoved || entries[0].Destination != want {
		t.Fatalf("unexpected journal %+v", entries)
	}
}

func TestDaemonSingleInstance(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithHistoryDisabled())
	first, err := daemon.New(cfg, nil, logging.NewNop())
	if err != nil {
		t.Fatal(err)
	}
	cancel, done := startDaemon(t, first)
	defer func() {
		cancel()
		<-done
	}()

	second, err := daemon.New(cfg, nil, logging.NewNop())
	if err != nil {
		t.Fatal(err)
	}
	err = second.Run(context.Background())
	if !errors.Is(err, daemon.ErrAlreadyRunning) {
		t.Fatalf("expected ErrAlreadyRunning, got %v", err)
	}
}

func TestDaemonRunsWithHandedOverLock(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithHistoryDisabled())
	lock, err := daemon.AcquireLock(cfg)
	if err != nil {
		t.Fatalf("AcquireLock: %v", err)
	}
	if lock.Path() != cfg.LockPath() {
		t.Fatalf("unexpected lock path %q", lock.Path())
	}
	if _, err := daemon.AcquireLock(cfg); !errors.Is(err, daemon.ErrAlreadyRunning) {
		t.Fatalf("expected ErrAlreadyRunning while held, got %v", err)
	}

	d, err := daemon.New(cfg, nil, logging.NewNop(), daemon.WithInstanceLock(lock))
	if err != nil {
		t.Fatal(err)
	}
	cancel, done := startDaemon(t, d)
	cancel()
	if err := <-done; err != nil {
		t.Fatalf("Run returned error: %v", err)
	}

	// Run does not release a lock it was handed.
	if _, err := daemon.AcquireLock(cfg); !errors.Is(err, daemon.ErrAlreadyRunning) {
		t.Fatalf("expected lock to stay held after Run, got %v", err)
	}
	if err := lock.Release(); err != nil {
		t.Fatal(err)
	}
	again, err := daemon.AcquireLock(cfg)
	if err != nil {
		t.Fatalf("AcquireLock after release: %v", err)
	}
	_ = again.Release()
}

func TestDaemonMissingWatchDir(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithHistoryDisabled())
	if err := os.RemoveAll(cfg.Paths.WatchDir); err != nil {
		t.Fatal(err)
	}
	d, err := daemon.New(cfg, nil, logging.NewNop())
	if err != nil {
		t.Fatal(err)
	}
	err = d.Run(context.Background())
	if !errors.Is(err, watcher.ErrWatchDirMissing) {
		t.Fatalf("expected ErrWatchDirMissing, got %v", err)
	}
}

func TestNewRequiresConfig(t *testing.T) {
	if _, err := daemon.New(nil, nil, nil); err == nil {
		t.Fatal("expected error without config")
	}
}
