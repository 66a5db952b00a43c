package mover

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"syscall"

	"downsort/internal/classify"
	"downsort/internal/fileutil"
	"downsort/internal/logging"
	"downsort/internal/namer"
)

// maxAttempts is the initial rename plus one retry after a collision.
const maxAttempts = 2

// Mover moves files into category directories. It is safe for concurrent
// use; moves into the same directory are serialized.
type Mover struct {
	table  *classify.Table
	logger *slog.Logger
	rename func(src, dst string) error

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// New constructs a Mover for the given category table.
func New(table *classify.Table, logger *slog.Logger) *Mover {
	return &Mover{
		table:  table,
		logger: logging.NewComponentLogger(logger, "mover"),
		rename: renameNoReplace,
		locks:  make(map[string]*sync.Mutex),
	}
}

// Move relocates src into the destination of its category.
func (m *Mover) Move(ctx context.Context, src string) Result {
	res := Result{Source: src, Category: m.table.Classify(filepath.Base(src))}
	if err := ctx.Err(); err != nil {
		return m.fail(res, FailureOther, err)
	}

	info, err := os.Lstat(src)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return m.missing(res, err)
		}
		return m.fail(res, failureKind(err), fmt.Errorf("stat source: %w", err))
	}
	link := info.Mode()&fs.ModeSymlink != 0
	if link {
		// A symlink is moved as a link; its target must be a regular file.
		target, err := os.Stat(src)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return m.missing(res, err)
			}
			return m.fail(res, failureKind(err), fmt.Errorf("stat link target: %w", err))
		}
		info = target
	}
	if !info.Mode().IsRegular() {
		return m.fail(res, FailureOther, fmt.Errorf("%s is not a regular file", src))
	}
	res.Size = info.Size()

	dir := m.table.Destination(res.Category)
	unlock := m.lockDir(dir)
	defer unlock()

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return m.fail(res, failureKind(err), fmt.Errorf("create destination directory: %w", err))
	}

	name := filepath.Base(src)
	for res.Attempts < maxAttempts {
		res.Attempts++
		target, err := namer.Unique(dir, name)
		if err != nil {
			return m.fail(res, failureKind(err), err)
		}
		res.Destination = target

		crossDevice, err := m.relocate(src, target, link)
		if err == nil {
			res.CrossDevice = crossDevice
			res.Status = StatusMoved
			res.Kind = FailureNone
			return res
		}
		if errors.Is(err, ErrDestinationExists) {
			m.logger.Debug("destination taken at move time",
				logging.String(logging.FieldPath, src),
				logging.String(logging.FieldDestination, target),
				logging.Int("attempt", res.Attempts),
			)
			continue
		}
		if _, statErr := os.Lstat(src); errors.Is(statErr, fs.ErrNotExist) {
			return m.missing(res, err)
		}
		return m.fail(res, failureKind(err), err)
	}
	return m.fail(res, FailureCollision, fmt.Errorf("%s: %w after %d attempts", res.Destination, ErrDestinationExists, res.Attempts))
}

// relocate renames src to dst without replacing, copying when the two live
// on different filesystems. A symlink is recreated rather than copied. The
// bool reports a cross-device move.
func (m *Mover) relocate(src, dst string, link bool) (bool, error) {
	err := m.rename(src, dst)
	if err == nil || !errors.Is(err, syscall.EXDEV) {
		return false, err
	}
	m.logger.Debug("cross-device move, copying",
		logging.String(logging.FieldPath, src),
		logging.String(logging.FieldDestination, dst),
		logging.Bool("symlink", link),
	)
	if link {
		return true, relink(src, dst)
	}
	if err := fileutil.CopyNoClobber(src, dst); err != nil {
		if errors.Is(err, fs.ErrExist) {
			return true, ErrDestinationExists
		}
		return true, fmt.Errorf("copy across devices: %w", err)
	}
	if err := os.Remove(src); err != nil {
		_ = os.Remove(dst)
		return true, fmt.Errorf("remove source after copy: %w", err)
	}
	return true, nil
}

// relink recreates the symlink src at dst and removes src. os.Symlink
// refuses an existing dst.
func relink(src, dst string) error {
	target, err := os.Readlink(src)
	if err != nil {
		return fmt.Errorf("read link: %w", err)
	}
	if err := os.Symlink(target, dst); err != nil {
		if errors.Is(err, fs.ErrExist) {
			return ErrDestinationExists
		}
		return fmt.Errorf("recreate link: %w", err)
	}
	if err := os.Remove(src); err != nil {
		_ = os.Remove(dst)
		return fmt.Errorf("remove source link: %w", err)
	}
	return nil
}

func (m *Mover) lockDir(dir string) func() {
	m.mu.Lock()
	lock, ok := m.locks[dir]
	if !ok {
		lock = &sync.Mutex{}
		m.locks[dir] = lock
	}
	m.mu.Unlock()
	lock.Lock()
	return lock.Unlock
}

func (m *Mover) missing(res Result, err error) Result {
	res.Status = StatusSourceMissing
	res.Kind = FailureSourceVanished
	res.Err = err
	return res
}

func (m *Mover) fail(res Result, kind FailureKind, err error) Result {
	if kind == FailureNone {
		kind = FailureOther
	}
	res.Status = StatusFailed
	res.Kind = kind
	res.Err = err
	return res
}
