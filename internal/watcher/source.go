package watcher

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"

	"downsort/internal/logging"
)

// ErrWatchDirMissing is returned when the watched directory does not exist.
var ErrWatchDirMissing = errors.New("watch directory does not exist")

// Source delivers fsnotify events for a single directory to a Consumer.
// Subdirectories are not watched.
type Source struct {
	logger   *slog.Logger
	dir      string
	consumer Consumer
	watcher  *fsnotify.Watcher

	// pendingRename is the old name of the last Rename; the Create that
	// immediately follows it carries the new name.
	pendingRename string
}

// NewSource subscribes to dir. The directory must exist.
func NewSource(dir string, consumer Consumer, logger *slog.Logger) (*Source, error) {
	if consumer == nil {
		return nil, errors.New("watcher: consumer is required")
	}
	dir = filepath.Clean(dir)
	info, err := os.Stat(dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrWatchDirMissing, dir)
		}
		return nil, fmt.Errorf("stat watch directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: %s is not a directory", ErrWatchDirMissing, dir)
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}
	if err := w.Add(dir); err != nil {
		_ = w.Close()
		return nil, fmt.Errorf("watch %s: %w", dir, err)
	}

	return &Source{
		logger:   logging.NewComponentLogger(logger, "watcher"),
		dir:      dir,
		consumer: consumer,
		watcher:  w,
	}, nil
}

// Run dispatches events until ctx is cancelled, then closes the subscription.
func (s *Source) Run(ctx context.Context) error {
	defer s.watcher.Close()

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-s.watcher.Events:
			if !ok {
				return nil
			}
			s.handle(event)
		case err, ok := <-s.watcher.Errors:
			if !ok {
				return nil
			}
			logging.WarnWithContext(s.logger, "watch error", "watch_error",
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "events may have been dropped; new files can be moved by re-saving them"),
				logging.String(logging.FieldImpact, "some files may not be organized"),
			)
		}
	}
}

func (s *Source) handle(event fsnotify.Event) {
	oldName := s.pendingRename
	s.pendingRename = ""

	switch {
	case event.Has(fsnotify.Create):
		if oldName != "" {
			s.logger.Debug("rename observed",
				logging.String("old_path", oldName),
				logging.String(logging.FieldPath, event.Name),
			)
			s.consumer.OnRenamed(oldName, event.Name)
			return
		}
		s.consumer.OnCreated(event.Name)
	case event.Has(fsnotify.Rename):
		s.pendingRename = event.Name
	default:
		// Write, Remove and Chmod do not start a candidate.
	}
}
