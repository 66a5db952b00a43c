package watcher

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gobwas/glob"
)

// Reasons reported for dropped events.
const (
	ReasonOutsideWatchDir = "outside_watch_dir"
	ReasonNotRegularFile  = "not_regular_file"
	ReasonMissing         = "missing"
	ReasonPartialDownload = "in_progress_suffix"
	ReasonLockFile        = "lock_file"
)

// FilterOptions configures the event filter chain.
type FilterOptions struct {
	WatchDir         string
	IgnoreSuffixes   []string
	LockPatterns     []string
	ExistsRetries    int
	ExistsRetryDelay time.Duration
	// Stat defaults to os.Stat, which follows symlinks so a dangling link
	// reads as missing.
	Stat func(string) (os.FileInfo, error)
}

func (o *FilterOptions) setDefaults() {
	if o.ExistsRetries <= 0 {
		o.ExistsRetries = 3
	}
	if o.ExistsRetryDelay < 0 {
		o.ExistsRetryDelay = 0
	}
	if o.Stat == nil {
		o.Stat = os.Stat
	}
}

// Filter decides whether an event path is worth stabilizing.
type Filter struct {
	opts     FilterOptions
	watchDir string
	suffixes []string
	locks    []glob.Glob
}

// NewFilter compiles the filter chain.
func NewFilter(opts FilterOptions) (*Filter, error) {
	opts.setDefaults()
	if strings.TrimSpace(opts.WatchDir) == "" {
		return nil, errors.New("filter: watch directory is required")
	}
	f := &Filter{opts: opts, watchDir: resolveDir(opts.WatchDir)}
	for _, suffix := range opts.IgnoreSuffixes {
		if s := strings.ToLower(strings.TrimSpace(suffix)); s != "" {
			f.suffixes = append(f.suffixes, s)
		}
	}
	for _, pattern := range opts.LockPatterns {
		g, err := glob.Compile(pattern)
		if err != nil {
			return nil, fmt.Errorf("filter: compile lock pattern %q: %w", pattern, err)
		}
		f.locks = append(f.locks, g)
	}
	return f, nil
}

// Check runs the filter chain in order and stops at the first rule that
// drops the path. It returns "" when the path qualifies.
func (f *Filter) Check(ctx context.Context, path string) string {
	if resolveDir(filepath.Dir(path)) != f.watchDir {
		return ReasonOutsideWatchDir
	}
	if reason := f.checkRegularFile(ctx, path); reason != "" {
		return reason
	}
	if f.hasIgnoredSuffix(path) {
		return ReasonPartialDownload
	}
	if f.isLockFile(filepath.Base(path)) {
		return ReasonLockFile
	}
	return ""
}

// checkRegularFile retries only while the path is missing; an entry that
// exists but is not a regular file is dropped at once.
func (f *Filter) checkRegularFile(ctx context.Context, path string) string {
	for attempt := 1; ; attempt++ {
		info, err := f.opts.Stat(path)
		if err == nil {
			if info.Mode().IsRegular() {
				return ""
			}
			return ReasonNotRegularFile
		}
		if attempt >= f.opts.ExistsRetries {
			return ReasonMissing
		}
		select {
		case <-ctx.Done():
			return ReasonMissing
		case <-time.After(f.opts.ExistsRetryDelay):
		}
	}
}

func (f *Filter) hasIgnoredSuffix(path string) bool {
	lower := strings.ToLower(path)
	for _, suffix := range f.suffixes {
		if strings.HasSuffix(lower, suffix) {
			return true
		}
	}
	return false
}

func (f *Filter) isLockFile(name string) bool {
	for _, g := range f.locks {
		if g.Match(name) {
			return true
		}
	}
	return false
}

func resolveDir(dir string) string {
	dir = filepath.Clean(dir)
	if resolved, err := filepath.EvalSymlinks(dir); err == nil {
		return resolved
	}
	if abs, err := filepath.Abs(dir); err == nil {
		return abs
	}
	return dir
}
