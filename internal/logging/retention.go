package logging

import (
	"log/slog"
	"os"
	"path/filepath"
	"time"
)

// CleanupOldLogs removes files in dir whose names match pattern and whose
// modification time is older than retentionDays. Paths listed in keep are never
// removed. A retentionDays value of 0 disables pruning. It returns the number of
// files removed.
func CleanupOldLogs(logger *slog.Logger, dir, pattern string, retentionDays int, keep ...string) int {
	if retentionDays <= 0 || dir == "" {
		return 0
	}
	matches, err := filepath.Glob(filepath.Join(dir, pattern))
	if err != nil {
		return 0
	}
	kept := make(map[string]struct{}, len(keep))
	for _, path := range keep {
		if abs, err := filepath.Abs(path); err == nil {
			kept[abs] = struct{}{}
		}
	}

	cutoff := time.Now().AddDate(0, 0, -retentionDays)
	removed := 0
	for _, match := range matches {
		abs, err := filepath.Abs(match)
		if err != nil {
			continue
		}
		if _, skip := kept[abs]; skip {
			continue
		}
		info, err := os.Lstat(abs)
		if err != nil || !info.Mode().IsRegular() || !info.ModTime().Before(cutoff) {
			continue
		}
		if err := os.Remove(abs); err != nil {
			WarnWithContext(logger, "old log file could not be removed", "log_retention_failed",
				String(FieldPath, abs),
				Error(err),
				String(FieldErrorHint, "check permissions on paths.log_dir"),
				String(FieldImpact, "old log file remains on disk"),
			)
			continue
		}
		removed++
		if logger != nil {
			logger.Debug("log pruned", String(FieldPath, abs), String(FieldEventType, "log_pruned"))
		}
	}
	return removed
}
