package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	if err := c.normalizeCategories(); err != nil {
		return err
	}
	c.normalizeIgnore()
	c.normalizeLogging()
	if c.Workflow.Concurrency == 0 {
		c.Workflow.Concurrency = defaultConcurrency
	}
	return nil
}

func (c *Config) normalizePaths() error {
	if value, ok := os.LookupEnv("DOWNSORT_WATCH_DIR"); ok && strings.TrimSpace(value) != "" {
		c.Paths.WatchDir = strings.TrimSpace(value)
	}
	if strings.TrimSpace(c.Paths.WatchDir) == "" {
		c.Paths.WatchDir = defaultWatchDir
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if strings.TrimSpace(c.Paths.StateDir) == "" {
		c.Paths.StateDir = defaultStateDir
	}

	var err error
	if c.Paths.WatchDir, err = expandPath(strings.TrimSpace(c.Paths.WatchDir)); err != nil {
		return fmt.Errorf("paths.watch_dir: %w", err)
	}
	if c.Paths.LogDir, err = expandPath(strings.TrimSpace(c.Paths.LogDir)); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	if c.Paths.StateDir, err = expandPath(strings.TrimSpace(c.Paths.StateDir)); err != nil {
		return fmt.Errorf("paths.state_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeCategories() error {
	if len(c.Categories) == 0 {
		c.Categories = DefaultCategories()
	}
	for i := range c.Categories {
		cat := &c.Categories[i]
		cat.Name = strings.ToLower(strings.TrimSpace(cat.Name))
		exts := make([]string, 0, len(cat.Extensions))
		seen := make(map[string]struct{}, len(cat.Extensions))
		for _, ext := range cat.Extensions {
			normalized := NormalizeExtension(ext)
			if normalized == "" {
				continue
			}
			if _, dup := seen[normalized]; dup {
				continue
			}
			seen[normalized] = struct{}{}
			exts = append(exts, normalized)
		}
		cat.Extensions = exts
		if strings.TrimSpace(cat.Destination) == "" {
			cat.Destination = ""
			continue
		}
		expanded, err := expandPath(strings.TrimSpace(cat.Destination))
		if err != nil {
			return fmt.Errorf("categories[%s].destination: %w", cat.Name, err)
		}
		cat.Destination = expanded
	}
	return nil
}

// NormalizeExtension lowercases an extension and strips surrounding space and leading dots.
func NormalizeExtension(ext string) string {
	return strings.TrimLeft(strings.ToLower(strings.TrimSpace(ext)), ".")
}

func (c *Config) normalizeIgnore() {
	if c.Ignore.Suffixes == nil {
		c.Ignore.Suffixes = DefaultIgnoreSuffixes()
	}
	suffixes := c.Ignore.Suffixes[:0]
	for _, suffix := range c.Ignore.Suffixes {
		if trimmed := strings.ToLower(strings.TrimSpace(suffix)); trimmed != "" {
			suffixes = append(suffixes, trimmed)
		}
	}
	c.Ignore.Suffixes = suffixes

	if c.Ignore.LockPatterns == nil {
		c.Ignore.LockPatterns = DefaultLockPatterns()
	}
	patterns := c.Ignore.LockPatterns[:0]
	for _, pattern := range c.Ignore.LockPatterns {
		if trimmed := strings.TrimSpace(pattern); trimmed != "" {
			patterns = append(patterns, trimmed)
		}
	}
	c.Ignore.LockPatterns = patterns
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format != "json" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
	if c.Logging.RetentionDays < 0 {
		c.Logging.RetentionDays = 0
	}
	if c.History.RetentionDays < 0 {
		c.History.RetentionDays = 0
	}
}
