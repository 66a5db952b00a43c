package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/gobwas/glob"
)

// Validate ensures the configuration is usable. It does not touch the
// filesystem; whether the watched directory exists is checked at startup.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateCategories(); err != nil {
		return err
	}
	if err := c.validateIgnore(); err != nil {
		return err
	}
	if err := c.validateStability(); err != nil {
		return err
	}
	if c.Workflow.Concurrency < 1 {
		return errors.New("workflow.concurrency must be at least 1")
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("logging.level: unsupported value %q", c.Logging.Level)
	}
	return nil
}

func (c *Config) validatePaths() error {
	if c.Paths.WatchDir == "" {
		return errors.New("paths.watch_dir must be set")
	}
	if c.Paths.StateDir == "" {
		return errors.New("paths.state_dir must be set")
	}
	return nil
}

func (c *Config) validateCategories() error {
	owners := make(map[string]string)
	names := make(map[string]struct{}, len(c.Categories))
	for _, cat := range c.Categories {
		if cat.Name == "" {
			return errors.New("categories: every category needs a name")
		}
		if _, dup := names[cat.Name]; dup {
			return fmt.Errorf("categories: duplicate category %q", cat.Name)
		}
		names[cat.Name] = struct{}{}
		if cat.Destination == "" {
			return fmt.Errorf("categories[%s].destination must be set", cat.Name)
		}
		if filepath.Clean(cat.Destination) == filepath.Clean(c.Paths.WatchDir) {
			return fmt.Errorf("categories[%s].destination must differ from paths.watch_dir", cat.Name)
		}
		for _, ext := range cat.Extensions {
			if strings.ContainsAny(ext, `/\`) {
				return fmt.Errorf("categories[%s]: invalid extension %q", cat.Name, ext)
			}
			if owner, taken := owners[ext]; taken {
				return fmt.Errorf("categories: extension %q listed under both %q and %q", ext, owner, cat.Name)
			}
			owners[ext] = cat.Name
		}
	}
	fallback, ok := c.Category(FallbackCategory)
	if !ok {
		return fmt.Errorf("categories: fallback category %q is required", FallbackCategory)
	}
	if len(fallback.Extensions) > 0 {
		return fmt.Errorf("categories[%s] must not list extensions", FallbackCategory)
	}
	return nil
}

func (c *Config) validateIgnore() error {
	for _, pattern := range c.Ignore.LockPatterns {
		if _, err := glob.Compile(pattern); err != nil {
			return fmt.Errorf("ignore.lock_patterns: invalid pattern %q: %w", pattern, err)
		}
	}
	return nil
}

func (c *Config) validateStability() error {
	if err := ensurePositiveMap(map[string]int{
		"stability.poll_interval_ms": c.Stability.PollIntervalMillis,
		"stability.stable_polls":     c.Stability.StablePolls,
		"stability.max_wait_seconds": c.Stability.MaxWaitSeconds,
		"stability.exists_retries":   c.Stability.ExistsRetries,
	}); err != nil {
		return err
	}
	if c.Stability.ExistsRetryDelayMillis < 0 {
		return errors.New("stability.exists_retry_delay_ms must be >= 0")
	}
	if c.Stability.MaxWait() < c.Stability.PollInterval() {
		return errors.New("stability.max_wait_seconds must cover at least one poll interval")
	}
	return nil
}

func ensurePositiveMap(values map[string]int) error {
	for key, value := range values {
		if value <= 0 {
			return fmt.Errorf("%s must be positive", key)
		}
	}
	return nil
}
