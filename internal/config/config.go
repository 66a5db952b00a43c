package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration.
type Paths struct {
	WatchDir string `toml:"watch_dir"`
	LogDir   string `toml:"log_dir"`
	StateDir string `toml:"state_dir"`
}

// Category maps a set of extensions to one destination directory.
type Category struct {
	Name        string   `toml:"name"`
	Extensions  []string `toml:"extensions"`
	Destination string   `toml:"destination"`
}

// Ignore lists names that never qualify for a move.
type Ignore struct {
	// Suffixes are matched case-insensitively against the end of the full path.
	Suffixes []string `toml:"suffixes"`
	// LockPatterns are glob patterns matched against the base name.
	LockPatterns []string `toml:"lock_patterns"`
}

// Stability contains the tunables of the size-polling monitor.
type Stability struct {
	PollIntervalMillis     int `toml:"poll_interval_ms"`
	StablePolls            int `toml:"stable_polls"`
	MaxWaitSeconds         int `toml:"max_wait_seconds"`
	ExistsRetries          int `toml:"exists_retries"`
	ExistsRetryDelayMillis int `toml:"exists_retry_delay_ms"`
}

// Workflow controls how candidates are scheduled.
type Workflow struct {
	// Concurrency is the number of candidates stabilized at once. 1 processes
	// events strictly in arrival order on a single worker.
	Concurrency int `toml:"concurrency"`
}

// History configures the move journal.
type History struct {
	Enabled       bool `toml:"enabled"`
	RetentionDays int  `toml:"retention_days"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format        string `toml:"format"`
	Level         string `toml:"level"`
	RetentionDays int    `toml:"retention_days"`
}

// Config encapsulates all configuration values for downsort.
type Config struct {
	Paths      Paths      `toml:"paths"`
	Categories []Category `toml:"categories"`
	Ignore     Ignore     `toml:"ignore"`
	Stability  Stability  `toml:"stability"`
	Workflow   Workflow   `toml:"workflow"`
	History    History    `toml:"history"`
	Logging    Logging    `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/downsort/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized. The second and third results report the
// resolved file path and whether it existed.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file).DisallowUnknownFields()
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config %s: %w", resolvedPath, err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		if _, err := os.Stat(expanded); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}
	projectPath, err := filepath.Abs("downsort.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}
	return defaultPath, false, nil
}

// EnsureDirectories creates the directories the daemon writes to. Destination
// directories are created lazily by the mover and the watched directory is
// never created.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.LogDir, c.Paths.StateDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// Category returns the named category.
func (c *Config) Category(name string) (Category, bool) {
	for _, cat := range c.Categories {
		if cat.Name == name {
			return cat, true
		}
	}
	return Category{}, false
}

// HistoryPath is the SQLite move journal location.
func (c *Config) HistoryPath() string {
	return filepath.Join(c.Paths.StateDir, "history.db")
}

// LockPath is the single-instance lock file location.
func (c *Config) LockPath() string {
	return filepath.Join(c.Paths.StateDir, "downsort.lock")
}

// PollInterval returns the delay between two size polls.
func (s Stability) PollInterval() time.Duration {
	return time.Duration(s.PollIntervalMillis) * time.Millisecond
}

// MaxWait returns the stabilization ceiling.
func (s Stability) MaxWait() time.Duration {
	return time.Duration(s.MaxWaitSeconds) * time.Second
}

// ExistsRetryDelay returns the pause between existence checks.
func (s Stability) ExistsRetryDelay() time.Duration {
	return time.Duration(s.ExistsRetryDelayMillis) * time.Millisecond
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	absolute, err := filepath.Abs(filepath.Clean(pathValue))
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", pathValue, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
// An existing file is never overwritten.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}
	file, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	if _, err := file.WriteString(sampleConfig); err != nil {
		_ = file.Close()
		return fmt.Errorf("write sample config: %w", err)
	}
	return file.Close()
}

// SampleConfig returns the embedded sample configuration.
func SampleConfig() string {
	return sampleConfig
}
