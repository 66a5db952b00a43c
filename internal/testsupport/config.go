package testsupport

import (
	"os"
	"path/filepath"
	"testing"

	"downsort/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// The watch directory exists; category destinations live under base/dest and
// are left for the mover to create.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.WatchDir = filepath.Join(base, "downloads")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Paths.StateDir = filepath.Join(base, "state")
	cfgVal.Categories = config.DefaultCategories()
	for i := range cfgVal.Categories {
		cfgVal.Categories[i].Destination = filepath.Join(base, "dest", cfgVal.Categories[i].Name)
	}
	cfgVal.Ignore = config.Ignore{
		Suffixes:     config.DefaultIgnoreSuffixes(),
		LockPatterns: config.DefaultLockPatterns(),
	}
	cfgVal.Stability.PollIntervalMillis = 10
	cfgVal.Stability.ExistsRetryDelayMillis = 1

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	if err := os.MkdirAll(builder.cfg.Paths.WatchDir, 0o755); err != nil {
		t.Fatalf("create watch dir: %v", err)
	}
	if err := builder.cfg.Validate(); err != nil {
		t.Fatalf("test config invalid: %v", err)
	}
	return builder.cfg
}

// WithConcurrency sets workflow.concurrency.
func WithConcurrency(n int) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Workflow.Concurrency = n
	}
}

// WithStability overrides the polling tunables.
func WithStability(intervalMillis, stablePolls, maxWaitSeconds int) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Stability.PollIntervalMillis = intervalMillis
		b.cfg.Stability.StablePolls = stablePolls
		b.cfg.Stability.MaxWaitSeconds = maxWaitSeconds
	}
}

// WithHistoryDisabled turns the move journal off.
func WithHistoryDisabled() ConfigOption {
	return func(b *configBuilder) {
		b.cfg.History.Enabled = false
	}
}

// Destination returns the configured destination of a category.
func Destination(t testing.TB, cfg *config.Config, category string) string {
	t.Helper()
	cat, ok := cfg.Category(category)
	if !ok {
		t.Fatalf("unknown category %q", category)
	}
	return cat.Destination
}
