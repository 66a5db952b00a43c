package preflight

import (
	"fmt"
	"strings"

	"downsort/internal/config"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Path   string
	Passed bool
	Detail string
}

// RunAll executes every preflight check for the given config: the watched
// directory first, then each category destination, then the state and log
// directories.
func RunAll(cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}

	results := []Result{CheckWatchDir(cfg.Paths.WatchDir)}
	seen := map[string]struct{}{}
	for _, cat := range cfg.Categories {
		if _, dup := seen[cat.Destination]; dup {
			continue
		}
		seen[cat.Destination] = struct{}{}
		results = append(results, CheckCreatableDir(fmt.Sprintf("Destination (%s)", cat.Name), cat.Destination))
	}
	results = append(results, CheckCreatableDir("State directory", cfg.Paths.StateDir))
	if strings.TrimSpace(cfg.Paths.LogDir) != "" {
		results = append(results, CheckCreatableDir("Log directory", cfg.Paths.LogDir))
	}
	return results
}

// Failed returns the results that did not pass.
func Failed(results []Result) []Result {
	var failed []Result
	for _, r := range results {
		if !r.Passed {
			failed = append(failed, r)
		}
	}
	return failed
}
