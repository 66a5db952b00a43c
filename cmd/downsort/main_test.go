package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/pelletier/go-toml/v2"

	"downsort/internal/config"
	"downsort/internal/history"
	"downsort/internal/testsupport"
)

type cliTestEnv struct {
	cfg        *config.Config
	configPath string
}

func setupCLITestEnv(t *testing.T, opts ...testsupport.ConfigOption) *cliTestEnv {
	t.Helper()
	t.Setenv("DOWNSORT_WATCH_DIR", "")

	cfg := testsupport.NewConfig(t, opts...)
	configPath := filepath.Join(filepath.Dir(cfg.Paths.WatchDir), "config.toml")
	writeTestConfig(t, configPath, cfg)
	return &cliTestEnv{cfg: cfg, configPath: configPath}
}

func writeTestConfig(t *testing.T, path string, cfg *config.Config) {
	t.Helper()
	data, err := toml.Marshal(cfg)
	if err != nil {
		t.Fatalf("marshal config: %v", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
}

func runCLI(t *testing.T, args []string, configPath string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	var flags []string
	if configPath != "" {
		flags = append(flags, "--config", configPath)
	}
	cmd.SetArgs(append(flags, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func TestCLIClassify(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"classify", "report.PDF", "notes.xyz", "README"}, env.configPath)
	if err != nil {
		t.Fatalf("classify: %v", err)
	}
	for _, want := range []string{"report.PDF", "docs", testsupport.Destination(t, env.cfg, "docs"), "notes.xyz", "other"} {
		if !strings.Contains(out, want) {
			t.Fatalf("classify output missing %q:\n%s", want, out)
		}
	}

	if _, _, err := runCLI(t, []string{"classify"}, env.configPath); err == nil {
		t.Fatal("expected classify without names to fail")
	}
}

func TestCLICategories(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"categories"}, env.configPath)
	if err != nil {
		t.Fatalf("categories: %v", err)
	}
	for _, want := range []string{"images", "png", "archives", "(everything else)", testsupport.Destination(t, env.cfg, "other")} {
		if !strings.Contains(out, want) {
			t.Fatalf("categories output missing %q:\n%s", want, out)
		}
	}
	if strings.Index(out, "images") > strings.Index(out, "videos") {
		t.Fatalf("categories should be listed in declaration order:\n%s", out)
	}
}

func TestCLIHistory(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"history"}, env.configPath)
	if err != nil {
		t.Fatalf("history on empty state: %v", err)
	}
	if !strings.Contains(out, "No history recorded yet") {
		t.Fatalf("unexpected empty history output: %q", out)
	}

	store := testsupport.MustOpenHistory(t, env.cfg)
	ctx := context.Background()
	base := time.Now().Add(-time.Minute)
	entries := []history.Entry{
		{Status: history.StatusMoved, Source: "/dl/a.pdf", Destination: "/docs/a.pdf", Category: "docs", Size: 2048, RecordedAt: base},
		{Status: history.StatusTimedOut, Source: "/dl/big.iso", Category: "other", Reason: "not_stable", RecordedAt: base.Add(time.Second)},
		{Status: history.StatusFailed, Source: "/dl/c.png", Category: "images", Reason: "permission_denied", Error: "open: denied", RecordedAt: base.Add(2 * time.Second)},
	}
	for _, entry := range entries {
		if err := store.Record(ctx, entry); err != nil {
			t.Fatalf("Record: %v", err)
		}
	}

	out, _, err = runCLI(t, []string{"history"}, env.configPath)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	for _, want := range []string{"/docs/a.pdf", "2.0 KiB", "timed_out", "permission_denied: open: denied"} {
		if !strings.Contains(out, want) {
			t.Fatalf("history output missing %q:\n%s", want, out)
		}
	}
	if !strings.Contains(out, "journal: 3 entries (moved 1, skipped 0, timed_out 1, failed 1)") {
		t.Fatalf("history output missing journal summary:\n%s", out)
	}
	if strings.Index(out, "c.png") > strings.Index(out, "a.pdf") {
		t.Fatalf("expected newest entry first:\n%s", out)
	}

	out, _, err = runCLI(t, []string{"history", "--status", "timed-out"}, env.configPath)
	if err != nil {
		t.Fatalf("history --status: %v", err)
	}
	if !strings.Contains(out, "big.iso") || strings.Contains(out, "a.pdf") {
		t.Fatalf("status filter not applied:\n%s", out)
	}

	out, _, err = runCLI(t, []string{"history", "--limit", "1"}, env.configPath)
	if err != nil {
		t.Fatalf("history --limit: %v", err)
	}
	if !strings.Contains(out, "c.png") || strings.Contains(out, "big.iso") {
		t.Fatalf("limit not applied:\n%s", out)
	}

	if _, _, err := runCLI(t, []string{"history", "--status", "bogus"}, env.configPath); err == nil {
		t.Fatal("expected unknown status to fail")
	}
}

func TestCLICheck(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"check"}, env.configPath)
	if err != nil {
		t.Fatalf("check: %v\n%s", err, out)
	}
	if !strings.Contains(out, "  ok    Watch directory") || strings.Contains(out, "\x1b[") {
		t.Fatalf("unexpected check output:\n%s", out)
	}

	if err := os.RemoveAll(env.cfg.Paths.WatchDir); err != nil {
		t.Fatal(err)
	}
	out, _, err = runCLI(t, []string{"check"}, env.configPath)
	if err == nil {
		t.Fatalf("expected check to fail without watch dir:\n%s", out)
	}
	if !strings.Contains(out, "  FAIL  Watch directory") || !strings.Contains(out, "does not exist") {
		t.Fatalf("expected an error line:\n%s", out)
	}
}

func TestCLIConfigCommands(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"config", "path"}, env.configPath)
	if err != nil {
		t.Fatalf("config path: %v", err)
	}
	if strings.TrimSpace(out) != env.configPath {
		t.Fatalf("config path = %q, want %q", out, env.configPath)
	}

	out, _, err = runCLI(t, []string{"config", "validate"}, env.configPath)
	if err != nil {
		t.Fatalf("config validate: %v", err)
	}
	if !strings.Contains(out, "Configuration valid") {
		t.Fatalf("unexpected validate output: %q", out)
	}

	target := filepath.Join(t.TempDir(), "nested", "config.toml")
	out, _, err = runCLI(t, []string{"config", "init", "--path", target}, "")
	if err != nil {
		t.Fatalf("config init: %v", err)
	}
	if !strings.Contains(out, target) {
		t.Fatalf("unexpected init output: %q", out)
	}
	data, err := os.ReadFile(target)
	if err != nil {
		t.Fatalf("read sample: %v", err)
	}
	if string(data) != config.SampleConfig() {
		t.Fatal("sample config content mismatch")
	}
	if _, _, err := runCLI(t, []string{"config", "init", "--path", target}, ""); err == nil {
		t.Fatal("expected init to refuse overwriting")
	}
}

func TestCLIInvalidConfigFails(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.toml")
	if err := os.WriteFile(path, []byte("[paths]\nbogus = 1\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, _, err := runCLI(t, []string{"categories"}, path); err == nil {
		t.Fatal("expected unknown key to be rejected")
	}
}

func TestCLIWatchMovesFile(t *testing.T) {
	env := setupCLITestEnv(t, testsupport.WithStability(10, 2, 5))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cmd := newRootCommand()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"--config", env.configPath, "--log-level", "error", "watch"})
	cmd.SetContext(ctx)

	done := make(chan error, 1)
	go func() {
		done <- cmd.Execute()
	}()

	lockPath := env.cfg.LockPath()
	waitFor(t, func() bool {
		_, err := os.Stat(lockPath)
		return err == nil
	})
	time.Sleep(100 * time.Millisecond)

	testsupport.WriteFile(t, filepath.Join(env.cfg.Paths.WatchDir, "song.mp3"), 64)
	target := filepath.Join(testsupport.Destination(t, env.cfg, "audio"), "song.mp3")
	waitFor(t, func() bool {
		_, err := os.Stat(target)
		return err == nil
	})

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("watch returned error: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("watch did not stop after cancellation")
	}
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}

func TestCLILogs(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"logs"}, env.configPath)
	if err != nil {
		t.Fatalf("logs without a run: %v", err)
	}
	if !strings.Contains(out, "No log entries available") {
		t.Fatalf("unexpected output: %q", out)
	}

	if err := os.MkdirAll(env.cfg.Paths.LogDir, 0o755); err != nil {
		t.Fatal(err)
	}
	logPath := filepath.Join(env.cfg.Paths.LogDir, "downsort.log")
	if err := os.WriteFile(logPath, []byte("first\nsecond\nthird\n"), 0o644); err != nil {
		t.Fatalf("write log file: %v", err)
	}

	out, _, err = runCLI(t, []string{"logs", "--lines", "2"}, env.configPath)
	if err != nil {
		t.Fatalf("logs --lines: %v", err)
	}
	if strings.Contains(out, "first") || !strings.Contains(out, "second\nthird") {
		t.Fatalf("unexpected logs output: %q", out)
	}
}
