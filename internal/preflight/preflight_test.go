package preflight

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"downsort/internal/testsupport"
)

func TestCheckDirectoryAccess_OK(t *testing.T) {
	dir := t.TempDir()
	result := CheckDirectoryAccess("test", dir)
	if !result.Passed {
		t.Fatalf("expected pass for temp dir, got: %s", result.Detail)
	}
}

func TestCheckDirectoryAccess_NotExist(t *testing.T) {
	result := CheckDirectoryAccess("test", filepath.Join(t.TempDir(), "nope"))
	if result.Passed {
		t.Fatal("expected failure for missing dir")
	}
	if !strings.Contains(result.Detail, "does not exist") {
		t.Fatalf("unexpected detail %q", result.Detail)
	}
}

func TestCheckDirectoryAccess_NotDir(t *testing.T) {
	f := filepath.Join(t.TempDir(), "file.txt")
	if err := os.WriteFile(f, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	result := CheckDirectoryAccess("test", f)
	if result.Passed {
		t.Fatal("expected failure for file path")
	}
}

func TestCheckCreatableDir(t *testing.T) {
	base := t.TempDir()
	missing := filepath.Join(base, "a", "b", "c")
	result := CheckCreatableDir("dest", missing)
	if !result.Passed || !strings.Contains(result.Detail, "will be created") {
		t.Fatalf("expected creatable pass, got %+v", result)
	}
	if _, err := os.Stat(missing); !os.IsNotExist(err) {
		t.Fatal("check must not create the directory")
	}

	blocker := filepath.Join(base, "file")
	if err := os.WriteFile(blocker, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	if result := CheckCreatableDir("dest", filepath.Join(blocker, "sub")); result.Passed {
		t.Fatalf("expected failure below a regular file, got %+v", result)
	}
}

func TestCheckCreatableDir_ReadOnlyParent(t *testing.T) {
	if os.Geteuid() == 0 {
		t.Skip("permission checks do not apply to root")
	}
	parent := t.TempDir()
	if err := os.Chmod(parent, 0o555); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = os.Chmod(parent, 0o755) })
	if result := CheckCreatableDir("dest", filepath.Join(parent, "child")); result.Passed {
		t.Fatalf("expected failure under read-only parent, got %+v", result)
	}
}

func TestRunAll(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	results := RunAll(cfg)
	if len(results) != 1+len(cfg.Categories)+2 {
		t.Fatalf("unexpected result count %d", len(results))
	}
	if results[0].Name != WatchDirName || !results[0].Passed {
		t.Fatalf("watch dir should pass first, got %+v", results[0])
	}
	if failed := Failed(results); len(failed) != 0 {
		t.Fatalf("expected all checks to pass, failed: %+v", failed)
	}

	if err := os.RemoveAll(cfg.Paths.WatchDir); err != nil {
		t.Fatal(err)
	}
	failed := Failed(RunAll(cfg))
	if len(failed) != 1 || failed[0].Name != WatchDirName {
		t.Fatalf("expected only the watch dir to fail, got %+v", failed)
	}
}

func TestRunAllNilConfig(t *testing.T) {
	if RunAll(nil) != nil {
		t.Fatal("expected nil results for nil config")
	}
}
