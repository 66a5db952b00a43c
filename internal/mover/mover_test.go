package mover

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"syscall"
	"testing"

	"downsort/internal/classify"
	"downsort/internal/config"
	"downsort/internal/logging"
	"downsort/internal/testsupport"
)

func newTestMover(t *testing.T) (*Mover, *config.Config) {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	table, err := classify.NewTable(cfg.Categories)
	if err != nil {
		t.Fatal(err)
	}
	return New(table, logging.NewNop()), cfg
}

func TestMoveIntoCategoryDirectory(t *testing.T) {
	m, cfg := newTestMover(t)
	src := filepath.Join(cfg.Paths.WatchDir, "report.pdf")
	testsupport.WriteFile(t, src, 42)

	res := m.Move(context.Background(), src)
	if !res.Moved() {
		t.Fatalf("expected move, got %+v", res)
	}
	want := filepath.Join(testsupport.Destination(t, cfg, "docs"), "report.pdf")
	if res.Destination != want || res.Category != "docs" || res.Size != 42 || res.Attempts != 1 {
		t.Fatalf("unexpected result %+v", res)
	}
	testsupport.AssertFile(t, want, 42)
	testsupport.AssertMissing(t, src)
}

func TestMoveDoesNotOverwrite(t *testing.T) {
	m, cfg := newTestMover(t)
	dest := testsupport.Destination(t, cfg, "images")
	testsupport.WriteFile(t, filepath.Join(dest, "photo.jpg"), 5)

	src := filepath.Join(cfg.Paths.WatchDir, "photo.jpg")
	testsupport.WriteFile(t, src, 9)

	res := m.Move(context.Background(), src)
	if !res.Moved() || filepath.Base(res.Destination) != "photo (1).jpg" {
		t.Fatalf("unexpected result %+v", res)
	}
	testsupport.AssertFile(t, filepath.Join(dest, "photo.jpg"), 5)
	testsupport.AssertFile(t, filepath.Join(dest, "photo (1).jpg"), 9)
}

func TestMoveUnknownExtensionUsesFallback(t *testing.T) {
	m, cfg := newTestMover(t)
	src := filepath.Join(cfg.Paths.WatchDir, "data.xyz")
	testsupport.WriteFile(t, src, 1)

	res := m.Move(context.Background(), src)
	if !res.Moved() || res.Category != config.FallbackCategory {
		t.Fatalf("unexpected result %+v", res)
	}
	if filepath.Dir(res.Destination) != testsupport.Destination(t, cfg, config.FallbackCategory) {
		t.Fatalf("unexpected destination %q", res.Destination)
	}
}

func TestMoveSourceMissing(t *testing.T) {
	m, cfg := newTestMover(t)
	res := m.Move(context.Background(), filepath.Join(cfg.Paths.WatchDir, "gone.mp3"))
	if res.Status != StatusSourceMissing || res.Kind != FailureSourceVanished {
		t.Fatalf("unexpected result %+v", res)
	}
}

func TestMoveRetriesOnceAfterCollision(t *testing.T) {
	m, cfg := newTestMover(t)
	src := filepath.Join(cfg.Paths.WatchDir, "song.mp3")
	testsupport.WriteFile(t, src, 3)

	calls := 0
	m.rename = func(s, d string) error {
		calls++
		if calls == 1 {
			// Another writer claims the name between the lookup and the rename.
			testsupport.WriteFile(t, d, 1)
			return ErrDestinationExists
		}
		return renameNoReplace(s, d)
	}

	res := m.Move(context.Background(), src)
	if !res.Moved() || res.Attempts != 2 {
		t.Fatalf("unexpected result %+v", res)
	}
	if filepath.Base(res.Destination) != "song (1).mp3" {
		t.Fatalf("retry should recompute the name, got %q", res.Destination)
	}
}

func TestMoveGivesUpAfterSecondCollision(t *testing.T) {
	m, cfg := newTestMover(t)
	src := filepath.Join(cfg.Paths.WatchDir, "clip.mp4")
	testsupport.WriteFile(t, src, 3)
	m.rename = func(string, string) error { return ErrDestinationExists }

	res := m.Move(context.Background(), src)
	if res.Status != StatusFailed || res.Kind != FailureCollision || res.Attempts != 2 {
		t.Fatalf("unexpected result %+v", res)
	}
	if !errors.Is(res.Err, ErrDestinationExists) {
		t.Fatalf("expected ErrDestinationExists, got %v", res.Err)
	}
	testsupport.AssertFile(t, src, 3)
}

func TestMoveCrossDeviceCopies(t *testing.T) {
	m, cfg := newTestMover(t)
	src := filepath.Join(cfg.Paths.WatchDir, "setup.deb")
	testsupport.WriteFile(t, src, 2048)
	m.rename = func(s, d string) error {
		return &os.LinkError{Op: "rename", Old: s, New: d, Err: syscall.EXDEV}
	}

	res := m.Move(context.Background(), src)
	if !res.Moved() || !res.CrossDevice {
		t.Fatalf("unexpected result %+v", res)
	}
	testsupport.AssertFile(t, res.Destination, 2048)
	testsupport.AssertMissing(t, src)
}

func newLinkedSource(t *testing.T, cfg *config.Config, name string, size int64) (link, target string) {
	t.Helper()
	target = filepath.Join(t.TempDir(), "real.pdf")
	testsupport.WriteFile(t, target, size)
	link = filepath.Join(cfg.Paths.WatchDir, name)
	if err := os.Symlink(target, link); err != nil {
		t.Fatal(err)
	}
	return link, target
}

func TestMoveRelocatesSymlink(t *testing.T) {
	m, cfg := newTestMover(t)
	link, target := newLinkedSource(t, cfg, "link.pdf", 7)

	res := m.Move(context.Background(), link)
	if !res.Moved() || res.Category != "docs" || res.Size != 7 {
		t.Fatalf("unexpected result %+v", res)
	}
	testsupport.AssertSymlink(t, res.Destination, target)
	testsupport.AssertMissing(t, link)
	testsupport.AssertFile(t, target, 7)
}

func TestMoveRelocatesSymlinkAcrossDevices(t *testing.T) {
	m, cfg := newTestMover(t)
	link, target := newLinkedSource(t, cfg, "link.pdf", 7)
	m.rename = func(s, d string) error {
		return &os.LinkError{Op: "rename", Old: s, New: d, Err: syscall.EXDEV}
	}

	res := m.Move(context.Background(), link)
	if !res.Moved() || !res.CrossDevice {
		t.Fatalf("unexpected result %+v", res)
	}
	testsupport.AssertSymlink(t, res.Destination, target)
	testsupport.AssertMissing(t, link)
	testsupport.AssertFile(t, target, 7)
}

func TestMoveDanglingSymlinkIsMissing(t *testing.T) {
	m, cfg := newTestMover(t)
	link := filepath.Join(cfg.Paths.WatchDir, "broken.pdf")
	if err := os.Symlink(filepath.Join(t.TempDir(), "gone.pdf"), link); err != nil {
		t.Fatal(err)
	}
	res := m.Move(context.Background(), link)
	if res.Status != StatusSourceMissing {
		t.Fatalf("unexpected result %+v", res)
	}
}

func TestMoveUnwritableDestination(t *testing.T) {
	if os.Geteuid() == 0 {
		t.Skip("permission checks do not apply to root")
	}
	m, cfg := newTestMover(t)
	dest := testsupport.Destination(t, cfg, "docs")
	if err := os.MkdirAll(dest, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.Chmod(dest, 0o555); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = os.Chmod(dest, 0o755) })

	src := filepath.Join(cfg.Paths.WatchDir, "notes.txt")
	testsupport.WriteFile(t, src, 4)
	res := m.Move(context.Background(), src)
	if res.Status != StatusFailed || res.Kind != FailurePermission {
		t.Fatalf("unexpected result %+v", res)
	}
	testsupport.AssertFile(t, src, 4)
}

func TestMoveDestinationBlockedByFile(t *testing.T) {
	m, cfg := newTestMover(t)
	dest := testsupport.Destination(t, cfg, "archives")
	testsupport.WriteFile(t, dest, 1)

	src := filepath.Join(cfg.Paths.WatchDir, "bundle.zip")
	testsupport.WriteFile(t, src, 4)
	res := m.Move(context.Background(), src)
	if res.Status != StatusFailed || res.Kind != FailureUnwritable {
		t.Fatalf("unexpected result %+v", res)
	}
}

func TestMoveCancelledContext(t *testing.T) {
	m, cfg := newTestMover(t)
	src := filepath.Join(cfg.Paths.WatchDir, "late.pdf")
	testsupport.WriteFile(t, src, 1)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if res := m.Move(ctx, src); res.Moved() {
		t.Fatalf("cancelled move should not run, got %+v", res)
	}
	testsupport.AssertFile(t, src, 1)
}

func TestConcurrentMovesSameNameNeverOverwrite(t *testing.T) {
	m, cfg := newTestMover(t)
	const n = 8
	var srcs []string
	for i := 0; i < n; i++ {
		dir := filepath.Join(cfg.Paths.WatchDir, "batch", string(rune('a'+i)))
		src := filepath.Join(dir, "photo.jpg")
		testsupport.WriteFile(t, src, int64(i+1))
		srcs = append(srcs, src)
	}

	var wg sync.WaitGroup
	results := make([]Result, n)
	for i, src := range srcs {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i] = m.Move(context.Background(), src)
		}()
	}
	wg.Wait()

	seen := map[string]bool{}
	for _, res := range results {
		if !res.Moved() {
			t.Fatalf("unexpected result %+v", res)
		}
		if seen[res.Destination] {
			t.Fatalf("duplicate destination %q", res.Destination)
		}
		seen[res.Destination] = true
	}
	entries, err := os.ReadDir(testsupport.Destination(t, cfg, "images"))
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != n {
		t.Fatalf("expected %d files, got %d", n, len(entries))
	}
}

func TestLinkRenameRefusesExisting(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "a")
	dst := filepath.Join(dir, "b")
	testsupport.WriteFile(t, src, 1)
	testsupport.WriteFile(t, dst, 2)
	if err := linkRename(src, dst); !errors.Is(err, ErrDestinationExists) {
		t.Fatalf("expected ErrDestinationExists, got %v", err)
	}
	testsupport.AssertFile(t, dst, 2)
	testsupport.AssertFile(t, src, 1)
}

func TestFailureKindStrings(t *testing.T) {
	if FailureCollision.String() != "collision" || StatusSourceMissing.String() != "source_missing" {
		t.Fatal("unexpected string forms")
	}
}
