package stability

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"downsort/internal/testsupport"
)

type fakeInfo struct {
	size int64
	mode fs.FileMode
}

func (f fakeInfo) Name() string       { return "fake" }
func (f fakeInfo) Size() int64        { return f.size }
func (f fakeInfo) Mode() fs.FileMode  { return f.mode }
func (f fakeInfo) ModTime() time.Time { return time.Time{} }
func (f fakeInfo) IsDir() bool        { return f.mode.IsDir() }
func (f fakeInfo) Sys() any           { return nil }

// sequenceStat replays sizes poll by poll; a negative size reports not-exist.
// After the sequence is exhausted the last size repeats.
type sequenceStat struct {
	mu    sync.Mutex
	sizes []int64
	calls int
}

func (s *sequenceStat) stat(string) (os.FileInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	idx := s.calls
	if idx >= len(s.sizes) {
		idx = len(s.sizes) - 1
	}
	s.calls++
	size := s.sizes[idx]
	if size < 0 {
		return nil, fs.ErrNotExist
	}
	return fakeInfo{size: size}, nil
}

func newMonitor(stat StatFunc, threshold int, maxWait time.Duration) *Monitor {
	return New(Options{
		Interval:  time.Second,
		Threshold: threshold,
		MaxWait:   maxWait,
		Clock:     testsupport.NewFakeClock(),
		Stat:      stat,
	})
}

func TestWaitStableAfterThresholdEqualPolls(t *testing.T) {
	seq := &sequenceStat{sizes: []int64{100, 100, 100, 100, 100}}
	report := newMonitor(seq.stat, 4, 600*time.Second).Wait(context.Background(), "/in/report.pdf")

	if report.State != Stable {
		t.Fatalf("state = %v, want stable", report.State)
	}
	if report.Candidate.Polls != 5 || report.Candidate.StablePolls != 4 {
		t.Fatalf("unexpected candidate %+v", report.Candidate)
	}
	if report.Candidate.Elapsed != 4*time.Second {
		t.Fatalf("elapsed = %v", report.Candidate.Elapsed)
	}
}

func TestWaitResetsOnGrowth(t *testing.T) {
	seq := &sequenceStat{sizes: []int64{10, 10, 10, 20, 20, 20, 20, 20}}
	report := newMonitor(seq.stat, 4, 600*time.Second).Wait(context.Background(), "x")
	if report.State != Stable {
		t.Fatalf("state = %v", report.State)
	}
	if report.Candidate.LastSize != 20 || report.Candidate.Polls != 8 {
		t.Fatalf("unexpected candidate %+v", report.Candidate)
	}
}

func TestWaitStableIffRunReachesThreshold(t *testing.T) {
	tests := []struct {
		name      string
		sizes     []int64
		threshold int
		maxWait   time.Duration
		want      State
	}{
		{"run long enough", []int64{1, 2, 3, 3, 3}, 2, 10 * time.Second, Stable},
		{"run one short before ceiling", []int64{1, 1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12}, 2, 10 * time.Second, TimedOut},
		{"threshold one", []int64{5, 5}, 1, 10 * time.Second, Stable},
		{"stabilizes on ceiling poll", []int64{1, 2, 3, 4, 5, 6, 7, 8, 8}, 1, 8 * time.Second, Stable},
		{"stabilizes just after ceiling", []int64{1, 2, 3, 4, 5, 6, 7, 8, 9, 9}, 1, 8 * time.Second, TimedOut},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			seq := &sequenceStat{sizes: tt.sizes}
			report := newMonitor(seq.stat, tt.threshold, tt.maxWait).Wait(context.Background(), "x")
			if report.State != tt.want {
				t.Fatalf("state = %v, want %v (candidate %+v)", report.State, tt.want, report.Candidate)
			}
		})
	}
}

func TestWaitTimesOutOnContinuousGrowth(t *testing.T) {
	clock := testsupport.NewFakeClock()
	start := clock.Now()
	// Grows every second for 650 seconds, then holds.
	stat := func(string) (os.FileInfo, error) {
		elapsed := clock.Now().Sub(start)
		if elapsed > 650*time.Second {
			elapsed = 650 * time.Second
		}
		return fakeInfo{size: int64(elapsed / time.Second)}, nil
	}
	m := New(Options{Interval: time.Second, Threshold: 4, MaxWait: 600 * time.Second, Clock: clock, Stat: stat})

	report := m.Wait(context.Background(), "/in/big.iso")
	if report.State != TimedOut {
		t.Fatalf("state = %v, want timed out", report.State)
	}
	if report.Candidate.StablePolls != 0 {
		t.Fatalf("never-stable file reported %d stable polls", report.Candidate.StablePolls)
	}
	if report.Candidate.Elapsed != 600*time.Second || report.Candidate.Polls != 601 {
		t.Fatalf("unexpected candidate %+v", report.Candidate)
	}
}

func TestWaitVanishedBeforeFirstPoll(t *testing.T) {
	m := New(Options{Clock: testsupport.NewFakeClock()})
	report := m.Wait(context.Background(), filepath.Join(t.TempDir(), "gone.txt"))
	if report.State != Vanished {
		t.Fatalf("state = %v", report.State)
	}
	if !errors.Is(report.Err, fs.ErrNotExist) {
		t.Fatalf("expected not-exist cause, got %v", report.Err)
	}
	if report.Candidate.Polls != 1 {
		t.Fatalf("expected a single poll, got %d", report.Candidate.Polls)
	}
}

func TestWaitVanishedMidPoll(t *testing.T) {
	seq := &sequenceStat{sizes: []int64{10, 10, -1}}
	report := newMonitor(seq.stat, 4, 600*time.Second).Wait(context.Background(), "x")
	if report.State != Vanished || report.Candidate.Polls != 3 {
		t.Fatalf("unexpected report %+v", report)
	}
}

func TestWaitDirectoryIsVanished(t *testing.T) {
	m := New(Options{Clock: testsupport.NewFakeClock()})
	if report := m.Wait(context.Background(), t.TempDir()); report.State != Vanished {
		t.Fatalf("directory should not qualify, got %v", report.State)
	}
}

func TestWaitCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	seq := &sequenceStat{sizes: []int64{1}}
	report := newMonitor(seq.stat, 4, 600*time.Second).Wait(ctx, "x")
	if report.State != Cancelled {
		t.Fatalf("state = %v", report.State)
	}
	if report.Candidate.Polls != 1 {
		t.Fatalf("cancelled wait should stop after the first poll, got %d", report.Candidate.Polls)
	}
}

func TestWaitRealFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "real.bin")
	testsupport.WriteFile(t, path, 128)
	m := New(Options{Interval: time.Millisecond, Threshold: 2, MaxWait: 5 * time.Second})
	report := m.Wait(context.Background(), path)
	if report.State != Stable || report.Candidate.LastSize != 128 {
		t.Fatalf("unexpected report %+v", report)
	}
}

func TestStateString(t *testing.T) {
	for state, want := range map[State]string{Stable: "stable", Vanished: "vanished", TimedOut: "timed_out", Cancelled: "cancelled"} {
		if state.String() != want {
			t.Fatalf("%d.String() = %q", state, state.String())
		}
	}
}
