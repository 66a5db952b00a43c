package stability

import (
	"context"
	"fmt"
	"os"
	"time"
)

// State is the terminal outcome of a stabilization wait.
type State int

const (
	Stable State = iota
	Vanished
	TimedOut
	Cancelled
)

func (s State) String() string {
	switch s {
	case Stable:
		return "stable"
	case Vanished:
		return "vanished"
	case TimedOut:
		return "timed_out"
	case Cancelled:
		return "cancelled"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

const (
	DefaultInterval  = time.Second
	DefaultThreshold = 4
	DefaultMaxWait   = 600 * time.Second
)

// StatFunc reads file metadata. os.Stat by default.
type StatFunc func(path string) (os.FileInfo, error)

// Options configures a Monitor. Zero values take the package defaults.
type Options struct {
	Interval  time.Duration
	Threshold int
	MaxWait   time.Duration
	Clock     Clock
	Stat      StatFunc
}

func (o *Options) setDefaults() {
	if o.Interval <= 0 {
		o.Interval = DefaultInterval
	}
	if o.Threshold <= 0 {
		o.Threshold = DefaultThreshold
	}
	if o.MaxWait <= 0 {
		o.MaxWait = DefaultMaxWait
	}
	if o.Clock == nil {
		o.Clock = RealClock{}
	}
	if o.Stat == nil {
		o.Stat = os.Stat
	}
}

// Candidate is the per-file polling state. Each Wait call owns its own
// Candidate, so concurrent waits share nothing.
type Candidate struct {
	Path        string
	LastSize    int64
	StablePolls int
	Polls       int
	Elapsed     time.Duration
}

// Report is the result of Wait.
type Report struct {
	State     State
	Candidate Candidate
	// Err is the stat error that ended polling, if any. It is informational:
	// a Vanished candidate is never an error for the caller.
	Err error
}

// Monitor polls candidate files until they are stable. It is safe for
// concurrent use.
type Monitor struct {
	opts Options
}

// New constructs a Monitor.
func New(opts Options) *Monitor {
	opts.setDefaults()
	return &Monitor{opts: opts}
}

// Wait blocks until path reaches a terminal state. The first poll happens
// immediately and establishes the reference size; each later poll runs one
// interval after the previous.
func (m *Monitor) Wait(ctx context.Context, path string) Report {
	cand := Candidate{Path: path}
	start := m.opts.Clock.Now()

	size, err := m.poll(path)
	cand.Polls = 1
	if err != nil {
		return Report{State: Vanished, Candidate: cand, Err: err}
	}
	cand.LastSize = size

	for {
		cand.Elapsed = m.opts.Clock.Now().Sub(start)
		if cand.Elapsed >= m.opts.MaxWait {
			return Report{State: TimedOut, Candidate: cand}
		}

		if ctx.Err() != nil {
			return Report{State: Cancelled, Candidate: cand, Err: ctx.Err()}
		}
		select {
		case <-ctx.Done():
			return Report{State: Cancelled, Candidate: cand, Err: ctx.Err()}
		case <-m.opts.Clock.After(m.opts.Interval):
		}

		size, err := m.poll(path)
		cand.Polls++
		cand.Elapsed = m.opts.Clock.Now().Sub(start)
		if err != nil {
			return Report{State: Vanished, Candidate: cand, Err: err}
		}
		if size == cand.LastSize {
			cand.StablePolls++
			if cand.StablePolls >= m.opts.Threshold {
				return Report{State: Stable, Candidate: cand}
			}
		} else {
			cand.StablePolls = 0
			cand.LastSize = size
		}
	}
}

func (m *Monitor) poll(path string) (int64, error) {
	info, err := m.opts.Stat(path)
	if err != nil {
		return 0, err
	}
	if !info.Mode().IsRegular() {
		return 0, fmt.Errorf("%s: not a regular file", path)
	}
	return info.Size(), nil
}
