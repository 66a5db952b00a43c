package watcher

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"downsort/internal/history"
	"downsort/internal/logging"
	"downsort/internal/mover"
	"downsort/internal/stability"
)

const defaultQueueSize = 1024

// Stabilizer waits for a candidate to stop changing.
type Stabilizer interface {
	Wait(ctx context.Context, path string) stability.Report
}

// Relocator moves a stabilized candidate.
type Relocator interface {
	Move(ctx context.Context, path string) mover.Result
}

// Recorder journals candidate outcomes.
type Recorder interface {
	Record(ctx context.Context, entry history.Entry) error
}

// Options configures a Controller.
type Options struct {
	Filter   *Filter
	Monitor  Stabilizer
	Mover    Relocator
	Recorder Recorder
	Logger   *slog.Logger
	// Concurrency is the number of candidates handled at once; 1 keeps
	// arrival order.
	Concurrency int
	QueueSize   int
}

// Stats counts candidate outcomes for the session summary.
type Stats struct {
	Moved    int64
	Skipped  int64
	Failed   int64
	Ignored  int64
	TimedOut int64
}

// Total is the number of events that reached a terminal outcome.
func (s Stats) Total() int64 {
	return s.Moved + s.Skipped + s.Failed + s.Ignored + s.TimedOut
}

// Controller implements Consumer and drives filter, stabilization and move
// for each event.
type Controller struct {
	filter      *Filter
	monitor     Stabilizer
	mover       Relocator
	recorder    Recorder
	logger      *slog.Logger
	concurrency int

	queue   chan Event
	stopped chan struct{}
	stop    sync.Once

	mu       sync.Mutex
	queued   map[string]struct{}

	moved, skipped, failed, ignored, timedOut atomic.Int64
}

// NewController validates options and builds a Controller. Call Run to start
// processing; events delivered before Run are buffered.
func NewController(opts Options) (*Controller, error) {
	if opts.Filter == nil || opts.Monitor == nil || opts.Mover == nil {
		return nil, errors.New("watcher: filter, monitor and mover are required")
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = 1
	}
	if opts.QueueSize <= 0 {
		opts.QueueSize = defaultQueueSize
	}
	return &Controller{
		filter:      opts.Filter,
		monitor:     opts.Monitor,
		mover:       opts.Mover,
		recorder:    opts.Recorder,
		logger:      logging.NewComponentLogger(opts.Logger, "controller"),
		concurrency: opts.Concurrency,
		queue:       make(chan Event, opts.QueueSize),
		stopped:     make(chan struct{}),
		queued:      make(map[string]struct{}),
	}, nil
}

// OnCreated queues a newly created path.
func (c *Controller) OnCreated(path string) {
	c.enqueue(Event{Kind: EventCreated, Path: path, Received: time.Now()})
}

// OnRenamed queues the new name of an in-place rename.
func (c *Controller) OnRenamed(oldPath, newPath string) {
	c.enqueue(Event{Kind: EventRenamed, Path: newPath, OldPath: oldPath, Received: time.Now()})
}

func (c *Controller) enqueue(ev Event) {
	c.mu.Lock()
	if _, queued := c.queued[ev.Path]; queued {
		c.mu.Unlock()
		c.logger.Debug("event ignored",
			logging.String(logging.FieldPath, ev.Path),
			logging.String(logging.FieldReason, "already_queued"),
			logging.String(logging.FieldEventType, ev.Kind.String()),
		)
		return
	}
	c.queued[ev.Path] = struct{}{}
	c.mu.Unlock()

	select {
	case c.queue <- ev:
	case <-c.stopped:
		c.release(ev.Path)
	}
}

func (c *Controller) release(path string) {
	c.mu.Lock()
	delete(c.queued, path)
	c.mu.Unlock()
}

// Run processes queued events until ctx is cancelled. In-flight
// stabilizations are abandoned without moving.
func (c *Controller) Run(ctx context.Context) error {
	defer c.stop.Do(func() { close(c.stopped) })

	if c.concurrency == 1 {
		for {
			select {
			case <-ctx.Done():
				c.logDropped()
				return nil
			case ev := <-c.queue:
				c.handle(ctx, ev)
			}
		}
	}

	var g errgroup.Group
	g.SetLimit(c.concurrency)
	for {
		select {
		case <-ctx.Done():
			_ = g.Wait()
			c.logDropped()
			return nil
		case ev := <-c.queue:
			g.Go(func() error {
				c.handle(ctx, ev)
				return nil
			})
		}
	}
}

func (c *Controller) logDropped() {
	if n := len(c.queue); n > 0 {
		c.logger.Debug("discarding queued events on shutdown", logging.Int("count", n))
	}
}

// Stats returns a snapshot of the outcome counters.
func (c *Controller) Stats() Stats {
	return Stats{
		Moved:    c.moved.Load(),
		Skipped:  c.skipped.Load(),
		Failed:   c.failed.Load(),
		Ignored:  c.ignored.Load(),
		TimedOut: c.timedOut.Load(),
	}
}

func (c *Controller) handle(ctx context.Context, ev Event) {
	// Only queued events are deduplicated. A file that reappears at this path
	// while the candidate is being moved must get its own event.
	c.release(ev.Path)

	candidateID := uuid.NewString()
	logger := c.logger.With(
		logging.String(logging.FieldCandidateID, candidateID),
		logging.String(logging.FieldPath, ev.Path),
	)

	if reason := c.filter.Check(ctx, ev.Path); reason != "" {
		c.ignored.Add(1)
		logger.Debug("event ignored",
			logging.String(logging.FieldReason, reason),
			logging.String(logging.FieldEventType, ev.Kind.String()),
		)
		return
	}
	logger.Debug("candidate accepted", logging.String(logging.FieldEventType, ev.Kind.String()))

	report := c.monitor.Wait(ctx, ev.Path)
	entry := history.Entry{
		CandidateID: candidateID,
		Source:      ev.Path,
		Size:        report.Candidate.LastSize,
		Wait:        report.Candidate.Elapsed,
	}

	switch report.State {
	case stability.Cancelled:
		logger.Debug("stabilization abandoned", logging.String(logging.FieldReason, "shutdown"))
		return
	case stability.Vanished:
		c.skipped.Add(1)
		logger.Info("skipping file",
			logging.String(logging.FieldEventType, "file_skipped"),
			logging.String(logging.FieldReason, "vanished"),
		)
		entry.Status = history.StatusSkipped
		entry.Reason = "vanished during stabilization"
		c.record(logger, entry)
		return
	case stability.TimedOut:
		c.timedOut.Add(1)
		logging.WarnWithContext(logger, "skipping file, not stable within timeout", "stability_timeout",
			logging.String(logging.FieldReason, "timeout"),
			logging.Duration("waited", report.Candidate.Elapsed),
			logging.Int64("size_bytes", report.Candidate.LastSize),
			logging.String(logging.FieldErrorHint, "move the file manually or raise stability.max_wait_seconds"),
		)
		entry.Status = history.StatusTimedOut
		entry.Reason = "not stable within timeout"
		c.record(logger, entry)
		return
	}

	if ctx.Err() != nil {
		logger.Debug("move abandoned", logging.String(logging.FieldReason, "shutdown"))
		return
	}

	res := c.mover.Move(ctx, ev.Path)
	entry.Category = res.Category
	entry.Destination = res.Destination
	if res.Size > 0 {
		entry.Size = res.Size
	}

	switch res.Status {
	case mover.StatusMoved:
		c.moved.Add(1)
		logger.Info("file moved",
			logging.String(logging.FieldEventType, "file_moved"),
			logging.String(logging.FieldCategory, res.Category),
			logging.String(logging.FieldDestination, res.Destination),
			logging.Int64("size_bytes", res.Size),
			logging.Bool("cross_device", res.CrossDevice),
		)
		entry.Status = history.StatusMoved
	case mover.StatusSourceMissing:
		c.skipped.Add(1)
		logger.Info("skipping file",
			logging.String(logging.FieldEventType, "file_skipped"),
			logging.String(logging.FieldReason, "source_missing"),
		)
		entry.Status = history.StatusSkipped
		entry.Reason = "source missing at move time"
		entry.Destination = ""
	default:
		c.failed.Add(1)
		logging.ErrorWithContext(logger, "move failed", "move_failed",
			logging.String(logging.FieldReason, res.Kind.String()),
			logging.String(logging.FieldCategory, res.Category),
			logging.String(logging.FieldDestination, res.Destination),
			logging.Error(res.Err),
			logging.String(logging.FieldErrorHint, moveHint(res.Kind)),
		)
		entry.Status = history.StatusFailed
		entry.Reason = res.Kind.String()
		if res.Err != nil {
			entry.Error = res.Err.Error()
		}
	}
	c.record(logger, entry)
}

func (c *Controller) record(logger *slog.Logger, entry history.Entry) {
	if c.recorder == nil {
		return
	}
	// Journal writes outlive shutdown so the final outcome is kept.
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := c.recorder.Record(ctx, entry); err != nil {
		logging.WarnWithContext(logger, "history write failed", "history_write_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "run downsort check to verify the state directory"),
			logging.String(logging.FieldImpact, "outcome missing from downsort history"),
		)
	}
}

func moveHint(kind mover.FailureKind) string {
	switch kind {
	case mover.FailurePermission:
		return "check permissions on the destination directory"
	case mover.FailureUnwritable:
		return "check that the destination is writable and has free space"
	case mover.FailureCollision:
		return "another process keeps creating files with the same name"
	default:
		return "check logs for details"
	}
}
