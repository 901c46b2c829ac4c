package worker

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/kermitt2/grobid-client-go/internal/config"
	"github.com/kermitt2/grobid-client-go/internal/retry"
	"github.com/kermitt2/grobid-client-go/internal/storage"
	"github.com/kermitt2/grobid-client-go/internal/types"
)

var (
	ErrCancelled      = errors.New("run cancelled")
	ErrAlreadyStarted = errors.New("scheduler already started")
	ErrProcessorPanic = errors.New("processor panicked")
)

// Processor performs one service call for an item.
type Processor interface {
	Process(ctx context.Context, item *types.WorkItem) types.Outcome
}

// Notifier receives every terminal item result.
type Notifier interface {
	PublishResult(ctx context.Context, result *types.ItemResult) error
}

type Options struct {
	Concurrency      int
	Policy           *retry.Policy
	Notifier         Notifier
	ProgressInterval time.Duration
}

// Scheduler runs a fixed set of work items through the processor with at most
// Concurrency calls in flight. Retried items wait outside the workers and
// re-enter the queue once their delay elapses.
type Scheduler struct {
	runID            string
	processor        Processor
	writer           storage.ResultWriter
	policy           *retry.Policy
	notifier         Notifier
	concurrency      int
	progressInterval time.Duration

	state *RunState
	done  chan struct{}
}

type Report struct {
	RunID     string
	Submitted int64
	Succeeded int64
	Failed    int64
	Results   []types.ItemResult
	StartedAt time.Time
	EndedAt   time.Time
}

// AllFailed reports whether items were submitted and none succeeded.
func (r *Report) AllFailed() bool {
	return r.Submitted > 0 && r.Failed == r.Submitted
}

func (r *Report) Summary(action string) *types.RunSummary {
	return &types.RunSummary{
		RunID:     r.RunID,
		Action:    action,
		Submitted: r.Submitted,
		Succeeded: r.Succeeded,
		Failed:    r.Failed,
		StartedAt: r.StartedAt,
		EndedAt:   r.EndedAt,
	}
}

func NewScheduler(processor Processor, writer storage.ResultWriter, opts *Options) (*Scheduler, error) {
	if opts.Concurrency <= 0 {
		return nil, &config.ConfigError{
			Field:  "concurrency",
			Reason: fmt.Sprintf("must be positive, got %d", opts.Concurrency),
		}
	}

	policy := opts.Policy
	if policy == nil {
		policy = retry.DefaultPolicy()
	}

	return &Scheduler{
		runID:            uuid.NewString(),
		processor:        processor,
		writer:           writer,
		policy:           policy,
		notifier:         opts.Notifier,
		concurrency:      opts.Concurrency,
		progressInterval: opts.ProgressInterval,
		state:            &RunState{},
		done:             make(chan struct{}),
	}, nil
}

func (s *Scheduler) RunID() string {
	return s.runID
}

// Done is closed once every item has reached a terminal state.
func (s *Scheduler) Done() <-chan struct{} {
	return s.done
}

func (s *Scheduler) Snapshot() Snapshot {
	return s.state.Snapshot()
}

// Results returns the terminal results recorded so far.
func (s *Scheduler) Results() []types.ItemResult {
	return s.state.Results()
}

// Run processes items until each one has succeeded or failed. When ctx is
// cancelled no further attempts start, and every unfinished item fails with
// ErrCancelled; Run then returns the report together with ctx.Err(). A panic
// in the processor fails its item, stops the run the same way and is
// returned as ErrProcessorPanic.
func (s *Scheduler) Run(ctx context.Context, items []*types.WorkItem) (*Report, error) {
	if !s.state.start(len(items)) {
		return nil, ErrAlreadyStarted
	}
	startedAt := time.Now()

	log.Printf("🚀 Run %s: %d documents, %d concurrent calls", s.runID, len(items), s.concurrency)

	if len(items) == 0 {
		s.state.phase.Store(int32(PhaseDone))
		close(s.done)
		return s.report(startedAt), nil
	}

	// Each item sits in at most one place at a time (queue, in flight or
	// waiting for a retry) so sends on a queue of len(items) never block.
	queue := make(chan *types.WorkItem, len(items))
	for _, item := range items {
		queue <- item
	}

	statsCtx, stopStats := context.WithCancel(ctx)
	defer stopStats()
	if s.progressInterval > 0 {
		go s.statsReporter(statsCtx)
	}

	g, workCtx := errgroup.WithContext(ctx)
	for i := 0; i < s.concurrency; i++ {
		workerID := i
		g.Go(func() error {
			return s.worker(workCtx, workerID, queue)
		})
	}

	if err := g.Wait(); err != nil {
		log.Printf("❌ Run %s stopped: %v, abandoning %d pending documents", s.runID, err, s.state.pending.Load())
		s.abandonQueued(queue)
		return s.report(startedAt), err
	}

	// a cancellation that arrives after the last result does not undo the run
	if err := ctx.Err(); err != nil && s.state.pending.Load() > 0 {
		log.Printf("⏹️  Run %s cancelled, abandoning %d pending documents", s.runID, s.state.pending.Load())
		s.abandonQueued(queue)
		return s.report(startedAt), err
	}

	log.Println("🏁 all tasks completed!")
	return s.report(startedAt), nil
}

// worker returns an error only when the processor panicked; the group then
// cancels the other workers.
func (s *Scheduler) worker(ctx context.Context, workerID int, queue chan *types.WorkItem) error {
	log.Printf("👷 Worker %d started", workerID)
	defer log.Printf("👷 Worker %d stopped", workerID)

	for {
		select {
		case <-s.done:
			return nil
		case <-ctx.Done():
			return nil
		case item := <-queue:
			if err := s.process(ctx, workerID, item, queue); err != nil {
				return err
			}
		}
	}
}

func (s *Scheduler) process(ctx context.Context, workerID int, item *types.WorkItem, queue chan<- *types.WorkItem) error {
	if ctx.Err() != nil {
		s.fail(ctx, item, ErrCancelled)
		return nil
	}

	if item.Attempts == 0 && s.state.markAttempted() {
		log.Printf("📦 Run %s: every document submitted, draining", s.runID)
	}

	log.Printf("📄 Worker %d: Processing %s (attempt %d)", workerID, item.SourcePath, item.Attempts+1)

	outcome, err := s.call(ctx, item)
	if err != nil {
		s.fail(ctx, item, err)
		return err
	}

	if ctx.Err() != nil && outcome.Kind != types.OutcomeSuccess {
		s.fail(ctx, item, fmt.Errorf("%w: %v", ErrCancelled, outcome.Err))
		return nil
	}

	decision := s.policy.Decide(item, outcome)
	switch decision.Action {
	case retry.ActionComplete:
		// a finished response is kept even if the run is being cancelled
		location, err := s.writer.Write(context.WithoutCancel(ctx), item.SourcePath, outcome.Body)
		if err != nil {
			s.fail(ctx, item, err)
			return nil
		}
		s.succeed(ctx, workerID, item, location)

	case retry.ActionRetry:
		s.state.retries.Add(1)
		log.Printf("🔄 Worker %d: %s not processed (%v), retrying in %s (attempt %d)",
			workerID, item.Name, decision.Err, decision.Delay, item.Attempts)
		go s.requeueAfter(ctx, item, decision.Delay, queue)

	default:
		s.fail(ctx, item, decision.Err)
	}
	return nil
}

// call runs the processor, turning a panic into an error.
func (s *Scheduler) call(ctx context.Context, item *types.WorkItem) (outcome types.Outcome, err error) {
	s.state.inFlight.Add(1)
	defer s.state.inFlight.Add(-1)

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w on %s: %v", ErrProcessorPanic, item.Name, r)
		}
	}()

	return s.processor.Process(ctx, item), nil
}

// requeueAfter puts item back on the queue once delay has elapsed, without
// holding a worker while waiting.
func (s *Scheduler) requeueAfter(ctx context.Context, item *types.WorkItem, delay time.Duration, queue chan<- *types.WorkItem) {
	timer := time.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		s.fail(ctx, item, ErrCancelled)
	case <-timer.C:
		queue <- item
	}
}

// abandonQueued fails whatever is still queued after the workers stopped,
// including items whose retry timer fires during shutdown.
func (s *Scheduler) abandonQueued(queue <-chan *types.WorkItem) {
	for {
		select {
		case <-s.done:
			return
		case item := <-queue:
			s.fail(context.Background(), item, ErrCancelled)
		}
	}
}

func (s *Scheduler) succeed(ctx context.Context, workerID int, item *types.WorkItem, location string) {
	log.Printf("✅ Worker %d: TEI response written under: %s", workerID, location)
	s.finish(ctx, &types.ItemResult{
		RunID:    s.runID,
		ItemID:   item.ItemID,
		Name:     item.Name,
		Status:   types.StatusSucceeded,
		Location: location,
		Attempts: item.Attempts,
		Duration: time.Since(item.EnqueuedAt),
	})
}

func (s *Scheduler) fail(ctx context.Context, item *types.WorkItem, err error) {
	if err == nil {
		err = errors.New("unknown failure")
	}
	log.Printf("💀 %s abandoned after %d attempts: %v", item.SourcePath, item.Attempts, err)
	s.finish(ctx, &types.ItemResult{
		RunID:    s.runID,
		ItemID:   item.ItemID,
		Name:     item.Name,
		Status:   types.StatusFailed,
		Error:    err.Error(),
		Attempts: item.Attempts,
		Duration: time.Since(item.EnqueuedAt),
	})
}

func (s *Scheduler) finish(ctx context.Context, result *types.ItemResult) {
	if s.notifier != nil {
		if err := s.notifier.PublishResult(context.WithoutCancel(ctx), result); err != nil {
			log.Printf("⚠️  Failed to publish result for %s: %v", result.Name, err)
		}
	}

	if s.state.record(*result) {
		close(s.done)
	}
}

func (s *Scheduler) report(startedAt time.Time) *Report {
	snap := s.state.Snapshot()
	report := &Report{
		RunID:     s.runID,
		Submitted: snap.Submitted,
		Succeeded: snap.Completed,
		Failed:    snap.Failed,
		Results:   s.state.Results(),
		StartedAt: startedAt,
		EndedAt:   time.Now(),
	}

	log.Printf("📊 Run %s: submitted=%d succeeded=%d failed=%d in %v",
		report.RunID, report.Submitted, report.Succeeded, report.Failed, report.EndedAt.Sub(startedAt))
	return report
}

func (s *Scheduler) statsReporter(ctx context.Context) {
	ticker := time.NewTicker(s.progressInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-s.done:
			return
		case <-ticker.C:
			snap := s.state.Snapshot()

			log.Println("📊 ==================== Stats ====================")
			log.Printf("   🔁 Phase: %s", snap.Phase)
			log.Printf("   📤 In flight: %d (pending: %d)", snap.InFlight, snap.Pending)
			log.Printf("   ✅ Completed: %d / %d", snap.Completed, snap.Submitted)
			log.Printf("   ❌ Failed: %d", snap.Failed)
			log.Printf("   🔄 Retries: %d", snap.Retries)
			log.Println("📊 ===============================================")
		}
	}
}
