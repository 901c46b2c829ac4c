package worker

import (
	"sync"
	"sync/atomic"

	"github.com/kermitt2/grobid-client-go/internal/types"
)

type Phase int32

const (
	PhaseIdle Phase = iota
	PhaseRunning
	PhaseDraining
	PhaseDone
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseRunning:
		return "running"
	case PhaseDraining:
		return "draining"
	case PhaseDone:
		return "done"
	default:
		return "unknown"
	}
}

func (p Phase) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// RunState holds the counters of one run. Only the Scheduler mutates it.
type RunState struct {
	phase     atomic.Int32
	submitted atomic.Int64
	attempted atomic.Int64
	completed atomic.Int64
	failed    atomic.Int64
	pending   atomic.Int64
	inFlight  atomic.Int64
	retries   atomic.Int64

	mu      sync.Mutex
	results []types.ItemResult
}

// Snapshot is a point in time copy of a RunState.
type Snapshot struct {
	Phase     Phase `json:"phase"`
	Submitted int64 `json:"submitted"`
	Completed int64 `json:"completed"`
	Failed    int64 `json:"failed"`
	Pending   int64 `json:"pending"`
	InFlight  int64 `json:"in_flight"`
	Retries   int64 `json:"retries"`
}

func (s *RunState) start(submitted int) bool {
	if !s.phase.CompareAndSwap(int32(PhaseIdle), int32(PhaseRunning)) {
		return false
	}
	s.submitted.Store(int64(submitted))
	s.pending.Store(int64(submitted))
	s.results = make([]types.ItemResult, 0, submitted)
	return true
}

// markAttempted records a first attempt and reports whether every item has
// now been attempted at least once.
func (s *RunState) markAttempted() bool {
	if s.attempted.Add(1) == s.submitted.Load() {
		return s.phase.CompareAndSwap(int32(PhaseRunning), int32(PhaseDraining))
	}
	return false
}

// record stores a terminal result and reports whether it was the last one.
func (s *RunState) record(result types.ItemResult) bool {
	s.mu.Lock()
	s.results = append(s.results, result)
	s.mu.Unlock()

	if result.Status == types.StatusSucceeded {
		s.completed.Add(1)
	} else {
		s.failed.Add(1)
	}

	if s.pending.Add(-1) == 0 {
		s.phase.Store(int32(PhaseDone))
		return true
	}
	return false
}

func (s *RunState) Snapshot() Snapshot {
	return Snapshot{
		Phase:     Phase(s.phase.Load()),
		Submitted: s.submitted.Load(),
		Completed: s.completed.Load(),
		Failed:    s.failed.Load(),
		Pending:   s.pending.Load(),
		InFlight:  s.inFlight.Load(),
		Retries:   s.retries.Load(),
	}
}

func (s *RunState) Results() []types.ItemResult {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]types.ItemResult, len(s.results))
	copy(out, s.results)
	return out
}
