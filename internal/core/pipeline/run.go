package pipeline

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/joseph-ayodele/ddr-generator/constants"
	"github.com/joseph-ayodele/ddr-generator/internal/entity"
)

const eventBuffer = 256

var errRunAborted = errors.New("run ended before output was committed")

// stageReserve keeps room for every stage and terminal event so progress never crowds them out.
var stageReserve = 2*len(constants.WorkStages) + 4

// Result is what a finished run produced.
type Result struct {
	OutputPath string
	XLSXPath   string
	Report     *entity.DdrReport
	Merged     entity.MergedFindingSet
}

// Snapshot is a point-in-time view of a run.
type Snapshot struct {
	RunID      string
	Stage      constants.Stage
	Err        error
	OutputPath string
	StartedAt  time.Time
	Deadline   time.Time
	FinishedAt time.Time
	// Elapsed holds the duration of every completed stage.
	Elapsed map[constants.Stage]time.Duration
}

// PipelineRun is the state of one report generation. All of its data lives
// here; the orchestrator keeps no per-run globals.
type PipelineRun struct {
	ID             string
	InspectionPath string
	ThermalPath    string
	OutputPath     string

	startedAt time.Time
	deadline  time.Time
	cancel    context.CancelFunc
	cancelled atomic.Bool

	mu         sync.Mutex
	stage      constants.Stage
	err        error
	finishedAt time.Time
	elapsed    map[constants.Stage]time.Duration
	result     Result

	docs     []*entity.SourceDocument
	findings []entity.DocumentFindings

	commitMu  sync.Mutex
	committed bool
	aborted   bool

	evMu     sync.Mutex
	events   chan Event
	closed   bool
	done     chan struct{}
	finished atomic.Bool
}

func newRun(id, inspection, thermal, outPath string, now, deadline time.Time) *PipelineRun {
	return &PipelineRun{
		ID:             id,
		InspectionPath: inspection,
		ThermalPath:    thermal,
		OutputPath:     outPath,
		startedAt:      now,
		deadline:       deadline,
		stage:          constants.StageIdle,
		elapsed:        make(map[constants.Stage]time.Duration, len(constants.WorkStages)),
		events:         make(chan Event, eventBuffer),
		done:           make(chan struct{}),
	}
}

// Events streams progress. The channel is closed after the terminal event.
func (r *PipelineRun) Events() <-chan Event {
	return r.events
}

// Done is closed once the run reached a terminal stage.
func (r *PipelineRun) Done() <-chan struct{} {
	return r.done
}

// Cancel asks the run to stop. In-flight stage results are discarded.
func (r *PipelineRun) Cancel() {
	r.cancelled.Store(true)
	if r.cancel != nil {
		r.cancel()
	}
}

// Cancelled reports whether Cancel was called.
func (r *PipelineRun) Cancelled() bool {
	return r.cancelled.Load()
}

// Wait blocks until the run is terminal or ctx ends.
func (r *PipelineRun) Wait(ctx context.Context) (Result, error) {
	select {
	case <-r.done:
	case <-ctx.Done():
		return Result{}, ctx.Err()
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.result, r.err
}

func (r *PipelineRun) Snapshot() Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	elapsed := make(map[constants.Stage]time.Duration, len(r.elapsed))
	for k, v := range r.elapsed {
		elapsed[k] = v
	}
	return Snapshot{
		RunID:      r.ID,
		Stage:      r.stage,
		Err:        r.err,
		OutputPath: r.result.OutputPath,
		StartedAt:  r.startedAt,
		Deadline:   r.deadline,
		FinishedAt: r.finishedAt,
		Elapsed:    elapsed,
	}
}

func (r *PipelineRun) setStage(s constants.Stage) {
	r.mu.Lock()
	r.stage = s
	r.mu.Unlock()
}

func (r *PipelineRun) recordElapsed(s constants.Stage, d time.Duration) {
	r.mu.Lock()
	r.elapsed[s] = d
	r.mu.Unlock()
}

// commit publishes the run's output through fn unless the run was aborted first.
func (r *PipelineRun) commit(fn func() error) error {
	r.commitMu.Lock()
	defer r.commitMu.Unlock()
	if r.aborted {
		return errRunAborted
	}
	if err := fn(); err != nil {
		return err
	}
	r.committed = true
	return nil
}

// abort blocks any later commit. It reports false when output was already
// committed, in which case the run has succeeded.
func (r *PipelineRun) abort() bool {
	r.commitMu.Lock()
	defer r.commitMu.Unlock()
	if r.committed {
		return false
	}
	r.aborted = true
	return true
}

// finish records the terminal state, emits the last event and closes the stream.
func (r *PipelineRun) finish(stage constants.Stage, err error, ev Event, now time.Time) {
	if !r.finished.CompareAndSwap(false, true) {
		return
	}
	r.mu.Lock()
	r.stage = stage
	r.err = err
	r.finishedAt = now
	r.mu.Unlock()

	r.emit(ev, false)

	r.evMu.Lock()
	r.closed = true
	close(r.events)
	r.evMu.Unlock()
	close(r.done)
}

// emit never blocks. Best-effort events are dropped once only the reserve is left.
func (r *PipelineRun) emit(ev Event, bestEffort bool) bool {
	r.evMu.Lock()
	defer r.evMu.Unlock()
	if r.closed {
		return false
	}
	if bestEffort && len(r.events) >= cap(r.events)-stageReserve {
		return false
	}
	ev.RunID = r.ID
	if ev.At.IsZero() {
		ev.At = time.Now()
	}
	select {
	case r.events <- ev:
		return true
	default:
		return false
	}
}
