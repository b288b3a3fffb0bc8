package pipeline

import (
	"time"

	"github.com/joseph-ayodele/ddr-generator/constants"
)

// EventKind names what happened in a run.
type EventKind string

const (
	EventStageStarted   EventKind = "stage_started"
	EventStageCompleted EventKind = "stage_completed"
	EventStageFailed    EventKind = "stage_failed"
	EventChunkProgress  EventKind = "chunk_progress"
	EventCancelled      EventKind = "cancelled"
	EventDone           EventKind = "done"
)

// Event is one progress notification. Stage is set on every kind; the other
// fields only where they apply.
type Event struct {
	RunID      string
	Kind       EventKind
	Stage      constants.Stage
	Err        error
	OutputPath string
	Source     constants.SourceKind
	Done       int
	Total      int
	At         time.Time
}

// Terminal reports whether no event follows this one.
func (e Event) Terminal() bool {
	switch e.Kind {
	case EventDone, EventCancelled, EventStageFailed:
		return true
	default:
		return false
	}
}
