package steps

import (
	"fmt"

	"github.com/MartinJHallberg/study-and-work-counselor/internal/state"
	"github.com/MartinJHallberg/study-and-work-counselor/internal/workflow"
)

// ProgressEvent represents a progress update during a graph run
type ProgressEvent struct {
	Graph    string             `json:"graph"`
	Step     string             `json:"step"`
	Category state.Stage        `json:"category"`
	Kind     workflow.EventKind `json:"kind"`
	Message  string             `json:"message"`
	Fields   []string           `json:"fields,omitempty"`
	Err      error              `json:"-"`
}

// ProgressCallback is called when graph progress occurs
type ProgressCallback func(event ProgressEvent)

// Observer adapts a progress callback into a workflow observer. A nil
// callback yields a nil observer.
func Observer(cb ProgressCallback) func(workflow.Event) {
	if cb == nil {
		return nil
	}
	return func(ev workflow.Event) {
		cb(NewProgressEvent(ev))
	}
}

// NewProgressEvent describes a workflow event with the step's catalog entry.
func NewProgressEvent(ev workflow.Event) ProgressEvent {
	label := Label(ev.Step)
	var message string
	switch ev.Kind {
	case workflow.EventStepStarted:
		message = fmt.Sprintf("Working to %s...", label)
	case workflow.EventStepCompleted:
		message = fmt.Sprintf("Finished: %s", label)
	case workflow.EventStepFailed:
		message = fmt.Sprintf("Could not %s: %v", label, ev.Err)
	default:
		message = label
	}
	return ProgressEvent{
		Graph:    ev.Graph,
		Step:     ev.Step,
		Category: StepRegistry[ev.Step].Category,
		Kind:     ev.Kind,
		Message:  message,
		Fields:   ev.Fields,
		Err:      ev.Err,
	}
}
