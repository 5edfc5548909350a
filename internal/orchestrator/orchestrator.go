// Package orchestrator runs the generation pipeline: it snapshots the
// resolved configuration, expands module templates once, runs every enabled
// transformation unit in order and collects their outputs into an archive.
package orchestrator

import (
	"context"
	"errors"

	"github.com/dusk-indust/govgen/internal/archive"
	"github.com/dusk-indust/govgen/internal/unit"
)

// State is the pipeline's position in a run.
type State int

const (
	StateIdle State = iota
	StateResolving
	StateExpanding
	StateRunning
	StateAggregating
	StateComplete
)

func (s State) String() string {
	names := [...]string{
		"idle",
		"resolving",
		"expanding",
		"running",
		"aggregating",
		"complete",
	}
	if int(s) >= 0 && int(s) < len(names) {
		return names[s]
	}
	return "unknown"
}

// UnitStatus is the state of one unit within a run.
type UnitStatus string

const (
	UnitPending  UnitStatus = "pending"
	UnitRunning  UnitStatus = "running"
	UnitComplete UnitStatus = "complete"
	UnitErrored  UnitStatus = "errored"
)

// EventKind classifies pipeline events.
type EventKind string

const (
	EventRunStart    EventKind = "run-start"
	EventProgress    EventKind = "progress"
	EventUnitError   EventKind = "unit-error"
	EventRunComplete EventKind = "run-complete"
)

// Event is emitted, in order, during Execute.
type Event struct {
	Kind      EventKind            `json:"kind"`
	State     State                `json:"state"`
	Unit      string               `json:"unit,omitempty"`
	Status    UnitStatus           `json:"status,omitempty"`
	Completed int                  `json:"completed"`
	Total     int                  `json:"total"`
	Message   string               `json:"message,omitempty"`
	Manifest  *archive.RunManifest `json:"manifest,omitempty"`
	Summary   *archive.Summary     `json:"summary,omitempty"`
}

// Sink receives events synchronously as they are emitted; Emit should not
// block.
type Sink interface {
	Emit(Event)
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(Event)

func (f SinkFunc) Emit(ev Event) { f(ev) }

// Result is the outcome of one run. Success is false whenever any template
// or unit failed; outputs of everything that succeeded are still present.
type Result struct {
	Success     bool
	Outputs     *archive.Archiver
	Manifest    *archive.RunManifest
	Templates   unit.Templates
	Errors      []error
	Warnings    []string
	Events      []Event
	ArchivePath string
}

// ErrorStrings returns the run's errors as messages.
func (r *Result) ErrorStrings() []string {
	out := make([]string, len(r.Errors))
	for i, err := range r.Errors {
		out[i] = err.Error()
	}
	return out
}

// UnitErrors returns the unit-scoped failures of the run.
func (r *Result) UnitErrors() []*unit.Error {
	var out []*unit.Error
	for _, err := range r.Errors {
		var ue *unit.Error
		if errors.As(err, &ue) {
			out = append(out, ue)
		}
	}
	return out
}

// ValidationReport maps each enabled unit to its precondition report.
type ValidationReport struct {
	Valid bool                       `json:"valid"`
	Units map[string]unit.Validation `json:"units"`
}

// Preview describes what a run would do without running it.
type Preview struct {
	Units            []unit.Info `json:"units"`
	Unknown          []string    `json:"unknown"`
	Modules          []string    `json:"modules"`
	EstimatedOutputs []string    `json:"estimatedOutputs"`
}

// Orchestrator coordinates generation runs.
type Orchestrator interface {
	// Execute runs the whole pipeline over the template sources.
	Execute(ctx context.Context, sources Sources) (*Result, error)

	// ValidateAll validates every enabled unit without transforming.
	ValidateAll() ValidationReport

	// Preview reports which units and modules a run would cover.
	Preview() Preview

	// Units lists every registered unit.
	Units() []unit.Info
}
