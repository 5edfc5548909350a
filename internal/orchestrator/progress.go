package orchestrator

import "fmt"

var _ Sink = (*ProgressReporter)(nil)

// ProgressReporter is a Sink that forwards events through a buffered
// channel.
type ProgressReporter struct {
	ch chan Event
}

const defaultProgressBuffer = 64

// NewProgressReporter creates a ProgressReporter with a buffered channel of size 64.
func NewProgressReporter() *ProgressReporter {
	return &ProgressReporter{
		ch: make(chan Event, defaultProgressBuffer),
	}
}

// NewProgressReporterFor creates a ProgressReporter whose buffer holds every
// event of a run over the given number of units, so nothing is dropped even
// when the consumer falls behind.
func NewProgressReporterFor(units int) *ProgressReporter {
	size := EventsPerRun(units)
	if size < defaultProgressBuffer {
		size = defaultProgressBuffer
	}
	return &ProgressReporter{
		ch: make(chan Event, size),
	}
}

// EventsPerRun is the number of events Execute emits for a run over the
// given number of units: run start, two per unit and run complete.
func EventsPerRun(units int) int {
	return 2*units + 2
}

// Emit sends an event in a non-blocking fashion.
// If the channel is full, the event is silently dropped.
func (pr *ProgressReporter) Emit(event Event) {
	select {
	case pr.ch <- event:
	default:
	}
}

// Subscribe returns a read-only channel for consuming events.
func (pr *ProgressReporter) Subscribe() <-chan Event {
	return pr.ch
}

// Close closes the event channel.
func (pr *ProgressReporter) Close() {
	close(pr.ch)
}

// FormatProgress formats an Event as a human-readable status line.
func FormatProgress(event Event) string {
	switch event.Kind {
	case EventRunStart:
		return fmt.Sprintf("generating %d unit(s)", event.Total)
	case EventProgress:
		switch event.Status {
		case UnitRunning:
			return fmt.Sprintf("  ● %s... [%d/%d]", event.Unit, event.Completed, event.Total)
		case UnitComplete:
			return fmt.Sprintf("  ✓ %s complete [%d/%d]", event.Unit, event.Completed, event.Total)
		default:
			return fmt.Sprintf("  ○ %s (%s)", event.Unit, event.Status)
		}
	case EventUnitError:
		return fmt.Sprintf("  ✗ %s failed: %s", event.Unit, event.Message)
	case EventRunComplete:
		files := 0
		if event.Summary != nil {
			files = event.Summary.TotalFiles
		}
		return fmt.Sprintf("done: %d file(s), %d/%d unit(s) succeeded", files, event.Completed, event.Total)
	default:
		return fmt.Sprintf("  ? %s (unknown event)", event.Unit)
	}
}
