// Package status summarizes how ready a workspace is to generate: whether
// the configuration is complete, whether each enabled unit would run, and
// what recent runs produced.
package status

import (
	"context"
	"fmt"
	"strings"

	"github.com/dusk-indust/govgen/internal/history"
	"github.com/dusk-indust/govgen/internal/orchestrator"
	"github.com/dusk-indust/govgen/internal/resolver"
	"github.com/dusk-indust/govgen/internal/scriptcheck"
	"github.com/dusk-indust/govgen/internal/unit"
	"github.com/dusk-indust/govgen/internal/values"
)

// Capabilities describes optional features available in this build.
type Capabilities struct {
	PersistentHistory bool                   `json:"persistentHistory"`
	ScriptLanguages   []scriptcheck.Language `json:"scriptLanguages"`
}

// Report is the readiness summary of one workspace.
type Report struct {
	FirstRun     bool                          `json:"firstRun"`
	Client       string                        `json:"client"`
	Industry     string                        `json:"industry"`
	Config       resolver.Validation           `json:"config"`
	Units        orchestrator.ValidationReport `json:"units"`
	Preview      orchestrator.Preview          `json:"preview"`
	Recent       []history.Run                 `json:"recent"`
	Stats        *history.Stats                `json:"stats,omitempty"`
	Capabilities Capabilities                  `json:"capabilities"`
}

// Ready reports whether a run would complete without errors.
func (r *Report) Ready() bool {
	return r.Config.Valid && r.Units.Valid && len(r.Preview.Unknown) == 0
}

// Inputs are the sources a Report is gathered from. Index and Checker may
// be nil.
type Inputs struct {
	Config   values.Map
	FirstRun bool
	Pipeline orchestrator.Orchestrator
	Index    history.Index
	Checker  *scriptcheck.Checker
	Recent   int
}

// Gather builds a Report.
func Gather(ctx context.Context, in Inputs) (*Report, error) {
	r := &Report{
		FirstRun: in.FirstRun,
		Client:   in.Config.String("clientName"),
		Industry: in.Config.String("industry"),
		Config:   resolver.Validate(in.Config),
		Units:    orchestrator.ValidationReport{Valid: true, Units: map[string]unit.Validation{}},
		Recent:   []history.Run{},
		Capabilities: Capabilities{
			PersistentHistory: history.Persistent,
			ScriptLanguages:   []scriptcheck.Language{},
		},
	}
	if in.Pipeline != nil {
		r.Units = in.Pipeline.ValidateAll()
		r.Preview = in.Pipeline.Preview()
	}
	if in.Checker != nil {
		r.Capabilities.ScriptLanguages = in.Checker.Supported()
	}
	if in.Index != nil {
		recent, err := in.Index.Recent(ctx, in.Recent)
		if err != nil {
			return nil, fmt.Errorf("status: recent runs: %w", err)
		}
		r.Recent = recent
		stats, err := in.Index.Stats(ctx)
		if err != nil {
			return nil, fmt.Errorf("status: stats: %w", err)
		}
		r.Stats = stats
	}
	return r, nil
}

// Format renders r as human-readable text.
func Format(r *Report) string {
	var sb strings.Builder
	client := r.Client
	if client == "" {
		client = "(unnamed client)"
	}
	fmt.Fprintf(&sb, "Client: %s", client)
	if r.Industry != "" {
		fmt.Fprintf(&sb, " [%s]", r.Industry)
	}
	sb.WriteString("\n")
	if r.FirstRun {
		sb.WriteString("No saved configuration yet. Run `govgen init` to create one.\n")
	}

	sb.WriteString("\nConfiguration:\n")
	if r.Config.Valid {
		sb.WriteString("  ✓ complete\n")
	} else {
		fmt.Fprintf(&sb, "  ✗ missing: %s\n", strings.Join(r.Config.Missing, ", "))
	}
	for _, w := range r.Config.Warnings {
		fmt.Fprintf(&sb, "  ! %s\n", w)
	}

	sb.WriteString("\nUnits:\n")
	if len(r.Preview.Units) == 0 && len(r.Preview.Unknown) == 0 {
		sb.WriteString("  (none enabled)\n")
	}
	for _, info := range r.Preview.Units {
		v := r.Units.Units[info.ID]
		if v.Valid {
			fmt.Fprintf(&sb, "  ✓ %s (%s)\n", info.ID, info.Name)
		} else {
			fmt.Fprintf(&sb, "  ✗ %s: %s\n", info.ID, strings.Join(v.Errors, "; "))
		}
	}
	for _, id := range r.Preview.Unknown {
		fmt.Fprintf(&sb, "  ? %s (not registered)\n", id)
	}
	if len(r.Preview.Modules) > 0 {
		fmt.Fprintf(&sb, "Modules: %s\n", strings.Join(r.Preview.Modules, ", "))
	}

	if r.Stats != nil {
		fmt.Fprintf(&sb, "\nHistory: %d run(s), %d failed\n", r.Stats.Runs, r.Stats.Failures)
		for _, run := range r.Recent {
			mark := "✓"
			if !run.Success {
				mark = "✗"
			}
			fmt.Fprintf(&sb, "  %s %s  %s  %d file(s)  %s\n", mark, run.Timestamp.UTC().Format("2006-01-02 15:04"), run.ID, run.FileCount, strings.Join(run.Units, ","))
		}
	}

	if r.Ready() {
		sb.WriteString("\nReady to generate.\n")
	} else {
		sb.WriteString("\nNot ready to generate.\n")
	}
	return sb.String()
}
