package main

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dusk-indust/govgen/internal/orchestrator"
	"github.com/dusk-indust/govgen/internal/resolver"
	"github.com/dusk-indust/govgen/internal/values"
)

// storedPipeline builds a pipeline over the stored configuration without
// history or output wiring, for read-only inspection.
func (p *project) storedPipeline() (*orchestrator.Pipeline, values.Map, error) {
	st, err := p.openStore()
	if err != nil {
		return nil, nil, err
	}
	units, err := p.units()
	if err != nil {
		return nil, nil, err
	}
	cfg := st.Snapshot()
	return orchestrator.NewPipeline(orchestrator.Config{}, orchestrator.StaticConfig(cfg), units), cfg, nil
}

type ValidateOptions struct {
	*GovgenOptions

	Output string
}

func NewValidateOptions(g *GovgenOptions) *ValidateOptions {
	return &ValidateOptions{GovgenOptions: g}
}

func NewValidateCmd(o *ValidateOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Check the stored configuration and every enabled unit",
		RunE:  func(_ *cobra.Command, _ []string) error { return o.Run() },
	}
	cmd.Flags().StringVarP(&o.Output, "output", "o", outputText, "Output format: text or json")
	return cmd
}

type validateReport struct {
	Config resolver.Validation           `json:"config"`
	Units  orchestrator.ValidationReport `json:"units"`
}

func (o *ValidateOptions) Run() error {
	if err := checkOutput(o.Output, outputText, outputJSON); err != nil {
		return err
	}
	p, err := o.loadProject()
	if err != nil {
		return err
	}
	pipeline, cfg, err := p.storedPipeline()
	if err != nil {
		return err
	}
	report := validateReport{
		Config: resolver.Validate(cfg),
		Units:  pipeline.ValidateAll(),
	}

	if o.Output == outputJSON {
		if err := writeJSON(o.out, report); err != nil {
			return err
		}
	} else {
		printValidation(o, report)
	}

	if !report.Config.Valid || !report.Units.Valid {
		return fmt.Errorf("configuration is not valid")
	}
	return nil
}

func printValidation(o *ValidateOptions, r validateReport) {
	if r.Config.Valid {
		fmt.Fprintln(o.out, "✓ configuration complete")
	} else {
		fmt.Fprintf(o.out, "✗ missing: %s\n", strings.Join(r.Config.Missing, ", "))
	}
	for _, w := range r.Config.Warnings {
		fmt.Fprintf(o.out, "! %s\n", w)
	}
	ids := make([]string, 0, len(r.Units.Units))
	for id := range r.Units.Units {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		v := r.Units.Units[id]
		if v.Valid {
			fmt.Fprintf(o.out, "✓ %s\n", id)
			continue
		}
		fmt.Fprintf(o.out, "✗ %s\n", id)
		for _, e := range v.Errors {
			fmt.Fprintf(o.out, "    %s\n", e)
		}
	}
}

type PreviewOptions struct {
	*GovgenOptions

	Output string
}

func NewPreviewOptions(g *GovgenOptions) *PreviewOptions {
	return &PreviewOptions{GovgenOptions: g}
}

func NewPreviewCmd(o *PreviewOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "preview",
		Short: "Show which units and modules a generation run would cover",
		RunE:  func(_ *cobra.Command, _ []string) error { return o.Run() },
	}
	cmd.Flags().StringVarP(&o.Output, "output", "o", outputText, "Output format: text or json")
	return cmd
}

func (o *PreviewOptions) Run() error {
	if err := checkOutput(o.Output, outputText, outputJSON); err != nil {
		return err
	}
	p, err := o.loadProject()
	if err != nil {
		return err
	}
	pipeline, _, err := p.storedPipeline()
	if err != nil {
		return err
	}
	preview := pipeline.Preview()
	if o.Output == outputJSON {
		return writeJSON(o.out, preview)
	}

	fmt.Fprintf(o.out, "Modules: %s\n", dashIfEmpty(preview.Modules))
	fmt.Fprintln(o.out, "Units:")
	if len(preview.Units) == 0 {
		fmt.Fprintln(o.out, "  (none enabled)")
	}
	for _, info := range preview.Units {
		fmt.Fprintf(o.out, "  %s (%s) %s\n", info.ID, info.Name, info.Version)
	}
	for _, id := range preview.Unknown {
		fmt.Fprintf(o.out, "  %s (not registered)\n", id)
	}
	if len(preview.EstimatedOutputs) > 0 {
		fmt.Fprintln(o.out, "Outputs:")
		for _, est := range preview.EstimatedOutputs {
			fmt.Fprintf(o.out, "  %s\n", est)
		}
	}
	return nil
}
