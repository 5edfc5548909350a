package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dusk-indust/govgen/internal/history"
	"github.com/dusk-indust/govgen/internal/orchestrator"
	"github.com/dusk-indust/govgen/internal/status"
)

type StatusOptions struct {
	*GovgenOptions

	Recent int
	Output string
}

func NewStatusOptions(g *GovgenOptions) *StatusOptions {
	return &StatusOptions{GovgenOptions: g}
}

func NewStatusCmd(o *StatusOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show whether the workspace is ready to generate",
		RunE:  func(_ *cobra.Command, _ []string) error { return o.Run() },
	}
	cmd.Flags().IntVar(&o.Recent, "recent", 5, "Recent runs to show")
	cmd.Flags().StringVarP(&o.Output, "output", "o", outputText, "Output format: text or json")
	return cmd
}

func (o *StatusOptions) Run() error {
	if err := checkOutput(o.Output, outputText, outputJSON); err != nil {
		return err
	}
	p, err := o.loadProject()
	if err != nil {
		return err
	}
	ctx := p.context(context.Background())

	st, err := p.openStore()
	if err != nil {
		return err
	}
	units, err := p.units()
	if err != nil {
		return err
	}
	cfg := st.Snapshot()

	in := status.Inputs{
		Config:   cfg,
		FirstRun: st.IsFirstRun(),
		Pipeline: orchestrator.NewPipeline(orchestrator.Config{}, orchestrator.StaticConfig(cfg), units),
		Checker:  p.checker(),
		Recent:   o.Recent,
	}
	if history.Persistent {
		idx, err := p.openIndex(ctx)
		if err != nil {
			return err
		}
		defer idx.Close()
		in.Index = idx
	}

	report, err := status.Gather(ctx, in)
	if err != nil {
		return err
	}
	if o.Output == outputJSON {
		return writeJSON(o.out, report)
	}
	_, err = fmt.Fprint(o.out, status.Format(report))
	return err
}
