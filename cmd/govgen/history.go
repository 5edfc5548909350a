package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dusk-indust/govgen/internal/history"
)

type HistoryOptions struct {
	*GovgenOptions

	Unit   string
	Module string
	Limit  int
	Stored bool
	Output string
}

func NewHistoryOptions(g *GovgenOptions) *HistoryOptions {
	return &HistoryOptions{GovgenOptions: g}
}

func NewHistoryCmd(o *HistoryOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List past generation runs",
		Long: `List past generation runs, newest first.

Runs are read from the run index under historyDir. Builds without a
persistent index, and --stored, read the bounded history kept in the
configuration's metadata instead.`,
		RunE: func(_ *cobra.Command, _ []string) error { return o.Run() },
	}
	cmd.Flags().StringVar(&o.Unit, "unit", "", "Only runs that executed this unit")
	cmd.Flags().StringVar(&o.Module, "module", "", "Only runs that deployed this module")
	cmd.Flags().IntVarP(&o.Limit, "limit", "n", history.DefaultLimit, "Maximum runs to list")
	cmd.Flags().BoolVar(&o.Stored, "stored", false, "Read the configuration's generation history")
	cmd.Flags().StringVarP(&o.Output, "output", "o", outputText, "Output format: text or json")
	return cmd
}

func (o *HistoryOptions) Run() error {
	if err := checkOutput(o.Output, outputText, outputJSON); err != nil {
		return err
	}
	if o.Unit != "" && o.Module != "" {
		return fmt.Errorf("--unit and --module are mutually exclusive")
	}
	p, err := o.loadProject()
	if err != nil {
		return err
	}
	ctx := p.context(context.Background())

	var runs []history.Run
	if o.Stored || !history.Persistent {
		runs, err = o.storedRuns(p)
	} else {
		runs, err = o.indexedRuns(ctx, p)
	}
	if err != nil {
		return err
	}
	if runs == nil {
		runs = []history.Run{}
	}

	if o.Output == outputJSON {
		return writeJSON(o.out, runs)
	}
	if len(runs) == 0 {
		fmt.Fprintln(o.out, "no runs recorded")
		return nil
	}
	for _, run := range runs {
		mark := "✓"
		if !run.Success {
			mark = "✗"
		}
		fmt.Fprintf(o.out, "%s %s  %s  %d file(s)  units: %s  modules: %s\n", mark,
			run.Timestamp.UTC().Format("2006-01-02 15:04"), run.ID, run.FileCount,
			strings.Join(run.Units, ","), strings.Join(run.Modules, ","))
	}
	return nil
}

func (o *HistoryOptions) indexedRuns(ctx context.Context, p *project) ([]history.Run, error) {
	idx, err := p.openIndex(ctx)
	if err != nil {
		return nil, err
	}
	defer idx.Close()
	switch {
	case o.Unit != "":
		return idx.ForUnit(ctx, o.Unit, o.Limit)
	case o.Module != "":
		return idx.ForModule(ctx, o.Module, o.Limit)
	}
	return idx.Recent(ctx, o.Limit)
}

// storedRuns converts the store's bounded history, oldest first, into
// index runs, newest first, applying the same filters.
func (o *HistoryOptions) storedRuns(p *project) ([]history.Run, error) {
	st, err := p.openStore()
	if err != nil {
		return nil, err
	}
	records, err := st.History()
	if err != nil {
		return nil, err
	}
	client := st.Snapshot().String("clientName")
	limit := o.Limit
	if limit <= 0 {
		limit = history.DefaultLimit
	}

	var runs []history.Run
	for i := len(records) - 1; i >= 0 && len(runs) < limit; i-- {
		rec := records[i]
		if o.Unit != "" && !contains(rec.Units, o.Unit) {
			continue
		}
		if o.Module != "" && !contains(rec.Modules, o.Module) {
			continue
		}
		runs = append(runs, history.Run{
			ID:        rec.RunID,
			Timestamp: rec.Timestamp,
			Client:    client,
			Units:     rec.Units,
			Modules:   rec.Modules,
			FileCount: rec.FileCount,
			Success:   rec.Success,
		})
	}
	return runs, nil
}

func contains(ss []string, s string) bool {
	for _, v := range ss {
		if v == s {
			return true
		}
	}
	return false
}
