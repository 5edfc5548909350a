package main

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/dusk-indust/govgen/internal/archive"
	"github.com/dusk-indust/govgen/internal/export"
	"github.com/dusk-indust/govgen/internal/orchestrator"
)

type GenerateOptions struct {
	*GovgenOptions

	OutputDir    string
	NoArchive    bool
	Redact       bool
	ExtractDir   string
	ManifestPath string
	Concurrency  int
	Quiet        bool
	Output       string
}

func NewGenerateOptions(g *GovgenOptions) *GenerateOptions {
	return &GenerateOptions{GovgenOptions: g}
}

func NewGenerateCmd(o *GenerateOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "generate",
		Aliases: []string{"gen"},
		Short:   "Generate standards and platform artifacts from the stored configuration",
		RunE:    func(_ *cobra.Command, _ []string) error { return o.Run() },
	}
	cmd.Flags().StringVarP(&o.OutputDir, "output-dir", "d", "", "Directory for the archive (default: outputDir from govgen.yml, else dist)")
	cmd.Flags().BoolVar(&o.NoArchive, "no-archive", false, "Do not write the archive file")
	cmd.Flags().BoolVar(&o.Redact, "redact", false, "Mask secret-looking values in the manifest's configuration snapshot")
	cmd.Flags().StringVar(&o.ExtractDir, "extract", "", "Also unpack the generated files into this directory")
	cmd.Flags().StringVar(&o.ManifestPath, "manifest", "", "Also write the run manifest as JSON to this path")
	cmd.Flags().IntVar(&o.Concurrency, "concurrency", orchestrator.DefaultConcurrency, "Maximum concurrent template expansions")
	cmd.Flags().BoolVarP(&o.Quiet, "quiet", "q", false, "Suppress progress lines")
	cmd.Flags().StringVarP(&o.Output, "output", "o", outputText, "Output format: text or json")
	return cmd
}

type generateReport struct {
	Success     bool                         `json:"success"`
	RunID       string                       `json:"runId"`
	ArchivePath string                       `json:"archivePath,omitempty"`
	Summary     archive.Summary              `json:"summary"`
	Files       map[string]archive.UnitFiles `json:"files"`
	Errors      []string                     `json:"errors"`
	Warnings    []string                     `json:"warnings"`
}

func (o *GenerateOptions) Run() error {
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
	sources, err := p.sources()
	if err != nil {
		return err
	}
	cfg, idx, err := p.pipelineConfig(ctx, st)
	if err != nil {
		return err
	}
	defer idx.Close()

	if o.OutputDir != "" {
		if cfg.OutputDir, err = filepath.Abs(o.OutputDir); err != nil {
			return err
		}
	}
	if o.NoArchive {
		cfg.OutputDir = ""
	}
	if o.Redact {
		cfg.ArchiveOptions = append(cfg.ArchiveOptions, archive.WithRedaction())
	}
	cfg.Concurrency = o.Concurrency

	var reporter *orchestrator.ProgressReporter
	done := make(chan struct{})
	if !o.Quiet && o.Output == outputText {
		reporter = orchestrator.NewProgressReporterFor(len(st.Snapshot().Strings("adapters.enabled")))
		cfg.Sinks = append(cfg.Sinks, reporter)
		go func() {
			defer close(done)
			for ev := range reporter.Subscribe() {
				fmt.Fprintln(o.out, orchestrator.FormatProgress(ev))
			}
		}()
	} else {
		close(done)
	}

	res, err := orchestrator.NewPipeline(cfg, st, units).Execute(ctx, sources)
	if reporter != nil {
		reporter.Close()
	}
	<-done
	if err != nil {
		return err
	}

	if o.ExtractDir != "" {
		written, err := export.Unpack(res.Outputs, o.ExtractDir)
		if err != nil {
			return err
		}
		p.logger.Info("files extracted", "dir", written.Dir, "files", len(written.Files))
	}
	if o.ManifestPath != "" {
		if err := export.WriteManifest(res.Manifest, o.ManifestPath); err != nil {
			return err
		}
	}

	if o.Output == outputJSON {
		warnings := res.Warnings
		if warnings == nil {
			warnings = []string{}
		}
		err := writeJSON(o.out, generateReport{
			Success:     res.Success,
			RunID:       res.Manifest.RunID,
			ArchivePath: res.ArchivePath,
			Summary:     res.Manifest.OutputSummary,
			Files:       res.Outputs.Bundle().Units,
			Errors:      res.ErrorStrings(),
			Warnings:    warnings,
		})
		if err != nil {
			return err
		}
	} else {
		for _, w := range res.Warnings {
			fmt.Fprintf(o.out, "warning: %s\n", w)
		}
		if res.ArchivePath != "" {
			fmt.Fprintf(o.out, "archive: %s\n", res.ArchivePath)
		}
	}

	if !res.Success {
		return fmt.Errorf("generation finished with %d error(s): %w", len(res.Errors), errors.Join(res.Errors...))
	}
	return nil
}
