package mcptools

import (
	"context"
	"fmt"

	"github.com/dusk-indust/govgen/internal/orchestrator"
	"github.com/dusk-indust/govgen/internal/profile"
	"github.com/dusk-indust/govgen/internal/resolver"
	"github.com/dusk-indust/govgen/internal/unit"
	"github.com/dusk-indust/govgen/internal/values"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// GovgenService handles MCP tool calls. Every call builds its own pipeline
// over the configuration it was given.
type GovgenService struct {
	profiles *profile.Registry
	resolver *resolver.Resolver
	units    *unit.Registry
	base     orchestrator.Config
	sources  orchestrator.Sources
}

// NewGovgenService creates a GovgenService. base supplies the pipeline
// collaborators (checker, history, archive options); its OutputDir is
// ignored in favor of the generate tool's input. A nil sources map uses the
// embedded module templates.
func NewGovgenService(profiles *profile.Registry, units *unit.Registry, base orchestrator.Config, sources orchestrator.Sources) *GovgenService {
	return &GovgenService{
		profiles: profiles,
		resolver: resolver.New(profiles),
		units:    units,
		base:     base,
		sources:  sources,
	}
}

func (s *GovgenService) pipeline(cfg map[string]any, outputDir string) *orchestrator.Pipeline {
	pc := s.base
	pc.OutputDir = outputDir
	return orchestrator.NewPipeline(pc, orchestrator.StaticConfig(values.FromAny(cfg)), s.units)
}

// ListProfiles returns the selection-list view of every known profile.
func (s *GovgenService) ListProfiles(
	_ context.Context,
	_ *mcp.CallToolRequest,
	_ ListProfilesInput,
) (*mcp.CallToolResult, ListProfilesOutput, error) {
	return nil, ListProfilesOutput{Profiles: s.profiles.Summaries()}, nil
}

// ResolveConfig layers client and artifact overrides over a profile.
func (s *GovgenService) ResolveConfig(
	_ context.Context,
	_ *mcp.CallToolRequest,
	input ResolveConfigInput,
) (*mcp.CallToolResult, ResolveConfigOutput, error) {
	cfg, err := s.resolver.Resolve(input.Profile, input.Client, input.Artifact)
	if err != nil {
		return nil, ResolveConfigOutput{}, fmt.Errorf("resolve config: %w", err)
	}
	return nil, ResolveConfigOutput{Config: cfg}, nil
}

// ConfigDelta reports how a configuration differs from its profile.
func (s *GovgenService) ConfigDelta(
	_ context.Context,
	_ *mcp.CallToolRequest,
	input ConfigDeltaInput,
) (*mcp.CallToolResult, ConfigDeltaOutput, error) {
	cfg := values.FromAny(input.Config)
	delta, err := s.resolver.Delta(input.Profile, cfg)
	if err != nil {
		return nil, ConfigDeltaOutput{}, fmt.Errorf("config delta: %w", err)
	}
	diff, err := s.resolver.RenderDelta(input.Profile, cfg)
	if err != nil {
		return nil, ConfigDeltaOutput{}, fmt.Errorf("config delta: %w", err)
	}
	paths := resolver.DeltaPaths(delta)
	if paths == nil {
		paths = []string{}
	}
	return nil, ConfigDeltaOutput{Delta: delta, Paths: paths, Diff: diff}, nil
}

// ValidateConfig checks structural completeness and every enabled unit.
func (s *GovgenService) ValidateConfig(
	_ context.Context,
	_ *mcp.CallToolRequest,
	input ConfigInput,
) (*mcp.CallToolResult, ValidateConfigOutput, error) {
	v := resolver.Validate(values.FromAny(input.Config))
	report := s.pipeline(input.Config, "").ValidateAll()
	return nil, ValidateConfigOutput{
		Valid:    v.Valid && report.Valid,
		Missing:  v.Missing,
		Warnings: v.Warnings,
		Units:    report.Units,
	}, nil
}

// PreviewRun reports which units and modules a run would cover.
func (s *GovgenService) PreviewRun(
	_ context.Context,
	_ *mcp.CallToolRequest,
	input ConfigInput,
) (*mcp.CallToolResult, PreviewRunOutput, error) {
	return nil, PreviewRunOutput{Preview: s.pipeline(input.Config, "").Preview()}, nil
}

// Generate runs the pipeline. Unit failures are reported in the output,
// not as a tool error.
func (s *GovgenService) Generate(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input GenerateInput,
) (*mcp.CallToolResult, GenerateOutput, error) {
	if input.Config == nil {
		return nil, GenerateOutput{}, fmt.Errorf("generate: config is required")
	}
	res, err := s.pipeline(input.Config, input.OutputDir).Execute(ctx, s.sources)
	if err != nil {
		return nil, GenerateOutput{}, fmt.Errorf("generate: %w", err)
	}
	warnings := res.Warnings
	if warnings == nil {
		warnings = []string{}
	}
	return nil, GenerateOutput{
		Success:     res.Success,
		RunID:       res.Manifest.RunID,
		ArchivePath: res.ArchivePath,
		Summary:     res.Manifest.OutputSummary,
		Files:       res.Outputs.Bundle().Units,
		Errors:      res.ErrorStrings(),
		Warnings:    warnings,
	}, nil
}
