package mcptools

import (
	"github.com/dusk-indust/govgen/internal/archive"
	"github.com/dusk-indust/govgen/internal/orchestrator"
	"github.com/dusk-indust/govgen/internal/profile"
	"github.com/dusk-indust/govgen/internal/unit"
)

// --- MCP Tool Types for the govgen server mode (serve-mcp) ---
// Configurations travel as plain JSON objects. Tools that take a config
// operate on it directly; none of them read or write the local store.

// ListProfilesInput is the input for the list_profiles MCP tool.
type ListProfilesInput struct{}

// ListProfilesOutput is the result of the list_profiles MCP tool.
type ListProfilesOutput struct {
	Profiles []profile.Summary `json:"profiles"`
}

// ResolveConfigInput is the input for the resolve_config MCP tool.
type ResolveConfigInput struct {
	Profile  string         `json:"profile" jsonschema:"industry profile id, e.g. healthcare"`
	Client   map[string]any `json:"client,omitempty" jsonschema:"client overrides layered over the profile baseline"`
	Artifact map[string]any `json:"artifact,omitempty" jsonschema:"artifact overrides layered last"`
}

// ResolveConfigOutput is the result of the resolve_config MCP tool.
type ResolveConfigOutput struct {
	Config map[string]any `json:"config"`
}

// ConfigDeltaInput is the input for the config_delta MCP tool.
type ConfigDeltaInput struct {
	Profile string         `json:"profile" jsonschema:"industry profile id the config was resolved from"`
	Config  map[string]any `json:"config" jsonschema:"resolved configuration"`
}

// ConfigDeltaOutput is the result of the config_delta MCP tool.
type ConfigDeltaOutput struct {
	Delta map[string]any `json:"delta"`
	Paths []string       `json:"paths"`
	Diff  string         `json:"diff"`
}

// ConfigInput is the input for the tools that act on one configuration.
type ConfigInput struct {
	Config map[string]any `json:"config" jsonschema:"resolved configuration"`
}

// ValidateConfigOutput is the result of the validate_config MCP tool.
type ValidateConfigOutput struct {
	Valid    bool                       `json:"valid"`
	Missing  []string                   `json:"missing"`
	Warnings []string                   `json:"warnings"`
	Units    map[string]unit.Validation `json:"units"`
}

// PreviewRunOutput is the result of the preview_run MCP tool.
type PreviewRunOutput struct {
	Preview orchestrator.Preview `json:"preview"`
}

// GenerateInput is the input for the generate MCP tool.
type GenerateInput struct {
	Config    map[string]any `json:"config" jsonschema:"resolved configuration"`
	OutputDir string         `json:"outputDir,omitempty" jsonschema:"directory to write the archive into (default: no file is written)"`
}

// GenerateOutput is the result of the generate MCP tool.
type GenerateOutput struct {
	Success     bool                         `json:"success"`
	RunID       string                       `json:"runId"`
	ArchivePath string                       `json:"archivePath,omitempty"`
	Summary     archive.Summary              `json:"summary"`
	Files       map[string]archive.UnitFiles `json:"files"`
	Errors      []string                     `json:"errors"`
	Warnings    []string                     `json:"warnings"`
}
