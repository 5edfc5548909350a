package mcptools

import (
	"context"
	"encoding/json"
	"os"
	"testing"

	"github.com/dusk-indust/govgen/internal/builtin"
	"github.com/dusk-indust/govgen/internal/orchestrator"
	"github.com/dusk-indust/govgen/internal/profile"
	"github.com/dusk-indust/govgen/internal/resolver"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestService(t *testing.T) *GovgenService {
	t.Helper()
	profiles, err := profile.Builtin()
	require.NoError(t, err)
	units, err := builtin.NewRegistry()
	require.NoError(t, err)
	return NewGovgenService(profiles, units, orchestrator.Config{}, nil)
}

func clientOverrides() map[string]any {
	return map[string]any{
		"clientName": "Acme Health",
		"naming":     map[string]any{"orgPrefix": "ACH"},
		"adapters":   map[string]any{"enabled": []any{"fabric", "purview"}},
	}
}

func resolved(t *testing.T, svc *GovgenService) map[string]any {
	t.Helper()
	_, out, err := svc.ResolveConfig(context.Background(), nil, ResolveConfigInput{Profile: "healthcare", Client: clientOverrides()})
	require.NoError(t, err)
	return out.Config
}

func TestGovgenService_ListProfiles(t *testing.T) {
	_, out, err := newTestService(t).ListProfiles(context.Background(), nil, ListProfilesInput{})
	require.NoError(t, err)

	ids := make([]string, len(out.Profiles))
	for i, p := range out.Profiles {
		ids[i] = p.ID
	}
	assert.Contains(t, ids, "healthcare")
	assert.Contains(t, ids, "manufacturing")
	assert.Contains(t, ids, "financial-services")
}

func TestGovgenService_ResolveConfig(t *testing.T) {
	svc := newTestService(t)
	cfg := resolved(t, svc)
	assert.Equal(t, "Acme Health", cfg["clientName"])
	assert.Equal(t, "healthcare", cfg["industry"])

	_, _, err := svc.ResolveConfig(context.Background(), nil, ResolveConfigInput{Profile: "aerospace"})
	assert.ErrorIs(t, err, resolver.ErrUnknownProfile)
}

func TestGovgenService_ConfigDelta(t *testing.T) {
	svc := newTestService(t)
	_, out, err := svc.ConfigDelta(context.Background(), nil, ConfigDeltaInput{Profile: "healthcare", Config: resolved(t, svc)})
	require.NoError(t, err)
	assert.Equal(t, []string{"adapters.enabled", "clientName", "naming.orgPrefix"}, out.Paths)
	assert.Equal(t, "Acme Health", out.Delta["clientName"])
	assert.NotEmpty(t, out.Diff)
}

func TestGovgenService_ValidateConfig(t *testing.T) {
	svc := newTestService(t)
	_, out, err := svc.ValidateConfig(context.Background(), nil, ConfigInput{Config: resolved(t, svc)})
	require.NoError(t, err)
	assert.True(t, out.Valid, "%v %v", out.Missing, out.Units)
	assert.True(t, out.Units["fabric"].Valid)
	assert.True(t, out.Units["purview"].Valid)

	_, out, err = svc.ValidateConfig(context.Background(), nil, ConfigInput{Config: map[string]any{
		"adapters": map[string]any{"enabled": []any{"ghost"}},
	}})
	require.NoError(t, err)
	assert.False(t, out.Valid)
	assert.Contains(t, out.Missing, "clientName")
	assert.False(t, out.Units["ghost"].Valid)
}

func TestGovgenService_PreviewRun(t *testing.T) {
	svc := newTestService(t)
	_, out, err := svc.PreviewRun(context.Background(), nil, ConfigInput{Config: resolved(t, svc)})
	require.NoError(t, err)
	require.Len(t, out.Preview.Units, 2)
	assert.Equal(t, "fabric", out.Preview.Units[0].ID)
	assert.Equal(t, []string{"ISL-03", "ISL-04", "ISL-01", "ISL-06", "ISL-02"}, out.Preview.Modules)
	assert.Empty(t, out.Preview.Unknown)
}

func TestGovgenService_Generate(t *testing.T) {
	svc := newTestService(t)
	dir := t.TempDir()
	_, out, err := svc.Generate(context.Background(), nil, GenerateInput{Config: resolved(t, svc), OutputDir: dir})
	require.NoError(t, err)
	assert.True(t, out.Success, "%v", out.Errors)
	assert.NotEmpty(t, out.RunID)
	assert.Contains(t, out.Files, "fabric")
	assert.Contains(t, out.Files, "purview")
	assert.Equal(t, []string{"manifest.json"}, out.Files["fabric"].Manifests)
	assert.Greater(t, out.Summary.TotalFiles, 2)

	_, err = os.Stat(out.ArchivePath)
	assert.NoError(t, err)

	_, _, err = svc.Generate(context.Background(), nil, GenerateInput{})
	assert.Error(t, err)
}

func setupSession(t *testing.T) *mcp.ClientSession {
	t.Helper()
	server := NewGovgenMCPServer(newTestService(t))
	clientTransport, serverTransport := mcp.NewInMemoryTransports()

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	go server.Run(ctx, serverTransport)

	client := mcp.NewClient(&mcp.Implementation{Name: "test-client", Version: "dev"}, nil)
	session, err := client.Connect(ctx, clientTransport, nil)
	require.NoError(t, err)
	t.Cleanup(func() { session.Close() })
	return session
}

func TestGovgenMCPServer_ToolsList(t *testing.T) {
	session := setupSession(t)
	tools, err := session.ListTools(context.Background(), nil)
	require.NoError(t, err)

	toolNames := make([]string, len(tools.Tools))
	for i, tool := range tools.Tools {
		toolNames[i] = tool.Name
	}
	assert.ElementsMatch(t, []string{
		"list_profiles", "resolve_config", "config_delta",
		"validate_config", "preview_run", "generate",
	}, toolNames)
}

func TestGovgenMCPServer_CallResolveConfig(t *testing.T) {
	session := setupSession(t)
	ctx := context.Background()

	result, err := session.CallTool(ctx, &mcp.CallToolParams{
		Name:      "resolve_config",
		Arguments: ResolveConfigInput{Profile: "manufacturing", Client: map[string]any{"clientName": "Widget Co"}},
	})
	require.NoError(t, err)
	require.False(t, result.IsError, "resolve_config should succeed")
	require.NotNil(t, result.StructuredContent)

	raw, err := json.Marshal(result.StructuredContent)
	require.NoError(t, err)
	var out ResolveConfigOutput
	require.NoError(t, json.Unmarshal(raw, &out))
	assert.Equal(t, "Widget Co", out.Config["clientName"])
	assert.Equal(t, "manufacturing", out.Config["industry"])
}

func TestGovgenMCPServer_UnknownProfileIsToolError(t *testing.T) {
	session := setupSession(t)
	result, err := session.CallTool(context.Background(), &mcp.CallToolParams{
		Name:      "resolve_config",
		Arguments: ResolveConfigInput{Profile: "nope"},
	})
	if err != nil {
		// Protocol-level error is acceptable.
		return
	}
	assert.True(t, result.IsError)
}
