package unit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dusk-indust/govgen/internal/values"
)

func schemaManifest() Manifest {
	m := validManifest()
	m.Modules = []string{"ISL-02"}
	m.ConfigSchema = map[string]Field{
		"catalogName": {Label: "Catalog name", Required: true},
		"mode":        {Options: []string{"managed", "external"}, Default: "managed"},
		"retention":   {Type: "number", Default: 30},
		"audit":       {Type: "boolean", Required: true},
	}
	m.Outputs = []Output{
		{Category: CategoryConfigs, Name: "{{naming.orgPrefix}}-catalog.json", Template: `{"catalog":"{{adapter.catalogName}}","mode":"{{adapter.mode}}"}`},
		{Category: CategoryDocs, Name: "README.md", Template: "# {{plugin.name}} for {{clientName}}\n{{templates.ISL-02.metadata-standards}}"},
		{Category: CategoryScripts, Name: "apply.sh", Template: "echo {{adapter.catalogName}}\n"},
	}
	return m
}

func schemaConfig(settings map[string]any) values.Map {
	return values.FromAny(map[string]any{
		"clientName": "Acme",
		"naming":     map[string]any{"orgPrefix": "acme"},
		"adapters": map[string]any{
			"config": map[string]any{"unity-catalog": settings},
		},
	})
}

func TestSchemaUnit_Validate(t *testing.T) {
	tests := []struct {
		name     string
		settings map[string]any
		errs     []string
	}{
		{"valid with defaults", map[string]any{"catalogName": "gov", "audit": false}, []string{}},
		{"missing required", map[string]any{"audit": true}, []string{"Catalog name is required"}},
		{"empty string is missing", map[string]any{"catalogName": "", "audit": true}, []string{"Catalog name is required"}},
		{"bad option", map[string]any{"catalogName": "gov", "audit": true, "mode": "shared"}, []string{"mode must be one of [managed external]"}},
		{"zero is present", map[string]any{"catalogName": "gov", "audit": true, "retention": 0}, []string{}},
		{"wrong type", map[string]any{"catalogName": "gov", "audit": "yes"}, []string{"audit must be a boolean"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			u := NewSchemaUnit(schemaManifest(), schemaConfig(tt.settings))
			v := u.Validate()
			assert.Equal(t, len(tt.errs) == 0, v.Valid)
			assert.Equal(t, tt.errs, v.Errors)
		})
	}
}

func TestSchemaUnit_TransformAndScripts(t *testing.T) {
	cfg := schemaConfig(map[string]any{"catalogName": "gov", "audit": true})
	u := NewSchemaUnit(schemaManifest(), cfg)
	u.SetClock(func() time.Time { return time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC) })

	tpl := Templates{
		"ISL-02": {"metadata-standards": "metadata rules"},
		"ISL-06": {"quality-standards": "not declared"},
	}
	res, err := u.Transform(tpl, cfg)
	require.NoError(t, err)

	require.Len(t, res.Configs, 1)
	assert.Equal(t, "acme-catalog.json", res.Configs[0].Name)
	assert.Equal(t, "json", res.Configs[0].Type)
	assert.JSONEq(t, `{"catalog":"gov","mode":"managed"}`, res.Configs[0].Content)

	require.Len(t, res.Docs, 1)
	assert.Equal(t, "# Databricks Unity Catalog for Acme\nmetadata rules", res.Docs[0].Content)
	assert.Empty(t, res.Scripts)

	scripts, err := u.GenerateScripts(res)
	require.NoError(t, err)
	require.Len(t, scripts, 1)
	assert.Equal(t, "echo gov\n", scripts[0].Content)

	entry := u.OutputManifest()
	assert.Equal(t, Counts{Configs: 1, Docs: 1, Scripts: 1}, entry.Counts)
	assert.Equal(t, KindPlugin, entry.Kind)
	assert.Equal(t, time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC), entry.Timestamp)
}

func TestSchemaUnit_TransformDoesNotMutateConfig(t *testing.T) {
	cfg := schemaConfig(map[string]any{"catalogName": "gov", "audit": true})
	before := cfg.Clone()

	u := NewSchemaUnit(schemaManifest(), cfg)
	_, err := u.Transform(nil, cfg)
	require.NoError(t, err)
	assert.Equal(t, before, cfg)
}

func TestPlugin_NewUsesSchemaUnit(t *testing.T) {
	u, err := Plugin{Manifest: schemaManifest()}.New(values.Map{})
	require.NoError(t, err)
	_, ok := u.(*SchemaUnit)
	assert.True(t, ok)
}
