package assets

import (
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuiltinModules_All(t *testing.T) {
	sources, err := BuiltinModules(nil)
	require.NoError(t, err)

	for _, id := range []string{"ISL-01", "ISL-02", "ISL-03", "ISL-04", "ISL-05", "ISL-06"} {
		assert.Contains(t, sources, id)
		assert.NotEmpty(t, sources[id])
	}
	assert.Contains(t, sources["ISL-04"], "classification-standards")
}

func TestBuiltinModules_SelectedOnly(t *testing.T) {
	sources, err := BuiltinModules([]string{"ISL-03", "ISL-99"})
	require.NoError(t, err)

	assert.Len(t, sources, 1)
	assert.Contains(t, sources, "ISL-03")
}

func TestModuleSources_StripsExtension(t *testing.T) {
	fsys := fstest.MapFS{
		"CUSTOM/guide.md":   {Data: []byte("# {{clientName}}")},
		"CUSTOM/rules.txt":  {Data: []byte("rules")},
		"OTHER/readme.md":   {Data: []byte("other")},
		"OTHER/nested/x.md": {Data: []byte("ignored")},
	}

	sources, err := ModuleSources(fsys, []string{"CUSTOM"})
	require.NoError(t, err)
	assert.Equal(t, map[string]map[string]string{
		"CUSTOM": {"guide": "# {{clientName}}", "rules": "rules"},
	}, sources)
}

func TestUnitTemplate(t *testing.T) {
	doc, err := UnitTemplate("purview-guide.md")
	require.NoError(t, err)
	assert.Contains(t, doc, "{{#each labels}}")

	_, err = UnitTemplate("missing.md")
	assert.Error(t, err)
}

func TestProfilesEmbedded(t *testing.T) {
	entries, err := ProfilesFS.ReadDir("profiles")
	require.NoError(t, err)
	assert.Len(t, entries, 4)
}
