package profile

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuiltin_LoadsIndustryProfiles(t *testing.T) {
	r, err := Builtin()
	require.NoError(t, err)

	assert.Equal(t, []string{"_template", "financial-services", "healthcare", "manufacturing"}, r.IDs())

	p, ok := r.Lookup("healthcare")
	require.True(t, ok)
	assert.Equal(t, "Healthcare", p.Name)

	cfg := p.Config()
	assert.Equal(t, float64(4), cfg.Get("classification.tierCount"))
	assert.Equal(t, []string{"Public", "Internal", "Confidential-PHI", "Restricted-PHI"}, cfg.Strings("classification.tierLabels"))
	assert.Equal(t, "healthcare", cfg.String("industry"))
}

func TestLookup_ReturnsCopy(t *testing.T) {
	r, err := Builtin()
	require.NoError(t, err)

	p, _ := r.Lookup("manufacturing")
	p.Naming["separator"] = "-"
	p.Classification.Set("tierLabels", []any{"changed"})

	again, _ := r.Lookup("manufacturing")
	assert.Equal(t, "_", again.Naming["separator"])
	assert.Len(t, again.Config().Strings("classification.tierLabels"), 4)
}

func TestConfig_DoesNotAlias(t *testing.T) {
	r, err := Builtin()
	require.NoError(t, err)
	p, _ := r.Lookup("manufacturing")

	cfg := p.Config()
	cfg.Set("naming.separator", "-")
	assert.Equal(t, "_", p.Naming["separator"])
}

func TestLookup_Unknown(t *testing.T) {
	r := NewRegistry()
	_, ok := r.Lookup("retail")
	assert.False(t, ok)
}

func TestSummaries(t *testing.T) {
	r, err := Builtin()
	require.NoError(t, err)

	var fs Summary
	for _, s := range r.Summaries() {
		if s.ID == "financial-services" {
			fs = s
		}
	}
	assert.Equal(t, "Financial Services", fs.Name)
	assert.Equal(t, []string{"gdpr", "medallion", "pci", "sox"}, fs.Overlays)
	assert.Contains(t, fs.RegulatoryFrameworks, "PCI-DSS")
	assert.Equal(t, []string{"fabric", "purview", "apim"}, fs.AdapterRecommendations)
}

func TestRegister_RejectsInvalid(t *testing.T) {
	r := NewRegistry()

	err := r.Register("broken", Profile{Name: "Broken"})
	require.ErrorIs(t, err, ErrInvalidProfile)
	assert.Contains(t, err.Error(), "missing naming section")

	err = r.Register("", Profile{})
	assert.ErrorIs(t, err, ErrInvalidProfile)
}

func TestValidate_ClassificationTypes(t *testing.T) {
	p := Profile{
		Name:           "x",
		Environment:    map[string]any{},
		Naming:         map[string]any{},
		Modules:        map[string]any{},
		Classification: map[string]any{"tierLabels": "Public", "tierCount": "four"},
	}
	errs := Validate(p)
	assert.Equal(t, []string{
		"classification.tierLabels must be a sequence",
		"classification.tierCount must be a number",
	}, errs)
}

func TestLoadDir_Formats(t *testing.T) {
	dir := t.TempDir()

	jsonDoc := `{"name":"Retail","industry":"retail","environment":{"cloud":"aws"},
"naming":{"orgPrefix":"rtl"},"classification":{"tierCount":3,"tierLabels":["Public","Internal","Secret"]},
"modules":{"recommended":["ISL-03"]}}`
	tomlDoc := `name = "Energy"
industry = "energy"

[environment]
cloud = "gcp"

[naming]
orgPrefix = "nrg"

[classification]
tierCount = 2
tierLabels = ["Open", "Closed"]

[modules]
recommended = ["ISL-04"]
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "retail.json"), []byte(jsonDoc), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "energy.toml"), []byte(tomlDoc), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("ignored"), 0o644))

	r := NewRegistry()
	require.NoError(t, r.LoadDir(dir))
	assert.Equal(t, []string{"energy", "retail"}, r.IDs())

	energy, _ := r.Lookup("energy")
	assert.Equal(t, float64(2), energy.Config().Get("classification.tierCount"))
	assert.Equal(t, "gcp", energy.Config().String("environment.cloud"))
}

func TestDecode_UnsupportedFormat(t *testing.T) {
	_, err := Decode([]byte("x"), "ini")
	assert.Error(t, err)
}
