package resolver

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dusk-indust/govgen/internal/profile"
	"github.com/dusk-indust/govgen/internal/values"
)

func newResolver(t *testing.T) *Resolver {
	t.Helper()
	reg, err := profile.Builtin()
	require.NoError(t, err)
	return New(reg)
}

// genLayer generates override layers touching both nested mappings and new
// top-level keys.
func genLayer() gopter.Gen {
	return gopter.CombineGens(
		gen.MapOf(gen.Identifier(), gen.AlphaString()),
		gen.MapOf(gen.Identifier(), gen.AlphaString()),
		gen.SliceOf(gen.AlphaString()),
	).Map(func(vals []interface{}) values.Map {
		naming := map[string]any{}
		for k, v := range vals[0].(map[string]string) {
			naming[k] = v
		}
		overrides := map[string]any{}
		for k, v := range vals[1].(map[string]string) {
			overrides[k] = v
		}
		labels := []any{}
		for _, s := range vals[2].([]string) {
			labels = append(labels, s)
		}
		return values.Map{
			"naming":         naming,
			"overrides":      overrides,
			"classification": map[string]any{"tierLabels": labels},
		}
	})
}

func TestResolve_EqualsManualMerge(t *testing.T) {
	r := newResolver(t)
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	properties.Property("resolve(p, A, B) == merge(merge(baseline, A), B)", prop.ForAll(
		func(a, b values.Map) bool {
			got, err := r.Resolve("manufacturing", a, b)
			if err != nil {
				return false
			}
			base, err := r.Baseline("manufacturing")
			if err != nil {
				return false
			}
			want := DeepMerge(DeepMerge(base, a), b)
			return values.Equal(want, got)
		},
		genLayer(), genLayer(),
	))

	properties.TestingRun(t)
}

func TestDeepMerge_NeverMutatesInputs(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	properties.Property("inputs unchanged after merge", prop.ForAll(
		func(target, source values.Map) bool {
			targetBefore := target.Clone()
			sourceBefore := source.Clone()
			merged := DeepMerge(target, source)
			merged.Set("naming.injected", "x")
			merged.Set("classification.tierLabels", []any{"mutated"})
			return values.Equal(targetBefore, target) && values.Equal(sourceBefore, source)
		},
		genLayer(), genLayer(),
	))

	properties.TestingRun(t)
}

func TestDelta_SingleOverrideKey(t *testing.T) {
	r := newResolver(t)
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 50
	properties := gopter.NewProperties(parameters)

	properties.Property("one override key yields exactly that delta path", prop.ForAll(
		func(key, value string) bool {
			resolved, err := r.Resolve("healthcare", values.Map{"overrides": map[string]any{key: value}}, nil)
			if err != nil {
				return false
			}
			delta, err := r.Delta("healthcare", resolved)
			if err != nil {
				return false
			}
			return cmp.Equal([]string{"overrides." + key}, DeltaPaths(delta))
		},
		gen.Identifier(), gen.AlphaString(),
	))

	properties.TestingRun(t)
}

func TestResolve_UnknownProfile(t *testing.T) {
	r := newResolver(t)
	_, err := r.Resolve("retail", nil, nil)
	require.ErrorIs(t, err, ErrUnknownProfile)
	assert.Contains(t, err.Error(), "retail")

	_, err = r.Delta("retail", values.Map{})
	assert.ErrorIs(t, err, ErrUnknownProfile)
}

func TestResolve_BaselineShape(t *testing.T) {
	r := newResolver(t)
	cfg, err := r.Resolve("financial-services", nil, nil)
	require.NoError(t, err)

	assert.Equal(t, "", cfg.Get("clientName"))
	assert.Equal(t, "financial-services", cfg.Get("industry"))
	assert.Equal(t, map[string]any{}, cfg.Get("overrides"))
	assert.Nil(t, cfg.Get("metadata.createdAt"))
	assert.Nil(t, cfg.Get("metadata.updatedAt"))
	assert.Equal(t, SchemaVersion, cfg.Get("metadata.version"))
	assert.Equal(t, []any{}, cfg.Get("metadata.generationHistory"))
	assert.Equal(t, float64(5), cfg.Get("classification.tierCount"))
}

func TestResolve_LayerPrecedence(t *testing.T) {
	r := newResolver(t)
	client := values.Map{
		"clientName": "Acme Corp",
		"naming":     map[string]any{"orgPrefix": "acme"},
		"classification": map[string]any{
			"tierLabels": []any{"Open", "Closed"},
		},
	}
	artifact := values.Map{
		"naming": map[string]any{"orgPrefix": "acm2"},
	}

	cfg, err := r.Resolve("manufacturing", client, artifact)
	require.NoError(t, err)

	assert.Equal(t, "Acme Corp", cfg.String("clientName"))
	assert.Equal(t, "acm2", cfg.String("naming.orgPrefix"))
	assert.Equal(t, "_", cfg.String("naming.separator"))
	assert.Equal(t, []string{"Open", "Closed"}, cfg.Strings("classification.tierLabels"))
	assert.Equal(t, float64(4), cfg.Get("classification.tierCount"))
}

func TestResolve_FreshEachCall(t *testing.T) {
	r := newResolver(t)
	client := values.Map{"naming": map[string]any{"orgPrefix": "acme"}}

	first, err := r.Resolve("manufacturing", client, nil)
	require.NoError(t, err)
	first.Set("naming.orgPrefix", "changed")
	first.Set("modules.recommended", []any{})

	second, err := r.Resolve("manufacturing", client, nil)
	require.NoError(t, err)
	assert.Equal(t, "acme", second.String("naming.orgPrefix"))
	assert.Len(t, second.Strings("modules.recommended"), 6)
	assert.Equal(t, "acme", client.String("naming.orgPrefix"))
}

func TestDelta_PureBaselineIsEmpty(t *testing.T) {
	r := newResolver(t)
	for _, id := range []string{"manufacturing", "financial-services", "healthcare", "_template"} {
		t.Run(id, func(t *testing.T) {
			cfg, err := r.Resolve(id, nil, nil)
			require.NoError(t, err)
			cfg.Set("metadata.updatedAt", "2026-01-01T00:00:00Z")

			delta, err := r.Delta(id, cfg)
			require.NoError(t, err)
			assert.Empty(t, delta)
		})
	}
}

func TestDelta_NestedChange(t *testing.T) {
	r := newResolver(t)
	cfg, err := r.Resolve("manufacturing", values.Map{
		"clientName": "Acme",
		"adapters": map[string]any{
			"enabled": []any{"fabric"},
			"config":  map[string]any{"fabric": map[string]any{"medallionEnabled": false}},
		},
	}, nil)
	require.NoError(t, err)

	delta, err := r.Delta("manufacturing", cfg)
	require.NoError(t, err)
	assert.Equal(t, []string{
		"adapters.config.fabric.medallionEnabled",
		"adapters.enabled",
		"clientName",
	}, DeltaPaths(delta))
}

func TestRenderDelta(t *testing.T) {
	r := newResolver(t)
	cfg, err := r.Resolve("healthcare", values.Map{"naming": map[string]any{"orgPrefix": "zzq"}}, nil)
	require.NoError(t, err)

	out, err := r.RenderDelta("healthcare", cfg)
	require.NoError(t, err)
	assert.Contains(t, out, "zzq")

	base, err := r.Resolve("healthcare", nil, nil)
	require.NoError(t, err)
	out, err = r.RenderDelta("healthcare", base)
	require.NoError(t, err)
	assert.NotContains(t, out, "zzq")
}

func TestValidate(t *testing.T) {
	complete := func() values.Map {
		return values.Map{
			"clientName": "Acme",
			"industry":   "manufacturing",
			"naming":     map[string]any{"orgPrefix": "ACM"},
			"modules":    map[string]any{"selected": []any{"classification"}},
			"adapters":   map[string]any{"enabled": []any{"fabric"}},
			"classification": map[string]any{
				"tierCount":  float64(2),
				"tierLabels": []any{"Public", "Internal"},
			},
		}
	}

	tests := []struct {
		name     string
		mutate   func(values.Map)
		valid    bool
		missing  []string
		warnings []string
	}{
		{
			name:   "complete",
			mutate: func(values.Map) {},
			valid:  true,
		},
		{
			name:    "missing client name",
			mutate:  func(m values.Map) { m.Delete("clientName") },
			missing: []string{"clientName"},
		},
		{
			name:    "empty industry",
			mutate:  func(m values.Map) { m.Set("industry", "") },
			missing: []string{"industry"},
		},
		{
			name:    "missing org prefix",
			mutate:  func(m values.Map) { m.Delete("naming.orgPrefix") },
			missing: []string{"naming.orgPrefix"},
		},
		{
			name:     "no modules",
			mutate:   func(m values.Map) { m.Delete("modules") },
			valid:    true,
			warnings: []string{"no modules selected"},
		},
		{
			name: "recommended modules only",
			mutate: func(m values.Map) {
				m.Delete("modules.selected")
				m.Set("modules.recommended", []any{"retention"})
			},
			valid: true,
		},
		{
			name:     "no adapters",
			mutate:   func(m values.Map) { m.Set("adapters.enabled", []any{}) },
			valid:    true,
			warnings: []string{"no adapters enabled"},
		},
		{
			name:     "tier count mismatch",
			mutate:   func(m values.Map) { m.Set("classification.tierCount", float64(4)) },
			valid:    true,
			warnings: []string{"classification.tierCount (4) does not match tierLabels length (2)"},
		},
		{
			name:     "tier labels without count",
			mutate:   func(m values.Map) { m.Delete("classification.tierCount") },
			valid:    true,
			warnings: []string{"classification.tierCount (unset) does not match tierLabels length (2)"},
		},
		{
			name:   "no classification at all",
			mutate: func(m values.Map) { m.Delete("classification") },
			valid:  true,
		},
		{
			name: "warnings and missing together",
			mutate: func(m values.Map) {
				m.Delete("clientName")
				m.Delete("adapters")
			},
			missing:  []string{"clientName"},
			warnings: []string{"no adapters enabled"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := complete()
			tt.mutate(cfg)
			got := Validate(cfg)

			assert.Equal(t, tt.valid, got.Valid)
			if tt.missing == nil {
				assert.Empty(t, got.Missing)
			} else {
				assert.Equal(t, tt.missing, got.Missing)
			}
			require.Len(t, got.Warnings, len(tt.warnings), "warnings: %v", got.Warnings)
			for i, w := range tt.warnings {
				assert.Contains(t, got.Warnings[i], w)
			}
		})
	}
}
