package values

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalize_Integers(t *testing.T) {
	got := Normalize(map[string]any{
		"tierCount": 4,
		"nested":    map[any]any{"n": int64(3)},
		"labels":    []string{"a", "b"},
	})
	want := map[string]any{
		"tierCount": float64(4),
		"nested":    map[string]any{"n": float64(3)},
		"labels":    []any{"a", "b"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Normalize mismatch (-want +got):\n%s", diff)
	}
}

func TestLookup(t *testing.T) {
	m := FromAny(map[string]any{
		"naming": map[string]any{"orgPrefix": "acme"},
		"labels": []any{"Public", "Internal"},
	})

	v, ok := m.Lookup("naming.orgPrefix")
	require.True(t, ok)
	assert.Equal(t, "acme", v)

	v, ok = m.Lookup("labels.1")
	require.True(t, ok)
	assert.Equal(t, "Internal", v)

	_, ok = m.Lookup("naming.missing")
	assert.False(t, ok)
	_, ok = m.Lookup("labels.7")
	assert.False(t, ok)
	_, ok = m.Lookup("")
	assert.False(t, ok)
}

func TestSet_CreatesIntermediates(t *testing.T) {
	m := Map{"naming": "flat"}
	m.Set("naming.orgPrefix", "acme")
	m.Set("adapters.config.fabric.tenantId", "t-1")

	assert.Equal(t, "acme", m.String("naming.orgPrefix"))
	assert.Equal(t, "t-1", m.String("adapters.config.fabric.tenantId"))
}

func TestDelete(t *testing.T) {
	m := FromAny(map[string]any{"a": map[string]any{"b": 1, "c": 2}})
	assert.True(t, m.Delete("a.b"))
	assert.False(t, m.Delete("a.b"))
	assert.False(t, m.Delete("x.y"))
	assert.Equal(t, Map{"c": float64(2)}, m.Sub("a"))
}

func TestDeepMerge_SequencesReplaced(t *testing.T) {
	target := FromAny(map[string]any{
		"classification": map[string]any{
			"tierCount":  4,
			"tierLabels": []any{"Public", "Internal", "Confidential", "Restricted"},
		},
	})
	source := FromAny(map[string]any{
		"classification": map[string]any{
			"tierLabels": []any{"Open"},
		},
	})

	got := DeepMerge(target, source)
	assert.Equal(t, []string{"Open"}, got.Strings("classification.tierLabels"))
	assert.Equal(t, float64(4), got.Get("classification.tierCount"))
}

func TestDeepMerge_ScalarOverMapping(t *testing.T) {
	target := FromAny(map[string]any{"overlays": map[string]any{"itar": true}})
	source := FromAny(map[string]any{"overlays": "none"})

	got := DeepMerge(target, source)
	assert.Equal(t, "none", got.Get("overlays"))
}

func TestDeepMerge_DoesNotMutateInputs(t *testing.T) {
	target := FromAny(map[string]any{"a": map[string]any{"b": []any{"x"}}})
	source := FromAny(map[string]any{"a": map[string]any{"c": map[string]any{"d": 1}}})
	targetBefore := target.Clone()
	sourceBefore := source.Clone()

	got := DeepMerge(target, source)
	got.Set("a.c.d", 99)
	s, _ := AsSlice(got.Get("a.b"))
	s[0] = "mutated"

	if diff := cmp.Diff(targetBefore, target); diff != "" {
		t.Errorf("target mutated (-before +after):\n%s", diff)
	}
	if diff := cmp.Diff(sourceBefore, source); diff != "" {
		t.Errorf("source mutated (-before +after):\n%s", diff)
	}
}

func TestDiff(t *testing.T) {
	base := FromAny(map[string]any{
		"industry": "healthcare",
		"naming":   map[string]any{"orgPrefix": "", "separator": "_"},
		"labels":   []any{"a", "b"},
	})
	current := FromAny(map[string]any{
		"industry":   "healthcare",
		"naming":     map[string]any{"orgPrefix": "acme", "separator": "_"},
		"labels":     []any{"a", "b"},
		"clientName": "Acme",
	})

	got := Diff(base, current)
	want := Map{
		"naming":     map[string]any{"orgPrefix": "acme"},
		"clientName": "Acme",
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Diff mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, []string{"clientName", "naming.orgPrefix"}, Paths(got))
}

func TestDiff_Identical(t *testing.T) {
	m := FromAny(map[string]any{"a": map[string]any{"b": 1}, "c": []any{1, 2}})
	assert.Empty(t, Diff(m, m.Clone()))
}

func TestEqual_NumericKinds(t *testing.T) {
	assert.True(t, Equal(4, float64(4)))
	assert.True(t, Equal([]string{"a"}, []any{"a"}))
	assert.False(t, Equal([]any{"a", "b"}, []any{"b", "a"}))
}

func TestCompact(t *testing.T) {
	m := FromAny(map[string]any{
		"metadata": map[string]any{"createdAt": nil, "version": "1.0.0"},
		"list":     []any{nil, "x"},
	})
	got := Compact(m)
	assert.Equal(t, Map{"version": "1.0.0"}, got.Sub("metadata"))
	assert.Equal(t, []string{"x"}, got.Strings("list"))
	assert.Nil(t, m.Sub("metadata")["createdAt"])
}
