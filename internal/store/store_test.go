package store

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dusk-indust/govgen/internal/values"
)

var fixedNow = time.Date(2024, 5, 6, 7, 8, 9, 0, time.UTC)

func openTemp(t *testing.T) (*Store, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "state", "config.json")
	s, err := Open(path, WithClock(func() time.Time { return fixedNow }))
	require.NoError(t, err)
	return s, path
}

func TestOpen_MissingFileIsFirstRun(t *testing.T) {
	s, path := openTemp(t)
	assert.True(t, s.IsFirstRun())
	assert.Equal(t, path, s.Path())
	assert.Equal(t, Default(), s.Snapshot())
	_, err := os.Stat(path)
	assert.True(t, errors.Is(err, os.ErrNotExist))
}

func TestSet_PersistsAndStampsMetadata(t *testing.T) {
	s, path := openTemp(t)
	require.NoError(t, s.Set("naming.orgPrefix", "acme"))
	require.NoError(t, s.Set("classification.tierCount", 3))

	assert.False(t, s.IsFirstRun())
	assert.Equal(t, "acme", s.Get("naming.orgPrefix"))
	assert.Equal(t, float64(3), s.Get("classification.tierCount"))
	assert.Equal(t, "2024-05-06T07:08:09Z", s.Get("metadata.createdAt"))
	assert.Equal(t, "2024-05-06T07:08:09Z", s.Get("metadata.updatedAt"))

	reopened, err := Open(path)
	require.NoError(t, err)
	assert.False(t, reopened.IsFirstRun())
	assert.Equal(t, "acme", reopened.Get("naming.orgPrefix"))
	if diff := cmp.Diff(s.Snapshot(), reopened.Snapshot()); diff != "" {
		t.Errorf("reopened document mismatch (-want +got):\n%s", diff)
	}
}

func TestSet_EmptyPath(t *testing.T) {
	assert.Error(t, NewMemory().Set("", 1))
}

func TestCreatedAtKeptAcrossSaves(t *testing.T) {
	now := fixedNow
	s := NewMemory(WithClock(func() time.Time { return now }))
	require.NoError(t, s.Set("clientName", "A"))
	now = now.Add(time.Hour)
	require.NoError(t, s.Set("clientName", "B"))

	assert.Equal(t, "2024-05-06T07:08:09Z", s.Get("metadata.createdAt"))
	assert.Equal(t, "2024-05-06T08:08:09Z", s.Get("metadata.updatedAt"))
}

func TestOpen_LayersFileOverDefault(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"clientName":"Acme","naming":{"orgPrefix":"acme"}}`), 0o644))

	s, err := Open(path)
	require.NoError(t, err)
	assert.Equal(t, "Acme", s.Get("clientName"))
	assert.Equal(t, "_", s.Get("naming.separator"))
	assert.Equal(t, "d", s.Get("naming.envCodes.dev"))
}

func TestOpen_Corrupt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte("{"), 0o644))
	_, err := Open(path)
	assert.Error(t, err)
}

func TestGet_ReturnsCopy(t *testing.T) {
	s := NewMemory()
	labels := s.Get("classification.tierLabels").([]any)
	labels[0] = "mutated"
	assert.Equal(t, "Public", s.Get("classification.tierLabels.0"))

	snap := s.Snapshot()
	snap.Set("clientName", "changed")
	assert.Equal(t, "", s.Get("clientName"))
}

func TestMerge(t *testing.T) {
	s := NewMemory()
	require.NoError(t, s.Merge(values.FromAny(map[string]any{
		"naming":         map[string]any{"orgPrefix": "acme"},
		"classification": map[string]any{"tierLabels": []any{"Open", "Closed"}},
	})))
	assert.Equal(t, "acme", s.Get("naming.orgPrefix"))
	assert.Equal(t, "_", s.Get("naming.separator"))
	assert.Equal(t, []any{"Open", "Closed"}, s.Get("classification.tierLabels"))
}

func TestReplace(t *testing.T) {
	s := NewMemory()
	require.NoError(t, s.Set("industry", "healthcare"))
	require.NoError(t, s.Replace(values.Map{"clientName": "Acme"}))
	assert.Equal(t, "Acme", s.Get("clientName"))
	assert.Equal(t, "", s.Get("industry"))
	assert.Equal(t, "azure", s.Get("environment.cloud"))
}

func TestAppendHistory_Bounded(t *testing.T) {
	s := NewMemory()
	for i := 0; i < 25; i++ {
		require.NoError(t, s.AppendHistory(HistoryRecord{
			Timestamp: fixedNow.Add(time.Duration(i) * time.Minute),
			RunID:     string(rune('a' + i)),
			Units:     []string{"purview"},
			FileCount: i,
			Success:   true,
		}, 0))
	}
	hist, err := s.History()
	require.NoError(t, err)
	require.Len(t, hist, DefaultHistoryLimit)
	assert.Equal(t, 5, hist[0].FileCount)
	assert.Equal(t, 24, hist[len(hist)-1].FileCount)
	assert.True(t, hist[0].Timestamp.Equal(fixedNow.Add(5*time.Minute)))

	require.NoError(t, s.AppendHistory(HistoryRecord{RunID: "z"}, 3))
	hist, err = s.History()
	require.NoError(t, err)
	assert.Len(t, hist, 3)
	assert.Equal(t, "z", hist[2].RunID)
}

func TestReset(t *testing.T) {
	s, path := openTemp(t)
	require.NoError(t, s.Set("clientName", "Acme"))
	_, err := os.Stat(path)
	require.NoError(t, err)

	require.NoError(t, s.Reset())
	assert.True(t, s.IsFirstRun())
	assert.Equal(t, "", s.Get("clientName"))
	_, err = os.Stat(path)
	assert.True(t, errors.Is(err, os.ErrNotExist))

	require.NoError(t, NewMemory().Reset())
}

func TestSubscribe(t *testing.T) {
	s := NewMemory()
	var seen []string
	unsubscribe := s.Subscribe(func(doc values.Map) {
		seen = append(seen, doc.String("clientName"))
	})
	require.NoError(t, s.Set("clientName", "A"))
	require.NoError(t, s.Set("clientName", "B"))
	unsubscribe()
	require.NoError(t, s.Set("clientName", "C"))
	assert.Equal(t, []string{"A", "B"}, seen)
}

func TestExportImport_RoundTrip(t *testing.T) {
	for _, format := range []Format{FormatJSON, FormatYAML, FormatTOML} {
		t.Run(string(format), func(t *testing.T) {
			src := NewMemory(WithClock(func() time.Time { return fixedNow }))
			require.NoError(t, src.Merge(values.FromAny(map[string]any{
				"clientName": "Acme",
				"naming":     map[string]any{"orgPrefix": "acme"},
				"adapters": map[string]any{
					"enabled": []any{"purview", "webhook"},
					"config":  map[string]any{"purview": map[string]any{"labelPrefix": "ACME"}},
				},
			})))

			data, err := src.Export(format)
			require.NoError(t, err)

			dst := NewMemory(WithClock(func() time.Time { return fixedNow }))
			require.NoError(t, dst.Import(data, format))
			assert.Equal(t, "Acme", dst.Get("clientName"))
			assert.Equal(t, []any{"purview", "webhook"}, dst.Get("adapters.enabled"))
			assert.Equal(t, "ACME", dst.Get("adapters.config.purview.labelPrefix"))
			assert.Equal(t, float64(4), dst.Get("classification.tierCount"))
			assert.Equal(t, []any{"Public", "Internal", "Confidential", "Restricted"}, dst.Get("classification.tierLabels"))
		})
	}
}

func TestExport_JSONIsIndented(t *testing.T) {
	data, err := NewMemory().Export(FormatJSON)
	require.NoError(t, err)
	var doc map[string]any
	require.NoError(t, json.Unmarshal(data, &doc))
	assert.Contains(t, string(data), "\n  \"clientName\": \"\"")
}

func TestImport_Errors(t *testing.T) {
	s := NewMemory()
	assert.Error(t, s.Import([]byte("{"), FormatJSON))
	assert.Error(t, s.Import([]byte("a = "), FormatTOML))
	err := s.Import([]byte("{}"), Format("xml"))
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
	assert.True(t, s.IsFirstRun())
}

func TestParseFormat(t *testing.T) {
	cases := map[string]Format{"json": FormatJSON, ".yml": FormatYAML, "YAML": FormatYAML, "toml": FormatTOML}
	for in, want := range cases {
		got, err := ParseFormat(in)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
	_, err := ParseFormat("ini")
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
}
