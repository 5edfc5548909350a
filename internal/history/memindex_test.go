package history

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2024, 5, 6, 7, 8, 9, 0, time.UTC)

func sampleRuns() []Run {
	return []Run{
		{ID: "run-1", Timestamp: t0, Client: "Acme", Units: []string{"purview", "fabric"}, Modules: []string{"ISL-01"}, FileCount: 9, Success: true},
		{ID: "run-2", Timestamp: t0.Add(time.Hour), Client: "Acme", Units: []string{"webhook"}, Modules: []string{"ISL-01", "ISL-04"}, FileCount: 4, Success: false},
		{ID: "run-3", Timestamp: t0.Add(2 * time.Hour), Client: "Acme", Units: []string{"fabric", "purview"}, Modules: []string{"ISL-04"}, FileCount: 10, Success: true},
	}
}

func ids(runs []Run) []string {
	out := make([]string, len(runs))
	for i, r := range runs {
		out[i] = r.ID
	}
	return out
}

// runIndexContract exercises behavior every Index implementation shares.
func runIndexContract(t *testing.T, idx Index) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, idx.InitSchema(ctx))
	for _, r := range sampleRuns() {
		require.NoError(t, idx.Record(ctx, r))
	}

	t.Run("recent newest first", func(t *testing.T) {
		runs, err := idx.Recent(ctx, 0)
		require.NoError(t, err)
		assert.Equal(t, []string{"run-3", "run-2", "run-1"}, ids(runs))
		assert.Equal(t, []string{"fabric", "purview"}, runs[0].Units, "units keep recorded order")
		assert.Equal(t, 10, runs[0].FileCount)
		assert.True(t, runs[0].Timestamp.Equal(t0.Add(2*time.Hour)))
		assert.False(t, runs[1].Success)
	})

	t.Run("limit", func(t *testing.T) {
		runs, err := idx.Recent(ctx, 2)
		require.NoError(t, err)
		assert.Equal(t, []string{"run-3", "run-2"}, ids(runs))
	})

	t.Run("for unit", func(t *testing.T) {
		runs, err := idx.ForUnit(ctx, "purview", 10)
		require.NoError(t, err)
		assert.Equal(t, []string{"run-3", "run-1"}, ids(runs))

		runs, err = idx.ForUnit(ctx, "unknown", 10)
		require.NoError(t, err)
		assert.Empty(t, runs)
	})

	t.Run("for module", func(t *testing.T) {
		runs, err := idx.ForModule(ctx, "ISL-01", 10)
		require.NoError(t, err)
		assert.Equal(t, []string{"run-2", "run-1"}, ids(runs))
		assert.Equal(t, []string{"ISL-01", "ISL-04"}, runs[0].Modules)
	})

	t.Run("stats", func(t *testing.T) {
		st, err := idx.Stats(ctx)
		require.NoError(t, err)
		assert.Equal(t, &Stats{Runs: 3, Failures: 1, Units: 3, Modules: 2}, st)
	})

	t.Run("rejects empty id", func(t *testing.T) {
		assert.Error(t, idx.Record(ctx, Run{}))
	})
}

func TestMemIndex_Contract(t *testing.T) {
	idx := NewMemIndex()
	t.Cleanup(func() { _ = idx.Close() })
	runIndexContract(t, idx)
}

func TestMemIndex_DuplicateRun(t *testing.T) {
	idx := NewMemIndex()
	ctx := context.Background()
	require.NoError(t, idx.Record(ctx, Run{ID: "a"}))
	assert.Error(t, idx.Record(ctx, Run{ID: "a"}))
}

func TestMemIndex_CopiesSlices(t *testing.T) {
	idx := NewMemIndex()
	ctx := context.Background()
	units := []string{"purview"}
	require.NoError(t, idx.Record(ctx, Run{ID: "a", Units: units}))
	units[0] = "mutated"

	runs, err := idx.Recent(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, []string{"purview"}, runs[0].Units)
}

func TestOpen(t *testing.T) {
	idx, err := Open(context.Background(), t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { _ = idx.Close() })
	require.NoError(t, idx.Record(context.Background(), Run{ID: "a", Timestamp: t0}))
	runs, err := idx.Recent(context.Background(), 5)
	require.NoError(t, err)
	assert.Len(t, runs, 1)
}
