//go:build cgo

package history

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKuzuIndex_Contract(t *testing.T) {
	idx, err := NewKuzuIndex()
	require.NoError(t, err, "NewKuzuIndex should not fail")
	t.Cleanup(func() { _ = idx.Close() })
	runIndexContract(t, idx)
}

func TestKuzuIndex_DuplicateRun(t *testing.T) {
	idx, err := NewKuzuIndex()
	require.NoError(t, err)
	t.Cleanup(func() { _ = idx.Close() })
	ctx := context.Background()
	require.NoError(t, idx.InitSchema(ctx))
	require.NoError(t, idx.Record(ctx, Run{ID: "a", Timestamp: t0}))
	assert.Error(t, idx.Record(ctx, Run{ID: "a", Timestamp: t0}))
}

func TestKuzuIndex_PersistsAcrossOpens(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "hist", "runs.kuzu")

	idx, err := NewKuzuFileIndex(path)
	require.NoError(t, err)
	require.NoError(t, idx.InitSchema(ctx))
	require.NoError(t, idx.Record(ctx, Run{ID: "a", Timestamp: t0, Units: []string{"purview"}, Success: true}))
	require.NoError(t, idx.Close())

	reopened, err := NewKuzuFileIndex(path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = reopened.Close() })
	require.NoError(t, reopened.InitSchema(ctx))

	runs, err := reopened.ForUnit(ctx, "purview", 5)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, "a", runs[0].ID)
	assert.True(t, runs[0].Success)
}
