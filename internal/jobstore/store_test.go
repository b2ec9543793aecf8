// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package jobstore

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Dudoxx/extractor-merger/pkg/types"
)

func testResult() *types.JobResult {
	return &types.JobResult{
		Record: types.MergedRecord{
			"patient_name":    types.ScalarValue("John Doe"),
			"medical_history": types.ListValue("Diabetes (2010)", "Hypertension"),
		},
		Fields:       []string{"patient_name", "medical_history"},
		Segments:     3,
		BackendCalls: 4,
		Conflicts: []types.Conflict{
			{Field: "patient_name", Kept: "John Doe", Discarded: "Jane Doe", SegmentIndex: 2},
		},
		Elapsed: 1500 * time.Millisecond,
	}
}

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := NewStore(types.HistoryConfig{HistoryDir: t.TempDir()})
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestSaveAndGet(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	id, err := store.Save(ctx, "patient.txt", testResult())
	require.NoError(t, err)
	assert.Greater(t, id, int64(0))

	job, err := store.Get(ctx, id)
	require.NoError(t, err)

	assert.Equal(t, "patient.txt", job.Input)
	assert.Equal(t, []string{"patient_name", "medical_history"}, job.Fields)
	assert.Equal(t, 3, job.Segments)
	assert.Equal(t, 4, job.BackendCalls)
	assert.Equal(t, 1500*time.Millisecond, job.Elapsed)
	assert.False(t, job.CreatedAt.IsZero())

	assert.Equal(t, "John Doe", job.Record["patient_name"].Scalar)
	history := job.Record["medical_history"]
	assert.True(t, history.IsList)
	assert.Equal(t, []string{"Diabetes (2010)", "Hypertension"}, history.List)

	require.Len(t, job.Conflicts, 1)
	assert.Equal(t, "Jane Doe", job.Conflicts[0].Discarded)
}

func TestGet_NotFound(t *testing.T) {
	store := newTestStore(t)

	_, err := store.Get(context.Background(), 999)
	assert.ErrorContains(t, err, "job 999 not found")
}

func TestList_NewestFirst(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	for _, input := range []string{"a.txt", "b.txt", "c.txt"} {
		_, err := store.Save(ctx, input, testResult())
		require.NoError(t, err)
	}

	jobs, err := store.List(ctx, 0)
	require.NoError(t, err)
	require.Len(t, jobs, 3)
	assert.Equal(t, "c.txt", jobs[0].Input)
	assert.Equal(t, "a.txt", jobs[2].Input)
}

func TestList_Limit(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		_, err := store.Save(ctx, "input.txt", testResult())
		require.NoError(t, err)
	}

	jobs, err := store.List(ctx, 2)
	require.NoError(t, err)
	assert.Len(t, jobs, 2)

	all, err := store.List(ctx, -1)
	require.NoError(t, err)
	assert.Len(t, all, 5)
}

func TestList_DefaultLimit(t *testing.T) {
	store, err := NewStore(types.HistoryConfig{HistoryDir: t.TempDir(), MaxResults: 2})
	require.NoError(t, err)
	defer store.Close()
	ctx := context.Background()

	for i := 0; i < 4; i++ {
		_, err := store.Save(ctx, "input.txt", testResult())
		require.NoError(t, err)
	}

	jobs, err := store.List(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, jobs, 2)
}

func TestExport(t *testing.T) {
	dir := t.TempDir()
	store, err := NewStore(types.HistoryConfig{HistoryDir: dir})
	require.NoError(t, err)
	defer store.Close()
	ctx := context.Background()

	_, err = store.Save(ctx, "patient.txt", testResult())
	require.NoError(t, err)

	require.NoError(t, store.ExportYAML(ctx))
	require.NoError(t, store.ExportJSON(ctx))

	yamlData, err := os.ReadFile(filepath.Join(dir, "export.yaml"))
	require.NoError(t, err)
	assert.Contains(t, string(yamlData), "patient.txt")
	assert.Contains(t, string(yamlData), "John Doe")

	jsonData, err := os.ReadFile(filepath.Join(dir, "export.json"))
	require.NoError(t, err)
	assert.Contains(t, string(jsonData), `"patient.txt"`)
}

func TestNewStore_CreatesHistoryDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "history")
	store, err := NewStore(types.HistoryConfig{HistoryDir: dir})
	require.NoError(t, err)
	defer store.Close()

	_, err = os.Stat(filepath.Join(dir, dbFile))
	assert.NoError(t, err)
}
