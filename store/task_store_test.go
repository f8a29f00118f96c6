package store

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/osforge/osforge/graph"
)

func TestFileTaskStoreSaveLoadRoundTrip(t *testing.T) {
	s, err := NewFileTaskStore(t.TempDir(), nil)
	require.NoError(t, err)

	task := &graph.Task{ID: "a", Title: "do the thing", Priority: 1, State: graph.StatePending}
	require.NoError(t, s.Save(task))

	loaded, err := s.Load("a")
	require.NoError(t, err)
	assert.Equal(t, "do the thing", loaded.Title)
	assert.False(t, loaded.UpdatedAt.IsZero())
}

func TestFileTaskStoreLoadMissing(t *testing.T) {
	s, err := NewFileTaskStore(t.TempDir(), nil)
	require.NoError(t, err)

	_, err = s.Load("nope")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrTaskNotFound))
}

func TestFileTaskStoreRehydratesFromDisk(t *testing.T) {
	dir := t.TempDir()
	s1, err := NewFileTaskStore(dir, nil)
	require.NoError(t, err)
	require.NoError(t, s1.Save(&graph.Task{ID: "a", Title: "first"}))

	s2, err := NewFileTaskStore(dir, nil)
	require.NoError(t, err)
	loaded, err := s2.Load("a")
	require.NoError(t, err)
	assert.Equal(t, "first", loaded.Title)
}

func TestFileTaskStoreLoadAllSortedByCreatedAt(t *testing.T) {
	s, err := NewFileTaskStore(t.TempDir(), nil)
	require.NoError(t, err)
	require.NoError(t, s.Save(&graph.Task{ID: "b"}))
	require.NoError(t, s.Save(&graph.Task{ID: "a"}))

	all, err := s.LoadAll()
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "b", all[0].ID)
	assert.Equal(t, "a", all[1].ID)
}
