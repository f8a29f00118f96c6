package runstate

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "meta", "state.json")
	now := time.Unix(1700000000, 0)

	s := New("run-1", "build a kernel", now)
	s.TasksCreated = 5
	s.TotalCostUSD = 1.25
	require.NoError(t, s.Save(path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "run-1", loaded.RunID)
	assert.Equal(t, 5, loaded.TasksCreated)
	assert.Equal(t, 1.25, loaded.TotalCostUSD)
	assert.Equal(t, PhaseInit, loaded.Phase)
}

func TestLoadOrCreateCreatesWhenMissing(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	s, err := LoadOrCreate(path, "run-2", "train a model", time.Now())
	require.NoError(t, err)
	assert.Equal(t, "run-2", s.RunID)
}

func TestRecordErrorAppends(t *testing.T) {
	s := New("run-3", "goal", time.Now())
	s.RecordError("dev-01", "boom", "task-1", time.Now())
	require.Len(t, s.Errors, 1)
	assert.Equal(t, "boom", s.Errors[0].Error)
}
