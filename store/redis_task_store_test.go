package store

import (
	"net"
	"strconv"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/require"

	"github.com/osforge/osforge/graph"
)

func newTestRedisTaskStore(t *testing.T) *RedisTaskStore {
	t.Helper()
	mr := miniredis.RunT(t)
	host, portStr, err := net.SplitHostPort(mr.Addr())
	require.NoError(t, err)
	port, err := strconv.Atoi(portStr)
	require.NoError(t, err)

	s, err := NewRedisTaskStore(RedisConfig{Host: host, Port: port}, nil)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestRedisTaskStoreSaveAndLoad(t *testing.T) {
	s := newTestRedisTaskStore(t)

	task := &graph.Task{ID: "t1", Title: "implement scheduler", State: graph.StatePending}
	require.NoError(t, s.Save(task))

	loaded, err := s.Load("t1")
	require.NoError(t, err)
	require.Equal(t, "implement scheduler", loaded.Title)
	require.False(t, loaded.CreatedAt.IsZero())
}

func TestRedisTaskStoreLoadMissingReturnsErrTaskNotFound(t *testing.T) {
	s := newTestRedisTaskStore(t)
	_, err := s.Load("ghost")
	require.ErrorIs(t, err, ErrTaskNotFound)
}

func TestRedisTaskStoreLoadAllSortedByCreatedAt(t *testing.T) {
	s := newTestRedisTaskStore(t)

	require.NoError(t, s.Save(&graph.Task{ID: "t1", State: graph.StatePending}))
	require.NoError(t, s.Save(&graph.Task{ID: "t2", State: graph.StatePending}))
	require.NoError(t, s.Save(&graph.Task{ID: "t3", State: graph.StatePending}))

	all, err := s.LoadAll()
	require.NoError(t, err)
	require.Len(t, all, 3)
	require.Equal(t, "t1", all[0].ID)
	require.Equal(t, "t2", all[1].ID)
	require.Equal(t, "t3", all[2].ID)
}
