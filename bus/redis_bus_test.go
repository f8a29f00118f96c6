package bus

import (
	"net"
	"strconv"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/require"
)

func newTestRedisBus(t *testing.T) *RedisBus {
	t.Helper()
	mr := miniredis.RunT(t)
	host, portStr, err := net.SplitHostPort(mr.Addr())
	require.NoError(t, err)
	port, err := strconv.Atoi(portStr)
	require.NoError(t, err)

	b, err := NewRedisBus(RedisConfig{Host: host, Port: port}, nil)
	require.NoError(t, err)
	t.Cleanup(func() { b.Close() })
	return b
}

func TestRedisBusSendAndReceive(t *testing.T) {
	b := newTestRedisBus(t)

	require.NoError(t, b.Send(&Message{Type: TypeTaskAssignment, From: "manager", To: "dev-01", Payload: map[string]any{"task": "t1"}}))

	msgs, err := b.Receive("dev-01", false)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	require.Equal(t, "manager", msgs[0].From)
	require.False(t, msgs[0].Read)
}

func TestRedisBusMarkReadFiltersUnreadOnly(t *testing.T) {
	b := newTestRedisBus(t)
	require.NoError(t, b.Send(&Message{ID: "m1", Type: TypeStatusUpdate, From: "dev-01", To: "manager"}))

	require.NoError(t, b.MarkRead("manager", "m1"))

	unread, err := b.Receive("manager", true)
	require.NoError(t, err)
	require.Empty(t, unread)

	all, err := b.Receive("manager", false)
	require.NoError(t, err)
	require.Len(t, all, 1)
	require.True(t, all[0].Read)
}

func TestRedisBusMarkReadOnMissingMessageIsNoop(t *testing.T) {
	b := newTestRedisBus(t)
	require.NoError(t, b.MarkRead("manager", "does-not-exist"))
}

func TestRedisBusBroadcastSkipsSender(t *testing.T) {
	b := newTestRedisBus(t)
	require.NoError(t, b.Send(&Message{ID: "seed", Type: TypeStatusUpdate, From: "dev-01", To: "dev-01"}))
	require.NoError(t, b.Send(&Message{ID: "seed2", Type: TypeStatusUpdate, From: "dev-02", To: "dev-02"}))

	require.NoError(t, b.Broadcast("dev-01", TypeEscalation, map[string]any{"reason": "stuck"}))

	fromDev01, err := b.Receive("dev-01", false)
	require.NoError(t, err)
	require.Len(t, fromDev01, 1, "sender should not receive its own broadcast")

	fromDev02, err := b.Receive("dev-02", false)
	require.NoError(t, err)
	require.Len(t, fromDev02, 2)
}

func TestRedisBusGetConversation(t *testing.T) {
	b := newTestRedisBus(t)
	require.NoError(t, b.Send(&Message{Type: TypeDesignDecision, From: "architect", To: "dev-01"}))
	require.NoError(t, b.Send(&Message{Type: TypeStatusUpdate, From: "dev-01", To: "architect"}))
	require.NoError(t, b.Send(&Message{Type: TypeStatusUpdate, From: "dev-02", To: "dev-01"}))

	conv, err := b.GetConversation("architect", "dev-01")
	require.NoError(t, err)
	require.Len(t, conv, 2)
}
