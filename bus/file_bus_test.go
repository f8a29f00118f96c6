package bus

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestBus(t *testing.T) *FileBus {
	t.Helper()
	b, err := NewFileBus(t.TempDir(), nil)
	require.NoError(t, err)
	return b
}

func TestMessageRoundTrip(t *testing.T) {
	b := newTestBus(t)

	require.NoError(t, b.Send(&Message{
		Type:    TypeTaskComplete,
		From:    "dev-01",
		To:      "reviewer-01",
		Payload: map[string]any{"task_id": "boot-001"},
	}))

	msgs, err := b.Receive("reviewer-01", true)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, "dev-01", msgs[0].From)
	assert.Equal(t, "boot-001", msgs[0].Payload["task_id"])

	msgs, err = b.Receive("reviewer-01", true)
	require.NoError(t, err)
	assert.Len(t, msgs, 1, "message stays unread until mark_read is called")

	require.NoError(t, b.MarkRead("reviewer-01", msgs[0].ID))
	msgs, err = b.Receive("reviewer-01", true)
	require.NoError(t, err)
	assert.Empty(t, msgs)
}

func TestMarkReadOnMissingMessageIsNoop(t *testing.T) {
	b := newTestBus(t)
	assert.NoError(t, b.MarkRead("nobody", "does-not-exist"))
}

func TestBroadcastExcludesSender(t *testing.T) {
	b := newTestBus(t)
	require.NoError(t, b.Send(&Message{Type: TypeStatusUpdate, From: "manager-01", To: "dev-01", Payload: nil}))
	require.NoError(t, b.Send(&Message{Type: TypeStatusUpdate, From: "manager-01", To: "dev-02", Payload: nil}))

	require.NoError(t, b.Broadcast("manager-01", TypeEscalation, map[string]any{"reason": "budget"}))

	for _, recipient := range []string{"dev-01", "dev-02"} {
		msgs, err := b.Receive(recipient, true)
		require.NoError(t, err)
		found := false
		for _, m := range msgs {
			if m.Type == TypeEscalation {
				found = true
			}
		}
		assert.True(t, found, "expected broadcast message in %s inbox", recipient)
	}

	msgs, err := b.Receive("manager-01", true)
	require.NoError(t, err)
	assert.Empty(t, msgs, "sender should not receive its own broadcast")
}

func TestGetConversationFiltersBySenderRecipientSet(t *testing.T) {
	b := newTestBus(t)
	require.NoError(t, b.Send(&Message{Type: TypeReviewRequest, From: "dev-01", To: "reviewer-01"}))
	require.NoError(t, b.Send(&Message{Type: TypeReviewResult, From: "reviewer-01", To: "dev-01"}))
	require.NoError(t, b.Send(&Message{Type: TypeStatusUpdate, From: "dev-02", To: "reviewer-01"}))

	convo, err := b.GetConversation("dev-01", "reviewer-01")
	require.NoError(t, err)
	require.Len(t, convo, 2)
}
