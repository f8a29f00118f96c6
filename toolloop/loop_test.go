package toolloop

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/osforge/osforge/llmgateway"
	"github.com/osforge/osforge/types"
)

type scriptedGateway struct {
	replies []*llmgateway.Response
	calls   int
}

func (g *scriptedGateway) SendMessage(ctx context.Context, agentID, system string, history []types.Message, tools []types.ToolSchema, temperature float32, model string) (*llmgateway.Response, error) {
	i := g.calls
	g.calls++
	if i >= len(g.replies) {
		return g.replies[len(g.replies)-1], nil
	}
	return g.replies[i], nil
}

func toolCallReply(id, name string, args string) *llmgateway.Response {
	return &llmgateway.Response{
		ToolCalls: []types.ToolCall{{ID: id, Name: name, Arguments: []byte(args)}},
	}
}

func textReply(text string) *llmgateway.Response {
	return &llmgateway.Response{Text: text, FinishReason: "stop"}
}

func TestRunReturnsImmediatelyWhenNoToolCalls(t *testing.T) {
	gw := &scriptedGateway{replies: []*llmgateway.Response{textReply("done")}}
	history, err := Run(context.Background(), gw, Config{AgentID: "dev-01", MaxTurns: 5}, nil, nil)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, "done", history[0].Content)
	assert.Equal(t, 1, gw.calls)
}

func TestRunExecutesToolCallsInOrderThenFinishes(t *testing.T) {
	gw := &scriptedGateway{replies: []*llmgateway.Response{
		toolCallReply("c1", "read_file", `{"path":"a.c"}`),
		textReply("summary"),
	}}
	var executed []string
	handlers := map[string]ToolHandler{
		"read_file": func(ctx context.Context, args map[string]any) (string, error) {
			executed = append(executed, args["path"].(string))
			return "contents", nil
		},
	}
	history, err := Run(context.Background(), gw, Config{AgentID: "dev-01", MaxTurns: 5, Handlers: handlers}, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"a.c"}, executed)

	require.Len(t, history, 3)
	assert.Equal(t, types.RoleTool, history[1].Role)
	assert.Equal(t, "contents", history[1].Content)
	assert.Equal(t, "summary", history[2].Content)
}

func TestRunUnknownToolReturnsPlaceholderToModel(t *testing.T) {
	gw := &scriptedGateway{replies: []*llmgateway.Response{
		toolCallReply("c1", "nuke_everything", `{}`),
		textReply("ok"),
	}}
	history, err := Run(context.Background(), gw, Config{AgentID: "dev-01", MaxTurns: 5}, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, "unknown tool: nuke_everything", history[1].Content)
}

func TestRunStopsAtMaxTurns(t *testing.T) {
	gw := &scriptedGateway{replies: []*llmgateway.Response{
		toolCallReply("c1", "read_file", `{}`),
	}}
	handlers := map[string]ToolHandler{
		"read_file": func(ctx context.Context, args map[string]any) (string, error) { return "x", nil },
	}
	history, err := Run(context.Background(), gw, Config{AgentID: "dev-01", MaxTurns: 2, Handlers: handlers}, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, gw.calls)
	assert.NotEmpty(t, history)
}

type erroringBudget struct{}

func (erroringBudget) CheckBudget() error { return errors.New("over budget") }

func TestRunHaltsWhenBudgetExceeded(t *testing.T) {
	gw := &scriptedGateway{replies: []*llmgateway.Response{textReply("never reached")}}
	_, err := Run(context.Background(), gw, Config{AgentID: "dev-01", MaxTurns: 5, Budget: erroringBudget{}}, nil, nil)
	require.Error(t, err)
	assert.Equal(t, 0, gw.calls)
}

func TestRunToolHandlerErrorIsFoldedIntoResultText(t *testing.T) {
	gw := &scriptedGateway{replies: []*llmgateway.Response{
		toolCallReply("c1", "build_kernel", `{}`),
		textReply("ok"),
	}}
	handlers := map[string]ToolHandler{
		"build_kernel": func(ctx context.Context, args map[string]any) (string, error) {
			return "", errors.New("compiler not found")
		},
	}
	history, err := Run(context.Background(), gw, Config{AgentID: "dev-01", MaxTurns: 5, Handlers: handlers}, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, "Error executing build_kernel: compiler not found", history[1].Content)
}
