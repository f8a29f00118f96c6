package llmgateway

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/osforge/osforge/cost"
	"github.com/osforge/osforge/llm"
	"github.com/osforge/osforge/types"
)

type fakeProvider struct {
	name      string
	responses []*llm.ChatResponse
	errs      []error
	calls     int
}

func (f *fakeProvider) Completion(ctx context.Context, req *llm.ChatRequest) (*llm.ChatResponse, error) {
	i := f.calls
	f.calls++
	var err error
	if i < len(f.errs) {
		err = f.errs[i]
	}
	if err != nil {
		return nil, err
	}
	if i < len(f.responses) {
		return f.responses[i], nil
	}
	return f.responses[len(f.responses)-1], nil
}

func (f *fakeProvider) Stream(ctx context.Context, req *llm.ChatRequest) (<-chan llm.StreamChunk, error) {
	return nil, nil
}
func (f *fakeProvider) HealthCheck(ctx context.Context) (*llm.HealthStatus, error) {
	return &llm.HealthStatus{Healthy: true}, nil
}
func (f *fakeProvider) Name() string                         { return f.name }
func (f *fakeProvider) SupportsNativeFunctionCalling() bool   { return true }
func (f *fakeProvider) ListModels(ctx context.Context) ([]llm.Model, error) { return nil, nil }

func textResponse(text string) *llm.ChatResponse {
	return &llm.ChatResponse{
		Model:   "claude-sonnet-4",
		Choices: []llm.ChatChoice{{Message: types.NewAssistantMessage(text), FinishReason: "stop"}},
		Usage:   llm.ChatUsage{PromptTokens: 100, CompletionTokens: 50, TotalTokens: 150},
	}
}

func TestSendMessageRoutesByPrefix(t *testing.T) {
	p := &fakeProvider{name: "anthropic", responses: []*llm.ChatResponse{textResponse("hello")}}
	gw := New(map[string]llm.Provider{"anthropic": p}, nil, DefaultConfig(), nil)

	resp, err := gw.SendMessage(context.Background(), "dev-01", "you are helpful", nil, nil, 0.2, "anthropic/claude-sonnet-4")
	require.NoError(t, err)
	assert.Equal(t, "hello", resp.Text)
	assert.Equal(t, "stop", resp.FinishReason)
}

func TestSendMessageUnknownProvider(t *testing.T) {
	gw := New(map[string]llm.Provider{}, nil, DefaultConfig(), nil)
	_, err := gw.SendMessage(context.Background(), "dev-01", "", nil, nil, 0, "ghost/model-x")
	assert.ErrorIs(t, err, ErrUnknownProvider)
}

func TestSendMessageMalformedModelID(t *testing.T) {
	gw := New(map[string]llm.Provider{}, nil, DefaultConfig(), nil)
	_, err := gw.SendMessage(context.Background(), "dev-01", "", nil, nil, 0, "no-slash-here")
	assert.ErrorIs(t, err, ErrUnknownProvider)
}

func TestSendMessageRetriesOnceOnRateLimit(t *testing.T) {
	p := &fakeProvider{
		name: "anthropic",
		errs: []error{types.NewError(types.ErrRateLimit, "slow down").WithRetryable(true)},
		responses: []*llm.ChatResponse{
			nil,
			textResponse("recovered"),
		},
	}
	cfg := DefaultConfig()
	cfg.RateLimitBackoff = time.Millisecond
	gw := New(map[string]llm.Provider{"anthropic": p}, nil, cfg, nil)

	resp, err := gw.SendMessage(context.Background(), "dev-01", "", nil, nil, 0, "anthropic/claude-sonnet-4")
	require.NoError(t, err)
	assert.Equal(t, "recovered", resp.Text)
	assert.Equal(t, 2, p.calls)
}

func TestSendMessageRejectedWhenBudgetExceeded(t *testing.T) {
	tracker := cost.New(cost.NewPriceTable(), 0.01, 0, nil)
	tracker.Record("dev-01", "anthropic", "claude-opus-4", 1000, 1000)

	p := &fakeProvider{name: "anthropic", responses: []*llm.ChatResponse{textResponse("nope")}}
	gw := New(map[string]llm.Provider{"anthropic": p}, tracker, DefaultConfig(), nil)

	_, err := gw.SendMessage(context.Background(), "dev-01", "", nil, nil, 0, "anthropic/claude-sonnet-4")
	assert.ErrorIs(t, err, cost.ErrBudgetExceeded)
	assert.Equal(t, 0, p.calls)
}

func TestSendMessageRecordsCost(t *testing.T) {
	tracker := cost.New(cost.NewPriceTable(), 0, 0, nil)
	p := &fakeProvider{name: "anthropic", responses: []*llm.ChatResponse{textResponse("hi")}}
	gw := New(map[string]llm.Provider{"anthropic": p}, tracker, DefaultConfig(), nil)

	_, err := gw.SendMessage(context.Background(), "dev-01", "", nil, nil, 0, "anthropic/claude-sonnet-4")
	require.NoError(t, err)

	usage := tracker.Usage("dev-01")
	assert.Equal(t, 100, usage.InputTokens)
	assert.Equal(t, 50, usage.OutputTokens)
}

func TestDecodeArgumentsFallsBackToEmptyMapOnMalformedJSON(t *testing.T) {
	call := types.ToolCall{ID: "1", Name: "read_file", Arguments: []byte("{not json")}
	assert.Equal(t, map[string]any{}, DecodeArguments(call))
}

func TestDecodeArgumentsParsesValidJSON(t *testing.T) {
	call := types.ToolCall{ID: "1", Name: "read_file", Arguments: []byte(`{"path":"a.c"}`)}
	assert.Equal(t, map[string]any{"path": "a.c"}, DecodeArguments(call))
}
