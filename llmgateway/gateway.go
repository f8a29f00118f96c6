package llmgateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/osforge/osforge/cost"
	"github.com/osforge/osforge/internal/metrics"
	"github.com/osforge/osforge/llm"
	"github.com/osforge/osforge/llm/observability"
	"github.com/osforge/osforge/llm/router"
	"github.com/osforge/osforge/types"
)

var (
	ErrUnknownProvider = errors.New("llmgateway: no provider registered for model prefix")
	ErrBudgetExceeded  = cost.ErrBudgetExceeded
)

// Response is the provider-agnostic reply returned to a caller.
type Response struct {
	Text         string
	ToolCalls    []types.ToolCall
	FinishReason string
	Model        string
	Raw          *llm.ChatResponse
}

// Config configures a Gateway's rate limiting and retry behavior.
type Config struct {
	// RequestsPerSecond bounds the shared rate of outbound calls.
	RequestsPerSecond float64
	// MaxConcurrent bounds the number of in-flight calls.
	MaxConcurrent int
	// RateLimitBackoff is the fixed sleep before the single retry on a
	// provider rate-limit response.
	RateLimitBackoff time.Duration
}

// DefaultConfig returns conservative shared-resource limits.
func DefaultConfig() Config {
	return Config{
		RequestsPerSecond: 4,
		MaxConcurrent:     4,
		RateLimitBackoff:  2 * time.Second,
	}
}

// Gateway routes chat requests to a provider selected by the model
// id's "<provider>/<model>" prefix, enforcing a shared rate limit, a
// concurrency cap, a single rate-limit retry, and cost accounting.
type Gateway struct {
	providers    map[string]llm.Provider
	prefixRouter *router.PrefixRouter
	tracker      *cost.Tracker
	limiter      *rate.Limiter
	sem          chan struct{}
	cfg          Config
	logger       *zap.Logger

	tracer  *observability.Tracer
	metrics *metrics.Collector
}

// WithTracer attaches a span tracer; every SendMessage call is then
// wrapped in an LLM-kind span. Returns g for chaining.
func (g *Gateway) WithTracer(tracer *observability.Tracer) *Gateway {
	g.tracer = tracer
	return g
}

// WithMetrics attaches a Prometheus collector; every SendMessage call
// then records request count, latency, tokens, and cost. Returns g
// for chaining.
func (g *Gateway) WithMetrics(collector *metrics.Collector) *Gateway {
	g.metrics = collector
	return g
}

// defaultPrefixRouter resolves a bare model name (no "provider/"
// prefix) to the provider that serves it, for callers that pass
// upstream model names straight through.
func defaultPrefixRouter() *router.PrefixRouter {
	return router.NewPrefixRouter([]router.PrefixRule{
		{Prefix: "gpt-", Provider: "openai"},
		{Prefix: "o1-", Provider: "openai"},
		{Prefix: "claude-", Provider: "anthropic"},
		{Prefix: "gemini-", Provider: "gemini"},
		{Prefix: "deepseek-", Provider: "deepseek"},
		{Prefix: "qwen-", Provider: "qwen"},
		{Prefix: "glm-", Provider: "glm"},
		{Prefix: "grok-", Provider: "grok"},
		{Prefix: "doubao-", Provider: "doubao"},
		{Prefix: "mistral-", Provider: "mistral"},
		{Prefix: "hunyuan-", Provider: "hunyuan"},
		{Prefix: "kimi-", Provider: "kimi"},
		{Prefix: "llama-", Provider: "llama"},
		{Prefix: "minimax-", Provider: "minimax"},
	})
}

// New creates a Gateway. providers maps a provider prefix (the part of
// a model id before the first "/") to the llm.Provider that serves it.
func New(providers map[string]llm.Provider, tracker *cost.Tracker, cfg Config, logger *zap.Logger) *Gateway {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.MaxConcurrent <= 0 {
		cfg.MaxConcurrent = 1
	}
	if cfg.RequestsPerSecond <= 0 {
		cfg.RequestsPerSecond = 1
	}
	if cfg.RateLimitBackoff <= 0 {
		cfg.RateLimitBackoff = 2 * time.Second
	}
	return &Gateway{
		providers:    providers,
		prefixRouter: defaultPrefixRouter(),
		tracker:      tracker,
		limiter:      rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), cfg.MaxConcurrent),
		sem:          make(chan struct{}, cfg.MaxConcurrent),
		cfg:          cfg,
		logger:       logger.With(zap.String("component", "llm_gateway")),
	}
}

// splitModelID splits "provider/model" into its two halves.
func splitModelID(modelID string) (provider, model string, ok bool) {
	idx := strings.IndexByte(modelID, '/')
	if idx < 0 {
		return "", "", false
	}
	return modelID[:idx], modelID[idx+1:], true
}

// SendMessage submits one turn of a conversation to the model named by
// modelOverride, returning the model's reply or a budget/provider
// error.
func (g *Gateway) SendMessage(
	ctx context.Context,
	agentID string,
	system string,
	history []types.Message,
	tools []types.ToolSchema,
	temperature float32,
	modelOverride string,
) (*Response, error) {
	if g.tracker != nil {
		if err := g.tracker.CheckBudget(); err != nil {
			return nil, err
		}
	}

	providerName, modelName, ok := splitModelID(modelOverride)
	if !ok {
		resolved, found := g.prefixRouter.RouteByModelID(modelOverride)
		if !found {
			return nil, fmt.Errorf("%w: %q is not of the form provider/model and matches no known prefix", ErrUnknownProvider, modelOverride)
		}
		providerName, modelName = resolved, modelOverride
	}
	provider, ok := g.providers[providerName]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownProvider, providerName)
	}

	if err := g.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	select {
	case g.sem <- struct{}{}:
		defer func() { <-g.sem }()
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	messages := make([]types.Message, 0, len(history)+1)
	if system != "" {
		messages = append(messages, types.NewSystemMessage(system))
	}
	messages = append(messages, history...)

	req := &llm.ChatRequest{
		Model:       modelName,
		Messages:    messages,
		Tools:       tools,
		Temperature: temperature,
	}

	start := time.Now()
	var span *observability.Trace
	if g.tracer != nil {
		ctx, span = g.tracer.StartSpan(ctx, observability.SpanKindLLM, agentID, modelOverride)
	}

	resp, err := provider.Completion(ctx, req)
	if isRateLimited(err) {
		g.logger.Warn("rate limited, retrying once",
			zap.String("provider", providerName),
			zap.Duration("backoff", g.cfg.RateLimitBackoff),
		)
		select {
		case <-time.After(g.cfg.RateLimitBackoff):
		case <-ctx.Done():
			if g.tracer != nil {
				g.tracer.EndSpan(ctx, span, ctx.Err())
			}
			return nil, ctx.Err()
		}
		resp, err = provider.Completion(ctx, req)
	}

	if g.tracer != nil {
		g.tracer.EndSpan(ctx, span, err)
	}
	if err != nil {
		if g.metrics != nil {
			g.metrics.RecordLLMRequest(providerName, modelName, "error", time.Since(start), 0, 0, 0)
		}
		return nil, fmt.Errorf("llmgateway: completion via %s: %w", providerName, err)
	}

	promptTokens, completionTokens := 0, 0
	var callCost float64
	if len(resp.Choices) > 0 {
		promptTokens, completionTokens = resp.Usage.PromptTokens, resp.Usage.CompletionTokens
		if g.tracker != nil {
			callCost = g.tracker.Record(agentID, providerName, modelName, promptTokens, completionTokens)
		}
	}
	if g.metrics != nil {
		g.metrics.RecordLLMRequest(providerName, modelName, "ok", time.Since(start), promptTokens, completionTokens, callCost)
	}

	return toResponse(providerName, modelName, resp), nil
}

func isRateLimited(err error) bool {
	if err == nil {
		return false
	}
	var llmErr *types.Error
	if errors.As(err, &llmErr) {
		return llmErr.Code == types.ErrRateLimit || llmErr.Code == types.ErrRateLimited
	}
	return false
}

func toResponse(providerName, modelName string, resp *llm.ChatResponse) *Response {
	out := &Response{Model: modelName, Raw: resp}
	if len(resp.Choices) == 0 {
		return out
	}
	choice := resp.Choices[0]
	out.Text = choice.Message.Content
	out.ToolCalls = choice.Message.ToolCalls
	out.FinishReason = choice.FinishReason
	return out
}

// DecodeArguments decodes a tool call's raw JSON arguments into a
// key/value map; a decode failure yields an empty map rather than an
// error, matching the loop's tolerant-argument contract.
func DecodeArguments(call types.ToolCall) map[string]any {
	args := map[string]any{}
	if len(call.Arguments) == 0 {
		return args
	}
	if err := json.Unmarshal(call.Arguments, &args); err != nil {
		return map[string]any{}
	}
	return args
}
