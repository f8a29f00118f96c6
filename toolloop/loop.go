package toolloop

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/osforge/osforge/llmgateway"
	"github.com/osforge/osforge/types"
)

// ToolHandler executes one tool call and returns its result as text
// for the model; an error is folded into the text as
// "Error executing <tool>: ..." rather than aborting the loop.
type ToolHandler func(ctx context.Context, args map[string]any) (string, error)

// BudgetChecker is polled at the start of every turn; a non-nil error
// ends the loop immediately.
type BudgetChecker interface {
	CheckBudget() error
}

// Gateway is the subset of llmgateway.Gateway the loop drives.
type Gateway interface {
	SendMessage(ctx context.Context, agentID, system string, history []types.Message, tools []types.ToolSchema, temperature float32, model string) (*llmgateway.Response, error)
}

// Config parameterizes one Run.
type Config struct {
	AgentID     string
	System      string
	Tools       []types.ToolSchema
	Handlers    map[string]ToolHandler
	MaxTurns    int
	Temperature float32
	Model       string
	Budget      BudgetChecker
}

// Run drives the agentic dialogue starting from history, returning the
// full transcript including every tool call and result appended along
// the way. When the turn budget is exhausted it logs a warning and
// returns the transcript with a nil error; the transcript then ends
// with the last turn's tool results rather than a reply without tool
// calls.
func Run(ctx context.Context, gw Gateway, cfg Config, history []types.Message, logger *zap.Logger) ([]types.Message, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	maxTurns := cfg.MaxTurns
	if maxTurns <= 0 {
		maxTurns = 1
	}

	for turn := 0; turn < maxTurns; turn++ {
		if cfg.Budget != nil {
			if err := cfg.Budget.CheckBudget(); err != nil {
				return history, fmt.Errorf("toolloop: %w", err)
			}
		}

		resp, err := gw.SendMessage(ctx, cfg.AgentID, cfg.System, history, cfg.Tools, cfg.Temperature, cfg.Model)
		if err != nil {
			return history, err
		}

		assistant := types.Message{Role: types.RoleAssistant, Content: resp.Text, ToolCalls: resp.ToolCalls}
		history = append(history, assistant)

		if len(resp.ToolCalls) == 0 {
			return history, nil
		}

		for _, call := range resp.ToolCalls {
			handler, ok := cfg.Handlers[call.Name]
			var resultText string
			if !ok {
				resultText = "unknown tool: " + call.Name
			} else {
				args := llmgateway.DecodeArguments(call)
				result, herr := handler(ctx, args)
				if herr != nil {
					resultText = "Error executing " + call.Name + ": " + herr.Error()
				} else {
					resultText = result
				}
			}
			history = append(history, types.NewToolMessage(call.ID, call.Name, resultText))
		}
	}

	logger.Warn("tool loop reached max turns without a final reply",
		zap.String("agent_id", cfg.AgentID),
		zap.Int("max_turns", maxTurns),
	)
	return history, nil
}
