package cost

import (
	"errors"
	"sync"

	"github.com/pkoukk/tiktoken-go"
	"go.uber.org/zap"
)

var ErrBudgetExceeded = errors.New("cost: run budget exceeded")

// ModelPrice is the USD-per-1K-token rate for one provider:model pair.
type ModelPrice struct {
	Provider    string
	Model       string
	PriceInput  float64
	PriceOutput float64
}

// PriceTable holds dollar pricing per provider:model, mirroring the
// teacher's CostCalculator shape but scoped to the providers this
// module actually dials.
type PriceTable struct {
	mu     sync.RWMutex
	prices map[string]ModelPrice
}

// NewPriceTable returns a table pre-loaded with the default LLM
// provider price list; callers can override entries with SetPrice.
func NewPriceTable() *PriceTable {
	t := &PriceTable{prices: make(map[string]ModelPrice)}
	for _, p := range []ModelPrice{
		{Provider: "anthropic", Model: "claude-opus-4", PriceInput: 0.015, PriceOutput: 0.075},
		{Provider: "anthropic", Model: "claude-sonnet-4", PriceInput: 0.003, PriceOutput: 0.015},
		{Provider: "anthropic", Model: "claude-haiku-4", PriceInput: 0.0008, PriceOutput: 0.004},
		{Provider: "openai", Model: "gpt-4o", PriceInput: 0.005, PriceOutput: 0.015},
		{Provider: "openai", Model: "gpt-4o-mini", PriceInput: 0.00015, PriceOutput: 0.0006},
	} {
		t.SetPrice(p)
	}
	return t
}

func (t *PriceTable) SetPrice(p ModelPrice) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.prices[p.Provider+":"+p.Model] = p
}

func (t *PriceTable) GetPrice(provider, model string) (ModelPrice, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	p, ok := t.prices[provider+":"+model]
	return p, ok
}

// Calculate returns the dollar cost of a call, or 0 for an unknown
// provider:model pair rather than failing the call outright.
func (t *PriceTable) Calculate(provider, model string, tokensIn, tokensOut int) float64 {
	p, ok := t.GetPrice(provider, model)
	if !ok {
		return 0
	}
	return float64(tokensIn)/1000*p.PriceInput + float64(tokensOut)/1000*p.PriceOutput
}

// Usage is one agent's running token and dollar totals. Fields only
// ever increase.
type Usage struct {
	AgentID      string  `json:"agent_id"`
	InputTokens  int     `json:"input_tokens"`
	OutputTokens int     `json:"output_tokens"`
	TotalCost    float64 `json:"total_cost_usd"`
	RequestCount int     `json:"request_count"`
}

// Tracker aggregates per-agent usage against a whole-run hard cap and
// soft warn threshold, denominated in dollars.
type Tracker struct {
	prices  *PriceTable
	hardCap float64
	softCap float64
	logger  *zap.Logger
	enc     *tiktoken.Tiktoken

	mu     sync.Mutex
	usage  map[string]*Usage
	warned bool
}

// New creates a Tracker. hardCap <= 0 disables the hard stop.
func New(prices *PriceTable, hardCap, softCap float64, logger *zap.Logger) *Tracker {
	if logger == nil {
		logger = zap.NewNop()
	}
	if prices == nil {
		prices = NewPriceTable()
	}
	enc, err := tiktoken.GetEncoding("cl100k_base")
	if err != nil {
		enc = nil
	}
	return &Tracker{
		prices:  prices,
		hardCap: hardCap,
		softCap: softCap,
		logger:  logger.With(zap.String("component", "cost_tracker")),
		enc:     enc,
		usage:   make(map[string]*Usage),
	}
}

// EstimateTokens approximates the prompt-token count of text using a
// BPE encoding close enough across providers for pre-call budget
// checks; exact provider usage still comes back in the response and
// is what Record ultimately books.
func (t *Tracker) EstimateTokens(text string) int {
	if t.enc == nil {
		return len(text) / 4
	}
	return len(t.enc.Encode(text, nil, nil))
}

// Record books a completed call's usage against agentID and returns
// its dollar cost.
func (t *Tracker) Record(agentID, provider, model string, tokensIn, tokensOut int) float64 {
	cost := t.prices.Calculate(provider, model, tokensIn, tokensOut)

	t.mu.Lock()
	defer t.mu.Unlock()

	u, ok := t.usage[agentID]
	if !ok {
		u = &Usage{AgentID: agentID}
		t.usage[agentID] = u
	}
	u.InputTokens += tokensIn
	u.OutputTokens += tokensOut
	u.TotalCost += cost
	u.RequestCount++

	total := t.totalLocked()
	if t.softCap > 0 && total >= t.softCap && !t.warned {
		t.warned = true
		t.logger.Warn("soft cost cap crossed",
			zap.Float64("soft_cap_usd", t.softCap),
			zap.Float64("total_usd", total),
		)
	}

	t.logger.Debug("usage recorded",
		zap.String("agent_id", agentID),
		zap.String("model", model),
		zap.Int("tokens_in", tokensIn),
		zap.Int("tokens_out", tokensOut),
		zap.Float64("cost_usd", cost),
	)
	return cost
}

// CheckBudget returns ErrBudgetExceeded once the aggregate cost across
// all agents has reached the hard cap.
func (t *Tracker) CheckBudget() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.hardCap > 0 && t.totalLocked() >= t.hardCap {
		return ErrBudgetExceeded
	}
	return nil
}

func (t *Tracker) totalLocked() float64 {
	var total float64
	for _, u := range t.usage {
		total += u.TotalCost
	}
	return total
}

// Total returns the aggregate cost across all agents.
func (t *Tracker) Total() float64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.totalLocked()
}

// Usage returns a copy of one agent's usage, or the zero value if the
// agent has not recorded anything yet.
func (t *Tracker) Usage(agentID string) Usage {
	t.mu.Lock()
	defer t.mu.Unlock()
	if u, ok := t.usage[agentID]; ok {
		return *u
	}
	return Usage{AgentID: agentID}
}

// Snapshot returns a copy of every agent's usage.
func (t *Tracker) Snapshot() map[string]Usage {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make(map[string]Usage, len(t.usage))
	for id, u := range t.usage {
		out[id] = *u
	}
	return out
}
