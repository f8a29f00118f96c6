// Package metrics exports Prometheus gauges and counters for a
// running orchestration. Internal; not meant for use outside this
// module.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"
)

// Collector holds every metric the engine and gateway record against.
type Collector struct {
	llmRequestsTotal   *prometheus.CounterVec
	llmRequestDuration *prometheus.HistogramVec
	llmTokensUsed      *prometheus.CounterVec
	llmCost            *prometheus.CounterVec

	taskStateTotal      *prometheus.CounterVec
	agentRoleBusy       *prometheus.GaugeVec
	agentRoleIdle       *prometheus.GaugeVec
	runTotalCostUSD     prometheus.Gauge
	runIteration        prometheus.Gauge

	logger *zap.Logger
}

// NewCollector registers every metric under namespace and returns the
// collector. Call once per process; registering twice under the same
// namespace panics, matching promauto's behavior.
func NewCollector(namespace string, logger *zap.Logger) *Collector {
	if logger == nil {
		logger = zap.NewNop()
	}
	c := &Collector{logger: logger.With(zap.String("component", "metrics"))}

	c.llmRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "llm_requests_total",
			Help:      "Total number of LLM completion requests",
		},
		[]string{"provider", "model", "status"},
	)

	c.llmRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "llm_request_duration_seconds",
			Help:      "LLM completion request duration in seconds",
			Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60},
		},
		[]string{"provider", "model"},
	)

	c.llmTokensUsed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "llm_tokens_used_total",
			Help:      "Total number of tokens used",
		},
		[]string{"provider", "model", "type"}, // type: prompt, completion
	)

	c.llmCost = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "llm_cost_usd_total",
			Help:      "Total LLM cost in USD",
		},
		[]string{"provider", "model"},
	)

	c.taskStateTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "task_state_transitions_total",
			Help:      "Total number of task state transitions",
		},
		[]string{"state"},
	)

	c.agentRoleBusy = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "agent_role_busy",
			Help:      "Number of busy agents per role",
		},
		[]string{"role"},
	)

	c.agentRoleIdle = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "agent_role_idle",
			Help:      "Number of idle agents per role",
		},
		[]string{"role"},
	)

	c.runTotalCostUSD = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "run_total_cost_usd",
		Help:      "Running total cost for the current run in USD",
	})

	c.runIteration = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "run_iteration",
		Help:      "Current develop-loop iteration of the run",
	})

	logger.Info("metrics collector initialized", zap.String("namespace", namespace))
	return c
}

// RecordLLMRequest records one completion call's outcome.
func (c *Collector) RecordLLMRequest(provider, model, status string, duration time.Duration, promptTokens, completionTokens int, cost float64) {
	c.llmRequestsTotal.WithLabelValues(provider, model, status).Inc()
	c.llmRequestDuration.WithLabelValues(provider, model).Observe(duration.Seconds())
	c.llmTokensUsed.WithLabelValues(provider, model, "prompt").Add(float64(promptTokens))
	c.llmTokensUsed.WithLabelValues(provider, model, "completion").Add(float64(completionTokens))
	c.llmCost.WithLabelValues(provider, model).Add(cost)
}

// RecordTaskStateTransition increments the counter for a task entering
// newState.
func (c *Collector) RecordTaskStateTransition(newState string) {
	c.taskStateTotal.WithLabelValues(newState).Inc()
}

// SetRoleOccupancy sets the busy/idle gauges for role.
func (c *Collector) SetRoleOccupancy(role string, busy, idle int) {
	c.agentRoleBusy.WithLabelValues(role).Set(float64(busy))
	c.agentRoleIdle.WithLabelValues(role).Set(float64(idle))
}

// SetRunProgress updates the whole-run gauges.
func (c *Collector) SetRunProgress(totalCostUSD float64, iteration int) {
	c.runTotalCostUSD.Set(totalCostUSD)
	c.runIteration.Set(float64(iteration))
}
