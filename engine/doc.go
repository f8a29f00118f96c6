// Package engine drives the orchestration run end to end: planning,
// design, the bounded development loop, and final integration. It owns
// the TaskGraph, Scheduler, CostTracker, LLMGateway, Workspace,
// MessageBus and the role-to-agent registry, and persists RunState
// after every phase transition and every iteration.
package engine
