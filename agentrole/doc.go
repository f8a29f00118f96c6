// Package agentrole implements the agent abstraction the Scheduler
// dispatches work to: one common driver (workspace binding + tool
// loop) shared by every role, with each role contributing only data —
// a system prompt template and a narrowed tool catalog — rather than
// its own behavior.
package agentrole
