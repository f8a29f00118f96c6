// Package llmgateway wraps the teacher's llm.Provider interface with
// provider-prefix routing, budget enforcement, rate limiting, and
// cost accounting, presenting agents with one provider-agnostic entry
// point for sending a turn of a conversation to a model.
package llmgateway
