// Package toolloop drives the agentic dialogue between an agent and
// the LLMGateway: submit history and tools, append the reply, execute
// any requested tool calls in order, and repeat until the model stops
// calling tools or the turn budget runs out.
package toolloop
