// Copyright (c) AgentFlow Authors.
// Licensed under the MIT License.

/*
Package types defines the wire contract shared by every package in
osforge: the conversation/tool shapes an agent sends to llmgateway,
and the structured error code an agent gets back. It has zero
dependencies on other osforge packages, so anything — agentrole,
llmgateway, toolloop, engine — can import it without a cycle.

# Core types

  - Message / Role / ToolCall / ImageContent — one turn of an agent's
    conversation with an LLM, including tool-call requests and
    multimodal image attachments.
  - ToolSchema / ToolResult — a tool's function-calling declaration and
    the result of invoking it, convertible back into a Message via
    ToolResult.ToMessage.
  - Error / ErrorCode — a structured error carrying an HTTP status,
    a Retryable flag, and the originating provider name; llmgateway
    recognizes a rate-limit response by its code rather than by
    string-matching error text.
  - TokenUsage — prompt/completion/total token counts plus the dollar
    cost of a single LLM call; Add sums another TokenUsage into it.
*/
package types
