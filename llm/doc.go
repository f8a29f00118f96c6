// Copyright 2024 AgentFlow Authors. All rights reserved.
// Use of this source code is governed by a MIT license that can be
// found in the LICENSE file.

/*
Package llm provides unified LLM provider abstraction and routing.

# Overview

The llm package provides a unified interface for interacting with multiple
Large Language Model providers. It abstracts away provider-specific details
and provides prefix-based model routing, retry with a circuit breaker, and
cost and trace observability helpers. It has no response cache and no
load balancing or failover between providers.

# Architecture

	┌─────────────────────────────────────────────────────────────┐
	│                    Application Layer                        │
	├─────────────────────────────────────────────────────────────┤
	│              Prefix Router (model → provider)               │
	├─────────────────────────────────────────────────────────────┤
	│  ┌─────────────────────────┐  ┌───────────────────────────┐ │
	│  │ Retry + circuit breaker │  │ Observability (cost/trace)│ │
	│  └─────────────────────────┘  └───────────────────────────┘ │
	├─────────────────────────────────────────────────────────────┤
	│                    Provider Interface                       │
	├─────────────────────────────────────────────────────────────┤
	│      Concrete providers (supplied by the application)       │
	└─────────────────────────────────────────────────────────────┘

# Provider Interface

The core Provider interface defines the contract for all LLM providers:

	type Provider interface {
	    Completion(ctx context.Context, req *ChatRequest) (*ChatResponse, error)
	    Stream(ctx context.Context, req *ChatRequest) (<-chan StreamChunk, error)
	    HealthCheck(ctx context.Context) (*HealthStatus, error)
	    Name() string
	    SupportsNativeFunctionCalling() bool
	    ListModels(ctx context.Context) ([]Model, error)
	}

# Providers

This module ships no concrete Provider implementation; the embedding
application supplies its own. A call through any provider:

	resp, err := provider.Completion(ctx, &llm.ChatRequest{
	    Model: "gpt-4o",
	    Messages: []llm.Message{
	        {Role: llm.RoleUser, Content: "Hello!"},
	    },
	})

Resolving a bare model name to the provider that serves it, without an
explicit "provider/model" prefix:

	rules := router.NewPrefixRouter([]router.PrefixRule{
	    {Prefix: "gpt-", Provider: "openai"},
	    {Prefix: "claude-", Provider: "anthropic"},
	})
	providerCode, ok := rules.RouteByModelID("claude-3-opus")

# Streaming

Stream returns the response as a channel of chunks:

	stream, err := provider.Stream(ctx, &llm.ChatRequest{
	    Model: "gpt-4o",
	    Messages: messages,
	})
	if err != nil {
	    log.Fatal(err)
	}

	for chunk := range stream {
	    if chunk.Err != nil {
	        log.Printf("Error: %v", chunk.Err)
	        break
	    }
	    fmt.Print(chunk.Delta.Content)
	}

# Retry and Resilience

Built-in retry with exponential backoff and a circuit breaker:

	resilientProvider := llm.NewResilientProvider(provider, &llm.ResilientConfig{
	    RetryPolicy:    llm.DefaultRetryPolicy(),
	    CircuitBreaker: llm.DefaultCircuitBreakerConfig(),
	}, logger)

# Observability

The llm/observability subpackage tracks per-call token usage and cost:

	tracker := observability.NewCostTracker(observability.NewCostCalculator())
	tracker.Track(providerName, modelName, inputTokens, outputTokens)

# Tool Calling

Support for native function calling:

	resp, err := provider.Completion(ctx, &llm.ChatRequest{
	    Model: "gpt-4o",
	    Messages: messages,
	    Tools: []llm.ToolSchema{
	        {
	            Name:        "get_weather",
	            Description: "Get current weather for a location",
	            Parameters:  weatherParamsSchema,
	        },
	    },
	})

# Error Handling

The package defines structured error codes:

	const (
	    ErrInvalidRequest      ErrorCode = "invalid_request"
	    ErrAuthentication      ErrorCode = "authentication_error"
	    ErrRateLimit           ErrorCode = "rate_limit"
	    ErrContextTooLong      ErrorCode = "context_too_long"
	    ErrServiceUnavailable  ErrorCode = "service_unavailable"
	)

Use IsRetryable to check if an error can be retried:

	if llm.IsRetryable(err) {
	    // Implement retry logic
	}

See the subpackages for additional functionality:
  - llm/budget: per-request, per-minute, per-hour and per-day token and cost limits
  - llm/observability: cost tracking, span tracing, and metrics
  - llm/retry: retry strategies and backoff
  - llm/router: bare-model-name to provider-prefix routing

Concrete HTTP-backed Provider implementations are left to the
embedding application; see llmgateway.Gateway for how a caller's
providers are routed, rate-limited, and metered once supplied.
*/
package llm
