// =============================================================================
// 📦 osforge 默认配置
// =============================================================================
// 提供所有配置项的合理默认值
// =============================================================================
package config

import "time"

// DefaultConfig 返回默认配置
func DefaultConfig() *Config {
	return &Config{
		LLM:       DefaultLLMConfig(),
		Agents:    DefaultAgentsConfig(),
		Kernel:    DefaultKernelConfig(),
		Workspace: DefaultWorkspaceConfig(),
		Workflow:  DefaultWorkflowConfig(),
		Log:       DefaultLogConfig(),
		Telemetry: DefaultTelemetryConfig(),
	}
}

// DefaultLLMConfig 返回默认 LLM 配置
func DefaultLLMConfig() LLMConfig {
	return LLMConfig{
		Model:      "anthropic/claude-opus-4-6",
		MaxTokens:  16384,
		Timeout:    2 * time.Minute,
		MaxRetries: 1,
		Cost:       DefaultCostConfig(),
	}
}

// DefaultCostConfig 返回默认成本预算配置
func DefaultCostConfig() CostConfig {
	return CostConfig{
		MaxCostUSD: 50.0,
		WarnAtUSD:  25.0,
	}
}

// DefaultAgentsConfig 返回默认的角色池大小
func DefaultAgentsConfig() AgentsConfig {
	return AgentsConfig{
		DeveloperCount:     4,
		ReviewerCount:      1,
		TesterCount:        1,
		TrainingAgentCount: 2,
		MaxTurns:           20,
	}
}

// DefaultKernelConfig 返回默认内核构建配置
func DefaultKernelConfig() KernelConfig {
	return KernelConfig{
		Arch:        "x86_64",
		BuildTarget: "all",
	}
}

// DefaultWorkspaceConfig 返回默认工作区配置
func DefaultWorkspaceConfig() WorkspaceConfig {
	return WorkspaceConfig{
		Path:         "./workspace",
		BranchPrefix: "agent",
	}
}

// DefaultWorkflowConfig 返回默认工作流模式
func DefaultWorkflowConfig() WorkflowConfig {
	return WorkflowConfig{
		Mode: "kernel_build",
	}
}

// DefaultLogConfig 返回默认日志配置
func DefaultLogConfig() LogConfig {
	return LogConfig{
		Level:            "info",
		Format:           "json",
		OutputPaths:      []string{"stdout"},
		EnableCaller:     true,
		EnableStacktrace: false,
	}
}

// DefaultTelemetryConfig 返回默认遥测配置
func DefaultTelemetryConfig() TelemetryConfig {
	return TelemetryConfig{
		Enabled:      false,
		OTLPEndpoint: "localhost:4317",
		ServiceName:  "osforge",
		SampleRate:   0.1,
	}
}
