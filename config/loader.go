// =============================================================================
// 📦 osforge 配置加载器
// =============================================================================
// 统一配置加载，支持 YAML 文件 + 环境变量覆盖
//
// 使用方法:
//
//	cfg, err := config.NewLoader().
//	    WithConfigPath("config.yaml").
//	    WithEnvPrefix("OSFORGE").
//	    Load()
//
// 配置优先级: 默认值 → YAML 文件 → 环境变量
// =============================================================================
package config

import (
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// =============================================================================
// 🎯 核心配置结构
// =============================================================================

// Config 是 osforge 的完整配置结构
type Config struct {
	// LLM 大语言模型配置
	LLM LLMConfig `yaml:"llm" env:"LLM"`

	// Agents 角色池配置
	Agents AgentsConfig `yaml:"agents" env:"AGENTS"`

	// Kernel 内核构建配置
	Kernel KernelConfig `yaml:"kernel" env:"KERNEL"`

	// Workspace 工作区配置
	Workspace WorkspaceConfig `yaml:"workspace" env:"WORKSPACE"`

	// Workflow 工作流模式配置
	Workflow WorkflowConfig `yaml:"workflow" env:"WORKFLOW"`

	// Log 日志配置
	Log LogConfig `yaml:"log" env:"LOG"`

	// Telemetry 遥测配置
	Telemetry TelemetryConfig `yaml:"telemetry" env:"TELEMETRY"`
}

// LLMConfig 大语言模型网关配置
type LLMConfig struct {
	// 默认模型，形如 "<provider>/<model>"
	Model string `yaml:"model" env:"MODEL"`
	// 默认最大输出 Token 数
	MaxTokens int `yaml:"max_tokens" env:"MAX_TOKENS"`
	// 按 provider 名称索引的 API Key
	APIKeys map[string]string `yaml:"api_keys" env:"-"`
	// 按 provider 名称索引的端点覆盖
	Endpoints map[string]string `yaml:"endpoints" env:"-"`
	// 请求超时
	Timeout time.Duration `yaml:"timeout" env:"TIMEOUT"`
	// 最大重试次数
	MaxRetries int `yaml:"max_retries" env:"MAX_RETRIES"`
	// 成本预算
	Cost CostConfig `yaml:"cost" env:"COST"`
}

// CostConfig 成本预算配置
type CostConfig struct {
	// 硬性上限（USD），超过后拒绝新的 LLM 调用
	MaxCostUSD float64 `yaml:"max_cost_usd" env:"MAX_COST_USD"`
	// 软性阈值（USD），超过后记录一次告警日志
	WarnAtUSD float64 `yaml:"warn_at_usd" env:"WARN_AT_USD"`
}

// AgentsConfig 角色池大小与模型覆盖
type AgentsConfig struct {
	// Developer 角色并发实例数
	DeveloperCount int `yaml:"developer_count" env:"DEVELOPER_COUNT"`
	// Reviewer 角色并发实例数
	ReviewerCount int `yaml:"reviewer_count" env:"REVIEWER_COUNT"`
	// Tester 角色并发实例数
	TesterCount int `yaml:"tester_count" env:"TESTER_COUNT"`
	// Training 角色并发实例数（仅 slm_training / dual 模式使用）
	TrainingAgentCount int `yaml:"training_agent_count" env:"TRAINING_AGENT_COUNT"`
	// 按角色名覆盖默认模型
	Models map[string]string `yaml:"models" env:"-"`
	// 单次任务工具调用循环的最大轮数
	MaxTurns int `yaml:"max_turns" env:"MAX_TURNS"`
}

// KernelConfig 内核构建相关配置
type KernelConfig struct {
	// 目标架构: x86_64, aarch64, riscv64
	Arch string `yaml:"arch" env:"ARCH"`
	// 传给 make 的默认构建目标
	BuildTarget string `yaml:"build_target" env:"BUILD_TARGET"`
	// 架构 profile YAML 的路径，留空则使用 config/profiles/<arch>.yaml
	ProfilePath string `yaml:"profile_path" env:"PROFILE_PATH"`
}

// WorkspaceConfig 工作区配置
type WorkspaceConfig struct {
	// 工作区根目录
	Path string `yaml:"path" env:"PATH"`
	// Agent 分支名前缀
	BranchPrefix string `yaml:"branch_prefix" env:"BRANCH_PREFIX"`
}

// WorkflowConfig 工作流模式配置
type WorkflowConfig struct {
	// 模式: kernel_build, slm_training, dual
	Mode string `yaml:"mode" env:"MODE"`
}

// LogConfig 日志配置
type LogConfig struct {
	// 日志级别: debug, info, warn, error
	Level string `yaml:"level" env:"LEVEL"`
	// 输出格式: json, console
	Format string `yaml:"format" env:"FORMAT"`
	// 输出路径
	OutputPaths []string `yaml:"output_paths" env:"OUTPUT_PATHS"`
	// 是否启用调用者信息
	EnableCaller bool `yaml:"enable_caller" env:"ENABLE_CALLER"`
	// 是否启用堆栈跟踪
	EnableStacktrace bool `yaml:"enable_stacktrace" env:"ENABLE_STACKTRACE"`
}

// TelemetryConfig 遥测配置
type TelemetryConfig struct {
	// 是否启用
	Enabled bool `yaml:"enabled" env:"ENABLED"`
	// OTLP 端点
	OTLPEndpoint string `yaml:"otlp_endpoint" env:"OTLP_ENDPOINT"`
	// 服务名称
	ServiceName string `yaml:"service_name" env:"SERVICE_NAME"`
	// 采样率
	SampleRate float64 `yaml:"sample_rate" env:"SAMPLE_RATE"`
}

// =============================================================================
// 🔧 配置加载器
// =============================================================================

// Loader 配置加载器（Builder 模式）
type Loader struct {
	configPath string
	envPrefix  string
	validators []func(*Config) error
}

// NewLoader 创建新的配置加载器
func NewLoader() *Loader {
	return &Loader{
		envPrefix:  "OSFORGE",
		validators: make([]func(*Config) error, 0),
	}
}

// WithConfigPath 设置配置文件路径
func (l *Loader) WithConfigPath(path string) *Loader {
	l.configPath = path
	return l
}

// WithEnvPrefix 设置环境变量前缀
func (l *Loader) WithEnvPrefix(prefix string) *Loader {
	l.envPrefix = prefix
	return l
}

// WithValidator 添加配置验证器
func (l *Loader) WithValidator(v func(*Config) error) *Loader {
	l.validators = append(l.validators, v)
	return l
}

// Load 加载配置
// 优先级: 默认值 → YAML 文件 → 环境变量
func (l *Loader) Load() (*Config, error) {
	// 1. 从默认值开始
	cfg := DefaultConfig()

	// 2. 如果指定了配置文件，从文件加载
	if l.configPath != "" {
		if err := l.loadFromFile(cfg); err != nil {
			return nil, fmt.Errorf("failed to load config from file: %w", err)
		}
	}

	// 3. 从环境变量覆盖
	if err := l.loadFromEnv(cfg); err != nil {
		return nil, fmt.Errorf("failed to load config from env: %w", err)
	}

	// 4. 运行验证器
	for _, v := range l.validators {
		if err := v(cfg); err != nil {
			return nil, fmt.Errorf("config validation failed: %w", err)
		}
	}

	return cfg, nil
}

// loadFromFile 从 YAML 文件加载配置
func (l *Loader) loadFromFile(cfg *Config) error {
	data, err := os.ReadFile(l.configPath)
	if err != nil {
		if os.IsNotExist(err) {
			// 文件不存在，使用默认值
			return nil
		}
		return fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	return nil
}

// loadFromEnv 从环境变量加载配置
func (l *Loader) loadFromEnv(cfg *Config) error {
	return l.setFieldsFromEnv(reflect.ValueOf(cfg).Elem(), l.envPrefix)
}

// setFieldsFromEnv 递归设置结构体字段
func (l *Loader) setFieldsFromEnv(v reflect.Value, prefix string) error {
	t := v.Type()

	for i := 0; i < v.NumField(); i++ {
		field := v.Field(i)
		fieldType := t.Field(i)

		// 获取 env tag
		envTag := fieldType.Tag.Get("env")
		if envTag == "" || envTag == "-" {
			continue
		}

		envKey := prefix + "_" + envTag

		// 如果是结构体，递归处理
		if field.Kind() == reflect.Struct {
			if err := l.setFieldsFromEnv(field, envKey); err != nil {
				return err
			}
			continue
		}

		// 获取环境变量值
		envValue := os.Getenv(envKey)
		if envValue == "" {
			continue
		}

		// 设置字段值
		if err := setFieldValue(field, envValue); err != nil {
			return fmt.Errorf("failed to set %s: %w", envKey, err)
		}
	}

	return nil
}

// setFieldValue 设置字段值
func setFieldValue(field reflect.Value, value string) error {
	if !field.CanSet() {
		return nil
	}

	switch field.Kind() {
	case reflect.String:
		field.SetString(value)

	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		// 特殊处理 time.Duration
		if field.Type() == reflect.TypeOf(time.Duration(0)) {
			d, err := time.ParseDuration(value)
			if err != nil {
				return err
			}
			field.SetInt(int64(d))
		} else {
			i, err := strconv.ParseInt(value, 10, 64)
			if err != nil {
				return err
			}
			field.SetInt(i)
		}

	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		u, err := strconv.ParseUint(value, 10, 64)
		if err != nil {
			return err
		}
		field.SetUint(u)

	case reflect.Float32, reflect.Float64:
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return err
		}
		field.SetFloat(f)

	case reflect.Bool:
		b, err := strconv.ParseBool(value)
		if err != nil {
			return err
		}
		field.SetBool(b)

	case reflect.Slice:
		// 支持逗号分隔的字符串切片
		if field.Type().Elem().Kind() == reflect.String {
			parts := strings.Split(value, ",")
			for i := range parts {
				parts[i] = strings.TrimSpace(parts[i])
			}
			field.Set(reflect.ValueOf(parts))
		}
	}

	return nil
}

// =============================================================================
// 🔍 辅助函数
// =============================================================================

// MustLoad 加载配置，失败时 panic
func MustLoad(path string) *Config {
	cfg, err := NewLoader().WithConfigPath(path).Load()
	if err != nil {
		panic(fmt.Sprintf("failed to load config: %v", err))
	}
	return cfg
}

// LoadFromEnv 仅从环境变量加载配置
func LoadFromEnv() (*Config, error) {
	return NewLoader().Load()
}

var validArches = map[string]bool{"x86_64": true, "aarch64": true, "riscv64": true}
var validModes = map[string]bool{"kernel_build": true, "slm_training": true, "dual": true}

// Validate 验证配置
func (c *Config) Validate() error {
	var errs []string

	if c.LLM.Model == "" {
		errs = append(errs, "llm.model must be set")
	}
	if c.LLM.Cost.MaxCostUSD <= 0 {
		errs = append(errs, "llm.cost.max_cost_usd must be positive")
	}
	if c.LLM.Cost.WarnAtUSD > c.LLM.Cost.MaxCostUSD {
		errs = append(errs, "llm.cost.warn_at_usd must not exceed max_cost_usd")
	}

	if c.Agents.DeveloperCount <= 0 {
		errs = append(errs, "agents.developer_count must be positive")
	}
	if c.Agents.ReviewerCount <= 0 {
		errs = append(errs, "agents.reviewer_count must be positive")
	}
	if c.Agents.TesterCount <= 0 {
		errs = append(errs, "agents.tester_count must be positive")
	}

	if !validArches[c.Kernel.Arch] {
		errs = append(errs, "kernel.arch must be one of x86_64, aarch64, riscv64")
	}

	if c.Workspace.Path == "" {
		errs = append(errs, "workspace.path must be set")
	}

	if !validModes[c.Workflow.Mode] {
		errs = append(errs, "workflow.mode must be one of kernel_build, slm_training, dual")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation errors: %s", strings.Join(errs, "; "))
	}

	return nil
}
