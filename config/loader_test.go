// 配置加载器与默认配置测试。
package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- 默认配置测试 ---

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, "anthropic/claude-opus-4-6", cfg.LLM.Model)
	assert.Equal(t, 16384, cfg.LLM.MaxTokens)
	assert.Equal(t, 2*time.Minute, cfg.LLM.Timeout)

	assert.Equal(t, 4, cfg.Agents.DeveloperCount)
	assert.Equal(t, 1, cfg.Agents.ReviewerCount)
	assert.Equal(t, 1, cfg.Agents.TesterCount)

	assert.Equal(t, "x86_64", cfg.Kernel.Arch)

	assert.Equal(t, "./workspace", cfg.Workspace.Path)
	assert.Equal(t, "agent", cfg.Workspace.BranchPrefix)

	assert.Equal(t, "kernel_build", cfg.Workflow.Mode)

	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
}

// --- Loader 测试 ---

func TestLoader_LoadDefaults(t *testing.T) {
	cfg, err := NewLoader().Load()
	require.NoError(t, err)
	require.NotNil(t, cfg)

	assert.Equal(t, "anthropic/claude-opus-4-6", cfg.LLM.Model)
	assert.Equal(t, 4, cfg.Agents.DeveloperCount)
}

func TestLoader_LoadFromYAML(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	yamlContent := `
llm:
  model: "anthropic/claude-haiku-4-6"
  max_tokens: 8192
  timeout: 60s
  cost:
    max_cost_usd: 10
    warn_at_usd: 5

agents:
  developer_count: 6
  reviewer_count: 2
  tester_count: 2

kernel:
  arch: "aarch64"
  build_target: "kernel"

workspace:
  path: "/tmp/osforge-ws"
  branch_prefix: "run"

workflow:
  mode: "dual"

log:
  level: "debug"
  format: "console"
`
	err := os.WriteFile(configPath, []byte(yamlContent), 0644)
	require.NoError(t, err)

	cfg, err := NewLoader().
		WithConfigPath(configPath).
		Load()
	require.NoError(t, err)

	assert.Equal(t, "anthropic/claude-haiku-4-6", cfg.LLM.Model)
	assert.Equal(t, 8192, cfg.LLM.MaxTokens)
	assert.Equal(t, 60*time.Second, cfg.LLM.Timeout)
	assert.Equal(t, 10.0, cfg.LLM.Cost.MaxCostUSD)

	assert.Equal(t, 6, cfg.Agents.DeveloperCount)
	assert.Equal(t, 2, cfg.Agents.ReviewerCount)

	assert.Equal(t, "aarch64", cfg.Kernel.Arch)
	assert.Equal(t, "kernel", cfg.Kernel.BuildTarget)

	assert.Equal(t, "/tmp/osforge-ws", cfg.Workspace.Path)
	assert.Equal(t, "run", cfg.Workspace.BranchPrefix)

	assert.Equal(t, "dual", cfg.Workflow.Mode)

	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "console", cfg.Log.Format)
}

func TestLoader_LoadFromEnv(t *testing.T) {
	envVars := map[string]string{
		"OSFORGE_LLM_MODEL":               "anthropic/claude-haiku-4-6",
		"OSFORGE_LLM_MAX_TOKENS":          "2048",
		"OSFORGE_AGENTS_DEVELOPER_COUNT":  "8",
		"OSFORGE_KERNEL_ARCH":             "riscv64",
		"OSFORGE_WORKSPACE_BRANCH_PREFIX": "ci",
		"OSFORGE_LOG_LEVEL":               "warn",
	}

	for k, v := range envVars {
		os.Setenv(k, v)
	}
	defer func() {
		for k := range envVars {
			os.Unsetenv(k)
		}
	}()

	cfg, err := NewLoader().Load()
	require.NoError(t, err)

	assert.Equal(t, "anthropic/claude-haiku-4-6", cfg.LLM.Model)
	assert.Equal(t, 2048, cfg.LLM.MaxTokens)
	assert.Equal(t, 8, cfg.Agents.DeveloperCount)
	assert.Equal(t, "riscv64", cfg.Kernel.Arch)
	assert.Equal(t, "ci", cfg.Workspace.BranchPrefix)
	assert.Equal(t, "warn", cfg.Log.Level)
}

func TestLoader_EnvOverridesYAML(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	yamlContent := `
llm:
  model: "yaml-model"
kernel:
  arch: "x86_64"
`
	err := os.WriteFile(configPath, []byte(yamlContent), 0644)
	require.NoError(t, err)

	os.Setenv("OSFORGE_KERNEL_ARCH", "aarch64")
	defer os.Unsetenv("OSFORGE_KERNEL_ARCH")

	cfg, err := NewLoader().
		WithConfigPath(configPath).
		Load()
	require.NoError(t, err)

	assert.Equal(t, "aarch64", cfg.Kernel.Arch)
	// YAML 值应该保留（没有被环境变量覆盖）
	assert.Equal(t, "yaml-model", cfg.LLM.Model)
}

func TestLoader_CustomEnvPrefix(t *testing.T) {
	os.Setenv("MYAPP_KERNEL_ARCH", "aarch64")
	os.Setenv("MYAPP_WORKSPACE_BRANCH_PREFIX", "custom")
	defer func() {
		os.Unsetenv("MYAPP_KERNEL_ARCH")
		os.Unsetenv("MYAPP_WORKSPACE_BRANCH_PREFIX")
	}()

	cfg, err := NewLoader().
		WithEnvPrefix("MYAPP").
		Load()
	require.NoError(t, err)

	assert.Equal(t, "aarch64", cfg.Kernel.Arch)
	assert.Equal(t, "custom", cfg.Workspace.BranchPrefix)
}

func TestLoader_WithValidator(t *testing.T) {
	validator := func(cfg *Config) error {
		if cfg.Kernel.Arch == "bogus" {
			return assert.AnError
		}
		return nil
	}

	os.Setenv("OSFORGE_KERNEL_ARCH", "bogus")
	defer os.Unsetenv("OSFORGE_KERNEL_ARCH")

	_, err := NewLoader().
		WithValidator(validator).
		Load()
	assert.Error(t, err)
}

func TestLoader_NonExistentFile(t *testing.T) {
	cfg, err := NewLoader().
		WithConfigPath("/non/existent/path/config.yaml").
		Load()
	require.NoError(t, err)
	require.NotNil(t, cfg)

	assert.Equal(t, "anthropic/claude-opus-4-6", cfg.LLM.Model)
}

func TestLoader_InvalidYAML(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "invalid.yaml")

	invalidYAML := `
llm:
  model: [invalid
  this is not valid yaml
`
	err := os.WriteFile(configPath, []byte(invalidYAML), 0644)
	require.NoError(t, err)

	_, err = NewLoader().
		WithConfigPath(configPath).
		Load()
	assert.Error(t, err)
}

// --- Config 方法测试 ---

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*Config)
		wantErr bool
	}{
		{
			name:    "valid default config",
			modify:  func(c *Config) {},
			wantErr: false,
		},
		{
			name: "empty model",
			modify: func(c *Config) {
				c.LLM.Model = ""
			},
			wantErr: true,
		},
		{
			name: "non-positive cost cap",
			modify: func(c *Config) {
				c.LLM.Cost.MaxCostUSD = 0
			},
			wantErr: true,
		},
		{
			name: "warn threshold above hard cap",
			modify: func(c *Config) {
				c.LLM.Cost.WarnAtUSD = c.LLM.Cost.MaxCostUSD + 1
			},
			wantErr: true,
		},
		{
			name: "zero developer count",
			modify: func(c *Config) {
				c.Agents.DeveloperCount = 0
			},
			wantErr: true,
		},
		{
			name: "unknown architecture",
			modify: func(c *Config) {
				c.Kernel.Arch = "mips"
			},
			wantErr: true,
		},
		{
			name: "unknown workflow mode",
			modify: func(c *Config) {
				c.Workflow.Mode = "bogus"
			},
			wantErr: true,
		},
		{
			name: "empty workspace path",
			modify: func(c *Config) {
				c.Workspace.Path = ""
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.modify(cfg)
			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

// --- MustLoad 测试 ---

func TestMustLoad_Success(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	yamlContent := `
kernel:
  arch: "aarch64"
`
	err := os.WriteFile(configPath, []byte(yamlContent), 0644)
	require.NoError(t, err)

	assert.NotPanics(t, func() {
		cfg := MustLoad(configPath)
		assert.Equal(t, "aarch64", cfg.Kernel.Arch)
	})
}

func TestMustLoad_InvalidFile(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "invalid.yaml")

	err := os.WriteFile(configPath, []byte("invalid: [yaml"), 0644)
	require.NoError(t, err)

	assert.Panics(t, func() {
		MustLoad(configPath)
	})
}

func TestLoadFromEnv_Function(t *testing.T) {
	os.Setenv("OSFORGE_KERNEL_ARCH", "riscv64")
	defer os.Unsetenv("OSFORGE_KERNEL_ARCH")

	cfg, err := LoadFromEnv()
	require.NoError(t, err)
	assert.Equal(t, "riscv64", cfg.Kernel.Arch)
}
