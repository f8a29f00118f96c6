// =============================================================================
// osforge 主入口
// =============================================================================
// 命令行工具，驱动多智能体内核构建编排器
//
// 使用方法:
//
//	osforge run "goal description"        # 启动一次编排运行
//	osforge run "goal" --config c.yaml    # 指定配置文件
//	osforge status --run-id r1            # 查看运行状态
//	osforge agents                        # 列出已配置的角色与数量
//	osforge tasks --run-id r1             # 列出任务图中的任务
//	osforge version                       # 显示版本信息
// =============================================================================

package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"syscall"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/osforge/osforge/agentrole"
	"github.com/osforge/osforge/config"
	"github.com/osforge/osforge/cost"
	"github.com/osforge/osforge/engine"
	"github.com/osforge/osforge/internal/metrics"
	"github.com/osforge/osforge/internal/telemetry"
	"github.com/osforge/osforge/llm"
	"github.com/osforge/osforge/llm/observability"
	"github.com/osforge/osforge/runstate"
	"github.com/osforge/osforge/store"
	"github.com/osforge/osforge/validate"
)

// =============================================================================
// 版本信息（构建时注入）
// =============================================================================

var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "run":
		runOrchestration(os.Args[2:])
	case "status":
		runStatus(os.Args[2:])
	case "agents":
		runAgents(os.Args[2:])
	case "tasks":
		runTasks(os.Args[2:])
	case "version":
		printVersion()
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

// =============================================================================
// run 命令
// =============================================================================

func runOrchestration(args []string) {
	fs := flag.NewFlagSet("run", flag.ExitOnError)
	configPath := fs.String("config", "", "Path to config file")
	runID := fs.String("run-id", "", "Run identifier (defaults to a timestamp-derived id)")
	workspaceOverride := fs.String("workspace", "", "Workspace root override")
	specRoot := fs.String("spec", "", "Directory containing the target spec/requirements files")
	profilesDir := fs.String("profiles", "config/profiles", "Directory containing <arch>.yaml architecture profiles")
	fs.Parse(args)

	if fs.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "usage: osforge run <goal> [options]")
		os.Exit(1)
	}
	goal := fs.Arg(0)
	// Flags may also follow the goal (osforge run "goal" --config c.yaml).
	fs.Parse(fs.Args()[1:])

	cfg, err := loadAndValidate(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}

	logger := initLogger(cfg.Log)
	defer logger.Sync()

	if *workspaceOverride != "" {
		cfg.Workspace.Path = *workspaceOverride
	}
	if *runID == "" {
		*runID = fmt.Sprintf("run-%d", time.Now().Unix())
	}

	providers, err := buildProviders(cfg.LLM, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to configure LLM providers: %v\n", err)
		os.Exit(1)
	}

	telemetryProviders, err := telemetry.Init(cfg.Telemetry, logger)
	if err != nil {
		logger.Fatal("failed to initialize telemetry", zap.Error(err))
	}
	defer telemetryProviders.Shutdown(context.Background())

	tracer := observability.NewTracer(telemetry.Tracer("osforge/engine"), telemetry.Meter("osforge/engine"), logger)
	collector := metrics.NewCollector("osforge", logger)

	eng, err := engine.New(engine.Config{
		WorkspaceRoot: cfg.Workspace.Path,
		SpecRoot:      *specRoot,
		StatePath:     statePath(cfg.Workspace.Path, *runID),
		Mode:          engine.WorkflowMode(cfg.Workflow.Mode),
		AgentCounts: engine.AgentCounts{
			Developers:     cfg.Agents.DeveloperCount,
			Reviewers:      cfg.Agents.ReviewerCount,
			Testers:        cfg.Agents.TesterCount,
			TrainingAgents: cfg.Agents.TrainingAgentCount,
		},
		DefaultModel: cfg.LLM.Model,
		Arch:         archProfile(*profilesDir, cfg.Kernel, logger),
		BuildTarget:  cfg.Kernel.BuildTarget,
		Providers:    providers,
		Prices:       cost.NewPriceTable(),
		HardCapUSD:   cfg.LLM.Cost.MaxCostUSD,
		SoftCapUSD:   cfg.LLM.Cost.WarnAtUSD,
		Metrics: collector,
		Tracer:  tracer,
		Logger:  logger,
	}, time.Now())
	if err != nil {
		logger.Fatal("failed to construct engine", zap.Error(err))
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	logger.Info("starting orchestration run",
		zap.String("run_id", *runID),
		zap.String("goal", goal),
		zap.String("mode", cfg.Workflow.Mode),
	)

	state, runErr := eng.Run(ctx, *runID, goal)
	printJSON(eng.Status())
	if runErr != nil {
		logger.Error("orchestration run failed", zap.Error(runErr))
		os.Exit(1)
	}
	if state != nil && state.Phase == runstate.PhaseError {
		os.Exit(1)
	}
}

// =============================================================================
// status 命令
// =============================================================================

func runStatus(args []string) {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	configPath := fs.String("config", "", "Path to config file")
	runID := fs.String("run-id", "", "Run identifier")
	workspaceOverride := fs.String("workspace", "", "Workspace root override")
	fs.Parse(args)

	if *runID == "" {
		fmt.Fprintln(os.Stderr, "usage: osforge status --run-id <id> [options]")
		os.Exit(1)
	}

	cfg, err := loadAndValidate(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
	if *workspaceOverride != "" {
		cfg.Workspace.Path = *workspaceOverride
	}

	state, err := runstate.Load(statePath(cfg.Workspace.Path, *runID))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to read run state: %v\n", err)
		os.Exit(1)
	}
	printJSON(state)
}

// =============================================================================
// agents 命令
// =============================================================================

func runAgents(args []string) {
	fs := flag.NewFlagSet("agents", flag.ExitOnError)
	configPath := fs.String("config", "", "Path to config file")
	fs.Parse(args)

	cfg, err := loadAndValidate(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}

	type roleCount struct {
		Role  agentrole.Role `json:"role"`
		Count int            `json:"count"`
	}
	counts := []roleCount{
		{agentrole.RoleManager, 1},
		{agentrole.RoleArchitect, 1},
		{agentrole.RoleIntegrator, 1},
		{agentrole.RoleDeveloper, cfg.Agents.DeveloperCount},
		{agentrole.RoleReviewer, cfg.Agents.ReviewerCount},
		{agentrole.RoleTester, cfg.Agents.TesterCount},
	}
	if cfg.Workflow.Mode == "slm_training" || cfg.Workflow.Mode == "dual" {
		counts = append(counts,
			roleCount{agentrole.RoleDataScientist, 1},
			roleCount{agentrole.RoleModelArchitect, 1},
			roleCount{agentrole.RoleTraining, cfg.Agents.TrainingAgentCount},
		)
	}
	printJSON(counts)
}

// =============================================================================
// tasks 命令
// =============================================================================

func runTasks(args []string) {
	fs := flag.NewFlagSet("tasks", flag.ExitOnError)
	configPath := fs.String("config", "", "Path to config file")
	runID := fs.String("run-id", "", "Run identifier")
	workspaceOverride := fs.String("workspace", "", "Workspace root override")
	fs.Parse(args)

	if *runID == "" {
		fmt.Fprintln(os.Stderr, "usage: osforge tasks --run-id <id> [options]")
		os.Exit(1)
	}

	cfg, err := loadAndValidate(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
	if *workspaceOverride != "" {
		cfg.Workspace.Path = *workspaceOverride
	}

	logger := initLogger(cfg.Log)
	defer logger.Sync()

	taskStore, err := store.New(store.Config{
		BaseDir: filepath.Join(cfg.Workspace.Path, ".osforge", "tasks"),
	}, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to open task store: %v\n", err)
		os.Exit(1)
	}
	defer taskStore.Close()

	tasks, err := taskStore.LoadAll()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load tasks: %v\n", err)
		os.Exit(1)
	}
	sort.Slice(tasks, func(i, j int) bool { return tasks[i].ID < tasks[j].ID })
	printJSON(tasks)
}

// =============================================================================
// 版本和帮助
// =============================================================================

func printVersion() {
	fmt.Printf("osforge %s\n", Version)
	fmt.Printf("  Build Time: %s\n", BuildTime)
	fmt.Printf("  Git Commit: %s\n", GitCommit)
}

func printUsage() {
	fmt.Println(`osforge - multi-agent kernel build orchestrator

Usage:
  osforge <command> [options]

Commands:
  run       Start an orchestration run for a goal
  status    Show the status of a run
  agents    List the configured agent roles and counts
  tasks     List the tasks tracked for a run
  version   Show version information
  help      Show this help message

Common options (run, status, tasks; agents accepts only --config):
  --config <path>      Path to configuration file (YAML)
  --workspace <path>    Workspace root override

Examples:
  osforge run "build a minimal x86_64 kernel with a scheduler and a UART driver"
  osforge run "goal" --config osforge.yaml --run-id nightly-01
  osforge status --run-id nightly-01
  osforge agents
  osforge tasks --run-id nightly-01
  osforge version`)
}

// =============================================================================
// 辅助函数
// =============================================================================

func loadAndValidate(configPath string) (*config.Config, error) {
	loader := config.NewLoader()
	if configPath != "" {
		loader = loader.WithConfigPath(configPath)
	}
	cfg, err := loader.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// buildProviders returns the gateway's provider map. No concrete LLM
// provider is linked into this binary, so the map is always empty and
// the configured API keys and endpoints are not read here; callers
// embedding the engine package supply their own llm.Provider
// implementations through engine.Config.Providers. Any entry placed in
// raw is wrapped in a ResilientProvider so retries, backoff, and
// circuit breaking apply uniformly. A run invoked with no providers
// will fail fast the first time an agent attempts a completion.
func buildProviders(cfg config.LLMConfig, logger *zap.Logger) (map[string]llm.Provider, error) {
	raw := map[string]llm.Provider{}
	wrapped := make(map[string]llm.Provider, len(raw))
	for name, provider := range raw {
		wrapped[name] = llm.NewResilientProvider(provider, nil, logger)
	}
	return wrapped, nil
}

func statePath(workspaceRoot, runID string) string {
	return filepath.Join(workspaceRoot, ".osforge", "state", runID+".json")
}

// archProfile loads the configured kernel.profile_path, or
// <profilesDir>/<arch>.yaml when it is empty, and narrows it to the
// fields the test validator needs. A missing or malformed profile falls
// back to a bare profile naming only the architecture; validate.ArchProfile
// then derives the default qemu-system-<arch> binary itself.
func archProfile(profilesDir string, k config.KernelConfig, logger *zap.Logger) validate.ArchProfile {
	path := filepath.Join(profilesDir, k.Arch+".yaml")
	if k.ProfilePath != "" {
		path = k.ProfilePath
	}
	doc, err := config.LoadArchProfile(path)
	if err != nil {
		logger.Warn("no architecture profile found, using bare defaults",
			zap.String("arch", k.Arch), zap.String("path", path), zap.Error(err))
		return validate.ArchProfile{Arch: k.Arch}
	}
	return doc.ToValidateProfile()
}

func initLogger(cfg config.LogConfig) *zap.Logger {
	var level zapcore.Level
	switch cfg.Level {
	case "debug":
		level = zapcore.DebugLevel
	case "info":
		level = zapcore.InfoLevel
	case "warn":
		level = zapcore.WarnLevel
	case "error":
		level = zapcore.ErrorLevel
	default:
		level = zapcore.InfoLevel
	}

	var encoderConfig zapcore.EncoderConfig
	if cfg.Format == "console" {
		encoderConfig = zap.NewDevelopmentEncoderConfig()
		encoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	} else {
		encoderConfig = zap.NewProductionEncoderConfig()
		encoderConfig.TimeKey = "timestamp"
		encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	}

	zapConfig := zap.Config{
		Level:            zap.NewAtomicLevelAt(level),
		Development:      cfg.Format == "console",
		Encoding:         cfg.Format,
		EncoderConfig:    encoderConfig,
		OutputPaths:      cfg.OutputPaths,
		ErrorOutputPaths: []string{"stderr"},
	}
	if cfg.Format != "console" {
		zapConfig.Encoding = "json"
	}

	logger, err := zapConfig.Build(
		zap.AddCaller(),
		zap.AddStacktrace(zapcore.ErrorLevel),
	)
	if err != nil {
		logger, _ = zap.NewProduction()
	}
	return logger
}

func printJSON(v interface{}) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to encode output: %v\n", err)
		return
	}
	fmt.Println(string(data))
}
