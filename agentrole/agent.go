package agentrole

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/osforge/osforge/bus"
	"github.com/osforge/osforge/graph"
	"github.com/osforge/osforge/llmgateway"
	"github.com/osforge/osforge/scheduler"
	"github.com/osforge/osforge/toolloop"
	"github.com/osforge/osforge/types"
	"github.com/osforge/osforge/validate"
	"github.com/osforge/osforge/workspace"
)

const defaultShellTimeout = 120 * time.Second

// TaskResult is what an Agent reports back after executing one task.
type TaskResult struct {
	Success   bool
	TaskID    string
	AgentID   string
	Summary   string
	Artifacts []string
	Branch    string
	Error     string
}

// Agent is the uniform worker every role shares; only its Definition
// (prompt + tool names) varies by role.
type Agent struct {
	id       string
	def      Definition
	ws       *workspace.Workspace
	msgBus   bus.Bus
	gateway  toolloop.Gateway
	build    *validate.BuildValidator
	test     *validate.TestValidator
	arch     validate.ArchProfile
	specRoot string
	model    string
	maxTurns int
	budget   toolloop.BudgetChecker
	logger   *zap.Logger

	mu    sync.Mutex
	state scheduler.AgentState
}

// Config bundles an Agent's dependencies.
type Config struct {
	ID         string
	Definition Definition
	Workspace  *workspace.Workspace
	Bus        bus.Bus
	Gateway    toolloop.Gateway
	Build      *validate.BuildValidator
	Test       *validate.TestValidator
	Arch       validate.ArchProfile
	SpecRoot   string
	Model      string
	MaxTurns   int
	Budget     toolloop.BudgetChecker
	Logger     *zap.Logger
}

// New constructs an Agent bound to its role definition and shared
// infrastructure.
func New(cfg Config) *Agent {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	maxTurns := cfg.MaxTurns
	if maxTurns <= 0 {
		maxTurns = 20
	}
	return &Agent{
		id:       cfg.ID,
		def:      cfg.Definition,
		ws:       cfg.Workspace,
		msgBus:   cfg.Bus,
		gateway:  cfg.Gateway,
		build:    cfg.Build,
		test:     cfg.Test,
		arch:     cfg.Arch,
		specRoot: cfg.SpecRoot,
		model:    cfg.Model,
		maxTurns: maxTurns,
		budget:   cfg.Budget,
		logger:   logger.With(zap.String("agent_id", cfg.ID), zap.String("role", string(cfg.Definition.Role))),
		state:    scheduler.AgentIdle,
	}
}

// ID satisfies scheduler.Agent.
func (a *Agent) ID() string { return a.id }

// State satisfies scheduler.Agent.
func (a *Agent) State() scheduler.AgentState {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.state
}

func (a *Agent) setState(s scheduler.AgentState) {
	a.mu.Lock()
	a.state = s
	a.mu.Unlock()
}

// ExecuteTask drives the tool loop to completion for task, returning a
// TaskResult that never aborts the run on a task-level failure.
func (a *Agent) ExecuteTask(ctx context.Context, task *graph.Task) *TaskResult {
	a.setState(scheduler.AgentThinking)
	a.logger.Info("starting task", zap.String("task_id", task.ID), zap.String("title", task.Title))

	history := []types.Message{types.NewUserMessage(formatTaskPrompt(task))}

	a.setState(scheduler.AgentExecuting)
	result, err := toolloop.Run(ctx, a.gateway, toolloop.Config{
		AgentID:     a.id,
		System:      a.def.SystemPrompt,
		Tools:       a.def.ToolSchemas(),
		Handlers:    a.handlers(),
		MaxTurns:    a.maxTurns,
		Temperature: 0.2,
		Model:       a.model,
		Budget:      a.budget,
	}, history, a.logger)

	if err != nil {
		a.setState(scheduler.AgentError)
		a.logger.Error("task failed", zap.String("task_id", task.ID), zap.Error(err))
		return &TaskResult{
			Success: false,
			TaskID:  task.ID,
			AgentID: a.id,
			Summary: fmt.Sprintf("task failed: %v", err),
			Error:   err.Error(),
		}
	}

	a.setState(scheduler.AgentDone)
	return &TaskResult{
		Success:   true,
		TaskID:    task.ID,
		AgentID:   a.id,
		Summary:   extractFinalText(result),
		Artifacts: extractArtifacts(result),
		Branch:    task.Branch,
	}
}

func formatTaskPrompt(task *graph.Task) string {
	var b strings.Builder
	fmt.Fprintf(&b, "## Task: %s\n", orDefault(task.Title, "Unnamed task"))
	if task.Description != "" {
		fmt.Fprintf(&b, "\n%s\n", task.Description)
	}
	if task.Subsystem != "" {
		fmt.Fprintf(&b, "\n**Subsystem**: %s\n", task.Subsystem)
	}
	return b.String()
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}

// extractFinalText returns the content of the last assistant message
// with no further tool calls.
func extractFinalText(history []types.Message) string {
	for i := len(history) - 1; i >= 0; i-- {
		if history[i].Role == types.RoleAssistant && len(history[i].ToolCalls) == 0 {
			return history[i].Content
		}
	}
	return ""
}

// extractArtifacts collects the paths written via write_file tool
// calls across the transcript.
func extractArtifacts(history []types.Message) []string {
	var paths []string
	for _, msg := range history {
		for _, call := range msg.ToolCalls {
			if call.Name != "write_file" {
				continue
			}
			args := llmgateway.DecodeArguments(call)
			if path, ok := args["path"].(string); ok {
				paths = append(paths, path)
			}
		}
	}
	return paths
}

func (a *Agent) handlers() map[string]toolloop.ToolHandler {
	h := map[string]toolloop.ToolHandler{
		"read_file":   a.toolReadFile,
		"write_file":  a.toolWriteFile,
		"search_code": a.toolSearchCode,
		"list_files":  a.toolListFiles,
		"build_kernel": a.toolBuildKernel,
		"run_test":    a.toolRunTest,
		"git_commit":  a.toolGitCommit,
		"git_diff":    a.toolGitDiff,
		"read_spec":   a.toolReadSpec,
		"shell":       a.toolShell,
	}
	allowed := make(map[string]bool, len(a.def.ToolNames))
	for _, name := range a.def.ToolNames {
		allowed[name] = true
	}
	for name := range h {
		if !allowed[name] {
			delete(h, name)
		}
	}
	return h
}

func (a *Agent) toolReadFile(ctx context.Context, args map[string]any) (string, error) {
	path, _ := args["path"].(string)
	content, err := a.ws.ReadFile(path)
	if err != nil {
		return "", err
	}
	return string(content), nil
}

func (a *Agent) toolWriteFile(ctx context.Context, args map[string]any) (string, error) {
	path, _ := args["path"].(string)
	content, _ := args["content"].(string)
	if err := a.ws.WriteFile(path, []byte(content)); err != nil {
		return "", err
	}
	return fmt.Sprintf("Written %d bytes to %s", len(content), path), nil
}

func (a *Agent) toolSearchCode(ctx context.Context, args map[string]any) (string, error) {
	pattern, _ := args["pattern"].(string)
	glob, _ := args["glob"].(string)
	matches, err := a.ws.SearchCode(pattern, glob)
	if err != nil {
		return "", err
	}
	if len(matches) == 0 {
		return "No matches found.", nil
	}
	if len(matches) > 50 {
		matches = matches[:50]
	}
	var lines []string
	for _, m := range matches {
		lines = append(lines, fmt.Sprintf("%s:%d: %s", m.Path, m.Line, m.Text))
	}
	return strings.Join(lines, "\n"), nil
}

func (a *Agent) toolListFiles(ctx context.Context, args map[string]any) (string, error) {
	path, _ := args["path"].(string)
	if path == "" {
		path = "."
	}
	recursive, _ := args["recursive"].(bool)
	files, err := a.ws.ListFiles(path, recursive)
	if err != nil {
		return "", err
	}
	if len(files) == 0 {
		return "No files found.", nil
	}
	var lines []string
	for _, f := range files {
		lines = append(lines, f.Path)
	}
	return strings.Join(lines, "\n"), nil
}

func (a *Agent) toolBuildKernel(ctx context.Context, args map[string]any) (string, error) {
	target, _ := args["target"].(string)
	if target == "" {
		target = "all"
	}
	result := a.build.Run(ctx, a.ws.Root, target)
	return summarizeBuild(result), nil
}

func summarizeBuild(r *validate.BuildResult) string {
	if r.Success {
		return fmt.Sprintf("Build succeeded in %s.", r.Duration)
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Build failed (exit %d) in %s.\n", r.ExitCode, r.Duration)
	for _, d := range r.Diagnostics {
		fmt.Fprintf(&b, "%s:%d:%d: %s: %s\n", d.File, d.Line, d.Col, d.Level, d.Message)
	}
	return b.String()
}

func (a *Agent) toolRunTest(ctx context.Context, args map[string]any) (string, error) {
	image, _ := args["image"].(string)
	if image == "" {
		image = filepath.Join(a.ws.Root, "build", "kernel.img")
	}
	result := a.test.Run(ctx, a.arch, image)
	var b strings.Builder
	for _, tc := range result.Tests {
		status := "PASS"
		if !tc.Passed {
			status = "FAIL"
		}
		fmt.Fprintf(&b, "[TEST] %s: %s", tc.Name, status)
		if tc.Message != "" {
			fmt.Fprintf(&b, " - %s", tc.Message)
		}
		b.WriteString("\n")
	}
	fmt.Fprintf(&b, "boot_success=%v\n", result.BootSuccess)
	return b.String(), nil
}

func (a *Agent) toolGitCommit(ctx context.Context, args map[string]any) (string, error) {
	message, _ := args["message"].(string)
	var files []string
	if raw, ok := args["files"].([]any); ok {
		for _, f := range raw {
			if s, ok := f.(string); ok {
				files = append(files, s)
			}
		}
	}
	if err := a.ws.Commit(ctx, message, files); err != nil {
		return "", err
	}
	return fmt.Sprintf("Committed: %s", message), nil
}

func (a *Agent) toolGitDiff(ctx context.Context, args map[string]any) (string, error) {
	branch, _ := args["branch"].(string)
	diff, err := a.ws.Diff(ctx, branch)
	if err != nil {
		return "", err
	}
	if diff == "" {
		return "No changes.", nil
	}
	return diff, nil
}

func (a *Agent) toolReadSpec(ctx context.Context, args map[string]any) (string, error) {
	section, _ := args["section"].(string)
	var path string
	if section == "" || section == "architecture" {
		path = filepath.Join(a.specRoot, "architecture.md")
	} else {
		path = filepath.Join(a.specRoot, "subsystems", section+".md")
	}
	content, err := os.ReadFile(path)
	if err != nil {
		return fmt.Sprintf("Specification not found: %s", section), nil
	}
	return string(content), nil
}

func (a *Agent) toolShell(ctx context.Context, args map[string]any) (string, error) {
	command, _ := args["command"].(string)
	if command == "" {
		return "", fmt.Errorf("missing command")
	}

	runCtx, cancel := context.WithTimeout(ctx, defaultShellTimeout)
	defer cancel()

	cmd := exec.CommandContext(runCtx, "sh", "-c", command)
	cmd.Dir = a.ws.Root

	var outBuf, errBuf bytes.Buffer
	cmd.Stdout = &outBuf
	cmd.Stderr = &errBuf

	err := cmd.Run()
	if runCtx.Err() == context.DeadlineExceeded {
		return fmt.Sprintf("command timed out after %s: %s", defaultShellTimeout, command), nil
	}

	output := outBuf.String()
	if errBuf.Len() > 0 {
		output += "\n[stderr]\n" + errBuf.String()
	}
	exitCode := -1
	if cmd.ProcessState != nil {
		exitCode = cmd.ProcessState.ExitCode()
	}
	output += fmt.Sprintf("\n[exit code: %d]", exitCode)
	if err != nil && exitCode < 0 {
		return "", err
	}
	return output, nil
}
