package engine

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/osforge/osforge/agentrole"
	"github.com/osforge/osforge/bus"
	"github.com/osforge/osforge/cost"
	"github.com/osforge/osforge/graph"
	"github.com/osforge/osforge/internal/metrics"
	"github.com/osforge/osforge/internal/pool"
	"github.com/osforge/osforge/llm"
	"github.com/osforge/osforge/llm/observability"
	"github.com/osforge/osforge/llmgateway"
	"github.com/osforge/osforge/runstate"
	"github.com/osforge/osforge/scheduler"
	"github.com/osforge/osforge/store"
	"github.com/osforge/osforge/validate"
	"github.com/osforge/osforge/workspace"
)

// WorkflowMode selects what kind of task graph planning seeds.
type WorkflowMode string

const (
	ModeKernelBuild WorkflowMode = "kernel_build"
	ModeSLMTraining WorkflowMode = "slm_training"
	ModeDual        WorkflowMode = "dual"
)

const maxDevelopIterations = 50

// AgentCounts configures how many slots of each multi-instance role
// the engine registers with the Scheduler.
type AgentCounts struct {
	Developers     int
	Reviewers      int
	Testers        int
	TrainingAgents int
}

// DefaultAgentCounts mirrors the original's per-role defaults.
func DefaultAgentCounts() AgentCounts {
	return AgentCounts{Developers: 4, Reviewers: 1, Testers: 1, TrainingAgents: 2}
}

// Config bundles everything an Engine needs to run.
type Config struct {
	WorkspaceRoot string
	SpecRoot      string
	StatePath     string
	Mode          WorkflowMode
	AgentCounts   AgentCounts
	ModelOverride map[agentrole.Role]string
	DefaultModel  string
	Arch          validate.ArchProfile
	BuildTarget   string
	UnitImage     string
	IntegrationImage string

	Providers map[string]llm.Provider
	Prices    *cost.PriceTable
	HardCapUSD float64
	SoftCapUSD float64

	BusBackend   bus.Config
	StoreBackend store.Config

	// Metrics, when set, receives Prometheus gauge/counter updates on
	// every Status() call and on every LLM request. Nil disables
	// metrics export entirely.
	Metrics *metrics.Collector

	// Tracer, when set, wraps Run's phases and every LLM request in
	// spans. Nil leaves both untraced.
	Tracer *observability.Tracer

	Logger *zap.Logger
}

// Engine runs the full orchestration loop for a goal: plan, design,
// develop, integrate.
type Engine struct {
	cfg    Config
	logger *zap.Logger

	tracker   *cost.Tracker
	gateway   *llmgateway.Gateway
	ws        *workspace.Workspace
	msgBus    bus.Bus
	taskStore store.TaskStore
	taskGraph *graph.TaskGraph
	sched     *scheduler.Scheduler
	build     *validate.BuildValidator
	test      *validate.TestValidator
	composer  *validate.CompositionValidator

	agents map[string]*agentrole.Agent

	state   *runstate.State
	metrics *metrics.Collector
	tracer  *observability.Tracer
}

// New wires every subsystem from cfg. The file-backed message bus and
// task store create their directories here; the workspace and the
// agents are initialized by Run.
func New(cfg Config, now time.Time) (*Engine, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Mode == "" {
		cfg.Mode = ModeKernelBuild
	}
	if cfg.Prices == nil {
		cfg.Prices = cost.NewPriceTable()
	}

	tracker := cost.New(cfg.Prices, cfg.HardCapUSD, cfg.SoftCapUSD, logger)
	gateway := llmgateway.New(cfg.Providers, tracker, llmgateway.DefaultConfig(), logger)
	if cfg.Tracer != nil {
		gateway = gateway.WithTracer(cfg.Tracer)
	}
	if cfg.Metrics != nil {
		gateway = gateway.WithMetrics(cfg.Metrics)
	}

	ws := workspace.New(cfg.WorkspaceRoot, logger)

	busCfg := cfg.BusBackend
	if busCfg.BaseDir == "" {
		busCfg.BaseDir = filepath.Join(cfg.WorkspaceRoot, ".osforge", "messages")
	}
	msgBus, err := bus.New(busCfg, logger)
	if err != nil {
		return nil, fmt.Errorf("construct message bus: %w", err)
	}

	storeCfg := cfg.StoreBackend
	if storeCfg.BaseDir == "" {
		storeCfg.BaseDir = filepath.Join(cfg.WorkspaceRoot, ".osforge", "tasks")
	}
	taskStore, err := store.New(storeCfg, logger)
	if err != nil {
		return nil, fmt.Errorf("construct task store: %w", err)
	}

	taskGraph := graph.New(logger)
	sched := scheduler.New(taskGraph, logger)

	build := validate.NewBuildValidator(0, logger)
	test := validate.NewTestValidator(0, logger)
	composer := validate.NewCompositionValidator(build, test, logger)

	e := &Engine{
		cfg:       cfg,
		logger:    logger.With(zap.String("component", "engine")),
		tracker:   tracker,
		gateway:   gateway,
		ws:        ws,
		msgBus:    msgBus,
		taskStore: taskStore,
		taskGraph: taskGraph,
		sched:     sched,
		build:     build,
		test:      test,
		composer:  composer,
		agents:    make(map[string]*agentrole.Agent),
		metrics:   cfg.Metrics,
		tracer:    cfg.Tracer,
	}
	return e, nil
}

// recordStateTransition notifies the metrics collector, if configured,
// that a task entered newState.
func (e *Engine) recordStateTransition(newState graph.TaskState) {
	if e.metrics != nil {
		e.metrics.RecordTaskStateTransition(string(newState))
	}
}

// modelFor resolves the per-role model override, falling back to the
// engine-wide default model.
func (e *Engine) modelFor(role agentrole.Role) string {
	if m, ok := e.cfg.ModelOverride[role]; ok && m != "" {
		return m
	}
	return e.cfg.DefaultModel
}

func (e *Engine) newAgent(id string, role agentrole.Role) *agentrole.Agent {
	a := agentrole.New(agentrole.Config{
		ID:         id,
		Definition: agentrole.Definitions()[role],
		Workspace:  e.ws,
		Bus:        e.msgBus,
		Gateway:    e.gateway,
		Build:      e.build,
		Test:       e.test,
		Arch:       e.cfg.Arch,
		SpecRoot:   e.cfg.SpecRoot,
		Model:      e.modelFor(role),
		Budget:     e.tracker,
		Logger:     e.logger,
	})
	e.agents[id] = a
	return a
}

// initAgents creates every role's agent instances and registers the
// multi-instance roles with the Scheduler.
func (e *Engine) initAgents() {
	counts := e.cfg.AgentCounts
	if counts.Developers == 0 && counts.Reviewers == 0 && counts.Testers == 0 && counts.TrainingAgents == 0 {
		counts = DefaultAgentCounts()
	}

	manager := e.newAgent("manager-01", agentrole.RoleManager)
	e.sched.RegisterAgent("manager", manager)

	architect := e.newAgent("architect-01", agentrole.RoleArchitect)
	e.sched.RegisterAgent("architect", architect)

	integrator := e.newAgent("integrator-01", agentrole.RoleIntegrator)
	e.sched.RegisterAgent("integrator", integrator)

	for i := 1; i <= counts.Developers; i++ {
		a := e.newAgent(fmt.Sprintf("dev-%02d", i), agentrole.RoleDeveloper)
		e.sched.RegisterAgent("developer", a)
	}
	for i := 1; i <= counts.Reviewers; i++ {
		a := e.newAgent(fmt.Sprintf("reviewer-%02d", i), agentrole.RoleReviewer)
		e.sched.RegisterAgent("reviewer", a)
	}
	for i := 1; i <= counts.Testers; i++ {
		a := e.newAgent(fmt.Sprintf("tester-%02d", i), agentrole.RoleTester)
		e.sched.RegisterAgent("tester", a)
	}

	if e.cfg.Mode == ModeSLMTraining || e.cfg.Mode == ModeDual {
		ds := e.newAgent("data-scientist-01", agentrole.RoleDataScientist)
		e.sched.RegisterAgent("data_scientist", ds)

		ma := e.newAgent("model-architect-01", agentrole.RoleModelArchitect)
		e.sched.RegisterAgent("model_architect", ma)

		for i := 1; i <= counts.TrainingAgents; i++ {
			a := e.newAgent(fmt.Sprintf("training-%02d", i), agentrole.RoleTraining)
			e.sched.RegisterAgent("training", a)
		}
	}

	e.logger.Info("agents initialized",
		zap.Int("developers", counts.Developers),
		zap.Int("reviewers", counts.Reviewers),
		zap.Int("testers", counts.Testers),
		zap.String("mode", string(e.cfg.Mode)),
	)
}

// Run executes the full orchestration loop for goal: planning,
// designing, the bounded development loop, and final integration. It
// never returns the run's own task-level failures as a Go error — only
// budget exhaustion, an I/O failure, or a malformed workflow mode do.
func (e *Engine) Run(ctx context.Context, runID, goal string) (*runstate.State, error) {
	now := time.Now()
	state, err := runstate.LoadOrCreate(e.cfg.StatePath, runID, goal, now)
	if err != nil {
		return nil, fmt.Errorf("load run state: %w", err)
	}
	e.state = state

	e.logger.Info("orchestration run starting", zap.String("run_id", runID), zap.String("goal", goal))

	var runSpan *observability.Trace
	if e.tracer != nil {
		ctx, runSpan = e.tracer.StartSpan(ctx, observability.SpanKindRun, runID, goal)
	}

	if err := e.ws.Init(ctx); err != nil {
		if e.tracer != nil {
			e.tracer.EndSpan(ctx, runSpan, err)
		}
		return state, fmt.Errorf("init workspace: %w", err)
	}
	e.initAgents()

	runErr := e.runPhases(ctx, goal)
	if e.tracer != nil {
		e.tracer.EndSpan(ctx, runSpan, runErr)
	}
	if runErr != nil {
		state.SetPhase(runstate.PhaseError, time.Now())
		state.RecordError("engine", runErr.Error(), "", time.Now())
		_ = state.Save(e.cfg.StatePath)
		return state, runErr
	}

	state.SetPhase(runstate.PhaseDone, time.Now())
	_ = state.Save(e.cfg.StatePath)
	return state, nil
}

func (e *Engine) runPhases(ctx context.Context, goal string) error {
	if err := e.checkBudget(); err != nil {
		return err
	}

	// Phase 1: planning.
	e.state.SetPhase(runstate.PhasePlanning, time.Now())
	_ = e.state.Save(e.cfg.StatePath)
	e.logger.Info("phase: planning")

	tasks, err := e.plan(ctx, goal)
	if err != nil {
		return err
	}
	if len(tasks) == 0 {
		return fmt.Errorf("planning produced no tasks")
	}
	e.state.TasksCreated = len(tasks)
	if err := e.taskGraph.AddTasks(tasks); err != nil {
		return fmt.Errorf("add tasks to graph: %w", err)
	}
	for _, t := range tasks {
		_ = e.taskStore.Save(t)
	}

	// Phase 2: designing.
	e.state.SetPhase(runstate.PhaseDesigning, time.Now())
	_ = e.state.Save(e.cfg.StatePath)
	e.logger.Info("phase: designing")

	if err := e.design(ctx, tasks); err != nil {
		return err
	}

	// Phase 3: developing.
	e.state.SetPhase(runstate.PhaseDeveloping, time.Now())
	_ = e.state.Save(e.cfg.StatePath)
	e.logger.Info("phase: developing")

	if err := e.develop(ctx, goal); err != nil {
		return err
	}

	// Phase 4: integrating.
	e.state.SetPhase(runstate.PhaseIntegrating, time.Now())
	_ = e.state.Save(e.cfg.StatePath)
	e.logger.Info("phase: integrating")

	return e.finalIntegration(ctx)
}

func (e *Engine) checkBudget() error {
	if err := e.tracker.CheckBudget(); err != nil {
		return err
	}
	return nil
}

// plan builds the task list for the workflow mode: the kernel-build
// plan from decomposeGoal for kernel_build/dual, plus the fixed SLM
// training pipeline for slm_training/dual.
func (e *Engine) plan(ctx context.Context, goal string) ([]*graph.Task, error) {
	var tasks []*graph.Task

	switch e.cfg.Mode {
	case ModeSLMTraining:
		tasks = graph.CreateSLMTrainingTasks(goal)
	case ModeKernelBuild, ModeDual:
		kernelTasks, err := e.decomposeGoal(ctx, goal)
		if err != nil {
			return nil, err
		}
		tasks = kernelTasks
		if e.cfg.Mode == ModeDual {
			tasks = append(tasks, graph.CreateSLMTrainingTasks(goal)...)
		}
	default:
		return nil, fmt.Errorf("unknown workflow mode: %s", e.cfg.Mode)
	}
	return tasks, nil
}

// decomposeGoal asks the Manager agent for a subsystem list and builds
// the templated kernel-build plan from it: every non-empty line of the
// Manager's final summary, stripped of list markers and lower-cased,
// becomes one subsystem. When no line remains, the plan has a single
// "core" subsystem. The Manager's reply is not parsed into tasks of its
// own.
func (e *Engine) decomposeGoal(ctx context.Context, goal string) ([]*graph.Task, error) {
	manager := e.agents["manager-01"]
	task := &graph.Task{
		ID:          "plan-goal",
		Title:       "Decompose build goal",
		Description: fmt.Sprintf("Decompose this goal into a subsystem list, one name per line: %s", goal),
	}
	result := manager.ExecuteTask(ctx, task)
	subsystems := parseSubsystemList(result.Summary)
	if len(subsystems) == 0 {
		subsystems = []string{"core"}
		e.logger.Warn("manager produced no parseable subsystem list, falling back to single-subsystem plan")
	}
	return graph.CreateKernelBuildTasks(goal, subsystems), nil
}

func parseSubsystemList(summary string) []string {
	var out []string
	for _, line := range splitLines(summary) {
		line = trimListMarker(line)
		if line == "" {
			continue
		}
		out = append(out, line)
	}
	return out
}

// design dispatches one Architect task per distinct subsystem named by
// the plan, checking the workspace back out to main between each so
// every design starts from a clean tree.
func (e *Engine) design(ctx context.Context, tasks []*graph.Task) error {
	architect := e.agents["architect-01"]
	subsystems := distinctSubsystems(tasks)
	for _, sub := range subsystems {
		task := &graph.Task{
			ID:          "design-session-" + sub,
			Title:       fmt.Sprintf("Design %s", sub),
			Subsystem:   sub,
			Description: fmt.Sprintf("Produce interface artifacts for the %s subsystem.", sub),
		}
		if result := architect.ExecuteTask(ctx, task); !result.Success {
			e.logger.Warn("architect design task failed", zap.String("subsystem", sub), zap.String("error", result.Error))
		}
		if err := e.ws.CheckoutMain(ctx); err != nil {
			return fmt.Errorf("checkout main after designing %s: %w", sub, err)
		}
	}
	return nil
}

func distinctSubsystems(tasks []*graph.Task) []string {
	set := make(map[string]struct{})
	for _, t := range tasks {
		if t.Subsystem != "" {
			set[t.Subsystem] = struct{}{}
		}
	}
	out := make([]string, 0, len(set))
	for s := range set {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}

// develop runs the bounded iteration loop: fan out ready-task
// assignments concurrently, route results to review/merge, and spawn
// follow-up fix tasks for blocked work whose dependencies are
// satisfied.
func (e *Engine) develop(ctx context.Context, goal string) error {
	for iteration := 0; iteration < maxDevelopIterations; iteration++ {
		if err := e.checkBudget(); err != nil {
			return err
		}

		e.state.Iteration = iteration
		e.state.TotalCostUSD = e.tracker.Total()
		_ = e.state.Save(e.cfg.StatePath)

		if e.taskGraph.IsComplete() {
			e.logger.Info("all tasks complete", zap.Int("iteration", iteration))
			break
		}

		progress := e.taskGraph.Progress()
		e.logger.Info("iteration",
			zap.Int("iteration", iteration),
			zap.Any("progress", progress),
			zap.Float64("cost_usd", e.tracker.Total()),
		)

		assignments := e.sched.GetAssignments()
		if len(assignments) == 0 && e.sched.BusyCount() == 0 {
			e.logger.Warn("no tasks schedulable and no agents busy, checking for blocks")
			if e.assessAndUnblock(ctx, goal) {
				continue
			}
			if len(e.taskGraph.GetReadyTasks()) == 0 {
				break
			}
		}

		if len(assignments) > 0 {
			e.executeAssignments(ctx, assignments)
		}

		e.mergeApproved(ctx)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Second):
		}
	}
	return nil
}

// assessAndUnblock asks the Manager to describe what's stuck and
// spawns follow-up fix tasks for any blocked task whose dependencies
// are now satisfied. It reports whether unblocking progress was made
// (the caller should keep looping rather than give up).
func (e *Engine) assessAndUnblock(ctx context.Context, goal string) bool {
	manager := e.agents["manager-01"]
	assessTask := &graph.Task{
		ID:          "assess-progress",
		Title:       "Assess stalled progress",
		Description: fmt.Sprintf("No tasks are currently schedulable for: %s. Summarize what is blocked and why.", goal),
	}
	result := manager.ExecuteTask(ctx, assessTask)
	e.logger.Info("manager assessment", zap.String("summary", result.Summary))

	made := false
	for _, t := range e.taskGraph.GetTasksByState(graph.StateBlocked) {
		if e.dependenciesSatisfied(t) {
			if e.spawnFollowUp(t) {
				made = true
			}
		}
	}
	return made
}

func (e *Engine) dependenciesSatisfied(t *graph.Task) bool {
	for _, dep := range t.Dependencies {
		depTask := e.taskGraph.Get(dep)
		if depTask == nil || depTask.State != graph.StateMerged {
			return false
		}
	}
	return true
}

// spawnFollowUp creates exactly one follow-up fix task for a blocked
// task, leaving the original permanently blocked rather than retrying
// it in place.
func (e *Engine) spawnFollowUp(t *graph.Task) bool {
	followID := t.ID + "-fix"
	if e.taskGraph.Get(followID) != nil {
		return false
	}
	issues := reviewIssues(t)
	follow := &graph.Task{
		ID:           followID,
		Title:        "Fix: " + t.Title,
		Subsystem:    t.Subsystem,
		AssignedRole: t.AssignedRole,
		Priority:     t.Priority - 1,
		Description:  fmt.Sprintf("Address the following review issues before resubmitting:\n%s\n\n%s", issues, t.Description),
	}
	if err := e.taskGraph.AddTask(follow); err != nil {
		e.logger.Warn("failed to add follow-up task", zap.String("task_id", followID), zap.Error(err))
		return false
	}
	_ = e.taskStore.Save(follow)
	e.logger.Info("spawned follow-up task", zap.String("original", t.ID), zap.String("follow_up", followID))
	return true
}

func reviewIssues(t *graph.Task) string {
	if len(t.Reviews) == 0 {
		return "(no recorded review issues)"
	}
	last := t.Reviews[len(t.Reviews)-1]
	if len(last.Issues) == 0 {
		return last.Summary
	}
	var out string
	for _, issue := range last.Issues {
		out += "- " + issue + "\n"
	}
	return out
}

// executeAssignments runs every assignment's agent concurrently via an
// errgroup, recovering each member's error into its own result slot so
// one task's failure never aborts the others — the Go equivalent of
// asyncio.gather(..., return_exceptions=True).
func (e *Engine) executeAssignments(ctx context.Context, assignments []scheduler.Assignment) {
	limit := pool.DefaultGoroutinePoolConfig().MaxWorkers
	if limit > len(assignments) {
		limit = len(assignments)
	}

	results := make([]*agentrole.TaskResult, len(assignments))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)

	for i, a := range assignments {
		i, a := i, a
		g.Go(func() error {
			if err := e.ws.CheckoutMain(gctx); err != nil {
				results[i] = &agentrole.TaskResult{Success: false, TaskID: a.Task.ID, Error: err.Error()}
				return nil
			}
			agent, ok := a.Slot.Agent.(*agentrole.Agent)
			if !ok {
				results[i] = &agentrole.TaskResult{Success: false, TaskID: a.Task.ID, Error: "assignment slot holds an unknown agent type"}
				return nil
			}
			results[i] = agent.ExecuteTask(gctx, a.Task)
			return nil
		})
	}
	_ = g.Wait()

	for i, a := range assignments {
		e.sched.ReleaseAgent(a.Slot.Agent.ID())
		result := results[i]

		if result == nil || !result.Success {
			errText := "task failed"
			if result != nil {
				errText = result.Error
			}
			e.logger.Error("agent task failed", zap.String("agent_id", a.Slot.Agent.ID()), zap.String("error", errText))
			if err := e.taskGraph.UpdateState(a.Task.ID, graph.StateFailed); err != nil {
				e.logger.Warn("failed to mark task failed", zap.Error(err))
			} else {
				e.recordStateTransition(graph.StateFailed)
			}
			e.state.TasksFailed++
			e.state.RecordError(a.Slot.Agent.ID(), errText, a.Task.ID, time.Now())
			continue
		}

		if err := e.taskGraph.UpdateState(a.Task.ID, graph.StateReview); err != nil {
			e.logger.Warn("failed to move task to review", zap.Error(err))
			continue
		}
		e.recordStateTransition(graph.StateReview)
		e.triggerReview(ctx, a.Task.ID, result)
	}
}

// triggerReview hands a completed task to an available Reviewer slot.
// If no reviewer is free, or the result names no branch, the task stays
// in the review state; later iterations do not hand review-state tasks
// to a reviewer again.
func (e *Engine) triggerReview(ctx context.Context, taskID string, result *agentrole.TaskResult) {
	if result.Branch == "" {
		return
	}
	slot := e.sched.GetAvailableAgent("reviewer")
	if slot == nil {
		e.logger.Info("no reviewer available, task queued for review", zap.String("task_id", taskID))
		return
	}
	reviewer, ok := slot.Agent.(*agentrole.Agent)
	if !ok {
		return
	}

	reviewTask := &graph.Task{
		ID:          "review-" + taskID,
		Title:       "Review " + taskID,
		Description: fmt.Sprintf("Review branch %s for task %s. Reply APPROVE or REJECT with reasons.", result.Branch, taskID),
	}
	reviewResult := reviewer.ExecuteTask(ctx, reviewTask)

	if reviewResult.Success && isApproval(reviewResult.Summary) {
		if err := e.taskGraph.UpdateState(taskID, graph.StateApproved); err != nil {
			e.logger.Warn("failed to approve task", zap.String("task_id", taskID), zap.Error(err))
		} else {
			e.recordStateTransition(graph.StateApproved)
		}
	} else {
		if err := e.taskGraph.UpdateState(taskID, graph.StateBlocked); err != nil {
			e.logger.Warn("failed to block task after rejection", zap.String("task_id", taskID), zap.Error(err))
		} else {
			e.recordStateTransition(graph.StateBlocked)
		}
		e.logger.Info("review requested changes", zap.String("task_id", taskID), zap.String("summary", reviewResult.Summary))
	}
}

// mergeApproved hands every approved task to the Integrator and counts
// a completed task for each one that ends up merged.
func (e *Engine) mergeApproved(ctx context.Context) {
	approved := e.taskGraph.GetTasksByState(graph.StateApproved)
	if len(approved) == 0 {
		return
	}
	integrator := e.agents["integrator-01"]
	for _, t := range approved {
		mergeTask := &graph.Task{
			ID:          "merge-" + t.ID,
			Title:       "Merge " + t.ID,
			Description: fmt.Sprintf("Merge branch %s for task %s into main.", t.Branch, t.ID),
		}
		result := integrator.ExecuteTask(ctx, mergeTask)
		if !result.Success {
			if err := e.taskGraph.UpdateState(t.ID, graph.StateBlocked); err != nil {
				e.logger.Warn("failed to block task after merge failure", zap.String("task_id", t.ID), zap.Error(err))
			} else {
				e.recordStateTransition(graph.StateBlocked)
			}
			e.logger.Warn("merge failed, task blocked", zap.String("task_id", t.ID), zap.String("error", result.Error))
			continue
		}
		if err := e.taskGraph.UpdateState(t.ID, graph.StateMerged); err != nil {
			e.logger.Warn("failed to mark task merged", zap.String("task_id", t.ID), zap.Error(err))
			continue
		}
		e.recordStateTransition(graph.StateMerged)
		e.state.TasksCompleted++
	}
}

// finalIntegration runs the composition pipeline (build, unit tests,
// integration tests) across the fully merged tree.
func (e *Engine) finalIntegration(ctx context.Context) error {
	result := e.composer.Validate(ctx, e.ws.Root, e.cfg.BuildTarget, e.cfg.Arch, e.cfg.UnitImage, e.cfg.IntegrationImage)
	if !result.Success {
		for _, issue := range result.Issues {
			e.logger.Warn("composition issue", zap.String("severity", string(issue.Severity)), zap.String("message", issue.Message))
		}
	}
	e.logger.Info("final integration check complete", zap.Bool("success", result.Success))
	return nil
}

func isApproval(summary string) bool {
	return containsFold(summary, "approve")
}
