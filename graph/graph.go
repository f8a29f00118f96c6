package graph

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"
)

// ErrCycleDetected is returned by TopologicalOrder when the graph is not
// acyclic. It carries the ids that could not be ordered.
type ErrCycleDetected struct {
	TaskIDs []string
}

func (e *ErrCycleDetected) Error() string {
	return fmt.Sprintf("cycle detected among tasks: %v", e.TaskIDs)
}

// ErrUnknownDependency is returned by UpdateState and AssignAgent when
// the given task id is not in the graph. AddTask and AddTasks do not
// check dependency ids: a task whose dependency was never added stays
// pending, and TopologicalOrder reports it among the ids it cannot order.
var ErrUnknownDependency = errors.New("dependency refers to unknown task")

// ErrIllegalTransition is returned by UpdateState when the requested
// state change is not one of the permitted transitions.
var ErrIllegalTransition = errors.New("illegal task state transition")

// legalTransitions enumerates the state-transition table from SPEC_FULL
// §3 TaskGraph invariants (d).
var legalTransitions = map[TaskState]map[TaskState]bool{
	StatePending:  {StateReady: true, StateBlocked: true},
	StateReady:    {StateRunning: true, StateBlocked: true},
	StateRunning:  {StateReview: true, StateFailed: true, StateBlocked: true},
	StateReview:   {StateApproved: true, StateBlocked: true, StateFailed: true},
	StateApproved: {StateMerged: true, StateBlocked: true},
	StateBlocked:  {StateReady: true, StatePending: true, StateFailed: true},
}

// TaskGraph is a DAG of Tasks with cascading readiness.
type TaskGraph struct {
	mu         sync.RWMutex
	nodes      map[string]*Task
	dependents map[string]map[string]struct{} // taskID -> set of tasks that depend on it
	logger     *zap.Logger
}

// New creates an empty TaskGraph.
func New(logger *zap.Logger) *TaskGraph {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TaskGraph{
		nodes:      make(map[string]*Task),
		dependents: make(map[string]map[string]struct{}),
		logger:     logger.With(zap.String("component", "task_graph")),
	}
}

// AddTask inserts a task, records reverse-dependency edges and
// evaluates its readiness.
func (g *TaskGraph) AddTask(t *Task) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.addTaskLocked(t)
}

func (g *TaskGraph) addTaskLocked(t *Task) error {
	if t.State == "" {
		t.State = StatePending
	}
	now := time.Now()
	if t.CreatedAt.IsZero() {
		t.CreatedAt = now
	}
	t.UpdatedAt = now

	g.nodes[t.ID] = t
	for _, dep := range t.Dependencies {
		if g.dependents[dep] == nil {
			g.dependents[dep] = make(map[string]struct{})
		}
		g.dependents[dep][t.ID] = struct{}{}
	}
	g.updateReadinessLocked(t.ID)
	return nil
}

// AddTasks bulk-inserts tasks, re-evaluating readiness for every new
// task after all insertions so intra-batch dependencies resolve.
func (g *TaskGraph) AddTasks(tasks []*Task) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	for _, t := range tasks {
		if t.State == "" {
			t.State = StatePending
		}
		now := time.Now()
		if t.CreatedAt.IsZero() {
			t.CreatedAt = now
		}
		t.UpdatedAt = now
		g.nodes[t.ID] = t
		for _, dep := range t.Dependencies {
			if g.dependents[dep] == nil {
				g.dependents[dep] = make(map[string]struct{})
			}
			g.dependents[dep][t.ID] = struct{}{}
		}
	}
	for _, t := range tasks {
		g.updateReadinessLocked(t.ID)
	}
	return nil
}

// Get returns a clone of the task with the given id, or nil if absent.
func (g *TaskGraph) Get(id string) *Task {
	g.mu.RLock()
	defer g.mu.RUnlock()
	t, ok := g.nodes[id]
	if !ok {
		return nil
	}
	return t.Clone()
}

// UpdateState sets a task's state, validating the transition, and, when
// the new state is merged, cascades readiness to direct dependents.
func (g *TaskGraph) UpdateState(id string, newState TaskState) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	t, ok := g.nodes[id]
	if !ok {
		return fmt.Errorf("update state: %w: %s", ErrUnknownDependency, id)
	}
	if t.State != newState {
		allowed := legalTransitions[t.State]
		if !allowed[newState] {
			return fmt.Errorf("%w: %s -> %s (task %s)", ErrIllegalTransition, t.State, newState, id)
		}
	}
	t.State = newState
	t.UpdatedAt = time.Now()

	if newState == StateMerged {
		for dependentID := range g.dependents[id] {
			g.updateReadinessLocked(dependentID)
		}
	}
	return nil
}

// AssignAgent sets the agent id on a task and transitions it to running.
func (g *TaskGraph) AssignAgent(id, agentID string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	t, ok := g.nodes[id]
	if !ok {
		return fmt.Errorf("assign agent: %w: %s", ErrUnknownDependency, id)
	}
	t.AssignedTo = agentID
	t.State = StateRunning
	t.UpdatedAt = time.Now()
	return nil
}

// updateReadinessLocked fires only from pending, matching the Python
// original's "only fires from PENDING" rule. Readiness is monotone: a
// task that is already ready/running/etc. is left alone.
func (g *TaskGraph) updateReadinessLocked(id string) {
	t, ok := g.nodes[id]
	if !ok || t.State != StatePending {
		return
	}
	for _, dep := range t.Dependencies {
		depTask, ok := g.nodes[dep]
		if !ok || depTask.State != StateMerged {
			return
		}
	}
	t.State = StateReady
	t.UpdatedAt = time.Now()
	g.logger.Debug("task became ready", zap.String("task_id", id))
}

// GetReadyTasks returns all ready tasks sorted by ascending priority.
func (g *TaskGraph) GetReadyTasks() []*Task {
	return g.GetTasksByState(StateReady)
}

// GetTasksByState enumerates tasks in the given state, sorted by
// ascending priority then by id for determinism.
func (g *TaskGraph) GetTasksByState(state TaskState) []*Task {
	g.mu.RLock()
	defer g.mu.RUnlock()
	var out []*Task
	for _, t := range g.nodes {
		if t.State == state {
			out = append(out, t.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Priority != out[j].Priority {
			return out[i].Priority < out[j].Priority
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// TopologicalOrder returns a topological ordering of all task ids using
// Kahn's algorithm. If the resulting order omits any task, a cycle
// exists and ErrCycleDetected names the offending remainder.
func (g *TaskGraph) TopologicalOrder() ([]string, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	inDegree := make(map[string]int, len(g.nodes))
	for id, t := range g.nodes {
		if _, ok := inDegree[id]; !ok {
			inDegree[id] = 0
		}
		for _, dep := range t.Dependencies {
			inDegree[id]++
			_ = dep
		}
	}

	var queue []string
	for id, deg := range inDegree {
		if deg == 0 {
			queue = append(queue, id)
		}
	}
	sort.Strings(queue)

	order := make([]string, 0, len(g.nodes))
	for len(queue) > 0 {
		sort.Strings(queue)
		id := queue[0]
		queue = queue[1:]
		order = append(order, id)

		for depender := range g.dependents[id] {
			inDegree[depender]--
			if inDegree[depender] == 0 {
				queue = append(queue, depender)
			}
		}
	}

	if len(order) != len(g.nodes) {
		seen := make(map[string]bool, len(order))
		for _, id := range order {
			seen[id] = true
		}
		var remaining []string
		for id := range g.nodes {
			if !seen[id] {
				remaining = append(remaining, id)
			}
		}
		sort.Strings(remaining)
		return nil, &ErrCycleDetected{TaskIDs: remaining}
	}
	return order, nil
}

// IsComplete reports whether every task is in a terminal state.
func (g *TaskGraph) IsComplete() bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	for _, t := range g.nodes {
		if !t.State.terminal() {
			return false
		}
	}
	return true
}

// Progress returns a count of tasks per state.
func (g *TaskGraph) Progress() map[TaskState]int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	counts := make(map[TaskState]int)
	for _, t := range g.nodes {
		counts[t.State]++
	}
	return counts
}

// All returns a clone of every task in the graph.
func (g *TaskGraph) All() []*Task {
	g.mu.RLock()
	defer g.mu.RUnlock()
	out := make([]*Task, 0, len(g.nodes))
	for _, t := range g.nodes {
		out = append(out, t.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
