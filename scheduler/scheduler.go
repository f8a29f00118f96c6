package scheduler

import (
	"sync"

	"go.uber.org/zap"

	"github.com/osforge/osforge/graph"
)

// AgentState is the lifecycle state of an Agent as observed by the
// scheduler, mirroring the Python original's AgentState enum.
type AgentState string

const (
	AgentIdle      AgentState = "idle"
	AgentThinking  AgentState = "thinking"
	AgentExecuting AgentState = "executing"
	AgentWaiting   AgentState = "waiting"
	AgentDone      AgentState = "done"
	AgentError     AgentState = "error"
)

// Agent is the minimal surface the scheduler needs from an agent
// instance; the agentrole package's Agent implementation satisfies
// this without the scheduler depending on it.
type Agent interface {
	ID() string
	State() AgentState
}

// Slot tracks an agent instance and its current assignment.
type Slot struct {
	Agent       Agent
	CurrentTask string
	Busy        bool
}

// Assignment pairs an available slot with the ready task it was
// matched to.
type Assignment struct {
	Slot *Slot
	Task *graph.Task
}

// RoleStatus is a diagnostic snapshot of one role's slot pool.
type RoleStatus struct {
	Total       int               `json:"total"`
	Busy        int               `json:"busy"`
	Idle        int               `json:"idle"`
	Assignments map[string]string `json:"assignments"`
}

// Scheduler matches ready tasks from a TaskGraph to idle agents,
// grouped by role.
type Scheduler struct {
	graph  *graph.TaskGraph
	mu     sync.Mutex
	agents map[string][]*Slot
	logger *zap.Logger
}

// New creates a Scheduler bound to g, pre-seeding the canonical roles
// so Status() reports a stable shape even before any agent registers.
func New(g *graph.TaskGraph, logger *zap.Logger) *Scheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Scheduler{
		graph: g,
		agents: map[string][]*Slot{
			"developer":        {},
			"reviewer":         {},
			"tester":           {},
			"architect":        {},
			"integrator":       {},
			"manager":          {},
			"data_scientist":   {},
			"model_architect":  {},
			"training":         {},
		},
		logger: logger.With(zap.String("component", "scheduler")),
	}
	return s
}

// RegisterAgent appends a slot for the given role, creating the role
// entry if absent.
func (s *Scheduler) RegisterAgent(role string, agent Agent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.agents[role] = append(s.agents[role], &Slot{Agent: agent})
	s.logger.Info("registered agent", zap.String("role", role), zap.String("agent_id", agent.ID()))
}

// GetAvailableAgent returns the first idle slot of the given role, or
// nil. First-registered wins among idle slots of the same role.
func (s *Scheduler) GetAvailableAgent(role string) *Slot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.getAvailableAgentLocked(role)
}

func (s *Scheduler) getAvailableAgentLocked(role string) *Slot {
	for _, slot := range s.agents[role] {
		if !slot.Busy && (slot.Agent.State() == AgentIdle || slot.Agent.State() == AgentDone) {
			return slot
		}
	}
	return nil
}

// GetAssignments matches every currently ready task, in priority order,
// to an available agent of its assigned role. No agent slot is ever
// returned twice in one call.
func (s *Scheduler) GetAssignments() []Assignment {
	ready := s.graph.GetReadyTasks()

	s.mu.Lock()
	defer s.mu.Unlock()

	var assignments []Assignment
	for _, task := range ready {
		slot := s.getAvailableAgentLocked(task.AssignedRole)
		if slot == nil {
			continue
		}
		slot.Busy = true
		slot.CurrentTask = task.ID
		if err := s.graph.AssignAgent(task.ID, slot.Agent.ID()); err != nil {
			s.logger.Warn("failed to assign agent in graph", zap.Error(err), zap.String("task_id", task.ID))
			slot.Busy = false
			slot.CurrentTask = ""
			continue
		}
		assignments = append(assignments, Assignment{Slot: slot, Task: task})
		s.logger.Info("assigned task",
			zap.String("task_id", task.ID),
			zap.String("agent_id", slot.Agent.ID()),
			zap.String("role", task.AssignedRole),
		)
	}
	return assignments
}

// ReleaseAgent clears busy/current-task on the slot owning agentID.
func (s *Scheduler) ReleaseAgent(agentID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, slots := range s.agents {
		for _, slot := range slots {
			if slot.Agent.ID() == agentID {
				slot.Busy = false
				slot.CurrentTask = ""
				return
			}
		}
	}
}

// BusyCount returns the number of busy slots across all roles.
func (s *Scheduler) BusyCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, slots := range s.agents {
		for _, slot := range slots {
			if slot.Busy {
				n++
			}
		}
	}
	return n
}

// IdleCount returns the number of idle slots across all roles.
func (s *Scheduler) IdleCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, slots := range s.agents {
		for _, slot := range slots {
			if !slot.Busy {
				n++
			}
		}
	}
	return n
}

// Status returns a diagnostic snapshot per role.
func (s *Scheduler) Status() map[string]RoleStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	result := make(map[string]RoleStatus, len(s.agents))
	for role, slots := range s.agents {
		busy, idle := 0, 0
		assignments := make(map[string]string)
		for _, slot := range slots {
			if slot.Busy {
				busy++
				assignments[slot.Agent.ID()] = slot.CurrentTask
			} else {
				idle++
			}
		}
		result[role] = RoleStatus{Total: len(slots), Busy: busy, Idle: idle, Assignments: assignments}
	}
	return result
}
