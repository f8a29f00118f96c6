package runstate

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// Phase is the Engine's current phase name.
type Phase string

const (
	PhaseInit        Phase = "init"
	PhasePlanning    Phase = "planning"
	PhaseDesigning   Phase = "designing"
	PhaseDeveloping  Phase = "developing"
	PhaseIntegrating Phase = "integrating"
	PhaseDone        Phase = "done"
	PhaseError       Phase = "error"
)

// ErrorRecord is one entry in RunState's append-only error log.
type ErrorRecord struct {
	AgentID   string    `json:"agent_id"`
	Error     string    `json:"error"`
	TaskID    string    `json:"task_id,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// State is the crash-recoverable run snapshot. Save writes it
// atomically; RecordError and SetPhase do not save it themselves.
type State struct {
	mu sync.Mutex `json:"-"`

	RunID     string `json:"run_id"`
	Goal      string `json:"goal"`
	Phase     Phase  `json:"phase"`
	StartedAt int64  `json:"started_at"`
	UpdatedAt int64  `json:"updated_at"`

	TasksCreated   int `json:"tasks_created"`
	TasksCompleted int `json:"tasks_completed"`
	TasksFailed    int `json:"tasks_failed"`
	Iteration      int `json:"iteration"`

	TotalCostUSD float64           `json:"total_cost_usd"`
	AgentStates  map[string]string `json:"agent_states"`
	Errors       []ErrorRecord     `json:"errors"`
}

// New creates a fresh State in the init phase.
func New(runID, goal string, now time.Time) *State {
	return &State{
		RunID:       runID,
		Goal:        goal,
		Phase:       PhaseInit,
		StartedAt:   now.Unix(),
		UpdatedAt:   now.Unix(),
		AgentStates: make(map[string]string),
	}
}

// Save writes the state as indented JSON to path, creating parent
// directories as needed.
func (s *State) Save(path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create state dir: %w", err)
	}
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal run state: %w", err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write run state: %w", err)
	}
	return os.Rename(tmp, path)
}

// Load reads a State from path.
func Load(path string) (*State, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read run state: %w", err)
	}
	var s State
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("unmarshal run state: %w", err)
	}
	if s.AgentStates == nil {
		s.AgentStates = make(map[string]string)
	}
	return &s, nil
}

// LoadOrCreate loads an existing state at path, or creates a fresh one
// for (runID, goal) if none exists.
func LoadOrCreate(path, runID, goal string, now time.Time) (*State, error) {
	if _, err := os.Stat(path); err == nil {
		return Load(path)
	}
	return New(runID, goal, now), nil
}

// RecordError appends an error record and bumps updated-at.
func (s *State) RecordError(agentID, errText, taskID string, at time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Errors = append(s.Errors, ErrorRecord{
		AgentID:   agentID,
		Error:     errText,
		TaskID:    taskID,
		Timestamp: at,
	})
	s.UpdatedAt = at.Unix()
}

// SetPhase transitions the phase and bumps updated-at.
func (s *State) SetPhase(p Phase, at time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Phase = p
	s.UpdatedAt = at.Unix()
}
