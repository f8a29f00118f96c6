package engine

import (
	"github.com/osforge/osforge/cost"
	"github.com/osforge/osforge/graph"
	"github.com/osforge/osforge/runstate"
	"github.com/osforge/osforge/scheduler"
)

// Status is a read-only snapshot of a run. The CLI's run command prints
// it when the run ends; Engine.Status also pushes it to the Prometheus
// gauges when metrics are configured.
type Status struct {
	Phase    runstate.Phase                  `json:"phase"`
	Progress map[graph.TaskState]int          `json:"progress"`
	Agents   map[string]scheduler.RoleStatus `json:"agents"`
	Cost     map[string]cost.Usage           `json:"cost"`
	TotalCost float64                        `json:"total_cost_usd"`
	Iteration int                            `json:"iteration"`
}

// Status returns a snapshot of the engine's current state. The task
// graph, scheduler and cost tracker lock for themselves, but Phase and
// Iteration are read from the run state without its lock, so Status is
// not safe to call while Run is in progress. When cfg.Metrics is set,
// it also pushes the snapshot to the Prometheus collector.
func (e *Engine) Status() Status {
	phase := runstate.PhaseInit
	iteration := 0
	var totalCost float64
	if e.state != nil {
		phase = e.state.Phase
		iteration = e.state.Iteration
		totalCost = e.tracker.Total()
	}
	agents := e.sched.Status()
	status := Status{
		Phase:     phase,
		Progress:  e.taskGraph.Progress(),
		Agents:    agents,
		Cost:      e.tracker.Snapshot(),
		TotalCost: totalCost,
		Iteration: iteration,
	}
	if e.metrics != nil {
		e.metrics.SetRunProgress(totalCost, iteration)
		for role, roleStatus := range agents {
			e.metrics.SetRoleOccupancy(role, roleStatus.Busy, roleStatus.Idle)
		}
	}
	return status
}

// Tasks returns every task currently tracked by the graph, sorted by id.
func (e *Engine) Tasks() []*graph.Task {
	return e.taskGraph.All()
}
