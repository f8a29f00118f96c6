package agentrole

import (
	"github.com/osforge/osforge/toolloop"
	"github.com/osforge/osforge/types"
)

// Role names an agent specialization. The set matches the roles the
// Scheduler pre-seeds.
type Role string

const (
	RoleManager        Role = "manager"
	RoleArchitect      Role = "architect"
	RoleDeveloper      Role = "developer"
	RoleReviewer       Role = "reviewer"
	RoleTester         Role = "tester"
	RoleIntegrator     Role = "integrator"
	RoleDataScientist  Role = "data_scientist"
	RoleModelArchitect Role = "model_architect"
	RoleTraining       Role = "training"
)

// Definition is the data a role contributes: a system prompt template
// and the narrowed tool catalog it may call. Behavior is uniform and
// lives entirely in Agent.
type Definition struct {
	Role         Role
	SystemPrompt string
	ToolNames    []string
}

// Definitions returns the canonical prompt/tool-set pairing for every
// role, grounded on the original agents' per-role system prompts and
// narrowed tool dispatch tables.
func Definitions() map[Role]Definition {
	return map[Role]Definition{
		RoleManager: {
			Role: RoleManager,
			SystemPrompt: "You are the manager agent coordinating a multi-agent build. " +
				"Decompose the stated goal into a dependency-ordered task list; each task " +
				"names a subsystem, an assigned role, and any tasks it depends on.",
			ToolNames: []string{"read_spec", "list_files", "read_file"},
		},
		RoleArchitect: {
			Role: RoleArchitect,
			SystemPrompt: "You are the architect agent. Produce interface artifacts for a " +
				"subsystem — header files, type definitions, function signatures — before " +
				"any implementation task depending on them begins.",
			ToolNames: []string{"read_spec", "read_file", "write_file", "list_files", "search_code", "git_commit"},
		},
		RoleDeveloper: {
			Role: RoleDeveloper,
			SystemPrompt: "You are the developer agent. Implement the assigned subsystem " +
				"against the architect's interface artifacts, on your own branch.",
			ToolNames: []string{"read_spec", "read_file", "write_file", "list_files", "search_code", "build_kernel", "git_commit", "git_diff"},
		},
		RoleReviewer: {
			Role: RoleReviewer,
			SystemPrompt: "You are the reviewer agent. Examine a developer's diff for " +
				"correctness and interface compliance; approve or reject with reasons.",
			ToolNames: []string{"read_file", "search_code", "git_diff"},
		},
		RoleTester: {
			Role: RoleTester,
			SystemPrompt: "You are the tester agent. Build and boot the kernel image and " +
				"report which tests pass and fail.",
			ToolNames: []string{"build_kernel", "run_test", "read_file"},
		},
		RoleIntegrator: {
			Role: RoleIntegrator,
			SystemPrompt: "You are the integrator agent. Merge approved branches and run " +
				"the full build/unit/integration pipeline across the combined tree.",
			ToolNames: []string{"build_kernel", "run_test", "git_diff", "git_commit", "list_files"},
		},
		RoleDataScientist: {
			Role: RoleDataScientist,
			SystemPrompt: "You are the data scientist agent. Prepare and validate the " +
				"training dataset for a small language model.",
			ToolNames: []string{"read_spec", "read_file", "write_file", "list_files", "shell"},
		},
		RoleModelArchitect: {
			Role: RoleModelArchitect,
			SystemPrompt: "You are the model architect agent. Design the model " +
				"architecture and hyperparameters for the training run.",
			ToolNames: []string{"read_spec", "read_file", "write_file", "search_code"},
		},
		RoleTraining: {
			Role: RoleTraining,
			SystemPrompt: "You are the training agent. Launch and monitor the training " +
				"job, reporting loss curves and final checkpoints.",
			ToolNames: []string{"read_file", "write_file", "shell"},
		},
	}
}

// ToolSchemas resolves a Definition's narrowed tool catalog against
// the canonical catalog.
func (d Definition) ToolSchemas() []types.ToolSchema {
	return toolloop.ByName(d.ToolNames...)
}
