package toolloop

import "github.com/osforge/osforge/types"

func schema(props string) []byte {
	return []byte(`{"type":"object","properties":` + props + `}`)
}

// CanonicalCatalog returns the closed set of tool schemas every agent
// role may be handed, grounded on the dispatch table in the original
// agent's tool-execution loop. Roles narrow this list; none add to it.
func CanonicalCatalog() []types.ToolSchema {
	return []types.ToolSchema{
		{
			Name:        "read_file",
			Description: "Read the contents of a file in the workspace.",
			Parameters:  schema(`{"path":{"type":"string"}}`),
		},
		{
			Name:        "write_file",
			Description: "Write content to a file in the workspace, creating it if absent.",
			Parameters:  schema(`{"path":{"type":"string"},"content":{"type":"string"}}`),
		},
		{
			Name:        "search_code",
			Description: "Search workspace files matching a glob for lines matching a regular expression.",
			Parameters:  schema(`{"pattern":{"type":"string"},"glob":{"type":"string"}}`),
		},
		{
			Name:        "list_files",
			Description: "List files under a workspace directory, optionally recursively.",
			Parameters:  schema(`{"path":{"type":"string"},"recursive":{"type":"boolean"}}`),
		},
		{
			Name:        "build_kernel",
			Description: "Invoke the build entry point for a target and return its diagnostics.",
			Parameters:  schema(`{"target":{"type":"string"}}`),
		},
		{
			Name:        "run_test",
			Description: "Run a test suite and return pass/fail results.",
			Parameters:  schema(`{"suite":{"type":"string"}}`),
		},
		{
			Name:        "git_commit",
			Description: "Stage and commit the given files with a message.",
			Parameters:  schema(`{"message":{"type":"string"},"files":{"type":"array","items":{"type":"string"}}}`),
		},
		{
			Name:        "git_diff",
			Description: "Return the diff against a branch (or HEAD if omitted).",
			Parameters:  schema(`{"branch":{"type":"string"}}`),
		},
		{
			Name:        "read_spec",
			Description: "Read a section of the run's governing specification document.",
			Parameters:  schema(`{"section":{"type":"string"}}`),
		},
		{
			Name:        "shell",
			Description: "Run a bounded, non-interactive shell command inside the workspace root.",
			Parameters:  schema(`{"command":{"type":"string"}}`),
		},
	}
}

// ByName filters CanonicalCatalog down to the named subset, for a role
// that only exposes some of the tools. The result keeps the catalog's
// order whatever the order of names; names not in the catalog are
// skipped.
func ByName(names ...string) []types.ToolSchema {
	want := make(map[string]bool, len(names))
	for _, n := range names {
		want[n] = true
	}
	var out []types.ToolSchema
	for _, t := range CanonicalCatalog() {
		if want[t.Name] {
			out = append(out, t)
		}
	}
	return out
}
