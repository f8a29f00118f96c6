// Package runstate implements the crash-recoverable run snapshot,
// grounded on the orchestrator's OrchestratorState dataclass. Save
// writes it to the path it is given; the CLI keeps one file per run id
// at <workspace>/<meta>/state/<run-id>.json, and the Engine saves it at
// each phase change and after each develop iteration, not on every
// update.
package runstate
