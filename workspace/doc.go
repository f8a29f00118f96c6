// Package workspace implements the versioned file-system abstraction
// agents write through: a git-backed repository with branch-per-task
// conventions and a metadata subtree for tasks and messages.
//
// Git plumbing is invoked with exec.CommandContext against the system
// git binary, the same timeout-bounded external-process shape used
// elsewhere in this module for compilers and emulators.
package workspace
