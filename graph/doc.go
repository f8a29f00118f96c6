// Package graph implements the task dependency graph: a DAG of Task
// nodes with cascading readiness, cycle detection, and topological
// ordering.
//
// A task becomes ready only once every dependency has reached the
// merged state; merging a task re-evaluates the readiness of its
// direct dependents so readiness cascades without a separate sweep.
package graph
