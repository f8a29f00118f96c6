// Package store persists graph.Task metadata as one JSON file per task
// under <workspace>/<meta>/tasks/<task_id>.json, mirroring an
// in-memory cache the way the teacher's file-backed stores do, but
// with the per-entity physical layout the orchestrator's on-disk
// contract requires.
package store
