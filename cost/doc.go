// Package cost tracks per-agent token usage and dollar cost against a
// whole-run budget, raising a hard-stop error once the aggregate
// reaches the configured cap and logging a one-shot warning when it
// first crosses the soft cap.
package cost
