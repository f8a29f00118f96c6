// Package scheduler implements the role-pool scheduler: it maintains a
// map from role name to a list of agent slots and matches ready tasks
// from the TaskGraph to idle agents of the matching role, in priority
// order.
package scheduler
