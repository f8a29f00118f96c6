// Package bus implements the file-backed inter-agent message bus: one
// inbox directory per recipient, one JSON file per message, with
// read-flag semantics and broadcast support.
//
// The default backend persists each message as
// <base>/<recipient_id>/<msg_id>.json. An optional Redis-backed
// implementation of the same Bus interface is available for
// multi-process deployments.
package bus
