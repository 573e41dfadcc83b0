// Package internal documents the event registration server internals.
//
// The internal tree is organized by responsibility:
// - api: HTTP handlers, middleware, problem responses and routing
// - domain: users, events and the registration engine
// - storage: Postgres repositories and embedded migrations
// - jobs: River workers for confirmation mail and seat reconciliation
// - auth, audit, config, metrics, telemetry, email: shared infrastructure
//
// Code in internal/ is not meant for external import.
package internal
