// Package store provides the persistence backends of the workflow engine: an
// in-memory store for tests and ephemeral runs, and a SQLite store for
// durable state. Both implement workflow.Store with all-or-nothing
// transaction semantics.
package store
