// Package store provides core.SessionStore implementations: a volatile
// in-memory store for tests and demos and a SQLite-backed store for durable
// single-process deployments.
package store
