// Package notes provides the note corpus consumed by the discussion tools.
// The Manager interface abstracts note creation, mutation and corpus search;
// InMemoryManager is a process-local implementation suitable for tests and
// single-process deployments.
package notes
