// Package logging provides the minimal logging interface and adapters used
// across parley.
//
// The Logger interface defines the standard logging methods (Debug, Info,
// Warn, Error) that the chat manager, strategies and tools use for
// observability. This package includes:
//
//   - Logger interface for dependency injection
//   - SlogAdapter wrapping Go's structured logging
//   - NoOpLogger for silent operation (testing, minimal setups)
//
// Usage:
//
//	logger := logging.NewSlogLogger(logging.LogLevelInfo, "json", false)
//	mgr := chat.NewManager(store, roster, commands, chat.WithLogger(logger))
//
// The design intentionally keeps the interface minimal to avoid vendor
// lock-in while supporting structured logging where available.
package logging
