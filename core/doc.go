// Package core contains the shared data model of parley: chat messages,
// tool calls, sessions, agent profiles, commands and the restricted JSON
// schema subset exposed to model providers.
//
// The types here are deliberately free of orchestration logic. Session is the
// only stateful type; it guards its message history with a mutex and exposes
// append-only mutation so history ordering stays the causal order of the
// conversation. Everything else is plain data passed by value between the
// chat manager, the discussion strategies and the provider adapters.
package core
