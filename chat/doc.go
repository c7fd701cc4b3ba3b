// Package chat contains the orchestration core: the session manager that
// accepts user input, the agent turn runner that drives the provider/tool
// loop for a single agent, and the discussion strategies that decide which
// agents respond and in what order.
package chat
