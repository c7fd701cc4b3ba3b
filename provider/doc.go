// Package provider defines the capability interface between the discussion
// orchestration core and language-model backends, plus the normalized
// request/response shapes shared by the vendor adapters.
//
// The core depends only on the Provider interface. Two interchangeable
// implementations exist under provider/openai and provider/anthropic; tests
// use the in-memory Mock. Selection of the concrete provider is driven by a
// single configuration value with a documented fallback order (see
// config.ResolveProviderName).
package provider
