// Package state keeps per-user conversation state for multi-step flows
// and routes messages to the handler registered for the current state.
package state
