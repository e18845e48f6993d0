// Package protocol owns the log wire contract.
//
// Ownership boundary:
// - Protocol interface every wire format implements
// - decode failure taxonomy and the error reporter hook
// - protocol registry keyed by name
//
// Concrete formats live in subpackages and register themselves on import.
package protocol
