// Package ports defines interfaces for infrastructure operations.
// These ports enable dependency inversion: the host, registry and evaluator
// depend on abstractions, and infrastructure adapters implement them.
package ports
