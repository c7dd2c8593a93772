// Package hostfuncs provides pure Go implementations of the host imports a
// guest may call: the log record sink, log flush and the async wake signal.
// Handlers have no WASM runtime dependency; an engine adapter reads their
// parameters from the guest stack and routes them through an
// ImportRegistry.
package hostfuncs
