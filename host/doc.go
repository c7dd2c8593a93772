// Package host runs calls into one instantiated plugin module.
//
// A Host owns the guest and its resolved ABI entry points. Arguments are
// encoded as a CBOR tuple, copied into a buffer the host allocates inside
// the guest with __abi_alloc, and passed to the export as (len, ptr). The
// export returns (len<<32)|ptr of a result buffer the guest allocated; the
// host decodes it and releases it with __export_free, then releases its own
// argument buffer with __abi_free. Both buffers are released on every path.
//
// Exports named <name>_async return a future handle instead. The host polls
// it with __export_async_poll, passing an 8-byte waker slot that holds the
// host's waker token. While the poll reports pending the calling goroutine
// blocks until the guest calls async.__wake with that slot, or until the
// context is cancelled.
//
// Calls into one Host are serialised. Independent Hosts may be used from
// independent goroutines.
package host
