// Package abi implements the host side of the guest calling convention:
// packing of (length, pointer) results, the async pending sentinel, the
// names of the required exports, and bounds-checked access to guest memory.
package abi

import (
	"github.com/gal-dev/galrt/domain/errors"
	"github.com/gal-dev/galrt/domain/ports"
)

// Required guest exports.
const (
	ExportAlloc      = "__abi_alloc"
	ExportFree       = "__abi_free"
	ExportFreeResult = "__export_free"
	ExportAsyncPoll  = "__export_async_poll"
	ExportAsyncFree  = "__export_async_free"
	ExportPluginType = "plugin_type"

	// AsyncSuffix is appended to a function name to find its async variant.
	AsyncSuffix = "_async"
)

// Host import modules and names.
const (
	ImportModuleLog   = "log"
	ImportLog         = "__log"
	ImportLogFlush    = "__log_flush"
	ImportModuleAsync = "async"
	ImportWake        = "__wake"
)

const (
	// ArgAlign is the alignment requested for host-allocated argument buffers.
	ArgAlign = 8

	// WakerSlotSize is the size and alignment of a waker slot.
	WakerSlotSize = 8

	// Pending is returned by the poll export while a future is incomplete.
	Pending = ^uint64(0)

	// LenHighBits is the shift of the length in a packed result.
	LenHighBits = 32
)

// PackLenPtr packs a length into the high 32 bits and a pointer into the low
// 32 bits.
func PackLenPtr(length, ptr uint32) uint64 {
	return uint64(length)<<LenHighBits | uint64(ptr)
}

// UnpackLenPtr is the inverse of PackLenPtr.
func UnpackLenPtr(packed uint64) (length, ptr uint32) {
	return uint32(packed >> LenHighBits), uint32(packed) //nolint:gosec // G115: both halves are 32-bit by construction
}

// Read returns a copy of length bytes at ptr. The copy stays valid after the
// guest frees or grows its memory.
func Read(mem ports.Memory, ptr, length uint32) ([]byte, error) {
	if length == 0 {
		return []byte{}, nil
	}
	view, ok := mem.Read(ptr, length)
	if !ok {
		return nil, fault(mem, "read", ptr, length)
	}
	data := make([]byte, length)
	copy(data, view)
	return data, nil
}

// Write copies data into guest memory at ptr.
func Write(mem ports.Memory, ptr uint32, data []byte) error {
	if len(data) == 0 {
		return nil
	}
	if !mem.Write(ptr, data) {
		return fault(mem, "write", ptr, uint32(len(data))) //nolint:gosec // G115: guest buffers are below 4GiB
	}
	return nil
}

// ReadUint64 reads a little-endian uint64 at ptr.
func ReadUint64(mem ports.Memory, ptr uint32) (uint64, error) {
	v, ok := mem.ReadUint64Le(ptr)
	if !ok {
		return 0, fault(mem, "read", ptr, 8)
	}
	return v, nil
}

// WriteUint64 writes v little-endian at ptr.
func WriteUint64(mem ports.Memory, ptr uint32, v uint64) error {
	if !mem.WriteUint64Le(ptr, v) {
		return fault(mem, "write", ptr, 8)
	}
	return nil
}

func fault(mem ports.Memory, op string, ptr, length uint32) *errors.MemoryFaultError {
	return &errors.MemoryFaultError{Op: op, Offset: ptr, Length: length, Size: mem.Size()}
}
