package hostfuncs

import (
	"context"
	"encoding/binary"
	"sync"

	"github.com/gal-dev/galrt/domain/entities"
)

// recordingEnv captures everything a guest sends through the imports.
type recordingEnv struct {
	mu      sync.Mutex
	records []entities.LogRecord
	flushes int
	wakes   []uint64
}

func (e *recordingEnv) Log(_ context.Context, rec entities.LogRecord) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.records = append(e.records, rec)
}

func (e *recordingEnv) Flush(context.Context) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.flushes++
}

func (e *recordingEnv) Wake(_ context.Context, token uint64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.wakes = append(e.wakes, token)
}

// sliceMemory is a bounds-checked linear memory over a byte slice.
type sliceMemory []byte

func (m sliceMemory) Size() uint32 { return uint32(len(m)) }

func (m sliceMemory) Read(offset, n uint32) ([]byte, bool) {
	if uint64(offset)+uint64(n) > uint64(len(m)) {
		return nil, false
	}
	return m[offset : offset+n], true
}

func (m sliceMemory) Write(offset uint32, v []byte) bool {
	if uint64(offset)+uint64(len(v)) > uint64(len(m)) {
		return false
	}
	copy(m[offset:], v)
	return true
}

func (m sliceMemory) ReadUint64Le(offset uint32) (uint64, bool) {
	b, ok := m.Read(offset, 8)
	if !ok {
		return 0, false
	}
	return binary.LittleEndian.Uint64(b), true
}

func (m sliceMemory) WriteUint64Le(offset uint32, v uint64) bool {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], v)
	return m.Write(offset, b[:])
}

func noopHandler(context.Context, Call) error { return nil }
