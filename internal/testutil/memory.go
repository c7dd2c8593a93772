package testutil

import (
	"encoding/binary"
	"sync"
)

// Memory is a fixed-size, bounds-checked linear memory safe for use from
// several goroutines.
type Memory struct {
	mu   sync.Mutex
	data []byte
}

// NewMemory returns a zeroed memory of size bytes.
func NewMemory(size uint32) *Memory {
	return &Memory{data: make([]byte, size)}
}

func (m *Memory) Size() uint32 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return uint32(len(m.data)) //nolint:gosec // G115: test memories are small
}

func (m *Memory) Read(offset, n uint32) ([]byte, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if uint64(offset)+uint64(n) > uint64(len(m.data)) {
		return nil, false
	}
	out := make([]byte, n)
	copy(out, m.data[offset:])
	return out, true
}

func (m *Memory) Write(offset uint32, v []byte) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if uint64(offset)+uint64(len(v)) > uint64(len(m.data)) {
		return false
	}
	copy(m.data[offset:], v)
	return true
}

func (m *Memory) ReadUint64Le(offset uint32) (uint64, bool) {
	b, ok := m.Read(offset, 8)
	if !ok {
		return 0, false
	}
	return binary.LittleEndian.Uint64(b), true
}

func (m *Memory) WriteUint64Le(offset uint32, v uint64) bool {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], v)
	return m.Write(offset, b[:])
}
