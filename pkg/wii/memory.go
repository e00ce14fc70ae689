package wii

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// ErrMemoryOutOfBounds is returned when a guest access falls outside RAM
var ErrMemoryOutOfBounds = errors.New("out of bounds guest memory access")

// Memory is the guest address space as seen by HLE devices.
// Multi-byte values are big-endian, as on the console.
type Memory interface {
	Read8(addr uint32) (uint8, error)
	Read16(addr uint32) (uint16, error)
	Read32(addr uint32) (uint32, error)
	Write8(addr uint32, value uint8) error
	Write16(addr uint32, value uint16) error
	Write32(addr uint32, value uint32) error
	// ReadBytes returns a copy of size bytes starting at addr
	ReadBytes(addr, size uint32) ([]byte, error)
	WriteBytes(addr uint32, data []byte) error
	Memset(addr uint32, value byte, size uint32) error
}

// RAM is a flat, zero-based guest memory
type RAM struct {
	data []byte
}

// NewRAM allocates size bytes of zeroed guest memory
func NewRAM(size uint32) *RAM {
	return &RAM{data: make([]byte, size)}
}

// Size returns the size of the memory in bytes
func (m *RAM) Size() uint32 {
	return uint32(len(m.data))
}

// slice bounds-checks [addr, addr+size) using uint64 to survive wraparound
func (m *RAM) slice(addr, size uint32) ([]byte, error) {
	end := uint64(addr) + uint64(size)
	if end > uint64(len(m.data)) {
		return nil, fmt.Errorf("%w: 0x%08x+0x%x (size 0x%x)", ErrMemoryOutOfBounds, addr, size, len(m.data))
	}
	return m.data[addr:end], nil
}

func (m *RAM) Read8(addr uint32) (uint8, error) {
	b, err := m.slice(addr, 1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

func (m *RAM) Read16(addr uint32) (uint16, error) {
	b, err := m.slice(addr, 2)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint16(b), nil
}

func (m *RAM) Read32(addr uint32) (uint32, error) {
	b, err := m.slice(addr, 4)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint32(b), nil
}

func (m *RAM) Write8(addr uint32, value uint8) error {
	b, err := m.slice(addr, 1)
	if err != nil {
		return err
	}
	b[0] = value
	return nil
}

func (m *RAM) Write16(addr uint32, value uint16) error {
	b, err := m.slice(addr, 2)
	if err != nil {
		return err
	}
	binary.BigEndian.PutUint16(b, value)
	return nil
}

func (m *RAM) Write32(addr uint32, value uint32) error {
	b, err := m.slice(addr, 4)
	if err != nil {
		return err
	}
	binary.BigEndian.PutUint32(b, value)
	return nil
}

func (m *RAM) ReadBytes(addr, size uint32) ([]byte, error) {
	b, err := m.slice(addr, size)
	if err != nil {
		return nil, err
	}
	out := make([]byte, size)
	copy(out, b)
	return out, nil
}

func (m *RAM) WriteBytes(addr uint32, data []byte) error {
	b, err := m.slice(addr, uint32(len(data)))
	if err != nil {
		return err
	}
	copy(b, data)
	return nil
}

func (m *RAM) Memset(addr uint32, value byte, size uint32) error {
	b, err := m.slice(addr, size)
	if err != nil {
		return err
	}
	for i := range b {
		b[i] = value
	}
	return nil
}

var _ Memory = (*RAM)(nil)
