package vm

import "math/big"

// Memory is the EVM's byte-addressable, word-expanding scratch buffer.
// It grows only in 32-byte increments and never shrinks within a frame.
type Memory struct {
	store []byte
}

// NewMemory returns a new, empty memory.
func NewMemory() *Memory {
	return &Memory{}
}

// Len returns the current byte length (always a multiple of 32 after
// any non-empty access).
func (m *Memory) Len() int { return len(m.store) }

// Data returns the underlying buffer.
func (m *Memory) Data() []byte { return m.store }

// Resize grows the buffer to size bytes (rounded by the caller to a
// multiple of 32), zero-filling the new region. It never shrinks.
func (m *Memory) Resize(size uint64) {
	if uint64(len(m.store)) >= size {
		return
	}
	grown := make([]byte, size)
	copy(grown, m.store)
	m.store = grown
}

// Set writes data into memory starting at offset; the caller must have
// already resized memory to cover [offset, offset+len(data)).
func (m *Memory) Set(offset, size uint64, data []byte) {
	if size == 0 {
		return
	}
	if offset+size > uint64(len(m.store)) {
		m.Resize(offset + size)
	}
	copy(m.store[offset:offset+size], data)
}

// Set32 writes the 32-byte big-endian encoding of val at offset.
func (m *Memory) Set32(offset uint64, val *big.Int) {
	if offset+32 > uint64(len(m.store)) {
		m.Resize(offset + 32)
	}
	b := val.Bytes()
	word := m.store[offset : offset+32]
	for i := range word {
		word[i] = 0
	}
	copy(word[32-len(b):], b)
}

// Get returns a copy of size bytes starting at offset, zero-padded past
// the end of the buffer.
func (m *Memory) Get(offset, size uint64) []byte {
	out := make([]byte, size)
	if offset >= uint64(len(m.store)) || size == 0 {
		return out
	}
	end := offset + size
	if end > uint64(len(m.store)) {
		end = uint64(len(m.store))
	}
	copy(out, m.store[offset:end])
	return out
}

// GetPtr returns a direct slice into the buffer (no copy, no padding);
// the caller must ensure offset+size is within bounds.
func (m *Memory) GetPtr(offset, size uint64) []byte {
	if size == 0 {
		return nil
	}
	return m.store[offset : offset+size]
}

// LoadWord reads 32 bytes big-endian at offset as a Word.
func (m *Memory) LoadWord(offset uint64) *big.Int {
	return new(big.Int).SetBytes(m.Get(offset, 32))
}

// StoreWord writes v as 32 big-endian bytes at offset.
func (m *Memory) StoreWord(offset uint64, v *big.Int) {
	m.Set32(offset, v)
}

// StoreByte writes the low byte of v at offset.
func (m *Memory) StoreByte(offset uint64, v *big.Int) {
	if offset+1 > uint64(len(m.store)) {
		m.Resize(offset + 1)
	}
	m.store[offset] = byte(v.Uint64())
}

// expansionWords rounds a byte length up to the next 32-byte word count.
func expansionWords(size uint64) uint64 {
	return (size + 31) / 32
}

// memExpansionCost returns f(w) = 3w + floor(w^2/512) for a memory size
// of w words, the quadratic term of the memory-expansion schedule.
func memExpansionCost(words uint64) uint64 {
	return GasMemory*words + (words*words)/512
}

// memoryGasCost returns the incremental gas charge to grow memory from
// its current byte length to newSize bytes (§4.3). Size-0 accesses and
// shrink-or-equal requests cost 0.
func memoryGasCost(currentLen int, newSize uint64) uint64 {
	if newSize == 0 {
		return 0
	}
	newWords := expansionWords(newSize)
	newCost := memExpansionCost(newWords)
	if uint64(currentLen) >= newSize {
		return 0
	}
	oldWords := expansionWords(uint64(currentLen))
	oldCost := memExpansionCost(oldWords)
	if newCost <= oldCost {
		return 0
	}
	return newCost - oldCost
}
