// Package common defines the fixed-size identifiers shared across the
// EVM core: 20-byte addresses and 32-byte hashes/topics.
package common

import (
	"encoding/hex"
	"fmt"
	"math/big"
)

const (
	HashLength    = 32
	AddressLength = 20
)

// Hash is a 32-byte word, used for storage slots, topics, and code hashes.
type Hash [HashLength]byte

// Address is a 20-byte account identifier.
type Address [AddressLength]byte

// BytesToHash converts b to a Hash, left-padding with zeros if shorter
// than 32 bytes and truncating from the left if longer.
func BytesToHash(b []byte) Hash {
	var h Hash
	h.SetBytes(b)
	return h
}

// HexToHash decodes a (optionally 0x-prefixed) hex string into a Hash.
func HexToHash(s string) Hash {
	return BytesToHash(fromHex(s))
}

// BigToHash converts a big.Int to its 32-byte big-endian representation.
func BigToHash(v *big.Int) Hash {
	if v == nil {
		return Hash{}
	}
	return BytesToHash(v.Bytes())
}

// Big returns the Hash interpreted as an unsigned big-endian integer.
func (h Hash) Big() *big.Int {
	return new(big.Int).SetBytes(h[:])
}

func (h Hash) Bytes() []byte { return h[:] }
func (h Hash) Hex() string   { return fmt.Sprintf("0x%x", h[:]) }
func (h Hash) String() string { return h.Hex() }

// SetBytes sets the hash from b, left-padding with zeros if necessary.
func (h *Hash) SetBytes(b []byte) {
	if len(b) > HashLength {
		b = b[len(b)-HashLength:]
	}
	copy(h[HashLength-len(b):], b)
}

// IsZero reports whether the hash is all zeros.
func (h Hash) IsZero() bool { return h == Hash{} }

// BytesToAddress converts b to an Address, left-padding with zeros.
func BytesToAddress(b []byte) Address {
	var a Address
	a.SetBytes(b)
	return a
}

// HexToAddress decodes a (optionally 0x-prefixed) hex string into an Address.
func HexToAddress(s string) Address {
	return BytesToAddress(fromHex(s))
}

// AddressFromWord extracts the low 20 bytes of a 256-bit word, the
// convention used when an address is carried on the EVM stack.
func AddressFromWord(w *big.Int) Address {
	if w == nil {
		return Address{}
	}
	b := w.Bytes()
	return BytesToAddress(b)
}

// Word zero-extends the address into a 256-bit word on the high side.
func (a Address) Word() *big.Int {
	return new(big.Int).SetBytes(a[:])
}

func (a Address) Bytes() []byte  { return a[:] }
func (a Address) Hex() string    { return fmt.Sprintf("0x%x", a[:]) }
func (a Address) String() string { return a.Hex() }

// SetBytes sets the address from b, left-padding with zeros.
func (a *Address) SetBytes(b []byte) {
	if len(b) > AddressLength {
		b = b[len(b)-AddressLength:]
	}
	copy(a[AddressLength-len(b):], b)
}

// IsZero reports whether the address is all zeros.
func (a Address) IsZero() bool { return a == Address{} }

func fromHex(s string) []byte {
	if has0xPrefix(s) {
		s = s[2:]
	}
	if len(s)%2 == 1 {
		s = "0" + s
	}
	b, _ := hex.DecodeString(s)
	return b
}

func has0xPrefix(s string) bool {
	return len(s) >= 2 && s[0] == '0' && (s[1] == 'x' || s[1] == 'X')
}
