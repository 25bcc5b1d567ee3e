package vm

import (
	"github.com/evmforge/evmforge/common"
	"github.com/evmforge/evmforge/crypto"
)

// This file implements the minimal RLP subset spec.md §6 needs for
// CREATE address derivation: byte-string, integer, and list encoding.
// It is not a general-purpose RLP codec (no decoding, no nested-struct
// reflection) — just enough to hash [sender, nonce].

// rlpBytes encodes a byte string per the Yellow Paper's RLP rules: a
// single byte below 0x80 encodes as itself, a short string (<=55
// bytes) gets a one-byte 0x80+len prefix, a long string gets a
// 0xB7+len(lengthBytes) prefix followed by the big-endian length.
func rlpBytes(b []byte) []byte {
	if len(b) == 1 && b[0] < 0x80 {
		return []byte{b[0]}
	}
	if len(b) <= 55 {
		out := make([]byte, 0, 1+len(b))
		out = append(out, byte(0x80+len(b)))
		return append(out, b...)
	}
	lenBytes := minimalBigEndian(uint64(len(b)))
	out := make([]byte, 0, 1+len(lenBytes)+len(b))
	out = append(out, byte(0xB7+len(lenBytes)))
	out = append(out, lenBytes...)
	return append(out, b...)
}

// rlpUint encodes n as its minimal big-endian byte string (n == 0
// encodes as the empty string, 0x80).
func rlpUint(n uint64) []byte {
	return rlpBytes(minimalBigEndian(n))
}

// rlpList encodes items as an RLP list, following the same
// short/long length-prefix rule as rlpBytes but with the 0xC0/0xF7
// base bytes.
func rlpList(items ...[]byte) []byte {
	var payload []byte
	for _, it := range items {
		payload = append(payload, it...)
	}
	if len(payload) <= 55 {
		out := make([]byte, 0, 1+len(payload))
		out = append(out, byte(0xC0+len(payload)))
		return append(out, payload...)
	}
	lenBytes := minimalBigEndian(uint64(len(payload)))
	out := make([]byte, 0, 1+len(lenBytes)+len(payload))
	out = append(out, byte(0xF7+len(lenBytes)))
	out = append(out, lenBytes...)
	return append(out, payload...)
}

// minimalBigEndian returns n's big-endian encoding with no leading zero
// byte; n == 0 returns an empty slice.
func minimalBigEndian(n uint64) []byte {
	if n == 0 {
		return nil
	}
	var buf [8]byte
	for i := 7; i >= 0; i-- {
		buf[i] = byte(n)
		n >>= 8
	}
	i := 0
	for i < 7 && buf[i] == 0 {
		i++
	}
	return buf[i:]
}

// CreateAddress derives the address CREATE assigns to a new contract:
// the low 20 bytes of KECCAK256(RLP([sender, nonce])) (§4.6.5).
func CreateAddress(sender common.Address, nonce uint64) common.Address {
	encoded := rlpList(rlpBytes(sender.Bytes()), rlpUint(nonce))
	return common.BytesToAddress(crypto.Keccak256(encoded))
}

// Create2Address derives CREATE2's address: the low 20 bytes of
// KECCAK256(0xFF || sender || salt || KECCAK256(initCode)) (§4.6.5).
func Create2Address(sender common.Address, salt common.Hash, initCode []byte) common.Address {
	initCodeHash := crypto.Keccak256(initCode)
	h := crypto.Keccak256(
		[]byte{0xff},
		sender.Bytes(),
		salt.Bytes(),
		initCodeHash,
	)
	return common.BytesToAddress(h)
}
