// Package crypto provides the hash primitive the EVM core relies on:
// Keccak-256 (the pre-FIPS-202 padding variant), distinct from SHA3-256.
package crypto

import (
	"golang.org/x/crypto/sha3"

	"github.com/evmforge/evmforge/common"
)

// Keccak256 returns the Keccak-256 digest of the concatenation of data.
func Keccak256(data ...[]byte) []byte {
	d := sha3.NewLegacyKeccak256()
	for _, b := range data {
		d.Write(b)
	}
	return d.Sum(nil)
}

// Keccak256Hash is Keccak256 with the result wrapped as a common.Hash.
func Keccak256Hash(data ...[]byte) common.Hash {
	return common.BytesToHash(Keccak256(data...))
}
