package common

import "math/big"

// BlockEnv carries the block-level context a transaction executes
// against (spec §3): coinbase, number, limits, pricing, and the
// partial block-hash history window.
type BlockEnv struct {
	Coinbase    Address
	Number      uint64
	GasLimit    uint64
	GasPrice    *big.Int
	Timestamp   uint64
	Difficulty  *big.Int
	ChainID     uint64
	BaseFee     *big.Int
	BlockHashes map[uint64]Hash
	Origin      Address
}

// BlockHash returns the recorded hash for block n if it falls within
// the 256-block lookback window below the current block number, else
// the zero hash (§4.6.3's BLOCKHASH rule).
func (b *BlockEnv) BlockHash(n uint64) Hash {
	if b.Number < 256 {
		if n >= b.Number {
			return Hash{}
		}
	} else if n < b.Number-256 || n >= b.Number {
		return Hash{}
	}
	return b.BlockHashes[n]
}

// Log is one event emitted by LOGn: the emitting address, its topics,
// and opaque data.
type Log struct {
	Address Address
	Topics  []Hash
	Data    []byte
}
