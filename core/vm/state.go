package vm

import (
	"math/big"

	"github.com/evmforge/evmforge/common"
)

// StateDB is the state-access contract the interpreter needs (spec.md
// §3-§4.4, trimmed to the fields this spec's Account tuple names: no
// EIP-2929 access lists, no transient storage — those postdate F0-F2).
// core/state.MemoryStateDB is the sole implementation; the interface
// lives here, not in core/state, so this package has no import cycle
// back to its one caller.
type StateDB interface {
	CreateAccount(addr common.Address)
	Exist(addr common.Address) bool
	Empty(addr common.Address) bool

	GetBalance(addr common.Address) *big.Int
	AddBalance(addr common.Address, amount *big.Int)
	SubBalance(addr common.Address, amount *big.Int)
	SetBalance(addr common.Address, amount *big.Int)

	GetNonce(addr common.Address) uint64
	SetNonce(addr common.Address, nonce uint64)
	IncrementNonce(addr common.Address)

	GetCode(addr common.Address) []byte
	SetCode(addr common.Address, code []byte)
	GetCodeHash(addr common.Address) common.Hash
	GetCodeSize(addr common.Address) int

	GetState(addr common.Address, key common.Hash) common.Hash
	SetState(addr common.Address, key common.Hash, value common.Hash)

	SelfDestruct(addr common.Address)

	AddLog(log common.Log)
	Logs() []common.Log

	AddRefund(gas uint64)
	SubRefund(gas uint64)
	GetRefund() uint64

	Snapshot() int
	RevertToSnapshot(id int)
}

// ExecutionResult is the product of one interpreter invocation or one
// state transition (spec.md §3).
type ExecutionResult struct {
	Success        bool
	GasUsed        uint64
	GasRemaining   uint64
	ReturnData     []byte
	Logs           []common.Log
	Error          ErrorKind
	CreatedAddress *common.Address
}
