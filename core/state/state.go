// Package state implements the journal-backed, in-memory StateDB the
// interpreter reads and mutates (spec.md §4.4): accounts keyed by
// address, each with a balance, nonce, code, and storage trie
// represented as a map. Every mutation is undoable through journal.go
// so that Snapshot/RevertToSnapshot give the interpreter cheap
// per-frame rollback without deep-copying the whole account set.
package state

import (
	"math/big"

	"github.com/evmforge/evmforge/common"
	"github.com/evmforge/evmforge/crypto"
)

// emptyCodeHash is KECCAK256(""), the code hash of any account with no
// code (spec.md §4.4's Empty() definition references it implicitly).
var emptyCodeHash = crypto.Keccak256Hash()

type stateObject struct {
	exists     bool
	destructed bool
	balance    *big.Int
	nonce      uint64
	code       []byte
	codeHash   common.Hash
	storage    map[common.Hash]common.Hash
}

func newStateObject() *stateObject {
	return &stateObject{
		balance:  new(big.Int),
		codeHash: emptyCodeHash,
		storage:  make(map[common.Hash]common.Hash),
	}
}

// MemoryStateDB is the sole implementation of vm.StateDB: a plain
// in-memory account map with undo-journal-backed snapshots.
type MemoryStateDB struct {
	accounts map[common.Address]*stateObject
	logs     []common.Log
	refund   uint64
	journal  *journal
}

// NewMemoryStateDB returns an empty state with no accounts.
func NewMemoryStateDB() *MemoryStateDB {
	return &MemoryStateDB{
		accounts: make(map[common.Address]*stateObject),
		journal:  newJournal(),
	}
}

func (s *MemoryStateDB) getOrCreate(addr common.Address) *stateObject {
	obj, ok := s.accounts[addr]
	if !ok {
		obj = newStateObject()
		s.accounts[addr] = obj
	}
	return obj
}

func (s *MemoryStateDB) markExists(addr common.Address) {
	obj := s.getOrCreate(addr)
	if !obj.exists {
		s.journal.append(createAccountChange{addr: addr})
		obj.exists = true
	}
}

// CreateAccount marks addr as an existing account (§4.4), e.g. for a
// freshly deployed contract before its code is set.
func (s *MemoryStateDB) CreateAccount(addr common.Address) {
	s.markExists(addr)
}

// Exist reports whether addr has ever been touched in a way that marks
// it as present (balance/nonce/code/storage set, or CreateAccount).
func (s *MemoryStateDB) Exist(addr common.Address) bool {
	obj, ok := s.accounts[addr]
	return ok && obj.exists
}

// Empty reports whether addr has zero balance, zero nonce, and no code
// (the EIP-158 "empty account" predicate the CALL-cost and account-touch
// rules reference); an address that does not exist counts as empty.
func (s *MemoryStateDB) Empty(addr common.Address) bool {
	obj, ok := s.accounts[addr]
	if !ok || !obj.exists {
		return true
	}
	return obj.balance.Sign() == 0 && obj.nonce == 0 && len(obj.code) == 0
}

func (s *MemoryStateDB) GetBalance(addr common.Address) *big.Int {
	obj, ok := s.accounts[addr]
	if !ok {
		return new(big.Int)
	}
	return new(big.Int).Set(obj.balance)
}

func (s *MemoryStateDB) SetBalance(addr common.Address, amount *big.Int) {
	obj := s.getOrCreate(addr)
	s.journal.append(balanceChange{addr: addr, prev: obj.balance})
	obj.balance = new(big.Int).Set(amount)
	s.markExists(addr)
}

func (s *MemoryStateDB) AddBalance(addr common.Address, amount *big.Int) {
	if amount.Sign() == 0 {
		s.markExists(addr)
		return
	}
	obj := s.getOrCreate(addr)
	s.journal.append(balanceChange{addr: addr, prev: obj.balance})
	obj.balance = new(big.Int).Add(obj.balance, amount)
	s.markExists(addr)
}

func (s *MemoryStateDB) SubBalance(addr common.Address, amount *big.Int) {
	if amount.Sign() == 0 {
		return
	}
	obj := s.getOrCreate(addr)
	s.journal.append(balanceChange{addr: addr, prev: obj.balance})
	obj.balance = new(big.Int).Sub(obj.balance, amount)
}

func (s *MemoryStateDB) GetNonce(addr common.Address) uint64 {
	obj, ok := s.accounts[addr]
	if !ok {
		return 0
	}
	return obj.nonce
}

func (s *MemoryStateDB) SetNonce(addr common.Address, nonce uint64) {
	obj := s.getOrCreate(addr)
	s.journal.append(nonceChange{addr: addr, prev: obj.nonce})
	obj.nonce = nonce
	s.markExists(addr)
}

func (s *MemoryStateDB) IncrementNonce(addr common.Address) {
	s.SetNonce(addr, s.GetNonce(addr)+1)
}

func (s *MemoryStateDB) GetCode(addr common.Address) []byte {
	obj, ok := s.accounts[addr]
	if !ok {
		return nil
	}
	return obj.code
}

func (s *MemoryStateDB) SetCode(addr common.Address, code []byte) {
	obj := s.getOrCreate(addr)
	s.journal.append(codeChange{addr: addr, prevCode: obj.code, prevHash: obj.codeHash})
	obj.code = code
	if len(code) == 0 {
		obj.codeHash = emptyCodeHash
	} else {
		obj.codeHash = crypto.Keccak256Hash(code)
	}
	s.markExists(addr)
}

func (s *MemoryStateDB) GetCodeHash(addr common.Address) common.Hash {
	obj, ok := s.accounts[addr]
	if !ok {
		return common.Hash{}
	}
	return obj.codeHash
}

func (s *MemoryStateDB) GetCodeSize(addr common.Address) int {
	obj, ok := s.accounts[addr]
	if !ok {
		return 0
	}
	return len(obj.code)
}

func (s *MemoryStateDB) GetState(addr common.Address, key common.Hash) common.Hash {
	obj, ok := s.accounts[addr]
	if !ok {
		return common.Hash{}
	}
	return obj.storage[key]
}

func (s *MemoryStateDB) SetState(addr common.Address, key common.Hash, value common.Hash) {
	obj := s.getOrCreate(addr)
	prev, wasSet := obj.storage[key]
	s.journal.append(storageChange{addr: addr, key: key, prev: prev, wasSet: wasSet})
	if value.IsZero() {
		delete(obj.storage, key)
	} else {
		obj.storage[key] = value
	}
	s.markExists(addr)
}

func (s *MemoryStateDB) SelfDestruct(addr common.Address) {
	obj := s.getOrCreate(addr)
	s.journal.append(selfDestructChange{addr: addr, prevDestructed: obj.destructed})
	obj.destructed = true
}

// Destructed reports whether addr called SELFDESTRUCT during this
// state's lifetime, for a transaction driver to purge at the end.
func (s *MemoryStateDB) Destructed(addr common.Address) bool {
	obj, ok := s.accounts[addr]
	return ok && obj.destructed
}

// Purge deletes every account marked destructed, to be called once
// after a transaction fully commits (§4.8).
func (s *MemoryStateDB) Purge() {
	for addr, obj := range s.accounts {
		if obj.destructed {
			delete(s.accounts, addr)
		}
	}
}

func (s *MemoryStateDB) AddLog(log common.Log) {
	s.journal.append(addLogChange{})
	s.logs = append(s.logs, log)
}

func (s *MemoryStateDB) Logs() []common.Log {
	return s.logs
}

func (s *MemoryStateDB) AddRefund(gas uint64) {
	s.journal.append(refundChange{prev: s.refund})
	s.refund += gas
}

func (s *MemoryStateDB) SubRefund(gas uint64) {
	s.journal.append(refundChange{prev: s.refund})
	if gas > s.refund {
		s.refund = 0
		return
	}
	s.refund -= gas
}

func (s *MemoryStateDB) GetRefund() uint64 {
	return s.refund
}

func (s *MemoryStateDB) Snapshot() int {
	return s.journal.snapshot()
}

func (s *MemoryStateDB) RevertToSnapshot(id int) {
	s.journal.revertToSnapshot(id, s)
}
