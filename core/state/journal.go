package state

import (
	"math/big"

	"github.com/evmforge/evmforge/common"
)

// journalEntry is one undoable mutation. revert restores the state the
// entry's field held immediately before the mutation it records.
type journalEntry interface {
	revert(s *MemoryStateDB)
}

// journal is an append-only undo log with named snapshot points,
// mirroring the teacher's snapshot/revert bookkeeping: RevertToSnapshot
// unwinds every entry appended since the matching Snapshot call.
type journal struct {
	entries   []journalEntry
	snapshots map[int]int
	nextID    int
}

func newJournal() *journal {
	return &journal{snapshots: make(map[int]int)}
}

func (j *journal) append(entry journalEntry) {
	j.entries = append(j.entries, entry)
}

func (j *journal) length() int {
	return len(j.entries)
}

func (j *journal) snapshot() int {
	id := j.nextID
	j.nextID++
	j.snapshots[id] = len(j.entries)
	return id
}

// revertToSnapshot unwinds every entry recorded since id's Snapshot
// call, most recent first, then discards them.
func (j *journal) revertToSnapshot(id int, s *MemoryStateDB) {
	mark, ok := j.snapshots[id]
	if !ok {
		return
	}
	for i := len(j.entries) - 1; i >= mark; i-- {
		j.entries[i].revert(s)
	}
	j.entries = j.entries[:mark]
	delete(j.snapshots, id)
}

type createAccountChange struct {
	addr common.Address
}

func (c createAccountChange) revert(s *MemoryStateDB) {
	delete(s.accounts, c.addr)
}

type balanceChange struct {
	addr common.Address
	prev *big.Int
}

func (c balanceChange) revert(s *MemoryStateDB) {
	s.getOrCreate(c.addr).balance = c.prev
}

type nonceChange struct {
	addr common.Address
	prev uint64
}

func (c nonceChange) revert(s *MemoryStateDB) {
	s.getOrCreate(c.addr).nonce = c.prev
}

type codeChange struct {
	addr     common.Address
	prevCode []byte
	prevHash common.Hash
}

func (c codeChange) revert(s *MemoryStateDB) {
	obj := s.getOrCreate(c.addr)
	obj.code = c.prevCode
	obj.codeHash = c.prevHash
}

type storageChange struct {
	addr  common.Address
	key   common.Hash
	prev  common.Hash
	wasSet bool
}

func (c storageChange) revert(s *MemoryStateDB) {
	obj := s.getOrCreate(c.addr)
	if !c.wasSet {
		delete(obj.storage, c.key)
		return
	}
	obj.storage[c.key] = c.prev
}

type refundChange struct {
	prev uint64
}

func (c refundChange) revert(s *MemoryStateDB) {
	s.refund = c.prev
}

type addLogChange struct{}

func (c addLogChange) revert(s *MemoryStateDB) {
	s.logs = s.logs[:len(s.logs)-1]
}

type selfDestructChange struct {
	addr           common.Address
	prevDestructed bool
}

func (c selfDestructChange) revert(s *MemoryStateDB) {
	s.getOrCreate(c.addr).destructed = c.prevDestructed
}
