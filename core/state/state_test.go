package state

import (
	"math/big"
	"testing"

	"github.com/evmforge/evmforge/common"
)

var addr = common.HexToAddress("0x1111")

func TestBalanceAddSubAndGet(t *testing.T) {
	db := NewMemoryStateDB()
	db.AddBalance(addr, big.NewInt(100))
	db.SubBalance(addr, big.NewInt(30))
	if got := db.GetBalance(addr); got.Cmp(big.NewInt(70)) != 0 {
		t.Errorf("balance = %v, want 70", got)
	}
}

func TestGetBalanceOfUntouchedAccountIsZero(t *testing.T) {
	db := NewMemoryStateDB()
	if got := db.GetBalance(addr); got.Sign() != 0 {
		t.Errorf("untouched balance = %v, want 0", got)
	}
}

func TestNonceIncrementsAndReads(t *testing.T) {
	db := NewMemoryStateDB()
	db.SetNonce(addr, 5)
	db.IncrementNonce(addr)
	if got := db.GetNonce(addr); got != 6 {
		t.Errorf("nonce = %d, want 6", got)
	}
}

func TestCodeSetAndHash(t *testing.T) {
	db := NewMemoryStateDB()
	if db.GetCodeHash(addr) != (common.Hash{}) {
		t.Fatalf("untouched account should have zero code hash, got %v", db.GetCodeHash(addr))
	}
	db.SetCode(addr, []byte{0x60, 0x00})
	if db.GetCodeSize(addr) != 2 {
		t.Errorf("code size = %d, want 2", db.GetCodeSize(addr))
	}
	if db.GetCodeHash(addr) == emptyCodeHash {
		t.Error("non-empty code should not hash to emptyCodeHash")
	}
}

func TestExistAndEmptySemantics(t *testing.T) {
	db := NewMemoryStateDB()
	if db.Exist(addr) {
		t.Fatal("untouched account should not exist")
	}
	db.CreateAccount(addr)
	if !db.Exist(addr) {
		t.Fatal("CreateAccount should mark the account as existing")
	}
	if !db.Empty(addr) {
		t.Error("freshly created account with no balance/nonce/code should be empty")
	}
	db.AddBalance(addr, big.NewInt(1))
	if db.Empty(addr) {
		t.Error("account with nonzero balance should not be empty")
	}
}

func TestStorageSetZeroDeletesSlot(t *testing.T) {
	db := NewMemoryStateDB()
	key := common.Hash{1}
	val := common.Hash{2}
	db.SetState(addr, key, val)
	if got := db.GetState(addr, key); got != val {
		t.Fatalf("got %v, want %v", got, val)
	}
	db.SetState(addr, key, common.Hash{})
	if got := db.GetState(addr, key); !got.IsZero() {
		t.Errorf("zero-set should clear the slot, got %v", got)
	}
}

func TestAddLogAppendsInOrder(t *testing.T) {
	db := NewMemoryStateDB()
	db.AddLog(common.Log{Address: addr, Data: []byte{1}})
	db.AddLog(common.Log{Address: addr, Data: []byte{2}})
	logs := db.Logs()
	if len(logs) != 2 || logs[0].Data[0] != 1 || logs[1].Data[0] != 2 {
		t.Fatalf("logs out of order: %+v", logs)
	}
}

func TestRefundAddAndSubCapsAtZero(t *testing.T) {
	db := NewMemoryStateDB()
	db.AddRefund(100)
	db.SubRefund(30)
	if got := db.GetRefund(); got != 70 {
		t.Fatalf("refund = %d, want 70", got)
	}
	db.SubRefund(1000)
	if got := db.GetRefund(); got != 0 {
		t.Errorf("refund should floor at 0, got %d", got)
	}
}

func TestSelfDestructMarksDestructedUntilPurge(t *testing.T) {
	db := NewMemoryStateDB()
	db.CreateAccount(addr)
	db.SelfDestruct(addr)
	if !db.Destructed(addr) {
		t.Fatal("expected account marked destructed")
	}
	if !db.Exist(addr) {
		t.Error("account should still exist until Purge runs")
	}
	db.Purge()
	if db.Exist(addr) {
		t.Error("Purge should have removed the destructed account")
	}
}

func TestSnapshotRevertUndoesBalanceChange(t *testing.T) {
	db := NewMemoryStateDB()
	db.AddBalance(addr, big.NewInt(100))
	snap := db.Snapshot()
	db.AddBalance(addr, big.NewInt(50))
	if got := db.GetBalance(addr); got.Cmp(big.NewInt(150)) != 0 {
		t.Fatalf("pre-revert balance = %v, want 150", got)
	}
	db.RevertToSnapshot(snap)
	if got := db.GetBalance(addr); got.Cmp(big.NewInt(100)) != 0 {
		t.Errorf("post-revert balance = %v, want 100", got)
	}
}

func TestSnapshotRevertUndoesNonceCodeAndStorage(t *testing.T) {
	db := NewMemoryStateDB()
	db.SetNonce(addr, 1)
	db.SetCode(addr, []byte{0x01})
	db.SetState(addr, common.Hash{1}, common.Hash{2})

	snap := db.Snapshot()
	db.SetNonce(addr, 2)
	db.SetCode(addr, []byte{0x02, 0x03})
	db.SetState(addr, common.Hash{1}, common.Hash{9})

	db.RevertToSnapshot(snap)

	if got := db.GetNonce(addr); got != 1 {
		t.Errorf("nonce = %d, want 1", got)
	}
	if got := db.GetCode(addr); len(got) != 1 || got[0] != 0x01 {
		t.Errorf("code = %v, want [0x01]", got)
	}
	if got := db.GetState(addr, common.Hash{1}); got != (common.Hash{2}) {
		t.Errorf("storage = %v, want {2}", got)
	}
}

func TestSnapshotRevertUndoesLogsRefundAndSelfDestruct(t *testing.T) {
	db := NewMemoryStateDB()
	db.AddRefund(10)
	db.AddLog(common.Log{Address: addr})
	snap := db.Snapshot()

	db.AddRefund(20)
	db.AddLog(common.Log{Address: addr})
	db.SelfDestruct(addr)

	db.RevertToSnapshot(snap)

	if got := db.GetRefund(); got != 10 {
		t.Errorf("refund = %d, want 10", got)
	}
	if len(db.Logs()) != 1 {
		t.Errorf("logs = %d, want 1", len(db.Logs()))
	}
	if db.Destructed(addr) {
		t.Error("selfdestruct should have been rolled back")
	}
}

func TestNestedSnapshotsRevertIndependently(t *testing.T) {
	db := NewMemoryStateDB()
	db.SetNonce(addr, 1)
	outer := db.Snapshot()
	db.SetNonce(addr, 2)
	inner := db.Snapshot()
	db.SetNonce(addr, 3)

	db.RevertToSnapshot(inner)
	if got := db.GetNonce(addr); got != 2 {
		t.Fatalf("after inner revert, nonce = %d, want 2", got)
	}

	db.RevertToSnapshot(outer)
	if got := db.GetNonce(addr); got != 1 {
		t.Errorf("after outer revert, nonce = %d, want 1", got)
	}
}
