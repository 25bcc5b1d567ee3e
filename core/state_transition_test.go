package core

import (
	"math/big"
	"testing"

	"github.com/evmforge/evmforge/common"
	"github.com/evmforge/evmforge/core/state"
	"github.com/evmforge/evmforge/core/vm"
)

var sender = common.HexToAddress("0xaaaa")
var recipient = common.HexToAddress("0xbbbb")
var coinbase = common.HexToAddress("0xc0ffee")

func newTestEnv() *common.BlockEnv {
	return &common.BlockEnv{
		Coinbase:    coinbase,
		Number:      1,
		GasLimit:    30_000_000,
		BlockHashes: map[uint64]common.Hash{},
	}
}

func TestApplyTransactionPlainCallSucceeds(t *testing.T) {
	db := state.NewMemoryStateDB()
	db.AddBalance(sender, big.NewInt(1_000_000))
	// STOP
	db.SetCode(recipient, []byte{0x00})

	tx := &Transaction{
		From:     sender,
		To:       &recipient,
		Nonce:    0,
		GasLimit: 100000,
		GasPrice: big.NewInt(1),
		Value:    big.NewInt(100),
		Data:     nil,
	}
	result := ApplyTransaction(db, tx, newTestEnv(), vm.ForkF2)
	if !result.Success {
		t.Fatalf("expected success, got error %v", result.Error)
	}
	if got := db.GetBalance(recipient); got.Cmp(big.NewInt(100)) != 0 {
		t.Errorf("recipient balance = %v, want 100", got)
	}
	if got := db.GetNonce(sender); got != 1 {
		t.Errorf("sender nonce = %d, want 1", got)
	}
	if got := db.GetBalance(coinbase); got.Sign() <= 0 {
		t.Error("coinbase should have been paid gas")
	}
}

func TestApplyTransactionRevertBurnsEntireGasLimit(t *testing.T) {
	db := state.NewMemoryStateDB()
	startingBalance := big.NewInt(10_000_000)
	db.AddBalance(sender, startingBalance)
	// PUSH1 0, PUSH1 0, REVERT
	db.SetCode(recipient, []byte{0x60, 0x00, 0x60, 0x00, 0xfd})

	tx := &Transaction{
		From:     sender,
		To:       &recipient,
		Nonce:    0,
		GasLimit: 100000,
		GasPrice: big.NewInt(1),
		Value:    new(big.Int),
	}
	result := ApplyTransaction(db, tx, newTestEnv(), vm.ForkF2)
	if result.Success {
		t.Fatal("expected the call to revert")
	}
	if result.GasUsed != tx.GasLimit {
		t.Errorf("gasUsed = %d, want the full gas limit %d", result.GasUsed, tx.GasLimit)
	}
	if result.GasRemaining != 0 {
		t.Errorf("gasRemaining = %d, want 0", result.GasRemaining)
	}
	wantBalance := new(big.Int).Sub(startingBalance, new(big.Int).SetUint64(tx.GasLimit))
	if got := db.GetBalance(sender); got.Cmp(wantBalance) != 0 {
		t.Errorf("sender balance = %v, want %v (entire gas limit burned, no refund)", got, wantBalance)
	}
}

func TestApplyTransactionContractCreationDeploysCode(t *testing.T) {
	db := state.NewMemoryStateDB()
	db.AddBalance(sender, big.NewInt(10_000_000))

	initCode := []byte{
		0x60, 0x00, // PUSH1 0x00 (STOP byte)
		0x60, 0x00, // PUSH1 0
		0x53,       // MSTORE8
		0x60, 0x01, // PUSH1 1
		0x60, 0x00, // PUSH1 0
		0xf3, // RETURN
	}
	tx := &Transaction{
		From:     sender,
		To:       nil,
		Nonce:    0,
		GasLimit: 200000,
		GasPrice: big.NewInt(1),
		Value:    new(big.Int),
		Data:     initCode,
	}
	result := ApplyTransaction(db, tx, newTestEnv(), vm.ForkF2)
	if !result.Success {
		t.Fatalf("create failed: %v", result.Error)
	}
	if result.CreatedAddress == nil {
		t.Fatal("expected a created address")
	}
	if db.GetCodeSize(*result.CreatedAddress) != 1 {
		t.Errorf("deployed code size = %d, want 1", db.GetCodeSize(*result.CreatedAddress))
	}
}

func TestApplyTransactionNonceMismatchFails(t *testing.T) {
	db := state.NewMemoryStateDB()
	db.AddBalance(sender, big.NewInt(1_000_000))
	tx := &Transaction{From: sender, To: &recipient, Nonce: 5, GasLimit: 21000, GasPrice: big.NewInt(1), Value: new(big.Int)}
	result := ApplyTransaction(db, tx, newTestEnv(), vm.ForkF2)
	if result.Success || result.Error != vm.TxInvalidNonce {
		t.Fatalf("got success=%v error=%v", result.Success, result.Error)
	}
}

func TestApplyTransactionIntrinsicGasTooLowFails(t *testing.T) {
	db := state.NewMemoryStateDB()
	db.AddBalance(sender, big.NewInt(1_000_000))
	tx := &Transaction{From: sender, To: &recipient, Nonce: 0, GasLimit: 100, GasPrice: big.NewInt(1), Value: new(big.Int)}
	result := ApplyTransaction(db, tx, newTestEnv(), vm.ForkF2)
	if result.Success || result.Error != vm.TxIntrinsicGas {
		t.Fatalf("got success=%v error=%v", result.Success, result.Error)
	}
}

func TestApplyTransactionInsufficientBalanceFails(t *testing.T) {
	db := state.NewMemoryStateDB()
	tx := &Transaction{From: sender, To: &recipient, Nonce: 0, GasLimit: 21000, GasPrice: big.NewInt(1), Value: big.NewInt(1)}
	result := ApplyTransaction(db, tx, newTestEnv(), vm.ForkF2)
	if result.Success || result.Error != vm.TxInsufficientFunds {
		t.Fatalf("got success=%v error=%v", result.Success, result.Error)
	}
}

func TestApplyTransactionF2InitcodeTooLargeFails(t *testing.T) {
	db := state.NewMemoryStateDB()
	db.AddBalance(sender, big.NewInt(1_000_000_000))
	tx := &Transaction{
		From:     sender,
		To:       nil,
		Nonce:    0,
		GasLimit: 10_000_000,
		GasPrice: big.NewInt(1),
		Value:    new(big.Int),
		Data:     make([]byte, vm.MaxInitcodeSize+1),
	}
	result := ApplyTransaction(db, tx, newTestEnv(), vm.ForkF2)
	if result.Success || result.Error != vm.TxInitcodeTooLarge {
		t.Fatalf("got success=%v error=%v", result.Success, result.Error)
	}
}

func TestApplyTransactionF1AllowsOversizedInitcode(t *testing.T) {
	db := state.NewMemoryStateDB()
	db.AddBalance(sender, big.NewInt(1_000_000_000))
	tx := &Transaction{
		From:     sender,
		To:       nil,
		Nonce:    0,
		GasLimit: 10_000_000,
		GasPrice: big.NewInt(1),
		Value:    new(big.Int),
		Data:     make([]byte, vm.MaxInitcodeSize+1),
	}
	result := ApplyTransaction(db, tx, newTestEnv(), vm.ForkF1)
	if result.Error == vm.TxInitcodeTooLarge {
		t.Fatal("F1 should not enforce the initcode size cap")
	}
}

func runStoreTx(t *testing.T, secondValue byte) *vm.ExecutionResult {
	t.Helper()
	db := state.NewMemoryStateDB()
	db.AddBalance(sender, big.NewInt(10_000_000))
	code := []byte{
		0x60, 0x01, // PUSH1 1
		0x60, 0x00, // PUSH1 0 (key)
		0x55,          // SSTORE (set to 1)
		0x60, secondValue, // PUSH1 <secondValue>
		0x60, 0x00, // PUSH1 0 (key)
		0x55, // SSTORE (overwrite)
		0x00, // STOP
	}
	db.SetCode(recipient, code)
	tx := &Transaction{From: sender, To: &recipient, Nonce: 0, GasLimit: 100000, GasPrice: big.NewInt(1), Value: new(big.Int)}
	result := ApplyTransaction(db, tx, newTestEnv(), vm.ForkF2)
	if !result.Success {
		t.Fatalf("expected success, got %v", result.Error)
	}
	return result
}

// Clearing a slot back to zero (secondValue 0x00) accrues a refund the
// non-clearing case (secondValue 0x02) does not; the cleared run should
// therefore report lower gasUsed, and the saving must never exceed
// gasUsed/MaxRefundDivisor.
func TestApplyTransactionRefundIsCappedAtGasUsedOverDivisor(t *testing.T) {
	cleared := runStoreTx(t, 0x00)
	notCleared := runStoreTx(t, 0x02)

	if cleared.GasUsed >= notCleared.GasUsed {
		t.Fatalf("clearing should refund gas: cleared=%d notCleared=%d", cleared.GasUsed, notCleared.GasUsed)
	}
	saving := notCleared.GasUsed - cleared.GasUsed
	if saving > cleared.GasUsed/MaxRefundDivisor+1 {
		t.Errorf("refund saving %d exceeds cap of gasUsed/%d = %d", saving, MaxRefundDivisor, cleared.GasUsed/MaxRefundDivisor)
	}
}
