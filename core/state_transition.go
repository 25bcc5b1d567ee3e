// Package core implements the transaction-level state-transition
// function (spec.md §4.8): validating a transaction against the
// sender's account, charging gas upfront, running the interpreter,
// and settling gas refunds and the coinbase payment.
package core

import (
	"math/big"

	"github.com/evmforge/evmforge/common"
	"github.com/evmforge/evmforge/core/vm"
)

// Transaction is the minimal transaction shape §4.8 operates on: a
// sender, an optional recipient (nil means contract creation), a
// nonce the sender must currently hold, a gas budget and price, a
// value to transfer, and calldata (or init code, for creation).
type Transaction struct {
	From     common.Address
	To       *common.Address
	Nonce    uint64
	GasLimit uint64
	GasPrice *big.Int
	Value    *big.Int
	Data     []byte
}

// MaxRefundDivisor bounds the post-execution gas refund to at most the
// gas the execution itself used (intrinsic gas excluded) divided by
// MaxRefundDivisor (§4.8's EIP-3529-style cap, kept even
// though F0-F2 predate the mainnet EIP that introduced it, since
// spec.md §4.8 names the same ratio explicitly).
const MaxRefundDivisor = 5

// ApplyTransaction runs one transaction against stateDB under the
// given block environment and fork, returning the interpreter's result
// and settling the sender/coinbase balances and nonce as a side effect.
// It never returns a Go error: every failure mode surfaces through the
// result's Success/Error fields (§4.8's validation-failure list).
func ApplyTransaction(stateDB vm.StateDB, tx *Transaction, blockEnv *common.BlockEnv, fork vm.Fork) *vm.ExecutionResult {
	snap := stateDB.Snapshot()

	if stateDB.GetNonce(tx.From) != tx.Nonce {
		stateDB.RevertToSnapshot(snap)
		return &vm.ExecutionResult{Error: vm.TxInvalidNonce}
	}

	isCreate := tx.To == nil
	intrinsic := vm.IntrinsicGas(tx.Data, isCreate, fork)
	if tx.GasLimit < intrinsic {
		stateDB.RevertToSnapshot(snap)
		return &vm.ExecutionResult{Error: vm.TxIntrinsicGas}
	}

	if isCreate && fork.EnforcesMaxCodeSize() && len(tx.Data) > vm.MaxInitcodeSize {
		stateDB.RevertToSnapshot(snap)
		return &vm.ExecutionResult{Error: vm.TxInitcodeTooLarge}
	}

	upfrontCost := new(big.Int).Mul(new(big.Int).SetUint64(tx.GasLimit), tx.GasPrice)
	upfrontCost.Add(upfrontCost, tx.Value)
	if stateDB.GetBalance(tx.From).Cmp(upfrontCost) < 0 {
		stateDB.RevertToSnapshot(snap)
		return &vm.ExecutionResult{Error: vm.TxInsufficientFunds}
	}

	stateDB.SubBalance(tx.From, new(big.Int).Mul(new(big.Int).SetUint64(tx.GasLimit), tx.GasPrice))
	stateDB.IncrementNonce(tx.From)

	txEnv := *blockEnv
	txEnv.Origin = tx.From
	txEnv.GasPrice = tx.GasPrice
	evm := vm.NewEVM(stateDB, &txEnv, fork)

	availableGas := tx.GasLimit - intrinsic

	var result *vm.ExecutionResult
	if isCreate {
		newAddr := vm.CreateAddress(tx.From, tx.Nonce)
		result = evm.CreateAt(newAddr, tx.From, tx.Data, availableGas, tx.Value)
	} else {
		msg := &vm.Message{
			Caller:      tx.From,
			Target:      *tx.To,
			CodeAddress: *tx.To,
			Value:       tx.Value,
			Data:        tx.Data,
			Gas:         availableGas,
			Depth:       0,
			Code:        stateDB.GetCode(*tx.To),
		}
		stateDB.SubBalance(tx.From, tx.Value)
		stateDB.AddBalance(*tx.To, tx.Value)
		result = evm.Run(msg)
	}

	var gasUsed uint64
	if result.Success {
		gasUsedBeforeRefund := availableGas - result.GasRemaining

		refund := stateDB.GetRefund()
		maxRefund := gasUsedBeforeRefund / MaxRefundDivisor
		if refund > maxRefund {
			refund = maxRefund
		}

		gasUsed = intrinsic + gasUsedBeforeRefund - refund
	} else {
		// A reverted or failed top-level call/create burns the entire
		// gas limit; nothing is refunded (§4.8 step 7).
		gasUsed = tx.GasLimit
	}
	leftover := tx.GasLimit - gasUsed

	stateDB.AddBalance(tx.From, new(big.Int).Mul(new(big.Int).SetUint64(leftover), tx.GasPrice))
	stateDB.AddBalance(blockEnv.Coinbase, new(big.Int).Mul(new(big.Int).SetUint64(gasUsed), tx.GasPrice))

	// Accounts that self-destructed in this transaction are removed now
	// that it is settled.
	if p, ok := stateDB.(interface{ Purge() }); ok {
		p.Purge()
	}

	result.GasUsed = gasUsed
	result.GasRemaining = leftover
	return result
}
