package vm

import (
	"math/big"

	"github.com/evmforge/evmforge/common"
)

// MaxCallDepth is the deepest a chain of nested CALL/CREATE frames may
// reach (spec.md §4.6.4); a frame whose depth exceeds it (the root frame
// has depth 0) fails with CallDepthExceeded before any of its code runs.
const MaxCallDepth = 1024

// EVM ties a StateDB, a block environment, and a fork's jump table
// together into something that can run Messages. One EVM is built per
// transaction (or per standalone interpreter invocation) and reused for
// every nested call/create frame that transaction produces.
type EVM struct {
	StateDB   StateDB
	BlockEnv  *common.BlockEnv
	Fork      Fork
	jumpTable JumpTable
}

// NewEVM returns an EVM wired to run code under fork.
func NewEVM(stateDB StateDB, blockEnv *common.BlockEnv, fork Fork) *EVM {
	return &EVM{
		StateDB:   stateDB,
		BlockEnv:  blockEnv,
		Fork:      fork,
		jumpTable: JumpTableForFork(fork),
	}
}

// interpreter holds the mutable execution state of a single call frame:
// its gas meter, program counter, stack, and memory. It is discarded
// once the frame halts.
type interpreter struct {
	evm       *EVM
	msg       *Message
	gas       uint64
	pc        uint64
	stack     *Stack
	mem       *Memory
	jumpdests map[uint64]bool
	retData   []byte // data returned by the most recent child call/create
}

func (in *interpreter) useGas(cost uint64) bool {
	if in.gas < cost {
		return false
	}
	in.gas -= cost
	return true
}

// run executes msg's code to completion, returning its return/revert
// data and any error. A non-nil error other than ErrExecutionReverted
// is one of the fatal ErrorKinds of §4.6.2, under which the entire
// frame's forwarded gas is considered spent.
func (in *interpreter) run() ([]byte, error) {
	code := in.msg.Code
	for in.pc < uint64(len(code)) {
		op := OpCode(code[in.pc])
		operation := in.evm.jumpTable[op]
		if operation == nil {
			return nil, newError(InvalidOpcode)
		}

		if in.stack.Len() < operation.minStack {
			return nil, newError(StackUnderflow)
		}
		if in.stack.Len() > operation.maxStack {
			return nil, newError(StackOverflow)
		}

		if operation.writes && in.msg.IsStatic {
			return nil, newError(WriteProtection)
		}

		if operation.constantGas > 0 {
			if !in.useGas(operation.constantGas) {
				return nil, newError(OutOfGas)
			}
		}

		var memSize uint64
		if operation.memorySize != nil {
			sz, ok := operation.memorySize(in.stack)
			if !ok {
				return nil, newError(OutOfGas)
			}
			if sz > 0 {
				memSize = expansionWords(sz) * 32
			}
		}

		if operation.dynamicGas != nil {
			cost, err := operation.dynamicGas(in, memSize)
			if err != nil {
				return nil, err
			}
			if !in.useGas(cost) {
				return nil, newError(OutOfGas)
			}
		}

		if memSize > 0 && uint64(in.mem.Len()) < memSize {
			in.mem.Resize(memSize)
		}

		ret, err := operation.execute(&in.pc, in)
		if err != nil {
			return ret, err
		}
		if operation.halts {
			return ret, nil
		}
		if operation.jumps {
			continue
		}
		in.pc++
	}
	return nil, nil
}

// Run executes msg against the EVM's StateDB, snapshotting state first
// and rolling back on any failure (§4.6.4's "no observable mutation on
// a failed frame" invariant applies uniformly, not only to nested
// calls).
func (evm *EVM) Run(msg *Message) *ExecutionResult {
	if msg.Depth > MaxCallDepth {
		return &ExecutionResult{
			Success:      false,
			GasUsed:      msg.Gas,
			GasRemaining: 0,
			Error:        CallDepthExceeded,
		}
	}

	var snap int
	var logsBefore int
	if evm.StateDB != nil {
		snap = evm.StateDB.Snapshot()
		logsBefore = len(evm.StateDB.Logs())
	}

	in := &interpreter{
		evm:       evm,
		msg:       msg,
		gas:       msg.Gas,
		stack:     NewStack(),
		mem:       NewMemory(),
		jumpdests: analyzeJumpdests(msg.Code),
	}

	ret, err := in.run()

	if err != nil {
		if err == ErrExecutionReverted {
			if evm.StateDB != nil {
				evm.StateDB.RevertToSnapshot(snap)
			}
			return &ExecutionResult{
				Success:      false,
				GasUsed:      msg.Gas - in.gas,
				GasRemaining: in.gas,
				ReturnData:   ret,
			}
		}
		if evm.StateDB != nil {
			evm.StateDB.RevertToSnapshot(snap)
		}
		kind, _ := KindOf(err)
		return &ExecutionResult{
			Success:      false,
			GasUsed:      msg.Gas,
			GasRemaining: 0,
			Error:        kind,
		}
	}

	var logs []common.Log
	if evm.StateDB != nil {
		logs = append(logs, evm.StateDB.Logs()[logsBefore:]...)
	}
	return &ExecutionResult{
		Success:      true,
		GasUsed:      msg.Gas - in.gas,
		GasRemaining: in.gas,
		ReturnData:   ret,
		Logs:         logs,
	}
}

// callGas computes the gas forwarded to a CALL-family child frame:
// min(requested, all-but-one-64th of what remains), plus the
// CALL_STIPEND bonus when the call carries value. callerDeduction is
// what useGas should actually charge the caller; it excludes the
// stipend, which the child receives without ever being debited from
// the caller (§4.6.4).
func callGas(available uint64, requested *big.Int, hasValue bool) (forwarded, callerDeduction uint64) {
	capped := available - available/64
	var req uint64
	if requested.BitLen() <= 64 {
		req = requested.Uint64()
	} else {
		req = capped
	}
	callerDeduction = req
	if callerDeduction > capped {
		callerDeduction = capped
	}
	forwarded = callerDeduction
	if hasValue {
		forwarded += GasCallStipend
	}
	return forwarded, callerDeduction
}

// returnGasFromCall computes how much gas to credit back to the caller
// once a child CALL-family frame completes, subtracting the stipend
// back out since it was never charged to the caller in the first place.
func returnGasFromCall(returnGas uint64, hasValue bool) uint64 {
	if hasValue {
		if returnGas >= GasCallStipend {
			return returnGas - GasCallStipend
		}
		return 0
	}
	return returnGas
}

// call is the shared implementation behind CALL/CALLCODE/DELEGATECALL/
// STATICCALL (§4.6.4): it builds the child Message for the given
// variant, runs it, copies return data into the caller's memory, and
// reports success/failure to the caller's stack as 1/0.
func (in *interpreter) call(
	gasHint *big.Int,
	codeAddr common.Address,
	target common.Address,
	caller common.Address,
	value *big.Int,
	argsOff, argsSize, retOff, retSize uint64,
	isStatic bool,
	isDelegate bool,
) (uint64, error) {
	hasValue := value != nil && value.Sign() != 0

	if in.msg.IsStatic && hasValue {
		return 0, newError(WriteProtection)
	}

	if hasValue {
		if in.evm.StateDB.GetBalance(in.msg.Target).Cmp(value) < 0 {
			return 0, nil
		}
	}

	args := in.mem.Get(argsOff, argsSize)
	forwarded, callerDeduction := callGas(in.gas, gasHint, hasValue)
	if !in.useGas(callerDeduction) {
		return 0, newError(OutOfGas)
	}

	code := in.evm.StateDB.GetCode(codeAddr)

	child := &Message{
		Caller:      caller,
		Target:      target,
		CodeAddress: codeAddr,
		Value:       value,
		Data:        args,
		Gas:         forwarded,
		Depth:       in.msg.Depth + 1,
		Code:        code,
		IsStatic:    isStatic,
		IsCreate:    false,
	}

	if hasValue && !isDelegate {
		in.evm.StateDB.SubBalance(in.msg.Target, value)
		in.evm.StateDB.AddBalance(target, value)
	}

	result := in.evm.Run(child)
	in.retData = result.ReturnData
	in.mem.Set(retOff, minUint64(retSize, uint64(len(result.ReturnData))), result.ReturnData)

	in.gas += returnGasFromCall(result.GasRemaining, hasValue)

	if result.Success {
		return 1, nil
	}
	return 0, nil
}

func minUint64(a, b uint64) uint64 {
	if a < b {
		return a
	}
	return b
}

// create is the shared implementation behind CREATE/CREATE2 (§4.6.5):
// given the new address its opcode derived, check collision and depth, run the init
// code as a nested frame, charge code-deposit gas, and deploy the
// returned bytes as the new account's code.
func (in *interpreter) create(value *big.Int, initCode []byte, newAddr common.Address) (common.Address, error) {
	if in.msg.IsStatic {
		return common.Address{}, newError(WriteProtection)
	}

	// The balance check must precede the nonce bump: a CREATE that fails
	// only for insufficient value must not burn a nonce (§4.6.5).
	if in.evm.StateDB.GetBalance(in.msg.Target).Cmp(value) < 0 {
		return common.Address{}, nil
	}

	snap := in.evm.StateDB.Snapshot()
	in.evm.StateDB.SetNonce(in.msg.Target, in.evm.StateDB.GetNonce(in.msg.Target)+1)

	if in.msg.Depth+1 > MaxCallDepth {
		in.evm.StateDB.RevertToSnapshot(snap)
		return common.Address{}, nil
	}
	if in.evm.StateDB.GetCodeSize(newAddr) > 0 || in.evm.StateDB.GetNonce(newAddr) > 0 {
		in.evm.StateDB.RevertToSnapshot(snap)
		return common.Address{}, nil
	}

	in.evm.StateDB.CreateAccount(newAddr)
	in.evm.StateDB.SetNonce(newAddr, 1)
	in.evm.StateDB.SubBalance(in.msg.Target, value)
	in.evm.StateDB.AddBalance(newAddr, value)

	forwardedGas := in.gas - in.gas/64
	child := &Message{
		Caller:      in.msg.Target,
		Target:      newAddr,
		CodeAddress: newAddr,
		Value:       value,
		Data:        nil,
		Gas:         forwardedGas,
		Depth:       in.msg.Depth + 1,
		Code:        initCode,
		IsStatic:    in.msg.IsStatic,
		IsCreate:    true,
	}
	if !in.useGas(forwardedGas) {
		in.evm.StateDB.RevertToSnapshot(snap)
		return common.Address{}, newError(OutOfGas)
	}

	result := in.evm.Run(child)
	in.retData = result.ReturnData

	if !result.Success {
		// A reverting or failing init code returns its unused gas;
		// a fatal error already reports zero remaining.
		in.gas += result.GasRemaining
		in.evm.StateDB.RevertToSnapshot(snap)
		return common.Address{}, nil
	}

	runtimeCode := result.ReturnData
	if in.evm.Fork.EnforcesMaxCodeSize() && len(runtimeCode) > MaxCodeSize {
		// Oversized code fails the creation outright; no gas refund.
		in.evm.StateDB.RevertToSnapshot(snap)
		return common.Address{}, nil
	}

	depositCost := GasCodeDeposit * uint64(len(runtimeCode))
	if depositCost > result.GasRemaining {
		if in.evm.Fork.UniformCreateFailure() {
			// F1/F2: insufficient deposit gas fails the create outright.
			in.evm.StateDB.RevertToSnapshot(snap)
			return common.Address{}, nil
		}
		// F0's historical quirk (§9 open question 1): the account is
		// left deployed with empty code, consuming all forwarded gas.
		in.evm.StateDB.SetCode(newAddr, nil)
		return newAddr, nil
	}

	in.gas += result.GasRemaining - depositCost
	in.evm.StateDB.SetCode(newAddr, runtimeCode)
	return newAddr, nil
}

// CreateAt runs a top-level contract-creation transaction's init code
// (§4.8): unlike a nested CREATE, there is no parent frame retaining a
// 1/64th share, so the entire gas argument is forwarded to the init
// code as-is.
func (evm *EVM) CreateAt(newAddr, caller common.Address, initCode []byte, gas uint64, value *big.Int) *ExecutionResult {
	if evm.StateDB.GetCodeSize(newAddr) > 0 || evm.StateDB.GetNonce(newAddr) > 0 {
		return &ExecutionResult{Success: false, GasUsed: gas, GasRemaining: 0, Error: CodeSizeExceeded}
	}

	snap := evm.StateDB.Snapshot()
	logsBefore := len(evm.StateDB.Logs())

	evm.StateDB.CreateAccount(newAddr)
	evm.StateDB.SetNonce(newAddr, 1)
	evm.StateDB.SubBalance(caller, value)
	evm.StateDB.AddBalance(newAddr, value)

	child := &Message{
		Caller:      caller,
		Target:      newAddr,
		CodeAddress: newAddr,
		Value:       value,
		Gas:         gas,
		Depth:       0,
		Code:        initCode,
		IsCreate:    true,
	}
	result := evm.Run(child)
	if !result.Success {
		evm.StateDB.RevertToSnapshot(snap)
		return &ExecutionResult{
			Success:      false,
			GasUsed:      gas - result.GasRemaining,
			GasRemaining: result.GasRemaining,
			Error:        result.Error,
			ReturnData:   result.ReturnData,
		}
	}

	runtimeCode := result.ReturnData
	if evm.Fork.EnforcesMaxCodeSize() && len(runtimeCode) > MaxCodeSize {
		evm.StateDB.RevertToSnapshot(snap)
		return &ExecutionResult{Success: false, GasUsed: gas, GasRemaining: 0, Error: CodeSizeExceeded}
	}

	depositCost := GasCodeDeposit * uint64(len(runtimeCode))
	if depositCost > result.GasRemaining {
		if evm.Fork.UniformCreateFailure() {
			evm.StateDB.RevertToSnapshot(snap)
			return &ExecutionResult{Success: false, GasUsed: gas, GasRemaining: 0, Error: CodeDeployGas}
		}
		evm.StateDB.SetCode(newAddr, nil)
		logs := append([]common.Log{}, evm.StateDB.Logs()[logsBefore:]...)
		return &ExecutionResult{Success: true, GasUsed: gas, GasRemaining: 0, CreatedAddress: &newAddr, Logs: logs}
	}

	evm.StateDB.SetCode(newAddr, runtimeCode)
	remaining := result.GasRemaining - depositCost
	logs := append([]common.Log{}, evm.StateDB.Logs()[logsBefore:]...)
	return &ExecutionResult{
		Success:        true,
		GasUsed:        gas - remaining,
		GasRemaining:   remaining,
		CreatedAddress: &newAddr,
		ReturnData:     runtimeCode,
		Logs:           logs,
	}
}
