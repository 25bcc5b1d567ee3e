package vm

import (
	"github.com/evmforge/evmforge/common"
	"github.com/evmforge/evmforge/word"
)

// gasExp charges EXP_PER_BYTE per byte of the exponent on top of the
// EXP_BASE constant gas already charged (§4.5's exp-cost formula).
func gasExp(in *interpreter, _ uint64) (uint64, error) {
	expV, err := in.stack.Back(1)
	if err != nil {
		return 0, err
	}
	return GasExpPerByte * word.ByteLen(expV), nil
}

// gasKeccak256 is SHA3 + SHA3_WORD*ceil(size/32) plus memory expansion.
func gasKeccak256(in *interpreter, memorySize uint64) (uint64, error) {
	sizeV, err := in.stack.Back(1)
	if err != nil {
		return 0, err
	}
	size, ok := toMachineWord(sizeV)
	if !ok {
		return 0, newError(OutOfGas)
	}
	expand, err := gasMemExpansion(in, memorySize)
	if err != nil {
		return 0, err
	}
	return sha3Cost(size) + expand, nil
}

// gasCopyMem charges COPY*ceil(size/32) plus memory expansion for any
// opcode copying `size` bytes into memory, where size is the stack
// operand at depth 2 (CALLDATACOPY/CODECOPY layout: dest, src, size).
func gasCopyMem(in *interpreter, memorySize uint64) (uint64, error) {
	sizeV, err := in.stack.Back(2)
	if err != nil {
		return 0, err
	}
	size, ok := toMachineWord(sizeV)
	if !ok {
		return 0, newError(OutOfGas)
	}
	expand, err := gasMemExpansion(in, memorySize)
	if err != nil {
		return 0, err
	}
	return copyCost(size) + expand, nil
}

// gasExtCodeCopyMem is gasCopyMem shifted one stack slot for
// EXTCODECOPY's extra leading address operand (addr, dest, src, size).
func gasExtCodeCopyMem(in *interpreter, memorySize uint64) (uint64, error) {
	sizeV, err := in.stack.Back(3)
	if err != nil {
		return 0, err
	}
	size, ok := toMachineWord(sizeV)
	if !ok {
		return 0, newError(OutOfGas)
	}
	expand, err := gasMemExpansion(in, memorySize)
	if err != nil {
		return 0, err
	}
	return copyCost(size) + expand, nil
}

func gasReturnDataCopyMem(in *interpreter, memorySize uint64) (uint64, error) {
	return gasCopyMem(in, memorySize)
}

// gasLog returns a dynamicGasFunc charging log-cost(size, n) plus
// memory expansion for a LOGn opcode.
func gasLog(n int) dynamicGasFunc {
	return func(in *interpreter, memorySize uint64) (uint64, error) {
		sizeV, err := in.stack.Back(1)
		if err != nil {
			return 0, err
		}
		size, ok := toMachineWord(sizeV)
		if !ok {
			return 0, newError(OutOfGas)
		}
		expand, err := gasMemExpansion(in, memorySize)
		if err != nil {
			return 0, err
		}
		return logCost(size, n) + expand, nil
	}
}

// gasCall charges call-cost(value>0, target-exists) plus memory
// expansion for CALL, whose stack layout is gas, addr, value, argsOff,
// argsSize, retOff, retSize (Back(0)..Back(6)).
func gasCall(in *interpreter, memorySize uint64) (uint64, error) {
	addrV, err := in.stack.Back(1)
	if err != nil {
		return 0, err
	}
	valueV, err := in.stack.Back(2)
	if err != nil {
		return 0, err
	}
	expand, err := gasMemExpansion(in, memorySize)
	if err != nil {
		return 0, err
	}
	hasValue := valueV.Sign() != 0
	target := common.AddressFromWord(addrV)
	exists := in.evm.StateDB == nil || in.evm.StateDB.Exist(target)
	return callCost(hasValue, exists) + expand, nil
}

// gasCallCode is gasCall without the new-account surcharge relevance
// check being any different — CALLCODE never creates an account since
// it never touches the target's own storage, but it still pays the
// value-transfer surcharge when it carries value.
func gasCallCode(in *interpreter, memorySize uint64) (uint64, error) {
	valueV, err := in.stack.Back(2)
	if err != nil {
		return 0, err
	}
	expand, err := gasMemExpansion(in, memorySize)
	if err != nil {
		return 0, err
	}
	return callCost(valueV.Sign() != 0, true) + expand, nil
}

// gasNoValueCall charges call-cost(false, _) plus memory expansion,
// for DELEGATECALL/STATICCALL which never carry value.
func gasNoValueCall(in *interpreter, memorySize uint64) (uint64, error) {
	expand, err := gasMemExpansion(in, memorySize)
	if err != nil {
		return 0, err
	}
	return callCost(false, true) + expand, nil
}

// gasCreate2 adds copy-cost(size) to cover init-code hashing, on top
// of memory expansion (§4.6.5).
func gasCreate2(in *interpreter, memorySize uint64) (uint64, error) {
	sizeV, err := in.stack.Back(2)
	if err != nil {
		return 0, err
	}
	size, ok := toMachineWord(sizeV)
	if !ok {
		return 0, newError(OutOfGas)
	}
	expand, err := gasMemExpansion(in, memorySize)
	if err != nil {
		return 0, err
	}
	return copyCost(size) + expand, nil
}
