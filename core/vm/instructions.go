package vm

import (
	"math/big"

	"github.com/evmforge/evmforge/common"
	"github.com/evmforge/evmforge/crypto"
	"github.com/evmforge/evmforge/word"
)

// Every opXxx function below implements one opcode's stack/memory/state
// effect (§4.6.1-§4.6.5). Binary operators pop their left operand first,
// then their right operand, per the stack-order convention of §4.2.

func opStop(pc *uint64, in *interpreter) ([]byte, error) {
	return nil, nil
}

func binOp(in *interpreter, f func(x, y *big.Int) *big.Int) error {
	x, err := in.stack.Pop()
	if err != nil {
		return err
	}
	y, err := in.stack.Pop()
	if err != nil {
		return err
	}
	return in.stack.Push(f(x, y))
}

func opAdd(pc *uint64, in *interpreter) ([]byte, error) { return nil, binOp(in, word.Add) }
func opMul(pc *uint64, in *interpreter) ([]byte, error) { return nil, binOp(in, word.Mul) }
func opSub(pc *uint64, in *interpreter) ([]byte, error) { return nil, binOp(in, word.Sub) }
func opDiv(pc *uint64, in *interpreter) ([]byte, error) { return nil, binOp(in, word.Div) }
func opSdiv(pc *uint64, in *interpreter) ([]byte, error) { return nil, binOp(in, word.SDiv) }
func opMod(pc *uint64, in *interpreter) ([]byte, error) { return nil, binOp(in, word.Mod) }
func opSmod(pc *uint64, in *interpreter) ([]byte, error) { return nil, binOp(in, word.SMod) }
func opLt(pc *uint64, in *interpreter) ([]byte, error)  { return nil, binOp(in, word.Lt) }
func opGt(pc *uint64, in *interpreter) ([]byte, error)  { return nil, binOp(in, word.Gt) }
func opSlt(pc *uint64, in *interpreter) ([]byte, error) { return nil, binOp(in, word.Slt) }
func opSgt(pc *uint64, in *interpreter) ([]byte, error) { return nil, binOp(in, word.Sgt) }
func opEq(pc *uint64, in *interpreter) ([]byte, error)  { return nil, binOp(in, word.Eq) }
func opAnd(pc *uint64, in *interpreter) ([]byte, error) { return nil, binOp(in, word.And) }
func opOr(pc *uint64, in *interpreter) ([]byte, error)  { return nil, binOp(in, word.Or) }
func opXor(pc *uint64, in *interpreter) ([]byte, error) { return nil, binOp(in, word.Xor) }
func opByte(pc *uint64, in *interpreter) ([]byte, error) { return nil, binOp(in, word.Byte) }
func opShl(pc *uint64, in *interpreter) ([]byte, error) { return nil, binOp(in, word.Shl) }
func opShr(pc *uint64, in *interpreter) ([]byte, error) { return nil, binOp(in, word.Shr) }
func opSar(pc *uint64, in *interpreter) ([]byte, error) { return nil, binOp(in, word.Sar) }
func opSignExtend(pc *uint64, in *interpreter) ([]byte, error) { return nil, binOp(in, word.SignExtend) }

func opAddmod(pc *uint64, in *interpreter) ([]byte, error) {
	x, err := in.stack.Pop()
	if err != nil {
		return nil, err
	}
	y, err := in.stack.Pop()
	if err != nil {
		return nil, err
	}
	n, err := in.stack.Pop()
	if err != nil {
		return nil, err
	}
	return nil, in.stack.Push(word.AddMod(x, y, n))
}

func opMulmod(pc *uint64, in *interpreter) ([]byte, error) {
	x, err := in.stack.Pop()
	if err != nil {
		return nil, err
	}
	y, err := in.stack.Pop()
	if err != nil {
		return nil, err
	}
	n, err := in.stack.Pop()
	if err != nil {
		return nil, err
	}
	return nil, in.stack.Push(word.MulMod(x, y, n))
}

func opExp(pc *uint64, in *interpreter) ([]byte, error) {
	base, err := in.stack.Pop()
	if err != nil {
		return nil, err
	}
	exp, err := in.stack.Pop()
	if err != nil {
		return nil, err
	}
	return nil, in.stack.Push(word.Exp(base, exp))
}

func opNot(pc *uint64, in *interpreter) ([]byte, error) {
	x, err := in.stack.Pop()
	if err != nil {
		return nil, err
	}
	return nil, in.stack.Push(word.Not(x))
}

func opIsZero(pc *uint64, in *interpreter) ([]byte, error) {
	x, err := in.stack.Pop()
	if err != nil {
		return nil, err
	}
	return nil, in.stack.Push(word.IsZero(x))
}

func opKeccak256(pc *uint64, in *interpreter) ([]byte, error) {
	offV, err := in.stack.Pop()
	if err != nil {
		return nil, err
	}
	sizeV, err := in.stack.Pop()
	if err != nil {
		return nil, err
	}
	off, size := offV.Uint64(), sizeV.Uint64()
	data := in.mem.Get(off, size)
	return nil, in.stack.Push(new(big.Int).SetBytes(crypto.Keccak256(data)))
}

// --- Environment and context opcodes (§4.6.3) ---

func opAddress(pc *uint64, in *interpreter) ([]byte, error) {
	return nil, in.stack.Push(in.msg.Target.Word())
}

func opBalance(pc *uint64, in *interpreter) ([]byte, error) {
	addrV, err := in.stack.Pop()
	if err != nil {
		return nil, err
	}
	addr := common.AddressFromWord(addrV)
	return nil, in.stack.Push(word.New(in.evm.StateDB.GetBalance(addr)))
}

func opOrigin(pc *uint64, in *interpreter) ([]byte, error) {
	return nil, in.stack.Push(in.evm.BlockEnv.Origin.Word())
}

func opCaller(pc *uint64, in *interpreter) ([]byte, error) {
	return nil, in.stack.Push(in.msg.Caller.Word())
}

func opCallValue(pc *uint64, in *interpreter) ([]byte, error) {
	v := in.msg.Value
	if v == nil {
		v = new(big.Int)
	}
	return nil, in.stack.Push(word.New(v))
}

func opCalldataLoad(pc *uint64, in *interpreter) ([]byte, error) {
	offV, err := in.stack.Pop()
	if err != nil {
		return nil, err
	}
	if offV.BitLen() > 64 {
		return nil, in.stack.Push(new(big.Int))
	}
	off := offV.Uint64()
	buf := make([]byte, 32)
	if off < uint64(len(in.msg.Data)) {
		n := copy(buf, in.msg.Data[off:])
		_ = n
	}
	return nil, in.stack.Push(new(big.Int).SetBytes(buf))
}

func opCalldataSize(pc *uint64, in *interpreter) ([]byte, error) {
	return nil, in.stack.Push(big.NewInt(int64(len(in.msg.Data))))
}

func opCalldataCopy(pc *uint64, in *interpreter) ([]byte, error) {
	return copyToMemory(in, in.msg.Data)
}

func opCodeSize(pc *uint64, in *interpreter) ([]byte, error) {
	return nil, in.stack.Push(big.NewInt(int64(len(in.msg.Code))))
}

func opCodeCopy(pc *uint64, in *interpreter) ([]byte, error) {
	return copyToMemory(in, in.msg.Code)
}

// copyToMemory implements the shared destOffset/offset/size stack
// layout of CALLDATACOPY/CODECOPY/RETURNDATACOPY, copying from src
// (zero-padded past its end) into memory.
func copyToMemory(in *interpreter, src []byte) ([]byte, error) {
	destOffV, err := in.stack.Pop()
	if err != nil {
		return nil, err
	}
	offV, err := in.stack.Pop()
	if err != nil {
		return nil, err
	}
	sizeV, err := in.stack.Pop()
	if err != nil {
		return nil, err
	}
	destOff, off, size := destOffV.Uint64(), offV.Uint64(), sizeV.Uint64()
	if size == 0 {
		return nil, nil
	}
	data := make([]byte, size)
	if off < uint64(len(src)) {
		copy(data, src[off:])
	}
	in.mem.Set(destOff, size, data)
	return nil, nil
}

func opGasPrice(pc *uint64, in *interpreter) ([]byte, error) {
	p := in.evm.BlockEnv.GasPrice
	if p == nil {
		p = new(big.Int)
	}
	return nil, in.stack.Push(word.New(p))
}

func opExtcodesize(pc *uint64, in *interpreter) ([]byte, error) {
	addrV, err := in.stack.Pop()
	if err != nil {
		return nil, err
	}
	addr := common.AddressFromWord(addrV)
	return nil, in.stack.Push(big.NewInt(int64(in.evm.StateDB.GetCodeSize(addr))))
}

func opExtcodecopy(pc *uint64, in *interpreter) ([]byte, error) {
	addrV, err := in.stack.Pop()
	if err != nil {
		return nil, err
	}
	addr := common.AddressFromWord(addrV)
	return copyToMemory(in, in.evm.StateDB.GetCode(addr))
}

func opReturndataSize(pc *uint64, in *interpreter) ([]byte, error) {
	return nil, in.stack.Push(big.NewInt(int64(len(in.retData))))
}

func opReturndataCopy(pc *uint64, in *interpreter) ([]byte, error) {
	destOffV, err := in.stack.Pop()
	if err != nil {
		return nil, err
	}
	offV, err := in.stack.Pop()
	if err != nil {
		return nil, err
	}
	sizeV, err := in.stack.Pop()
	if err != nil {
		return nil, err
	}
	destOff, off, size := destOffV.Uint64(), offV.Uint64(), sizeV.Uint64()
	if off+size > uint64(len(in.retData)) {
		return nil, newError(ReturnDataOutOfBounds)
	}
	if size == 0 {
		return nil, nil
	}
	in.mem.Set(destOff, size, in.retData[off:off+size])
	return nil, nil
}

// --- Block context opcodes ---

func opBlockhash(pc *uint64, in *interpreter) ([]byte, error) {
	nV, err := in.stack.Pop()
	if err != nil {
		return nil, err
	}
	if nV.BitLen() > 64 {
		return nil, in.stack.Push(new(big.Int))
	}
	h := in.evm.BlockEnv.BlockHash(nV.Uint64())
	return nil, in.stack.Push(h.Big())
}

func opCoinbase(pc *uint64, in *interpreter) ([]byte, error) {
	return nil, in.stack.Push(in.evm.BlockEnv.Coinbase.Word())
}

func opTimestamp(pc *uint64, in *interpreter) ([]byte, error) {
	return nil, in.stack.Push(new(big.Int).SetUint64(in.evm.BlockEnv.Timestamp))
}

func opNumber(pc *uint64, in *interpreter) ([]byte, error) {
	return nil, in.stack.Push(new(big.Int).SetUint64(in.evm.BlockEnv.Number))
}

func opDifficulty(pc *uint64, in *interpreter) ([]byte, error) {
	d := in.evm.BlockEnv.Difficulty
	if d == nil {
		d = new(big.Int)
	}
	return nil, in.stack.Push(word.New(d))
}

func opGasLimit(pc *uint64, in *interpreter) ([]byte, error) {
	return nil, in.stack.Push(new(big.Int).SetUint64(in.evm.BlockEnv.GasLimit))
}

func opChainID(pc *uint64, in *interpreter) ([]byte, error) {
	return nil, in.stack.Push(new(big.Int).SetUint64(in.evm.BlockEnv.ChainID))
}

// --- Stack/memory/storage/flow opcodes ---

func opPop(pc *uint64, in *interpreter) ([]byte, error) {
	_, err := in.stack.Pop()
	return nil, err
}

func opMload(pc *uint64, in *interpreter) ([]byte, error) {
	offV, err := in.stack.Pop()
	if err != nil {
		return nil, err
	}
	return nil, in.stack.Push(in.mem.LoadWord(offV.Uint64()))
}

func opMstore(pc *uint64, in *interpreter) ([]byte, error) {
	offV, err := in.stack.Pop()
	if err != nil {
		return nil, err
	}
	val, err := in.stack.Pop()
	if err != nil {
		return nil, err
	}
	in.mem.StoreWord(offV.Uint64(), val)
	return nil, nil
}

func opMstore8(pc *uint64, in *interpreter) ([]byte, error) {
	offV, err := in.stack.Pop()
	if err != nil {
		return nil, err
	}
	val, err := in.stack.Pop()
	if err != nil {
		return nil, err
	}
	in.mem.StoreByte(offV.Uint64(), val)
	return nil, nil
}

func opSload(pc *uint64, in *interpreter) ([]byte, error) {
	keyV, err := in.stack.Pop()
	if err != nil {
		return nil, err
	}
	key := common.BigToHash(keyV)
	val := in.evm.StateDB.GetState(in.msg.Target, key)
	return nil, in.stack.Push(val.Big())
}

func opSstore(pc *uint64, in *interpreter) ([]byte, error) {
	keyV, err := in.stack.Pop()
	if err != nil {
		return nil, err
	}
	valV, err := in.stack.Pop()
	if err != nil {
		return nil, err
	}
	key := common.BigToHash(keyV)
	newVal := common.BigToHash(valV)
	curVal := in.evm.StateDB.GetState(in.msg.Target, key)

	cur, new := uint64(0), uint64(0)
	if !curVal.IsZero() {
		cur = 1
	}
	if !newVal.IsZero() {
		new = 1
	}
	if !in.useGas(sstoreCost(cur, new)) {
		return nil, newError(OutOfGas)
	}
	if refund := sstoreRefund(cur, new); refund > 0 {
		in.evm.StateDB.AddRefund(refund)
	}
	in.evm.StateDB.SetState(in.msg.Target, key, newVal)
	return nil, nil
}

func opJump(pc *uint64, in *interpreter) ([]byte, error) {
	destV, err := in.stack.Pop()
	if err != nil {
		return nil, err
	}
	if destV.BitLen() > 64 || !in.jumpdests[destV.Uint64()] {
		return nil, newError(InvalidJump)
	}
	*pc = destV.Uint64()
	return nil, nil
}

func opJumpi(pc *uint64, in *interpreter) ([]byte, error) {
	destV, err := in.stack.Pop()
	if err != nil {
		return nil, err
	}
	condV, err := in.stack.Pop()
	if err != nil {
		return nil, err
	}
	if condV.Sign() == 0 {
		*pc++
		return nil, nil
	}
	if destV.BitLen() > 64 || !in.jumpdests[destV.Uint64()] {
		return nil, newError(InvalidJump)
	}
	*pc = destV.Uint64()
	return nil, nil
}

func opPc(pc *uint64, in *interpreter) ([]byte, error) {
	return nil, in.stack.Push(new(big.Int).SetUint64(*pc))
}

func opMsize(pc *uint64, in *interpreter) ([]byte, error) {
	return nil, in.stack.Push(big.NewInt(int64(in.mem.Len())))
}

func opGas(pc *uint64, in *interpreter) ([]byte, error) {
	return nil, in.stack.Push(new(big.Int).SetUint64(in.gas))
}

func opJumpdest(pc *uint64, in *interpreter) ([]byte, error) {
	return nil, nil
}

// makePush returns the execute function for PUSH1..PUSH32: it reads n
// bytes of immediate data following the opcode, zero-padding past the
// end of code, and advances pc by n (the dispatch loop adds the final
// +1 for the opcode byte itself).
func makePush(n uint64) executionFunc {
	return func(pc *uint64, in *interpreter) ([]byte, error) {
		start := *pc + 1
		buf := make([]byte, n)
		code := in.msg.Code
		for i := uint64(0); i < n; i++ {
			idx := start + i
			if idx < uint64(len(code)) {
				buf[i] = code[idx]
			}
		}
		*pc += n
		return nil, in.stack.Push(new(big.Int).SetBytes(buf))
	}
}

func opPush0(pc *uint64, in *interpreter) ([]byte, error) {
	return nil, in.stack.Push(new(big.Int))
}

func makeDup(n int) executionFunc {
	return func(pc *uint64, in *interpreter) ([]byte, error) {
		return nil, in.stack.Dup(n)
	}
}

func makeSwap(n int) executionFunc {
	return func(pc *uint64, in *interpreter) ([]byte, error) {
		return nil, in.stack.Swap(n)
	}
}

func makeLog(n int) executionFunc {
	return func(pc *uint64, in *interpreter) ([]byte, error) {
		offV, err := in.stack.Pop()
		if err != nil {
			return nil, err
		}
		sizeV, err := in.stack.Pop()
		if err != nil {
			return nil, err
		}
		topics := make([]common.Hash, n)
		for i := 0; i < n; i++ {
			tV, err := in.stack.Pop()
			if err != nil {
				return nil, err
			}
			topics[i] = common.BigToHash(tV)
		}
		data := in.mem.Get(offV.Uint64(), sizeV.Uint64())
		in.evm.StateDB.AddLog(common.Log{
			Address: in.msg.Target,
			Topics:  topics,
			Data:    data,
		})
		return nil, nil
	}
}

// --- Calls and creation (§4.6.4, §4.6.5) ---

func opCreate(pc *uint64, in *interpreter) ([]byte, error) {
	valueV, err := in.stack.Pop()
	if err != nil {
		return nil, err
	}
	offV, err := in.stack.Pop()
	if err != nil {
		return nil, err
	}
	sizeV, err := in.stack.Pop()
	if err != nil {
		return nil, err
	}
	initCode := in.mem.Get(offV.Uint64(), sizeV.Uint64())

	// Address derivation uses the nonce as it stands before this CREATE
	// bumps it; the actual bump happens inside create(), gated on the
	// balance check (§4.6.5).
	newAddr := CreateAddress(in.msg.Target, in.evm.StateDB.GetNonce(in.msg.Target))

	addr, err := in.create(valueV, initCode, newAddr)
	if err != nil {
		return nil, err
	}
	if addr.IsZero() {
		return nil, in.stack.Push(new(big.Int))
	}
	return nil, in.stack.Push(addr.Word())
}

func opCreate2(pc *uint64, in *interpreter) ([]byte, error) {
	valueV, err := in.stack.Pop()
	if err != nil {
		return nil, err
	}
	offV, err := in.stack.Pop()
	if err != nil {
		return nil, err
	}
	sizeV, err := in.stack.Pop()
	if err != nil {
		return nil, err
	}
	saltV, err := in.stack.Pop()
	if err != nil {
		return nil, err
	}
	initCode := in.mem.Get(offV.Uint64(), sizeV.Uint64())

	salt := common.BigToHash(saltV)
	newAddr := Create2Address(in.msg.Target, salt, initCode)

	addr, err := in.create(valueV, initCode, newAddr)
	if err != nil {
		return nil, err
	}
	if addr.IsZero() {
		return nil, in.stack.Push(new(big.Int))
	}
	return nil, in.stack.Push(addr.Word())
}

func opCall(pc *uint64, in *interpreter) ([]byte, error) {
	gasV, err := in.stack.Pop()
	if err != nil {
		return nil, err
	}
	addrV, err := in.stack.Pop()
	if err != nil {
		return nil, err
	}
	valueV, err := in.stack.Pop()
	if err != nil {
		return nil, err
	}
	argsOffV, err := in.stack.Pop()
	if err != nil {
		return nil, err
	}
	argsSizeV, err := in.stack.Pop()
	if err != nil {
		return nil, err
	}
	retOffV, err := in.stack.Pop()
	if err != nil {
		return nil, err
	}
	retSizeV, err := in.stack.Pop()
	if err != nil {
		return nil, err
	}
	target := common.AddressFromWord(addrV)
	ok, err := in.call(gasV, target, target, in.msg.Target, valueV,
		argsOffV.Uint64(), argsSizeV.Uint64(), retOffV.Uint64(), retSizeV.Uint64(),
		in.msg.IsStatic, false)
	if err != nil {
		return nil, err
	}
	return nil, in.stack.Push(new(big.Int).SetUint64(ok))
}

func opCallCode(pc *uint64, in *interpreter) ([]byte, error) {
	gasV, err := in.stack.Pop()
	if err != nil {
		return nil, err
	}
	addrV, err := in.stack.Pop()
	if err != nil {
		return nil, err
	}
	valueV, err := in.stack.Pop()
	if err != nil {
		return nil, err
	}
	argsOffV, err := in.stack.Pop()
	if err != nil {
		return nil, err
	}
	argsSizeV, err := in.stack.Pop()
	if err != nil {
		return nil, err
	}
	retOffV, err := in.stack.Pop()
	if err != nil {
		return nil, err
	}
	retSizeV, err := in.stack.Pop()
	if err != nil {
		return nil, err
	}
	codeAddr := common.AddressFromWord(addrV)
	// CALLCODE runs codeAddr's code in the caller's own account context.
	ok, err := in.call(gasV, codeAddr, in.msg.Target, in.msg.Target, valueV,
		argsOffV.Uint64(), argsSizeV.Uint64(), retOffV.Uint64(), retSizeV.Uint64(),
		in.msg.IsStatic, true)
	if err != nil {
		return nil, err
	}
	return nil, in.stack.Push(new(big.Int).SetUint64(ok))
}

func opDelegateCall(pc *uint64, in *interpreter) ([]byte, error) {
	gasV, err := in.stack.Pop()
	if err != nil {
		return nil, err
	}
	addrV, err := in.stack.Pop()
	if err != nil {
		return nil, err
	}
	argsOffV, err := in.stack.Pop()
	if err != nil {
		return nil, err
	}
	argsSizeV, err := in.stack.Pop()
	if err != nil {
		return nil, err
	}
	retOffV, err := in.stack.Pop()
	if err != nil {
		return nil, err
	}
	retSizeV, err := in.stack.Pop()
	if err != nil {
		return nil, err
	}
	codeAddr := common.AddressFromWord(addrV)
	// DELEGATECALL preserves the original caller and value, runs in the
	// current account's own context, and never transfers value.
	ok, err := in.call(gasV, codeAddr, in.msg.Target, in.msg.Caller, in.msg.Value,
		argsOffV.Uint64(), argsSizeV.Uint64(), retOffV.Uint64(), retSizeV.Uint64(),
		in.msg.IsStatic, true)
	if err != nil {
		return nil, err
	}
	return nil, in.stack.Push(new(big.Int).SetUint64(ok))
}

func opStaticCall(pc *uint64, in *interpreter) ([]byte, error) {
	gasV, err := in.stack.Pop()
	if err != nil {
		return nil, err
	}
	addrV, err := in.stack.Pop()
	if err != nil {
		return nil, err
	}
	argsOffV, err := in.stack.Pop()
	if err != nil {
		return nil, err
	}
	argsSizeV, err := in.stack.Pop()
	if err != nil {
		return nil, err
	}
	retOffV, err := in.stack.Pop()
	if err != nil {
		return nil, err
	}
	retSizeV, err := in.stack.Pop()
	if err != nil {
		return nil, err
	}
	target := common.AddressFromWord(addrV)
	ok, err := in.call(gasV, target, target, in.msg.Target, new(big.Int),
		argsOffV.Uint64(), argsSizeV.Uint64(), retOffV.Uint64(), retSizeV.Uint64(),
		true, false)
	if err != nil {
		return nil, err
	}
	return nil, in.stack.Push(new(big.Int).SetUint64(ok))
}

func opReturn(pc *uint64, in *interpreter) ([]byte, error) {
	offV, err := in.stack.Pop()
	if err != nil {
		return nil, err
	}
	sizeV, err := in.stack.Pop()
	if err != nil {
		return nil, err
	}
	return in.mem.Get(offV.Uint64(), sizeV.Uint64()), nil
}

func opRevert(pc *uint64, in *interpreter) ([]byte, error) {
	offV, err := in.stack.Pop()
	if err != nil {
		return nil, err
	}
	sizeV, err := in.stack.Pop()
	if err != nil {
		return nil, err
	}
	return in.mem.Get(offV.Uint64(), sizeV.Uint64()), ErrExecutionReverted
}

func opInvalid(pc *uint64, in *interpreter) ([]byte, error) {
	return nil, newError(InvalidOpcode)
}

func opSelfdestruct(pc *uint64, in *interpreter) ([]byte, error) {
	addrV, err := in.stack.Pop()
	if err != nil {
		return nil, err
	}
	recipient := common.AddressFromWord(addrV)
	balance := in.evm.StateDB.GetBalance(in.msg.Target)
	in.evm.StateDB.AddBalance(recipient, balance)
	in.evm.StateDB.SetBalance(in.msg.Target, new(big.Int))
	in.evm.StateDB.SelfDestruct(in.msg.Target)
	return nil, nil
}
