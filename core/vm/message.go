package vm

import (
	"math/big"

	"github.com/evmforge/evmforge/common"
)

// Message carries the context of one call frame, as named in spec §3:
// caller/target/code-address triple (distinct for DELEGATECALL and
// CALLCODE), value, calldata, forwarded gas, nesting depth, the code
// being executed, and the static/create flags.
type Message struct {
	Caller      common.Address
	Target      common.Address
	CodeAddress common.Address
	Value       *big.Int
	Data        []byte
	Gas         uint64
	Depth       int
	Code        []byte
	IsStatic    bool
	IsCreate    bool
}

// GetOp returns the opcode at position n in the message's code, or STOP
// if n runs off the end (§4.6.2: draining code is a successful STOP).
func (msg *Message) GetOp(n uint64) OpCode {
	if n < uint64(len(msg.Code)) {
		return OpCode(msg.Code[n])
	}
	return STOP
}

// analyzeJumpdests scans code for valid JUMPDEST positions (§4.6.1):
// byte-by-byte, skipping PUSHn's inline data so that a 0x5B byte
// embedded in push data is never accepted as a jump target.
func analyzeJumpdests(code []byte) map[uint64]bool {
	dests := make(map[uint64]bool)
	for i := uint64(0); i < uint64(len(code)); i++ {
		op := OpCode(code[i])
		if op == JUMPDEST {
			dests[i] = true
		}
		if op.IsPush() {
			i += uint64(op - PUSH1 + 1)
		}
	}
	return dests
}
