// Package word implements 256-bit modular word arithmetic for the EVM
// stack machine: unsigned and signed add/sub/mul/div/mod, bitwise ops,
// and the byte/shift/sign-extend family. Every operation here is total —
// none of them return an error; the EVM's division-by-zero and
// out-of-range-shift rules are baked into the functions themselves.
package word

import "math/big"

var (
	one   = big.NewInt(1)
	tt256 = new(big.Int).Lsh(one, 256)       // 2^256
	mask  = new(big.Int).Sub(tt256, one)     // 2^256 - 1
	tt255 = new(big.Int).Lsh(one, 255)       // 2^255, the signed-negative boundary
)

// Mask reduces v modulo 2^256, mutating and returning v.
func Mask(v *big.Int) *big.Int {
	return v.And(v, mask)
}

// New returns a fresh word set to v, masked into [0, 2^256).
func New(v *big.Int) *big.Int {
	return Mask(new(big.Int).Set(v))
}

// ToSigned reinterprets an unsigned 256-bit word as a signed two's
// complement integer: w if w < 2^255, else w - 2^256.
func ToSigned(w *big.Int) *big.Int {
	if w.Cmp(tt255) < 0 {
		return new(big.Int).Set(w)
	}
	return new(big.Int).Sub(w, tt256)
}

// FromSigned converts a signed integer back to its unsigned 256-bit
// two's-complement representation.
func FromSigned(s *big.Int) *big.Int {
	if s.Sign() >= 0 {
		return Mask(new(big.Int).Set(s))
	}
	return Mask(new(big.Int).Add(s, tt256))
}

// Add returns (x + y) mod 2^256.
func Add(x, y *big.Int) *big.Int { return Mask(new(big.Int).Add(x, y)) }

// Sub returns (x - y) mod 2^256.
func Sub(x, y *big.Int) *big.Int { return Mask(new(big.Int).Sub(x, y)) }

// Mul returns (x * y) mod 2^256.
func Mul(x, y *big.Int) *big.Int { return Mask(new(big.Int).Mul(x, y)) }

// Div returns floor(x / y), or 0 if y is 0.
func Div(x, y *big.Int) *big.Int {
	if y.Sign() == 0 {
		return new(big.Int)
	}
	return new(big.Int).Div(x, y)
}

// Mod returns x mod y, or 0 if y is 0.
func Mod(x, y *big.Int) *big.Int {
	if y.Sign() == 0 {
		return new(big.Int)
	}
	return new(big.Int).Mod(x, y)
}

// minI256 is the most negative signed 256-bit value, -2^255.
var minI256 = new(big.Int).Neg(tt255)

// SDiv returns the signed division of x by y, with the div-by-zero rule
// and the MIN_I256 / -1 = MIN_I256 overflow case.
func SDiv(x, y *big.Int) *big.Int {
	sx, sy := ToSigned(x), ToSigned(y)
	if sy.Sign() == 0 {
		return new(big.Int)
	}
	if sx.Cmp(minI256) == 0 && sy.Cmp(big.NewInt(-1)) == 0 {
		return new(big.Int).Set(tt255) // 2^255, the unsigned encoding of MIN_I256
	}
	q := new(big.Int).Div(new(big.Int).Abs(sx), new(big.Int).Abs(sy))
	if sx.Sign() != sy.Sign() {
		q.Neg(q)
	}
	return FromSigned(q)
}

// SMod returns the signed remainder of x mod y, following the sign of
// the dividend, with the div-by-zero rule.
func SMod(x, y *big.Int) *big.Int {
	sx, sy := ToSigned(x), ToSigned(y)
	if sy.Sign() == 0 {
		return new(big.Int)
	}
	r := new(big.Int).Mod(new(big.Int).Abs(sx), new(big.Int).Abs(sy))
	if sx.Sign() < 0 {
		r.Neg(r)
	}
	return FromSigned(r)
}

// AddMod returns (x + y) mod n over an unbounded-precision intermediate,
// with n = 0 yielding 0.
func AddMod(x, y, n *big.Int) *big.Int {
	if n.Sign() == 0 {
		return new(big.Int)
	}
	sum := new(big.Int).Add(x, y)
	return Mask(sum.Mod(sum, n))
}

// MulMod returns (x * y) mod n over an unbounded-precision intermediate,
// with n = 0 yielding 0.
func MulMod(x, y, n *big.Int) *big.Int {
	if n.Sign() == 0 {
		return new(big.Int)
	}
	prod := new(big.Int).Mul(x, y)
	return Mask(prod.Mod(prod, n))
}

// Exp returns (base ^ exp) mod 2^256.
func Exp(base, exp *big.Int) *big.Int {
	return new(big.Int).Exp(base, exp, tt256)
}

// And, Or, Xor, Not implement the bitwise opcodes.
func And(x, y *big.Int) *big.Int { return Mask(new(big.Int).And(x, y)) }
func Or(x, y *big.Int) *big.Int  { return Mask(new(big.Int).Or(x, y)) }
func Xor(x, y *big.Int) *big.Int { return Mask(new(big.Int).Xor(x, y)) }
func Not(x *big.Int) *big.Int    { return Mask(new(big.Int).Not(x)) }

// Byte returns the i-th most-significant byte of x as a word; i >= 32
// yields 0.
func Byte(i, x *big.Int) *big.Int {
	if i.Sign() < 0 || i.Cmp(big.NewInt(32)) >= 0 {
		return new(big.Int)
	}
	idx := uint(i.Int64())
	b := x.Bytes() // big-endian, no leading zeros
	// Position idx counts from the most-significant byte of a 32-byte word.
	pos := int(idx) - (32 - len(b))
	if pos < 0 || pos >= len(b) {
		return new(big.Int)
	}
	return big.NewInt(int64(b[pos]))
}

// Shl returns x << shift, masked to 256 bits; shift >= 256 yields 0.
func Shl(shift, x *big.Int) *big.Int {
	if shift.Cmp(big.NewInt(256)) >= 0 {
		return new(big.Int)
	}
	return Mask(new(big.Int).Lsh(x, uint(shift.Uint64())))
}

// Shr returns x >> shift (logical), masked to 256 bits; shift >= 256
// yields 0.
func Shr(shift, x *big.Int) *big.Int {
	if shift.Cmp(big.NewInt(256)) >= 0 {
		return new(big.Int)
	}
	return Mask(new(big.Int).Rsh(x, uint(shift.Uint64())))
}

// allOnes is the word with every bit set (2^256 - 1).
var allOnes = new(big.Int).Set(mask)

// Sar returns the arithmetic (sign-extending) right shift of x by shift.
// shift >= 256 yields all-ones if x is negative, else 0.
func Sar(shift, x *big.Int) *big.Int {
	sx := ToSigned(x)
	if shift.Cmp(big.NewInt(256)) >= 0 {
		if sx.Sign() < 0 {
			return new(big.Int).Set(allOnes)
		}
		return new(big.Int)
	}
	return FromSigned(new(big.Int).Rsh(sx, uint(shift.Uint64())))
}

// SignExtend sign-extends the (b+1)-byte-wide value x as if it were a
// signed integer of that width; b >= 31 returns x unchanged.
func SignExtend(b, x *big.Int) *big.Int {
	if b.Cmp(big.NewInt(31)) >= 0 {
		return Mask(new(big.Int).Set(x))
	}
	byteNum := uint(b.Int64())
	bit := byteNum*8 + 7
	signBit := new(big.Int).Lsh(one, bit)
	value := new(big.Int).And(x, new(big.Int).Sub(new(big.Int).Lsh(one, bit+1), one))
	if new(big.Int).And(value, signBit).Sign() != 0 {
		// Negative: set all bits above the sign bit.
		highMask := new(big.Int).Lsh(mask, bit+1)
		highMask.And(highMask, mask)
		return Mask(new(big.Int).Or(value, highMask))
	}
	return Mask(value)
}

// Lt, Gt report unsigned comparisons as 0/1 words.
func Lt(x, y *big.Int) *big.Int { return boolWord(x.Cmp(y) < 0) }
func Gt(x, y *big.Int) *big.Int { return boolWord(x.Cmp(y) > 0) }

// Slt, Sgt report signed comparisons as 0/1 words.
func Slt(x, y *big.Int) *big.Int { return boolWord(ToSigned(x).Cmp(ToSigned(y)) < 0) }
func Sgt(x, y *big.Int) *big.Int { return boolWord(ToSigned(x).Cmp(ToSigned(y)) > 0) }

// Eq reports equality as a 0/1 word.
func Eq(x, y *big.Int) *big.Int { return boolWord(x.Cmp(y) == 0) }

// IsZero reports whether x is zero as a 0/1 word.
func IsZero(x *big.Int) *big.Int { return boolWord(x.Sign() == 0) }

func boolWord(b bool) *big.Int {
	if b {
		return big.NewInt(1)
	}
	return new(big.Int)
}

// ByteLen returns the number of bytes needed to represent x unsigned,
// with ByteLen(0) == 0. Used by the EXP gas formula.
func ByteLen(x *big.Int) uint64 {
	return uint64((x.BitLen() + 7) / 8)
}
