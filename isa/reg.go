package isa

import (
	"fmt"
	"math/bits"

	"lukechampine.com/uint128"

	"github.com/lookbusy1344/aluvm/core"
)

// MaybeU128 is a constant value read from the data segment during
// decoding, which may be absent there: a tuple pointing outside the data
// segment decodes as "no data" and fails CK at execution time.
type MaybeU128 struct {
	Val    uint128.Uint128
	NoData bool
}

// U128Val wraps a present constant value.
func U128Val(v uint128.Uint128) MaybeU128 { return MaybeU128{Val: v} }

// U64Val wraps a present constant given as a 64-bit value.
func U64Val(v uint64) MaybeU128 { return MaybeU128{Val: uint128.From64(v)} }

func (m MaybeU128) String() string {
	if m.NoData {
		return ":nodata"
	}
	return m.Val.String()
}

// ErrNoData is returned when assembling a put/pif instruction whose
// constant was lost during a previous decode.
var ErrNoData = fmt.Errorf("attempt to serialize an instruction with missing data")

// RegInstr is a register-manipulation instruction: movement, constants,
// comparison and step arithmetic. The Op field selects the variant.
type RegInstr struct {
	Op  uint8
	Dst core.RegA
	Src core.RegA
	Val MaybeU128
	Imm uint8
}

// Register-manipulation constructors.

// Clr puts a register into the undefined state.
func Clr(dst core.RegA) RegInstr { return RegInstr{Op: OpClr, Dst: dst} }

// Put writes a constant into a register, truncating to its width.
func Put(dst core.RegA, val MaybeU128) RegInstr { return RegInstr{Op: OpPut, Dst: dst, Val: val} }

// Pif writes a constant only when the register is unset.
func Pif(dst core.RegA, val MaybeU128) RegInstr { return RegInstr{Op: OpPif, Dst: dst, Val: val} }

// Test records in CO whether a register is set.
func Test(src core.RegA) RegInstr { return RegInstr{Op: OpTest, Src: src} }

// Cpy copies a source register into a destination with width adjustment.
func Cpy(dst, src core.RegA) RegInstr { return RegInstr{Op: OpCpy, Dst: dst, Src: src} }

// Swp exchanges the contents of two registers.
func Swp(a, b core.RegA) RegInstr { return RegInstr{Op: OpSwp, Dst: a, Src: b} }

// Eq compares two registers; two unset cells compare equal.
func Eq(a, b core.RegA) RegInstr { return RegInstr{Op: OpEq, Dst: a, Src: b} }

// EqN compares two registers under must-be-set semantics: an unset
// operand fails CK.
func EqN(a, b core.RegA) RegInstr { return RegInstr{Op: OpEqN, Dst: a, Src: b} }

// Add increments a register by an 8-bit immediate, wrapping within its
// width.
func Add(dst core.RegA, imm uint8) RegInstr { return RegInstr{Op: OpAdd, Dst: dst, Imm: imm} }

// Sub decrements a register by an 8-bit immediate, wrapping within its
// width.
func Sub(dst core.RegA, imm uint8) RegInstr { return RegInstr{Op: OpSub, Dst: dst, Imm: imm} }

// Opcode implements Instr.
func (i RegInstr) Opcode() uint8 { return i.Op }

// SrcRegs implements Instr.
func (i RegInstr) SrcRegs() []core.RegA {
	switch i.Op {
	case OpTest:
		return []core.RegA{i.Src}
	case OpCpy:
		return []core.RegA{i.Src}
	case OpSwp, OpEq, OpEqN:
		return []core.RegA{i.Dst, i.Src}
	case OpAdd, OpSub:
		return []core.RegA{i.Dst}
	default:
		return nil
	}
}

// DstRegs implements Instr.
func (i RegInstr) DstRegs() []core.RegA {
	switch i.Op {
	case OpClr, OpPut, OpPif, OpCpy, OpAdd, OpSub:
		return []core.RegA{i.Dst}
	case OpSwp:
		return []core.RegA{i.Dst, i.Src}
	default:
		return nil
	}
}

// inlineBytes returns the size of the constant operand as encoded in the
// code segment: the value itself for narrow kinds, the data-segment tuple
// for wide ones.
func inlineBytes(kind core.A) uint16 {
	switch kind {
	case core.A8:
		return 1
	case core.A16:
		return 2
	default:
		return 5
	}
}

// OpBytes implements Instr.
func (i RegInstr) OpBytes() uint16 {
	switch i.Op {
	case OpClr, OpTest:
		return 1
	case OpPut, OpPif:
		return 1 + inlineBytes(i.Dst.Kind)
	case OpAdd, OpSub:
		return 2
	default:
		return 2
	}
}

// ExtBytes implements Instr.
func (i RegInstr) ExtBytes() uint16 {
	switch i.Op {
	case OpPut, OpPif:
		switch i.Dst.Kind {
		case core.A8, core.A16:
			return 0
		default:
			return i.Dst.Kind.Bytes()
		}
	default:
		return 0
	}
}

// Complexity implements Instr using the default cost rule.
func (i RegInstr) Complexity() uint64 { return DefaultComplexity(i) }

// ISAExt implements Instr.
func (i RegInstr) ISAExt() []string { return nil }

// ExternalRef implements Instr.
func (i RegInstr) ExternalRef() (core.LibID, bool) { return core.LibID{}, false }

// EncodeOperands implements Instr.
func (i RegInstr) EncodeOperands(w BytecodeWrite) error {
	switch i.Op {
	case OpClr:
		return w.WriteU8(i.Dst.ToByte())
	case OpTest:
		return w.WriteU8(i.Src.ToByte())
	case OpPut, OpPif:
		if err := w.WriteU8(i.Dst.ToByte()); err != nil {
			return err
		}
		if i.Val.NoData {
			return ErrNoData
		}
		switch i.Dst.Kind {
		case core.A8:
			return w.WriteU8(uint8(i.Val.Val.Lo))
		case core.A16:
			return w.WriteU16(uint16(i.Val.Val.Lo))
		default:
			buf := make([]byte, 16)
			i.Val.Val.PutBytes(buf)
			return w.WriteData(buf[:i.Dst.Kind.Bytes()])
		}
	case OpCpy, OpSwp, OpEq, OpEqN:
		if err := w.WriteU8(i.Dst.ToByte()); err != nil {
			return err
		}
		return w.WriteU8(i.Src.ToByte())
	case OpAdd, OpSub:
		if err := w.WriteU8(i.Dst.ToByte()); err != nil {
			return err
		}
		return w.WriteU8(i.Imm)
	}
	return fmt.Errorf("unknown register instruction opcode %02X", i.Op)
}

func decodeReg(opcode uint8, r BytecodeRead) (Instr, error) {
	i := RegInstr{Op: opcode}

	readReg := func() (core.RegA, error) {
		b, err := r.ReadU8()
		if err != nil {
			return core.RegA{}, err
		}
		return core.RegFromByte(b)
	}

	var err error
	switch opcode {
	case OpClr:
		i.Dst, err = readReg()
	case OpTest:
		i.Src, err = readReg()
	case OpPut, OpPif:
		if i.Dst, err = readReg(); err != nil {
			return nil, err
		}
		switch i.Dst.Kind {
		case core.A8:
			var v uint8
			v, err = r.ReadU8()
			i.Val = U64Val(uint64(v))
		case core.A16:
			var v uint16
			v, err = r.ReadU16()
			i.Val = U64Val(uint64(v))
		default:
			var data []byte
			var present bool
			data, present, err = r.ReadData()
			if err == nil {
				if !present || len(data) > 16 {
					i.Val = MaybeU128{NoData: true}
				} else {
					buf := make([]byte, 16)
					copy(buf, data)
					i.Val = U128Val(uint128.FromBytes(buf))
				}
			}
		}
	case OpCpy, OpSwp, OpEq, OpEqN:
		if i.Dst, err = readReg(); err != nil {
			return nil, err
		}
		i.Src, err = readReg()
	case OpAdd, OpSub:
		if i.Dst, err = readReg(); err != nil {
			return nil, err
		}
		i.Imm, err = r.ReadU8()
	}
	if err != nil {
		return nil, err
	}
	return i, nil
}

// Exec implements Instr.
func (i RegInstr) Exec(c *core.Core, _ core.Site, _ any) ExecStep {
	switch i.Op {
	case OpClr:
		c.SetCo(c.ClrA(i.Dst))

	case OpPut:
		if i.Val.NoData {
			return FailContinueStep()
		}
		c.SetCo(c.SetA(i.Dst, i.Val.Val))

	case OpPif:
		if i.Val.NoData {
			return FailContinueStep()
		}
		if _, ok := c.A(i.Dst); !ok {
			c.SetCo(c.SetA(i.Dst, i.Val.Val))
		} else {
			c.SetCo(false)
		}

	case OpTest:
		_, ok := c.A(i.Src)
		c.SetCo(ok)

	case OpCpy:
		if val, ok := c.A(i.Src); ok {
			c.SetCo(c.SetA(i.Dst, val))
		} else {
			c.SetCo(c.ClrA(i.Dst))
		}

	case OpSwp:
		if v1, ok := c.TakeA(i.Dst); ok {
			if prior, ok := c.SwpA(i.Src, v1); ok {
				c.SetA(i.Dst, prior)
			}
		} else if v2, ok := c.TakeA(i.Src); ok {
			c.SetA(i.Dst, v2)
		}

	case OpEq:
		a, okA := c.A(i.Dst)
		b, okB := c.A(i.Src)
		c.SetCo(okA == okB && (!okA || a.Equals(b)))

	case OpEqN:
		a, okA := c.A(i.Dst)
		b, okB := c.A(i.Src)
		if !okA || !okB {
			c.SetCo(false)
			return FailContinueStep()
		}
		c.SetCo(a.Equals(b))

	case OpAdd, OpSub:
		val, ok := c.A(i.Dst)
		if !ok {
			return FailContinueStep()
		}
		res, wrapped := stepArith(i.Dst.Kind, val, i.Imm, i.Op == OpSub)
		c.SetA(i.Dst, res)
		c.SetCo(wrapped)

	default:
		return FailHaltStep()
	}
	return NextStep()
}

// stepArith adds or subtracts an 8-bit immediate within the width of the
// register kind, reporting whether the result wrapped around.
func stepArith(kind core.A, val uint128.Uint128, imm uint8, sub bool) (uint128.Uint128, bool) {
	if kind == core.A128 {
		if sub {
			res := val.SubWrap64(uint64(imm))
			return res, res.Cmp(val) > 0
		}
		res := val.AddWrap64(uint64(imm))
		return res, res.Cmp(val) < 0
	}
	width := uint(kind.Bits())
	if sub {
		lo, borrow := bits.Sub64(val.Lo, uint64(imm), 0)
		if width < 64 {
			mask := uint64(1)<<width - 1
			wrapped := val.Lo < uint64(imm)
			return uint128.From64(lo & mask), wrapped
		}
		return uint128.From64(lo), borrow == 1
	}
	lo, carry := bits.Add64(val.Lo, uint64(imm), 0)
	if width < 64 {
		mask := uint64(1)<<width - 1
		return uint128.From64(lo & mask), lo > mask
	}
	return uint128.From64(lo), carry == 1
}

func (i RegInstr) String() string {
	switch i.Op {
	case OpClr:
		return fmt.Sprintf("clr     %s", i.Dst)
	case OpPut:
		return fmt.Sprintf("put     %s, %s", i.Dst, i.Val)
	case OpPif:
		return fmt.Sprintf("pif     %s, %s", i.Dst, i.Val)
	case OpTest:
		return fmt.Sprintf("test    %s", i.Src)
	case OpCpy:
		return fmt.Sprintf("cpy     %s, %s", i.Dst, i.Src)
	case OpSwp:
		return fmt.Sprintf("swp     %s, %s", i.Dst, i.Src)
	case OpEq:
		return fmt.Sprintf("eq      %s, %s", i.Dst, i.Src)
	case OpEqN:
		return fmt.Sprintf("eq.n    %s, %s", i.Dst, i.Src)
	case OpAdd:
		return fmt.Sprintf("add     %s, %d", i.Dst, i.Imm)
	case OpSub:
		return fmt.Sprintf("sub     %s, %d", i.Dst, i.Imm)
	}
	return fmt.Sprintf("reg?    %02X.h", i.Op)
}
