package isa

import (
	"fmt"

	"github.com/holiman/uint256"
	"lukechampine.com/uint128"

	"github.com/lookbusy1344/aluvm/core"
)

// FieldOp selects a finite-field arithmetic variant. AddMod and MulMod
// share one opcode byte and are told apart by a one-bit selector in the
// operand stream.
type FieldOp uint8

const (
	FieldIncMod FieldOp = iota
	FieldDecMod
	FieldNegMod
	FieldAddMod
	FieldMulMod
)

// FieldInstr is a finite-field (modulo) arithmetic instruction. All
// operands are checked against the field order configured in the core;
// an out-of-domain or unset operand fails CK.
//
// IncMod, DecMod and NegMod address full 5-bit register references;
// AddMod and MulMod are bit-packed and address three 4-bit indexes of a
// single register kind.
type FieldInstr struct {
	Op  FieldOp
	Reg core.RegA // incmod/decmod destination; negmod destination
	Src core.IdxA // negmod source index (same kind as Reg)
	Imm uint8     // incmod/decmod immediate

	Kind            core.A // addmod/mulmod register kind
	Dst, Src1, Src2 core.IdxA
}

// IncMod increments a register by an immediate modulo the field order.
func IncMod(reg core.RegA, imm uint8) FieldInstr {
	return FieldInstr{Op: FieldIncMod, Reg: reg, Imm: imm}
}

// DecMod decrements a register by an immediate modulo the field order.
func DecMod(reg core.RegA, imm uint8) FieldInstr {
	return FieldInstr{Op: FieldDecMod, Reg: reg, Imm: imm}
}

// NegMod writes the additive inverse of a same-kind source register into
// the destination.
func NegMod(dst core.RegA, src core.IdxA) FieldInstr {
	return FieldInstr{Op: FieldNegMod, Reg: dst, Src: src}
}

// AddMod computes dst <- (src1 + src2) mod q over registers of one kind.
func AddMod(kind core.A, dst, src1, src2 core.IdxA) FieldInstr {
	return FieldInstr{Op: FieldAddMod, Kind: kind, Dst: dst, Src1: src1, Src2: src2}
}

// MulMod computes dst <- (src1 * src2) mod q over registers of one kind.
func MulMod(kind core.A, dst, src1, src2 core.IdxA) FieldInstr {
	return FieldInstr{Op: FieldMulMod, Kind: kind, Dst: dst, Src1: src1, Src2: src2}
}

// Opcode implements Instr.
func (i FieldInstr) Opcode() uint8 {
	switch i.Op {
	case FieldIncMod:
		return OpIncMod
	case FieldDecMod:
		return OpDecMod
	case FieldNegMod:
		return OpNegMod
	default:
		return OpAddMulMod
	}
}

// SrcRegs implements Instr.
func (i FieldInstr) SrcRegs() []core.RegA {
	switch i.Op {
	case FieldIncMod, FieldDecMod:
		return []core.RegA{i.Reg}
	case FieldNegMod:
		return []core.RegA{core.Reg(i.Reg.Kind, i.Src)}
	default:
		return []core.RegA{core.Reg(i.Kind, i.Src1), core.Reg(i.Kind, i.Src2)}
	}
}

// DstRegs implements Instr.
func (i FieldInstr) DstRegs() []core.RegA {
	switch i.Op {
	case FieldIncMod, FieldDecMod, FieldNegMod:
		return []core.RegA{i.Reg}
	default:
		return []core.RegA{core.Reg(i.Kind, i.Dst)}
	}
}

// OpBytes implements Instr. Every field instruction carries two operand
// bytes; add/mul pack their operands at bit granularity.
func (i FieldInstr) OpBytes() uint16 { return 2 }

// ExtBytes implements Instr.
func (i FieldInstr) ExtBytes() uint16 { return 0 }

// Complexity implements Instr using the default cost rule.
func (i FieldInstr) Complexity() uint64 { return DefaultComplexity(i) }

// ISAExt implements Instr: field arithmetic requires the GFA extension.
func (i FieldInstr) ISAExt() []string { return []string{ISAGFA} }

// ExternalRef implements Instr.
func (i FieldInstr) ExternalRef() (core.LibID, bool) { return core.LibID{}, false }

// EncodeOperands implements Instr.
func (i FieldInstr) EncodeOperands(w BytecodeWrite) error {
	switch i.Op {
	case FieldIncMod, FieldDecMod:
		if err := w.WriteU8(i.Reg.ToByte()); err != nil {
			return err
		}
		return w.WriteU8(i.Imm)
	case FieldNegMod:
		if err := w.WriteU8(i.Reg.ToByte()); err != nil {
			return err
		}
		return w.WriteU8(uint8(i.Src))
	default:
		if err := w.WriteBool(i.Op == FieldMulMod); err != nil {
			return err
		}
		if err := w.WriteBits(uint8(i.Kind), 3); err != nil {
			return err
		}
		if err := w.WriteBits(uint8(i.Dst), 4); err != nil {
			return err
		}
		if err := w.WriteBits(uint8(i.Src1), 4); err != nil {
			return err
		}
		return w.WriteBits(uint8(i.Src2), 4)
	}
}

func decodeField(opcode uint8, r BytecodeRead) (Instr, error) {
	switch opcode {
	case OpIncMod, OpDecMod:
		b, err := r.ReadU8()
		if err != nil {
			return nil, err
		}
		reg, err := core.RegFromByte(b)
		if err != nil {
			return nil, err
		}
		imm, err := r.ReadU8()
		if err != nil {
			return nil, err
		}
		op := FieldIncMod
		if opcode == OpDecMod {
			op = FieldDecMod
		}
		return FieldInstr{Op: op, Reg: reg, Imm: imm}, nil

	case OpNegMod:
		b, err := r.ReadU8()
		if err != nil {
			return nil, err
		}
		reg, err := core.RegFromByte(b)
		if err != nil {
			return nil, err
		}
		src, err := r.ReadU8()
		if err != nil {
			return nil, err
		}
		if !core.IdxA(src).Valid() {
			return nil, fmt.Errorf("invalid register index %d", src)
		}
		return FieldInstr{Op: FieldNegMod, Reg: reg, Src: core.IdxA(src)}, nil

	default:
		mul, err := r.ReadBool()
		if err != nil {
			return nil, err
		}
		kindBits, err := r.ReadBits(3)
		if err != nil {
			return nil, err
		}
		kind := core.A(kindBits)
		if !kind.Valid() {
			return nil, fmt.Errorf("invalid register kind tag %d", kindBits)
		}
		dst, err := r.ReadBits(4)
		if err != nil {
			return nil, err
		}
		src1, err := r.ReadBits(4)
		if err != nil {
			return nil, err
		}
		src2, err := r.ReadBits(4)
		if err != nil {
			return nil, err
		}
		op := FieldAddMod
		if mul {
			op = FieldMulMod
		}
		return FieldInstr{
			Op: op, Kind: kind,
			Dst: core.IdxA(dst), Src1: core.IdxA(src1), Src2: core.IdxA(src2),
		}, nil
	}
}

// Exec implements Instr.
func (i FieldInstr) Exec(c *core.Core, _ core.Site, _ any) ExecStep {
	switch i.Op {
	case FieldIncMod:
		val, ok := c.A(i.Reg)
		if !ok {
			return FailContinueStep()
		}
		res, ok := c.AddMod(val, uint128.From64(uint64(i.Imm)))
		if !ok {
			return FailContinueStep()
		}
		c.SetA(i.Reg, res)

	case FieldDecMod:
		val, ok := c.A(i.Reg)
		if !ok {
			return FailContinueStep()
		}
		res, ok := c.AddMod(val, negImmMod(c.Fq().Order(), i.Imm))
		if !ok {
			return FailContinueStep()
		}
		c.SetA(i.Reg, res)

	case FieldNegMod:
		val, ok := c.A(core.Reg(i.Reg.Kind, i.Src))
		if !ok {
			return FailContinueStep()
		}
		res, ok := c.NegMod(val)
		if !ok {
			return FailContinueStep()
		}
		c.SetA(i.Reg, res)

	case FieldAddMod, FieldMulMod:
		src1, ok := c.A(core.Reg(i.Kind, i.Src1))
		if !ok {
			return FailContinueStep()
		}
		src2, ok := c.A(core.Reg(i.Kind, i.Src2))
		if !ok {
			return FailContinueStep()
		}
		var res uint128.Uint128
		if i.Op == FieldAddMod {
			res, ok = c.AddMod(src1, src2)
		} else {
			res, ok = c.MulMod(src1, src2)
		}
		if !ok {
			return FailContinueStep()
		}
		c.SetA(core.Reg(i.Kind, i.Dst), res)
	}
	return NextStep()
}

// negImmMod computes (q - imm mod q) mod q, the additive inverse of an
// 8-bit immediate over a field of arbitrary order.
func negImmMod(order uint128.Uint128, imm uint8) uint128.Uint128 {
	o := &uint256.Int{order.Lo, order.Hi, 0, 0}
	rem := new(uint256.Int).Mod(uint256.NewInt(uint64(imm)), o)
	if rem.IsZero() {
		return uint128.Zero
	}
	neg := new(uint256.Int).Sub(o, rem)
	return uint128.New(neg[0], neg[1])
}

func (i FieldInstr) String() string {
	switch i.Op {
	case FieldIncMod:
		return fmt.Sprintf("incmod  %s, %d", i.Reg, i.Imm)
	case FieldDecMod:
		return fmt.Sprintf("decmod  %s, %d", i.Reg, i.Imm)
	case FieldNegMod:
		return fmt.Sprintf("negmod  %s, %s", i.Reg, i.Src)
	case FieldAddMod:
		return fmt.Sprintf("addmod  %s%s, %s, %s", i.Kind, i.Dst, i.Src1, i.Src2)
	case FieldMulMod:
		return fmt.Sprintf("mulmod  %s%s, %s, %s", i.Kind, i.Dst, i.Src1, i.Src2)
	}
	return fmt.Sprintf("gfa?    %d", i.Op)
}
