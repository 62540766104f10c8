// Package isa defines the AluVM instruction set: the per-instruction
// contract shared by all opcode groups, the concrete control-flow,
// register-manipulation and finite-field instruction types, and the
// bit-precise operand codec they marshal through.
package isa

import (
	"fmt"

	"lukechampine.com/uint128"

	"github.com/lookbusy1344/aluvm/core"
)

// ISAALU64 is the base ISA name every library implicitly depends on.
const ISAALU64 = "ALU64"

// ISAGFA is the ISA extension name declared by finite-field instructions.
const ISAGFA = "GFA"

// BytecodeRead is the reader side of the operand codec: a cursor over a
// code segment with sub-byte granularity, backed by a data segment and a
// dependency table for indirect operands.
type BytecodeRead interface {
	// Pos returns the current byte offset; intra-byte bit position is
	// not accounted.
	Pos() uint16
	// Seek moves the cursor to an absolute byte offset and returns the
	// prior position. Seeking past the end of the segment fails.
	Seek(pos uint16) (uint16, error)
	// IsEOF reports whether the cursor is at the segment end on a byte
	// boundary.
	IsEOF() bool
	// PeekU8 returns the next byte without advancing.
	PeekU8() (uint8, error)

	ReadBool() (bool, error)
	// ReadBits reads n bits (1 <= n <= 7), LSB-first within the
	// current byte.
	ReadBits(n int) (uint8, error)
	ReadU8() (uint8, error)
	ReadI8() (int8, error)
	ReadU16() (uint16, error)
	ReadI16() (int16, error)
	ReadU24() (uint32, error)
	ReadU32() (uint32, error)
	ReadU64() (uint64, error)
	ReadU128() (uint128.Uint128, error)
	// ReadLib reads a one-byte dependency-table index and resolves it
	// to a library id.
	ReadLib() (core.LibID, error)
	// ReadData reads a (24-bit offset, 16-bit length) tuple and
	// materializes the referenced data-segment bytes. The second
	// return value is false when the tuple points outside the data
	// segment ("no data").
	ReadData() ([]byte, bool, error)
}

// BytecodeWrite is the writer side of the operand codec.
type BytecodeWrite interface {
	WriteBool(v bool) error
	// WriteBits writes the low n bits of v (1 <= n <= 7), LSB-first
	// within the current byte.
	WriteBits(v uint8, n int) error
	WriteU8(v uint8) error
	WriteI8(v int8) error
	WriteU16(v uint16) error
	WriteI16(v int16) error
	WriteU24(v uint32) error
	WriteU32(v uint32) error
	WriteU64(v uint64) error
	WriteU128(v uint128.Uint128) error
	// WriteLib writes the one-byte dependency-table index of the id;
	// it fails when the id is not in the table.
	WriteLib(id core.LibID) error
	// WriteData appends the bytes to the data segment and writes the
	// (24-bit offset, 16-bit length) tuple into the code segment.
	WriteData(data []byte) error
}

// Instr is the contract every instruction fulfils. Besides executing
// against the core, an instruction declares the registers it touches, the
// inline and data-segment bytes it consumes, and its complexity weight —
// everything the surrounding system needs before execution.
type Instr interface {
	fmt.Stringer

	// Opcode returns the instruction opcode byte.
	Opcode() uint8
	// SrcRegs lists the register cells whose values the instruction
	// takes into account.
	SrcRegs() []core.RegA
	// DstRegs lists the register cells the instruction may write.
	DstRegs() []core.RegA
	// OpBytes returns the number of inline operand bytes following the
	// opcode in the code segment.
	OpBytes() uint16
	// ExtBytes returns the number of additional bytes the instruction
	// references in the data segment (or, for external calls, the
	// referenced library id).
	ExtBytes() uint16
	// Complexity returns the cost added to CA before execution.
	Complexity() uint64
	// ISAExt lists ISA extension names the instruction requires, if
	// any.
	ISAExt() []string
	// ExternalRef returns the id of an external library referenced by
	// the instruction, used for dependency collection during assembly.
	ExternalRef() (core.LibID, bool)
	// EncodeOperands marshals the operands (without the opcode byte).
	EncodeOperands(w BytecodeWrite) error
	// Exec runs the instruction against the core. The site argument is
	// the instruction's own location, used for call-stack bookkeeping;
	// ctx is the opaque context passed through to extension
	// instructions.
	Exec(c *core.Core, site core.Site, ctx any) ExecStep
}

// Per-byte complexity weights of the default cost rule.
const (
	complexityPerOpByte  = 8_000
	complexityPerRegByte = 80_000
	complexityPerExtByte = 800_000
)

// DefaultComplexity implements the default cost rule used by instructions
// that do not override their complexity: a weighted sum of inline operand
// bytes, referenced register widths and external data bytes.
func DefaultComplexity(i Instr) uint64 {
	var regBytes uint64
	for _, r := range i.SrcRegs() {
		regBytes += uint64(r.Bytes())
	}
	for _, r := range i.DstRegs() {
		regBytes += uint64(r.Bytes())
	}
	return uint64(i.OpBytes())*complexityPerOpByte +
		regBytes*complexityPerRegByte +
		uint64(i.ExtBytes())*complexityPerExtByte
}

// ExtDecoder lets an embedder claim opcode ranges beyond the core
// groups. It is invoked for opcodes in [ExtOpcodeFrom, 0xFF]; returning a
// nil instruction (with nil error) declines the opcode, which then
// decodes as Reserved.
type ExtDecoder func(opcode uint8, r BytecodeRead) (Instr, error)

// Decode reads one instruction from the cursor: the opcode byte followed
// by its operand layout. Opcodes not assigned to the core groups and not
// claimed by the extension decoder produce Reserved instructions.
func Decode(r BytecodeRead, ext ExtDecoder) (Instr, error) {
	opcode, err := r.ReadU8()
	if err != nil {
		return nil, err
	}
	switch {
	case opcode <= OpStop:
		return decodeCtrl(opcode, r)
	case opcode >= OpClr && opcode <= OpSub:
		return decodeReg(opcode, r)
	case opcode >= OpIncMod && opcode <= OpAddMulMod:
		return decodeField(opcode, r)
	case opcode >= ExtOpcodeFrom && ext != nil:
		instr, err := ext(opcode, r)
		if err != nil {
			return nil, err
		}
		if instr != nil {
			return instr, nil
		}
	}
	return Reserved{Op: opcode}, nil
}

// Encode writes one instruction: its opcode byte followed by the operand
// layout.
func Encode(i Instr, w BytecodeWrite) error {
	if err := w.WriteU8(i.Opcode()); err != nil {
		return err
	}
	return i.EncodeOperands(w)
}
