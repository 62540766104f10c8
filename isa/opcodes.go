package isa

// Opcode byte assignments. Fixed per release: assembler and disassembler
// must agree on these values.
const (
	// Control flow group.
	OpNop    uint8 = 0x00
	OpChk    uint8 = 0x01
	OpFailCk uint8 = 0x02
	OpRsetCk uint8 = 0x03
	OpNotCo  uint8 = 0x04
	OpJmp    uint8 = 0x05
	OpJifCo  uint8 = 0x06
	OpJifCk  uint8 = 0x07
	OpSh     uint8 = 0x08
	OpShCo   uint8 = 0x09
	OpShCk   uint8 = 0x0A
	OpExec   uint8 = 0x0B
	OpFn     uint8 = 0x0C
	OpCall   uint8 = 0x0D
	OpRet    uint8 = 0x0E
	OpStop   uint8 = 0x0F

	// Register manipulation group.
	OpClr  uint8 = 0x10
	OpPut  uint8 = 0x11
	OpPif  uint8 = 0x12
	OpTest uint8 = 0x13
	OpCpy  uint8 = 0x14
	OpSwp  uint8 = 0x15
	OpEq   uint8 = 0x16
	OpEqN  uint8 = 0x17
	OpAdd  uint8 = 0x18
	OpSub  uint8 = 0x19

	// Finite-field arithmetic group (GFA extension).
	OpIncMod    uint8 = 0x20
	OpDecMod    uint8 = 0x21
	OpNegMod    uint8 = 0x22
	OpAddMulMod uint8 = 0x23

	// ExtOpcodeFrom is the first opcode byte offered to host extension
	// decoders.
	ExtOpcodeFrom uint8 = 0x80
)
