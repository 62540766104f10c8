package isa

import (
	"fmt"
	"math"

	"github.com/lookbusy1344/aluvm/core"
)

// Reserved is a decode of an opcode byte not assigned to any instruction
// group. It always fails execution and carries the maximal complexity
// weight, disabling speculative use of unassigned opcodes.
type Reserved struct {
	Op uint8
}

// Opcode implements Instr.
func (i Reserved) Opcode() uint8 { return i.Op }

// SrcRegs implements Instr.
func (i Reserved) SrcRegs() []core.RegA { return nil }

// DstRegs implements Instr.
func (i Reserved) DstRegs() []core.RegA { return nil }

// OpBytes implements Instr.
func (i Reserved) OpBytes() uint16 { return 0 }

// ExtBytes implements Instr.
func (i Reserved) ExtBytes() uint16 { return 0 }

// Complexity implements Instr: reserved opcodes cost the maximum.
func (i Reserved) Complexity() uint64 { return math.MaxUint64 }

// ISAExt implements Instr.
func (i Reserved) ISAExt() []string { return nil }

// ExternalRef implements Instr.
func (i Reserved) ExternalRef() (core.LibID, bool) { return core.LibID{}, false }

// EncodeOperands implements Instr.
func (i Reserved) EncodeOperands(BytecodeWrite) error { return nil }

// Exec implements Instr: executing a reserved opcode halts with failure.
func (i Reserved) Exec(*core.Core, core.Site, any) ExecStep { return FailHaltStep() }

func (i Reserved) String() string { return fmt.Sprintf("halt    %02X.h", i.Op) }
