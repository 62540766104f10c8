package isa

import (
	"fmt"

	"github.com/lookbusy1344/aluvm/core"
)

// CtrlComplexity is the flat complexity weight of every control-flow
// instruction.
const CtrlComplexity uint64 = 1_000

// CtrlInstr is a control-flow instruction. The Op field selects the
// variant; Pos, Shift and Site carry the operand for the variants that
// take one.
type CtrlInstr struct {
	Op    uint8
	Pos   uint16
	Shift int8
	Site  core.Site
}

// Control-flow constructors.

// Nop does nothing.
func Nop() CtrlInstr { return CtrlInstr{Op: OpNop} }

// Chk stops the program if CK is in a failed state.
func Chk() CtrlInstr { return CtrlInstr{Op: OpChk} }

// FailCk sets CK to the failed state.
func FailCk() CtrlInstr { return CtrlInstr{Op: OpFailCk} }

// RsetCk resets CK, recording the prior failure state in CO.
func RsetCk() CtrlInstr { return CtrlInstr{Op: OpRsetCk} }

// NotCo inverts the CO flag.
func NotCo() CtrlInstr { return CtrlInstr{Op: OpNotCo} }

// Jmp jumps unconditionally to an absolute offset.
func Jmp(pos uint16) CtrlInstr { return CtrlInstr{Op: OpJmp, Pos: pos} }

// JifCo jumps when CO is set.
func JifCo(pos uint16) CtrlInstr { return CtrlInstr{Op: OpJifCo, Pos: pos} }

// JifCk jumps when CK is in a failed state.
func JifCk(pos uint16) CtrlInstr { return CtrlInstr{Op: OpJifCk, Pos: pos} }

// Sh jumps relatively by a signed 8-bit shift.
func Sh(shift int8) CtrlInstr { return CtrlInstr{Op: OpSh, Shift: shift} }

// ShCo jumps relatively when CO is set.
func ShCo(shift int8) CtrlInstr { return CtrlInstr{Op: OpShCo, Shift: shift} }

// ShCk jumps relatively when CK is in a failed state.
func ShCk(shift int8) CtrlInstr { return CtrlInstr{Op: OpShCk, Shift: shift} }

// ExecLib performs a non-returning jump into another library.
func ExecLib(site core.Site) CtrlInstr { return CtrlInstr{Op: OpExec, Site: site} }

// Fn calls a subroutine within the current library.
func Fn(pos uint16) CtrlInstr { return CtrlInstr{Op: OpFn, Pos: pos} }

// Call calls a subroutine in another library.
func Call(site core.Site) CtrlInstr { return CtrlInstr{Op: OpCall, Site: site} }

// Ret returns from a subroutine, or stops when the call stack is empty.
func Ret() CtrlInstr { return CtrlInstr{Op: OpRet} }

// Stop terminates the program preserving CK.
func Stop() CtrlInstr { return CtrlInstr{Op: OpStop} }

// Opcode implements Instr.
func (i CtrlInstr) Opcode() uint8 { return i.Op }

// SrcRegs implements Instr; control instructions touch no registers.
func (i CtrlInstr) SrcRegs() []core.RegA { return nil }

// DstRegs implements Instr.
func (i CtrlInstr) DstRegs() []core.RegA { return nil }

// OpBytes implements Instr.
func (i CtrlInstr) OpBytes() uint16 {
	switch i.Op {
	case OpJmp, OpJifCo, OpJifCk, OpFn:
		return 2
	case OpSh, OpShCo, OpShCk:
		return 1
	case OpExec, OpCall:
		return 3
	default:
		return 0
	}
}

// ExtBytes implements Instr. External jumps and calls account for the
// 32-byte library id they reference through the dependency table.
func (i CtrlInstr) ExtBytes() uint16 {
	switch i.Op {
	case OpExec, OpCall:
		return 32
	default:
		return 0
	}
}

// Complexity implements Instr: control instructions cost a flat weight.
func (i CtrlInstr) Complexity() uint64 { return CtrlComplexity }

// ISAExt implements Instr.
func (i CtrlInstr) ISAExt() []string { return nil }

// ExternalRef implements Instr.
func (i CtrlInstr) ExternalRef() (core.LibID, bool) {
	if i.Op == OpExec || i.Op == OpCall {
		return i.Site.Lib, true
	}
	return core.LibID{}, false
}

// EncodeOperands implements Instr.
func (i CtrlInstr) EncodeOperands(w BytecodeWrite) error {
	switch i.Op {
	case OpJmp, OpJifCo, OpJifCk, OpFn:
		return w.WriteU16(i.Pos)
	case OpSh, OpShCo, OpShCk:
		return w.WriteI8(i.Shift)
	case OpExec, OpCall:
		if err := w.WriteLib(i.Site.Lib); err != nil {
			return err
		}
		return w.WriteU16(i.Site.Offset)
	default:
		return nil
	}
}

func decodeCtrl(opcode uint8, r BytecodeRead) (Instr, error) {
	i := CtrlInstr{Op: opcode}
	var err error
	switch opcode {
	case OpJmp, OpJifCo, OpJifCk, OpFn:
		i.Pos, err = r.ReadU16()
	case OpSh, OpShCo, OpShCk:
		i.Shift, err = r.ReadI8()
	case OpExec, OpCall:
		var lib core.LibID
		if lib, err = r.ReadLib(); err == nil {
			var pos uint16
			pos, err = r.ReadU16()
			i.Site = core.NewSite(lib, pos)
		}
	}
	if err != nil {
		return nil, err
	}
	return i, nil
}

// returnSite computes the address of the instruction following the
// current one: the site a subroutine call stores for ret.
func (i CtrlInstr) returnSite(current core.Site) core.Site {
	return core.NewSite(current.Lib, current.Offset+1+i.OpBytes())
}

// Exec implements Instr.
func (i CtrlInstr) Exec(c *core.Core, current core.Site, _ any) ExecStep {
	shiftJump := func(shift int8) ExecStep {
		pos := int32(current.Offset) + int32(shift)
		if pos < 0 || pos > 0xFFFF {
			return FailHaltStep()
		}
		return JumpStep(uint16(pos))
	}

	switch i.Op {
	case OpNop:
		return NextStep()
	case OpChk:
		if c.Ck() == core.StatusFail {
			return StopStep()
		}
		return NextStep()
	case OpFailCk:
		return FailContinueStep()
	case OpRsetCk:
		c.SetCo(c.Ck() == core.StatusFail)
		c.ResetCk()
		return NextStep()
	case OpNotCo:
		c.SetCo(!c.Co())
		return NextStep()
	case OpJmp:
		return JumpStep(i.Pos)
	case OpJifCo:
		if c.Co() {
			return JumpStep(i.Pos)
		}
		return NextStep()
	case OpJifCk:
		if c.Ck() == core.StatusFail {
			return JumpStep(i.Pos)
		}
		return NextStep()
	case OpSh:
		return shiftJump(i.Shift)
	case OpShCo:
		if c.Co() {
			return shiftJump(i.Shift)
		}
		return NextStep()
	case OpShCk:
		if c.Ck() == core.StatusFail {
			return shiftJump(i.Shift)
		}
		return NextStep()
	case OpExec:
		return CallStep(i.Site)
	case OpFn:
		if _, ok := c.PushCs(i.returnSite(current)); !ok {
			return FailHaltStep()
		}
		return JumpStep(i.Pos)
	case OpCall:
		if _, ok := c.PushCs(i.returnSite(current)); !ok {
			return FailHaltStep()
		}
		return CallStep(i.Site)
	case OpRet:
		if site, ok := c.PopCs(); ok {
			return CallStep(site)
		}
		return StopStep()
	case OpStop:
		return StopStep()
	}
	return FailHaltStep()
}

func (i CtrlInstr) String() string {
	switch i.Op {
	case OpNop:
		return "nop"
	case OpChk:
		return "chk"
	case OpFailCk:
		return "put     CK, fail"
	case OpRsetCk:
		return "put     CK, ok"
	case OpNotCo:
		return "not     CO"
	case OpJmp:
		return fmt.Sprintf("jmp     %04X.h", i.Pos)
	case OpJifCo:
		return fmt.Sprintf("jif     CO, %04X.h", i.Pos)
	case OpJifCk:
		return fmt.Sprintf("jif     CK, %04X.h", i.Pos)
	case OpSh:
		return fmt.Sprintf("sh      %+d", i.Shift)
	case OpShCo:
		return fmt.Sprintf("sh.co   %+d", i.Shift)
	case OpShCk:
		return fmt.Sprintf("sh.ck   %+d", i.Shift)
	case OpExec:
		return fmt.Sprintf("jmp     %s @ %04X.h", i.Site.Lib, i.Site.Offset)
	case OpFn:
		return fmt.Sprintf("fn      %04X.h", i.Pos)
	case OpCall:
		return fmt.Sprintf("call    %s @ %04X.h", i.Site.Lib, i.Site.Offset)
	case OpRet:
		return "ret"
	case OpStop:
		return "stop"
	}
	return fmt.Sprintf("ctrl?   %02X.h", i.Op)
}
