package isa

import "github.com/lookbusy1344/aluvm/core"

// StepKind enumerates the control-flow transitions an instruction may
// request from the execution driver.
type StepKind uint8

const (
	// StepNext advances to the instruction after the current one.
	StepNext StepKind = iota
	// StepJump moves the code cursor to an absolute offset in the
	// current library.
	StepJump
	// StepCall transfers execution to a site, possibly in another
	// library.
	StepCall
	// StepStop terminates the VM preserving the current CK state.
	StepStop
	// StepFailHalt fails CK unconditionally and stops.
	StepFailHalt
	// StepFailContinue fails CK; the driver stops only when the CH
	// latch is set.
	StepFailContinue
)

// ExecStep is the transition returned by instruction execution.
type ExecStep struct {
	Kind StepKind
	Pos  uint16
	Site core.Site
}

// NextStep advances to the following instruction.
func NextStep() ExecStep { return ExecStep{Kind: StepNext} }

// JumpStep jumps to an absolute offset within the current library.
func JumpStep(pos uint16) ExecStep { return ExecStep{Kind: StepJump, Pos: pos} }

// CallStep transfers execution to the given site.
func CallStep(site core.Site) ExecStep { return ExecStep{Kind: StepCall, Site: site} }

// StopStep terminates execution, preserving CK.
func StopStep() ExecStep { return ExecStep{Kind: StepStop} }

// FailHaltStep fails CK and terminates.
func FailHaltStep() ExecStep { return ExecStep{Kind: StepFailHalt} }

// FailContinueStep fails CK and lets the CH latch decide whether to stop.
func FailContinueStep() ExecStep { return ExecStep{Kind: StepFailContinue} }
