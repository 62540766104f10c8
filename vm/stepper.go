package vm

import (
	"github.com/lookbusy1344/aluvm/core"
	"github.com/lookbusy1344/aluvm/isa"
	"github.com/lookbusy1344/aluvm/library"
	"github.com/lookbusy1344/aluvm/program"
)

// Stepper drives a VM one instruction at a time over a program,
// preserving the exact semantics of the batch driver. It exists for the
// interactive front-ends (debugger, GUI).
type Stepper struct {
	vm      *VM
	prog    *program.Program
	current core.Site
	halted  bool
}

// NewStepper prepares single-step execution from the program entry
// point.
func NewStepper(machine *VM, prog *program.Program) (*Stepper, error) {
	entry, err := prog.Entrypoint()
	if err != nil {
		return nil, err
	}
	return &Stepper{vm: machine, prog: prog, current: entry}, nil
}

// VM returns the underlying machine.
func (s *Stepper) VM() *VM { return s.vm }

// Site returns the site of the next instruction to execute.
func (s *Stepper) Site() core.Site { return s.current }

// Halted reports whether the program has terminated.
func (s *Stepper) Halted() bool { return s.halted }

// Status returns the current CK state.
func (s *Stepper) Status() core.Status { return s.vm.Core.Ck() }

// Peek decodes the instruction at the current site without executing
// it.
func (s *Stepper) Peek() (isa.Instr, error) {
	lib, ok := s.prog.Lib(s.current.Lib)
	if !ok {
		return nil, &library.DecodeError{Pos: s.current.Offset, Wrapped: library.ErrCodeEOF}
	}
	m := library.ReadMarshaller(lib.Code, lib.Data, lib.Libs)
	if _, err := m.Seek(s.current.Offset); err != nil {
		return nil, err
	}
	if m.IsEOF() {
		return nil, library.ErrCodeEOF
	}
	return isa.Decode(m, s.vm.ExtDecoder)
}

// Step executes one instruction. It reports whether the program has
// halted; decode errors terminate the run and propagate.
func (s *Stepper) Step(ctx any) (bool, error) {
	if s.halted {
		return true, nil
	}

	machine := s.vm
	lib, ok := s.prog.Lib(s.current.Lib)
	if !ok {
		machine.Core.FailCk()
		s.halted = true
		return true, nil
	}

	m := library.ReadMarshaller(lib.Code, lib.Data, lib.Libs)
	if _, err := m.Seek(s.current.Offset); err != nil {
		machine.Core.ResetCk()
		s.halted = true
		return true, nil
	}
	if m.IsEOF() {
		s.halted = true
		return true, nil
	}

	pos := m.Pos()
	instr, err := isa.Decode(m, machine.ExtDecoder)
	if err != nil {
		s.halted = true
		return true, &library.DecodeError{Pos: pos, Wrapped: err}
	}

	if machine.Core.AccComplexity(instr.Complexity()) {
		s.halted = true
		return true, nil
	}

	step := instr.Exec(machine.Core, core.NewSite(s.current.Lib, pos), ctx)
	if machine.Trace != nil {
		machine.Trace(core.NewSite(s.current.Lib, pos), instr, machine.Core)
	}

	switch step.Kind {
	case isa.StepNext:
		s.current.Offset = m.Pos()

	case isa.StepStop:
		s.halted = true

	case isa.StepFailHalt:
		machine.Core.FailCk()
		s.halted = true

	case isa.StepFailContinue:
		if machine.Core.FailCk() {
			s.halted = true
		} else {
			s.current.Offset = m.Pos()
		}

	case isa.StepJump:
		if !machine.Core.IncCy() {
			machine.Core.FailCk()
			s.halted = true
			break
		}
		if int(step.Pos) > len(lib.Code) {
			machine.Core.FailCk()
			s.halted = true
			break
		}
		s.current.Offset = step.Pos

	case isa.StepCall:
		if !machine.Core.IncCy() {
			machine.Core.FailCk()
			s.halted = true
			break
		}
		s.current = step.Site
	}
	return s.halted, nil
}

// Run steps until the program halts or the step budget is exhausted.
// A zero budget means unbounded.
func (s *Stepper) Run(ctx any, budget uint64) (bool, error) {
	steps := uint64(0)
	for !s.halted {
		if budget > 0 && steps >= budget {
			return false, nil
		}
		if _, err := s.Step(ctx); err != nil {
			return true, err
		}
		steps++
	}
	return true, nil
}
