// Package vm implements the AluVM execution driver: a single-threaded
// fetch–decode–execute loop over a program's libraries, accounting for
// jump and complexity budgets and resolving cross-library calls.
package vm

import (
	"github.com/lookbusy1344/aluvm/core"
	"github.com/lookbusy1344/aluvm/isa"
	"github.com/lookbusy1344/aluvm/library"
	"github.com/lookbusy1344/aluvm/program"
)

// VM is a single-core virtual machine instance. It owns its register
// file; the program it executes is read-only shared data.
type VM struct {
	// Core is the register file mutated by execution.
	Core *core.Core

	// ExtDecoder optionally claims opcode ranges beyond the core
	// instruction groups.
	ExtDecoder isa.ExtDecoder

	// Trace, when set, observes every executed instruction.
	Trace TraceFunc
}

// New creates a virtual machine with the default core configuration.
func New() *VM { return NewWith(core.DefaultConfig()) }

// NewWith creates a virtual machine from a core configuration.
func NewWith(config core.CoreConfig) *VM {
	return &VM{Core: core.NewWith(config)}
}

// Run executes the program from its declared entry point and returns the
// final CK state as the pass/fail outcome. Decode errors propagate as Go
// errors and never reach the core flags; runtime failures are captured
// in CK/CF and observable after the run.
func (vm *VM) Run(p *program.Program, ctx any) (core.Status, error) {
	entry, err := p.Entrypoint()
	if err != nil {
		return core.StatusFail, err
	}
	return vm.Exec(p, entry, ctx)
}

// Exec executes the program from an explicit entry site.
func (vm *VM) Exec(p *program.Program, entry core.Site, ctx any) (core.Status, error) {
	current := entry
	for {
		lib, ok := p.Lib(current.Lib)
		if !ok {
			vm.Core.FailCk()
			return vm.Core.Ck(), nil
		}

		next, halted, err := vm.execLib(lib, current, ctx)
		if err != nil {
			return vm.Core.Ck(), err
		}
		if halted {
			return vm.Core.Ck(), nil
		}
		current = next
	}
}

// execLib runs bytecode within one library until the program halts or
// control transfers to another site. The returned site is the next
// location to execute when halted is false.
func (vm *VM) execLib(lib *library.Lib, site core.Site, ctx any) (core.Site, bool, error) {
	m := library.ReadMarshaller(lib.Code, lib.Data, lib.Libs)
	if _, err := m.Seek(site.Offset); err != nil {
		// An entry offset outside the code segment halts without
		// failing: the check register is reset instead.
		vm.Core.ResetCk()
		return core.Site{}, true, nil
	}

	for !m.IsEOF() {
		pos := m.Pos()
		instr, err := isa.Decode(m, vm.ExtDecoder)
		if err != nil {
			return core.Site{}, true, &library.DecodeError{Pos: pos, Wrapped: err}
		}

		// The complexity budget is charged before execution.
		if vm.Core.AccComplexity(instr.Complexity()) {
			return core.Site{}, true, nil
		}

		step := instr.Exec(vm.Core, core.NewSite(site.Lib, pos), ctx)

		if vm.Trace != nil {
			vm.Trace(core.NewSite(site.Lib, pos), instr, vm.Core)
		}

		switch step.Kind {
		case isa.StepNext:
			continue

		case isa.StepStop:
			return core.Site{}, true, nil

		case isa.StepFailHalt:
			vm.Core.FailCk()
			return core.Site{}, true, nil

		case isa.StepFailContinue:
			if vm.Core.FailCk() {
				return core.Site{}, true, nil
			}
			continue

		case isa.StepJump:
			if !vm.Core.IncCy() {
				vm.Core.FailCk()
				return core.Site{}, true, nil
			}
			if _, err := m.Seek(step.Pos); err != nil {
				vm.Core.FailCk()
				return core.Site{}, true, nil
			}
			continue

		case isa.StepCall:
			if !vm.Core.IncCy() {
				vm.Core.FailCk()
				return core.Site{}, true, nil
			}
			return step.Site, false, nil
		}
	}

	// Falling off the end of the code segment halts the program with
	// whatever CK state it has accumulated.
	return core.Site{}, true, nil
}

// TraceFunc observes one executed instruction: its site, the decoded
// instruction and the core state after its Exec, before the driver
// handles the returned step.
type TraceFunc func(site core.Site, instr isa.Instr, c *core.Core)
