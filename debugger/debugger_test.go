package debugger

import (
	"strings"
	"testing"

	"github.com/lookbusy1344/aluvm/asm"
	"github.com/lookbusy1344/aluvm/core"
	"github.com/lookbusy1344/aluvm/program"
	"github.com/lookbusy1344/aluvm/vm"
)

func newTestDebugger(t *testing.T, source string) *Debugger {
	t.Helper()
	lib, err := asm.AssembleLib(source)
	if err != nil {
		t.Fatal(err)
	}
	dbg, err := New(vm.New(), program.NewWithLib(lib))
	if err != nil {
		t.Fatal(err)
	}
	return dbg
}

func TestStepAndSummary(t *testing.T) {
	dbg := newTestDebugger(t, "put A8:1, 7 ; ret")

	if !strings.Contains(dbg.StateSummary(), "running") {
		t.Errorf("summary %q", dbg.StateSummary())
	}

	dbg.Step()
	if val, ok := dbg.Stepper.VM().Core.A(core.Reg(core.A8, 0)); !ok || val.Lo != 7 {
		t.Errorf("register after step: %v set=%v", val, ok)
	}

	dbg.Step()
	if !dbg.Stepper.Halted() {
		t.Error("program must halt after ret")
	}
	if !strings.Contains(dbg.StateSummary(), "halted") {
		t.Errorf("summary %q", dbg.StateSummary())
	}
}

func TestBreakpoints(t *testing.T) {
	dbg := newTestDebugger(t, "nop ; nop ; nop ; ret")
	lib := dbg.Stepper.Site().Lib

	site := core.NewSite(lib, 2)
	if !dbg.ToggleBreakpoint(site) {
		t.Error("first toggle must set the breakpoint")
	}
	if len(dbg.Breakpoints()) != 1 {
		t.Errorf("breakpoints: %v", dbg.Breakpoints())
	}

	dbg.Continue()
	if dbg.Stepper.Halted() {
		t.Fatal("continue must stop at the breakpoint, not run to completion")
	}
	if dbg.Stepper.Site() != site {
		t.Errorf("stopped at %v, want %v", dbg.Stepper.Site(), site)
	}

	if dbg.ToggleBreakpoint(site) {
		t.Error("second toggle must clear the breakpoint")
	}
	dbg.Continue()
	if !dbg.Stepper.Halted() {
		t.Error("continue past the cleared breakpoint must finish the program")
	}
}

func TestRegisterDumpAndDisassembly(t *testing.T) {
	dbg := newTestDebugger(t, "put A8:1, 7 ; ret")

	if !strings.Contains(dbg.RegisterDump(), "unset") {
		t.Errorf("fresh dump %q", dbg.RegisterDump())
	}
	dbg.Step()
	if !strings.Contains(dbg.RegisterDump(), "A8:1") {
		t.Errorf("dump after step %q", dbg.RegisterDump())
	}

	disasm := dbg.Disassembly()
	if !strings.Contains(disasm, "put") || !strings.Contains(disasm, "ret") {
		t.Errorf("disassembly %q", disasm)
	}
	if !strings.Contains(disasm, "> ") {
		t.Error("disassembly must mark the next instruction")
	}
}
