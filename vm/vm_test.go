package vm

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"lukechampine.com/uint128"

	"github.com/lookbusy1344/aluvm/asm"
	"github.com/lookbusy1344/aluvm/core"
	"github.com/lookbusy1344/aluvm/isa"
	"github.com/lookbusy1344/aluvm/library"
	"github.com/lookbusy1344/aluvm/program"
)

// runSource assembles one library from source and executes it on a VM
// with the given configuration.
func runSource(t *testing.T, cfg core.CoreConfig, source string) (*VM, core.Status) {
	t.Helper()
	lib, err := asm.AssembleLib(source)
	require.NoError(t, err)
	prog := program.NewWithLib(lib)
	machine := NewWith(cfg)
	status, err := machine.Run(prog, nil)
	require.NoError(t, err)
	return machine, status
}

func TestScenarioEqUnsetCells(t *testing.T) {
	machine, status := runSource(t, core.DefaultConfig(), "eq A16:1, A16:2 ; ret")
	assert.Equal(t, core.StatusOk, status)
	assert.True(t, machine.Core.Co(), "both unset compare equal")
	assert.Equal(t, uint16(0), machine.Core.Cp(), "call stack must be empty")
}

func TestScenarioEqNUnsetFails(t *testing.T) {
	_, status := runSource(t, core.DefaultConfig(), "eq.n A16:1, A16:2 ; ret")
	assert.Equal(t, core.StatusFail, status, "must-be-set semantics fail on unset operands")
}

func TestScenarioEqNEqualBytes(t *testing.T) {
	machine, status := runSource(t, core.DefaultConfig(),
		"put A16:1, 4 ; put A16:2, 4 ; eq.n A16:1, A16:2 ; ret")
	assert.Equal(t, core.StatusOk, status)
	assert.True(t, machine.Core.Co())
}

func TestScenarioWrapAroundArithmetic(t *testing.T) {
	machine, status := runSource(t, core.DefaultConfig(),
		"put A8:1, 3 ; sub A8:1, 4 ; put A8:2, 0xFF ; eq.n A8:1, A8:2 ; ret")
	assert.Equal(t, core.StatusOk, status)
	assert.True(t, machine.Core.Co(), "3 - 4 must wrap to 0xFF")
}

func TestScenarioCallStackOverflow(t *testing.T) {
	// a routine calling itself recursively; with call_stack_size = 2
	// the third push overflows and halts with CK=Fail
	cfg := core.DefaultConfig()
	cfg.CallStackSize = 2
	machine, status := runSource(t, cfg, `
		start:
		call routine ; ret
		routine:
		call routine ; ret
	`)
	assert.Equal(t, core.StatusFail, status)
	assert.True(t, machine.Core.HasFailed())
}

func TestScenarioComplexityLimit(t *testing.T) {
	lim := uint64(10_000)
	cfg := core.DefaultConfig()
	cfg.ComplexityLim = &lim
	machine, status := runSource(t, cfg,
		"nop ; nop ; nop ; nop ; nop ; nop ; nop ; nop ; nop ; nop ; ret")
	// ten nops at 1000 units each reach CA = CL exactly; the VM stops
	// preserving CK=Ok
	assert.Equal(t, core.StatusOk, status)
	assert.Equal(t, uint64(10_000), machine.Core.Ca())
}

func TestScenarioCrossLibraryCall(t *testing.T) {
	// L2 at offset 0: put CK, ok ; ret
	lib2, err := asm.AssembleLib("put CK, ok ; ret")
	require.NoError(t, err)

	// L1: call L2 @ 0 ; ret
	code1 := []isa.Instr{
		isa.Call(core.NewSite(lib2.ID(), 0)),
		isa.Ret(),
	}
	lib1, err := library.Assemble(code1)
	require.NoError(t, err)

	prog := program.New()
	_, err = prog.AddLib(lib1)
	require.NoError(t, err)
	_, err = prog.AddLib(lib2)
	require.NoError(t, err)
	prog.SetEntrypoint(core.NewSite(lib1.ID(), 0))

	machine := New()
	status, err := machine.Run(prog, nil)
	require.NoError(t, err)
	assert.Equal(t, core.StatusOk, status)
	assert.Equal(t, uint16(0), machine.Core.Cp(), "call stack must be empty after the run")
}

func TestMissingLibraryFails(t *testing.T) {
	prog := program.New()
	prog.SetEntrypoint(core.NewSite(core.LibID{0xEE}, 0))
	machine := New()
	status, err := machine.Run(prog, nil)
	require.NoError(t, err)
	assert.Equal(t, core.StatusFail, status)
}

func TestEntrypointPastSegmentHalts(t *testing.T) {
	lib, err := asm.AssembleLib("nop ; ret")
	require.NoError(t, err)
	prog := program.NewWithLib(lib)
	prog.SetEntrypoint(core.NewSite(lib.ID(), 500))

	machine := New()
	status, err := machine.Run(prog, nil)
	require.NoError(t, err)
	// entry past the segment halts with CK reset, not failed
	assert.Equal(t, core.StatusOk, status)
}

func TestJumpOutOfRangeFails(t *testing.T) {
	_, status := runSource(t, core.DefaultConfig(), "jmp 5000 ; ret")
	assert.Equal(t, core.StatusFail, status)
}

func TestJumpCounterExhaustion(t *testing.T) {
	// jmp 0 loops forever; the CY budget stops it
	cfg := core.DefaultConfig()
	machine, status := runSource(t, cfg, "jmp 0")
	assert.Equal(t, core.StatusFail, status)
	assert.Equal(t, core.CyLimit-1, machine.Core.Cy())
}

func TestChkStopsFailedProgram(t *testing.T) {
	cfg := core.DefaultConfig()
	cfg.Halt = false
	machine, status := runSource(t, cfg, "put CK, fail ; chk ; put CK, ok ; ret")
	assert.Equal(t, core.StatusFail, status)
	assert.Equal(t, uint64(1), machine.Core.Cf())
}

func TestFailContinueWithoutHalt(t *testing.T) {
	cfg := core.DefaultConfig()
	cfg.Halt = false
	machine, status := runSource(t, cfg, "put CK, fail ; put CK, ok ; ret")
	// with CH unset the program recovers and finishes ok
	assert.Equal(t, core.StatusOk, status)
	assert.Equal(t, uint64(1), machine.Core.Cf())
	assert.True(t, machine.Core.Co(), "put CK, ok after a failure must set CO")
}

func TestRelativeShiftSkipsInstruction(t *testing.T) {
	// sh +3 jumps from its own offset over the put CK, fail (1 byte
	// opcode + 1 shift byte, then one single-byte instruction)
	machine, status := runSource(t, core.DefaultConfig(), "sh +3 ; put CK, fail ; ret")
	assert.Equal(t, core.StatusOk, status)
	assert.Equal(t, uint64(0), machine.Core.Cf())
}

func TestDecodeErrorPropagates(t *testing.T) {
	lib := &library.Lib{Code: []byte{isa.OpJmp}} // truncated operand
	prog := program.NewWithLib(lib)
	machine := New()
	_, err := machine.Run(prog, nil)
	require.Error(t, err)
	var decodeErr *library.DecodeError
	assert.ErrorAs(t, err, &decodeErr)
	// decode errors never reach the core flags
	assert.Equal(t, uint64(0), machine.Core.Cf())
}

func TestReservedOpcodeHaltsWithMaxCost(t *testing.T) {
	lib := &library.Lib{Code: []byte{0x55}}
	prog := program.NewWithLib(lib)
	machine := New()
	status, err := machine.Run(prog, nil)
	require.NoError(t, err)
	// the max-complexity charge saturates CA; with no limit set the
	// reserved instruction itself halts with failure
	assert.Equal(t, core.StatusFail, status)
	assert.Equal(t, ^uint64(0), machine.Core.Ca())
}

func TestCountersAreMonotonic(t *testing.T) {
	var lastCf, lastCa uint64
	var lastCy uint32
	machine := New()
	machine.Trace = func(site core.Site, instr isa.Instr, c *core.Core) {
		if c.Cf() < lastCf || c.Ca() < lastCa || c.Cy() < lastCy {
			t.Errorf("counter regressed at %s: cf=%d ca=%d cy=%d", site, c.Cf(), c.Ca(), c.Cy())
		}
		lastCf, lastCa, lastCy = c.Cf(), c.Ca(), c.Cy()
	}

	lib, err := asm.AssembleLib(`
		put A8:1, 1
		loop:
		sub A8:1, 1
		eq.n A8:2, A8:3
		put CK, ok
		jif CO, end
		jmp loop
		end:
		ret
	`)
	require.NoError(t, err)
	prog := program.NewWithLib(lib)
	_, err = machine.Run(prog, nil)
	require.NoError(t, err)
	assert.Positive(t, lastCa)
}

func TestGfaProgram(t *testing.T) {
	cfg := core.DefaultConfig()
	cfg.FieldOrder = core.FqOther(uint128.From64(97))
	machine, status := runSource(t, cfg, `
		put A64:1, 60
		put A64:2, 50
		addmod A64:3, :1, :2
		put A64:4, 13
		eq.n A64:3, A64:4
		chk
		ret
	`)
	assert.Equal(t, core.StatusOk, status)
	assert.True(t, machine.Core.Co(), "(60+50) mod 97 = 13")
	val, ok := machine.Core.A(core.Reg(core.A64, 2))
	require.True(t, ok)
	assert.Equal(t, uint64(13), val.Lo)
}

func TestExecutionTrace(t *testing.T) {
	var sb strings.Builder
	trace := NewExecutionTrace(&sb, 0)

	machine := New()
	machine.Trace = trace.Func()

	lib, err := asm.AssembleLib("nop ; nop ; ret")
	require.NoError(t, err)
	_, err = machine.Run(program.NewWithLib(lib), nil)
	require.NoError(t, err)

	assert.Equal(t, uint64(3), trace.Steps())
	assert.Contains(t, sb.String(), "nop")
	assert.Contains(t, sb.String(), "ret")
}
