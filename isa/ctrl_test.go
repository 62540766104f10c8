package isa

import (
	"testing"

	"github.com/lookbusy1344/aluvm/core"
)

func TestCtrlBasics(t *testing.T) {
	c := core.New()
	site := core.NewSite(core.LibID{1}, 0)

	if step := Nop().Exec(c, site, nil); step.Kind != StepNext {
		t.Errorf("nop: %v", step.Kind)
	}
	if step := Stop().Exec(c, site, nil); step.Kind != StepStop {
		t.Errorf("stop: %v", step.Kind)
	}
	if step := FailCk().Exec(c, site, nil); step.Kind != StepFailContinue {
		t.Errorf("put CK, fail: %v", step.Kind)
	}
}

func TestChk(t *testing.T) {
	c := core.New()
	site := core.NewSite(core.LibID{1}, 0)

	if step := Chk().Exec(c, site, nil); step.Kind != StepNext {
		t.Errorf("chk with CK=Ok: %v", step.Kind)
	}
	c.FailCk()
	if step := Chk().Exec(c, site, nil); step.Kind != StepStop {
		t.Errorf("chk with CK=Fail: %v", step.Kind)
	}
}

func TestRsetCk(t *testing.T) {
	c := core.New()
	site := core.NewSite(core.LibID{1}, 0)

	// after a failure, put CK, ok records the failure in CO
	c.FailCk()
	RsetCk().Exec(c, site, nil)
	if c.Ck() != core.StatusOk || !c.Co() {
		t.Errorf("put CK, ok after failure: ck=%s co=%v", c.Ck(), c.Co())
	}

	// after success it clears CO
	RsetCk().Exec(c, site, nil)
	if c.Co() {
		t.Error("put CK, ok without failure must clear CO")
	}
}

func TestNotCo(t *testing.T) {
	c := core.New()
	site := core.NewSite(core.LibID{1}, 0)
	NotCo().Exec(c, site, nil)
	if !c.Co() {
		t.Error("not CO must toggle the flag")
	}
	NotCo().Exec(c, site, nil)
	if c.Co() {
		t.Error("not CO must toggle the flag back")
	}
}

func TestJumps(t *testing.T) {
	c := core.New()
	site := core.NewSite(core.LibID{1}, 0)

	if step := Jmp(0x1234).Exec(c, site, nil); step.Kind != StepJump || step.Pos != 0x1234 {
		t.Errorf("jmp: %v @ %04X", step.Kind, step.Pos)
	}

	if step := JifCo(7).Exec(c, site, nil); step.Kind != StepNext {
		t.Error("jif CO must not jump with CO clear")
	}
	c.SetCo(true)
	if step := JifCo(7).Exec(c, site, nil); step.Kind != StepJump || step.Pos != 7 {
		t.Error("jif CO must jump with CO set")
	}

	if step := JifCk(9).Exec(c, site, nil); step.Kind != StepNext {
		t.Error("jif CK must not jump with CK=Ok")
	}
	c.FailCk()
	if step := JifCk(9).Exec(c, site, nil); step.Kind != StepJump || step.Pos != 9 {
		t.Error("jif CK must jump with CK=Fail")
	}
}

func TestRelativeShift(t *testing.T) {
	c := core.New()
	site := core.NewSite(core.LibID{1}, 100)

	if step := Sh(5).Exec(c, site, nil); step.Kind != StepJump || step.Pos != 105 {
		t.Errorf("sh +5 from 100: %v @ %d", step.Kind, step.Pos)
	}
	if step := Sh(-100).Exec(c, site, nil); step.Kind != StepJump || step.Pos != 0 {
		t.Errorf("sh -100 from 100: %v @ %d", step.Kind, step.Pos)
	}

	// offset underflow is a hard failure, not a wrap
	if step := Sh(-101).Exec(c, site, nil); step.Kind != StepFailHalt {
		t.Errorf("sh past the segment start: %v", step.Kind)
	}
	high := core.NewSite(core.LibID{1}, 0xFFFF)
	if step := Sh(1).Exec(c, high, nil); step.Kind != StepFailHalt {
		t.Errorf("sh past the segment end: %v", step.Kind)
	}
}

func TestCallAndRet(t *testing.T) {
	c := core.New()
	target := core.NewSite(core.LibID{2}, 40)
	site := core.NewSite(core.LibID{1}, 10)

	call := Call(target)
	if step := call.Exec(c, site, nil); step.Kind != StepCall || step.Site != target {
		t.Errorf("call: %v %v", step.Kind, step.Site)
	}
	if c.Cp() != 1 {
		t.Fatalf("call stack depth %d", c.Cp())
	}

	// ret resumes at the instruction following the call
	step := Ret().Exec(c, site, nil)
	if step.Kind != StepCall {
		t.Fatalf("ret with a return site: %v", step.Kind)
	}
	wantReturn := core.NewSite(core.LibID{1}, 10+1+call.OpBytes())
	if step.Site != wantReturn {
		t.Errorf("return site %v, want %v", step.Site, wantReturn)
	}

	// ret on an empty stack stops the program
	if step := Ret().Exec(c, site, nil); step.Kind != StepStop {
		t.Errorf("ret on empty stack: %v", step.Kind)
	}
}

func TestExecLibDoesNotPush(t *testing.T) {
	c := core.New()
	target := core.NewSite(core.LibID{2}, 0)
	site := core.NewSite(core.LibID{1}, 10)

	if step := ExecLib(target).Exec(c, site, nil); step.Kind != StepCall || step.Site != target {
		t.Error("external jmp must transfer control")
	}
	if c.Cp() != 0 {
		t.Error("external jmp must not grow the call stack")
	}
}

func TestCallStackOverflowFailsHard(t *testing.T) {
	cfg := core.DefaultConfig()
	cfg.CallStackSize = 1
	c := core.NewWith(cfg)
	site := core.NewSite(core.LibID{1}, 0)

	if step := Fn(5).Exec(c, site, nil); step.Kind != StepJump {
		t.Fatalf("first fn: %v", step.Kind)
	}
	if step := Fn(5).Exec(c, site, nil); step.Kind != StepFailHalt {
		t.Errorf("fn beyond stack capacity: %v", step.Kind)
	}
}

func TestCtrlComplexityIsFlat(t *testing.T) {
	for _, instr := range []CtrlInstr{Nop(), Jmp(1), Call(core.Site{}), Ret()} {
		if instr.Complexity() != CtrlComplexity {
			t.Errorf("%s: complexity %d", instr, instr.Complexity())
		}
	}
}

func TestReservedContract(t *testing.T) {
	r := Reserved{Op: 0x55}
	if r.Complexity() != ^uint64(0) {
		t.Error("reserved instructions cost the maximum complexity")
	}
	c := core.New()
	if step := r.Exec(c, core.Site{}, nil); step.Kind != StepFailHalt {
		t.Errorf("reserved exec: %v", step.Kind)
	}
}

func TestDefaultComplexityRule(t *testing.T) {
	// put A128 has 6 inline bytes, one 16-byte destination register and
	// a 16-byte data segment reference
	instr := Put(core.Reg(core.A128, 0), U64Val(1))
	want := uint64(6)*8_000 + uint64(16)*80_000 + uint64(16)*800_000
	if got := instr.Complexity(); got != want {
		t.Errorf("complexity %d, want %d", got, want)
	}
}
