package asm

import (
	"errors"
	"testing"

	"github.com/lookbusy1344/aluvm/core"
	"github.com/lookbusy1344/aluvm/isa"
)

func TestAssembleBasics(t *testing.T) {
	code, err := Assemble("nop ; chk ; put CK, ok ; not CO ; ret ; stop")
	if err != nil {
		t.Fatal(err)
	}
	want := []isa.Instr{isa.Nop(), isa.Chk(), isa.RsetCk(), isa.NotCo(), isa.Ret(), isa.Stop()}
	if len(code) != len(want) {
		t.Fatalf("assembled %d instructions, want %d", len(code), len(want))
	}
	for i := range want {
		if code[i].String() != want[i].String() {
			t.Errorf("instruction %d: %q, want %q", i, code[i], want[i])
		}
	}
}

func TestAssembleRegisterOps(t *testing.T) {
	code, err := Assemble("put A16:1, 4 ; cpy A32:2, A16:1 ; swp A16:1, A16:2 ; eq.n A16:1, A16:2 ; clr A16:1 ; test A16:2")
	if err != nil {
		t.Fatal(err)
	}
	if len(code) != 6 {
		t.Fatalf("assembled %d instructions", len(code))
	}
	put, ok := code[0].(isa.RegInstr)
	if !ok || put.Op != isa.OpPut || put.Dst != core.Reg(core.A16, 0) || put.Val.Val.Lo != 4 {
		t.Errorf("put parsed as %#v", code[0])
	}
	if eqn := code[3].(isa.RegInstr); eqn.Op != isa.OpEqN {
		t.Errorf("eq.n parsed as %#v", code[3])
	}
}

func TestAssembleLabels(t *testing.T) {
	code, err := Assemble(`
		put A8:1, 2
		loop:
		sub A8:1, 1
		jif CO, done
		jmp loop
		done:
		ret
	`)
	if err != nil {
		t.Fatal(err)
	}
	// offsets: put=0 (3 bytes), sub=3 (3 bytes), jif=6 (3 bytes),
	// jmp=9 (3 bytes), ret=12
	jif := code[2].(isa.CtrlInstr)
	if jif.Op != isa.OpJifCo || jif.Pos != 12 {
		t.Errorf("jif resolved to %04X, want 000C", jif.Pos)
	}
	jmp := code[3].(isa.CtrlInstr)
	if jmp.Op != isa.OpJmp || jmp.Pos != 3 {
		t.Errorf("jmp resolved to %04X, want 0003", jmp.Pos)
	}
}

func TestAssembleUndefinedLabel(t *testing.T) {
	_, err := Assemble("jmp nowhere ; ret")
	var syntaxErr *SyntaxError
	if !errors.As(err, &syntaxErr) {
		t.Fatalf("expected SyntaxError, got %v", err)
	}
}

func TestAssembleExternalCall(t *testing.T) {
	id := core.LibID{0xAB, 0xCD}
	source := "call " + id.String() + " @ 16 ; ret"
	code, err := Assemble(source)
	if err != nil {
		t.Fatal(err)
	}
	call := code[0].(isa.CtrlInstr)
	if call.Op != isa.OpCall || call.Site != core.NewSite(id, 16) {
		t.Errorf("external call parsed as %#v", call)
	}
}

func TestAssembleFieldOps(t *testing.T) {
	code, err := Assemble("incmod A64:1, 5 ; addmod A64:1, :2, :3, q ; mulmod A64:1, A64:2 ; negmod A64:1, :2")
	if err != nil {
		t.Fatal(err)
	}
	add := code[1].(isa.FieldInstr)
	if add.Op != isa.FieldAddMod || add.Kind != core.A64 || add.Dst != 0 || add.Src1 != 1 || add.Src2 != 2 {
		t.Errorf("addmod parsed as %#v", add)
	}
	// the two-operand form is sugar for dst, dst, src
	mul := code[2].(isa.FieldInstr)
	if mul.Op != isa.FieldMulMod || mul.Dst != 0 || mul.Src1 != 0 || mul.Src2 != 1 {
		t.Errorf("mulmod parsed as %#v", mul)
	}
}

func TestAssembleComments(t *testing.T) {
	code, err := Assemble(`
		// a full-line comment
		nop # trailing comment
		ret
	`)
	if err != nil {
		t.Fatal(err)
	}
	if len(code) != 2 {
		t.Errorf("assembled %d instructions, want 2", len(code))
	}
}

func TestAssembleErrors(t *testing.T) {
	cases := []string{
		"bogus A16:1",
		"put A16:1",
		"put A99:1, 4",
		"jif CO",
		"not CK",
		"sub A8:1, 256",
		"addmod A64.g, :1, :2",
	}
	for _, source := range cases {
		if _, err := Assemble(source); err == nil {
			t.Errorf("%q must not assemble", source)
		}
	}
}

func TestAssembleLibProducesRunnableLibrary(t *testing.T) {
	lib, err := AssembleLib("put A16:1, 4 ; put A16:2, 4 ; eq.n A16:1, A16:2 ; ret")
	if err != nil {
		t.Fatal(err)
	}
	if len(lib.Code) == 0 {
		t.Error("empty code segment")
	}
	decoded, err := lib.Disassemble()
	if err != nil {
		t.Fatal(err)
	}
	if len(decoded) != 4 {
		t.Errorf("disassembled %d instructions, want 4", len(decoded))
	}
}
