// Package asm maps mnemonic assembly source onto instruction sequences.
// It is a small two-pass assembler: the first pass parses statements and
// lays out byte offsets, the second resolves label references.
package asm

import (
	"fmt"
	"strconv"
	"strings"

	"lukechampine.com/uint128"

	"github.com/lookbusy1344/aluvm/core"
	"github.com/lookbusy1344/aluvm/isa"
	"github.com/lookbusy1344/aluvm/library"
)

// SyntaxError reports a malformed statement with its line number.
type SyntaxError struct {
	Line int
	Msg  string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("line %d: %s", e.Line, e.Msg)
}

// stmt is a parsed statement awaiting label resolution.
type stmt struct {
	line   int
	instr  isa.Instr
	offset uint16
	label  string // pending jump target, empty when resolved
}

// Assemble parses assembly source into an instruction sequence.
// Statements are separated by newlines or semicolons; comments start
// with "//" or "#"; labels are statements of the form "name:".
func Assemble(source string) ([]isa.Instr, error) {
	stmts, labels, err := parse(source)
	if err != nil {
		return nil, err
	}

	// Second pass: patch label references now that offsets are known.
	code := make([]isa.Instr, len(stmts))
	for i, s := range stmts {
		if s.label != "" {
			target, ok := labels[s.label]
			if !ok {
				return nil, &SyntaxError{Line: s.line, Msg: fmt.Sprintf("undefined label %q", s.label)}
			}
			ctrl := s.instr.(isa.CtrlInstr)
			ctrl.Pos = target
			s.instr = ctrl
		}
		code[i] = s.instr
	}
	return code, nil
}

// AssembleLib assembles source directly into a library.
func AssembleLib(source string) (*library.Lib, error) {
	code, err := Assemble(source)
	if err != nil {
		return nil, err
	}
	return library.Assemble(code)
}

func parse(source string) ([]stmt, map[string]uint16, error) {
	var stmts []stmt
	labels := make(map[string]uint16)
	var offset uint32

	for lineNo, line := range strings.Split(source, "\n") {
		if idx := strings.Index(line, "//"); idx >= 0 {
			line = line[:idx]
		}
		if idx := strings.Index(line, "#"); idx >= 0 {
			line = line[:idx]
		}
		for _, field := range strings.Split(line, ";") {
			field = strings.TrimSpace(field)
			if field == "" {
				continue
			}
			if name, ok := strings.CutSuffix(field, ":"); ok && !strings.ContainsAny(name, " \t,") {
				if _, dup := labels[name]; dup {
					return nil, nil, &SyntaxError{Line: lineNo + 1, Msg: fmt.Sprintf("duplicate label %q", name)}
				}
				labels[name] = uint16(offset)
				continue
			}
			s, err := parseStmt(lineNo+1, field)
			if err != nil {
				return nil, nil, err
			}
			s.offset = uint16(offset)
			offset += 1 + uint32(s.instr.OpBytes())
			if offset > library.CodeSegMaxLen {
				return nil, nil, &SyntaxError{Line: lineNo + 1, Msg: "program exceeds the code segment size"}
			}
			stmts = append(stmts, s)
		}
	}
	return stmts, labels, nil
}

func parseStmt(line int, text string) (stmt, error) {
	mnemonic, rest, _ := strings.Cut(text, " ")
	mnemonic = strings.ToLower(strings.TrimSpace(mnemonic))
	var operands []string
	for _, op := range strings.Split(rest, ",") {
		op = strings.TrimSpace(op)
		if op != "" {
			operands = append(operands, op)
		}
	}

	fail := func(format string, args ...any) (stmt, error) {
		return stmt{}, &SyntaxError{Line: line, Msg: fmt.Sprintf(format, args...)}
	}
	need := func(n int) error {
		if len(operands) != n {
			return &SyntaxError{Line: line, Msg: fmt.Sprintf("%s expects %d operands, got %d", mnemonic, n, len(operands))}
		}
		return nil
	}

	switch mnemonic {
	case "nop":
		return stmt{line: line, instr: isa.Nop()}, nil
	case "chk":
		return stmt{line: line, instr: isa.Chk()}, nil
	case "ret":
		return stmt{line: line, instr: isa.Ret()}, nil
	case "stop":
		return stmt{line: line, instr: isa.Stop()}, nil

	case "not":
		if err := need(1); err != nil {
			return stmt{}, err
		}
		if !strings.EqualFold(operands[0], "co") {
			return fail("not operates on CO")
		}
		return stmt{line: line, instr: isa.NotCo()}, nil

	case "put", "pif":
		if err := need(2); err != nil {
			return stmt{}, err
		}
		if strings.EqualFold(operands[0], "ck") {
			if mnemonic != "put" {
				return fail("pif does not operate on CK")
			}
			switch strings.ToLower(strings.TrimPrefix(operands[1], ":")) {
			case "fail":
				return stmt{line: line, instr: isa.FailCk()}, nil
			case "ok":
				return stmt{line: line, instr: isa.RsetCk()}, nil
			}
			return fail("put CK expects ok or fail")
		}
		reg, err := core.ParseReg(operands[0])
		if err != nil {
			return fail("%v", err)
		}
		val, err := parseValue(operands[1])
		if err != nil {
			return fail("%v", err)
		}
		if mnemonic == "put" {
			return stmt{line: line, instr: isa.Put(reg, isa.U128Val(val))}, nil
		}
		return stmt{line: line, instr: isa.Pif(reg, isa.U128Val(val))}, nil

	case "jmp":
		if err := need(1); err != nil {
			return stmt{}, err
		}
		if lib, pos, ok, err := parseSiteOperand(operands[0]); err != nil {
			return fail("%v", err)
		} else if ok {
			return stmt{line: line, instr: isa.ExecLib(core.NewSite(lib, pos))}, nil
		}
		return ctrlTarget(line, operands[0], isa.Jmp(0))

	case "jif":
		if err := need(2); err != nil {
			return stmt{}, err
		}
		switch strings.ToLower(operands[0]) {
		case "co":
			return ctrlTarget(line, operands[1], isa.JifCo(0))
		case "ck":
			return ctrlTarget(line, operands[1], isa.JifCk(0))
		}
		return fail("jif condition must be CO or CK")

	case "sh", "sh.co", "sh.ck":
		if err := need(1); err != nil {
			return stmt{}, err
		}
		shift, err := parseShift(operands[0])
		if err != nil {
			return fail("%v", err)
		}
		switch mnemonic {
		case "sh":
			return stmt{line: line, instr: isa.Sh(shift)}, nil
		case "sh.co":
			return stmt{line: line, instr: isa.ShCo(shift)}, nil
		default:
			return stmt{line: line, instr: isa.ShCk(shift)}, nil
		}

	case "call", "fn":
		if err := need(1); err != nil {
			return stmt{}, err
		}
		if lib, pos, ok, err := parseSiteOperand(operands[0]); err != nil {
			return fail("%v", err)
		} else if ok {
			if mnemonic == "fn" {
				return fail("fn cannot target another library")
			}
			return stmt{line: line, instr: isa.Call(core.NewSite(lib, pos))}, nil
		}
		return ctrlTarget(line, operands[0], isa.Fn(0))

	case "clr", "test":
		if err := need(1); err != nil {
			return stmt{}, err
		}
		reg, err := core.ParseReg(operands[0])
		if err != nil {
			return fail("%v", err)
		}
		if mnemonic == "clr" {
			return stmt{line: line, instr: isa.Clr(reg)}, nil
		}
		return stmt{line: line, instr: isa.Test(reg)}, nil

	case "cpy", "swp", "eq", "eq.e", "eq.n":
		if err := need(2); err != nil {
			return stmt{}, err
		}
		a, err := core.ParseReg(operands[0])
		if err != nil {
			return fail("%v", err)
		}
		b, err := core.ParseReg(operands[1])
		if err != nil {
			return fail("%v", err)
		}
		switch mnemonic {
		case "cpy":
			return stmt{line: line, instr: isa.Cpy(a, b)}, nil
		case "swp":
			return stmt{line: line, instr: isa.Swp(a, b)}, nil
		case "eq.n":
			return stmt{line: line, instr: isa.EqN(a, b)}, nil
		default:
			return stmt{line: line, instr: isa.Eq(a, b)}, nil
		}

	case "add", "sub", "incmod", "decmod":
		if err := need(2); err != nil {
			return stmt{}, err
		}
		reg, err := core.ParseReg(operands[0])
		if err != nil {
			return fail("%v", err)
		}
		imm, err := parseImm8(operands[1])
		if err != nil {
			return fail("%v", err)
		}
		switch mnemonic {
		case "add":
			return stmt{line: line, instr: isa.Add(reg, imm)}, nil
		case "sub":
			return stmt{line: line, instr: isa.Sub(reg, imm)}, nil
		case "incmod":
			return stmt{line: line, instr: isa.IncMod(reg, imm)}, nil
		default:
			return stmt{line: line, instr: isa.DecMod(reg, imm)}, nil
		}

	case "negmod":
		if err := need(2); err != nil {
			return stmt{}, err
		}
		dst, err := core.ParseReg(operands[0])
		if err != nil {
			return fail("%v", err)
		}
		src, err := parseIdxOperand(operands[1], dst.Kind)
		if err != nil {
			return fail("%v", err)
		}
		return stmt{line: line, instr: isa.NegMod(dst, src)}, nil

	case "addmod", "mulmod":
		// A trailing field-order operand is accepted and ignored:
		// the order lives in the core configuration.
		if len(operands) > 0 && strings.EqualFold(operands[len(operands)-1], "q") {
			operands = operands[:len(operands)-1]
		}
		if len(operands) != 2 && len(operands) != 3 {
			return fail("%s expects 2 or 3 operands", mnemonic)
		}
		dst, err := core.ParseReg(operands[0])
		if err != nil {
			return fail("%v", err)
		}
		if dst.Idx > core.Idx16Max {
			return fail("%s addresses only registers :1 to :F", mnemonic)
		}
		var src1, src2 core.IdxA
		if len(operands) == 2 {
			src1 = dst.Idx
			src2, err = parseIdxOperand(operands[1], dst.Kind)
		} else {
			if src1, err = parseIdxOperand(operands[1], dst.Kind); err == nil {
				src2, err = parseIdxOperand(operands[2], dst.Kind)
			}
		}
		if err != nil {
			return fail("%v", err)
		}
		if src1 > core.Idx16Max || src2 > core.Idx16Max {
			return fail("%s addresses only registers :1 to :F", mnemonic)
		}
		if mnemonic == "addmod" {
			return stmt{line: line, instr: isa.AddMod(dst.Kind, dst.Idx, src1, src2)}, nil
		}
		return stmt{line: line, instr: isa.MulMod(dst.Kind, dst.Idx, src1, src2)}, nil
	}

	return fail("unknown instruction %q", mnemonic)
}

// ctrlTarget finishes a control instruction whose operand is either a
// numeric offset or a label reference.
func ctrlTarget(line int, operand string, instr isa.CtrlInstr) (stmt, error) {
	if pos, err := parseU16(operand); err == nil {
		instr.Pos = pos
		return stmt{line: line, instr: instr}, nil
	}
	return stmt{line: line, instr: instr, label: operand}, nil
}

// parseSiteOperand recognizes the external form "<libid> @ <offset>".
func parseSiteOperand(operand string) (core.LibID, uint16, bool, error) {
	libStr, posStr, found := strings.Cut(operand, "@")
	if !found {
		return core.LibID{}, 0, false, nil
	}
	lib, err := core.ParseLibID(strings.TrimSpace(libStr))
	if err != nil {
		return core.LibID{}, 0, false, err
	}
	pos, err := parseU16(strings.TrimSpace(posStr))
	if err != nil {
		return core.LibID{}, 0, false, err
	}
	return lib, pos, true, nil
}

func parseIdxOperand(s string, kind core.A) (core.IdxA, error) {
	if strings.HasPrefix(s, ":") || strings.HasPrefix(s, ".") {
		return core.ParseIdxA(s)
	}
	reg, err := core.ParseReg(s)
	if err != nil {
		return 0, err
	}
	if reg.Kind != kind {
		return 0, fmt.Errorf("operand %s does not match register kind %s", s, kind)
	}
	return reg.Idx, nil
}

func parseU16(s string) (uint16, error) {
	v, err := strconv.ParseUint(numBody(s), numBase(s), 16)
	if err != nil {
		return 0, fmt.Errorf("invalid offset %q", s)
	}
	return uint16(v), nil
}

func parseImm8(s string) (uint8, error) {
	v, err := strconv.ParseUint(numBody(s), numBase(s), 8)
	if err != nil {
		return 0, fmt.Errorf("invalid immediate %q", s)
	}
	return uint8(v), nil
}

func parseShift(s string) (int8, error) {
	v, err := strconv.ParseInt(s, 10, 8)
	if err != nil {
		return 0, fmt.Errorf("invalid shift %q", s)
	}
	return int8(v), nil
}

func parseValue(s string) (uint128.Uint128, error) {
	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		return parseHex128(s[2:])
	}
	v, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return parseHex128OrFail(s)
	}
	return uint128.From64(v), nil
}

// Large decimal constants overflow uint64 parsing; values above 2^64-1
// are accepted in hexadecimal form only.
func parseHex128OrFail(s string) (uint128.Uint128, error) {
	return uint128.Zero, fmt.Errorf("invalid value %q (values above 2^64-1 must use the 0x form)", s)
}

func parseHex128(s string) (uint128.Uint128, error) {
	if s == "" || len(s) > 32 {
		return uint128.Zero, fmt.Errorf("invalid hexadecimal value %q", s)
	}
	var val uint128.Uint128
	for _, c := range s {
		var d uint64
		switch {
		case c >= '0' && c <= '9':
			d = uint64(c - '0')
		case c >= 'a' && c <= 'f':
			d = uint64(c-'a') + 10
		case c >= 'A' && c <= 'F':
			d = uint64(c-'A') + 10
		default:
			return uint128.Zero, fmt.Errorf("invalid hexadecimal value %q", s)
		}
		val = val.Lsh(4).Or(uint128.From64(d))
	}
	return val, nil
}

func numBase(s string) int {
	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		return 16
	}
	return 10
}

func numBody(s string) string {
	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		return s[2:]
	}
	return s
}
