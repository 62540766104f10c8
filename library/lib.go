// Package library defines the content-addressed AluVM library object —
// its code, data and dependency segments — together with the bit-precise
// bytecode marshaller, the assembler and disassembler over instruction
// sequences, the strict wire serialization and the ASCII armor rendering.
package library

import (
	"bytes"
	"crypto/sha256"
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/lookbusy1344/aluvm/core"
	"github.com/lookbusy1344/aluvm/isa"
)

// LibIDTag is the domain-separation tag of the library identity hash.
// The exact string is part of the format: two implementations agree on
// library ids only when they agree on this tag.
const LibIDTag = "aluvm:lib:v01"

// Lib is an immutable, content-addressed AluVM code library: the ISA
// extension declarations, the ordered dependency table, and the code and
// data segments. Once an id has been computed from the segments, none of
// them may change.
type Lib struct {
	// ISAE is the ordered set of ISA extension names the code uses.
	ISAE []string

	// Libs is the ordered set of library ids the code may call;
	// cross-library references in the bytecode index this table.
	Libs []core.LibID

	// Code is the bytecode segment.
	Code []byte

	// Data holds inline constants referenced from the code by
	// offset-and-length tuples.
	Data []byte
}

// New constructs a library from raw segments, validating the segment
// limits.
func New(isae []string, libs []core.LibID, code, data []byte) (*Lib, error) {
	if len(code) > CodeSegMaxLen {
		return nil, fmt.Errorf("%w: %d bytes", ErrCodeOverflow, len(code))
	}
	if len(data) > DataSegMaxLen {
		return nil, fmt.Errorf("%w: %d bytes", ErrDataOverflow, len(data))
	}
	if len(libs) > LibsSegMaxCount {
		return nil, fmt.Errorf("%w: %d entries", ErrTooManyLibs, len(libs))
	}
	if len(isae) > IsaSegMaxCount {
		return nil, fmt.Errorf("too many ISA extension names: %d", len(isae))
	}
	for _, name := range isae {
		if !ValidIsaName(name) {
			return nil, fmt.Errorf("invalid ISA extension name %q", name)
		}
	}
	return &Lib{ISAE: isae, Libs: libs, Code: code, Data: data}, nil
}

// ValidIsaName reports whether a string is a well-formed ISA extension
// name: 1 to 16 ASCII characters, uppercase letters and digits only, the
// first character alphabetic.
func ValidIsaName(s string) bool {
	if len(s) == 0 || len(s) > IsaNameMaxLen {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c >= 'A' && c <= 'Z':
		case c >= '0' && c <= '9':
			if i == 0 {
				return false
			}
		default:
			return false
		}
	}
	return true
}

// ID computes the library identifier: a tagged SHA-256 hash over the
// strict serialization of the four segments. The hash is fed
// incrementally; the serialization is never materialized as a whole.
func (l *Lib) ID() core.LibID {
	tag := sha256.Sum256([]byte(LibIDTag))
	h := sha256.New()
	h.Write(tag[:])
	h.Write(tag[:])
	if err := l.Serialize(h); err != nil {
		// Serialization into a hash cannot fail on a validated
		// library; a failure here means the segments were mutated
		// past their limits.
		panic(fmt.Sprintf("library: serializing for id: %v", err))
	}
	var id core.LibID
	copy(id[:], h.Sum(nil))
	return id
}

// Assemble builds a library from an ordered instruction sequence: it
// collects the external call targets into the dependency table, derives
// the declared ISA extension set, and marshals each instruction into the
// code segment, splitting wide inline constants into the data segment.
func Assemble(code []isa.Instr) (*Lib, error) {
	var libs []core.LibID
	for _, instr := range code {
		if id, ok := instr.ExternalRef(); ok && !slices.Contains(libs, id) {
			libs = append(libs, id)
		}
	}
	slices.SortFunc(libs, func(a, b core.LibID) int { return bytes.Compare(a[:], b[:]) })
	if len(libs) > LibsSegMaxCount {
		return nil, fmt.Errorf("%w: %d entries", ErrTooManyLibs, len(libs))
	}

	isae := []string{isa.ISAALU64}
	for _, instr := range code {
		for _, ext := range instr.ISAExt() {
			if !slices.Contains(isae, ext) {
				isae = append(isae, ext)
			}
		}
	}
	slices.Sort(isae)

	w := NewMarshaller(libs)
	for _, instr := range code {
		if err := isa.Encode(instr, w); err != nil {
			return nil, fmt.Errorf("assembling %q: %w", instr, err)
		}
	}
	codeSeg, dataSeg := w.Finish()
	return New(isae, libs, codeSeg, dataSeg)
}

// Disassemble decodes the code segment back into an instruction
// sequence, walking the cursor from the start until EOF.
func (l *Lib) Disassemble() ([]isa.Instr, error) {
	return l.DisassembleExt(nil)
}

// DisassembleExt disassembles with a host extension decoder claiming
// opcodes beyond the core groups.
func (l *Lib) DisassembleExt(ext isa.ExtDecoder) ([]isa.Instr, error) {
	var code []isa.Instr
	r := ReadMarshaller(l.Code, l.Data, l.Libs)
	for !r.IsEOF() {
		pos := r.Pos()
		instr, err := isa.Decode(r, ext)
		if err != nil {
			return nil, &DecodeError{Pos: pos, Wrapped: err}
		}
		code = append(code, instr)
	}
	return code, nil
}

// PrintDisassemble writes an offset-annotated instruction listing.
func (l *Lib) PrintDisassemble(w io.Writer) error {
	r := ReadMarshaller(l.Code, l.Data, l.Libs)
	for !r.IsEOF() {
		pos := r.Pos()
		instr, err := isa.Decode(r, nil)
		if err != nil {
			_, werr := fmt.Fprintf(w, "@x%04X: ; <incomplete instruction>\n", pos)
			if werr != nil {
				return werr
			}
			return nil
		}
		if _, err := fmt.Fprintf(w, "@x%04X: %s\n", pos, instr); err != nil {
			return err
		}
	}
	return nil
}

func (l *Lib) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "ISAE: %s\n", strings.Join(l.ISAE, " "))
	fmt.Fprintf(&b, "CODE: %d bytes\n", len(l.Code))
	fmt.Fprintf(&b, "DATA: %d bytes\n", len(l.Data))
	b.WriteString("LIBS:")
	if len(l.Libs) == 0 {
		b.WriteString(" ~")
	}
	for _, id := range l.Libs {
		fmt.Fprintf(&b, " %s", id)
	}
	return b.String()
}
