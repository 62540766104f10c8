package library

import (
	"errors"
	"fmt"

	"github.com/lookbusy1344/aluvm/core"
)

// Segment capacity limits of the library format.
const (
	// CodeSegMaxLen is the maximal code segment size in bytes, bounded
	// by its 16-bit wire length prefix.
	CodeSegMaxLen = 1<<16 - 1

	// DataSegMaxLen is the maximal data segment size in bytes, bounded
	// by its 24-bit wire length prefix.
	DataSegMaxLen = 1<<24 - 1

	// LibsSegMaxCount is the maximal number of direct dependencies,
	// bounded by the one-byte wire count.
	LibsSegMaxCount = 255

	// IsaSegMaxCount is the maximal number of declared ISA extension
	// names.
	IsaSegMaxCount = 32

	// IsaNameMaxLen is the maximal length of one ISA extension name.
	IsaNameMaxLen = 16

	// LibsMaxTotal is the default cap on the total number of libraries
	// reachable by a single program.
	LibsMaxTotal = 1024
)

// ErrCodeEOF signals an attempt to read or write past the end of the
// code segment.
var ErrCodeEOF = errors.New("attempt to read or write outside of the code segment")

// ErrCodeOverflow signals that the code segment would exceed
// CodeSegMaxLen.
var ErrCodeOverflow = errors.New("code segment exceeds the maximal size")

// ErrDataOverflow signals that the data segment would exceed
// DataSegMaxLen.
var ErrDataOverflow = errors.New("data segment exceeds the maximal size")

// ErrTooManyLibs signals that a library references more direct
// dependencies than the dependency table can hold.
var ErrTooManyLibs = errors.New("too many library dependencies")

// LibAbsentError is returned when writing a reference to a library id
// which is not a part of the dependency table.
type LibAbsentError struct {
	ID core.LibID
}

func (e *LibAbsentError) Error() string {
	return fmt.Sprintf("library %s is absent from the dependency table", e.ID)
}

// DecodeError wraps a malformed-bytecode condition detected during
// instruction decoding with its code segment position.
type DecodeError struct {
	Pos     uint16
	Wrapped error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("bytecode decode error at offset 0x%04X: %v", e.Pos, e.Wrapped)
}

func (e *DecodeError) Unwrap() error { return e.Wrapped }
