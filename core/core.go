package core

import (
	"fmt"
	"strings"

	"lukechampine.com/uint128"
)

// CallStackSizeMax is the default (and maximal meaningful) call stack
// depth.
const CallStackSizeMax uint16 = 0xFF

// CyLimit is the hard bound on the number of jumps a single program run
// may perform.
const CyLimit uint32 = 1 << 16

// CoreConfig carries the construction parameters for a Core.
type CoreConfig struct {
	// Halt is the initial value of the CH latch: when true, the first
	// CK failure stops the VM.
	Halt bool

	// ComplexityLim is the optional CL register value; nil means no
	// complexity limit.
	ComplexityLim *uint64

	// CallStackSize is the capacity of the call stack.
	CallStackSize uint16

	// FieldOrder is the order of the finite field used by the
	// field-arithmetic extension.
	FieldOrder Fq
}

// DefaultConfig returns the default core configuration: halt on first
// failure, no complexity limit, full call stack, F1137119 field order.
func DefaultConfig() CoreConfig {
	return CoreConfig{
		Halt:          true,
		ComplexityLim: nil,
		CallStackSize: CallStackSizeMax,
		FieldOrder:    FqF1137119,
	}
}

// Core is the register file of a single VM instance: five banks of 32
// optional integer cells each, the control/status flags, and the bounded
// call stack. A Core is owned and mutated by exactly one VM.
type Core struct {
	fq Fq

	// Arithmetic integer banks. Each cell is optional: the bit in the
	// corresponding set mask distinguishes a set cell from an unset one.
	a8   [32]uint8
	a16  [32]uint16
	a32  [32]uint32
	a64  [32]uint64
	a128 [32]uint128.Uint128
	set  [numBanks]uint32

	// Halt latch: stop the VM on the first CK failure.
	ch bool
	// Check register, set on any runtime failure. Resettable.
	ck Status
	// Failure counter: number of Ok->Fail transitions of ck. Monotonic.
	cf uint64
	// Carry/condition flag written by comparisons and overflow.
	co bool
	// Jump counter, bounded by CyLimit per program run. Monotonic.
	cy uint32
	// Complexity accumulator, saturating at the maximal value. Monotonic.
	ca uint64
	// Optional complexity limit.
	cl    uint64
	clSet bool

	// Call stack with a fixed capacity chosen at construction.
	cs []Site
}

// New creates a core with the default configuration.
func New() *Core { return NewWith(DefaultConfig()) }

// NewWith creates a core from a configuration object. All register cells
// start unset, flags cleared, counters at zero and the call stack empty.
func NewWith(config CoreConfig) *Core {
	c := &Core{
		fq: config.FieldOrder,
		ch: config.Halt,
		ck: StatusOk,
		cs: make([]Site, 0, config.CallStackSize),
	}
	if config.ComplexityLim != nil {
		c.cl = *config.ComplexityLim
		c.clSet = true
	}
	return c
}

// Reset clears every register cell and flag back to the initial state,
// preserving the construction-time configuration (CH, CL, stack capacity,
// field order).
func (c *Core) Reset() {
	for i := range c.set {
		c.set[i] = 0
	}
	c.ck = StatusOk
	c.cf = 0
	c.co = false
	c.cy = 0
	c.ca = 0
	c.cs = c.cs[:0]
}

// DumpState returns a summary of the flag registers on its first line,
// followed by one line per set register cell, for debugging output.
func (c *Core) DumpState() string {
	cl := "~"
	if c.clSet {
		cl = fmt.Sprintf("%d", c.cl)
	}
	var b strings.Builder
	fmt.Fprintf(&b, "ch %v, ck %s, cf %d, co %v, cy %d, ca %d, cl %s, cp %d",
		c.ch, c.ck, c.cf, c.co, c.cy, c.ca, cl, len(c.cs))
	for reg, val := range c.Values() {
		fmt.Fprintf(&b, "\n%s %s", reg, val.String())
	}
	return b.String()
}
