package core

import (
	"iter"
	"math"

	"lukechampine.com/uint128"
)

func (c *Core) isSet(r RegA) bool { return c.set[r.Kind]&(1<<r.Idx) != 0 }
func (c *Core) mark(r RegA)       { c.set[r.Kind] |= 1 << r.Idx }
func (c *Core) unmark(r RegA)     { c.set[r.Kind] &^= 1 << r.Idx }

// A returns the contents of a register cell, widened to 128 bits. The
// second return value is false when the cell is unset.
func (c *Core) A(r RegA) (uint128.Uint128, bool) {
	if !c.isSet(r) {
		return uint128.Zero, false
	}
	switch r.Kind {
	case A8:
		return uint128.From64(uint64(c.a8[r.Idx])), true
	case A16:
		return uint128.From64(uint64(c.a16[r.Idx])), true
	case A32:
		return uint128.From64(uint64(c.a32[r.Idx])), true
	case A64:
		return uint128.From64(c.a64[r.Idx]), true
	default:
		return c.a128[r.Idx], true
	}
}

// SetA writes a value into a register cell, truncating it modulo the cell
// width. It reports whether the cell was previously set.
func (c *Core) SetA(r RegA, val uint128.Uint128) bool {
	was := c.isSet(r)
	switch r.Kind {
	case A8:
		c.a8[r.Idx] = uint8(val.Lo)
	case A16:
		c.a16[r.Idx] = uint16(val.Lo)
	case A32:
		c.a32[r.Idx] = uint32(val.Lo)
	case A64:
		c.a64[r.Idx] = val.Lo
	default:
		c.a128[r.Idx] = val
	}
	c.mark(r)
	return was
}

// ClrA puts a register cell into the unset state and reports whether it
// was previously set.
func (c *Core) ClrA(r RegA) bool {
	was := c.isSet(r)
	c.unmark(r)
	return was
}

// TakeA reads and clears a register cell in one step.
func (c *Core) TakeA(r RegA) (uint128.Uint128, bool) {
	val, ok := c.A(r)
	c.unmark(r)
	return val, ok
}

// SwpA writes a value into a register cell and returns the prior
// contents, if any.
func (c *Core) SwpA(r RegA, val uint128.Uint128) (uint128.Uint128, bool) {
	prior, ok := c.A(r)
	c.SetA(r, val)
	return prior, ok
}

// Values yields every set register cell with its widened value, in
// (kind, index) order. The sequence is finite and restartable.
func (c *Core) Values() iter.Seq2[RegA, uint128.Uint128] {
	return func(yield func(RegA, uint128.Uint128) bool) {
		for kind := A8; kind <= A128; kind++ {
			for idx := IdxA(0); idx <= IdxMax; idx++ {
				reg := Reg(kind, idx)
				if val, ok := c.A(reg); ok {
					if !yield(reg, val) {
						return
					}
				}
			}
		}
	}
}

// Flag microcode.

// Ck returns the current check register state.
func (c *Core) Ck() Status { return c.ck }

// FailCk sets the check register to the failed state and increments the
// failure counter. It returns whether further execution must stop (the
// CH latch).
func (c *Core) FailCk() bool {
	c.ck = StatusFail
	c.cf++
	return c.ch
}

// ResetCk returns the check register to the Ok state. The failure counter
// is untouched.
func (c *Core) ResetCk() { c.ck = StatusOk }

// Cf returns how many times the check register transitioned to the failed
// state.
func (c *Core) Cf() uint64 { return c.cf }

// HasFailed reports whether the check register was ever in a failed state.
func (c *Core) HasFailed() bool { return c.cf > 0 }

// Co returns the carry/condition flag.
func (c *Core) Co() bool { return c.co }

// SetCo writes the carry/condition flag.
func (c *Core) SetCo(co bool) { c.co = co }

// Cy returns the jump counter.
func (c *Core) Cy() uint32 { return c.cy }

// IncCy counts one jump. It returns false when the per-program jump bound
// is exhausted; the counter itself never wraps.
func (c *Core) IncCy() bool {
	if c.cy >= CyLimit-1 {
		return false
	}
	c.cy++
	return true
}

// Ca returns the complexity accumulator.
func (c *Core) Ca() uint64 { return c.ca }

// Cl returns the complexity limit, if one is set.
func (c *Core) Cl() (uint64, bool) { return c.cl, c.clSet }

// AccComplexity adds an instruction cost into the complexity accumulator,
// saturating at the maximal value. It returns true when a complexity
// limit is configured and has been reached.
func (c *Core) AccComplexity(complexity uint64) bool {
	if c.ca > math.MaxUint64-complexity {
		c.ca = math.MaxUint64
	} else {
		c.ca += complexity
	}
	return c.clSet && c.ca >= c.cl
}

// Cp returns the current call stack depth.
func (c *Core) Cp() uint16 { return uint16(len(c.cs)) }

// PushCs pushes a return site onto the call stack, returning the new
// depth. It reports false on stack overflow.
func (c *Core) PushCs(from Site) (uint16, bool) {
	if len(c.cs) >= cap(c.cs) {
		return 0, false
	}
	c.cs = append(c.cs, from)
	return uint16(len(c.cs)), true
}

// PopCs pops the topmost return site, reporting false when the stack is
// empty.
func (c *Core) PopCs() (Site, bool) {
	if len(c.cs) == 0 {
		return Site{}, false
	}
	site := c.cs[len(c.cs)-1]
	c.cs = c.cs[:len(c.cs)-1]
	return site, true
}
