package vm

import (
	"fmt"
	"io"
	"sync"

	"github.com/lookbusy1344/aluvm/core"
	"github.com/lookbusy1344/aluvm/isa"
)

// ExecutionTrace records executed instructions to a writer, one line per
// step with the site, the disassembled instruction and the flag state
// as the instruction's Exec left it: the CK failure of a failing step and
// the CY increment of a jump or call are applied by the driver after the
// line is written. Attach it to a VM through its Func method.
type ExecutionTrace struct {
	mu      sync.Mutex
	w       io.Writer
	steps   uint64
	maxSize uint64
}

// NewExecutionTrace creates a trace sink. maxEntries bounds the number
// of recorded steps; zero means unbounded.
func NewExecutionTrace(w io.Writer, maxEntries uint64) *ExecutionTrace {
	return &ExecutionTrace{w: w, maxSize: maxEntries}
}

// Func returns the TraceFunc to install on a VM.
func (t *ExecutionTrace) Func() TraceFunc {
	return func(site core.Site, instr isa.Instr, c *core.Core) {
		t.mu.Lock()
		defer t.mu.Unlock()
		if t.maxSize > 0 && t.steps >= t.maxSize {
			return
		}
		t.steps++
		fmt.Fprintf(t.w, "%s@x%04X: %-24s ; ck=%s co=%v cy=%d ca=%d\n",
			site.Lib.Short(), site.Offset, instr.String(), c.Ck(), c.Co(), c.Cy(), c.Ca())
	}
}

// Steps returns the number of recorded steps.
func (t *ExecutionTrace) Steps() uint64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.steps
}
