// Package debugger provides the interactive front-end over a stepped VM:
// breakpoints, single-step and run-to-break execution, and the terminal
// user interface presenting registers, disassembly and the call state.
package debugger

import (
	"fmt"
	"strings"

	"github.com/lookbusy1344/aluvm/core"
	"github.com/lookbusy1344/aluvm/program"
	"github.com/lookbusy1344/aluvm/vm"
)

// Debugger wraps a stepper with breakpoints and an output log.
type Debugger struct {
	Stepper *vm.Stepper
	Prog    *program.Program

	breakpoints map[core.Site]bool
	lastError   error
}

// New creates a debugger for a program with a fresh machine.
func New(machine *vm.VM, prog *program.Program) (*Debugger, error) {
	stepper, err := vm.NewStepper(machine, prog)
	if err != nil {
		return nil, err
	}
	return &Debugger{
		Stepper:     stepper,
		Prog:        prog,
		breakpoints: make(map[core.Site]bool),
	}, nil
}

// ToggleBreakpoint flips a breakpoint at a site, returning the new
// state.
func (d *Debugger) ToggleBreakpoint(site core.Site) bool {
	if d.breakpoints[site] {
		delete(d.breakpoints, site)
		return false
	}
	d.breakpoints[site] = true
	return true
}

// Breakpoints lists the active breakpoints.
func (d *Debugger) Breakpoints() []core.Site {
	sites := make([]core.Site, 0, len(d.breakpoints))
	for site := range d.breakpoints {
		sites = append(sites, site)
	}
	return sites
}

// Step executes one instruction.
func (d *Debugger) Step() {
	if _, err := d.Stepper.Step(nil); err != nil {
		d.lastError = err
	}
}

// Continue runs until a breakpoint, termination or the safety budget.
func (d *Debugger) Continue() {
	const budget = 1_000_000
	for steps := 0; steps < budget && !d.Stepper.Halted(); steps++ {
		if _, err := d.Stepper.Step(nil); err != nil {
			d.lastError = err
			return
		}
		if d.breakpoints[d.Stepper.Site()] {
			return
		}
	}
}

// TakeError returns and clears the last decode error hit during
// stepping, if any.
func (d *Debugger) TakeError() error {
	err := d.lastError
	d.lastError = nil
	return err
}

// StateSummary renders a one-line status for display.
func (d *Debugger) StateSummary() string {
	c := d.Stepper.VM().Core
	state := "running"
	if d.Stepper.Halted() {
		state = "halted"
	}
	return fmt.Sprintf("%s | ck=%s co=%v cf=%d cy=%d ca=%d",
		state, c.Ck(), c.Co(), c.Cf(), c.Cy(), c.Ca())
}

// RegisterDump renders the set registers, one per line.
func (d *Debugger) RegisterDump() string {
	c := d.Stepper.VM().Core
	var b strings.Builder
	count := 0
	for reg, val := range c.Values() {
		fmt.Fprintf(&b, "%-8s %s\n", reg, val.String())
		count++
	}
	if count == 0 {
		b.WriteString("(all registers unset)\n")
	}
	return b.String()
}

// Disassembly renders the current library listing with a marker on the
// next instruction.
func (d *Debugger) Disassembly() string {
	site := d.Stepper.Site()
	lib, ok := d.Prog.Lib(site.Lib)
	if !ok {
		return fmt.Sprintf("library %s is not part of the program\n", site.Lib.Short())
	}

	var b strings.Builder
	code, err := lib.Disassemble()
	if err != nil {
		fmt.Fprintf(&b, "; %v\n", err)
		return b.String()
	}
	offset := uint16(0)
	for _, instr := range code {
		marker := "  "
		if offset == site.Offset {
			marker = "> "
		}
		bp := " "
		if d.breakpoints[core.NewSite(site.Lib, offset)] {
			bp = "*"
		}
		fmt.Fprintf(&b, "%s%s@x%04X: %s\n", marker, bp, offset, instr)
		offset += 1 + instr.OpBytes()
	}
	return b.String()
}
