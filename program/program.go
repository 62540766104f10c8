// Package program defines the executable program container: a set of
// libraries keyed by their content ids plus a single entry site.
package program

import (
	"errors"
	"fmt"

	"github.com/lookbusy1344/aluvm/core"
	"github.com/lookbusy1344/aluvm/library"
)

// ErrTooManyLibs is returned when adding a library would exceed the
// program-wide cap on the number of reachable libraries.
var ErrTooManyLibs = errors.New("maximum number of program libraries exceeded")

// ErrNoEntrypoint is returned when running a program whose entry point
// was never set.
var ErrNoEntrypoint = errors.New("program has no entry point")

// Program is a collection of libraries addressed by id, with a declared
// entry point. It is built incrementally by adding libraries; execution
// never mutates it.
type Program struct {
	libs     map[core.LibID]*library.Lib
	entry    core.Site
	hasEntry bool
	maxLibs  int
}

// New creates an empty program with the default library cap.
func New() *Program {
	return &Program{
		libs:    make(map[core.LibID]*library.Lib),
		maxLibs: library.LibsMaxTotal,
	}
}

// NewWithLib creates a program from a single library with the entry
// point at its zero offset.
func NewWithLib(lib *library.Lib) *Program {
	p := New()
	id, _ := p.AddLib(lib)
	p.SetEntrypoint(core.NewSite(id, 0))
	return p
}

// With creates a program from a set of libraries and an entry site.
func With(libs []*library.Lib, entry core.Site) (*Program, error) {
	p := New()
	for _, lib := range libs {
		if _, err := p.AddLib(lib); err != nil {
			return nil, err
		}
	}
	p.SetEntrypoint(entry)
	return p, nil
}

// AddLib adds a library, returning its computed id. Re-adding a known
// library is a no-op.
func (p *Program) AddLib(lib *library.Lib) (core.LibID, error) {
	id := lib.ID()
	if _, known := p.libs[id]; known {
		return id, nil
	}
	if len(p.libs) >= p.maxLibs {
		return core.LibID{}, fmt.Errorf("%w (%d)", ErrTooManyLibs, p.maxLibs)
	}
	p.libs[id] = lib
	return id, nil
}

// Lib returns the library with the given id, if it is a part of the
// program.
func (p *Program) Lib(id core.LibID) (*library.Lib, bool) {
	lib, ok := p.libs[id]
	return lib, ok
}

// LibsCount returns the number of libraries in the program.
func (p *Program) LibsCount() int { return len(p.libs) }

// Entrypoint returns the declared entry site.
func (p *Program) Entrypoint() (core.Site, error) {
	if !p.hasEntry {
		return core.Site{}, ErrNoEntrypoint
	}
	return p.entry, nil
}

// SetEntrypoint declares the entry site for the program.
func (p *Program) SetEntrypoint(entry core.Site) {
	p.entry = entry
	p.hasEntry = true
}
