package program

import (
	"errors"
	"testing"

	"github.com/lookbusy1344/aluvm/core"
	"github.com/lookbusy1344/aluvm/isa"
	"github.com/lookbusy1344/aluvm/library"
)

func mustLib(t *testing.T, code ...isa.Instr) *library.Lib {
	t.Helper()
	lib, err := library.Assemble(code)
	if err != nil {
		t.Fatal(err)
	}
	return lib
}

func TestAddAndLookup(t *testing.T) {
	p := New()
	lib := mustLib(t, isa.Nop(), isa.Ret())

	id, err := p.AddLib(lib)
	if err != nil {
		t.Fatal(err)
	}
	if id != lib.ID() {
		t.Error("AddLib must return the content id")
	}
	if p.LibsCount() != 1 {
		t.Errorf("libs count %d", p.LibsCount())
	}

	got, ok := p.Lib(id)
	if !ok || got != lib {
		t.Error("lookup by id failed")
	}
	if _, ok := p.Lib(core.LibID{9}); ok {
		t.Error("lookup of an unknown id must fail")
	}

	// re-adding the same library is a no-op
	if _, err := p.AddLib(lib); err != nil {
		t.Fatal(err)
	}
	if p.LibsCount() != 1 {
		t.Error("duplicate add must not grow the program")
	}
}

func TestEntrypoint(t *testing.T) {
	p := New()
	if _, err := p.Entrypoint(); !errors.Is(err, ErrNoEntrypoint) {
		t.Errorf("expected ErrNoEntrypoint, got %v", err)
	}

	site := core.NewSite(core.LibID{1}, 42)
	p.SetEntrypoint(site)
	got, err := p.Entrypoint()
	if err != nil || got != site {
		t.Errorf("entrypoint %v, err=%v", got, err)
	}
}

func TestNewWithLib(t *testing.T) {
	lib := mustLib(t, isa.Stop())
	p := NewWithLib(lib)
	entry, err := p.Entrypoint()
	if err != nil {
		t.Fatal(err)
	}
	if entry != core.NewSite(lib.ID(), 0) {
		t.Errorf("entry %v", entry)
	}
}

func TestLibraryCap(t *testing.T) {
	p := New()
	p.maxLibs = 2
	a := mustLib(t, isa.Nop(), isa.Ret())
	b := mustLib(t, isa.Stop())
	c := mustLib(t, isa.Nop(), isa.Stop())

	if _, err := p.AddLib(a); err != nil {
		t.Fatal(err)
	}
	if _, err := p.AddLib(b); err != nil {
		t.Fatal(err)
	}
	if _, err := p.AddLib(c); !errors.Is(err, ErrTooManyLibs) {
		t.Errorf("expected ErrTooManyLibs, got %v", err)
	}
}
