package core

import (
	"testing"

	"lukechampine.com/uint128"
)

func coreWithOrder(fq Fq) *Core {
	cfg := DefaultConfig()
	cfg.FieldOrder = fq
	return NewWith(cfg)
}

func TestAddModSmallField(t *testing.T) {
	c := coreWithOrder(FqOther(uint128.From64(7)))

	res, ok := c.AddMod(uint128.From64(3), uint128.From64(5))
	if !ok || res.Lo != 1 {
		t.Errorf("(3+5) mod 7: got %v ok=%v", res, ok)
	}
	if c.Co() {
		t.Error("no native overflow expected")
	}

	if _, ok := c.AddMod(uint128.From64(7), uint128.From64(1)); ok {
		t.Error("operand equal to the order must fail")
	}
	if _, ok := c.AddMod(uint128.From64(1), uint128.From64(100)); ok {
		t.Error("operand above the order must fail")
	}
}

func TestAddModOverflow(t *testing.T) {
	c := coreWithOrder(FqF1289)
	a := FqF1289.Order().Sub64(1)
	res, ok := c.AddMod(a, a)
	if !ok {
		t.Fatal("in-domain operands must not fail")
	}
	if !c.Co() {
		t.Error("CO must record the 128-bit overflow of the raw sum")
	}
	// (q-1)+(q-1) = 2q-2 ≡ q-2 (mod q)
	want := FqF1289.Order().Sub64(2)
	if !res.Equals(want) {
		t.Errorf("got %v, want %v", res, want)
	}
}

func TestMulMod(t *testing.T) {
	c := coreWithOrder(FqM31)
	res, ok := c.MulMod(uint128.From64(1<<20), uint128.From64(1<<20))
	if !ok {
		t.Fatal("in-domain operands must not fail")
	}
	// 2^40 mod (2^31-1) = 2^9
	if res.Lo != 1<<9 {
		t.Errorf("2^40 mod M31: got %v, want %d", res, 1<<9)
	}
	if c.Co() {
		t.Error("2^40 does not overflow 128 bits")
	}

	c = coreWithOrder(FqF1289)
	big := FqF1289.Order().Sub64(1)
	if _, ok := c.MulMod(big, big); !ok {
		t.Fatal("in-domain operands must not fail")
	}
	if !c.Co() {
		t.Error("CO must record the native 128-bit overflow of the product")
	}
}

func TestNegMod(t *testing.T) {
	c := coreWithOrder(FqOther(uint128.From64(11)))

	res, ok := c.NegMod(uint128.From64(4))
	if !ok || res.Lo != 7 {
		t.Errorf("-4 mod 11: got %v ok=%v", res, ok)
	}
	res, ok = c.NegMod(uint128.Zero)
	if !ok || !res.IsZero() {
		t.Errorf("-0 mod 11: got %v ok=%v", res, ok)
	}
	if _, ok := c.NegMod(uint128.From64(11)); ok {
		t.Error("operand equal to the order must fail")
	}
}

func TestStandardOrders(t *testing.T) {
	if FqM31.Order().Lo != 1<<31-1 || FqM31.Order().Hi != 0 {
		t.Errorf("M31 = %v", FqM31.Order())
	}
	// 1 + 11*37*2^119: high word is 407 << 55, low word is 1
	if FqF1137119.Order().Lo != 1 || FqF1137119.Order().Hi != 407<<55 {
		t.Errorf("F1137119 = %v", FqF1137119.Order())
	}
	if !FqF1289.Order().Equals(uint128.Max.Sub64(8)) {
		t.Errorf("F1289 = %v", FqF1289.Order())
	}
}

func TestParseFq(t *testing.T) {
	for _, name := range []string{"M31", "F1137119", "F1289"} {
		fq, err := ParseFq(name)
		if err != nil {
			t.Errorf("parse %q: %v", name, err)
		}
		if fq.String() != name {
			t.Errorf("parse %q: got %s", name, fq)
		}
	}

	fq, err := ParseFq("0xffff")
	if err != nil || fq.Order().Lo != 0xFFFF {
		t.Errorf("parse hex order: %v %v", fq, err)
	}
	fq, err = ParseFq("97")
	if err != nil || fq.Order().Lo != 97 {
		t.Errorf("parse decimal order: %v %v", fq, err)
	}
	if _, err := ParseFq("0"); err == nil {
		t.Error("zero order must be rejected")
	}
	if _, err := ParseFq("bogus"); err == nil {
		t.Error("malformed order must be rejected")
	}
}
