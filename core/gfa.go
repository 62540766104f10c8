package core

import (
	"fmt"
	"strings"

	"github.com/holiman/uint256"
	"lukechampine.com/uint128"
)

// Fq is the order of the finite field used by the field-arithmetic
// instruction group. Standard orders carry a symbolic name.
type Fq struct {
	order uint128.Uint128
	name  string
}

// Standard field orders.
var (
	// FqM31 is the Mersenne prime 2^31 - 1.
	FqM31 = Fq{order: uint128.From64(1<<31 - 1), name: "M31"}

	// FqF1137119 is the prime 1 + 11*37*2^119.
	FqF1137119 = Fq{order: uint128.New(1, 407<<55), name: "F1137119"}

	// FqF1289 is the prime 2^128 - 9.
	FqF1289 = Fq{order: uint128.Max.Sub64(8), name: "F1289"}
)

// FqOther constructs a custom field order in [1, 2^128 - 1].
func FqOther(order uint128.Uint128) Fq { return Fq{order: order} }

// Order returns the field order as an unsigned 128-bit integer.
func (f Fq) Order() uint128.Uint128 { return f.order }

func (f Fq) String() string {
	if f.name != "" {
		return f.name
	}
	return f.order.String()
}

// ParseFq parses a field order: one of the standard names or a decimal /
// 0x-prefixed hexadecimal number.
func ParseFq(s string) (Fq, error) {
	switch strings.ToUpper(s) {
	case "M31":
		return FqM31, nil
	case "F1137119":
		return FqF1137119, nil
	case "F1289":
		return FqF1289, nil
	}
	val, err := parseU128(s)
	if err != nil {
		return Fq{}, fmt.Errorf("unknown field order %q: %w", s, err)
	}
	if val.IsZero() {
		return Fq{}, fmt.Errorf("field order must be nonzero")
	}
	return FqOther(val), nil
}

func parseU128(s string) (uint128.Uint128, error) {
	base := 10
	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		s = s[2:]
		base = 16
	}
	var val uint128.Uint128
	for _, c := range s {
		var d uint64
		switch {
		case c >= '0' && c <= '9':
			d = uint64(c - '0')
		case base == 16 && c >= 'a' && c <= 'f':
			d = uint64(c-'a') + 10
		case base == 16 && c >= 'A' && c <= 'F':
			d = uint64(c-'A') + 10
		default:
			return uint128.Zero, fmt.Errorf("invalid digit %q", c)
		}
		val = val.MulWrap64(uint64(base)).AddWrap64(d)
	}
	if s == "" {
		return uint128.Zero, fmt.Errorf("empty number")
	}
	return val, nil
}

// Fq returns the field order the core was configured with.
func (c *Core) Fq() Fq { return c.fq }

func u256(v uint128.Uint128) *uint256.Int {
	return &uint256.Int{v.Lo, v.Hi, 0, 0}
}

func u128(v *uint256.Int) uint128.Uint128 {
	return uint128.New(v[0], v[1])
}

// AddMod computes (a + b) mod q over the configured field. Both operands
// must lie strictly below the field order, otherwise the operation fails
// and reports false. The CO flag records whether the raw sum overflowed
// the native 128-bit width.
func (c *Core) AddMod(a, b uint128.Uint128) (uint128.Uint128, bool) {
	order := c.fq.order
	if a.Cmp(order) >= 0 || b.Cmp(order) >= 0 {
		return uint128.Zero, false
	}
	sum := new(uint256.Int).Add(u256(a), u256(b))
	overflow := sum[2] != 0
	res := new(uint256.Int).Mod(sum, u256(order))
	c.SetCo(overflow)
	return u128(res), true
}

// MulMod computes (a * b) mod q over the configured field using a
// full-width 256-bit intermediate product. Both operands must lie
// strictly below the field order. The CO flag records whether the product
// overflowed the native 128-bit width.
func (c *Core) MulMod(a, b uint128.Uint128) (uint128.Uint128, bool) {
	order := c.fq.order
	if a.Cmp(order) >= 0 || b.Cmp(order) >= 0 {
		return uint128.Zero, false
	}
	product := new(uint256.Int).Mul(u256(a), u256(b))
	overflow := product[2] != 0 || product[3] != 0
	res := new(uint256.Int).Mod(product, u256(order))
	c.SetCo(overflow)
	return u128(res), true
}

// NegMod computes (q - a) mod q, the additive inverse over the configured
// field. The operand must lie strictly below the field order.
func (c *Core) NegMod(a uint128.Uint128) (uint128.Uint128, bool) {
	order := c.fq.order
	if a.Cmp(order) >= 0 {
		return uint128.Zero, false
	}
	if a.IsZero() {
		return uint128.Zero, true
	}
	return order.Sub(a), true
}
