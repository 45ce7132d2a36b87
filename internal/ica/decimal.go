package ica

import (
	"fmt"

	"github.com/cockroachdb/apd/v3"
)

// Sub-index formulas are evaluated with 11 significant digits, the weighted
// aggregate with 3. Both round half-up and must stay separate contexts.
var (
	formulaContext   = newContext(11)
	aggregateContext = newContext(3)
)

// storageContext only quantizes values for persistence and reporting.
var storageContext = newContext(15)

func newContext(precision uint32) *apd.Context {
	return &apd.Context{
		Precision:   precision,
		MaxExponent: apd.MaxExponent,
		MinExponent: apd.MinExponent,
		Traps:       apd.DefaultTraps,
		Rounding:    apd.RoundHalfUp,
	}
}

var (
	zero = MustDecimal("0")
	one  = MustDecimal("1")
	ten  = MustDecimal("10")
)

// MustDecimal parses a decimal literal and panics if it is malformed.
// Use it for constants only.
func MustDecimal(s string) *apd.Decimal {
	d, err := ParseDecimal(s)
	if err != nil {
		panic(err)
	}
	return d
}

// ParseDecimal parses a finite decimal value such as "12.5" or "-3e2".
func ParseDecimal(s string) (*apd.Decimal, error) {
	d, _, err := apd.NewFromString(s)
	if err != nil {
		return nil, fmt.Errorf("invalid decimal %q: %w", s, err)
	}
	if d.Form != apd.Finite {
		return nil, fmt.Errorf("invalid decimal %q: not a finite number", s)
	}
	return d, nil
}

// Quantize rounds d half-up to the given number of fractional digits. It is
// used by the storage and reporting layers (3 places for raw values and
// sub-indices, 2 for the composite coefficient).
func Quantize(d *apd.Decimal, places int32) (*apd.Decimal, error) {
	if d == nil {
		return nil, nil
	}
	ctx := storageContext
	// Ratios and raw values are unbounded, so precision grows with the
	// integer digits of d.
	if need := d.NumDigits() + int64(d.Exponent) + int64(places) + 1; need > int64(ctx.Precision) {
		ctx = ctx.WithPrecision(uint32(need))
	}
	out := new(apd.Decimal)
	if _, err := ctx.Quantize(out, d, -places); err != nil {
		return nil, fmt.Errorf("quantize %s to %d places: %w", d.Text('f'), places, err)
	}
	return out, nil
}

// Format renders d in plain notation, or "" when it is absent.
func Format(d *apd.Decimal) string {
	if d == nil {
		return ""
	}
	return d.Text('f')
}

// clone returns a fresh copy so shared constants never leak into results.
func clone(d *apd.Decimal) *apd.Decimal {
	return new(apd.Decimal).Set(d)
}

// calculator evaluates a chain of operations in one context and keeps the
// first error, so formulas read top to bottom.
type calculator struct {
	ctx *apd.Context
	err error
}

func newCalculator(ctx *apd.Context) *calculator {
	return &calculator{ctx: ctx}
}

func (c *calculator) apply(op string, fn func(d *apd.Decimal) (apd.Condition, error)) *apd.Decimal {
	d := new(apd.Decimal)
	if c.err != nil {
		return d
	}
	if _, err := fn(d); err != nil {
		c.err = fmt.Errorf("%s: %w", op, err)
	}
	return d
}

func (c *calculator) add(x, y *apd.Decimal) *apd.Decimal {
	return c.apply("add", func(d *apd.Decimal) (apd.Condition, error) { return c.ctx.Add(d, x, y) })
}

func (c *calculator) sub(x, y *apd.Decimal) *apd.Decimal {
	return c.apply("sub", func(d *apd.Decimal) (apd.Condition, error) { return c.ctx.Sub(d, x, y) })
}

func (c *calculator) mul(x, y *apd.Decimal) *apd.Decimal {
	return c.apply("mul", func(d *apd.Decimal) (apd.Condition, error) { return c.ctx.Mul(d, x, y) })
}

func (c *calculator) quo(x, y *apd.Decimal) *apd.Decimal {
	return c.apply("quo", func(d *apd.Decimal) (apd.Condition, error) { return c.ctx.Quo(d, x, y) })
}

func (c *calculator) exp(x *apd.Decimal) *apd.Decimal {
	return c.apply("exp", func(d *apd.Decimal) (apd.Condition, error) { return c.ctx.Exp(d, x) })
}

func (c *calculator) log10(x *apd.Decimal) *apd.Decimal {
	return c.apply("log10", func(d *apd.Decimal) (apd.Condition, error) { return c.ctx.Log10(d, x) })
}

func (c *calculator) pow(x, y *apd.Decimal) *apd.Decimal {
	return c.apply("pow", func(d *apd.Decimal) (apd.Condition, error) { return c.ctx.Pow(d, x, y) })
}

// result returns d, or the first arithmetic error wrapped with the name of
// the value being computed.
func (c *calculator) result(name string, d *apd.Decimal) (*apd.Decimal, error) {
	if c.err != nil {
		return nil, fmt.Errorf("ica: computing %s: %w", name, c.err)
	}
	return d, nil
}
