// Package fixedpoint implements unsigned 18-decimal fixed-point numbers and
// 256-bit token amounts with explicit overflow errors.
package fixedpoint

import (
	"encoding/json"
	"fmt"

	"github.com/holiman/uint256"
	"github.com/shopspring/decimal"
)

// Precision is the number of fractional digits carried by a Decimal.
const Precision = 18

var (
	fractional        = uint256.MustFromDecimal("1000000000000000000")
	fractionalSquared = uint256.MustFromDecimal("1000000000000000000000000000000000000")
	bpsDenominator    = uint256.NewInt(10_000)
)

// Decimal is a non-negative number stored as atomics / 10^18.
type Decimal struct {
	atomics uint256.Int
}

func Zero() Decimal {
	return Decimal{}
}

func One() Decimal {
	return DecimalFromAtomics(fractional)
}

func DecimalFromAtomics(atomics *uint256.Int) Decimal {
	var d Decimal
	if atomics != nil {
		d.atomics.Set(atomics)
	}
	return d
}

// DecimalFromBps returns bps / 10000.
func DecimalFromBps(bps uint32) Decimal {
	var d Decimal
	d.atomics.Mul(uint256.NewInt(uint64(bps)), fractional)
	d.atomics.Div(&d.atomics, bpsDenominator)
	return d
}

// DecimalFromRatio returns floor(num * 10^18 / den).
func DecimalFromRatio(num, den uint64) (Decimal, error) {
	if den == 0 {
		return Decimal{}, ErrDivideByZero
	}
	var d Decimal
	d.atomics.MulDivOverflow(uint256.NewInt(num), fractional, uint256.NewInt(den))
	return d, nil
}

// ParseDecimal accepts plain decimal notation with at most 18 fractional digits.
func ParseDecimal(s string) (Decimal, error) {
	parsed, err := decimal.NewFromString(s)
	if err != nil {
		return Decimal{}, fmt.Errorf("invalid decimal %q: %w", s, err)
	}
	if parsed.IsNegative() {
		return Decimal{}, fmt.Errorf("invalid decimal %q: must not be negative", s)
	}
	if -parsed.Exponent() > Precision {
		return Decimal{}, fmt.Errorf(
			"invalid decimal %q: more than %d fractional digits", s, Precision,
		)
	}

	atomics, overflow := uint256.FromBig(parsed.Shift(Precision).BigInt())
	if overflow {
		return Decimal{}, fmt.Errorf("invalid decimal %q: %w", s, ErrOverflow)
	}
	return DecimalFromAtomics(atomics), nil
}

func MustParseDecimal(s string) Decimal {
	d, err := ParseDecimal(s)
	if err != nil {
		panic(err)
	}
	return d
}

func (d Decimal) Atomics() *uint256.Int {
	return new(uint256.Int).Set(&d.atomics)
}

func (d Decimal) IsZero() bool {
	return d.atomics.IsZero()
}

func (d Decimal) Equal(o Decimal) bool {
	return d.atomics.Eq(&o.atomics)
}

func (d Decimal) Cmp(o Decimal) int {
	return d.atomics.Cmp(&o.atomics)
}

// Inv returns floor(10^36 / atomics) as atomics, i.e. 1/d truncated to 18 decimals.
func (d Decimal) Inv() (Decimal, error) {
	if d.IsZero() {
		return Decimal{}, ErrDivideByZero
	}
	var out Decimal
	out.atomics.Div(fractionalSquared, &d.atomics)
	return out, nil
}

// MulFloor returns floor(amount * d).
func (d Decimal) MulFloor(amount Amount) (Amount, error) {
	var out Amount
	if _, overflow := out.v.MulDivOverflow(&amount.v, &d.atomics, fractional); overflow {
		return Amount{}, ErrOverflow
	}
	return out, nil
}

func (d Decimal) String() string {
	return decimal.NewFromBigInt(d.atomics.ToBig(), -Precision).String()
}

func (d Decimal) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

func (d *Decimal) UnmarshalJSON(buf []byte) error {
	var s string
	if err := json.Unmarshal(buf, &s); err != nil {
		return err
	}
	parsed, err := ParseDecimal(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}
