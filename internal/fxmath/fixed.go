// Package fxmath implements deterministic, integer-only fixed-point
// arithmetic for the LMSR cost function and basis-point fee math. Every
// value is scaled by Scale (the mint's 6-decimal convention) and backed by
// math/big so the checked operations can enforce a signed-128-bit
// representable window without ever touching a float. Results are bit-for-bit
// reproducible across platforms, which is the whole point: this package sits
// on every consensus-relevant path in the LMSR market engine.
package fxmath

import (
	"errors"
	"math/big"
)

// Scale is the fixed-point scaling factor, matching the mint's 6-decimal
// convention used throughout the stream and market ledgers.
const Scale = 1_000_000

var (
	// ErrOverflow is returned by any checked operation whose result would
	// escape the representable signed-128-bit window.
	ErrOverflow = errors.New("fxmath: arithmetic overflow")
	// ErrDivByZero is returned by CheckedDiv when the divisor is zero.
	ErrDivByZero = errors.New("fxmath: division by zero")
	// ErrDomain is returned by LnFixed for non-positive input.
	ErrDomain = errors.New("fxmath: input outside function domain")
)

var (
	one      = big.NewInt(1)
	two      = big.NewInt(2)
	scaleBig = big.NewInt(Scale)
	bpsBase  = big.NewInt(10_000)

	// minRepr/maxRepr bound every Fixed value to the signed-128-bit range
	// required by the spec, even though the backing big.Int is unbounded.
	minRepr = new(big.Int).Neg(new(big.Int).Lsh(one, 127))
	maxRepr = new(big.Int).Sub(new(big.Int).Lsh(one, 127), one)
)

// Fixed is a signed fixed-point number, scaled by Scale and checked against
// the signed-128-bit representable window on every arithmetic operation.
type Fixed struct {
	v *big.Int
}

// Zero returns the additive identity.
func Zero() Fixed { return Fixed{v: big.NewInt(0)} }

// FromInt64 builds a Fixed representing the integer n (i.e. n.0).
func FromInt64(n int64) Fixed {
	return Fixed{v: new(big.Int).Mul(big.NewInt(n), scaleBig)}
}

// FromRaw builds a Fixed from an already-scaled raw value (value * Scale).
// The caller owns raw; FromRaw copies it.
func FromRaw(raw *big.Int) Fixed {
	return Fixed{v: new(big.Int).Set(raw)}
}

// Raw returns a copy of the underlying scaled integer.
func (f Fixed) Raw() *big.Int { return new(big.Int).Set(f.v) }

// IsZero reports whether f represents exactly zero.
func (f Fixed) IsZero() bool { return f.v.Sign() == 0 }

// Sign returns -1, 0, or 1 matching the sign of f.
func (f Fixed) Sign() int { return f.v.Sign() }

// Cmp compares f to o the way big.Int.Cmp does.
func (f Fixed) Cmp(o Fixed) int { return f.v.Cmp(o.v) }

// Neg returns -f.
func (f Fixed) Neg() Fixed { return Fixed{v: new(big.Int).Neg(f.v)} }

// String renders f as a decimal string with Scale's implied precision. A
// zero-value Fixed (no CheckedXxx/FromInt64/FromRaw call behind it) renders
// as "0.000000", matching how Value() treats a nil backing int.
func (f Fixed) String() string {
	if f.v == nil {
		return Zero().String()
	}
	r := new(big.Rat).SetFrac(f.v, scaleBig)
	return r.FloatString(6)
}

// FromString parses a decimal string (e.g. "12.5", "-0.000001") the way
// shopspring/decimal.NewFromString does, scaling it into a Fixed. Used at
// every API boundary where an amount arrives as JSON text rather than a
// pre-scaled integer, so a client never needs to know the fixed-point scale.
func FromString(s string) (Fixed, error) {
	r, ok := new(big.Rat).SetString(s)
	if !ok {
		return Fixed{}, errors.New("fxmath: invalid decimal string")
	}
	scaled := new(big.Int).Mul(r.Num(), scaleBig)
	scaled.Quo(scaled, r.Denom())
	if !inRange(scaled) {
		return Fixed{}, ErrOverflow
	}
	return Fixed{v: scaled}, nil
}

// MarshalJSON renders f as a quoted decimal string, matching how the
// teacher's shopspring/decimal amounts serialize over the wire.
func (f Fixed) MarshalJSON() ([]byte, error) {
	return []byte(`"` + f.String() + `"`), nil
}

// UnmarshalJSON parses a quoted decimal string produced by MarshalJSON (or
// supplied by a client) back into a Fixed.
func (f *Fixed) UnmarshalJSON(data []byte) error {
	s := string(data)
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		s = s[1 : len(s)-1]
	}
	parsed, err := FromString(s)
	if err != nil {
		return err
	}
	*f = parsed
	return nil
}

func inRange(v *big.Int) bool {
	return v.Cmp(minRepr) >= 0 && v.Cmp(maxRepr) <= 0
}

// rawOrZero returns f's backing int, reading a zero-value Fixed as 0 the way
// String() and Value() do, so the checked operations accept it as an operand.
func rawOrZero(f Fixed) *big.Int {
	if f.v == nil {
		return new(big.Int)
	}
	return f.v
}

// CheckedAdd returns a+b, or ErrOverflow if the sum escapes the
// representable window.
func CheckedAdd(a, b Fixed) (Fixed, error) {
	r := new(big.Int).Add(rawOrZero(a), rawOrZero(b))
	if !inRange(r) {
		return Fixed{}, ErrOverflow
	}
	return Fixed{v: r}, nil
}

// CheckedSub returns a-b, or ErrOverflow if the difference escapes the
// representable window.
func CheckedSub(a, b Fixed) (Fixed, error) {
	r := new(big.Int).Sub(rawOrZero(a), rawOrZero(b))
	if !inRange(r) {
		return Fixed{}, ErrOverflow
	}
	return Fixed{v: r}, nil
}

// CheckedMul returns a*b truncated toward zero at Scale precision, or
// ErrOverflow if the product escapes the representable window.
func CheckedMul(a, b Fixed) (Fixed, error) {
	prod := new(big.Int).Mul(rawOrZero(a), rawOrZero(b))
	q := new(big.Int).Quo(prod, scaleBig)
	if !inRange(q) {
		return Fixed{}, ErrOverflow
	}
	return Fixed{v: q}, nil
}

// CheckedDiv returns a/b truncated toward zero at Scale precision, or
// ErrDivByZero / ErrOverflow as appropriate.
func CheckedDiv(a, b Fixed) (Fixed, error) {
	if rawOrZero(b).Sign() == 0 {
		return Fixed{}, ErrDivByZero
	}
	num := new(big.Int).Mul(rawOrZero(a), scaleBig)
	q := new(big.Int).Quo(num, b.v)
	if !inRange(q) {
		return Fixed{}, ErrOverflow
	}
	return Fixed{v: q}, nil
}

// divInt divides the raw value by a plain (unscaled) positive integer,
// truncating toward zero. Used internally by the Taylor series evaluators
// where the divisor is a term index, not a Fixed quantity.
func divInt(f Fixed, n int64) Fixed {
	return Fixed{v: new(big.Int).Quo(f.v, big.NewInt(n))}
}

// ApplyBPS computes amount * bps / 10_000, truncated toward zero, matching
// the spec's apply_bps contract. bps must be in [0, 10_000].
func ApplyBPS(amount Fixed, bps int64) (Fixed, error) {
	if bps < 0 || bps > 10_000 {
		return Fixed{}, ErrDomain
	}
	num := new(big.Int).Mul(amount.v, big.NewInt(bps))
	q := new(big.Int).Quo(num, bpsBase)
	if !inRange(q) {
		return Fixed{}, ErrOverflow
	}
	return Fixed{v: q}, nil
}
