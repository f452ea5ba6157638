package fxmath

import (
	"database/sql/driver"
	"fmt"
	"math/big"
)

// Value implements driver.Valuer so a Fixed can be written directly into a
// NUMERIC column — persisted as its exact decimal string, never a float.
func (f Fixed) Value() (driver.Value, error) {
	if f.v == nil {
		return "0", nil
	}
	return f.String(), nil
}

// Scan implements sql.Scanner, reading a NUMERIC column back into a Fixed.
// Accepts the driver's string or []byte representation.
func (f *Fixed) Scan(src any) error {
	var s string
	switch v := src.(type) {
	case nil:
		*f = Zero()
		return nil
	case string:
		s = v
	case []byte:
		s = string(v)
	case float64:
		s = fmt.Sprintf("%f", v)
	default:
		return fmt.Errorf("fxmath: cannot scan %T into Fixed", src)
	}

	r, ok := new(big.Rat).SetString(s)
	if !ok {
		return fmt.Errorf("fxmath: invalid numeric literal %q", s)
	}
	num := new(big.Int).Mul(r.Num(), scaleBig)
	raw := new(big.Int).Quo(num, r.Denom())
	if !inRange(raw) {
		return ErrOverflow
	}
	*f = Fixed{v: raw}
	return nil
}
