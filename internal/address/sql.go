package address

import (
	"database/sql/driver"
	"encoding/hex"
	"fmt"
)

// Value implements driver.Valuer, persisting an ID as lowercase hex text so
// it reads naturally in a psql session without a bytea escape dance.
func (id ID) Value() (driver.Value, error) {
	return id.String(), nil
}

// Scan implements sql.Scanner, reading a hex-encoded identity column back
// into an ID.
func (id *ID) Scan(src any) error {
	var s string
	switch v := src.(type) {
	case nil:
		*id = ID{}
		return nil
	case string:
		s = v
	case []byte:
		s = string(v)
	default:
		return fmt.Errorf("address: cannot scan %T into ID", src)
	}
	decoded, err := hex.DecodeString(s)
	if err != nil {
		return fmt.Errorf("address: invalid hex identity %q: %w", s, err)
	}
	if len(decoded) != len(id) {
		return fmt.Errorf("address: identity %q has length %d, want %d", s, len(decoded), len(id))
	}
	copy(id[:], decoded)
	return nil
}
