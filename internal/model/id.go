package model

import (
	"bytes"
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strconv"
)

// ID is the identifier of a persona. The zero value stands for a persona that has not been stored
// yet and is rendered as JSON null.
type ID struct {
	value int64
	set   bool
}

// NewID returns an identifier holding the specified value.
func NewID(value int64) ID {
	return ID{value: value, set: true}
}

// Get returns the value and whether one is present.
func (id ID) Get() (int64, bool) {
	return id.value, id.set
}

// Int64 returns the value, or 0 if the persona has not been stored.
func (id ID) Int64() int64 {
	return id.value
}

// IsSet returns true once the store has assigned the identifier.
func (id ID) IsSet() bool {
	return id.set
}

func (id ID) String() string {
	if !id.set {
		return "<none>"
	}
	return strconv.FormatInt(id.value, 10)
}

// MarshalJSON renders an unset identifier as null.
func (id ID) MarshalJSON() ([]byte, error) {
	if !id.set {
		return []byte("null"), nil
	}
	return []byte(strconv.FormatInt(id.value, 10)), nil
}

// UnmarshalJSON accepts a number or null.
func (id *ID) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		*id = ID{}
		return nil
	}
	var v int64
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("invalid id: %w", err)
	}
	*id = NewID(v)
	return nil
}

// Scan implements sql.Scanner.
func (id *ID) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*id = ID{}
	case int64:
		*id = NewID(v)
	case int32:
		*id = NewID(int64(v))
	case int:
		*id = NewID(int64(v))
	case []byte:
		n, err := strconv.ParseInt(string(v), 10, 64)
		if err != nil {
			return fmt.Errorf("cannot scan %q into ID: %w", v, err)
		}
		*id = NewID(n)
	default:
		return fmt.Errorf("cannot scan %T into ID", src)
	}
	return nil
}

// Value implements driver.Valuer.
func (id ID) Value() (driver.Value, error) {
	if !id.set {
		return nil, nil
	}
	return id.value, nil
}
