package model

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
)

// StringSlice is a helper type for storing []string as JSONB.
type StringSlice []string

func (s StringSlice) Value() (driver.Value, error) {
	if s == nil {
		return "[]", nil
	}
	b, err := json.Marshal(s)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (s *StringSlice) Scan(value interface{}) error {
	var raw []byte
	switch v := value.(type) {
	case nil:
		*s = nil
		return nil
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return errors.New("StringSlice.Scan: unsupported source type")
	}
	if len(raw) == 0 {
		*s = nil
		return nil
	}
	return json.Unmarshal(raw, s)
}

// Clone returns a copy that does not share the backing array.
func (s StringSlice) Clone() StringSlice {
	if s == nil {
		return nil
	}
	out := make(StringSlice, len(s))
	copy(out, s)
	return out
}
