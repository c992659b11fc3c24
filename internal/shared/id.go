package shared

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"
)

// ID identifies a stored record. It is a 64-bit integer in the store and
// always crosses the JSON boundary as a decimal string.
type ID int64

// ParseID parses a positive decimal identifier.
func ParseID(raw string) (ID, error) {
	v, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil || v <= 0 {
		return 0, Validation("parse id", fmt.Sprintf("invalid id %q", raw))
	}
	return ID(v), nil
}

// IDPtr returns a pointer to id, or nil for the zero value.
func IDPtr(id ID) *ID {
	if id == 0 {
		return nil
	}
	return &id
}

func (id ID) String() string {
	return strconv.FormatInt(int64(id), 10)
}

// MarshalJSON renders the id as a quoted decimal string.
func (id ID) MarshalJSON() ([]byte, error) {
	return []byte(strconv.Quote(id.String())), nil
}

// UnmarshalJSON accepts both quoted and bare decimal numbers.
func (id *ID) UnmarshalJSON(data []byte) error {
	raw := string(bytes.TrimSpace(data))
	if raw == "null" {
		return nil
	}
	if unquoted, err := strconv.Unquote(raw); err == nil {
		raw = strings.TrimSpace(unquoted)
	}
	if raw == "" {
		*id = 0
		return nil
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return fmt.Errorf("shared: invalid id %s", string(data))
	}
	*id = ID(v)
	return nil
}
