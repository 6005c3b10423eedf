// Package types defines the entity model for the auto-moderation API:
// rules, actions, trigger metadata, execution events, and the enum and flag
// types used by their fields. Entities are pure data containers decoded from
// server payloads; application code never mutates them in place.
package types

import (
	"bytes"
	"strconv"

	"github.com/ChristopherJHart/disnake/errors"
)

// Snowflake is a unique entity ID. The remote service serializes IDs as
// decimal strings to avoid precision loss in JSON consumers, so the wire
// form is always a quoted string even though the value is a uint64.
type Snowflake uint64

// String returns the decimal representation of the ID
func (s Snowflake) String() string {
	return strconv.FormatUint(uint64(s), 10)
}

// IsZero reports whether the ID is unset
func (s Snowflake) IsZero() bool {
	return s == 0
}

// MarshalJSON implements json.Marshaler, emitting a quoted decimal string
func (s Snowflake) MarshalJSON() ([]byte, error) {
	return []byte(`"` + s.String() + `"`), nil
}

// UnmarshalJSON implements json.Unmarshaler. It accepts both quoted strings
// and bare numbers, and treats null as the zero ID.
func (s *Snowflake) UnmarshalJSON(data []byte) error {
	if bytes.Equal(data, []byte("null")) {
		*s = 0
		return nil
	}
	raw := string(bytes.Trim(data, `"`))
	v, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return errors.NewDecoding("snowflake", raw, err)
	}
	*s = Snowflake(v)
	return nil
}

// ParseSnowflake parses a decimal string into a Snowflake
func ParseSnowflake(raw string) (Snowflake, error) {
	v, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return 0, errors.NewDecoding("snowflake", raw, err)
	}
	return Snowflake(v), nil
}
