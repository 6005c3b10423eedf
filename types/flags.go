package types

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/ChristopherJHart/disnake/errors"
)

// KeywordPresets is a bitmask-backed set of service-maintained keyword
// categories. The wire form is a list of preset values; locally each value N
// occupies bit 1<<(N-1) so set operations and round trips stay lossless.
type KeywordPresets uint64

const (
	// PresetProfanity matches words that may be considered swearing or cursing
	PresetProfanity KeywordPresets = 1 << 0
	// PresetSexualContent matches words that refer to sexually explicit behavior
	PresetSexualContent KeywordPresets = 1 << 1
	// PresetSlurs matches personal insults and words that may be considered slurs
	PresetSlurs KeywordPresets = 1 << 2

	presetsAll = PresetProfanity | PresetSexualContent | PresetSlurs
)

// KeywordPresetsFromInt converts a raw bitmask into a KeywordPresets set.
// Bits outside the known categories are a decoding error.
func KeywordPresetsFromInt(raw uint64) (KeywordPresets, error) {
	if raw&^uint64(presetsAll) != 0 {
		return 0, errors.NewDecoding("presets", raw,
			fmt.Errorf("bitmask 0b%b has bits outside known categories", raw))
	}
	return KeywordPresets(raw), nil
}

// KeywordPresetsFromValues builds a set from wire preset values (1-based)
func KeywordPresetsFromValues(values []int) (KeywordPresets, error) {
	var p KeywordPresets
	for _, v := range values {
		if v < 1 || v > 64 {
			return 0, errors.NewDecoding("presets", v, fmt.Errorf("preset value out of range"))
		}
		bit := KeywordPresets(1) << (v - 1)
		if bit&^presetsAll != 0 {
			return 0, errors.NewDecoding("presets", v, fmt.Errorf("unknown preset value"))
		}
		p |= bit
	}
	return p, nil
}

// Int returns the underlying bitmask
func (p KeywordPresets) Int() uint64 {
	return uint64(p)
}

// Values returns the wire form: the 1-based preset value for each set bit
func (p KeywordPresets) Values() []int {
	values := make([]int, 0, 3)
	for v := 1; v <= 64; v++ {
		if p&(1<<(v-1)) != 0 {
			values = append(values, v)
		}
	}
	return values
}

// Has reports whether every category in other is present in the set
func (p KeywordPresets) Has(other KeywordPresets) bool {
	return p&other == other
}

// Add returns a new set with the given categories added
func (p KeywordPresets) Add(other KeywordPresets) KeywordPresets {
	return p | other
}

// Remove returns a new set with the given categories removed
func (p KeywordPresets) Remove(other KeywordPresets) KeywordPresets {
	return p &^ other
}

// Union returns the categories present in either set
func (p KeywordPresets) Union(other KeywordPresets) KeywordPresets {
	return p | other
}

// Intersect returns the categories present in both sets
func (p KeywordPresets) Intersect(other KeywordPresets) KeywordPresets {
	return p & other
}

// IsValid reports whether all set bits map to known categories
func (p KeywordPresets) IsValid() bool {
	return p&^presetsAll == 0
}

// String returns a readable listing of the set categories
func (p KeywordPresets) String() string {
	if p == 0 {
		return "none"
	}
	names := make([]string, 0, 3)
	if p.Has(PresetProfanity) {
		names = append(names, "profanity")
	}
	if p.Has(PresetSexualContent) {
		names = append(names, "sexual_content")
	}
	if p.Has(PresetSlurs) {
		names = append(names, "slurs")
	}
	if extra := p &^ presetsAll; extra != 0 {
		names = append(names, fmt.Sprintf("unknown(0b%b)", uint64(extra)))
	}
	return strings.Join(names, "|")
}

// MarshalJSON implements json.Marshaler, emitting the wire value list
func (p KeywordPresets) MarshalJSON() ([]byte, error) {
	return json.Marshal(p.Values())
}

// UnmarshalJSON implements json.Unmarshaler, reading the wire value list
func (p *KeywordPresets) UnmarshalJSON(data []byte) error {
	var values []int
	if err := json.Unmarshal(data, &values); err != nil {
		return errors.NewDecoding("presets", string(data), err)
	}
	parsed, err := KeywordPresetsFromValues(values)
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}
