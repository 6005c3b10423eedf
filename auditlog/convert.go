package auditlog

import (
	"encoding/json"
	"fmt"

	"github.com/ChristopherJHart/disnake/types"
)

// converterFunc converts one side of a raw change record into its typed form
type converterFunc func(json.RawMessage) (any, error)

// converters is the static per-field conversion table. It is the single
// extension point for new attribute names: register a converter here and
// every decoded diff picks it up. Keys absent from the table pass through
// as raw decoded JSON.
var converters = map[string]converterFunc{
	"name":             jsonConverter[string](),
	"enabled":          jsonConverter[bool](),
	"trigger_type":     jsonConverter[types.TriggerType](),
	"event_type":       jsonConverter[types.EventType](),
	"actions":          jsonConverter[[]types.Action](),
	"trigger_metadata": jsonConverter[types.TriggerMetadata](),
	"exempt_roles":     jsonConverter[[]types.Snowflake](),
	"exempt_channels":  jsonConverter[[]types.Snowflake](),
	"presets":          convertPresets,
	"emoji":            jsonConverter[string](),

	// Partial keyword-list updates on rule edits
	"$add_keyword_filter":    jsonConverter[[]string](),
	"$remove_keyword_filter": jsonConverter[[]string](),
}

// keyAliases routes legacy attribute names to their current ones. The
// service renamed unicode_emoji to emoji once the field was documented;
// both spellings decode to the emoji attribute.
var keyAliases = map[string]string{
	"unicode_emoji": "emoji",
}

// canonicalKey resolves a wire attribute name to its canonical form
func canonicalKey(key string) string {
	if canonical, ok := keyAliases[key]; ok {
		return canonical
	}
	return key
}

// jsonConverter builds a converter that unmarshals into T
func jsonConverter[T any]() converterFunc {
	return func(raw json.RawMessage) (any, error) {
		var v T
		if err := json.Unmarshal(raw, &v); err != nil {
			return nil, err
		}
		return v, nil
	}
}

// rawConverter passes an unrecognized value through as plain decoded JSON
func rawConverter(raw json.RawMessage) (any, error) {
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, err
	}
	return v, nil
}

// convertPresets decodes a keyword-preset flag set. Audit entries carry the
// field either as the wire value list or as an integer bitmask; both forms
// must land in range or the field is rejected.
func convertPresets(raw json.RawMessage) (any, error) {
	var mask uint64
	if err := json.Unmarshal(raw, &mask); err == nil {
		return types.KeywordPresetsFromInt(mask)
	}

	var values []int
	if err := json.Unmarshal(raw, &values); err != nil {
		return nil, fmt.Errorf("presets value is neither a bitmask nor a value list")
	}
	return types.KeywordPresetsFromValues(values)
}
