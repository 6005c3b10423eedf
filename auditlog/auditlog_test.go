package auditlog

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ChristopherJHart/disnake/errors"
	"github.com/ChristopherJHart/disnake/types"
)

func TestDecodeEntry_TypedConversions(t *testing.T) {
	// Known attribute names decode through the conversion table into typed values
	payload := `{
		"id": "1",
		"guild_id": "2",
		"target_id": "3",
		"user_id": "4",
		"action_type": 141,
		"reason": "tightening filters",
		"changes": [
			{"key": "name", "old_value": "old rule", "new_value": "new rule"},
			{"key": "enabled", "old_value": false, "new_value": true},
			{"key": "trigger_type", "new_value": 4},
			{"key": "presets", "old_value": [1], "new_value": [1, 3]},
			{"key": "exempt_roles", "new_value": ["10", "11"]}
		]
	}`

	entry, err := DecodeEntry([]byte(payload))
	require.NoError(t, err)

	assert.Equal(t, types.Snowflake(1), entry.ID)
	assert.Equal(t, EntryRuleUpdate, entry.Action)
	assert.Equal(t, "tightening filters", entry.Reason)
	assert.Empty(t, entry.Diff.FieldErrors)

	assert.Equal(t, "old rule", entry.Diff.Before["name"])
	assert.Equal(t, "new rule", entry.Diff.After["name"])
	assert.Equal(t, false, entry.Diff.Before["enabled"])
	assert.Equal(t, true, entry.Diff.After["enabled"])
	assert.Equal(t, types.TriggerKeywordPreset, entry.Diff.After["trigger_type"])
	assert.Equal(t, types.PresetProfanity, entry.Diff.Before["presets"])
	assert.Equal(t, types.PresetProfanity|types.PresetSlurs, entry.Diff.After["presets"])
	assert.Equal(t, []types.Snowflake{10, 11}, entry.Diff.After["exempt_roles"])

	// One-sided changes leave the other side absent
	_, hasBefore := entry.Diff.Before["trigger_type"]
	assert.False(t, hasBefore)
}

func TestDecodeEntry_UnknownKeyPassthrough(t *testing.T) {
	// Attribute names without a registered converter survive as raw JSON
	// values rather than failing the decode
	payload := `{
		"id": "1",
		"action_type": 140,
		"changes": [
			{"key": "shiny_new_field", "new_value": {"nested": [1, 2]}}
		]
	}`

	entry, err := DecodeEntry([]byte(payload))
	require.NoError(t, err)
	assert.Empty(t, entry.Diff.FieldErrors)

	value, ok := entry.Diff.After["shiny_new_field"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, []any{float64(1), float64(2)}, value["nested"])
}

func TestDecodeEntry_FieldErrorIsolation(t *testing.T) {
	// A converter failure on one attribute must not take down its siblings
	payload := `{
		"id": "1",
		"action_type": 141,
		"changes": [
			{"key": "presets", "new_value": 4096},
			{"key": "name", "new_value": "still here"}
		]
	}`

	entry, err := DecodeEntry([]byte(payload))
	require.NoError(t, err)

	require.Contains(t, entry.Diff.FieldErrors, "presets")
	assert.True(t, errors.IsDecoding(entry.Diff.FieldErrors["presets"]))
	_, present := entry.Diff.After["presets"]
	assert.False(t, present)

	assert.Equal(t, "still here", entry.Diff.After["name"])
}

func TestDecodeEntry_EmojiAlias(t *testing.T) {
	// Both spellings of the renamed attribute land under the canonical name
	for _, key := range []string{"unicode_emoji", "emoji"} {
		payload := `{
			"id": "1",
			"action_type": 141,
			"changes": [{"key": "` + key + `", "new_value": "😱"}]
		}`

		entry, err := DecodeEntry([]byte(payload))
		require.NoError(t, err)
		assert.Equal(t, "\U0001f631", entry.Diff.After["emoji"], "wire key %s", key)
		assert.NotContains(t, entry.Diff.After, "unicode_emoji")
	}
}

func TestDecodeEntry_MalformedEnvelope(t *testing.T) {
	// Envelope problems are decode errors, unlike per-field problems
	_, err := DecodeEntry([]byte(`{"id": "1", "changes": "not a list"}`))
	require.Error(t, err)
	assert.True(t, errors.IsInvalid(err))
}

func TestDecodeEntry_PresetsBitmaskForm(t *testing.T) {
	// Older entries carry presets as an integer bitmask instead of a list
	payload := `{
		"id": "1",
		"action_type": 140,
		"changes": [{"key": "presets", "new_value": 5}]
	}`

	entry, err := DecodeEntry([]byte(payload))
	require.NoError(t, err)
	assert.Equal(t, types.PresetProfanity|types.PresetSlurs, entry.Diff.After["presets"])
}

func TestDecodeEntry_ValuelessChangeStaysVisible(t *testing.T) {
	// A change record naming a key without either value must still appear in
	// the diff; the server reported the attribute as changed
	payload := `{
		"id": "1",
		"action_type": 141,
		"changes": [
			{"key": "enabled"},
			{"key": "name", "new_value": "kept"}
		]
	}`

	entry, err := DecodeEntry([]byte(payload))
	require.NoError(t, err)
	assert.Empty(t, entry.Diff.FieldErrors)

	assert.ElementsMatch(t, []string{"enabled", "name"}, entry.Diff.Changed())
	value, present := entry.Diff.After["enabled"]
	assert.True(t, present)
	assert.Nil(t, value)
}

func TestDiff_Changed(t *testing.T) {
	diff := Diff{
		Before:      map[string]any{"name": "a"},
		After:       map[string]any{"name": "b", "enabled": true},
		FieldErrors: map[string]error{"presets": errors.NewDecoding("presets", "4096", nil)},
	}

	assert.ElementsMatch(t, []string{"name", "enabled", "presets"}, diff.Changed())
}

func TestEntryAction_String(t *testing.T) {
	assert.Equal(t, "rule_create", EntryRuleCreate.String())
	assert.Equal(t, "rule_delete", EntryRuleDelete.String())
	assert.Equal(t, "unknown(999)", EntryAction(999).String())
}
