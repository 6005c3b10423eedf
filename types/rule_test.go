package types

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ChristopherJHart/disnake/errors"
)

func validSpec() RuleSpec {
	return RuleSpec{
		Name:            "no slurs",
		EventType:       EventMessageSend,
		TriggerType:     TriggerKeywordPreset,
		TriggerMetadata: TriggerMetadata{Presets: PresetSlurs},
		Actions:         []Action{NewBlockMessageAction("")},
		Enabled:         true,
	}
}

func TestRuleSpec_Validate(t *testing.T) {
	assert.NoError(t, validSpec().Validate())
}

func TestRuleSpec_ValidateFailures(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*RuleSpec)
	}{
		{"empty name", func(s *RuleSpec) { s.Name = "" }},
		{"unknown event type", func(s *RuleSpec) { s.EventType = EventType(9) }},
		{"metadata mismatch", func(s *RuleSpec) { s.TriggerMetadata = TriggerMetadata{KeywordFilter: []string{"x"}} }},
		{"no actions", func(s *RuleSpec) { s.Actions = nil }},
		{"alert without channel", func(s *RuleSpec) { s.Actions = []Action{{Type: ActionSendAlertMessage}} }},
		{"timeout without duration", func(s *RuleSpec) { s.Actions = []Action{{Type: ActionTimeout}} }},
		{"too many exempt roles", func(s *RuleSpec) { s.ExemptRoleIDs = make([]Snowflake, 21) }},
		{"too many exempt channels", func(s *RuleSpec) { s.ExemptChannelIDs = make([]Snowflake, 51) }},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			spec := validSpec()
			tc.mutate(&spec)
			err := spec.Validate()
			require.Error(t, err)
			assert.True(t, errors.IsValidation(err))
		})
	}
}

func TestRuleEdit_Validate(t *testing.T) {
	// Metadata edits are validated against the rule's existing trigger type
	metadata := TriggerMetadata{MentionTotalLimit: 10}
	edit := RuleEdit{TriggerMetadata: &metadata}

	assert.NoError(t, edit.Validate(TriggerMentionSpam))

	err := edit.Validate(TriggerKeyword)
	require.Error(t, err)
	assert.True(t, errors.IsValidation(err))
}

func TestRuleEdit_EmptyIsValid(t *testing.T) {
	// An edit with no populated fields changes nothing and passes validation
	assert.NoError(t, RuleEdit{}.Validate(TriggerSpam))
}

func TestRule_DecodeWirePayload(t *testing.T) {
	// Field names follow the wire shape published by the remote service,
	// with IDs as quoted decimal strings
	payload := `{
		"id": "960811111111111111",
		"guild_id": "123456789012345678",
		"name": "no profanity",
		"creator_id": "42",
		"event_type": 1,
		"trigger_type": 4,
		"trigger_metadata": {"presets": [1, 3], "allow_list": ["heck"]},
		"actions": [
			{"type": 1, "metadata": {"custom_message": "blocked"}},
			{"type": 2, "metadata": {"channel_id": "555"}}
		],
		"enabled": true,
		"exempt_roles": ["1", "2"],
		"exempt_channels": []
	}`

	var rule Rule
	require.NoError(t, json.Unmarshal([]byte(payload), &rule))

	expected := Rule{
		ID:          960811111111111111,
		GuildID:     123456789012345678,
		Name:        "no profanity",
		CreatorID:   42,
		EventType:   EventMessageSend,
		TriggerType: TriggerKeywordPreset,
		TriggerMetadata: TriggerMetadata{
			Presets:   PresetProfanity | PresetSlurs,
			AllowList: []string{"heck"},
		},
		Actions: []Action{
			NewBlockMessageAction("blocked"),
			NewSendAlertAction(555),
		},
		Enabled:          true,
		ExemptRoleIDs:    []Snowflake{1, 2},
		ExemptChannelIDs: []Snowflake{},
	}

	if diff := cmp.Diff(expected, rule); diff != "" {
		t.Errorf("decoded rule mismatch (-want +got):\n%s", diff)
	}
}

func TestAction_Constructors(t *testing.T) {
	timeout := NewTimeoutAction(90 * time.Second)
	assert.Equal(t, ActionTimeout, timeout.Type)
	assert.Equal(t, 90*time.Second, timeout.Duration())

	alert := NewSendAlertAction(777)
	assert.Equal(t, Snowflake(777), alert.Metadata.ChannelID)
	assert.NoError(t, alert.Validate())
}

func TestSnowflake_JSON(t *testing.T) {
	// IDs round-trip through the quoted string wire form
	data, err := json.Marshal(Snowflake(960811111111111111))
	require.NoError(t, err)
	assert.Equal(t, `"960811111111111111"`, string(data))

	var id Snowflake
	require.NoError(t, json.Unmarshal([]byte(`"42"`), &id))
	assert.Equal(t, Snowflake(42), id)

	// Bare numbers and null are tolerated
	require.NoError(t, json.Unmarshal([]byte(`42`), &id))
	assert.Equal(t, Snowflake(42), id)
	require.NoError(t, json.Unmarshal([]byte(`null`), &id))
	assert.True(t, id.IsZero())

	// Non-numeric strings are a decoding error
	err = json.Unmarshal([]byte(`"abc"`), &id)
	require.Error(t, err)
	assert.True(t, errors.IsDecoding(err))
}
