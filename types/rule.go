package types

import (
	"fmt"

	"github.com/ChristopherJHart/disnake/errors"
)

func validationf(field, format string, args ...any) error {
	return errors.NewValidation(field, fmt.Sprintf(format, args...))
}

// Rule is a stored moderation policy combining a trigger condition and one or
// more actions. Rules are decoded from server payloads only; to create or
// change one, go through the request façade with a RuleSpec or RuleEdit.
type Rule struct {
	ID               Snowflake       `json:"id"`
	GuildID          Snowflake       `json:"guild_id"`
	Name             string          `json:"name"`
	CreatorID        Snowflake       `json:"creator_id"`
	EventType        EventType       `json:"event_type"`
	TriggerType      TriggerType     `json:"trigger_type"`
	TriggerMetadata  TriggerMetadata `json:"trigger_metadata"`
	Actions          []Action        `json:"actions"`
	Enabled          bool            `json:"enabled"`
	ExemptRoleIDs    []Snowflake     `json:"exempt_roles"`
	ExemptChannelIDs []Snowflake     `json:"exempt_channels"`
}

// RuleSpec describes a rule to be created. All fields are caller-supplied;
// Validate runs locally before any request is issued.
type RuleSpec struct {
	Name             string          `json:"name"`
	EventType        EventType       `json:"event_type"`
	TriggerType      TriggerType     `json:"trigger_type"`
	TriggerMetadata  TriggerMetadata `json:"trigger_metadata"`
	Actions          []Action        `json:"actions"`
	Enabled          bool            `json:"enabled"`
	ExemptRoleIDs    []Snowflake     `json:"exempt_roles,omitempty"`
	ExemptChannelIDs []Snowflake     `json:"exempt_channels,omitempty"`
}

// Service-imposed limits on rule exemptions
const (
	maxExemptRoles    = 20
	maxExemptChannels = 50
)

// Validate checks the spec for local consistency: the trigger metadata
// variant must match the declared trigger type, every action must carry its
// required parameters, and list limits must be respected. Returns a
// ValidationError on the first violation.
func (s RuleSpec) Validate() error {
	if s.Name == "" {
		return validationf("name", "rule name must not be empty")
	}
	if !s.EventType.IsValid() {
		return validationf("event_type", "unknown event type %s", s.EventType)
	}
	if err := s.TriggerMetadata.ValidateFor(s.TriggerType); err != nil {
		return err
	}
	if len(s.Actions) == 0 {
		return validationf("actions", "rule requires at least one action")
	}
	for _, action := range s.Actions {
		if err := action.Validate(); err != nil {
			return err
		}
	}
	if len(s.ExemptRoleIDs) > maxExemptRoles {
		return validationf("exempt_roles", "at most %d exempt roles allowed", maxExemptRoles)
	}
	if len(s.ExemptChannelIDs) > maxExemptChannels {
		return validationf("exempt_channels", "at most %d exempt channels allowed", maxExemptChannels)
	}
	return nil
}

// RuleEdit describes a partial update to an existing rule. Nil fields are
// left unchanged on the server; an explicit empty slice clears a list.
type RuleEdit struct {
	Name             *string          `json:"name,omitempty"`
	EventType        *EventType       `json:"event_type,omitempty"`
	TriggerMetadata  *TriggerMetadata `json:"trigger_metadata,omitempty"`
	Actions          *[]Action        `json:"actions,omitempty"`
	Enabled          *bool            `json:"enabled,omitempty"`
	ExemptRoleIDs    *[]Snowflake     `json:"exempt_roles,omitempty"`
	ExemptChannelIDs *[]Snowflake     `json:"exempt_channels,omitempty"`
}

// Validate checks the populated fields of the edit for local consistency.
// The trigger type of an existing rule cannot change, so metadata edits are
// validated against the trigger type supplied by the caller.
func (e RuleEdit) Validate(triggerType TriggerType) error {
	if e.Name != nil && *e.Name == "" {
		return validationf("name", "rule name must not be empty")
	}
	if e.EventType != nil && !e.EventType.IsValid() {
		return validationf("event_type", "unknown event type %s", *e.EventType)
	}
	if e.TriggerMetadata != nil {
		if err := e.TriggerMetadata.ValidateFor(triggerType); err != nil {
			return err
		}
	}
	if e.Actions != nil {
		for _, action := range *e.Actions {
			if err := action.Validate(); err != nil {
				return err
			}
		}
	}
	if e.ExemptRoleIDs != nil && len(*e.ExemptRoleIDs) > maxExemptRoles {
		return validationf("exempt_roles", "at most %d exempt roles allowed", maxExemptRoles)
	}
	if e.ExemptChannelIDs != nil && len(*e.ExemptChannelIDs) > maxExemptChannels {
		return validationf("exempt_channels", "at most %d exempt channels allowed", maxExemptChannels)
	}
	return nil
}
