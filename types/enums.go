package types

import "fmt"

// Enumerations below are closed sets as published by the remote service.
// Unrecognized values are preserved as-is so payloads from newer API
// revisions survive a decode/encode round trip; String() renders them as
// "unknown(N)" and IsValid() reports false.

// TriggerType is the condition that determines whether a rule's actions
// should run for a specific event.
type TriggerType int

const (
	// TriggerKeyword matches message content against a configured word list
	TriggerKeyword TriggerType = 1
	// TriggerSpam matches content flagged by the service's spam heuristics
	TriggerSpam TriggerType = 3
	// TriggerKeywordPreset matches against service-maintained word lists
	TriggerKeywordPreset TriggerType = 4
	// TriggerMentionSpam matches messages exceeding a mention limit
	TriggerMentionSpam TriggerType = 5
	// TriggerMemberProfile matches words in a member's profile
	TriggerMemberProfile TriggerType = 6
)

// IsValid reports whether the value is a known trigger type
func (t TriggerType) IsValid() bool {
	switch t {
	case TriggerKeyword, TriggerSpam, TriggerKeywordPreset, TriggerMentionSpam, TriggerMemberProfile:
		return true
	default:
		return false
	}
}

// String returns the string representation of TriggerType
func (t TriggerType) String() string {
	switch t {
	case TriggerKeyword:
		return "keyword"
	case TriggerSpam:
		return "spam"
	case TriggerKeywordPreset:
		return "keyword_preset"
	case TriggerMentionSpam:
		return "mention_spam"
	case TriggerMemberProfile:
		return "member_profile"
	default:
		return fmt.Sprintf("unknown(%d)", int(t))
	}
}

// EventType is the kind of activity a rule is checked against.
type EventType int

const (
	// EventMessageSend checks rules when a member sends or edits a message
	EventMessageSend EventType = 1
	// EventMemberUpdate checks rules when a member edits their profile
	EventMemberUpdate EventType = 2
)

// IsValid reports whether the value is a known event type
func (e EventType) IsValid() bool {
	return e == EventMessageSend || e == EventMemberUpdate
}

// String returns the string representation of EventType
func (e EventType) String() string {
	switch e {
	case EventMessageSend:
		return "message_send"
	case EventMemberUpdate:
		return "member_update"
	default:
		return fmt.Sprintf("unknown(%d)", int(e))
	}
}

// ActionType is the effect executed when a rule's trigger fires.
type ActionType int

const (
	// ActionBlockMessage blocks the content from being sent
	ActionBlockMessage ActionType = 1
	// ActionSendAlertMessage logs the matched content to a given channel
	ActionSendAlertMessage ActionType = 2
	// ActionTimeout times out the member for a given duration
	ActionTimeout ActionType = 3
	// ActionBlockMemberInteraction prevents the member from interacting
	// until their profile is updated
	ActionBlockMemberInteraction ActionType = 4
)

// IsValid reports whether the value is a known action type
func (a ActionType) IsValid() bool {
	switch a {
	case ActionBlockMessage, ActionSendAlertMessage, ActionTimeout, ActionBlockMemberInteraction:
		return true
	default:
		return false
	}
}

// String returns the string representation of ActionType
func (a ActionType) String() string {
	switch a {
	case ActionBlockMessage:
		return "block_message"
	case ActionSendAlertMessage:
		return "send_alert_message"
	case ActionTimeout:
		return "timeout"
	case ActionBlockMemberInteraction:
		return "block_member_interaction"
	default:
		return fmt.Sprintf("unknown(%d)", int(a))
	}
}
