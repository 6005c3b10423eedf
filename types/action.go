package types

import (
	"time"

	"github.com/ChristopherJHart/disnake/errors"
)

// ActionMetadata carries the action-specific parameters of an Action.
// Only the fields relevant to the action's type are populated.
type ActionMetadata struct {
	// ChannelID is the channel to send an alert in (send_alert_message)
	ChannelID Snowflake `json:"channel_id,omitempty"`
	// DurationSeconds is how long to time out the member (timeout)
	DurationSeconds int `json:"duration_seconds,omitempty"`
	// CustomMessage is shown to the member when their message is blocked
	// (block_message)
	CustomMessage string `json:"custom_message,omitempty"`
}

// Action is the effect executed when a rule's trigger fires. It is a typed
// union over the known action kinds; use the New*Action constructors rather
// than filling in the struct by hand. An Action is owned by exactly one Rule.
type Action struct {
	Type     ActionType     `json:"type"`
	Metadata ActionMetadata `json:"metadata,omitempty"`
}

// NewBlockMessageAction creates an action that blocks matching content.
// customMessage is optional and shown to the member when triggered.
func NewBlockMessageAction(customMessage string) Action {
	return Action{
		Type:     ActionBlockMessage,
		Metadata: ActionMetadata{CustomMessage: customMessage},
	}
}

// NewSendAlertAction creates an action that logs matched content to a channel
func NewSendAlertAction(channelID Snowflake) Action {
	return Action{
		Type:     ActionSendAlertMessage,
		Metadata: ActionMetadata{ChannelID: channelID},
	}
}

// NewTimeoutAction creates an action that times out the member. The duration
// is truncated to whole seconds.
func NewTimeoutAction(duration time.Duration) Action {
	return Action{
		Type:     ActionTimeout,
		Metadata: ActionMetadata{DurationSeconds: int(duration / time.Second)},
	}
}

// NewBlockMemberInteractionAction creates an action that prevents the member
// from interacting until their profile is updated
func NewBlockMemberInteractionAction() Action {
	return Action{Type: ActionBlockMemberInteraction}
}

// Duration returns the timeout duration for timeout actions
func (a Action) Duration() time.Duration {
	return time.Duration(a.Metadata.DurationSeconds) * time.Second
}

// Validate checks that the action carries the parameters its type requires
func (a Action) Validate() error {
	switch a.Type {
	case ActionSendAlertMessage:
		if a.Metadata.ChannelID.IsZero() {
			return errors.NewValidation("actions", "send_alert_message action requires a channel id")
		}
	case ActionTimeout:
		if a.Metadata.DurationSeconds <= 0 {
			return errors.NewValidation("actions", "timeout action requires a positive duration")
		}
	case ActionBlockMessage, ActionBlockMemberInteraction:
		// No required parameters
	default:
		return errors.NewValidation("actions", "unknown action type "+a.Type.String())
	}
	return nil
}
