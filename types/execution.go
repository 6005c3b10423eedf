package types

// ActionExecution describes one runtime firing of a rule's action against a
// specific user or message. It is an ephemeral event record: delivered to
// registered handlers and not persisted by the client afterwards.
type ActionExecution struct {
	GuildID         Snowflake   `json:"guild_id"`
	Action          Action      `json:"action"`
	RuleID          Snowflake   `json:"rule_id"`
	RuleTriggerType TriggerType `json:"rule_trigger_type"`
	UserID          Snowflake   `json:"user_id"`

	// ChannelID is the channel or thread in which the event occurred, if any
	ChannelID Snowflake `json:"channel_id,omitempty"`
	// MessageID is unset if the message was blocked before sending, or if the
	// content was not part of a message
	MessageID Snowflake `json:"message_id,omitempty"`
	// AlertMessageID is the alert message sent as a result of this action,
	// if the action type is send_alert_message
	AlertMessageID Snowflake `json:"alert_system_message_id,omitempty"`

	// Content is the full content that matched. Empty unless the message
	// content subscription is enabled for the connection.
	Content string `json:"content"`
	// MatchedKeyword is the keyword that matched, if any
	MatchedKeyword string `json:"matched_keyword,omitempty"`
	// MatchedContent is the substring of Content that matched
	MatchedContent string `json:"matched_content,omitempty"`
}
