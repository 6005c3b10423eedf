package types

// TriggerMetadata is the variant payload associated with a rule's trigger
// type. Exactly one variant shape is valid per trigger type; ValidateFor
// enforces the pairing before a rule spec is sent to the remote service.
type TriggerMetadata struct {
	// KeywordFilter is the list of words to match (keyword, member_profile)
	KeywordFilter []string `json:"keyword_filter,omitempty"`
	// RegexPatterns is the list of regex patterns to match (keyword, member_profile)
	RegexPatterns []string `json:"regex_patterns,omitempty"`
	// AllowList is the list of words exempt from matching
	AllowList []string `json:"allow_list,omitempty"`
	// Presets is the set of service-maintained word lists (keyword_preset)
	Presets KeywordPresets `json:"presets,omitempty"`
	// MentionTotalLimit is the number of unique mentions allowed per message
	// (mention_spam)
	MentionTotalLimit int `json:"mention_total_limit,omitempty"`
	// MentionRaidProtectionEnabled enables automatic mention raid detection
	// (mention_spam)
	MentionRaidProtectionEnabled bool `json:"mention_raid_protection_enabled,omitempty"`
}

// ValidateFor checks that the populated fields match the variant shape the
// given trigger type expects. The error is a ValidationError and no network
// traffic results from a failed check.
func (m TriggerMetadata) ValidateFor(t TriggerType) error {
	switch t {
	case TriggerKeyword, TriggerMemberProfile:
		if len(m.KeywordFilter) == 0 && len(m.RegexPatterns) == 0 {
			return validationf("trigger_metadata",
				"%s trigger requires keyword_filter or regex_patterns", t)
		}
		if m.Presets != 0 || m.MentionTotalLimit != 0 || m.MentionRaidProtectionEnabled {
			return validationf("trigger_metadata",
				"%s trigger does not accept preset or mention fields", t)
		}
	case TriggerSpam:
		if !m.isEmpty() {
			return validationf("trigger_metadata", "spam trigger takes no metadata")
		}
	case TriggerKeywordPreset:
		if m.Presets == 0 {
			return validationf("trigger_metadata", "keyword_preset trigger requires presets")
		}
		if len(m.KeywordFilter) != 0 || len(m.RegexPatterns) != 0 ||
			m.MentionTotalLimit != 0 || m.MentionRaidProtectionEnabled {
			return validationf("trigger_metadata",
				"keyword_preset trigger accepts only presets and allow_list")
		}
	case TriggerMentionSpam:
		if m.MentionTotalLimit <= 0 && !m.MentionRaidProtectionEnabled {
			return validationf("trigger_metadata",
				"mention_spam trigger requires mention_total_limit or raid protection")
		}
		if len(m.KeywordFilter) != 0 || len(m.RegexPatterns) != 0 ||
			len(m.AllowList) != 0 || m.Presets != 0 {
			return validationf("trigger_metadata",
				"mention_spam trigger accepts only mention fields")
		}
	default:
		return validationf("trigger_type", "unknown trigger type %s", t)
	}
	return nil
}

func (m TriggerMetadata) isEmpty() bool {
	return len(m.KeywordFilter) == 0 && len(m.RegexPatterns) == 0 &&
		len(m.AllowList) == 0 && m.Presets == 0 &&
		m.MentionTotalLimit == 0 && !m.MentionRaidProtectionEnabled
}
