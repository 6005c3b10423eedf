// Package auditlog decodes audit-log entries into typed before/after diffs.
//
// The remote service reports attribute changes as a list of raw key/value
// records. A static conversion table maps each known attribute name to a
// typed converter; unknown attributes pass through as raw values so newer
// server revisions never break decoding. A converter failure is recorded as
// a per-field DecodingError on the diff, leaving sibling fields consumable.
package auditlog

import (
	"encoding/json"
	"fmt"

	"github.com/ChristopherJHart/disnake/errors"
	"github.com/ChristopherJHart/disnake/types"
)

// EntryAction identifies what kind of change an audit-log entry records.
// Unrecognized values are preserved so future entry kinds decode cleanly.
type EntryAction int

const (
	// EntryRuleCreate records the creation of an auto-moderation rule
	EntryRuleCreate EntryAction = 140
	// EntryRuleUpdate records an update to an auto-moderation rule
	EntryRuleUpdate EntryAction = 141
	// EntryRuleDelete records the deletion of an auto-moderation rule
	EntryRuleDelete EntryAction = 142
)

// String returns the string representation of EntryAction
func (a EntryAction) String() string {
	switch a {
	case EntryRuleCreate:
		return "rule_create"
	case EntryRuleUpdate:
		return "rule_update"
	case EntryRuleDelete:
		return "rule_delete"
	default:
		return fmt.Sprintf("unknown(%d)", int(a))
	}
}

// Diff is a typed before/after snapshot of changed attributes, keyed by
// attribute name. Attributes whose converter failed appear in FieldErrors
// instead of Before/After. A Diff is constructed once from a raw payload and
// immutable thereafter.
type Diff struct {
	Before      map[string]any
	After       map[string]any
	FieldErrors map[string]error
}

// Changed returns the attribute names present in the diff, including those
// that failed to convert
func (d *Diff) Changed() []string {
	seen := make(map[string]struct{})
	for k := range d.Before {
		seen[k] = struct{}{}
	}
	for k := range d.After {
		seen[k] = struct{}{}
	}
	for k := range d.FieldErrors {
		seen[k] = struct{}{}
	}
	keys := make([]string, 0, len(seen))
	for k := range seen {
		keys = append(keys, k)
	}
	return keys
}

// Entry is one audit-log record: who changed what, with a typed diff of the
// affected attributes.
type Entry struct {
	ID       types.Snowflake
	GuildID  types.Snowflake
	TargetID types.Snowflake
	UserID   types.Snowflake
	Action   EntryAction
	Reason   string
	Diff     Diff
}

// rawEntry is the wire shape of an audit-log entry
type rawEntry struct {
	ID       types.Snowflake `json:"id"`
	GuildID  types.Snowflake `json:"guild_id"`
	TargetID types.Snowflake `json:"target_id"`
	UserID   types.Snowflake `json:"user_id"`
	Action   EntryAction     `json:"action_type"`
	Reason   string          `json:"reason"`
	Changes  []rawChange     `json:"changes"`
}

// rawChange is one attribute change as published by the remote service
type rawChange struct {
	Key      string          `json:"key"`
	OldValue json.RawMessage `json:"old_value,omitempty"`
	NewValue json.RawMessage `json:"new_value,omitempty"`
}

// DecodeEntry decodes a raw audit-log entry payload. A malformed envelope is
// an error; a failing attribute converter is not, and lands in
// Diff.FieldErrors under the attribute's name.
func DecodeEntry(data []byte) (*Entry, error) {
	var raw rawEntry
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, errors.WrapInvalid(err, "auditlog", "DecodeEntry", "unmarshal entry")
	}

	entry := &Entry{
		ID:       raw.ID,
		GuildID:  raw.GuildID,
		TargetID: raw.TargetID,
		UserID:   raw.UserID,
		Action:   raw.Action,
		Reason:   raw.Reason,
		Diff: Diff{
			Before:      make(map[string]any, len(raw.Changes)),
			After:       make(map[string]any, len(raw.Changes)),
			FieldErrors: make(map[string]error),
		},
	}

	for _, change := range raw.Changes {
		key := canonicalKey(change.Key)
		before, after, err := convertChange(key, change)
		if err != nil {
			entry.Diff.FieldErrors[key] = err
			continue
		}
		if before != nil {
			entry.Diff.Before[key] = before
		}
		if after != nil {
			entry.Diff.After[key] = after
		}
		// A change record with no values on either side still names an
		// attribute the server reported as changed; keep it visible so the
		// diff stays total over reported keys
		if before == nil && after == nil {
			entry.Diff.After[key] = nil
		}
	}

	return entry, nil
}

// convertChange applies the registered converter to both sides of a change.
// Keys without a registered converter pass through as raw decoded JSON.
func convertChange(key string, change rawChange) (before, after any, err error) {
	convert, known := converters[key]
	if !known {
		convert = rawConverter
	}

	if len(change.OldValue) > 0 {
		before, err = convert(change.OldValue)
		if err != nil {
			return nil, nil, asDecoding(key, change.OldValue, err)
		}
	}
	if len(change.NewValue) > 0 {
		after, err = convert(change.NewValue)
		if err != nil {
			return nil, nil, asDecoding(key, change.NewValue, err)
		}
	}
	return before, after, nil
}

// asDecoding ensures a converter failure surfaces as a DecodingError scoped
// to the attribute, without double-wrapping converters that already return one
func asDecoding(key string, raw json.RawMessage, err error) error {
	if errors.IsDecoding(err) {
		return err
	}
	return errors.NewDecoding(key, string(raw), err)
}
