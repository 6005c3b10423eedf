package rest

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/ChristopherJHart/disnake/auditlog"
	"github.com/ChristopherJHart/disnake/types"
)

// autoModBucket groups all auto-moderation routes of one guild into a single
// rate-limit window, matching the remote service's bucket layout
func autoModBucket(guildID types.Snowflake) string {
	return "guilds/" + guildID.String() + "/auto-moderation"
}

func autoModRulesPath(guildID types.Snowflake) string {
	return fmt.Sprintf("/guilds/%s/auto-moderation/rules", guildID)
}

func autoModRulePath(guildID, ruleID types.Snowflake) string {
	return fmt.Sprintf("/guilds/%s/auto-moderation/rules/%s", guildID, ruleID)
}

// CreateAutoModRule creates a rule from a spec. The spec is validated locally
// first: a mismatched trigger metadata variant, missing actions, or other
// local inconsistencies surface as a ValidationError before any network call.
func (c *Client) CreateAutoModRule(ctx context.Context, guildID types.Snowflake, spec types.RuleSpec, reason string) (*types.Rule, error) {
	if err := spec.Validate(); err != nil {
		return nil, err
	}

	var rule types.Rule
	err := c.do(ctx, http.MethodPost, autoModRulesPath(guildID), autoModBucket(guildID), spec, &rule, reason)
	if err != nil {
		return nil, err
	}
	return &rule, nil
}

// AutoModRule fetches a single rule by id. Fails with ErrNotFound if the id
// does not exist on that guild, or ErrForbidden if the caller lacks the
// manage-guild permission.
func (c *Client) AutoModRule(ctx context.Context, guildID, ruleID types.Snowflake) (*types.Rule, error) {
	var rule types.Rule
	err := c.do(ctx, http.MethodGet, autoModRulePath(guildID, ruleID), autoModBucket(guildID), nil, &rule, "")
	if err != nil {
		return nil, err
	}
	return &rule, nil
}

// AutoModRules fetches the guild's complete current rule set. The remote
// service does not guarantee any ordering.
func (c *Client) AutoModRules(ctx context.Context, guildID types.Snowflake) ([]types.Rule, error) {
	var rules []types.Rule
	err := c.do(ctx, http.MethodGet, autoModRulesPath(guildID), autoModBucket(guildID), nil, &rules, "")
	if err != nil {
		return nil, err
	}
	return rules, nil
}

// EditAutoModRule applies a partial update to an existing rule. triggerType
// is the rule's existing trigger type; it cannot change after creation and
// is used to validate a metadata edit locally before sending.
func (c *Client) EditAutoModRule(ctx context.Context, guildID, ruleID types.Snowflake, triggerType types.TriggerType, edit types.RuleEdit, reason string) (*types.Rule, error) {
	if err := edit.Validate(triggerType); err != nil {
		return nil, err
	}

	var rule types.Rule
	err := c.do(ctx, http.MethodPatch, autoModRulePath(guildID, ruleID), autoModBucket(guildID), edit, &rule, reason)
	if err != nil {
		return nil, err
	}
	return &rule, nil
}

// DeleteAutoModRule deletes a rule
func (c *Client) DeleteAutoModRule(ctx context.Context, guildID, ruleID types.Snowflake, reason string) error {
	return c.do(ctx, http.MethodDelete, autoModRulePath(guildID, ruleID), autoModBucket(guildID), nil, nil, reason)
}

// auditLogResponse is the wire envelope of the audit-log endpoint. Entries
// are kept raw so per-entry decoding failures stay isolated.
type auditLogResponse struct {
	Entries []json.RawMessage `json:"audit_log_entries"`
}

// GuildAuditLog fetches the guild's audit log, optionally filtered to one
// entry action kind (zero fetches all kinds), and decodes each entry into a
// typed diff. An entry whose envelope cannot be decoded is skipped; per-field
// converter failures are attached to the entry's diff instead.
func (c *Client) GuildAuditLog(ctx context.Context, guildID types.Snowflake, action auditlog.EntryAction) ([]*auditlog.Entry, error) {
	path := fmt.Sprintf("/guilds/%s/audit-logs", guildID)
	if action != 0 {
		path += "?action_type=" + url.QueryEscape(fmt.Sprintf("%d", int(action)))
	}

	var resp auditLogResponse
	bucketKey := "guilds/" + guildID.String() + "/audit-logs"
	if err := c.do(ctx, http.MethodGet, path, bucketKey, nil, &resp, ""); err != nil {
		return nil, err
	}

	entries := make([]*auditlog.Entry, 0, len(resp.Entries))
	for _, raw := range resp.Entries {
		entry, err := auditlog.DecodeEntry(raw)
		if err != nil {
			c.logger.Warn("skipping undecodable audit-log entry", "guild_id", guildID, "error", err)
			continue
		}
		entries = append(entries, entry)
	}
	return entries, nil
}
