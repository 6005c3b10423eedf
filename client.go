package disnake

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ChristopherJHart/disnake/auditlog"
	"github.com/ChristopherJHart/disnake/config"
	"github.com/ChristopherJHart/disnake/errors"
	"github.com/ChristopherJHart/disnake/gateway"
	"github.com/ChristopherJHart/disnake/metric"
	"github.com/ChristopherJHart/disnake/rest"
	"github.com/ChristopherJHart/disnake/types"
)

// Client is the single logical client per process. It coordinates the
// persistent streaming connection and ad-hoc request/response calls, which
// share one configuration, one metrics registry, and one logger. All state
// is in-process and torn down on Stop.
type Client struct {
	cfg      config.Config
	logger   *slog.Logger
	registry *metric.Registry

	rest    *rest.Client
	session *gateway.Session

	started     atomic.Bool
	lifecycleMu sync.Mutex
}

// Option is a functional option for configuring Client construction
type Option func(*Client)

// WithLogger sets the structured logger used by all subsystems
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithMetricsRegistry supplies a shared metrics registry, letting an
// application scrape several clients from one endpoint
func WithMetricsRegistry(registry *metric.Registry) Option {
	return func(c *Client) {
		c.registry = registry
	}
}

// New creates a client from the given configuration. The configuration is
// validated after defaults are applied; an invalid one fails construction
// rather than the first call.
func New(cfg config.Config, opts ...Option) (*Client, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	c := &Client{cfg: cfg}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}
	if c.registry == nil {
		c.registry = metric.NewRegistry()
	}

	c.rest = rest.NewClient(cfg, c.logger, c.registry)
	c.session = gateway.NewSession(cfg, c.logger, c.registry)
	return c, nil
}

// Start establishes the streaming connection with the configured intents.
// Request/response operations work before Start; only event delivery
// requires a running session.
func (c *Client) Start(ctx context.Context) error {
	c.lifecycleMu.Lock()
	defer c.lifecycleMu.Unlock()

	if c.started.Load() {
		return errors.WrapFatal(errors.ErrAlreadyStarted, "client", "Start", "check started state")
	}
	if err := c.session.Start(ctx); err != nil {
		return err
	}
	c.started.Store(true)
	return nil
}

// Stop tears down the streaming connection and waits up to timeout for the
// session's goroutines to finish
func (c *Client) Stop(timeout time.Duration) error {
	c.lifecycleMu.Lock()
	defer c.lifecycleMu.Unlock()

	if !c.started.Load() {
		return nil
	}
	err := c.session.Stop(timeout)
	c.started.Store(false)
	return err
}

// State returns the streaming connection's current state
func (c *Client) State() gateway.State {
	return c.session.State()
}

// MetricsRegistry returns the registry holding this client's metrics
func (c *Client) MetricsRegistry() *metric.Registry {
	return c.registry
}

// Event handler registration. Each call returns a function that removes the
// registration. Handlers only fire for categories enabled via intents.

// OnRuleCreate registers a handler for rule creation events
func (c *Client) OnRuleCreate(h gateway.RuleHandler) func() {
	return c.session.Dispatcher().OnRuleCreate(h)
}

// OnRuleUpdate registers a handler for rule update events
func (c *Client) OnRuleUpdate(h gateway.RuleHandler) func() {
	return c.session.Dispatcher().OnRuleUpdate(h)
}

// OnRuleDelete registers a handler for rule deletion events
func (c *Client) OnRuleDelete(h gateway.RuleHandler) func() {
	return c.session.Dispatcher().OnRuleDelete(h)
}

// OnActionExecution registers a handler for action execution events
func (c *Client) OnActionExecution(h gateway.ExecutionHandler) func() {
	return c.session.Dispatcher().OnActionExecution(h)
}

// Request façade. All operations suspend the calling goroutine until the
// remote response arrives, a timeout fires, or the context is cancelled;
// concurrent operations against different rate-limit buckets proceed
// independently.

// CreateAutoModRule creates a rule after validating the spec locally
func (c *Client) CreateAutoModRule(ctx context.Context, guildID types.Snowflake, spec types.RuleSpec, reason string) (*types.Rule, error) {
	return c.rest.CreateAutoModRule(ctx, guildID, spec, reason)
}

// AutoModRule fetches a single rule by id
func (c *Client) AutoModRule(ctx context.Context, guildID, ruleID types.Snowflake) (*types.Rule, error) {
	return c.rest.AutoModRule(ctx, guildID, ruleID)
}

// AutoModRules fetches the guild's complete current rule set
func (c *Client) AutoModRules(ctx context.Context, guildID types.Snowflake) ([]types.Rule, error) {
	return c.rest.AutoModRules(ctx, guildID)
}

// EditAutoModRule applies a partial update to an existing rule
func (c *Client) EditAutoModRule(ctx context.Context, guildID, ruleID types.Snowflake, triggerType types.TriggerType, edit types.RuleEdit, reason string) (*types.Rule, error) {
	return c.rest.EditAutoModRule(ctx, guildID, ruleID, triggerType, edit, reason)
}

// DeleteAutoModRule deletes a rule
func (c *Client) DeleteAutoModRule(ctx context.Context, guildID, ruleID types.Snowflake, reason string) error {
	return c.rest.DeleteAutoModRule(ctx, guildID, ruleID, reason)
}

// GuildAuditLog fetches and decodes the guild's audit log
func (c *Client) GuildAuditLog(ctx context.Context, guildID types.Snowflake, action auditlog.EntryAction) ([]*auditlog.Entry, error) {
	return c.rest.GuildAuditLog(ctx, guildID, action)
}
