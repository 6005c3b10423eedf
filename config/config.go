// Package config holds client configuration: credentials, endpoints, intent
// subscription, timeouts, and retry/backpressure tuning. Configuration can be
// built in code or loaded from a YAML file; either way Validate runs before
// the client uses it.
package config

import (
	"fmt"
	"net/url"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/ChristopherJHart/disnake/errors"
	"github.com/ChristopherJHart/disnake/types"
)

// Default endpoint and tuning values
const (
	DefaultAPIBaseURL = "https://discord.com/api/v10"
	DefaultGatewayURL = "wss://gateway.discord.gg/?v=10&encoding=json"

	DefaultRequestTimeout   = 15 * time.Second
	DefaultStallGracePeriod = 5 * time.Second
	DefaultEventQueueSize   = 1024
	DefaultMaxRetries       = 3
)

// Config represents the complete client configuration
type Config struct {
	// Token authenticates both the HTTP and gateway connections. If empty,
	// it is resolved from the environment variable named by TokenEnv.
	Token    string `yaml:"token"`
	TokenEnv string `yaml:"token_env"`

	// APIBaseURL is the HTTP endpoint prefix
	APIBaseURL string `yaml:"api_base_url"`
	// GatewayURL is the websocket endpoint for the streaming connection
	GatewayURL string `yaml:"gateway_url"`

	// Intents selects the event categories requested during the gateway
	// handshake. Fixed once the connection is established.
	Intents types.Intents `yaml:"intents"`

	// RequestTimeout bounds each individual HTTP request
	RequestTimeout time.Duration `yaml:"request_timeout"`
	// StallGracePeriod is how long a single event handler may run before the
	// dispatcher logs a stall warning
	StallGracePeriod time.Duration `yaml:"stall_grace_period"`
	// EventQueueSize bounds the queue between the gateway read loop and the
	// dispatch loop; the oldest events are dropped on overflow
	EventQueueSize int `yaml:"event_queue_size"`
	// MaxRetries is the number of additional attempts for transient HTTP
	// failures (rate limits, 5xx) before surfacing the error
	MaxRetries int `yaml:"max_retries"`
}

// Default returns a configuration with all tuning values set to defaults.
// The token and intents must still be supplied by the caller.
func Default() Config {
	return Config{
		APIBaseURL:       DefaultAPIBaseURL,
		GatewayURL:       DefaultGatewayURL,
		RequestTimeout:   DefaultRequestTimeout,
		StallGracePeriod: DefaultStallGracePeriod,
		EventQueueSize:   DefaultEventQueueSize,
		MaxRetries:       DefaultMaxRetries,
	}
}

// LoadFile reads a YAML configuration file, applies defaults to unset fields,
// resolves the token from the environment if needed, and validates the result.
func LoadFile(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, errors.WrapFatal(err, "config", "LoadFile", "read file")
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, errors.WrapInvalid(err, "config", "LoadFile", "parse yaml")
	}

	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// UnmarshalYAML implements yaml.Unmarshaler. Duration fields accept the
// human-readable form ("5s", "250ms"); fields absent from the document keep
// their current values.
func (c *Config) UnmarshalYAML(node *yaml.Node) error {
	var raw struct {
		Token            *string        `yaml:"token"`
		TokenEnv         *string        `yaml:"token_env"`
		APIBaseURL       *string        `yaml:"api_base_url"`
		GatewayURL       *string        `yaml:"gateway_url"`
		Intents          *types.Intents `yaml:"intents"`
		RequestTimeout   *string        `yaml:"request_timeout"`
		StallGracePeriod *string        `yaml:"stall_grace_period"`
		EventQueueSize   *int           `yaml:"event_queue_size"`
		MaxRetries       *int           `yaml:"max_retries"`
	}
	if err := node.Decode(&raw); err != nil {
		return err
	}

	if raw.Token != nil {
		c.Token = *raw.Token
	}
	if raw.TokenEnv != nil {
		c.TokenEnv = *raw.TokenEnv
	}
	if raw.APIBaseURL != nil {
		c.APIBaseURL = *raw.APIBaseURL
	}
	if raw.GatewayURL != nil {
		c.GatewayURL = *raw.GatewayURL
	}
	if raw.Intents != nil {
		c.Intents = *raw.Intents
	}
	if raw.EventQueueSize != nil {
		c.EventQueueSize = *raw.EventQueueSize
	}
	if raw.MaxRetries != nil {
		c.MaxRetries = *raw.MaxRetries
	}

	if raw.RequestTimeout != nil {
		d, err := time.ParseDuration(*raw.RequestTimeout)
		if err != nil {
			return fmt.Errorf("request_timeout: %w", err)
		}
		c.RequestTimeout = d
	}
	if raw.StallGracePeriod != nil {
		d, err := time.ParseDuration(*raw.StallGracePeriod)
		if err != nil {
			return fmt.Errorf("stall_grace_period: %w", err)
		}
		c.StallGracePeriod = d
	}
	return nil
}

// ApplyDefaults fills unset tuning fields with default values and resolves
// the token from TokenEnv when no literal token is configured
func (c *Config) ApplyDefaults() {
	if c.Token == "" && c.TokenEnv != "" {
		c.Token = os.Getenv(c.TokenEnv)
	}
	if c.APIBaseURL == "" {
		c.APIBaseURL = DefaultAPIBaseURL
	}
	if c.GatewayURL == "" {
		c.GatewayURL = DefaultGatewayURL
	}
	if c.RequestTimeout <= 0 {
		c.RequestTimeout = DefaultRequestTimeout
	}
	if c.StallGracePeriod <= 0 {
		c.StallGracePeriod = DefaultStallGracePeriod
	}
	if c.EventQueueSize <= 0 {
		c.EventQueueSize = DefaultEventQueueSize
	}
	if c.MaxRetries < 0 {
		c.MaxRetries = DefaultMaxRetries
	}
}

// Validate checks the configuration for completeness and well-formed
// endpoints. Returns a fatal-class error; an invalid config should stop the
// client before any connection is attempted.
func (c *Config) Validate() error {
	if c.Token == "" {
		return errors.WrapFatal(errors.ErrMissingToken, "config", "Validate", "check token")
	}

	u, err := url.Parse(c.APIBaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		return errors.WrapFatal(
			fmt.Errorf("%w: api_base_url %q must be an http(s) URL", errors.ErrInvalidConfig, c.APIBaseURL),
			"config", "Validate", "check api_base_url")
	}

	g, err := url.Parse(c.GatewayURL)
	if err != nil || (g.Scheme != "ws" && g.Scheme != "wss") {
		return errors.WrapFatal(
			fmt.Errorf("%w: gateway_url %q must be a ws(s) URL", errors.ErrInvalidConfig, c.GatewayURL),
			"config", "Validate", "check gateway_url")
	}

	return nil
}
