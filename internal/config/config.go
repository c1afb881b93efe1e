package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the top-level relay configuration.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	MCP      MCPConfig      `yaml:"mcp"`
	Slack    SlackConfig    `yaml:"slack"`
	Delivery DeliveryConfig `yaml:"delivery"`
	Journal  JournalConfig  `yaml:"journal"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// ServerConfig holds HTTP listener settings.
type ServerConfig struct {
	Host         string `yaml:"host"`
	Port         int    `yaml:"port"`
	WebhookPath  string `yaml:"webhook_path"`
	PublicURL    string `yaml:"public_url"`
	MaxBodyBytes int64  `yaml:"max_body_bytes"`
}

// MCPConfig holds inbound webhook verification settings.
type MCPConfig struct {
	SigningSecret string `yaml:"signing_secret"`
}

// SlackConfig holds outbound Slack settings shared by both delivery paths.
type SlackConfig struct {
	ChannelID  string `yaml:"channel_id"`
	WebhookURL string `yaml:"webhook_url"`
	BotToken   string `yaml:"bot_token"`
	AppToken   string `yaml:"app_token"`
}

// DeliveryConfig holds delivery timing and mode settings.
type DeliveryConfig struct {
	SessionTimeout time.Duration `yaml:"session_timeout"`
	WebhookTimeout time.Duration `yaml:"webhook_timeout"`
	DryRun         bool          `yaml:"dry_run"`
}

// JournalConfig holds settings for the in-memory delivery journal.
type JournalConfig struct {
	Capacity int `yaml:"capacity"`
}

// LoggingConfig holds structured logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// SessionEnabled reports whether the Socket Mode session can be started.
func (c *Config) SessionEnabled() bool {
	return !c.Delivery.DryRun && c.Slack.BotToken != "" && c.Slack.AppToken != ""
}

// WebhookURL returns the public URL MCP should post to, for logging.
func (c *Config) WebhookURL() string {
	base := strings.TrimRight(c.Server.PublicURL, "/")
	if base == "" {
		base = fmt.Sprintf("http://%s:%d", c.Server.Host, c.Server.Port)
	}
	return base + c.Server.WebhookPath
}

// defaults applies sane defaults to zero-valued fields.
func (c *Config) defaults() {
	if c.Server.Host == "" {
		c.Server.Host = "0.0.0.0"
	}
	if c.Server.Port == 0 {
		c.Server.Port = 3000
	}
	if c.Server.WebhookPath == "" {
		c.Server.WebhookPath = "/webhooks/mcp"
	}
	if c.Server.MaxBodyBytes == 0 {
		c.Server.MaxBodyBytes = 1 << 20
	}
	if c.Delivery.SessionTimeout == 0 {
		c.Delivery.SessionTimeout = 5 * time.Second
	}
	if c.Delivery.WebhookTimeout == 0 {
		c.Delivery.WebhookTimeout = 10 * time.Second
	}
	if c.Journal.Capacity == 0 {
		c.Journal.Capacity = 500
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "json"
	}
}

// validate checks required fields and value constraints.
func (c *Config) validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535, got %d", c.Server.Port)
	}
	if !strings.HasPrefix(c.Server.WebhookPath, "/") {
		return fmt.Errorf("server.webhook_path must start with /, got %q", c.Server.WebhookPath)
	}
	if c.Server.MaxBodyBytes < 0 {
		return fmt.Errorf("server.max_body_bytes must be non-negative")
	}
	if c.Delivery.SessionTimeout < 0 || c.Delivery.WebhookTimeout < 0 {
		return fmt.Errorf("delivery timeouts must be non-negative")
	}
	if c.Journal.Capacity < 0 {
		return fmt.Errorf("journal.capacity must be non-negative")
	}
	if !c.Delivery.DryRun && c.Slack.WebhookURL == "" {
		return fmt.Errorf("slack.webhook_url is required unless delivery.dry_run is set")
	}
	if c.Slack.AppToken != "" && c.Slack.BotToken == "" {
		return fmt.Errorf("slack.bot_token is required when slack.app_token is set")
	}
	if c.Slack.BotToken != "" && c.Slack.ChannelID == "" {
		return fmt.Errorf("slack.channel_id is required when slack.bot_token is set")
	}
	switch c.Logging.Format {
	case "json", "text":
	default:
		return fmt.Errorf("logging.format must be json or text, got %q", c.Logging.Format)
	}
	return nil
}

// expandEnv replaces ${VAR} references in secret-bearing fields with
// environment variable values. This allows keeping secrets out of YAML.
func (c *Config) expandEnv() {
	c.MCP.SigningSecret = os.ExpandEnv(c.MCP.SigningSecret)
	c.Slack.WebhookURL = os.ExpandEnv(c.Slack.WebhookURL)
	c.Slack.BotToken = os.ExpandEnv(c.Slack.BotToken)
	c.Slack.AppToken = os.ExpandEnv(c.Slack.AppToken)
}

// applyEnv overrides file values with the deployment environment. Unset and
// empty variables leave the file value alone.
func (c *Config) applyEnv() error {
	strs := map[string]*string{
		"MCP_SIGNING_SECRET": &c.MCP.SigningSecret,
		"SLACK_CHANNEL_ID":   &c.Slack.ChannelID,
		"SLACK_WEBHOOK_URL":  &c.Slack.WebhookURL,
		"SLACK_BOT_TOKEN":    &c.Slack.BotToken,
		"SLACK_APP_TOKEN":    &c.Slack.AppToken,
		"WEBHOOK_PATH":       &c.Server.WebhookPath,
		"PUBLIC_URL":         &c.Server.PublicURL,
		"LOG_LEVEL":          &c.Logging.Level,
		"LOG_FORMAT":         &c.Logging.Format,
	}
	for name, dst := range strs {
		if v := strings.TrimSpace(os.Getenv(name)); v != "" {
			*dst = v
		}
	}

	if v := strings.TrimSpace(os.Getenv("PORT")); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("PORT must be an integer: %w", err)
		}
		c.Server.Port = port
	}
	if v := strings.TrimSpace(os.Getenv("DELIVERY_SESSION_TIMEOUT")); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("DELIVERY_SESSION_TIMEOUT: %w", err)
		}
		c.Delivery.SessionTimeout = d
	}
	return nil
}

// Load reads an optional YAML config file, expands env vars, applies
// environment overrides and defaults, and validates. An empty path skips the file.
func Load(path string) (*Config, error) {
	var cfg Config

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parsing config %s: %w", path, err)
		}
	}

	cfg.expandEnv()
	if err := cfg.applyEnv(); err != nil {
		return nil, fmt.Errorf("reading environment: %w", err)
	}
	cfg.defaults()

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return &cfg, nil
}
