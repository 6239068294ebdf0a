// Package config loads service configuration from an optional YAML file with
// environment-variable overrides for deployment-specific and secret values.
package config

import (
	"log"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	defaultTimezone = "Europe/Luxembourg"
	configPathEnv   = "CIVICWATCH_CONFIG"
)

// Config holds high-level settings required across the application.
type Config struct {
	Server ServerConfig `yaml:"server"`
	Site   SiteConfig   `yaml:"site"`
	Digest DigestConfig `yaml:"digest"`
	Email  EmailConfig  `yaml:"email"`
	Feed   FeedConfig   `yaml:"feed"`

	// Secrets are environment-only, never read from the YAML file.
	ResendKey   string `yaml:"-"`
	TokenSecret string `yaml:"-"`
	CronSecret  string `yaml:"-"`
	CSRFKeyHex  string `yaml:"-"`
}

// ServerConfig describes the HTTP listener.
type ServerConfig struct {
	Addr    string `yaml:"addr"`
	BaseURL string `yaml:"baseUrl"`
	Env     string `yaml:"env"`
}

// SiteConfig carries the site's localization settings.
type SiteConfig struct {
	Timezone      string         `yaml:"timezone"`
	Locales       []string       `yaml:"locales"`
	DefaultLocale string         `yaml:"defaultLocale"`
	location      *time.Location `yaml:"-"`
}

// Location resolves the site timezone string to a time.Location.
func (s SiteConfig) Location() *time.Location {
	if s.location != nil {
		return s.location
	}
	loc, _ := time.LoadLocation(defaultTimezone)
	return loc
}

// DigestConfig tunes the weekly digest pipeline.
type DigestConfig struct {
	BatchSize        int    `yaml:"batchSize"`
	OperatorEmail    string `yaml:"operatorEmail"`
	ApprovalTTLHours int    `yaml:"approvalTtlHours"`
}

// EmailConfig carries sender identities for outbound mail.
type EmailConfig struct {
	From    string `yaml:"from"`
	ReplyTo string `yaml:"replyTo"`
}

// FeedConfig describes the content change feed collaborator.
type FeedConfig struct {
	BaseURL        string `yaml:"baseUrl"`
	TimeoutSeconds int    `yaml:"timeoutSeconds"`
}

// Timeout returns the feed request timeout as a duration.
func (f FeedConfig) Timeout() time.Duration {
	if f.TimeoutSeconds <= 0 {
		return 10 * time.Second
	}
	return time.Duration(f.TimeoutSeconds) * time.Second
}

// Load reads YAML configuration (if present) and applies environment overrides.
func Load() Config {
	cfg := defaultConfig()

	if path := os.Getenv(configPathEnv); path != "" {
		if raw, err := os.ReadFile(path); err != nil {
			log.Printf("config: cannot read %s: %v (falling back to defaults)", path, err)
		} else {
			var fileCfg Config
			if err := yaml.Unmarshal(raw, &fileCfg); err != nil {
				log.Printf("config: cannot parse %s: %v (falling back to defaults)", path, err)
			} else {
				cfg = mergeConfig(cfg, fileCfg)
			}
		}
	}

	cfg.applyEnvOverrides()
	cfg.bindTimezone()
	return cfg
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("CIVICWATCH_ADDR"); v != "" {
		c.Server.Addr = v
	}
	if v := os.Getenv("CIVICWATCH_BASE_URL"); v != "" {
		c.Server.BaseURL = v
	}
	if v := os.Getenv("CIVICWATCH_ENV"); v != "" {
		c.Server.Env = v
	}
	if v := os.Getenv("CIVICWATCH_OPERATOR_EMAIL"); v != "" {
		c.Digest.OperatorEmail = v
	}
	if v := os.Getenv("CIVICWATCH_RESEND_FROM"); v != "" {
		c.Email.From = v
	}
	if v := os.Getenv("CIVICWATCH_REPLY_TO"); v != "" {
		c.Email.ReplyTo = v
	}
	if v := os.Getenv("CIVICWATCH_FEED_URL"); v != "" {
		c.Feed.BaseURL = v
	}

	c.ResendKey = os.Getenv("CIVICWATCH_RESEND_KEY")
	c.TokenSecret = os.Getenv("CIVICWATCH_TOKEN_SECRET")
	c.CronSecret = os.Getenv("CIVICWATCH_CRON_SECRET")
	c.CSRFKeyHex = os.Getenv("CIVICWATCH_CSRF_KEY")
}

func (c *Config) bindTimezone() {
	tz := c.Site.Timezone
	if tz == "" {
		tz = defaultTimezone
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		log.Printf("config: unknown timezone %s, reverting to %s", tz, defaultTimezone)
		loc, _ = time.LoadLocation(defaultTimezone)
	}
	c.Site.location = loc
}

func mergeConfig(base, override Config) Config {
	if override.Server.Addr != "" {
		base.Server.Addr = override.Server.Addr
	}
	if override.Server.BaseURL != "" {
		base.Server.BaseURL = override.Server.BaseURL
	}
	if override.Server.Env != "" {
		base.Server.Env = override.Server.Env
	}
	if override.Site.Timezone != "" {
		base.Site.Timezone = override.Site.Timezone
	}
	if len(override.Site.Locales) > 0 {
		base.Site.Locales = override.Site.Locales
	}
	if override.Site.DefaultLocale != "" {
		base.Site.DefaultLocale = override.Site.DefaultLocale
	}
	if override.Digest.BatchSize > 0 {
		base.Digest.BatchSize = override.Digest.BatchSize
	}
	if override.Digest.OperatorEmail != "" {
		base.Digest.OperatorEmail = override.Digest.OperatorEmail
	}
	if override.Digest.ApprovalTTLHours > 0 {
		base.Digest.ApprovalTTLHours = override.Digest.ApprovalTTLHours
	}
	if override.Email.From != "" {
		base.Email.From = override.Email.From
	}
	if override.Email.ReplyTo != "" {
		base.Email.ReplyTo = override.Email.ReplyTo
	}
	if override.Feed.BaseURL != "" {
		base.Feed.BaseURL = override.Feed.BaseURL
	}
	if override.Feed.TimeoutSeconds > 0 {
		base.Feed.TimeoutSeconds = override.Feed.TimeoutSeconds
	}
	return base
}

func defaultConfig() Config {
	return Config{
		Server: ServerConfig{Addr: ":8080", BaseURL: "http://localhost:8080", Env: "development"},
		Site: SiteConfig{
			Timezone:      defaultTimezone,
			Locales:       []string{"fr", "de", "en"},
			DefaultLocale: "fr",
		},
		Digest: DigestConfig{
			BatchSize:        50,
			OperatorEmail:    "redaction@civicwatch.lu",
			ApprovalTTLHours: 7 * 24,
		},
		Email: EmailConfig{
			From:    "CivicWatch <digest@civicwatch.lu>",
			ReplyTo: "redaction@civicwatch.lu",
		},
		Feed: FeedConfig{BaseURL: "http://localhost:4321/api/feed", TimeoutSeconds: 10},
	}
}
