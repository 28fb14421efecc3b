// Package config loads application configuration from environment variables.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config holds all application configuration loaded from environment variables.
type Config struct {
	// General
	Environment string `envconfig:"ENVIRONMENT" default:"development"`
	LogLevel    string `envconfig:"LOG_LEVEL" default:"info"`

	// Account credentials (required)
	Username string `envconfig:"USERNAME"`
	Password string `envconfig:"PASSWORD"`

	// Counterpart to watch (required)
	TargetUsername string `envconfig:"TARGET_USERNAME"`

	// Responder behavior
	ResponseMessage string `envconfig:"RESPONSE_MESSAGE" default:"Thanks for your message!"`
	CheckInterval   int    `envconfig:"CHECK_INTERVAL" default:"10"` // seconds between polls

	// Platform client
	PlatformBaseURL string `envconfig:"PLATFORM_BASE_URL" default:"https://i.api.gramline.dev"`
	SessionFile     string `envconfig:"SESSION_FILE" default:"session.json"`

	// Health + metrics endpoint; empty disables the listener
	HTTPAddr string `envconfig:"HTTP_ADDR" default:":8080"`

	// Operator notifications (optional — Slack alerts on startup/shutdown/fatal)
	NotifySlackToken   string `envconfig:"NOTIFY_SLACK_TOKEN"`
	NotifySlackChannel string `envconfig:"NOTIFY_SLACK_CHANNEL"`
}

// Interval returns the poll interval as a duration. CHECK_INTERVAL is kept
// as integer seconds on the environment surface.
func (c *Config) Interval() time.Duration {
	secs := c.CheckInterval
	if secs < 1 {
		secs = 10
	}
	return time.Duration(secs) * time.Second
}

// NotifyEnabled returns true if Slack operator notifications are configured.
func (c *Config) NotifyEnabled() bool {
	return c.NotifySlackToken != "" && c.NotifySlackChannel != ""
}

// Validate checks that required variables are present.
func (c *Config) Validate() error {
	var missing []string
	if c.Username == "" {
		missing = append(missing, "USERNAME")
	}
	if c.Password == "" {
		missing = append(missing, "PASSWORD")
	}
	if c.TargetUsername == "" {
		missing = append(missing, "TARGET_USERNAME")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required environment variables: %s", strings.Join(missing, ", "))
	}
	return nil
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	return &cfg, nil
}
