// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package config loads client settings from defaults, an optional YAML file
// and command-line flags, in that order of precedence.
package config

import (
	"net/url"
	"time"

	"github.com/samber/oops"
)

// Error codes for configuration failures.
const (
	CodeInvalid = "CONFIG_INVALID"
	CodeSchema  = "CONFIG_SCHEMA"
	CodeLoad    = "CONFIG_LOAD"
)

// Config holds every client setting. Keys match the YAML file and the
// play command flags with dashes replaced by underscores.
type Config struct {
	ServerURL       string   `koanf:"server_url" json:"server_url,omitempty" jsonschema:"description=Game server websocket URL (ws:// or wss://)"`
	IdentityURL     string   `koanf:"identity_url" json:"identity_url,omitempty" jsonschema:"description=Identity provider REST API root"`
	IdentityAPIKey  string   `koanf:"identity_api_key" json:"identity_api_key,omitempty" jsonschema:"description=Identity provider API key"`
	IdentityTimeout Duration `koanf:"identity_timeout" json:"identity_timeout,omitempty" jsonschema:"description=Timeout for one identity provider call"`
	LoginAck        string   `koanf:"login_ack" json:"login_ack,omitempty" jsonschema:"enum=event,enum=window,description=How a login attempt is acknowledged"`
	LoginWindow     Duration `koanf:"login_window" json:"login_window,omitempty" jsonschema:"description=Rejection window used when login_ack is window"`
	LoginTimeout    Duration `koanf:"login_timeout" json:"login_timeout,omitempty" jsonschema:"description=How long to wait for login_result when login_ack is event"`
	ConnectAttempts int      `koanf:"connect_attempts" json:"connect_attempts,omitempty" jsonschema:"minimum=1,maximum=50,description=Dial attempts before giving up"`
	ConnectBackoff  Duration `koanf:"connect_backoff" json:"connect_backoff,omitempty" jsonschema:"description=Initial delay between dial attempts"`
	LogFormat       string   `koanf:"log_format" json:"log_format,omitempty" jsonschema:"enum=json,enum=text"`
	LogLevel        string   `koanf:"log_level" json:"log_level,omitempty" jsonschema:"enum=debug,enum=info,enum=warn,enum=error"`
	LogFile         string   `koanf:"log_file" json:"log_file,omitempty" jsonschema:"description=Log file path (default: XDG state dir)"`
	MetricsAddr     string   `koanf:"metrics_addr" json:"metrics_addr,omitempty" jsonschema:"description=Address for /metrics and health endpoints; empty disables"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		ServerURL:       "ws://localhost:4000/ws",
		IdentityURL:     "https://identitytoolkit.googleapis.com/v1",
		IdentityTimeout: Duration(10 * time.Second),
		LoginAck:        "event",
		LoginWindow:     Duration(500 * time.Millisecond),
		LoginTimeout:    Duration(10 * time.Second),
		ConnectAttempts: 5,
		ConnectBackoff:  Duration(250 * time.Millisecond),
		LogFormat:       "json",
		LogLevel:        "info",
	}
}

// Validate checks the configuration for values the schema cannot express.
func (c Config) Validate() error {
	if err := checkURL("server_url", c.ServerURL, "ws", "wss"); err != nil {
		return err
	}
	if err := checkURL("identity_url", c.IdentityURL, "http", "https"); err != nil {
		return err
	}

	switch c.LoginAck {
	case "event", "window":
	default:
		return invalid("login_ack", c.LoginAck, "must be event or window")
	}
	switch c.LogFormat {
	case "json", "text":
	default:
		return invalid("log_format", c.LogFormat, "must be json or text")
	}
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return invalid("log_level", c.LogLevel, "must be debug, info, warn or error")
	}

	if c.ConnectAttempts < 1 {
		return invalid("connect_attempts", c.ConnectAttempts, "must be at least 1")
	}
	for key, d := range map[string]Duration{
		"identity_timeout": c.IdentityTimeout,
		"login_window":     c.LoginWindow,
		"login_timeout":    c.LoginTimeout,
		"connect_backoff":  c.ConnectBackoff,
	} {
		if d <= 0 {
			return invalid(key, d.String(), "must be positive")
		}
	}
	return nil
}

func checkURL(key, raw string, schemes ...string) error {
	if raw == "" {
		return invalid(key, raw, "is required")
	}
	u, err := url.Parse(raw)
	if err != nil {
		return oops.Code(CodeInvalid).With("key", key).Wrapf(err, "invalid %s", key)
	}
	for _, s := range schemes {
		if u.Scheme == s && u.Host != "" {
			return nil
		}
	}
	return invalid(key, raw, "must be an absolute "+schemes[0]+" or "+schemes[1]+" URL")
}

func invalid(key string, value any, reason string) error {
	return oops.Code(CodeInvalid).
		With("key", key).
		With("value", value).
		Errorf("invalid %s: %s", key, reason)
}
