// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package config

import (
	"errors"
	"io/fs"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/samber/oops"
	"github.com/spf13/pflag"
)

// Flag names registered by RegisterFlags.
const (
	FlagServerURL       = "server-url"
	FlagIdentityURL     = "identity-url"
	FlagIdentityAPIKey  = "identity-api-key"
	FlagIdentityTimeout = "identity-timeout"
	FlagLoginAck        = "login-ack"
	FlagLoginWindow     = "login-window"
	FlagLoginTimeout    = "login-timeout"
	FlagConnectAttempts = "connect-attempts"
	FlagConnectBackoff  = "connect-backoff"
	FlagLogFormat       = "log-format"
	FlagLogLevel        = "log-level"
	FlagLogFile         = "log-file"
	FlagMetricsAddr     = "metrics-addr"
)

// RegisterFlags adds one flag per config key to flags, defaulting to
// Default().
func RegisterFlags(flags *pflag.FlagSet) {
	d := Default()
	flags.String(FlagServerURL, d.ServerURL, "game server websocket URL")
	flags.String(FlagIdentityURL, d.IdentityURL, "identity provider REST API root")
	flags.String(FlagIdentityAPIKey, d.IdentityAPIKey, "identity provider API key")
	flags.Duration(FlagIdentityTimeout, d.IdentityTimeout.Std(), "timeout for one identity provider call")
	flags.String(FlagLoginAck, d.LoginAck, "login acknowledgment mode (event or window)")
	flags.Duration(FlagLoginWindow, d.LoginWindow.Std(), "rejection window when --login-ack=window")
	flags.Duration(FlagLoginTimeout, d.LoginTimeout.Std(), "wait for login_result when --login-ack=event")
	flags.Int(FlagConnectAttempts, d.ConnectAttempts, "dial attempts before giving up")
	flags.Duration(FlagConnectBackoff, d.ConnectBackoff.Std(), "initial delay between dial attempts")
	flags.String(FlagLogFormat, d.LogFormat, "log format (json or text)")
	flags.String(FlagLogLevel, d.LogLevel, "log level (debug, info, warn, error)")
	flags.String(FlagLogFile, d.LogFile, "log file path (default: XDG state dir)")
	flags.String(FlagMetricsAddr, d.MetricsAddr, "serve /metrics and health endpoints on this address")
}

// Load builds the configuration: defaults, then the YAML file at path, then
// flags the user set explicitly. A missing file is an error only when
// required is true. The result is validated.
func Load(path string, required bool, flags *pflag.FlagSet) (Config, error) {
	k := koanf.New(".")

	if path != "" {
		if err := loadFile(k, path, required); err != nil {
			return Config{}, err
		}
	}

	if flags != nil {
		provider := posflag.ProviderWithFlag(flags, ".", k, func(f *pflag.Flag) (string, any) {
			key := strings.ReplaceAll(f.Name, "-", "_")
			if !knownKeys[key] {
				return "", nil
			}
			return key, posflag.FlagVal(flags, f)
		})
		if err := k.Load(provider, nil); err != nil {
			return Config{}, oops.Code(CodeLoad).Wrapf(err, "failed to load flags")
		}
	}

	cfg := Default()
	if err := k.Unmarshal("", &cfg); err != nil {
		return Config{}, oops.Code(CodeLoad).Wrapf(err, "failed to decode configuration")
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func loadFile(k *koanf.Koanf, path string, required bool) error {
	data, err := os.ReadFile(path) //nolint:gosec // path comes from the user
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) && !required {
			return nil
		}
		return oops.Code(CodeLoad).With("path", path).Wrapf(err, "failed to read config file")
	}
	if err := ValidateYAML(data); err != nil {
		return oops.Code(CodeSchema).With("path", path).Wrap(err)
	}
	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		return oops.Code(CodeLoad).With("path", path).Wrapf(err, "failed to parse config file")
	}
	return nil
}

var knownKeys = map[string]bool{
	"server_url":       true,
	"identity_url":     true,
	"identity_api_key": true,
	"identity_timeout": true,
	"login_ack":        true,
	"login_window":     true,
	"login_timeout":    true,
	"connect_attempts": true,
	"connect_backoff":  true,
	"log_format":       true,
	"log_level":        true,
	"log_file":         true,
	"metrics_addr":     true,
}
