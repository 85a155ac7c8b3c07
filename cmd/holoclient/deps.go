// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package main

import (
	"context"
	"io"
	"log/slog"

	"github.com/holomush/holoclient/internal/conn"
	"github.com/holomush/holoclient/internal/identity"
	"github.com/holomush/holoclient/internal/observability"
	"github.com/holomush/holoclient/internal/session"
	"github.com/holomush/holoclient/internal/tui"
)

// ObservabilityServer is the part of observability.Server the play command uses.
type ObservabilityServer interface {
	Start() (<-chan error, error)
	Stop(ctx context.Context) error
	Addr() string
}

// PlayDeps contains injectable dependencies for the play command.
// All fields with nil values will use their default implementations.
type PlayDeps struct {
	// TransportFactory creates the game server transport.
	// Default: conn.NewWebsocketTransport
	TransportFactory func(serverURL string) conn.Transport

	// ProviderFactory creates the identity provider.
	// Default: identity.NewHTTPProvider
	ProviderFactory func(cfg identity.HTTPConfig) (identity.Provider, error)

	// ObservabilityServerFactory creates the metrics and health server.
	// Default: observability.NewServer with connection and session metrics
	ObservabilityServerFactory func(addr string, ready observability.ReadinessChecker, logger *slog.Logger) ObservabilityServer

	// LogWriterFactory opens the log destination.
	// Default: openLogFile
	LogWriterFactory func(path string) (io.WriteCloser, error)

	// UI presents the session and blocks until the user quits.
	// Default: tui.Run
	UI func(ctx context.Context, s tui.Session, title string) error
}

func (d *PlayDeps) withDefaults() *PlayDeps {
	out := PlayDeps{}
	if d != nil {
		out = *d
	}
	if out.TransportFactory == nil {
		out.TransportFactory = func(serverURL string) conn.Transport {
			return conn.NewWebsocketTransport(serverURL, nil)
		}
	}
	if out.ProviderFactory == nil {
		out.ProviderFactory = func(cfg identity.HTTPConfig) (identity.Provider, error) {
			return identity.NewHTTPProvider(cfg)
		}
	}
	if out.ObservabilityServerFactory == nil {
		out.ObservabilityServerFactory = func(addr string, ready observability.ReadinessChecker, logger *slog.Logger) ObservabilityServer {
			return observability.NewServer(addr, ready, logger, conn.RegisterMetrics, session.RegisterMetrics)
		}
	}
	if out.LogWriterFactory == nil {
		out.LogWriterFactory = openLogFile
	}
	if out.UI == nil {
		out.UI = func(ctx context.Context, s tui.Session, title string) error {
			return tui.Run(ctx, s, title)
		}
	}
	return &out
}
