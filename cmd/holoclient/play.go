// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/holomush/holoclient/internal/config"
	"github.com/holomush/holoclient/internal/conn"
	"github.com/holomush/holoclient/internal/identity"
	"github.com/holomush/holoclient/internal/logging"
	"github.com/holomush/holoclient/internal/session"
	"github.com/holomush/holoclient/internal/tui"
	"github.com/holomush/holoclient/internal/xdg"
	"github.com/holomush/holoclient/pkg/errutil"
)

const serviceName = "holoclient"

// NewPlayCmd creates the play subcommand.
func NewPlayCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "play",
		Short: "Connect to a game server and play",
		Long: `Connect to the game server and open the terminal interface.
Type 'register' to create an account or 'login' to sign in; once logged in,
every line you enter is sent to the game as a command.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runPlayWithDeps(cmd.Context(), cmd, nil)
		},
	}

	config.RegisterFlags(cmd.Flags())
	return cmd
}

// resolveConfigPath returns the config file to read and whether it must exist.
func resolveConfigPath() (string, bool, error) {
	if configFile != "" {
		return configFile, true, nil
	}
	path, err := xdg.ConfigFile()
	if err != nil {
		return "", false, oops.Wrapf(err, "failed to locate config file")
	}
	return path, false, nil
}

func runPlayWithDeps(ctx context.Context, cmd *cobra.Command, deps *PlayDeps) error {
	deps = deps.withDefaults()

	path, required, err := resolveConfigPath()
	if err != nil {
		return err
	}
	cfg, err := config.Load(path, required, cmd.Flags())
	if err != nil {
		if errutil.Code(err) == config.CodeSchema {
			return fmt.Errorf("invalid config file %s: %s", path, config.FormatSchemaError(err))
		}
		return fmt.Errorf("invalid configuration: %w", err)
	}

	logPath := cfg.LogFile
	if logPath == "" {
		if logPath, err = xdg.LogFile(); err != nil {
			return fmt.Errorf("failed to locate log file: %w", err)
		}
	}
	logWriter, err := deps.LogWriterFactory(logPath)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}
	defer func() { _ = logWriter.Close() }()

	logger := logging.Setup(serviceName, version, cfg.LogFormat, logging.ParseLevel(cfg.LogLevel), logWriter)
	ctx = logging.WithSessionID(ctx, session.NewID())
	logger.InfoContext(ctx, "starting session",
		"server_url", cfg.ServerURL,
		"login_ack", cfg.LoginAck,
	)

	manager := conn.NewManager(deps.TransportFactory(cfg.ServerURL),
		conn.WithDialAttempts(uint64(cfg.ConnectAttempts), cfg.ConnectBackoff.Std()),
		conn.WithLogger(logger),
	)

	provider, err := deps.ProviderFactory(identity.HTTPConfig{
		BaseURL: cfg.IdentityURL,
		APIKey:  cfg.IdentityAPIKey,
		Timeout: cfg.IdentityTimeout.Std(),
		Logger:  logger,
	})
	if err != nil {
		return fmt.Errorf("failed to create identity provider: %w", err)
	}

	machine, err := session.NewMachine(manager, provider, session.Options{
		LoginAck:     session.LoginAck(cfg.LoginAck),
		LoginWindow:  cfg.LoginWindow.Std(),
		LoginTimeout: cfg.LoginTimeout.Std(),
		Logger:       logger,
	})
	if err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}

	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	var obsServer ObservabilityServer
	if cfg.MetricsAddr != "" {
		obsServer = deps.ObservabilityServerFactory(cfg.MetricsAddr, manager.Connected, logger)
		obsErrChan, startErr := obsServer.Start()
		if startErr != nil {
			return fmt.Errorf("failed to start observability server: %w", startErr)
		}
		go func() {
			if serveErr, ok := <-obsErrChan; ok && serveErr != nil {
				errutil.LogError(ctx, logger, "observability server failed", serveErr)
			}
		}()
	}

	go func() {
		if runErr := machine.Run(ctx); runErr != nil {
			errutil.LogError(ctx, logger, "session loop failed", runErr)
		}
	}()

	connectDone := make(chan struct{})
	go func() {
		defer close(connectDone)
		if connectErr := manager.Connect(ctx); connectErr != nil {
			errutil.LogError(ctx, logger, "connect failed", connectErr)
			machine.Notify(fmt.Sprintf("Could not connect to %s.", cfg.ServerURL))
		}
	}()

	uiErr := deps.UI(ctx, tui.FromMachine(machine), fmt.Sprintf("holoclient - %s", cfg.ServerURL))

	cancel()
	<-connectDone
	if err := manager.Disconnect(); err != nil {
		logger.DebugContext(ctx, "error closing connection", "error", err)
	}
	<-machine.Done()

	if obsServer != nil {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		if err := obsServer.Stop(shutdownCtx); err != nil {
			logger.Warn("error stopping observability server", "error", err)
		}
	}

	logger.Info("session ended")
	if uiErr != nil {
		return fmt.Errorf("terminal interface failed: %w", uiErr)
	}
	return nil
}

// openLogFile opens path for appending, creating its directory.
func openLogFile(path string) (io.WriteCloser, error) {
	if err := xdg.EnsureDir(filepath.Dir(path)); err != nil {
		return nil, oops.With("path", path).Wrap(err)
	}
	//nolint:gosec // path comes from config or the XDG state dir
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
	if err != nil {
		return nil, oops.With("path", path).Wrap(err)
	}
	return f, nil
}
