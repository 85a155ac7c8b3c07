// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package identity

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/samber/oops"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/holomush/holoclient/pkg/errutil"
)

var tracer = otel.Tracer("holoclient/identity")

// maxResponseBytes caps how much of a provider response is read.
const maxResponseBytes = 64 << 10

// HTTPConfig holds configuration for the REST identity provider.
type HTTPConfig struct {
	// BaseURL is the identity API root (e.g., "https://identitytoolkit.googleapis.com/v1")
	BaseURL string

	// APIKey is appended as the "key" query parameter when set.
	APIKey string

	// Timeout bounds a single call (default: 10s)
	Timeout time.Duration

	// Client overrides the HTTP client. Timeout is ignored when set.
	Client *http.Client

	Logger *slog.Logger
}

// HTTPProvider talks to an identity-toolkit style REST API.
type HTTPProvider struct {
	base   *url.URL
	apiKey string
	client *http.Client
	logger *slog.Logger
}

// NewHTTPProvider creates a provider for the given config.
func NewHTTPProvider(cfg HTTPConfig) (*HTTPProvider, error) {
	if cfg.BaseURL == "" {
		return nil, oops.Errorf("identity base URL is required")
	}
	base, err := url.Parse(strings.TrimSuffix(cfg.BaseURL, "/"))
	if err != nil {
		return nil, oops.With("base_url", cfg.BaseURL).Wrapf(err, "invalid identity base URL")
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, oops.With("base_url", cfg.BaseURL).Errorf("identity base URL must be http or https")
	}

	if cfg.Timeout == 0 {
		cfg.Timeout = 10 * time.Second
	}
	client := cfg.Client
	if client == nil {
		client = &http.Client{Timeout: cfg.Timeout}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	return &HTTPProvider{
		base:   base,
		apiKey: cfg.APIKey,
		client: client,
		logger: logger,
	}, nil
}

type credentialRequest struct {
	Email             string `json:"email"`
	Password          string `json:"password"`
	ReturnSecureToken bool   `json:"returnSecureToken"`
}

type tokenResponse struct {
	IDToken string `json:"idToken"`
}

type errorResponse struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// CreateAccount signs up a new account.
func (p *HTTPProvider) CreateAccount(ctx context.Context, email, secret string) (Token, error) {
	return p.call(ctx, OpCreateAccount, "accounts:signUp", email, secret)
}

// Authenticate signs in with an existing account.
func (p *HTTPProvider) Authenticate(ctx context.Context, email, secret string) (Token, error) {
	return p.call(ctx, OpAuthenticate, "accounts:signInWithPassword", email, secret)
}

func (p *HTTPProvider) call(ctx context.Context, op, method, email, secret string) (Token, error) {
	ctx, span := tracer.Start(ctx, "identity."+op,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(attribute.String("identity.operation", op)),
	)
	defer span.End()

	token, err := p.do(ctx, op, method, email, secret)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, errutil.Code(err))
		p.logger.DebugContext(ctx, "identity call failed",
			"operation", op,
			"email", maskEmail(email),
			"code", errutil.Code(err),
		)
		return "", err
	}
	span.SetStatus(codes.Ok, "")
	return token, nil
}

func (p *HTTPProvider) do(ctx context.Context, op, method, email, secret string) (Token, error) {
	body, err := json.Marshal(credentialRequest{
		Email:             email,
		Password:          secret,
		ReturnSecureToken: true,
	})
	if err != nil {
		return "", oops.With("operation", op).Wrapf(err, "failed to encode identity request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint(method), bytes.NewReader(body))
	if err != nil {
		return "", oops.With("operation", op).Wrapf(err, "failed to build identity request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return "", ErrProviderUnavailable(op, err)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return "", ErrProviderUnavailable(op, err)
	}

	if resp.StatusCode >= http.StatusInternalServerError {
		return "", ErrProviderUnavailable(op, oops.With("status", resp.StatusCode).Errorf("server error"))
	}
	if resp.StatusCode != http.StatusOK {
		return "", classify(op, resp.StatusCode, data)
	}

	var tr tokenResponse
	if err := json.Unmarshal(data, &tr); err != nil {
		return "", oops.With("operation", op).Wrapf(err, "malformed identity response")
	}
	if tr.IDToken == "" {
		return "", oops.With("operation", op).Errorf("identity response carried no token")
	}
	return Token(tr.IDToken), nil
}

func (p *HTTPProvider) endpoint(method string) string {
	u := *p.base
	u.Path = u.Path + "/" + method
	if p.apiKey != "" {
		q := u.Query()
		q.Set("key", p.apiKey)
		u.RawQuery = q.Encode()
	}
	return u.String()
}

// classify maps a 4xx error body onto the identity error taxonomy. Provider
// messages may carry a suffix ("WEAK_PASSWORD : Password should be...").
func classify(op string, status int, body []byte) error {
	var er errorResponse
	_ = json.Unmarshal(body, &er)
	reason, _, _ := strings.Cut(er.Error.Message, " ")

	switch reason {
	case "EMAIL_EXISTS":
		return ErrAccountExists(op)
	case "EMAIL_NOT_FOUND":
		return ErrAccountNotFound(op)
	case "INVALID_PASSWORD", "INVALID_LOGIN_CREDENTIALS", "INVALID_EMAIL",
		"WEAK_PASSWORD", "MISSING_PASSWORD", "MISSING_EMAIL", "USER_DISABLED":
		return ErrInvalidCredentials(op, reason)
	case "TOO_MANY_ATTEMPTS_TRY_LATER":
		return ErrProviderUnavailable(op, nil)
	}
	return oops.
		With("operation", op).
		With("status", status).
		With("reason", reason).
		Errorf("identity request rejected")
}

// maskEmail keeps enough of an address to correlate log lines.
func maskEmail(email string) string {
	local, domain, ok := strings.Cut(email, "@")
	if !ok || local == "" {
		return "***"
	}
	return local[:1] + "***@" + domain
}
