// Package backend provides the HTTP client for the freight backend REST
// API. Every authenticated call in the console passes through it: it
// attaches the current access token, and on a 401 it notifies the
// registered auth-failure handler before surfacing the error. It never
// clears tokens itself — session teardown belongs to the session manager.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/freightdesk/freightdesk-console-go/internal/domain"
	"github.com/freightdesk/freightdesk-console-go/internal/infra/observability"
	"github.com/freightdesk/freightdesk-console-go/internal/infra/resilience"
	"github.com/freightdesk/freightdesk-console-go/internal/port"

	"github.com/google/uuid"
	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

var tracer = otel.Tracer("backend")

// Client wraps HTTP calls to the freight backend.
type Client struct {
	httpClient *http.Client
	baseURL    string
	vault      port.TokenVault
	cb         *gobreaker.CircuitBreaker
	bulkhead   *resilience.Bulkhead
	cfg        resilience.Config
	metrics    *observability.Metrics
	logger     *zap.Logger

	// onAuthFailure is invoked when an authenticated call comes back
	// 401. Exactly one handler; registering again replaces it. Login
	// and refresh rejections do not fire it — those are credential
	// errors owned by their callers.
	onAuthFailure func()
}

// NewClient creates a backend client. The auth-failure handler is bound
// afterwards via SetAuthFailureHandler, once the session manager exists.
func NewClient(httpClient *http.Client, baseURL string, vault port.TokenVault, cb *gobreaker.CircuitBreaker, cfg resilience.Config, metrics *observability.Metrics, logger *zap.Logger) *Client {
	maxConcurrency := cfg.MaxConcurrency
	if maxConcurrency <= 0 {
		maxConcurrency = 8
	}
	c := &Client{
		httpClient: httpClient,
		baseURL:    baseURL,
		vault:      vault,
		cb:         cb,
		bulkhead:   resilience.NewBulkhead(maxConcurrency),
		metrics:    metrics,
		logger:     logger,
	}
	cfg.RetryIf = func(err error) bool { return !isClientFault(err) }
	c.cfg = cfg
	return c
}

// SetAuthFailureHandler registers the single auth-failure handler.
// A later registration replaces the previous one.
func (c *Client) SetAuthFailureHandler(fn func()) {
	c.onAuthFailure = fn
}

// BaseURL exposes the configured backend base URL (used by the proxy).
func (c *Client) BaseURL() string { return c.baseURL }

// --- Auth endpoints (implements port.AuthAPI) ---

// Login exchanges credentials for a token pair and the actor profile.
func (c *Client) Login(ctx context.Context, req *domain.LoginRequest) (*domain.LoginResponse, error) {
	ctx, span := tracer.Start(ctx, "Backend.Login")
	defer span.End()
	span.SetAttributes(attribute.String("username", req.Username))

	var resp domain.LoginResponse
	err := c.call(ctx, "login", func() error {
		return c.doRequest(ctx, http.MethodPost, "/v1/auth/login", req, &resp, false)
	})
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

// Refresh rotates the token pair. A rejected refresh token surfaces as
// ErrUnauthorized without firing the auth-failure handler.
func (c *Client) Refresh(ctx context.Context, refreshToken string) (*domain.LoginResponse, error) {
	ctx, span := tracer.Start(ctx, "Backend.Refresh")
	defer span.End()

	var resp domain.LoginResponse
	err := c.call(ctx, "refresh", func() error {
		return c.doRequest(ctx, http.MethodPost, "/v1/auth/refresh", &domain.RefreshRequest{RefreshToken: refreshToken}, &resp, false)
	})
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

// Logout notifies the backend that the session ends. Best-effort for
// callers: the session manager ignores the returned error.
func (c *Client) Logout(ctx context.Context) error {
	ctx, span := tracer.Start(ctx, "Backend.Logout")
	defer span.End()

	return c.call(ctx, "logout", func() error {
		return c.doRequest(ctx, http.MethodPost, "/v1/auth/logout", nil, nil, true)
	})
}

// Me fetches the current actor profile.
func (c *Client) Me(ctx context.Context) (*domain.Actor, error) {
	ctx, span := tracer.Start(ctx, "Backend.Me")
	defer span.End()

	var actor domain.Actor
	err := c.call(ctx, "me", func() error {
		return c.doRequest(ctx, http.MethodGet, "/v1/auth/me", nil, &actor, true)
	})
	if err != nil {
		return nil, err
	}
	return &actor, nil
}

// ChangePassword submits a password change (and, during initial setup,
// the one-time base currency choice).
func (c *Client) ChangePassword(ctx context.Context, req *domain.ChangePasswordRequest) error {
	ctx, span := tracer.Start(ctx, "Backend.ChangePassword")
	defer span.End()

	return c.call(ctx, "change_password", func() error {
		return c.doRequest(ctx, http.MethodPost, "/v1/auth/change-password", req, nil, true)
	})
}

// --- Reference data (implements port.ReferenceAPI) ---

// Currencies lists the accounting currencies offered during initial setup.
func (c *Client) Currencies(ctx context.Context) ([]domain.Currency, error) {
	ctx, span := tracer.Start(ctx, "Backend.Currencies")
	defer span.End()

	var currencies []domain.Currency
	err := c.call(ctx, "currencies", func() error {
		return c.doRequest(ctx, http.MethodGet, "/v1/currencies", nil, &currencies, true)
	})
	if err != nil {
		return nil, err
	}
	return currencies, nil
}

// --- Internals ---

// call runs fn under retry + circuit breaker. Client faults (4xx,
// including 401s) are not retried and do not count against the breaker:
// a rejected credential is not a backend outage.
func (c *Client) call(ctx context.Context, operation string, fn func() error) error {
	start := time.Now()
	defer func() {
		c.metrics.RecordRequestDuration(operation, time.Since(start))
	}()

	if err := c.bulkhead.Acquire(ctx); err != nil {
		c.metrics.IncrBackendError(operation)
		return &domain.ErrExternalService{Service: "backend/" + operation, Err: err}
	}
	defer c.bulkhead.Release()

	res, err := c.cb.Execute(func() (any, error) {
		err := resilience.RetryWithBackoff(ctx, c.cfg, fn)
		if isClientFault(err) {
			return err, nil
		}
		return nil, err
	})
	if err != nil {
		c.metrics.IncrBackendError(operation)
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return &domain.ErrCircuitOpen{Service: "backend/" + operation}
		}
		return &domain.ErrExternalService{Service: "backend/" + operation, Err: err}
	}
	if res != nil {
		return res.(error)
	}
	return nil
}

// doRequest executes one HTTP exchange against the backend.
func (c *Client) doRequest(ctx context.Context, method, path string, body, out any, authed bool) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		c.logger.Error("backend: failed to create request",
			zap.String("method", method),
			zap.String("path", path),
			zap.Error(err),
		)
		return err
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Request-ID", uuid.NewString())
	if authed {
		if token := c.vault.AccessToken(); token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error("backend: request failed",
			zap.String("method", method),
			zap.String("path", path),
			zap.Error(err),
		)
		return err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}

	if resp.StatusCode == http.StatusUnauthorized {
		msg := decodeErrorMessage(respBody)
		c.logger.Warn("backend: unauthorized",
			zap.String("method", method),
			zap.String("path", path),
			zap.Bool("authed_call", authed),
		)
		if authed {
			c.metrics.IncrAuthFailure("client")
			if c.onAuthFailure != nil {
				c.onAuthFailure()
			}
		}
		return &domain.ErrUnauthorized{Message: msg}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.logger.Warn("backend: non-2xx response",
			zap.String("method", method),
			zap.String("path", path),
			zap.Int("status", resp.StatusCode),
		)
		return &domain.ErrBackendStatus{Status: resp.StatusCode, Message: decodeErrorMessage(respBody)}
	}

	c.logger.Debug("backend: request OK",
		zap.String("method", method),
		zap.String("path", path),
		zap.Int("status", resp.StatusCode),
	)

	if out != nil && len(respBody) > 0 {
		if err := json.Unmarshal(respBody, out); err != nil {
			return fmt.Errorf("failed to decode %s response: %w", path, err)
		}
	}
	return nil
}

// isClientFault reports whether err is a 4xx-class fault that retrying
// cannot fix.
func isClientFault(err error) bool {
	if err == nil {
		return false
	}
	var unauthorized *domain.ErrUnauthorized
	if errors.As(err, &unauthorized) {
		return true
	}
	var status *domain.ErrBackendStatus
	if errors.As(err, &status) {
		return status.Status >= 400 && status.Status < 500
	}
	return false
}

func decodeErrorMessage(body []byte) string {
	var payload struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return ""
	}
	return payload.Error
}
