package session

import (
	"context"
	"sync"

	"github.com/freightdesk/freightdesk-console-go/internal/domain"
	"github.com/freightdesk/freightdesk-console-go/internal/infra/observability"
	"github.com/freightdesk/freightdesk-console-go/internal/port"

	"go.opentelemetry.io/otel"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

var sessionTracer = otel.Tracer("session")

// RemoteManager is the real session manager, backed by the freight
// backend. Mutations hold mu; network calls never do, so the
// auth-failure handler can fire from inside an in-flight call without
// deadlocking.
type RemoteManager struct {
	api     port.AuthAPI
	vault   port.TokenVault
	metrics *observability.Metrics
	logger  *zap.Logger

	mu    sync.RWMutex
	phase Phase
	actor *domain.Actor
	perms map[string]struct{}

	refreshGroup singleflight.Group
	refresher    *refresher
}

// NewRemoteManager creates a session manager in the booting phase.
// Callers must register its AuthFailure method with the backend client
// and then run Bootstrap.
func NewRemoteManager(api port.AuthAPI, vault port.TokenVault, metrics *observability.Metrics, logger *zap.Logger) *RemoteManager {
	return &RemoteManager{
		api:     api,
		vault:   vault,
		metrics: metrics,
		logger:  logger,
		phase:   PhaseBooting,
	}
}

// Bootstrap resolves the startup session state from the persisted
// tokens. A stored token whose profile fetch fails is indistinguishable
// from "never logged in", so it is cleared rather than surfaced.
func (m *RemoteManager) Bootstrap(ctx context.Context) {
	ctx, span := sessionTracer.Start(ctx, "Session.Bootstrap")
	defer span.End()

	if m.vault.AccessToken() == "" {
		m.logger.Info("bootstrap: no stored token")
		m.toAnonymous("bootstrap")
		return
	}

	actor, err := m.api.Me(ctx)
	if err != nil {
		// The login page is reachable during boot, so a login may have
		// installed fresh tokens while this fetch was in flight. Only a
		// still-booting session belongs to this startup path; anything
		// else keeps its state.
		m.mu.Lock()
		if m.phase != PhaseBooting {
			m.mu.Unlock()
			m.logger.Debug("bootstrap: superseded by login, keeping session")
			return
		}
		m.vault.ClearTokens()
		m.phase = PhaseAnonymous
		m.actor = nil
		m.perms = nil
		m.mu.Unlock()

		m.metrics.IncrSessionTransition("anonymous", "bootstrap")
		m.logger.Warn("bootstrap: stored token rejected, clearing", zap.Error(err))
		return
	}

	m.mu.Lock()
	m.installActorLocked(actor)
	m.mu.Unlock()

	m.metrics.IncrSessionTransition("active", "bootstrap")
	m.logger.Info("bootstrap: session restored",
		zap.Int64("actor_id", actor.ID),
		zap.String("actor", actor.DisplayName),
	)
	m.scheduleRefresh(0, m.vault.AccessToken())
}

// Login executes the credential exchange. State is mutated only on
// success; a rejection surfaces the server message untouched.
func (m *RemoteManager) Login(ctx context.Context, username, password string) (LoginResult, error) {
	ctx, span := sessionTracer.Start(ctx, "Session.Login")
	defer span.End()

	resp, err := m.api.Login(ctx, &domain.LoginRequest{Username: username, Password: password})
	if err != nil {
		m.metrics.IncrLoginAttempt("rejected")
		return LoginResult{}, err
	}

	m.vault.SetTokens(resp.AccessToken, resp.RefreshToken)

	actor := resp.User
	if actor == nil {
		// Backend variant that omits the profile from the login
		// response: fetch it with the fresh token.
		actor, err = m.api.Me(ctx)
		if err != nil {
			m.vault.ClearTokens()
			m.metrics.IncrLoginAttempt("rejected")
			return LoginResult{}, err
		}
	}

	m.mu.Lock()
	m.installActorLocked(actor)
	m.mu.Unlock()

	m.metrics.IncrLoginAttempt("ok")
	m.metrics.IncrSessionTransition("active", "login")
	m.logger.Info("operator logged in",
		zap.Int64("actor_id", actor.ID),
		zap.Bool("must_change_password", actor.MustChangePassword),
	)

	m.scheduleRefresh(resp.ExpiresIn, resp.AccessToken)

	return LoginResult{MustChangePassword: actor.MustChangePassword}, nil
}

// Logout notifies the backend best-effort, then tears the session
// down. Logout always succeeds locally.
func (m *RemoteManager) Logout(ctx context.Context) {
	ctx, span := sessionTracer.Start(ctx, "Session.Logout")
	defer span.End()

	if m.IsAuthenticated() {
		if err := m.api.Logout(ctx); err != nil {
			m.logger.Debug("logout: backend notify failed, proceeding", zap.Error(err))
		}
	}
	m.teardown("logout")
}

// AuthFailure handles a backend 401 on any authenticated call.
// Idempotent with Logout against already-cleared state.
func (m *RemoteManager) AuthFailure() {
	m.logger.Warn("session invalidated by backend")
	m.teardown("auth_failure")
}

// RefreshUser re-fetches the actor profile and replaces it wholesale.
// Concurrent calls are deduplicated; failures leave the actor alone.
func (m *RemoteManager) RefreshUser(ctx context.Context) {
	_, _, _ = m.refreshGroup.Do("refresh-user", func() (any, error) {
		ctx, span := sessionTracer.Start(ctx, "Session.RefreshUser")
		defer span.End()

		actor, err := m.api.Me(ctx)
		if err != nil {
			m.logger.Warn("refresh user: profile fetch failed, keeping current actor", zap.Error(err))
			return nil, nil
		}

		m.mu.Lock()
		if m.phase == PhaseActive {
			m.installActorLocked(actor)
		}
		m.mu.Unlock()
		return nil, nil
	})
}

// ChangePassword submits the change and, on success, refreshes the
// actor so the cleared mustChangePassword flag is observed.
func (m *RemoteManager) ChangePassword(ctx context.Context, currentPassword, newPassword string, baseCurrencyID *int64) error {
	ctx, span := sessionTracer.Start(ctx, "Session.ChangePassword")
	defer span.End()

	req := &domain.ChangePasswordRequest{
		CurrentPassword: currentPassword,
		NewPassword:     newPassword,
		BaseCurrencyID:  baseCurrencyID,
	}
	if err := m.api.ChangePassword(ctx, req); err != nil {
		return err
	}

	m.RefreshUser(ctx)
	return nil
}

// HasPermission reports membership in the actor's flat permission set.
func (m *RemoteManager) HasPermission(code string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.actor == nil {
		return false
	}
	_, ok := m.perms[code]
	return ok
}

// HasAnyPermission reports a non-empty intersection with codes.
func (m *RemoteManager) HasAnyPermission(codes ...string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.actor == nil {
		return false
	}
	for _, code := range codes {
		if _, ok := m.perms[code]; ok {
			return true
		}
	}
	return false
}

// IsAuthenticated requires both an actor and an access token.
func (m *RemoteManager) IsAuthenticated() bool {
	m.mu.RLock()
	actor := m.actor
	m.mu.RUnlock()

	return actor != nil && m.vault.AccessToken() != ""
}

// State returns the current session view.
func (m *RemoteManager) State() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return State{Phase: m.phase, Actor: m.actor}
}

// Close stops the background refresher.
func (m *RemoteManager) Close() {
	m.mu.Lock()
	m.stopRefresherLocked()
	m.mu.Unlock()
}

// --- internals ---

// installActorLocked replaces the actor and its permission set.
// Caller holds mu.
func (m *RemoteManager) installActorLocked(actor *domain.Actor) {
	m.phase = PhaseActive
	m.actor = actor
	m.perms = actor.PermissionSet()
}

func (m *RemoteManager) toAnonymous(cause string) {
	m.mu.Lock()
	m.phase = PhaseAnonymous
	m.actor = nil
	m.perms = nil
	m.stopRefresherLocked()
	m.mu.Unlock()

	m.metrics.IncrSessionTransition("anonymous", cause)
}

// teardown clears tokens and actor. Safe to call repeatedly: clearing
// already-cleared state is a no-op, not an error. The vault is cleared
// under mu so an in-flight token rotation cannot commit past it.
func (m *RemoteManager) teardown(cause string) {
	m.mu.Lock()
	wasActive := m.actor != nil
	m.phase = PhaseAnonymous
	m.actor = nil
	m.perms = nil
	m.stopRefresherLocked()
	m.vault.ClearTokens()
	m.mu.Unlock()

	if wasActive {
		m.metrics.IncrSessionTransition("anonymous", cause)
	}
}
