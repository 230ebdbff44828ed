package session

import (
	"context"

	"github.com/freightdesk/freightdesk-console-go/internal/domain"

	"go.uber.org/zap"
)

// DevActor is the fixed identity substituted in dev mode.
var DevActor = domain.Actor{
	ID:                     1,
	DisplayName:            "Dev Operator",
	Email:                  "dev@freightdesk.local",
	OrganizationName:       "FreightDesk Dev",
	BaseCurrencyConfigured: true,
	Roles:                  []string{"developer"},
}

// FixedActorManager is the dev-mode session manager: permanently
// authenticated as DevActor with every permission granted, no backend
// calls. Selected once at startup from deployment configuration;
// nothing at runtime can switch to it.
type FixedActorManager struct {
	actor  domain.Actor
	logger *zap.Logger
}

// NewFixedActorManager creates the dev-mode manager.
func NewFixedActorManager(logger *zap.Logger) *FixedActorManager {
	logger.Warn("DEV_AUTH enabled: authentication and authorization checks are bypassed")
	return &FixedActorManager{actor: DevActor, logger: logger}
}

// Bootstrap is immediate: the dev session exists before any login.
func (m *FixedActorManager) Bootstrap(context.Context) {}

// Login always succeeds with the fixed actor; no forced change pends.
func (m *FixedActorManager) Login(_ context.Context, username, _ string) (LoginResult, error) {
	m.logger.Debug("dev login", zap.String("username", username))
	return LoginResult{}, nil
}

// Logout is local-only; the dev session cannot actually end.
func (m *FixedActorManager) Logout(context.Context) {
	m.logger.Debug("dev logout ignored")
}

// RefreshUser has nothing to fetch.
func (m *FixedActorManager) RefreshUser(context.Context) {}

// ChangePassword is accepted without effect.
func (m *FixedActorManager) ChangePassword(context.Context, string, string, *int64) error {
	return nil
}

// HasPermission grants everything, with or without an actor.
func (m *FixedActorManager) HasPermission(string) bool { return true }

// HasAnyPermission grants everything.
func (m *FixedActorManager) HasAnyPermission(...string) bool { return true }

// IsAuthenticated is always true in dev mode.
func (m *FixedActorManager) IsAuthenticated() bool { return true }

// State is permanently active.
func (m *FixedActorManager) State() State {
	actor := m.actor
	return State{Phase: PhaseActive, Actor: &actor}
}

// AuthFailure cannot apply: no backend issues 401s to the dev session.
func (m *FixedActorManager) AuthFailure() {}

// Close has no background work to stop.
func (m *FixedActorManager) Close() {}
