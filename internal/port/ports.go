// Package port defines the interfaces (ports) for external dependencies.
// Following hexagonal architecture, these ports decouple the session and
// guard layers from concrete implementations.
package port

import (
	"context"

	"github.com/freightdesk/freightdesk-console-go/internal/domain"
)

// AuthAPI is the slice of the freight backend consumed by the session
// layer. The backend remains the authoritative enforcer; this client
// side only stores, attaches and clears what it returns.
type AuthAPI interface {
	Login(ctx context.Context, req *domain.LoginRequest) (*domain.LoginResponse, error)
	Refresh(ctx context.Context, refreshToken string) (*domain.LoginResponse, error)
	// Logout notifies the backend; callers treat failures as
	// best-effort and proceed regardless.
	Logout(ctx context.Context) error
	Me(ctx context.Context) (*domain.Actor, error)
	ChangePassword(ctx context.Context, req *domain.ChangePasswordRequest) error
}

// ReferenceAPI serves reference data needed by the setup flow.
type ReferenceAPI interface {
	Currencies(ctx context.Context) ([]domain.Currency, error)
}

// TokenVault persists the access/refresh token pair across process
// restarts. All operations are total over local state — no network,
// no error conditions.
type TokenVault interface {
	// SetTokens overwrites both tokens unconditionally.
	SetTokens(access, refresh string)
	// AccessToken returns the held access token, or "" when none.
	AccessToken() string
	// RefreshToken returns the held refresh token, or "" when none.
	RefreshToken() string
	// ClearTokens drops both tokens. Idempotent.
	ClearTokens()
}

// Cache provides generic caching with TTL.
type Cache[T any] interface {
	Get(key string) (T, bool)
	Set(key string, value T)
	Delete(key string)
}
