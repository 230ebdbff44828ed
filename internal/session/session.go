// Package session owns the single source of truth for "who is the
// current actor". It is the only component that transitions session
// state; the route guard and inline gates are read-only consumers.
package session

import (
	"context"

	"github.com/freightdesk/freightdesk-console-go/internal/domain"
)

// Phase is the session lifecycle position.
type Phase int

const (
	// PhaseBooting holds only while the startup actor-load is in
	// flight. It is a transient bootstrap property, not a third
	// session value: guards render a holding page and nothing else.
	PhaseBooting Phase = iota
	PhaseAnonymous
	PhaseActive
)

func (p Phase) String() string {
	switch p {
	case PhaseBooting:
		return "booting"
	case PhaseAnonymous:
		return "anonymous"
	case PhaseActive:
		return "active"
	}
	return "unknown"
}

// State is a point-in-time view of the session. Actor is non-nil
// exactly when Phase is PhaseActive, so an actor without a live
// session is unrepresentable here.
type State struct {
	Phase Phase
	Actor *domain.Actor
}

// LoginResult reports the outcome of a successful login.
type LoginResult struct {
	// MustChangePassword is true when the backend requires a password
	// change before any other page may be used.
	MustChangePassword bool
}

// Manager is the session state machine. Two implementations exist:
// RemoteManager (real backend) and FixedActorManager (dev mode),
// selected once at startup so no operation carries a dev-mode branch.
type Manager interface {
	// Bootstrap resolves the startup state: no stored token means
	// anonymous; a stored token is validated by fetching the profile,
	// and cleared when that fails. Guards block on the booting phase
	// until this returns.
	Bootstrap(ctx context.Context)

	// Login exchanges credentials for a session. On failure the
	// server-supplied message is returned as an error value and state
	// is unchanged.
	Login(ctx context.Context, username, password string) (LoginResult, error)

	// Logout notifies the backend best-effort, then clears tokens and
	// actor. It always succeeds locally.
	Logout(ctx context.Context)

	// RefreshUser re-fetches the actor profile and replaces it
	// wholesale. Failures leave the existing actor untouched.
	RefreshUser(ctx context.Context)

	// ChangePassword submits a password change (plus the one-time base
	// currency during initial setup) and on success refreshes the
	// actor so cleared flags are visible.
	ChangePassword(ctx context.Context, currentPassword, newPassword string, baseCurrencyID *int64) error

	// HasPermission reports membership of code in the actor's flat
	// permission set. False, not an error, when there is no actor.
	HasPermission(code string) bool

	// HasAnyPermission reports whether the actor's permission set
	// intersects codes.
	HasAnyPermission(codes ...string) bool

	// IsAuthenticated requires both a present actor and a present
	// access token; a stale in-memory actor after token clearing is
	// not authenticated.
	IsAuthenticated() bool

	// State returns the current session view.
	State() State

	// AuthFailure is the handler registered with the backend client
	// for 401s. Idempotent with Logout: whichever fires first clears
	// state, the second is a no-op.
	AuthFailure()

	// Close stops background work (the token refresher).
	Close()
}
