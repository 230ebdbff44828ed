// Package guard gates navigable pages (Guard, a redirecting middleware)
// and rendered fragments (Gate, an in-place conditional) on session and
// permission state. Both are read-only consumers of the session; the
// backend remains the actual enforcement point for everything they wrap.
package guard

import (
	"net/http"
	"net/url"

	"github.com/freightdesk/freightdesk-console-go/internal/session"

	"go.uber.org/zap"
)

// Navigation entry points used by redirects.
const (
	LoginPath          = "/login"
	ChangePasswordPath = "/change-password"
	UnauthorizedPath   = "/unauthorized"

	// ReturnParam carries the originally requested location through the
	// login flow.
	ReturnParam = "return"
)

// Session is the read-only view of the session manager the guard needs.
type Session interface {
	State() session.State
	HasPermission(code string) bool
	HasAnyPermission(codes ...string) bool
	IsAuthenticated() bool
}

// Options declares what a protected route requires beyond authentication.
type Options struct {
	// Permission is a single required code.
	Permission string
	// Permissions is a required list, interpreted per RequireAll.
	Permissions []string
	// RequireAll demands every listed code; otherwise one suffices.
	RequireAll bool
}

// Guard is the page-level route guard.
type Guard struct {
	session Session
	logger  *zap.Logger
}

// New creates a route guard over the given session.
func New(s Session, logger *zap.Logger) *Guard {
	return &Guard{session: s, logger: logger}
}

// Protect returns middleware enforcing the guard rules in strict order:
// booting holds, unauthenticated redirects to login preserving the
// requested location, a pending forced password change redirects to the
// change page (except on that page itself), and only then are
// permissions checked. The ordering is load-bearing: an unauthenticated
// visitor must never see a permission-specific rejection.
func (g *Guard) Protect(opts Options) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			st := g.session.State()

			// 1. Bootstrap still in flight: hold, never redirect —
			// redirecting here would race the startup actor load.
			if st.Phase == session.PhaseBooting {
				w.Header().Set("Retry-After", "1")
				w.Header().Set("Content-Type", "text/html; charset=utf-8")
				w.WriteHeader(http.StatusServiceUnavailable)
				w.Write([]byte("<!doctype html><title>Loading</title><p>Starting session…</p>"))
				return
			}

			// 2. Authentication before anything permission-shaped.
			if !g.session.IsAuthenticated() {
				loginURL := LoginPath + "?" + ReturnParam + "=" + url.QueryEscape(r.URL.RequestURI())
				http.Redirect(w, r, loginURL, http.StatusSeeOther)
				return
			}

			// 3. Forced password change overrides everything except the
			// change page itself, which must stay reachable or the
			// operator is trapped in a redirect loop.
			if st.Actor != nil && st.Actor.MustChangePassword && r.URL.Path != ChangePasswordPath {
				http.Redirect(w, r, ChangePasswordPath, http.StatusSeeOther)
				return
			}

			// 4–5. Fine-grained permissions, single then list.
			if !allowed(g.session, opts) {
				g.logger.Debug("route denied",
					zap.String("path", r.URL.Path),
					zap.String("permission", opts.Permission),
					zap.Strings("permissions", opts.Permissions),
				)
				http.Redirect(w, r, UnauthorizedPath, http.StatusSeeOther)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// RequireAuth protects a route with no permission requirement.
func (g *Guard) RequireAuth() func(http.Handler) http.Handler {
	return g.Protect(Options{})
}

// allowed evaluates steps 4–5: the single permission, then the list in
// its all-or-any mode. Empty options always pass.
func allowed(s Session, opts Options) bool {
	if opts.Permission != "" && !s.HasPermission(opts.Permission) {
		return false
	}
	if len(opts.Permissions) > 0 {
		if opts.RequireAll {
			for _, code := range opts.Permissions {
				if !s.HasPermission(code) {
					return false
				}
			}
		} else if !s.HasAnyPermission(opts.Permissions...) {
			return false
		}
	}
	return true
}
