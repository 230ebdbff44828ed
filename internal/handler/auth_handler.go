package handler

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/freightdesk/freightdesk-console-go/internal/domain"
	"github.com/freightdesk/freightdesk-console-go/internal/guard"

	"go.uber.org/zap"
)

// ============================================================
// Login
// ============================================================

func (c *console) loginPage(w http.ResponseWriter, r *http.Request) {
	// An already signed-in operator has nothing to do here.
	if c.mgr.IsAuthenticated() {
		http.Redirect(w, r, c.landingFor(), http.StatusSeeOther)
		return
	}
	c.render(w, http.StatusOK, "login.tmpl", pageData{
		Title:  "Sign in",
		Return: r.URL.Query().Get(guard.ReturnParam),
	})
}

func (c *console) loginSubmit(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracer.Start(r.Context(), "POST /login")
	defer span.End()

	if err := r.ParseForm(); err != nil {
		c.render(w, http.StatusBadRequest, "login.tmpl", pageData{Error: "invalid form submission"})
		return
	}
	username := strings.TrimSpace(r.PostFormValue("username"))
	password := r.PostFormValue("password")
	returnTo := r.PostFormValue(guard.ReturnParam)

	if !c.limiter.allow(clientIP(r)) {
		c.metrics.IncrLoginAttempt("throttled")
		c.render(w, http.StatusTooManyRequests, "login.tmpl", pageData{
			Error:    "too many sign-in attempts, please wait a minute",
			Username: username,
			Return:   returnTo,
		})
		return
	}

	if username == "" || password == "" {
		c.render(w, http.StatusBadRequest, "login.tmpl", pageData{
			Error:    "username and password are required",
			Username: username,
			Return:   returnTo,
		})
		return
	}

	res, err := c.mgr.Login(ctx, username, password)
	if err != nil {
		c.logger.Info("login rejected", zap.String("username", username))
		c.render(w, http.StatusUnauthorized, "login.tmpl", pageData{
			Error:    userMessage(err),
			Username: username,
			Return:   returnTo,
		})
		return
	}

	// A pending forced change overrides any preserved return location.
	if res.MustChangePassword {
		http.Redirect(w, r, guard.ChangePasswordPath, http.StatusSeeOther)
		return
	}
	http.Redirect(w, r, c.safeReturn(returnTo), http.StatusSeeOther)
}

// safeReturn only honours local absolute paths, so a crafted return
// parameter cannot bounce the operator to another site.
func (c *console) safeReturn(returnTo string) string {
	if strings.HasPrefix(returnTo, "/") && !strings.HasPrefix(returnTo, "//") {
		return returnTo
	}
	return c.landingFor()
}

// ============================================================
// Logout
// ============================================================

func (c *console) logout(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracer.Start(r.Context(), "POST /logout")
	defer span.End()

	c.mgr.Logout(ctx)
	http.Redirect(w, r, guard.LoginPath, http.StatusSeeOther)
}

// ============================================================
// Forced password change / initial setup
// ============================================================

func (c *console) changePasswordPage(w http.ResponseWriter, r *http.Request) {
	c.renderChangePassword(w, r, http.StatusOK, "")
}

func (c *console) changePasswordSubmit(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracer.Start(r.Context(), "POST /change-password")
	defer span.End()

	if err := r.ParseForm(); err != nil {
		c.renderChangePassword(w, r, http.StatusBadRequest, "invalid form submission")
		return
	}
	current := r.PostFormValue("currentPassword")
	next := r.PostFormValue("newPassword")

	if err := validateNewPassword(current, next); err != nil {
		c.renderChangePassword(w, r, http.StatusBadRequest, userMessage(err))
		return
	}

	var baseCurrencyID *int64
	if c.needsInitialSetup() {
		raw := r.PostFormValue("baseCurrencyId")
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || id <= 0 {
			c.renderChangePassword(w, r, http.StatusBadRequest, "a base currency must be selected")
			return
		}
		baseCurrencyID = &id
	}

	if err := c.mgr.ChangePassword(ctx, current, next, baseCurrencyID); err != nil {
		c.renderChangePassword(w, r, http.StatusBadRequest, userMessage(err))
		return
	}
	http.Redirect(w, r, c.landingFor(), http.StatusSeeOther)
}

func (c *console) needsInitialSetup() bool {
	st := c.mgr.State()
	return st.Actor != nil && st.Actor.NeedsInitialSetup()
}

func (c *console) renderChangePassword(w http.ResponseWriter, r *http.Request, status int, errMsg string) {
	st := c.mgr.State()
	data := pageData{
		Title: "Change password",
		Actor: st.Actor,
		Error: errMsg,
	}
	if c.needsInitialSetup() {
		data.NeedsSetup = true
		data.Currencies = c.loadCurrencies(r.Context())
	}
	c.render(w, status, "change_password.tmpl", data)
}

// loadCurrencies serves the setup dropdown from the reference cache,
// falling back to the backend on a miss. An empty list renders an
// unusable dropdown rather than failing the whole page; the operator
// can retry once the backend recovers.
func (c *console) loadCurrencies(ctx context.Context) []domain.Currency {
	if cached, ok := c.currencies.Get(currencyCacheKey); ok {
		c.metrics.IncrCacheHit("currencies")
		return cached
	}
	c.metrics.IncrCacheMiss("currencies")

	list, err := c.refs.Currencies(ctx)
	if err != nil {
		c.logger.Warn("currency list unavailable", zap.Error(err))
		return nil
	}
	c.currencies.Set(currencyCacheKey, list)
	return list
}
