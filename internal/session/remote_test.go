package session_test

import (
	"context"
	"errors"
	"testing"

	"github.com/freightdesk/freightdesk-console-go/internal/domain"
	"github.com/freightdesk/freightdesk-console-go/internal/infra/observability"
	"github.com/freightdesk/freightdesk-console-go/internal/session"

	"go.uber.org/zap"
)

// --- Mocks ---

type memVault struct {
	access, refresh string
}

func (m *memVault) SetTokens(access, refresh string) { m.access, m.refresh = access, refresh }
func (m *memVault) AccessToken() string              { return m.access }
func (m *memVault) RefreshToken() string             { return m.refresh }
func (m *memVault) ClearTokens()                     { m.access, m.refresh = "", "" }

type mockAPI struct {
	loginResp *domain.LoginResponse
	loginErr  error

	me      *domain.Actor
	meErr   error
	meFunc  func(ctx context.Context) (*domain.Actor, error)
	meCalls int

	logoutErr   error
	logoutCalls int

	changeErr error

	refreshResp *domain.LoginResponse
	refreshErr  error
}

func (m *mockAPI) Login(_ context.Context, _ *domain.LoginRequest) (*domain.LoginResponse, error) {
	return m.loginResp, m.loginErr
}

func (m *mockAPI) Refresh(_ context.Context, _ string) (*domain.LoginResponse, error) {
	return m.refreshResp, m.refreshErr
}

func (m *mockAPI) Logout(_ context.Context) error {
	m.logoutCalls++
	return m.logoutErr
}

func (m *mockAPI) Me(ctx context.Context) (*domain.Actor, error) {
	m.meCalls++
	if m.meFunc != nil {
		return m.meFunc(ctx)
	}
	return m.me, m.meErr
}

func (m *mockAPI) ChangePassword(_ context.Context, _ *domain.ChangePasswordRequest) error {
	return m.changeErr
}

func newManager(api *mockAPI, vault *memVault) *session.RemoteManager {
	return session.NewRemoteManager(api, vault, observability.NewMetrics(), zap.NewNop())
}

func testActor() *domain.Actor {
	return &domain.Actor{
		ID:          42,
		DisplayName: "Grace",
		Permissions: []string{"ship_view", "invoice_view"},
	}
}

// --- Bootstrap ---

func TestBootstrap_NoTokenIsAnonymous(t *testing.T) {
	mgr := newManager(&mockAPI{}, &memVault{})

	mgr.Bootstrap(context.Background())

	if got := mgr.State().Phase; got != session.PhaseAnonymous {
		t.Errorf("expected anonymous, got %v", got)
	}
	if mgr.IsAuthenticated() {
		t.Error("expected unauthenticated after bootstrap without token")
	}
}

func TestBootstrap_ValidTokenRestoresSession(t *testing.T) {
	api := &mockAPI{me: testActor()}
	vault := &memVault{access: "stored-access", refresh: "stored-refresh"}
	mgr := newManager(api, vault)

	mgr.Bootstrap(context.Background())
	defer mgr.Close()

	st := mgr.State()
	if st.Phase != session.PhaseActive {
		t.Fatalf("expected active, got %v", st.Phase)
	}
	if st.Actor == nil || st.Actor.ID != 42 {
		t.Errorf("expected actor 42, got %+v", st.Actor)
	}
	if !mgr.IsAuthenticated() {
		t.Error("expected authenticated after restored session")
	}
}

func TestBootstrap_RejectedTokenClearsAndGoesAnonymous(t *testing.T) {
	api := &mockAPI{meErr: &domain.ErrUnauthorized{Message: "expired"}}
	vault := &memVault{access: "stale-access", refresh: "stale-refresh"}
	mgr := newManager(api, vault)

	mgr.Bootstrap(context.Background())

	if got := mgr.State().Phase; got != session.PhaseAnonymous {
		t.Errorf("expected anonymous, got %v", got)
	}
	if vault.AccessToken() != "" || vault.RefreshToken() != "" {
		t.Error("expected tokens cleared after rejected bootstrap")
	}
}

func TestBootstrap_RejectedTokenKeepsConcurrentLogin(t *testing.T) {
	meStarted := make(chan struct{})
	release := make(chan struct{})
	api := &mockAPI{
		meFunc: func(context.Context) (*domain.Actor, error) {
			close(meStarted)
			<-release
			return nil, &domain.ErrUnauthorized{Message: "expired"}
		},
		loginResp: &domain.LoginResponse{
			AccessToken:  "fresh-at",
			RefreshToken: "fresh-rt",
			User:         testActor(),
		},
	}
	vault := &memVault{access: "stale-access", refresh: "stale-refresh"}
	mgr := newManager(api, vault)

	done := make(chan struct{})
	go func() {
		defer close(done)
		mgr.Bootstrap(context.Background())
	}()
	<-meStarted

	// The operator logs in while the startup profile fetch is still
	// waiting on the backend.
	if _, err := mgr.Login(context.Background(), "grace", "pw"); err != nil {
		t.Fatalf("expected login success, got %v", err)
	}

	close(release)
	<-done

	if got := mgr.State().Phase; got != session.PhaseActive {
		t.Fatalf("expected the login session to survive bootstrap failure, got phase %v", got)
	}
	if !mgr.IsAuthenticated() {
		t.Error("expected authenticated after login outraced bootstrap")
	}
	if vault.AccessToken() != "fresh-at" || vault.RefreshToken() != "fresh-rt" {
		t.Errorf("expected login tokens kept, vault holds %q / %q", vault.AccessToken(), vault.RefreshToken())
	}
}

func TestBootstrap_StartsInBootingPhase(t *testing.T) {
	mgr := newManager(&mockAPI{}, &memVault{})

	if got := mgr.State().Phase; got != session.PhaseBooting {
		t.Errorf("expected booting before Bootstrap, got %v", got)
	}
}

// --- Login / Logout ---

func TestLogin_SuccessStoresTokensAndActor(t *testing.T) {
	api := &mockAPI{loginResp: &domain.LoginResponse{
		AccessToken:  "at",
		RefreshToken: "rt",
		User:         testActor(),
	}}
	vault := &memVault{}
	mgr := newManager(api, vault)
	mgr.Bootstrap(context.Background())
	defer mgr.Close()

	result, err := mgr.Login(context.Background(), "grace", "pw")
	if err != nil {
		t.Fatalf("expected login success, got %v", err)
	}
	if result.MustChangePassword {
		t.Error("expected no forced change")
	}
	if vault.AccessToken() != "at" || vault.RefreshToken() != "rt" {
		t.Error("expected tokens stored on login")
	}
	if !mgr.IsAuthenticated() {
		t.Error("expected authenticated after login")
	}
}

func TestLogin_ReportsForcedPasswordChange(t *testing.T) {
	actor := testActor()
	actor.MustChangePassword = true
	api := &mockAPI{loginResp: &domain.LoginResponse{AccessToken: "at", RefreshToken: "rt", User: actor}}
	mgr := newManager(api, &memVault{})
	mgr.Bootstrap(context.Background())
	defer mgr.Close()

	result, err := mgr.Login(context.Background(), "grace", "pw")
	if err != nil {
		t.Fatalf("expected login success, got %v", err)
	}
	if !result.MustChangePassword {
		t.Error("expected forced password change to be reported")
	}
}

func TestLogin_FailureLeavesStateUnchanged(t *testing.T) {
	api := &mockAPI{loginErr: &domain.ErrUnauthorized{Message: "invalid credentials"}}
	vault := &memVault{}
	mgr := newManager(api, vault)
	mgr.Bootstrap(context.Background())

	_, err := mgr.Login(context.Background(), "grace", "wrong")

	var unauthorized *domain.ErrUnauthorized
	if !errors.As(err, &unauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
	if unauthorized.Message != "invalid credentials" {
		t.Errorf("expected server message surfaced, got '%s'", unauthorized.Message)
	}
	if mgr.IsAuthenticated() {
		t.Error("expected unauthenticated after rejected login")
	}
	if vault.AccessToken() != "" {
		t.Error("expected no tokens stored on rejected login")
	}
}

func TestLogout_BackendFailureStillClearsLocally(t *testing.T) {
	api := &mockAPI{
		loginResp: &domain.LoginResponse{AccessToken: "at", RefreshToken: "rt", User: testActor()},
		logoutErr: errors.New("backend unreachable"),
	}
	vault := &memVault{}
	mgr := newManager(api, vault)
	mgr.Bootstrap(context.Background())
	if _, err := mgr.Login(context.Background(), "grace", "pw"); err != nil {
		t.Fatalf("login: %v", err)
	}

	mgr.Logout(context.Background())

	if api.logoutCalls != 1 {
		t.Errorf("expected backend notified once, got %d", api.logoutCalls)
	}
	if mgr.IsAuthenticated() {
		t.Error("expected unauthenticated after logout despite backend failure")
	}
	if vault.AccessToken() != "" || vault.RefreshToken() != "" {
		t.Error("expected tokens cleared on logout")
	}
}

// --- Auth failure ---

func TestAuthFailure_ClearsSession(t *testing.T) {
	api := &mockAPI{loginResp: &domain.LoginResponse{AccessToken: "at", RefreshToken: "rt", User: testActor()}}
	vault := &memVault{}
	mgr := newManager(api, vault)
	mgr.Bootstrap(context.Background())
	if _, err := mgr.Login(context.Background(), "grace", "pw"); err != nil {
		t.Fatalf("login: %v", err)
	}

	mgr.AuthFailure()

	if mgr.IsAuthenticated() {
		t.Error("expected unauthenticated after auth failure")
	}
	if vault.AccessToken() != "" {
		t.Error("expected tokens cleared after auth failure")
	}
	if got := mgr.State().Phase; got != session.PhaseAnonymous {
		t.Errorf("expected anonymous, got %v", got)
	}
}

func TestAuthFailure_IdempotentWithLogout(t *testing.T) {
	api := &mockAPI{loginResp: &domain.LoginResponse{AccessToken: "at", RefreshToken: "rt", User: testActor()}}
	mgr := newManager(api, &memVault{})
	mgr.Bootstrap(context.Background())
	if _, err := mgr.Login(context.Background(), "grace", "pw"); err != nil {
		t.Fatalf("login: %v", err)
	}

	mgr.Logout(context.Background())
	mgr.AuthFailure() // second teardown against cleared state: no-op
	mgr.AuthFailure()

	if mgr.IsAuthenticated() {
		t.Error("expected unauthenticated")
	}
	if got := mgr.State().Phase; got != session.PhaseAnonymous {
		t.Errorf("expected anonymous, got %v", got)
	}
}

// --- RefreshUser ---

func TestRefreshUser_ReplacesActorWholesale(t *testing.T) {
	actor := testActor()
	actor.MustChangePassword = true
	api := &mockAPI{loginResp: &domain.LoginResponse{AccessToken: "at", RefreshToken: "rt", User: actor}}
	mgr := newManager(api, &memVault{})
	mgr.Bootstrap(context.Background())
	defer mgr.Close()
	if _, err := mgr.Login(context.Background(), "grace", "pw"); err != nil {
		t.Fatalf("login: %v", err)
	}

	updated := testActor()
	updated.MustChangePassword = false
	updated.Permissions = []string{"ship_view", "invoice_add"}
	api.me = updated

	mgr.RefreshUser(context.Background())

	st := mgr.State()
	if st.Actor == nil || st.Actor.MustChangePassword {
		t.Error("expected refreshed actor with cleared flag")
	}
	if !mgr.HasPermission("invoice_add") {
		t.Error("expected refreshed permission set")
	}
	if mgr.HasPermission("invoice_view") {
		t.Error("expected old permission gone after wholesale replacement")
	}
}

func TestRefreshUser_FailureKeepsCurrentActor(t *testing.T) {
	api := &mockAPI{loginResp: &domain.LoginResponse{AccessToken: "at", RefreshToken: "rt", User: testActor()}}
	mgr := newManager(api, &memVault{})
	mgr.Bootstrap(context.Background())
	defer mgr.Close()
	if _, err := mgr.Login(context.Background(), "grace", "pw"); err != nil {
		t.Fatalf("login: %v", err)
	}

	api.meErr = errors.New("backend down")
	mgr.RefreshUser(context.Background())

	st := mgr.State()
	if st.Actor == nil || st.Actor.ID != 42 {
		t.Error("expected existing actor untouched after failed refresh")
	}
	if !mgr.IsAuthenticated() {
		t.Error("expected session to survive a failed profile refresh")
	}
}

// --- Permissions / derived state ---

func TestHasPermission_FlatSetMembership(t *testing.T) {
	api := &mockAPI{loginResp: &domain.LoginResponse{AccessToken: "at", RefreshToken: "rt", User: testActor()}}
	mgr := newManager(api, &memVault{})
	mgr.Bootstrap(context.Background())
	defer mgr.Close()
	if _, err := mgr.Login(context.Background(), "grace", "pw"); err != nil {
		t.Fatalf("login: %v", err)
	}

	if !mgr.HasPermission("ship_view") {
		t.Error("expected held code to pass")
	}
	// No implication between codes: ship_view does not grant ship_edit.
	if mgr.HasPermission("ship_edit") {
		t.Error("expected missing code to fail")
	}
	if !mgr.HasAnyPermission("ship_edit", "invoice_view") {
		t.Error("expected intersection to pass")
	}
	if mgr.HasAnyPermission("ship_edit", "user_add") {
		t.Error("expected empty intersection to fail")
	}
}

func TestHasPermission_NoActorIsFalseNotError(t *testing.T) {
	mgr := newManager(&mockAPI{}, &memVault{})
	mgr.Bootstrap(context.Background())

	if mgr.HasPermission("ship_view") {
		t.Error("expected false without an actor")
	}
	if mgr.HasAnyPermission("ship_view", "invoice_view") {
		t.Error("expected false without an actor")
	}
}

func TestIsAuthenticated_StaleActorWithoutTokenIsFalse(t *testing.T) {
	api := &mockAPI{loginResp: &domain.LoginResponse{AccessToken: "at", RefreshToken: "rt", User: testActor()}}
	vault := &memVault{}
	mgr := newManager(api, vault)
	mgr.Bootstrap(context.Background())
	defer mgr.Close()
	if _, err := mgr.Login(context.Background(), "grace", "pw"); err != nil {
		t.Fatalf("login: %v", err)
	}

	// Tokens vanish underneath the in-memory actor.
	vault.ClearTokens()

	if mgr.IsAuthenticated() {
		t.Error("an actor without an access token must not count as authenticated")
	}
}

// --- ChangePassword ---

func TestChangePassword_SuccessRefreshesActor(t *testing.T) {
	actor := testActor()
	actor.MustChangePassword = true
	api := &mockAPI{loginResp: &domain.LoginResponse{AccessToken: "at", RefreshToken: "rt", User: actor}}
	mgr := newManager(api, &memVault{})
	mgr.Bootstrap(context.Background())
	defer mgr.Close()
	if _, err := mgr.Login(context.Background(), "grace", "pw"); err != nil {
		t.Fatalf("login: %v", err)
	}

	cleared := testActor()
	cleared.MustChangePassword = false
	api.me = cleared

	if err := mgr.ChangePassword(context.Background(), "old", "NewPass1!", nil); err != nil {
		t.Fatalf("expected change success, got %v", err)
	}
	if st := mgr.State(); st.Actor == nil || st.Actor.MustChangePassword {
		t.Error("expected cleared flag after change-password refresh")
	}
}

func TestChangePassword_BackendRejectionSurfaced(t *testing.T) {
	api := &mockAPI{
		loginResp: &domain.LoginResponse{AccessToken: "at", RefreshToken: "rt", User: testActor()},
		changeErr: &domain.ErrUnauthorized{Message: "current password incorrect"},
	}
	mgr := newManager(api, &memVault{})
	mgr.Bootstrap(context.Background())
	defer mgr.Close()
	if _, err := mgr.Login(context.Background(), "grace", "pw"); err != nil {
		t.Fatalf("login: %v", err)
	}

	err := mgr.ChangePassword(context.Background(), "wrong", "NewPass1!", nil)
	if err == nil {
		t.Fatal("expected rejection surfaced")
	}
	if !mgr.IsAuthenticated() {
		t.Error("expected session intact after rejected change")
	}
}
