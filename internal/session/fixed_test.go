package session_test

import (
	"context"
	"testing"

	"github.com/freightdesk/freightdesk-console-go/internal/session"

	"go.uber.org/zap"
)

func TestFixedActor_AuthenticatedWithoutLogin(t *testing.T) {
	mgr := session.NewFixedActorManager(zap.NewNop())

	if !mgr.IsAuthenticated() {
		t.Error("expected dev mode to be authenticated immediately")
	}
	st := mgr.State()
	if st.Phase != session.PhaseActive {
		t.Errorf("expected active phase, got %v", st.Phase)
	}
	if st.Actor == nil || st.Actor.DisplayName != "Dev Operator" {
		t.Errorf("expected fixed dev actor, got %+v", st.Actor)
	}
}

func TestFixedActor_EveryPermissionGranted(t *testing.T) {
	mgr := session.NewFixedActorManager(zap.NewNop())

	if !mgr.HasPermission("anything") {
		t.Error("expected every code granted in dev mode")
	}
	if !mgr.HasPermission("made_up_code") {
		t.Error("expected arbitrary codes granted in dev mode")
	}
	if !mgr.HasAnyPermission("a", "b", "c") {
		t.Error("expected any-permission granted in dev mode")
	}
}

func TestFixedActor_LoginAlwaysSucceeds(t *testing.T) {
	mgr := session.NewFixedActorManager(zap.NewNop())

	result, err := mgr.Login(context.Background(), "anyone", "anything")
	if err != nil {
		t.Fatalf("expected dev login to succeed, got %v", err)
	}
	if result.MustChangePassword {
		t.Error("expected no forced change in dev mode")
	}
}

func TestFixedActor_LogoutAndAuthFailureAreNoOps(t *testing.T) {
	mgr := session.NewFixedActorManager(zap.NewNop())

	mgr.Logout(context.Background())
	mgr.AuthFailure()

	if !mgr.IsAuthenticated() {
		t.Error("expected dev session to survive logout and auth failure")
	}
}
