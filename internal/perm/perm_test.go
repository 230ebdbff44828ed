package perm_test

import (
	"testing"

	"github.com/freightdesk/freightdesk-console-go/internal/perm"
)

type setChecker map[string]struct{}

func (s setChecker) HasPermission(code string) bool {
	_, ok := s[code]
	return ok
}

func (s setChecker) HasAnyPermission(codes ...string) bool {
	for _, c := range codes {
		if _, ok := s[c]; ok {
			return true
		}
	}
	return false
}

func checker(codes ...string) setChecker {
	s := make(setChecker, len(codes))
	for _, c := range codes {
		s[c] = struct{}{}
	}
	return s
}

func TestCode(t *testing.T) {
	if got := perm.Code(perm.ModuleInvoice, perm.ActionView); got != "invoice_view" {
		t.Errorf("expected 'invoice_view', got '%s'", got)
	}
}

func TestProjectionsMatchEvaluator(t *testing.T) {
	c := checker("ship_view", "invoice_edit", "user_add")

	// Each projection must agree exactly with the underlying check.
	if perm.CanView(c, perm.ModuleShipment) != c.HasPermission("ship_view") {
		t.Error("CanView diverged from HasPermission")
	}
	if perm.CanEdit(c, perm.ModuleInvoice) != c.HasPermission("invoice_edit") {
		t.Error("CanEdit diverged from HasPermission")
	}
	if perm.CanAdd(c, perm.ModuleUser) != c.HasPermission("user_add") {
		t.Error("CanAdd diverged from HasPermission")
	}
	if perm.CanDelete(c, perm.ModuleShipment) != c.HasPermission("ship_delete") {
		t.Error("CanDelete diverged from HasPermission")
	}
}

func TestNoImplicationBetweenCodes(t *testing.T) {
	c := checker("ship_edit")

	if !perm.CanEdit(c, perm.ModuleShipment) {
		t.Error("expected held edit code to pass")
	}
	// Flat set: edit does not imply view.
	if perm.CanView(c, perm.ModuleShipment) {
		t.Error("edit must not imply view")
	}
}

func TestCanAccessAny(t *testing.T) {
	if !perm.CanAccessAny(checker("quotation_delete"), perm.ModuleQuotation) {
		t.Error("expected any held action to grant access")
	}
	if perm.CanAccessAny(checker("quotation_delete"), perm.ModuleInvoice) {
		t.Error("expected no access without any code on the module")
	}
	if perm.CanAccessAny(checker(), perm.ModuleShipment) {
		t.Error("expected no access with empty set")
	}
}
