package domain

// Actor is the authenticated identity as known to the console —
// the payload of GET /v1/auth/me.
type Actor struct {
	ID               int64  `json:"id"`
	DisplayName      string `json:"displayName"`
	Email            string `json:"email"`
	OrganizationName string `json:"organizationName"`

	// MustChangePassword is set server-side on first login or after an
	// admin-forced reset; the actor may not use any other page until it
	// is cleared by a successful password change.
	MustChangePassword bool `json:"mustChangePassword"`

	// BaseCurrencyConfigured becomes true once the tenant's accounting
	// base currency has been chosen. Set-once: never editable afterwards.
	BaseCurrencyConfigured bool `json:"baseCurrencyConfigured"`

	// Roles are display/grouping only. Authorization decisions read
	// Permissions exclusively.
	Roles []string `json:"roles"`

	// Permissions is a flat set of opaque codes ("invoice_view",
	// "user_add"). No hierarchy, no wildcards, no implication between
	// codes.
	Permissions []string `json:"permissions"`
}

// PermissionSet returns the actor's permission codes as a set.
func (a *Actor) PermissionSet() map[string]struct{} {
	set := make(map[string]struct{}, len(a.Permissions))
	for _, p := range a.Permissions {
		set[p] = struct{}{}
	}
	return set
}

// NeedsInitialSetup reports whether the actor is in the first-login
// state that additionally requires choosing the base currency.
func (a *Actor) NeedsInitialSetup() bool {
	return a.MustChangePassword && !a.BaseCurrencyConfigured
}

// Currency is an accounting currency offered during initial setup.
type Currency struct {
	ID   int64  `json:"id"`
	Code string `json:"code"`
	Name string `json:"name"`
}
