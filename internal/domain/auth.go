package domain

// Wire types for the freight backend auth contract. The console is a
// consumer of this JSON API; it owns no formats of its own.

// LoginRequest is the body of POST /v1/auth/login.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// LoginResponse is returned by login and refresh.
type LoginResponse struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
	// ExpiresIn is the access token lifetime in seconds. Zero when the
	// backend omits it; the refresher then falls back to the token's
	// exp claim as a scheduling hint.
	ExpiresIn int    `json:"expiresIn"`
	User      *Actor `json:"user,omitempty"`
}

// RefreshRequest is the body of POST /v1/auth/refresh.
type RefreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

// ChangePasswordRequest is the body of POST /v1/auth/change-password.
// BaseCurrencyID is present only during initial setup, where choosing
// the accounting base currency is mandatory and permanent.
type ChangePasswordRequest struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
	BaseCurrencyID  *int64 `json:"baseCurrencyId,omitempty"`
}

// Tokens is the access/refresh pair held by the token vault. Both are
// opaque strings to the console: stored, attached, cleared — never
// validated locally.
type Tokens struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh"`
}

// Empty reports whether no tokens are held.
func (t Tokens) Empty() bool {
	return t.Access == "" && t.Refresh == ""
}
