package handler

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/freightdesk/freightdesk-console-go/internal/domain"
)

// passwordSymbols is the fixed set accepted as the "symbol" character
// class. Characters outside all four classes are allowed in a password
// but satisfy no requirement.
const passwordSymbols = "!@#$%^&*()_+-=[]{};:,.<>?"

const passwordMinLength = 8

// validateNewPassword enforces the password policy client-side so the
// operator gets an immediate, specific message. The backend re-validates
// regardless.
func validateNewPassword(current, candidate string) error {
	// Length is counted in runes so multi-byte characters are not
	// over-credited.
	if utf8.RuneCountInString(candidate) < passwordMinLength {
		return &domain.ErrValidation{Field: "newPassword", Message: "password must be at least 8 characters"}
	}

	var hasUpper, hasLower, hasDigit, hasSymbol bool
	for _, r := range candidate {
		switch {
		case unicode.IsUpper(r):
			hasUpper = true
		case unicode.IsLower(r):
			hasLower = true
		case unicode.IsDigit(r):
			hasDigit = true
		case strings.ContainsRune(passwordSymbols, r):
			hasSymbol = true
		}
	}

	switch {
	case !hasUpper:
		return &domain.ErrValidation{Field: "newPassword", Message: "password must contain an uppercase letter"}
	case !hasLower:
		return &domain.ErrValidation{Field: "newPassword", Message: "password must contain a lowercase letter"}
	case !hasDigit:
		return &domain.ErrValidation{Field: "newPassword", Message: "password must contain a digit"}
	case !hasSymbol:
		return &domain.ErrValidation{Field: "newPassword", Message: "password must contain a symbol (" + passwordSymbols + ")"}
	}

	if candidate == current {
		return &domain.ErrValidation{Field: "newPassword", Message: "new password must differ from the current password"}
	}
	return nil
}
