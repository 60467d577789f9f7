package auth

import (
	"fmt"
	"unicode"

	"github.com/tendant/simple-tenant/pkg/domain"
)

// PasswordPolicy defines password complexity requirements. Strict
// environments apply it to bootstrap credentials.
type PasswordPolicy struct {
	MinLength      int
	RequireMixed   bool
	RequireNumber  bool
	RequireSpecial bool
}

// StrictPolicy is applied in production and staging.
var StrictPolicy = &PasswordPolicy{MinLength: 12, RequireMixed: true, RequireNumber: true}

// ValidatePassword checks if a password meets the policy requirements.
func (p *PasswordPolicy) ValidatePassword(password string) error {
	if p.MinLength > 0 && len(password) < p.MinLength {
		return fmt.Errorf("%w: at least %d characters required", domain.ErrWeakPassword, p.MinLength)
	}

	var upper, lower, digit, special bool
	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsLower(r):
			lower = true
		case unicode.IsDigit(r):
			digit = true
		case !unicode.IsLetter(r) && !unicode.IsSpace(r):
			special = true
		}
	}

	if p.RequireMixed && !(upper && lower) {
		return fmt.Errorf("%w: upper and lower case letters required", domain.ErrWeakPassword)
	}
	if p.RequireNumber && !digit {
		return fmt.Errorf("%w: a number is required", domain.ErrWeakPassword)
	}
	if p.RequireSpecial && !special {
		return fmt.Errorf("%w: a special character is required", domain.ErrWeakPassword)
	}
	return nil
}
