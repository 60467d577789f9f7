package auth

import (
	"fmt"
	"net/mail"
	"regexp"
	"strings"

	"github.com/tendant/simple-tenant/pkg/domain"
)

var emailRegex = regexp.MustCompile(`^[a-zA-Z0-9.!#$%&'*+/=?^_` + "`" + `{|}~-]+@[a-zA-Z0-9](?:[a-zA-Z0-9-]{0,61}[a-zA-Z0-9])?(?:\.[a-zA-Z0-9](?:[a-zA-Z0-9-]{0,61}[a-zA-Z0-9])?)*$`)

const maxEmailLength = 254 // RFC 5321

// ValidateEmail checks that email is a single bare address. Display-name
// forms such as "Admin <a@b.c>" are rejected since the value is stored as-is.
func ValidateEmail(email string) error {
	normalized := NormalizeEmail(email)
	if normalized == "" {
		return fmt.Errorf("%w: empty", domain.ErrInvalidEmail)
	}
	if len(normalized) > maxEmailLength {
		return fmt.Errorf("%w: longer than %d characters", domain.ErrInvalidEmail, maxEmailLength)
	}

	addr, err := mail.ParseAddress(normalized)
	if err != nil || addr.Address != normalized || !emailRegex.MatchString(addr.Address) {
		return fmt.Errorf("%w: %q", domain.ErrInvalidEmail, email)
	}
	return nil
}

// NormalizeEmail normalizes an email address by lowercasing and trimming.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
