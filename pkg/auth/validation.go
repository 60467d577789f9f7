package auth

import (
	"regexp"
	"strings"

	"github.com/tendant/simple-tenant/pkg/domain"
)

// 3-30 ASCII letters, digits, underscores or hyphens, starting alphanumeric
var usernameRegex = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9_-]{2,29}$`)

// ValidateUsername checks username format.
func ValidateUsername(username string) error {
	if !usernameRegex.MatchString(username) {
		return domain.ErrInvalidUsername
	}
	return nil
}

// IsEmail reports whether a login identifier should be treated as an email.
func IsEmail(identifier string) bool {
	return strings.Contains(identifier, "@")
}
