package auth

import (
	"strings"
	"unicode"
)

// SanitizeName trims a display name and strips control characters.
// Output is stored, not rendered, so no HTML escaping happens here.
func SanitizeName(name string) string {
	return strings.TrimSpace(strings.Map(func(r rune) rune {
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, name))
}
