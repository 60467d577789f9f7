package auth

import (
	"errors"
	"testing"

	"github.com/tendant/simple-tenant/pkg/domain"
)

func TestValidateUsername(t *testing.T) {
	tests := []struct {
		username string
		wantErr  bool
	}{
		{"admin", false},
		{"guest", false},
		{"user_123-abc", false},
		{"abc", false},
		{"1ab", false},
		{"abcdefghij1234567890abcdefghij", false},
		{"", true},
		{"ab", true},
		{"abcdefghij1234567890abcdefghijk", true},
		{"_admin", true},
		{"-admin", true},
		{"ad min", true},
		{"ad@min", true},
		{"ad.min", true},
		{"usér123", true},
	}

	for _, tt := range tests {
		t.Run(tt.username, func(t *testing.T) {
			err := ValidateUsername(tt.username)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateUsername(%q) error = %v, wantErr %v", tt.username, err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, domain.ErrInvalidUsername) {
				t.Errorf("ValidateUsername(%q) error = %v, want ErrInvalidUsername", tt.username, err)
			}
		})
	}
}

func TestValidateEmail(t *testing.T) {
	tests := []struct {
		email   string
		wantErr bool
	}{
		{"admin@example.com", false},
		{"  Admin@Example.COM ", false},
		{"guest+demo@mail.example.com", false},
		{"", true},
		{"invalid.com", true},
		{"admin@", true},
		{"@example.com", true},
		{"Admin <admin@example.com>", true},
		{"a" + string(make([]byte, 300)) + "@example.com", true},
	}

	for _, tt := range tests {
		t.Run(tt.email, func(t *testing.T) {
			err := ValidateEmail(tt.email)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateEmail(%q) error = %v, wantErr %v", tt.email, err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, domain.ErrInvalidEmail) {
				t.Errorf("ValidateEmail(%q) error = %v, want ErrInvalidEmail", tt.email, err)
			}
		})
	}
}

func TestIsEmail(t *testing.T) {
	if !IsEmail("admin@example.com") {
		t.Error("IsEmail(admin@example.com) = false")
	}
	if IsEmail("admin") {
		t.Error("IsEmail(admin) = true")
	}
}

func TestSanitizeName(t *testing.T) {
	if got := SanitizeName("  Acme\x00 Supplies\n "); got != "Acme Supplies" {
		t.Errorf("SanitizeName() = %q, want %q", got, "Acme Supplies")
	}
}
