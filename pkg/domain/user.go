package domain

import (
	"time"

	"github.com/google/uuid"
)

// User represents a login principal. Users are not owned by any tenant.
type User struct {
	ID          uuid.UUID `db:"id"`
	Username    string    `db:"username"`
	Email       string    `db:"email"`
	IsStaff     bool      `db:"is_staff"`
	IsSuperuser bool      `db:"is_superuser"`
	IsActive    bool      `db:"is_active"`
	CreatedAt   time.Time `db:"created_at"`
	UpdatedAt   time.Time `db:"updated_at"`
}

// UserPassword stores password credentials separately from user profile.
type UserPassword struct {
	UserID            uuid.UUID `db:"user_id"`
	PasswordHash      string    `db:"password_hash"`
	PasswordUpdatedAt time.Time `db:"password_updated_at"`
}

// LookupKind classifies the outcome of a lookup by a unique business key.
type LookupKind int

const (
	LookupNotFound LookupKind = iota
	LookupFound
	LookupDuplicates
)

func (k LookupKind) String() string {
	switch k {
	case LookupFound:
		return "found"
	case LookupDuplicates:
		return "duplicates"
	default:
		return "not_found"
	}
}

// UserLookup is the result of looking a user up by username.
// Users is ordered by created_at then id, so Users[0] is always the
// row to keep when Kind is LookupDuplicates.
type UserLookup struct {
	Kind  LookupKind
	Users []*User
}

// NewUserLookup classifies matches, which must already be ordered.
func NewUserLookup(matches []*User) UserLookup {
	switch len(matches) {
	case 0:
		return UserLookup{Kind: LookupNotFound}
	case 1:
		return UserLookup{Kind: LookupFound, Users: matches}
	default:
		return UserLookup{Kind: LookupDuplicates, Users: matches}
	}
}

// Survivor returns the earliest-created match, or nil when nothing matched.
func (l UserLookup) Survivor() *User {
	if len(l.Users) == 0 {
		return nil
	}
	return l.Users[0]
}

// Extras returns the matches that must be removed.
func (l UserLookup) Extras() []*User {
	if len(l.Users) < 2 {
		return nil
	}
	return l.Users[1:]
}
