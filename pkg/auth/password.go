package auth

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/tendant/simple-tenant/pkg/domain"
	"github.com/tendant/simple-tenant/pkg/repository"
	"golang.org/x/crypto/argon2"
)

// Argon2 parameters (OWASP recommended)
const (
	argon2Time    = 1
	argon2Memory  = 64 * 1024 // 64 MB
	argon2Threads = 4
	argon2KeyLen  = 32
	saltLen       = 16
)

// Hasher turns plaintext passwords into stored hashes and back.
type Hasher interface {
	Hash(password string) (string, error)
	Verify(password, encoded string) bool
}

// Argon2Hasher is the production Hasher.
type Argon2Hasher struct{}

func (Argon2Hasher) Hash(password string) (string, error) { return HashPassword(password) }

func (Argon2Hasher) Verify(password, encoded string) bool { return VerifyPassword(password, encoded) }

// PasswordService is the single path through which users get passwords.
type PasswordService struct {
	db     *sqlx.DB
	users  *repository.UsersRepository
	creds  *repository.CredentialsRepository
	hasher Hasher
	policy *PasswordPolicy
}

// NewPasswordService creates a new password service. A nil hasher selects
// Argon2Hasher; a nil policy accepts any password.
func NewPasswordService(db *sqlx.DB, users *repository.UsersRepository, creds *repository.CredentialsRepository, hasher Hasher, policy *PasswordPolicy) *PasswordService {
	if hasher == nil {
		hasher = Argon2Hasher{}
	}
	return &PasswordService{db: db, users: users, creds: creds, hasher: hasher, policy: policy}
}

// CreateUserTx validates and inserts user together with its hashed password.
func (s *PasswordService) CreateUserTx(ctx context.Context, q repository.Querier, user *domain.User, password string) error {
	if err := ValidateUsername(user.Username); err != nil {
		return err
	}
	if err := ValidateEmail(user.Email); err != nil {
		return err
	}
	user.Email = NormalizeEmail(user.Email)
	if err := s.CheckPolicy(password); err != nil {
		return err
	}

	now := time.Now().UTC()
	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	user.CreatedAt, user.UpdatedAt = now, now

	if err := s.users.CreateTx(ctx, q, user); err != nil {
		return err
	}
	return s.SetPasswordTx(ctx, q, user.ID, password)
}

// CheckPolicy validates password against the service's policy, if any.
func (s *PasswordService) CheckPolicy(password string) error {
	if s.policy == nil {
		return nil
	}
	return s.policy.ValidatePassword(password)
}

// SetPasswordTx hashes password and stores it for userID.
func (s *PasswordService) SetPasswordTx(ctx context.Context, q repository.Querier, userID uuid.UUID, password string) error {
	hash, err := s.hasher.Hash(password)
	if err != nil {
		return err
	}
	return s.creds.UpsertTx(ctx, q, &domain.UserPassword{
		UserID:            userID,
		PasswordHash:      hash,
		PasswordUpdatedAt: time.Now().UTC(),
	})
}

// CheckPasswordTx re-reads the stored credential for userID and reports
// whether password matches it.
func (s *PasswordService) CheckPasswordTx(ctx context.Context, q repository.Querier, userID uuid.UUID, password string) (bool, error) {
	cred, err := s.creds.GetByUserIDTx(ctx, q, userID)
	if errors.Is(err, domain.ErrUserNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return s.hasher.Verify(password, cred.PasswordHash), nil
}

// Authenticate verifies identifier (email or username) and password.
func (s *PasswordService) Authenticate(ctx context.Context, identifier, password string) (*domain.User, error) {
	if IsEmail(identifier) {
		identifier = NormalizeEmail(identifier)
	}
	user, err := s.users.GetByEmailOrUsername(ctx, identifier)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil, domain.ErrInvalidCredentials
		}
		return nil, err
	}

	ok, err := s.CheckPasswordTx(ctx, s.db, user.ID, password)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, domain.ErrInvalidCredentials
	}
	return user, nil
}

// HashPassword hashes a password using Argon2id.
func HashPassword(password string) (string, error) {
	salt := make([]byte, saltLen)
	if _, err := randomBytes(salt); err != nil {
		return "", err
	}

	hash := argon2.IDKey([]byte(password), salt, argon2Time, argon2Memory, argon2Threads, argon2KeyLen)
	return encodeArgon2Hash(hash, salt, argon2Time, argon2Memory, argon2Threads), nil
}

// VerifyPassword verifies a password against an Argon2id hash.
func VerifyPassword(password, encodedHash string) bool {
	hash, salt, time, memory, threads, err := decodeArgon2Hash(encodedHash)
	if err != nil {
		return false
	}

	computed := argon2.IDKey([]byte(password), salt, time, memory, threads, uint32(len(hash)))
	return constantTimeCompare(hash, computed)
}
