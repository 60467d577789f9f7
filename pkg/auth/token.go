package auth

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/tendant/simple-tenant/pkg/domain"
)

// DefaultAccessTokenTTL is used when TokenConfig leaves the TTL unset.
const DefaultAccessTokenTTL = 15 * time.Minute

// TokenConfig holds access token configuration.
type TokenConfig struct {
	Secret []byte
	Issuer string
	TTL    time.Duration
}

// AccessTokenClaims are carried by access tokens. Tenant membership is
// deliberately absent: it is resolved per request from the store.
type AccessTokenClaims struct {
	jwt.RegisteredClaims
	Username string `json:"username,omitempty"`
}

// TokenPair is returned from login.
type TokenPair struct {
	AccessToken string    `json:"access_token"`
	TokenType   string    `json:"token_type"`
	ExpiresIn   int       `json:"expires_in"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// TokenService issues and validates HS256 access tokens.
type TokenService struct {
	config TokenConfig
}

// NewTokenService creates a new token service.
func NewTokenService(config TokenConfig) *TokenService {
	if config.TTL == 0 {
		config.TTL = DefaultAccessTokenTTL
	}
	return &TokenService{config: config}
}

// Issue signs an access token for user.
func (s *TokenService) Issue(user *domain.User) (*TokenPair, error) {
	now := time.Now()
	expires := now.Add(s.config.TTL)
	claims := AccessTokenClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expires),
			Issuer:    s.config.Issuer,
			ID:        uuid.NewString(),
		},
		Username: user.Username,
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.config.Secret)
	if err != nil {
		return nil, err
	}
	return &TokenPair{
		AccessToken: signed,
		TokenType:   "Bearer",
		ExpiresIn:   int(s.config.TTL.Seconds()),
		ExpiresAt:   expires,
	}, nil
}

// Validate parses tokenString and returns the subject user ID.
func (s *TokenService) Validate(tokenString string) (uuid.UUID, error) {
	token, err := jwt.ParseWithClaims(tokenString, &AccessTokenClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, domain.ErrInvalidToken
		}
		return s.config.Secret, nil
	}, jwt.WithIssuer(s.config.Issuer))
	if err != nil {
		return uuid.Nil, domain.ErrInvalidToken
	}

	claims, ok := token.Claims.(*AccessTokenClaims)
	if !ok || !token.Valid {
		return uuid.Nil, domain.ErrInvalidToken
	}
	id, err := uuid.Parse(claims.Subject)
	if err != nil {
		return uuid.Nil, domain.ErrInvalidToken
	}
	return id, nil
}
