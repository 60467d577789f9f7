package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/tendant/simple-tenant/internal/httputil"
	"github.com/tendant/simple-tenant/pkg/domain"
)

type contextKey string

// UserKey is the context key for the authenticated user.
const UserKey contextKey = "user"

// TokenValidator turns an access token into a user ID.
type TokenValidator interface {
	Validate(token string) (uuid.UUID, error)
}

// UserLoader loads the user named by a token.
type UserLoader interface {
	GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error)
}

// Authenticate attaches the bearer token's user to the request context when
// a valid token is present. Requests without a token pass through
// anonymously; an invalid token is rejected.
func Authenticate(tokens TokenValidator, users UserLoader) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenString := bearerToken(r)
			if tokenString == "" {
				next.ServeHTTP(w, r)
				return
			}

			userID, err := tokens.Validate(tokenString)
			if err != nil {
				httputil.Error(w, http.StatusUnauthorized, "invalid or expired token")
				return
			}
			user, err := users.GetByID(r.Context(), userID)
			if err != nil || !user.IsActive {
				httputil.Error(w, http.StatusUnauthorized, "invalid or expired token")
				return
			}

			ctx := context.WithValue(r.Context(), UserKey, user)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireUser rejects anonymous requests.
func RequireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := GetUser(r.Context()); !ok {
			httputil.Error(w, http.StatusUnauthorized, "missing authorization")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// GetUser extracts the authenticated user from the request context.
func GetUser(ctx context.Context) (*domain.User, bool) {
	user, ok := ctx.Value(UserKey).(*domain.User)
	return user, ok && user != nil
}

// bearerToken checks the Authorization header first, then falls back to the
// cookie for web clients.
func bearerToken(r *http.Request) string {
	if authHeader := r.Header.Get("Authorization"); authHeader != "" {
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
			return strings.TrimSpace(parts[1])
		}
	}
	if token, ok := httputil.GetAccessTokenFromCookie(r); ok {
		return token
	}
	return ""
}
