package session

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/tendant/simple-tenant/internal/httputil"
	"github.com/tendant/simple-tenant/pkg/auth"
	"github.com/tendant/simple-tenant/pkg/domain"
)

// Authenticator checks login credentials.
type Authenticator interface {
	Authenticate(ctx context.Context, identifier, password string) (*domain.User, error)
}

// TokenIssuer signs access tokens.
type TokenIssuer interface {
	Issue(user *domain.User) (*auth.TokenPair, error)
}

// Handler handles session endpoints.
type Handler struct {
	logger       *slog.Logger
	passwords    Authenticator
	tokens       TokenIssuer
	cookieConfig httputil.CookieConfig
}

// NewHandler creates a new session handler.
func NewHandler(logger *slog.Logger, passwords Authenticator, tokens TokenIssuer, cookieConfig httputil.CookieConfig) *Handler {
	return &Handler{
		logger:       logger,
		passwords:    passwords,
		tokens:       tokens,
		cookieConfig: cookieConfig,
	}
}

// LoginRequest accepts a username or email as identifier.
type LoginRequest struct {
	Identifier string `json:"identifier"`
	Password   string `json:"password"`
}

// TokenResponse omits the token itself for browser clients, which get it
// as a cookie.
type TokenResponse struct {
	AccessToken string    `json:"access_token,omitempty"`
	TokenType   string    `json:"token_type"`
	ExpiresIn   int       `json:"expires_in"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// Login exchanges credentials for an access token.
// POST /v1/auth/login
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	identifier := strings.TrimSpace(req.Identifier)
	if identifier == "" || req.Password == "" {
		httputil.Error(w, http.StatusBadRequest, "identifier and password are required")
		return
	}

	user, err := h.passwords.Authenticate(r.Context(), identifier, req.Password)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidCredentials) {
			httputil.Error(w, http.StatusUnauthorized, "invalid username/email or password")
			return
		}
		h.logger.Error("login failed", "error", err)
		httputil.Error(w, http.StatusInternalServerError, "authentication failed")
		return
	}
	if !user.IsActive {
		httputil.Error(w, http.StatusUnauthorized, "invalid username/email or password")
		return
	}

	tokens, err := h.tokens.Issue(user)
	if err != nil {
		h.logger.Error("failed to issue token", "user_id", user.ID, "error", err)
		httputil.Error(w, http.StatusInternalServerError, "authentication failed")
		return
	}
	h.logger.Info("user logged in", "user_id", user.ID)

	resp := TokenResponse{
		TokenType: tokens.TokenType,
		ExpiresIn: tokens.ExpiresIn,
		ExpiresAt: tokens.ExpiresAt,
	}
	if httputil.IsMobileClient(r) {
		resp.AccessToken = tokens.AccessToken
	} else {
		httputil.SetAccessTokenCookie(w, tokens.AccessToken, time.Duration(tokens.ExpiresIn)*time.Second, h.cookieConfig)
	}
	httputil.JSON(w, http.StatusOK, resp)
}
