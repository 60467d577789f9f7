package me

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	"github.com/tendant/simple-tenant/internal/http/middleware"
	"github.com/tendant/simple-tenant/internal/httputil"
	"github.com/tendant/simple-tenant/pkg/domain"
	"github.com/tendant/simple-tenant/pkg/tenancy"
)

// MembershipLister lists a user's active tenant associations.
type MembershipLister interface {
	ListActiveWithTenants(ctx context.Context, userID uuid.UUID) ([]domain.TenantUserWithTenant, error)
}

// Handler handles user profile endpoints.
type Handler struct {
	logger  *slog.Logger
	members MembershipLister
}

// NewHandler creates a new me handler.
func NewHandler(logger *slog.Logger, members MembershipLister) *Handler {
	return &Handler{logger: logger, members: members}
}

// UserResponse represents the user profile response.
type UserResponse struct {
	ID          string `json:"id"`
	Username    string `json:"username"`
	Email       string `json:"email"`
	IsStaff     bool   `json:"is_staff"`
	IsSuperuser bool   `json:"is_superuser"`
}

// MembershipResponse is one tenant the user belongs to.
type MembershipResponse struct {
	TenantID  string      `json:"tenant_id"`
	Slug      string      `json:"slug"`
	Name      string      `json:"name"`
	Role      domain.Role `json:"role"`
	IsPrimary bool        `json:"is_primary"`
}

// MeResponse combines the profile, memberships and the request's binding.
type MeResponse struct {
	User        UserResponse          `json:"user"`
	Memberships []MembershipResponse  `json:"memberships"`
	Tenant      *domain.TenantContext `json:"tenant,omitempty"`
}

// GetMe returns the current user's profile.
// GET /v1/me
func (h *Handler) GetMe(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		httputil.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	rows, err := h.members.ListActiveWithTenants(r.Context(), user.ID)
	if err != nil {
		h.logger.Error("failed to list memberships", "user_id", user.ID, "error", err)
		httputil.Error(w, http.StatusInternalServerError, "failed to load memberships")
		return
	}

	resp := MeResponse{
		User: UserResponse{
			ID:          user.ID.String(),
			Username:    user.Username,
			Email:       user.Email,
			IsStaff:     user.IsStaff,
			IsSuperuser: user.IsSuperuser,
		},
		Memberships: make([]MembershipResponse, 0, len(rows)),
	}
	for _, row := range rows {
		resp.Memberships = append(resp.Memberships, MembershipResponse{
			TenantID:  row.Tenant.ID.String(),
			Slug:      row.Tenant.Slug,
			Name:      row.Tenant.Name,
			Role:      row.TenantUser.Role,
			IsPrimary: row.TenantUser.IsPrimary,
		})
	}
	if tc, ok := tenancy.FromContext(r.Context()); ok {
		resp.Tenant = &tc
	}

	httputil.JSON(w, http.StatusOK, resp)
}
