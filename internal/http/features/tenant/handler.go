package tenant

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	"github.com/tendant/simple-tenant/internal/httputil"
	"github.com/tendant/simple-tenant/pkg/domain"
	"github.com/tendant/simple-tenant/pkg/tenancy"
)

// Lookup reads one tenant by ID.
type Lookup interface {
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Tenant, error)
}

// Handler serves the resolved tenant.
type Handler struct {
	logger  *slog.Logger
	tenants Lookup
}

// NewHandler creates a new tenant handler.
func NewHandler(logger *slog.Logger, tenants Lookup) *Handler {
	return &Handler{logger: logger, tenants: tenants}
}

// Response describes the tenant bound to the request.
type Response struct {
	ID       string                `json:"id"`
	Slug     string                `json:"slug"`
	Name     string                `json:"name"`
	IsGuest  bool                  `json:"is_guest"`
	IsTrial  bool                  `json:"is_trial"`
	Settings domain.TenantSettings `json:"settings"`
	Binding  domain.TenantContext  `json:"binding"`
}

// Current returns the tenant the request resolved to.
// GET /v1/tenant
func (h *Handler) Current(w http.ResponseWriter, r *http.Request) {
	tc, ok := tenancy.FromContext(r.Context())
	if !ok || !tc.HasTenant() {
		httputil.Error(w, http.StatusBadRequest, "no tenant selected")
		return
	}

	t, err := h.tenants.GetByID(r.Context(), tc.TenantID)
	if err != nil {
		if errors.Is(err, domain.ErrTenantNotFound) {
			httputil.Error(w, http.StatusNotFound, "tenant not found")
			return
		}
		h.logger.Error("failed to load tenant", "tenant_id", tc.TenantID, "error", err)
		httputil.Error(w, http.StatusInternalServerError, "internal error")
		return
	}

	httputil.JSON(w, http.StatusOK, Response{
		ID:       t.ID.String(),
		Slug:     t.Slug,
		Name:     t.Name,
		IsGuest:  t.IsGuest(),
		IsTrial:  t.IsTrial,
		Settings: t.Settings,
		Binding:  tc,
	})
}
