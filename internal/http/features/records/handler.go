package records

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/tendant/simple-tenant/internal/http/middleware"
	"github.com/tendant/simple-tenant/internal/httputil"
	"github.com/tendant/simple-tenant/pkg/domain"
	"github.com/tendant/simple-tenant/pkg/gateway"
	recstore "github.com/tendant/simple-tenant/pkg/records"
	"github.com/tendant/simple-tenant/pkg/tenancy"
)

const maxPageSize = 200

// Authorizer decides whether the request may perform action on model.
type Authorizer func(r *http.Request, tc domain.TenantContext, model string, action domain.Action) error

// RoleAuthorizer gates actions on the caller's tenant role.
func RoleAuthorizer(r *http.Request, tc domain.TenantContext, _ string, action domain.Action) error {
	return tenancy.Require(tc, domain.Capability(action))
}

// GrantAuthorizer gates actions on explicit per-model grants, for the
// staff administration surface.
func GrantAuthorizer(perms *tenancy.Permissions) Authorizer {
	return func(r *http.Request, tc domain.TenantContext, model string, action domain.Action) error {
		user, _ := middleware.GetUser(r.Context())
		return perms.Check(r.Context(), tc, user, model, action)
	}
}

// Handler serves CRUD endpoints for one entity type.
type Handler[T any, PT recstore.Entity[T]] struct {
	logger    *slog.Logger
	store     *recstore.Store[T, PT]
	authorize Authorizer
}

// NewHandler creates a new records handler.
func NewHandler[T any, PT recstore.Entity[T]](logger *slog.Logger, store *recstore.Store[T, PT], authorize Authorizer) *Handler[T, PT] {
	return &Handler[T, PT]{logger: logger, store: store, authorize: authorize}
}

// ListResponse wraps a page of records.
type ListResponse[T any] struct {
	Items  []T    `json:"items"`
	Limit  uint64 `json:"limit"`
	Offset uint64 `json:"offset"`
}

// List returns a page of the tenant's records.
// GET /v1/{model}
func (h *Handler[T, PT]) List(w http.ResponseWriter, r *http.Request) {
	tc, ok := h.allow(w, r, domain.ActionView)
	if !ok {
		return
	}
	limit := parseUint(r.URL.Query().Get("limit"), 50)
	if limit == 0 || limit > maxPageSize {
		limit = maxPageSize
	}
	offset := parseUint(r.URL.Query().Get("offset"), 0)

	items, err := h.store.List(r.Context(), tc, limit, offset)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httputil.JSON(w, http.StatusOK, ListResponse[T]{Items: items, Limit: limit, Offset: offset})
}

// Get returns one record.
// GET /v1/{model}/{id}
func (h *Handler[T, PT]) Get(w http.ResponseWriter, r *http.Request) {
	tc, ok := h.allow(w, r, domain.ActionView)
	if !ok {
		return
	}
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	rec, err := h.store.Get(r.Context(), tc, id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httputil.JSON(w, http.StatusOK, rec)
}

// Create adds a record to the tenant.
// POST /v1/{model}
func (h *Handler[T, PT]) Create(w http.ResponseWriter, r *http.Request) {
	tc, ok := h.allow(w, r, domain.ActionAdd)
	if !ok {
		return
	}
	rec, ok := decode[T, PT](w, r)
	if !ok {
		return
	}
	if err := h.store.Create(r.Context(), tc, rec); err != nil {
		h.fail(w, r, err)
		return
	}
	httputil.JSON(w, http.StatusCreated, rec)
}

// Update overwrites a record's fields.
// PUT /v1/{model}/{id}
func (h *Handler[T, PT]) Update(w http.ResponseWriter, r *http.Request) {
	tc, ok := h.allow(w, r, domain.ActionChange)
	if !ok {
		return
	}
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	rec, ok := decode[T, PT](w, r)
	if !ok {
		return
	}
	gateway.BaseOf(rec).ID = id
	if err := h.store.Update(r.Context(), tc, rec); err != nil {
		h.fail(w, r, err)
		return
	}
	updated, err := h.store.Get(r.Context(), tc, id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httputil.JSON(w, http.StatusOK, updated)
}

// Delete removes a record.
// DELETE /v1/{model}/{id}
func (h *Handler[T, PT]) Delete(w http.ResponseWriter, r *http.Request) {
	tc, ok := h.allow(w, r, domain.ActionDelete)
	if !ok {
		return
	}
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := h.store.Delete(r.Context(), tc, id); err != nil {
		h.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler[T, PT]) allow(w http.ResponseWriter, r *http.Request, action domain.Action) (domain.TenantContext, bool) {
	tc := tenancy.MustFromContext(r.Context())
	if err := h.authorize(r, tc, h.store.Model(), action); err != nil {
		h.fail(w, r, err)
		return tc, false
	}
	return tc, true
}

func (h *Handler[T, PT]) fail(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, domain.ErrRecordNotFound):
		httputil.Error(w, http.StatusNotFound, "not found")
	case errors.Is(err, domain.ErrNoTenant):
		httputil.Error(w, http.StatusBadRequest, "no tenant selected")
	case errors.Is(err, domain.ErrForbidden), errors.Is(err, domain.ErrIsolationViolation):
		httputil.Error(w, http.StatusForbidden, "forbidden")
	case errors.Is(err, domain.ErrQuotaExceeded):
		httputil.Error(w, http.StatusConflict, "record quota exceeded")
	case errors.Is(err, recstore.ErrInvalidReference), errors.Is(err, recstore.ErrInvalidRecord):
		httputil.Error(w, http.StatusUnprocessableEntity, err.Error())
	default:
		h.logger.Error("record operation failed", "model", h.store.Model(), "path", r.URL.Path, "error", err)
		httputil.Error(w, http.StatusInternalServerError, "internal error")
	}
}

// decode reads a record body. Client-supplied base columns are discarded;
// the gateway assigns them.
func decode[T any, PT recstore.Entity[T]](w http.ResponseWriter, r *http.Request) (PT, bool) {
	rec := PT(new(T))
	if err := httputil.DecodeJSON(r, rec); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			httputil.Error(w, http.StatusRequestEntityTooLarge, "request body too large")
			return rec, false
		}
		httputil.Error(w, http.StatusBadRequest, err.Error())
		return rec, false
	}
	*gateway.BaseOf(rec) = gateway.Base{}
	return rec, true
}

func pathID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid id")
		return uuid.Nil, false
	}
	return id, true
}

func parseUint(s string, def uint64) uint64 {
	if s == "" {
		return def
	}
	n, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return def
	}
	return n
}
