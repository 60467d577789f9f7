package records

import "github.com/go-chi/chi/v5"

// Mount registers the CRUD routes under path.
func (h *Handler[T, PT]) Mount(r chi.Router, path string) {
	r.Route(path, func(r chi.Router) {
		r.Get("/", h.List)
		r.Post("/", h.Create)
		r.Get("/{id}", h.Get)
		r.Put("/{id}", h.Update)
		r.Delete("/{id}", h.Delete)
	})
}
