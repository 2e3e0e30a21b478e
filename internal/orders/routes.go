package orders

import (
	"github.com/go-chi/chi/v5"
)

// MountRoutes mounts the API under the given base path, e.g. "/sales-orders"
// or "/production-orders".
func (h *Handler) MountRoutes(r chi.Router, base string) {
	r.Route(base, func(r chi.Router) {
		r.Get("/", h.List)
		r.Get("/{id}", h.Show)
		r.Post("/{id}/accept", h.Accept)
		r.Post("/{id}/cancel", h.Cancel)
	})
}
