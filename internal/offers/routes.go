package offers

import (
	"github.com/go-chi/chi/v5"
)

func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/offers", h.List)
	r.Post("/offers", h.Create)
	r.Get("/offers/{id}", h.Show)
	r.Patch("/offers/{id}", h.Update)
	r.Post("/offers/{id}/accept", h.Accept)
	r.Post("/offers/{id}/cancel", h.Cancel)
	r.Post("/offers/{id}/lines", h.AddLine)
	r.Put("/offers/{id}/lines/{lineID}", h.UpdateLine)
	r.Delete("/offers/{id}/lines/{lineID}", h.DeleteLine)
}
