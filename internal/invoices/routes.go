package invoices

import (
	"github.com/go-chi/chi/v5"
)

func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/invoices", h.List)
	r.Get("/invoices/{id}", h.Show)
	r.Get("/invoices/{id}/case", h.ShowCase)
	r.Post("/invoices/{id}/lines", h.AddLine)
	r.Put("/invoices/{id}/lines/{lineID}", h.UpdateLine)
	r.Delete("/invoices/{id}/lines/{lineID}", h.DeleteLine)
}
