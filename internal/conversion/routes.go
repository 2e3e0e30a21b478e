package conversion

import (
	"github.com/go-chi/chi/v5"
)

func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/offers/{id}/convert", h.ConvertOffer)
	r.Post("/invoices/{id}/convert", h.ConvertInvoice)
}
