package conversion

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/meridian-erp/meridian-erp/internal/platform/httpx"
)

// ConvertRequest selects the target type and company for a conversion.
type ConvertRequest struct {
	CompanyID int64  `json:"company_id" validate:"required,gt=0"`
	Target    Target `json:"target" validate:"required"`
}

// Handler exposes the conversion JSON API.
type Handler struct {
	logger       *slog.Logger
	orchestrator *Orchestrator
	validator    *validator.Validate
}

// NewHandler builds a Handler instance.
func NewHandler(logger *slog.Logger, orchestrator *Orchestrator) *Handler {
	return &Handler{logger: logger, orchestrator: orchestrator, validator: validator.New()}
}

func (h *Handler) ConvertOffer(w http.ResponseWriter, r *http.Request) {
	h.convert(w, r, h.orchestrator.ConvertOfferTo)
}

func (h *Handler) ConvertInvoice(w http.ResponseWriter, r *http.Request) {
	h.convert(w, r, h.orchestrator.ConvertInvoiceTo)
}

func (h *Handler) convert(w http.ResponseWriter, r *http.Request, fn func(ctx context.Context, sourceID, companyID int64, target Target) (Result, error)) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid ID", err.Error())
		return
	}
	var req ConvertRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Body", err.Error())
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}

	result, err := fn(r.Context(), id, req.CompanyID, req.Target)
	if err != nil {
		h.logger.Error("convert document",
			slog.Int64("source_id", id),
			slog.String("target", string(req.Target)),
			slog.Any("error", err),
		)
		httpx.RespondError(w, err)
		return
	}
	status := http.StatusOK
	if result.CreatedNew {
		status = http.StatusCreated
	}
	httpx.JSON(w, status, result)
}
