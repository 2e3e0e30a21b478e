package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/meridian-erp/meridian-erp/internal/conversion"
	"github.com/meridian-erp/meridian-erp/internal/invoices"
	"github.com/meridian-erp/meridian-erp/internal/offers"
	"github.com/meridian-erp/meridian-erp/internal/orders"
	"github.com/meridian-erp/meridian-erp/internal/platform/httpx"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger                 *slog.Logger
	Config                 *Config
	Pool                   *pgxpool.Pool
	OffersHandler          *offers.Handler
	InvoicesHandler        *invoices.Handler
	SalesOrderHandler      *orders.Handler
	ProductionOrderHandler *orders.Handler
	ConversionHandler      *conversion.Handler
}

// NewRouter constructs the chi.Router with Meridian defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger: params.Logger,
		Config: params.Config,
	}) {
		r.Use(mw)
	}

	r.Get("/healthz", func(w http.ResponseWriter, req *http.Request) {
		if params.Pool != nil {
			if err := params.Pool.Ping(req.Context()); err != nil {
				httpx.Problem(w, http.StatusServiceUnavailable, "Unavailable", "database unreachable")
				return
			}
		}
		httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api/v1", func(api chi.Router) {
		params.OffersHandler.MountRoutes(api)
		params.InvoicesHandler.MountRoutes(api)
		params.SalesOrderHandler.MountRoutes(api, "/sales-orders")
		params.ProductionOrderHandler.MountRoutes(api, "/production-orders")
		params.ConversionHandler.MountRoutes(api)
	})

	return r
}
