package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/lumbung-wms/lumbung-wms/internal/auth"
	"github.com/lumbung-wms/lumbung-wms/internal/masterdata/categories"
	"github.com/lumbung-wms/lumbung-wms/internal/masterdata/customers"
	"github.com/lumbung-wms/lumbung-wms/internal/masterdata/items"
	"github.com/lumbung-wms/lumbung-wms/internal/masterdata/suppliers"
	"github.com/lumbung-wms/lumbung-wms/internal/masterdata/warehouses"
	"github.com/lumbung-wms/lumbung-wms/internal/receiving"
	"github.com/lumbung-wms/lumbung-wms/internal/reports"
	"github.com/lumbung-wms/lumbung-wms/internal/returns"
	"github.com/lumbung-wms/lumbung-wms/internal/shared"
	"github.com/lumbung-wms/lumbung-wms/internal/shipping"
	"github.com/lumbung-wms/lumbung-wms/internal/transfers"
	"github.com/lumbung-wms/lumbung-wms/internal/users"
	"github.com/lumbung-wms/lumbung-wms/jobs"
	"github.com/lumbung-wms/lumbung-wms/report"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger         *slog.Logger
	Config         *Config
	SessionManager *shared.SessionManager
	CSRFManager    *shared.CSRFManager

	AuthHandler      *auth.Handler
	UsersHandler     *users.Handler
	ItemHandler      *items.Handler
	WarehouseHandler *warehouses.Handler
	SupplierHandler  *suppliers.Handler
	CustomerHandler  *customers.Handler
	CategoryHandler  *categories.Handler

	ReceivingHandler      *receiving.Handler
	ShippingHandler       *shipping.Handler
	TransferHandler       *transfers.Handler
	PurchaseReturnHandler *returns.PurchaseHandler
	SalesReturnHandler    *returns.SalesHandler
	ReportHandler         *reports.Handler
	ExportHandler         *report.Handler

	JobHandler *jobs.Handler
}

// NewRouter constructs the chi.Router serving the JSON API.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:         params.Logger,
		Config:         params.Config,
		SessionManager: params.SessionManager,
		CSRFManager:    params.CSRFManager,
		CSRFExempt:     []string{"/api/auth/login"},
	}) {
		r.Use(mw)
	}

	r.Use(chimw.Logger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	r.Route("/api", func(r chi.Router) {
		r.Route("/auth", params.AuthHandler.MountRoutes)
		r.Route("/users", params.UsersHandler.MountRoutes)

		r.Route("/master", func(r chi.Router) {
			r.Route("/barang", params.ItemHandler.MountRoutes)
			r.Route("/gudang", params.WarehouseHandler.MountRoutes)
			r.Route("/supplier", params.SupplierHandler.MountRoutes)
			r.Route("/customer", params.CustomerHandler.MountRoutes)
			r.Route("/golongan", params.CategoryHandler.MountRoutes)
		})

		r.Route("/transaksi", func(r chi.Router) {
			r.Route("/barang-masuk", params.ReceivingHandler.MountRoutes)
			r.Route("/surat-jalan", params.ShippingHandler.MountRoutes)
			r.Route("/delivery-order", params.TransferHandler.MountRoutes)
			r.Route("/retur-beli", params.PurchaseReturnHandler.MountRoutes)
			r.Route("/retur-jual", params.SalesReturnHandler.MountRoutes)
		})

		r.Route("/laporan", params.ReportHandler.MountRoutes)
		if params.ExportHandler != nil {
			r.Route("/cetak", params.ExportHandler.MountRoutes)
		}
	})

	if params.JobHandler != nil {
		r.Route("/jobs", params.JobHandler.MountRoutes)
	}

	return r
}
