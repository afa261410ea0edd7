package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/lumbung-wms/lumbung-wms/internal/app"
	"github.com/lumbung-wms/lumbung-wms/internal/auth"
	"github.com/lumbung-wms/lumbung-wms/internal/docnum"
	"github.com/lumbung-wms/lumbung-wms/internal/masterdata/categories"
	"github.com/lumbung-wms/lumbung-wms/internal/masterdata/customers"
	"github.com/lumbung-wms/lumbung-wms/internal/masterdata/items"
	"github.com/lumbung-wms/lumbung-wms/internal/masterdata/suppliers"
	"github.com/lumbung-wms/lumbung-wms/internal/masterdata/warehouses"
	"github.com/lumbung-wms/lumbung-wms/internal/platform/cache"
	"github.com/lumbung-wms/lumbung-wms/internal/rbac"
	"github.com/lumbung-wms/lumbung-wms/internal/receiving"
	"github.com/lumbung-wms/lumbung-wms/internal/reports"
	"github.com/lumbung-wms/lumbung-wms/internal/returns"
	"github.com/lumbung-wms/lumbung-wms/internal/shared"
	"github.com/lumbung-wms/lumbung-wms/internal/shipping"
	"github.com/lumbung-wms/lumbung-wms/internal/stock"
	"github.com/lumbung-wms/lumbung-wms/internal/transfers"
	"github.com/lumbung-wms/lumbung-wms/internal/users"
	"github.com/lumbung-wms/lumbung-wms/jobs"
	"github.com/lumbung-wms/lumbung-wms/report"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	dbpool, err := pgxpool.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer dbpool.Close()

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Error("connect redis", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	sessionManager := shared.NewSessionManager(redisClient, "lumbung_session", cfg.SessionSecret, cfg.SessionTTL, cfg.IsProduction())
	csrfManager := shared.NewCSRFManager(cfg.CSRFSecret)

	rbacService := rbac.NewService()
	rbacMiddleware := rbac.Middleware{Service: rbacService, Logger: logger}

	auditLogger := shared.NewAuditLogger(dbpool)
	approvalRecorder := shared.NewApprovalRecorder(dbpool, logger)
	idempotencyStore := shared.NewIdempotencyStore(dbpool)
	numbers := docnum.NewGenerator(docnum.NewPgSequencer(dbpool))
	applier := stock.Applier{}
	stockRepo := stock.NewRepository(dbpool)

	userRepo := users.NewRepository(dbpool)
	userService := users.NewService(userRepo, rbacService)
	userHandler := users.NewHandler(logger, userService, rbacMiddleware)

	authService := auth.NewService(userRepo, auth.NewSessionRepository(dbpool))
	authHandler := auth.NewHandler(logger, authService, sessionManager, csrfManager)

	itemHandler := items.NewHandler(logger, items.NewService(items.NewRepository(dbpool)), rbacMiddleware)
	warehouseHandler := warehouses.NewHandler(logger, warehouses.NewService(warehouses.NewRepository(dbpool)), rbacMiddleware)
	supplierHandler := suppliers.NewHandler(logger, suppliers.NewService(suppliers.NewRepository(dbpool)), rbacMiddleware)
	customerHandler := customers.NewHandler(logger, customers.NewService(customers.NewRepository(dbpool)), rbacMiddleware)
	categoryHandler := categories.NewHandler(logger, categories.NewService(categories.NewRepository(dbpool)), rbacMiddleware)

	receivingService := receiving.NewService(logger, receiving.NewRepository(dbpool), numbers, applier, idempotencyStore, auditLogger)
	receivingHandler := receiving.NewHandler(logger, receivingService, rbacMiddleware)

	shippingService := shipping.NewService(logger, shipping.NewRepository(dbpool), numbers, applier, idempotencyStore, auditLogger)
	shippingHandler := shipping.NewHandler(logger, shippingService, rbacMiddleware)

	transferService := transfers.NewService(logger, transfers.NewRepository(dbpool), numbers, auditLogger)
	transferHandler := transfers.NewHandler(logger, transferService, rbacMiddleware)

	purchaseReturnService := returns.NewPurchaseService(logger, returns.NewPurchaseRepository(dbpool), numbers, approvalRecorder)
	purchaseReturnHandler := returns.NewPurchaseHandler(logger, purchaseReturnService, rbacMiddleware)

	salesReturnService := returns.NewSalesService(logger, returns.NewSalesRepository(dbpool), numbers, applier, idempotencyStore, approvalRecorder)
	salesReturnHandler := returns.NewSalesHandler(logger, salesReturnService, rbacMiddleware)

	reportService := reports.NewService(reports.NewSourceRepository(dbpool), stockRepo)
	reportHandler := reports.NewHandler(logger, reportService, rbacMiddleware)

	exportHandler := report.NewHandler(report.NewClient(cfg.GotenbergURL), stockRepo, rbacMiddleware, logger)

	inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()
	jobHandler := jobs.NewHandler(inspector, logger)

	router := app.NewRouter(app.RouterParams{
		Logger:         logger,
		Config:         cfg,
		SessionManager: sessionManager,
		CSRFManager:    csrfManager,

		AuthHandler:      authHandler,
		UsersHandler:     userHandler,
		ItemHandler:      itemHandler,
		WarehouseHandler: warehouseHandler,
		SupplierHandler:  supplierHandler,
		CustomerHandler:  customerHandler,
		CategoryHandler:  categoryHandler,

		ReceivingHandler:      receivingHandler,
		ShippingHandler:       shippingHandler,
		TransferHandler:       transferHandler,
		PurchaseReturnHandler: purchaseReturnHandler,
		SalesReturnHandler:    salesReturnHandler,
		ReportHandler:         reportHandler,
		ExportHandler:         exportHandler,

		JobHandler: jobHandler,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
}
