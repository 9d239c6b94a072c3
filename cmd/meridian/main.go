package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"golang.org/x/sync/errgroup"

	"github.com/meridian-erp/meridian-erp/internal/accounting"
	"github.com/meridian-erp/meridian-erp/internal/app"
	"github.com/meridian-erp/meridian-erp/internal/assets"
	"github.com/meridian-erp/meridian-erp/internal/audit"
	"github.com/meridian-erp/meridian-erp/internal/auth"
	"github.com/meridian-erp/meridian-erp/internal/export"
	"github.com/meridian-erp/meridian-erp/internal/guard"
	"github.com/meridian-erp/meridian-erp/internal/inventory"
	"github.com/meridian-erp/meridian-erp/internal/invoices"
	"github.com/meridian-erp/meridian-erp/internal/items"
	"github.com/meridian-erp/meridian-erp/internal/observability"
	"github.com/meridian-erp/meridian-erp/internal/orgs"
	"github.com/meridian-erp/meridian-erp/internal/partners"
	"github.com/meridian-erp/meridian-erp/internal/platform/cache"
	"github.com/meridian-erp/meridian-erp/internal/platform/db"
	"github.com/meridian-erp/meridian-erp/internal/procurement"
	"github.com/meridian-erp/meridian-erp/internal/rbac"
	"github.com/meridian-erp/meridian-erp/internal/roles"
	"github.com/meridian-erp/meridian-erp/internal/shared"
	"github.com/meridian-erp/meridian-erp/internal/tenant"
	"github.com/meridian-erp/meridian-erp/internal/users"
	"github.com/meridian-erp/meridian-erp/jobs"
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

	pool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

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

	sessionManager := shared.NewSessionManager(redisClient, "meridian_session", cfg.SessionSecret, cfg.SessionTTL, cfg.IsProduction())
	csrfManager := shared.NewCSRFManager(cfg.CSRFSecret)
	auditLogger := shared.NewAuditLogger(pool)

	authService := auth.NewService(auth.NewRepository(pool))
	authHandler := auth.NewHandler(logger, authService, sessionManager, csrfManager)

	rbacService := rbac.NewService(rbac.NewRepository(pool), logger)
	rbacMiddleware := rbac.Middleware{Service: rbacService, Logger: logger}
	tenantMiddleware := tenant.Middleware{Profiles: authService, Logger: logger}
	routeGuard := guard.Guard{Roles: rbacService, Logger: logger}

	orgsRepo := orgs.NewPGRepository(pool)
	orgsService := orgs.NewService(orgsRepo, logger)
	if cfg.AdminBootstrap {
		bootstrapper := orgs.NewBootstrapper(orgsRepo, rbacService, logger)
		if err := bootstrapper.Run(ctx, cfg.AdminPassword); err != nil {
			logger.Error("admin bootstrap", slog.Any("error", err))
			os.Exit(1)
		}
	}

	jobsClient, err := jobs.NewClient(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	if err != nil {
		logger.Error("connect task queue", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := jobsClient.Close(); err != nil {
			logger.Warn("task queue close", slog.Any("error", err))
		}
	}()

	partnersService := partners.NewService(partners.NewPGRepository(pool), logger)
	itemsService := items.NewService(items.NewPGRepository(pool), logger)
	inventoryService := inventory.NewService(inventory.NewPGRepository(pool), logger)
	procurementService := procurement.NewService(procurement.NewPGRepository(pool), inventoryService, jobsClient, logger).WithAudit(auditLogger)
	invoicesService := invoices.NewService(invoices.NewPGRepository(pool), jobsClient, logger).WithAudit(auditLogger)
	accountingService := accounting.NewService(accounting.NewPGRepository(pool), logger).WithAudit(auditLogger)
	usersService := users.NewService(users.NewPGRepository(pool), sessionManager, logger)

	inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()

	metrics := observability.NewMetrics()

	router := app.NewRouter(app.RouterParams{
		Logger:           logger,
		Config:           cfg,
		SessionManager:   sessionManager,
		CSRFManager:      csrfManager,
		Metrics:          metrics,
		RBACMiddleware:   rbacMiddleware,
		TenantMiddleware: tenantMiddleware,
		Guard:            routeGuard,

		AuthHandler:        authHandler,
		OrgsHandler:        orgs.NewHandler(logger, orgsService, rbacMiddleware),
		PartnersHandler:    partners.NewHandler(logger, partnersService, rbacMiddleware),
		ItemsHandler:       items.NewHandler(logger, itemsService, rbacMiddleware),
		InventoryHandler:   inventory.NewHandler(logger, inventoryService, rbacMiddleware),
		ProcurementHandler: procurement.NewHandler(logger, procurementService, rbacMiddleware),
		InvoicesHandler:    invoices.NewHandler(logger, invoicesService, rbacMiddleware),
		AccountingHandler: accounting.NewHandler(logger, accountingService, rbacMiddleware).
			WithRebuilds(accounting.RebuildEnqueuerFunc(func(ctx context.Context, organizationID int64) error {
				_, err := jobsClient.EnqueueSubledgerRebuild(ctx, organizationID)
				return err
			})),
		ExportHandler:      export.NewHandler(logger, accountingService, inventoryService, rbacMiddleware),
		AssetsHandler:      assets.NewHandler(logger, rbacMiddleware),
		AuditHandler:       audit.NewHandler(logger, audit.NewPGRepository(pool), rbacMiddleware),
		UsersHandler:       users.NewHandler(logger, usersService, rbacMiddleware),
		RolesHandler:       roles.NewHandler(logger, rbacService, rbacMiddleware),
		PermissionsHandler: rbac.NewPermissionsHandler(logger, rbacService, rbacMiddleware),
		JobHandler:         jobs.NewHandler(inspector, logger),
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	group.Go(func() error {
		<-groupCtx.Done()
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := group.Wait(); err != nil {
		logger.Error("http server", slog.Any("error", err))
		os.Exit(1)
	}
}
