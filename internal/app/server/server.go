package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"hradmin/internal/domain/audit"
	"hradmin/internal/domain/contracts"
	"hradmin/internal/domain/ctc"
	"hradmin/internal/domain/employees"
	"hradmin/internal/platform/cache"
	"hradmin/internal/platform/config"
	"hradmin/internal/platform/db"
	"hradmin/internal/platform/metrics"
	"hradmin/internal/transport/http/api"
	audithandler "hradmin/internal/transport/http/handlers/audit"
	contractshandler "hradmin/internal/transport/http/handlers/contracts"
	ctchandler "hradmin/internal/transport/http/handlers/ctc"
	employeeshandler "hradmin/internal/transport/http/handlers/employees"
	"hradmin/internal/transport/http/middleware"
)

type App struct {
	Config  config.Config
	DB      *pgxpool.Pool
	Redis   *redis.Client
	Metrics *metrics.Collector
	Router  http.Handler
	Logger  *zap.Logger
}

// Services are the domain entry points mounted under /api/v1.
type Services struct {
	Components ctchandler.ComponentService
	Contracts  contractshandler.ContractService
	Employees  employeeshandler.EmployeeService
	// Audit is optional; without it changes are not recorded.
	Audit AuditTrail
}

// AuditTrail records rule-table and contract changes and lists them back.
type AuditTrail interface {
	audit.Recorder
	audithandler.EventLister
}

// Pinger reports whether the database answers.
type Pinger interface {
	Ping(ctx context.Context) error
}

// New connects the backing stores, applies migrations and builds the router.
func New(ctx context.Context, cfg config.Config, logger *zap.Logger) (*App, error) {
	pool, err := db.Connect(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("db connect: %w", err)
	}
	if cfg.RunMigrations {
		if err := db.Migrate(ctx, pool, cfg.MigrationsDir, logger); err != nil {
			pool.Close()
			return nil, fmt.Errorf("migrations: %w", err)
		}
	}
	rdb, err := cache.Connect(ctx, cfg)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("redis connect: %w", err)
	}
	if rdb == nil {
		logger.Info("redis not configured, idempotency keys are ignored")
	}

	collector := metrics.New()
	componentService := ctc.NewService(ctc.NewStore(pool), collector)
	services := Services{
		Components: componentService,
		Contracts:  contracts.NewService(contracts.NewStore(pool), componentService, collector),
		Employees:  employees.NewService(employees.NewStore(pool), collector),
		Audit:      audit.NewService(audit.NewStore(pool)),
	}

	return &App{
		Config:  cfg,
		DB:      pool,
		Redis:   rdb,
		Metrics: collector,
		Router:  NewRouter(cfg, logger, collector, pool, rdb, services),
		Logger:  logger,
	}, nil
}

// NewRouter assembles the middleware chain, the ops endpoints and the API.
func NewRouter(cfg config.Config, logger *zap.Logger, collector *metrics.Collector, database Pinger, rdb *redis.Client, services Services) http.Handler {
	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.Logger(logger, collector))
	router.Use(middleware.Recoverer(logger))
	router.Use(middleware.SecureHeaders(cfg.IsProduction()))
	router.Use(middleware.BodyLimit(cfg.MaxBodyBytes))
	router.Use(middleware.Auth(cfg.JWTSecret))
	router.Use(middleware.RateLimit(cfg.RateLimitPerMinute, logger))

	router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	router.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := database.Ping(ctx); err != nil {
			logger.Warn("readiness check failed", zap.Error(err))
			http.Error(w, "db not ready", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
	})

	if cfg.MetricsEnabled {
		router.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
			api.Success(w, collector.Snapshot(), middleware.GetRequestID(r.Context()))
		})
	}

	router.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.RequireUser)
		r.Use(middleware.RequireWriteRole)
		r.Use(middleware.Idempotency(rdb, cfg.IdempotencyTTL, logger))

		var recorder audit.Recorder
		if services.Audit != nil {
			recorder = services.Audit
			audithandler.NewHandler(services.Audit, logger).RegisterRoutes(r)
		}
		ctchandler.NewHandler(services.Components, recorder, logger).RegisterRoutes(r)
		contractshandler.NewHandler(services.Contracts, cfg.StatementCompanyName, recorder, logger).RegisterRoutes(r)
		employeeshandler.NewHandler(services.Employees, logger).RegisterRoutes(r)
	})

	return router
}

// Run serves until SIGINT or SIGTERM, then drains in-flight requests for up
// to ShutdownTimeout.
func (a *App) Run() error {
	srv := &http.Server{
		Addr:              a.Config.Addr,
		Handler:           a.Router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		a.Logger.Info("hr admin server listening", zap.String("addr", a.Config.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	select {
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("serve: %w", err)
		}
		return nil
	case sig := <-quit:
		a.Logger.Info("shutdown signal received", zap.String("signal", sig.String()))
	}

	ctx, cancel := context.WithTimeout(context.Background(), a.Config.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	a.Logger.Info("server exited gracefully")
	return nil
}

func (a *App) Close() {
	if a.Redis != nil {
		if err := a.Redis.Close(); err != nil {
			a.Logger.Warn("close redis", zap.Error(err))
		}
	}
	a.DB.Close()
}
