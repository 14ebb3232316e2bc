// Command api runs the catalog rendering HTTP service.
package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	_ "github.com/go-sql-driver/mysql"
	"go.uber.org/zap"

	"github.com/duds-studio/catalog-api/internal/domain"
	"github.com/duds-studio/catalog-api/internal/handlers"
	"github.com/duds-studio/catalog-api/internal/images"
	"github.com/duds-studio/catalog-api/internal/platform/artifacts"
	"github.com/duds-studio/catalog-api/internal/platform/config"
	"github.com/duds-studio/catalog-api/internal/platform/observability"
	"github.com/duds-studio/catalog-api/internal/render"
	"github.com/duds-studio/catalog-api/internal/repositories/mysql"
	"github.com/duds-studio/catalog-api/internal/services"
)

const shutdownGrace = 15 * time.Second

func main() {
	logger, err := observability.NewLogger()
	if err != nil {
		os.Stderr.WriteString("failed to initialise logger: " + err.Error() + "\n")
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	if err := run(logger); err != nil {
		logger.Fatal("service exited", zap.Error(err))
	}
}

func run(logger *zap.Logger) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	db, err := sql.Open("mysql", cfg.Database.DSN)
	if err != nil {
		return err
	}
	defer db.Close()
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	repo, err := mysql.NewProductRepository(db)
	if err != nil {
		return err
	}

	cache := services.NewCatalogCache(services.CatalogCacheDeps{
		Fetch: repo.FetchAll,
		TTL:   cfg.Catalog.CacheTTL,
	})

	resolver := images.NewResolver(
		images.WithFetchTimeout(cfg.Images.FetchTimeout),
	)
	prefetcher, err := images.NewPrefetcher(resolver, images.WithWorkers(cfg.Images.Workers))
	if err != nil {
		return err
	}

	store := artifacts.NewMemoryStore(
		artifacts.WithTTL(cfg.Artifacts.TTL),
	)

	service, err := services.NewCatalogService(services.CatalogServiceDeps{
		Cache:      cache,
		Classifier: services.NewClassifier(domain.Categories()),
		Prefetch:   prefetcher,
		Renderer:   render.NewRenderer(),
		Artifacts:  store,
		Resolver:   resolver,
	})
	if err != nil {
		return err
	}

	catalogHandlers, err := handlers.NewCatalogHandlers(service, store)
	if err != nil {
		return err
	}
	healthHandlers := handlers.NewHealthHandlers(func(ctx context.Context) error {
		return db.PingContext(ctx)
	})

	router := handlers.NewRouter(
		handlers.WithMiddlewares(
			middleware.RequestID,
			middleware.RealIP,
			middleware.Timeout(cfg.Server.WriteTimeout),
			observability.InjectLoggerMiddleware(logger),
			observability.RecoveryMiddleware(logger),
			observability.RequestLoggerMiddleware(),
		),
		handlers.WithCatalogRoutes(catalogHandlers),
		handlers.WithHealthHandlers(healthHandlers),
	)

	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go cleanupLoop(ctx, logger, store, cfg.Artifacts.CleanupInterval, cfg.Artifacts.CleanupBatchSize)

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server listening", zap.String("addr", server.Addr))
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return err
	}
	logger.Info("server stopped")
	return nil
}

// cleanupLoop evicts expired artifacts so abandoned downloads do not pin
// memory for the life of the process.
func cleanupLoop(ctx context.Context, logger *zap.Logger, store *artifacts.MemoryStore, interval time.Duration, batchSize int) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			removed, err := store.CleanupExpired(ctx, now, batchSize)
			if err != nil {
				logger.Warn("artifact cleanup failed", zap.Error(err))
				continue
			}
			if removed > 0 {
				logger.Debug("expired artifacts removed", zap.Int("count", removed))
			}
		}
	}
}
