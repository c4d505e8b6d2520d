// Package main is the entrypoint for the SiteSpar API server.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sitespar/sitespar/internal/admission"
	"github.com/sitespar/sitespar/internal/analysis"
	"github.com/sitespar/sitespar/internal/api"
	"github.com/sitespar/sitespar/internal/api/handler"
	mw "github.com/sitespar/sitespar/internal/api/middleware"
	"github.com/sitespar/sitespar/internal/api/response"
	"github.com/sitespar/sitespar/internal/cache"
	"github.com/sitespar/sitespar/internal/config"
	"github.com/sitespar/sitespar/internal/provider"
	"github.com/sitespar/sitespar/internal/provider/ads"
	"github.com/sitespar/sitespar/internal/provider/backlinks"
	"github.com/sitespar/sitespar/internal/provider/content"
	"github.com/sitespar/sitespar/internal/provider/pagespeed"
	"github.com/sitespar/sitespar/internal/provider/social"
	"github.com/sitespar/sitespar/internal/store"
	"github.com/sitespar/sitespar/pkg/models"
)

const (
	shutdownTimeout  = 30 * time.Second
	refreshQueueSize = 64
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	if err := run(); err != nil {
		slog.Error("server failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	// 1. Load config, fail fast when invalid
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	slog.Info("config loaded", "env", cfg.Server.Env, "ads_enabled", cfg.Providers.Ads.Enabled)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 2. Connect to database
	pool, err := store.Connect(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer pool.Close()
	slog.Info("database connected")

	// 3. Run migrations
	if err := store.RunMigrations(cfg.Database.URL); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}
	slog.Info("database migrations applied")

	// 4. Create Redis cache
	redisCache, err := cache.NewRedisCache(cfg.Redis.URL)
	if err != nil {
		return fmt.Errorf("create redis cache: %w", err)
	}
	defer redisCache.Close()

	if err := redisCache.Ping(ctx); err != nil {
		return fmt.Errorf("ping redis: %w", err)
	}
	slog.Info("redis connected")

	// 5. Create store
	pgStore := store.NewPostgresStore(pool)

	// 6. Admission gates and background refresher
	limiter := admission.NewRateLimiter(cfg.Analysis.RateLimit, cfg.Analysis.RateWindow)
	defer limiter.Stop()
	sectionLimiter := admission.NewRateLimiter(cfg.Analysis.SectionRateLimit, cfg.Analysis.RateWindow)
	defer sectionLimiter.Stop()
	lock := admission.NewLock(cfg.Analysis.LockStaleAfter)

	refresher := analysis.NewRefresher(cfg.Analysis.RefreshWorkers, refreshQueueSize)
	defer refresher.Stop()

	// 7. Provider adapters
	core := []provider.Provider{
		pagespeed.NewProvider(cfg.Providers.PageSpeed, pagespeed.CategoryPerformance),
		pagespeed.NewProvider(cfg.Providers.PageSpeed, pagespeed.CategoryTechnical),
		content.NewProvider(cfg.Providers.Content),
		backlinks.NewProvider(cfg.Providers.Backlinks),
	}
	socialProviders := map[string]provider.Provider{}
	for _, platform := range models.Platforms {
		socialProviders[platform] = social.NewProvider(cfg.Providers.Social, platform)
	}
	var adsProvider provider.Provider
	if cfg.Providers.Ads.Enabled {
		adsProvider = ads.NewProvider(cfg.Providers.Ads)
	}

	// 8. Analysis engine
	engine := analysis.NewEngine(analysis.Config{
		Limiter:        limiter,
		SectionLimiter: sectionLimiter,
		Lock:           lock,
		Store:          pgStore,
		Cache:          redisCache,
		Core:           core,
		Social:         socialProviders,
		Ads:            adsProvider,
		ReportTTL:      cfg.Analysis.ReportTTL,
		SocialCacheTTL: cfg.Analysis.SocialCacheTTL,
		LockStaleAfter: cfg.Analysis.LockStaleAfter,
		Refresher:      refresher,
	})

	// 9. Build router with dependencies
	deps := api.Dependencies{
		Auth:      mw.NewAuth(pgStore),
		RateLimit: mw.NewRateLimit(redisCache, cfg.Analysis.APIRequestsPerMin),

		HealthHandler:         healthHandler(pgStore, redisCache),
		AnalyzeHandler:        handler.NewAnalyzeHandler(engine),
		RefreshSectionHandler: handler.NewRefreshSectionHandler(engine),
	}

	router := api.NewRouter(deps)

	// 10. Start HTTP server
	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 2 * time.Minute,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in background
	errCh := make(chan error, 1)
	go func() {
		slog.Info("server listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	// Wait for shutdown signal or server error
	select {
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
		slog.Info("shutdown signal received, draining connections...")
	}

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	slog.Info("server stopped gracefully")
	return nil
}

// healthHandler checks database and cache connectivity.
func healthHandler(s store.Store, c cache.Cache) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		checks := map[string]string{
			"database": "ok",
			"cache":    "ok",
		}

		if err := s.Ping(r.Context()); err != nil {
			checks["database"] = "degraded"
		}
		if err := c.Ping(r.Context()); err != nil {
			checks["cache"] = "degraded"
		}

		degraded := checks["database"] != "ok" || checks["cache"] != "ok"
		if degraded {
			response.Error(w, http.StatusServiceUnavailable, "DEGRADED",
				"One or more services degraded", checks)
			return
		}

		response.JSON(w, map[string]any{
			"status":   "ok",
			"services": checks,
		})
	}
}
