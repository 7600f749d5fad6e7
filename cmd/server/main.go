package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"nomen/internal/platform/config"
	"nomen/internal/platform/database"
	"nomen/internal/platform/health"
	"nomen/internal/platform/logger"
	"nomen/internal/platform/middleware"
	"nomen/internal/platform/tracer"
	"nomen/internal/seeder"
	"nomen/internal/user/handler"
	"nomen/internal/user/metrics"
	"nomen/internal/user/migrate"
	"nomen/internal/user/service"
	"nomen/internal/user/store"
	"nomen/pkg/platform/validation"
)

// main wires high-level dependencies, exposes the HTTP router, and keeps the
// server lifecycle small. Business logic lives in the internal/user packages.
func main() {
	cfg := config.FromEnv()
	log := logger.New()

	log.Info("initializing nomen", "addr", cfg.Addr, "database", cfg.DatabaseURL != "")

	dbCfg := database.DefaultConfig()
	dbCfg.URL = cfg.DatabaseURL
	pool, err := database.New(dbCfg)
	if err != nil {
		log.Error("database init failed", "error", err)
		os.Exit(1)
	}

	var userStore store.UserStore
	if pool != nil {
		userStore = store.NewPostgres(pool.DB())
	} else {
		log.Info("no database configured, using in-memory store")
		userStore = store.NewInMemory()
	}

	if cfg.SeedDemo {
		if err := seeder.New(userStore, log).SeedAll(context.Background()); err != nil {
			log.Error("demo seeding failed", "error", err)
			os.Exit(1)
		}
	}

	m := metrics.New()
	trc := tracer.NewOTel()
	migrator := migrate.New(userStore,
		migrate.WithLogger(log),
		migrate.WithMetrics(m),
		migrate.WithLimit(cfg.MigrateLimit),
	)
	svc := service.New(userStore, migrator,
		service.WithLogger(log),
		service.WithMetrics(m),
		service.WithTracer(trc),
	)
	h := handler.New(svc, log)

	r := chi.NewRouter()
	r.Use(middleware.Recovery(log))
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger(log))
	r.Use(middleware.Timeout(30 * time.Second))
	r.Use(middleware.BodyLimit(validation.MaxBodySize))
	r.Use(middleware.ContentTypeJSON)
	h.Register(r)
	r.Handle("/metrics", promhttp.Handler())

	probes := health.New()
	if pool != nil {
		probes.RegisterCheck("database", pool.Health)
	}
	probes.Register(r)

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}

	log.Info("starting http server", "addr", cfg.Addr)

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	// Graceful shutdown on SIGINT
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt)
	<-quit

	log.Info("shutting down server gracefully")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error("graceful shutdown failed", "error", err)
		os.Exit(1)
	}
	if pool != nil {
		_ = pool.Close()
	}

	log.Info("server stopped")
}
