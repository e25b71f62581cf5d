package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/go-chi/chi/v5"
	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"donaria/internal/donor/handler"
	"donaria/internal/donor/metrics"
	"donaria/internal/donor/revocation"
	"donaria/internal/donor/service"
	"donaria/internal/donor/store"
	"donaria/internal/donor/token"
	"donaria/internal/platform/config"
	"donaria/internal/platform/httpserver"
	"donaria/internal/platform/logger"
	"donaria/internal/platform/middleware"
	"donaria/internal/platform/redis"
)

// main wires high-level dependencies, exposes the HTTP router, and keeps the
// server lifecycle small. Business logic lives in internal services packages.
func main() {
	cfg, err := config.FromEnv()
	if err != nil {
		os.Stderr.WriteString("config: " + err.Error() + "\n")
		os.Exit(1)
	}
	log := logger.New()

	issuer, err := token.NewIssuer(cfg.JWTSigningKey)
	if err != nil {
		log.Error("token issuer init failed", "error", err)
		os.Exit(1)
	}

	donors, closeStore, err := newStore(cfg)
	if err != nil {
		log.Error("store init failed", "error", err)
		os.Exit(1)
	}
	defer closeStore()

	revocations, closeRevocations, err := newRevocationList(cfg)
	if err != nil {
		log.Error("revocation list init failed", "error", err)
		os.Exit(1)
	}
	defer closeRevocations()

	svc := service.New(donors, issuer, revocations,
		service.WithLogger(log),
		service.WithMetrics(metrics.New()),
	)

	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Handle("/metrics", promhttp.Handler())

	requireAuth := middleware.RequireAuth(token.NewIssuerAdapter(issuer), revocations, log)
	handler.New(svc, log).Register(router, requireAuth)

	srv := httpserver.New(cfg.Addr, router)

	log.Info("starting donaria", "addr", cfg.Addr)

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt)
	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error("graceful shutdown failed", "error", err)
		os.Exit(1)
	}
}

// newStore selects persistence from config: Postgres when DATABASE_URL is
// set, otherwise the in-memory store for local development.
func newStore(cfg config.Server) (service.Store, func(), error) {
	if cfg.DatabaseURL == "" {
		return store.NewInMemory(), func() {}, nil
	}

	db, err := sql.Open("postgres", cfg.DatabaseURL)
	if err != nil {
		return nil, nil, err
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, nil, err
	}
	return store.NewPostgres(db), func() { db.Close() }, nil
}

// newRevocationList selects the token revocation list backend: Redis when
// configured, otherwise in-process memory.
func newRevocationList(cfg config.Server) (service.RevocationList, func(), error) {
	client, err := redis.New(cfg.Redis)
	if err != nil {
		return nil, nil, err
	}
	if client == nil {
		return revocation.NewInMemory(), func() {}, nil
	}
	return revocation.NewRedis(client.Client), func() { client.Close() }, nil
}
