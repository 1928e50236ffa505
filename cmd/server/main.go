package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	basicprofilehandler "userprofile/internal/basicprofile/handler"
	basicprofileservice "userprofile/internal/basicprofile/service"
	"userprofile/internal/cache"
	extendedhandler "userprofile/internal/extendedprofile/handler"
	extendedmetrics "userprofile/internal/extendedprofile/metrics"
	extendedservice "userprofile/internal/extendedprofile/service"
	"userprofile/internal/identity"
	masterdatahandler "userprofile/internal/masterdata/handler"
	masterdatametrics "userprofile/internal/masterdata/metrics"
	masterdataservice "userprofile/internal/masterdata/service"
	"userprofile/internal/platform/cassandra"
	"userprofile/internal/platform/config"
	"userprofile/internal/platform/health"
	"userprofile/internal/platform/logger"
	platformredis "userprofile/internal/platform/redis"
	"userprofile/internal/storage"
	httptransport "userprofile/internal/transport/http"
)

// main wires high-level dependencies, exposes the HTTP router, and keeps the
// server lifecycle small. Business logic lives in the internal service
// packages.
func main() {
	cfg := config.FromEnv()
	log := logger.New()

	log.Info("initializing user profile service",
		"addr", cfg.Addr,
		"environment", cfg.Environment,
		"keyspace", cfg.Cassandra.Keyspace,
	)

	cassandraClient, err := cassandra.New(cfg.Cassandra)
	if err != nil {
		log.Error("cassandra init failed", "error", err)
		os.Exit(1)
	}
	defer cassandraClient.Close()

	redisClient, err := platformredis.New(cfg.Redis)
	if err != nil {
		log.Error("redis init failed", "error", err)
		os.Exit(1)
	}
	defer redisClient.Close()

	go func() {
		ticker := time.NewTicker(15 * time.Second)
		defer ticker.Stop()
		for range ticker.C {
			redisClient.RecordPoolStats()
		}
	}()

	store := storage.NewCassandraStore(cassandraClient.Session(), log)
	profileCache := cache.NewRedisCache(redisClient.Client)
	resolver := identity.NewTokenResolver(cfg.JWTSigningKey)

	extendedSvc := extendedservice.NewService(store, profileCache, resolver,
		cfg.Cassandra.Keyspace, cfg.Profile,
		extendedservice.WithLogger(log),
		extendedservice.WithMetrics(extendedmetrics.New()),
	)
	basicSvc := basicprofileservice.NewService(store, profileCache, resolver,
		extendedSvc, cfg.Cassandra.Keyspace, cfg.Profile,
		basicprofileservice.WithLogger(log),
	)
	masterdataSvc := masterdataservice.NewService(store, profileCache, resolver,
		cfg.Cassandra.Keyspace,
		masterdataservice.WithLogger(log),
		masterdataservice.WithMetrics(masterdatametrics.New()),
	)

	healthHandler := health.New(cfg.Environment)
	healthHandler.RegisterCheck("cassandra", cassandraClient.Health)
	healthHandler.RegisterCheck("redis", redisClient.Health)

	router := httptransport.NewRouter(log, healthHandler,
		extendedhandler.New(extendedSvc, log),
		basicprofilehandler.New(basicSvc, log),
		masterdatahandler.New(masterdataSvc, log),
	)

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	log.Info("starting http server", "addr", cfg.Addr)

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	// Graceful shutdown on SIGINT/SIGTERM
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server gracefully")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error("graceful shutdown failed", "error", err)
		os.Exit(1)
	}

	log.Info("server stopped")
}
