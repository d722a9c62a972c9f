package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/geocoder89/fishin/internal/auth"
	"github.com/geocoder89/fishin/internal/cache"
	"github.com/geocoder89/fishin/internal/config"
	"github.com/geocoder89/fishin/internal/db"
	httpx "github.com/geocoder89/fishin/internal/http"
	"github.com/geocoder89/fishin/internal/http/handlers"
	"github.com/geocoder89/fishin/internal/observability"
	"github.com/geocoder89/fishin/internal/repo/memory"
	"github.com/geocoder89/fishin/internal/repo/postgres"
	"github.com/geocoder89/fishin/internal/repo/sqlite"
)

func main() {
	// Load the config set up
	cfg := config.Load()

	// start up the observability logger
	log := observability.NewLogger(cfg.Env)
	slog.SetDefault(log)

	if cfg.OTelEnabled {
		shutdownTracer, err := observability.InitTracer(context.Background(), observability.TracerConfig{
			ServiceName: "fishin-api",
			Env:         cfg.Env,
			Endpoint:    cfg.OTelEndpoint,
		})
		if err != nil {
			log.Error("tracer init failed", "err", err)
		} else {
			defer func() {
				ctx, cancel := config.WithTimeout(5 * time.Second)
				defer cancel()
				_ = shutdownTracer(ctx)
			}()
		}
	}

	prom := observability.NewProm()

	deps := httpx.Deps{
		Tokens: auth.NewManager(cfg.JWTSecret, cfg.JWTTTL()),
		Prom:   prom,
		Checks: map[string]handlers.Check{},
	}

	var seeder db.UserSeeder

	switch cfg.Store {
	case config.StoreMemory:
		users := memory.NewUsersRepo()
		deps.Fish = memory.NewFishRepo()
		deps.Users = users
		seeder = users
		log.Info("using in-memory store")

	case config.StoreSQLite:
		sdb, err := sqlite.Open(context.Background(), cfg.SQLitePath)
		if err != nil {
			log.Error("sqlite open failed", "path", cfg.SQLitePath, "err", err)
			os.Exit(1)
		}
		defer sdb.Close()

		users := sqlite.NewUsersRepo(sdb, prom)
		deps.Fish = sqlite.NewFishRepo(sdb, prom)
		deps.Users = users
		seeder = users
		deps.Checks["sqlite"] = sdb.PingContext
		log.Info("using sqlite store", "path", cfg.SQLitePath)

	default:
		ctx, cancel := config.WithTimeout(10 * time.Second)
		pool, err := db.NewPool(ctx, cfg.DBURL)
		cancel()
		if err != nil {
			log.Error("db connect failed", "err", err)
			os.Exit(1)
		}
		defer pool.Close()

		if err := db.Migrate(context.Background(), pool); err != nil {
			log.Error("db migrate failed", "err", err)
			os.Exit(1)
		}

		users := postgres.NewUsersRepo(pool, prom)
		deps.Fish = postgres.NewFishRepo(pool, prom)
		deps.Users = users
		seeder = users
		deps.Checks["postgres"] = pool.Ping
	}

	seedCtx, seedCancel := config.WithTimeout(5 * time.Second)
	if err := db.EnsureSeedUser(seedCtx, seeder, cfg); err != nil {
		log.Error("seed user failed", "err", err)
	}
	seedCancel()

	if cfg.RedisAddr != "" {
		rc := cache.NewRedis(cache.RedisConfig{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
			TTL:      cfg.FishCacheTTL,
		})
		defer rc.Close()

		ctx, cancel := config.WithTimeout(2 * time.Second)
		if err := rc.Ping(ctx); err != nil {
			log.Warn("redis unreachable, list cache will miss until it recovers", "addr", cfg.RedisAddr, "err", err)
		}
		cancel()

		deps.Cache = rc
		deps.Checks["redis"] = rc.Ping
	} else {
		deps.Cache = cache.NewMemory(cfg.FishCacheTTL)
	}

	// set up routers with the log
	router := httpx.NewRouter(log, cfg, deps)

	// server set up
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Info("server starting", "port", cfg.Port, "env", cfg.Env, "store", cfg.Store)
		err := srv.ListenAndServe()

		if err != nil && err != http.ErrServerClosed {
			log.Error("server failed", "err", err)
			os.Exit(1)
		}
	}()

	// Graceful shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop
	log.Info("server shutting down")

	shutdownCh := make(chan struct{})

	go func() {
		defer close(shutdownCh)

		ctx, cancel := config.WithTimeout(10 * time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			log.Error("graceful shutdown failed", "err", err)
		}
	}()

	select {
	case <-shutdownCh:
		log.Info("shutdown complete")
	case <-time.After(12 * time.Second):
		log.Error("shutdown timed out")
	}
}
