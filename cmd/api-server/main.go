package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/clinicdesk/vaccine-scheduler/internal/account"
	"github.com/clinicdesk/vaccine-scheduler/internal/api"
	"github.com/clinicdesk/vaccine-scheduler/internal/config"
	"github.com/clinicdesk/vaccine-scheduler/internal/db"
	redisclient "github.com/clinicdesk/vaccine-scheduler/internal/redis"
	"github.com/clinicdesk/vaccine-scheduler/internal/scheduling"
	"github.com/clinicdesk/vaccine-scheduler/internal/session"
)

const version = "0.1.0"

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.Println("api-server starting up")

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config load error: %v", err)
	}

	log.Printf("running in env=%s store=%s http_port=%s", cfg.Env, cfg.StoreKind, cfg.HTTPPort)

	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var (
		pgPool       *pgxpool.Pool
		rdb          *redis.Client
		schedStore   scheduling.Store
		accountStore account.Store
		sessionStore session.Store
	)

	if cfg.StoreKind == config.StorePostgres {
		pgCtx, cancelPg := context.WithTimeout(rootCtx, 10*time.Second)
		pgPool, err = db.ConnectPostgres(pgCtx, cfg.PostgresDSN)
		cancelPg()
		if err != nil {
			log.Fatalf("postgres connection error: %v", err)
		}
		defer pgPool.Close()
		log.Println("connected to Postgres")

		migrateCtx, cancelMigrate := context.WithTimeout(rootCtx, 30*time.Second)
		err = db.Migrate(migrateCtx, pgPool)
		cancelMigrate()
		if err != nil {
			log.Fatalf("migration error: %v", err)
		}

		rdb, err = redisclient.NewRedisClient(cfg.RedisAddr, cfg.RedisUsername, cfg.RedisPassword)
		if err != nil {
			log.Fatalf("redis connection error: %v", err)
		}
		defer func() {
			if err := rdb.Close(); err != nil {
				log.Printf("error closing redis: %v", err)
			}
		}()
		log.Println("connected to Redis")

		schedStore = scheduling.NewPgStore(pgPool)
		accountStore = account.NewPgStore(pgPool)
		sessionStore = session.NewRedisStore(rdb, cfg.SessionTTL)
	} else {
		log.Println("running with in-memory stores, state is not persisted")
		schedStore = scheduling.NewMemoryStore()
		accountStore = account.NewMemoryStore()
		sessionStore = session.NewMemoryStore(cfg.SessionTTL)
	}

	router := api.NewRouter(api.RouterConfig{
		Accounts:  account.NewService(accountStore),
		Sessions:  sessionStore,
		Scheduler: scheduling.NewService(schedStore, cfg.BookMaxRetries),
		PgPool:    pgPool,
		Redis:     rdb,
		Env:       cfg.Env,
		Version:   version,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Printf("listening on %s", srv.Addr)
		serveErr <- srv.ListenAndServe()
	}()

	select {
	case err := <-serveErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("server error: %v", err)
		}
	case <-rootCtx.Done():
		log.Println("shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("graceful shutdown failed: %v", err)
	}

	log.Println("api-server stopped")
}
