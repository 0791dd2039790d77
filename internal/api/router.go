package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/clinicdesk/vaccine-scheduler/internal/account"
	"github.com/clinicdesk/vaccine-scheduler/internal/scheduling"
	"github.com/clinicdesk/vaccine-scheduler/internal/session"
)

type RouterConfig struct {
	Accounts  *account.Service
	Sessions  session.Store
	Scheduler *scheduling.Service
	PgPool    *pgxpool.Pool // nil in memory mode
	Redis     *redis.Client // nil in memory mode
	Env       string
	Version   string
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(RequestIDMiddleware)
	r.Use(LoggingMiddleware)

	health := NewHealthHandler(cfg.PgPool, cfg.Redis, cfg.Env, cfg.Version)
	r.Get("/health/live", health.Liveness)
	r.Get("/health/ready", health.Readiness)

	r.Post("/accounts", registerHandler(cfg.Accounts))
	r.Post("/sessions", loginHandler(cfg.Accounts, cfg.Sessions))

	r.Group(func(r chi.Router) {
		r.Use(SessionMiddleware(cfg.Sessions))

		r.Delete("/sessions", logoutHandler(cfg.Sessions))

		r.Get("/schedule", scheduleHandler(cfg.Scheduler))
		r.Post("/appointments", bookHandler(cfg.Scheduler))
		r.Get("/appointments", listAppointmentsHandler(cfg.Scheduler))
		r.Delete("/appointments/{id}", cancelHandler(cfg.Scheduler))
		r.Post("/availabilities", uploadAvailabilityHandler(cfg.Scheduler))
		r.Post("/vaccines/{name}/doses", addDosesHandler(cfg.Scheduler))
	})

	return r
}
