package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"focusd/pkg/db"
	"focusd/pkg/presets"
)

const (
	sessionStartedSubject = "focus.sessions.started"
	sessionPausedSubject  = "focus.sessions.paused"
	sessionResumedSubject = "focus.sessions.resumed"
	sessionEndedSubject   = "focus.sessions.ended"
	timerTickSubject      = "focus.timer.tick"
)

// API wires dependencies and configuration for the HTTP handlers.
type API struct {
	store    *Store
	config   Config
	presets  presets.Presets
	metrics  *Collector
	registry *prometheus.Registry
	starts   *startLimiter
	chat     ChatNotifier
	log      zerolog.Logger
}

// New initialises the API layer with defaults applied to the provided
// configuration.
func New(store *Store, cfg Config, log zerolog.Logger) (*API, error) {
	if store == nil {
		return nil, errors.New("store is required")
	}
	if store.ORM == nil {
		return nil, errors.New("store ORM is required")
	}

	p, err := presets.Load(cfg.PresetsPath)
	if err != nil {
		return nil, err
	}

	var chat ChatNotifier
	if cfg.ChatServiceURL != "" {
		chat = newHTTPChatNotifier(cfg.ChatServiceURL)
	}

	registry := prometheus.NewRegistry()

	return &API{
		store:    store,
		config:   cfg,
		presets:  p,
		metrics:  NewCollector(registry),
		registry: registry,
		starts:   newStartLimiter(cfg.StartRatePerMin),
		chat:     chat,
		log:      log,
	}, nil
}

// Routes constructs the chi router containing all API endpoints.
func (a *API) Routes() (http.Handler, error) {
	if a == nil {
		return nil, errors.New("nil api")
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	allowed := a.config.AllowedOrigins
	if len(allowed) == 0 {
		allowed = []string{"*"}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowed,
		AllowedMethods:   []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", deviceIDHeader},
		AllowCredentials: true,
		MaxAge:           int((10 * time.Minute).Seconds()),
	}))

	globalRate := a.config.GlobalRatePerMin
	if globalRate <= 0 {
		globalRate = 300
	}
	r.Use(httprate.Limit(globalRate, time.Minute))

	r.Get("/healthz", a.handleHealth)
	r.Method("GET", "/metrics", promhttp.HandlerFor(a.registry, promhttp.HandlerOpts{}))

	r.Route("/v1", func(r chi.Router) {
		// The presence stream outlives the request timeout, so it sits
		// outside the timeout middleware.
		r.Group(func(r chi.Router) {
			r.Use(a.withIdentity)
			r.Get("/presence/stream", a.handlePresenceStream)
		})

		r.Group(func(r chi.Router) {
			r.Use(middleware.Timeout(60 * time.Second))
			r.Use(a.withIdentity)

			r.With(a.limitStarts).Post("/sessions", a.handleStartSession)
			r.Patch("/sessions/{id}", a.handleUpdateSession)
			r.Delete("/sessions/{id}", a.handleDeleteSession)
			r.Get("/sessions/active", a.handleListActiveSessions)
			r.Get("/sessions/export", a.handleExportSessions)
			r.Get("/stats/summary", a.handleStatsSummary)
		})
	})

	return r, nil
}

// handleHealth reports readiness. A configured pool must answer a ping; when
// the API runs without one the process serving requests is the whole check.
func (a *API) handleHealth(w http.ResponseWriter, r *http.Request) {
	if a.store.DB != nil {
		if err := db.Ping(r.Context(), a.store.DB); err != nil {
			respondError(w, http.StatusServiceUnavailable, err)
			return
		}
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}
