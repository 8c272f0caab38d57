// Package httpapi exposes the REST endpoints, metrics and webhooks over chi.
package httpapi

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/m3rciful/leadbot/core/config"
	"github.com/m3rciful/leadbot/core/lead"
)

// RouterDeps collects what NewRouter mounts. Nil handlers are not mounted.
type RouterDeps struct {
	Leads lead.Store

	Metrics  http.Handler
	WhatsApp http.Handler
}

// NewRouter builds the HTTP API.
//
// Middleware order: RequestID → RealIP → logging → Recoverer.
func NewRouter(deps RouterDeps) http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(LoggingMiddleware)
	r.Use(chimw.Recoverer)

	r.Get("/health", health)

	if deps.Leads != nil {
		h := &leadsHandler{store: deps.Leads}
		r.Route("/leads", func(r chi.Router) {
			r.Get("/", h.list)
			r.Post("/", h.create)
		})
	}
	if deps.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", deps.Metrics)
	}
	if deps.WhatsApp != nil {
		r.Mount("/webhook/whatsapp", deps.WhatsApp)
	}
	return r
}

// NewServer wraps handler in an http.Server configured from cfg.
func NewServer(cfg config.HTTPConfig, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              cfg.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       time.Duration(cfg.ReadTimeoutMS) * time.Millisecond,
		WriteTimeout:      time.Duration(cfg.WriteTimeoutMS) * time.Millisecond,
	}
}

func health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type errorBody struct {
	Detail string `json:"detail"`
}

func writeError(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, errorBody{Detail: detail})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
