// Package app wires the conversation engine to its stores and transports.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/jmoiron/sqlx"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/m3rciful/leadbot/core/ai"
	"github.com/m3rciful/leadbot/core/config"
	"github.com/m3rciful/leadbot/core/flow"
	"github.com/m3rciful/leadbot/core/httpapi"
	"github.com/m3rciful/leadbot/core/lead"
	"github.com/m3rciful/leadbot/core/leadstore"
	"github.com/m3rciful/leadbot/core/logger"
	"github.com/m3rciful/leadbot/core/metrics"
	"github.com/m3rciful/leadbot/core/netutil"
	"github.com/m3rciful/leadbot/core/sender"
	"github.com/m3rciful/leadbot/core/session"
	"github.com/m3rciful/leadbot/core/telegram"
	"github.com/m3rciful/leadbot/core/telegram/router"
	"github.com/m3rciful/leadbot/core/whatsapp"
)

// App holds the wired components. Telegram is nil when the bot runs in off mode.
type App struct {
	Engine     *flow.Engine
	Leads      lead.Store
	Metrics    *metrics.Collector
	Dispatcher *sender.Dispatcher
	HTTP       *http.Server
	Telegram   *telegram.RunOptions
}

// Deps carries overridable collaborators; zero values select the defaults.
type Deps struct {
	DB        *sqlx.DB
	Responder flow.Responder
	Registry  *prometheus.Registry
}

// Build wires everything described by cfg.
func Build(ctx context.Context, cfg *config.Config, deps Deps) (*App, error) {
	if cfg == nil {
		return nil, errors.New("app: nil config")
	}

	store, err := leadstore.Open(cfg.Leads, deps.DB)
	if err != nil {
		return nil, err
	}

	reg := deps.Registry
	if reg == nil {
		reg = prometheus.NewRegistry()
		reg.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
	}
	collector := metrics.NewCollector(reg)

	responder := deps.Responder
	if responder == nil {
		responder, err = ai.New(ctx, cfg.AI)
		if err != nil {
			return nil, fmt.Errorf("app: fallback responder: %w", err)
		}
	}

	engine, err := flow.New(flow.Options{
		Sessions:            session.NewMemoryStore(),
		Leads:               store,
		Responder:           responder,
		Metrics:             collector,
		CollaboratorTimeout: cfg.Flow.CollaboratorTimeout(),
	})
	if err != nil {
		return nil, err
	}

	dispatcher := sender.NewDispatcher(sender.Options{OnResult: collector.Outbound})

	routerDeps := httpapi.RouterDeps{Leads: store}
	if !cfg.HTTP.MetricsDisabled {
		routerDeps.Metrics = metrics.Handler(reg)
	}
	if cfg.WhatsApp.Enabled {
		client := whatsapp.NewClient(cfg.WhatsApp, netutil.BuildHTTPClient(netutil.ClientOptions{}))
		routerDeps.WhatsApp = whatsapp.NewHandler(whatsapp.Options{
			Conversation: engine,
			Sender:       client,
			Dispatcher:   dispatcher,
			VerifyToken:  cfg.WhatsApp.VerifyToken,
			AppSecret:    cfg.WhatsApp.AppSecret,
		}).Routes()
	}

	a := &App{
		Engine:     engine,
		Leads:      store,
		Metrics:    collector,
		Dispatcher: dispatcher,
		HTTP:       httpapi.NewServer(cfg.HTTP, httpapi.NewRouter(routerDeps)),
	}

	if cfg.TelegramEnabled() {
		a.Telegram = telegramOptions(cfg, engine, collector, dispatcher)
	}

	logger.Info(ctx, "app", "wired",
		slog.String("leads_backend", cfg.Leads.Backend),
		slog.Bool("telegram", a.Telegram != nil),
		slog.Bool("whatsapp", cfg.WhatsApp.Enabled),
		slog.Bool("ai", cfg.AI.Enabled()),
	)
	return a, nil
}

func telegramOptions(cfg *config.Config, engine *flow.Engine, collector *metrics.Collector, dispatcher *sender.Dispatcher) *telegram.RunOptions {
	reg := telegram.NewRegistry()
	router.RegisterConversationCommands(reg, engine)

	routes := router.CommandRoutes(reg)
	routes = append(routes, router.TextRoutes(engine)...)

	return &telegram.RunOptions{
		Config:     cfg,
		Registry:   reg,
		Dispatcher: dispatcher,
		Middlewares: telegram.DefaultMiddlewares(cfg, telegram.MiddlewareOptions{
			RateLimited: collector.RateLimited,
			Updates:     collector,
		}),
		Routes: routes,
	}
}

// Close stops the outbound dispatcher after pending replies are sent.
func (a *App) Close() {
	if a == nil || a.Dispatcher == nil {
		return
	}
	a.Dispatcher.Close()
	logger.Info(context.Background(), "app", "dispatcher.closed",
		slog.Uint64("failed_jobs", a.Dispatcher.ErrorCount()),
	)
}
