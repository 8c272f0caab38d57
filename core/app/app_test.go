package app

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/m3rciful/leadbot/core/ai"
	"github.com/m3rciful/leadbot/core/config"
)

func testConfig() *config.Config {
	cfg := &config.Config{}
	cfg.Telegram.RunMode = config.RunModeOff
	cfg.Leads.Backend = config.BackendMemory
	cfg.WhatsApp.Enabled = true
	cfg.WhatsApp.VerifyToken = "verify"
	cfg.WhatsApp.AccessToken = "token"
	cfg.WhatsApp.PhoneNumberID = "1"
	cfg.WhatsApp.APIBase = "http://127.0.0.1:1"
	cfg.WhatsApp.APIVersion = "v19.0"
	return cfg
}

func TestBuildWiresHTTP(t *testing.T) {
	a, err := Build(context.Background(), testConfig(), Deps{
		Responder: ai.Static("hola"),
		Registry:  prometheus.NewRegistry(),
	})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	defer a.Close()

	if a.Telegram != nil {
		t.Fatal("telegram must stay disabled in off mode")
	}

	h := a.HTTP.Handler
	for _, path := range []string{"/health", "/leads", "/metrics", "/webhook/whatsapp?hub.mode=subscribe&hub.verify_token=verify&hub.challenge=ok"} {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		if rec.Code != http.StatusOK {
			t.Fatalf("GET %s: status %d", path, rec.Code)
		}
	}

	if got := a.Engine.Handle(context.Background(), "whatsapp:1", "¿abrís hoy?"); got != "hola" {
		t.Fatalf("fallback not wired, got %q", got)
	}
	a.Engine.Handle(context.Background(), "whatsapp:1", "/start")

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if !strings.Contains(rec.Body.String(), "leadbot_fallback_replies_total 1") {
		t.Fatalf("fallback metric missing from exposition")
	}
}

func TestBuildTelegramOptions(t *testing.T) {
	cfg := testConfig()
	cfg.Telegram.RunMode = config.RunModeLongpoll
	cfg.Telegram.Token = "123:abc"

	a, err := Build(context.Background(), cfg, Deps{Responder: ai.Static("hola"), Registry: prometheus.NewRegistry()})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	defer a.Close()

	if a.Telegram == nil {
		t.Fatal("expected telegram run options")
	}
	if len(a.Telegram.Registry.Commands()) != 2 {
		t.Fatalf("expected /start and /cancel, got %d commands", len(a.Telegram.Registry.Commands()))
	}
	if len(a.Telegram.Routes) < 3 || a.Telegram.Dispatcher != a.Dispatcher {
		t.Fatalf("unexpected telegram options %+v", a.Telegram)
	}
}

func TestBuildRejectsPostgresWithoutDB(t *testing.T) {
	cfg := testConfig()
	cfg.Leads.Backend = config.BackendPostgres
	if _, err := Build(context.Background(), cfg, Deps{Responder: ai.Static("x"), Registry: prometheus.NewRegistry()}); err == nil {
		t.Fatal("expected error without a database handle")
	}
}
