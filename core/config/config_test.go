package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func validConfig() Config {
	return Config{
		Telegram: TelegramConfig{Token: "123:abc"},
	}
}

func TestNormalizeDefaults(t *testing.T) {
	cfg := validConfig()
	if err := Normalize(&cfg); err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	if cfg.Telegram.RunMode != RunModeLongpoll {
		t.Fatalf("run mode = %q", cfg.Telegram.RunMode)
	}
	if cfg.Leads.Backend != BackendMemory {
		t.Fatalf("backend = %q", cfg.Leads.Backend)
	}
	if cfg.Flow.CollaboratorTimeout() != 8*time.Second {
		t.Fatalf("collaborator timeout = %v", cfg.Flow.CollaboratorTimeout())
	}
	if cfg.HTTP.Addr != ":8080" {
		t.Fatalf("http addr = %q", cfg.HTTP.Addr)
	}
	if cfg.AI.HistoryTurns != 8 || cfg.AI.MaxTokens != 250 {
		t.Fatalf("ai defaults = %+v", cfg.AI)
	}
	if cfg.WhatsApp.APIBase != "https://graph.facebook.com" || cfg.WhatsApp.APIVersion != "v19.0" {
		t.Fatalf("whatsapp defaults = %+v", cfg.WhatsApp)
	}
	if cfg.RateLimit.IntervalMS != 1000 || cfg.RateLimit.Burst != 3 {
		t.Fatalf("rate limit defaults = %+v", cfg.RateLimit)
	}
}

func TestNormalizeRunModes(t *testing.T) {
	cfg := validConfig()
	cfg.Telegram.RunMode = " Polling "
	if err := Normalize(&cfg); err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	if cfg.Telegram.RunMode != RunModeLongpoll {
		t.Fatalf("polling alias not mapped: %q", cfg.Telegram.RunMode)
	}

	cfg = validConfig()
	cfg.Telegram.RunMode = "carrier-pigeon"
	if err := Normalize(&cfg); err == nil {
		t.Fatalf("expected invalid run mode error")
	}

	cfg = validConfig()
	cfg.Telegram.RunMode = RunModeWebhook
	if err := Normalize(&cfg); err == nil || !strings.Contains(err.Error(), "webhook.url") {
		t.Fatalf("expected webhook.url error, got %v", err)
	}

	cfg = Config{Telegram: TelegramConfig{RunMode: RunModeLongpoll}}
	if err := Normalize(&cfg); err == nil || !strings.Contains(err.Error(), "token") {
		t.Fatalf("expected token error, got %v", err)
	}
}

func TestNormalizeTransports(t *testing.T) {
	cfg := Config{Telegram: TelegramConfig{RunMode: RunModeOff}}
	if err := Normalize(&cfg); err == nil || !strings.Contains(err.Error(), "no transport") {
		t.Fatalf("expected no transport error, got %v", err)
	}

	cfg = Config{
		Telegram: TelegramConfig{RunMode: "OFF"},
		WhatsApp: WhatsAppConfig{Enabled: true, VerifyToken: "v", AccessToken: "a"},
	}
	if err := Normalize(&cfg); err == nil || !strings.Contains(err.Error(), "phone_number_id") {
		t.Fatalf("expected phone_number_id error, got %v", err)
	}

	cfg.WhatsApp.PhoneNumberID = "1055"
	cfg.WhatsApp.APIBase = "https://graph.example.test/"
	if err := Normalize(&cfg); err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	if cfg.TelegramEnabled() {
		t.Fatalf("telegram should be disabled")
	}
	if cfg.WhatsApp.APIBase != "https://graph.example.test" {
		t.Fatalf("api base not trimmed: %q", cfg.WhatsApp.APIBase)
	}
}

func TestNormalizeLeadsBackend(t *testing.T) {
	cfg := validConfig()
	cfg.Leads.Backend = "csv"
	if err := Normalize(&cfg); err == nil {
		t.Fatalf("expected csv_path error")
	}

	cfg = validConfig()
	cfg.Leads.Backend = "Postgres"
	if err := Normalize(&cfg); err == nil {
		t.Fatalf("expected database error")
	}
	cfg.Database = DatabaseConfig{Host: "localhost", Name: "leads"}
	if err := Normalize(&cfg); err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	if cfg.Leads.Backend != BackendPostgres || cfg.Database.Port != "5432" || cfg.Database.MigrationsDir != "migrations" {
		t.Fatalf("postgres defaults = %+v / %+v", cfg.Leads, cfg.Database)
	}

	cfg = validConfig()
	cfg.Leads.Backend = "sheets"
	if err := Normalize(&cfg); err == nil {
		t.Fatalf("expected invalid backend error")
	}
}

func TestNormalizeCollaboratorTimeout(t *testing.T) {
	cfg := validConfig()
	cfg.Flow.CollaboratorTimeoutMS = 30001
	if err := Normalize(&cfg); err == nil {
		t.Fatalf("expected timeout bound error")
	}
	cfg = validConfig()
	cfg.Flow.CollaboratorTimeoutMS = 30000
	if err := Normalize(&cfg); err != nil {
		t.Fatalf("Normalize: %v", err)
	}
}

func TestNormalizeRateLimitExclusions(t *testing.T) {
	cfg := validConfig()
	cfg.RateLimit.ExcludeUpdates = []string{" Callback ", "", "inline_query"}
	if err := Normalize(&cfg); err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	if cfg.RateLimit.ExcludeUpdates[0] != UpdateCallback {
		t.Fatalf("exclusion not normalized: %q", cfg.RateLimit.ExcludeUpdates[0])
	}

	cfg = validConfig()
	cfg.RateLimit.ExcludeUpdates = []string{"photo"}
	if err := Normalize(&cfg); err == nil {
		t.Fatalf("expected invalid exclusion error")
	}
}

func TestAIEnabled(t *testing.T) {
	if (AIConfig{}).Enabled() {
		t.Fatalf("empty credentials should disable AI")
	}
	if !(AIConfig{APIKey: "k"}).Enabled() {
		t.Fatalf("api key should enable AI")
	}
	if (AIConfig{AccessKey: "ak"}).Enabled() {
		t.Fatalf("access key alone should not enable AI")
	}
	if !(AIConfig{AccessKey: "ak", SecretKey: "sk"}).Enabled() {
		t.Fatalf("ak/sk pair should enable AI")
	}
}

func TestLoadOverlaysEnvironment(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	yml := "telegram:\n  token: from-file\n  run_mode: longpoll\nleads:\n  backend: csv\n  csv_path: leads.csv\n"
	if err := os.WriteFile(path, []byte(yml), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("TELEGRAM_BOT_TOKEN", "from-env")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Telegram.Token != "from-env" {
		t.Fatalf("token = %q, want env override", cfg.Telegram.Token)
	}
	if cfg.Leads.Backend != BackendCSV || cfg.Leads.CSVPath != "leads.csv" {
		t.Fatalf("leads = %+v", cfg.Leads)
	}
}

func TestLoadMissingFileUsesEnvironment(t *testing.T) {
	t.Setenv("TELEGRAM_BOT_TOKEN", "env-only")
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Telegram.Token != "env-only" {
		t.Fatalf("token = %q", cfg.Telegram.Token)
	}
}

func TestLoadRejectsBadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("telegram: [unclosed"), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, err := Load(path); err == nil {
		t.Fatalf("expected parse error")
	}
}
