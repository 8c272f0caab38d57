package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// TelegramConfig holds Telegram bot settings.
type TelegramConfig struct {
	Token   string `yaml:"token" envconfig:"TELEGRAM_BOT_TOKEN"`
	RunMode string `yaml:"run_mode" envconfig:"TELEGRAM_RUN_MODE"`
	// LongPollTimeoutSeconds defines long polling timeout; 0 -> default
	LongPollTimeoutSeconds int `yaml:"longpoll_timeout_seconds" envconfig:"TELEGRAM_LONGPOLL_TIMEOUT_SECONDS"`
}

// WebhookConfig specifies Telegram webhook settings.
type WebhookConfig struct {
	URL         string `yaml:"url" envconfig:"WEBHOOK_URL"`
	Listen      string `yaml:"listen" envconfig:"WEBHOOK_LISTEN"`
	Port        int    `yaml:"port" envconfig:"WEBHOOK_PORT"`
	SecretToken string `yaml:"secret_token" envconfig:"WEBHOOK_SECRET_TOKEN"`
}

// HTTPConfig configures the HTTP API server.
type HTTPConfig struct {
	Addr            string `yaml:"addr" envconfig:"HTTP_ADDR"`
	ReadTimeoutMS   int    `yaml:"read_timeout_ms" envconfig:"HTTP_READ_TIMEOUT_MS"`
	WriteTimeoutMS  int    `yaml:"write_timeout_ms" envconfig:"HTTP_WRITE_TIMEOUT_MS"`
	MetricsDisabled bool   `yaml:"metrics_disabled" envconfig:"HTTP_METRICS_DISABLED"`
}

// WhatsAppConfig configures the WhatsApp Cloud API webhook and client.
type WhatsAppConfig struct {
	Enabled       bool   `yaml:"enabled" envconfig:"WHATSAPP_ENABLED"`
	VerifyToken   string `yaml:"verify_token" envconfig:"WHATSAPP_VERIFY_TOKEN"`
	AppSecret     string `yaml:"app_secret" envconfig:"WHATSAPP_APP_SECRET"`
	AccessToken   string `yaml:"access_token" envconfig:"WHATSAPP_ACCESS_TOKEN"`
	PhoneNumberID string `yaml:"phone_number_id" envconfig:"WHATSAPP_PHONE_NUMBER_ID"`
	APIBase       string `yaml:"api_base" envconfig:"WHATSAPP_API_BASE"`
	APIVersion    string `yaml:"api_version" envconfig:"WHATSAPP_API_VERSION"`
}

// AIConfig configures the fallback assistant backed by a Volcengine Ark chat model.
// AI is disabled when neither APIKey nor the AccessKey/SecretKey pair is set.
type AIConfig struct {
	APIKey       string  `yaml:"api_key" envconfig:"ARK_API_KEY"`
	AccessKey    string  `yaml:"access_key" envconfig:"ARK_ACCESS_KEY"`
	SecretKey    string  `yaml:"secret_key" envconfig:"ARK_SECRET_KEY"`
	Model        string  `yaml:"model" envconfig:"AI_MODEL"`
	BaseURL      string  `yaml:"base_url" envconfig:"ARK_BASE_URL"`
	Region       string  `yaml:"region" envconfig:"ARK_REGION"`
	Temperature  float32 `yaml:"temperature" envconfig:"AI_TEMPERATURE"`
	MaxTokens    int     `yaml:"max_tokens" envconfig:"AI_MAX_TOKENS"`
	HistoryTurns int     `yaml:"history_turns" envconfig:"AI_HISTORY_TURNS"`
	SystemPrompt string  `yaml:"system_prompt" envconfig:"AI_SYSTEM_PROMPT"`
}

// Enabled reports whether credentials for the chat model are present.
func (c AIConfig) Enabled() bool {
	if strings.TrimSpace(c.APIKey) != "" {
		return true
	}
	return strings.TrimSpace(c.AccessKey) != "" && strings.TrimSpace(c.SecretKey) != ""
}

// LeadsConfig selects where committed leads are stored.
type LeadsConfig struct {
	Backend string `yaml:"backend" envconfig:"LEADS_BACKEND"`
	CSVPath string `yaml:"csv_path" envconfig:"LEADS_CSV_PATH"`
}

// DatabaseConfig holds Postgres connection settings.
type DatabaseConfig struct {
	Host           string `yaml:"host" envconfig:"DB_HOST"`
	Port           string `yaml:"port" envconfig:"DB_PORT"`
	User           string `yaml:"user" envconfig:"DB_USER"`
	Password       string `yaml:"password" envconfig:"DB_PASSWORD"`
	Name           string `yaml:"name" envconfig:"DB_NAME"`
	SSLMode        string `yaml:"sslmode" envconfig:"DB_SSLMODE"`
	MaxConnections int    `yaml:"max_connections" envconfig:"DB_MAX_CONNECTIONS"`
	MigrationsDir  string `yaml:"migrations_dir" envconfig:"DB_MIGRATIONS_DIR"`
}

// FlowConfig tunes the conversation engine.
type FlowConfig struct {
	CollaboratorTimeoutMS int `yaml:"collaborator_timeout_ms" envconfig:"FLOW_COLLABORATOR_TIMEOUT_MS"`
}

// CollaboratorTimeout returns the configured timeout as a duration.
func (c FlowConfig) CollaboratorTimeout() time.Duration {
	return time.Duration(c.CollaboratorTimeoutMS) * time.Millisecond
}

// LoggingConfig defines logging related configuration.
type LoggingConfig struct {
	Level       string `yaml:"level" envconfig:"LOG_LEVEL"`
	Format      string `yaml:"format" envconfig:"LOG_FORMAT"`
	KeysOrder   string `yaml:"keys_order"`
	DebugSample string `yaml:"debug_sample"`
	Stacks      string `yaml:"stacks"`
	Dir         string `yaml:"dir" envconfig:"LOG_DIR"`
	BotFile     string `yaml:"bot_file"`
	ErrorsFile  string `yaml:"errors_file"`
	// Profile indicates environment profile such as "debug" or "prod".
	Profile string `yaml:"profile" envconfig:"LOG_PROFILE"`
}

const (
	// RunModeWebhook selects webhook mode for Telegram updates.
	RunModeWebhook = "webhook"
	// RunModeLongpoll selects long-polling mode for Telegram updates.
	RunModeLongpoll = "longpoll"
	// RunModeOff disables the Telegram transport.
	RunModeOff = "off"
)

const (
	// UpdateCallback identifies callback updates for rate limit exclusions.
	UpdateCallback = "callback"
	// UpdateMessage identifies message updates for rate limit exclusions.
	UpdateMessage = "message"
	// UpdateInlineQuery identifies inline query updates for rate limit exclusions.
	UpdateInlineQuery = "inline_query"
)

const (
	BackendMemory   = "memory"
	BackendCSV      = "csv"
	BackendPostgres = "postgres"
)

const (
	defaultHTTPAddr            = ":8080"
	defaultCollaboratorTimeout = 8000
	maxCollaboratorTimeout     = 30000
	defaultHistoryTurns        = 8
	defaultMaxTokens           = 250
	defaultTemperature         = 0.3
	defaultGraphBase           = "https://graph.facebook.com"
	defaultGraphVersion        = "v19.0"
	defaultRateInterval        = 1000
	defaultRateBurst           = 3
)

// RateLimitConfig holds settings for per-user rate limiting of Telegram updates.
// ExcludeUpdates accepts update types to bypass limiting:
// - "callback": Telegram callback button presses
// - "message": standard text messages
// - "inline_query": inline query updates
type RateLimitConfig struct {
	IntervalMS     int      `yaml:"interval_ms" envconfig:"RATE_LIMIT_INTERVAL_MS"`
	Burst          int      `yaml:"burst" envconfig:"RATE_LIMIT_BURST"`
	ExcludeUpdates []string `yaml:"exclude_updates" envconfig:"RATE_LIMIT_EXCLUDE_UPDATES"`
}

// Config aggregates the service configuration.
type Config struct {
	Telegram  TelegramConfig  `yaml:"telegram"`
	Webhook   WebhookConfig   `yaml:"webhook"`
	HTTP      HTTPConfig      `yaml:"http"`
	WhatsApp  WhatsAppConfig  `yaml:"whatsapp"`
	AI        AIConfig        `yaml:"ai"`
	Leads     LeadsConfig     `yaml:"leads"`
	Database  DatabaseConfig  `yaml:"database"`
	Flow      FlowConfig      `yaml:"flow"`
	Logging   LoggingConfig   `yaml:"logging"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
}

// TelegramEnabled reports whether the Telegram transport should run.
func (c *Config) TelegramEnabled() bool {
	return c != nil && c.Telegram.RunMode != RunModeOff
}

// Load reads configuration from a YAML file and environment variables.
// A missing file is tolerated so the service can be configured from the environment alone.
func Load(path string) (*Config, error) {
	var cfg Config

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse YAML config: %w", err)
		}
	case os.IsNotExist(err):
	default:
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process env: %w", err)
	}

	if err := Normalize(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Normalize validates the configuration and fills defaults.
func Normalize(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("nil config")
	}
	if err := normalizeTelegram(cfg); err != nil {
		return err
	}
	if err := normalizeWhatsApp(&cfg.WhatsApp); err != nil {
		return err
	}
	if !cfg.TelegramEnabled() && !cfg.WhatsApp.Enabled {
		return fmt.Errorf("no transport enabled: set telegram.run_mode or whatsapp.enabled")
	}
	if err := normalizeLeads(cfg); err != nil {
		return err
	}
	normalizeAI(&cfg.AI)

	if strings.TrimSpace(cfg.HTTP.Addr) == "" {
		cfg.HTTP.Addr = defaultHTTPAddr
	}
	if cfg.HTTP.ReadTimeoutMS < 0 || cfg.HTTP.WriteTimeoutMS < 0 {
		return fmt.Errorf("http timeouts must be >= 0")
	}

	switch t := cfg.Flow.CollaboratorTimeoutMS; {
	case t == 0:
		cfg.Flow.CollaboratorTimeoutMS = defaultCollaboratorTimeout
	case t < 0 || t > maxCollaboratorTimeout:
		return fmt.Errorf("flow.collaborator_timeout_ms must be within 1..%d, got %d", maxCollaboratorTimeout, t)
	}

	return normalizeRateLimit(&cfg.RateLimit)
}

func normalizeTelegram(cfg *Config) error {
	rm := strings.ToLower(strings.TrimSpace(cfg.Telegram.RunMode))
	if rm == "" {
		rm = RunModeLongpoll
	}
	if rm == "polling" { // accept alias
		rm = RunModeLongpoll
	}
	switch rm {
	case RunModeOff:
	case RunModeWebhook:
		if strings.TrimSpace(cfg.Webhook.URL) == "" {
			return fmt.Errorf("webhook.url is required when telegram.run_mode is 'webhook'")
		}
		if strings.TrimSpace(cfg.Webhook.Listen) == "" {
			return fmt.Errorf("webhook.listen is required when telegram.run_mode is 'webhook'")
		}
		if cfg.Webhook.Port <= 0 {
			return fmt.Errorf("webhook.port must be > 0 when telegram.run_mode is 'webhook'")
		}
	case RunModeLongpoll:
		if cfg.Telegram.LongPollTimeoutSeconds < 0 {
			return fmt.Errorf("telegram.longpoll_timeout_seconds must be >= 0")
		}
	default:
		return fmt.Errorf("invalid telegram.run_mode %q; allowed: webhook, longpoll, off", cfg.Telegram.RunMode)
	}
	cfg.Telegram.RunMode = rm
	if rm != RunModeOff && strings.TrimSpace(cfg.Telegram.Token) == "" {
		return fmt.Errorf("telegram token is required")
	}
	return nil
}

func normalizeWhatsApp(wa *WhatsAppConfig) error {
	if strings.TrimSpace(wa.APIBase) == "" {
		wa.APIBase = defaultGraphBase
	}
	wa.APIBase = strings.TrimRight(wa.APIBase, "/")
	if strings.TrimSpace(wa.APIVersion) == "" {
		wa.APIVersion = defaultGraphVersion
	}
	if !wa.Enabled {
		return nil
	}
	if strings.TrimSpace(wa.VerifyToken) == "" {
		return fmt.Errorf("whatsapp.verify_token is required when whatsapp is enabled")
	}
	if strings.TrimSpace(wa.AccessToken) == "" {
		return fmt.Errorf("whatsapp.access_token is required when whatsapp is enabled")
	}
	if strings.TrimSpace(wa.PhoneNumberID) == "" {
		return fmt.Errorf("whatsapp.phone_number_id is required when whatsapp is enabled")
	}
	return nil
}

func normalizeLeads(cfg *Config) error {
	backend := strings.ToLower(strings.TrimSpace(cfg.Leads.Backend))
	if backend == "" {
		backend = BackendMemory
	}
	switch backend {
	case BackendMemory:
	case BackendCSV:
		if strings.TrimSpace(cfg.Leads.CSVPath) == "" {
			return fmt.Errorf("leads.csv_path is required for the csv backend")
		}
	case BackendPostgres:
		db := &cfg.Database
		if strings.TrimSpace(db.Host) == "" || strings.TrimSpace(db.Name) == "" {
			return fmt.Errorf("database.host and database.name are required for the postgres backend")
		}
		if db.Port == "" {
			db.Port = "5432"
		}
		if db.SSLMode == "" {
			db.SSLMode = "disable"
		}
		if db.MaxConnections <= 0 {
			db.MaxConnections = 5
		}
		if db.MigrationsDir == "" {
			db.MigrationsDir = "migrations"
		}
	default:
		return fmt.Errorf("invalid leads.backend %q; allowed: memory, csv, postgres", cfg.Leads.Backend)
	}
	cfg.Leads.Backend = backend
	return nil
}

func normalizeAI(ai *AIConfig) {
	if ai.HistoryTurns <= 0 {
		ai.HistoryTurns = defaultHistoryTurns
	}
	if ai.MaxTokens <= 0 {
		ai.MaxTokens = defaultMaxTokens
	}
	if ai.Temperature <= 0 {
		ai.Temperature = defaultTemperature
	}
}

func normalizeRateLimit(rl *RateLimitConfig) error {
	if rl.IntervalMS < 0 || rl.Burst < 0 {
		return fmt.Errorf("rate_limit.interval_ms and rate_limit.burst must be >= 0")
	}
	if rl.IntervalMS == 0 {
		rl.IntervalMS = defaultRateInterval
	}
	if rl.Burst == 0 {
		rl.Burst = defaultRateBurst
	}

	allowed := map[string]struct{}{
		UpdateCallback:    {},
		UpdateMessage:     {},
		UpdateInlineQuery: {},
	}
	for i, v := range rl.ExcludeUpdates {
		key := strings.ToLower(strings.TrimSpace(v))
		if key == "" {
			continue
		}
		if _, ok := allowed[key]; !ok {
			return fmt.Errorf("invalid rate_limit.exclude_updates value %q; allowed: callback, message, inline_query", v)
		}
		rl.ExcludeUpdates[i] = key
	}
	return nil
}
