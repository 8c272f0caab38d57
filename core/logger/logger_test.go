package logger

import (
	"log/slog"
	"testing"

	coreconfig "github.com/m3rciful/leadbot/core/config"
)

func TestConfigSelectors(t *testing.T) {
	cfg := &coreconfig.Config{}
	if selectFormat(cfg) != formatJSON || selectLevel(cfg) != slog.LevelInfo {
		t.Fatalf("empty config should give JSON at info")
	}

	cfg.Logging.Profile = "Dev"
	cfg.Logging.Level = "WARNING"
	cfg.Logging.KeysOrder = "event, user_id,,status"
	if selectFormat(cfg) != formatKV {
		t.Fatalf("dev profile should default to kv")
	}
	if selectLevel(cfg) != slog.LevelWarn {
		t.Fatalf("level = %v", selectLevel(cfg))
	}
	order := selectKeyOrder(cfg)
	if len(order) != 3 || order[0] != "event" || order[2] != "status" {
		t.Fatalf("key order = %v", order)
	}

	cfg.Logging.Format = "json"
	cfg.Logging.KeysOrder = "default"
	if selectFormat(cfg) != formatJSON {
		t.Fatalf("explicit format must win over profile")
	}
	if len(selectKeyOrder(cfg)) != len(defaultKeyOrder) {
		t.Fatalf("default key order expected")
	}
}

func TestParseDebugSample(t *testing.T) {
	cases := map[string][2]int{
		"":     {1, 50},
		"off":  {0, 0},
		"1/10": {1, 10},
		"10%":  {10, 100},
		"junk": {1, 50},
	}
	for spec, want := range cases {
		cfg := &coreconfig.Config{}
		cfg.Logging.DebugSample = spec
		num, den := parseDebugSample(cfg)
		if num != want[0] || den != want[1] {
			t.Fatalf("parseDebugSample(%q) = %d/%d, want %d/%d", spec, num, den, want[0], want[1])
		}
	}
}
