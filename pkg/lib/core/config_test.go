package core

import (
	"testing"
	"time"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig("KIOSKTEST", nil)
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}

	if got := cfg.GetStringOrDef("web.port", ""); got != ":8080" {
		t.Errorf("web.port = %q, want %q", got, ":8080")
	}

	if got := cfg.GetIntOrDef("changestream.max.retries", 0); got != 5 {
		t.Errorf("changestream.max.retries = %d, want 5", got)
	}

	if got := cfg.GetDurationOrDef("changestream.initial.delay", 0); got != 2*time.Second {
		t.Errorf("changestream.initial.delay = %v, want 2s", got)
	}
}

func TestLoadConfigEnvironmentOverrides(t *testing.T) {
	t.Setenv("KIOSKTEST_DB_MONGO_NAME", "kiosk_test")
	t.Setenv("KIOSKTEST_DEBUG_ENDPOINTS", "true")

	cfg, err := LoadConfig("KIOSKTEST", nil)
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}

	if got, _ := cfg.GetString("db.mongo.name"); got != "kiosk_test" {
		t.Errorf("db.mongo.name = %q, want %q", got, "kiosk_test")
	}

	if !cfg.GetBoolOrDef("debug.endpoints", false) {
		t.Error("debug.endpoints should be enabled by environment")
	}
}

func TestLoadConfigLogLevelFlag(t *testing.T) {
	cfg, err := LoadConfig("KIOSKTEST", []string{"--log-level", "debug"})
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}

	if got, _ := cfg.GetString("log.level"); got != "debug" {
		t.Errorf("log.level = %q, want %q", got, "debug")
	}
}

func TestConfigFallbacks(t *testing.T) {
	cfg := NewConfigFromMap(map[string]interface{}{
		"bad.duration": "soon",
		"empty":        "",
	})

	tests := []struct {
		name string
		got  interface{}
		want interface{}
	}{
		{name: "missingString", got: cfg.GetStringOrDef("missing", "def"), want: "def"},
		{name: "emptyString", got: cfg.GetStringOrDef("empty", "def"), want: "def"},
		{name: "missingInt", got: cfg.GetIntOrDef("missing", 7), want: 7},
		{name: "missingBool", got: cfg.GetBoolOrDef("missing", true), want: true},
		{name: "badDuration", got: cfg.GetDurationOrDef("bad.duration", time.Minute), want: time.Minute},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.want {
				t.Errorf("got %v, want %v", tt.got, tt.want)
			}
		})
	}
}

func TestNilConfig(t *testing.T) {
	var cfg *Config
	if _, ok := cfg.GetString("anything"); ok {
		t.Error("nil config should not report keys")
	}
	if got := cfg.GetStringOrDef("anything", "x"); got != "x" {
		t.Errorf("GetStringOrDef() = %q, want %q", got, "x")
	}
}
