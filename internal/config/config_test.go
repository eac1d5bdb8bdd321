package config

import (
	"strings"
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	for _, key := range []string{"PORT", "FILES_DIR", "APP_TIMEZONE", "REFRESH_INTERVAL", "SYMBOLS", "PRICE_PRECISION", "APP_TITLE"} {
		t.Setenv(key, "")
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("port = %d", cfg.Server.Port)
	}
	if !strings.HasSuffix(cfg.Terminal.FilesDir, "/MQL4/Files") {
		t.Errorf("files dir = %q", cfg.Terminal.FilesDir)
	}
	if cfg.Dashboard.Location.String() != "Europe/Warsaw" {
		t.Errorf("location = %s", cfg.Dashboard.Location)
	}
	if cfg.Dashboard.RefreshInterval != time.Second {
		t.Errorf("refresh = %s", cfg.Dashboard.RefreshInterval)
	}
	if cfg.Dashboard.Precisions["EURUSD"] != 5 || cfg.Dashboard.Precisions["US100.f"] != 2 {
		t.Errorf("precisions = %v", cfg.Dashboard.Precisions)
	}
	if len(cfg.Dashboard.Symbols) != 2 || cfg.Dashboard.Title != "watchdog" {
		t.Errorf("cfg = %+v", cfg)
	}
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("FILES_DIR", "/tmp/files")
	t.Setenv("APP_TIMEZONE", "UTC")
	t.Setenv("REFRESH_INTERVAL", "2500ms")
	t.Setenv("SYMBOLS", "EURUSD, XAUUSD ,")
	t.Setenv("PRICE_PRECISION", "XAUUSD:3")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Port != 9090 || cfg.Terminal.FilesDir != "/tmp/files" {
		t.Errorf("server/terminal = %+v %+v", cfg.Server, cfg.Terminal)
	}
	if cfg.Dashboard.RefreshInterval != 2500*time.Millisecond {
		t.Errorf("refresh = %s", cfg.Dashboard.RefreshInterval)
	}
	if strings.Join(cfg.Dashboard.Symbols, ",") != "EURUSD,XAUUSD" {
		t.Errorf("symbols = %v", cfg.Dashboard.Symbols)
	}
	if cfg.Dashboard.Precisions["XAUUSD"] != 3 || len(cfg.Dashboard.Precisions) != 1 {
		t.Errorf("precisions = %v", cfg.Dashboard.Precisions)
	}
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		key, value, want string
	}{
		{"PORT", "70000", "PORT"},
		{"APP_TIMEZONE", "Mars/Olympus", "APP_TIMEZONE"},
		{"REFRESH_INTERVAL", "10ms", "REFRESH_INTERVAL"},
		{"MONITOR_INTERVAL", "100ms", "MONITOR_INTERVAL"},
		{"RATE_LIMIT_RPM", "-1", "RATE_LIMIT_RPM"},
		{"PRICE_PRECISION", "EURUSD", "PRICE_PRECISION"},
		{"PRICE_PRECISION", "EURUSD:x", "PRICE_PRECISION"},
	}
	for _, tt := range tests {
		t.Run(tt.key+"="+tt.value, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)
			_, err := Load()
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error = %v, want mention of %s", err, tt.want)
			}
		})
	}
}
