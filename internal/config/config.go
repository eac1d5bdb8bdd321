package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata"
)

// Default locations inside a wine-hosted terminal install
const (
	defaultTerminalDir = "/home/ubuntu/.wine/drive_c/Program Files (x86)/mForex Trader"
	defaultFilesDir    = defaultTerminalDir + "/MQL4/Files"
	defaultMQL4LogsDir = defaultTerminalDir + "/MQL4/Logs"
	defaultMainLogsDir = defaultTerminalDir + "/logs"
)

type Config struct {
	Server    ServerConfig
	Terminal  TerminalConfig
	Database  DatabaseConfig
	Dashboard DashboardConfig
}

type ServerConfig struct {
	Port         int
	RateLimitRPM int // per client and route, 0 disables
}

// TerminalConfig points at the directories shared with the terminal
type TerminalConfig struct {
	FilesDir    string
	MQL4LogsDir string
	MainLogsDir string
}

type DatabaseConfig struct {
	Path string
}

type DashboardConfig struct {
	Title           string
	Timezone        string
	Location        *time.Location
	Symbols         []string
	Precisions      map[string]int
	RefreshInterval time.Duration
	MonitorInterval time.Duration
}

// Load reads the configuration from the environment and validates it
func Load() (*Config, error) {
	precisions, err := parsePrecisions(getEnv("PRICE_PRECISION", "US100.f:2,EURUSD:5"))
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		Server: ServerConfig{
			Port:         getEnvAsInt("PORT", 8080),
			RateLimitRPM: getEnvAsInt("RATE_LIMIT_RPM", 60),
		},
		Terminal: TerminalConfig{
			FilesDir:    getEnv("FILES_DIR", defaultFilesDir),
			MQL4LogsDir: getEnv("MQL4_LOGS_DIR", defaultMQL4LogsDir),
			MainLogsDir: getEnv("MAIN_LOGS_DIR", defaultMainLogsDir),
		},
		Database: DatabaseConfig{
			Path: getEnv("DATABASE_PATH", "watchdog.db"),
		},
		Dashboard: DashboardConfig{
			Title:           getEnv("APP_TITLE", "watchdog"),
			Timezone:        getEnv("APP_TIMEZONE", "Europe/Warsaw"),
			Symbols:         getEnvAsList("SYMBOLS", []string{"EURUSD", "US100.f"}),
			Precisions:      precisions,
			RefreshInterval: getEnvAsDuration("REFRESH_INTERVAL", time.Second),
			MonitorInterval: getEnvAsDuration("MONITOR_INTERVAL", 5*time.Second),
		},
	}

	loc, err := time.LoadLocation(cfg.Dashboard.Timezone)
	if err != nil {
		return nil, fmt.Errorf("APP_TIMEZONE %q is not a known time zone: %w", cfg.Dashboard.Timezone, err)
	}
	cfg.Dashboard.Location = loc

	if err := cfg.validateRanges(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) validateRanges() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("PORT must be between 1 and 65535, got %d", c.Server.Port)
	}

	if c.Server.RateLimitRPM < 0 {
		return fmt.Errorf("RATE_LIMIT_RPM cannot be negative, got %d", c.Server.RateLimitRPM)
	}

	if c.Terminal.FilesDir == "" {
		return fmt.Errorf("FILES_DIR is required")
	}

	if c.Dashboard.RefreshInterval < 100*time.Millisecond {
		return fmt.Errorf("REFRESH_INTERVAL must be at least 100ms, got %s", c.Dashboard.RefreshInterval)
	}

	if c.Dashboard.MonitorInterval < time.Second {
		return fmt.Errorf("MONITOR_INTERVAL must be at least 1s, got %s", c.Dashboard.MonitorInterval)
	}

	if len(c.Dashboard.Symbols) == 0 {
		return fmt.Errorf("SYMBOLS must list at least one symbol")
	}

	return nil
}

// parsePrecisions reads "SYMBOL:places" pairs separated by commas
func parsePrecisions(v string) (map[string]int, error) {
	out := make(map[string]int)
	for _, pair := range strings.Split(v, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		symbol, places, ok := strings.Cut(pair, ":")
		if !ok || strings.TrimSpace(symbol) == "" {
			return nil, fmt.Errorf("PRICE_PRECISION entry %q must be SYMBOL:places", pair)
		}
		n, err := strconv.Atoi(strings.TrimSpace(places))
		if err != nil || n < 0 || n > 10 {
			return nil, fmt.Errorf("PRICE_PRECISION entry %q must use 0 to 10 places", pair)
		}
		out[strings.TrimSpace(symbol)] = n
	}
	return out, nil
}

func getEnv(key, defaultVal string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultVal
}

func getEnvAsInt(key string, defaultVal int) int {
	valueStr := os.Getenv(key)
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultVal
}

func getEnvAsDuration(key string, defaultVal time.Duration) time.Duration {
	valueStr := os.Getenv(key)
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	return defaultVal
}

func getEnvAsList(key string, defaultVal []string) []string {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultVal
	}
	var out []string
	for _, item := range strings.Split(valueStr, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
