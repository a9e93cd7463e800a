package config

import (
	"encoding/json"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all configuration for the opportunity client.
type Config struct {
	Backend   BackendConfig   `json:"backend"`
	Stream    StreamConfig    `json:"stream"`
	View      ViewConfig      `json:"view"`
	Pollers   PollersConfig   `json:"pollers"`
	Console   ConsoleConfig   `json:"console"`
	Dashboard DashboardConfig `json:"dashboard"`
}

// BackendConfig points at the lending-arbitrage API server.
type BackendConfig struct {
	BaseURL        string        `json:"base_url"`
	WebSocketURL   string        `json:"websocket_url"`
	RequestTimeout time.Duration `json:"request_timeout"`
}

// StreamConfig controls the live feed connection and its recovery behavior.
type StreamConfig struct {
	PingInterval     time.Duration `json:"ping_interval"`
	StartupGrace     time.Duration `json:"startup_grace"`
	ReconnectMin     time.Duration `json:"reconnect_min"`
	ReconnectMax     time.Duration `json:"reconnect_max"`
	ReconnectFactor  float64       `json:"reconnect_factor"`
	ReconnectRetries int           `json:"reconnect_retries"`
}

// ViewConfig seeds the initial filter and sort state.
type ViewConfig struct {
	Source       string  `json:"source"`
	MinNetAPR    float64 `json:"min_net_apr"`
	Availability string  `json:"availability"`
	LoanSize     float64 `json:"loan_size"`
	SortColumn   string  `json:"sort_column"`
	SortAsc      bool    `json:"sort_asc"`
}

// PollersConfig sets the auxiliary status poll intervals.
type PollersConfig struct {
	CollectorInterval time.Duration `json:"collector_interval"`
	BotInterval       time.Duration `json:"bot_interval"`
	SessionInterval   time.Duration `json:"session_interval"`
	SessionStaleAfter time.Duration `json:"session_stale_after"`
}

// ConsoleConfig controls the terminal table renderer. HistoryToken, when
// set, appends that token's rate history sparkline to each render pass.
type ConsoleConfig struct {
	Enabled        bool          `json:"enabled"`
	RenderInterval time.Duration `json:"render_interval"`
	MaxRows        int           `json:"max_rows"`
	HistoryToken   string        `json:"history_token"`
	HistoryHours   int           `json:"history_hours"`
}

// DashboardConfig controls the local dashboard HTTP server.
type DashboardConfig struct {
	Enabled bool `json:"enabled"`
	Port    int  `json:"port"`
}

// Load reads configuration from environment variables with sensible defaults.
func Load() *Config {
	return Defaults()
}

// Defaults returns the default configuration, with env var overrides applied.
func Defaults() *Config {
	return &Config{
		Backend: BackendConfig{
			BaseURL:        envString("BACKEND_BASE_URL", "http://localhost:8001"),
			WebSocketURL:   envString("BACKEND_WS_URL", "ws://localhost:8001/ws/live"),
			RequestTimeout: envDuration("BACKEND_REQUEST_TIMEOUT", 30*time.Second),
		},

		Stream: StreamConfig{
			PingInterval:     envDuration("STREAM_PING_INTERVAL", 30*time.Second),
			StartupGrace:     envDuration("STREAM_STARTUP_GRACE", 3*time.Second),
			ReconnectMin:     envDuration("STREAM_RECONNECT_MIN", 1*time.Second),
			ReconnectMax:     envDuration("STREAM_RECONNECT_MAX", 30*time.Second),
			ReconnectFactor:  envFloat("STREAM_RECONNECT_FACTOR", 2.0),
			ReconnectRetries: envInt("STREAM_RECONNECT_RETRIES", 10),
		},

		View: ViewConfig{
			Source:       envString("VIEW_SOURCE", "all"),
			MinNetAPR:    envFloat("VIEW_MIN_NET_APR", 0),
			Availability: envString("VIEW_AVAILABILITY", "any"),
			LoanSize:     envFloat("VIEW_LOAN_SIZE", 1000),
			SortColumn:   envString("VIEW_SORT_COLUMN", "net_apr"),
			SortAsc:      envBoolDefault("VIEW_SORT_ASC", false),
		},

		Pollers: PollersConfig{
			CollectorInterval: envDuration("POLL_COLLECTOR_INTERVAL", 60*time.Second),
			BotInterval:       envDuration("POLL_BOT_INTERVAL", 5*time.Second),
			SessionInterval:   envDuration("POLL_SESSION_INTERVAL", 60*time.Second),
			SessionStaleAfter: envDuration("SESSION_STALE_AFTER", 12*time.Hour),
		},

		Console: ConsoleConfig{
			Enabled:        envBoolDefault("CONSOLE_ENABLED", true),
			RenderInterval: envDuration("CONSOLE_RENDER_INTERVAL", 15*time.Second),
			MaxRows:        envInt("CONSOLE_MAX_ROWS", 25),
			HistoryToken:   envString("CONSOLE_HISTORY_TOKEN", ""),
			HistoryHours:   envInt("CONSOLE_HISTORY_HOURS", 24),
		},

		Dashboard: DashboardConfig{
			Enabled: envBoolDefault("DASHBOARD_ENABLED", true),
			Port:    envInt("DASHBOARD_PORT", 8080),
		},
	}
}

// Clone returns a deep copy of the config.
func (c *Config) Clone() *Config {
	clone := *c
	return &clone
}

// ToJSON serializes the config for the dashboard config endpoint.
func (c *Config) ToJSON() ([]byte, error) {
	return json.MarshalIndent(c, "", "  ")
}

// Helper functions for parsing environment variables

func envString(key, defaultVal string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return defaultVal
}

func envInt(key string, defaultVal int) int {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return defaultVal
}

func envFloat(key string, defaultVal float64) float64 {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return defaultVal
}

func envDuration(key string, defaultVal time.Duration) time.Duration {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return defaultVal
}

func envBoolDefault(key string, defaultVal bool) bool {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return defaultVal
	}
	return strings.EqualFold(v, "true") || strings.EqualFold(v, "1") || strings.EqualFold(v, "yes")
}
