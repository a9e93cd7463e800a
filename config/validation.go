package config

import (
	"fmt"
	"time"
)

// ValidationError represents a validation error for a specific field.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationResult holds the result of config validation.
type ValidationResult struct {
	Valid  bool              `json:"valid"`
	Errors []ValidationError `json:"errors,omitempty"`
}

// Validate checks the config for invalid values.
func (c *Config) Validate() ValidationResult {
	var errors []ValidationError

	errors = append(errors, validateBackend(&c.Backend)...)
	errors = append(errors, validateStream(&c.Stream)...)
	errors = append(errors, validateView(&c.View)...)
	errors = append(errors, validatePollers(&c.Pollers)...)
	errors = append(errors, validateConsole(&c.Console)...)
	errors = append(errors, validateDashboard(&c.Dashboard)...)

	return ValidationResult{
		Valid:  len(errors) == 0,
		Errors: errors,
	}
}

func validateBackend(b *BackendConfig) []ValidationError {
	var errors []ValidationError

	if b.BaseURL == "" {
		errors = append(errors, ValidationError{
			Field:   "backend.base_url",
			Message: "must not be empty",
		})
	}

	if b.WebSocketURL == "" {
		errors = append(errors, ValidationError{
			Field:   "backend.websocket_url",
			Message: "must not be empty",
		})
	}

	if b.RequestTimeout < 1*time.Second {
		errors = append(errors, ValidationError{
			Field:   "backend.request_timeout",
			Message: "must be at least 1 second",
		})
	}

	return errors
}

func validateStream(s *StreamConfig) []ValidationError {
	var errors []ValidationError

	if s.PingInterval < 1*time.Second {
		errors = append(errors, ValidationError{
			Field:   "stream.ping_interval",
			Message: "must be at least 1 second",
		})
	}

	if s.StartupGrace < 1*time.Second {
		errors = append(errors, ValidationError{
			Field:   "stream.startup_grace",
			Message: "must be at least 1 second",
		})
	}

	if s.ReconnectMin < 100*time.Millisecond {
		errors = append(errors, ValidationError{
			Field:   "stream.reconnect_min",
			Message: "must be at least 100ms",
		})
	}

	if s.ReconnectMax < s.ReconnectMin {
		errors = append(errors, ValidationError{
			Field:   "stream.reconnect_max",
			Message: "must be at least reconnect_min",
		})
	}

	if s.ReconnectFactor < 1 {
		errors = append(errors, ValidationError{
			Field:   "stream.reconnect_factor",
			Message: "must be at least 1",
		})
	}

	if s.ReconnectRetries < 1 {
		errors = append(errors, ValidationError{
			Field:   "stream.reconnect_retries",
			Message: "must be at least 1",
		})
	}

	return errors
}

func validateView(v *ViewConfig) []ValidationError {
	var errors []ValidationError

	switch v.Source {
	case "all", "okx", "binance":
	default:
		errors = append(errors, ValidationError{
			Field:   "view.source",
			Message: fmt.Sprintf("must be all, okx or binance, got %q", v.Source),
		})
	}

	switch v.Availability {
	case "any", "available", "unavailable":
	default:
		errors = append(errors, ValidationError{
			Field:   "view.availability",
			Message: fmt.Sprintf("must be any, available or unavailable, got %q", v.Availability),
		})
	}

	if v.MinNetAPR < 0 {
		errors = append(errors, ValidationError{
			Field:   "view.min_net_apr",
			Message: "must be non-negative",
		})
	}

	if v.LoanSize < 0 {
		errors = append(errors, ValidationError{
			Field:   "view.loan_size",
			Message: "must be non-negative",
		})
	}

	return errors
}

func validatePollers(p *PollersConfig) []ValidationError {
	var errors []ValidationError

	if p.CollectorInterval < 1*time.Second {
		errors = append(errors, ValidationError{
			Field:   "pollers.collector_interval",
			Message: "must be at least 1 second",
		})
	}

	if p.BotInterval < 1*time.Second {
		errors = append(errors, ValidationError{
			Field:   "pollers.bot_interval",
			Message: "must be at least 1 second",
		})
	}

	if p.SessionInterval < 1*time.Second {
		errors = append(errors, ValidationError{
			Field:   "pollers.session_interval",
			Message: "must be at least 1 second",
		})
	}

	if p.SessionStaleAfter < 1*time.Minute {
		errors = append(errors, ValidationError{
			Field:   "pollers.session_stale_after",
			Message: "must be at least 1 minute",
		})
	}

	return errors
}

func validateConsole(c *ConsoleConfig) []ValidationError {
	var errors []ValidationError

	if c.RenderInterval < 1*time.Second {
		errors = append(errors, ValidationError{
			Field:   "console.render_interval",
			Message: "must be at least 1 second",
		})
	}

	if c.MaxRows < 1 {
		errors = append(errors, ValidationError{
			Field:   "console.max_rows",
			Message: "must be at least 1",
		})
	}

	if c.HistoryToken != "" && c.HistoryHours < 1 {
		errors = append(errors, ValidationError{
			Field:   "console.history_hours",
			Message: "must be at least 1 when a history token is set",
		})
	}

	return errors
}

func validateDashboard(d *DashboardConfig) []ValidationError {
	var errors []ValidationError

	if d.Port < 1 || d.Port > 65535 {
		errors = append(errors, ValidationError{
			Field:   "dashboard.port",
			Message: fmt.Sprintf("must be between 1 and 65535, got %d", d.Port),
		})
	}

	return errors
}
