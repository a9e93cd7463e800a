// Package lendapi is an HTTP client for the lending-arbitrage backend API.
package lendapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"lendwatch/config"
	"lendwatch/internal/view"
)

// Client talks to the backend REST API.
type Client struct {
	logger     *zap.Logger
	httpClient *http.Client
	baseURL    string
}

// NewClient creates a backend API client.
func NewClient(logger *zap.Logger, cfg *config.Config) *Client {
	timeout := cfg.Backend.RequestTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		logger: logger,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		baseURL: strings.TrimRight(cfg.Backend.BaseURL, "/"),
	}
}

// snapshotResponse matches the payload of both the pull endpoint and a
// pushed data_update message.
type snapshotResponse struct {
	Timestamp string             `json:"timestamp"`
	Count     int                `json:"count"`
	Data      []view.Opportunity `json:"data"`
}

// GetOpportunities fetches the current snapshot. source may be "all", "okx"
// or "binance"; minAPR and limit are skipped at their zero values.
func (c *Client) GetOpportunities(ctx context.Context, source string, minAPR float64, limit int) (*view.Snapshot, error) {
	u, err := url.Parse(c.baseURL + "/api/opportunities")
	if err != nil {
		return nil, fmt.Errorf("parse opportunities URL: %w", err)
	}

	q := u.Query()
	if source != "" && source != view.SourceAll {
		q.Set("source", source)
	}
	if minAPR > 0 {
		q.Set("min_apr", strconv.FormatFloat(minAPR, 'f', -1, 64))
	}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	u.RawQuery = q.Encode()

	var resp snapshotResponse
	if err := c.doGet(ctx, u.String(), &resp); err != nil {
		return nil, fmt.Errorf("get opportunities: %w", err)
	}

	return &view.Snapshot{
		Timestamp:     resp.Timestamp,
		Opportunities: resp.Data,
	}, nil
}

// RefreshResult is the response of the manual refresh endpoint.
type RefreshResult struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
	Count     int    `json:"count"`
}

// ForceRefresh asks the backend to re-scrape rates now.
func (c *Client) ForceRefresh(ctx context.Context) (*RefreshResult, error) {
	var result RefreshResult
	if err := c.doPost(ctx, c.baseURL+"/api/refresh", nil, &result); err != nil {
		return nil, fmt.Errorf("force refresh: %w", err)
	}
	return &result, nil
}

// CollectorStats is the rate collector's health report.
type CollectorStats struct {
	TotalObservations int64   `json:"total_observations"`
	UniqueTokens      int     `json:"unique_tokens"`
	LatestTimestamp   string  `json:"latest_timestamp"`
	OldestTimestamp   string  `json:"oldest_timestamp"`
	TotalRuns         int64   `json:"total_runs"`
	ErrorRuns         int64   `json:"error_runs"`
	DBSizeMB          float64 `json:"db_size_mb"`
}

// GetCollectorStats fetches collector health.
func (c *Client) GetCollectorStats(ctx context.Context) (*CollectorStats, error) {
	var stats CollectorStats
	if err := c.doGet(ctx, c.baseURL+"/api/collector/stats", &stats); err != nil {
		return nil, fmt.Errorf("get collector stats: %w", err)
	}
	return &stats, nil
}

// BotStatus is the sniper bot's run state.
type BotStatus struct {
	Running   bool            `json:"running"`
	PID       int             `json:"pid"`
	Config    json.RawMessage `json:"config"`
	StatusMsg string          `json:"status_msg"`
	Logs      []string        `json:"logs"`
}

// GetBotStatus fetches the sniper bot state, including its log tail.
func (c *Client) GetBotStatus(ctx context.Context) (*BotStatus, error) {
	var status BotStatus
	if err := c.doGet(ctx, c.baseURL+"/api/bot/status", &status); err != nil {
		return nil, fmt.Errorf("get bot status: %w", err)
	}
	return &status, nil
}

// BotStartRequest configures a sniper bot launch.
type BotStartRequest struct {
	Token      string  `json:"token"`
	Amount     float64 `json:"amount"`
	LTV        float64 `json:"ltv"`
	UseBrowser bool    `json:"use_browser"`
	SniperMode bool    `json:"sniper_mode"`
}

// BotActionResult is the response of bot start/stop.
type BotActionResult struct {
	Status  string `json:"status"`
	PID     int    `json:"pid"`
	Message string `json:"message"`
}

// StartBot launches the sniper bot with the given config.
func (c *Client) StartBot(ctx context.Context, req BotStartRequest) (*BotActionResult, error) {
	var result BotActionResult
	if err := c.doPost(ctx, c.baseURL+"/api/bot/start", req, &result); err != nil {
		return nil, fmt.Errorf("start bot: %w", err)
	}
	return &result, nil
}

// StopBot stops the sniper bot.
func (c *Client) StopBot(ctx context.Context) (*BotActionResult, error) {
	var result BotActionResult
	if err := c.doPost(ctx, c.baseURL+"/api/bot/stop", nil, &result); err != nil {
		return nil, fmt.Errorf("stop bot: %w", err)
	}
	return &result, nil
}

// BrowserActionResult is the response of browser login/borrow.
type BrowserActionResult struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

// BrowserLogin launches a browser login flow. method is "qr" or "chrome".
func (c *Client) BrowserLogin(ctx context.Context, method string) (*BrowserActionResult, error) {
	body := map[string]string{"method": method}
	var result BrowserActionResult
	if err := c.doPost(ctx, c.baseURL+"/api/browser/login", body, &result); err != nil {
		return nil, fmt.Errorf("browser login: %w", err)
	}
	return &result, nil
}

// BrowserBorrow starts a browser-automated borrow.
func (c *Client) BrowserBorrow(ctx context.Context, token string, amount float64) (*BrowserActionResult, error) {
	body := map[string]any{"token": token, "amount": amount}
	var result BrowserActionResult
	if err := c.doPost(ctx, c.baseURL+"/api/browser/borrow", body, &result); err != nil {
		return nil, fmt.Errorf("browser borrow: %w", err)
	}
	return &result, nil
}

// BrowserSession describes the automation browser's login session.
// AgeMinutes is nil when no session file exists.
type BrowserSession struct {
	SessionExists bool   `json:"session_exists"`
	ProfileExists bool   `json:"profile_exists"`
	LastLogin     string `json:"last_login"`
	CookieCount   int    `json:"cookie_count"`
	AgeMinutes    *int   `json:"age_minutes"`
}

// GetBrowserSession fetches browser session freshness.
func (c *Client) GetBrowserSession(ctx context.Context) (*BrowserSession, error) {
	var session BrowserSession
	if err := c.doGet(ctx, c.baseURL+"/api/browser/session", &session); err != nil {
		return nil, fmt.Errorf("get browser session: %w", err)
	}
	return &session, nil
}

// HistoryPoint is one observation in a token's rate history.
type HistoryPoint struct {
	Timestamp  string  `json:"timestamp"`
	NetAPR     float64 `json:"net_apr"`
	GateAPR    float64 `json:"gate_apr"`
	BorrowRate float64 `json:"borrow_rate"`
	Source     string  `json:"source"`
}

// TrendAnalysis is the backend's verdict on where a token's rate is going.
type TrendAnalysis struct {
	Trend    string  `json:"trend"`
	Strength float64 `json:"strength"`
}

// TokenHistory is a per-token time series with optional trend analysis.
type TokenHistory struct {
	Token string         `json:"token"`
	Hours int            `json:"hours"`
	Count int            `json:"count"`
	Trend *TrendAnalysis `json:"trend"`
	Data  []HistoryPoint `json:"data"`
}

// GetTokenHistory fetches a token's rate history over the given window.
// hours is skipped at zero, letting the backend default apply.
func (c *Client) GetTokenHistory(ctx context.Context, token string, hours int) (*TokenHistory, error) {
	u, err := url.Parse(c.baseURL + "/api/history/" + url.PathEscape(token))
	if err != nil {
		return nil, fmt.Errorf("parse history URL: %w", err)
	}
	if hours > 0 {
		q := u.Query()
		q.Set("hours", strconv.Itoa(hours))
		u.RawQuery = q.Encode()
	}

	var history TokenHistory
	if err := c.doGet(ctx, u.String(), &history); err != nil {
		return nil, fmt.Errorf("get history for %s: %w", token, err)
	}
	return &history, nil
}

// Prediction is an APR regime signal for one token.
type Prediction struct {
	Token      string  `json:"token"`
	CurrentAPR float64 `json:"current_apr"`
	Regime     string  `json:"regime"`
	Signal     string  `json:"signal"`
	Confidence float64 `json:"confidence"`
	Volatility float64 `json:"volatility"`
}

// GetPredictions fetches APR regime predictions.
func (c *Client) GetPredictions(ctx context.Context, limit int) ([]Prediction, error) {
	u, err := url.Parse(c.baseURL + "/api/predictions")
	if err != nil {
		return nil, fmt.Errorf("parse predictions URL: %w", err)
	}
	if limit > 0 {
		q := u.Query()
		q.Set("limit", strconv.Itoa(limit))
		u.RawQuery = q.Encode()
	}

	var resp struct {
		Data []Prediction `json:"data"`
	}
	if err := c.doGet(ctx, u.String(), &resp); err != nil {
		return nil, fmt.Errorf("get predictions: %w", err)
	}
	return resp.Data, nil
}

// doGet performs a GET request and unmarshals the JSON response into dest.
func (c *Client) doGet(ctx context.Context, u string, dest any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	return c.do(req, dest)
}

// doPost performs a POST request with an optional JSON body.
func (c *Client) doPost(ctx context.Context, u string, body, dest any) error {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode body: %w", err)
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, reader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	return c.do(req, dest)
}

func (c *Client) do(req *http.Request, dest any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode/100 != 2 {
		c.logger.Warn(
			"backend returned error status",
			zap.Int("status", resp.StatusCode),
			zap.String("path", req.URL.Path),
		)
		return fmt.Errorf("unexpected status=%d body=%s", resp.StatusCode, truncate(data, 200))
	}

	if dest == nil {
		return nil
	}
	if err := json.Unmarshal(data, dest); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
