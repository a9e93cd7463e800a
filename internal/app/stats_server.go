package app

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"lendwatch/clients/lendapi"
	"lendwatch/internal/view"
)

// WebSocket upgrader for real-time stats
var wsUpgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// dashboardServer serves the local HTML dashboard, the stats feed, and
// proxies control actions to the backend.
type dashboardServer struct {
	logger *zap.Logger
	runner *Runner
	server *http.Server
	port   int
}

func newDashboardServer(logger *zap.Logger, port int, runner *Runner) *dashboardServer {
	return &dashboardServer{
		logger: logger,
		runner: runner,
		port:   port,
	}
}

// Start binds the listener and serves in the background. A bind failure
// is reported synchronously so startup can fail loudly.
func (d *dashboardServer) Start() error {
	mux := http.NewServeMux()
	d.registerRoutes(mux)

	d.server = &http.Server{
		Addr:    fmt.Sprintf(":%d", d.port),
		Handler: mux,
	}

	ln, err := net.Listen("tcp", d.server.Addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", d.server.Addr, err)
	}

	go func() {
		if err := d.server.Serve(ln); err != nil && err != http.ErrServerClosed {
			d.logger.Error("dashboard server error", zap.Error(err))
		}
	}()

	d.logger.Info("dashboard server started", zap.Int("port", d.port))
	return nil
}

func (d *dashboardServer) Shutdown(ctx context.Context) {
	if d.server != nil {
		_ = d.server.Shutdown(ctx)
	}
}

func (d *dashboardServer) registerRoutes(mux *http.ServeMux) {
	// Health check endpoint
	mux.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	// JSON stats endpoint
	mux.HandleFunc("/stats", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, d.runner.GetStats())
	})

	// Effective configuration, for debugging a running instance
	mux.HandleFunc("/config", func(w http.ResponseWriter, _ *http.Request) {
		data, err := d.runner.cfg.ToJSON()
		if err != nil {
			http.Error(w, "serialize config", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write(data)
	})

	// WebSocket endpoint for real-time stats
	mux.HandleFunc("/ws", func(w http.ResponseWriter, req *http.Request) {
		conn, err := wsUpgrader.Upgrade(w, req, nil)
		if err != nil {
			d.logger.Error("websocket upgrade failed", zap.Error(err))
			return
		}
		defer conn.Close()

		ticker := time.NewTicker(1 * time.Second)
		defer ticker.Stop()

		for range ticker.C {
			if err := conn.WriteJSON(d.runner.GetStats()); err != nil {
				return // Client disconnected
			}
		}
	})

	mux.HandleFunc("/api/refresh", func(w http.ResponseWriter, req *http.Request) {
		if req.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		if err := d.runner.Refresh(req.Context()); err != nil {
			d.logger.Warn("manual refresh failed", zap.Error(err))
			writeJSON(w, map[string]string{"status": "error", "message": err.Error()})
			return
		}
		writeJSON(w, map[string]string{"status": "ok"})
	})

	mux.HandleFunc("/api/filters", func(w http.ResponseWriter, req *http.Request) {
		if req.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		var f view.FilterState
		if err := json.NewDecoder(req.Body).Decode(&f); err != nil {
			http.Error(w, "bad filter state", http.StatusBadRequest)
			return
		}
		d.runner.ViewState().SetFilter(f)
		writeJSON(w, map[string]string{"status": "ok"})
	})

	mux.HandleFunc("/api/sort", func(w http.ResponseWriter, req *http.Request) {
		if req.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		var body struct {
			Column string `json:"column"`
		}
		if err := json.NewDecoder(req.Body).Decode(&body); err != nil || body.Column == "" {
			http.Error(w, "bad sort column", http.StatusBadRequest)
			return
		}
		d.runner.ViewState().ToggleSort(body.Column)
		writeJSON(w, map[string]string{"status": "ok"})
	})

	mux.HandleFunc("/api/bot/start", func(w http.ResponseWriter, req *http.Request) {
		if req.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		var botReq lendapi.BotStartRequest
		if err := json.NewDecoder(req.Body).Decode(&botReq); err != nil {
			http.Error(w, "bad bot config", http.StatusBadRequest)
			return
		}
		d.proxy(w, func() (any, error) { return d.runner.clients.API.StartBot(req.Context(), botReq) })
	})

	mux.HandleFunc("/api/bot/stop", func(w http.ResponseWriter, req *http.Request) {
		if req.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		d.proxy(w, func() (any, error) { return d.runner.clients.API.StopBot(req.Context()) })
	})

	mux.HandleFunc("/api/browser/login", func(w http.ResponseWriter, req *http.Request) {
		if req.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		var body struct {
			Method string `json:"method"`
		}
		if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
			http.Error(w, "bad login request", http.StatusBadRequest)
			return
		}
		d.proxy(w, func() (any, error) { return d.runner.clients.API.BrowserLogin(req.Context(), body.Method) })
	})

	mux.HandleFunc("/api/browser/borrow", func(w http.ResponseWriter, req *http.Request) {
		if req.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		var body struct {
			Token  string  `json:"token"`
			Amount float64 `json:"amount"`
		}
		if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
			http.Error(w, "bad borrow request", http.StatusBadRequest)
			return
		}
		d.proxy(w, func() (any, error) {
			return d.runner.clients.API.BrowserBorrow(req.Context(), body.Token, body.Amount)
		})
	})

	mux.HandleFunc("/api/history/", func(w http.ResponseWriter, req *http.Request) {
		token := strings.TrimPrefix(req.URL.Path, "/api/history/")
		if token == "" {
			http.Error(w, "missing token", http.StatusBadRequest)
			return
		}
		hours, _ := strconv.Atoi(req.URL.Query().Get("hours"))
		d.proxy(w, func() (any, error) {
			return d.runner.clients.API.GetTokenHistory(req.Context(), token, hours)
		})
	})

	mux.HandleFunc("/api/predictions", func(w http.ResponseWriter, req *http.Request) {
		limit, _ := strconv.Atoi(req.URL.Query().Get("limit"))
		d.proxy(w, func() (any, error) {
			return d.runner.clients.API.GetPredictions(req.Context(), limit)
		})
	})

	// HTML dashboard
	mux.HandleFunc("/", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(dashboardHTML))
	})
}

// proxy forwards a backend call result as JSON; backend failures come
// back as a 502 so the UI can show the panel offline.
func (d *dashboardServer) proxy(w http.ResponseWriter, call func() (any, error)) {
	result, err := call()
	if err != nil {
		d.logger.Warn("backend proxy call failed", zap.Error(err))
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadGateway)
		json.NewEncoder(w).Encode(map[string]string{"status": "error", "message": err.Error()})
		return
	}
	writeJSON(w, result)
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(v)
}
