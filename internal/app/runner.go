package app

import (
	"context"
	"encoding/json"
	"fmt"
	"runtime"
	"sync"
	"time"

	"go.uber.org/zap"

	"lendwatch/clients"
	"lendwatch/clients/livefeed"
	"lendwatch/config"
	"lendwatch/internal/view"
)

// Transport states surfaced to the status indicator.
const (
	TransportConnecting   = "connecting"
	TransportConnected    = "connected"
	TransportDisconnected = "disconnected"
	TransportGaveUp       = "gave_up"
)

// Runner wires the live feed, snapshot store, view state, pollers and
// render surfaces together and supervises their goroutines.
type Runner struct {
	logger  *zap.Logger
	cfg     *config.Config
	clients *clients.Clients

	store     *SnapshotStore
	viewState *ViewState
	regions   *StatusRegions

	transport *transportState

	// A send forces a reconnect attempt with a fresh retry budget.
	reconnectCh chan struct{}

	startedAt time.Time
}

func NewRunner(logger *zap.Logger, cfg *config.Config, c *clients.Clients) *Runner {
	return &Runner{
		logger:      logger,
		cfg:         cfg,
		clients:     c,
		store:       NewSnapshotStore(logger),
		viewState:   NewViewState(cfg.View),
		regions:     NewStatusRegions(),
		transport:   newTransportState(),
		reconnectCh: make(chan struct{}, 1),
		startedAt:   time.Now(),
	}
}

// Run starts every loop and blocks until ctx is cancelled.
func (r *Runner) Run(ctx context.Context) error {
	r.logger.Info(
		"starting opportunity client",
		zap.String("backend", r.cfg.Backend.BaseURL),
		zap.String("stream", r.cfg.Backend.WebSocketURL),
	)

	var dashboard *dashboardServer
	if r.cfg.Dashboard.Enabled {
		dashboard = newDashboardServer(r.logger, r.cfg.Dashboard.Port, r)
		if err := dashboard.Start(); err != nil {
			return fmt.Errorf("start dashboard server: %w", err)
		}
	}

	go r.runCollectorPoller(ctx)
	go r.runBotPoller(ctx)
	go r.runSessionPoller(ctx)

	if r.cfg.Console.Enabled {
		go r.runConsoleRenderer(ctx)
	}

	go r.runStream(ctx)

	<-ctx.Done()
	r.logger.Info("shutting down")

	_ = r.clients.Live.Close()
	if dashboard != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		dashboard.Shutdown(shutdownCtx)
	}

	return nil
}

// runStream owns the stream lifecycle: connect, consume, fall back to a
// pull after the startup grace window, reconnect with backoff. All stream
// timers live in this one goroutine, so there is never more than one
// pending retry of the same kind.
func (r *Runner) runStream(ctx context.Context) {
	policy := newReconnectPolicy(r.cfg.Stream)

	connect := func() bool {
		r.transport.set(TransportConnecting)
		if err := r.clients.Live.Connect(ctx); err != nil {
			r.logger.Warn("live feed connect failed", zap.Error(err))
			r.transport.set(TransportDisconnected)
			return false
		}
		policy.Reset()
		r.transport.set(TransportConnected)
		return true
	}

	var retry *time.Timer
	var retryCh <-chan time.Time

	clearRetry := func() {
		if retry != nil {
			retry.Stop()
			retry = nil
			retryCh = nil
		}
	}

	scheduleRetry := func() {
		clearRetry()
		delay, err := policy.Next()
		if err != nil {
			r.transport.set(TransportGaveUp)
			r.logger.Warn(
				"reconnect retries exhausted, waiting for manual refresh",
				zap.Int("attempts", policy.Attempts()),
			)
			return
		}
		r.logger.Info(
			"scheduling reconnect",
			zap.Duration("delay", delay),
			zap.Int("attempt", policy.Attempts()),
		)
		retry = time.NewTimer(delay)
		retryCh = retry.C
	}

	if !connect() {
		scheduleRetry()
	}

	grace := time.NewTimer(r.cfg.Stream.StartupGrace)
	defer grace.Stop()
	defer clearRetry()

	for {
		select {
		case raw := <-r.clients.Live.Messages():
			r.handleFrame(raw)

		case err := <-r.clients.Live.Errors():
			r.logger.Warn("live feed dropped", zap.Error(err))
			r.transport.set(TransportDisconnected)
			scheduleRetry()

		case <-retryCh:
			retry = nil
			retryCh = nil
			if !connect() {
				scheduleRetry()
			}

		case <-r.reconnectCh:
			policy.Reset()
			clearRetry()
			if !r.clients.Live.Connected() && !connect() {
				scheduleRetry()
			}

		case <-grace.C:
			if _, ok := r.store.Latest(); !ok {
				r.logger.Info("no snapshot within startup grace, pulling once")
				go r.pullSnapshot(ctx)
			}

		case <-ctx.Done():
			return
		}
	}
}

// handleFrame parses one stream frame. Malformed frames are logged and
// dropped; they never take the pipeline down.
func (r *Runner) handleFrame(raw json.RawMessage) {
	env, err := livefeed.ParseEnvelope(raw)
	if err != nil {
		r.logger.Warn("dropping malformed frame", zap.Error(err))
		return
	}

	switch env.Type {
	case livefeed.TypePong:
		// Liveness ack, nothing to do.

	case livefeed.TypeDataUpdate:
		var opps []view.Opportunity
		if err := json.Unmarshal(env.Data, &opps); err != nil {
			r.logger.Warn("dropping data_update with bad payload", zap.Error(err))
			return
		}
		applied := r.store.Apply(view.Snapshot{
			Timestamp:     env.Timestamp,
			Opportunities: opps,
		})
		if applied {
			r.logger.Debug(
				"snapshot applied from stream",
				zap.Int("opportunities", len(opps)),
				zap.String("timestamp", env.Timestamp),
			)
		}
	}
}

// pullSnapshot fetches the snapshot over REST and applies it as if it had
// been pushed.
func (r *Runner) pullSnapshot(ctx context.Context) {
	snap, err := r.clients.API.GetOpportunities(ctx, view.SourceAll, 0, 0)
	if err != nil {
		r.logger.Warn("snapshot pull failed", zap.Error(err))
		return
	}
	r.store.Apply(*snap)
	r.logger.Info("snapshot applied from pull", zap.Int("opportunities", len(snap.Opportunities)))
}

// Refresh is the manual refresh entry point. With an open stream it sends
// the refresh directive; otherwise it pulls directly and forces a
// reconnect attempt with a fresh retry budget.
func (r *Runner) Refresh(ctx context.Context) error {
	if r.clients.Live.Connected() {
		if err := r.clients.Live.RequestRefresh(); err != nil {
			return fmt.Errorf("request refresh over stream: %w", err)
		}
		return nil
	}

	snap, err := r.clients.API.GetOpportunities(ctx, view.SourceAll, 0, 0)
	if err != nil {
		return fmt.Errorf("pull on manual refresh: %w", err)
	}
	r.store.Apply(*snap)

	select {
	case r.reconnectCh <- struct{}{}:
	default:
	}
	return nil
}

// CurrentView runs the derive pipeline over the latest snapshot with the
// current filter and sort state. ok is false before the first snapshot.
func (r *Runner) CurrentView() (view.View, bool) {
	snap, ok := r.store.Latest()
	if !ok {
		return view.View{}, false
	}
	filter, sortState := r.viewState.Get()
	return view.Build(snap, filter, sortState), true
}

// ViewState exposes the filter/sort holder to the render surfaces.
func (r *Runner) ViewState() *ViewState {
	return r.viewState
}

// transportState is the connection indicator.
type transportState struct {
	mu    sync.RWMutex
	state string
}

func newTransportState() *transportState {
	return &transportState{state: TransportDisconnected}
}

func (t *transportState) set(s string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.state = s
}

func (t *transportState) get() string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.state
}

// ServiceStats is the dashboard's full state dump.
type ServiceStats struct {
	Uptime    string `json:"uptime"`
	Transport struct {
		State         string    `json:"state"`
		MessageCount  uint64    `json:"message_count"`
		LastMessageAt time.Time `json:"last_message_at"`
	} `json:"transport"`
	Store     StoreStats       `json:"store"`
	View      *view.View       `json:"view,omitempty"`
	Filter    view.FilterState `json:"filter"`
	Sort      view.SortState   `json:"sort"`
	Collector CollectorRegion  `json:"collector"`
	Bot       BotRegion        `json:"bot"`
	Session   SessionRegion    `json:"session"`
	Runtime   struct {
		Goroutines int    `json:"goroutines"`
		HeapAlloc  uint64 `json:"heap_alloc"`
	} `json:"runtime"`
}

// GetStats assembles the dashboard state dump.
func (r *Runner) GetStats() ServiceStats {
	var stats ServiceStats
	stats.Uptime = time.Since(r.startedAt).Round(time.Second).String()

	liveStats := r.clients.Live.Stats()
	stats.Transport.State = r.transport.get()
	stats.Transport.MessageCount = liveStats.MessageCount
	stats.Transport.LastMessageAt = liveStats.LastMessageAt

	stats.Store = r.store.Stats()
	if v, ok := r.CurrentView(); ok {
		stats.View = &v
	}
	stats.Filter, stats.Sort = r.viewState.Get()
	stats.Collector = r.regions.Collector()
	stats.Bot = r.regions.Bot()
	stats.Session = r.regions.Session()

	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)
	stats.Runtime.Goroutines = runtime.NumGoroutine()
	stats.Runtime.HeapAlloc = mem.HeapAlloc

	return stats
}
