package app

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"lendwatch/clients/lendapi"
)

// Each auxiliary poller writes into its own region and nothing else. A
// failed poll downgrades that one region to offline without touching the
// snapshot cache or the other regions.

// CollectorRegion is the rate collector's health panel.
type CollectorRegion struct {
	Online    bool                    `json:"online"`
	Stats     *lendapi.CollectorStats `json:"stats,omitempty"`
	CheckedAt time.Time               `json:"checked_at"`
}

// BotRegion is the sniper bot's status panel.
type BotRegion struct {
	Online    bool               `json:"online"`
	Status    *lendapi.BotStatus `json:"status,omitempty"`
	CheckedAt time.Time          `json:"checked_at"`
}

// SessionRegion is the browser session freshness panel.
type SessionRegion struct {
	Online    bool                    `json:"online"`
	Session   *lendapi.BrowserSession `json:"session,omitempty"`
	Age       string                  `json:"age"`
	Stale     bool                    `json:"stale"`
	CheckedAt time.Time               `json:"checked_at"`
}

// StatusRegions holds the three poller panels behind one mutex. Writers
// are the three poll loops, each touching only its own field.
type StatusRegions struct {
	mu        sync.RWMutex
	collector CollectorRegion
	bot       BotRegion
	session   SessionRegion
}

func NewStatusRegions() *StatusRegions {
	return &StatusRegions{}
}

func (s *StatusRegions) setCollector(r CollectorRegion) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.collector = r
}

func (s *StatusRegions) setBot(r BotRegion) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.bot = r
}

func (s *StatusRegions) setSession(r SessionRegion) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.session = r
}

// Collector returns the collector panel state.
func (s *StatusRegions) Collector() CollectorRegion {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.collector
}

// Bot returns the bot panel state.
func (s *StatusRegions) Bot() BotRegion {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.bot
}

// Session returns the session panel state.
func (s *StatusRegions) Session() SessionRegion {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.session
}

// FormatSessionAge buckets a session age into minutes, hours or days.
func FormatSessionAge(age time.Duration) string {
	minutes := int(age.Minutes())
	switch {
	case minutes < 60:
		return fmt.Sprintf("%dm", minutes)
	case minutes < 24*60:
		return fmt.Sprintf("%dh", minutes/60)
	default:
		return fmt.Sprintf("%dd", minutes/(24*60))
	}
}

func (r *Runner) runCollectorPoller(ctx context.Context) {
	t := time.NewTicker(r.cfg.Pollers.CollectorInterval)
	defer t.Stop()

	poll := func() {
		stats, err := r.clients.API.GetCollectorStats(ctx)
		if err != nil {
			r.logger.Warn("collector poll failed", zap.Error(err))
			r.regions.setCollector(CollectorRegion{Online: false, CheckedAt: time.Now()})
			return
		}
		r.regions.setCollector(CollectorRegion{
			Online:    true,
			Stats:     stats,
			CheckedAt: time.Now(),
		})
	}

	poll()
	for {
		select {
		case <-t.C:
			poll()
		case <-ctx.Done():
			return
		}
	}
}

func (r *Runner) runBotPoller(ctx context.Context) {
	t := time.NewTicker(r.cfg.Pollers.BotInterval)
	defer t.Stop()

	poll := func() {
		status, err := r.clients.API.GetBotStatus(ctx)
		if err != nil {
			r.logger.Warn("bot status poll failed", zap.Error(err))
			r.regions.setBot(BotRegion{Online: false, CheckedAt: time.Now()})
			return
		}
		r.regions.setBot(BotRegion{
			Online:    true,
			Status:    status,
			CheckedAt: time.Now(),
		})
	}

	poll()
	for {
		select {
		case <-t.C:
			poll()
		case <-ctx.Done():
			return
		}
	}
}

func (r *Runner) runSessionPoller(ctx context.Context) {
	t := time.NewTicker(r.cfg.Pollers.SessionInterval)
	defer t.Stop()

	poll := func() {
		session, err := r.clients.API.GetBrowserSession(ctx)
		if err != nil {
			r.logger.Warn("browser session poll failed", zap.Error(err))
			r.regions.setSession(SessionRegion{Online: false, CheckedAt: time.Now()})
			return
		}

		region := SessionRegion{
			Online:    true,
			Session:   session,
			CheckedAt: time.Now(),
		}
		if session.SessionExists && session.AgeMinutes != nil {
			age := time.Duration(*session.AgeMinutes) * time.Minute
			region.Age = FormatSessionAge(age)
			region.Stale = age > r.cfg.Pollers.SessionStaleAfter
		}
		r.regions.setSession(region)
	}

	poll()
	for {
		select {
		case <-t.C:
			poll()
		case <-ctx.Done():
			return
		}
	}
}
