package app

import (
	"errors"
	"time"

	"github.com/jpillora/backoff"

	"lendwatch/config"
)

// ErrRetriesExhausted is returned once the reconnect budget is spent. The
// policy then stays exhausted until a manual refresh resets it.
var ErrRetriesExhausted = errors.New("reconnect retries exhausted")

// reconnectPolicy produces exponentially growing delays up to a cap, for a
// bounded number of attempts. Jitter is off so consecutive delays never
// decrease.
type reconnectPolicy struct {
	backoff    *backoff.Backoff
	maxRetries int
	attempts   int
}

func newReconnectPolicy(cfg config.StreamConfig) *reconnectPolicy {
	return &reconnectPolicy{
		backoff: &backoff.Backoff{
			Min:    cfg.ReconnectMin,
			Max:    cfg.ReconnectMax,
			Factor: cfg.ReconnectFactor,
			Jitter: false,
		},
		maxRetries: cfg.ReconnectRetries,
	}
}

// Next returns the delay before the next attempt, or ErrRetriesExhausted
// when the bound has been reached.
func (p *reconnectPolicy) Next() (time.Duration, error) {
	if p.attempts >= p.maxRetries {
		return 0, ErrRetriesExhausted
	}
	p.attempts++
	return p.backoff.Duration(), nil
}

// Exhausted reports whether the retry bound has been reached.
func (p *reconnectPolicy) Exhausted() bool {
	return p.attempts >= p.maxRetries
}

// Attempts returns how many attempts have been consumed.
func (p *reconnectPolicy) Attempts() int {
	return p.attempts
}

// Reset restores the full retry budget and the initial delay. Called on a
// successful connect and on manual refresh.
func (p *reconnectPolicy) Reset() {
	p.attempts = 0
	p.backoff.Reset()
}
