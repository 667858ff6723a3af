package portal

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// DefaultPollInterval is how often an admin's moderation queues refresh.
const DefaultPollInterval = time.Minute

// poller runs tick once immediately and then on every interval until
// stopped. Start and Stop are idempotent; a stopped poller can be started
// again.
type poller struct {
	interval time.Duration
	tick     func(ctx context.Context)
	logger   *slog.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
	doneCh chan struct{}
}

func newPoller(interval time.Duration, tick func(ctx context.Context), logger *slog.Logger) *poller {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	return &poller{interval: interval, tick: tick, logger: logger}
}

// Start launches the loop unless it is already running.
func (p *poller) Start() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cancel != nil {
		return
	}
	p.startLocked()
}

// Restart cancels a running loop and launches a new one, so that tick runs
// again right away.
func (p *poller) Restart() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cancel != nil {
		p.cancel()
	}
	p.startLocked()
}

func (p *poller) startLocked() {
	ctx, cancel := context.WithCancel(context.Background())
	p.cancel = cancel
	p.doneCh = make(chan struct{})
	go p.loop(ctx, p.doneCh)
	p.logger.Debug("poller started", "interval", p.interval)
}

// Stop cancels the loop and any tick in flight. It does not wait: a tick
// may itself trigger Stop (session expiry found by a refresh).
func (p *poller) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cancel == nil {
		return
	}
	p.cancel()
	p.cancel = nil
	p.logger.Debug("poller stopped")
}

// Running reports whether the loop is active.
func (p *poller) Running() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.cancel != nil
}

// done returns a channel closed when the most recent loop has exited.
func (p *poller) done() <-chan struct{} {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.doneCh == nil {
		ch := make(chan struct{})
		close(ch)
		return ch
	}
	return p.doneCh
}

func (p *poller) loop(ctx context.Context, doneCh chan struct{}) {
	defer close(doneCh)

	p.tick(ctx)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.tick(ctx)
		}
	}
}
