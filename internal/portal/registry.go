package portal

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/me/patrimoine/internal/logging"
)

// CredentialPruner removes credentials nobody has refreshed for a while.
type CredentialPruner interface {
	DeleteStaleCredentials(ctx context.Context, cutoff time.Time) (int64, error)
}

// RegistryConfig holds registry configuration.
type RegistryConfig struct {
	IdleTTL       time.Duration // evict controllers unused for this long
	CredentialTTL time.Duration // prune stored credentials older than this; 0 keeps them
	SweepInterval time.Duration
	MaxClients    int // evict the least recently seen controller beyond this; 0 is unlimited
}

// DefaultRegistryConfig returns sensible defaults.
func DefaultRegistryConfig() RegistryConfig {
	return RegistryConfig{
		IdleTTL:       2 * time.Hour,
		CredentialTTL: 30 * 24 * time.Hour,
		SweepInterval: 5 * time.Minute,
		MaxClients:    10000,
	}
}

type entry struct {
	ctrl     *Controller
	lastSeen time.Time
}

// Registry holds one Controller per browser client.
type Registry struct {
	newAPI func(clientID string) API
	opts   []Option
	config RegistryConfig
	pruner CredentialPruner
	logger *slog.Logger

	mu      sync.Mutex
	entries map[string]*entry

	stopOnce sync.Once
	stopCh   chan struct{}
}

// NewRegistry creates a registry. newAPI binds the catalogue API to one
// client's stored credentials; opts apply to every controller created.
// pruner may be nil.
func NewRegistry(newAPI func(clientID string) API, cfg RegistryConfig, pruner CredentialPruner, logger *slog.Logger, opts ...Option) *Registry {
	if cfg.SweepInterval <= 0 {
		cfg.SweepInterval = DefaultRegistryConfig().SweepInterval
	}
	return &Registry{
		newAPI:  newAPI,
		opts:    opts,
		config:  cfg,
		pruner:  pruner,
		logger:  logging.Component(logger, "registry"),
		entries: make(map[string]*entry),
		stopCh:  make(chan struct{}),
	}
}

// Get returns the controller of clientID for a page load at location. A
// controller seen for the first time is created and initialized; an
// existing one is re-initialized only for email-confirmation and reset
// links. rewrite reports that the browser must be sent to the bare root.
func (r *Registry) Get(ctx context.Context, clientID, location string) (ctrl *Controller, rewrite bool) {
	var evicted *Controller
	r.mu.Lock()
	e, ok := r.entries[clientID]
	if !ok {
		if r.config.MaxClients > 0 && len(r.entries) >= r.config.MaxClients {
			evicted = r.evictOldestLocked()
		}
		opts := append([]Option{WithLogger(r.logger.With("client_id", clientID))}, r.opts...)
		e = &entry{ctrl: New(r.newAPI(clientID), opts...)}
		r.entries[clientID] = e
	}
	e.lastSeen = time.Now()
	r.mu.Unlock()

	if evicted != nil {
		evicted.Close()
		r.logger.Info("registry full, evicted least recent controller", "max_clients", r.config.MaxClients)
	}
	if !ok {
		r.logger.Debug("controller created", "client_id", clientID)
		return e.ctrl, e.ctrl.Initialize(ctx, location)
	}
	if IsStartupLink(location) {
		return e.ctrl, e.ctrl.Initialize(ctx, location)
	}
	return e.ctrl, false
}

// evictOldestLocked removes the least recently seen entry and returns its
// controller for closing outside the lock. Stored credentials survive, so an
// evicted client is restored on its next request.
func (r *Registry) evictOldestLocked() *Controller {
	var oldestID string
	var oldest *entry
	for id, e := range r.entries {
		if oldest == nil || e.lastSeen.Before(oldest.lastSeen) {
			oldestID, oldest = id, e
		}
	}
	if oldest == nil {
		return nil
	}
	delete(r.entries, oldestID)
	return oldest.ctrl
}

// Lookup returns the controller of clientID without creating one.
func (r *Registry) Lookup(clientID string) (*Controller, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[clientID]
	if !ok {
		return nil, false
	}
	e.lastSeen = time.Now()
	return e.ctrl, true
}

// Len returns the number of live controllers.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

// Start runs the eviction loop. Blocks until ctx is cancelled or Close is called.
func (r *Registry) Start(ctx context.Context) error {
	r.logger.Info("registry janitor started", "idle_ttl", r.config.IdleTTL, "sweep_interval", r.config.SweepInterval)

	ticker := time.NewTicker(r.config.SweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-r.stopCh:
			return nil
		case <-ticker.C:
			r.Sweep(ctx, time.Now())
		}
	}
}

// Sweep evicts controllers idle since before now-IdleTTL and prunes stale
// stored credentials. It returns the number of evicted controllers.
func (r *Registry) Sweep(ctx context.Context, now time.Time) int {
	var evicted []*Controller
	r.mu.Lock()
	if r.config.IdleTTL > 0 {
		cutoff := now.Add(-r.config.IdleTTL)
		for id, e := range r.entries {
			if e.lastSeen.Before(cutoff) {
				evicted = append(evicted, e.ctrl)
				delete(r.entries, id)
			}
		}
	}
	r.mu.Unlock()

	for _, ctrl := range evicted {
		ctrl.Close()
	}
	if len(evicted) > 0 {
		r.logger.Info("evicted idle controllers", "count", len(evicted))
	}

	if r.pruner != nil && r.config.CredentialTTL > 0 {
		n, err := r.pruner.DeleteStaleCredentials(ctx, now.Add(-r.config.CredentialTTL))
		if err != nil {
			r.logger.Warn("prune credentials", "error", err)
		} else if n > 0 {
			r.logger.Info("pruned stale credentials", "count", n)
		}
	}
	return len(evicted)
}

// Close stops the eviction loop (if running) and every controller.
func (r *Registry) Close() {
	r.stopOnce.Do(func() { close(r.stopCh) })

	r.mu.Lock()
	entries := r.entries
	r.entries = make(map[string]*entry)
	r.mu.Unlock()

	for _, e := range entries {
		e.ctrl.Close()
	}
}
