package watcher

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"
	"weak"

	"github.com/rickgao/tpwatch/internal/poller"
	"github.com/rickgao/tpwatch/internal/trigger"
)

// Watch names used by the convenience constructors.
const (
	NewItems          = "new_items"
	NewListings       = "new_listings"
	NewSecretListings = "new_secret_listings"
)

// Config holds defaults for created pollers.
type Config struct {
	PollInterval time.Duration // Default tick period (default: 30s)
	Granularity  time.Duration // Sleep rounding (default: 1s)
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	def := poller.DefaultConfig()
	return Config{
		PollInterval: def.Interval,
		Granularity:  def.Granularity,
	}
}

// Controller creates pollers and broadcasts halts to them.
// It is safe for concurrent use.
type Controller struct {
	cfg      Config
	items    trigger.ItemSource
	listings trigger.ListingSource
	logger   *slog.Logger

	mu      sync.Mutex
	pollers []weak.Pointer[poller.Poller]
}

// New creates a Controller whose pollers read from items and listings by default.
func New(cfg Config, items trigger.ItemSource, listings trigger.ListingSource, logger *slog.Logger) *Controller {
	if logger == nil {
		logger = slog.Default()
	}
	def := DefaultConfig()
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = def.PollInterval
	}
	if cfg.Granularity <= 0 {
		cfg.Granularity = def.Granularity
	}
	return &Controller{
		cfg:      cfg,
		items:    items,
		listings: listings,
		logger:   logger,
	}
}

type pollerOptions struct {
	items    trigger.ItemSource
	listings trigger.ListingSource
	interval time.Duration
}

// PollerOption configures a single created poller.
type PollerOption func(*pollerOptions)

// WithSources replaces the controller's data sources for one poller.
// A nil argument keeps the controller's source.
func WithSources(items trigger.ItemSource, listings trigger.ListingSource) PollerOption {
	return func(o *pollerOptions) {
		if items != nil {
			o.items = items
		}
		if listings != nil {
			o.listings = listings
		}
	}
}

// WithInterval overrides the poll interval for one poller.
func WithInterval(d time.Duration) PollerOption {
	return func(o *pollerOptions) {
		if d > 0 {
			o.interval = d
		}
	}
}

// CreatePoller starts a poller running batches and registers it for HaltAll.
// The returned handle is the only strong reference the controller hands out.
func (c *Controller) CreatePoller(ctx context.Context, name string, batches []*trigger.Batch, opts ...PollerOption) (*poller.Poller, error) {
	o := pollerOptions{
		items:    c.items,
		listings: c.listings,
		interval: c.cfg.PollInterval,
	}
	for _, opt := range opts {
		opt(&o)
	}

	pc := trigger.PollContext{
		Items:    o.items,
		Listings: o.listings,
		Logger:   c.logger,
	}
	cfg := poller.Config{
		Interval:    o.interval,
		Granularity: c.cfg.Granularity,
	}
	p := poller.New(name, cfg, pc, batches...)

	if err := p.Start(ctx); err != nil {
		return nil, fmt.Errorf("start poller %s: %w", name, err)
	}

	c.mu.Lock()
	c.pruneLocked()
	c.pollers = append(c.pollers, weak.Make(p))
	live := len(c.pollers)
	c.mu.Unlock()

	c.logger.Debug("poller registered",
		"poller", name,
		"live", live,
	)

	return p, nil
}

// WatchNewItems reports item IDs that appear in the catalog.
func (c *Controller) WatchNewItems(ctx context.Context, callbacks ...trigger.Callback) (*poller.Poller, error) {
	return c.watchNewIDs(ctx, NewItems, trigger.ItemIDs, callbacks)
}

// WatchNewListings reports item IDs that appear on the trading post.
func (c *Controller) WatchNewListings(ctx context.Context, callbacks ...trigger.Callback) (*poller.Poller, error) {
	return c.watchNewIDs(ctx, NewListings, trigger.ListingIDs, callbacks)
}

// WatchNewSecretListings reports listed IDs that have no catalog item.
func (c *Controller) WatchNewSecretListings(ctx context.Context, callbacks ...trigger.Callback) (*poller.Poller, error) {
	return c.watchNewIDs(ctx, NewSecretListings, trigger.SecretListingIDs, callbacks)
}

func (c *Controller) watchNewIDs(ctx context.Context, name string, query trigger.IDQuery, callbacks []trigger.Callback) (*poller.Poller, error) {
	batch := trigger.NewBatch(name, []*trigger.Trigger{trigger.NewIDDiff(name, query)}, callbacks...)
	return c.CreatePoller(ctx, name, []*trigger.Batch{batch})
}

// WatchThresholds runs triggers as one batch feeding callbacks.
func (c *Controller) WatchThresholds(ctx context.Context, name string, triggers []*trigger.Trigger, callbacks []trigger.Callback, opts ...PollerOption) (*poller.Poller, error) {
	if len(triggers) == 0 {
		return nil, errors.New("no triggers")
	}
	batch := trigger.NewBatch(name, triggers, callbacks...)
	return c.CreatePoller(ctx, name, []*trigger.Batch{batch}, opts...)
}

// Pollers returns every registered poller that is still alive.
func (c *Controller) Pollers() []*poller.Poller {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]*poller.Poller, 0, len(c.pollers))
	for _, wp := range c.pollers {
		if p := wp.Value(); p != nil {
			out = append(out, p)
		}
	}
	return out
}

// HaltAll asks every live poller to stop. It does not wait; see Wait.
func (c *Controller) HaltAll() {
	pollers := c.Pollers()
	for _, p := range pollers {
		p.Halt()
	}
	c.logger.Info("halt requested", "pollers", len(pollers))
}

// Wait blocks until every live poller has exited or ctx is done.
func (c *Controller) Wait(ctx context.Context) error {
	for _, p := range c.Pollers() {
		if err := p.Wait(ctx); err != nil {
			return fmt.Errorf("wait for poller %s: %w", p.Name(), err)
		}
	}
	return nil
}

// pruneLocked drops registry entries whose poller has been collected.
func (c *Controller) pruneLocked() {
	live := c.pollers[:0]
	for _, wp := range c.pollers {
		if wp.Value() != nil {
			live = append(live, wp)
		}
	}
	clear(c.pollers[len(live):])
	c.pollers = live
}
