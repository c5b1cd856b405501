package trigger

import (
	"context"
	"fmt"
	"time"

	"github.com/rickgao/tpwatch/internal/model"
)

// Kind selects how a Trigger evaluates.
type Kind int

const (
	KindThreshold Kind = iota
	KindInterval
	KindCustom
)

func (k Kind) String() string {
	switch k {
	case KindThreshold:
		return "threshold"
	case KindInterval:
		return "interval"
	case KindCustom:
		return "custom"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Bounds holds the optional per-listing limits of a threshold trigger.
// A nil bound is never checked. Prices are in copper, volumes in units.
type Bounds struct {
	BuyCeiling        *int // fires when max buy > ceiling
	SellFloor         *int // fires when min sell < floor
	SellVolumeCeiling *int
	SellVolumeFloor   *int
	BuyVolumeCeiling  *int
	BuyVolumeFloor    *int
}

// Int returns a pointer to v, for building Bounds literals.
func Int(v int) *int {
	return &v
}

// IsZero reports whether no bound is configured.
func (b Bounds) IsZero() bool {
	return b == Bounds{}
}

// Violated reports whether l breaks any configured bound.
func (b Bounds) Violated(l model.Listing) bool {
	switch {
	case b.BuyCeiling != nil && l.MaxBuy > *b.BuyCeiling:
		return true
	case b.SellFloor != nil && l.MinSell < *b.SellFloor:
		return true
	case b.SellVolumeCeiling != nil && l.SellVolume > *b.SellVolumeCeiling:
		return true
	case b.SellVolumeFloor != nil && l.SellVolume < *b.SellVolumeFloor:
		return true
	case b.BuyVolumeCeiling != nil && l.BuyVolume > *b.BuyVolumeCeiling:
		return true
	case b.BuyVolumeFloor != nil && l.BuyVolume < *b.BuyVolumeFloor:
		return true
	}
	return false
}

// EvalFunc is the body of a custom trigger.
type EvalFunc func(ctx context.Context, t *Trigger, pc PollContext) ([]model.Entity, error)

// Trigger is a single condition evaluated once per poller tick.
// A Trigger belongs to one Batch and is not safe for concurrent evaluation.
type Trigger struct {
	kind   Kind
	name   string
	ids    []int
	bounds Bounds
	every  time.Duration
	fn     EvalFunc
	fresh  bool
	now    func() time.Time

	lastRun time.Time
}

// Option configures a Trigger.
type Option func(*Trigger)

// WithName sets the name used in logs and errors.
func WithName(name string) Option {
	return func(t *Trigger) {
		t.name = name
	}
}

// WithClock sets the time source.
func WithClock(now func() time.Time) Option {
	return func(t *Trigger) {
		t.now = now
	}
}

// WithFreshFetch makes the trigger bypass the listing cache on every evaluation.
func WithFreshFetch() Option {
	return func(t *Trigger) {
		t.fresh = true
	}
}

// WithBounds sets threshold bounds. Interval and custom triggers keep them but
// do not evaluate them.
func WithBounds(b Bounds) Option {
	return func(t *Trigger) {
		t.bounds = b
	}
}

func newTrigger(kind Kind, opts []Option) *Trigger {
	t := &Trigger{
		kind: kind,
		now:  time.Now,
	}
	for _, opt := range opts {
		opt(t)
	}
	if t.name == "" {
		t.name = kind.String()
	}
	return t
}

// NewThreshold creates a trigger that reports every listing in ids violating any bound in b.
func NewThreshold(ids []int, b Bounds, opts ...Option) *Trigger {
	t := newTrigger(KindThreshold, opts)
	t.ids = append([]int(nil), ids...)
	t.bounds = b
	return t
}

// NewInterval creates a trigger that reports every listing in ids once per period.
// The first evaluation only starts the clock.
func NewInterval(ids []int, every time.Duration, opts ...Option) *Trigger {
	t := newTrigger(KindInterval, opts)
	t.ids = append([]int(nil), ids...)
	t.every = every
	return t
}

// NewCustom creates a trigger whose evaluation is delegated entirely to fn.
func NewCustom(fn EvalFunc, opts ...Option) *Trigger {
	t := newTrigger(KindCustom, opts)
	t.fn = fn
	return t
}

// Kind returns the evaluation strategy.
func (t *Trigger) Kind() Kind { return t.kind }

// Name returns the trigger's name.
func (t *Trigger) Name() string { return t.name }

// IDs returns the watched listing IDs.
func (t *Trigger) IDs() []int { return t.ids }

// Bounds returns the configured bounds.
func (t *Trigger) Bounds() Bounds { return t.bounds }

// Every returns the period of an interval trigger.
func (t *Trigger) Every() time.Duration { return t.every }

// LastRun returns when an interval trigger last fired or started its clock.
func (t *Trigger) LastRun() time.Time { return t.lastRun }

// Evaluate runs the trigger once. An empty result means it did not fire.
// Evaluate never retries; the caller decides what to do with the error.
func (t *Trigger) Evaluate(ctx context.Context, pc PollContext) ([]model.Entity, error) {
	switch t.kind {
	case KindCustom:
		if t.fn == nil {
			return nil, fmt.Errorf("custom trigger %q has no function", t.name)
		}
		return t.fn(ctx, t, pc)
	case KindInterval:
		return t.evaluateInterval(ctx, pc)
	case KindThreshold:
		return t.evaluateThreshold(ctx, pc)
	default:
		return nil, fmt.Errorf("unknown trigger kind %v", t.kind)
	}
}

func (t *Trigger) evaluateThreshold(ctx context.Context, pc PollContext) ([]model.Entity, error) {
	listings, err := t.fetch(ctx, pc)
	if err != nil {
		return nil, err
	}

	var out []model.Entity
	for _, l := range listings {
		if t.bounds.Violated(l) {
			out = append(out, l)
		}
	}
	return out, nil
}

// evaluateInterval ignores bounds even when they are set.
func (t *Trigger) evaluateInterval(ctx context.Context, pc PollContext) ([]model.Entity, error) {
	now := t.now()
	if t.lastRun.IsZero() {
		t.lastRun = now
		return nil, nil
	}
	if now.Sub(t.lastRun) < t.every {
		return nil, nil
	}

	listings, err := t.fetch(ctx, pc)
	if err != nil {
		return nil, err
	}
	t.lastRun = now

	out := make([]model.Entity, len(listings))
	for i, l := range listings {
		out[i] = l
	}
	return out, nil
}

func (t *Trigger) fetch(ctx context.Context, pc PollContext) ([]model.Listing, error) {
	if pc.Listings == nil {
		return nil, errNoListingSource
	}
	listings, err := pc.Listings.FetchByIDs(ctx, t.ids, !t.fresh)
	if err != nil {
		return nil, fmt.Errorf("fetch listings: %w", err)
	}
	return listings, nil
}
