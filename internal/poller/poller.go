package poller

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rickgao/tpwatch/internal/trigger"
)

// ErrAlreadyStarted is returned by Start on a poller that was started before.
var ErrAlreadyStarted = errors.New("poller already started")

// State is the lifecycle stage of a Poller.
type State int32

const (
	StateRunning State = iota
	StateHalting
	StateHalted
)

func (s State) String() string {
	switch s {
	case StateRunning:
		return "running"
	case StateHalting:
		return "halting"
	case StateHalted:
		return "halted"
	default:
		return "unknown"
	}
}

// Sleeper blocks for d or until ctx is done.
type Sleeper func(ctx context.Context, d time.Duration)

// Config holds poller configuration.
type Config struct {
	Interval    time.Duration // Tick period (default: 30s)
	Granularity time.Duration // Sleeps are rounded up to a multiple of this (default: 1s)

	// Test hooks; nil uses the wall clock.
	Now   func() time.Time
	Sleep Sleeper
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		Interval:    30 * time.Second,
		Granularity: time.Second,
	}
}

// Stats are cumulative counters for a poller.
type Stats struct {
	Ticks          int64
	Fired          int64
	TriggerErrors  int64
	CallbackErrors int64
	LastTick       time.Time
	LastDuration   time.Duration
}

// Poller runs trigger batches on a fixed interval until halted.
type Poller struct {
	name    string
	cfg     Config
	pc      trigger.PollContext
	batches []*trigger.Batch
	logger  *slog.Logger

	state   atomic.Int32
	started atomic.Bool
	done    chan struct{}

	mu         sync.Mutex
	wakeCancel context.CancelFunc

	statsMu sync.Mutex
	stats   Stats
}

// New creates a Poller. It does nothing until Start.
func New(name string, cfg Config, pc trigger.PollContext, batches ...*trigger.Batch) *Poller {
	def := DefaultConfig()
	if cfg.Interval <= 0 {
		cfg.Interval = def.Interval
	}
	if cfg.Granularity <= 0 {
		cfg.Granularity = def.Granularity
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Sleep == nil {
		cfg.Sleep = sleep
	}

	logger := pc.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("poller", name)
	pc.Poller = name
	pc.Logger = logger

	return &Poller{
		name:    name,
		cfg:     cfg,
		pc:      pc,
		batches: batches,
		logger:  logger,
		done:    make(chan struct{}),
	}
}

// Name returns the poller's name.
func (p *Poller) Name() string { return p.name }

// Interval returns the tick period.
func (p *Poller) Interval() time.Duration { return p.cfg.Interval }

// State returns the current lifecycle stage.
func (p *Poller) State() State { return State(p.state.Load()) }

// Stats returns a copy of the poller's counters.
func (p *Poller) Stats() Stats {
	p.statsMu.Lock()
	defer p.statsMu.Unlock()
	return p.stats
}

// Start launches the polling loop. The first tick runs immediately.
// Cancelling ctx halts the loop and is also seen by in-flight fetches.
func (p *Poller) Start(ctx context.Context) error {
	if !p.started.CompareAndSwap(false, true) {
		return ErrAlreadyStarted
	}

	wake, cancel := context.WithCancel(ctx)
	p.mu.Lock()
	p.wakeCancel = cancel
	p.mu.Unlock()

	// Halt may have been requested before Start.
	if p.State() != StateRunning {
		cancel()
	}

	go p.run(ctx, wake)

	p.logger.Info("poller started",
		"interval", p.cfg.Interval,
		"batches", len(p.batches),
	)

	return nil
}

// Halt asks the loop to stop and returns without waiting.
//
// Cancellation is cooperative. A sleeping loop wakes at once; a running tick
// completes every remaining batch before the loop exits. Use Wait to join.
func (p *Poller) Halt() {
	if !p.state.CompareAndSwap(int32(StateRunning), int32(StateHalting)) {
		return
	}

	p.mu.Lock()
	cancel := p.wakeCancel
	p.mu.Unlock()
	if cancel != nil {
		cancel()
	}

	p.logger.Info("poller halting")
}

// Wait blocks until the loop has exited or ctx is done.
// It returns immediately for a poller that was never started.
func (p *Poller) Wait(ctx context.Context) error {
	if !p.started.Load() {
		return nil
	}
	select {
	case <-p.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Done is closed when the loop has exited.
func (p *Poller) Done() <-chan struct{} {
	return p.done
}

// run is the main polling loop.
func (p *Poller) run(ctx, wake context.Context) {
	defer close(p.done)
	defer func() {
		p.mu.Lock()
		p.wakeCancel()
		p.mu.Unlock()
		p.state.Store(int32(StateHalted))
		p.logger.Info("poller halted")
	}()

	var tickStart time.Time
	first := true

	for {
		if p.State() != StateRunning || ctx.Err() != nil {
			return
		}

		now := p.cfg.Now()
		elapsed := now.Sub(tickStart)
		if first || elapsed >= p.cfg.Interval {
			first = false
			tickStart = now
			p.tick(ctx, tickStart)
			continue
		}

		p.cfg.Sleep(wake, roundUp(p.cfg.Interval-elapsed, p.cfg.Granularity))
	}
}

// tick runs every batch in order.
func (p *Poller) tick(ctx context.Context, start time.Time) {
	var fired, triggerErrs, callbackErrs int
	for _, b := range p.batches {
		res := b.Run(ctx, p.pc)
		fired += res.Fired
		triggerErrs += len(res.TriggerErrors)
		callbackErrs += len(res.CallbackErrors)
	}
	duration := p.cfg.Now().Sub(start)

	p.statsMu.Lock()
	p.stats.Ticks++
	p.stats.Fired += int64(fired)
	p.stats.TriggerErrors += int64(triggerErrs)
	p.stats.CallbackErrors += int64(callbackErrs)
	p.stats.LastTick = start
	p.stats.LastDuration = duration
	p.statsMu.Unlock()

	level := slog.LevelDebug
	if fired > 0 || triggerErrs > 0 || callbackErrs > 0 {
		level = slog.LevelInfo
	}
	p.logger.Log(ctx, level, "tick complete",
		"batches", len(p.batches),
		"fired", fired,
		"trigger_errors", triggerErrs,
		"callback_errors", callbackErrs,
		"duration", duration,
	)

	if duration > p.cfg.Interval {
		p.logger.Warn("tick overran interval",
			"duration", duration,
			"interval", p.cfg.Interval,
		)
	}
}

// roundUp rounds d up to a whole multiple of g.
func roundUp(d, g time.Duration) time.Duration {
	if g <= 0 || d%g == 0 {
		return d
	}
	return (d/g + 1) * g
}

func sleep(ctx context.Context, d time.Duration) {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}
