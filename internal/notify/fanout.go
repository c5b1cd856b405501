package notify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/rickgao/tpwatch/internal/model"
	"github.com/rickgao/tpwatch/internal/store"
	"github.com/rickgao/tpwatch/internal/trigger"
)

// Deliverer sends one record to one subscriber.
type Deliverer interface {
	Deliver(ctx context.Context, account string, rec Record) error
}

// DelivererFunc is a function adapter for Deliverer.
type DelivererFunc func(ctx context.Context, account string, rec Record) error

func (f DelivererFunc) Deliver(ctx context.Context, account string, rec Record) error {
	return f(ctx, account, rec)
}

// LogDeliverer records deliveries in the process log. It is the fallback when
// no push endpoint is configured.
func LogDeliverer(logger *slog.Logger) Deliverer {
	if logger == nil {
		logger = slog.Default()
	}
	return DelivererFunc(func(ctx context.Context, account string, rec Record) error {
		logger.Info("notification",
			"account", account,
			"watch", rec.Watch,
			"entities", len(rec.Entities),
		)
		return nil
	})
}

// Fanout delivers records to every subscriber of a watch.
type Fanout struct {
	store     store.Store
	builder   *Builder
	deliverer Deliverer
	logger    *slog.Logger
}

// NewFanout creates a Fanout.
func NewFanout(s store.Store, builder *Builder, deliverer Deliverer, logger *slog.Logger) *Fanout {
	if logger == nil {
		logger = slog.Default()
	}
	return &Fanout{
		store:     s,
		builder:   builder,
		deliverer: deliverer,
		logger:    logger,
	}
}

// Callback returns a callback delivering to every account watching category.
// A failed delivery does not stop delivery to the remaining accounts.
func (f *Fanout) Callback(category store.Category) trigger.Callback {
	return func(ctx context.Context, data []model.Entity) error {
		accounts, err := f.store.ListWatchers(ctx, category)
		if err != nil {
			return fmt.Errorf("list %s watchers: %w", category, err)
		}
		if len(accounts) == 0 {
			return nil
		}

		rec, err := f.builder.Build(ctx, string(category), data)
		if err != nil {
			f.logger.Warn("item names unavailable", "watch", category, "err", err)
		}

		var errs []error
		for _, account := range accounts {
			if err := f.deliverer.Deliver(ctx, account, rec); err != nil {
				f.logger.Warn("delivery failed",
					"account", account,
					"watch", category,
					"err", err,
				)
				errs = append(errs, fmt.Errorf("deliver to %s: %w", account, err))
			}
		}
		return errors.Join(errs...)
	}
}

// Account returns a callback delivering to a single account under watch.
func (f *Fanout) Account(account, watch string) trigger.Callback {
	return func(ctx context.Context, data []model.Entity) error {
		rec, err := f.builder.Build(ctx, watch, data)
		if err != nil {
			f.logger.Warn("item names unavailable", "watch", watch, "err", err)
		}
		if err := f.deliverer.Deliver(ctx, account, rec); err != nil {
			return fmt.Errorf("deliver to %s: %w", account, err)
		}
		return nil
	}
}
