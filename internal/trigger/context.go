package trigger

import (
	"context"
	"log/slog"

	"github.com/rickgao/tpwatch/internal/model"
)

// ItemSource provides catalog items.
type ItemSource interface {
	FetchByIDs(ctx context.Context, ids []int, useCache bool) ([]model.Item, error)
	FetchAllIDs(ctx context.Context) ([]int, error)
}

// ListingSource provides trading post listings.
type ListingSource interface {
	FetchByIDs(ctx context.Context, ids []int, useCache bool) ([]model.Listing, error)
	FetchAllIDs(ctx context.Context) ([]int, error)
}

// PollContext is what a poller hands to its batches on every tick.
type PollContext struct {
	Poller   string
	Items    ItemSource
	Listings ListingSource
	Logger   *slog.Logger
}

func (pc PollContext) logger() *slog.Logger {
	if pc.Logger == nil {
		return slog.Default()
	}
	return pc.Logger
}
