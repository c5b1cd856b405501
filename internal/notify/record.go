package notify

import (
	"context"
	"time"

	"github.com/rickgao/tpwatch/internal/model"
	"github.com/rickgao/tpwatch/internal/trigger"
)

// EntityRecord describes one reported entity.
type EntityRecord struct {
	Name    string          `json:"name"`
	ID      int             `json:"id"`
	Code    string          `json:"code"`
	Listing *ListingSummary `json:"listing,omitempty"` // Set when the entity is a listing
}

// ListingSummary carries the headline order book stats of a reported listing.
type ListingSummary struct {
	MaxBuy     int `json:"max_buy"`
	MinSell    int `json:"min_sell"`
	BuyVolume  int `json:"buy_volume"`
	SellVolume int `json:"sell_volume"`
}

func summarize(l model.Listing) *ListingSummary {
	return &ListingSummary{
		MaxBuy:     l.MaxBuy,
		MinSell:    l.MinSell,
		BuyVolume:  l.BuyVolume,
		SellVolume: l.SellVolume,
	}
}

// Record is one notification: everything a batch reported in one tick.
type Record struct {
	Time     time.Time      `json:"time"`
	Watch    string         `json:"watch"`
	Entities []EntityRecord `json:"entities"`
}

// Builder resolves entity names through the item catalog.
type Builder struct {
	items trigger.ItemSource
	now   func() time.Time
}

// NewBuilder creates a Builder. A nil items source leaves names empty.
func NewBuilder(items trigger.ItemSource) *Builder {
	return &Builder{
		items: items,
		now:   time.Now,
	}
}

// Build creates the record for data. A failed name lookup still yields a record,
// with the names it could not resolve left empty, alongside the error.
func (b *Builder) Build(ctx context.Context, watch string, data []model.Entity) (Record, error) {
	rec := Record{
		Time:     b.now().UTC(),
		Watch:    watch,
		Entities: make([]EntityRecord, len(data)),
	}

	names, err := b.names(ctx, data)
	for i, e := range data {
		id := e.EntityID()
		name := names[id]
		if item, ok := e.(model.Item); ok {
			name = item.Name
		}
		rec.Entities[i] = EntityRecord{
			Name: name,
			ID:   id,
			Code: model.ChatCode(id),
		}
		if l, ok := e.(model.Listing); ok {
			rec.Entities[i].Listing = summarize(l)
		}
	}
	return rec, err
}

func (b *Builder) names(ctx context.Context, data []model.Entity) (map[int]string, error) {
	names := make(map[int]string, len(data))
	if b.items == nil {
		return names, nil
	}

	var ids []int
	for _, e := range data {
		if _, ok := e.(model.Item); !ok {
			ids = append(ids, e.EntityID())
		}
	}
	if len(ids) == 0 {
		return names, nil
	}

	// Secret listings have no catalog entry and simply stay unnamed.
	items, err := b.items.FetchByIDs(ctx, ids, true)
	for _, it := range items {
		names[it.ID] = it.Name
	}
	return names, err
}
