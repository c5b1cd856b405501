package trigger

import (
	"context"
	"fmt"
	"slices"

	"github.com/rickgao/tpwatch/internal/model"
)

// IDQuery returns the current ID universe to diff against.
type IDQuery func(ctx context.Context, pc PollContext) ([]int, error)

// NewIDDiff creates a custom trigger that reports IDs added to query's result
// since the previous successful evaluation.
//
// The first successful evaluation records a baseline and reports nothing.
// Removed IDs are folded into the new baseline and never reported.
// A failed query leaves the baseline untouched.
func NewIDDiff(name string, query IDQuery, opts ...Option) *Trigger {
	var (
		baseline map[int]struct{}
		primed   bool
	)

	fn := func(ctx context.Context, t *Trigger, pc PollContext) ([]model.Entity, error) {
		ids, err := query(ctx, pc)
		if err != nil {
			return nil, err
		}

		next := make(map[int]struct{}, len(ids))
		for _, id := range ids {
			next[id] = struct{}{}
		}

		if !primed {
			baseline, primed = next, true
			pc.logger().Debug("id baseline recorded",
				"trigger", t.Name(),
				"ids", len(next),
			)
			return nil, nil
		}

		var added []int
		for id := range next {
			if _, ok := baseline[id]; !ok {
				added = append(added, id)
			}
		}

		if len(added) > 0 || len(next) != len(baseline) {
			pc.logger().Info("id set changed",
				"trigger", t.Name(),
				"before", len(baseline),
				"after", len(next),
				"added", len(added),
			)
		}
		baseline = next

		slices.Sort(added)
		return model.IDs(added), nil
	}

	return NewCustom(fn, append([]Option{WithName(name)}, opts...)...)
}

// SecretIDs returns the listing IDs that have no catalog item, ascending.
func SecretIDs(itemIDs, listingIDs []int) []int {
	items := make(map[int]struct{}, len(itemIDs))
	for _, id := range itemIDs {
		items[id] = struct{}{}
	}

	var out []int
	seen := make(map[int]struct{})
	for _, id := range listingIDs {
		if _, ok := items[id]; ok {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	slices.Sort(out)
	return out
}

// ItemIDs queries the catalog ID universe.
func ItemIDs(ctx context.Context, pc PollContext) ([]int, error) {
	if pc.Items == nil {
		return nil, errNoItemSource
	}
	ids, err := pc.Items.FetchAllIDs(ctx)
	if err != nil {
		return nil, fmt.Errorf("item ids: %w", err)
	}
	return ids, nil
}

// ListingIDs queries the trading post ID universe.
func ListingIDs(ctx context.Context, pc PollContext) ([]int, error) {
	if pc.Listings == nil {
		return nil, errNoListingSource
	}
	ids, err := pc.Listings.FetchAllIDs(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing ids: %w", err)
	}
	return ids, nil
}

// SecretListingIDs queries listings that have no catalog item.
func SecretListingIDs(ctx context.Context, pc PollContext) ([]int, error) {
	itemIDs, err := ItemIDs(ctx, pc)
	if err != nil {
		return nil, err
	}
	listingIDs, err := ListingIDs(ctx, pc)
	if err != nil {
		return nil, err
	}
	return SecretIDs(itemIDs, listingIDs), nil
}
