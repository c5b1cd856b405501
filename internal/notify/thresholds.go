package notify

import (
	"fmt"

	"github.com/rickgao/tpwatch/internal/store"
	"github.com/rickgao/tpwatch/internal/trigger"
)

// BoundsFor converts a stored threshold into trigger bounds.
func BoundsFor(kind store.ThresholdKind, value int) (trigger.Bounds, error) {
	v := trigger.Int(value)
	switch kind {
	case store.BuyCeiling:
		return trigger.Bounds{BuyCeiling: v}, nil
	case store.SellFloor:
		return trigger.Bounds{SellFloor: v}, nil
	case store.SellVolumeCeiling:
		return trigger.Bounds{SellVolumeCeiling: v}, nil
	case store.SellVolumeFloor:
		return trigger.Bounds{SellVolumeFloor: v}, nil
	case store.BuyVolumeCeiling:
		return trigger.Bounds{BuyVolumeCeiling: v}, nil
	case store.BuyVolumeFloor:
		return trigger.Bounds{BuyVolumeFloor: v}, nil
	default:
		return trigger.Bounds{}, fmt.Errorf("%w: unknown kind %q", store.ErrInvalidThreshold, kind)
	}
}

// ThresholdBatches builds one batch per watch so each account only hears about
// its own thresholds. Triggers bypass the listing cache to see current prices.
func (f *Fanout) ThresholdBatches(watches []store.ThresholdWatch) ([]*trigger.Batch, error) {
	batches := make([]*trigger.Batch, 0, len(watches))
	for _, w := range watches {
		bounds, err := BoundsFor(w.Kind, w.Value)
		if err != nil {
			return nil, fmt.Errorf("threshold %d: %w", w.ID, err)
		}

		name := fmt.Sprintf("threshold:%d:%s", w.ID, w.Kind)
		trig := trigger.NewThreshold(w.ItemIDs, bounds, trigger.WithName(name), trigger.WithFreshFetch())
		batches = append(batches, trigger.NewBatch(name, []*trigger.Trigger{trig}, f.Account(w.Account, name)))
	}
	return batches, nil
}
