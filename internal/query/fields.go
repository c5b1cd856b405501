package query

import (
	"errors"
	"slices"

	"github.com/rickgao/tpwatch/internal/model"
)

// ErrUnknownField is returned for a field name outside Fields.
var ErrUnknownField = errors.New("unknown field")

// getter reads one field, returning nil when the row lacks its side.
type getter func(Row) any

func itemField(get func(*model.Item) any) getter {
	return func(r Row) any {
		if r.Item == nil {
			return nil
		}
		return get(r.Item)
	}
}

func listingField(get func(*model.Listing) any) getter {
	return func(r Row) any {
		if r.Listing == nil {
			return nil
		}
		return get(r.Listing)
	}
}

var fields = map[string]getter{
	"id":   func(r Row) any { return r.ID() },
	"code": func(r Row) any { return model.ChatCode(r.ID()) },

	"name":         itemField(func(it *model.Item) any { return it.Name }),
	"type":         itemField(func(it *model.Item) any { return it.Type }),
	"rarity":       itemField(func(it *model.Item) any { return it.Rarity }),
	"level":        itemField(func(it *model.Item) any { return it.Level }),
	"vendor_value": itemField(func(it *model.Item) any { return it.VendorValue }),
	"chat_link":    itemField(func(it *model.Item) any { return it.ChatLink }),
	"icon":         itemField(func(it *model.Item) any { return it.Icon }),

	"max_buy":       listingField(func(l *model.Listing) any { return l.MaxBuy }),
	"min_sell":      listingField(func(l *model.Listing) any { return l.MinSell }),
	"buy_volume":    listingField(func(l *model.Listing) any { return l.BuyVolume }),
	"sell_volume":   listingField(func(l *model.Listing) any { return l.SellVolume }),
	"mean_buy":      listingField(func(l *model.Listing) any { return l.MeanBuy }),
	"mean_sell":     listingField(func(l *model.Listing) any { return l.MeanSell }),
	"margin":        listingField(func(l *model.Listing) any { return l.Margin }),
	"volume_margin": listingField(func(l *model.Listing) any { return l.VolumeMargin }),
}

// Fields lists every selectable field name, sorted.
func Fields() []string {
	names := make([]string, 0, len(fields))
	for name := range fields {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}
