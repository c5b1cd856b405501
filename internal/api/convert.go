package api

import "github.com/rickgao/tpwatch/internal/model"

// ToModel converts an APIItem to a model.Item.
func (a APIItem) ToModel() model.Item {
	return model.Item{
		ID:          a.ID,
		Name:        a.Name,
		Type:        a.Type,
		Rarity:      a.Rarity,
		Level:       a.Level,
		VendorValue: a.VendorValue,
		Icon:        a.Icon,
		ChatLink:    a.ChatLink,
		Flags:       a.Flags,
		Details:     a.Details,
	}
}

// ToModel converts an APIListing to a model.Listing, computing its statistics.
func (a APIListing) ToModel() model.Listing {
	return model.NewListing(a.ID, convertOffers(a.Buys), convertOffers(a.Sells))
}

func convertOffers(offers []APIOffer) []model.Offer {
	out := make([]model.Offer, len(offers))
	for i, o := range offers {
		out[i] = model.Offer{
			Listings:  o.Listings,
			UnitPrice: o.UnitPrice,
			Quantity:  o.Quantity,
		}
	}
	return out
}
