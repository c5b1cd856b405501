package model

import "encoding/json"

// Entity is anything a trigger can report: a cached snapshot or a bare ID.
type Entity interface {
	EntityID() int
}

// ID is a bare entity identifier, emitted by triggers that diff ID universes.
type ID int

// EntityID implements Entity.
func (id ID) EntityID() int { return int(id) }

// Item is a catalog entry from /v2/items.
type Item struct {
	ID          int
	Name        string
	Type        string
	Rarity      string
	Level       int
	VendorValue int
	Icon        string
	ChatLink    string
	Flags       []string
	Details     json.RawMessage // Type-specific payload, kept opaque
}

// EntityID implements Entity.
func (i Item) EntityID() int { return i.ID }

// Offer aggregates every order at a single price point.
type Offer struct {
	Listings  int // Number of distinct orders at this price
	UnitPrice int // Copper per unit
	Quantity  int // Total units across those orders
}

// Listing is the order book for one item from /v2/commerce/listings.
type Listing struct {
	ID    int
	Buys  []Offer // Buy orders, best first
	Sells []Offer // Sell orders, best first

	ListingStats
}

// NewListing builds a Listing and derives its statistics.
func NewListing(id int, buys, sells []Offer) Listing {
	return Listing{
		ID:           id,
		Buys:         buys,
		Sells:        sells,
		ListingStats: ComputeStats(buys, sells),
	}
}

// EntityID implements Entity.
func (l Listing) EntityID() int { return l.ID }

// IDs converts raw integers to entities.
func IDs(ids []int) []Entity {
	out := make([]Entity, len(ids))
	for i, id := range ids {
		out[i] = ID(id)
	}
	return out
}
