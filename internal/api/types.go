package api

import "encoding/json"

// Resource paths.
const (
	ItemsPath    = "/v2/items"
	ListingsPath = "/v2/commerce/listings"
)

// APIItem is an item record from GET /v2/items?ids=.
type APIItem struct {
	ID          int             `json:"id"`
	Name        string          `json:"name"`
	Type        string          `json:"type"`
	Rarity      string          `json:"rarity"`
	Level       int             `json:"level"`
	VendorValue int             `json:"vendor_value"`
	Icon        string          `json:"icon"`
	ChatLink    string          `json:"chat_link"`
	Flags       []string        `json:"flags"`
	Details     json.RawMessage `json:"details,omitempty"`
}

// APIOffer is one price point in a listing.
type APIOffer struct {
	Listings  int `json:"listings"`
	UnitPrice int `json:"unit_price"`
	Quantity  int `json:"quantity"`
}

// APIListing is an order book from GET /v2/commerce/listings?ids=.
type APIListing struct {
	ID    int        `json:"id"`
	Buys  []APIOffer `json:"buys"`
	Sells []APIOffer `json:"sells"`
}
