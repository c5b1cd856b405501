package store

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"
)

var (
	// ErrUnknownToken is returned by Unsubscribe for a token no account holds.
	ErrUnknownToken = errors.New("unknown unsubscribe token")

	// ErrAccountExists is returned by CreateAccount for an account that already has a token.
	ErrAccountExists = errors.New("account already exists")

	// ErrInvalidCategory is returned for a category outside Categories.
	ErrInvalidCategory = errors.New("invalid watch category")

	// ErrInvalidThreshold is returned for a malformed ThresholdWatch.
	ErrInvalidThreshold = errors.New("invalid threshold watch")
)

// Category is a kind of ID-diff watch a subscriber can join.
type Category string

const (
	CategoryNewItems          Category = "new_items"
	CategoryNewListings       Category = "new_listings"
	CategoryNewSecretListings Category = "new_secret_listings"
)

// Categories lists every valid Category.
var Categories = []Category{CategoryNewItems, CategoryNewListings, CategoryNewSecretListings}

// ParseCategory validates s as a Category.
func ParseCategory(s string) (Category, error) {
	c := Category(s)
	if !slices.Contains(Categories, c) {
		return "", fmt.Errorf("%w: %q", ErrInvalidCategory, s)
	}
	return c, nil
}

// ThresholdKind names the bound a ThresholdWatch sets.
type ThresholdKind string

const (
	BuyCeiling        ThresholdKind = "buy_ceiling"
	SellFloor         ThresholdKind = "sell_floor"
	SellVolumeCeiling ThresholdKind = "sell_volume_ceiling"
	SellVolumeFloor   ThresholdKind = "sell_volume_floor"
	BuyVolumeCeiling  ThresholdKind = "buy_volume_ceiling"
	BuyVolumeFloor    ThresholdKind = "buy_volume_floor"
)

// ThresholdKinds lists every valid ThresholdKind.
var ThresholdKinds = []ThresholdKind{
	BuyCeiling, SellFloor, SellVolumeCeiling, SellVolumeFloor, BuyVolumeCeiling, BuyVolumeFloor,
}

// ParseThresholdKind validates s as a ThresholdKind.
func ParseThresholdKind(s string) (ThresholdKind, error) {
	k := ThresholdKind(s)
	if !slices.Contains(ThresholdKinds, k) {
		return "", fmt.Errorf("%w: unknown kind %q", ErrInvalidThreshold, s)
	}
	return k, nil
}

// ThresholdWatch is one subscriber's bound on a set of listings.
type ThresholdWatch struct {
	ID        int64         `json:"id"`
	Account   string        `json:"account"`
	ItemIDs   []int         `json:"item_ids"`
	Kind      ThresholdKind `json:"kind"`
	Value     int           `json:"value"`
	CreatedAt time.Time     `json:"created_at"`
}

// Validate checks the fields a caller must supply.
func (w ThresholdWatch) Validate() error {
	if w.Account == "" {
		return fmt.Errorf("%w: account is required", ErrInvalidThreshold)
	}
	if len(w.ItemIDs) == 0 {
		return fmt.Errorf("%w: at least one item id is required", ErrInvalidThreshold)
	}
	if _, err := ParseThresholdKind(string(w.Kind)); err != nil {
		return err
	}
	return nil
}

// Store persists accounts and their subscriptions.
type Store interface {
	// CreateAccount registers account and returns its unsubscribe token.
	CreateAccount(ctx context.Context, account string) (string, error)

	// Unsubscribe removes every subscription of the account holding token, and the
	// account itself, returning the account.
	Unsubscribe(ctx context.Context, token string) (string, error)

	// AddWatcher subscribes account to category. It reports false if it already was.
	AddWatcher(ctx context.Context, category Category, account string) (bool, error)

	// RemoveWatcher unsubscribes account from category.
	RemoveWatcher(ctx context.Context, category Category, account string) error

	// ListWatchers returns the accounts subscribed to category, sorted.
	ListWatchers(ctx context.Context, category Category) ([]string, error)

	// AddThreshold stores w and returns its assigned ID.
	AddThreshold(ctx context.Context, w ThresholdWatch) (int64, error)

	// ListThresholds returns the threshold watches of account, or all of them for "".
	ListThresholds(ctx context.Context, account string) ([]ThresholdWatch, error)

	// Ping checks that the backend is reachable.
	Ping(ctx context.Context) error

	Close() error
}

func checkCategory(c Category) error {
	_, err := ParseCategory(string(c))
	return err
}
