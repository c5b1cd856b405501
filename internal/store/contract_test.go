package store

import (
	"context"
	"errors"
	"testing"
)

// runStoreContract exercises the behaviour every Store backend must share.
// newStore returns an empty store.
func runStoreContract(t *testing.T, newStore func(t *testing.T) Store) {
	tests := []struct {
		name string
		fn   func(t *testing.T, s Store)
	}{
		{"Accounts", testAccounts},
		{"Watchers", testWatchers},
		{"Thresholds", testThresholds},
		{"Unsubscribe", testUnsubscribe},
		{"AccountNamedLikeInternalKey", testAccountNamedLikeInternalKey},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newStore(t)
			t.Cleanup(func() { s.Close() })
			tt.fn(t, s)
		})
	}
}

func testAccounts(t *testing.T, s Store) {
	ctx := context.Background()

	token, err := s.CreateAccount(ctx, "a@example.com")
	if err != nil {
		t.Fatalf("CreateAccount failed: %v", err)
	}
	if len(token) != 36 {
		t.Errorf("token %q does not look like a uuid", token)
	}

	if _, err := s.CreateAccount(ctx, "a@example.com"); !errors.Is(err, ErrAccountExists) {
		t.Errorf("duplicate CreateAccount error = %v, want ErrAccountExists", err)
	}

	other, err := s.CreateAccount(ctx, "b@example.com")
	if err != nil {
		t.Fatalf("CreateAccount(b) failed: %v", err)
	}
	if other == token {
		t.Error("tokens should be unique per account")
	}

	if err := s.Ping(ctx); err != nil {
		t.Errorf("Ping = %v", err)
	}
}

func testWatchers(t *testing.T, s Store) {
	ctx := context.Background()

	added, err := s.AddWatcher(ctx, CategoryNewItems, "b@example.com")
	if err != nil || !added {
		t.Fatalf("AddWatcher = %v, %v; want true", added, err)
	}
	added, err = s.AddWatcher(ctx, CategoryNewItems, "b@example.com")
	if err != nil || added {
		t.Errorf("duplicate AddWatcher = %v, %v; want false", added, err)
	}
	s.AddWatcher(ctx, CategoryNewItems, "a@example.com")
	s.AddWatcher(ctx, CategoryNewListings, "c@example.com")

	got, _ := s.ListWatchers(ctx, CategoryNewItems)
	if len(got) != 2 || got[0] != "a@example.com" || got[1] != "b@example.com" {
		t.Errorf("ListWatchers(new_items) = %v, want sorted [a b]", got)
	}

	if err := s.RemoveWatcher(ctx, CategoryNewItems, "a@example.com"); err != nil {
		t.Fatalf("RemoveWatcher failed: %v", err)
	}
	if err := s.RemoveWatcher(ctx, CategoryNewSecretListings, "nobody"); err != nil {
		t.Errorf("removing an absent watcher should succeed, got %v", err)
	}
	got, _ = s.ListWatchers(ctx, CategoryNewItems)
	if len(got) != 1 || got[0] != "b@example.com" {
		t.Errorf("ListWatchers after remove = %v", got)
	}

	empty, err := s.ListWatchers(ctx, CategoryNewSecretListings)
	if err != nil || len(empty) != 0 {
		t.Errorf("ListWatchers(empty) = %v, %v", empty, err)
	}

	if _, err := s.AddWatcher(ctx, "bogus", "a"); !errors.Is(err, ErrInvalidCategory) {
		t.Errorf("AddWatcher(bogus) error = %v", err)
	}
	if _, err := s.ListWatchers(ctx, "bogus"); !errors.Is(err, ErrInvalidCategory) {
		t.Errorf("ListWatchers(bogus) error = %v", err)
	}
}

func testThresholds(t *testing.T, s Store) {
	ctx := context.Background()

	ids := []int{19976, 19721}
	id1, err := s.AddThreshold(ctx, ThresholdWatch{Account: "a", ItemIDs: ids, Kind: BuyCeiling, Value: 250})
	if err != nil {
		t.Fatalf("AddThreshold failed: %v", err)
	}
	ids[0] = 0 // the store keeps its own copy

	id2, err := s.AddThreshold(ctx, ThresholdWatch{Account: "b", ItemIDs: []int{24}, Kind: SellFloor, Value: 10})
	if err != nil {
		t.Fatalf("AddThreshold(b) failed: %v", err)
	}
	if id2 <= id1 {
		t.Errorf("ids not increasing: %d then %d", id1, id2)
	}

	if _, err := s.AddThreshold(ctx, ThresholdWatch{Account: "a", Kind: BuyCeiling}); !errors.Is(err, ErrInvalidThreshold) {
		t.Errorf("invalid AddThreshold error = %v", err)
	}

	all, err := s.ListThresholds(ctx, "")
	if err != nil || len(all) != 2 {
		t.Fatalf("ListThresholds(all) = %d, %v; want 2", len(all), err)
	}
	if all[0].ID != id1 || all[1].ID != id2 {
		t.Errorf("ListThresholds order = %d, %d", all[0].ID, all[1].ID)
	}

	mine, _ := s.ListThresholds(ctx, "a")
	if len(mine) != 1 {
		t.Fatalf("ListThresholds(a) = %d, want 1", len(mine))
	}
	w := mine[0]
	if w.ID != id1 || w.Kind != BuyCeiling || w.Value != 250 || len(w.ItemIDs) != 2 || w.ItemIDs[0] != 19976 || w.CreatedAt.IsZero() {
		t.Errorf("stored watch = %+v", w)
	}

	none, err := s.ListThresholds(ctx, "nobody")
	if err != nil || len(none) != 0 {
		t.Errorf("ListThresholds(nobody) = %v, %v", none, err)
	}
}

func testUnsubscribe(t *testing.T, s Store) {
	ctx := context.Background()

	token, _ := s.CreateAccount(ctx, "a@example.com")
	s.CreateAccount(ctx, "b@example.com")
	for _, c := range Categories {
		s.AddWatcher(ctx, c, "a@example.com")
		s.AddWatcher(ctx, c, "b@example.com")
	}
	s.AddThreshold(ctx, ThresholdWatch{Account: "a@example.com", ItemIDs: []int{1}, Kind: BuyCeiling, Value: 1})
	s.AddThreshold(ctx, ThresholdWatch{Account: "b@example.com", ItemIDs: []int{1}, Kind: BuyCeiling, Value: 1})

	account, err := s.Unsubscribe(ctx, token)
	if err != nil || account != "a@example.com" {
		t.Fatalf("Unsubscribe = %q, %v", account, err)
	}

	for _, c := range Categories {
		got, _ := s.ListWatchers(ctx, c)
		if len(got) != 1 || got[0] != "b@example.com" {
			t.Errorf("ListWatchers(%s) = %v, want only b", c, got)
		}
	}
	all, _ := s.ListThresholds(ctx, "")
	if len(all) != 1 || all[0].Account != "b@example.com" {
		t.Errorf("thresholds after unsubscribe = %+v", all)
	}

	if _, err := s.Unsubscribe(ctx, token); !errors.Is(err, ErrUnknownToken) {
		t.Errorf("second Unsubscribe error = %v, want ErrUnknownToken", err)
	}
	if _, err := s.Unsubscribe(ctx, "not-a-token"); !errors.Is(err, ErrUnknownToken) {
		t.Errorf("Unsubscribe(malformed) error = %v, want ErrUnknownToken", err)
	}

	// The account can sign up again with a fresh token.
	again, err := s.CreateAccount(ctx, "a@example.com")
	if err != nil || again == token {
		t.Errorf("re-create = %q, %v", again, err)
	}
}

// testAccountNamedLikeInternalKey checks that account names cannot collide
// with bookkeeping state such as the threshold id counter.
func testAccountNamedLikeInternalKey(t *testing.T, s Store) {
	ctx := context.Background()

	first, err := s.AddThreshold(ctx, ThresholdWatch{Account: "a", ItemIDs: []int{1}, Kind: BuyCeiling, Value: 1})
	if err != nil {
		t.Fatalf("AddThreshold(a) failed: %v", err)
	}

	token, err := s.CreateAccount(ctx, "seq")
	if err != nil {
		t.Fatalf("CreateAccount(seq) failed: %v", err)
	}
	if _, err := s.AddThreshold(ctx, ThresholdWatch{Account: "seq", ItemIDs: []int{2}, Kind: SellFloor, Value: 2}); err != nil {
		t.Fatalf("AddThreshold(seq) failed: %v", err)
	}
	if _, err := s.Unsubscribe(ctx, token); err != nil {
		t.Fatalf("Unsubscribe(seq) failed: %v", err)
	}

	next, err := s.AddThreshold(ctx, ThresholdWatch{Account: "b", ItemIDs: []int{3}, Kind: BuyCeiling, Value: 3})
	if err != nil {
		t.Fatalf("AddThreshold(b) failed: %v", err)
	}
	if next <= first {
		t.Errorf("threshold id reused after unsubscribe: %d after %d", next, first)
	}

	all, _ := s.ListThresholds(ctx, "")
	if len(all) != 2 || all[0].Account != "a" || all[1].Account != "b" {
		t.Errorf("thresholds = %+v, want a and b", all)
	}
}
