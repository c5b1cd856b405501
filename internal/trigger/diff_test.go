package trigger

import (
	"context"
	"errors"
	"testing"
)

// sequence returns a query yielding each result in turn, then repeating the last.
func sequence(results ...[]int) (IDQuery, *error) {
	var fail error
	i := 0
	return func(context.Context, PollContext) ([]int, error) {
		if fail != nil {
			return nil, fail
		}
		r := results[min(i, len(results)-1)]
		i++
		return r, nil
	}, &fail
}

func TestIDDiff(t *testing.T) {
	query, _ := sequence([]int{1, 2, 3}, []int{2, 3, 4}, []int{2, 3, 4}, []int{4, 5, 2, 3, 6})
	trig := NewIDDiff("new-items", query)
	ctx := context.Background()

	got, err := trig.Evaluate(ctx, PollContext{})
	if err != nil || len(got) != 0 {
		t.Fatalf("first call = %v, %v; want empty", ids(got), err)
	}

	got, _ = trig.Evaluate(ctx, PollContext{})
	if !equalInts(ids(got), []int{4}) {
		t.Errorf("second call = %v, want [4]", ids(got))
	}

	// Baseline is now {2,3,4}.
	got, _ = trig.Evaluate(ctx, PollContext{})
	if len(got) != 0 {
		t.Errorf("unchanged set fired %v", ids(got))
	}

	got, _ = trig.Evaluate(ctx, PollContext{})
	if !equalInts(ids(got), []int{5, 6}) {
		t.Errorf("fourth call = %v, want sorted [5 6]", ids(got))
	}

	if trig.Name() != "new-items" || trig.Kind() != KindCustom {
		t.Errorf("trigger = %q/%v, want new-items/custom", trig.Name(), trig.Kind())
	}
}

func TestIDDiff_RemovalsAbsorbed(t *testing.T) {
	query, _ := sequence([]int{1, 2, 3}, []int{1}, []int{1, 3})
	trig := NewIDDiff("d", query)
	ctx := context.Background()

	trig.Evaluate(ctx, PollContext{})
	got, _ := trig.Evaluate(ctx, PollContext{})
	if len(got) != 0 {
		t.Errorf("removal reported %v", ids(got))
	}

	// 3 disappeared and came back, so it is new relative to {1}.
	got, _ = trig.Evaluate(ctx, PollContext{})
	if !equalInts(ids(got), []int{3}) {
		t.Errorf("reappearing id = %v, want [3]", ids(got))
	}
}

func TestIDDiff_QueryErrorKeepsBaseline(t *testing.T) {
	query, fail := sequence([]int{1, 2}, []int{1, 2, 3})
	trig := NewIDDiff("d", query)
	ctx := context.Background()

	*fail = errors.New("down")
	if _, err := trig.Evaluate(ctx, PollContext{}); err == nil {
		t.Fatal("expected error")
	}

	// The failed call must not have primed the baseline.
	*fail = nil
	got, _ := trig.Evaluate(ctx, PollContext{})
	if len(got) != 0 {
		t.Fatalf("first successful call fired %v", ids(got))
	}

	*fail = errors.New("down again")
	trig.Evaluate(ctx, PollContext{})

	*fail = nil
	got, _ = trig.Evaluate(ctx, PollContext{})
	if !equalInts(ids(got), []int{3}) {
		t.Errorf("after recovery = %v, want [3]", ids(got))
	}
}

func TestSecretIDs(t *testing.T) {
	tests := []struct {
		name     string
		items    []int
		listings []int
		want     []int
	}{
		{"one secret", []int{1, 2, 3}, []int{2, 3, 4}, []int{4}},
		{"none", []int{1, 2, 3}, []int{1, 2}, nil},
		{"no items", nil, []int{5, 1, 5}, []int{1, 5}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SecretIDs(tt.items, tt.listings); !equalInts(got, tt.want) {
				t.Errorf("SecretIDs() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestStandardQueries(t *testing.T) {
	pc := PollContext{
		Items:    &mockItems{all: []int{1, 2, 3}},
		Listings: &mockListings{all: []int{2, 3, 4}},
	}
	ctx := context.Background()

	if got, err := ItemIDs(ctx, pc); err != nil || !equalInts(got, []int{1, 2, 3}) {
		t.Errorf("ItemIDs = %v, %v", got, err)
	}
	if got, err := ListingIDs(ctx, pc); err != nil || !equalInts(got, []int{2, 3, 4}) {
		t.Errorf("ListingIDs = %v, %v", got, err)
	}
	if got, err := SecretListingIDs(ctx, pc); err != nil || !equalInts(got, []int{4}) {
		t.Errorf("SecretListingIDs = %v, %v", got, err)
	}

	if _, err := ItemIDs(ctx, PollContext{}); err == nil {
		t.Error("ItemIDs without a source should fail")
	}
	if _, err := SecretListingIDs(ctx, PollContext{Items: pc.Items}); err == nil {
		t.Error("SecretListingIDs without a listing source should fail")
	}
}

func TestSecretListingDiff(t *testing.T) {
	items := &mockItems{all: []int{1, 2, 3}}
	listings := &mockListings{all: []int{2, 3}}
	pc := PollContext{Items: items, Listings: listings}
	trig := NewIDDiff("secrets", SecretListingIDs)
	ctx := context.Background()

	trig.Evaluate(ctx, pc)
	listings.all = []int{2, 3, 4}

	got, err := trig.Evaluate(ctx, pc)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !equalInts(ids(got), []int{4}) {
		t.Errorf("secret diff = %v, want [4]", ids(got))
	}
}
