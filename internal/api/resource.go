package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/rickgao/tpwatch/internal/model"
)

// Resource is a typed view of one ID-addressable endpoint.
// It satisfies source.Fetcher.
type Resource[T any] struct {
	client *Client
	path   string
	decode func(json.RawMessage) (T, error)
}

// Items returns the /v2/items resource.
func (c *Client) Items() *Resource[model.Item] {
	return &Resource[model.Item]{
		client: c,
		path:   ItemsPath,
		decode: func(raw json.RawMessage) (model.Item, error) {
			var a APIItem
			if err := json.Unmarshal(raw, &a); err != nil {
				return model.Item{}, err
			}
			return a.ToModel(), nil
		},
	}
}

// Listings returns the /v2/commerce/listings resource.
func (c *Client) Listings() *Resource[model.Listing] {
	return &Resource[model.Listing]{
		client: c,
		path:   ListingsPath,
		decode: func(raw json.RawMessage) (model.Listing, error) {
			var a APIListing
			if err := json.Unmarshal(raw, &a); err != nil {
				return model.Listing{}, err
			}
			return a.ToModel(), nil
		},
	}
}

// Path returns the endpoint path.
func (r *Resource[T]) Path() string {
	return r.path
}

// FetchByIDs fetches and decodes the given IDs. Entities that decoded cleanly are
// returned alongside any error.
func (r *Resource[T]) FetchByIDs(ctx context.Context, ids []int) ([]T, error) {
	raws, fetchErr := r.client.FetchByIDs(ctx, r.path, ids)

	out := make([]T, 0, len(raws))
	var decodeErrs []error
	for _, raw := range raws {
		v, err := r.decode(raw)
		if err != nil {
			decodeErrs = append(decodeErrs, err)
			continue
		}
		out = append(out, v)
	}

	if len(decodeErrs) > 0 {
		decodeErr := fmt.Errorf("%w: decode %s: %w", ErrFetchFailed, r.path, errors.Join(decodeErrs...))
		return out, errors.Join(fetchErr, decodeErr)
	}
	return out, fetchErr
}

// FetchAllIDs fetches every ID the endpoint knows about.
func (r *Resource[T]) FetchAllIDs(ctx context.Context) ([]int, error) {
	return r.client.GetAllIDs(ctx, r.path)
}
