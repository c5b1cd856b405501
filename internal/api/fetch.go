package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"golang.org/x/sync/errgroup"
)

// FetchByIDs requests every ID from path, BatchSize IDs per request, with up to
// parallelism requests in flight. Records from batches that succeeded are returned
// even when other batches failed; the error joins every batch failure.
func (c *Client) FetchByIDs(ctx context.Context, path string, ids []int) ([]json.RawMessage, error) {
	batches := chunk(ids, c.batchSize)
	if len(batches) == 0 {
		return nil, nil
	}

	results := make([][]json.RawMessage, len(batches))
	errs := make([]error, len(batches))

	var g errgroup.Group
	g.SetLimit(c.parallelism)

	for i, batch := range batches {
		g.Go(func() error {
			query := url.Values{}
			query.Set("ids", joinIDs(batch))

			var records []json.RawMessage
			if err := c.get(ctx, path, query, &records); err != nil {
				errs[i] = fmt.Errorf("batch %d (%d ids): %w", i, len(batch), err)
				return nil
			}
			results[i] = records
			return nil
		})
	}
	g.Wait()

	var out []json.RawMessage
	for _, records := range results {
		out = append(out, records...)
	}

	if err := errors.Join(errs...); err != nil {
		c.logger.Warn("batched fetch incomplete",
			"path", path,
			"ids", len(ids),
			"records", len(out),
			"err", err,
		)
		return out, fmt.Errorf("fetch %s: %w", path, err)
	}

	return out, nil
}

// GetAllIDs fetches the full ID universe exposed at path.
func (c *Client) GetAllIDs(ctx context.Context, path string) ([]int, error) {
	var ids []int
	if err := c.get(ctx, path, nil, &ids); err != nil {
		return nil, fmt.Errorf("get ids %s: %w", path, err)
	}
	return ids, nil
}

// chunk splits ids into consecutive slices of at most size elements.
func chunk(ids []int, size int) [][]int {
	if size <= 0 {
		size = DefaultBatchSize
	}
	var out [][]int
	for len(ids) > 0 {
		n := min(size, len(ids))
		out = append(out, ids[:n])
		ids = ids[n:]
	}
	return out
}

func joinIDs(ids []int) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = strconv.Itoa(id)
	}
	return strings.Join(parts, ",")
}
