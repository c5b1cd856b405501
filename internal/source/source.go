package source

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/rickgao/tpwatch/internal/model"
)

// Fetcher loads entities from the remote provider.
type Fetcher[T any] interface {
	// FetchByIDs returns whatever entities could be loaded, plus an error for those that could not.
	FetchByIDs(ctx context.Context, ids []int) ([]T, error)

	// FetchAllIDs returns the provider's full ID universe.
	FetchAllIDs(ctx context.Context) ([]int, error)
}

// Source is a read-through cache in front of a Fetcher.
type Source[T model.Entity] struct {
	fetcher Fetcher[T]
	logger  *slog.Logger

	mu    sync.RWMutex
	index map[int]T
}

// New creates a Source with an empty index.
func New[T model.Entity](fetcher Fetcher[T], logger *slog.Logger) *Source[T] {
	if logger == nil {
		logger = slog.Default()
	}
	return &Source[T]{
		fetcher: fetcher,
		logger:  logger,
		index:   make(map[int]T),
	}
}

// FetchByIDs returns the entities for ids.
//
// With useCache, IDs already indexed are served from memory and only the rest are
// fetched. Without it every ID is refetched and overwrites the cached copy.
// Entities that were fetched successfully are indexed even when the fetch also
// returns an error; the result then holds what is available.
func (s *Source[T]) FetchByIDs(ctx context.Context, ids []int, useCache bool) ([]T, error) {
	ids = dedupe(ids)

	var cached []T
	missing := ids
	if useCache {
		cached, missing = s.lookup(ids)
	}

	var fetchErr error
	if len(missing) > 0 {
		var fetched []T
		fetched, fetchErr = s.fetcher.FetchByIDs(ctx, missing)
		s.store(fetched)

		s.logger.Debug("fetched entities",
			"requested", len(missing),
			"fetched", len(fetched),
			"cached", len(cached),
		)
	}

	// Assemble in request order from the index, so refetched entities win.
	s.mu.RLock()
	result := make([]T, 0, len(ids))
	for _, id := range ids {
		if v, ok := s.index[id]; ok {
			result = append(result, v)
		}
	}
	s.mu.RUnlock()

	return result, fetchErr
}

// FetchAllIDs returns the provider's full ID universe. It does not touch the index.
func (s *Source[T]) FetchAllIDs(ctx context.Context) ([]int, error) {
	return s.fetcher.FetchAllIDs(ctx)
}

// Prime loads the provider's whole universe into the index, refetching anything
// already cached. It returns the number of entities cached afterwards; on a
// partial failure that count covers what did load.
func (s *Source[T]) Prime(ctx context.Context) (int, error) {
	ids, err := s.fetcher.FetchAllIDs(ctx)
	if err != nil {
		return s.Len(), fmt.Errorf("list ids: %w", err)
	}

	if _, err := s.FetchByIDs(ctx, ids, false); err != nil {
		return s.Len(), err
	}

	n := s.Len()
	s.logger.Info("source primed", "ids", len(ids), "cached", n)
	return n, nil
}

// Get returns a cached entity.
func (s *Source[T]) Get(id int) (T, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.index[id]
	return v, ok
}

// Len returns the number of cached entities.
func (s *Source[T]) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.index)
}

// Snapshot returns a copy of every cached entity, in no particular order.
func (s *Source[T]) Snapshot() []T {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]T, 0, len(s.index))
	for _, v := range s.index {
		out = append(out, v)
	}
	return out
}

// Filter returns the cached entities accepted by keep.
func (s *Source[T]) Filter(keep func(T) bool) []T {
	var out []T
	for _, v := range s.Snapshot() {
		if keep(v) {
			out = append(out, v)
		}
	}
	return out
}

// lookup splits ids into cached entities and IDs that still need fetching.
func (s *Source[T]) lookup(ids []int) (cached []T, missing []int) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, id := range ids {
		if v, ok := s.index[id]; ok {
			cached = append(cached, v)
		} else {
			missing = append(missing, id)
		}
	}
	return cached, missing
}

// store indexes entities, last write wins.
func (s *Source[T]) store(entities []T) {
	if len(entities) == 0 {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, v := range entities {
		s.index[v.EntityID()] = v
	}
}

func dedupe(ids []int) []int {
	seen := make(map[int]struct{}, len(ids))
	out := make([]int, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
