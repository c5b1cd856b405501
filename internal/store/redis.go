package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strconv"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
)

// Redis is a Store backed by Redis sets and hashes.
//
// Keys, relative to the prefix:
//
//	accounts                     hash account -> token
//	tokens                       hash token -> account
//	watchers:<category>          set of accounts
//	thresholds                   hash id -> JSON ThresholdWatch
//	thresholds:seq               id counter
//	thresholds:account:<account> set of ids
type Redis struct {
	client *redis.Client
	prefix string
	now    func() time.Time
}

// NewRedis wraps a client. Close closes the client.
func NewRedis(client *redis.Client, prefix string) *Redis {
	return &Redis{
		client: client,
		prefix: prefix,
		now:    time.Now,
	}
}

func (r *Redis) accountsKey() string   { return r.prefix + "accounts" }
func (r *Redis) tokensKey() string     { return r.prefix + "tokens" }
func (r *Redis) thresholdsKey() string { return r.prefix + "thresholds" }
func (r *Redis) seqKey() string        { return r.prefix + "thresholds:seq" }

func (r *Redis) watchersKey(c Category) string {
	return r.prefix + "watchers:" + string(c)
}

func (r *Redis) accountThresholdsKey(account string) string {
	return r.prefix + "thresholds:account:" + account
}

// maxTxAttempts bounds optimistic transaction retries when watched keys change.
const maxTxAttempts = 5

// watch runs fn in an optimistic transaction over keys, retrying when another
// client modifies them first.
func (r *Redis) watch(ctx context.Context, fn func(*redis.Tx) error, keys ...string) error {
	for attempt := 0; attempt < maxTxAttempts; attempt++ {
		err := r.client.Watch(ctx, fn, keys...)
		if !errors.Is(err, redis.TxFailedErr) {
			return err
		}
	}
	return fmt.Errorf("transaction on %v: %w", keys, redis.TxFailedErr)
}

// CreateAccount implements Store.
func (r *Redis) CreateAccount(ctx context.Context, account string) (string, error) {
	token := uuid.NewString()

	err := r.watch(ctx, func(tx *redis.Tx) error {
		exists, err := tx.HExists(ctx, r.accountsKey(), account).Result()
		if err != nil {
			return fmt.Errorf("check account: %w", err)
		}
		if exists {
			return ErrAccountExists
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.HSet(ctx, r.accountsKey(), account, token)
			pipe.HSet(ctx, r.tokensKey(), token, account)
			return nil
		})
		return err
	}, r.accountsKey())
	if err != nil {
		if errors.Is(err, ErrAccountExists) {
			return "", err
		}
		return "", fmt.Errorf("create account: %w", err)
	}
	return token, nil
}

// Unsubscribe implements Store.
func (r *Redis) Unsubscribe(ctx context.Context, token string) (string, error) {
	account, err := r.client.HGet(ctx, r.tokensKey(), token).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrUnknownToken
	}
	if err != nil {
		return "", fmt.Errorf("get token: %w", err)
	}

	err = r.watch(ctx, func(tx *redis.Tx) error {
		ids, err := tx.SMembers(ctx, r.accountThresholdsKey(account)).Result()
		if err != nil {
			return fmt.Errorf("list thresholds: %w", err)
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.HDel(ctx, r.tokensKey(), token)
			pipe.HDel(ctx, r.accountsKey(), account)
			for _, c := range Categories {
				pipe.SRem(ctx, r.watchersKey(c), account)
			}
			if len(ids) > 0 {
				pipe.HDel(ctx, r.thresholdsKey(), ids...)
			}
			pipe.Del(ctx, r.accountThresholdsKey(account))
			return nil
		})
		return err
	}, r.accountThresholdsKey(account))
	if err != nil {
		return "", fmt.Errorf("remove account: %w", err)
	}
	return account, nil
}

// AddWatcher implements Store.
func (r *Redis) AddWatcher(ctx context.Context, category Category, account string) (bool, error) {
	if err := checkCategory(category); err != nil {
		return false, err
	}

	n, err := r.client.SAdd(ctx, r.watchersKey(category), account).Result()
	if err != nil {
		return false, fmt.Errorf("add watcher: %w", err)
	}
	return n == 1, nil
}

// RemoveWatcher implements Store.
func (r *Redis) RemoveWatcher(ctx context.Context, category Category, account string) error {
	if err := checkCategory(category); err != nil {
		return err
	}

	if err := r.client.SRem(ctx, r.watchersKey(category), account).Err(); err != nil {
		return fmt.Errorf("remove watcher: %w", err)
	}
	return nil
}

// ListWatchers implements Store.
func (r *Redis) ListWatchers(ctx context.Context, category Category) ([]string, error) {
	if err := checkCategory(category); err != nil {
		return nil, err
	}

	accounts, err := r.client.SMembers(ctx, r.watchersKey(category)).Result()
	if err != nil {
		return nil, fmt.Errorf("list watchers: %w", err)
	}
	slices.Sort(accounts)
	return accounts, nil
}

// AddThreshold implements Store.
func (r *Redis) AddThreshold(ctx context.Context, w ThresholdWatch) (int64, error) {
	if err := w.Validate(); err != nil {
		return 0, err
	}

	id, err := r.client.Incr(ctx, r.seqKey()).Result()
	if err != nil {
		return 0, fmt.Errorf("next threshold id: %w", err)
	}
	w.ID = id
	w.CreatedAt = r.now().UTC()

	data, err := json.Marshal(w)
	if err != nil {
		return 0, fmt.Errorf("encode threshold: %w", err)
	}

	field := strconv.FormatInt(id, 10)
	_, err = r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, r.thresholdsKey(), field, data)
		pipe.SAdd(ctx, r.accountThresholdsKey(w.Account), field)
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("store threshold: %w", err)
	}
	return id, nil
}

// ListThresholds implements Store.
func (r *Redis) ListThresholds(ctx context.Context, account string) ([]ThresholdWatch, error) {
	var raw []string
	if account == "" {
		all, err := r.client.HVals(ctx, r.thresholdsKey()).Result()
		if err != nil {
			return nil, fmt.Errorf("list thresholds: %w", err)
		}
		raw = all
	} else {
		ids, err := r.client.SMembers(ctx, r.accountThresholdsKey(account)).Result()
		if err != nil {
			return nil, fmt.Errorf("list threshold ids: %w", err)
		}
		if len(ids) == 0 {
			return nil, nil
		}
		vals, err := r.client.HMGet(ctx, r.thresholdsKey(), ids...).Result()
		if err != nil {
			return nil, fmt.Errorf("get thresholds: %w", err)
		}
		for _, v := range vals {
			if s, ok := v.(string); ok {
				raw = append(raw, s)
			}
		}
	}

	return decodeThresholds(raw)
}

// decodeThresholds parses stored records, ordered by ID.
func decodeThresholds(raw []string) ([]ThresholdWatch, error) {
	out := make([]ThresholdWatch, 0, len(raw))
	for _, s := range raw {
		var w ThresholdWatch
		if err := json.Unmarshal([]byte(s), &w); err != nil {
			return nil, fmt.Errorf("decode threshold: %w", err)
		}
		out = append(out, w)
	}
	slices.SortFunc(out, func(a, b ThresholdWatch) int {
		switch {
		case a.ID < b.ID:
			return -1
		case a.ID > b.ID:
			return 1
		}
		return 0
	})
	return out, nil
}

// Ping implements Store.
func (r *Redis) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

// Close implements Store.
func (r *Redis) Close() error {
	return r.client.Close()
}
