package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Postgres is a Store backed by the tables created by database.Migrate.
type Postgres struct {
	pool *pgxpool.Pool
}

// NewPostgres wraps an open pool. Close closes the pool.
func NewPostgres(pool *pgxpool.Pool) *Postgres {
	return &Postgres{pool: pool}
}

// CreateAccount implements Store.
func (p *Postgres) CreateAccount(ctx context.Context, account string) (string, error) {
	token := uuid.New()

	tag, err := p.pool.Exec(ctx,
		`INSERT INTO accounts (account, token) VALUES ($1, $2) ON CONFLICT (account) DO NOTHING`,
		account, token.String(),
	)
	if err != nil {
		return "", fmt.Errorf("insert account: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return "", ErrAccountExists
	}
	return token.String(), nil
}

// Unsubscribe implements Store.
func (p *Postgres) Unsubscribe(ctx context.Context, token string) (string, error) {
	// A malformed token would make postgres reject the uuid cast.
	if _, err := uuid.Parse(token); err != nil {
		return "", ErrUnknownToken
	}

	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return "", fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	var account string
	err = tx.QueryRow(ctx, `DELETE FROM accounts WHERE token = $1 RETURNING account`, token).Scan(&account)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", ErrUnknownToken
	}
	if err != nil {
		return "", fmt.Errorf("delete account: %w", err)
	}

	if _, err := tx.Exec(ctx, `DELETE FROM watchers WHERE account = $1`, account); err != nil {
		return "", fmt.Errorf("delete watchers: %w", err)
	}
	if _, err := tx.Exec(ctx, `DELETE FROM thresholds WHERE account = $1`, account); err != nil {
		return "", fmt.Errorf("delete thresholds: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return "", fmt.Errorf("commit: %w", err)
	}
	return account, nil
}

// AddWatcher implements Store.
func (p *Postgres) AddWatcher(ctx context.Context, category Category, account string) (bool, error) {
	if err := checkCategory(category); err != nil {
		return false, err
	}

	tag, err := p.pool.Exec(ctx,
		`INSERT INTO watchers (category, account) VALUES ($1, $2) ON CONFLICT DO NOTHING`,
		string(category), account,
	)
	if err != nil {
		return false, fmt.Errorf("insert watcher: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// RemoveWatcher implements Store.
func (p *Postgres) RemoveWatcher(ctx context.Context, category Category, account string) error {
	if err := checkCategory(category); err != nil {
		return err
	}

	if _, err := p.pool.Exec(ctx,
		`DELETE FROM watchers WHERE category = $1 AND account = $2`,
		string(category), account,
	); err != nil {
		return fmt.Errorf("delete watcher: %w", err)
	}
	return nil
}

// ListWatchers implements Store.
func (p *Postgres) ListWatchers(ctx context.Context, category Category) ([]string, error) {
	if err := checkCategory(category); err != nil {
		return nil, err
	}

	rows, err := p.pool.Query(ctx,
		`SELECT account FROM watchers WHERE category = $1 ORDER BY account`,
		string(category),
	)
	if err != nil {
		return nil, fmt.Errorf("query watchers: %w", err)
	}

	accounts, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("scan watchers: %w", err)
	}
	return accounts, nil
}

// AddThreshold implements Store.
func (p *Postgres) AddThreshold(ctx context.Context, w ThresholdWatch) (int64, error) {
	if err := w.Validate(); err != nil {
		return 0, err
	}

	ids := make([]int32, len(w.ItemIDs))
	for i, id := range w.ItemIDs {
		ids[i] = int32(id)
	}

	var id int64
	err := p.pool.QueryRow(ctx,
		`INSERT INTO thresholds (account, item_ids, kind, value) VALUES ($1, $2, $3, $4) RETURNING id`,
		w.Account, ids, string(w.Kind), w.Value,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert threshold: %w", err)
	}
	return id, nil
}

// ListThresholds implements Store.
func (p *Postgres) ListThresholds(ctx context.Context, account string) ([]ThresholdWatch, error) {
	const base = `SELECT id, account, item_ids, kind, value, created_at FROM thresholds`

	var (
		rows pgx.Rows
		err  error
	)
	if account == "" {
		rows, err = p.pool.Query(ctx, base+` ORDER BY id`)
	} else {
		rows, err = p.pool.Query(ctx, base+` WHERE account = $1 ORDER BY id`, account)
	}
	if err != nil {
		return nil, fmt.Errorf("query thresholds: %w", err)
	}

	watches, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (ThresholdWatch, error) {
		var (
			w    ThresholdWatch
			ids  []int32
			kind string
		)
		if err := row.Scan(&w.ID, &w.Account, &ids, &kind, &w.Value, &w.CreatedAt); err != nil {
			return w, err
		}
		w.Kind = ThresholdKind(kind)
		w.ItemIDs = make([]int, len(ids))
		for i, id := range ids {
			w.ItemIDs[i] = int(id)
		}
		return w, nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan thresholds: %w", err)
	}
	return watches, nil
}

// Ping implements Store.
func (p *Postgres) Ping(ctx context.Context) error {
	return p.pool.Ping(ctx)
}

// Close implements Store.
func (p *Postgres) Close() error {
	p.pool.Close()
	return nil
}
