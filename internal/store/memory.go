package store

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Memory is a Store held in process memory.
type Memory struct {
	now func() time.Time

	mu         sync.RWMutex
	tokens     map[string]string // account -> token
	accounts   map[string]string // token -> account
	watchers   map[Category]map[string]struct{}
	thresholds []ThresholdWatch
	nextID     int64
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		now:      time.Now,
		tokens:   make(map[string]string),
		accounts: make(map[string]string),
		watchers: make(map[Category]map[string]struct{}),
	}
}

// CreateAccount implements Store.
func (m *Memory) CreateAccount(ctx context.Context, account string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.tokens[account]; ok {
		return "", ErrAccountExists
	}
	token := uuid.NewString()
	m.tokens[account] = token
	m.accounts[token] = account
	return token, nil
}

// Unsubscribe implements Store.
func (m *Memory) Unsubscribe(ctx context.Context, token string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	account, ok := m.accounts[token]
	if !ok {
		return "", ErrUnknownToken
	}
	delete(m.accounts, token)
	delete(m.tokens, account)

	for _, set := range m.watchers {
		delete(set, account)
	}
	m.thresholds = slices.DeleteFunc(m.thresholds, func(w ThresholdWatch) bool {
		return w.Account == account
	})

	return account, nil
}

// AddWatcher implements Store.
func (m *Memory) AddWatcher(ctx context.Context, category Category, account string) (bool, error) {
	if err := checkCategory(category); err != nil {
		return false, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	set, ok := m.watchers[category]
	if !ok {
		set = make(map[string]struct{})
		m.watchers[category] = set
	}
	if _, ok := set[account]; ok {
		return false, nil
	}
	set[account] = struct{}{}
	return true, nil
}

// RemoveWatcher implements Store.
func (m *Memory) RemoveWatcher(ctx context.Context, category Category, account string) error {
	if err := checkCategory(category); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.watchers[category], account)
	return nil
}

// ListWatchers implements Store.
func (m *Memory) ListWatchers(ctx context.Context, category Category) ([]string, error) {
	if err := checkCategory(category); err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]string, 0, len(m.watchers[category]))
	for account := range m.watchers[category] {
		out = append(out, account)
	}
	slices.Sort(out)
	return out, nil
}

// AddThreshold implements Store.
func (m *Memory) AddThreshold(ctx context.Context, w ThresholdWatch) (int64, error) {
	if err := w.Validate(); err != nil {
		return 0, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.nextID++
	w.ID = m.nextID
	w.ItemIDs = slices.Clone(w.ItemIDs)
	w.CreatedAt = m.now()
	m.thresholds = append(m.thresholds, w)
	return w.ID, nil
}

// ListThresholds implements Store.
func (m *Memory) ListThresholds(ctx context.Context, account string) ([]ThresholdWatch, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []ThresholdWatch
	for _, w := range m.thresholds {
		if account == "" || w.Account == account {
			w.ItemIDs = slices.Clone(w.ItemIDs)
			out = append(out, w)
		}
	}
	return out, nil
}

// Ping implements Store.
func (m *Memory) Ping(ctx context.Context) error {
	return nil
}

// Close implements Store.
func (m *Memory) Close() error {
	return nil
}
