// Package model defines shared data types used across the trading-post watcher.
//
// Conventions:
//   - Prices: integer copper coins (1 gold = 10,000 copper)
//   - IDs: int, shared between the items and commerce endpoints
//   - Entities are immutable snapshots; a refetch replaces, never mutates
package model
