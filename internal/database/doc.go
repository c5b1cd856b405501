// Package database provides the PostgreSQL connection pool and schema for the
// subscription store.
//
// Tables:
//   - accounts: subscriber account and its unsubscribe token
//   - watchers: account subscriptions per watch category
//   - thresholds: per-account threshold watches over listing IDs
package database
