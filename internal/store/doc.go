// Package store persists watch subscriptions.
//
// Subscribers are identified by an account string (typically an email address).
// Each account gets an opaque unsubscribe token when it is created; redeeming
// the token removes every subscription the account holds.
//
// Three backends implement Store: an in-memory map for tests and single-process
// use, PostgreSQL via pgx, and Redis via go-redis.
package store
