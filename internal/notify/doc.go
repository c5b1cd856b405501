// Package notify turns trigger output into notifications.
//
// Every sink is a trigger.Callback: a console printer, an append-only
// JSON-lines log, a subscriber fan-out over the subscription store, and a
// WebSocket pusher that forwards records to a remote relay.
package notify
