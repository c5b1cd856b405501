// Package poller implements the scheduling loop that drives trigger batches.
//
// Each Poller owns one goroutine. On every tick it runs its batches in
// registration order, one after another, then sleeps until the next tick is due.
// The tick period is measured from tick start, so a slow tick shortens the
// following sleep instead of delaying the schedule.
//
// Halting is cooperative: Halt wakes a sleeping loop immediately, but a batch
// that is already running finishes before the loop observes the request.
package poller
