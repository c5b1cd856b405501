// Package trigger implements the evaluable conditions a poller runs each tick.
//
// A Trigger is a tagged variant:
//   - Threshold triggers fetch listings and report those violating any configured bound
//   - Interval triggers report their listings every fixed period
//   - Custom triggers delegate to a function, e.g. the ID diff built by NewIDDiff
//
// Triggers are grouped with callbacks into a Batch. A Batch isolates failures:
// an erroring or panicking trigger is logged and skipped, and so is a failing
// callback, so a single broken subscriber never stops the polling loop.
package trigger
