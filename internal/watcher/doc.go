// Package watcher creates and tracks pollers.
//
// The Controller hands every poller it creates back to the caller and keeps
// only weak references itself, so a halted poller the caller has dropped is
// garbage collected. HaltAll broadcasts a halt to every poller still alive.
package watcher
