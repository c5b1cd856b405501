// Package source implements the cached entity index that triggers read from.
//
// A Source wraps a Fetcher (usually an api.Resource) with an ID -> entity map.
// The map is guarded by a RWMutex so one Source can be shared by every poller.
// Entries are replaced on refetch and never evicted.
package source
