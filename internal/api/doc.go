// Package api provides the Guild Wars 2 REST client used to fetch catalog and commerce data.
//
// Endpoints:
//   - /v2/items                    all item IDs, or items by ?ids=
//   - /v2/commerce/listings        all listed item IDs, or order books by ?ids=
//
// ID lookups are split into batches of BatchSize IDs (the API rejects larger requests)
// and fetched in parallel. Server errors are retried with a fixed delay; a single
// redirect hop is followed by switching scheme and host.
package api
