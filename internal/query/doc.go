// Package query filters and projects the cached item catalog and trading post.
//
// A Query is an immutable stanza of rows, each holding an item, its listing, or
// both. Every method returns a new Query, so stanzas can branch:
//
//	cheap, _ := query.ParseCondition("min_sell<100")
//	rows, err := query.FromItems(items.Snapshot()).
//		JoinListings(listings.Get).
//		Where(query.Listed, cheap).
//		Select("name", "min_sell").
//		Evaluate()
package query
