package query

import (
	"cmp"
	"fmt"
	"slices"

	"github.com/rickgao/tpwatch/internal/model"
)

// Row is one result: an item, its listing, or both.
type Row struct {
	Item    *model.Item
	Listing *model.Listing
}

// ID returns the shared item ID of the row.
func (r Row) ID() int {
	if r.Item != nil {
		return r.Item.ID
	}
	if r.Listing != nil {
		return r.Listing.ID
	}
	return 0
}

// Predicate decides whether a row stays in a query.
type Predicate func(Row) bool

// Listed keeps rows that have a listing.
func Listed(r Row) bool { return r.Listing != nil }

// Cataloged keeps rows that have a catalog item.
func Cataloged(r Row) bool { return r.Item != nil }

// Result maps each selected field to its value, nil where the row lacks it.
type Result map[string]any

// Query is an immutable query stanza.
type Query struct {
	rows   []Row
	fields []string
}

// FromItems starts a stanza with one row per item.
func FromItems(items []model.Item) *Query {
	rows := make([]Row, len(items))
	for i := range items {
		it := items[i]
		rows[i] = Row{Item: &it}
	}
	return &Query{rows: rows}
}

// FromListings starts a stanza with one row per listing.
func FromListings(listings []model.Listing) *Query {
	rows := make([]Row, len(listings))
	for i := range listings {
		l := listings[i]
		rows[i] = Row{Listing: &l}
	}
	return &Query{rows: rows}
}

// JoinListings attaches the listing for each row's ID. Rows without a listing
// are kept with none.
func (q *Query) JoinListings(lookup func(id int) (model.Listing, bool)) *Query {
	rows := make([]Row, len(q.rows))
	for i, r := range q.rows {
		if l, ok := lookup(r.ID()); ok {
			r.Listing = &l
		}
		rows[i] = r
	}
	return q.with(rows, q.fields)
}

// JoinItems attaches the catalog item for each row's ID. Rows without an item
// are kept with none.
func (q *Query) JoinItems(lookup func(id int) (model.Item, bool)) *Query {
	rows := make([]Row, len(q.rows))
	for i, r := range q.rows {
		if it, ok := lookup(r.ID()); ok {
			r.Item = &it
		}
		rows[i] = r
	}
	return q.with(rows, q.fields)
}

// Where keeps the rows accepted by every predicate.
func (q *Query) Where(preds ...Predicate) *Query {
	var rows []Row
	for _, r := range q.rows {
		keep := true
		for _, p := range preds {
			if !p(r) {
				keep = false
				break
			}
		}
		if keep {
			rows = append(rows, r)
		}
	}
	return q.with(rows, q.fields)
}

// Select sets the fields Evaluate returns.
func (q *Query) Select(fields ...string) *Query {
	return q.with(q.rows, append([]string(nil), fields...))
}

// SortByID orders rows by ascending ID.
func (q *Query) SortByID() *Query {
	rows := q.Rows()
	slices.SortStableFunc(rows, func(a, b Row) int { return cmp.Compare(a.ID(), b.ID()) })
	return q.with(rows, q.fields)
}

// Limit keeps at most n rows. n <= 0 keeps everything.
func (q *Query) Limit(n int) *Query {
	if n <= 0 || n >= len(q.rows) {
		return q
	}
	return q.with(q.rows[:n], q.fields)
}

// Rows returns the current rows.
func (q *Query) Rows() []Row {
	return append([]Row(nil), q.rows...)
}

// Len returns the number of rows.
func (q *Query) Len() int { return len(q.rows) }

// Fields returns the selected fields.
func (q *Query) Fields() []string {
	return append([]string(nil), q.fields...)
}

// Evaluate projects every row onto the selected fields.
func (q *Query) Evaluate() ([]Result, error) {
	getters := make([]getter, len(q.fields))
	for i, name := range q.fields {
		g, ok := fields[name]
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrUnknownField, name)
		}
		getters[i] = g
	}

	out := make([]Result, 0, len(q.rows))
	for _, r := range q.rows {
		res := make(Result, len(q.fields))
		for i, name := range q.fields {
			res[name] = getters[i](r)
		}
		out = append(out, res)
	}
	return out, nil
}

func (q *Query) with(rows []Row, fields []string) *Query {
	return &Query{rows: rows, fields: fields}
}
