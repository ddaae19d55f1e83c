// internal/app/system/paging/paging.go
package paging

import (
	"net/http"
	"strconv"
	"time"

	"github.com/dalemusser/waffle/pantry/query"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// DefaultLimit is the number of rows in a feed page when the caller does
// not ask for a size.
const DefaultLimit = 20

// MaxLimit caps ?limit=.
const MaxLimit = 100

// Page is a newest-first keyset window over a created_at/_id ordering.
type Page struct {
	Limit  int
	Cursor *wafflemongo.Cursor // nil on the first page
}

// Parse reads ?limit= and ?after= from the request. A bad cursor is
// treated as the first page.
func Parse(r *http.Request) Page {
	p := Page{Limit: DefaultLimit}
	if s := query.Get(r, "limit"); s != "" {
		if n, err := strconv.Atoi(s); err == nil && n > 0 {
			p.Limit = min(n, MaxLimit)
		}
	}
	if s := query.Get(r, "after"); s != "" {
		if c, ok := wafflemongo.DecodeCursor(s); ok {
			p.Cursor = &c
		}
	}
	return p
}

// LimitPlusOne is the fetch size for look-ahead pagination (one extra row
// to detect a following page).
func (p Page) LimitPlusOne() int64 { return int64(p.Limit + 1) }

// Filter adds the keyset condition to base. base is not modified.
func (p Page) Filter(base bson.M) bson.M { return p.FilterBy(base, "_id") }

// FilterBy is Filter with ties on created_at broken by tieKey, an
// ObjectID field that is unique within the listed rows.
func (p Page) FilterBy(base bson.M, tieKey string) bson.M {
	out := bson.M{}
	for k, v := range base {
		out[k] = v
	}
	if p.Cursor == nil {
		return out
	}
	t, err := time.Parse(time.RFC3339Nano, p.Cursor.CI)
	if err != nil {
		return out
	}
	out["$or"] = bson.A{
		bson.M{"created_at": bson.M{"$lt": t}},
		bson.M{"created_at": t, tieKey: bson.M{"$lt": p.Cursor.ID}},
	}
	return out
}

// ApplyToFind sets the newest-first sort and the look-ahead limit.
func (p Page) ApplyToFind(find *options.FindOptions) *options.FindOptions {
	return p.ApplyToFindBy(find, "_id")
}

// ApplyToFindBy is ApplyToFind with tieKey as the secondary sort.
func (p Page) ApplyToFindBy(find *options.FindOptions, tieKey string) *options.FindOptions {
	return find.SetSort(bson.D{
		{Key: "created_at", Value: -1},
		{Key: tieKey, Value: -1},
	}).SetLimit(p.LimitPlusOne())
}

// Trim drops the look-ahead row and reports whether another page exists.
func Trim[T any](rows *[]T, limit int) (hasMore bool) {
	if len(*rows) > limit {
		*rows = (*rows)[:limit]
		return true
	}
	return false
}

// Cursor encodes the position of a row for ?after=.
func Cursor(createdAt time.Time, id primitive.ObjectID) string {
	return wafflemongo.EncodeCursor(createdAt.UTC().Format(time.RFC3339Nano), id)
}
